// Copyright 2024 The xln Authors
// This file is part of the xln library.
//
// The xln library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The xln library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the xln library. If not, see <http://www.gnu.org/licenses/>.

package orchestrator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/common"
	cryptopkg "github.com/adimov-eth/xln/crypto"
	"github.com/adimov-eth/xln/dashboard"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/log"
	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/metrics"
)

var logger = log.NewModuleLogger(log.ModuleOrchestrator)

// minBlockProductionInterval is enforced at init (§6: "Block production
// interval must be ≥1000 ms").
const minBlockProductionInterval = time.Second

// MempoolSource supplies the next transaction awaiting inclusion,
// matching §4.10's "shared mempool-source callback". false means no
// transaction is currently pending.
type MempoolSource func() (eventbus.Message, bool)

// Orchestrator builds a NetworkManager per NodeConfig, wires their
// transports per the chosen Topology, and drives the block-production and
// health-check loops of §4.10.
type Orchestrator struct {
	cfg   Config
	keys  *cryptopkg.KeyStore
	nodes map[common.MachineId]*NetworkManager

	signerIDs []common.MachineId
	source    MempoolSource
	rng       *rand.Rand
	feed      dashboard.Feed

	mu      sync.Mutex
	stopCh  chan struct{}
	started bool
}

// New validates cfg and constructs an Orchestrator. It bootstraps a
// dedicated KeyStore from the node list's private keys before
// constructing any node, since signer construction requires a key to
// already be resolvable.
func New(cfg Config, source MempoolSource) (*Orchestrator, error) {
	if cfg.BlockProductionInterval < minBlockProductionInterval {
		return nil, errors.Errorf("orchestrator: block production interval %s below minimum %s", cfg.BlockProductionInterval, minBlockProductionInterval)
	}
	if len(cfg.Nodes) == 0 {
		return nil, errors.New("orchestrator: empty node config list")
	}

	keys := cryptopkg.New()
	privateKeys := make(map[common.MachineId]string)
	for _, n := range cfg.Nodes {
		if n.PrivateKeyHex != "" {
			privateKeys[n.ID] = n.PrivateKeyHex
		}
	}
	if err := keys.Bootstrap(privateKeys); err != nil {
		return nil, errors.Wrap(err, "orchestrator: bootstrapping keystore")
	}
	// A signer-role node configured without an explicit key gets one
	// generated on the spot, mirroring KeyStore.Generate's dev/test use.
	for _, n := range cfg.Nodes {
		if n.Type == RoleSigner && n.PrivateKeyHex == "" {
			if _, err := keys.Generate(n.ID); err != nil {
				return nil, errors.Wrapf(err, "orchestrator: generating key for %s", n.ID)
			}
		}
	}

	o := &Orchestrator{
		cfg:    cfg,
		keys:   keys,
		nodes:  make(map[common.MachineId]*NetworkManager),
		source: source,
		rng:    rand.New(rand.NewSource(1)),
		feed:   dashboard.NoopFeed{},
		stopCh: make(chan struct{}),
	}

	ids := make([]common.MachineId, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		ids = append(ids, n.ID)
	}
	peerMap := GenerateTopology(ids, cfg.Topology)

	for _, n := range cfg.Nodes {
		addr := fmt.Sprintf("ws://%s:%d/gossip", n.Host, n.Port)
		nm, err := newNetworkManager(n, addr)
		if err != nil {
			return nil, err
		}
		o.nodes[n.ID] = nm
		if n.Type == RoleSigner {
			o.signerIDs = append(o.signerIDs, n.ID)
		}
	}
	if len(o.signerIDs) == 0 {
		return nil, errors.New("orchestrator: node list has no signer-role node")
	}

	for id, peers := range peerMap {
		nm := o.nodes[id]
		for _, peerID := range peers {
			peer := o.nodes[peerID]
			addr := fmt.Sprintf("ws://%s:%d/gossip", peer.cfg.Host, peer.cfg.Port)
			if err := nm.Transport.Connect(addr); err != nil {
				logger.Debug("initial topology dial failed", "from", id, "to", peerID, "err", err)
			}
		}
	}

	return o, nil
}

// Node returns the NetworkManager for id, or nil.
func (o *Orchestrator) Node(id common.MachineId) *NetworkManager { return o.nodes[id] }

// SetFeed attaches a dashboard.Feed the block-production and health loops
// push node states and log entries into. The default is a NoopFeed.
func (o *Orchestrator) SetFeed(feed dashboard.Feed) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.feed = feed
}

// Start launches every node's transport plus the block-production and
// health-check loops.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return
	}
	o.started = true
	for _, nm := range o.nodes {
		nm.Start()
	}
	go o.blockLoop()
	go o.healthLoop()
}

// Stop halts every timer and transport.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return
	}
	close(o.stopCh)
	for _, nm := range o.nodes {
		nm.Stop()
	}
	o.started = false
}

func (o *Orchestrator) blockLoop() {
	ticker := time.NewTicker(o.cfg.BlockProductionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

// tick implements §4.10's per-tick rule exactly: fetch the next pending
// transaction, pick a uniformly random signer, build and sign a block
// extending that signer's own local chain view, apply it locally, then
// broadcast.
func (o *Orchestrator) tick() {
	tx, ok := o.source()
	if !ok {
		return
	}

	proposerID := o.signerIDs[o.rng.Intn(len(o.signerIDs))]
	nm := o.nodes[proposerID]
	core := nm.Server.Core()

	next, err := core.Apply(core.Current, tx)
	if err != nil {
		logger.Debug("orchestrator tick: transaction rejected", "proposer", proposerID, "err", err)
		o.feed.PushLog(dashboard.LogEntry{Level: "ERROR", Message: "transaction rejected", MachineID: proposerID, EventID: tx.ID, Time: time.Now()})
		return
	}
	next.Base().BlockHeight = core.Height() + 1

	header := machine.BlockHeader{
		BlockNumber:      core.Height() + 1,
		ParentHash:       core.TipHash(),
		Proposer:         proposerID,
		Timestamp:        time.Now(),
		TransactionsRoot: machine.HashTransactions([]eventbus.Message{tx}),
		StateRoot:        machine.HashState(next),
	}
	block := &machine.Block{Header: header, Transactions: []eventbus.Message{tx}, Signatures: map[common.MachineId]string{}}

	priv, err := o.keys.PrivateKeyFor(proposerID)
	if err != nil {
		logger.Error("orchestrator tick: no private key for proposer", "proposer", proposerID, "err", err)
		return
	}
	sigHex, err := cryptopkg.Engine.Sign(priv, block.Hash())
	if err != nil {
		logger.Error("orchestrator tick: signing block failed", "proposer", proposerID, "err", err)
		return
	}
	block.Signatures[proposerID] = sigHex

	if err := core.ReceiveBlock(block); err != nil {
		logger.Error("orchestrator tick: proposer rejected its own block", "proposer", proposerID, "err", err)
		o.feed.PushLog(dashboard.LogEntry{Level: "ERROR", Message: "proposer rejected its own block", MachineID: proposerID, EventID: tx.ID, Time: time.Now()})
		return
	}
	metrics.NewRegisteredCounter(metrics.MetricBlocksProduced).Inc(1)
	nm.Transport.Broadcast(block)

	o.feed.PushState(proposerID, dashboard.NodeState{
		Height:  core.Height(),
		TipHash: core.TipHash(),
	}, o.cfg)
}

func (o *Orchestrator) healthLoop() {
	ticker := time.NewTicker(o.cfg.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.checkHealth()
		}
	}
}

// checkHealth marks a node unhealthy if it has no active peers in a
// multi-node network, and reconnects it to its configured topology peers
// on demand (§4.10).
func (o *Orchestrator) checkHealth() {
	healthy, unhealthy := 0, 0
	peerMap := GenerateTopology(o.nodeIDs(), o.cfg.Topology)

	for id, nm := range o.nodes {
		wantPeers := len(peerMap[id])
		hasPeers := len(nm.Transport.Peers())
		if wantPeers > 0 && hasPeers == 0 {
			unhealthy++
			nm.healthy = false
			o.feed.PushLog(dashboard.LogEntry{Level: "ERROR", Message: "node has no active peers", MachineID: id, Time: time.Now()})
			o.reconnect(id, nm, peerMap[id])
			continue
		}
		healthy++
		nm.healthy = true
	}
	metrics.NewRegisteredGauge(metrics.MetricNodesHealthy).Update(int64(healthy))
	metrics.NewRegisteredGauge(metrics.MetricNodesUnhealthy).Update(int64(unhealthy))
}

func (o *Orchestrator) reconnect(id common.MachineId, nm *NetworkManager, peers []common.MachineId) {
	for _, peerID := range peers {
		peer, ok := o.nodes[peerID]
		if !ok {
			continue
		}
		addr := fmt.Sprintf("ws://%s:%d/gossip", peer.cfg.Host, peer.cfg.Port)
		if err := nm.Transport.Connect(addr); err != nil {
			logger.Debug("health reconnect failed", "node", id, "peer", peerID, "err", err)
		}
	}
}

func (o *Orchestrator) nodeIDs() []common.MachineId {
	ids := make([]common.MachineId, 0, len(o.nodes))
	for _, n := range o.cfg.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
