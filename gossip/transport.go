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

package gossip

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/clevergo/websocket"
	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/params"
)

// BlockHandler is notified of every newly-seen block, whether produced
// locally or received from a peer — §4.9 requires the two paths be
// indistinguishable to handlers.
type BlockHandler func(block *machine.Block)

// StateHandler is notified of STATE_UPDATE announcements.
type StateHandler func(update StateUpdatePayload)

// BlockRequestHandler answers a REQUEST_BLOCK by hash, returning the block
// if locally known. Used to serve BLOCK_RESPONSE.
type BlockRequestHandler func(hash common.Hash) (*machine.Block, bool)

// Config tunes peer liveness, matching §4.9's stated defaults.
type Config struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	DedupSize    int
}

// DefaultConfig matches §4.9 (30s ping, 5s pong timeout).
func DefaultConfig() Config {
	return Config{
		PingInterval: params.DefaultPingInterval,
		PongTimeout:  params.DefaultPongTimeout,
		DedupSize:    params.DefaultBlockLRUSize,
	}
}

// Transport is the GossipTransport of §4.9: peer table, de-dup cache, and
// the handler lists a NetworkManager/Orchestrator registers before Start.
// Append-only registration before Start matches §5's "Shared resources"
// contract for BlockHandlers/StateHandlers/BlockRequestHandlers.
type Transport struct {
	self NodeInfo
	cfg  Config

	mu    sync.RWMutex
	peers map[common.MachineId]*peer

	seenBlocks common.Cache // key: block hash hex, value: struct{}{}

	blockHandlers   []BlockHandler
	stateHandlers   []StateHandler
	requestHandlers []BlockRequestHandler

	upgrader *websocket.Upgrader
	stopCh   chan struct{}
}

// New constructs a Transport bound to self's id/address and cfg. Pass
// cfg=DefaultConfig() for §4.9's stated timers.
func New(self NodeInfo, cfg Config) (*Transport, error) {
	cache, err := common.NewCache(common.LRUConfig{CacheSize: cfg.DedupSize})
	if err != nil {
		return nil, errors.Wrap(err, "gossip: constructing dedup cache")
	}
	return &Transport{
		self:       self,
		cfg:        cfg,
		peers:      make(map[common.MachineId]*peer),
		seenBlocks: cache,
		upgrader:   &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		stopCh:     make(chan struct{}),
	}, nil
}

// RegisterBlockHandler, RegisterStateHandler and RegisterBlockRequestHandler
// append a handler; callers must do so before Start (§5).
func (t *Transport) RegisterBlockHandler(h BlockHandler)                 { t.blockHandlers = append(t.blockHandlers, h) }
func (t *Transport) RegisterStateHandler(h StateHandler)                 { t.stateHandlers = append(t.stateHandlers, h) }
func (t *Transport) RegisterBlockRequestHandler(h BlockRequestHandler)   { t.requestHandlers = append(t.requestHandlers, h) }

// Start launches the liveness-probe loop. Accepting/dialing connections is
// driven separately via ServeHTTP/Connect.
func (t *Transport) Start() {
	go t.pingLoop()
}

// Stop halts the liveness loop and closes every peer connection.
func (t *Transport) Stop() {
	close(t.stopCh)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.peers {
		p.Close()
	}
}

// ServeHTTP upgrades an inbound connection and runs its lifecycle: send
// HANDSHAKE, then read until closed (§4.9 "on accept, send HANDSHAKE").
func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "err", err)
		return
	}
	p := newPeer(conn, r.RemoteAddr)
	t.runPeer(p, true)
}

// Connect dials addr and runs the same lifecycle as an accepted peer, for
// the side that initiates the connection.
func (t *Transport) Connect(addr string) error {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return errors.Wrapf(err, "gossip: dialing %s", addr)
	}
	p := newPeer(conn, addr)
	t.runPeer(p, true)
	return nil
}

// runPeer starts the read/write loops and, if sendHandshake, sends our
// NodeInfo first (both accept and dial sides do — the protocol is
// symmetric once the socket is open).
func (t *Transport) runPeer(p *peer, sendHandshake bool) {
	go p.writeLoop()
	go p.readLoop(t.onEnvelope)

	if sendHandshake {
		env, err := newEnvelope(TypeHandshake, t.self.ID, HandshakePayload{Self: t.self})
		if err != nil {
			logger.Error("encoding handshake failed", "err", err)
			p.Close()
			return
		}
		if err := p.send(env); err != nil {
			logger.Debug("sending handshake failed", "err", err)
			p.Close()
		}
	}
}

// addPeer records p under id once its HANDSHAKE arrives, replacing any
// stale prior connection for the same id.
func (t *Transport) addPeer(id common.MachineId, p *peer) {
	p.setID(id)
	t.mu.Lock()
	old, existed := t.peers[id]
	t.peers[id] = p
	t.mu.Unlock()
	if existed && old != p {
		old.Close()
	}
}

// Peers returns the currently active peer ids.
func (t *Transport) Peers() []common.MachineId {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]common.MachineId, 0, len(t.peers))
	for id, p := range t.peers {
		if p.Status() == StatusActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// onEnvelope is the single dispatch point every peer's readLoop funnels
// through, switching on Type (§4.9's envelope union).
func (t *Transport) onEnvelope(p *peer, env Envelope) {
	switch env.Type {
	case TypeHandshake:
		var hs HandshakePayload
		if err := decodePayload(env, &hs); err != nil {
			logger.Warn("malformed HANDSHAKE", "err", err)
			return
		}
		t.addPeer(hs.Self.ID, p)
		t.requestPeers(p)

	case TypeDiscovery:
		var d DiscoveryPayload
		if err := decodePayload(env, &d); err != nil {
			logger.Warn("malformed DISCOVERY", "err", err)
			return
		}
		t.maybeDial(d.Self)

	case TypePing:
		pong, _ := newEnvelope(TypePong, t.self.ID, struct{}{})
		_ = p.send(pong)

	case TypePong:
		p.recordPong()

	case TypeRequestPeers:
		t.sendPeersList(p)

	case TypePeersList:
		var list PeersListPayload
		if err := decodePayload(env, &list); err != nil {
			logger.Warn("malformed PEERS_LIST", "err", err)
			return
		}
		for _, info := range list.Peers {
			t.maybeDial(info)
		}

	case TypeBlock:
		var bp BlockPayload
		if err := decodePayload(env, &bp); err != nil {
			logger.Warn("malformed BLOCK", "err", err)
			return
		}
		t.ingestBlock(bp.Block, p)

	case TypeBlockResponse:
		var bp BlockPayload
		if err := decodePayload(env, &bp); err != nil {
			logger.Warn("malformed BLOCK_RESPONSE", "err", err)
			return
		}
		t.ingestBlock(bp.Block, p)

	case TypeStateUpdate:
		var su StateUpdatePayload
		if err := decodePayload(env, &su); err != nil {
			logger.Warn("malformed STATE_UPDATE", "err", err)
			return
		}
		for _, h := range t.stateHandlers {
			h(su)
		}

	case TypeRequestBlock:
		var rb RequestBlockPayload
		if err := decodePayload(env, &rb); err != nil {
			logger.Warn("malformed REQUEST_BLOCK", "err", err)
			return
		}
		t.serveBlockRequest(rb.Hash, p)

	default:
		logger.Debug("ignoring unknown envelope type", "type", env.Type)
	}
}

func (t *Transport) requestPeers(p *peer) {
	env, _ := newEnvelope(TypeRequestPeers, t.self.ID, RequestPeersPayload{})
	p.enqueue(env)
}

func (t *Transport) sendPeersList(p *peer) {
	t.mu.RLock()
	list := make([]NodeInfo, 0, len(t.peers))
	for id, peer := range t.peers {
		if peer.Status() == StatusActive {
			list = append(list, NodeInfo{ID: id, Addr: peer.addr})
		}
	}
	t.mu.RUnlock()
	env, _ := newEnvelope(TypePeersList, t.self.ID, PeersListPayload{Peers: list})
	p.enqueue(env)
}

// maybeDial opens a connection to info if it is unknown and not self
// (§4.9 "on PEERS_LIST, open connections to any unknown id").
func (t *Transport) maybeDial(info NodeInfo) {
	if info.ID == t.self.ID || info.ID == "" {
		return
	}
	t.mu.RLock()
	_, known := t.peers[info.ID]
	t.mu.RUnlock()
	if known {
		return
	}
	if err := t.Connect(info.Addr); err != nil {
		logger.Debug("discovery dial failed", "peer", info.ID, "addr", info.Addr, "err", err)
	}
}

// blockKey is the de-duplication key of §4.9: "BLOCK:{hash}".
func blockKey(hash common.Hash) string { return fmt.Sprintf("BLOCK:%s", hash.Hex()) }

// ingestBlock applies §4.9's de-dup + relay rule: the first time a block
// is seen it is handed to local handlers and relayed to every peer except
// the sender; subsequent sightings are silently dropped.
func (t *Transport) ingestBlock(block *machine.Block, from *peer) {
	if block == nil {
		return
	}
	key := blockKey(block.Hash())
	if t.seenBlocks.Contains(key) {
		return
	}
	t.seenBlocks.Add(key, struct{}{})

	for _, h := range t.blockHandlers {
		h(block)
	}
	t.relay(block, from)
}

// relay fans block out to every connected peer except from (from is nil
// for locally-produced blocks, which go to every peer).
func (t *Transport) relay(block *machine.Block, from *peer) {
	env, err := newEnvelope(TypeBlock, t.self.ID, BlockPayload{Block: block})
	if err != nil {
		logger.Error("encoding block relay failed", "err", err)
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.peers {
		if p == from || p.Status() != StatusActive {
			continue
		}
		p.enqueue(env)
	}
}

// Broadcast is the entry point for locally-produced blocks: it is routed
// through the exact same de-dup/handler/relay path as a received BLOCK so
// local and remote deliveries are indistinguishable (§4.9).
func (t *Transport) Broadcast(block *machine.Block) {
	t.ingestBlock(block, nil)
}

// BroadcastStateUpdate announces a state root to every connected peer.
func (t *Transport) BroadcastStateUpdate(update StateUpdatePayload) {
	env, err := newEnvelope(TypeStateUpdate, t.self.ID, update)
	if err != nil {
		logger.Error("encoding state update failed", "err", err)
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.peers {
		if p.Status() == StatusActive {
			p.enqueue(env)
		}
	}
}

// RequestBlock issues REQUEST_BLOCK{hash} to every connected peer; used
// when an incoming block's parent cannot be linked locally (§4.9).
func (t *Transport) RequestBlock(hash common.Hash) {
	env, _ := newEnvelope(TypeRequestBlock, t.self.ID, RequestBlockPayload{Hash: hash})
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.peers {
		if p.Status() == StatusActive {
			p.enqueue(env)
		}
	}
}

func (t *Transport) serveBlockRequest(hash common.Hash, to *peer) {
	for _, h := range t.requestHandlers {
		if block, ok := h(hash); ok {
			env, err := newEnvelope(TypeBlockResponse, t.self.ID, BlockPayload{Block: block})
			if err != nil {
				logger.Error("encoding block response failed", "err", err)
				return
			}
			to.enqueue(env)
			return
		}
	}
}

// pingLoop sends PING to every peer every PingInterval; at the next tick,
// any peer that did not PONG within PongTimeout of its previous PING is
// marked INACTIVE and its socket closed (§4.9, §5).
func (t *Transport) pingLoop() {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.pingAll()
		}
	}
}

func (t *Transport) pingAll() {
	env, _ := newEnvelope(TypePing, t.self.ID, struct{}{})

	t.mu.RLock()
	snapshot := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		snapshot = append(snapshot, p)
	}
	t.mu.RUnlock()

	now := time.Now()
	for _, p := range snapshot {
		if p.Status() != StatusActive {
			continue
		}
		p.mu.Lock()
		lastPing, lastPong := p.lastPing, p.lastPong
		p.lastPing = now
		p.mu.Unlock()

		if !lastPing.IsZero() && lastPong.Before(lastPing) && now.Sub(lastPing) > t.cfg.PongTimeout {
			logger.Debug("peer ping timeout", "peer", p.ID())
			p.Close()
			continue
		}
		p.enqueue(env)
	}
}
