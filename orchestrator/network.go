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
	"net/http"

	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/gossip"
	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/metrics"
	"github.com/adimov-eth/xln/server"
)

// NetworkManager is one simulated node: its own EventBus, its own replica
// of the chain (a ServerMachine whose Core is driven by ReceiveBlock
// rather than its own timer — the orchestrator is the sole block
// proposer in this test harness), and a gossip Transport relaying blocks
// to its configured peers.
type NetworkManager struct {
	cfg       NodeConfig
	Bus       *eventbus.Bus
	Server    *server.Machine
	Transport *gossip.Transport

	healthy bool
}

// newNetworkManager constructs a node's full local stack and wires its
// transport's BlockHandler to ReceiveBlock, the path every relayed and
// locally-produced block travels through identically (§4.9).
func newNetworkManager(cfg NodeConfig, addr string) (*NetworkManager, error) {
	bus := eventbus.New()
	srv := server.New(cfg.ID, bus, server.DefaultConfig())

	transport, err := gossip.New(gossip.NodeInfo{ID: cfg.ID, Addr: addr}, gossip.DefaultConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "orchestrator: constructing transport for %s", cfg.ID)
	}

	nm := &NetworkManager{cfg: cfg, Bus: bus, Server: srv, Transport: transport, healthy: true}

	transport.RegisterBlockHandler(nm.acceptBlock)
	transport.RegisterBlockRequestHandler(nm.serveBlockRequest)

	return nm, nil
}

// acceptBlock runs the fork-choice rule of §4.9 before handing the block
// to ReceiveBlock; a deferred block triggers REQUEST_BLOCK for its parent.
func (nm *NetworkManager) acceptBlock(block *machine.Block) {
	core := nm.Server.Core()
	decision := gossip.ChooseFork(block.Header.ParentHash, block.Header.BlockNumber, core.TipHash(), core.Height(), nm.hasBlock)
	if decision == gossip.DecisionDefer {
		nm.Transport.RequestBlock(block.Header.ParentHash)
		return
	}
	if err := core.ReceiveBlock(block); err != nil {
		logger.Debug("rejecting relayed block", "node", nm.cfg.ID, "err", err)
		return
	}
	metrics.NewRegisteredCounter(metrics.MetricBlocksProduced).Inc(1)
}

func (nm *NetworkManager) hasBlock(hash common.Hash) bool {
	ok, _ := nm.findBlock(hash)
	return ok
}

func (nm *NetworkManager) findBlock(hash common.Hash) (bool, *machine.Block) {
	for _, b := range nm.Server.Core().Blocks {
		if b.Hash() == hash {
			return true, b
		}
	}
	return false, nil
}

func (nm *NetworkManager) serveBlockRequest(hash common.Hash) (*machine.Block, bool) {
	ok, b := nm.findBlock(hash)
	return b, ok
}

// Serve exposes the node's gossip endpoint over HTTP, matching §6's
// websocket-compatible wire transport.
func (nm *NetworkManager) Serve(mux *http.ServeMux) {
	mux.HandleFunc("/gossip", nm.Transport.ServeHTTP)
}

// Start launches the transport's liveness loop.
func (nm *NetworkManager) Start() { nm.Transport.Start() }

// Stop halts the transport.
func (nm *NetworkManager) Stop() { nm.Transport.Stop() }
