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

package server

import (
	"sync/atomic"
	"time"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/log"
	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/xlnerrors"
)

var logger = log.NewModuleLogger(log.ModuleServer)

const defaultGasPrice = 1

// Config tunes the block-production and child-sync timers of §4.4.
type Config struct {
	BlockInterval           time.Duration
	SyncInterval            time.Duration
	MaxTransactionsPerBlock int
	MempoolSize             int
}

// DefaultConfig matches §4.4's stated defaults (100ms blocks, 5s sync).
func DefaultConfig() Config {
	return Config{
		BlockInterval:           100 * time.Millisecond,
		SyncInterval:            5 * time.Second,
		MaxTransactionsPerBlock: 100,
		MempoolSize:             4096,
	}
}

// Machine is the ServerMachine of §4.4.
type Machine struct {
	id    common.MachineId
	core  *machine.Core
	bus   *eventbus.Bus
	cfg   Config
	nonce uint64

	stopCh chan struct{}
}

// New constructs a ServerMachine registered neither on the bus nor started;
// callers use hierarchy.RegisterServerOnEventBus and then Start.
func New(id common.MachineId, bus *eventbus.Bus, cfg Config) *Machine {
	m := &Machine{id: id, bus: bus, cfg: cfg, stopCh: make(chan struct{})}
	m.core = machine.NewCore(id, NewState(), cfg.MempoolSize, applyTx, verifyTransition)
	return m
}

func (m *Machine) ID() common.MachineId { return m.id }

// Core exposes the underlying MachineCore for peers (gossip, orchestrator)
// that need to call ReceiveBlock directly.
func (m *Machine) Core() *machine.Core { return m.core }

// State returns the current ServerState.
func (m *Machine) State() *State { return m.core.Current.(*State) }

// Handle implements actor.Handler. UPDATE_CHILD_STATE and
// SYNC_CHILD_STATES bypass the mempool (§4.4); every other command is
// queued with a default gas price and a per-event nonce.
func (m *Machine) Handle(event eventbus.Message) error {
	switch event.Payload.(type) {
	case UpdateChildStateCmd, SyncChildStatesCmd:
		next, err := applyTx(m.core.Current, event)
		if err != nil {
			return err
		}
		m.core.Current = next
		return nil
	default:
		nonce := atomic.AddUint64(&m.nonce, 1)
		return m.core.Mempool.Add(event, defaultGasPrice, nonce)
	}
}

// Start launches the block-production and child-sync timers.
func (m *Machine) Start() {
	go m.blockLoop()
	go m.syncLoop()
}

// Stop halts both timers.
func (m *Machine) Stop() { close(m.stopCh) }

func (m *Machine) blockLoop() {
	ticker := time.NewTicker(m.cfg.BlockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			block, err := m.core.ProduceBlock(m.cfg.MaxTransactionsPerBlock)
			if err != nil {
				if xlnerrors.KindOf(err) == xlnerrors.KindInvalidState {
					continue // empty mempool; nothing to do this tick
				}
				logger.Error("block production failed", "server", m.id, "err", err)
				continue
			}
			m.State().LastBlockTime = time.Now()
			logger.Debug("block produced", "server", m.id, "height", block.Header.BlockNumber)
			m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, block, m.id, common.Broadcast), EventBlockProduced)
		}
	}
}

func (m *Machine) syncLoop() {
	ticker := time.NewTicker(m.cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			state := m.State()
			for childID, knownRoot := range state.Submachines {
				query := SyncStateCmd{ChildID: childID, KnownRoot: knownRoot}
				m.bus.Dispatch(eventbus.NewMessage(eventbus.KindQuery, query, m.id, childID), "")
			}
			state.LastSyncTime = time.Now()
		}
	}
}

// verifyTransition enforces §4.4: blockHeight strictly monotonic (checked
// by the caller already via BlockNumber==height+1) and no child may vanish
// without an explicit CLOSE — every child present in "from" must still be
// present in "to".
func verifyTransition(from, to machine.State) error {
	fs, ok1 := from.(*State)
	ts, ok2 := to.(*State)
	if !ok1 || !ok2 {
		return xlnerrors.New(xlnerrors.KindInternal, "server: unexpected state type")
	}
	for childID := range fs.Submachines {
		if _, ok := ts.Submachines[childID]; !ok {
			return xlnerrors.New(xlnerrors.KindInvalidState, "submachine vanished without CLOSE: "+string(childID))
		}
	}
	return nil
}

// applyTx is handleEventLocal for ServerMachine: the union of all six
// commands of §4.4, used both for mempool-sourced transactions replayed
// during block production/verification and for the two immediate commands.
func applyTx(state machine.State, event eventbus.Message) (machine.State, error) {
	s, ok := state.(*State)
	if !ok {
		return nil, xlnerrors.New(xlnerrors.KindInternal, "server: unexpected state type")
	}
	next := s.Clone().(*State)

	switch cmd := event.Payload.(type) {
	case CreateSignerCmd:
		next.ChildIDs = append(next.ChildIDs, cmd.SignerID)
		next.Submachines[cmd.SignerID] = common.ZeroHash
		next.BumpNonce(event.Sender, next.NonceOf(event.Sender)+1)
		return next, nil

	case ProcessBlockCmd:
		if cmd.Block == nil {
			return nil, xlnerrors.New(xlnerrors.KindInvalidCommand, "PROCESS_BLOCK missing block")
		}
		next.Submachines[cmd.Block.Header.Proposer] = cmd.Block.Hash()
		return next, nil

	case SyncStateCmd:
		// A query; it has no direct state effect beyond bookkeeping the
		// last-known root, which the caller (syncLoop) already tracks.
		return next, nil

	case SyncChildStatesCmd:
		next.LastSyncTime = time.Now()
		return next, nil

	case UpdateChildStateCmd:
		if _, known := next.Submachines[cmd.ChildID]; !known {
			return nil, xlnerrors.New(xlnerrors.KindInvalidCommand, "unknown child id "+string(cmd.ChildID))
		}
		next.Submachines[cmd.ChildID] = cmd.NewRoot
		return next, nil

	case TransferCmd:
		fromBal, _ := next.Data[string(cmd.From)].(uint64)
		if fromBal < cmd.Amount {
			return nil, xlnerrors.New(xlnerrors.KindInvalidCommand, "insufficient balance for transfer")
		}
		toBal, _ := next.Data[string(cmd.To)].(uint64)
		next.Data[string(cmd.From)] = fromBal - cmd.Amount
		next.Data[string(cmd.To)] = toBal + cmd.Amount
		return next, nil

	default:
		return nil, xlnerrors.New(xlnerrors.KindInvalidCommand, "server: unrecognized command payload")
	}
}
