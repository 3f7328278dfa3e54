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

// Package dashboard defines the observability feed contract of §6: a
// purely out-of-band consumer that receives node states and a free-form
// log channel, with no feedback into the core. Only the contract and a
// no-op in-memory implementation are shipped here — a real websocket UI
// is explicitly out of scope (§1).
package dashboard

import (
	"sync"
	"time"

	"github.com/adimov-eth/xln/common"
)

// NodeState is one entry of the `nodeStates` mapping of §6.
type NodeState struct {
	Height              uint64
	Balances            map[common.MachineId]uint64
	TipHash             common.Hash
	PendingTransactions int
}

// LogEntry is one line of the free-form log channel of §6/§7: dashboards
// receive an ERROR-level entry naming the failing operation's identifiers.
type LogEntry struct {
	Level     string
	Message   string
	MachineID common.MachineId
	EventID   string
	Time      time.Time
}

// Feed is the dashboard consumer contract. PushState and PushLog are
// called by whatever owns a node's lifecycle (typically the
// orchestrator); a Feed must never block the caller for long, since
// nothing in the core waits on it.
type Feed interface {
	PushState(nodeID common.MachineId, state NodeState, config interface{})
	PushLog(entry LogEntry)
}

// NoopFeed discards everything. It is the default Feed when no real
// consumer is attached.
type NoopFeed struct{}

func (NoopFeed) PushState(common.MachineId, NodeState, interface{}) {}
func (NoopFeed) PushLog(LogEntry)                                   {}

var _ Feed = NoopFeed{}

// MemoryFeed is a no-op-for-the-core, in-memory Feed that records the
// latest state per node and a bounded log tail — useful for tests and for
// a future dashboard process to poll, without this module depending on
// any UI framework.
type MemoryFeed struct {
	mu        sync.RWMutex
	states    map[common.MachineId]NodeState
	configs   map[common.MachineId]interface{}
	logTail   []LogEntry
	maxLogTail int
}

// NewMemoryFeed constructs a MemoryFeed retaining at most maxLogTail log
// entries (0 means unbounded).
func NewMemoryFeed(maxLogTail int) *MemoryFeed {
	return &MemoryFeed{
		states:     make(map[common.MachineId]NodeState),
		configs:    make(map[common.MachineId]interface{}),
		maxLogTail: maxLogTail,
	}
}

func (f *MemoryFeed) PushState(nodeID common.MachineId, state NodeState, config interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[nodeID] = state
	f.configs[nodeID] = config
}

func (f *MemoryFeed) PushLog(entry LogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logTail = append(f.logTail, entry)
	if f.maxLogTail > 0 && len(f.logTail) > f.maxLogTail {
		f.logTail = f.logTail[len(f.logTail)-f.maxLogTail:]
	}
}

// States returns a snapshot copy of every node's last-pushed state.
func (f *MemoryFeed) States() map[common.MachineId]NodeState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[common.MachineId]NodeState, len(f.states))
	for k, v := range f.states {
		out[k] = v
	}
	return out
}

// Logs returns a copy of the retained log tail.
func (f *MemoryFeed) Logs() []LogEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]LogEntry, len(f.logTail))
	copy(out, f.logTail)
	return out
}

var _ Feed = (*MemoryFeed)(nil)
