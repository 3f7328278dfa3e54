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

// Package server is the top-of-hierarchy submachine: owns child state
// roots, seals blocks on a timer, and periodically probes children for
// state sync (§4.4).
package server

import (
	"sort"
	"time"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/machine"
)

// State extends machine.BaseState with the server-specific fields of §3.
type State struct {
	machine.BaseState
	Submachines   map[common.MachineId]common.Hash
	LastBlockTime time.Time
	LastSyncTime  time.Time
}

// NewState constructs a genesis ServerState.
func NewState() *State {
	return &State{
		BaseState:   machine.BaseState{LatestHash: common.ZeroHash, Data: map[string]interface{}{}, Nonces: map[common.MachineId]uint64{}},
		Submachines: map[common.MachineId]common.Hash{},
	}
}

func (s *State) Base() *machine.BaseState { return &s.BaseState }

func (s *State) Clone() machine.State {
	ns := &State{
		BaseState:     s.BaseState.CloneBase(),
		LastBlockTime: s.LastBlockTime,
		LastSyncTime:  s.LastSyncTime,
	}
	ns.Submachines = make(map[common.MachineId]common.Hash, len(s.Submachines))
	for k, v := range s.Submachines {
		ns.Submachines[k] = v
	}
	return ns
}

func (s *State) CanonicalExtra() []byte {
	keys := make([]string, 0, len(s.Submachines))
	for k := range s.Submachines {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	var out []byte
	for _, k := range keys {
		out = append(out, []byte(k)...)
		h := s.Submachines[common.MachineId(k)]
		out = append(out, h[:]...)
	}
	out = append(out, machine.U64(uint64(s.LastBlockTime.UnixNano()))...)
	out = append(out, machine.U64(uint64(s.LastSyncTime.UnixNano()))...)
	return out
}
