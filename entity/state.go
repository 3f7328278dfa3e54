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

package entity

import (
	"sort"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/machine"
)

// channelRecord is the entity-side bookkeeping kept for a channel it
// co-owns: the opaque state hash published by the channel submachine
// (§3's "channels: mapping channelId->Hash" cross-link) plus the total
// funds committed at open time, used to check conservation at close.
type channelRecord struct {
	Hash        common.Hash
	PartnerID   common.MachineId
	TotalFunds  uint64
	Closed      bool
}

func (c channelRecord) clone() channelRecord { return c }

// State is EntityState of §3.
type State struct {
	machine.BaseState
	Config    Config
	Channels  map[common.MachineId]channelRecord
	Proposals map[string]Proposal
}

// NewState constructs a genesis EntityState from a validated cfg.
func NewState(cfg Config) *State {
	return &State{
		BaseState: machine.BaseState{LatestHash: common.ZeroHash, Data: map[string]interface{}{}, Nonces: map[common.MachineId]uint64{}},
		Config:    cfg,
		Channels:  map[common.MachineId]channelRecord{},
		Proposals: map[string]Proposal{},
	}
}

func (s *State) Base() *machine.BaseState { return &s.BaseState }

func (s *State) Clone() machine.State {
	ns := &State{BaseState: s.BaseState.CloneBase(), Config: s.Config.Clone()}

	ns.Channels = make(map[common.MachineId]channelRecord, len(s.Channels))
	for k, v := range s.Channels {
		ns.Channels[k] = v.clone()
	}

	ns.Proposals = make(map[string]Proposal, len(s.Proposals))
	for k, v := range s.Proposals {
		ns.Proposals[k] = v.Clone()
	}
	return ns
}

func (s *State) CanonicalExtra() []byte {
	var out []byte
	out = append(out, s.Config.Canonical()...)

	channelIDs := make([]string, 0, len(s.Channels))
	for id := range s.Channels {
		channelIDs = append(channelIDs, string(id))
	}
	sort.Strings(channelIDs)
	for _, id := range channelIDs {
		rec := s.Channels[common.MachineId(id)]
		out = append(out, []byte(id)...)
		out = append(out, rec.Hash[:]...)
		out = append(out, machine.U64(rec.TotalFunds)...)
		if rec.Closed {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}

	proposalIDs := make([]string, 0, len(s.Proposals))
	for id := range s.Proposals {
		proposalIDs = append(proposalIDs, id)
	}
	sort.Strings(proposalIDs)
	for _, id := range proposalIDs {
		out = append(out, s.Proposals[id].Canonical()...)
	}
	return out
}
