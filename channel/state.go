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

// Package channel is the bilateral payment-channel submachine co-owned by
// two Entities (§4.7): balance updates by mutual signature, a dispute
// window for unilateral closure, and settlement.
package channel

import (
	"sort"
	"time"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/machine"
)

// Status is the channel lifecycle state of §4.7.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusDisputed  Status = "DISPUTED"
	StatusResolved  Status = "RESOLVED"
	StatusSettling  Status = "SETTLING"
	StatusClosed    Status = "CLOSED"
)

// disputePenaltyBps is the 10% penalty debited from a participant that
// fails to respond to a dispute before its deadline, redistributed to the
// participants that did respond (§9's codified rule). A dispute resolved
// by a countersigned update before the deadline carries no penalty; the
// resolution simply adopts the superseding update's balances.
const disputePenaltyBps = 1000 // basis points out of 10,000

// StateUpdate is one signed balance snapshot in the channel's history,
// ordered by Sequence (§3).
type StateUpdate struct {
	Sequence  uint64
	Balances  map[common.MachineId]uint64
	Signatures map[common.MachineId]string
}

// Clone deep-copies a StateUpdate.
func (u StateUpdate) Clone() StateUpdate {
	nb := make(map[common.MachineId]uint64, len(u.Balances))
	for k, v := range u.Balances {
		nb[k] = v
	}
	ns := make(map[common.MachineId]string, len(u.Signatures))
	for k, v := range u.Signatures {
		ns[k] = v
	}
	return StateUpdate{Sequence: u.Sequence, Balances: nb, Signatures: ns}
}

func (u StateUpdate) sortedParticipants() []common.MachineId {
	keys := make([]common.MachineId, 0, len(u.Balances))
	for k := range u.Balances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Canonical implements machine.Canonicalizable: the exact byte sequence
// both participants sign over when countersigning a balance update.
func (u StateUpdate) Canonical() []byte {
	var out []byte
	out = append(out, machine.U64(u.Sequence)...)
	for _, p := range u.sortedParticipants() {
		out = append(out, []byte(p)...)
		out = append(out, machine.U64(u.Balances[p])...)
	}
	return out
}

// Hash is H(canonical(update)), the digest countersignatures are taken over.
func (u StateUpdate) Hash() common.Hash { return machine.HashBytes(u.Canonical()) }

// Dispute tracks an in-progress unilateral-closure challenge.
type Dispute struct {
	InitiatedBy common.MachineId
	AtSequence  uint64
	Deadline    time.Time
	Resolved    bool
}

// Total sums a balance map, used for the channel-wide conservation check.
func Total(balances map[common.MachineId]uint64) uint64 {
	var sum uint64
	for _, v := range balances {
		sum += v
	}
	return sum
}

// State is ChannelState of §3.
type State struct {
	machine.BaseState
	Participants  []common.MachineId
	Balances      map[common.MachineId]uint64
	Sequence      uint64
	Status        Status
	DisputePeriod time.Duration
	Updates       []StateUpdate
	Dispute       *Dispute
	totalFunds    uint64
}

// NewState opens a channel between participants with the given initial
// balances and dispute window.
func NewState(participants []common.MachineId, initial map[common.MachineId]uint64, disputePeriod time.Duration) *State {
	balances := make(map[common.MachineId]uint64, len(initial))
	for k, v := range initial {
		balances[k] = v
	}
	ps := append([]common.MachineId(nil), participants...)
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	return &State{
		BaseState:     machine.BaseState{LatestHash: common.ZeroHash, Data: map[string]interface{}{}, Nonces: map[common.MachineId]uint64{}},
		Participants:  ps,
		Balances:      balances,
		Sequence:      0,
		Status:        StatusOpen,
		DisputePeriod: disputePeriod,
		totalFunds:    Total(balances),
	}
}

func (s *State) Base() *machine.BaseState { return &s.BaseState }

func (s *State) Clone() machine.State {
	ns := &State{
		BaseState:     s.BaseState.CloneBase(),
		Participants:  append([]common.MachineId(nil), s.Participants...),
		Sequence:      s.Sequence,
		Status:        s.Status,
		DisputePeriod: s.DisputePeriod,
		totalFunds:    s.totalFunds,
	}
	ns.Balances = make(map[common.MachineId]uint64, len(s.Balances))
	for k, v := range s.Balances {
		ns.Balances[k] = v
	}
	ns.Updates = make([]StateUpdate, len(s.Updates))
	for i, u := range s.Updates {
		ns.Updates[i] = u.Clone()
	}
	if s.Dispute != nil {
		d := *s.Dispute
		ns.Dispute = &d
	}
	return ns
}

func (s *State) CanonicalExtra() []byte {
	var out []byte
	for _, p := range s.Participants {
		out = append(out, []byte(p)...)
	}
	out = append(out, []byte(s.Status)...)
	out = append(out, machine.U64(s.Sequence)...)
	out = append(out, machine.U64(s.totalFunds)...)

	keys := make([]common.MachineId, 0, len(s.Balances))
	for k := range s.Balances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		out = append(out, []byte(k)...)
		out = append(out, machine.U64(s.Balances[k])...)
	}
	if s.Dispute != nil {
		out = append(out, []byte(s.Dispute.InitiatedBy)...)
		out = append(out, machine.U64(s.Dispute.AtSequence)...)
		out = append(out, machine.U64(uint64(s.Dispute.Deadline.UnixNano()))...)
	}
	return out
}
