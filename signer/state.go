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

// Package signer is the single-keypair participant submachine: it signs
// transactions referenced by hash from its pending set (§4.5).
package signer

import (
	"sort"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/txtypes"
)

// State extends machine.BaseState with the signer-specific fields of §3.
type State struct {
	machine.BaseState
	PublicKey           string
	PendingTransactions map[common.Hash]txtypes.SignedTransaction
}

// NewState constructs a genesis SignerState bound to pubKeyHex, which is
// immutable for the lifetime of the machine (§4.5's state transition rule).
func NewState(pubKeyHex string) *State {
	return &State{
		BaseState:           machine.BaseState{LatestHash: common.ZeroHash, Data: map[string]interface{}{}, Nonces: map[common.MachineId]uint64{}},
		PublicKey:           pubKeyHex,
		PendingTransactions: map[common.Hash]txtypes.SignedTransaction{},
	}
}

func (s *State) Base() *machine.BaseState { return &s.BaseState }

func (s *State) Clone() machine.State {
	ns := &State{BaseState: s.BaseState.CloneBase(), PublicKey: s.PublicKey}
	ns.PendingTransactions = make(map[common.Hash]txtypes.SignedTransaction, len(s.PendingTransactions))
	for k, v := range s.PendingTransactions {
		ns.PendingTransactions[k] = v.Clone()
	}
	return ns
}

func (s *State) CanonicalExtra() []byte {
	var out []byte
	out = append(out, []byte(s.PublicKey)...)

	keys := make([]common.Hash, 0, len(s.PendingTransactions))
	for k := range s.PendingTransactions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })

	for _, h := range keys {
		out = append(out, h[:]...)
		st := s.PendingTransactions[h]
		for _, pk := range st.SortedSignerKeys() {
			out = append(out, []byte(pk)...)
			out = append(out, []byte(st.PartialSignatures[pk])...)
		}
	}
	return out
}
