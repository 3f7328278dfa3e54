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

// Package machine is the shared base reused by every concrete submachine
// (Server, Signer, Entity): block list, mempool, current state, version
// counter, and the produce/receive/verify/reconstruct pipeline (§4.3).
package machine

import (
	"github.com/adimov-eth/xln/common"
)

// BaseState is embedded by every concrete machine state
// (server.State, signer.State, entity.State).
type BaseState struct {
	BlockHeight uint64
	LatestHash  common.Hash
	StateRoot   common.Hash
	Data        map[string]interface{}
	Nonces      map[common.MachineId]uint64
	ParentID    *common.MachineId
	ChildIDs    []common.MachineId
}

// CloneBase deep-copies a BaseState for use inside a concrete state's
// Clone implementation.
func (b BaseState) CloneBase() BaseState {
	nb := b
	nb.Data = make(map[string]interface{}, len(b.Data))
	for k, v := range b.Data {
		nb.Data[k] = v
	}
	nb.Nonces = make(map[common.MachineId]uint64, len(b.Nonces))
	for k, v := range b.Nonces {
		nb.Nonces[k] = v
	}
	nb.ChildIDs = append([]common.MachineId(nil), b.ChildIDs...)
	if b.ParentID != nil {
		p := *b.ParentID
		nb.ParentID = &p
	}
	return nb
}

// State is implemented by every concrete machine state value type.
// Concrete types hold a BaseState by value and report it plus whatever
// machine-specific fields need to enter the canonical state-root digest.
type State interface {
	Base() *BaseState
	Clone() State
	// CanonicalExtra returns the canonical encoding of the fields specific
	// to the concrete machine (e.g. ServerState.Submachines,
	// EntityState.Config/Proposals). It is appended after the base state's
	// canonical encoding when computing the state root.
	CanonicalExtra() []byte
}

// NonceOf returns the last nonce recorded for sender (zero if none);
// callers compare tx.nonce against it and bump on accept.
func (b *BaseState) NonceOf(sender common.MachineId) uint64 {
	return b.Nonces[sender]
}

// BumpNonce records that sender's transaction at nonce n was accepted.
func (b *BaseState) BumpNonce(sender common.MachineId, n uint64) {
	if b.Nonces == nil {
		b.Nonces = make(map[common.MachineId]uint64)
	}
	b.Nonces[sender] = n
}
