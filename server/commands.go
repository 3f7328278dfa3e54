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
	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/machine"
)

// Command payload types recognized by ServerMachine (§4.4).

type CreateSignerCmd struct {
	SignerID     common.MachineId
	PublicKeyHex string
}

type ProcessBlockCmd struct {
	Block *machine.Block
}

type SyncStateCmd struct {
	ChildID   common.MachineId
	KnownRoot common.Hash
}

type SyncChildStatesCmd struct{}

type UpdateChildStateCmd struct {
	ChildID common.MachineId
	NewRoot common.Hash
}

type TransferCmd struct {
	From   common.MachineId
	To     common.MachineId
	Amount uint64
}

// Event types emitted by ServerMachine onto the bus.
const (
	EventBlockProduced = "SERVER_BLOCK_PRODUCED"
	EventChildSynced   = "SERVER_CHILD_SYNCED"
)
