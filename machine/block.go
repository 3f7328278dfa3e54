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

package machine

import (
	"time"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/eventbus"
)

// BlockHeader is the per-block commitment of §3.
type BlockHeader struct {
	BlockNumber      uint64
	ParentHash       common.Hash
	Proposer         common.MachineId
	Timestamp        time.Time
	TransactionsRoot common.Hash
	StateRoot        common.Hash
}

// Block is an ordered batch of transactions plus a committing header.
type Block struct {
	Header       BlockHeader
	Transactions []eventbus.Message
	Signatures   map[common.MachineId]string
}

// Hash is the block's own digest: parentHash of the next block, and the
// key under which receiveBlock/reconstructState locate it.
func (b *Block) Hash() common.Hash {
	var buf []byte
	buf = append(buf, U64(b.Header.BlockNumber)...)
	buf = append(buf, b.Header.ParentHash[:]...)
	buf = append(buf, []byte(b.Header.Proposer)...)
	buf = append(buf, U64(uint64(b.Header.Timestamp.UnixNano()))...)
	buf = append(buf, b.Header.TransactionsRoot[:]...)
	buf = append(buf, b.Header.StateRoot[:]...)
	return HashBytes(buf)
}
