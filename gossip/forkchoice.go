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

package gossip

import "github.com/adimov-eth/xln/common"

// Decision is the outcome of applying the §4.9 fork-choice rule to a
// candidate block against the local tip.
type Decision int

const (
	// DecisionAccept means the block extends a known chain and should be
	// passed to ReceiveBlock.
	DecisionAccept Decision = iota
	// DecisionDefer means the parent is unknown; the caller should issue
	// REQUEST_BLOCK{parentHash} and retry once it arrives.
	DecisionDefer
)

// ChooseFork implements §4.9's simulator fork-choice rule: accept a block
// when its parentHash equals the current tip, or its blockNumber exceeds
// the current height and its parent is present locally, or its
// parentHash is the genesis sentinel and genesis is present. Otherwise
// defer and request the missing parent.
func ChooseFork(parentHash common.Hash, blockNumber uint64, currentTip common.Hash, currentHeight uint64, hasBlock func(common.Hash) bool) Decision {
	if parentHash == currentTip {
		return DecisionAccept
	}
	if blockNumber > currentHeight && hasBlock(parentHash) {
		return DecisionAccept
	}
	if parentHash.IsZero() && currentHeight == 0 {
		return DecisionAccept
	}
	return DecisionDefer
}
