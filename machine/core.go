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
	"github.com/adimov-eth/xln/log"
	"github.com/adimov-eth/xln/xlnerrors"
)

var logger = log.NewModuleLogger(log.ModuleMachine)

// ApplyFunc is handleEventLocal: a pure-ish state transition attempting to
// apply tx to state, returning the new state or an error.
type ApplyFunc func(state State, tx eventbus.Message) (State, error)

// TransitionCheck is an additional, machine-specific invariant verified
// between the pre- and post-states of an accepted block (e.g. "blockHeight
// strictly increases and no submachine vanishes" for ServerMachine).
type TransitionCheck func(from, to State) error

// Core is the shared produce/receive/verify/reconstruct pipeline reused by
// every block-producing submachine (§4.3).
type Core struct {
	SelfID  common.MachineId
	Blocks  []*Block
	Mempool *MempoolState
	Current State
	Version uint64

	Apply            ApplyFunc
	VerifyTransition TransitionCheck
}

// NewCore constructs a Core seeded with an initial state and mempool size.
func NewCore(selfID common.MachineId, initial State, mempoolSize int, apply ApplyFunc, check TransitionCheck) *Core {
	return &Core{
		SelfID:           selfID,
		Mempool:          NewMempool(mempoolSize),
		Current:          initial,
		Apply:            apply,
		VerifyTransition: check,
	}
}

// ProduceBlock drains up to maxTx pending mempool entries (0 means all),
// applies them sequentially to an ephemeral copy of Current, skipping any
// that fail ("produce mode"), and on success commits the block and the
// ephemeral state. On any overall failure (e.g. nothing survived), Current
// is unchanged and the drained entries are requeued.
func (c *Core) ProduceBlock(maxTx int) (*Block, error) {
	entries := c.Mempool.DrainPending(maxTx)
	if len(entries) == 0 {
		return nil, xlnerrors.ErrNoTransactions
	}

	ephemeral := c.Current.Clone()
	included := make([]eventbus.Message, 0, len(entries))
	committedIDs := make([]string, 0, len(entries))

	for _, e := range entries {
		next, err := c.Apply(ephemeral, e.Transaction)
		if err != nil {
			logger.Debug("produce: skipping failed transaction", "machine", c.SelfID, "tx", e.Transaction.ID, "err", err)
			committedIDs = append(committedIDs, e.Transaction.ID) // producer rejects it outright
			continue
		}
		ephemeral = next
		included = append(included, e.Transaction)
		committedIDs = append(committedIDs, e.Transaction.ID)
	}

	if len(included) == 0 {
		c.Mempool.Requeue(entries)
		return nil, xlnerrors.ErrNoTransactions
	}

	ephemeral.Base().BlockHeight = c.Current.Base().BlockHeight + 1
	header := BlockHeader{
		BlockNumber:      ephemeral.Base().BlockHeight,
		ParentHash:       c.Current.Base().LatestHash,
		Proposer:         c.SelfID,
		Timestamp:        time.Now(),
		TransactionsRoot: HashTransactions(included),
		StateRoot:        HashState(ephemeral),
	}
	block := &Block{Header: header, Transactions: included, Signatures: map[common.MachineId]string{}}

	ephemeral.Base().StateRoot = header.StateRoot
	ephemeral.Base().LatestHash = block.Hash()

	c.Current = ephemeral
	c.Blocks = append(c.Blocks, block)
	c.Mempool.Finalize(committedIDs)
	c.Version++

	return block, nil
}

// VerifyBlock runs the structural + replay checks of §4.3 in abort mode:
// the first transaction that fails to apply rejects the whole block. It
// does not mutate Core; it returns the resulting ephemeral state so
// ReceiveBlock can commit it without recomputing.
func (c *Core) VerifyBlock(block *Block) (State, error) {
	if block == nil || block.Transactions == nil {
		return nil, xlnerrors.New(xlnerrors.KindInvalidState, "block missing header or transactions")
	}
	if block.Header.BlockNumber != c.Current.Base().BlockHeight+1 {
		return nil, xlnerrors.New(xlnerrors.KindInvalidState, "unexpected block number")
	}
	if HashTransactions(block.Transactions) != block.Header.TransactionsRoot {
		return nil, xlnerrors.New(xlnerrors.KindInvalidState, "transactionsRoot mismatch")
	}

	ephemeral := c.Current.Clone()
	for _, tx := range block.Transactions {
		next, err := c.Apply(ephemeral, tx)
		if err != nil {
			return nil, xlnerrors.Wrap(err, xlnerrors.KindInvalidState, "transaction replay aborted block verification")
		}
		ephemeral = next
	}

	ephemeral.Base().BlockHeight = block.Header.BlockNumber
	if HashState(ephemeral) != block.Header.StateRoot {
		return nil, xlnerrors.New(xlnerrors.KindInvalidState, "stateRoot mismatch")
	}
	return ephemeral, nil
}

// ReceiveBlock refuses to link if block.Header.ParentHash does not match
// the current tip, otherwise verifies and commits.
func (c *Core) ReceiveBlock(block *Block) error {
	if block.Header.ParentHash != c.Current.Base().LatestHash {
		return xlnerrors.ErrLinkMismatch
	}

	ephemeral, err := c.VerifyBlock(block)
	if err != nil {
		return err
	}

	if c.VerifyTransition != nil {
		if err := c.VerifyTransition(c.Current, ephemeral); err != nil {
			return err
		}
	}

	ephemeral.Base().StateRoot = block.Header.StateRoot
	ephemeral.Base().LatestHash = block.Hash()
	c.Current = ephemeral
	c.Blocks = append(c.Blocks, block)
	c.Version++
	return nil
}

// ReconstructState locates the block with digest == targetHash and
// replays its transactions onto a clone of the current state (§4.3 notes
// this is intended to evolve into full-history replay from genesis).
func (c *Core) ReconstructState(targetHash common.Hash) (State, error) {
	var found *Block
	for _, b := range c.Blocks {
		if b.Hash() == targetHash {
			found = b
			break
		}
	}
	if found == nil {
		return nil, xlnerrors.New(xlnerrors.KindInvalidState, "no block with requested hash")
	}

	replay := c.Current.Clone()
	for _, tx := range found.Transactions {
		next, err := c.Apply(replay, tx)
		if err != nil {
			return nil, xlnerrors.Wrap(err, xlnerrors.KindInternal, "reconstruction replay failed")
		}
		replay = next
	}
	return replay, nil
}

// Height returns the current block height.
func (c *Core) Height() uint64 { return c.Current.Base().BlockHeight }

// TipHash returns the current chain tip.
func (c *Core) TipHash() common.Hash { return c.Current.Base().LatestHash }
