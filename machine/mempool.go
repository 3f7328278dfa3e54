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

	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/eventbus"
)

// MempoolEntry lives in pending or processing, never both (§3).
type MempoolEntry struct {
	Transaction eventbus.Message
	ReceivedAt  time.Time
	GasPrice    uint64
	Nonce       uint64
}

// MempoolState holds the two mappings and the size invariant of §3:
// currentSize = |pending| + |processing| <= maxSize.
type MempoolState struct {
	order      []string // pending tx ids, arrival order
	pending    map[string]MempoolEntry
	processing map[string]MempoolEntry
	maxSize    int
}

// NewMempool constructs an empty mempool bounded at maxSize entries.
func NewMempool(maxSize int) *MempoolState {
	return &MempoolState{
		pending:    make(map[string]MempoolEntry),
		processing: make(map[string]MempoolEntry),
		maxSize:    maxSize,
	}
}

// CurrentSize is |pending| + |processing|.
func (m *MempoolState) CurrentSize() int { return len(m.pending) + len(m.processing) }

// Add appends tx to pending with a default gas price and per-event nonce,
// per §4.4. It rejects once currentSize would exceed maxSize.
func (m *MempoolState) Add(tx eventbus.Message, gasPrice, nonce uint64) error {
	if m.CurrentSize() >= m.maxSize {
		return errors.New("machine: mempool full")
	}
	if _, exists := m.pending[tx.ID]; exists {
		return errors.Errorf("machine: transaction %s already pending", tx.ID)
	}
	if _, exists := m.processing[tx.ID]; exists {
		return errors.Errorf("machine: transaction %s already processing", tx.ID)
	}
	m.pending[tx.ID] = MempoolEntry{Transaction: tx, ReceivedAt: time.Now(), GasPrice: gasPrice, Nonce: nonce}
	m.order = append(m.order, tx.ID)
	return nil
}

// DrainPending moves up to max pending entries (all, if max<=0) into
// processing, in arrival order, and returns them.
func (m *MempoolState) DrainPending(max int) []MempoolEntry {
	if max <= 0 || max > len(m.order) {
		max = len(m.order)
	}
	ids := m.order[:max]
	m.order = m.order[max:]

	out := make([]MempoolEntry, 0, len(ids))
	for _, id := range ids {
		e := m.pending[id]
		delete(m.pending, id)
		m.processing[id] = e
		out = append(out, e)
	}
	return out
}

// Requeue moves entries back from processing to the front of pending,
// used when a produceBlock attempt aborts entirely.
func (m *MempoolState) Requeue(entries []MempoolEntry) {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Transaction.ID)
	}
	m.order = append(ids, m.order...)
	for _, e := range entries {
		delete(m.processing, e.Transaction.ID)
		m.pending[e.Transaction.ID] = e
	}
}

// Finalize permanently removes entries (successfully committed or
// rejected by the producer) from processing.
func (m *MempoolState) Finalize(ids []string) {
	for _, id := range ids {
		delete(m.processing, id)
	}
}

// Len reports the number of pending entries (arrival order preserved).
func (m *MempoolState) Len() int { return len(m.pending) }
