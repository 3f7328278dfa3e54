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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMempoolAddRejectsDuplicateID(t *testing.T) {
	m := NewMempool(8)
	tx := incTx(1)
	require.NoError(t, m.Add(tx, 1, 1))
	assert.Error(t, m.Add(tx, 1, 2))
}

func TestMempoolAddRejectsOverCapacity(t *testing.T) {
	m := NewMempool(1)
	require.NoError(t, m.Add(incTx(1), 1, 1))
	assert.Error(t, m.Add(incTx(2), 1, 2))
}

func TestMempoolDrainPendingPreservesArrivalOrder(t *testing.T) {
	m := NewMempool(8)
	first, second := incTx(1), incTx(2)
	require.NoError(t, m.Add(first, 1, 1))
	require.NoError(t, m.Add(second, 1, 2))

	entries := m.DrainPending(0)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].Transaction.ID)
	assert.Equal(t, second.ID, entries[1].Transaction.ID)
	assert.Equal(t, 0, m.Len())
}

func TestMempoolRequeueRestoresToPendingFront(t *testing.T) {
	m := NewMempool(8)
	tx := incTx(1)
	require.NoError(t, m.Add(tx, 1, 1))
	entries := m.DrainPending(0)

	m.Requeue(entries)
	assert.Equal(t, 1, m.Len())

	redrained := m.DrainPending(0)
	require.Len(t, redrained, 1)
	assert.Equal(t, tx.ID, redrained[0].Transaction.ID)
}

func TestMempoolFinalizeRemovesFromProcessing(t *testing.T) {
	m := NewMempool(8)
	tx := incTx(1)
	require.NoError(t, m.Add(tx, 1, 1))
	entries := m.DrainPending(0)

	m.Finalize([]string{tx.ID})
	m.Requeue(entries) // no-op on the already-finalized id's processing slot
	assert.Equal(t, 0, m.CurrentSize()-m.Len())
}

func TestMempoolCurrentSizeCountsBothPendingAndProcessing(t *testing.T) {
	m := NewMempool(8)
	require.NoError(t, m.Add(incTx(1), 1, 1))
	require.NoError(t, m.Add(incTx(2), 1, 2))
	m.DrainPending(1)

	assert.Equal(t, 2, m.CurrentSize())
	assert.Equal(t, 1, m.Len())
}
