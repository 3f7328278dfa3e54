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

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/common"
)

func newTestStore(t *testing.T) *BlockStore {
	t.Helper()
	db, err := Open(BackendInMemory, "")
	require.NoError(t, err)
	return NewBlockStore(db)
}

func TestPutGetBlockRoundTrips(t *testing.T) {
	store := newTestStore(t)
	hash := common.BytesToHash([]byte("block-1"))
	require.NoError(t, store.PutBlock(hash, []byte("encoded block")))

	got, err := store.GetBlock(hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("encoded block"), got)
}

func TestHasBlockReflectsPresence(t *testing.T) {
	store := newTestStore(t)
	hash := common.BytesToHash([]byte("block-1"))

	has, err := store.HasBlock(hash)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.PutBlock(hash, []byte("x")))
	has, err = store.HasBlock(hash)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGetBlockErrorsOnMissingHash(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetBlock(common.BytesToHash([]byte("ghost")))
	assert.Error(t, err)
}

func TestLatestStatePointerOverwrites(t *testing.T) {
	store := newTestStore(t)
	id := common.MachineId("entity1")
	first := common.BytesToHash([]byte("state-a"))
	second := common.BytesToHash([]byte("state-b"))

	require.NoError(t, store.PutLatestState(id, first))
	require.NoError(t, store.PutLatestState(id, second))

	got, err := store.GetLatestState(id)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestBlockAndStateKeysDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	hash := common.BytesToHash([]byte("shared"))
	require.NoError(t, store.PutBlock(hash, []byte("block-blob")))
	require.NoError(t, store.PutState(hash, []byte("state-blob")))

	block, err := store.GetBlock(hash)
	require.NoError(t, err)
	state, err := store.GetState(hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("block-blob"), block)
	assert.Equal(t, []byte("state-blob"), state)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(Backend("nonsense"), "")
	assert.Error(t, err)
}
