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
	"github.com/adimov-eth/xln/common"
)

// Key namespacing of §6 Persistence: content-addressed blobs under
// "block:{hash}" / "state:{hash}", plus a mutable per-machine pointer
// under "state:latest:{machineId}" for the "mutable vs immutable
// snapshot" distinction §9 leaves open. Nothing in MachineCore reads or
// writes either key family: the block pipeline keeps its blocks in memory.
const (
	blockPrefix       = "block:"
	statePrefix       = "state:"
	stateLatestPrefix = "state:latest:"
)

func blockKey(hash common.Hash) []byte { return append([]byte(blockPrefix), hash[:]...) }
func stateKey(hash common.Hash) []byte { return append([]byte(statePrefix), hash[:]...) }
func stateLatestKey(id common.MachineId) []byte {
	return append([]byte(stateLatestPrefix), []byte(id)...)
}

// BlockStore wraps a Database with the block/state blob-store contract.
// Values are opaque: callers supply their own encoding (this module uses
// the canonical byte form already computed for hashing).
type BlockStore struct {
	db Database
}

// NewBlockStore wraps db.
func NewBlockStore(db Database) *BlockStore { return &BlockStore{db: db} }

// PutBlock stores raw (an encoded Block) under its content hash.
func (s *BlockStore) PutBlock(hash common.Hash, raw []byte) error {
	return s.db.Put(blockKey(hash), raw)
}

// GetBlock retrieves a previously stored block blob by hash.
func (s *BlockStore) GetBlock(hash common.Hash) ([]byte, error) {
	return s.db.Get(blockKey(hash))
}

// HasBlock reports whether hash is already stored.
func (s *BlockStore) HasBlock(hash common.Hash) (bool, error) {
	return s.db.Has(blockKey(hash))
}

// PutState stores a state snapshot blob under its content hash (the
// immutable path).
func (s *BlockStore) PutState(hash common.Hash, raw []byte) error {
	return s.db.Put(stateKey(hash), raw)
}

// GetState retrieves a previously stored state blob by hash.
func (s *BlockStore) GetState(hash common.Hash) ([]byte, error) {
	return s.db.Get(stateKey(hash))
}

// PutLatestState records id's most recent state hash at a mutable
// pointer, overwriting any prior value. Unused by the core pipeline today.
func (s *BlockStore) PutLatestState(id common.MachineId, hash common.Hash) error {
	return s.db.Put(stateLatestKey(id), hash[:])
}

// GetLatestState reads id's mutable latest-state pointer.
func (s *BlockStore) GetLatestState(id common.MachineId) (common.Hash, error) {
	raw, err := s.db.Get(stateLatestKey(id))
	if err != nil {
		return common.ZeroHash, err
	}
	return common.BytesToHash(raw), nil
}

// Close releases the underlying database.
func (s *BlockStore) Close() { s.db.Close() }
