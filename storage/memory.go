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
	"sync"

	"github.com/pkg/errors"
)

// memoryDB is an in-process Database, selected by BackendInMemory and used
// by tests; it satisfies the same contract as badger/leveldb.
type memoryDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemoryDB() *memoryDB {
	return &memoryDB{data: make(map[string][]byte)}
}

func (m *memoryDB) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *memoryDB) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memoryDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, errors.New("storage: key not found")
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *memoryDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memoryDB) Close() {}

func (m *memoryDB) NewBatch() Batch {
	return &memoryBatch{db: m}
}

type memoryBatchOp struct {
	key   []byte
	value []byte
}

type memoryBatch struct {
	db  *memoryDB
	ops []memoryBatchOp
	sz  int
}

func (b *memoryBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, memoryBatchOp{key: key, value: value})
	b.sz += len(value)
	return nil
}

func (b *memoryBatch) Write() error {
	for _, op := range b.ops {
		if err := b.db.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}

func (b *memoryBatch) ValueSize() int { return b.sz }

func (b *memoryBatch) Reset() {
	b.ops = nil
	b.sz = 0
}
