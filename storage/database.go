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

// Package storage is the opaque blob store of §6's Persistence contract:
// a selectable badger/leveldb backend behind one Database interface,
// grounded on the teacher's storage/database package (db_manager.go,
// badger_database.go, leveldb_database.go).
package storage

import (
	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/log"
)

var logger = log.NewModuleLogger(log.ModuleStorageDB)

// Backend selects which embedded engine a Database is backed by.
type Backend string

const (
	BackendBadger   Backend = "badger"
	BackendLevelDB  Backend = "leveldb"
	BackendInMemory Backend = "memory"
)

// Database is the minimal KV contract every backend satisfies, matching
// the teacher's database.Database interface shape.
type Database interface {
	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	NewBatch() Batch
	Close()
}

// Batch accumulates writes for a single atomic commit.
type Batch interface {
	Put(key, value []byte) error
	Write() error
	ValueSize() int
	Reset()
}

// Open constructs a Database of the requested backend rooted at dir
// (ignored for BackendInMemory).
func Open(backend Backend, dir string) (Database, error) {
	switch backend {
	case BackendBadger:
		return newBadgerDB(dir)
	case BackendLevelDB:
		return newLevelDB(dir)
	case BackendInMemory:
		return newMemoryDB(), nil
	default:
		return nil, errors.Errorf("storage: unknown backend %q", backend)
	}
}
