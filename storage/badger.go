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
	"os"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
)

type badgerDB struct {
	dir string
	db  *badger.DB
}

func newBadgerDB(dir string) (*badgerDB, error) {
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, errors.Errorf("storage: %s is not a directory", dir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "storage: creating badger dir")
		}
	} else {
		return nil, errors.Wrap(err, "storage: statting badger dir")
	}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "storage: opening badger")
	}
	logger.Info("badger database opened", "dir", dir)
	return &badgerDB{dir: dir, db: db}, nil
}

func (b *badgerDB) Put(key, value []byte) error {
	txn := b.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set(key, value); err != nil {
		return err
	}
	return txn.Commit(nil)
}

func (b *badgerDB) Has(key []byte) (bool, error) {
	txn := b.db.NewTransaction(false)
	defer txn.Discard()
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	v, err := item.Value()
	return v != nil, err
}

func (b *badgerDB) Get(key []byte) ([]byte, error) {
	txn := b.db.NewTransaction(false)
	defer txn.Discard()
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value()
}

func (b *badgerDB) Delete(key []byte) error {
	txn := b.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Delete(key); err != nil {
		return err
	}
	return txn.Commit(nil)
}

func (b *badgerDB) Close() {
	if err := b.db.Close(); err != nil {
		logger.Error("failed to close badger database", "err", err)
		return
	}
	logger.Info("badger database closed", "dir", b.dir)
}

func (b *badgerDB) NewBatch() Batch {
	return &badgerBatch{db: b.db, txn: b.db.NewTransaction(true)}
}

type badgerBatch struct {
	db   *badger.DB
	txn  *badger.Txn
	size int
}

func (bb *badgerBatch) Put(key, value []byte) error {
	bb.size += len(value)
	return bb.txn.Set(key, value)
}

func (bb *badgerBatch) Write() error    { return bb.txn.Commit(nil) }
func (bb *badgerBatch) ValueSize() int  { return bb.size }
func (bb *badgerBatch) Reset() {
	bb.txn = bb.db.NewTransaction(true)
	bb.size = 0
}
