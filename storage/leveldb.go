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
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
)

type levelDB struct {
	dir string
	db  *leveldb.DB
}

func newLevelDB(dir string) (*levelDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if _, corrupted := err.(*ldberrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage: opening leveldb")
	}
	logger.Info("leveldb database opened", "dir", dir)
	return &levelDB{dir: dir, db: db}, nil
}

func (l *levelDB) Put(key, value []byte) error { return l.db.Put(key, value, nil) }

func (l *levelDB) Has(key []byte) (bool, error) { return l.db.Has(key, nil) }

func (l *levelDB) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err == ldberrors.ErrNotFound {
		return nil, errors.Wrap(err, "storage: key not found")
	}
	return v, err
}

func (l *levelDB) Delete(key []byte) error { return l.db.Delete(key, nil) }

func (l *levelDB) Close() {
	if err := l.db.Close(); err != nil {
		logger.Error("failed to close leveldb database", "err", err)
		return
	}
	logger.Info("leveldb database closed", "dir", l.dir)
}

func (l *levelDB) NewBatch() Batch {
	return &levelDBBatch{db: l.db, b: new(leveldb.Batch)}
}

type levelDBBatch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (lb *levelDBBatch) Put(key, value []byte) error {
	lb.b.Put(key, value)
	lb.size += len(value)
	return nil
}

func (lb *levelDBBatch) Write() error   { return lb.db.Write(lb.b, nil) }
func (lb *levelDBBatch) ValueSize() int { return lb.size }
func (lb *levelDBBatch) Reset() {
	lb.b.Reset()
	lb.size = 0
}
