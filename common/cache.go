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

package common

import (
	"github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// CacheScale lets callers shrink every configured cache size uniformly
// (size = preset * CacheScale / 100), useful for running many nodes with
// reduced memory in a single test process.
var CacheScale = 100

// Cache is the bounded-eviction cache every dedup/hint cache in this
// module shares: gossip's seen-block set just needs Add/Contains/Purge
// over an opaque key.
type Cache interface {
	Add(key, value interface{}) (evicted bool)
	Get(key interface{}) (value interface{}, ok bool)
	Contains(key interface{}) bool
	Purge()
	Len() int
}

// Config builds a concrete Cache.
type Config interface {
	newCache() (Cache, error)
}

// NewCache constructs the cache described by cfg.
func NewCache(cfg Config) (Cache, error) {
	if cfg == nil {
		return nil, errors.New("common: cache config is nil")
	}
	return cfg.newCache()
}

// LRUConfig is a plain least-recently-used cache of CacheSize entries.
type LRUConfig struct {
	CacheSize int
}

func (c LRUConfig) newCache() (Cache, error) {
	size := scaledSize(c.CacheSize)
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &lruCache{lru: l}, nil
}

// ARCConfig is an adaptive-replacement cache, which the teacher's dedup
// caches favor over plain LRU when the workload mixes recency and
// frequency (e.g. block hashes seen both just-now and long-ago-and-again
// via a slow peer).
type ARCConfig struct {
	CacheSize int
}

func (c ARCConfig) newCache() (Cache, error) {
	size := scaledSize(c.CacheSize)
	a, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &arcCache{arc: a}, nil
}

func scaledSize(base int) int {
	size := base * CacheScale / 100
	if size < 1 {
		size = 1
	}
	return size
}

type lruCache struct{ lru *lru.Cache }

func (c *lruCache) Add(key, value interface{}) bool        { return c.lru.Add(key, value) }
func (c *lruCache) Get(key interface{}) (interface{}, bool) { return c.lru.Get(key) }
func (c *lruCache) Contains(key interface{}) bool           { return c.lru.Contains(key) }
func (c *lruCache) Purge()                                  { c.lru.Purge() }
func (c *lruCache) Len() int                                { return c.lru.Len() }

type arcCache struct{ arc *lru.ARCCache }

func (c *arcCache) Add(key, value interface{}) bool {
	c.arc.Add(key, value)
	return false
}
func (c *arcCache) Get(key interface{}) (interface{}, bool) { return c.arc.Get(key) }
func (c *arcCache) Contains(key interface{}) bool           { return c.arc.Contains(key) }
func (c *arcCache) Purge()                                  { c.arc.Purge() }
func (c *arcCache) Len() int                                { return c.arc.Len() }
