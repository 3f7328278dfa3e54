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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheRejectsNilConfig(t *testing.T) {
	_, err := NewCache(nil)
	assert.Error(t, err)
}

func TestLRUCacheAddAndContains(t *testing.T) {
	c, err := NewCache(LRUConfig{CacheSize: 2})
	require.NoError(t, err)

	c.Add("a", 1)
	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUCacheEvictsOldestBeyondSize(t *testing.T) {
	c, err := NewCache(LRUConfig{CacheSize: 1})
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)

	assert.False(t, c.Contains("a"), "oldest entry should have been evicted")
	assert.True(t, c.Contains("b"))
	assert.Equal(t, 1, c.Len())
}

func TestARCCacheAddAndContains(t *testing.T) {
	c, err := NewCache(ARCConfig{CacheSize: 4})
	require.NoError(t, err)

	c.Add("x", "y")
	assert.True(t, c.Contains("x"))
	c.Purge()
	assert.False(t, c.Contains("x"))
}

func TestCacheScaleShrinksConfiguredSize(t *testing.T) {
	orig := CacheScale
	defer func() { CacheScale = orig }()

	CacheScale = 50
	c, err := NewCache(LRUConfig{CacheSize: 2})
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	assert.Equal(t, 1, c.Len(), "scaled size should floor to 1 entry")
}
