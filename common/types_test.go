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

func TestHashHexRoundTrips(t *testing.T) {
	h := BytesToHash([]byte("some-hash-material-ok"))
	parsed, err := HexToHash(h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestHexToHashAcceptsOptional0xPrefix(t *testing.T) {
	h := BytesToHash([]byte("x"))
	withPrefix, err := HexToHash("0x" + h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, withPrefix)
}

func TestHexToHashRejectsWrongLength(t *testing.T) {
	_, err := HexToHash("abcd")
	assert.Error(t, err)
}

func TestZeroHashIsZero(t *testing.T) {
	assert.True(t, ZeroHash.IsZero())
	assert.False(t, BytesToHash([]byte("nonzero")).IsZero())
}

func TestBytesToHashRightAlignsShortInput(t *testing.T) {
	h := BytesToHash([]byte{0x01, 0x02})
	assert.Equal(t, byte(0x01), h[HashLength-2])
	assert.Equal(t, byte(0x02), h[HashLength-1])
	for i := 0; i < HashLength-2; i++ {
		assert.Equal(t, byte(0), h[i])
	}
}

func TestHexToBytesBytesToHexRoundTrip(t *testing.T) {
	b := []byte{0xde, 0xad, 0xbe, 0xef}
	hexStr := BytesToHex(b)
	back, err := HexToBytes(hexStr)
	require.NoError(t, err)
	assert.Equal(t, b, back)
}

func TestBroadcastIsDistinctSentinel(t *testing.T) {
	assert.Equal(t, MachineId("*"), Broadcast)
	assert.NotEqual(t, Broadcast, MachineId("alice"))
}
