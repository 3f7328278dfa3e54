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

// Package common holds the wire-level value types shared by every layer of
// the hierarchy: the machine identifier, the fixed-length digest, and their
// hex encodings.
package common

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashLength is the length in bytes of a digest (SHA-256).
const HashLength = 32

// MachineId is an opaque, process-unique identifier for an actor submachine
// (a Server, Signer, Entity or Channel).
type MachineId string

// Broadcast is the recipient sentinel used by MachineEvent to mean "every
// registered machine and type subscriber".
const Broadcast MachineId = "*"

func (m MachineId) String() string { return string(m) }

// Hash is a fixed-length digest, hex-encoded at external boundaries.
type Hash [HashLength]byte

// ZeroHash is the genesis sentinel: the parentHash of block #1.
var ZeroHash = Hash{}

// BytesToHash converts b into a Hash, keeping the last HashLength bytes of
// a longer input and left-padding a shorter one with zeros.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a 0x-prefixed or bare hex string into a Hash.
func HexToHash(s string) (Hash, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("common: invalid hash hex %q: %w", s, err)
	}
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("common: invalid hash length %d, want %d", len(b), HashLength)
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// Hex returns the lowercase, unprefixed 64-char hex encoding of h.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// Bytes returns a copy of the underlying digest bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// IsZero reports whether h is the genesis sentinel.
func (h Hash) IsZero() bool { return h == ZeroHash }

// PubKeyLength is the length in bytes of a compressed secp256k1 public key.
const PubKeyLength = 33

// SigLength is the length in bytes of the r||s signature (64 bytes = 128 hex
// chars).
const SigLength = 64

// HexToBytes is a convenience wrapper shared by every hex-at-the-boundary
// field (signatures, public keys).
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}

// BytesToHex lowercases and strips no prefix, per §6 wire format.
func BytesToHex(b []byte) string { return hex.EncodeToString(b) }
