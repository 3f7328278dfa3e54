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

package machine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"sort"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/eventbus"
)

// Canonicalizable is implemented by command/event payload types that carry
// values (weights, balances) whose canonical big-endian/sorted-map
// encoding matters for signing or hashing. Payloads that don't implement
// it fall back to canonical JSON (Go's encoding/json already sorts
// map[string]T keys), which is deterministic for the plain structs used
// elsewhere in this codebase.
type Canonicalizable interface {
	Canonical() []byte
}

// U64 encodes n as 8-byte big-endian, per §4.3's canonicalization mandate.
func U64(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}

// CanonicalPayload encodes an arbitrary command/event payload.
func CanonicalPayload(payload interface{}) []byte {
	if c, ok := payload.(Canonicalizable); ok {
		return c.Canonical()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return []byte{}
	}
	return b
}

// CanonicalMessage encodes a message envelope deterministically: string
// fields are zero-byte terminated, the timestamp is fixed-width, and the
// payload goes through CanonicalPayload.
func CanonicalMessage(m eventbus.Message) []byte {
	var out []byte
	out = append(out, []byte(m.ID)...)
	out = append(out, byte(0))
	out = append(out, []byte(m.Kind)...)
	out = append(out, byte(0))
	out = append(out, []byte(m.Sender)...)
	out = append(out, byte(0))
	out = append(out, []byte(m.Recipient)...)
	out = append(out, byte(0))
	out = append(out, U64(uint64(m.Timestamp.UnixNano()))...)
	out = append(out, CanonicalPayload(m.Payload)...)
	return out
}

// HashBytes is the single state-root/tx-root digest function: SHA-256 over
// the canonical byte sequence. Hashing is mandated verbatim by §6 ("SHA-256,
// 64 hex chars"); there is no third-party alternative to reach for here,
// crypto/sha256 is the spec itself.
func HashBytes(b []byte) common.Hash {
	return sha256.Sum256(b)
}

// CanonicalBase encodes a BaseState: sorted Data keys, sorted Nonces keys,
// ordered ChildIDs, fixed-width integers, per §4.3.
func CanonicalBase(b BaseState) []byte {
	var out []byte
	out = append(out, U64(b.BlockHeight)...)
	out = append(out, b.LatestHash[:]...)
	out = append(out, b.StateRoot[:]...)

	dataKeys := make([]string, 0, len(b.Data))
	for k := range b.Data {
		dataKeys = append(dataKeys, k)
	}
	sort.Strings(dataKeys)
	for _, k := range dataKeys {
		out = append(out, []byte(k)...)
		out = append(out, byte(0))
		out = append(out, CanonicalPayload(b.Data[k])...)
	}

	nonceKeys := make([]string, 0, len(b.Nonces))
	for k := range b.Nonces {
		nonceKeys = append(nonceKeys, string(k))
	}
	sort.Strings(nonceKeys)
	for _, k := range nonceKeys {
		out = append(out, []byte(k)...)
		out = append(out, U64(b.Nonces[common.MachineId(k)])...)
	}

	for _, c := range b.ChildIDs {
		out = append(out, []byte(c)...)
		out = append(out, byte(0))
	}
	if b.ParentID != nil {
		out = append(out, []byte(*b.ParentID)...)
	}
	return out
}

// HashState computes the state root of s: H(canonical(base) || canonical(extra)).
func HashState(s State) common.Hash {
	b := CanonicalBase(*s.Base())
	b = append(b, s.CanonicalExtra()...)
	return HashBytes(b)
}

// HashTransactions computes the transactionsRoot over an ordered list.
func HashTransactions(txs []eventbus.Message) common.Hash {
	var out []byte
	for _, tx := range txs {
		out = append(out, CanonicalMessage(tx)...)
	}
	return HashBytes(out)
}

// SortedStringKeys returns the keys of m in lexicographic order, for
// packages that canonicalize their own maps.
func SortedStringKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
