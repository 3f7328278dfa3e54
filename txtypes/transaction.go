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

// Package txtypes is the one transaction envelope this system moves between
// signer and entity: a plain value transfer with an attached nonce and
// opaque payload, gathering partial signatures toward an entity's weighted
// threshold (§4.5, §4.6). It deliberately does not carry klaytn's
// multi-type transaction-kind byte or fee-delegation fields — there is only
// ever this one kind of transaction in this system.
package txtypes

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/adimov-eth/xln/common"
)

// Transaction is the unsigned payload a signer registers and an entity's
// proposal ultimately executes.
type Transaction struct {
	From   common.MachineId
	To     common.MachineId
	Amount uint64
	Nonce  uint64
	Data   []byte
}

// Canonical encodes t deterministically: fixed-width fields in a fixed
// order, matching the big-endian convention machine.U64 uses for every
// other canonicalized value in this codebase.
func (t Transaction) Canonical() []byte {
	var out []byte
	out = append(out, []byte(t.From)...)
	out = append(out, byte(0))
	out = append(out, []byte(t.To)...)
	out = append(out, byte(0))
	out = append(out, u64(t.Amount)...)
	out = append(out, u64(t.Nonce)...)
	out = append(out, t.Data...)
	return out
}

// Hash is the SHA-256 digest of t's canonical encoding, the same hash
// construction machine.HashBytes uses for block and state roots — the
// value both SignTransactionCmd and the entity proposal ledger key
// transactions by.
func (t Transaction) Hash() common.Hash {
	return sha256.Sum256(t.Canonical())
}

func u64(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}

// SignedTransaction pairs a Transaction with the partial signatures
// gathered toward its owning entity's weighted threshold, keyed by the
// signer's public-key hex.
type SignedTransaction struct {
	Tx                Transaction
	PartialSignatures map[string]string
}

// NewSigned wraps tx with an empty signature set.
func NewSigned(tx Transaction) SignedTransaction {
	return SignedTransaction{Tx: tx, PartialSignatures: map[string]string{}}
}

// Clone deep-copies a SignedTransaction.
func (s SignedTransaction) Clone() SignedTransaction {
	sigs := make(map[string]string, len(s.PartialSignatures))
	for k, v := range s.PartialSignatures {
		sigs[k] = v
	}
	return SignedTransaction{Tx: s.Tx, PartialSignatures: sigs}
}

// SortedSignerKeys returns the public-key-hex keys of PartialSignatures in
// deterministic order, used only for canonicalization.
func (s SignedTransaction) SortedSignerKeys() []string {
	keys := make([]string, 0, len(s.PartialSignatures))
	for k := range s.PartialSignatures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
