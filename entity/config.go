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

// Package entity is the multisig account submachine: it runs the
// threshold-weighted proposal engine that gates transactions, config
// updates and channel lifecycle commands (§4.6). The weighted-quorum
// arithmetic here is adapted from the teacher's
// blockchain/types/accountkey.AccountKeyWeightedMultiSig (threshold/weight
// invariants) and consensus/istanbul/validator.weighted (quorum counting).
package entity

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/machine"
)

// Config is EntityConfig of §3: threshold>0, every weight>0,
// threshold<=Σweights, signers non-empty — exactly the invariants the
// teacher's AccountKeyWeightedMultiSig.Init enforces for its own weighted
// key set.
type Config struct {
	Threshold uint32
	Signers   map[string]uint32 // publicKeyHex -> weight
	Admins    map[string]bool
}

// Validate checks the invariants of §3. A zero-value Config or one with
// any zero weight, an empty signer set, or an unreachable threshold is
// rejected — mirroring AccountKeyWeightedMultiSig.Init's ErrZeroKeyWeight /
// ErrZeroLength / ErrUnsatisfiableThreshold.
func (c Config) Validate() error {
	if len(c.Signers) == 0 {
		return errors.New("entity: config has no signers")
	}
	if c.Threshold == 0 {
		return errors.New("entity: threshold must be > 0")
	}
	var sum uint32
	for key, weight := range c.Signers {
		if weight == 0 {
			return errors.Errorf("entity: signer %s has zero weight", key)
		}
		prev := sum
		sum += weight
		if sum < prev {
			return errors.New("entity: weighted sum overflow")
		}
	}
	if sum < c.Threshold {
		return errors.Errorf("entity: threshold %d unsatisfiable by weighted sum %d", c.Threshold, sum)
	}
	return nil
}

// WeightOf is the weight of key, or 0 if key is not a current signer.
func (c Config) WeightOf(key string) uint32 { return c.Signers[key] }

// WeightedSum sums the weight of every key in approvals that is also a
// current signer, used by both proposal-approval and transaction-signature
// quorum counting (the two "diverging implementations" §9 unifies).
func (c Config) WeightedSum(approved map[string]bool) uint32 {
	var sum uint32
	for key, ok := range approved {
		if !ok {
			continue
		}
		sum += c.Signers[key]
	}
	return sum
}

// ThresholdMet reports whether approved's weighted sum reaches Threshold.
func (c Config) ThresholdMet(approved map[string]bool) bool {
	return c.WeightedSum(approved) >= c.Threshold
}

// Clone deep-copies a Config.
func (c Config) Clone() Config {
	signers := make(map[string]uint32, len(c.Signers))
	for k, v := range c.Signers {
		signers[k] = v
	}
	var admins map[string]bool
	if c.Admins != nil {
		admins = make(map[string]bool, len(c.Admins))
		for k, v := range c.Admins {
			admins[k] = v
		}
	}
	return Config{Threshold: c.Threshold, Signers: signers, Admins: admins}
}

// IsAdmin reports whether key is listed in Admins.
func (c Config) IsAdmin(key string) bool { return c.Admins != nil && c.Admins[key] }

// Canonical implements machine.Canonicalizable: sorted signer keys,
// fixed-width weight and threshold.
func (c Config) Canonical() []byte {
	var out []byte
	out = append(out, machine.U64(uint64(c.Threshold))...)

	keys := make([]string, 0, len(c.Signers))
	for k := range c.Signers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, []byte(k)...)
		out = append(out, machine.U64(uint64(c.Signers[k]))...)
	}

	adminKeys := make([]string, 0, len(c.Admins))
	for k := range c.Admins {
		adminKeys = append(adminKeys, k)
	}
	sort.Strings(adminKeys)
	for _, k := range adminKeys {
		out = append(out, []byte(k)...)
	}
	return out
}
