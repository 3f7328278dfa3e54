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

package entity

import (
	"sort"
	"time"

	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/txtypes"
)

// Type distinguishes what a Proposal, once approved, executes.
type Type string

const (
	TypeTransaction Type = "TRANSACTION"
	TypeConfigUpdate Type = "CONFIG_UPDATE"
)

// Status is the proposal lifecycle state of §4.6. ACTIVE is the only
// non-terminal status; every other status is a dead end.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExecuted  Status = "EXECUTED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
	StatusRejected  Status = "REJECTED"
)

// proposalLifetime is the 24h window of §8's expiry property.
const proposalLifetime = 24 * time.Hour

// Proposal is a pending multisig decision: either a transaction awaiting
// threshold approval or a config replacement awaiting the same.
//
// Approvals is keyed by the approving signer's public-key hex — by
// convention in this design, a signer's MachineId literally is its
// public-key hex, so the bus event's Sender doubles as the approval key
// without a separate identity lookup.
type Proposal struct {
	ID          string
	ProposerKey string
	Type        Type
	Tx          *txtypes.Transaction
	NewConfig   *Config
	Approvals   map[string]bool
	Status      Status
	CreatedAt   time.Time
	ExpiresAt   time.Time
	FinalizedAt *time.Time
}

// Clone deep-copies a Proposal.
func (p Proposal) Clone() Proposal {
	np := p
	np.Approvals = make(map[string]bool, len(p.Approvals))
	for k, v := range p.Approvals {
		np.Approvals[k] = v
	}
	if p.Tx != nil {
		tx := *p.Tx
		np.Tx = &tx
	}
	if p.NewConfig != nil {
		cfg := p.NewConfig.Clone()
		np.NewConfig = &cfg
	}
	if p.FinalizedAt != nil {
		t := *p.FinalizedAt
		np.FinalizedAt = &t
	}
	return np
}

// Expired reports whether an ACTIVE proposal's window has elapsed as of now.
func (p Proposal) Expired(now time.Time) bool {
	return p.Status == StatusActive && !now.Before(p.ExpiresAt)
}

// sortedApprovers returns approving keys in deterministic order, used only
// for canonicalization.
func (p Proposal) sortedApprovers() []string {
	keys := make([]string, 0, len(p.Approvals))
	for k, ok := range p.Approvals {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Canonical implements machine.Canonicalizable.
func (p Proposal) Canonical() []byte {
	var out []byte
	out = append(out, []byte(p.ID)...)
	out = append(out, []byte(p.ProposerKey)...)
	out = append(out, []byte(p.Type)...)
	out = append(out, []byte(p.Status)...)
	out = append(out, machine.U64(uint64(p.CreatedAt.UnixNano()))...)
	out = append(out, machine.U64(uint64(p.ExpiresAt.UnixNano()))...)
	if p.Tx != nil {
		out = append(out, p.Tx.Canonical()...)
	}
	if p.NewConfig != nil {
		out = append(out, p.NewConfig.Canonical()...)
	}
	for _, k := range p.sortedApprovers() {
		out = append(out, []byte(k)...)
	}
	return out
}
