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

// Package params holds protocol-wide constants, mirroring the teacher's
// params package of network-tunable defaults.
package params

import "time"

const (
	// DefaultBlockInterval is ServerMachine's block-production cadence (§4.4).
	DefaultBlockInterval = 100 * time.Millisecond

	// DefaultSyncInterval is ServerMachine's child-sync cadence (§4.4).
	DefaultSyncInterval = 5 * time.Second

	// DefaultMaxTransactionsPerBlock bounds a single produced block.
	DefaultMaxTransactionsPerBlock = 100

	// DefaultMempoolSize bounds a MachineCore's pending-transaction queue.
	DefaultMempoolSize = 4096

	// DefaultDisputePeriod is the channel dispute window (§4.7) absent an
	// explicit OPEN_CHANNEL override.
	DefaultDisputePeriod = 24 * time.Hour

	// DefaultProposalLifetime is how long an entity Proposal stays ACTIVE
	// before the lazy expiry sweep flips it to EXPIRED (§4.6, §8).
	DefaultProposalLifetime = 24 * time.Hour

	// DefaultGasPrice is the gas price recorded on every mempool entry.
	// Gas is carried as a field throughout (§6) but never enforced as a
	// spending limit — economic gas metering is an explicit non-goal.
	DefaultGasPrice = 1

	// DefaultPingInterval/DefaultPongTimeout govern gossip peer liveness
	// (§4.9).
	DefaultPingInterval = 30 * time.Second
	DefaultPongTimeout  = 5 * time.Second

	// DefaultBlockLRUSize bounds the gossip layer's seen-block dedup cache.
	DefaultBlockLRUSize = 4096
)
