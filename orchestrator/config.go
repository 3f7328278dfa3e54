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

// Package orchestrator builds a network of NetworkManagers from a node
// config list, wires each one's gossip transport onto the chosen
// topology, and drives the aggregate block-production loop of §4.10 —
// generalized from the teacher's work/worker.go agent pool (register/
// unregister agents, a shared result channel, a single timer-driven
// commit loop) from "one chain, many mining agents" to "one network, one
// block per tick from a randomly chosen signer".
package orchestrator

import (
	"time"

	"github.com/adimov-eth/xln/common"
)

// Role is a node's place in the hierarchy, per §6's bootstrap contract.
type Role string

const (
	RoleSigner Role = "signer"
	RoleEntity Role = "entity"
	RoleOther  Role = "other"
)

// NodeConfig is one row of the bootstrap environment list of §6.
type NodeConfig struct {
	ID            common.MachineId
	Type          Role
	PrivateKeyHex string
	Peers         []common.MachineId
	Port          int
	Host          string
	IsBootstrap   bool
}

// Config tunes the orchestrator's timers.
type Config struct {
	Nodes                   []NodeConfig
	Topology                Topology
	BlockProductionInterval time.Duration
	HealthCheckInterval     time.Duration
}

// DefaultConfig matches §4.10's stated cadences.
func DefaultConfig() Config {
	return Config{
		Topology:                TopologyMesh,
		BlockProductionInterval: time.Second,
		HealthCheckInterval:     5 * time.Second,
	}
}
