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

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/orchestrator"
)

func TestToOrchestratorConfigResolvesRolesAndDurations(t *testing.T) {
	fc := fileConfig{
		Nodes: []nodeSpec{
			{ID: "s1", Type: "signer", Host: "127.0.0.1", Port: 9001},
			{ID: "e1", Type: "entity", Host: "127.0.0.1", Port: 9002, Peers: []string{"s1"}},
		},
		Topology:                string(orchestrator.TopologyMesh),
		BlockProductionInterval: "2s",
		HealthCheckInterval:     "10s",
	}

	cfg, err := toOrchestratorConfig(fc)
	require.NoError(t, err)
	assert.Len(t, cfg.Nodes, 2)
	assert.Equal(t, orchestrator.RoleSigner, cfg.Nodes[0].Type)
	assert.Equal(t, orchestrator.RoleEntity, cfg.Nodes[1].Type)
	assert.Equal(t, 2*time.Second, cfg.BlockProductionInterval)
	assert.Equal(t, 10*time.Second, cfg.HealthCheckInterval)
}

func TestToOrchestratorConfigRejectsEmptyNodeList(t *testing.T) {
	_, err := toOrchestratorConfig(defaultFileConfig())
	require.Error(t, err)
}

func TestToOrchestratorConfigRejectsMissingID(t *testing.T) {
	fc := defaultFileConfig()
	fc.Nodes = []nodeSpec{{Type: "signer"}}
	_, err := toOrchestratorConfig(fc)
	require.Error(t, err)
}
