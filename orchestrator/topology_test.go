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

package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/eventbus"
)

func ids(names ...string) []common.MachineId {
	out := make([]common.MachineId, len(names))
	for i, n := range names {
		out[i] = common.MachineId(n)
	}
	return out
}

func TestGenerateTopologyMeshConnectsEveryPair(t *testing.T) {
	nodes := ids("a", "b", "c")
	topo := GenerateTopology(nodes, TopologyMesh)
	for _, id := range nodes {
		assert.Len(t, topo[id], 2, "every node must connect to the other two in a mesh")
	}
}

func TestGenerateTopologyRingConnectsNeighborsOnly(t *testing.T) {
	nodes := ids("a", "b", "c", "d")
	topo := GenerateTopology(nodes, TopologyRing)
	assert.ElementsMatch(t, []common.MachineId{"d", "b"}, topo["a"])
	assert.ElementsMatch(t, []common.MachineId{"a", "c"}, topo["b"])
}

func TestGenerateTopologyStarHubConnectsToAllOthersOnly(t *testing.T) {
	nodes := ids("hub", "a", "b", "c")
	topo := GenerateTopology(nodes, TopologyStar)
	assert.ElementsMatch(t, []common.MachineId{"a", "b", "c"}, topo["hub"])
	assert.Equal(t, []common.MachineId{"hub"}, topo["a"])
}

func TestNewRejectsSubSecondBlockInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlockProductionInterval = 500 * time.Millisecond
	cfg.Nodes = []NodeConfig{{ID: "n1", Type: RoleSigner, Host: "127.0.0.1", Port: 9001}}
	_, err := New(cfg, func() (eventbus.Message, bool) { return eventbus.Message{}, false })
	require.Error(t, err)
}
