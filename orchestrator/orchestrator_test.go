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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/dashboard"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/server"
)

func singleNodeConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Nodes: []NodeConfig{
			{ID: "solo", Type: RoleSigner, Host: "127.0.0.1", Port: 19001},
		},
		Topology:                TopologyMesh,
		BlockProductionInterval: time.Second,
		HealthCheckInterval:     time.Second,
	}
}

func TestTickProducesBlockAndPushesFeedState(t *testing.T) {
	var delivered int32
	source := func() (eventbus.Message, bool) {
		if atomic.AddInt32(&delivered, 1) > 1 {
			return eventbus.Message{}, false
		}
		return eventbus.NewMessage(eventbus.KindCommand, server.TransferCmd{From: "a", To: "b", Amount: 0}, "solo", "solo"), true
	}

	o, err := New(singleNodeConfig(t), source)
	require.NoError(t, err)

	feed := dashboard.NewMemoryFeed(16)
	o.SetFeed(feed)

	o.tick()

	states := feed.States()
	state, ok := states[common.MachineId("solo")]
	require.True(t, ok, "tick must push a state for the proposer")
	assert.Equal(t, uint64(1), state.Height)
}

func TestTickIsNoopWhenMempoolEmpty(t *testing.T) {
	o, err := New(singleNodeConfig(t), func() (eventbus.Message, bool) { return eventbus.Message{}, false })
	require.NoError(t, err)

	nm := o.Node("solo")
	require.NotNil(t, nm)
	heightBefore := nm.Server.Core().Height()

	o.tick()

	assert.Equal(t, heightBefore, nm.Server.Core().Height())
}
