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

package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adimov-eth/xln/common"
)

func TestMemoryFeedStatesReturnsLatestPerNode(t *testing.T) {
	f := NewMemoryFeed(0)
	f.PushState("node-a", NodeState{Height: 1}, nil)
	f.PushState("node-a", NodeState{Height: 2}, nil)
	f.PushState("node-b", NodeState{Height: 5}, nil)

	states := f.States()
	assert.Equal(t, uint64(2), states[common.MachineId("node-a")].Height)
	assert.Equal(t, uint64(5), states[common.MachineId("node-b")].Height)
}

func TestMemoryFeedLogTailIsBounded(t *testing.T) {
	f := NewMemoryFeed(2)
	f.PushLog(LogEntry{Message: "one"})
	f.PushLog(LogEntry{Message: "two"})
	f.PushLog(LogEntry{Message: "three"})

	logs := f.Logs()
	assert.Len(t, logs, 2)
	assert.Equal(t, "two", logs[0].Message)
	assert.Equal(t, "three", logs[1].Message)
}

func TestNoopFeedDiscardsEverything(t *testing.T) {
	var f Feed = NoopFeed{}
	assert.NotPanics(t, func() {
		f.PushState("x", NodeState{}, nil)
		f.PushLog(LogEntry{})
	})
}
