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

package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/eventbus"
)

type recordingHandler struct {
	mu       sync.Mutex
	handled  []string
	failOn   map[string]bool
}

func (h *recordingHandler) ID() common.MachineId { return "rec" }

func (h *recordingHandler) Handle(event eventbus.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event.ID)
	if h.failOn[event.ID] {
		return errors.New("handler: forced failure")
	}
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.handled...)
}

type recordingSink struct {
	mu      sync.Mutex
	reports int
}

func (s *recordingSink) Report(machineID common.MachineId, event eventbus.Message, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports++
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports
}

func testConfig() Config {
	return Config{PollInterval: time.Millisecond, MaxEventsPerTick: 8, ContinueOnError: true}
}

func TestRunnerDrainsEventsInArrivalOrder(t *testing.T) {
	bus := eventbus.New()
	mb, err := bus.Register("rec")
	require.NoError(t, err)

	first := eventbus.NewMessage(eventbus.KindCommand, 1, "s", "rec")
	second := eventbus.NewMessage(eventbus.KindCommand, 2, "s", "rec")
	bus.Dispatch(first, "E")
	bus.Dispatch(second, "E")

	handler := &recordingHandler{failOn: map[string]bool{}}
	runner := New(mb, handler, testConfig(), nil)
	runner.Start()

	require.Eventually(t, func() bool { return len(handler.seen()) == 2 }, time.Second, time.Millisecond)
	runner.Stop()

	assert.Equal(t, []string{first.ID, second.ID}, handler.seen())
}

func TestRunnerContinuesPastHandlerErrorsWhenConfigured(t *testing.T) {
	bus := eventbus.New()
	mb, err := bus.Register("rec")
	require.NoError(t, err)

	bad := eventbus.NewMessage(eventbus.KindCommand, 1, "s", "rec")
	good := eventbus.NewMessage(eventbus.KindCommand, 2, "s", "rec")
	bus.Dispatch(bad, "E")
	bus.Dispatch(good, "E")

	handler := &recordingHandler{failOn: map[string]bool{bad.ID: true}}
	sink := &recordingSink{}
	runner := New(mb, handler, testConfig(), sink)
	runner.Start()

	require.Eventually(t, func() bool { return len(handler.seen()) == 2 }, time.Second, time.Millisecond)
	runner.Stop()

	assert.Equal(t, 1, sink.count())
	assert.Nil(t, runner.FatalErr)
}

func TestRunnerStopsOnErrorWhenContinueOnErrorIsFalse(t *testing.T) {
	bus := eventbus.New()
	mb, err := bus.Register("rec")
	require.NoError(t, err)

	bad := eventbus.NewMessage(eventbus.KindCommand, 1, "s", "rec")
	trailing := eventbus.NewMessage(eventbus.KindCommand, 2, "s", "rec")
	bus.Dispatch(bad, "E")

	handler := &recordingHandler{failOn: map[string]bool{bad.ID: true}}
	cfg := testConfig()
	cfg.ContinueOnError = false
	runner := New(mb, handler, cfg, nil)
	runner.Start()

	require.Eventually(t, func() bool { return len(handler.seen()) == 1 }, time.Second, time.Millisecond)
	runner.Stop()

	require.Error(t, runner.FatalErr)
	bus.Dispatch(trailing, "E")
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, handler.seen(), 1, "a stopped runner must not drain events pushed afterward")
}

func TestStopBlocksUntilLoopExits(t *testing.T) {
	bus := eventbus.New()
	mb, err := bus.Register("rec")
	require.NoError(t, err)

	handler := &recordingHandler{failOn: map[string]bool{}}
	runner := New(mb, handler, testConfig(), nil)
	runner.Start()
	runner.Stop()

	select {
	case <-runner.doneCh:
	default:
		t.Fatal("doneCh must be closed once Stop returns")
	}
}
