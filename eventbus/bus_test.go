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

package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/common"
)

func TestRegisterTwiceForSameIDErrors(t *testing.T) {
	bus := New()
	_, err := bus.Register("a")
	require.NoError(t, err)
	_, err = bus.Register("a")
	assert.Error(t, err)
}

func TestDispatchDeliversToRegisteredRecipient(t *testing.T) {
	bus := New()
	_, err := bus.Register("a")
	require.NoError(t, err)

	bus.Dispatch(NewMessage(KindCommand, struct{}{}, "sender", "a"), "SOME_EVENT")
	assert.Equal(t, 1, bus.Mailbox("a").Len())
}

func TestDispatchToUnknownRecipientIsNotAnError(t *testing.T) {
	bus := New()
	assert.NotPanics(t, func() {
		bus.Dispatch(NewMessage(KindCommand, struct{}{}, "sender", "ghost"), "SOME_EVENT")
	})
}

func TestDispatchBroadcastReachesEveryMailbox(t *testing.T) {
	bus := New()
	_, err := bus.Register("a")
	require.NoError(t, err)
	_, err = bus.Register("b")
	require.NoError(t, err)

	bus.Dispatch(NewMessage(KindEvent, struct{}{}, "sender", common.Broadcast), "SOME_EVENT")
	assert.Equal(t, 1, bus.Mailbox("a").Len())
	assert.Equal(t, 1, bus.Mailbox("b").Len())
}

func TestSubscriberInvokedOnMatchingEventType(t *testing.T) {
	bus := New()
	var got MachineEvent
	count := 0
	bus.Subscribe("MATCHED", func(e MachineEvent) {
		got = e
		count++
	})

	bus.Dispatch(NewMessage(KindEvent, "payload", "sender", "nobody"), "MATCHED")
	bus.Dispatch(NewMessage(KindEvent, "payload", "sender", "nobody"), "OTHER")

	assert.Equal(t, 1, count)
	assert.Equal(t, "payload", got.Payload)
}

func TestUnsubscribeStopsFutureDelivery(t *testing.T) {
	bus := New()
	count := 0
	handle := bus.Subscribe("EVT", func(e MachineEvent) { count++ })
	bus.Unsubscribe(handle)

	bus.Dispatch(NewMessage(KindEvent, nil, "sender", "nobody"), "EVT")
	assert.Equal(t, 0, count)
}

func TestSubscriberPanicDoesNotCrashDispatch(t *testing.T) {
	bus := New()
	bus.Subscribe("EVT", func(e MachineEvent) { panic("boom") })
	assert.NotPanics(t, func() {
		bus.Dispatch(NewMessage(KindEvent, nil, "sender", "nobody"), "EVT")
	})
}

func TestDrainRespectsMaxAndPreservesOrder(t *testing.T) {
	bus := New()
	mb, err := bus.Register("a")
	require.NoError(t, err)

	bus.Dispatch(NewMessage(KindCommand, 1, "s", "a"), "E")
	bus.Dispatch(NewMessage(KindCommand, 2, "s", "a"), "E")
	bus.Dispatch(NewMessage(KindCommand, 3, "s", "a"), "E")

	first := mb.Drain(2)
	require.Len(t, first, 2)
	assert.Equal(t, 1, first[0].Payload)
	assert.Equal(t, 2, first[1].Payload)
	assert.Equal(t, 1, mb.Len())
}
