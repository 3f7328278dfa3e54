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
	"sync"

	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/log"
)

var logger = log.NewModuleLogger(log.ModuleEventBus)

// Mailbox is a FIFO queue owned by exactly one registered machine. It is
// safe for concurrent Push by the bus and concurrent Drain by the owning
// ActorRunner.
type Mailbox struct {
	mu    sync.Mutex
	queue []Message
}

func newMailbox() *Mailbox { return &Mailbox{} }

func (m *Mailbox) push(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, msg)
}

// Drain removes and returns up to max queued messages, in arrival order.
func (m *Mailbox) Drain(max int) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max <= 0 || max > len(m.queue) {
		max = len(m.queue)
	}
	out := m.queue[:max]
	m.queue = m.queue[max:]
	return out
}

// Len reports the number of queued-but-undrained messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Subscriber is invoked inline on the dispatching goroutine for every
// event of the subscribed EventType. Subscribers must not block or mutate
// machine state — they exist for telemetry and relay (§4.1).
type Subscriber func(event MachineEvent)

type subscription struct {
	id      uint64
	handler Subscriber
}

// Bus is the concrete EventBus: register/unregister machines, dispatch
// events synchronously into mailboxes, and fan out to type subscribers.
type Bus struct {
	mu          sync.RWMutex
	mailboxes   map[common.MachineId]*Mailbox
	subscribers map[EventType][]subscription
	nextSubID   uint64
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{
		mailboxes:   make(map[common.MachineId]*Mailbox),
		subscribers: make(map[EventType][]subscription),
	}
}

// Register creates a mailbox for id. Calling Register twice for the same
// id is an error: the registration mapping is unique per id (§4.1).
func (b *Bus) Register(id common.MachineId) (*Mailbox, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.mailboxes[id]; exists {
		return nil, errors.Errorf("eventbus: machine %s already registered", id)
	}
	mb := newMailbox()
	b.mailboxes[id] = mb
	return mb, nil
}

// Unregister removes id's mailbox. Unregistering an unknown id is a no-op.
func (b *Bus) Unregister(id common.MachineId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.mailboxes, id)
}

// Mailbox returns the registered mailbox for id, or nil if unregistered.
func (b *Bus) Mailbox(id common.MachineId) *Mailbox {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mailboxes[id]
}

// Dispatch is synchronous with respect to mailbox append: when Dispatch
// returns, the recipient's mailbox contains event and every type
// subscriber has already been invoked, in registration order. An unknown
// recipient is not an error — gossip may precede local registration — the
// event is simply delivered only to subscribers.
func (b *Bus) Dispatch(event MachineEvent, eventType EventType) {
	b.mu.RLock()
	mb := b.mailboxes[event.Recipient]
	subs := append([]subscription(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	if mb != nil {
		mb.push(event)
	} else if event.Recipient != common.Broadcast {
		logger.Debug("dispatch to unknown recipient", "recipient", event.Recipient, "eventType", eventType)
	}

	if event.Recipient == common.Broadcast {
		b.mu.RLock()
		all := make([]*Mailbox, 0, len(b.mailboxes))
		for _, m := range b.mailboxes {
			all = append(all, m)
		}
		b.mu.RUnlock()
		for _, m := range all {
			m.push(event)
		}
	}

	for _, s := range subs {
		safeInvoke(s.handler, event)
	}
}

func safeInvoke(fn Subscriber, event MachineEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("subscriber panicked", "eventType", event.Kind, "recover", r)
		}
	}()
	fn(event)
}

// SubscriptionHandle cancels a Subscribe call.
type SubscriptionHandle struct {
	bus       *Bus
	eventType EventType
	id        uint64
}

// Cancel removes the subscription. Calling Cancel twice is a no-op.
func (h SubscriptionHandle) Cancel() {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	subs := h.bus.subscribers[h.eventType]
	for i, s := range subs {
		if s.id == h.id {
			h.bus.subscribers[h.eventType] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Subscribe registers handler for eventType, invoked in registration order
// on every future Dispatch carrying that type.
func (b *Bus) Subscribe(eventType EventType, handler Subscriber) SubscriptionHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	id := b.nextSubID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})
	return SubscriptionHandle{bus: b, eventType: eventType, id: id}
}

// Unsubscribe is an alias for handle.Cancel kept for parity with §4.1's
// contract list.
func (b *Bus) Unsubscribe(handle SubscriptionHandle) { handle.Cancel() }
