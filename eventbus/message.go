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

// Package eventbus is the in-process router mapping machine id to mailbox,
// plus type-indexed fan-out subscribers (§4.1).
package eventbus

import (
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/adimov-eth/xln/common"
)

// Kind is the message classification of §3.
type Kind string

const (
	KindCommand  Kind = "COMMAND"
	KindEvent    Kind = "EVENT"
	KindQuery    Kind = "QUERY"
	KindResponse Kind = "RESPONSE"
)

// Message is the immutable envelope carried on every mailbox. Payload is
// left as interface{} since Go has no sound generic substitute for the
// spec's Message<P> that every concrete command/event type can share
// without a type switch at the handler boundary — the handlers type-assert
// Payload against the command unions defined per machine package.
type Message struct {
	ID            string
	Kind          Kind
	Payload       interface{}
	Sender        common.MachineId
	Recipient     common.MachineId
	Timestamp     time.Time
	CorrelationID string
	CausationID   string
}

// NewMessage builds a Message with a fresh random id.
func NewMessage(kind Kind, payload interface{}, sender, recipient common.MachineId) Message {
	id, _ := uuid.GenerateUUID()
	return Message{
		ID:        id,
		Kind:      kind,
		Payload:   payload,
		Sender:    sender,
		Recipient: recipient,
		Timestamp: time.Now(),
	}
}

// MachineEvent is a Message whose Recipient may be common.Broadcast.
type MachineEvent = Message

// EventType names a type-indexed subscription topic, independent of the
// envelope's Kind — e.g. "PROPOSAL_CREATED", "BLOCK_PRODUCED".
type EventType string
