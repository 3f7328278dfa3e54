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

// Package xlnerrors enumerates the error kinds of §7 and carries structured
// context (machineId, eventId, cause) through the pkg/errors wrap chain.
package xlnerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error kinds named in §7.
type Kind string

const (
	KindInternal        Kind = "InternalError"
	KindInvalidState    Kind = "InvalidState"
	KindInvalidSignature Kind = "InvalidSignature"
	KindInvalidProposal Kind = "InvalidProposal"
	KindUnauthorized    Kind = "Unauthorized"
	KindInvalidCommand  Kind = "InvalidCommand"
	KindInvalidEvent    Kind = "InvalidEvent"
	KindInvalidMessage  Kind = "InvalidMessage"
	KindInvalidOperation Kind = "InvalidOperation"
	KindValidation      Kind = "ValidationError"
	KindInvalidConfig   Kind = "InvalidConfig"
	KindNetwork         Kind = "NetworkError"
)

// Well-known sentinels referenced by name elsewhere in the spec.
var (
	ErrNoTransactions   = New(KindInvalidState, "no pending transactions")
	ErrLinkMismatch     = New(KindInvalidState, "block does not link to current tip")
	ErrUnknownTransaction = New(KindInvalidCommand, "unknown transaction")
	ErrKeyUnavailable   = New(KindInternal, "private key unavailable")
)

// Error carries a Kind plus structured context alongside the pkg/errors
// cause chain so callers can both errors.Is/As and log machineId/eventId.
type Error struct {
	Kind      Kind
	Message   string
	MachineID string
	EventID   string
	cause     error
}

func (e *Error) Error() string {
	if e.MachineID == "" && e.EventID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (machine=%s event=%s)", e.Kind, e.Message, e.MachineID, e.EventID)
}

func (e *Error) Cause() error  { return e.cause }
func (e *Error) Unwrap() error { return e.cause }

// New constructs a bare Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches kind/message to cause, preserving it via pkg/errors so
// %+v printing still yields a stack trace at the wrap site.
func Wrap(cause error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, cause: errors.Wrap(cause, msg)}
}

// WithContext returns a copy of e annotated with machine/event identifiers.
func (e *Error) WithContext(machineID, eventID string) *Error {
	cp := *e
	cp.MachineID = machineID
	cp.EventID = eventID
	return &cp
}

// Is supports errors.Is by Kind and Message equality when the target is
// also an *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// KindOf extracts the Kind from err if it is (or wraps) an *xlnerrors.Error,
// defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
