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

// Package actor provides the per-machine cooperative executor that drains
// a mailbox and invokes the owning machine's handler (§4.2).
package actor

import (
	"time"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/log"
)

var logger = log.NewModuleLogger(log.ModuleActor)

// Handler is implemented by every concrete machine (Server/Signer/Entity/
// Channel) and invoked once per mailbox message in arrival order.
type Handler interface {
	ID() common.MachineId
	Handle(event eventbus.Message) error
}

// Sink is the observability surface errors are reported to (§4.1, §7).
// The out-of-band dashboard log channel of §6 is a second Sink an
// orchestrator may register; it never feeds back into the core.
type Sink interface {
	Report(machineID common.MachineId, event eventbus.Message, err error)
}

// LogSink is the default Sink: an ERROR-level structured log entry.
type LogSink struct{}

func (LogSink) Report(machineID common.MachineId, event eventbus.Message, err error) {
	logger.Error("handler failed", "machine", machineID, "eventId", event.ID, "err", err)
}

// Config tunes a Runner's polling behavior.
type Config struct {
	PollInterval     time.Duration
	MaxEventsPerTick int
	ContinueOnError  bool
}

// DefaultConfig matches the teacher's conservative mining-loop defaults:
// frequent polling, small batches, degrade gracefully rather than halt.
func DefaultConfig() Config {
	return Config{
		PollInterval:     10 * time.Millisecond,
		MaxEventsPerTick: 32,
		ContinueOnError:  true,
	}
}

// Runner drains one mailbox, invoking handler.Handle for each event in
// arrival order, and yields for PollInterval when the mailbox is empty.
type Runner struct {
	mailbox *eventbus.Mailbox
	handler Handler
	cfg     Config
	sink    Sink

	stopCh chan struct{}
	doneCh chan struct{}

	// FatalErr is set if the runner stopped due to a handler error while
	// ContinueOnError is false.
	FatalErr error
}

// New constructs a Runner bound to mailbox/handler. sink may be nil, in
// which case LogSink{} is used.
func New(mailbox *eventbus.Mailbox, handler Handler, cfg Config, sink Sink) *Runner {
	if sink == nil {
		sink = LogSink{}
	}
	return &Runner{
		mailbox: mailbox,
		handler: handler,
		cfg:     cfg,
		sink:    sink,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the drain loop on a new goroutine. It returns immediately.
func (r *Runner) Start() {
	go r.loop()
}

// Stop makes the loop exit at the next tick boundary; it does not
// interrupt an in-flight Handle call. Stop blocks until the loop has
// actually exited.
func (r *Runner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Runner) loop() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		events := r.mailbox.Drain(r.cfg.MaxEventsPerTick)
		if len(events) == 0 {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				continue
			}
		}

		for _, event := range events {
			if err := r.handler.Handle(event); err != nil {
				r.sink.Report(r.handler.ID(), event, err)
				if !r.cfg.ContinueOnError {
					r.FatalErr = err
					return
				}
			}
		}
	}
}
