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

package gossip

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/clevergo/websocket"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/log"
)

var logger = log.NewModuleLogger(log.ModuleGossip)

// Status mirrors the teacher's peer lifecycle (connected/dropped), renamed
// to the vocabulary of §4.9.
type Status int

const (
	StatusActive Status = iota
	StatusInactive
)

// maxQueuedEnvelopes bounds the per-peer broadcast queue the way the
// teacher's maxQueuedProps bounds block propagation — a slow peer drops
// broadcasts rather than backing up every other peer's relay.
const maxQueuedEnvelopes = 256

// peer is the connection-holding counterpart of the teacher's
// baseBridgePeer: a websocket connection plus an async write queue and a
// liveness timer, addressed by the remote machine's id once known from its
// HANDSHAKE.
type peer struct {
	mu sync.RWMutex

	id     common.MachineId
	addr   string
	conn   *websocket.Conn
	status Status

	lastPing time.Time
	lastPong time.Time

	queue chan Envelope
	term  chan struct{}
	once  sync.Once
}

func newPeer(conn *websocket.Conn, addr string) *peer {
	return &peer{
		conn:     conn,
		addr:     addr,
		status:   StatusActive,
		lastPong: time.Now(),
		queue:    make(chan Envelope, maxQueuedEnvelopes),
		term:     make(chan struct{}),
	}
}

// setID records the remote id learned from HANDSHAKE/DISCOVERY.
func (p *peer) setID(id common.MachineId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = id
}

func (p *peer) ID() common.MachineId {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id
}

func (p *peer) setStatus(s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

func (p *peer) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *peer) recordPong() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPong = time.Now()
}

// enqueue queues env for the write loop, dropping it if the peer's queue
// is full rather than blocking the broadcaster (§4.9: transient send
// errors must not fail the broadcast).
func (p *peer) enqueue(env Envelope) {
	select {
	case p.queue <- env:
	default:
		logger.Debug("dropping envelope, peer queue full", "peer", p.ID(), "type", env.Type)
	}
}

// send writes env synchronously, used for the handshake and direct
// request/response exchanges that must happen before the write loop owns
// the connection exclusively.
func (p *peer) send(env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, raw)
}

// writeLoop multiplexes the broadcast queue into the socket, mirroring the
// teacher's Broadcast() write pump.
func (p *peer) writeLoop() {
	for {
		select {
		case env := <-p.queue:
			if err := p.send(env); err != nil {
				logger.Debug("peer write failed", "peer", p.ID(), "err", err)
				p.Close()
				return
			}
		case <-p.term:
			return
		}
	}
}

// readLoop decodes inbound envelopes and hands each to handle, until the
// connection errors or Close is called.
func (p *peer) readLoop(handle func(*peer, Envelope)) {
	defer p.Close()
	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			logger.Debug("peer read closed", "peer", p.ID(), "err", err)
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warn("dropping malformed envelope", "peer", p.ID(), "err", err)
			continue
		}
		handle(p, env)
	}
}

// Close terminates the write loop and underlying socket. Idempotent.
func (p *peer) Close() {
	p.once.Do(func() {
		close(p.term)
		p.setStatus(StatusInactive)
		_ = p.conn.Close()
	})
}
