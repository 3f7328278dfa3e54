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

package channel

import (
	"time"

	"github.com/adimov-eth/xln/common"
	cryptopkg "github.com/adimov-eth/xln/crypto"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/log"
	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/xlnerrors"
)

var logger = log.NewModuleLogger(log.ModuleChannel)

// Command payload types recognized by the channel submachine (§4.7).
type UpdateBalanceCmd struct{ Update StateUpdate }
type InitiateDisputeCmd struct{}

// ResolveDisputeCmd is submitted by the non-initiating participant with a
// countersigned update at a higher sequence than the disputed one, proving
// the disputer's claimed state was stale.
type ResolveDisputeCmd struct{ CounterUpdate StateUpdate }
type FinalizeSettlementCmd struct{}
type CloseChannelCmd struct{}

const (
	EventBalanceUpdated     = "BALANCE_UPDATED"
	EventDisputeInitiated   = "DISPUTE_INITIATED"
	EventDisputeResolved    = "DISPUTE_RESOLVED"
	EventSettlementFinalized = "SETTLEMENT_FINALIZED"
	EventChannelClosed      = "CHANNEL_CLOSED"
)

// Machine is the channel submachine of §4.7.
type Machine struct {
	id   common.MachineId
	core *machine.Core
	bus  *eventbus.Bus
}

// New constructs a channel Machine already opened between participants.
func New(id common.MachineId, participants []common.MachineId, initial map[common.MachineId]uint64, disputePeriod time.Duration, bus *eventbus.Bus) *Machine {
	m := &Machine{id: id, bus: bus}
	m.core = machine.NewCore(id, NewState(participants, initial, disputePeriod), 256, applyTx, verifyTransition)
	return m
}

func (m *Machine) ID() common.MachineId { return m.id }
func (m *Machine) Core() *machine.Core  { return m.core }
func (m *Machine) State() *State        { return m.core.Current.(*State) }

// Handle applies channel commands immediately: like Entity and Signer,
// a channel's own pace is driven by its two owners countersigning, not by
// a production timer.
func (m *Machine) Handle(event eventbus.Message) error {
	next, err := applyTx(m.core.Current, event)
	if err != nil {
		return err
	}
	m.core.Current = next
	m.dispatch(event)
	return nil
}

func (m *Machine) dispatch(event eventbus.Message) {
	var eventType string
	switch event.Payload.(type) {
	case UpdateBalanceCmd:
		eventType = EventBalanceUpdated
	case InitiateDisputeCmd:
		eventType = EventDisputeInitiated
	case ResolveDisputeCmd:
		eventType = EventDisputeResolved
	case FinalizeSettlementCmd:
		eventType = EventSettlementFinalized
	case CloseChannelCmd:
		eventType = EventChannelClosed
	default:
		return
	}
	m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, m.State(), m.id, common.Broadcast), eventType)
}

// verifyTransition enforces §4.7's conservation invariant (total funds
// never change across a transition, only how they're split) and that the
// participant set is immutable for the channel's lifetime.
func verifyTransition(from, to machine.State) error {
	fs, ok1 := from.(*State)
	ts, ok2 := to.(*State)
	if !ok1 || !ok2 {
		return xlnerrors.New(xlnerrors.KindInternal, "channel: unexpected state type")
	}
	if len(fs.Participants) != len(ts.Participants) {
		return xlnerrors.New(xlnerrors.KindInvalidState, "channel participants changed")
	}
	for i := range fs.Participants {
		if fs.Participants[i] != ts.Participants[i] {
			return xlnerrors.New(xlnerrors.KindInvalidState, "channel participants changed")
		}
	}
	if Total(fs.Balances) != Total(ts.Balances) {
		return xlnerrors.New(xlnerrors.KindInvalidState, "channel funds not conserved")
	}
	if ts.Sequence < fs.Sequence {
		return xlnerrors.New(xlnerrors.KindInvalidState, "channel sequence moved backward")
	}
	return nil
}

func isParticipant(s *State, id common.MachineId) bool {
	for _, p := range s.Participants {
		if p == id {
			return true
		}
	}
	return false
}

func applyTx(state machine.State, event eventbus.Message) (machine.State, error) {
	s, ok := state.(*State)
	if !ok {
		return nil, xlnerrors.New(xlnerrors.KindInternal, "channel: unexpected state type")
	}
	next := s.Clone().(*State)

	switch cmd := event.Payload.(type) {
	case UpdateBalanceCmd:
		return applyUpdateBalance(next, cmd)

	case InitiateDisputeCmd:
		if next.Status != StatusOpen {
			return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "dispute requires an open channel")
		}
		if !isParticipant(next, event.Sender) {
			return nil, xlnerrors.New(xlnerrors.KindUnauthorized, "only a participant may dispute")
		}
		next.Status = StatusDisputed
		next.Dispute = &Dispute{InitiatedBy: event.Sender, AtSequence: next.Sequence, Deadline: event.Timestamp.Add(next.DisputePeriod)}
		return next, nil

	case ResolveDisputeCmd:
		return applyResolveDispute(next, event, cmd)

	case FinalizeSettlementCmd:
		return applyFinalizeSettlement(next, event)

	case CloseChannelCmd:
		if next.Status != StatusSettling {
			return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "close requires a settling channel")
		}
		next.Status = StatusClosed
		return next, nil

	default:
		return nil, xlnerrors.New(xlnerrors.KindInvalidCommand, "channel: unrecognized command payload")
	}
}

func applyUpdateBalance(s *State, cmd UpdateBalanceCmd) (machine.State, error) {
	if s.Status != StatusOpen {
		return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "balance updates require an open channel")
	}
	u := cmd.Update
	if u.Sequence != s.Sequence+1 {
		return nil, xlnerrors.New(xlnerrors.KindInvalidState, "balance update sequence out of order")
	}
	if Total(u.Balances) != s.totalFunds {
		return nil, xlnerrors.New(xlnerrors.KindInvalidState, "balance update does not conserve funds")
	}
	digest := u.Hash()
	for _, p := range s.Participants {
		sigHex, present := u.Signatures[p]
		if !present {
			return nil, xlnerrors.New(xlnerrors.KindInvalidSignature, "missing countersignature from "+string(p))
		}
		pubKeyHex, err := participantPubKeyHex(p)
		if err != nil {
			return nil, err
		}
		ok, err := cryptopkg.Engine.Verify(pubKeyHex, digest, sigHex)
		if err != nil || !ok {
			return nil, xlnerrors.New(xlnerrors.KindInvalidSignature, "countersignature failed verification for "+string(p))
		}
	}

	s.Sequence = u.Sequence
	s.Balances = make(map[common.MachineId]uint64, len(u.Balances))
	for k, v := range u.Balances {
		s.Balances[k] = v
	}
	s.Updates = append(s.Updates, u.Clone())
	return s, nil
}

func applyResolveDispute(s *State, event eventbus.Message, cmd ResolveDisputeCmd) (machine.State, error) {
	if s.Status != StatusDisputed || s.Dispute == nil {
		return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "resolve requires an active dispute")
	}
	if event.Timestamp.After(s.Dispute.Deadline) {
		return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "dispute window already elapsed")
	}
	counter := cmd.CounterUpdate
	if counter.Sequence <= s.Dispute.AtSequence {
		return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "countering update does not supersede disputed sequence")
	}
	if Total(counter.Balances) != s.totalFunds {
		return nil, xlnerrors.New(xlnerrors.KindInvalidState, "countering update does not conserve funds")
	}
	digest := counter.Hash()
	for _, p := range s.Participants {
		sigHex, present := counter.Signatures[p]
		if !present {
			return nil, xlnerrors.New(xlnerrors.KindInvalidSignature, "missing countersignature from "+string(p))
		}
		pubKeyHex, err := participantPubKeyHex(p)
		if err != nil {
			return nil, err
		}
		ok, err := cryptopkg.Engine.Verify(pubKeyHex, digest, sigHex)
		if err != nil || !ok {
			return nil, xlnerrors.New(xlnerrors.KindInvalidSignature, "countersignature failed verification for "+string(p))
		}
	}

	balances := make(map[common.MachineId]uint64, len(counter.Balances))
	for k, v := range counter.Balances {
		balances[k] = v
	}

	s.Balances = balances
	s.Sequence = counter.Sequence
	s.Updates = append(s.Updates, counter.Clone())
	s.Dispute.Resolved = true
	s.Status = StatusResolved
	logger.Debug("dispute resolved with superseding update", "channel", s.Participants, "initiator", s.Dispute.InitiatedBy)
	return s, nil
}

func applyFinalizeSettlement(s *State, event eventbus.Message) (machine.State, error) {
	switch s.Status {
	case StatusResolved:
		s.Status = StatusSettling
		s.Dispute = nil
		return s, nil
	case StatusDisputed:
		if s.Dispute == nil || !event.Timestamp.After(s.Dispute.Deadline) {
			return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "dispute window has not elapsed")
		}
		applyTimeoutPenalty(s)
		s.Status = StatusSettling
		s.Dispute = nil
		return s, nil
	default:
		return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "settlement requires a resolved or timed-out dispute")
	}
}

// applyTimeoutPenalty implements §4.7's dispute-timeout rule: a participant
// that never countersigned a superseding update before the dispute deadline
// is non-responsive and is debited 10% of its balance, redistributed evenly
// across the participants that did respond. The dispute's initiator is
// always treated as responsive: it is the one party that is known to have
// acted, by having raised the dispute in the first place. Resolution is
// mutual (applyResolveDispute requires every participant's countersignature),
// so reaching this path at all means no one but the initiator responded.
func applyTimeoutPenalty(s *State) {
	d := s.Dispute
	if d == nil {
		return
	}
	var responsive, nonResponsive []common.MachineId
	for _, p := range s.Participants {
		if p == d.InitiatedBy {
			responsive = append(responsive, p)
		} else {
			nonResponsive = append(nonResponsive, p)
		}
	}
	if len(responsive) == 0 || len(nonResponsive) == 0 {
		return
	}

	var totalPenalty uint64
	for _, p := range nonResponsive {
		penalty := s.Balances[p] * disputePenaltyBps / 10000
		s.Balances[p] -= penalty
		totalPenalty += penalty
	}
	share := totalPenalty / uint64(len(responsive))
	remainder := totalPenalty % uint64(len(responsive))
	for i, p := range responsive {
		add := share
		if uint64(i) < remainder {
			add++
		}
		s.Balances[p] += add
	}
	logger.Debug("dispute timeout penalty applied", "channel", s.Participants, "nonResponsive", nonResponsive, "penalty", totalPenalty)
}

// participantPubKeyHex maps a channel participant's MachineId to the
// public-key hex used for signature verification, following the same
// convention as the entity package: machine ids that sign things are,
// by construction, their own public-key hex.
func participantPubKeyHex(id common.MachineId) (string, error) {
	if string(id) == "" {
		return "", xlnerrors.New(xlnerrors.KindInvalidState, "empty participant id")
	}
	return string(id), nil
}
