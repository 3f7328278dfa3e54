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

package entity

import (
	"sort"
	"time"

	"github.com/adimov-eth/xln/common"
	cryptopkg "github.com/adimov-eth/xln/crypto"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/log"
	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/txtypes"
	"github.com/adimov-eth/xln/xlnerrors"
)

var logger = log.NewModuleLogger(log.ModuleEntity)

// Command payload types recognized by EntityMachine (§4.6).
type ProposeTransactionCmd struct{ Tx txtypes.Transaction }
type UpdateConfigCmd struct{ NewConfig Config }
type ApproveProposalCmd struct{ ProposalID string }
type CancelProposalCmd struct{ ProposalID string }

// OpenChannelCmd requests a bilateral channel with Partner, committing
// InitialFunds from this entity's side of it.
type OpenChannelCmd struct {
	Partner       common.MachineId
	InitialFunds  uint64
	DisputePeriod time.Duration
}

// CloseChannelCmd finalizes a channel. At least one of the two closure
// paths must be satisfied: a settlement signed by signers whose weight
// meets Threshold (SettlementSignatures, over H(channelID||finalFunds)),
// or a caller-asserted dispute timeout (DisputeExpired) — the channel
// submachine, not the entity, is authoritative over which path applies,
// so the asserting caller carries proof (the signatures) rather than the
// entity re-deriving channel-internal state.
type CloseChannelCmd struct {
	ChannelID            common.MachineId
	FinalFunds           uint64
	SettlementSignatures map[string]string
	DisputeExpired       bool
}

const (
	EventProposalCreated  = "PROPOSAL_CREATED"
	EventProposalApproved = "PROPOSAL_APPROVED"
	EventProposalExecuted = "PROPOSAL_EXECUTED"
	EventProposalCancelled = "PROPOSAL_CANCELLED"
	EventChannelOpened    = "CHANNEL_OPENED"
	EventChannelClosed    = "CHANNEL_CLOSED"
)

// Machine is the EntityMachine of §4.6.
type Machine struct {
	id   common.MachineId
	core *machine.Core
	bus  *eventbus.Bus
}

// New constructs an EntityMachine with a validated genesis Config.
func New(id common.MachineId, cfg Config, bus *eventbus.Bus, mempoolSize int) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, xlnerrors.Wrap(err, xlnerrors.KindInvalidConfig, "entity genesis config")
	}
	m := &Machine{id: id, bus: bus}
	m.core = machine.NewCore(id, NewState(cfg), mempoolSize, applyTx, verifyTransition)
	return m, nil
}

func (m *Machine) ID() common.MachineId { return m.id }
func (m *Machine) Core() *machine.Core  { return m.core }
func (m *Machine) State() *State        { return m.core.Current.(*State) }

// Handle applies every command immediately, the same immediate-effect
// design as SignerMachine: an entity's block chain exists so its history
// is replayable and verifiable (ReceiveBlock, used when catching up from
// peers), not to pace local commands behind a production timer.
func (m *Machine) Handle(event eventbus.Message) error {
	next, err := applyTx(m.core.Current, event)
	if err != nil {
		return err
	}
	m.core.Current = next
	m.dispatch(event, next.(*State))
	return nil
}

// dispatch emits the notification event corresponding to a successfully
// applied command, looked up from the resulting state rather than
// threaded out of applyTx (which stays pure and bus-free so it can also
// drive block replay without re-emitting historical notifications).
func (m *Machine) dispatch(event eventbus.Message, next *State) {
	switch cmd := event.Payload.(type) {
	case ProposeTransactionCmd:
		if p, ok := next.Proposals[event.ID]; ok {
			m.emitProposal(event, p)
		}
	case UpdateConfigCmd:
		if p, ok := next.Proposals[event.ID]; ok {
			m.emitProposal(event, p)
		}
	case ApproveProposalCmd:
		if p, ok := next.Proposals[cmd.ProposalID]; ok {
			m.emitProposal(event, p)
		}
	case CancelProposalCmd:
		if p, ok := next.Proposals[cmd.ProposalID]; ok && p.Status == StatusCancelled {
			m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, p, m.id, common.Broadcast), EventProposalCancelled)
		}
	case OpenChannelCmd:
		id := channelID(event.Recipient, cmd.Partner)
		m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, id, m.id, common.Broadcast), EventChannelOpened)
	case CloseChannelCmd:
		m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, cmd.ChannelID, m.id, common.Broadcast), EventChannelClosed)
	}
}

// emitProposal picks PROPOSAL_CREATED/APPROVED/EXECUTED depending on what
// maybeExecute did to p during applyTx.
func (m *Machine) emitProposal(event eventbus.Message, p Proposal) {
	switch {
	case p.Status == StatusExecuted:
		m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, p, m.id, common.Broadcast), EventProposalExecuted)
	case p.ID == event.ID:
		m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, p, m.id, common.Broadcast), EventProposalCreated)
	default:
		m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, p, m.id, common.Broadcast), EventProposalApproved)
	}
}

// verifyTransition enforces §4.6: config only ever changes via an EXECUTED
// CONFIG_UPDATE proposal (checked indirectly — we simply require the
// resulting config to still validate), and no channel once marked Closed
// may be dropped or reopened.
func verifyTransition(from, to machine.State) error {
	fs, ok1 := from.(*State)
	ts, ok2 := to.(*State)
	if !ok1 || !ok2 {
		return xlnerrors.New(xlnerrors.KindInternal, "entity: unexpected state type")
	}
	if err := ts.Config.Validate(); err != nil {
		return xlnerrors.Wrap(err, xlnerrors.KindInvalidConfig, "resulting config invalid")
	}
	for id, rec := range fs.Channels {
		if rec.Closed {
			if next, ok := ts.Channels[id]; !ok || !next.Closed {
				return xlnerrors.New(xlnerrors.KindInvalidState, "closed channel reopened: "+string(id))
			}
		}
	}
	return nil
}

// expireStale flips every ACTIVE proposal whose window has elapsed as of
// asOf to EXPIRED — the lazy sweep of §4.6's expiry rule, run at the top
// of every command so no handler ever acts on a stale proposal.
func expireStale(s *State, asOf time.Time) {
	for id, p := range s.Proposals {
		if p.Expired(asOf) {
			p.Status = StatusExpired
			s.Proposals[id] = p
		}
	}
}

func applyTx(state machine.State, event eventbus.Message) (machine.State, error) {
	s, ok := state.(*State)
	if !ok {
		return nil, xlnerrors.New(xlnerrors.KindInternal, "entity: unexpected state type")
	}
	next := s.Clone().(*State)
	now := event.Timestamp
	expireStale(next, now)

	switch cmd := event.Payload.(type) {
	case ProposeTransactionCmd:
		tx := cmd.Tx
		p := Proposal{
			ID:          event.ID,
			ProposerKey: string(event.Sender),
			Type:        TypeTransaction,
			Tx:          &tx,
			Approvals:   map[string]bool{string(event.Sender): true},
			Status:      StatusActive,
			CreatedAt:   now,
			ExpiresAt:   now.Add(proposalLifetime),
		}
		next.Proposals[p.ID] = p
		next.BumpNonce(event.Sender, next.NonceOf(event.Sender)+1)
		logger.Debug("proposal created", "entity", string(event.Recipient), "id", p.ID, "type", p.Type)
		return maybeExecute(next, p.ID, now)

	case UpdateConfigCmd:
		if err := cmd.NewConfig.Validate(); err != nil {
			return nil, xlnerrors.Wrap(err, xlnerrors.KindInvalidConfig, "proposed config invalid")
		}
		cfg := cmd.NewConfig.Clone()
		p := Proposal{
			ID:          event.ID,
			ProposerKey: string(event.Sender),
			Type:        TypeConfigUpdate,
			NewConfig:   &cfg,
			Approvals:   map[string]bool{string(event.Sender): true},
			Status:      StatusActive,
			CreatedAt:   now,
			ExpiresAt:   now.Add(proposalLifetime),
		}
		next.Proposals[p.ID] = p
		next.BumpNonce(event.Sender, next.NonceOf(event.Sender)+1)
		return maybeExecute(next, p.ID, now)

	case ApproveProposalCmd:
		p, ok := next.Proposals[cmd.ProposalID]
		if !ok {
			return nil, xlnerrors.New(xlnerrors.KindInvalidProposal, "unknown proposal "+cmd.ProposalID)
		}
		if p.Status != StatusActive {
			return nil, xlnerrors.New(xlnerrors.KindInvalidProposal, "proposal not active: "+string(p.Status))
		}
		p.Approvals[string(event.Sender)] = true
		next.Proposals[p.ID] = p
		return maybeExecute(next, p.ID, now)

	case CancelProposalCmd:
		p, ok := next.Proposals[cmd.ProposalID]
		if !ok {
			return nil, xlnerrors.New(xlnerrors.KindInvalidProposal, "unknown proposal "+cmd.ProposalID)
		}
		if p.Status != StatusActive {
			return nil, xlnerrors.New(xlnerrors.KindInvalidProposal, "proposal not active: "+string(p.Status))
		}
		sender := string(event.Sender)
		if sender != p.ProposerKey && !next.Config.IsAdmin(sender) {
			return nil, xlnerrors.New(xlnerrors.KindUnauthorized, "only proposer or admin may cancel")
		}
		p.Status = StatusCancelled
		finalized := now
		p.FinalizedAt = &finalized
		next.Proposals[p.ID] = p
		return next, nil

	case OpenChannelCmd:
		return openChannel(next, event, cmd)

	case CloseChannelCmd:
		return closeChannel(next, cmd)

	default:
		return nil, xlnerrors.New(xlnerrors.KindInvalidCommand, "entity: unrecognized command payload")
	}
}

// maybeExecute checks whether proposal id's approvals now meet threshold
// and, if so, applies its effect and marks it EXECUTED — the single path
// shared by proposal creation (self-approval can immediately satisfy a
// threshold of 1) and APPROVE_PROPOSAL.
func maybeExecute(s *State, id string, now time.Time) (machine.State, error) {
	p := s.Proposals[id]
	if p.Status != StatusActive {
		return s, nil
	}
	if !s.Config.ThresholdMet(p.Approvals) {
		return s, nil
	}

	switch p.Type {
	case TypeTransaction:
		signed := txtypes.NewSigned(*p.Tx)
		s.Data[p.Tx.Hash().Hex()] = signed
	case TypeConfigUpdate:
		s.Config = p.NewConfig.Clone()
	}

	p.Status = StatusExecuted
	finalized := now
	p.FinalizedAt = &finalized
	s.Proposals[id] = p
	logger.Debug("proposal executed", "id", id, "type", p.Type)
	return s, nil
}

// channelID is a deterministic function of the sorted participant ids
// (§4.6): the same two machines always derive the same id regardless of
// who initiates OPEN_CHANNEL.
func channelID(a, b common.MachineId) common.MachineId {
	ids := []string{string(a), string(b)}
	sort.Strings(ids)
	h := machine.HashBytes([]byte(ids[0] + "|" + ids[1]))
	return common.MachineId("ch_" + h.Hex()[2:18])
}

func openChannel(s *State, event eventbus.Message, cmd OpenChannelCmd) (machine.State, error) {
	id := channelID(event.Recipient, cmd.Partner)
	if existing, ok := s.Channels[id]; ok && !existing.Closed {
		return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "channel already open with "+string(cmd.Partner))
	}
	s.Channels[id] = channelRecord{
		Hash:       common.ZeroHash,
		PartnerID:  cmd.Partner,
		TotalFunds: cmd.InitialFunds,
	}
	return s, nil
}

func closeChannel(s *State, cmd CloseChannelCmd) (machine.State, error) {
	rec, ok := s.Channels[cmd.ChannelID]
	if !ok || rec.Closed {
		return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "unknown or already-closed channel "+string(cmd.ChannelID))
	}

	switch {
	case cmd.DisputeExpired:
		// the channel submachine's dispute window elapsed; the caller
		// asserts this and the entity accepts the finalized balance.
	case len(cmd.SettlementSignatures) > 0:
		digest := machine.HashBytes(append([]byte(cmd.ChannelID), machine.U64(cmd.FinalFunds)...))
		approved := map[string]bool{}
		for signerKey, sigHex := range cmd.SettlementSignatures {
			if _, known := s.Config.Signers[signerKey]; !known {
				continue
			}
			ok, err := verifySettlement(signerKey, digest, sigHex)
			if err == nil && ok {
				approved[signerKey] = true
			}
		}
		if !s.Config.ThresholdMet(approved) {
			return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "settlement signatures below threshold")
		}
		if cmd.FinalFunds > rec.TotalFunds {
			return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "settlement exceeds committed funds")
		}
	default:
		return nil, xlnerrors.New(xlnerrors.KindInvalidOperation, "close requires settlement signatures or an expired dispute")
	}

	rec.Closed = true
	s.Channels[cmd.ChannelID] = rec
	return s, nil
}

// verifySettlement checks a settlement signature against signerKeyHex's
// public key.
func verifySettlement(signerKeyHex string, digest common.Hash, sigHex string) (bool, error) {
	return cryptopkg.Engine.Verify(signerKeyHex, digest, sigHex)
}
