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
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/common"
	cryptopkg "github.com/adimov-eth/xln/crypto"
	"github.com/adimov-eth/xln/eventbus"
)

// participant is a test-only keypair whose MachineId is, by this
// codebase's convention, its own public-key hex.
type participant struct {
	id   common.MachineId
	priv *btcec.PrivateKey
}

func newParticipant(t *testing.T) participant {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubHex := common.BytesToHex(priv.PubKey().SerializeCompressed())
	return participant{id: common.MachineId(pubHex), priv: priv}
}

func (p participant) sign(digest common.Hash) string {
	sigHex, err := cryptopkg.Engine.Sign(p.priv, digest)
	if err != nil {
		panic(err)
	}
	return sigHex
}

func countersignedUpdate(t *testing.T, a, b participant, seq uint64, balances map[common.MachineId]uint64) StateUpdate {
	t.Helper()
	u := StateUpdate{Sequence: seq, Balances: balances, Signatures: map[common.MachineId]string{}}
	digest := u.Hash()
	u.Signatures[a.id] = a.sign(digest)
	u.Signatures[b.id] = b.sign(digest)
	return u
}

func newTestChannel(t *testing.T) (a, b participant, m *Machine) {
	t.Helper()
	a, b = newParticipant(t), newParticipant(t)
	bus := eventbus.New()
	m = New("ch1", []common.MachineId{a.id, b.id}, map[common.MachineId]uint64{a.id: 60, b.id: 40}, time.Hour, bus)
	return a, b, m
}

func TestUpdateBalanceRequiresBothCountersignatures(t *testing.T) {
	a, b, m := newTestChannel(t)
	update := countersignedUpdate(t, a, b, 1, map[common.MachineId]uint64{a.id: 50, b.id: 50})
	event := eventbus.NewMessage(eventbus.KindCommand, UpdateBalanceCmd{Update: update}, a.id, "ch1")
	require.NoError(t, m.Handle(event))
	assert.Equal(t, uint64(50), m.State().Balances[a.id])
}

func TestUpdateBalanceRejectsMissingCountersignature(t *testing.T) {
	a, b, m := newTestChannel(t)
	u := StateUpdate{Sequence: 1, Balances: map[common.MachineId]uint64{a.id: 50, b.id: 50}, Signatures: map[common.MachineId]string{}}
	u.Signatures[a.id] = a.sign(u.Hash())
	event := eventbus.NewMessage(eventbus.KindCommand, UpdateBalanceCmd{Update: u}, a.id, "ch1")
	assert.Error(t, m.Handle(event))
}

func TestUpdateBalanceRejectsBrokenConservation(t *testing.T) {
	a, b, m := newTestChannel(t)
	update := countersignedUpdate(t, a, b, 1, map[common.MachineId]uint64{a.id: 50, b.id: 51})
	event := eventbus.NewMessage(eventbus.KindCommand, UpdateBalanceCmd{Update: update}, a.id, "ch1")
	assert.Error(t, m.Handle(event))
}

func TestUpdateBalanceRejectsOutOfOrderSequence(t *testing.T) {
	a, b, m := newTestChannel(t)
	update := countersignedUpdate(t, a, b, 2, map[common.MachineId]uint64{a.id: 50, b.id: 50})
	event := eventbus.NewMessage(eventbus.KindCommand, UpdateBalanceCmd{Update: update}, a.id, "ch1")
	assert.Error(t, m.Handle(event))
}

func TestInitiateDisputeRequiresParticipant(t *testing.T) {
	_, _, m := newTestChannel(t)
	event := eventbus.NewMessage(eventbus.KindCommand, InitiateDisputeCmd{}, "stranger", "ch1")
	assert.Error(t, m.Handle(event))
}

func TestDisputeResolutionAdoptsCounterBalancesWithoutPenalty(t *testing.T) {
	a, b, m := newTestChannel(t)
	dispute := eventbus.NewMessage(eventbus.KindCommand, InitiateDisputeCmd{}, a.id, "ch1")
	require.NoError(t, m.Handle(dispute))
	assert.Equal(t, StatusDisputed, m.State().Status)

	counter := countersignedUpdate(t, a, b, 1, map[common.MachineId]uint64{a.id: 70, b.id: 30})
	resolve := eventbus.NewMessage(eventbus.KindCommand, ResolveDisputeCmd{CounterUpdate: counter}, b.id, "ch1")
	resolve.Timestamp = dispute.Timestamp.Add(time.Minute)
	require.NoError(t, m.Handle(resolve))

	assert.Equal(t, StatusResolved, m.State().Status)
	assert.Equal(t, uint64(70), m.State().Balances[a.id], "resolution adopts the countered balances verbatim, no penalty")
	assert.Equal(t, uint64(30), m.State().Balances[b.id])
	assert.Equal(t, uint64(100), Total(m.State().Balances))
}

func TestFinalizeSettlementPenalizesNonRespondingCounterpartyOnTimeout(t *testing.T) {
	a, b, m := newTestChannel(t)
	dispute := eventbus.NewMessage(eventbus.KindCommand, InitiateDisputeCmd{}, a.id, "ch1")
	require.NoError(t, m.Handle(dispute))

	timeout := eventbus.NewMessage(eventbus.KindCommand, FinalizeSettlementCmd{}, a.id, "ch1")
	timeout.Timestamp = dispute.Timestamp.Add(2 * time.Hour)
	require.NoError(t, m.Handle(timeout))

	assert.Equal(t, StatusSettling, m.State().Status)
	assert.Equal(t, uint64(64), m.State().Balances[a.id], "the initiator receives the non-responsive counterparty's penalty")
	assert.Equal(t, uint64(36), m.State().Balances[b.id], "the non-responding counterparty is debited 10% of its balance")
	assert.Equal(t, uint64(100), Total(m.State().Balances))
}

func TestResolveDisputeRejectsAfterDeadline(t *testing.T) {
	a, b, m := newTestChannel(t)
	dispute := eventbus.NewMessage(eventbus.KindCommand, InitiateDisputeCmd{}, a.id, "ch1")
	require.NoError(t, m.Handle(dispute))

	counter := countersignedUpdate(t, a, b, 1, map[common.MachineId]uint64{a.id: 50, b.id: 50})
	resolve := eventbus.NewMessage(eventbus.KindCommand, ResolveDisputeCmd{CounterUpdate: counter}, b.id, "ch1")
	resolve.Timestamp = dispute.Timestamp.Add(2 * time.Hour)
	assert.Error(t, m.Handle(resolve))
}

func TestFinalizeSettlementRequiresElapsedDisputeWhenUnresolved(t *testing.T) {
	a, _, m := newTestChannel(t)
	dispute := eventbus.NewMessage(eventbus.KindCommand, InitiateDisputeCmd{}, a.id, "ch1")
	require.NoError(t, m.Handle(dispute))

	tooEarly := eventbus.NewMessage(eventbus.KindCommand, FinalizeSettlementCmd{}, a.id, "ch1")
	tooEarly.Timestamp = dispute.Timestamp.Add(time.Minute)
	assert.Error(t, m.Handle(tooEarly))

	late := eventbus.NewMessage(eventbus.KindCommand, FinalizeSettlementCmd{}, a.id, "ch1")
	late.Timestamp = dispute.Timestamp.Add(2 * time.Hour)
	require.NoError(t, m.Handle(late))
	assert.Equal(t, StatusSettling, m.State().Status)
}

func TestCloseChannelRequiresSettlingStatus(t *testing.T) {
	_, _, m := newTestChannel(t)
	event := eventbus.NewMessage(eventbus.KindCommand, CloseChannelCmd{}, "sig1", "ch1")
	assert.Error(t, m.Handle(event))
}

func TestVerifyTransitionRejectsFundsNotConserved(t *testing.T) {
	a, b, _ := newTestChannel(t)
	from := NewState([]common.MachineId{a.id, b.id}, map[common.MachineId]uint64{a.id: 60, b.id: 40}, time.Hour)
	to := from.Clone().(*State)
	to.Balances[a.id] = 61

	assert.Error(t, verifyTransition(from, to))
}
