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

package signer

import (
	"github.com/adimov-eth/xln/common"
	cryptopkg "github.com/adimov-eth/xln/crypto"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/log"
	"github.com/adimov-eth/xln/machine"
	"github.com/adimov-eth/xln/txtypes"
	"github.com/adimov-eth/xln/xlnerrors"
)

var logger = log.NewModuleLogger(log.ModuleSigner)

// Command payload types recognized by SignerMachine (§4.5).
type CreateEntityCmd struct {
	EntityID common.MachineId
}

// RegisterPendingTransactionCmd seeds PendingTransactions with a
// transaction awaiting this signer's partial signature — the step the
// distilled spec assumes has already happened before SIGN_TRANSACTION.
type RegisterPendingTransactionCmd struct {
	Tx txtypes.Transaction
}

type SignTransactionCmd struct {
	TxHash common.Hash
}

const EventTransactionSigned = "TRANSACTION_SIGNED"

// Machine is the SignerMachine of §4.5.
type Machine struct {
	id    common.MachineId
	core  *machine.Core
	bus   *eventbus.Bus
	keys  cryptopkg.Keys
	nonce uint64
}

// New constructs a SignerMachine bound to pubKeyHex and keys (for
// KeyStore.PrivateKeyFor lookups at sign time).
func New(id common.MachineId, pubKeyHex string, bus *eventbus.Bus, keys cryptopkg.Keys) *Machine {
	m := &Machine{id: id, bus: bus, keys: keys}
	m.core = machine.NewCore(id, NewState(pubKeyHex), 1024, applyTx, verifyTransition)
	return m
}

func (m *Machine) ID() common.MachineId { return m.id }
func (m *Machine) Core() *machine.Core  { return m.core }
func (m *Machine) State() *State        { return m.core.Current.(*State) }

// Handle dispatches CREATE_ENTITY/SIGN_TRANSACTION/registration commands.
// Unlike ServerMachine, signer commands take effect immediately: a signer
// has no meaningful block-production cadence of its own in this spec — its
// chain of blocks exists so its state transitions are replayable and
// verifiable the same way every other machine's are, but nothing times it.
func (m *Machine) Handle(event eventbus.Message) error {
	switch cmd := event.Payload.(type) {
	case SignTransactionCmd:
		return m.signTransaction(event, cmd)
	default:
		next, err := applyTx(m.core.Current, event)
		if err != nil {
			return err
		}
		m.core.Current = next
		return nil
	}
}

func (m *Machine) signTransaction(event eventbus.Message, cmd SignTransactionCmd) error {
	state := m.State()
	_, ok := state.PendingTransactions[cmd.TxHash]
	if !ok {
		return xlnerrors.New(xlnerrors.KindInvalidCommand, "unknown transaction").WithContext(string(m.id), event.ID)
	}

	priv, err := m.keys.PrivateKeyFor(m.id)
	if err != nil {
		return xlnerrors.Wrap(err, xlnerrors.KindInternal, "key unavailable").WithContext(string(m.id), event.ID)
	}

	sigHex, err := cryptopkg.Engine.Sign(priv, cmd.TxHash)
	if err != nil {
		return xlnerrors.Wrap(err, xlnerrors.KindInternal, "signing failed")
	}

	next := state.Clone().(*State)
	updated := next.PendingTransactions[cmd.TxHash].Clone()
	updated.PartialSignatures[state.PublicKey] = sigHex
	next.PendingTransactions[cmd.TxHash] = updated
	m.core.Current = next

	logger.Debug("transaction signed", "signer", m.id, "txHash", cmd.TxHash.Hex())
	m.bus.Dispatch(eventbus.NewMessage(eventbus.KindEvent, updated, m.id, common.Broadcast), EventTransactionSigned)
	return nil
}

// verifyTransition enforces §4.5: publicKey immutable after construction;
// every stored signature must verify against its public key.
func verifyTransition(from, to machine.State) error {
	fs, ok1 := from.(*State)
	ts, ok2 := to.(*State)
	if !ok1 || !ok2 {
		return xlnerrors.New(xlnerrors.KindInternal, "signer: unexpected state type")
	}
	if fs.PublicKey != "" && fs.PublicKey != ts.PublicKey {
		return xlnerrors.New(xlnerrors.KindInvalidState, "signer public key is immutable")
	}
	for hash, signed := range ts.PendingTransactions {
		for pubKeyHex, sigHex := range signed.PartialSignatures {
			ok, err := cryptopkg.Engine.Verify(pubKeyHex, hash, sigHex)
			if err != nil || !ok {
				return xlnerrors.New(xlnerrors.KindInvalidSignature, "stored signature failed verification")
			}
		}
	}
	return nil
}

func applyTx(state machine.State, event eventbus.Message) (machine.State, error) {
	s, ok := state.(*State)
	if !ok {
		return nil, xlnerrors.New(xlnerrors.KindInternal, "signer: unexpected state type")
	}
	next := s.Clone().(*State)

	switch cmd := event.Payload.(type) {
	case CreateEntityCmd:
		_ = cmd
		next.BumpNonce(event.Sender, next.NonceOf(event.Sender)+1)
		return next, nil

	case RegisterPendingTransactionCmd:
		h := cmd.Tx.Hash()
		if _, exists := next.PendingTransactions[h]; !exists {
			next.PendingTransactions[h] = txtypes.NewSigned(cmd.Tx)
		}
		return next, nil

	default:
		return nil, xlnerrors.New(xlnerrors.KindInvalidCommand, "signer: unrecognized command payload")
	}
}
