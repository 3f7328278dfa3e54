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

// Package hierarchy holds the pure constructor functions (§4.8) that wire
// a new submachine into its parent's bookkeeping and onto the shared
// EventBus. None of these functions start a machine's actor loop; callers
// run the returned Machine through actor.Runner themselves.
package hierarchy

import (
	"github.com/adimov-eth/xln/common"
	cryptopkg "github.com/adimov-eth/xln/crypto"
	"github.com/adimov-eth/xln/entity"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/server"
	"github.com/adimov-eth/xln/signer"
)

// CreateEntityForSigner constructs an EntityMachine whose genesis config
// names owner (the creating signer's public key) as sole signer at weight
// 1 and threshold 1 unless cfg is supplied, and dispatches CREATE_ENTITY
// to the parent signer so its pending set records the relationship.
func CreateEntityForSigner(bus *eventbus.Bus, ownerSigner *signer.Machine, entityID common.MachineId, cfg entity.Config, mempoolSize int) (*entity.Machine, error) {
	if cfg.Signers == nil {
		cfg = entity.Config{
			Threshold: 1,
			Signers:   map[string]uint32{ownerSigner.State().PublicKey: 1},
		}
	}
	em, err := entity.New(entityID, cfg, bus, mempoolSize)
	if err != nil {
		return nil, err
	}
	RegisterEntityOnEventBus(bus, em)

	cmd := signer.CreateEntityCmd{EntityID: entityID}
	msg := eventbus.NewMessage(eventbus.KindCommand, cmd, ownerSigner.ID(), ownerSigner.ID())
	if err := ownerSigner.Handle(msg); err != nil {
		return nil, err
	}
	return em, nil
}

// AttachEntityToServer registers entityID as a submachine of srv, as
// §4.4/§4.8 requires before any UPDATE_CHILD_STATE for it will be accepted.
// The registration is applied to srv's current state at once rather than
// queued in its mempool.
func AttachEntityToServer(srv *server.Machine, entityID common.MachineId) error {
	cmd := server.CreateSignerCmd{SignerID: entityID}
	msg := eventbus.NewMessage(eventbus.KindCommand, cmd, srv.ID(), srv.ID())
	core := srv.Core()
	next, err := core.Apply(core.Current, msg)
	if err != nil {
		return err
	}
	core.Current = next
	return nil
}

// ConnectSignerToEntity registers a SignerMachine as a submachine of srv
// (signers live under the server just as entities do, per §2's hierarchy)
// and records its KeyStore identity so later SIGN_TRANSACTION commands
// can find a private key.
func ConnectSignerToEntity(srv *server.Machine, bus *eventbus.Bus, signerID common.MachineId, keys cryptopkg.Keys) (*signer.Machine, error) {
	pubKeyHex, err := keys.PublicKeyHexFor(signerID)
	if err != nil {
		return nil, err
	}
	sm := signer.New(signerID, pubKeyHex, bus, keys)
	RegisterSignerOnEventBus(bus, sm)

	cmd := server.CreateSignerCmd{SignerID: signerID, PublicKeyHex: pubKeyHex}
	msg := eventbus.NewMessage(eventbus.KindCommand, cmd, srv.ID(), srv.ID())
	if err := srv.Handle(msg); err != nil {
		return nil, err
	}
	return sm, nil
}

// RegisterSignerOnEventBus subscribes sm's mailbox on bus so messages
// addressed to its id are routed to it (§4.1). Re-registering an id
// already on the bus is a no-op: hierarchy construction may run this more
// than once for the same machine across a reconnect.
func RegisterSignerOnEventBus(bus *eventbus.Bus, sm *signer.Machine) {
	registerOnce(bus, sm.ID())
}

// RegisterEntityOnEventBus subscribes em's mailbox on bus.
func RegisterEntityOnEventBus(bus *eventbus.Bus, em *entity.Machine) {
	registerOnce(bus, em.ID())
}

// RegisterServerOnEventBus subscribes srv's mailbox on bus.
func RegisterServerOnEventBus(bus *eventbus.Bus, srv *server.Machine) {
	registerOnce(bus, srv.ID())
}

func registerOnce(bus *eventbus.Bus, id common.MachineId) {
	if bus.Mailbox(id) != nil {
		return
	}
	_, _ = bus.Register(id)
}
