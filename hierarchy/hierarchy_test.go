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

package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/crypto"
	"github.com/adimov-eth/xln/entity"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/server"
	"github.com/adimov-eth/xln/signer"
)

func newTestKeys(t *testing.T, id string) crypto.Keys {
	t.Helper()
	keys := crypto.New()
	require.NoError(t, keys.Bootstrap(nil))
	_, err := keys.Generate(id)
	require.NoError(t, err)
	return keys
}

func TestConnectSignerToEntityRegistersOnBusAndServer(t *testing.T) {
	bus := eventbus.New()
	keys := newTestKeys(t, "sig1")
	srv := server.New("srv1", bus, server.DefaultConfig())
	RegisterServerOnEventBus(bus, srv)

	sm, err := ConnectSignerToEntity(srv, bus, "sig1", keys)
	require.NoError(t, err)
	assert.NotNil(t, bus.Mailbox("sig1"))
	assert.NotEmpty(t, sm.State().PublicKey)
}

func TestCreateEntityForSignerDefaultsToSoleOwnerConfig(t *testing.T) {
	bus := eventbus.New()
	keys := newTestKeys(t, "sig1")
	srv := server.New("srv1", bus, server.DefaultConfig())
	RegisterServerOnEventBus(bus, srv)
	sm, err := ConnectSignerToEntity(srv, bus, "sig1", keys)
	require.NoError(t, err)

	em, err := CreateEntityForSigner(bus, sm, "ent1", entity.Config{}, 16)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), em.State().Config.Threshold)
	assert.Equal(t, uint32(1), em.State().Config.Signers[sm.State().PublicKey])
	assert.NotNil(t, bus.Mailbox("ent1"))
}

func TestAttachEntityToServerRegistersChildSubmachine(t *testing.T) {
	bus := eventbus.New()
	srv := server.New("srv1", bus, server.DefaultConfig())
	RegisterServerOnEventBus(bus, srv)

	require.NoError(t, AttachEntityToServer(srv, "ent1"))
	_, ok := srv.State().Submachines["ent1"]
	assert.True(t, ok)
}

func TestRegisterSignerOnEventBusIsIdempotent(t *testing.T) {
	bus := eventbus.New()
	keys := newTestKeys(t, "sig1")
	pubHex, err := keys.PublicKeyHexFor("sig1")
	require.NoError(t, err)
	sm := signer.New("sig1", pubHex, bus, keys)

	RegisterSignerOnEventBus(bus, sm)
	assert.NotPanics(t, func() { RegisterSignerOnEventBus(bus, sm) })
}
