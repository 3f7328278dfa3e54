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

package crypto

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adimov-eth/xln/common"
)

func TestBootstrapLoadsHexKeys(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	hexKey := common.BytesToHex(priv.Serialize())

	ks := New()
	require.NoError(t, ks.Bootstrap(map[common.MachineId]string{"alice": hexKey}))

	got, err := ks.PrivateKeyFor("alice")
	require.NoError(t, err)
	assert.Equal(t, priv.Serialize(), got.Serialize())
}

func TestBootstrapIsOneShot(t *testing.T) {
	ks := New()
	require.NoError(t, ks.Bootstrap(nil))
	assert.Error(t, ks.Bootstrap(nil), "a second bootstrap call must fail")
}

func TestPrivateKeyForUnknownMachineErrors(t *testing.T) {
	ks := New()
	require.NoError(t, ks.Bootstrap(nil))
	_, err := ks.PrivateKeyFor("ghost")
	assert.Error(t, err)
}

func TestGenerateRegistersAUsableKeypair(t *testing.T) {
	ks := New()
	require.NoError(t, ks.Bootstrap(nil))

	priv, err := ks.Generate("bob")
	require.NoError(t, err)

	got, err := ks.PrivateKeyFor("bob")
	require.NoError(t, err)
	assert.Equal(t, priv.Serialize(), got.Serialize())

	pubHex, err := ks.PublicKeyHexFor("bob")
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHex(priv.PubKey().SerializeCompressed()), pubHex)
}
