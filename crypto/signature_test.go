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

func TestSignVerifyRoundTrips(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	digest := common.BytesToHash([]byte("a block header digest"))
	sigHex, err := Engine.Sign(priv, digest)
	require.NoError(t, err)
	assert.Len(t, sigHex, 128, "r||s signature must be 64 bytes hex-encoded")

	pubHex := common.BytesToHex(priv.PubKey().SerializeCompressed())
	ok, err := Engine.Verify(pubHex, digest, sigHex)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	digest := common.BytesToHash([]byte("original"))
	sigHex, err := Engine.Sign(priv, digest)
	require.NoError(t, err)

	tampered := common.BytesToHash([]byte("tampered"))
	pubHex := common.BytesToHex(priv.PubKey().SerializeCompressed())
	ok, err := Engine.Verify(pubHex, tampered, sigHex)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	digest := common.BytesToHash([]byte("payload"))
	sigHex, err := Engine.Sign(priv, digest)
	require.NoError(t, err)

	otherPubHex := common.BytesToHex(other.PubKey().SerializeCompressed())
	ok, err := Engine.Verify(otherPubHex, digest, sigHex)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedSignatureHex(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubHex := common.BytesToHex(priv.PubKey().SerializeCompressed())

	_, err = Engine.Verify(pubHex, common.ZeroHash, "not-hex")
	assert.Error(t, err)
}

func TestDecodePublicKeyRejectsInvalidHex(t *testing.T) {
	_, err := DecodePublicKey("zz")
	assert.Error(t, err)
}
