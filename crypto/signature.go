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
	"github.com/btcsuite/btcd/btcec/v2"
	btecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/common"
)

// DigestLength is the size of the digest SignatureEngine signs and
// verifies. §9 resolves the open question of raw-bytes-vs-hex-ASCII in
// favor of the raw 32-byte digest, applied consistently on both ends.
const DigestLength = common.HashLength

// SignatureEngine signs and verifies secp256k1 ECDSA signatures over
// 32-byte digests, producing the r||s 128-hex-char format of §6.
type SignatureEngine struct{}

// Engine is the stateless, concurrency-safe default instance.
var Engine = SignatureEngine{}

// Sign produces a deterministic (RFC-6979) signature over digest, encoded
// as 128 lowercase hex chars (32-byte r, 32-byte s, zero-padded).
func (SignatureEngine) Sign(priv *btcec.PrivateKey, digest common.Hash) (string, error) {
	sig := btecdsa.Sign(priv, digest[:])
	return encodeSignature(sig), nil
}

// Verify checks sigHex against digest under the compressed public key
// encoded as 66 hex chars.
func (SignatureEngine) Verify(pubKeyHex string, digest common.Hash, sigHex string) (bool, error) {
	pub, err := DecodePublicKey(pubKeyHex)
	if err != nil {
		return false, err
	}
	r, s, err := decodeSignature(sigHex)
	if err != nil {
		return false, err
	}
	sig := btecdsa.NewSignature(r, s)
	return sig.Verify(digest[:], pub), nil
}

// DecodePublicKey parses the 66-hex-char compressed secp256k1 public key
// format of §6.
func DecodePublicKey(hexStr string) (*btcec.PublicKey, error) {
	b, err := common.HexToBytes(hexStr)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: invalid public key hex")
	}
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: invalid public key")
	}
	return pub, nil
}

func encodeSignature(sig *btecdsa.Signature) string {
	// Signature.Serialize() returns DER; we want the fixed-width r||s form
	// named in §6, so re-derive r/s as 32-byte big-endian scalars.
	b := sig.Serialize()
	r, s := parseDER(b)
	out := make([]byte, 0, 64)
	out = append(out, leftPad32(r)...)
	out = append(out, leftPad32(s)...)
	return common.BytesToHex(out)
}

func decodeSignature(hexStr string) (*btcec.ModNScalar, *btcec.ModNScalar, error) {
	b, err := common.HexToBytes(hexStr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "crypto: invalid signature hex")
	}
	if len(b) != 64 {
		return nil, nil, errors.Errorf("crypto: invalid signature length %d, want 64", len(b))
	}
	var r, s btcec.ModNScalar
	r.SetByteSlice(b[:32])
	s.SetByteSlice(b[32:])
	return &r, &s, nil
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// parseDER extracts r and s from a minimally-encoded ASN.1 DER ECDSA
// signature, avoiding a dependency on encoding/asn1 for two integers.
func parseDER(der []byte) (r, s []byte) {
	// 0x30 len 0x02 rlen r 0x02 slen s
	if len(der) < 6 || der[0] != 0x30 {
		return nil, nil
	}
	i := 2
	if der[i] != 0x02 {
		return nil, nil
	}
	rlen := int(der[i+1])
	r = der[i+2 : i+2+rlen]
	i = i + 2 + rlen
	if der[i] != 0x02 {
		return nil, nil
	}
	slen := int(der[i+1])
	s = der[i+2 : i+2+slen]
	// strip a leading 0x00 sign-padding byte, if present.
	r = trimLeadingZero(r)
	s = trimLeadingZero(s)
	return r, s
}

func trimLeadingZero(b []byte) []byte {
	if len(b) > 1 && b[0] == 0x00 {
		return b[1:]
	}
	return b
}

