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

// Package crypto holds the process-wide KeyStore and the secp256k1
// SignatureEngine used by every machine that signs or verifies.
package crypto

import (
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/log"
)

var logger = log.NewModuleLogger(log.ModuleCrypto)

// Keys is the interface KeyStore implements, so tests can inject a fake
// without touching the process singleton.
type Keys interface {
	PrivateKeyFor(id common.MachineId) (*btcec.PrivateKey, error)
	PublicKeyFor(id common.MachineId) (*btcec.PublicKey, error)
	PublicKeyHexFor(id common.MachineId) (string, error)
}

// KeyStore is the process-wide secret holder named in §4/§9. It must be
// bootstrapped exactly once, before any SignerMachine is constructed.
type KeyStore struct {
	mu          sync.RWMutex
	keys        map[common.MachineId]*btcec.PrivateKey
	bootstrapped bool
}

// DefaultKeyStore is the process singleton referenced by concrete machine
// constructors. Tests should construct their own *KeyStore instead of
// touching this one.
var DefaultKeyStore = New()

// New constructs a standalone KeyStore (used by tests and by
// DefaultKeyStore).
func New() *KeyStore {
	return &KeyStore{keys: make(map[common.MachineId]*btcec.PrivateKey)}
}

// Bootstrap loads hex-encoded private keys keyed by machine id. It is
// one-shot: a second call returns an error rather than silently merging,
// since key material must never be replaced once signers depend on it.
func (k *KeyStore) Bootstrap(privateKeysHex map[common.MachineId]string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.bootstrapped {
		return errors.New("crypto: KeyStore already bootstrapped")
	}

	for id, hexKey := range privateKeysHex {
		b, err := common.HexToBytes(hexKey)
		if err != nil {
			return errors.Wrapf(err, "crypto: invalid private key hex for %s", id)
		}
		priv, _ := btcec.PrivKeyFromBytes(b)
		k.keys[id] = priv
	}
	k.bootstrapped = true
	logger.Info("keystore bootstrapped", "machines", len(k.keys))
	return nil
}

// Register installs a single generated keypair, used by orchestrator when
// a node config carries no explicit private key.
func (k *KeyStore) Register(id common.MachineId, priv *btcec.PrivateKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[id] = priv
}

// Generate creates and registers a fresh secp256k1 keypair for id.
func (k *KeyStore) Generate(id common.MachineId) (*btcec.PrivateKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "crypto: key generation failed")
	}
	k.Register(id, priv)
	return priv, nil
}

func (k *KeyStore) PrivateKeyFor(id common.MachineId) (*btcec.PrivateKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	priv, ok := k.keys[id]
	if !ok {
		return nil, errors.Errorf("crypto: no private key registered for machine %s", id)
	}
	return priv, nil
}

func (k *KeyStore) PublicKeyFor(id common.MachineId) (*btcec.PublicKey, error) {
	priv, err := k.PrivateKeyFor(id)
	if err != nil {
		return nil, err
	}
	return priv.PubKey(), nil
}

func (k *KeyStore) PublicKeyHexFor(id common.MachineId) (string, error) {
	pub, err := k.PublicKeyFor(id)
	if err != nil {
		return "", err
	}
	return common.BytesToHex(pub.SerializeCompressed()), nil
}

var _ Keys = (*KeyStore)(nil)
