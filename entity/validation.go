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
	cryptopkg "github.com/adimov-eth/xln/crypto"
	"github.com/adimov-eth/xln/txtypes"
	"github.com/adimov-eth/xln/xlnerrors"
)

// ValidationReport is the per-signer diagnostic of §4.6's transaction
// validation bullet: tx.nonce must exceed the entity's current nonce, and
// every present partial signature must verify; absent signatures are not
// errors, only gaps toward the weighted threshold.
type ValidationReport struct {
	NonceOK       bool
	ThresholdMet  bool
	WeightSum     uint32
	PerSignerErrs map[string]error
}

// OK reports whether the transaction is fully valid and ready to execute.
func (r ValidationReport) OK() bool {
	return r.NonceOK && r.ThresholdMet && len(r.PerSignerErrs) == 0
}

// ValidateTransaction checks signed against cfg and currentNonce. It never
// mutates signed; callers decide what to do with a failing report.
func ValidateTransaction(cfg Config, signed txtypes.SignedTransaction, currentNonce uint64) ValidationReport {
	report := ValidationReport{
		NonceOK:       signed.Tx.Nonce > currentNonce,
		PerSignerErrs: map[string]error{},
	}

	approved := make(map[string]bool, len(signed.PartialSignatures))
	hash := signed.Tx.Hash()
	for signerKey, weight := range cfg.Signers {
		sigHex, present := signed.PartialSignatures[signerKey]
		if !present {
			continue
		}
		ok, err := cryptopkg.Engine.Verify(signerKey, hash, sigHex)
		if err != nil {
			report.PerSignerErrs[signerKey] = err
			continue
		}
		if !ok {
			report.PerSignerErrs[signerKey] = xlnerrors.New(xlnerrors.KindInvalidSignature, "signature failed verification for "+signerKey)
			continue
		}
		_ = weight
		approved[signerKey] = true
	}

	report.WeightSum = cfg.WeightedSum(approved)
	report.ThresholdMet = report.WeightSum >= cfg.Threshold
	return report
}
