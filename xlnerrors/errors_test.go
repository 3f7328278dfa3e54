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

package xlnerrors

import (
	"testing"

	goerrors "errors"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKindAndMessage(t *testing.T) {
	a := New(KindInvalidState, "bad state")
	b := New(KindInvalidState, "bad state")
	assert.True(t, goerrors.Is(a, b))
}

func TestIsRejectsDifferentKind(t *testing.T) {
	a := New(KindInvalidState, "bad state")
	b := New(KindInternal, "bad state")
	assert.False(t, goerrors.Is(a, b))
}

func TestWithContextPreservesKindAndAddsFields(t *testing.T) {
	base := New(KindUnauthorized, "nope")
	withCtx := base.WithContext("machine1", "event1")

	assert.Equal(t, KindUnauthorized, withCtx.Kind)
	assert.Contains(t, withCtx.Error(), "machine=machine1")
	assert.Contains(t, withCtx.Error(), "event=event1")
	assert.NotContains(t, base.Error(), "machine=", "WithContext must not mutate the receiver")
}

func TestKindOfExtractsWrappedKind(t *testing.T) {
	wrapped := Wrap(goerrors.New("root cause"), KindInvalidSignature, "signature check failed")
	assert.Equal(t, KindInvalidSignature, KindOf(wrapped))
}

func TestKindOfDefaultsToInternalForPlainErrors(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(goerrors.New("plain")))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := goerrors.New("root cause")
	wrapped := Wrap(cause, KindNetwork, "dial failed")
	assert.Contains(t, wrapped.Error(), "dial failed")
	assert.Error(t, wrapped.Cause())
}
