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

package log

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *strings.Builder, lvl Lvl) *root {
	return &root{out: buf, lvl: lvl, module: "test", color: false}
}

func TestLogIncludesLevelModuleAndMessage(t *testing.T) {
	var buf strings.Builder
	l := newTestLogger(&buf, LvlInfo)
	l.Info("starting up")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "[test]")
	assert.Contains(t, out, "starting up")
}

func TestLogFiltersBelowConfiguredLevel(t *testing.T) {
	var buf strings.Builder
	l := newTestLogger(&buf, LvlWarn)
	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Error("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestLogFormatsContextAsKeyValuePairs(t *testing.T) {
	var buf strings.Builder
	l := newTestLogger(&buf, LvlInfo)
	l.Info("event", "machine", "ent1", "height", 3)

	out := buf.String()
	assert.Contains(t, out, "machine=ent1")
	assert.Contains(t, out, "height=3")
}

func TestLogFlagsOddContextWithMissingValue(t *testing.T) {
	var buf strings.Builder
	l := newTestLogger(&buf, LvlInfo)
	l.Info("event", "dangling")

	assert.Contains(t, buf.String(), "dangling=MISSING")
}

func TestNewWithMergesPersistentContext(t *testing.T) {
	var buf strings.Builder
	base := newTestLogger(&buf, LvlInfo)
	child := base.NewWith("machine", "ent1")
	child.Info("event", "height", 3)

	out := buf.String()
	assert.Contains(t, out, "machine=ent1")
	assert.Contains(t, out, "height=3")
}

func TestLvlStringUnknownValue(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Lvl(99).String())
}
