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

// Package log is the structured, leveled logger used across every package
// in this module. It never wraps the standard library's log package;
// every call site passes alternating key/value context pairs the way the
// rest of the ecosystem does.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
)

// Lvl is a log severity level.
type Lvl int

const (
	LvlError Lvl = iota
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

var levelColor = map[Lvl]*color.Color{
	LvlError: color.New(color.FgRed, color.Bold),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

// Logger is the interface every module holds a copy of. NewWith returns a
// derived logger carrying extra persistent context.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	NewWith(ctx ...interface{}) Logger
}

type root struct {
	mu     sync.Mutex
	out    io.Writer
	lvl    Lvl
	module string
	ctx    []interface{}
	color  bool
}

// Module name constants, one per package that calls NewModuleLogger. Kept
// centrally so log output is grep-able by module across the codebase.
const (
	ModuleCommon        = "common"
	ModuleEventBus      = "eventbus"
	ModuleActor         = "actor"
	ModuleMachine       = "machine"
	ModuleServer        = "server"
	ModuleSigner        = "signer"
	ModuleEntity        = "entity"
	ModuleChannel       = "channel"
	ModuleHierarchy     = "hierarchy"
	ModuleGossip        = "gossip"
	ModuleOrchestrator  = "orchestrator"
	ModuleStorageDB     = "storage"
	ModuleCrypto        = "crypto"
	ModuleCmd           = "cmd"
	ModuleDashboard     = "dashboard"
)

var defaultLevel = LvlInfo

func init() {
	if v := os.Getenv("XLN_LOG_LEVEL"); v != "" {
		switch v {
		case "trace":
			defaultLevel = LvlTrace
		case "debug":
			defaultLevel = LvlDebug
		case "warn":
			defaultLevel = LvlWarn
		case "error":
			defaultLevel = LvlError
		default:
			defaultLevel = LvlInfo
		}
	}
}

// NewModuleLogger returns a Logger tagged with module, writing colorized
// output to stderr when attached to a terminal.
func NewModuleLogger(module string) Logger {
	return &root{
		out:    colorable.NewColorableStderr(),
		lvl:    defaultLevel,
		module: module,
		color:  true,
	}
}

func (r *root) NewWith(ctx ...interface{}) Logger {
	nctx := make([]interface{}, 0, len(r.ctx)+len(ctx))
	nctx = append(nctx, r.ctx...)
	nctx = append(nctx, ctx...)
	return &root{out: r.out, lvl: r.lvl, module: r.module, ctx: nctx, color: r.color}
}

func (r *root) log(lvl Lvl, msg string, ctx []interface{}) {
	if lvl > r.lvl {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	caller := ""
	if cs := stack.Caller(2); true {
		caller = fmt.Sprintf("%+v", cs)
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString(" ")
	tag := lvl.String()
	if r.color {
		tag = levelColor[lvl].Sprint(tag)
	}
	b.WriteString(tag)
	b.WriteString(" [")
	b.WriteString(r.module)
	b.WriteString("] ")
	b.WriteString(msg)

	all := make([]interface{}, 0, len(r.ctx)+len(ctx))
	all = append(all, r.ctx...)
	all = append(all, ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	if len(all)%2 == 1 {
		fmt.Fprintf(&b, " %v=%s", all[len(all)-1], "MISSING")
	}
	fmt.Fprintf(&b, " caller=%s\n", caller)
	io.WriteString(r.out, b.String())
}

func (r *root) Trace(msg string, ctx ...interface{}) { r.log(LvlTrace, msg, ctx) }
func (r *root) Debug(msg string, ctx ...interface{}) { r.log(LvlDebug, msg, ctx) }
func (r *root) Info(msg string, ctx ...interface{})  { r.log(LvlInfo, msg, ctx) }
func (r *root) Warn(msg string, ctx ...interface{})  { r.log(LvlWarn, msg, ctx) }
func (r *root) Error(msg string, ctx ...interface{}) { r.log(LvlError, msg, ctx) }
