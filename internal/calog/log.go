// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.
//
// Cao-Lang is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cao-Lang is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Cao-Lang. If not, see <http://www.gnu.org/licenses/>.

// Package calog is the diagnostic logger used by the compiler and VM. It is
// a side channel only: nothing here participates in the compile/runtime
// error contract (see package caoerr). Log records are emitted for GC cycle
// summaries, non-fatal compiler diagnostics (shadowed locals, implicit std
// injection) and native-call failures, never on the instruction dispatch
// hot path.
package calog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "DBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "EROR",
}

var levelColors = [...]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// Logger writes leveled, optionally colorized records to an output stream.
// The zero value is not usable; use New.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	level  Level
	fields []field
}

type field struct {
	key string
	val interface{}
}

// New creates a Logger writing to w. If w is os.Stdout/os.Stderr and the
// descriptor is a terminal, output is colorized and wrapped with
// go-colorable so ANSI sequences render correctly on Windows consoles too.
func New(w io.Writer, level Level) *Logger {
	useColor := false
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = colorable.NewColorable(f)
		useColor = true
	}
	return &Logger{out: w, color: useColor, level: level}
}

// With returns a child Logger that prefixes every record with the given
// key/value pair, in addition to any inherited from the parent.
func (l *Logger) With(key string, val interface{}) *Logger {
	child := &Logger{out: l.out, color: l.color, level: l.level}
	child.fields = append(append([]field(nil), l.fields...), field{key, val})
	return child
}

func (l *Logger) log(lvl Level, skip int, format string, args ...interface{}) {
	if lvl < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	ts := time.Now().Format("15:04:05.000")
	tag := levelNames[lvl]
	if l.color {
		tag = levelColors[lvl].Sprint(tag)
	}
	line := fmt.Sprintf("%s [%s] %s", ts, tag, msg)
	for _, f := range l.fields {
		line += fmt.Sprintf(" %s=%v", f.key, f.val)
	}
	if lvl == LevelError {
		// Error-level records embed the Go call site that raised them; this
		// is the host-process call stack, distinct from the cao-lang trace
		// table attached to caoerr.RuntimeError.
		call := stack.Caller(skip)
		line += fmt.Sprintf(" site=%+v", call)
	}
	fmt.Fprintln(l.out, line)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, 2, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, 2, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, 2, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, 2, format, args...) }

// Default is a package-level logger writing to stderr at LevelInfo; hosts
// that want different behavior construct their own Logger and pass it in
// explicitly (vm.Options.Log).
var Default = New(os.Stderr, LevelInfo)
