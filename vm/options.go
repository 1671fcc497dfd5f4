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

// Package vm implements the stack-based, register-free bytecode interpreter:
// the value stack, call frames, global variables, the allocator-backed heap
// and its garbage collector, and the native-function dispatch boundary.
package vm

import (
	"github.com/cao-lang/cao-lang-go/internal/calog"
)

const DefaultMaxIter uint64 = 1 << 20
const DefaultMaxValueStack = 4096
const DefaultMaxCallStack = 256

// Options configures a single Vm instance.
type Options struct {
	MaxIter       uint64
	MemoryLimit   uint64
	MaxValueStack int
	MaxCallStack  int
	Log           *calog.Logger
}

// Option mutates an Options value.
type Option func(*Options)

// DefaultOptions returns the limits fixed by the specification: a
// one-million instruction budget, the allocator's default byte limit, and
// generous but bounded stacks.
func DefaultOptions() Options {
	return Options{
		MaxIter:       DefaultMaxIter,
		MemoryLimit:   0, // 0 defers to memalloc.DefaultLimit
		MaxValueStack: DefaultMaxValueStack,
		MaxCallStack:  DefaultMaxCallStack,
		Log:           calog.Default,
	}
}

func WithMaxIter(n uint64) Option        { return func(o *Options) { o.MaxIter = n } }
func WithMemoryLimit(n uint64) Option    { return func(o *Options) { o.MemoryLimit = n } }
func WithMaxValueStack(n int) Option     { return func(o *Options) { o.MaxValueStack = n } }
func WithMaxCallStack(n int) Option      { return func(o *Options) { o.MaxCallStack = n } }
func WithLogger(l *calog.Logger) Option  { return func(o *Options) { o.Log = l } }

// NewOptions builds an Options from zero or more Option functions applied
// over the defaults.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
