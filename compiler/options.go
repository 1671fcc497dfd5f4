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

// Package compiler turns an authoring-time card.Module tree into a
// bytecode.CompiledProgram in two passes: flattening (module tree ->
// namespaced function list, see flatten.go) and code generation (per
// function, see compiler.go).
package compiler

const DefaultMaxRecursionDepth = 64
const DefaultMaxFunctions = 1 << 16
const DefaultMaxCardsPerFunction = 1 << 16
const DefaultMaxLocals = 255

// Options configures a single Compile invocation, in the functional-options
// style used throughout this module for host-tunable limits.
type Options struct {
	MaxRecursionDepth   int
	MaxFunctions        int
	MaxCardsPerFunction int
	MaxLocals           int
	SkipStdlib          bool // not read by Compile; the stdlib arrives through Compile's std parameter
}

// Option mutates an Options value.
type Option func(*Options)

// DefaultOptions returns the limits fixed by the specification.
func DefaultOptions() Options {
	return Options{
		MaxRecursionDepth:   DefaultMaxRecursionDepth,
		MaxFunctions:        DefaultMaxFunctions,
		MaxCardsPerFunction: DefaultMaxCardsPerFunction,
		MaxLocals:           DefaultMaxLocals,
	}
}

func WithMaxRecursionDepth(n int) Option { return func(o *Options) { o.MaxRecursionDepth = n } }
func WithMaxFunctions(n int) Option      { return func(o *Options) { o.MaxFunctions = n } }
func WithSkipStdlib(skip bool) Option    { return func(o *Options) { o.SkipStdlib = skip } }

// New builds an Options from zero or more Option functions applied over the
// defaults.
func New(opts ...Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
