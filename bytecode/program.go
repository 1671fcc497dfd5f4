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

package bytecode

import (
	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/collections"
)

// Label marks a callable entry point within Bytecode: the jump target table
// pass 1 of the compiler produces, and the table the VM consults on
// CallFunction/FunctionPointer/Closure.
type Label struct {
	Name   string
	Offset uint32
	Arity  uint32
}

// Variables records the global-variable interning table: every global name
// referenced anywhere in the flattened module is assigned a stable numeric
// ID the VM uses as a slice index, alongside the name for diagnostics.
type Variables struct {
	IDs   *collections.HandleTable[uint32]
	Names map[uint32]string
}

// NewVariables returns an empty Variables table.
func NewVariables() *Variables {
	return &Variables{
		IDs:   collections.NewHandleTable[uint32](),
		Names: make(map[uint32]string),
	}
}

// Intern returns the stable ID for name, assigning a fresh one on first use.
func (v *Variables) Intern(name string) uint32 {
	h := collections.HashName(name)
	if id, ok := v.IDs.Get(h); ok {
		return id
	}
	id := uint32(len(v.Names))
	v.IDs.Insert(h, id)
	v.Names[id] = name
	return id
}

// Version identifies the bytecode/data layout a CompiledProgram was produced
// with, so a disassembler or host loading a serialized program can detect a
// version skew before trying to decode it.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint16
}

// CurrentVersion is the version this package's encode/decode helpers
// implement.
var CurrentVersion = Version{Major: 0, Minor: 1, Patch: 0}

// CompiledProgram is the durable output of the compiler: a flat instruction
// stream, a data pool for string literals, the label table callables are
// resolved against, the global-variable interning table, and a trace map
// recovering the authoring-time card path for a given bytecode offset (used
// to attach a caoerr.Trace to a runtime error without carrying source
// positions in every instruction).
type CompiledProgram struct {
	Bytecode  []byte
	Data      []byte
	Labels    *collections.HandleTable[Label]
	Variables *Variables
	Trace     map[uint32]caoerr.Trace
	Version   Version
}

// NewCompiledProgram returns an empty program ready for the compiler to fill
// in.
func NewCompiledProgram() *CompiledProgram {
	return &CompiledProgram{
		Labels:    collections.NewHandleTable[Label](),
		Variables: NewVariables(),
		Trace:     make(map[uint32]caoerr.Trace),
		Version:   CurrentVersion,
	}
}

// TraceAt returns the Trace recorded for the instruction at offset, if any.
func (p *CompiledProgram) TraceAt(offset uint32) (caoerr.Trace, bool) {
	tr, ok := p.Trace[offset]
	return tr, ok
}

// LookupLabel resolves a function handle (as produced by collections.HashName
// on its fully-qualified dotted name) to its Label.
func (p *CompiledProgram) LookupLabel(handle collections.Handle) (Label, bool) {
	return p.Labels.Get(handle)
}
