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

package compiler

// local is one entry of a function's locals ArrayVec: a named stack slot
// bound at a given lexical scope depth.
type local struct {
	name     string
	depth    int
	slot     uint32
	captured bool // true once a nested closure captures this slot as an upvalue
}

// upvalueDesc records how a closure captures a value from an enclosing
// function: either directly from the immediately enclosing frame's local
// slot (isLocal=true), or by inheriting an upvalue already captured by the
// immediately enclosing closure (isLocal=false, index is that closure's own
// upvalue index).
type upvalueDesc struct {
	name    string
	isLocal bool
	index   uint32
}

// funcState is the compiler's per-function (or per-closure) working state:
// the locals stack, current scope depth, the running trace used to annotate
// errors, and (for closures only) the upvalues captured so far.
type funcState struct {
	namespace []string
	imports   map[string]string
	locals    []local
	scopeDepth int

	cardIndex   uint32 // current card's flattened index, for error traces
	cardCounter uint32 // monotonically increasing, assigns cardIndex

	upvalues   []upvalueDesc
	isClosure  bool
	closureSeq int // next synthetic name suffix for a nested Closure card
}

func newFuncState(namespace []string, imports map[string]string, args []string) *funcState {
	fs := &funcState{namespace: namespace, imports: imports}
	for i, a := range args {
		fs.locals = append(fs.locals, local{name: a, depth: 0, slot: uint32(i)})
	}
	return fs
}

func (fs *funcState) resolveLocal(name string) (uint32, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return fs.locals[i].slot, true
		}
	}
	return 0, false
}

func (fs *funcState) nextSlot() uint32 { return uint32(len(fs.locals)) }

func (fs *funcState) pushLocal(name string) uint32 {
	slot := fs.nextSlot()
	fs.locals = append(fs.locals, local{name: name, depth: fs.scopeDepth, slot: slot})
	return slot
}

// markCaptured flags the local at slot as captured by a nested closure, so
// scope-exit knows to emit CloseUpvalue before popping it.
func (fs *funcState) markCaptured(slot uint32) {
	for i := range fs.locals {
		if fs.locals[i].slot == slot {
			fs.locals[i].captured = true
			return
		}
	}
}
