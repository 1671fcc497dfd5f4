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

package vm

import (
	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/collections"
	"github.com/cao-lang/cao-lang-go/value"
)

// Run executes the program's entry point ("main") with args bound to its
// arguments, and returns main's final value (whatever its trailing Return
// card computed, or Nil if it fell through to the compiler's implicit one).
func (vm *Vm) Run(args ...value.Value) (value.Value, error) {
	return vm.RunFunction("main", args...)
}

// RunFunction executes the named top-level function as a fresh entry point,
// independent of any previous Run call (the stack and call-frame list are
// reset first; globals and the heap are not). Used by hosts that treat
// several functions in one compiled program as separate callable entry
// points (e.g. running a test harness function after main defines globals).
func (vm *Vm) RunFunction(name string, args ...value.Value) (value.Value, error) {
	handle := collections.HashName(name)
	lbl, ok := vm.program.LookupLabel(handle)
	if !ok {
		return value.Nil, caoerr.NewRuntimeError(caoerr.ProcedureNotFound, name)
	}
	if int(lbl.Arity) != len(args) {
		return value.Nil, caoerr.NewRuntimeError(caoerr.MissingArgument, name)
	}

	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	for _, a := range args {
		if err := vm.push(a); err != nil {
			return value.Nil, err
		}
	}
	vm.frames = append(vm.frames, CallFrame{StackOffset: 0, Handle: uint32(handle)})
	return vm.run(lbl.Offset)
}

// RunFunctionValue synchronously invokes a function or closure Value (such
// as one produced by FunctionPointer/Closure, read back from a global, or
// reconstructed via InsertOwnedValue) with args bound as its arguments, as
// a fresh entry point independent of any previous Run call.
func (vm *Vm) RunFunctionValue(callee value.Value, args ...value.Value) (value.Value, error) {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	for _, a := range args {
		if err := vm.push(a); err != nil {
			return value.Nil, err
		}
	}
	if err := vm.push(callee); err != nil {
		return value.Nil, err
	}
	offset, err := vm.execCall(0)
	if err != nil {
		return value.Nil, err
	}
	return vm.run(offset)
}

// StackPush pushes a Value directly onto the value stack, for hosts driving
// the Vm one opcode group at a time from outside a running program (rare;
// most hosts only ever call Run/RunFunction).
func (vm *Vm) StackPush(v value.Value) error { return vm.push(v) }

// StackPop pops and returns the top Value.
func (vm *Vm) StackPop() value.Value { return vm.pop() }

// InitTable allocates and returns a fresh, empty table Value, charged
// against the Vm's memory budget like any table a running program creates.
func (vm *Vm) InitTable() (value.Value, error) {
	obj, err := vm.newObject(value.NewTableObject())
	if err != nil {
		return value.Nil, err
	}
	return value.FromObject(obj), nil
}

// InitString allocates and returns a fresh string Value holding a copy of s.
func (vm *Vm) InitString(s string) (value.Value, error) {
	obj, err := vm.newObject(value.NewStringObject([]byte(s)))
	if err != nil {
		return value.Nil, err
	}
	return value.FromObject(obj), nil
}

// ReadVarByName reads the current value of a global the compiler interned
// under name, or (Nil, false) if no such global was ever referenced by the
// compiled program.
func (vm *Vm) ReadVarByName(name string) (value.Value, bool) {
	h := collections.HashName(name)
	id, ok := vm.program.Variables.IDs.Get(h)
	if !ok {
		return value.Nil, false
	}
	return vm.ReadVar(id)
}

// ReadVar reads the current value of global id.
func (vm *Vm) ReadVar(id uint32) (value.Value, bool) {
	if int(id) >= len(vm.globals) {
		return value.Nil, false
	}
	return vm.globals[id], true
}

// InsertValue sets global id to v, growing the globals vector as needed.
func (vm *Vm) InsertValue(id uint32, v value.Value) {
	*vm.globalSlot(id) = v
}

// Fingerprint returns the bound program's content fingerprint, for hosts
// that want to confirm which build of a script a running Vm is executing.
func (vm *Vm) Fingerprint() [32]byte { return vm.program.Fingerprint() }
