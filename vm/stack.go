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
	"github.com/cao-lang/cao-lang-go/internal/memalloc"
	"github.com/cao-lang/cao-lang-go/value"
)

// valueAt returns a pointer to logical stack slot i within the fixed backing
// array, regardless of the stack's current logical length. The backing array
// never reallocates (vm.stack is never grown past its initial capacity), so
// the pointer remains valid for as long as the Vm lives -- this is what lets
// an open UpvalueObj.Location point directly into the stack.
func (vm *Vm) valueAt(i int) *value.Value {
	full := vm.stack[:cap(vm.stack)]
	return &full[i]
}

func (vm *Vm) push(v value.Value) error {
	if len(vm.stack) >= cap(vm.stack) {
		return caoerr.NewRuntimeError(caoerr.Stackoverflow, "")
	}
	vm.stack = vm.stack[:len(vm.stack)+1]
	*vm.valueAt(len(vm.stack) - 1) = v
	return nil
}

func (vm *Vm) pop() value.Value {
	n := len(vm.stack) - 1
	v := *vm.valueAt(n)
	vm.stack = vm.stack[:n]
	return v
}

func (vm *Vm) peek(fromTop int) value.Value {
	return *vm.valueAt(len(vm.stack) - 1 - fromTop)
}

func (vm *Vm) local(slot uint32) *value.Value {
	return vm.valueAt(vm.currentFrame().StackOffset + int(slot))
}

func (vm *Vm) truncateTo(n int) {
	vm.stack = vm.stack[:n]
}

// captureUpvalue returns the open upvalue referencing location, reusing an
// existing one if a prior closure already captured the same stack slot
// (so two closures over the same enclosing local observe each other's
// writes), or creating and registering a fresh one otherwise.
func (vm *Vm) captureUpvalue(location *value.Value) (*value.Object, error) {
	var prev *value.Object
	cur := vm.openUpvalues
	for cur != nil && uintptrOf(cur.Upvalue.Location) > uintptrOf(location) {
		prev = cur
		cur = cur.Upvalue.NextOpen
	}
	if cur != nil && cur.Upvalue.Location == location {
		return cur, nil
	}
	obj, err := vm.newObject(value.NewOpenUpvalueObject(location))
	if err != nil {
		return nil, err
	}
	obj.Upvalue.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = obj
	} else {
		prev.Upvalue.NextOpen = obj
	}
	return obj, nil
}

// closeUpvaluesFrom closes (copies the value out of, detaches from the
// stack) every open upvalue referencing a stack slot at or above cutoff. It
// is the safety net for locals captured at a function's outermost scope,
// which never get an explicit CloseUpvalue from the compiler since that
// scope has no corresponding enterScope/exitScope pair.
func (vm *Vm) closeUpvaluesFrom(cutoff int) {
	threshold := uintptrOf(vm.valueAt(cutoff))
	for vm.openUpvalues != nil && uintptrOf(vm.openUpvalues.Upvalue.Location) >= threshold {
		uv := vm.openUpvalues.Upvalue
		uv.Value = *uv.Location
		uv.Open = false
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}

// closeUpvalueAt closes the single open upvalue (if any) referencing exactly
// location, used by the explicit CloseUpvalue opcode emitted at scope exit.
func (vm *Vm) closeUpvalueAt(location *value.Value) {
	var prev *value.Object
	cur := vm.openUpvalues
	for cur != nil {
		if cur.Upvalue.Location == location {
			uv := cur.Upvalue
			uv.Value = *uv.Location
			uv.Open = false
			next := uv.NextOpen
			if prev == nil {
				vm.openUpvalues = next
			} else {
				prev.Upvalue.NextOpen = next
			}
			cur.Upvalue.NextOpen = nil
			return
		}
		prev = cur
		cur = cur.Upvalue.NextOpen
	}
}

// allocate charges obj's nominal size against the allocator before the Vm
// links it into the object list, returning OutOfMemory without mutating any
// VM state if the budget would be exceeded.
func (vm *Vm) allocate(obj *value.Object) error {
	if err := vm.alloc.Alloc(memalloc.Layout{Size: obj.Size, Align: 8}); err != nil {
		return caoerr.NewRuntimeError(caoerr.OutOfMemory, err.Error())
	}
	return nil
}

