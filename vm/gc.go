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
	"github.com/cao-lang/cao-lang-go/internal/memalloc"
	"github.com/cao-lang/cao-lang-go/value"
)

// collectGarbage runs one tri-color mark-sweep cycle. It is wired into the
// allocator via SetGCFunc, so it fires automatically whenever an allocation
// crosses the allocator's growing threshold; hosts never call it directly.
func (vm *Vm) collectGarbage() {
	vm.markRoots()
	vm.propagate()
	vm.sweep()
}

func (vm *Vm) markRoots() {
	for i := range vm.stack {
		vm.markValue(vm.stack[i])
	}
	for i := range vm.frames {
		if c := vm.frames[i].Closure; c != nil {
			vm.markObject(c)
		}
	}
	for _, g := range vm.globals {
		vm.markValue(g)
	}
}

func (vm *Vm) markValue(v value.Value) {
	if v.IsObject() {
		vm.markObject(v.AsObject())
	}
}

func (vm *Vm) markObject(o *value.Object) {
	if o == nil || o.Mark != value.White {
		return
	}
	o.Mark = value.Gray
	vm.grayStack = append(vm.grayStack, o)
}

func (vm *Vm) propagate() {
	for len(vm.grayStack) > 0 {
		n := len(vm.grayStack) - 1
		o := vm.grayStack[n]
		vm.grayStack = vm.grayStack[:n]
		vm.blacken(o)
	}
}

func (vm *Vm) blacken(o *value.Object) {
	o.Mark = value.Black
	switch o.Kind {
	case value.KindTable:
		for _, k := range o.Table.Keys() {
			vm.markValue(k)
		}
		for _, v := range o.Table.Values() {
			vm.markValue(v)
		}
	case value.KindClosure:
		for _, uv := range o.Closure.Upvalues {
			vm.markObject(uv)
		}
	case value.KindUpvalue:
		if o.Upvalue.Open {
			vm.markValue(*o.Upvalue.Location)
		} else {
			vm.markValue(o.Upvalue.Value)
		}
	}
}

// sweep walks the intrusive all-objects list, freeing every Object still
// White (unreached this cycle) and resetting every surviving Object to
// White for the next cycle.
func (vm *Vm) sweep() {
	var head *value.Object
	var tail *value.Object
	for o := vm.objectsHead; o != nil; {
		next := o.Next
		if o.Mark == value.White {
			vm.alloc.Dealloc(memalloc.Layout{Size: o.Size, Align: 8})
		} else {
			o.Mark = value.White
			o.Next = nil
			if head == nil {
				head = o
				tail = o
			} else {
				tail.Next = o
				tail = o
			}
		}
		o = next
	}
	vm.objectsHead = head
}
