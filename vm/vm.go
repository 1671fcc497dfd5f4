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
	"github.com/google/uuid"

	"github.com/cao-lang/cao-lang-go/bytecode"
	"github.com/cao-lang/cao-lang-go/internal/calog"
	"github.com/cao-lang/cao-lang-go/internal/memalloc"
	"github.com/cao-lang/cao-lang-go/procedures"
	"github.com/cao-lang/cao-lang-go/value"
)

// Vm is a single, single-threaded interpreter instance over a
// bytecode.CompiledProgram. Hosts running scripts from multiple goroutines
// construct one Vm per goroutine; CompiledProgram itself is immutable and
// safe to share.
type Vm struct {
	RunID uuid.UUID

	program *bytecode.CompiledProgram
	natives *procedures.Registry
	log     *calog.Logger

	stack   []value.Value
	frames  []CallFrame
	globals []value.Value

	alloc        *memalloc.Allocator
	objectsHead  *value.Object
	openUpvalues *value.Object
	grayStack    []*value.Object

	maxIter      uint64
	maxCallStack int
}

// New constructs a Vm bound to program. program must outlive the Vm (it is
// never mutated or copied).
func New(program *bytecode.CompiledProgram, opts Options) *Vm {
	vm := &Vm{
		RunID:        uuid.New(),
		program:      program,
		natives:      procedures.NewRegistry(),
		log:          opts.Log,
		stack:        make([]value.Value, 0, opts.MaxValueStack),
		alloc:        memalloc.New(opts.MemoryLimit),
		maxIter:      opts.MaxIter,
		maxCallStack: opts.MaxCallStack,
	}
	if vm.log == nil {
		vm.log = calog.Default
	}
	vm.alloc.SetGCFunc(vm.collectGarbage)
	return vm
}

// RegisterFunction registers a native Go callable under name, overwriting
// any previous registration with a colliding hash.
func (vm *Vm) RegisterFunction(name string, arity int, fn procedures.Callable) {
	vm.natives.Register(name, arity, fn)
}

func (vm *Vm) registerObject(obj *value.Object) *value.Object {
	obj.Next = vm.objectsHead
	vm.objectsHead = obj
	return obj
}

// newObject charges obj against the allocator and links it into the
// object list in one step, the path every opcode that creates heap state
// (InitTable, StringLiteral, FunctionPointer, Closure, ...) goes through.
func (vm *Vm) newObject(obj *value.Object) (*value.Object, error) {
	if err := vm.allocate(obj); err != nil {
		return nil, err
	}
	return vm.registerObject(obj), nil
}

// globalSlot returns a pointer to global id, growing the globals vector with
// Nil as needed.
func (vm *Vm) globalSlot(id uint32) *value.Value {
	for uint32(len(vm.globals)) <= id {
		vm.globals = append(vm.globals, value.Nil)
	}
	return &vm.globals[id]
}

func (vm *Vm) currentFrame() *CallFrame { return &vm.frames[len(vm.frames)-1] }
