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

package procedures

import (
	"github.com/cao-lang/cao-lang-go/collections"
	"github.com/cao-lang/cao-lang-go/value"
)

// Callable is a registered native function. It receives its arguments
// already popped off the VM's value stack in declared order (the first
// declared argument is deepest/first in Args) and returns the Value the
// dispatcher pushes back, or an error (typically built with one of this
// package's adapters, or caoerr.NewTaskFailure for a host-side failure).
type Callable func(args []value.Value) (value.Value, error)

// Procedure pairs a registered Callable with the name it was registered
// under, kept for diagnostics (error context).
type Procedure struct {
	Name string
	Arity int
	Fn   Callable
}

// Registry is the native-function table a Vm consults for CallNative.
// Handles collide the same way function labels do (FNV-1a over the name);
// a duplicate registration overwrites the previous entry, matching the
// specification's register_function contract.
type Registry struct {
	procs *collections.HandleTable[Procedure]
}

// NewRegistry returns an empty native-function registry.
func NewRegistry() *Registry {
	return &Registry{procs: collections.NewHandleTable[Procedure]()}
}

// Register stores fn under name, overwriting any previous registration for
// the same name (or for a different name whose hash collides, per the
// specification).
func (r *Registry) Register(name string, arity int, fn Callable) {
	r.procs.Insert(collections.HashName(name), Procedure{Name: name, Arity: arity, Fn: fn})
}

// Lookup resolves a CallNative handle to its registered Procedure.
func (r *Registry) Lookup(handle collections.Handle) (Procedure, bool) {
	return r.procs.Get(handle)
}
