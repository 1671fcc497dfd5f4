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

// execCallNative pops the declared arity of args (deepest-first, matching
// the order Call/CallNative compiled them in) off the stack, invokes the
// registered Callable and pushes its result.
func (vm *Vm) execCallNative(handle collections.Handle) error {
	proc, ok := vm.natives.Lookup(handle)
	if !ok {
		return caoerr.NewRuntimeError(caoerr.ProcedureNotFound, "")
	}
	if len(vm.stack) < proc.Arity {
		return caoerr.NewRuntimeError(caoerr.MissingArgument, proc.Name)
	}
	start := len(vm.stack) - proc.Arity
	args := make([]value.Value, proc.Arity)
	copy(args, vm.stack[start:])
	vm.truncateTo(start)

	result, err := proc.Fn(args)
	if err != nil {
		if rt, ok := err.(*caoerr.RuntimeError); ok {
			return rt
		}
		return caoerr.NewTaskFailure(proc.Name, err)
	}
	return vm.push(result)
}
