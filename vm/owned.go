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
	"fmt"

	"github.com/cao-lang/cao-lang-go/value"
)

// Snapshot deep-copies v (a borrow into this Vm's heap, or a scalar) into an
// OwnedValue detached from the Vm entirely. Hosts call this on anything
// returned from ReadVarByName/Run/RunFunction that must survive past the
// next allocation or Clear.
func (vm *Vm) Snapshot(v value.Value) (value.OwnedValue, error) {
	return value.NewOwnedValue(v)
}

// InsertOwnedValue deep-copies ov into this Vm's heap, allocating whatever
// tables, strings, closures and upvalues it needs, and returns a live Value
// a running program can observe (e.g. via a global written by
// InsertValue, or by pushing it with StackPush). This is the only supported
// way to hand a previously-snapshotted value back to a Vm: plain Values are
// never valid across Vm instances or past a Vm.Clear.
func (vm *Vm) InsertOwnedValue(ov value.OwnedValue) (value.Value, error) {
	switch ov.Kind {
	case value.OwnedNil:
		return value.Nil, nil

	case value.OwnedInteger:
		return value.Int(ov.Integer), nil

	case value.OwnedReal:
		return value.Real(ov.Real), nil

	case value.OwnedString:
		return vm.InitString(string(ov.Str))

	case value.OwnedFunction:
		obj, err := vm.newObject(value.NewFunctionObject(ov.Function))
		if err != nil {
			return value.Nil, err
		}
		return value.FromObject(obj), nil

	case value.OwnedNativeFunction:
		obj, err := vm.newObject(value.NewNativeFunctionObject(ov.Native))
		if err != nil {
			return value.Nil, err
		}
		return value.FromObject(obj), nil

	case value.OwnedTable:
		tv, err := vm.InitTable()
		if err != nil {
			return value.Nil, err
		}
		t := tv.AsObject().Table
		for _, e := range ov.Entries {
			k, err := vm.InsertOwnedValue(e.Key)
			if err != nil {
				return value.Nil, err
			}
			v, err := vm.InsertOwnedValue(e.Value)
			if err != nil {
				return value.Nil, err
			}
			if err := t.Set(k, v); err != nil {
				return value.Nil, err
			}
		}
		return tv, nil

	case value.OwnedClosure:
		ups := make([]*value.Object, len(ov.Upvalues))
		for i, u := range ov.Upvalues {
			uv, err := vm.InsertOwnedValue(u)
			if err != nil {
				return value.Nil, err
			}
			obj, err := vm.newObject(value.NewClosedUpvalueObject(uv))
			if err != nil {
				return value.Nil, err
			}
			ups[i] = obj
		}
		obj, err := vm.newObject(value.NewClosureObject(ov.Function, ups))
		if err != nil {
			return value.Nil, err
		}
		return value.FromObject(obj), nil

	default:
		return value.Nil, fmt.Errorf("vm: unknown owned value kind %d", ov.Kind)
	}
}
