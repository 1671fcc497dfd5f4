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

package value

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrNotSnapshotable is returned by NewOwnedValue when asked to snapshot a
// bare Upvalue: an Upvalue only ever exists as a Closure's capture slot, and
// a Closure snapshots its upvalues' current contents directly (see
// newOwnedObject), so a caller should never reach one on its own.
var ErrNotSnapshotable = errors.New("value: cannot snapshot a bare upvalue")

// OwnedKind discriminates the variants of an OwnedValue.
type OwnedKind uint8

const (
	OwnedNil OwnedKind = iota
	OwnedInteger
	OwnedReal
	OwnedString
	OwnedTable
	OwnedFunction
	OwnedNativeFunction
	OwnedClosure
)

// OwnedEntry is one key/value pair of an OwnedTable, in the source table's
// insertion order.
type OwnedEntry struct {
	Key   OwnedValue
	Value OwnedValue
}

// OwnedValue is a deep-copied, allocator-independent snapshot of a Value: it
// holds no pointer into any Vm's heap and outlives Vm.Clear or a Vm's entire
// lifetime. Hosts that need to stash a Value past the next VM mutation (the
// point at which a plain Value, a borrow into VM memory, may dangle or be
// reused) convert it to an OwnedValue first and convert back with
// Vm.InsertOwnedValue when they need it live again.
type OwnedValue struct {
	Kind     OwnedKind
	Integer  int64
	Real     float64
	Str      []byte
	Entries  []OwnedEntry
	Function FunctionRef
	Native   NativeRef
	Upvalues []OwnedValue // a Closure's captured values, in declaration order
}

// NewOwnedValue deep-copies v out of whatever Vm heap it lives in (if any).
func NewOwnedValue(v Value) (OwnedValue, error) {
	switch v.tag {
	case TagNil:
		return OwnedValue{Kind: OwnedNil}, nil
	case TagInteger:
		return OwnedValue{Kind: OwnedInteger, Integer: v.AsInteger()}, nil
	case TagReal:
		return OwnedValue{Kind: OwnedReal, Real: v.AsReal()}, nil
	case TagObject:
		return newOwnedObject(v.obj)
	default:
		return OwnedValue{}, fmt.Errorf("value: unknown tag %d", v.tag)
	}
}

func newOwnedObject(o *Object) (OwnedValue, error) {
	switch o.Kind {
	case KindString:
		b := make([]byte, len(o.Str.Bytes))
		copy(b, o.Str.Bytes)
		return OwnedValue{Kind: OwnedString, Str: b}, nil

	case KindTable:
		keys := o.Table.Keys()
		entries := make([]OwnedEntry, 0, len(keys))
		for i, k := range keys {
			v, _ := o.Table.NthValue(i)
			ok, err := NewOwnedValue(k)
			if err != nil {
				return OwnedValue{}, err
			}
			ov, err := NewOwnedValue(v)
			if err != nil {
				return OwnedValue{}, err
			}
			entries = append(entries, OwnedEntry{Key: ok, Value: ov})
		}
		return OwnedValue{Kind: OwnedTable, Entries: entries}, nil

	case KindFunction:
		return OwnedValue{Kind: OwnedFunction, Function: *o.Function}, nil

	case KindNativeFunction:
		return OwnedValue{Kind: OwnedNativeFunction, Native: *o.Native}, nil

	case KindClosure:
		ups := make([]OwnedValue, len(o.Closure.Upvalues))
		for i, uvObj := range o.Closure.Upvalues {
			uv := uvObj.Upvalue
			cur := uv.Value
			if uv.Open {
				cur = *uv.Location
			}
			ov, err := NewOwnedValue(cur)
			if err != nil {
				return OwnedValue{}, err
			}
			ups[i] = ov
		}
		return OwnedValue{Kind: OwnedClosure, Function: o.Closure.Function, Upvalues: ups}, nil

	case KindUpvalue:
		return OwnedValue{}, ErrNotSnapshotable

	default:
		return OwnedValue{}, fmt.Errorf("value: unknown object kind %d", o.Kind)
	}
}

// Equal reports whether a and b are deeply equal snapshots: same shape, same
// scalars, same table entries in the same order, same closure captures.
// Function/NativeFunction equality is by handle only, matching Value
// equality for those kinds elsewhere in the package.
func (a OwnedValue) Equal(b OwnedValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case OwnedNil:
		return true
	case OwnedInteger:
		return a.Integer == b.Integer
	case OwnedReal:
		return a.Real == b.Real
	case OwnedString:
		return bytes.Equal(a.Str, b.Str)
	case OwnedFunction:
		return a.Function == b.Function
	case OwnedNativeFunction:
		return a.Native == b.Native
	case OwnedTable:
		if len(a.Entries) != len(b.Entries) {
			return false
		}
		for i := range a.Entries {
			if !a.Entries[i].Key.Equal(b.Entries[i].Key) || !a.Entries[i].Value.Equal(b.Entries[i].Value) {
				return false
			}
		}
		return true
	case OwnedClosure:
		if a.Function != b.Function || len(a.Upvalues) != len(b.Upvalues) {
			return false
		}
		for i := range a.Upvalues {
			if !a.Upvalues[i].Equal(b.Upvalues[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
