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

import "fmt"

// Mark is the tri-color mark used by the GC's mark-sweep cycle.
type Mark uint8

const (
	White Mark = iota // not yet visited this cycle; swept if still White at the end
	Gray             // discovered, not yet had its children pushed
	Black            // discovered and fully processed
)

// Kind discriminates the body an Object carries.
type Kind uint8

const (
	KindTable Kind = iota
	KindString
	KindFunction
	KindNativeFunction
	KindClosure
	KindUpvalue
)

// FunctionRef identifies a compiled function by its label Handle and
// declared arity. It is a plain value, not itself a heap Object: a Closure
// refers to its function only by FunctionRef, so the GC never needs to mark
// it (see Object.Kind == KindClosure below). Pushing a bare function value
// with the FunctionPointer opcode wraps a FunctionRef in an Object of Kind
// KindFunction so it can live on the stack as a Value.
type FunctionRef struct {
	Handle uint32
	Arity  uint32
}

// NativeRef identifies a host-registered native function by its Handle.
type NativeRef struct {
	Handle uint32
}

// CaoString is the body of a KindString Object: immutable UTF-8 bytes.
type CaoString struct {
	Bytes []byte
}

// ClosureObj is the body of a KindClosure Object.
type ClosureObj struct {
	Function  FunctionRef
	Upvalues  []*Object // each points at a KindUpvalue Object
}

// UpvalueObj is the body of a KindUpvalue Object. While Open, Location
// points into the owning Vm's value stack; Closing copies *Location into
// Value and repoints Location at &Value.
type UpvalueObj struct {
	Location *Value
	Value    Value
	Open     bool
	// NextOpen links this upvalue into the Vm's open-upvalue list, sorted
	// strictly descending by Location, so closing proceeds from the top of
	// the stack down until the target is crossed.
	NextOpen *Object
}

// Object is a single GC-managed heap cell. Exactly one of the typed fields
// matching Kind is populated. Objects form an intrusive singly-linked list
// via Next so the GC can sweep every object a Vm has ever allocated without
// a separate registry.
type Object struct {
	Mark Mark
	Kind Kind
	Next *Object

	// Size is the nominal byte size memalloc charges for this object: a
	// conservative per-kind estimate (base struct overhead plus any
	// variable-length payload), not an exact unsafe.Sizeof accounting. The Vm
	// reports it to the allocator on creation and on sweep.
	Size uintptr

	Table    *Table
	Str      *CaoString
	Function *FunctionRef
	Native   *NativeRef
	Closure  *ClosureObj
	Upvalue  *UpvalueObj
}

const (
	sizeTableBase    = 64
	sizeStringBase   = 16
	sizeFunctionBase = 16
	sizeNativeBase   = 16
	sizeClosureBase  = 24
	sizeUpvalueBase  = 24
	sizePerUpvalue   = 8
)

func (o *Object) String() string {
	switch o.Kind {
	case KindTable:
		return o.Table.String()
	case KindString:
		return string(o.Str.Bytes)
	case KindFunction:
		return fmt.Sprintf("<function %08x/%d>", o.Function.Handle, o.Function.Arity)
	case KindNativeFunction:
		return fmt.Sprintf("<native %08x>", o.Native.Handle)
	case KindClosure:
		return fmt.Sprintf("<closure %08x>", o.Closure.Function.Handle)
	case KindUpvalue:
		return fmt.Sprintf("<upvalue %v>", o.Upvalue.Value)
	default:
		return "<object>"
	}
}

// Len returns the object's length per the Len opcode: a Table's key count or
// a String's byte count; zero for every other kind.
func (o *Object) Len() int {
	switch o.Kind {
	case KindTable:
		return o.Table.Len()
	case KindString:
		return len(o.Str.Bytes)
	default:
		return 0
	}
}

// NewTableObject allocates a fresh Object wrapping an empty Table.
func NewTableObject() *Object {
	return &Object{Kind: KindTable, Table: NewTable(), Size: sizeTableBase}
}

// NewStringObject allocates a fresh Object wrapping an immutable copy of s.
func NewStringObject(s []byte) *Object {
	cp := make([]byte, len(s))
	copy(cp, s)
	return &Object{Kind: KindString, Str: &CaoString{Bytes: cp}, Size: sizeStringBase + uintptr(len(cp))}
}

// NewFunctionObject wraps ref as a pushable Value.
func NewFunctionObject(ref FunctionRef) *Object {
	r := ref
	return &Object{Kind: KindFunction, Function: &r, Size: sizeFunctionBase}
}

// NewNativeFunctionObject wraps ref as a pushable Value.
func NewNativeFunctionObject(ref NativeRef) *Object {
	r := ref
	return &Object{Kind: KindNativeFunction, Native: &r, Size: sizeNativeBase}
}

// NewClosureObject allocates a Closure over fn with the given upvalues
// (each must point at a KindUpvalue Object).
func NewClosureObject(fn FunctionRef, upvalues []*Object) *Object {
	return &Object{
		Kind:    KindClosure,
		Closure: &ClosureObj{Function: fn, Upvalues: upvalues},
		Size:    sizeClosureBase + uintptr(len(upvalues))*sizePerUpvalue,
	}
}

// NewOpenUpvalueObject allocates an Upvalue referencing a live stack slot.
func NewOpenUpvalueObject(location *Value) *Object {
	return &Object{Kind: KindUpvalue, Upvalue: &UpvalueObj{Location: location, Open: true}, Size: sizeUpvalueBase}
}

// NewClosedUpvalueObject allocates an Upvalue that already holds v directly,
// with no live stack Location. Used when reconstructing a Closure from an
// OwnedValue snapshot: the upvalue's original stack slot no longer exists,
// so it is rebuilt already closed.
func NewClosedUpvalueObject(v Value) *Object {
	return &Object{Kind: KindUpvalue, Upvalue: &UpvalueObj{Value: v, Open: false}, Size: sizeUpvalueBase}
}
