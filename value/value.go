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

// Package value implements the tagged Value type and the heap Object model
// it may point into: Table, String, Function, NativeFunction, Closure and
// Upvalue. Values are fixed-size and bitwise copyable; Objects are owned
// exclusively by the Vm that allocated them and are only ever reached
// through a Value.
package value

import (
	"fmt"
	"math"
)

// Tag discriminates the four Value variants.
type Tag uint8

const (
	TagNil Tag = iota
	TagInteger
	TagReal
	TagObject
)

// Value is the fixed-size tagged union manipulated by the VM's value stack.
// The zero Value is Nil.
type Value struct {
	tag Tag
	bits uint64 // raw bits of an Integer or a Real, unused for Nil/Object
	obj  *Object
}

// Nil is the default Value.
var Nil = Value{}

// Int wraps an int64 as an Integer Value.
func Int(i int64) Value { return Value{tag: TagInteger, bits: uint64(i)} }

// Real wraps a float64 as a Real Value.
func Real(f float64) Value { return Value{tag: TagReal, bits: math.Float64bits(f)} }

// FromObject wraps a non-nil *Object as an Object Value. Panics if obj is
// nil: Object values are never allowed to hold a nil pointer (use Nil).
func FromObject(obj *Object) Value {
	if obj == nil {
		panic("value: FromObject called with nil object")
	}
	return Value{tag: TagObject, obj: obj}
}

func (v Value) Tag() Tag { return v.tag }
func (v Value) IsNil() bool    { return v.tag == TagNil }
func (v Value) IsInteger() bool { return v.tag == TagInteger }
func (v Value) IsReal() bool    { return v.tag == TagReal }
func (v Value) IsObject() bool  { return v.tag == TagObject }

// AsInteger returns the Integer payload; only valid when IsInteger.
func (v Value) AsInteger() int64 { return int64(v.bits) }

// AsReal returns the Real payload; only valid when IsReal.
func (v Value) AsReal() float64 { return math.Float64frombits(v.bits) }

// AsObject returns the Object pointer; only valid when IsObject.
func (v Value) AsObject() *Object { return v.obj }

// AsBool coerces v to a boolean per the truthiness rules used by
// And/Or/Xor/Not and the GotoIfTrue/GotoIfFalse branches: Nil and the
// integer zero are false, every other Value is true (including 0.0, per the
// original implementation, which only special-cases the integer zero).
func (v Value) AsBool() bool {
	switch v.tag {
	case TagNil:
		return false
	case TagInteger:
		return v.AsInteger() != 0
	default:
		return true
	}
}

// Bool returns the canonical Integer encoding of a boolean (1 or 0), which is
// how the VM represents booleans: there is no dedicated Bool tag.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func (v Value) String() string {
	switch v.tag {
	case TagNil:
		return "nil"
	case TagInteger:
		return fmt.Sprintf("%d", v.AsInteger())
	case TagReal:
		return fmt.Sprintf("%g", v.AsReal())
	case TagObject:
		return v.obj.String()
	default:
		return "<invalid>"
	}
}

// Ordering is the result of comparing two Values.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
	Unordered
)

// widen returns the Real value of an Integer or Real Value; the caller must
// ensure v is one of those two tags.
func widen(v Value) float64 {
	if v.tag == TagInteger {
		return float64(v.AsInteger())
	}
	return v.AsReal()
}

// numeric reports whether both values are Integer or Real (candidates for
// numeric widening comparisons and arithmetic).
func numeric(a, b Value) bool {
	return (a.tag == TagInteger || a.tag == TagReal) && (b.tag == TagInteger || b.tag == TagReal)
}

// Compare implements the partial order described by the specification:
// Integer/Real compare after widening to Real (NaN is incomparable to
// anything, including itself); Objects compare by body (Table
// lexicographically over (key,value) pairs in insertion order, String
// lexicographically over bytes); functions and mismatched-kind comparisons
// are Unordered.
func Compare(a, b Value) Ordering {
	if numeric(a, b) {
		fa, fb := widen(a), widen(b)
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return Unordered
		}
		switch {
		case fa < fb:
			return Less
		case fa > fb:
			return Greater
		default:
			return Equal
		}
	}
	if a.tag == TagNil && b.tag == TagNil {
		return Equal
	}
	if a.tag == TagObject && b.tag == TagObject {
		return compareObjects(a.obj, b.obj)
	}
	return Unordered
}

func compareObjects(a, b *Object) Ordering {
	if a == b {
		return Equal
	}
	if a.Kind != b.Kind {
		return Unordered
	}
	switch a.Kind {
	case KindString:
		return compareBytes(a.Str.Bytes, b.Str.Bytes)
	case KindTable:
		return compareTables(a.Table, b.Table)
	default:
		return Unordered
	}
}

func compareBytes(a, b []byte) Ordering {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] < b[i] {
			return Less
		}
		if a[i] > b[i] {
			return Greater
		}
	}
	switch {
	case len(a) < len(b):
		return Less
	case len(a) > len(b):
		return Greater
	default:
		return Equal
	}
}

func compareTables(a, b *Table) Ordering {
	an, bn := a.Len(), b.Len()
	n := an
	if bn < n {
		n = bn
	}
	for i := 0; i < n; i++ {
		ak, _ := a.NthKey(i)
		bk, _ := b.NthKey(i)
		if ord := Compare(ak, bk); ord != Equal {
			return ord
		}
		av, _ := a.Get(ak)
		bv, _ := b.Get(bk)
		if ord := Compare(av, bv); ord != Equal {
			return ord
		}
	}
	switch {
	case an < bn:
		return Less
	case an > bn:
		return Greater
	default:
		return Equal
	}
}

// ValuesEqual reports structural equality: for numeric values it is
// Compare(a,b) == Equal (so Integer(1) equals Real(1.0)); NaN is never equal
// to anything, including another NaN.
func ValuesEqual(a, b Value) bool {
	return Compare(a, b) == Equal
}

// LessThan reports whether a < b under the partial order; Unordered pairs
// (including any comparison touching NaN) report false, never true.
func LessThan(a, b Value) bool { return Compare(a, b) == Less }

// LessOrEqual reports a <= b.
func LessOrEqual(a, b Value) bool {
	c := Compare(a, b)
	return c == Less || c == Equal
}

// GreaterThan reports a > b.
func GreaterThan(a, b Value) bool { return Compare(a, b) == Greater }

// GreaterOrEqual reports a >= b.
func GreaterOrEqual(a, b Value) bool {
	c := Compare(a, b)
	return c == Greater || c == Equal
}
