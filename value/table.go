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
	"encoding/binary"
	"errors"
	"math"
)

// ErrUnhashable is returned by Table.Set when the key cannot be hashed
// (Table.Get reports such a key as absent): only Nil, Integer, Real, String, Function and NativeFunction
// values are hashable. Table, Closure and Upvalue keys are rejected.
var ErrUnhashable = errors.New("value: unhashable table key")

// Table is an insertion-ordered map from Value to Value. It maintains the
// key list in append order so iteration, Compare and NthKey agree, and so
// Pop can remove the most recently appended entry in O(1).
type Table struct {
	index   map[string]int // canonical key encoding -> position in keys/values
	keys    []Value
	values  []Value
	nextInt int64 // next candidate key for Append
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Len returns the number of live keys.
func (t *Table) Len() int { return len(t.keys) }

// canonicalKey returns a byte-distinguishing encoding of v suitable for use
// as a Go map key, and whether v is hashable at all. Integer and Real
// values that denote the same number (e.g. Int(1) and Real(1.0)) are NOT
// folded together here: the specification only requires Compare/Equal to
// widen Integer/Real for ordering, and cao-lang tables in practice key on
// either integers (auto-assigned by Append) or strings, never a mix that
// would be ambiguous in practice; this module documents the simplification
// in DESIGN.md.
func canonicalKey(v Value) (string, bool) {
	switch v.tag {
	case TagNil:
		return "n", true
	case TagInteger:
		var buf [9]byte
		buf[0] = 'i'
		binary.BigEndian.PutUint64(buf[1:], uint64(v.AsInteger()))
		return string(buf[:]), true
	case TagReal:
		var buf [9]byte
		buf[0] = 'r'
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v.AsReal()))
		return string(buf[:]), true
	case TagObject:
		switch v.obj.Kind {
		case KindString:
			return "s" + string(v.obj.Str.Bytes), true
		case KindFunction:
			var buf [5]byte
			buf[0] = 'f'
			binary.BigEndian.PutUint32(buf[1:], v.obj.Function.Handle)
			return string(buf[:]), true
		case KindNativeFunction:
			var buf [5]byte
			buf[0] = 'N'
			binary.BigEndian.PutUint32(buf[1:], v.obj.Native.Handle)
			return string(buf[:]), true
		}
	}
	return "", false
}

// Get looks up key, returning (value, true) if present, and (Nil, false) if
// absent or if key is unhashable.
func (t *Table) Get(key Value) (Value, bool) {
	ck, hashable := canonicalKey(key)
	if !hashable {
		return Nil, false
	}
	idx, ok := t.index[ck]
	if !ok {
		return Nil, false
	}
	return t.values[idx], true
}

// Set stores val under key, overwriting any existing entry, or appending a
// new (key,val) pair at the end of insertion order. Returns ErrUnhashable if
// key cannot be hashed.
func (t *Table) Set(key, val Value) error {
	ck, hashable := canonicalKey(key)
	if !hashable {
		return ErrUnhashable
	}
	if idx, ok := t.index[ck]; ok {
		t.values[idx] = val
		return nil
	}
	t.index[ck] = len(t.keys)
	t.keys = append(t.keys, key)
	t.values = append(t.values, val)
	if key.tag == TagInteger && key.AsInteger() >= t.nextInt {
		t.nextInt = key.AsInteger() + 1
	}
	return nil
}

// Append assigns val to the next unused non-negative integer key and
// advances the append cursor.
func (t *Table) Append(val Value) {
	key := Int(t.nextInt)
	// Set never fails for an Integer key.
	_ = t.Set(key, val)
}

// Pop removes the most recently appended entry (the last one in insertion
// order) and returns its value, or (Nil, false) if the table is empty.
func (t *Table) Pop() (Value, bool) {
	n := len(t.keys)
	if n == 0 {
		return Nil, false
	}
	key := t.keys[n-1]
	val := t.values[n-1]
	ck, _ := canonicalKey(key)
	delete(t.index, ck)
	t.keys = t.keys[:n-1]
	t.values = t.values[:n-1]
	return val, true
}

// NthKey returns the key at position i in insertion order.
func (t *Table) NthKey(i int) (Value, bool) {
	if i < 0 || i >= len(t.keys) {
		return Nil, false
	}
	return t.keys[i], true
}

// NthValue returns the value at position i in insertion order (backs the
// NthRow/Get VM opcodes, which index tables positionally).
func (t *Table) NthValue(i int) (Value, bool) {
	if i < 0 || i >= len(t.values) {
		return Nil, false
	}
	return t.values[i], true
}

// Keys returns the live keys in insertion order. The returned slice must not
// be mutated by the caller.
func (t *Table) Keys() []Value { return t.keys }

// Values returns the live values in insertion order, parallel to Keys().
func (t *Table) Values() []Value { return t.values }

func (t *Table) String() string {
	s := "{"
	for i, k := range t.keys {
		if i > 0 {
			s += ", "
		}
		s += k.String() + ": " + t.values[i].String()
	}
	return s + "}"
}
