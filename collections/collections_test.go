// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.
//
// Cao-Lang is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package collections

import (
	"testing"
)

func TestHandleTableInsertGet(t *testing.T) {
	tbl := NewHandleTable[string]()
	for i := 0; i < 200; i++ {
		tbl.Insert(Handle(i+1), "v")
	}
	if tbl.Len() != 200 {
		t.Fatalf("expected 200 entries, got %d", tbl.Len())
	}
	for i := 0; i < 200; i++ {
		if _, ok := tbl.Get(Handle(i + 1)); !ok {
			t.Fatalf("missing key %d after grow", i+1)
		}
	}
}

func TestHandleTableOverwrite(t *testing.T) {
	tbl := NewHandleTable[int]()
	tbl.Insert(Handle(1), 1)
	tbl.Insert(Handle(1), 2)
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", tbl.Len())
	}
	v, ok := tbl.Get(Handle(1))
	if !ok || v != 2 {
		t.Fatalf("expected overwritten value 2, got %v ok=%v", v, ok)
	}
}

func TestHandleTableRemove(t *testing.T) {
	tbl := NewHandleTable[int]()
	tbl.Insert(Handle(1), 1)
	if !tbl.Remove(Handle(1)) {
		t.Fatal("expected remove to succeed")
	}
	if _, ok := tbl.Get(Handle(1)); ok {
		t.Fatal("expected key to be gone")
	}
}

func hashInt(k int) uint32 { return uint32(k)*2654435761 + 1 }

func TestHashMapBackshiftPreservesLookup(t *testing.T) {
	m := NewHashMap[int, int](hashInt)
	for i := 0; i < 64; i++ {
		m.Insert(i, i*10)
	}
	// Remove every third key and verify the rest remain reachable: this
	// exercises the backshift path whenever a removed slot sat in the
	// middle of a collision chain.
	for i := 0; i < 64; i += 3 {
		if !m.Remove(i) {
			t.Fatalf("remove of %d failed", i)
		}
	}
	for i := 0; i < 64; i++ {
		v, ok := m.Get(i)
		if i%3 == 0 {
			if ok {
				t.Fatalf("key %d should have been removed", i)
			}
			continue
		}
		if !ok || v != i*10 {
			t.Fatalf("key %d: got %v, %v", i, v, ok)
		}
	}
}

func TestHashMapEntry(t *testing.T) {
	m := NewHashMap[int, string](hashInt)
	e := m.EntryAt(5)
	if _, ok := e.Occupied(); ok {
		t.Fatal("expected vacant entry")
	}
	e.Write("hello")
	v, ok := m.Get(5)
	if !ok || v != "hello" {
		t.Fatalf("expected hello, got %v %v", v, ok)
	}
}

func TestGrowCapacityIsPowerOfTwo(t *testing.T) {
	for _, c := range []int{1, 2, 7, 8, 100} {
		g := growCapacity(c)
		if g&(g-1) != 0 {
			t.Fatalf("growCapacity(%d) = %d, not a power of two", c, g)
		}
		if g <= c {
			t.Fatalf("growCapacity(%d) = %d did not grow", c, g)
		}
	}
}

func TestHashNameNonZero(t *testing.T) {
	if HashName("") == 0 {
		t.Fatal("hash of empty name must not be zero")
	}
	if HashName("main") == HashName("std") {
		t.Fatal("unexpected collision between distinct names (check fixtures)")
	}
}
