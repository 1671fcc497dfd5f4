// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.

package value

import "testing"

func TestOwnedValueScalarsRoundTrip(t *testing.T) {
	for _, v := range []Value{Nil, Int(42), Int(-1), Real(3.5)} {
		ov, err := NewOwnedValue(v)
		if err != nil {
			t.Fatalf("NewOwnedValue(%v): %v", v, err)
		}
		ov2, err := NewOwnedValue(v)
		if err != nil {
			t.Fatalf("NewOwnedValue(%v) second call: %v", v, err)
		}
		if !ov.Equal(ov2) {
			t.Fatalf("snapshot of %v not equal to itself: %+v vs %+v", v, ov, ov2)
		}
	}
}

func TestOwnedValueStringIsDeepCopy(t *testing.T) {
	obj := NewStringObject([]byte("hello"))
	v := FromObject(obj)

	ov, err := NewOwnedValue(v)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Kind != OwnedString || string(ov.Str) != "hello" {
		t.Fatalf("expected owned string %q, got %+v", "hello", ov)
	}

	// Mutating the snapshot's backing bytes must not alias the Object's.
	ov.Str[0] = 'H'
	if string(obj.Str.Bytes) != "hello" {
		t.Fatalf("OwnedValue string shares storage with the source Object")
	}
}

func TestOwnedValueTablePreservesOrderAndNesting(t *testing.T) {
	inner := NewTable()
	_ = inner.Set(Int(0), Int(7))
	innerObj := &Object{Kind: KindTable, Table: inner}

	outer := NewTable()
	_ = outer.Set(FromObject(NewStringObject([]byte("a"))), Int(1))
	_ = outer.Set(FromObject(NewStringObject([]byte("b"))), FromObject(innerObj))

	ov, err := NewOwnedValue(FromObject(&Object{Kind: KindTable, Table: outer}))
	if err != nil {
		t.Fatal(err)
	}
	if ov.Kind != OwnedTable || len(ov.Entries) != 2 {
		t.Fatalf("expected a 2-entry owned table, got %+v", ov)
	}
	if ov.Entries[0].Key.Kind != OwnedString || string(ov.Entries[0].Key.Str) != "a" {
		t.Fatalf("expected first key %q, got %+v", "a", ov.Entries[0].Key)
	}
	if ov.Entries[0].Value.Integer != 1 {
		t.Fatalf("expected first value 1, got %+v", ov.Entries[0].Value)
	}
	nested := ov.Entries[1].Value
	if nested.Kind != OwnedTable || len(nested.Entries) != 1 || nested.Entries[0].Value.Integer != 7 {
		t.Fatalf("expected nested table {0: 7}, got %+v", nested)
	}
}

func TestOwnedValueEqualDistinguishesShape(t *testing.T) {
	a := OwnedValue{Kind: OwnedInteger, Integer: 1}
	b := OwnedValue{Kind: OwnedInteger, Integer: 2}
	if a.Equal(b) {
		t.Fatal("differing integers must not compare equal")
	}

	t1 := OwnedValue{Kind: OwnedTable, Entries: []OwnedEntry{{Key: OwnedValue{Kind: OwnedInteger}, Value: a}}}
	t2 := OwnedValue{Kind: OwnedTable, Entries: []OwnedEntry{{Key: OwnedValue{Kind: OwnedInteger}, Value: b}}}
	if t1.Equal(t2) {
		t.Fatal("tables differing in a nested value must not compare equal")
	}
}

func TestOwnedValueRejectsBareUpvalue(t *testing.T) {
	slot := Int(5)
	obj := NewOpenUpvalueObject(&slot)
	_, err := NewOwnedValue(FromObject(obj))
	if err != ErrNotSnapshotable {
		t.Fatalf("expected ErrNotSnapshotable, got %v", err)
	}
}
