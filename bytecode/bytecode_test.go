// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.

package bytecode

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf []byte
	buf = PutU32(buf, 0xDEADBEEF)
	buf = PutI64(buf, -12345)
	buf = PutF64(buf, 3.5)
	var off uint32
	if got := ReadU32(buf, off); got != 0xDEADBEEF {
		t.Fatalf("u32 round trip: got %x", got)
	}
	off += 4
	if got := ReadI64(buf, off); got != -12345 {
		t.Fatalf("i64 round trip: got %d", got)
	}
	off += 8
	if got := ReadF64(buf, off); got != 3.5 {
		t.Fatalf("f64 round trip: got %v", got)
	}
}

func TestPutStringReadString(t *testing.T) {
	var data []byte
	data, off := PutString(data, "hello cao")
	if got := ReadString(data, off); got != "hello cao" {
		t.Fatalf("expected %q, got %q", "hello cao", got)
	}
}

func TestOpcodeStringAndValid(t *testing.T) {
	if OpAdd.String() != "ADD" {
		t.Fatalf("expected ADD, got %s", OpAdd.String())
	}
	if !OpCloseUpvalue.IsValid() {
		t.Fatal("expected OpCloseUpvalue to be valid")
	}
	if Opcode(255).IsValid() {
		t.Fatal("expected opcode 255 to be invalid")
	}
}

func TestVariablesIntern(t *testing.T) {
	v := NewVariables()
	id1 := v.Intern("x")
	id2 := v.Intern("y")
	id1Again := v.Intern("x")
	if id1 != id1Again {
		t.Fatalf("expected interning x twice to return the same id")
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids for distinct names")
	}
	if v.Names[id1] != "x" || v.Names[id2] != "y" {
		t.Fatalf("expected name table to record both names")
	}
}

func TestProgramFingerprintDeterministic(t *testing.T) {
	p1 := NewCompiledProgram()
	p1.Bytecode = []byte{1, 2, 3}
	p2 := NewCompiledProgram()
	p2.Bytecode = []byte{1, 2, 3}
	if p1.Fingerprint() != p2.Fingerprint() {
		t.Fatal("expected identical programs to fingerprint identically")
	}
	p2.Bytecode = []byte{1, 2, 4}
	if p1.Fingerprint() == p2.Fingerprint() {
		t.Fatal("expected differing bytecode to fingerprint differently")
	}
}
