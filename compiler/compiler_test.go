// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.

package compiler

import (
	"testing"

	"github.com/cao-lang/cao-lang-go/card"
	"github.com/cao-lang/cao-lang-go/collections"
)

func mainModule(cards ...card.Card) *card.Module {
	m := card.NewModule()
	m.AddFunction("main", &card.Function{Cards: cards})
	return m
}

func TestCompileRejectsMissingMain(t *testing.T) {
	m := card.NewModule()
	m.AddFunction("helper", &card.Function{Cards: []card.Card{card.Return{Value: card.ScalarNil{}}}})
	if _, err := Compile(m, nil, DefaultOptions()); err == nil {
		t.Fatal("expected NoMain error")
	}
}

func TestCompileSimpleArithmetic(t *testing.T) {
	m := mainModule(
		card.Return{Value: card.Add(card.ScalarInt{Value: 2}, card.ScalarInt{Value: 3})},
	)
	prog, err := Compile(m, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Bytecode) == 0 {
		t.Fatal("expected non-empty bytecode")
	}
	h := collections.HashName("main")
	lbl, ok := prog.Labels.Get(h)
	if !ok {
		t.Fatal("expected main label to be registered")
	}
	if lbl.Offset != 0 {
		t.Fatalf("expected main to be emitted first, got offset %d", lbl.Offset)
	}
}

func TestCompileDuplicateFunctionName(t *testing.T) {
	m := card.NewModule()
	m.AddFunction("main", &card.Function{Cards: []card.Card{card.Return{Value: card.ScalarNil{}}}})
	m.AddFunction("main", &card.Function{Cards: []card.Card{card.Return{Value: card.ScalarNil{}}}})
	if _, err := Compile(m, nil, DefaultOptions()); err == nil {
		t.Fatal("expected DuplicateName error")
	}
}

func TestCompileBadFunctionName(t *testing.T) {
	m := card.NewModule()
	m.AddFunction("super", &card.Function{Cards: nil})
	if _, err := Compile(m, nil, DefaultOptions()); err == nil {
		t.Fatal("expected BadFunctionName error")
	}
}

func TestCompileSetVarThenReadVar(t *testing.T) {
	m := mainModule(
		card.SetVar{Name: "x", Value: card.ScalarInt{Value: 7}},
		card.Return{Value: card.ReadVar{Name: "x"}},
	)
	prog, err := Compile(m, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Bytecode) == 0 {
		t.Fatal("expected bytecode")
	}
}

func TestCompileClosureCapturesEnclosingLocal(t *testing.T) {
	m := mainModule(
		card.SetVar{Name: "x", Value: card.ScalarInt{Value: 10}},
		card.SetVar{
			Name: "adder",
			Value: card.Closure{
				Arguments: []string{"y"},
				Body: []card.Card{
					card.Return{Value: card.Add(card.ReadVar{Name: "x"}, card.ReadVar{Name: "y"})},
				},
			},
		},
		card.Return{Value: card.ScalarNil{}},
	)
	prog, err := Compile(m, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Bytecode) == 0 {
		t.Fatal("expected bytecode")
	}
}

func TestCompileRepeatZeroRunsBodyZeroTimes(t *testing.T) {
	m := mainModule(
		card.SetGlobalVar{Name: "count", Value: card.ScalarInt{Value: 0}},
		card.Repeat{
			N:    card.ScalarInt{Value: 0},
			IVar: "i",
			Body: []card.Card{
				card.SetGlobalVar{Name: "count", Value: card.Add(card.ReadVar{Name: "count"}, card.ScalarInt{Value: 1})},
			},
		},
		card.Return{Value: card.ScalarNil{}},
	)
	if _, err := Compile(m, nil, DefaultOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompileImportSuperAscension(t *testing.T) {
	root := card.NewModule()
	sibling := card.NewModule()
	sibling.AddFunction("helper", &card.Function{Cards: []card.Card{card.Return{Value: card.ScalarInt{Value: 1}}}})
	caller := card.NewModule()
	caller.AddImport("super.sibling.helper")
	caller.AddFunction("main", &card.Function{
		Cards: []card.Card{card.Return{Value: card.Call{Name: "helper"}}},
	})
	root.AddSubmodule("sibling", sibling)
	root.AddSubmodule("caller", caller)
	root.AddFunction("main", &card.Function{Cards: []card.Card{card.Return{Value: card.ScalarNil{}}}})

	if _, err := Compile(root, nil, DefaultOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
