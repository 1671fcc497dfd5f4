// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.

package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cao-lang/cao-lang-go/bytecode"
	"github.com/cao-lang/cao-lang-go/card"
	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/compiler"
	"github.com/cao-lang/cao-lang-go/value"
)

func mainModule(cards ...card.Card) *card.Module {
	m := card.NewModule()
	m.AddFunction("main", &card.Function{Cards: cards})
	return m
}

func compileMain(t *testing.T, cards ...card.Card) *bytecode.CompiledProgram {
	t.Helper()
	prog, err := compiler.Compile(mainModule(cards...), nil, compiler.DefaultOptions())
	require.NoError(t, err)
	return prog
}

func newTestVm(prog *bytecode.CompiledProgram) *Vm {
	return New(prog, DefaultOptions())
}

func TestRunReturnsLiteral(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.ScalarInt{Value: 42}})
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.AsInteger())
}

func TestRunArithmeticKeepsIntegerType(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.Add(card.ScalarInt{Value: 2}, card.ScalarInt{Value: 3})})
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.True(t, v.IsInteger())
	assert.Equal(t, int64(5), v.AsInteger())
}

func TestRunIntegerDivisionTruncates(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.Div(card.ScalarInt{Value: 7}, card.ScalarInt{Value: 2})})
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.True(t, v.IsInteger())
	assert.Equal(t, int64(3), v.AsInteger())
}

func TestRunDivisionWidensToRealWhenEitherOperandIsReal(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.Div(card.ScalarInt{Value: 7}, card.ScalarFloat{Value: 2})})
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.False(t, v.IsInteger())
	assert.InDelta(t, 3.5, v.AsReal(), 1e-9)
}

func TestRunDivisionByZeroFails(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.Div(card.ScalarInt{Value: 1}, card.ScalarInt{Value: 0})})
	_, err := newTestVm(prog).Run()
	require.Error(t, err)
	rt, ok := err.(*caoerr.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, caoerr.InvalidArgument, rt.Kind)
}

func TestRunSetVarThenReadVar(t *testing.T) {
	prog := compileMain(t,
		card.SetVar{Name: "x", Value: card.ScalarInt{Value: 9}},
		card.Return{Value: card.ReadVar{Name: "x"}},
	)
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.AsInteger())
}

func TestRunIfElseBranches(t *testing.T) {
	prog := compileMain(t,
		card.IfElse{
			Cond: card.Greater(card.ScalarInt{Value: 2}, card.ScalarInt{Value: 1}),
			Then: []card.Card{card.Return{Value: card.ScalarInt{Value: 1}}},
			Else: []card.Card{card.Return{Value: card.ScalarInt{Value: 0}}},
		},
	)
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.AsInteger())
}

func TestRunForEachSumsTable(t *testing.T) {
	prog := compileMain(t,
		card.SetVar{Name: "t", Value: card.Array{Elements: []card.Card{
			card.ScalarInt{Value: 1}, card.ScalarInt{Value: 2}, card.ScalarInt{Value: 3},
		}}},
		card.SetGlobalVar{Name: "sum", Value: card.ScalarInt{Value: 0}},
		card.ForEach{
			VVar:     "v",
			Iterable: card.ReadVar{Name: "t"},
			Body: []card.Card{
				card.SetGlobalVar{Name: "sum", Value: card.Add(card.ReadVar{Name: "sum"}, card.ReadVar{Name: "v"})},
			},
		},
		card.Return{Value: card.ReadVar{Name: "sum"}},
	)
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(6), v.AsInteger())
}

func TestRunRecursiveFibonacci(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("fib", &card.Function{
		Arguments: []string{"n"},
		Cards: []card.Card{
			card.IfElse{
				Cond: card.LessOrEq(card.ReadVar{Name: "n"}, card.ScalarInt{Value: 1}),
				Then: []card.Card{card.Return{Value: card.ReadVar{Name: "n"}}},
				Else: []card.Card{card.Return{Value: card.Add(
					card.Call{Name: "fib", Args: []card.Card{card.Sub(card.ReadVar{Name: "n"}, card.ScalarInt{Value: 1})}},
					card.Call{Name: "fib", Args: []card.Card{card.Sub(card.ReadVar{Name: "n"}, card.ScalarInt{Value: 2})}},
				)}},
			},
		},
	})
	root.AddFunction("main", &card.Function{
		Cards: []card.Card{card.Return{Value: card.Call{Name: "fib", Args: []card.Card{card.ScalarInt{Value: 10}}}}},
	})
	prog, err := compiler.Compile(root, nil, compiler.DefaultOptions())
	require.NoError(t, err)

	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(55), v.AsInteger())
}

func TestRunClosureCapturesEnclosingLocal(t *testing.T) {
	prog := compileMain(t,
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
		card.Return{Value: card.DynamicCall{
			Callee: card.ReadVar{Name: "adder"},
			Args:   []card.Card{card.ScalarInt{Value: 5}},
		}},
	)
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(15), v.AsInteger())
}

func TestRunTwoClosuresShareCapturedTableIdentity(t *testing.T) {
	// Two closures capturing the same enclosing local table reference must
	// observe each other's appends, since the captured upvalue holds the
	// table's identity, not a copy of its contents.
	prog := compileMain(t,
		card.SetVar{Name: "t", Value: card.CreateTable{}},
		card.SetVar{
			Name: "appendOne",
			Value: card.Closure{
				Body: []card.Card{
					card.AppendTable{Table: card.ReadVar{Name: "t"}, Value: card.ScalarInt{Value: 1}},
					card.Return{Value: card.ScalarNil{}},
				},
			},
		},
		card.SetVar{
			Name: "lenOfT",
			Value: card.Closure{
				Body: []card.Card{card.Return{Value: card.Len{Value: card.ReadVar{Name: "t"}}}},
			},
		},
		card.DynamicCall{Callee: card.ReadVar{Name: "appendOne"}},
		card.DynamicCall{Callee: card.ReadVar{Name: "appendOne"}},
		card.Return{Value: card.DynamicCall{Callee: card.ReadVar{Name: "lenOfT"}}},
	)
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.AsInteger())
}

func TestRunCallNativeDispatchesRegisteredFunction(t *testing.T) {
	prog := compileMain(t,
		card.Return{Value: card.CallNative{Name: "double", Args: []card.Card{card.ScalarInt{Value: 21}}}},
	)
	vm := newTestVm(prog)
	vm.RegisterFunction("double", 1, func(args []value.Value) (value.Value, error) {
		return value.Int(args[0].AsInteger() * 2), nil
	})
	v, err := vm.Run()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.AsInteger())
}

func TestRunCallNativeMissingFails(t *testing.T) {
	prog := compileMain(t,
		card.Return{Value: card.CallNative{Name: "nope"}},
	)
	_, err := newTestVm(prog).Run()
	require.Error(t, err)
	rt, ok := err.(*caoerr.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, caoerr.ProcedureNotFound, rt.Kind)
}

func TestRunCallingNonFunctionFails(t *testing.T) {
	prog := compileMain(t,
		card.Return{Value: card.DynamicCall{Callee: card.ScalarInt{Value: 1}}},
	)
	_, err := newTestVm(prog).Run()
	require.Error(t, err)
	rt, ok := err.(*caoerr.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, caoerr.NotCallable, rt.Kind)
}

func TestRunTableSetGetProperty(t *testing.T) {
	prog := compileMain(t,
		card.SetVar{Name: "t", Value: card.CreateTable{}},
		card.SetProperty{Table: card.ReadVar{Name: "t"}, Key: card.StringLiteral{Value: "a"}, Value: card.ScalarInt{Value: 7}},
		card.Return{Value: card.GetProperty{Table: card.ReadVar{Name: "t"}, Key: card.StringLiteral{Value: "a"}}},
	)
	v, err := newTestVm(prog).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.AsInteger())
}

func TestRunTimeoutOnInfiniteLoop(t *testing.T) {
	prog := compileMain(t,
		card.While{
			Cond: card.ScalarInt{Value: 1},
			Body: []card.Card{card.Pass{}},
		},
		card.Return{Value: card.ScalarNil{}},
	)
	vm := New(prog, NewOptions(WithMaxIter(1000)))
	_, err := vm.Run()
	require.Error(t, err)
	rt, ok := err.(*caoerr.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, caoerr.Timeout, rt.Kind)
}

func TestRunFunctionByNameAfterMain(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetGlobalVar{Name: "g", Value: card.ScalarInt{Value: 3}},
		card.Return{Value: card.ScalarNil{}},
	}})
	root.AddFunction("readG", &card.Function{Cards: []card.Card{
		card.Return{Value: card.ReadVar{Name: "g"}},
	}})
	prog, err := compiler.Compile(root, nil, compiler.DefaultOptions())
	require.NoError(t, err)

	vm := newTestVm(prog)
	_, err = vm.Run()
	require.NoError(t, err)

	v, err := vm.RunFunction("readG")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.AsInteger())
}

func TestFingerprintStable(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.ScalarInt{Value: 1}})
	vm1 := newTestVm(prog)
	vm2 := newTestVm(prog)
	assert.Equal(t, vm1.Fingerprint(), vm2.Fingerprint())
}
