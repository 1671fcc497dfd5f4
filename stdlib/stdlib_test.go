// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.

package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cao-lang/cao-lang-go/card"
	"github.com/cao-lang/cao-lang-go/compiler"
	"github.com/cao-lang/cao-lang-go/value"
	"github.com/cao-lang/cao-lang-go/vm"
)

// runMain compiles root with the prelude merged in as "std" and runs its
// "main" function, returning whatever global varNames were bound along the
// way (in the order requested) plus main's own return value.
func runMain(t *testing.T, root *card.Module, varNames ...string) (ret value.Value, globals []value.Value) {
	t.Helper()
	prog, err := compiler.Compile(root, Module(), compiler.DefaultOptions())
	require.NoError(t, err)

	machine := vm.New(prog, vm.DefaultOptions())
	ret, err = machine.Run()
	require.NoError(t, err)

	for _, name := range varNames {
		v, ok := machine.ReadVarByName(name)
		require.True(t, ok, "global %q was never referenced by the compiled program", name)
		globals = append(globals, v)
	}
	return ret, globals
}

func arrayOf(values ...int64) card.Card {
	elems := make([]card.Card, len(values))
	for i, v := range values {
		elems[i] = card.ScalarInt{Value: v}
	}
	return card.Array{Elements: elems}
}

func TestStdlibFilterKeepsMatchingPreservesKey(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: arrayOf(1, 2, 3, 4)},
		card.SetGlobalVar{Name: "result", Value: card.Call{
			Name: "std.filter",
			Args: []card.Card{
				card.ReadVar{Name: "t"},
				card.Closure{
					Arguments: []string{"i", "v", "k"},
					Body:      []card.Card{card.Return{Value: card.Greater(card.ReadVar{Name: "v"}, card.ScalarInt{Value: 2})}},
				},
			},
		}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "result")
	tbl := globals[0].AsObject().Table
	require.Equal(t, 2, tbl.Len())
	v2, ok := tbl.Get(value.Int(2))
	require.True(t, ok)
	assert.Equal(t, int64(3), v2.AsInteger())
	v3, ok := tbl.Get(value.Int(3))
	require.True(t, ok)
	assert.Equal(t, int64(4), v3.AsInteger())
}

func TestStdlibFilterOverEmptyTableReturnsEmptyTable(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: card.CreateTable{}},
		card.SetGlobalVar{Name: "result", Value: card.Call{
			Name: "std.filter",
			Args: []card.Card{
				card.ReadVar{Name: "t"},
				card.Closure{
					Arguments: []string{"i", "v", "k"},
					Body:      []card.Card{card.Return{Value: card.ScalarInt{Value: 1}}},
				},
			},
		}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "result")
	assert.Equal(t, 0, globals[0].AsObject().Table.Len())
}

func TestStdlibMapDoublesEachValue(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: arrayOf(1, 2, 3)},
		card.SetGlobalVar{Name: "result", Value: card.Call{
			Name: "std.map",
			Args: []card.Card{
				card.ReadVar{Name: "t"},
				card.Closure{
					Arguments: []string{"i", "v", "k"},
					Body:      []card.Card{card.Return{Value: card.Mul(card.ReadVar{Name: "v"}, card.ScalarInt{Value: 2})}},
				},
			},
		}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "result")
	tbl := globals[0].AsObject().Table
	require.Equal(t, 3, tbl.Len())
	for i, want := range []int64{2, 4, 6} {
		got, ok := tbl.Get(value.Int(int64(i)))
		require.True(t, ok)
		assert.Equal(t, want, got.AsInteger())
	}
}

func TestStdlibAnyReturnsFirstMatchingKey(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: arrayOf(5, 9, 12, 20)},
		card.SetGlobalVar{Name: "result", Value: card.Call{
			Name: "std.any",
			Args: []card.Card{
				card.ReadVar{Name: "t"},
				card.Closure{
					Arguments: []string{"i", "v", "k"},
					Body:      []card.Card{card.Return{Value: card.GreaterOrEq(card.ReadVar{Name: "v"}, card.ScalarInt{Value: 10})}},
				},
			},
		}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "result")
	assert.Equal(t, int64(2), globals[0].AsInteger())
}

func TestStdlibAnyReturnsNilWhenNothingMatches(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: arrayOf(1, 2, 3)},
		card.SetGlobalVar{Name: "result", Value: card.Call{
			Name: "std.any",
			Args: []card.Card{
				card.ReadVar{Name: "t"},
				card.Closure{
					Arguments: []string{"i", "v", "k"},
					Body:      []card.Card{card.Return{Value: card.Greater(card.ReadVar{Name: "v"}, card.ScalarInt{Value: 100})}},
				},
			},
		}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "result")
	assert.True(t, globals[0].IsNil())
}

func TestStdlibMinAndMaxReturnKeyValueRecord(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: arrayOf(7, 2, 9, 2)},
		card.SetGlobalVar{Name: "mn", Value: card.Call{Name: "std.min", Args: []card.Card{card.ReadVar{Name: "t"}}}},
		card.SetGlobalVar{Name: "mx", Value: card.Call{Name: "std.max", Args: []card.Card{card.ReadVar{Name: "t"}}}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "mn", "mx")

	mn := globals[0].AsObject().Table
	mnVal, ok := mn.Get(mustStringValue("value"))
	require.True(t, ok)
	assert.Equal(t, int64(2), mnVal.AsInteger())
	mnIdx, ok := mn.Get(mustStringValue("key"))
	require.True(t, ok)
	assert.Equal(t, int64(1), mnIdx.AsInteger(), "the first 2 (index 1) wins over the later tie at index 3")

	mx := globals[1].AsObject().Table
	mxVal, ok := mx.Get(mustStringValue("value"))
	require.True(t, ok)
	assert.Equal(t, int64(9), mxVal.AsInteger())
}

func TestStdlibMinOverEmptyTableIsNil(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: card.CreateTable{}},
		card.SetGlobalVar{Name: "mn", Value: card.Call{Name: "std.min", Args: []card.Card{card.ReadVar{Name: "t"}}}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "mn")
	assert.True(t, globals[0].IsNil())
}

func TestStdlibMinByKeySelectsByCallbackResult(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: arrayOf(-5, 3, -1)},
		card.SetGlobalVar{Name: "result", Value: card.Call{
			Name: "std.min_by_key",
			Args: []card.Card{
				card.ReadVar{Name: "t"},
				card.Closure{
					Arguments: []string{"k", "v"},
					Body: []card.Card{
						card.Return{Value: card.Mul(card.ReadVar{Name: "v"}, card.ScalarInt{Value: -1})},
					},
				},
			},
		}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "result")
	tbl := globals[0].AsObject().Table
	v, ok := tbl.Get(mustStringValue("value"))
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInteger(), "negating the key inverts the order, so the largest raw value wins")
}

func TestStdlibSortedByKeyIsStableAscending(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.SetVar{Name: "t", Value: arrayOf(3, 1, 2, 1)},
		card.SetGlobalVar{Name: "result", Value: card.Call{
			Name: "std.sorted_by_key",
			Args: []card.Card{
				card.ReadVar{Name: "t"},
				card.FunctionLiteral{Name: "std.row_to_value"},
			},
		}},
		card.Return{Value: card.ScalarNil{}},
	}})

	_, globals := runMain(t, root, "result")
	tbl := globals[0].AsObject().Table
	require.Equal(t, 4, tbl.Len())
	want := []int64{1, 1, 2, 3}
	for i, w := range want {
		got, ok := tbl.Get(value.Int(int64(i)))
		require.True(t, ok)
		assert.Equal(t, w, got.AsInteger())
	}
}

func TestStdlibRowToValueIsIdentityOnValue(t *testing.T) {
	root := card.NewModule()
	root.AddFunction("main", &card.Function{Cards: []card.Card{
		card.Return{Value: card.Call{
			Name: "std.row_to_value",
			Args: []card.Card{card.StringLiteral{Value: "k"}, card.ScalarInt{Value: 77}},
		}},
	}})

	ret, _ := runMain(t, root)
	assert.Equal(t, int64(77), ret.AsInteger())
}

// mustStringValue builds a string Value for use as a table lookup key in
// assertions; it does not go through the Vm's allocator since it is only
// ever used as a Get() argument and never stored.
func mustStringValue(s string) value.Value {
	return value.FromObject(value.NewStringObject([]byte(s)))
}
