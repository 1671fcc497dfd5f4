// Copyright 2024 The Cao-Lang Authors
// This file is part of Cao-Lang.

package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cao-lang/cao-lang-go/card"
	"github.com/cao-lang/cao-lang-go/value"
)

// TestSnapshotInsertRoundTripsScalars exercises invariant 5: for any
// OwnedValue v, insert_value(v) followed by snapshotting the inserted Value
// again yields a value deeply equal to v.
func TestSnapshotInsertRoundTripsScalars(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.ScalarNil{}})
	machine := newTestVm(prog)
	_, err := machine.Run()
	require.NoError(t, err)

	for _, v := range []value.Value{value.Nil, value.Int(7), value.Int(-3), value.Real(2.5)} {
		ov, err := value.NewOwnedValue(v)
		require.NoError(t, err)

		inserted, err := machine.InsertOwnedValue(ov)
		require.NoError(t, err)

		roundTripped, err := machine.Snapshot(inserted)
		require.NoError(t, err)
		assert.True(t, ov.Equal(roundTripped), "expected %+v == %+v", ov, roundTripped)
	}
}

func TestSnapshotInsertRoundTripsString(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.ScalarNil{}})
	machine := newTestVm(prog)
	_, err := machine.Run()
	require.NoError(t, err)

	ov := value.OwnedValue{Kind: value.OwnedString, Str: []byte("Boiiii")}
	inserted, err := machine.InsertOwnedValue(ov)
	require.NoError(t, err)
	assert.True(t, inserted.IsObject())
	assert.Equal(t, "Boiiii", inserted.String())

	roundTripped, err := machine.Snapshot(inserted)
	require.NoError(t, err)
	assert.True(t, ov.Equal(roundTripped))
}

func TestSnapshotInsertRoundTripsNestedTable(t *testing.T) {
	prog := compileMain(t, card.Return{Value: card.ScalarNil{}})
	machine := newTestVm(prog)
	_, err := machine.Run()
	require.NoError(t, err)

	ov := value.OwnedValue{
		Kind: value.OwnedTable,
		Entries: []value.OwnedEntry{
			{Key: value.OwnedValue{Kind: value.OwnedInteger, Integer: 0}, Value: value.OwnedValue{Kind: value.OwnedInteger, Integer: 1}},
			{
				Key: value.OwnedValue{Kind: value.OwnedInteger, Integer: 1},
				Value: value.OwnedValue{
					Kind:    value.OwnedTable,
					Entries: []value.OwnedEntry{{Key: value.OwnedValue{Kind: value.OwnedString, Str: []byte("k")}, Value: value.OwnedValue{Kind: value.OwnedInteger, Integer: 99}}},
				},
			},
		},
	}

	inserted, err := machine.InsertOwnedValue(ov)
	require.NoError(t, err)

	roundTripped, err := machine.Snapshot(inserted)
	require.NoError(t, err)
	assert.True(t, ov.Equal(roundTripped), "expected %+v == %+v", ov, roundTripped)
}

// TestSnapshotClosureCapturesClosedUpvalue snapshots a live closure (whose
// captured local has already been closed by the enclosing function
// returning), re-inserts it into the same Vm, and confirms the round trip
// preserves the function handle and the captured value.
func TestSnapshotClosureCapturesClosedUpvalue(t *testing.T) {
	prog := compileMain(t,
		card.SetVar{Name: "x", Value: card.ScalarInt{Value: 41}},
		card.Return{Value: card.Closure{
			Body: []card.Card{card.Return{Value: card.ReadVar{Name: "x"}}},
		}},
	)
	machine := newTestVm(prog)
	closureVal, err := machine.Run()
	require.NoError(t, err)
	require.True(t, closureVal.IsObject())

	ov, err := machine.Snapshot(closureVal)
	require.NoError(t, err)
	require.Equal(t, value.OwnedClosure, ov.Kind)
	require.Len(t, ov.Upvalues, 1)
	assert.Equal(t, int64(41), ov.Upvalues[0].Integer)

	inserted, err := machine.InsertOwnedValue(ov)
	require.NoError(t, err)

	result, err := machine.RunFunctionValue(inserted)
	require.NoError(t, err)
	assert.Equal(t, int64(41), result.AsInteger())
}
