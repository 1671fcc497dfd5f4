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

// Package stdlib builds the prelude as card trees instead of text: every
// entry here is a *card.Function assembled with the same constructors a
// host embedding the compiler would use. Module returns them as a *card.Module
// meant to be passed as the std argument to compiler.Flatten/compiler.Compile,
// which injects it as an implicit "std" submodule — callable as "std.filter",
// "std.map", and so on, without any import.
//
// None of these functions can rebind an already-captured local (card.SetVar
// always introduces a fresh binding in the current scope), so every
// loop-carried accumulator here is a single-entry table used as a mutable
// cell, read and written with GetProperty/SetProperty. That is also how the
// original Rust stdlib keeps its accumulators across a ForEach card.
package stdlib

import "github.com/cao-lang/cao-lang-go/card"

// Module returns the prelude, ready to be merged in as the "std" submodule.
func Module() *card.Module {
	m := card.NewModule()
	m.AddFunction("filter", filterFn())
	m.AddFunction("map", mapFn())
	m.AddFunction("any", anyFn())
	m.AddFunction("min", minFn())
	m.AddFunction("max", maxFn())
	m.AddFunction("min_by_key", minByKeyFn())
	m.AddFunction("max_by_key", maxByKeyFn())
	m.AddFunction("sorted_by_key", sortedByKeyFn())
	m.AddFunction("row_to_value", rowToValueFn())
	return m
}

// newCounter returns the card that declares a fresh table named varName,
// used as a 0-based running index across a ForEach body; counterInit sets
// its single field to 0 and counterBump advances it by one.
func newCounter(varName string) card.Card {
	return card.SetVar{Name: varName, Value: card.CreateTable{}}
}

func counterInit(varName string) card.Card {
	return card.SetProperty{Table: card.ReadVar{Name: varName}, Key: card.StringLiteral{Value: "n"}, Value: card.ScalarInt{Value: 0}}
}

func counterRead(varName string) card.Card {
	return card.GetProperty{Table: card.ReadVar{Name: varName}, Key: card.StringLiteral{Value: "n"}}
}

func counterBump(varName string) card.Card {
	return card.SetProperty{
		Table: card.ReadVar{Name: varName},
		Key:   card.StringLiteral{Value: "n"},
		Value: card.Add(counterRead(varName), card.ScalarInt{Value: 1}),
	}
}

// filter(iterable, callback) -> new table of (k,v) for which
// callback(i, v, k) is truthy, preserving key.
func filterFn() *card.Function {
	return &card.Function{
		Arguments: []string{"t", "callback"},
		Cards: []card.Card{
			card.SetVar{Name: "result", Value: card.CreateTable{}},
			newCounter("idx"),
			counterInit("idx"),
			card.ForEach{
				KVar: "k", VVar: "v", Iterable: card.ReadVar{Name: "t"},
				Body: []card.Card{
					card.IfTrue{
						Cond: card.DynamicCall{
							Callee: card.ReadVar{Name: "callback"},
							Args:   []card.Card{counterRead("idx"), card.ReadVar{Name: "v"}, card.ReadVar{Name: "k"}},
						},
						Body: []card.Card{
							card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.ReadVar{Name: "k"}, Value: card.ReadVar{Name: "v"}},
						},
					},
					counterBump("idx"),
				},
			},
			card.Return{Value: card.ReadVar{Name: "result"}},
		},
	}
}

// map(iterable, callback) -> new table of (k, callback(i, v, k)).
func mapFn() *card.Function {
	return &card.Function{
		Arguments: []string{"t", "callback"},
		Cards: []card.Card{
			card.SetVar{Name: "result", Value: card.CreateTable{}},
			newCounter("idx"),
			counterInit("idx"),
			card.ForEach{
				KVar: "k", VVar: "v", Iterable: card.ReadVar{Name: "t"},
				Body: []card.Card{
					card.SetProperty{
						Table: card.ReadVar{Name: "result"},
						Key:   card.ReadVar{Name: "k"},
						Value: card.DynamicCall{
							Callee: card.ReadVar{Name: "callback"},
							Args:   []card.Card{counterRead("idx"), card.ReadVar{Name: "v"}, card.ReadVar{Name: "k"}},
						},
					},
					counterBump("idx"),
				},
			},
			card.Return{Value: card.ReadVar{Name: "result"}},
		},
	}
}

// any(iterable, callback) -> first key whose callback(i, v, k) is truthy,
// else Nil. Stops evaluating callback once a match is found.
func anyFn() *card.Function {
	return &card.Function{
		Arguments: []string{"t", "callback"},
		Cards: []card.Card{
			card.SetVar{Name: "box", Value: card.CreateTable{}},
			card.SetProperty{Table: card.ReadVar{Name: "box"}, Key: card.StringLiteral{Value: "set"}, Value: card.ScalarInt{Value: 0}},
			newCounter("idx"),
			counterInit("idx"),
			card.ForEach{
				KVar: "k", VVar: "v", Iterable: card.ReadVar{Name: "t"},
				Body: []card.Card{
					card.IfFalse{
						Cond: card.Equals(card.GetProperty{Table: card.ReadVar{Name: "box"}, Key: card.StringLiteral{Value: "set"}}, card.ScalarInt{Value: 1}),
						Body: []card.Card{
							card.IfTrue{
								Cond: card.DynamicCall{
									Callee: card.ReadVar{Name: "callback"},
									Args:   []card.Card{counterRead("idx"), card.ReadVar{Name: "v"}, card.ReadVar{Name: "k"}},
								},
								Body: []card.Card{
									card.SetProperty{Table: card.ReadVar{Name: "box"}, Key: card.StringLiteral{Value: "key"}, Value: card.ReadVar{Name: "k"}},
									card.SetProperty{Table: card.ReadVar{Name: "box"}, Key: card.StringLiteral{Value: "set"}, Value: card.ScalarInt{Value: 1}},
								},
							},
						},
					},
					counterBump("idx"),
				},
			},
			card.Return{Value: card.GetProperty{Table: card.ReadVar{Name: "box"}, Key: card.StringLiteral{Value: "key"}}},
		},
	}
}

// extremumBody shares the selection loop min/max use: a {key, value} record
// built up across the ForEach, replaced whenever better(candidate, current)
// holds, returning Nil if the iterable was empty.
func extremumBody(better func(cand, cur card.Card) card.Card) []card.Card {
	return []card.Card{
		card.SetVar{Name: "flag", Value: card.CreateTable{}},
		card.SetProperty{Table: card.ReadVar{Name: "flag"}, Key: card.StringLiteral{Value: "v"}, Value: card.ScalarInt{Value: 0}},
		card.SetVar{Name: "result", Value: card.CreateTable{}},
		card.ForEach{
			KVar: "k", VVar: "v", Iterable: card.ReadVar{Name: "t"},
			Body: []card.Card{
				card.IfElse{
					Cond: card.Equals(card.GetProperty{Table: card.ReadVar{Name: "flag"}, Key: card.StringLiteral{Value: "v"}}, card.ScalarInt{Value: 0}),
					Then: []card.Card{
						card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "key"}, Value: card.ReadVar{Name: "k"}},
						card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "value"}, Value: card.ReadVar{Name: "v"}},
						card.SetProperty{Table: card.ReadVar{Name: "flag"}, Key: card.StringLiteral{Value: "v"}, Value: card.ScalarInt{Value: 1}},
					},
					Else: []card.Card{
						card.IfTrue{
							Cond: better(card.ReadVar{Name: "v"}, card.GetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "value"}}),
							Body: []card.Card{
								card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "key"}, Value: card.ReadVar{Name: "k"}},
								card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "value"}, Value: card.ReadVar{Name: "v"}},
							},
						},
					},
				},
			},
		},
		card.IfElse{
			Cond: card.Equals(card.GetProperty{Table: card.ReadVar{Name: "flag"}, Key: card.StringLiteral{Value: "v"}}, card.ScalarInt{Value: 0}),
			Then: []card.Card{card.Return{Value: card.ScalarNil{}}},
			Else: []card.Card{card.Return{Value: card.ReadVar{Name: "result"}}},
		},
	}
}

// min(iterable) -> {key, value} record for the smallest value, or Nil.
func minFn() *card.Function {
	return &card.Function{
		Arguments: []string{"t"},
		Cards:     extremumBody(func(cand, cur card.Card) card.Card { return card.Less(cand, cur) }),
	}
}

// max(iterable) -> {key, value} record for the largest value, or Nil.
func maxFn() *card.Function {
	return &card.Function{
		Arguments: []string{"t"},
		Cards:     extremumBody(func(cand, cur card.Card) card.Card { return card.Greater(cand, cur) }),
	}
}

// extremumByKeyBody mirrors extremumBody but compares key_fn(k, v) instead
// of the raw value, calling key_fn once per candidate examined.
func extremumByKeyBody(better func(candKey, curKey card.Card) card.Card) []card.Card {
	keyOf := func(k, v card.Card) card.Card {
		return card.DynamicCall{Callee: card.ReadVar{Name: "key_fn"}, Args: []card.Card{k, v}}
	}
	return []card.Card{
		card.SetVar{Name: "flag", Value: card.CreateTable{}},
		card.SetProperty{Table: card.ReadVar{Name: "flag"}, Key: card.StringLiteral{Value: "v"}, Value: card.ScalarInt{Value: 0}},
		card.SetVar{Name: "result", Value: card.CreateTable{}},
		card.ForEach{
			KVar: "k", VVar: "v", Iterable: card.ReadVar{Name: "t"},
			Body: []card.Card{
				card.IfElse{
					Cond: card.Equals(card.GetProperty{Table: card.ReadVar{Name: "flag"}, Key: card.StringLiteral{Value: "v"}}, card.ScalarInt{Value: 0}),
					Then: []card.Card{
						card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "key"}, Value: card.ReadVar{Name: "k"}},
						card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "value"}, Value: card.ReadVar{Name: "v"}},
						card.SetProperty{Table: card.ReadVar{Name: "flag"}, Key: card.StringLiteral{Value: "v"}, Value: card.ScalarInt{Value: 1}},
					},
					Else: []card.Card{
						card.IfTrue{
							Cond: better(
								keyOf(card.ReadVar{Name: "k"}, card.ReadVar{Name: "v"}),
								keyOf(card.GetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "key"}},
									card.GetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "value"}}),
							),
							Body: []card.Card{
								card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "key"}, Value: card.ReadVar{Name: "k"}},
								card.SetProperty{Table: card.ReadVar{Name: "result"}, Key: card.StringLiteral{Value: "value"}, Value: card.ReadVar{Name: "v"}},
							},
						},
					},
				},
			},
		},
		card.IfElse{
			Cond: card.Equals(card.GetProperty{Table: card.ReadVar{Name: "flag"}, Key: card.StringLiteral{Value: "v"}}, card.ScalarInt{Value: 0}),
			Then: []card.Card{card.Return{Value: card.ScalarNil{}}},
			Else: []card.Card{card.Return{Value: card.ReadVar{Name: "result"}}},
		},
	}
}

// min_by_key(iterable, key_fn) -> {key, value} record selected by key_fn(k, v).
func minByKeyFn() *card.Function {
	return &card.Function{
		Arguments: []string{"t", "key_fn"},
		Cards:     extremumByKeyBody(func(cand, cur card.Card) card.Card { return card.Less(cand, cur) }),
	}
}

// max_by_key(iterable, key_fn) -> {key, value} record selected by key_fn(k, v).
func maxByKeyFn() *card.Function {
	return &card.Function{
		Arguments: []string{"t", "key_fn"},
		Cards:     extremumByKeyBody(func(cand, cur card.Card) card.Card { return card.Greater(cand, cur) }),
	}
}

// sortedByKeyFn implements sorted_by_key(iterable, key_fn): a selection sort
// over {key, value} pairs copied out of the iterable, stable because ties
// keep the earliest-encountered pair (strict Less only replaces the current
// best, and the inner scan visits candidates in original order).
func sortedByKeyFn() *card.Function {
	keyOfPair := func(pair card.Card) card.Card {
		return card.DynamicCall{
			Callee: card.ReadVar{Name: "key_fn"},
			Args: []card.Card{
				card.GetProperty{Table: pair, Key: card.StringLiteral{Value: "key"}},
				card.GetProperty{Table: pair, Key: card.StringLiteral{Value: "value"}},
			},
		}
	}
	return &card.Function{
		Arguments: []string{"t", "key_fn"},
		Cards: []card.Card{
			card.SetVar{Name: "remaining", Value: card.CreateTable{}},
			card.ForEach{
				KVar: "k", VVar: "v", Iterable: card.ReadVar{Name: "t"},
				Body: []card.Card{
					card.SetVar{Name: "pair", Value: card.CreateTable{}},
					card.SetProperty{Table: card.ReadVar{Name: "pair"}, Key: card.StringLiteral{Value: "key"}, Value: card.ReadVar{Name: "k"}},
					card.SetProperty{Table: card.ReadVar{Name: "pair"}, Key: card.StringLiteral{Value: "value"}, Value: card.ReadVar{Name: "v"}},
					card.AppendTable{Table: card.ReadVar{Name: "remaining"}, Value: card.ReadVar{Name: "pair"}},
				},
			},
			card.SetVar{Name: "used", Value: card.CreateTable{}},
			card.SetVar{Name: "result", Value: card.CreateTable{}},
			card.SetVar{Name: "n", Value: card.Len{Value: card.ReadVar{Name: "remaining"}}},
			card.Repeat{
				N: card.ReadVar{Name: "n"}, IVar: "_pass",
				Body: []card.Card{
					card.SetVar{Name: "best", Value: card.CreateTable{}},
					card.SetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "set"}, Value: card.ScalarInt{Value: 0}},
					card.Repeat{
						N: card.ReadVar{Name: "n"}, IVar: "countdown",
						Body: []card.Card{
							card.SetVar{Name: "j", Value: card.Sub(card.ReadVar{Name: "n"}, card.ReadVar{Name: "countdown"})},
							card.IfFalse{
								Cond: card.Equals(card.GetProperty{Table: card.ReadVar{Name: "used"}, Key: card.ReadVar{Name: "j"}}, card.ScalarInt{Value: 1}),
								Body: []card.Card{
									card.SetVar{Name: "pairj", Value: card.GetProperty{Table: card.ReadVar{Name: "remaining"}, Key: card.ReadVar{Name: "j"}}},
									card.SetVar{Name: "keyj", Value: keyOfPair(card.ReadVar{Name: "pairj"})},
									card.IfElse{
										Cond: card.Equals(card.GetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "set"}}, card.ScalarInt{Value: 0}),
										Then: []card.Card{
											card.SetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "idx"}, Value: card.ReadVar{Name: "j"}},
											card.SetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "key"}, Value: card.ReadVar{Name: "keyj"}},
											card.SetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "set"}, Value: card.ScalarInt{Value: 1}},
										},
										Else: []card.Card{
											card.IfTrue{
												Cond: card.Less(card.ReadVar{Name: "keyj"}, card.GetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "key"}}),
												Body: []card.Card{
													card.SetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "idx"}, Value: card.ReadVar{Name: "j"}},
													card.SetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "key"}, Value: card.ReadVar{Name: "keyj"}},
												},
											},
										},
									},
								},
							},
						},
					},
					card.SetVar{Name: "chosen", Value: card.GetProperty{Table: card.ReadVar{Name: "remaining"}, Key: card.GetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "idx"}}}},
					card.AppendTable{Table: card.ReadVar{Name: "result"}, Value: card.GetProperty{Table: card.ReadVar{Name: "chosen"}, Key: card.StringLiteral{Value: "value"}}},
					card.SetProperty{Table: card.ReadVar{Name: "used"}, Key: card.GetProperty{Table: card.ReadVar{Name: "best"}, Key: card.StringLiteral{Value: "idx"}}, Value: card.ScalarInt{Value: 1}},
				},
			},
			card.Return{Value: card.ReadVar{Name: "result"}},
		},
	}
}

// row_to_value(key, value) -> value; the default key function min_by_key,
// max_by_key and sorted_by_key fall back to when a caller has no more
// specific extractor.
func rowToValueFn() *card.Function {
	return &card.Function{
		Arguments: []string{"key", "value"},
		Cards: []card.Card{
			card.Return{Value: card.ReadVar{Name: "value"}},
		},
	}
}
