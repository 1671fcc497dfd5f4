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

// Package card defines the authoring-time AST: a Module is a tree of named
// submodules and functions, each function a sequence of Cards. There is no
// lexer or parser here by design (see spec.md's non-goals) — the host
// builds this tree directly, the way a game's visual scripting UI would.
//
// Every Card implements the Card marker interface so the compiler can
// type-switch over Kind(); this mirrors the ast.Node/Expression/Statement
// split used for the PROBE language's text-based AST, without the token
// position bookkeeping a textual parser would need.
package card

// Kind discriminates Card variants for the compiler's dispatch switch.
type Kind int

const (
	KindAdd Kind = iota
	KindSub
	KindMul
	KindDiv
	KindEquals
	KindNotEquals
	KindLess
	KindLessOrEq
	KindGreater
	KindGreaterOrEq
	KindAnd
	KindOr
	KindXor
	KindNot
	KindCopyLast
	KindPop
	KindReturn
	KindAbort
	KindPass
	KindScalarInt
	KindScalarFloat
	KindScalarNil
	KindStringLiteral
	KindReadVar
	KindSetVar
	KindSetGlobalVar
	KindIfTrue
	KindIfFalse
	KindIfElse
	KindRepeat
	KindWhile
	KindForEach
	KindCall
	KindDynamicCall
	KindCallNative
	KindFunctionLiteral
	KindNativeFunctionLiteral
	KindClosure
	KindCreateTable
	KindGetProperty
	KindSetProperty
	KindAppendTable
	KindPopTable
	KindLen
	KindGet
	KindArray
	KindComposite
)

// Card is implemented by every AST node. Kind lets the compiler type-switch
// without a type assertion per variant.
type Card interface {
	Kind() Kind
}

// ---- Arithmetic / comparison / logical (operand cards) --------------------

// BinOp is shared by every two-operand card (arithmetic, comparison,
// logical And/Or/Xor): compile Left, compile Right, emit the matching
// opcode.
type BinOp struct {
	K     Kind
	Left  Card
	Right Card
}

func (c *BinOp) Kind() Kind { return c.K }

func Add(l, r Card) *BinOp          { return &BinOp{KindAdd, l, r} }
func Sub(l, r Card) *BinOp          { return &BinOp{KindSub, l, r} }
func Mul(l, r Card) *BinOp          { return &BinOp{KindMul, l, r} }
func Div(l, r Card) *BinOp          { return &BinOp{KindDiv, l, r} }
func Equals(l, r Card) *BinOp       { return &BinOp{KindEquals, l, r} }
func NotEquals(l, r Card) *BinOp    { return &BinOp{KindNotEquals, l, r} }
func Less(l, r Card) *BinOp         { return &BinOp{KindLess, l, r} }
func LessOrEq(l, r Card) *BinOp     { return &BinOp{KindLessOrEq, l, r} }
func Greater(l, r Card) *BinOp      { return &BinOp{KindGreater, l, r} }
func GreaterOrEq(l, r Card) *BinOp  { return &BinOp{KindGreaterOrEq, l, r} }
func And(l, r Card) *BinOp          { return &BinOp{KindAnd, l, r} }
func Or(l, r Card) *BinOp           { return &BinOp{KindOr, l, r} }
func Xor(l, r Card) *BinOp          { return &BinOp{KindXor, l, r} }

// UnOp is a single-operand card (logical Not).
type UnOp struct {
	K       Kind
	Operand Card
}

func (c *UnOp) Kind() Kind { return c.K }
func Not(operand Card) *UnOp { return &UnOp{KindNot, operand} }

// ---- Stack manipulation ----------------------------------------------------

type CopyLast struct{}

func (CopyLast) Kind() Kind { return KindCopyLast }

// Pop discards the top of the stack. Used explicitly by authored scripts and
// implicitly by the compiler at scope exit.
type Pop struct{}

func (Pop) Kind() Kind { return KindPop }

// Return compiles Value then emits the Return opcode.
type Return struct{ Value Card }

func (Return) Kind() Kind { return KindReturn }

// Abort terminates the VM with ExitCode(Code).
type Abort struct{ Code int32 }

func (Abort) Kind() Kind { return KindAbort }

// Pass is an explicit no-op card, useful as a placeholder in authored trees.
type Pass struct{}

func (Pass) Kind() Kind { return KindPass }

// ---- Literals ---------------------------------------------------------------

type ScalarInt struct{ Value int64 }

func (ScalarInt) Kind() Kind { return KindScalarInt }

type ScalarFloat struct{ Value float64 }

func (ScalarFloat) Kind() Kind { return KindScalarFloat }

type ScalarNil struct{}

func (ScalarNil) Kind() Kind { return KindScalarNil }

type StringLiteral struct{ Value string }

func (StringLiteral) Kind() Kind { return KindStringLiteral }

// ---- Variables --------------------------------------------------------------

// ReadVar resolves Name to a local slot if one is in scope, falling through
// to a global binding otherwise.
type ReadVar struct{ Name string }

func (ReadVar) Kind() Kind { return KindReadVar }

// SetVar compiles Value, binds Name as a new local in the current scope.
type SetVar struct {
	Name  string
	Value Card
}

func (SetVar) Kind() Kind { return KindSetVar }

// SetGlobalVar compiles Value and stores it in the named global binding,
// regardless of whether a local of the same name is in scope.
type SetGlobalVar struct {
	Name  string
	Value Card
}

func (SetGlobalVar) Kind() Kind { return KindSetGlobalVar }

// ---- Control flow -----------------------------------------------------------

type IfTrue struct {
	Cond Card
	Body []Card
}

func (IfTrue) Kind() Kind { return KindIfTrue }

type IfFalse struct {
	Cond Card
	Body []Card
}

func (IfFalse) Kind() Kind { return KindIfFalse }

type IfElse struct {
	Cond Card
	Then []Card
	Else []Card
}

func (IfElse) Kind() Kind { return KindIfElse }

// Repeat compiles N (left on the stack as a countdown counter), then runs
// Body that many times. If IVar is non-empty, it is bound to the current
// counter value for the duration of each iteration.
type Repeat struct {
	N    Card
	IVar string
	Body []Card
}

func (Repeat) Kind() Kind { return KindRepeat }

type While struct {
	Cond Card
	Body []Card
}

func (While) Kind() Kind { return KindWhile }

// ForEach iterates Iterable (a table); VVar names the current value. IVar
// and KVar both name the same slot, which holds the current key: when both
// are set the slot is bound under IVar and KVar is not bound, and no name
// is bound to the iteration index. Names left empty are not bound; bound
// names scope to Body only.
type ForEach struct {
	IVar, KVar, VVar string
	Iterable         Card
	Body             []Card
}

func (ForEach) Kind() Kind { return KindForEach }

// ---- Calls --------------------------------------------------------------

// Call invokes the function named Name with Args, compiled left to right.
type Call struct {
	Name string
	Args []Card
}

func (Call) Kind() Kind { return KindCall }

// DynamicCall invokes a Function/Closure Value produced by Callee.
type DynamicCall struct {
	Callee Card
	Args   []Card
}

func (DynamicCall) Kind() Kind { return KindDynamicCall }

// CallNative invokes a host-registered native function by name.
type CallNative struct {
	Name string
	Args []Card
}

func (CallNative) Kind() Kind { return KindCallNative }

// FunctionLiteral pushes a Function value referencing the named function
// (which must exist in the flattened module), without calling it.
type FunctionLiteral struct{ Name string }

func (FunctionLiteral) Kind() Kind { return KindFunctionLiteral }

// NativeFunctionLiteral pushes a NativeFunction value for the named native.
type NativeFunctionLiteral struct{ Name string }

func (NativeFunctionLiteral) Kind() Kind { return KindNativeFunctionLiteral }

// Closure compiles Body as a fresh, anonymous function and pushes a Closure
// value capturing the upvalues the compiler discovers Body references from
// enclosing scopes.
type Closure struct {
	Arguments []string
	Body      []Card
}

func (Closure) Kind() Kind { return KindClosure }

// ---- Tables ---------------------------------------------------------------

type CreateTable struct{}

func (CreateTable) Kind() Kind { return KindCreateTable }

// GetProperty compiles Table then Key, pushes table[key] or Nil.
type GetProperty struct{ Table, Key Card }

func (GetProperty) Kind() Kind { return KindGetProperty }

// SetProperty compiles Table, Key, Value in that order.
type SetProperty struct{ Table, Key, Value Card }

func (SetProperty) Kind() Kind { return KindSetProperty }

// AppendTable compiles Table then Value, appends Value at the next integer
// key.
type AppendTable struct{ Table, Value Card }

func (AppendTable) Kind() Kind { return KindAppendTable }

// PopTable compiles Table, pops and pushes its most recently appended value.
type PopTable struct{ Table Card }

func (PopTable) Kind() Kind { return KindPopTable }

// Len compiles Value, pushes its length.
type Len struct{ Value Card }

func (Len) Kind() Kind { return KindLen }

// Get compiles Table then Index, pushes the value at that position in
// insertion order (not a key lookup — see GetProperty for that).
type Get struct{ Table, Index Card }

func (Get) Kind() Kind { return KindGet }

// Array builds a fresh table and appends each element in order; shorthand
// for CreateTable followed by a chain of AppendTable cards.
type Array struct{ Elements []Card }

func (Array) Kind() Kind { return KindArray }

// Composite groups Body under a user-meaningful Label with no semantics of
// its own: the compiler simply compiles Body in order.
type Composite struct {
	Label string
	Body  []Card
}

func (Composite) Kind() Kind { return KindComposite }
