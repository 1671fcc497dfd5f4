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

package compiler

import (
	"fmt"
	"strings"

	"github.com/cao-lang/cao-lang-go/bytecode"
	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/card"
	"github.com/cao-lang/cao-lang-go/collections"
)

var binOpcodes = map[card.Kind]bytecode.Opcode{
	card.KindAdd:         bytecode.OpAdd,
	card.KindSub:         bytecode.OpSub,
	card.KindMul:         bytecode.OpMul,
	card.KindDiv:         bytecode.OpDiv,
	card.KindEquals:      bytecode.OpEquals,
	card.KindNotEquals:   bytecode.OpNotEquals,
	card.KindLess:        bytecode.OpLess,
	card.KindLessOrEq:    bytecode.OpLessOrEq,
	card.KindGreater:     bytecode.OpGreater,
	card.KindGreaterOrEq: bytecode.OpGreaterOrEq,
	card.KindAnd:         bytecode.OpAnd,
	card.KindOr:          bytecode.OpOr,
	card.KindXor:         bytecode.OpXor,
}

type compileCtx struct {
	opts  Options
	prog  *bytecode.CompiledProgram
	index map[string]int
	flat  []FlatFunction
	stack []*funcState
}

// Compile flattens root (with std injected as the implicit "std" submodule,
// when non-nil) and emits a complete CompiledProgram. std is passed in by the
// caller (rather than imported directly) so this package has no dependency
// on the stdlib package, avoiding an import cycle.
func Compile(root *card.Module, std *card.Module, opts Options) (*bytecode.CompiledProgram, error) {
	flat, err := Flatten(root, std, opts)
	if err != nil {
		return nil, err
	}
	prog := bytecode.NewCompiledProgram()
	index := make(map[string]int, len(flat))
	for i, f := range flat {
		dotted := f.dotted()
		h := collections.HashName(dotted)
		if _, exists := prog.Labels.Get(h); exists {
			return nil, caoerr.NewCompileError(caoerr.DuplicateName, dotted, caoerr.Trace{Namespace: f.Namespace})
		}
		prog.Labels.Insert(h, bytecode.Label{Name: dotted, Arity: uint32(len(f.Function.Arguments))})
		index[dotted] = i
	}

	ctx := &compileCtx{opts: opts, prog: prog, index: index, flat: flat}
	for i, f := range flat {
		if err := ctx.compileNamedFunction(f); err != nil {
			return nil, err
		}
		if i == 0 {
			ctx.emitI32NoTrace(bytecode.OpAbort, 0)
		}
	}
	return prog, nil
}

func (ctx *compileCtx) compileNamedFunction(f FlatFunction) error {
	if len(f.Function.Cards) > ctx.opts.MaxCardsPerFunction {
		return caoerr.NewCompileError(caoerr.TooManyCards, f.dotted(), caoerr.Trace{Namespace: f.Namespace})
	}
	fs := newFuncState(f.Namespace, f.Imports, f.Function.Arguments)
	ctx.stack = append(ctx.stack, fs)
	defer func() { ctx.stack = ctx.stack[:len(ctx.stack)-1] }()

	offset := uint32(len(ctx.prog.Bytecode))
	dotted := f.dotted()
	h := collections.HashName(dotted)
	lbl, _ := ctx.prog.Labels.Get(h)
	lbl.Offset = offset
	ctx.prog.Labels.Insert(h, lbl)

	for _, c := range f.Function.Cards {
		if err := ctx.compileCard(fs, c); err != nil {
			return err
		}
	}
	ctx.emitOp(fs, bytecode.OpScalarNil)
	ctx.emitOp(fs, bytecode.OpReturn)
	return nil
}

func (ctx *compileCtx) trace(fs *funcState) caoerr.Trace {
	return caoerr.Trace{Namespace: fs.namespace, CardIndex: fs.cardIndex}
}

// ---- emit helpers ---------------------------------------------------------

func (ctx *compileCtx) emitOp(fs *funcState, op bytecode.Opcode) {
	offset := uint32(len(ctx.prog.Bytecode))
	ctx.prog.Bytecode = append(ctx.prog.Bytecode, byte(op))
	ctx.prog.Trace[offset] = ctx.trace(fs)
}

func (ctx *compileCtx) emitU32(fs *funcState, op bytecode.Opcode, v uint32) {
	ctx.emitOp(fs, op)
	ctx.prog.Bytecode = bytecode.PutU32(ctx.prog.Bytecode, v)
}

func (ctx *compileCtx) emitI32(fs *funcState, op bytecode.Opcode, v int32) {
	ctx.emitOp(fs, op)
	ctx.prog.Bytecode = bytecode.PutI32(ctx.prog.Bytecode, v)
}

func (ctx *compileCtx) emitI32NoTrace(op bytecode.Opcode, v int32) {
	ctx.prog.Bytecode = append(ctx.prog.Bytecode, byte(op))
	ctx.prog.Bytecode = bytecode.PutI32(ctx.prog.Bytecode, v)
}

func (ctx *compileCtx) emitI64(fs *funcState, op bytecode.Opcode, v int64) {
	ctx.emitOp(fs, op)
	ctx.prog.Bytecode = bytecode.PutI64(ctx.prog.Bytecode, v)
}

func (ctx *compileCtx) emitF64(fs *funcState, op bytecode.Opcode, v float64) {
	ctx.emitOp(fs, op)
	ctx.prog.Bytecode = bytecode.PutF64(ctx.prog.Bytecode, v)
}

func (ctx *compileCtx) emitU8U8(fs *funcState, op bytecode.Opcode, a, b uint8) {
	ctx.emitOp(fs, op)
	ctx.prog.Bytecode = bytecode.PutU8(ctx.prog.Bytecode, a)
	ctx.prog.Bytecode = bytecode.PutU8(ctx.prog.Bytecode, b)
}

// emitJump emits op followed by a placeholder u32 target and returns the
// operand's offset, to be resolved later by patchJump.
func (ctx *compileCtx) emitJump(fs *funcState, op bytecode.Opcode) uint32 {
	ctx.emitOp(fs, op)
	at := uint32(len(ctx.prog.Bytecode))
	ctx.prog.Bytecode = bytecode.PutU32(ctx.prog.Bytecode, 0)
	return at
}

func (ctx *compileCtx) patchJumpHere(operandOffset uint32) {
	bytecode.PatchU32(ctx.prog.Bytecode, operandOffset, uint32(len(ctx.prog.Bytecode)))
}

func (ctx *compileCtx) emitGotoTo(fs *funcState, op bytecode.Opcode, target uint32) {
	ctx.emitU32(fs, op, target)
}

// ---- scope management -----------------------------------------------------

func (ctx *compileCtx) enterScope(fs *funcState) { fs.scopeDepth++ }

func (ctx *compileCtx) exitScope(fs *funcState) {
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		last := fs.locals[len(fs.locals)-1]
		if last.captured {
			ctx.emitOp(fs, bytecode.OpCloseUpvalue)
		}
		ctx.emitOp(fs, bytecode.OpPop)
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

// resolveUpvalue finds name as a value captured (directly or transitively)
// from an ancestor of ctx.stack[stackIdx], registering the capture chain on
// every closure in between. Returns the upvalue index within
// ctx.stack[stackIdx], or false if name isn't a local anywhere up the chain.
func (ctx *compileCtx) resolveUpvalue(stackIdx int, name string) (uint32, bool) {
	fs := ctx.stack[stackIdx]
	for i, uv := range fs.upvalues {
		if uv.name == name {
			return uint32(i), true
		}
	}
	if stackIdx == 0 {
		return 0, false
	}
	parentIdx := stackIdx - 1
	parent := ctx.stack[parentIdx]
	if slot, ok := parent.resolveLocal(name); ok {
		parent.markCaptured(slot)
		fs.upvalues = append(fs.upvalues, upvalueDesc{name: name, isLocal: true, index: slot})
		return uint32(len(fs.upvalues) - 1), true
	}
	if idx, ok := ctx.resolveUpvalue(parentIdx, name); ok {
		fs.upvalues = append(fs.upvalues, upvalueDesc{name: name, isLocal: false, index: idx})
		return uint32(len(fs.upvalues) - 1), true
	}
	return 0, false
}

func (ctx *compileCtx) resolveCallTarget(fs *funcState, name string) (collections.Handle, error) {
	if alias, ok := fs.imports[name]; ok {
		return collections.HashName(alias), nil
	}
	if _, ok := ctx.index[name]; ok {
		return collections.HashName(name), nil
	}
	if len(fs.namespace) > 1 {
		sibling := strings.Join(append(append([]string{}, fs.namespace[:len(fs.namespace)-1]...), name), ".")
		if _, ok := ctx.index[sibling]; ok {
			return collections.HashName(sibling), nil
		}
	}
	return 0, caoerr.NewCompileError(caoerr.BadFunctionName, name, ctx.trace(fs))
}

// ---- card dispatch ----------------------------------------------------

func (ctx *compileCtx) compileBody(fs *funcState, body []card.Card) error {
	ctx.enterScope(fs)
	for _, c := range body {
		if err := ctx.compileCard(fs, c); err != nil {
			return err
		}
	}
	ctx.exitScope(fs)
	return nil
}

func (ctx *compileCtx) compileCard(fs *funcState, c card.Card) error {
	fs.cardIndex = fs.cardCounter
	fs.cardCounter++

	switch v := c.(type) {
	case *card.BinOp:
		if err := ctx.compileCard(fs, v.Left); err != nil {
			return err
		}
		if err := ctx.compileCard(fs, v.Right); err != nil {
			return err
		}
		op, ok := binOpcodes[v.K]
		if !ok {
			return caoerr.NewCompileError(caoerr.Unimplemented, fmt.Sprintf("binop kind %d", v.K), ctx.trace(fs))
		}
		ctx.emitOp(fs, op)
		return nil

	case *card.UnOp:
		if err := ctx.compileCard(fs, v.Operand); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpNot)
		return nil

	case card.CopyLast:
		ctx.emitOp(fs, bytecode.OpCopyLast)
		return nil
	case card.Pop:
		ctx.emitOp(fs, bytecode.OpPop)
		return nil
	case card.Pass:
		return nil
	case card.Return:
		if err := ctx.compileCard(fs, v.Value); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpReturn)
		return nil
	case card.Abort:
		ctx.emitI32(fs, bytecode.OpAbort, v.Code)
		return nil

	case card.ScalarInt:
		ctx.emitI64(fs, bytecode.OpScalarInt, v.Value)
		return nil
	case card.ScalarFloat:
		ctx.emitF64(fs, bytecode.OpScalarFloat, v.Value)
		return nil
	case card.ScalarNil:
		ctx.emitOp(fs, bytecode.OpScalarNil)
		return nil
	case card.StringLiteral:
		data, off := bytecode.PutString(ctx.prog.Data, v.Value)
		ctx.prog.Data = data
		ctx.emitU32(fs, bytecode.OpStringLiteral, off)
		return nil

	case card.ReadVar:
		return ctx.compileReadVar(fs, v.Name)
	case card.SetVar:
		return ctx.compileSetVar(fs, v.Name, v.Value)
	case card.SetGlobalVar:
		return ctx.compileSetGlobalVar(fs, v.Name, v.Value)

	case card.IfTrue:
		return ctx.compileIfTrue(fs, v)
	case card.IfFalse:
		return ctx.compileIfFalse(fs, v)
	case card.IfElse:
		return ctx.compileIfElse(fs, v)
	case card.Repeat:
		return ctx.compileRepeat(fs, v)
	case card.While:
		return ctx.compileWhile(fs, v)
	case card.ForEach:
		return ctx.compileForEach(fs, v)

	case card.Call:
		return ctx.compileCall(fs, v)
	case card.DynamicCall:
		return ctx.compileDynamicCall(fs, v)
	case card.CallNative:
		return ctx.compileCallNative(fs, v)
	case card.FunctionLiteral:
		handle, err := ctx.resolveCallTarget(fs, v.Name)
		if err != nil {
			return err
		}
		ctx.emitU32(fs, bytecode.OpFunctionPointer, uint32(handle))
		return nil
	case card.NativeFunctionLiteral:
		ctx.emitU32(fs, bytecode.OpNativeFunctionPointer, uint32(collections.HashName(v.Name)))
		return nil
	case card.Closure:
		return ctx.compileClosure(fs, v)

	case card.CreateTable:
		ctx.emitOp(fs, bytecode.OpInitTable)
		return nil
	case card.GetProperty:
		if err := ctx.compileCard(fs, v.Table); err != nil {
			return err
		}
		if err := ctx.compileCard(fs, v.Key); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpGetProperty)
		return nil
	case card.SetProperty:
		if err := ctx.compileCard(fs, v.Table); err != nil {
			return err
		}
		if err := ctx.compileCard(fs, v.Key); err != nil {
			return err
		}
		if err := ctx.compileCard(fs, v.Value); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpSetProperty)
		return nil
	case card.AppendTable:
		if err := ctx.compileCard(fs, v.Table); err != nil {
			return err
		}
		if err := ctx.compileCard(fs, v.Value); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpAppendTable)
		return nil
	case card.PopTable:
		if err := ctx.compileCard(fs, v.Table); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpPopTable)
		return nil
	case card.Len:
		if err := ctx.compileCard(fs, v.Value); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpLen)
		return nil
	case card.Get:
		if err := ctx.compileCard(fs, v.Table); err != nil {
			return err
		}
		if err := ctx.compileCard(fs, v.Index); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpGet)
		return nil
	case card.Array:
		ctx.emitOp(fs, bytecode.OpInitTable)
		for _, el := range v.Elements {
			ctx.emitOp(fs, bytecode.OpCopyLast)
			if err := ctx.compileCard(fs, el); err != nil {
				return err
			}
			ctx.emitOp(fs, bytecode.OpAppendTable)
		}
		return nil
	case card.Composite:
		for _, inner := range v.Body {
			if err := ctx.compileCard(fs, inner); err != nil {
				return err
			}
		}
		return nil
	}
	return caoerr.NewCompileError(caoerr.Unimplemented, fmt.Sprintf("%T", c), ctx.trace(fs))
}

func (ctx *compileCtx) compileReadVar(fs *funcState, name string) error {
	if slot, ok := fs.resolveLocal(name); ok {
		ctx.emitU32(fs, bytecode.OpReadLocalVar, slot)
		return nil
	}
	if idx, ok := ctx.resolveUpvalue(len(ctx.stack)-1, name); ok {
		ctx.emitU32(fs, bytecode.OpReadUpvalue, idx)
		return nil
	}
	id := ctx.prog.Variables.Intern(name)
	ctx.emitU32(fs, bytecode.OpReadGlobalVar, id)
	return nil
}

func (ctx *compileCtx) validateVarName(fs *funcState, name string) error {
	if name == "" {
		return caoerr.NewCompileError(caoerr.EmptyVariable, "", ctx.trace(fs))
	}
	if !validName(name) {
		return caoerr.NewCompileError(caoerr.BadVariableName, name, ctx.trace(fs))
	}
	return nil
}

func (ctx *compileCtx) compileSetVar(fs *funcState, name string, value card.Card) error {
	if err := ctx.validateVarName(fs, name); err != nil {
		return err
	}
	if err := ctx.compileCard(fs, value); err != nil {
		return err
	}
	if len(fs.locals) >= ctx.opts.MaxLocals {
		return caoerr.NewCompileError(caoerr.TooManyLocals, name, ctx.trace(fs))
	}
	slot := fs.pushLocal(name)
	ctx.emitU32(fs, bytecode.OpSetLocalVar, slot)
	return nil
}

func (ctx *compileCtx) compileSetGlobalVar(fs *funcState, name string, value card.Card) error {
	if err := ctx.validateVarName(fs, name); err != nil {
		return err
	}
	if err := ctx.compileCard(fs, value); err != nil {
		return err
	}
	id := ctx.prog.Variables.Intern(name)
	ctx.emitU32(fs, bytecode.OpSetGlobalVar, id)
	return nil
}

func (ctx *compileCtx) compileIfTrue(fs *funcState, v card.IfTrue) error {
	if err := ctx.compileCard(fs, v.Cond); err != nil {
		return err
	}
	end := ctx.emitJump(fs, bytecode.OpGotoIfFalse)
	if err := ctx.compileBody(fs, v.Body); err != nil {
		return err
	}
	ctx.patchJumpHere(end)
	return nil
}

func (ctx *compileCtx) compileIfFalse(fs *funcState, v card.IfFalse) error {
	if err := ctx.compileCard(fs, v.Cond); err != nil {
		return err
	}
	end := ctx.emitJump(fs, bytecode.OpGotoIfTrue)
	if err := ctx.compileBody(fs, v.Body); err != nil {
		return err
	}
	ctx.patchJumpHere(end)
	return nil
}

func (ctx *compileCtx) compileIfElse(fs *funcState, v card.IfElse) error {
	if err := ctx.compileCard(fs, v.Cond); err != nil {
		return err
	}
	thenPatch := ctx.emitJump(fs, bytecode.OpGotoIfTrue)
	if err := ctx.compileBody(fs, v.Else); err != nil {
		return err
	}
	endPatch := ctx.emitJump(fs, bytecode.OpGoto)
	ctx.patchJumpHere(thenPatch)
	if err := ctx.compileBody(fs, v.Then); err != nil {
		return err
	}
	ctx.patchJumpHere(endPatch)
	return nil
}

// compileRepeat lowers: compile N, then loop while count != 0, running Body
// (with IVar bound to the current count if set) and decrementing by one
// each pass; Repeat(0, ...) runs Body zero times since the zero-test
// dominates the body.
func (ctx *compileCtx) compileRepeat(fs *funcState, v card.Repeat) error {
	if err := ctx.compileCard(fs, v.N); err != nil {
		return err
	}
	top := uint32(len(ctx.prog.Bytecode))
	ctx.emitOp(fs, bytecode.OpCopyLast)
	ctx.emitI64(fs, bytecode.OpScalarInt, 0)
	ctx.emitOp(fs, bytecode.OpEquals)
	end := ctx.emitJump(fs, bytecode.OpGotoIfTrue)

	ctx.enterScope(fs)
	if v.IVar != "" {
		if err := ctx.validateVarName(fs, v.IVar); err != nil {
			return err
		}
		ctx.emitOp(fs, bytecode.OpCopyLast)
		slot := fs.pushLocal(v.IVar)
		ctx.emitU32(fs, bytecode.OpSetLocalVar, slot)
	}
	for _, c := range v.Body {
		if err := ctx.compileCard(fs, c); err != nil {
			return err
		}
	}
	ctx.exitScope(fs)

	ctx.emitI64(fs, bytecode.OpScalarInt, 1)
	ctx.emitOp(fs, bytecode.OpSub)
	ctx.emitGotoTo(fs, bytecode.OpGoto, top)
	ctx.patchJumpHere(end)
	ctx.emitOp(fs, bytecode.OpPop)
	return nil
}

func (ctx *compileCtx) compileWhile(fs *funcState, v card.While) error {
	top := uint32(len(ctx.prog.Bytecode))
	if err := ctx.compileCard(fs, v.Cond); err != nil {
		return err
	}
	end := ctx.emitJump(fs, bytecode.OpGotoIfFalse)
	if err := ctx.compileBody(fs, v.Body); err != nil {
		return err
	}
	ctx.emitGotoTo(fs, bytecode.OpGoto, top)
	ctx.patchJumpHere(end)
	return nil
}

// compileForEach reserves four locals (table, iterator index, key, value)
// for the duration of the loop; BeginForEach seeds the table/index slots and
// ForEach advances them each pass, pushing whether iteration should
// continue.
func (ctx *compileCtx) compileForEach(fs *funcState, v card.ForEach) error {
	ctx.enterScope(fs)
	tSlot := fs.pushLocal("$iter_table")
	iSlot := fs.pushLocal("$iter_index")
	// IVar and KVar both name the "current key" slot; the slot takes one
	// name, so IVar takes priority when both are set and KVar is left
	// unbound.
	kName := v.IVar
	if kName == "" {
		kName = v.KVar
	}
	if kName == "" {
		kName = "$iter_key"
	}
	vName := v.VVar
	if vName == "" {
		vName = "$iter_value"
	}
	kSlot := fs.pushLocal(kName)
	vSlot := fs.pushLocal(vName)

	if err := ctx.compileCard(fs, v.Iterable); err != nil {
		return err
	}
	ctx.emitU32(fs, bytecode.OpBeginForEach, iSlot)
	ctx.prog.Bytecode = bytecode.PutU32(ctx.prog.Bytecode, tSlot)

	top := uint32(len(ctx.prog.Bytecode))
	ctx.emitU32(fs, bytecode.OpForEach, tSlot)
	ctx.prog.Bytecode = bytecode.PutU32(ctx.prog.Bytecode, iSlot)
	ctx.prog.Bytecode = bytecode.PutU32(ctx.prog.Bytecode, kSlot)
	ctx.prog.Bytecode = bytecode.PutU32(ctx.prog.Bytecode, vSlot)
	end := ctx.emitJump(fs, bytecode.OpGotoIfFalse)

	for _, c := range v.Body {
		if err := ctx.compileCard(fs, c); err != nil {
			return err
		}
	}
	ctx.emitGotoTo(fs, bytecode.OpGoto, top)
	ctx.patchJumpHere(end)
	ctx.exitScope(fs)
	return nil
}

func (ctx *compileCtx) compileCall(fs *funcState, v card.Call) error {
	for _, a := range v.Args {
		if err := ctx.compileCard(fs, a); err != nil {
			return err
		}
	}
	handle, err := ctx.resolveCallTarget(fs, v.Name)
	if err != nil {
		return err
	}
	ctx.emitU32(fs, bytecode.OpFunctionPointer, uint32(handle))
	ctx.emitOp(fs, bytecode.OpCallFunction)
	return nil
}

func (ctx *compileCtx) compileDynamicCall(fs *funcState, v card.DynamicCall) error {
	for _, a := range v.Args {
		if err := ctx.compileCard(fs, a); err != nil {
			return err
		}
	}
	if err := ctx.compileCard(fs, v.Callee); err != nil {
		return err
	}
	ctx.emitOp(fs, bytecode.OpCallFunction)
	return nil
}

func (ctx *compileCtx) compileCallNative(fs *funcState, v card.CallNative) error {
	for _, a := range v.Args {
		if err := ctx.compileCard(fs, a); err != nil {
			return err
		}
	}
	ctx.emitU32(fs, bytecode.OpCallNative, uint32(collections.HashName(v.Name)))
	return nil
}

// compileClosure compiles the closure's body inline, skipped over by a
// Goto so the enclosing function's control flow never falls into it, then
// emits Closure+RegisterUpvalue at the call site using the capture list
// discovered while compiling the body.
func (ctx *compileCtx) compileClosure(fs *funcState, v card.Closure) error {
	skip := ctx.emitJump(fs, bytecode.OpGoto)

	seq := fs.closureSeq
	fs.closureSeq++
	childNamespace := append(append([]string{}, fs.namespace...), fmt.Sprintf("$closure%d", seq))
	dotted := strings.Join(childNamespace, ".")
	handle := collections.HashName(dotted)

	offset := uint32(len(ctx.prog.Bytecode))
	ctx.prog.Labels.Insert(handle, bytecode.Label{Name: dotted, Offset: offset, Arity: uint32(len(v.Arguments))})

	child := newFuncState(childNamespace, fs.imports, v.Arguments)
	child.isClosure = true
	ctx.stack = append(ctx.stack, child)
	for _, c := range v.Body {
		if err := ctx.compileCard(child, c); err != nil {
			return err
		}
	}
	ctx.emitOp(child, bytecode.OpScalarNil)
	ctx.emitOp(child, bytecode.OpReturn)
	ctx.stack = ctx.stack[:len(ctx.stack)-1]

	ctx.patchJumpHere(skip)

	ctx.emitU32(fs, bytecode.OpClosure, uint32(handle))
	for _, uv := range child.upvalues {
		isLocal := uint8(0)
		if uv.isLocal {
			isLocal = 1
		}
		ctx.emitU8U8(fs, bytecode.OpRegisterUpvalue, uint8(uv.index), isLocal)
	}
	return nil
}
