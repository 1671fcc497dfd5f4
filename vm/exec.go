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

package vm

import (
	"github.com/cao-lang/cao-lang-go/bytecode"
	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/collections"
	"github.com/cao-lang/cao-lang-go/value"
)

// run is the fetch-decode-execute loop. ip is the entry offset; the loop
// returns the single Value left by the terminating Return/Exit (Nil for
// Abort(0)), or
// a RuntimeError with its trace stack filled in from the program's trace
// table and the active call frames at the point of failure.
func (vm *Vm) run(ip uint32) (value.Value, error) {
	code := vm.program.Bytecode
	var iter uint64

	for {
		iter++
		if iter > vm.maxIter {
			return value.Nil, vm.fail(caoerr.NewRuntimeError(caoerr.Timeout, ""), ip)
		}

		op := bytecode.Opcode(code[ip])
		if !op.IsValid() {
			return value.Nil, vm.fail(caoerr.NewRuntimeError(caoerr.InternalRuntimeError, "invalid opcode"), ip)
		}
		at := ip
		ip++

		switch op {
		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
			b, a := vm.pop(), vm.pop()
			res, err := arith(op, a, b)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := vm.push(res); err != nil {
				return value.Nil, vm.fail(err, at)
			}

		case bytecode.OpEquals:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.ValuesEqual(a, b)))
		case bytecode.OpNotEquals:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!value.ValuesEqual(a, b)))
		case bytecode.OpLess:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.LessThan(a, b)))
		case bytecode.OpLessOrEq:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.LessOrEqual(a, b)))
		case bytecode.OpGreater:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.GreaterThan(a, b)))
		case bytecode.OpGreaterOrEq:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.GreaterOrEqual(a, b)))

		case bytecode.OpAnd:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.AsBool() && b.AsBool()))
		case bytecode.OpOr:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.AsBool() || b.AsBool()))
		case bytecode.OpXor:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.AsBool() != b.AsBool()))
		case bytecode.OpNot:
			a := vm.pop()
			vm.push(value.Bool(!a.AsBool()))

		case bytecode.OpCopyLast:
			if err := vm.push(vm.peek(0)); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpSwapLast:
			n := len(vm.stack)
			*vm.valueAt(n - 1), *vm.valueAt(n - 2) = *vm.valueAt(n-2), *vm.valueAt(n-1)
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpClearStack:
			vm.truncateTo(vm.currentFrame().StackOffset)

		case bytecode.OpScalarInt:
			v := bytecode.ReadI64(code, ip)
			ip += 8
			if err := vm.push(value.Int(v)); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpScalarFloat:
			f := bytecode.ReadF64(code, ip)
			ip += 8
			if err := vm.push(value.Real(f)); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpScalarNil:
			if err := vm.push(value.Nil); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpStringLiteral:
			off := bytecode.ReadU32(code, ip)
			ip += 4
			s := bytecode.ReadString(vm.program.Data, off)
			obj, err := vm.newObject(value.NewStringObject([]byte(s)))
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := vm.push(value.FromObject(obj)); err != nil {
				return value.Nil, vm.fail(err, at)
			}

		case bytecode.OpSetLocalVar:
			slot := bytecode.ReadU32(code, ip)
			ip += 4
			*vm.local(slot) = vm.pop()
		case bytecode.OpReadLocalVar:
			slot := bytecode.ReadU32(code, ip)
			ip += 4
			if err := vm.push(*vm.local(slot)); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpSetGlobalVar:
			id := bytecode.ReadU32(code, ip)
			ip += 4
			*vm.globalSlot(id) = vm.pop()
		case bytecode.OpReadGlobalVar:
			id := bytecode.ReadU32(code, ip)
			ip += 4
			if err := vm.push(*vm.globalSlot(id)); err != nil {
				return value.Nil, vm.fail(err, at)
			}

		case bytecode.OpGoto:
			ip = bytecode.ReadU32(code, ip)
		case bytecode.OpGotoIfTrue:
			target := bytecode.ReadU32(code, ip)
			ip += 4
			if vm.pop().AsBool() {
				ip = target
			}
		case bytecode.OpGotoIfFalse:
			target := bytecode.ReadU32(code, ip)
			ip += 4
			if !vm.pop().AsBool() {
				ip = target
			}

		case bytecode.OpCallFunction:
			next, err := vm.execCall(ip)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			ip = next
		case bytecode.OpCallNative:
			handle := collections.Handle(bytecode.ReadU32(code, ip))
			ip += 4
			if err := vm.execCallNative(handle); err != nil {
				return value.Nil, vm.fail(err, at)
			}

		case bytecode.OpReturn:
			result, done, err := vm.execReturn()
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if done {
				return result, nil
			}
			ip = vm.currentFrame().ReturnIP

		case bytecode.OpExit:
			return vm.pop(), nil
		case bytecode.OpAbort:
			code32 := bytecode.ReadI32(code, ip)
			if code32 == 0 {
				return value.Nil, nil
			}
			rt := caoerr.NewRuntimeError(caoerr.ExitCode, "")
			rt.Code = int(code32)
			return value.Nil, vm.fail(rt, at)

		case bytecode.OpInitTable:
			obj, err := vm.newObject(value.NewTableObject())
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := vm.push(value.FromObject(obj)); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpGetProperty:
			key, tbl := vm.pop(), vm.pop()
			t, err := vm.requireTable(tbl)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			v, _ := t.Get(key)
			if err := vm.push(v); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpSetProperty:
			val, key, tbl := vm.pop(), vm.pop(), vm.pop()
			t, err := vm.requireTable(tbl)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := t.Set(key, val); err != nil {
				return value.Nil, vm.fail(caoerr.NewRuntimeError(caoerr.Unhashable, ""), at)
			}
		case bytecode.OpAppendTable:
			val, tbl := vm.pop(), vm.pop()
			t, err := vm.requireTable(tbl)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			t.Append(val)
		case bytecode.OpPopTable:
			tbl := vm.pop()
			t, err := vm.requireTable(tbl)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			v, _ := t.Pop()
			if err := vm.push(v); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpNthRow:
			idx, tbl := vm.pop(), vm.pop()
			t, err := vm.requireTable(tbl)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			v, _ := t.NthValue(int(idx.AsInteger()))
			if err := vm.push(v); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpGet:
			idx, tbl := vm.pop(), vm.pop()
			t, err := vm.requireTable(tbl)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			v, _ := t.NthValue(int(idx.AsInteger()))
			if err := vm.push(v); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpLen:
			v := vm.pop()
			n := 0
			if v.IsObject() {
				n = v.AsObject().Len()
			}
			if err := vm.push(value.Int(int64(n))); err != nil {
				return value.Nil, vm.fail(err, at)
			}

		case bytecode.OpBeginForEach:
			iSlot := bytecode.ReadU32(code, ip)
			ip += 4
			tSlot := bytecode.ReadU32(code, ip)
			ip += 4
			tblVal := vm.pop()
			*vm.local(tSlot) = tblVal
			*vm.local(iSlot) = value.Int(0)
		case bytecode.OpForEach:
			tSlot := bytecode.ReadU32(code, ip)
			ip += 4
			iSlot := bytecode.ReadU32(code, ip)
			ip += 4
			kSlot := bytecode.ReadU32(code, ip)
			ip += 4
			vSlot := bytecode.ReadU32(code, ip)
			ip += 4
			cont, err := vm.execForEach(tSlot, iSlot, kSlot, vSlot)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := vm.push(value.Bool(cont)); err != nil {
				return value.Nil, vm.fail(err, at)
			}

		case bytecode.OpFunctionPointer:
			handle := collections.Handle(bytecode.ReadU32(code, ip))
			ip += 4
			lbl, ok := vm.program.LookupLabel(handle)
			if !ok {
				return value.Nil, vm.fail(caoerr.NewRuntimeError(caoerr.InternalRuntimeError, "unresolved function handle"), at)
			}
			obj, err := vm.newObject(value.NewFunctionObject(value.FunctionRef{Handle: uint32(handle), Arity: lbl.Arity}))
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := vm.push(value.FromObject(obj)); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpNativeFunctionPointer:
			handle := collections.Handle(bytecode.ReadU32(code, ip))
			ip += 4
			obj, err := vm.newObject(value.NewNativeFunctionObject(value.NativeRef{Handle: uint32(handle)}))
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := vm.push(value.FromObject(obj)); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpClosure:
			handle := collections.Handle(bytecode.ReadU32(code, ip))
			ip += 4
			obj, err := vm.newObject(value.NewClosureObject(value.FunctionRef{Handle: uint32(handle)}, nil))
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := vm.push(value.FromObject(obj)); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpRegisterUpvalue:
			index := code[ip]
			isLocal := code[ip+1]
			ip += 2
			if err := vm.execRegisterUpvalue(index, isLocal != 0); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpReadUpvalue:
			idx := bytecode.ReadU32(code, ip)
			ip += 4
			v, err := vm.readUpvalue(idx)
			if err != nil {
				return value.Nil, vm.fail(err, at)
			}
			if err := vm.push(v); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpSetUpvalue:
			idx := bytecode.ReadU32(code, ip)
			ip += 4
			if err := vm.setUpvalue(idx, vm.pop()); err != nil {
				return value.Nil, vm.fail(err, at)
			}
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalueAt(vm.valueAt(len(vm.stack) - 1))

		default:
			return value.Nil, vm.fail(caoerr.NewRuntimeError(caoerr.RuntimeUnimplemented, op.String()), at)
		}
	}
}

func (vm *Vm) requireTable(v value.Value) (*value.Table, error) {
	obj := v.AsObject()
	if obj == nil || obj.Kind != value.KindTable {
		return nil, caoerr.NewRuntimeError(caoerr.InvalidArgument, "expected table")
	}
	return obj.Table, nil
}

func (vm *Vm) execForEach(tSlot, iSlot, kSlot, vSlot uint32) (bool, error) {
	t, err := vm.requireTable(*vm.local(tSlot))
	if err != nil {
		return false, err
	}
	idx := int(vm.local(iSlot).AsInteger())
	if idx >= t.Len() {
		return false, nil
	}
	k, _ := t.NthKey(idx)
	v, _ := t.NthValue(idx)
	*vm.local(kSlot) = k
	*vm.local(vSlot) = v
	*vm.local(iSlot) = value.Int(int64(idx + 1))
	return true, nil
}

// execCall pops the function/closure value and its arity of arguments,
// pushes a new CallFrame over those argument slots, and returns the
// bytecode offset execution resumes at.
func (vm *Vm) execCall(retIP uint32) (uint32, error) {
	callee := vm.pop()
	obj := callee.AsObject()
	if obj == nil || (obj.Kind != value.KindFunction && obj.Kind != value.KindClosure) {
		return 0, caoerr.NewRuntimeError(caoerr.NotCallable, "")
	}
	var handle collections.Handle
	var closure *value.Object
	if obj.Kind == value.KindFunction {
		handle = collections.Handle(obj.Function.Handle)
	} else {
		handle = collections.Handle(obj.Closure.Function.Handle)
		closure = obj
	}
	lbl, ok := vm.program.LookupLabel(handle)
	if !ok {
		return 0, caoerr.NewRuntimeError(caoerr.InternalRuntimeError, "unresolved call target")
	}
	if len(vm.frames) >= vm.maxCallStack {
		return 0, caoerr.NewRuntimeError(caoerr.CallStackOverflow, "")
	}
	arity := int(lbl.Arity)
	if len(vm.stack) < arity {
		return 0, caoerr.NewRuntimeError(caoerr.MissingArgument, lbl.Name)
	}
	vm.frames = append(vm.frames, CallFrame{
		ReturnIP:    retIP,
		StackOffset: len(vm.stack) - arity,
		Closure:     closure,
		Handle:      uint32(handle),
	})
	return lbl.Offset, nil
}

// execReturn pops the returned value, closes any still-open upvalues
// belonging to the returning frame's locals, and unwinds the call stack by
// one frame. done is true once the outermost frame itself returns, at which
// point result is the program's final value.
func (vm *Vm) execReturn() (result value.Value, done bool, err error) {
	ret := vm.pop()
	frame := vm.currentFrame()
	vm.closeUpvaluesFrom(frame.StackOffset)
	vm.truncateTo(frame.StackOffset)
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		return ret, true, nil
	}
	if err := vm.push(ret); err != nil {
		return value.Nil, true, err
	}
	return value.Nil, false, nil
}

func (vm *Vm) execRegisterUpvalue(index uint8, isLocal bool) error {
	closureVal := vm.peek(0)
	closureObj := closureVal.AsObject()
	if closureObj == nil || closureObj.Kind != value.KindClosure {
		return caoerr.NewRuntimeError(caoerr.NotClosure, "")
	}
	enclosing := vm.currentFrame()
	var uv *value.Object
	if isLocal {
		loc := vm.valueAt(enclosing.StackOffset + int(index))
		captured, err := vm.captureUpvalue(loc)
		if err != nil {
			return err
		}
		uv = captured
	} else {
		if enclosing.Closure == nil || int(index) >= len(enclosing.Closure.Closure.Upvalues) {
			return caoerr.NewRuntimeError(caoerr.InvalidUpvalue, "")
		}
		uv = enclosing.Closure.Closure.Upvalues[index]
	}
	closureObj.Closure.Upvalues = append(closureObj.Closure.Upvalues, uv)
	return nil
}

func (vm *Vm) readUpvalue(idx uint32) (value.Value, error) {
	closure := vm.currentFrame().Closure
	if closure == nil || int(idx) >= len(closure.Closure.Upvalues) {
		return value.Nil, caoerr.NewRuntimeError(caoerr.InvalidUpvalue, "")
	}
	uv := closure.Closure.Upvalues[idx].Upvalue
	if uv.Open {
		return *uv.Location, nil
	}
	return uv.Value, nil
}

func (vm *Vm) setUpvalue(idx uint32, v value.Value) error {
	closure := vm.currentFrame().Closure
	if closure == nil || int(idx) >= len(closure.Closure.Upvalues) {
		return caoerr.NewRuntimeError(caoerr.InvalidUpvalue, "")
	}
	uv := closure.Closure.Upvalues[idx].Upvalue
	if uv.Open {
		*uv.Location = v
	} else {
		uv.Value = v
	}
	return nil
}

// fail attaches the trace recorded for the failing instruction, plus one
// entry per still-active call frame (approximated by the call site the
// frame will resume at), to a RuntimeError as it propagates out of run.
func (vm *Vm) fail(err error, at uint32) error {
	rt, ok := err.(*caoerr.RuntimeError)
	if !ok {
		return err
	}
	if tr, ok := vm.program.TraceAt(at); ok {
		rt = rt.WithTrace(tr)
	}
	for i := len(vm.frames) - 1; i >= 0; i-- {
		if tr, ok := vm.program.TraceAt(vm.frames[i].ReturnIP); ok {
			rt = rt.WithTrace(tr)
		}
	}
	return rt
}

func arith(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	if a.IsInteger() && b.IsInteger() {
		x, y := a.AsInteger(), b.AsInteger()
		switch op {
		case bytecode.OpAdd:
			return value.Int(x + y), nil
		case bytecode.OpSub:
			return value.Int(x - y), nil
		case bytecode.OpMul:
			return value.Int(x * y), nil
		case bytecode.OpDiv:
			if y == 0 {
				return value.Nil, caoerr.NewRuntimeError(caoerr.InvalidArgument, "division by zero")
			}
			return value.Int(x / y), nil
		}
	}
	fx, fy := widen(a), widen(b)
	switch op {
	case bytecode.OpAdd:
		return value.Real(fx + fy), nil
	case bytecode.OpSub:
		return value.Real(fx - fy), nil
	case bytecode.OpMul:
		return value.Real(fx * fy), nil
	case bytecode.OpDiv:
		if fy == 0 {
			return value.Nil, caoerr.NewRuntimeError(caoerr.InvalidArgument, "division by zero")
		}
		return value.Real(fx / fy), nil
	}
	return value.Nil, caoerr.NewRuntimeError(caoerr.InternalRuntimeError, "bad arithmetic opcode")
}

func widen(v value.Value) float64 {
	if v.IsInteger() {
		return float64(v.AsInteger())
	}
	return v.AsReal()
}
