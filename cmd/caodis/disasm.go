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

package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/cao-lang/cao-lang-go/bytecode"
	"github.com/cao-lang/cao-lang-go/collections"
)

// disassemble walks prog.Bytecode instruction by instruction and writes one
// "<offset>: <mnemonic> <operands>" line per instruction to w, decoding
// operand widths exactly as vm/exec.go's fetch-decode loop does.
func disassemble(prog *bytecode.CompiledProgram, w io.Writer, useColor bool) error {
	mnemonic := fmt.Sprintf
	if useColor {
		c := color.New(color.FgCyan, color.Bold)
		mnemonic = func(_ string, a ...interface{}) string { return c.Sprint(a[0]) }
	}

	code := prog.Bytecode
	ip := uint32(0)
	for ip < uint32(len(code)) {
		start := ip
		op := bytecode.Opcode(code[ip])
		ip++
		if !op.IsValid() {
			return fmt.Errorf("caodis: invalid opcode %d at offset %d", op, start)
		}

		operand, err := operandString(prog, op, code, &ip)
		if err != nil {
			return err
		}

		if operand == "" {
			fmt.Fprintf(w, "%6d: %s\n", start, mnemonic("%s", op.String()))
		} else {
			fmt.Fprintf(w, "%6d: %s %s\n", start, mnemonic("%s", op.String()), operand)
		}
	}
	return nil
}

// operandString decodes op's operand(s) starting at *ip, advancing *ip past
// them, and returns their printable form ("" for opcodes with no operand).
func operandString(prog *bytecode.CompiledProgram, op bytecode.Opcode, code []byte, ip *uint32) (string, error) {
	switch op {
	case bytecode.OpScalarInt:
		v := bytecode.ReadI64(code, *ip)
		*ip += 8
		return strconv.FormatInt(v, 10), nil

	case bytecode.OpScalarFloat:
		v := bytecode.ReadF64(code, *ip)
		*ip += 8
		return strconv.FormatFloat(v, 'g', -1, 64), nil

	case bytecode.OpStringLiteral:
		off := bytecode.ReadU32(code, *ip)
		*ip += 4
		return strconv.Quote(bytecode.ReadString(prog.Data, off)), nil

	case bytecode.OpSetLocalVar, bytecode.OpReadLocalVar:
		slot := bytecode.ReadU32(code, *ip)
		*ip += 4
		return fmt.Sprintf("slot=%d", slot), nil

	case bytecode.OpSetGlobalVar, bytecode.OpReadGlobalVar:
		id := bytecode.ReadU32(code, *ip)
		*ip += 4
		if name, ok := prog.Variables.Names[id]; ok {
			return fmt.Sprintf("%d (%s)", id, name), nil
		}
		return strconv.FormatUint(uint64(id), 10), nil

	case bytecode.OpGoto, bytecode.OpGotoIfTrue, bytecode.OpGotoIfFalse:
		target := bytecode.ReadU32(code, *ip)
		*ip += 4
		return fmt.Sprintf("-> %d", target), nil

	case bytecode.OpCallNative:
		h := bytecode.ReadU32(code, *ip)
		*ip += 4
		return fmt.Sprintf("handle=%#x", h), nil

	case bytecode.OpAbort:
		v := bytecode.ReadI32(code, *ip)
		*ip += 4
		return strconv.FormatInt(int64(v), 10), nil

	case bytecode.OpFunctionPointer, bytecode.OpNativeFunctionPointer, bytecode.OpClosure:
		h := bytecode.ReadU32(code, *ip)
		*ip += 4
		if lbl, ok := prog.LookupLabel(collections.Handle(h)); ok && lbl.Name != "" {
			return fmt.Sprintf("%#x (%s)", h, lbl.Name), nil
		}
		return fmt.Sprintf("%#x", h), nil

	case bytecode.OpReadUpvalue, bytecode.OpSetUpvalue:
		idx := bytecode.ReadU32(code, *ip)
		*ip += 4
		return fmt.Sprintf("idx=%d", idx), nil

	case bytecode.OpRegisterUpvalue:
		index := code[*ip]
		isLocal := code[*ip+1]
		*ip += 2
		return fmt.Sprintf("index=%d is_local=%t", index, isLocal != 0), nil

	case bytecode.OpBeginForEach:
		iSlot := bytecode.ReadU32(code, *ip)
		*ip += 4
		tSlot := bytecode.ReadU32(code, *ip)
		*ip += 4
		return fmt.Sprintf("i_slot=%d t_slot=%d", iSlot, tSlot), nil

	case bytecode.OpForEach:
		tSlot := bytecode.ReadU32(code, *ip)
		*ip += 4
		iSlot := bytecode.ReadU32(code, *ip)
		*ip += 4
		kSlot := bytecode.ReadU32(code, *ip)
		*ip += 4
		vSlot := bytecode.ReadU32(code, *ip)
		*ip += 4
		return fmt.Sprintf("t_slot=%d i_slot=%d k_slot=%d v_slot=%d", tSlot, iSlot, kSlot, vSlot), nil

	default:
		// OpAdd/Sub/Mul/Div, comparisons, logical ops, stack manipulation,
		// ScalarNil, CallFunction, Return, Exit, table ops and CloseUpvalue
		// all carry no inline operand.
		return "", nil
	}
}
