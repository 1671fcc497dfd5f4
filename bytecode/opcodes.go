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

// Package bytecode defines the instruction set, the compiled program
// envelope (CompiledProgram) and the encode/decode helpers shared by the
// compiler (which emits), the VM (which fetches and decodes) and the
// cmd/caodis disassembler (which only decodes).
package bytecode

// Opcode is a single-byte instruction tag. Operands, when present, follow
// inline in the bytecode stream; see OperandWidth.
type Opcode uint8

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv

	OpEquals
	OpNotEquals
	OpLess
	OpLessOrEq
	OpGreater
	OpGreaterOrEq

	OpAnd
	OpOr
	OpXor
	OpNot

	OpCopyLast
	OpSwapLast
	OpPop
	OpClearStack

	OpScalarInt    // i64
	OpScalarFloat  // f64
	OpScalarNil    //
	OpStringLiteral // u32 data offset

	OpSetLocalVar  // u32 slot
	OpReadLocalVar // u32 slot
	OpSetGlobalVar // u32 id
	OpReadGlobalVar // u32 id

	OpGoto        // u32 target
	OpGotoIfTrue  // u32 target
	OpGotoIfFalse // u32 target

	OpCallFunction // (arity resolved from the Function value popped at runtime)
	OpCallNative   // u32 handle

	OpReturn
	OpExit
	OpAbort // i32 exit code

	OpInitTable
	OpGetProperty
	OpSetProperty
	OpAppendTable
	OpPopTable
	OpNthRow
	OpGet
	OpLen

	OpBeginForEach // u32 slot_i, u32 slot_t
	OpForEach      // u32 t_slot, u32 i_slot, u32 k_slot, u32 v_slot

	OpFunctionPointer       // u32 handle (arity is read from the label table)
	OpNativeFunctionPointer // u32 handle
	OpClosure               // u32 handle (upvalues attached by the RegisterUpvalue sequence that follows)
	OpRegisterUpvalue       // u8 index, u8 is_local
	OpReadUpvalue           // u32 index
	OpSetUpvalue            // u32 index
	OpCloseUpvalue

	opcodeCount
)

var mnemonics = [...]string{
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV",
	OpEquals: "EQ", OpNotEquals: "NEQ", OpLess: "LT", OpLessOrEq: "LTE",
	OpGreater: "GT", OpGreaterOrEq: "GTE",
	OpAnd: "AND", OpOr: "OR", OpXor: "XOR", OpNot: "NOT",
	OpCopyLast: "COPY_LAST", OpSwapLast: "SWAP_LAST", OpPop: "POP", OpClearStack: "CLEAR_STACK",
	OpScalarInt: "SCALAR_INT", OpScalarFloat: "SCALAR_FLOAT", OpScalarNil: "SCALAR_NIL",
	OpStringLiteral: "STRING_LITERAL",
	OpSetLocalVar:   "SET_LOCAL", OpReadLocalVar: "READ_LOCAL",
	OpSetGlobalVar: "SET_GLOBAL", OpReadGlobalVar: "READ_GLOBAL",
	OpGoto: "GOTO", OpGotoIfTrue: "GOTO_IF_TRUE", OpGotoIfFalse: "GOTO_IF_FALSE",
	OpCallFunction: "CALL_FUNCTION", OpCallNative: "CALL_NATIVE",
	OpReturn: "RETURN", OpExit: "EXIT", OpAbort: "ABORT",
	OpInitTable: "INIT_TABLE", OpGetProperty: "GET_PROPERTY", OpSetProperty: "SET_PROPERTY",
	OpAppendTable: "APPEND_TABLE", OpPopTable: "POP_TABLE", OpNthRow: "NTH_ROW", OpGet: "GET", OpLen: "LEN",
	OpBeginForEach: "BEGIN_FOR_EACH", OpForEach: "FOR_EACH",
	OpFunctionPointer: "FUNCTION_PTR", OpNativeFunctionPointer: "NATIVE_FUNCTION_PTR",
	OpClosure: "CLOSURE", OpRegisterUpvalue: "REGISTER_UPVALUE",
	OpReadUpvalue: "READ_UPVALUE", OpSetUpvalue: "SET_UPVALUE", OpCloseUpvalue: "CLOSE_UPVALUE",
}

func (op Opcode) String() string {
	if int(op) < len(mnemonics) && mnemonics[op] != "" {
		return mnemonics[op]
	}
	return "UNKNOWN"
}

// IsValid reports whether op is a recognized opcode (used by the VM's fetch
// loop to raise an internal error instead of decoding garbage).
func (op Opcode) IsValid() bool { return op < opcodeCount }
