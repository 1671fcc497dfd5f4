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

import "github.com/cao-lang/cao-lang-go/value"

// CallFrame is one activation on the call stack. StackOffset is the index
// into the value stack at which this frame's locals begin (arguments occupy
// slots 0..arity-1); ReturnIP is the bytecode offset execution resumes at in
// the caller once this frame returns; Closure is non-nil only when this
// frame was entered via a Closure value, letting ReadUpvalue/SetUpvalue/
// RegisterUpvalue find the closure's captured slots.
type CallFrame struct {
	ReturnIP    uint32
	StackOffset int
	Closure     *value.Object
	Handle      uint32
}
