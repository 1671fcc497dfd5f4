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
	"unsafe"

	"github.com/cao-lang/cao-lang-go/value"
)

// uintptrOf gives a total order over stack slot addresses. Go has no native
// pointer comparison operators beyond equality, so the open-upvalue list
// (which must stay sorted by stack depth to close upvalues top-down) orders
// itself through this conversion. Safe here only because every pointer it is
// called on aims into the Vm's fixed, non-reallocating stack array, which
// never moves for the lifetime of the Vm.
func uintptrOf(v *value.Value) uintptr {
	return uintptr(unsafe.Pointer(v))
}
