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

package bytecode

import "golang.org/x/crypto/sha3"

// Fingerprint returns a SHA3-256 digest over the bytecode, the data pool and
// the version triple. Two programs compiled from the same card tree on the
// same compiler version produce an identical fingerprint; this lets a host
// cache compiled programs keyed by fingerprint instead of re-hashing the
// authoring-time tree on every load (vm.Vm.Fingerprint exposes it for a
// bound program).
func (p *CompiledProgram) Fingerprint() [32]byte {
	h := sha3.New256()
	h.Write(p.Bytecode)
	h.Write(p.Data)
	h.Write([]byte{p.Version.Major, p.Version.Minor, byte(p.Version.Patch), byte(p.Version.Patch >> 8)})
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
