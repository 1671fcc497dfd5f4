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

import (
	"encoding/binary"
	"math"
)

// Every inline operand is little-endian, per the string-literal data format
// fixed by the specification; these helpers are the single place that
// encodes/decodes them so the compiler (writer), VM (reader) and disassembler
// (reader) can never disagree on layout.

func PutU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func PutI32(buf []byte, v int32) []byte { return PutU32(buf, uint32(v)) }

func PutU8(buf []byte, v uint8) []byte { return append(buf, v) }

func PutI64(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func PutF64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

// PutString appends a little-endian u32 length prefix followed by the raw
// UTF-8 bytes of s to the data pool buf, and returns (newBuf, offset) where
// offset is where the length prefix begins — the value a StringLiteral
// instruction's operand must encode.
func PutString(buf []byte, s string) ([]byte, uint32) {
	offset := uint32(len(buf))
	buf = PutU32(buf, uint32(len(s)))
	buf = append(buf, s...)
	return buf, offset
}

// PatchU32 overwrites the 4 bytes at offset off in buf in place. Used to back
// -patch a forward jump's target once the destination offset is known.
func PatchU32(buf []byte, off uint32, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

func ReadU32(b []byte, off uint32) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

func ReadI32(b []byte, off uint32) int32 { return int32(ReadU32(b, off)) }

func ReadI64(b []byte, off uint32) int64 {
	return int64(binary.LittleEndian.Uint64(b[off : off+8]))
}

func ReadF64(b []byte, off uint32) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+8]))
}

// ReadString reads a length-prefixed UTF-8 string out of a data pool at
// offset off, per the StringLiteral data format.
func ReadString(data []byte, off uint32) string {
	n := ReadU32(data, off)
	start := off + 4
	return string(data[start : start+n])
}
