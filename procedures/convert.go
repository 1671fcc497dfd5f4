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

// Package procedures holds the native-function registry and the TryFrom
// -style argument adapters a registered Go function uses to pull typed
// values off the VM's argument list, matching the conversion traits of the
// original implementation's native call boundary.
package procedures

import (
	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/value"
)

// Int64 converts v to an int64, accepting Integer directly and truncating
// Real toward zero. Any other tag raises InvalidArgument.
func Int64(v value.Value, argIndex int) (int64, error) {
	switch v.Tag() {
	case value.TagInteger:
		return v.AsInteger(), nil
	case value.TagReal:
		return int64(v.AsReal()), nil
	default:
		return 0, invalidArg(argIndex, "expected integer")
	}
}

// Float64 converts v to a float64, widening Integer and accepting Real
// directly.
func Float64(v value.Value, argIndex int) (float64, error) {
	switch v.Tag() {
	case value.TagInteger:
		return float64(v.AsInteger()), nil
	case value.TagReal:
		return v.AsReal(), nil
	default:
		return 0, invalidArg(argIndex, "expected number")
	}
}

// String converts v to a Go string, requiring a String-kind object.
func String(v value.Value, argIndex int) (string, error) {
	obj := v.AsObject()
	if obj == nil || obj.Kind != value.KindString {
		return "", invalidArg(argIndex, "expected string")
	}
	return obj.String(), nil
}

// Bool converts v via the language's truthiness rule (AsBool), never
// failing: every Value has a defined truthiness.
func Bool(v value.Value, argIndex int) (bool, error) {
	return v.AsBool(), nil
}

// Table converts v to its underlying *value.Table, requiring a Table-kind
// object.
func Table(v value.Value, argIndex int) (*value.Table, error) {
	obj := v.AsObject()
	if obj == nil || obj.Kind != value.KindTable {
		return nil, invalidArg(argIndex, "expected table")
	}
	return obj.Table, nil
}

func invalidArg(argIndex int, detail string) error {
	err := caoerr.NewRuntimeError(caoerr.InvalidArgument, detail)
	err.Code = argIndex
	return err
}
