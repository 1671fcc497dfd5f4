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

package card

// Function is a named sequence of cards: the unit of call and the target of
// jumps once compiled.
type Function struct {
	Arguments []string
	Cards     []Card
}

// SubmoduleEntry names a child Module. Submodules and Functions are kept as
// ordered slices (not maps) so flattening visits them in authoring order,
// which in turn makes handle-collision and duplicate-name errors
// reproducible across runs.
type SubmoduleEntry struct {
	Name   string
	Module *Module
}

// FunctionEntry names a Function within a Module.
type FunctionEntry struct {
	Name     string
	Function *Function
}

// Module is the authoring-time tree the host builds: named submodules,
// named functions, and a set of dotted import paths that alias a symbol
// from elsewhere in the tree into this module's local scope.
type Module struct {
	Submodules []SubmoduleEntry
	Functions  []FunctionEntry
	Imports    []string
}

// NewModule returns an empty Module ready to be populated with
// AddFunction/AddSubmodule/AddImport.
func NewModule() *Module { return &Module{} }

// AddFunction appends a named function, in order. The compiler detects and
// rejects duplicate names within a module at flatten time.
func (m *Module) AddFunction(name string, fn *Function) *Module {
	m.Functions = append(m.Functions, FunctionEntry{Name: name, Function: fn})
	return m
}

// AddSubmodule appends a named child module, in order.
func (m *Module) AddSubmodule(name string, sub *Module) *Module {
	m.Submodules = append(m.Submodules, SubmoduleEntry{Name: name, Module: sub})
	return m
}

// AddImport appends a dotted import path, e.g. "a.b.c" to import the symbol
// c of module a.b, or "super.sibling.fn" to ascend one level first.
func (m *Module) AddImport(path string) *Module {
	m.Imports = append(m.Imports, path)
	return m
}
