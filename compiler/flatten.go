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
	"regexp"
	"strings"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/card"
)

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

const reservedSuper = "super"
const stdlibSubmodule = "std"

// FlatFunction is one function lifted out of the module tree, tagged with
// its full dotted namespace and the import aliases visible at its lexical
// scope (alias -> fully dotted target path).
type FlatFunction struct {
	Namespace []string
	Function  *card.Function
	Imports   map[string]string
}

func (f FlatFunction) dotted() string { return strings.Join(f.Namespace, ".") }

type flattener struct {
	opts    Options
	out     []FlatFunction
	seen    map[string]bool // dotted function name -> true, duplicate guard
	seenMod map[string]bool // dotted module name -> true, duplicate guard
}

// Flatten walks root depth-first and returns every function it contains,
// namespaced by its path from the root, with std (when non-nil) injected as
// an implicit submodule named "std" after the root's own submodules. A user-authored "std" submodule
// at the root is rejected.
func Flatten(root *card.Module, std *card.Module, opts Options) ([]FlatFunction, error) {
	if root == nil {
		return nil, caoerr.NewCompileError(caoerr.EmptyProgram, "", caoerr.Trace{})
	}
	for _, sm := range root.Submodules {
		if sm.Name == stdlibSubmodule {
			return nil, caoerr.NewCompileError(caoerr.DuplicateName, "std", caoerr.Trace{})
		}
	}
	fl := &flattener{opts: opts, seen: map[string]bool{}, seenMod: map[string]bool{}}
	effectiveRoot := root
	if std != nil {
		merged := *root
		merged.Submodules = append(append([]card.SubmoduleEntry{}, root.Submodules...),
			card.SubmoduleEntry{Name: stdlibSubmodule, Module: std})
		effectiveRoot = &merged
	}
	if err := fl.walk(effectiveRoot, nil, nil, 0); err != nil {
		return nil, err
	}
	if !fl.seen["main"] {
		return nil, caoerr.NewCompileError(caoerr.NoMain, "", caoerr.Trace{})
	}
	if len(fl.out) > fl.opts.MaxFunctions {
		return nil, caoerr.NewCompileError(caoerr.TooManyFunctions, "", caoerr.Trace{})
	}
	// main must be first: the compiler emits it first and appends an Abort
	// after its body so execution cannot fall through into other functions.
	for i, f := range fl.out {
		if f.dotted() == "main" {
			fl.out[0], fl.out[i] = fl.out[i], fl.out[0]
			break
		}
	}
	return fl.out, nil
}

func (fl *flattener) walk(mod *card.Module, namespace []string, parentImports map[string]string, depth int) error {
	if depth > fl.opts.MaxRecursionDepth {
		return caoerr.NewCompileError(caoerr.RecursionLimitReached, "", caoerr.Trace{Namespace: namespace})
	}

	imports := make(map[string]string, len(parentImports)+len(mod.Imports))
	for k, v := range parentImports {
		imports[k] = v
	}
	for _, path := range mod.Imports {
		alias, target, err := resolveImport(namespace, path)
		if err != nil {
			return err
		}
		imports[alias] = target
	}

	for _, fe := range mod.Functions {
		if !validName(fe.Name) {
			return caoerr.NewCompileError(caoerr.BadFunctionName, fe.Name, caoerr.Trace{Namespace: namespace})
		}
		fns := append(append([]string{}, namespace...), fe.Name)
		dotted := strings.Join(fns, ".")
		if fl.seen[dotted] {
			return caoerr.NewCompileError(caoerr.DuplicateName, dotted, caoerr.Trace{Namespace: namespace})
		}
		fl.seen[dotted] = true
		fl.out = append(fl.out, FlatFunction{Namespace: fns, Function: fe.Function, Imports: imports})
	}

	for _, sm := range mod.Submodules {
		if !validName(sm.Name) {
			return caoerr.NewCompileError(caoerr.BadFunctionName, sm.Name, caoerr.Trace{Namespace: namespace})
		}
		sns := append(append([]string{}, namespace...), sm.Name)
		dotted := strings.Join(sns, ".")
		if fl.seenMod[dotted] {
			return caoerr.NewCompileError(caoerr.DuplicateName, dotted, caoerr.Trace{Namespace: namespace})
		}
		fl.seenMod[dotted] = true
		if err := fl.walk(sm.Module, sns, imports, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func validName(name string) bool {
	if name == "" || name == reservedSuper {
		return false
	}
	return identPattern.MatchString(name)
}

// resolveImport splits a dotted import path into (alias, fully-resolved
// target), handling a leading run of "super" segments that ascend the
// namespace stack one level each before the remaining path is appended
// verbatim.
func resolveImport(namespace []string, path string) (alias, target string, err error) {
	segs := strings.Split(path, ".")
	if len(segs) == 0 || segs[len(segs)-1] == "" {
		return "", "", caoerr.NewCompileError(caoerr.BadImport, path, caoerr.Trace{Namespace: namespace})
	}
	base := append([]string{}, namespace...)
	i := 0
	for i < len(segs) && segs[i] == reservedSuper {
		if len(base) == 0 {
			return "", "", caoerr.NewCompileError(caoerr.BadImport, path, caoerr.Trace{Namespace: namespace})
		}
		base = base[:len(base)-1]
		i++
	}
	rest := segs[i:]
	if len(rest) == 0 {
		return "", "", caoerr.NewCompileError(caoerr.BadImport, path, caoerr.Trace{Namespace: namespace})
	}
	for _, s := range rest {
		if !validName(s) {
			return "", "", caoerr.NewCompileError(caoerr.BadImport, path, caoerr.Trace{Namespace: namespace})
		}
	}
	full := append(base, rest...)
	return rest[len(rest)-1], strings.Join(full, "."), nil
}
