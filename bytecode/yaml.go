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
	"gopkg.in/yaml.v3"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/collections"
)

// The envelope is YAML rather than the spec's bit-level layout (which it
// leaves implementation-defined); only the logical fields below are
// contractual, per spec.md's Program schema. cmd/caodis reads this same
// shape off stdin.

type wireLabel struct {
	Offset uint32 `yaml:"offset"`
	Arity  uint32 `yaml:"arity"`
}

type wireVariables struct {
	IDs   map[uint32]uint32 `yaml:"ids"`   // name_hash -> id
	Names map[uint32]string `yaml:"names"` // id -> name
}

type wireTrace struct {
	Namespace []string `yaml:"namespace"`
	CardIndex uint32   `yaml:"card_index"`
}

type wireVersion struct {
	Major uint8  `yaml:"major"`
	Minor uint8  `yaml:"minor"`
	Patch uint16 `yaml:"patch"`
}

type wireProgram struct {
	Bytecode  []byte                 `yaml:"bytecode"`
	Data      []byte                 `yaml:"data"`
	Labels    map[uint32]wireLabel   `yaml:"labels"` // handle -> label
	Variables wireVariables          `yaml:"variables"`
	Trace     map[uint32]wireTrace   `yaml:"trace"` // byte_offset -> trace
	Version   wireVersion            `yaml:"version"`
	Names     map[uint32]string      `yaml:"label_names,omitempty"` // handle -> dotted name, for disassembly only
}

// MarshalYAML encodes p as the spec's Program envelope.
func (p *CompiledProgram) MarshalYAML() (interface{}, error) {
	w := wireProgram{
		Bytecode: p.Bytecode,
		Data:     p.Data,
		Labels:   make(map[uint32]wireLabel),
		Names:    make(map[uint32]string),
		Variables: wireVariables{
			IDs:   make(map[uint32]uint32),
			Names: make(map[uint32]string),
		},
		Trace: make(map[uint32]wireTrace),
		Version: wireVersion{
			Major: p.Version.Major,
			Minor: p.Version.Minor,
			Patch: p.Version.Patch,
		},
	}
	if p.Labels != nil {
		p.Labels.Range(func(h collections.Handle, l Label) {
			w.Labels[uint32(h)] = wireLabel{Offset: l.Offset, Arity: l.Arity}
			w.Names[uint32(h)] = l.Name
		})
	}
	if p.Variables != nil {
		if p.Variables.IDs != nil {
			p.Variables.IDs.Range(func(h collections.Handle, id uint32) {
				w.Variables.IDs[uint32(h)] = id
			})
		}
		for id, name := range p.Variables.Names {
			w.Variables.Names[id] = name
		}
	}
	for off, tr := range p.Trace {
		w.Trace[off] = wireTrace{Namespace: tr.Namespace, CardIndex: tr.CardIndex}
	}
	return w, nil
}

// UnmarshalYAML decodes a Program envelope into p, rebuilding the handle
// tables the bit-level CompiledProgram actually uses at runtime.
func (p *CompiledProgram) UnmarshalYAML(value *yaml.Node) error {
	var w wireProgram
	if err := value.Decode(&w); err != nil {
		return err
	}

	p.Bytecode = w.Bytecode
	p.Data = w.Data
	p.Version = Version{Major: w.Version.Major, Minor: w.Version.Minor, Patch: w.Version.Patch}

	p.Labels = collections.NewHandleTable[Label]()
	for handle, l := range w.Labels {
		name := w.Names[handle]
		p.Labels.Insert(collections.Handle(handle), Label{Name: name, Offset: l.Offset, Arity: l.Arity})
	}

	p.Variables = NewVariables()
	p.Variables.IDs = collections.NewHandleTable[uint32]()
	for handle, id := range w.Variables.IDs {
		p.Variables.IDs.Insert(collections.Handle(handle), id)
	}
	p.Variables.Names = make(map[uint32]string, len(w.Variables.Names))
	for id, name := range w.Variables.Names {
		p.Variables.Names[id] = name
	}

	p.Trace = make(map[uint32]caoerr.Trace, len(w.Trace))
	for off, tr := range w.Trace {
		p.Trace[off] = caoerr.Trace{Namespace: tr.Namespace, CardIndex: tr.CardIndex}
	}
	return nil
}
