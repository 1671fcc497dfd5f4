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

// Package memalloc implements the byte-accounting allocator that backs every
// object a Vm creates. It does not itself hand out memory (Go's runtime does
// that); its job, per the specification, is to track a conservative running
// byte count across all live objects a single Vm owns, fail allocation once
// a configured limit is crossed, and trigger a GC cycle once a growing
// threshold is crossed so that every allocation path observes memory
// pressure uniformly instead of leaving it to scattered call sites.
//
// Grounded on the linear byte-addressable accounting in
// probe-lang/lang/vm/memory.go (limit/used bookkeeping, monotone usage
// counter), adapted from an address-indexed model to the bump/region
// accounting model the specification calls for.
package memalloc

import "fmt"

// DefaultLimit is the allocator ceiling used when a host does not configure
// one explicitly: tens of kilobytes, per the specification's guidance for an
// embedded scripting sandbox.
const DefaultLimit uint64 = 64 * 1024

// Layout describes the size and alignment of a requested allocation. Align
// is accounted for conservatively (added to Size) rather than computing true
// padding, matching the specification's "size + align" accounting rule.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// ErrOutOfMemory is returned by Alloc when satisfying the request would
// exceed the configured limit.
var ErrOutOfMemory = fmt.Errorf("memalloc: out of memory")

// GCFunc triggers a garbage-collection cycle on the owning Vm. It is set
// once via SetGCFunc after both the Vm and its Allocator exist, since the
// allocator is constructed before the Vm that will own it.
type GCFunc func()

// Allocator is the single, non-thread-safe byte accountant for one Vm
// instance. The zero value is not usable; use New.
type Allocator struct {
	allocated uint64
	limit     uint64
	nextGC    uint64
	gc        GCFunc
	inGC      bool
}

// New creates an Allocator with the given byte limit. A limit of zero uses
// DefaultLimit.
func New(limit uint64) *Allocator {
	if limit == 0 {
		limit = DefaultLimit
	}
	return &Allocator{limit: limit, nextGC: limit / 2}
}

// SetGCFunc wires the allocator to the Vm's collection cycle. Must be called
// once, before any Alloc call that could cross the GC threshold.
func (a *Allocator) SetGCFunc(fn GCFunc) { a.gc = fn }

// Allocated returns the current conservative byte count.
func (a *Allocator) Allocated() uint64 { return a.allocated }

// Limit returns the configured ceiling.
func (a *Allocator) Limit() uint64 { return a.limit }

// Alloc accounts for a new allocation of the given layout. It returns
// ErrOutOfMemory without mutating state if the limit would be exceeded.
// Otherwise, if the post-allocation total crosses nextGC, it invokes the
// registered GC callback (if any; GC is re-entrancy-guarded so a collection
// triggered from inside an allocation made during marking does not recurse)
// and sets nextGC to twice the post-collection total.
func (a *Allocator) Alloc(layout Layout) error {
	delta := uint64(layout.Size) + uint64(layout.Align)
	if a.allocated+delta > a.limit {
		return ErrOutOfMemory
	}
	a.allocated += delta
	if a.allocated > a.nextGC && a.gc != nil && !a.inGC {
		a.inGC = true
		a.gc()
		a.inGC = false
		a.nextGC = a.allocated * 2
	}
	return nil
}

// Dealloc reverses the accounting performed by a prior Alloc with the same
// layout.
func (a *Allocator) Dealloc(layout Layout) {
	delta := uint64(layout.Size) + uint64(layout.Align)
	if delta > a.allocated {
		a.allocated = 0
		return
	}
	a.allocated -= delta
}

// Clear resets the allocator to empty, as when a Vm is cleared; every
// outstanding object reference becomes invalid.
func (a *Allocator) Clear() {
	a.allocated = 0
	a.nextGC = a.limit / 2
}
