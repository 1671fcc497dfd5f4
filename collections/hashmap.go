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

package collections

// HashFunc computes the 32-bit hash of a key. The zero hash is reserved for
// empty slots; implementations must avoid returning it (see nonZero).
type HashFunc[K any] func(K) uint32

type hashMapSlot[K any, V any] struct {
	hash uint32
	key  K
	val  V
	used bool
}

// HashMap is a generic open-addressed, linear-probing map. Unlike
// HandleTable it owns full keys (not just their hash) and, on Remove,
// backshifts the trailing probe chain so that subsequent lookups never see a
// gap: every entry that follows the removed slot is taken out and re-inserted
// into the same table, walking forward until an empty slot is reached.
type HashMap[K comparable, V any] struct {
	slots []hashMapSlot[K, V]
	count int
	hash  HashFunc[K]
	eq    func(a, b K) bool
}

// NewHashMap creates an empty map using hash to derive slot hashes. Keys are
// compared with Go's built-in == via the comparable constraint.
func NewHashMap[K comparable, V any](hash HashFunc[K]) *HashMap[K, V] {
	return &HashMap[K, V]{
		slots: make([]hashMapSlot[K, V], 1),
		hash:  hash,
		eq:    func(a, b K) bool { return a == b },
	}
}

func (m *HashMap[K, V]) Len() int        { return m.count }
func (m *HashMap[K, V]) capMask() uint32 { return uint32(len(m.slots) - 1) }

func (m *HashMap[K, V]) hashOf(k K) uint32 {
	h := m.hash(k)
	if h == 0 {
		h = 1
	}
	return h
}

// Insert stores val under key, overwriting any existing value.
func (m *HashMap[K, V]) Insert(key K, val V) {
	if overLoaded(m.count+1, len(m.slots)) {
		m.grow()
	}
	m.insertSlot(m.hashOf(key), key, val)
}

func (m *HashMap[K, V]) insertSlot(h uint32, key K, val V) {
	idx := probeIndex(h, m.capMask())
	for {
		s := &m.slots[idx]
		if !s.used {
			s.used = true
			s.hash = h
			s.key = key
			s.val = val
			m.count++
			return
		}
		if s.hash == h && m.eq(s.key, key) {
			s.val = val
			return
		}
		idx = (idx + 1) & m.capMask()
	}
}

// Get returns the value for key and true, or the zero value and false.
func (m *HashMap[K, V]) Get(key K) (V, bool) {
	h := m.hashOf(key)
	idx := probeIndex(h, m.capMask())
	for i := 0; i <= int(m.capMask()); i++ {
		s := &m.slots[idx]
		if !s.used {
			var zero V
			return zero, false
		}
		if s.hash == h && m.eq(s.key, key) {
			return s.val, true
		}
		idx = (idx + 1) & m.capMask()
	}
	var zero V
	return zero, false
}

// Remove deletes the entry for key, backshifting the trailing probe chain so
// that no live key becomes unreachable.
func (m *HashMap[K, V]) Remove(key K) bool {
	h := m.hashOf(key)
	idx := probeIndex(h, m.capMask())
	for i := 0; i <= int(m.capMask()); i++ {
		s := &m.slots[idx]
		if !s.used {
			return false
		}
		if s.hash == h && m.eq(s.key, key) {
			m.slots[idx] = hashMapSlot[K, V]{}
			m.count--
			m.backshift(idx)
			return true
		}
		idx = (idx + 1) & m.capMask()
	}
	return false
}

// backshift re-inserts every entry in the probe chain following the just-
// emptied slot at hole, until an already-empty slot ends the chain. This is
// the "correct remove-with-rehash-trailing" behavior the specification
// requires for the generic map (as opposed to HandleTable's no-tombstone
// shortcut).
func (m *HashMap[K, V]) backshift(hole uint32) {
	idx := (hole + 1) & m.capMask()
	for {
		s := m.slots[idx]
		if !s.used {
			return
		}
		m.slots[idx] = hashMapSlot[K, V]{}
		m.count--
		m.insertSlot(s.hash, s.key, s.val)
		idx = (idx + 1) & m.capMask()
	}
}

// Entry is the result of looking up a key: exactly one of Occupied or
// Vacant holds. Write, when called on a Vacant entry, stores key/val and
// accounts for the load factor, growing the table first if necessary.
type Entry[K comparable, V any] struct {
	m        *HashMap[K, V]
	key      K
	hash     uint32
	occupied bool
	slot     uint32
}

// EntryAt returns the Entry for key without mutating the map.
func (m *HashMap[K, V]) EntryAt(key K) Entry[K, V] {
	h := m.hashOf(key)
	idx := probeIndex(h, m.capMask())
	for i := 0; i <= int(m.capMask()); i++ {
		s := &m.slots[idx]
		if !s.used {
			return Entry[K, V]{m: m, key: key, hash: h, occupied: false, slot: idx}
		}
		if s.hash == h && m.eq(s.key, key) {
			return Entry[K, V]{m: m, key: key, hash: h, occupied: true, slot: idx}
		}
		idx = (idx + 1) & m.capMask()
	}
	return Entry[K, V]{m: m, key: key, hash: h, occupied: false}
}

// Occupied reports whether the entry already has a value, returning it.
func (e Entry[K, V]) Occupied() (V, bool) {
	if e.occupied {
		return e.m.slots[e.slot].val, true
	}
	var zero V
	return zero, false
}

// Write stores val for this entry's key. An Occupied entry is overwritten in
// its cached slot. A Vacant entry grows the table first if the write would
// cross the load factor threshold, then re-probes for the key's slot.
func (e Entry[K, V]) Write(val V) {
	if e.occupied {
		e.m.slots[e.slot].val = val
		return
	}
	if overLoaded(e.m.count+1, len(e.m.slots)) {
		e.m.grow()
	}
	e.m.insertSlot(e.hash, e.key, val)
}

func (m *HashMap[K, V]) grow() {
	newCap := growCapacity(len(m.slots))
	old := m.slots
	m.slots = make([]hashMapSlot[K, V], newCap)
	m.count = 0
	for _, s := range old {
		if s.used {
			m.insertSlot(s.hash, s.key, s.val)
		}
	}
}

// Range calls fn for every live entry. Iteration order is unspecified.
func (m *HashMap[K, V]) Range(fn func(K, V)) {
	for _, s := range m.slots {
		if s.used {
			fn(s.key, s.val)
		}
	}
}
