// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package dict implements a lookup table split
// into an immutable static part, shared by every
// table built from the same Seed, and a bounded
// per-instance dynamic part.
package dict

import (
	"fmt"
	"math"

	"golang.org/x/exp/maps"

	"github.com/SnellerInc/bbor62/bitio"
)

// Unbounded can be passed as the maximum
// size of a Dict that should never stop growing.
const Unbounded = math.MaxInt

// Dict is a key/value table.
// Entries in the static part always
// shadow entries in the dynamic part.
// Dynamic entries are never removed
// individually; see Reset.
type Dict[K comparable, V any] struct {
	static  map[K]V // shared; never written
	dynamic map[K]V
	grow    bool
	max     int
}

// New returns a Dict over the given static
// entries. The static map is retained, not copied,
// and must not be modified afterwards.
// If grow is false, Add never inserts anything.
// Add also stops inserting once Len reaches max.
func New[K comparable, V any](static map[K]V, grow bool, max int) *Dict[K, V] {
	if static == nil {
		static = map[K]V{}
	}
	return &Dict[K, V]{
		static:  static,
		dynamic: make(map[K]V),
		grow:    grow,
		max:     max,
	}
}

// Get looks up k in the static part,
// then in the dynamic part.
func (d *Dict[K, V]) Get(k K) (V, bool) {
	if v, ok := d.static[k]; ok {
		return v, true
	}
	v, ok := d.dynamic[k]
	return v, ok
}

// Has reports whether k is present.
func (d *Dict[K, V]) Has(k K) bool {
	_, ok := d.Get(k)
	return ok
}

// Add inserts k -> v into the dynamic part.
// It silently does nothing if growth is
// disabled, the table is full, or k is
// already present.
func (d *Dict[K, V]) Add(k K, v V) {
	if !d.grow || d.Len() >= d.max || d.Has(k) {
		return
	}
	d.dynamic[k] = v
}

// Len returns the total number of entries.
func (d *Dict[K, V]) Len() int {
	return len(d.static) + len(d.dynamic)
}

// Dynamic returns the number of entries
// added since construction or the last Reset.
func (d *Dict[K, V]) Dynamic() int {
	return len(d.dynamic)
}

// Reset drops every dynamic entry.
// The static part is left intact.
func (d *Dict[K, V]) Reset() {
	maps.Clear(d.dynamic)
}

// Seed is an ordered list of unique entries
// from which both orientations of a static
// table are derived: entry -> index and
// index -> entry. A Seed is immutable and
// can be shared freely.
type Seed[T comparable] struct {
	entries []T
	index   map[T]int
	value   map[int]T
}

// NewSeed builds a Seed. Entry i gets index i.
func NewSeed[T comparable](entries []T) (*Seed[T], error) {
	s := &Seed[T]{
		entries: make([]T, len(entries)),
		index:   make(map[T]int, len(entries)),
		value:   make(map[int]T, len(entries)),
	}
	copy(s.entries, entries)
	for i, e := range entries {
		if _, ok := s.index[e]; ok {
			return nil, fmt.Errorf("dict: duplicate seed entry %v: %w", e, bitio.ErrInvalidArgument)
		}
		s.index[e] = i
		s.value[i] = e
	}
	return s, nil
}

// MustSeed is like NewSeed but panics on error.
// It is intended for package-level defaults.
func MustSeed[T comparable](entries []T) *Seed[T] {
	s, err := NewSeed(entries)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of seed entries.
func (s *Seed[T]) Len() int { return len(s.entries) }

// Forward returns a fresh entry -> index table.
func (s *Seed[T]) Forward(grow bool, max int) *Dict[T, int] {
	return New(s.index, grow, max)
}

// Reverse returns a fresh index -> entry table.
func (s *Seed[T]) Reverse(grow bool, max int) *Dict[int, T] {
	return New(s.value, grow, max)
}
