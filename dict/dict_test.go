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

package dict

import (
	"errors"
	"testing"

	"github.com/SnellerInc/bbor62/bitio"
)

func TestSeed(t *testing.T) {
	names := []string{"id", "name", "type"}
	s, err := NewSeed(names)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d", s.Len())
	}
	fw := s.Forward(true, Unbounded)
	rv := s.Reverse(true, Unbounded)
	for i, name := range names {
		if got, ok := fw.Get(name); !ok || got != i {
			t.Errorf("forward %q: got %d, %v", name, got, ok)
		}
		if got, ok := rv.Get(i); !ok || got != name {
			t.Errorf("reverse %d: got %q, %v", i, got, ok)
		}
	}

	_, err = NewSeed([]string{"a", "b", "a"})
	if !errors.Is(err, bitio.ErrInvalidArgument) {
		t.Fatalf("duplicate entry: got %v", err)
	}
}

func TestStaticShadowsDynamic(t *testing.T) {
	s := MustSeed([]string{"a", "b"})
	d := s.Forward(true, Unbounded)
	d.Add("a", 100)
	if v, _ := d.Get("a"); v != 0 {
		t.Fatalf("static entry overridden: %d", v)
	}
	d.Add("c", d.Len())
	if v, ok := d.Get("c"); !ok || v != 2 {
		t.Fatalf("dynamic entry: got %d, %v", v, ok)
	}
	// Add never overwrites
	d.Add("c", 50)
	if v, _ := d.Get("c"); v != 2 {
		t.Fatalf("dynamic entry overwritten: %d", v)
	}
	if d.Len() != 3 || d.Dynamic() != 1 {
		t.Fatalf("Len() = %d, Dynamic() = %d", d.Len(), d.Dynamic())
	}
}

func TestLimits(t *testing.T) {
	s := MustSeed([]int{7, 8})
	frozen := s.Forward(false, Unbounded)
	frozen.Add(9, 2)
	if frozen.Has(9) || frozen.Len() != 2 {
		t.Fatal("Add on a non-growable dict inserted an entry")
	}

	d := s.Forward(true, 4)
	for i := 0; i < 10; i++ {
		d.Add(100+i, d.Len())
	}
	if d.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", d.Len())
	}
	if !d.Has(100) || !d.Has(101) || d.Has(102) {
		t.Fatal("wrong entries kept at the limit")
	}
}

func TestReset(t *testing.T) {
	s := MustSeed([]string{"x"})
	d := s.Forward(true, Unbounded)
	for _, k := range []string{"q", "b", "z", "a"} {
		d.Add(k, d.Len())
	}
	if d.Dynamic() != 4 {
		t.Fatalf("Dynamic() = %d", d.Dynamic())
	}

	d.Reset()
	if d.Len() != 1 || d.Dynamic() != 0 || !d.Has("x") || d.Has("q") {
		t.Fatal("Reset must only clear dynamic entries")
	}
	d.Add("q", d.Len())
	if v, _ := d.Get("q"); v != 1 {
		t.Fatalf("re-added entry: got %d", v)
	}

	// a reset on one dict leaves siblings
	// built from the same seed untouched
	other := s.Forward(true, Unbounded)
	other.Add("w", 1)
	d.Reset()
	if !other.Has("w") {
		t.Fatal("sibling dict lost its entry")
	}
}
