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

package compr

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	random := make([]byte, 777)
	rng.Read(random)
	inputs := [][]byte{
		[]byte("x"),
		bytes.Repeat([]byte("foo"), 1000),
		[]byte(`[{"id":1,"name":"a"},{"id":2,"name":"b"}]`),
		random,
	}
	for _, name := range Names {
		comp, dec := Compression(name), Decompression(name)
		if comp == nil || dec == nil {
			t.Fatalf("%s: no codec", name)
		}
		if comp.Name() != dec.Name() {
			t.Fatalf("%s: names %q and %q", name, comp.Name(), dec.Name())
		}
		for _, in := range inputs {
			prefix := []byte("prefix")
			out := comp.Compress(in, append([]byte(nil), prefix...))
			if !bytes.HasPrefix(out, prefix) {
				t.Fatalf("%s: prefix not preserved", name)
			}
			dst := make([]byte, len(in))
			if err := dec.Decompress(out[len(prefix):], dst); err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if !bytes.Equal(dst, in) {
				t.Fatalf("%s: mismatch", name)
			}
			// a wrong size is an error
			if err := dec.Decompress(out[len(prefix):], make([]byte, len(in)+1)); err == nil {
				t.Fatalf("%s: no error for an oversized destination", name)
			}
		}
	}
	if Compression("gzip") != nil || Decompression("gzip") != nil {
		t.Fatal("unknown algorithm accepted")
	}
}

func TestS2Overlap(t *testing.T) {
	comp, dec := Compression("s2"), Decompression("s2")
	ctl := bytes.Repeat([]byte("foo"), 1000)
	src := append([]byte(nil), ctl...)
	dst := make([]byte, len(src))
	// test overlapping buffers
	cmp := comp.Compress(src[10:], src[:8])
	if err := dec.Decompress(cmp[8:], dst[10:]); err != nil {
		t.Error(err)
	} else if string(ctl[10:]) != string(dst[10:]) {
		t.Error("mismatch")
	}
}

func TestOverlaps(t *testing.T) {
	// trivial case
	a := make([]byte, 10)
	b := make([]byte, 20)
	if overlaps(a, b) {
		t.Error("overlaps(a, b) should be false")
	}
	// a and b are adjacent (no overlap)
	a = make([]byte, 10, 30)
	b = a[10:]
	if overlaps(a, b) {
		t.Error("overlaps(a, b) should be false")
	} else if overlaps(b, a) {
		t.Error("overlaps(b, a) should be false")
	}
	// a and b overlap by 5
	b = a[5:]
	if !overlaps(a, b) || !overlaps(b, a) {
		t.Error("overlaps should be true")
	}
}
