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

package basex

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/SnellerInc/bbor62/bitio"
)

const (
	base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig
	if c.Radix() != 62 || c.CharsPerBlock() != 4 || c.BitsPerBlock() != 23 || !c.Squeeze() {
		t.Fatalf("radix %d, chars %d, bits %d", c.Radix(), c.CharsPerBlock(), c.BitsPerBlock())
	}
	if c.maxBlockValue != 1<<23-1 || c.maxBlockCapacity != 14776335 {
		t.Fatalf("max value %d, capacity %d", c.maxBlockValue, c.maxBlockCapacity)
	}
}

func TestFinalBlockTable(t *testing.T) {
	// offset -> bits, for 1 and 4 characters
	one := map[int]int{2: 6, 3: 5, 4: 4, 5: 3, 6: 2, 7: 1}
	four := map[int]int{1: 23, 2: 22, 3: 21, 4: 20, 5: 19, 6: 18}
	for m := 0; m < 8; m++ {
		got, ok := DefaultConfig.FinalBlockBits(m, 1)
		if want, wok := one[m]; ok != wok || got != want {
			t.Errorf("(%d, 1): got %d, %v want %d", m, got, ok, want)
		}
		got, ok = DefaultConfig.FinalBlockBits(m, 4)
		if want, wok := four[m]; ok != wok || got != want {
			t.Errorf("(%d, 4): got %d, %v want %d", m, got, ok, want)
		}
		// 2 and 3 characters cover 7 consecutive
		// lengths, so exactly one offset has no answer
		for n, missing := range map[int]int{2: 3, 3: 5} {
			got, ok := DefaultConfig.FinalBlockBits(m, n)
			if ok != (m != missing) || (ok && (m+got)%8 != 0) {
				t.Errorf("(%d, %d): got %d, %v", m, n, got, ok)
			}
		}
	}
	if got, _ := DefaultConfig.FinalBlockBits(0, 3); got != 16 {
		t.Errorf("(0, 3): got %d, want 16", got)
	}
	if _, ok := DefaultConfig.FinalBlockBits(0, 5); ok {
		t.Error("5 characters cannot be a final block")
	}
}

func TestConfigErrors(t *testing.T) {
	var wide []rune
	for i := 0; i < 300; i++ {
		wide = append(wide, rune(0x100+i))
	}
	testcases := []struct {
		name     string
		alphabet string
		chars    int
		want     error
	}{
		{"short", "a", 4, bitio.ErrInvalidArgument},
		{"duplicate", "abca", 4, bitio.ErrInvalidArgument},
		{"no chars", Base62, 0, bitio.ErrInvalidArgument},
		{"too wide", Base62, 6, bitio.ErrInvalidArgument},
		{"ambiguous", string(wide), 2, bitio.ErrInvalidState},
		{"invalid utf8", "ab\xff", 2, bitio.ErrInvalidArgument},
	}
	for _, tc := range testcases {
		_, err := NewConfig(tc.alphabet, tc.chars, true)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestVectors(t *testing.T) {
	testcases := []struct {
		in   []byte
		want string
	}{
		{nil, ""},
		{[]byte{0}, "00"},
		{[]byte{0xff}, "47"},
		{[]byte{1, 2, 3}, "08af1"},
	}
	for _, tc := range testcases {
		got := EncodeToString(nil, tc.in)
		if got != tc.want {
			t.Errorf("encode %x: got %q, want %q", tc.in, got, tc.want)
			continue
		}
		back, err := DecodeString(nil, got)
		if err != nil {
			t.Errorf("decode %q: %v", got, err)
			continue
		}
		if !bytes.Equal(back, tc.in) {
			t.Errorf("decode %q: got %x", got, back)
		}
	}
}

func configs(t *testing.T) map[string]*Config {
	out := map[string]*Config{"base62": DefaultConfig}
	add := func(name, alphabet string, chars int, squeeze bool) {
		c, err := NewConfig(alphabet, chars, squeeze)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		out[name] = c
	}
	add("base62-plain", Base62, 4, false)
	add("base62-2", Base62, 2, true)
	add("base62-3", Base62, 3, true)
	add("base62-3-plain", Base62, 3, false)
	add("base64", base64Alphabet, 4, true)
	add("base58", base58Alphabet, 4, true)
	add("base36-6", base36Alphabet, 6, true)
	add("unicode", "αβγδεζηθικλμνξοπρστυφχψω", 5, true)
	return out
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(62))
	for name, cfg := range configs(t) {
		for size := 0; size < 120; size++ {
			in := make([]byte, size)
			rng.Read(in)
			enc := EncodeToString(cfg, in)
			out, err := DecodeString(cfg, enc)
			if err != nil {
				t.Fatalf("%s: size %d: %v (%q)", name, size, err, enc)
			}
			if !bytes.Equal(in, out) {
				t.Fatalf("%s: size %d: got %x want %x", name, size, out, in)
			}
		}
	}
}

func TestRoundTripEdgeBytes(t *testing.T) {
	// long runs of zero and one bits stress
	// the final block padding and squeezing
	for _, fill := range []byte{0x00, 0xff, 0x80, 0x7f} {
		for size := 1; size < 40; size++ {
			in := bytes.Repeat([]byte{fill}, size)
			for name, cfg := range configs(t) {
				out, err := DecodeString(cfg, EncodeToString(cfg, in))
				if err != nil || !bytes.Equal(in, out) {
					t.Fatalf("%s: %d x %x: got %x, %v", name, size, fill, out, err)
				}
			}
		}
	}
}

func TestFinalBlockVectors(t *testing.T) {
	testcases := []struct {
		alphabet string
		chars    int
		in       string // hex
		want     string
	}{
		// 16 bits in a full-width group at offset 0
		{Base62, 3, "7800", "7zU"},
		{Base62, 2, "01", "01"},
		// squeezed full blocks that end the stream
		{Base62, 4, "8cd5fd", "cj65"},
		{Base62, 2, "a9f9f7", "hrf9"},
		{"αβγδεζηθικλμνξοπρστυφχψω", 5, "c8d8b7ec7031a1aeed5b7f751395", "υφβψμνδυξογξχγθζηπξηωδαρχ"},
	}
	for _, tc := range testcases {
		cfg, err := NewConfig(tc.alphabet, tc.chars, true)
		if err != nil {
			t.Fatal(err)
		}
		in, err := hex.DecodeString(tc.in)
		if err != nil {
			t.Fatal(err)
		}
		got := EncodeToString(cfg, in)
		if got != tc.want {
			t.Errorf("%d chars: encode %s: got %q, want %q", tc.chars, tc.in, got, tc.want)
			continue
		}
		out, err := DecodeString(cfg, got)
		if err != nil || !bytes.Equal(out, in) {
			t.Errorf("%d chars: decode %q: got %x, %v", tc.chars, got, out, err)
		}
	}
}

// every configuration NewConfig accepts
// must decode everything it encodes
func TestConfigSweep(t *testing.T) {
	var alphabet []rune
	for i := 0; i < 200; i++ {
		alphabet = append(alphabet, rune(0x4e00+i))
	}
	rng := rand.New(rand.NewSource(200))
	accepted := 0
	for radix := 2; radix <= len(alphabet); radix++ {
		for chars := 1; chars <= 8; chars++ {
			for _, squeeze := range []bool{true, false} {
				cfg, err := NewConfig(string(alphabet[:radix]), chars, squeeze)
				if err != nil {
					if !errors.Is(err, bitio.ErrInvalidArgument) && !errors.Is(err, bitio.ErrInvalidState) {
						t.Fatalf("radix %d, %d chars: unexpected error %v", radix, chars, err)
					}
					continue
				}
				accepted++
				for size := 0; size < 24; size++ {
					in := make([]byte, size)
					if size%2 == 0 {
						rng.Read(in)
					} else {
						for i := range in {
							in[i] = 0xff
						}
					}
					enc := EncodeToString(cfg, in)
					out, err := DecodeString(cfg, enc)
					if err != nil || !bytes.Equal(in, out) {
						t.Fatalf("radix %d, %d chars, squeeze %v: %x: got %x, %v", radix, chars, squeeze, in, out, err)
					}
				}
			}
		}
	}
	if accepted == 0 {
		t.Fatal("no configuration accepted")
	}
}

func TestSqueezing(t *testing.T) {
	plain, err := NewConfig(Base62, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	in := make([]byte, 1000)
	rand.New(rand.NewSource(1)).Read(in)
	squeezed := EncodeToString(DefaultConfig, in)
	unsqueezed := EncodeToString(plain, in)
	if len(squeezed) >= len(unsqueezed) {
		t.Fatalf("squeezed %d chars, plain %d chars", len(squeezed), len(unsqueezed))
	}
	// the decoder detects squeezed blocks on its own
	out, err := DecodeString(plain, squeezed)
	if err != nil || !bytes.Equal(out, in) {
		t.Fatalf("decoding squeezed text without squeezing: %v", err)
	}

	// writes that end exactly on block
	// boundaries leave nothing to squeeze
	write := func(cfg *Config) string {
		var sb strings.Builder
		e := NewEncoder(cfg, &sb)
		for i := 0; i < 8; i++ {
			if err := e.WriteBits(1<<23-1-uint32(i), 23); err != nil {
				t.Fatal(err)
			}
		}
		if err := e.Flush(); err != nil {
			t.Fatal(err)
		}
		return sb.String()
	}
	a, b := write(DefaultConfig), write(plain)
	if a != b || len(a) != 32 {
		t.Fatalf("aligned writes: %q vs %q", a, b)
	}
}

func TestStreamingGroups(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for round := 0; round < 40; round++ {
		type group struct {
			v uint32
			n int
		}
		var groups []group
		total := 0
		for i := rng.Intn(30); i >= 0; i-- {
			n := 1 + rng.Intn(32)
			groups = append(groups, group{uint32(rng.Uint64() & (1<<n - 1)), n})
			total += n
		}
		if rem := total % 8; rem != 0 {
			groups = append(groups, group{0, 8 - rem})
		}
		var sb strings.Builder
		e := NewEncoder(nil, &sb)
		for _, g := range groups {
			if err := e.WriteBits(g.v, g.n); err != nil {
				t.Fatal(err)
			}
		}
		if err := e.Flush(); err != nil {
			t.Fatal(err)
		}
		d := NewDecoder(nil, sb.String())
		for i, g := range groups {
			if !d.HasNext(g.n) {
				t.Fatalf("round %d group %d: HasNext(%d) false: %v", round, i, g.n, d.Err())
			}
			v, err := d.ReadBits(g.n)
			if err != nil || v != g.v {
				t.Fatalf("round %d group %d: got %d, %v want %d", round, i, v, err, g.v)
			}
		}
		if d.HasNext(1) || !d.Done() || d.Err() != nil {
			t.Fatalf("round %d: trailing data or error %v", round, d.Err())
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	testcases := []struct {
		in   string
		want error
	}{
		{"08a!", bitio.ErrInvalidArgument},
		{"08af-", bitio.ErrInvalidArgument},
		// one character at offset 0 never ends a stream
		{"0", bitio.ErrInvalidArgument},
		// a lone unsqueezed full block holds 23 bits
		{"0000", bitio.ErrInvalidArgument},
		// 3 characters at offset 0 hold 16 bits
		{"zzz", bitio.ErrInvalidState},
	}
	for _, tc := range testcases {
		_, err := DecodeString(nil, tc.in)
		if !errors.Is(err, tc.want) {
			t.Errorf("%q: got %v, want %v", tc.in, err, tc.want)
		}
	}

	// errors are sticky
	d := NewDecoder(nil, "0!00")
	if d.HasNext(8) {
		t.Fatal("HasNext after an invalid character")
	}
	if _, err := d.ReadBits(1); !errors.Is(err, bitio.ErrInvalidArgument) {
		t.Fatalf("ReadBits: got %v", err)
	}
}

func TestUnalignedFlush(t *testing.T) {
	var sb strings.Builder
	e := NewEncoder(nil, &sb)
	if err := e.WriteBits(5, 3); err != nil {
		t.Fatal(err)
	}
	if err := e.Flush(); !errors.Is(err, bitio.ErrInvalidState) {
		t.Fatalf("got %v", err)
	}
	if err := e.WriteBits(0, 33); !errors.Is(err, bitio.ErrInvalidArgument) {
		t.Fatalf("33 bits: got %v", err)
	}
	if err := e.WriteBits(4, 2); !errors.Is(err, bitio.ErrInvalidArgument) {
		t.Fatalf("oversized value: got %v", err)
	}
}
