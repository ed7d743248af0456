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

package bbor62

import (
	"errors"
	"testing"
)

func TestParseOptions(t *testing.T) {
	text := []byte(`
alphabet: "0123456789abcdefghijklmnopqrstuvwxyz"
charsPerBlock: 6
dictSize: 200
noDictReset: true
fields: [user, email]
checksum: blake2b
`)
	o, err := ParseOptions(text)
	if err != nil {
		t.Fatal(err)
	}
	if o.CharsPerBlock != 6 || o.DictSize != 200 || !o.NoDictReset || len(o.Fields) != 2 || o.Checksum != ChecksumBlake2b {
		t.Fatalf("parsed %+v", o)
	}
	cfg, err := o.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseX.Radix() != 36 || cfg.LZW.MaxDictSize != 200 || cfg.LZW.DictReset || !cfg.LZW.ByteAlign {
		t.Fatalf("compiled %+v %+v", cfg.BaseX, cfg.LZW)
	}
	value := []any{
		map[string]any{"user": "ann", "email": "ann@example.com"},
		map[string]any{"user": "bob", "email": "bob@example.com"},
	}
	s, err := cfg.Encode(value)
	if err != nil {
		t.Fatal(err)
	}
	only(t, s, o.Alphabet)
	if _, err := cfg.Decode(s); err != nil {
		t.Fatal(err)
	}

	// options survive a YAML round trip
	buf, err := o.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	o2, err := ParseOptions(buf)
	if err != nil {
		t.Fatalf("%s: %v", buf, err)
	}
	cfg2, err := o2.Config()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg2.Decode(s); err != nil {
		t.Fatal(err)
	}
}

func TestZeroOptions(t *testing.T) {
	o, err := ParseOptions([]byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := o.Config()
	if err != nil {
		t.Fatal(err)
	}
	value := map[string]any{"id": 1, "name": "same as the default"}
	a, err := cfg.Encode(value)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(value)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("%q != %q", a, b)
	}
}

func TestOptionErrors(t *testing.T) {
	testcases := []struct {
		name string
		text string
	}{
		{"unknown key", `alphabett: abc`},
		{"short alphabet", `alphabet: a`},
		{"small dictionary", `dictSize: 10`},
		{"unaligned strings", `noByteAlign: true`},
		{"duplicate fields", `fields: [a, a]`},
		{"unknown checksum", `checksum: md5`},
	}
	for _, tc := range testcases {
		o, err := ParseOptions([]byte(tc.text))
		if err == nil {
			_, err = o.Config()
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: got %v", tc.name, err)
		}
	}
	// unaligned strings are fine when
	// strings are not compressed
	o, err := ParseOptions([]byte("noByteAlign: true\nnoStringCompression: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Config(); err != nil {
		t.Fatal(err)
	}
}

func TestBlockSizes(t *testing.T) {
	values := []any{
		true,
		"x",
		[]any{1, "two", 3.5},
		map[string]any{"id": 7, "name": "block sizes", "data": []byte{0xff, 0, 0x80}},
	}
	for chars := 1; chars <= 5; chars++ {
		for _, noSqueeze := range []bool{false, true} {
			o := &Options{CharsPerBlock: chars, NoSqueeze: noSqueeze}
			cfg, err := o.Config()
			if err != nil {
				t.Fatalf("%d chars: %v", chars, err)
			}
			for _, v := range values {
				s, err := cfg.Encode(v)
				if err != nil {
					t.Fatalf("%d chars: %v: %v", chars, v, err)
				}
				got, err := cfg.Decode(s)
				if err != nil {
					t.Fatalf("%d chars, squeeze %v: %v: decoding %q: %v", chars, !noSqueeze, v, s, err)
				}
				again, err := cfg.Encode(got)
				if err != nil || again != s {
					t.Fatalf("%d chars: %v: %q re-encoded as %q, %v", chars, v, s, again, err)
				}
			}
		}
	}
}
