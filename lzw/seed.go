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

package lzw

import (
	"fmt"
	"unicode/utf16"

	"github.com/SnellerInc/bbor62/bitio"
	"github.com/SnellerInc/bbor62/dict"
)

// seq is a sequence of UTF-16 code units
// packed big-endian, two bytes per unit,
// so that it can be used as a map key.
type seq string

func unit(u uint16) seq {
	return seq([]byte{byte(u >> 8), byte(u)})
}

func seqOf(s string) seq {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 0, 2*len(units))
	for _, u := range units {
		buf = append(buf, byte(u>>8), byte(u))
	}
	return seq(buf)
}

func (s seq) len() int { return len(s) / 2 }

func (s seq) at(i int) uint16 {
	return uint16(s[2*i])<<8 | uint16(s[2*i+1])
}

func (s seq) first() seq { return s[:2] }

func (s seq) appendUnits(dst []uint16) []uint16 {
	for i := 0; i < s.len(); i++ {
		dst = append(dst, s.at(i))
	}
	return dst
}

func (s seq) String() string {
	return string(utf16.Decode(s.appendUnits(nil)))
}

// Seed is a static dictionary. It can be
// shared by any number of Compressors.
type Seed struct {
	d *dict.Seed[seq]
}

// NewSeed builds a Seed from entries.
// Entry i gets code i. The first two entries
// must be "\x00" and "\x01", which are used as
// the escape codes for literals.
func NewSeed(entries []string) (*Seed, error) {
	if len(entries) < 2 || entries[asciiEscape] != "\x00" || entries[unicodeEscape] != "\x01" {
		return nil, fmt.Errorf("lzw: seed must start with the escape entries \"\\x00\" and \"\\x01\": %w", bitio.ErrInvalidArgument)
	}
	seqs := make([]seq, len(entries))
	for i, e := range entries {
		if e == "" {
			return nil, fmt.Errorf("lzw: empty seed entry %d: %w", i, bitio.ErrInvalidArgument)
		}
		seqs[i] = seqOf(e)
	}
	d, err := dict.NewSeed(seqs)
	if err != nil {
		return nil, err
	}
	return &Seed{d: d}, nil
}

// Len returns the number of entries in the seed.
func (s *Seed) Len() int { return s.d.Len() }

// DefaultSeed holds the escapes, digits, common
// punctuation, latin letters in rough order of
// frequency in western languages, and a few
// frequent bigrams.
var DefaultSeed = mustSeed(defaultEntries)

var defaultEntries = []string{
	"\x00", "\x01",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	" ", ".", ",",
	"e", "a", "r", "i", "o", "t", "n", "s", "l", "c",
	"u", "d", "p", "m", "h", "g", "b", "f", "v", "k",
	"w", "j", "q", "x", "y", "z",
	"A", "M", "S", "C", "P", "D", "B", "R", "L", "T",
	"E", "N", "H", "G", "F", "W", "I", "J", "K", "O",
	"V", "U", "Q", "X", "Y", "Z",
	"th", "en", "er", "in", "es", "on", "an", "re", "st", "le",
}

func mustSeed(entries []string) *Seed {
	s, err := NewSeed(entries)
	if err != nil {
		panic(err)
	}
	return s
}
