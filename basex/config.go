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

// Package basex implements a streaming transcoder
// between a byte-aligned bit stream and text over
// an arbitrary alphabet.
//
// Bits are grouped into blocks of a fixed number of
// characters. Each block carries the largest number
// of bits that always fits in that many characters;
// when squeezing is enabled, a block may carry extra
// bits whenever the value they form still fits.
// The last block is written with as few characters
// as possible, and the decoder recovers its bit
// length from its character count and the byte
// alignment at which it starts.
package basex

import (
	"fmt"
	"unicode/utf8"

	"github.com/SnellerInc/bbor62/bitio"
	"github.com/SnellerInc/bbor62/ints"
)

// Base62 is the default alphabet.
const Base62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Config is an immutable transcoder configuration.
// Build one with NewConfig.
type Config struct {
	alphabet []rune
	rev      map[rune]uint64
	radix    uint64
	chars    int
	squeeze  bool

	bitsPerBlock int
	// largest value that bitsPerBlock bits can hold
	maxBlockValue uint64
	// largest value that chars characters can hold
	maxBlockCapacity uint64

	// lut[m][c] is the bit length of a final
	// block of c characters that starts at byte
	// offset m, or 0 if no such block exists
	lut [8][]int
}

// DefaultConfig is base62 with 4-character
// blocks and squeezing enabled.
var DefaultConfig = mustConfig(Base62, 4, true)

func mustConfig(alphabet string, chars int, squeeze bool) *Config {
	c, err := NewConfig(alphabet, chars, squeeze)
	if err != nil {
		panic(err)
	}
	return c
}

// NewConfig validates an alphabet and block size.
// It fails with bitio.ErrInvalidArgument if the
// alphabet has fewer than two characters, repeats
// a character, or makes a block wider than 32 bits,
// and with bitio.ErrInvalidState if the final
// block length cannot be decoded unambiguously.
func NewConfig(alphabet string, chars int, squeeze bool) (*Config, error) {
	if !utf8.ValidString(alphabet) {
		return nil, fmt.Errorf("basex: alphabet is not valid UTF-8: %w", bitio.ErrInvalidArgument)
	}
	runes := []rune(alphabet)
	if len(runes) < 2 {
		return nil, fmt.Errorf("basex: alphabet needs at least 2 characters: %w", bitio.ErrInvalidArgument)
	}
	if chars < 1 {
		return nil, fmt.Errorf("basex: %d characters per block: %w", chars, bitio.ErrInvalidArgument)
	}
	c := &Config{
		alphabet: runes,
		rev:      make(map[rune]uint64, len(runes)),
		radix:    uint64(len(runes)),
		chars:    chars,
		squeeze:  squeeze,
	}
	for i, r := range runes {
		if _, ok := c.rev[r]; ok {
			return nil, fmt.Errorf("basex: duplicate character %q in alphabet: %w", r, bitio.ErrInvalidArgument)
		}
		c.rev[r] = uint64(i)
	}
	capacity, ok := ints.Pow(c.radix, chars)
	if !ok {
		return nil, fmt.Errorf("basex: %d characters of radix %d exceed %d bits: %w", chars, c.radix, bitio.MaxBits, bitio.ErrInvalidArgument)
	}
	c.bitsPerBlock = ints.BitLen(capacity) - 1
	if c.bitsPerBlock > bitio.MaxBits {
		return nil, fmt.Errorf("basex: %d bits per block exceed %d: %w", c.bitsPerBlock, bitio.MaxBits, bitio.ErrInvalidArgument)
	}
	c.maxBlockValue = 1<<c.bitsPerBlock - 1
	c.maxBlockCapacity = capacity - 1
	if err := c.buildLUT(); err != nil {
		return nil, err
	}
	return c, nil
}

// buildLUT lists, for every final block width in
// characters and every starting byte offset, the
// only bit length that both needs that many
// characters and ends on a byte boundary.
// Squeezed full blocks are not listed: their
// value alone tells them apart.
func (c *Config) buildLUT() error {
	for m := range c.lut {
		c.lut[m] = make([]int, c.chars+1)
	}
	for n := 1; n <= c.chars; n++ {
		lo, _ := ints.Pow(c.radix, n-1)
		hi, _ := ints.Pow(c.radix, n)
		minBits := ints.Max(ints.Log2Ceil(lo), 1)
		maxBits := ints.Min(ints.Log2Ceil(hi-1), c.bitsPerBlock)
		if n == c.chars {
			// an unsqueezed full block may end the stream
			maxBits = c.bitsPerBlock
		}
		for m := 0; m < 8; m++ {
			for b := minBits; b <= maxBits; b++ {
				if (m+b)%8 != 0 {
					continue
				}
				if c.lut[m][n] != 0 {
					return fmt.Errorf("basex: a final block of %d characters at bit offset %d can hold %d or %d bits: %w",
						n, m, c.lut[m][n], b, bitio.ErrInvalidState)
				}
				c.lut[m][n] = b
			}
		}
	}
	return nil
}

// Radix returns the alphabet size.
func (c *Config) Radix() int { return int(c.radix) }

// CharsPerBlock returns the block size in characters.
func (c *Config) CharsPerBlock() int { return c.chars }

// BitsPerBlock returns the number of bits every
// full block is guaranteed to hold.
func (c *Config) BitsPerBlock() int { return c.bitsPerBlock }

// Squeeze reports whether bit squeezing is enabled.
func (c *Config) Squeeze() bool { return c.squeeze }

// Alphabet returns the alphabet as a string.
func (c *Config) Alphabet() string { return string(c.alphabet) }

// FinalBlockBits returns the bit length of a final
// block of n characters starting at byte offset m,
// and whether such a block can exist.
func (c *Config) FinalBlockBits(m, n int) (int, bool) {
	if m < 0 || m >= 8 || n < 1 || n > c.chars {
		return 0, false
	}
	b := c.lut[m][n]
	return b, b != 0
}
