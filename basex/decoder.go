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
	"fmt"
	"unicode/utf8"

	"github.com/SnellerInc/bbor62/bitio"
)

// Decoder is a bitio.Reader over encoded text.
// Characters are only decoded when a read
// needs more bits than are buffered.
//
// Any decoding error is sticky: once it
// happens, HasNext reports false and every
// ReadBits call returns the error.
type Decoder struct {
	cfg *Config
	in  string
	pos int // byte offset of the next character in the input

	// current block
	val   uint64
	chars int

	// decoded bits not yet forming a byte
	acc  uint64
	bits int
	mod  int

	out bitio.Buffer
	err error
}

// NewDecoder returns a Decoder over input.
// If cfg is nil, DefaultConfig is used.
func NewDecoder(cfg *Config, input string) *Decoder {
	if cfg == nil {
		cfg = DefaultConfig
	}
	return &Decoder{cfg: cfg, in: input}
}

// fill decodes characters until n bits are
// buffered or the input is exhausted
func (d *Decoder) fill(n int) {
	for d.err == nil && !d.out.HasNext(n) && d.pos < len(d.in) {
		r, size := utf8.DecodeRuneInString(d.in[d.pos:])
		d.pos += size
		d.err = d.readChar(r, d.pos == len(d.in))
	}
}

// HasNext implements bitio.Reader.HasNext.
func (d *Decoder) HasNext(n int) bool {
	d.fill(n)
	return d.err == nil && d.out.HasNext(n)
}

// ReadBits implements bitio.Reader.ReadBits.
func (d *Decoder) ReadBits(n int) (uint32, error) {
	if n > 0 && n <= bitio.MaxBits {
		d.fill(n)
	}
	if d.err != nil {
		return 0, d.err
	}
	return d.out.ReadBits(n)
}

// Err returns the first decoding error, if any.
func (d *Decoder) Err() error { return d.err }

// Done reports whether every character has
// been decoded and every decoded bit read.
func (d *Decoder) Done() bool {
	return d.pos == len(d.in) && !d.out.HasNext(1)
}

func (d *Decoder) readChar(r rune, last bool) error {
	idx, ok := d.cfg.rev[r]
	if !ok {
		return fmt.Errorf("basex: invalid character %q at offset %d: %w", r, d.pos, bitio.ErrInvalidArgument)
	}
	d.val = d.val*d.cfg.radix + idx
	d.chars++
	if !last {
		if d.chars == d.cfg.chars {
			return d.decodeBlock(d.cfg.bitsPerBlock)
		}
		return nil
	}
	bits, err := d.finalBits()
	if err != nil {
		return err
	}
	if err := d.decodeBlock(bits); err != nil {
		return err
	}
	if d.bits > 0 {
		return fmt.Errorf("basex: %d bits left after the last character: %w", d.bits, bitio.ErrInvalidState)
	}
	return nil
}

// finalBits returns the bit length of the
// block that ends with the last character
func (d *Decoder) finalBits() (int, error) {
	// a final block never holds more than
	// bitsPerBlock bits, so a value above
	// maxBlockValue is a squeezed full block
	if d.chars == d.cfg.chars && d.val > d.cfg.maxBlockValue {
		return d.cfg.bitsPerBlock, nil
	}
	bits, ok := d.cfg.FinalBlockBits(d.mod, d.chars)
	if !ok {
		return 0, fmt.Errorf("basex: invalid last block combination: offset %d, %d characters: %w", d.mod, d.chars, bitio.ErrInvalidArgument)
	}
	return bits, nil
}

func (d *Decoder) decodeBlock(bits int) error {
	// squeezed bits show up as a block value
	// that the guaranteed width cannot hold
	for extra := 0; d.val>>extra > d.cfg.maxBlockValue; extra++ {
		bits++
	}
	if d.val>>bits != 0 {
		return fmt.Errorf("basex: block value %d does not fit in %d bits: %w", d.val, bits, bitio.ErrInvalidState)
	}
	d.acc = d.acc<<bits | d.val
	d.bits += bits
	d.mod = (d.mod + bits) % 8
	d.val, d.chars = 0, 0
	for d.bits >= 8 {
		d.bits -= 8
		if err := d.out.WriteBits(uint32(d.acc>>d.bits)&0xff, 8); err != nil {
			return err
		}
	}
	d.acc &= 1<<d.bits - 1
	return nil
}

// DecodeString decodes s into the bytes
// it was encoded from.
// If cfg is nil, DefaultConfig is used.
func DecodeString(cfg *Config, s string) ([]byte, error) {
	d := NewDecoder(cfg, s)
	var out []byte
	for d.HasNext(8) {
		b, err := d.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(b))
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
