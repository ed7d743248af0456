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

// Package lzw implements an LZW string compressor
// with a seeded static dictionary, escape-coded
// literals and variable code widths.
//
// Text is processed as UTF-16 code units, so
// characters outside the Basic Multilingual Plane
// are carried as two escaped surrogate halves.
// Code widths are not fixed: every code is written
// with just enough bits to address the largest
// index the dictionary currently holds.
//
// A Compressor keeps its dictionaries between calls
// so that every string of a document benefits from
// the sequences seen in the previous ones. The
// decompressing side must see the same strings in
// the same order.
package lzw

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/SnellerInc/bbor62/bitio"
	"github.com/SnellerInc/bbor62/dict"
	"github.com/SnellerInc/bbor62/ints"
)

const (
	// index (and value) of the escape that
	// introduces an 8-bit literal
	asciiEscape = 0
	// index (and value) of the escape that
	// introduces a 16-bit literal
	unicodeEscape = 1
)

// Config controls the behavior of a Compressor.
// Both sides of a stream must use identical
// configurations.
type Config struct {
	// DynamicDict enables learning new
	// sequences on top of the seed.
	DynamicDict bool
	// MaxDictSize bounds the dictionary size,
	// seed entries included.
	MaxDictSize int
	// DictReset drops every learned sequence
	// once the dictionary is full. Otherwise
	// a full dictionary stops learning.
	DictReset bool
	// ByteAlign pads every compressed string
	// to a whole number of bytes.
	ByteAlign bool
	// Seed is the static dictionary.
	// If Seed is nil, DefaultSeed is used.
	Seed *Seed
	// Logf, if non-nil, is used to trace every
	// code written or read and every reset.
	Logf func(f string, args ...any)
}

// DefaultConfig is the configuration used
// when New is passed a nil *Config.
var DefaultConfig = Config{
	DynamicDict: true,
	MaxDictSize: 1<<10 - 1,
	DictReset:   true,
	ByteAlign:   true,
}

// Compressor compresses strings into a bit
// stream and decompresses them back.
// A Compressor is not safe for concurrent use.
type Compressor struct {
	cfg  Config
	seed *Seed

	enc *dict.Dict[seq, int]
	dec *dict.Dict[int, seq]
}

// New returns a Compressor for cfg.
// The dictionaries are built lazily on
// the first call to Compress or Decompress.
func New(cfg *Config) *Compressor {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c := &Compressor{cfg: *cfg, seed: cfg.Seed}
	if c.seed == nil {
		c.seed = DefaultSeed
	}
	return c
}

func (c *Compressor) logf(f string, args ...any) {
	if c.cfg.Logf != nil {
		c.cfg.Logf(f, args...)
	}
}

// codeWidth returns the number of bits
// needed to write any code up to max
func codeWidth(max int) int {
	if max <= 0 {
		return 1
	}
	return ints.BitLen(uint(max))
}

type sizer interface {
	Len() int
	Dynamic() int
	Reset()
}

// checkReset runs after every code on both
// sides so that code widths stay in sync
func (c *Compressor) checkReset(d sizer) {
	if c.cfg.DynamicDict && c.cfg.DictReset && d.Len() >= c.cfg.MaxDictSize {
		c.logf("lzw: reset at size %d after %d learned entries", d.Len(), d.Dynamic())
		d.Reset()
	}
}

// Compress appends the compressed form of s to dst.
// It does not flush dst.
func (c *Compressor) Compress(s string, dst bitio.Writer) error {
	if s == "" {
		return fmt.Errorf("lzw: cannot compress an empty string: %w", bitio.ErrInvalidState)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("lzw: %q is not valid UTF-8: %w", s, bitio.ErrInvalidArgument)
	}
	if c.enc == nil {
		c.enc = c.seed.d.Forward(c.cfg.DynamicDict, c.cfg.MaxDictSize)
	}
	units := utf16.Encode([]rune(s))
	align := 0
	last := unit(units[0])
	for _, u := range units[1:] {
		cur := unit(u)
		joined := last + cur
		if c.enc.Has(joined) {
			last = joined
			continue
		}
		isNew, err := c.write(dst, &align, last)
		if err != nil {
			return err
		}
		c.checkReset(c.enc)
		if isNew {
			c.enc.Add(last, c.enc.Len())
		}
		c.enc.Add(joined, c.enc.Len())
		last = cur
	}
	isNew, err := c.write(dst, &align, last)
	if err != nil {
		return err
	}
	c.checkReset(c.enc)
	if isNew {
		c.enc.Add(last, c.enc.Len())
	}
	if !c.cfg.ByteAlign || align == 0 {
		return nil
	}
	// A real escape needs at least 8 more bits
	// than the rest of this byte, so the decoder
	// can tell the padding apart.
	rest := 8 - align
	width := ints.Min(codeWidth(c.enc.Len()-1), rest)
	if err := dst.WriteBits(asciiEscape, width); err != nil {
		return err
	}
	if rest > width {
		if err := dst.WriteBits(0, rest-width); err != nil {
			return err
		}
	}
	c.logf("lzw: pad %d bits", rest)
	return nil
}

// write emits the code for v and reports
// whether v was a literal seen for the first time
func (c *Compressor) write(dst bitio.Writer, align *int, v seq) (bool, error) {
	width := codeWidth(c.enc.Len() - 1)
	code, ok := c.enc.Get(v)
	isNew := false
	var err error
	switch {
	case ok && (code == asciiEscape || code == unicodeEscape):
		// the input contains an escape character itself
		if err = dst.WriteBits(asciiEscape, width); err == nil {
			err = dst.WriteBits(uint32(code), 8)
		}
	case ok:
		err = dst.WriteBits(uint32(code), width)
	case v.len() == 1:
		u := v.at(0)
		if u < 256 {
			if err = dst.WriteBits(asciiEscape, width); err == nil {
				err = dst.WriteBits(uint32(u), 8)
			}
		} else {
			if err = dst.WriteBits(unicodeEscape, width); err == nil {
				err = dst.WriteBits(uint32(u), 16)
			}
		}
		isNew = true
	default:
		return false, fmt.Errorf("lzw: sequence %q of length %d has no code: %w", v.String(), v.len(), bitio.ErrInvalidState)
	}
	if err != nil {
		return false, err
	}
	c.logf("lzw: write %q code=%d ok=%v width=%d size=%d", v.String(), code, ok, width, c.enc.Len())
	*align = (*align + width) % 8
	return isNew, nil
}

// Decompress reads one compressed string from src.
// It stops when src cannot provide another code,
// so src must end where the compressed string ends.
func (c *Compressor) Decompress(src bitio.Reader) (string, error) {
	if c.dec == nil {
		c.dec = c.seed.d.Reverse(c.cfg.DynamicDict, c.cfg.MaxDictSize)
	}
	var out []uint16
	align := 0
	// the first code is always present in the
	// dictionary, so it is at most size-1
	next := c.dec.Len() - 1
	var last seq
	for {
		cur, isNew, err := c.read(src, &align, next, last)
		if err != nil {
			return "", err
		}
		if cur == "" {
			break
		}
		out = cur.appendUnits(out)
		// this is the pair the compressor registered
		// right after it wrote the previous code
		if last != "" {
			c.dec.Add(c.dec.Len(), last+cur.first())
		}
		c.checkReset(c.dec)
		if isNew {
			c.dec.Add(c.dec.Len(), cur)
		}
		last = cur
		if c.cfg.DynamicDict {
			next = c.nextIndex()
		}
	}
	return string(utf16.Decode(out)), nil
}

// nextIndex returns the largest code the
// compressor may have written next: the pair
// that is still unknown to this side takes the
// slot after the current entries unless the
// dictionary is full.
func (c *Compressor) nextIndex() int {
	n := c.dec.Len()
	if n >= c.cfg.MaxDictSize {
		return n - 1
	}
	return n
}

// read returns the next decoded sequence,
// or an empty sequence at the end of the stream
func (c *Compressor) read(src bitio.Reader, align *int, next int, last seq) (seq, bool, error) {
	width := codeWidth(next)
	if !src.HasNext(width) {
		return "", false, c.skipPadding(src, *align)
	}
	code, err := src.ReadBits(width)
	if err != nil {
		return "", false, err
	}
	*align = (*align + width) % 8
	var out seq
	isNew := false
	switch {
	case code == asciiEscape || code == unicodeEscape:
		if c.cfg.ByteAlign && !src.HasNext(8) {
			return "", false, c.skipPadding(src, *align)
		}
		n := 8
		if code == unicodeEscape {
			n = 16
		}
		u, err := src.ReadBits(n)
		if err != nil {
			return "", false, err
		}
		out = unit(uint16(u))
		isNew = u != asciiEscape && u != unicodeEscape
	default:
		v, ok := c.dec.Get(int(code))
		switch {
		case ok:
			out = v
		case int(code) == next && last != "":
			// a code used by the compressor right
			// after creating it
			out = last + last.first()
		default:
			return "", false, fmt.Errorf("lzw: invalid compressed data: code %d with %d entries: %w", code, c.dec.Len(), bitio.ErrInvalidState)
		}
	}
	c.logf("lzw: read %q code=%d width=%d size=%d", out.String(), code, width, c.dec.Len())
	return out, isNew, nil
}

// skipPadding consumes the rest of
// the current byte in byte-aligned mode
func (c *Compressor) skipPadding(src bitio.Reader, align int) error {
	if !c.cfg.ByteAlign || align == 0 {
		return nil
	}
	_, err := src.ReadBits(8 - align)
	return err
}
