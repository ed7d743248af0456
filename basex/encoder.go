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
	"io"
	"strings"
	"unicode/utf8"

	"github.com/SnellerInc/bbor62/bitio"
	"github.com/SnellerInc/bbor62/ints"
)

// Encoder is a bitio.Writer that writes
// text to an io.Writer, one block at a time.
type Encoder struct {
	cfg *Config
	dst io.Writer

	acc  uint64 // bits of the current block
	bits int    // number of bits in acc
	mod  int    // total bits written, modulo 8

	tmp []rune
	out []byte
	err error
}

// NewEncoder returns an Encoder writing to dst.
// If cfg is nil, DefaultConfig is used.
func NewEncoder(cfg *Config, dst io.Writer) *Encoder {
	if cfg == nil {
		cfg = DefaultConfig
	}
	return &Encoder{cfg: cfg, dst: dst}
}

// WriteBits implements bitio.Writer.WriteBits.
func (e *Encoder) WriteBits(v uint32, n int) error {
	if e.err != nil {
		return e.err
	}
	if err := bitio.Check(v, n); err != nil {
		return err
	}
	for n > 0 {
		take := ints.Min(n, e.cfg.bitsPerBlock-e.bits)
		rest := n - take
		e.acc = e.acc<<take | uint64(v>>rest)&(1<<take-1)
		e.bits += take
		e.mod = (e.mod + take) % 8
		if e.bits == e.cfg.bitsPerBlock {
			if e.cfg.squeeze {
				rest = e.squeeze(v, rest)
			}
			if err := e.emit(e.acc, false); err != nil {
				return err
			}
			e.acc, e.bits = 0, 0
		}
		n = rest
	}
	return nil
}

// squeeze moves bits from the unwritten rest
// of v into the full block in acc for as long
// as the block value stays above what the
// guaranteed width could express while still
// fitting in the block's characters
func (e *Encoder) squeeze(v uint32, rest int) int {
	for rest > 0 {
		try := e.acc<<1 | uint64(v>>(rest-1))&1
		if try <= e.cfg.maxBlockValue || try > e.cfg.maxBlockCapacity {
			break
		}
		e.acc = try
		e.bits++
		e.mod = (e.mod + 1) % 8
		rest--
	}
	return rest
}

// Flush writes the final partial block.
// The total number of bits written must be
// a multiple of 8; otherwise the final block
// could not be decoded unambiguously and Flush
// fails with bitio.ErrInvalidState.
func (e *Encoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if e.mod != 0 {
		return fmt.Errorf("basex: stream of %d trailing bits is not byte aligned: %w", e.mod, bitio.ErrInvalidState)
	}
	if e.bits > 0 {
		if err := e.emit(e.acc, true); err != nil {
			return err
		}
	}
	e.acc, e.bits = 0, 0
	return nil
}

// emit renders v in the alphabet. Full blocks are
// left-padded to the block width. The final block
// is only padded until its width alone tells the
// decoder how many bits it holds.
func (e *Encoder) emit(v uint64, final bool) error {
	alpha := e.cfg.alphabet
	tmp := e.tmp[:0]
	for {
		tmp = append(tmp, alpha[v%e.cfg.radix])
		v /= e.cfg.radix
		if v == 0 {
			break
		}
	}
	if final {
		for {
			p, _ := ints.Pow(e.cfg.radix, len(tmp))
			if ints.Log2Ceil(p-1) >= e.bits {
				break
			}
			tmp = append(tmp, alpha[0])
		}
	} else {
		for len(tmp) < e.cfg.chars {
			tmp = append(tmp, alpha[0])
		}
	}
	out := e.out[:0]
	for i := len(tmp) - 1; i >= 0; i-- {
		out = utf8.AppendRune(out, tmp[i])
	}
	e.tmp, e.out = tmp, out
	if _, err := e.dst.Write(out); err != nil {
		e.err = err
		return err
	}
	return nil
}

// EncodeToString returns the text form of p.
// If cfg is nil, DefaultConfig is used.
func EncodeToString(cfg *Config, p []byte) string {
	var sb strings.Builder
	e := NewEncoder(cfg, &sb)
	// neither call can fail: the input is
	// byte aligned and sb never returns errors
	bitio.WriteBytes(e, p)
	e.Flush()
	return sb.String()
}
