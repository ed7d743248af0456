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

// Package bitio defines the bit-level sink and
// source contracts shared by every codec layer,
// plus a growable in-memory bit buffer that
// implements both.
//
// Bits are always most-significant first:
// writing the value 0b101 with n=3 followed by
// 0b11111 with n=5 produces the byte 0xbf.
package bitio

import (
	"errors"
	"fmt"
)

// MaxBits is the largest group of bits that
// can be moved by a single WriteBits or ReadBits call.
const MaxBits = 32

var (
	// ErrInvalidArgument is wrapped by errors
	// caused by bad caller input: bit widths or
	// values out of range, unknown characters,
	// unknown types or tags.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState is wrapped by errors
	// caused by a stream or configuration that
	// cannot be processed any further: unaligned
	// flushes, ambiguous configurations, corrupt
	// compressed data, leftover bits.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnsupported is wrapped by errors for
	// well-formed input that uses a feature
	// this implementation does not provide.
	ErrUnsupported = errors.New("unsupported")
)

// Writer is a bit sink.
type Writer interface {
	// WriteBits appends the low n bits of v.
	// n must be in [1, MaxBits] and v must
	// fit in n bits.
	WriteBits(v uint32, n int) error
	// Flush completes the stream. It fails
	// if the stream cannot be terminated in
	// its current state.
	Flush() error
}

// Reader is a bit source.
type Reader interface {
	// ReadBits consumes the next n bits.
	ReadBits(n int) (uint32, error)
	// HasNext reports whether at least
	// n more bits can be read.
	HasNext(n int) bool
}

// Check validates the arguments of a
// WriteBits call.
func Check(v uint32, n int) error {
	if n <= 0 || n > MaxBits {
		return fmt.Errorf("bitio: bit count %d not in [1, %d]: %w", n, MaxBits, ErrInvalidArgument)
	}
	if uint64(v) >= uint64(1)<<n {
		return fmt.Errorf("bitio: value %d does not fit in %d bits: %w", v, n, ErrInvalidArgument)
	}
	return nil
}

func checkCount(n int) error {
	if n <= 0 || n > MaxBits {
		return fmt.Errorf("bitio: bit count %d not in [1, %d]: %w", n, MaxBits, ErrInvalidArgument)
	}
	return nil
}

// WriteUint64 writes v as two 32-bit groups,
// high half first.
func WriteUint64(w Writer, v uint64) error {
	if err := w.WriteBits(uint32(v>>32), 32); err != nil {
		return err
	}
	return w.WriteBits(uint32(v), 32)
}

// ReadUint64 is the inverse of WriteUint64.
func ReadUint64(r Reader) (uint64, error) {
	hi, err := r.ReadBits(32)
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadBits(32)
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// WriteBytes writes each byte of p as an 8-bit group.
func WriteBytes(w Writer, p []byte) error {
	for _, b := range p {
		if err := w.WriteBits(uint32(b), 8); err != nil {
			return err
		}
	}
	return nil
}

// ReadBytes reads n 8-bit groups.
func ReadBytes(r Reader, n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		b, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(b)
	}
	return out, nil
}
