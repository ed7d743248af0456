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

package bitio

import (
	"fmt"
	"io"
)

// LimitedReader reads from R but stops
// after N bits. It does not ask R how
// much data is available: the limit
// alone decides what HasNext reports.
type LimitedReader struct {
	R Reader
	N int64 // limit in bits

	read int64 // bits consumed so far
}

// Limit returns a reader over the next
// nbytes bytes of r.
func Limit(r Reader, nbytes int64) *LimitedReader {
	return &LimitedReader{R: r, N: nbytes * 8}
}

// LimitBits returns a reader over the
// next nbits bits of r.
func LimitBits(r Reader, nbits int64) *LimitedReader {
	return &LimitedReader{R: r, N: nbits}
}

// HasNext reports whether n more bits fit
// inside the limit.
func (l *LimitedReader) HasNext(n int) bool {
	return l.read+int64(n) <= l.N
}

// ReadBits reads from the underlying reader
// if the bits fit inside the limit.
func (l *LimitedReader) ReadBits(n int) (uint32, error) {
	if err := checkCount(n); err != nil {
		return 0, err
	}
	if !l.HasNext(n) {
		return 0, fmt.Errorf("bitio: read of %d bits past %d-bit limit: %w", n, l.N, io.ErrUnexpectedEOF)
	}
	v, err := l.R.ReadBits(n)
	if err != nil {
		return 0, err
	}
	l.read += int64(n)
	return v, nil
}

// Remaining returns the number of bits
// left before the limit.
func (l *LimitedReader) Remaining() int64 {
	return l.N - l.read
}
