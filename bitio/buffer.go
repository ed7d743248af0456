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

const initialSize = 8

// Buffer is a growable bit buffer.
// It is both a Writer and a Reader;
// reads consume bits in the order
// they were written.
//
// The zero value is an empty buffer
// ready to use.
type Buffer struct {
	buf []byte

	// read cursor
	rpos int
	rbit int

	// write cursor; wcur holds
	// the wbit bits of the byte
	// that is still being built
	wpos int
	wbit int
	wcur byte

	// buf belongs to the caller of NewBuffer
	shared bool
}

// NewBuffer returns a Buffer whose
// readable contents are p. Reads use p
// in place; writes never modify it.
func NewBuffer(p []byte) *Buffer {
	return &Buffer{buf: p, wpos: len(p), shared: true}
}

// WriteBits implements Writer.WriteBits.
func (b *Buffer) WriteBits(v uint32, n int) error {
	if err := Check(v, n); err != nil {
		return err
	}
	for n > 0 {
		avail := 8 - b.wbit
		take := n
		if take > avail {
			take = avail
		}
		n -= take
		chunk := byte(v>>n) & byte(1<<take-1)
		b.wcur = b.wcur<<take | chunk
		b.wbit += take
		if b.wbit == 8 {
			b.reserve(1)
			b.buf[b.wpos] = b.wcur
			b.wpos++
			b.wcur = 0
			b.wbit = 0
		}
	}
	return nil
}

// Flush implements Writer.Flush.
// A Buffer is always used byte-aligned,
// so Flush fails if a partial byte
// has been written.
func (b *Buffer) Flush() error {
	if b.wbit != 0 {
		return fmt.Errorf("bitio: %d trailing bits left in buffer: %w", b.wbit, ErrInvalidState)
	}
	return nil
}

// HasNext implements Reader.HasNext.
func (b *Buffer) HasNext(n int) bool {
	return b.rpos*8+b.rbit+n <= b.wpos*8
}

// ReadBits implements Reader.ReadBits.
func (b *Buffer) ReadBits(n int) (uint32, error) {
	if err := checkCount(n); err != nil {
		return 0, err
	}
	if !b.HasNext(n) {
		return 0, fmt.Errorf("bitio: reading %d bits: %w", n, io.ErrUnexpectedEOF)
	}
	var out uint32
	for n > 0 {
		avail := 8 - b.rbit
		take := n
		if take > avail {
			take = avail
		}
		shift := avail - take
		out = out<<take | uint32(b.buf[b.rpos]>>shift)&(1<<take-1)
		n -= take
		b.rbit += take
		if b.rbit == 8 {
			b.rpos++
			b.rbit = 0
		}
	}
	return out, nil
}

// Len returns the number of whole
// bytes written but not yet read.
func (b *Buffer) Len() int {
	return b.wpos - b.rpos
}

// Bytes returns the whole bytes that
// have not been read yet. The result
// aliases the buffer storage and is only
// valid until the next write.
// Bytes returns nil while the read
// cursor sits inside a byte.
func (b *Buffer) Bytes() []byte {
	if b.rbit != 0 {
		return nil
	}
	return b.buf[b.rpos:b.wpos]
}

// Reset empties the buffer but keeps
// its storage, unless that storage
// came from NewBuffer.
func (b *Buffer) Reset() {
	if b.shared {
		b.buf, b.shared = nil, false
	}
	b.rpos, b.rbit = 0, 0
	b.wpos, b.wbit, b.wcur = 0, 0, 0
}

// reserve makes room for n more bytes
// at the write cursor. Bytes before the
// read cursor are discarded first, and
// the storage is doubled only if that
// did not free enough space. Shared
// storage is always copied.
func (b *Buffer) reserve(n int) {
	if !b.shared {
		if b.wpos+n <= len(b.buf) {
			return
		}
		if b.rpos > 0 {
			copy(b.buf, b.buf[b.rpos:b.wpos])
			b.wpos -= b.rpos
			b.rpos = 0
			if b.wpos+n <= len(b.buf) {
				return
			}
		}
	}
	live := b.wpos - b.rpos
	size := len(b.buf) * 2
	if size < initialSize {
		size = initialSize
	}
	for size < live+n {
		size *= 2
	}
	nb := make([]byte, size)
	copy(nb, b.buf[b.rpos:b.wpos])
	b.buf, b.shared = nb, false
	b.wpos -= b.rpos
	b.rpos = 0
}
