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

// Package compr wraps general-purpose byte
// compressors behind one interface. They are
// the baselines that bbor62 output is measured
// against.
package compr

import (
	"bytes"
	"fmt"
	"io"
	"unsafe"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz/lzma"
)

// Compressor describes a block compression
// algorithm.
type Compressor interface {
	// Name is the name of the compression algorithm.
	Name() string
	// Compress should append the compressed contents
	// of src to dst and return the result.
	Compress(src, dst []byte) []byte
}

// Decompressor is the inverse of Compressor.
type Decompressor interface {
	// Name is the name of the compression algorithm.
	// See also Compressor.Name.
	Name() string
	// Decompress decompresses source data
	// into dst. It should error out if
	// dst is not exactly the size of the
	// decoded source data.
	Decompress(src, dst []byte) error
}

// Names lists the supported algorithms.
var Names = []string{"zstd", "zstd-better", "s2", "lzma"}

type zstdCompressor struct {
	enc *zstd.Encoder
}

func (z zstdCompressor) Compress(src, dst []byte) []byte {
	return z.enc.EncodeAll(src, dst)
}

func (z zstdCompressor) Name() string { return "zstd" }

var zstdDecoder *zstd.Decoder

func init() {
	// payloads are tiny; one goroutine is plenty
	z, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic(err)
	}
	zstdDecoder = z
}

type zstdDecompressor zstd.Decoder

func (z *zstdDecompressor) Name() string { return "zstd" }

func (z *zstdDecompressor) Decompress(src, dst []byte) error {
	into := dst[:0:len(dst)]
	ret, err := (*zstd.Decoder)(z).DecodeAll(src, into)
	if err != nil {
		return err
	}
	return checkSize("zstd", ret, dst)
}

// checkSize verifies that a decoder filled
// dst exactly, without reallocating it
func checkSize(name string, ret, dst []byte) error {
	if len(ret) != len(dst) {
		return fmt.Errorf("%s: expected %d bytes decompressed; got %d", name, len(dst), len(ret))
	}
	if len(ret) > 0 && &ret[0] != &dst[0] {
		return fmt.Errorf("%s decompress: output buffer realloc'd", name)
	}
	return nil
}

type s2Compressor struct{}

func (s2Compressor) Compress(src, dst []byte) []byte {
	tail := dst[len(dst):cap(dst)]
	// s2 requires non-overlapping src and dst
	if overlaps(src, tail) {
		tail = nil
	}
	got := s2.Encode(tail, src)
	if len(dst) == 0 {
		return got
	}
	if len(tail) > 0 && len(got) > 0 && &tail[0] == &got[0] {
		return dst[:len(dst)+len(got)]
	}
	return append(dst, got...)
}

func (s2Compressor) Decompress(src, dst []byte) error {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return fmt.Errorf("s2: expected %d bytes decompressed; got %d", len(dst), n)
	}
	ret, err := s2.Decode(dst, src)
	if err != nil {
		return err
	}
	return checkSize("s2", ret, dst)
}

func (s2Compressor) Name() string { return "s2" }

// lzmaCompressor writes the classic .lzma
// format with the smallest dictionary
type lzmaCompressor struct{}

func (lzmaCompressor) Name() string { return "lzma" }

func (lzmaCompressor) Compress(src, dst []byte) []byte {
	buf := bytes.NewBuffer(dst)
	w, err := lzma.WriterConfig{DictCap: lzma.MinDictCap}.NewWriter(buf)
	if err != nil {
		panic(err)
	}
	// writes to a bytes.Buffer cannot fail
	w.Write(src)
	w.Close()
	return buf.Bytes()
}

func (lzmaCompressor) Decompress(src, dst []byte) error {
	r, err := lzma.NewReader(bytes.NewReader(src))
	if err != nil {
		return err
	}
	if _, err := io.ReadFull(r, dst); err != nil {
		return fmt.Errorf("lzma: %w", err)
	}
	if n, _ := r.Read(make([]byte, 1)); n != 0 {
		return fmt.Errorf("lzma: more than %d bytes decompressed", len(dst))
	}
	return nil
}

// Compression selects a compression algorithm by name.
// The returned Compressor will return the same value
// for Compressor.Name as the specified name, except
// that "zstd-better" is named "zstd".
func Compression(name string) Compressor {
	switch name {
	case "zstd-better":
		z, _ := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBestCompression),
			zstd.WithEncoderConcurrency(1))
		return zstdCompressor{z}
	case "zstd":
		z, _ := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		return zstdCompressor{z}
	case "s2":
		return s2Compressor{}
	case "lzma":
		return lzmaCompressor{}
	default:
		return nil
	}
}

// Decompression returns the Decompressor
// for a name accepted by Compression.
func Decompression(name string) Decompressor {
	switch name {
	case "zstd", "zstd-better":
		return (*zstdDecompressor)(zstdDecoder)
	case "s2":
		return s2Compressor{}
	case "lzma":
		return lzmaCompressor{}
	default:
		return nil
	}
}

func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	a0 := uintptr(unsafe.Pointer(&a[0]))
	a1 := a0 + uintptr(len(a))
	b0 := uintptr(unsafe.Pointer(&b[0]))
	b1 := b0 + uintptr(len(b))
	return a0 < b1 && b0 < a1
}
