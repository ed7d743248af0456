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

// Package bbor implements a compact binary framing
// of JSON-like values modeled on CBOR.
//
// Every item starts with a byte holding a 3-bit
// major type and 5 bits of additional information,
// optionally followed by a length or value of 8,
// 16, 32 or 64 bits. Containers are always
// length-prefixed. Text strings may be compressed
// by a Compressor, and field names that were
// already written can be replaced by their index
// in a per-stream field dictionary.
//
// Items are written to a bitio.Writer and read
// from a bitio.Reader, so the framing can share
// a bit stream with compressors that do not
// produce whole bytes.
package bbor

import (
	"github.com/SnellerInc/bbor62/bitio"
	"github.com/SnellerInc/bbor62/dict"
)

// Errors returned by Encoder and Decoder wrap
// one of these.
var (
	ErrInvalidArgument = bitio.ErrInvalidArgument
	ErrInvalidState    = bitio.ErrInvalidState
	ErrUnsupported     = bitio.ErrUnsupported
)

// MaxSafeInteger is the largest integer
// written without a bignum tag. It is the
// largest integer a float64 holds exactly.
const MaxSafeInteger = 1<<53 - 1

const (
	majorUnsigned = 0
	majorNegative = 1
	majorBytes    = 2
	majorText     = 3
	majorList     = 4
	majorMap      = 5
	majorTag      = 6
	majorSimple   = 7

	tagPositiveBignum = 2
	tagNegativeBignum = 3

	simpleFalse     = 0xf4
	simpleTrue      = 0xf5
	simpleNull      = 0xf6
	simpleUndefined = 0xf7
	simpleFloat32   = 0xfa
	simpleFloat64   = 0xfb
)

// Compressor compresses text strings.
// Implementations may keep state across calls;
// the same sequence of strings must be passed
// to Decompress that was passed to Compress.
type Compressor interface {
	// Compress writes the compressed form of s.
	Compress(s string, dst bitio.Writer) error
	// Decompress reads one string written by Compress.
	Decompress(src bitio.Reader) (string, error)
}

// DefaultFields seeds the field dictionary
// with common field names.
var DefaultFields = dict.MustSeed([]string{
	"id",
	"type",
	"name",
	"status",
	"count",
	"data",
	"value",
	"error",
	"response",
	"version",
})

// Config controls the framing.
// Encoder and Decoder must agree on it.
type Config struct {
	// KeyMapping replaces repeated field
	// names with dictionary indexes.
	KeyMapping bool
	// StringCompression passes non-empty text
	// strings through the Compressor.
	StringCompression bool
	// Fields seeds the field dictionary.
	// If nil, DefaultFields is used.
	Fields *dict.Seed[string]
}

// DefaultConfig enables key mapping and
// string compression.
var DefaultConfig = Config{
	KeyMapping:        true,
	StringCompression: true,
}

func (c *Config) fieldSeed() *dict.Seed[string] {
	if c.Fields == nil {
		return DefaultFields
	}
	return c.Fields
}
