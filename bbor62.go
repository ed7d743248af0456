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

// Package bbor62 encodes JSON-like values into
// short strings over an arbitrary alphabet and
// decodes them back.
//
// A value is framed by package bbor, its strings
// are compressed by package lzw, and the resulting
// bit stream is written as text by package basex.
// With the default configuration the text only
// contains the characters 0-9, A-Z and a-z.
package bbor62

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/SnellerInc/bbor62/basex"
	"github.com/SnellerInc/bbor62/bbor"
	"github.com/SnellerInc/bbor62/bitio"
	"github.com/SnellerInc/bbor62/lzw"
)

// Every error returned by this package and
// the codec packages wraps one of these
// or io.ErrUnexpectedEOF.
var (
	ErrInvalidArgument = bitio.ErrInvalidArgument
	ErrInvalidState    = bitio.ErrInvalidState
	ErrUnsupported     = bitio.ErrUnsupported
)

// Config selects the configuration of
// every stage of the pipeline. A nil stage
// configuration selects that stage's default.
// Strings must be decoded with the same
// Config they were encoded with.
type Config struct {
	BaseX *basex.Config
	LZW   *lzw.Config
	Bbor  *bbor.Config
	// Checksum, if set, appends a 32-bit
	// checksum of the framed value that is
	// verified on decode.
	Checksum Checksum
	// Logf, if non-nil, receives the
	// size of every encoded and decoded value.
	Logf func(f string, args ...any)
}

// DefaultConfig is used by the package-level
// functions.
var DefaultConfig = Config{}

func (c *Config) logf(f string, args ...any) {
	if c.Logf != nil {
		c.Logf(f, args...)
	}
}

func (c *Config) compressor() *lzw.Compressor {
	return lzw.New(c.LZW)
}

// Encode encodes v, which may be a bbor.Datum
// or any Go value accepted by bbor.Encoder.Write.
func (c *Config) Encode(v any) (string, error) {
	if err := c.Checksum.validate(); err != nil {
		return "", err
	}
	var sb strings.Builder
	out := basex.NewEncoder(c.BaseX, &sb)
	tee := &bitio.TeeWriter{W: out}
	enc := bbor.NewEncoder(c.Bbor, tee, c.compressor())
	if err := enc.Write(v); err != nil {
		return "", err
	}
	framed := tee.Side.Len()
	if c.Checksum != ChecksumNone {
		if err := out.WriteBits(c.Checksum.sum(tee.Side.Bytes()), 32); err != nil {
			return "", err
		}
	}
	if err := out.Flush(); err != nil {
		return "", err
	}
	c.logf("bbor62: encoded %d framed bytes into %d characters", framed, len(sb.String()))
	return sb.String(), nil
}

// Decode decodes a string produced by Encode.
// The whole string must hold exactly one value.
func (c *Config) Decode(s string) (bbor.Datum, error) {
	if err := c.Checksum.validate(); err != nil {
		return nil, err
	}
	in := basex.NewDecoder(c.BaseX, s)
	tee := &bitio.TeeReader{R: in}
	dec := bbor.NewDecoder(c.Bbor, tee, c.compressor())
	d, err := dec.ReadDatum()
	if err == io.EOF {
		if err = in.Err(); err == nil {
			err = fmt.Errorf("bbor62: no value in %d characters: %w", len(s), ErrInvalidState)
		}
	}
	if err != nil {
		return nil, err
	}
	framed := tee.Side.Len()
	if c.Checksum != ChecksumNone {
		got, err := in.ReadBits(32)
		if err != nil {
			return nil, fmt.Errorf("bbor62: reading checksum: %w", err)
		}
		if want := c.Checksum.sum(tee.Side.Bytes()); got != want {
			return nil, fmt.Errorf("bbor62: checksum %08x does not match %08x: %w", got, want, ErrInvalidState)
		}
	}
	if in.HasNext(8) {
		return nil, fmt.Errorf("bbor62: trailing data after the value: %w", ErrInvalidState)
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	c.logf("bbor62: decoded %d characters into %d framed bytes", len(s), framed)
	return d, nil
}

// EncodeJSON encodes the JSON value read from r.
// Object keys keep their order. Anything but
// whitespace after the value is an error.
func (c *Config) EncodeJSON(r io.Reader) (string, error) {
	jd := json.NewDecoder(r)
	d, err := bbor.FromJSON(jd)
	if err != nil {
		return "", err
	}
	if _, err := jd.Token(); err != io.EOF {
		return "", fmt.Errorf("bbor62: trailing data after the JSON value: %w", ErrInvalidArgument)
	}
	return c.Encode(d)
}

// DecodeJSON decodes s and writes the value
// to w as JSON.
func (c *Config) DecodeJSON(w io.Writer, s string) error {
	d, err := c.Decode(s)
	if err != nil {
		return err
	}
	return bbor.ToJSON(w, d)
}

// Encode encodes v with DefaultConfig.
func Encode(v any) (string, error) { return DefaultConfig.Encode(v) }

// Decode decodes s with DefaultConfig.
func Decode(s string) (bbor.Datum, error) { return DefaultConfig.Decode(s) }

// EncodeJSON encodes the JSON text js
// with DefaultConfig.
func EncodeJSON(js string) (string, error) {
	return DefaultConfig.EncodeJSON(strings.NewReader(js))
}

// DecodeJSON decodes s with DefaultConfig
// and returns the value as JSON text.
func DecodeJSON(s string) (string, error) {
	var sb strings.Builder
	if err := DefaultConfig.DecodeJSON(&sb, s); err != nil {
		return "", err
	}
	return sb.String(), nil
}
