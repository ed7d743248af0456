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

package bbor

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/SnellerInc/bbor62/bitio"
	"github.com/SnellerInc/bbor62/dict"
	"github.com/SnellerInc/bbor62/ints"
)

// Encoder writes values to a bit stream.
//
// Values can be written whole with Write or
// piece by piece with the Write*, Begin* and
// End* methods. Containers are length-prefixed,
// so Begin* takes the number of items or fields
// that will follow and End* checks that exactly
// that many were written.
//
// Field names are remembered for the lifetime
// of the Encoder; a Decoder must read the values
// in the order they were written.
type Encoder struct {
	cfg  Config
	dst  bitio.Writer
	comp Compressor

	fields *dict.Dict[string, int]
	stack  []wframe
	tmp    bitio.Buffer
}

type wframe struct {
	kind  Type // ListType or StructType
	want  int
	got   int
	field bool // a field name is waiting for its value
}

// NewEncoder returns an Encoder writing to dst.
// Strings are compressed with comp unless comp
// is nil or string compression is disabled.
// If cfg is nil, DefaultConfig is used.
func NewEncoder(cfg *Config, dst bitio.Writer, comp Compressor) *Encoder {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	e := &Encoder{cfg: *cfg, dst: dst, comp: comp}
	e.fields = e.cfg.fieldSeed().Forward(true, dict.Unbounded)
	return e
}

// Depth returns the number of open containers.
func (e *Encoder) Depth() int { return len(e.stack) }

// value accounts for one value in
// the innermost open container
func (e *Encoder) value() error {
	if len(e.stack) == 0 {
		return nil
	}
	top := &e.stack[len(e.stack)-1]
	if top.kind == StructType {
		if !top.field {
			return fmt.Errorf("bbor: struct value written without a field name: %w", ErrInvalidState)
		}
		top.field = false
		return nil
	}
	top.got++
	if top.got > top.want {
		return fmt.Errorf("bbor: more than the %d declared list items: %w", top.want, ErrInvalidState)
	}
	return nil
}

func (e *Encoder) byte(b byte) error {
	return e.dst.WriteBits(uint32(b), 8)
}

// header writes a major type and
// its length or value
func (e *Encoder) header(major byte, n uint64) error {
	m := major << 5
	var err error
	switch {
	case n < 24:
		return e.byte(m | byte(n))
	case n < 1<<8:
		if err = e.byte(m | 24); err == nil {
			err = e.dst.WriteBits(uint32(n), 8)
		}
	case n < 1<<16:
		if err = e.byte(m | 25); err == nil {
			err = e.dst.WriteBits(uint32(n), 16)
		}
	case n < 1<<32:
		if err = e.byte(m | 26); err == nil {
			err = e.dst.WriteBits(uint32(n), 32)
		}
	default:
		if err = e.byte(m | 27); err == nil {
			err = bitio.WriteUint64(e.dst, n)
		}
	}
	return err
}

// WriteNull writes a null.
func (e *Encoder) WriteNull() error {
	if err := e.value(); err != nil {
		return err
	}
	return e.byte(simpleNull)
}

// WriteBool writes a boolean.
func (e *Encoder) WriteBool(b bool) error {
	if err := e.value(); err != nil {
		return err
	}
	if b {
		return e.byte(simpleTrue)
	}
	return e.byte(simpleFalse)
}

// WriteInt writes a signed integer. Magnitudes
// beyond MaxSafeInteger are written as bignums.
func (e *Encoder) WriteInt(i int64) error {
	if err := e.value(); err != nil {
		return err
	}
	return e.writeInt(i)
}

func (e *Encoder) writeInt(i int64) error {
	if i >= 0 {
		return e.writeUint(uint64(i))
	}
	mag := uint64(-1 - i)
	if mag < MaxSafeInteger {
		return e.header(majorNegative, mag)
	}
	return e.bignum(tagNegativeBignum, mag)
}

// WriteUint writes an unsigned integer. Values
// beyond MaxSafeInteger are written as bignums.
func (e *Encoder) WriteUint(u uint64) error {
	if err := e.value(); err != nil {
		return err
	}
	return e.writeUint(u)
}

func (e *Encoder) writeUint(u uint64) error {
	if u <= MaxSafeInteger {
		return e.header(majorUnsigned, u)
	}
	return e.bignum(tagPositiveBignum, u)
}

// bignum writes a tag followed by the shortest
// big-endian byte string holding mag
func (e *Encoder) bignum(tag byte, mag uint64) error {
	if err := e.byte(majorTag<<5 | tag); err != nil {
		return err
	}
	n := (ints.BitLen(mag) + 7) / 8
	if n == 0 {
		n = 1
	}
	if err := e.header(majorBytes, uint64(n)); err != nil {
		return err
	}
	for i := n - 1; i >= 0; i-- {
		if err := e.byte(byte(mag >> (8 * i))); err != nil {
			return err
		}
	}
	return nil
}

// WriteFloat writes a floating-point number.
// Integral values in the int64 range are
// written as integers, and single precision
// is used when its relative error is below 1e-7.
func (e *Encoder) WriteFloat(f float64) error {
	if err := e.value(); err != nil {
		return err
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return e.writeInt(int64(f))
	}
	if f32 := float32(f); math.Abs((f-float64(f32))/f) < 1e-7 {
		return e.writeFloat32(f32)
	}
	if err := e.byte(simpleFloat64); err != nil {
		return err
	}
	return bitio.WriteUint64(e.dst, math.Float64bits(f))
}

// WriteFloat32 writes a single-precision
// floating-point number as is.
func (e *Encoder) WriteFloat32(f float32) error {
	if err := e.value(); err != nil {
		return err
	}
	return e.writeFloat32(f)
}

func (e *Encoder) writeFloat32(f float32) error {
	if err := e.byte(simpleFloat32); err != nil {
		return err
	}
	return e.dst.WriteBits(math.Float32bits(f), 32)
}

// WriteString writes a text string.
func (e *Encoder) WriteString(s string) error {
	if err := e.value(); err != nil {
		return err
	}
	return e.writeString(s)
}

func (e *Encoder) writeString(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("bbor: text string %q is not valid UTF-8: %w", s, ErrInvalidArgument)
	}
	if s == "" || e.comp == nil || !e.cfg.StringCompression {
		if err := e.header(majorText, uint64(len(s))); err != nil {
			return err
		}
		return e.raw([]byte(s))
	}
	e.tmp.Reset()
	if err := e.comp.Compress(s, &e.tmp); err != nil {
		return err
	}
	if err := e.tmp.Flush(); err != nil {
		return fmt.Errorf("bbor: compressed string: %w", err)
	}
	if err := e.header(majorText, uint64(e.tmp.Len())); err != nil {
		return err
	}
	return e.raw(e.tmp.Bytes())
}

func (e *Encoder) raw(p []byte) error {
	return bitio.WriteBytes(e.dst, p)
}

// WriteBlob writes a byte string.
func (e *Encoder) WriteBlob(p []byte) error {
	if err := e.value(); err != nil {
		return err
	}
	if err := e.header(majorBytes, uint64(len(p))); err != nil {
		return err
	}
	return e.raw(p)
}

// BeginList starts a list of n items.
func (e *Encoder) BeginList(n int) error {
	if n < 0 {
		return fmt.Errorf("bbor: negative list length %d: %w", n, ErrInvalidArgument)
	}
	if err := e.value(); err != nil {
		return err
	}
	if err := e.header(majorList, uint64(n)); err != nil {
		return err
	}
	e.stack = append(e.stack, wframe{kind: ListType, want: n})
	return nil
}

// EndList closes the innermost list.
func (e *Encoder) EndList() error {
	return e.end(ListType)
}

// BeginStruct starts a struct of n fields.
func (e *Encoder) BeginStruct(n int) error {
	if n < 0 {
		return fmt.Errorf("bbor: negative struct length %d: %w", n, ErrInvalidArgument)
	}
	if err := e.value(); err != nil {
		return err
	}
	if err := e.header(majorMap, uint64(n)); err != nil {
		return err
	}
	e.stack = append(e.stack, wframe{kind: StructType, want: n})
	return nil
}

// EndStruct closes the innermost struct.
func (e *Encoder) EndStruct() error {
	return e.end(StructType)
}

func (e *Encoder) end(kind Type) error {
	if len(e.stack) == 0 {
		return fmt.Errorf("bbor: closing a %s with no open container: %w", kind, ErrInvalidState)
	}
	top := e.stack[len(e.stack)-1]
	if top.kind != kind {
		return fmt.Errorf("bbor: closing a %s while a %s is open: %w", kind, top.kind, ErrInvalidState)
	}
	if top.got != top.want || top.field {
		return fmt.Errorf("bbor: %s declared with %d entries has %d: %w", kind, top.want, top.got, ErrInvalidState)
	}
	e.stack = e.stack[:len(e.stack)-1]
	return nil
}

// BeginField writes the name of the next field
// of the innermost struct. With key mapping, a
// name that was written before is replaced by
// its index in the field dictionary.
func (e *Encoder) BeginField(name string) error {
	if len(e.stack) == 0 || e.stack[len(e.stack)-1].kind != StructType {
		return fmt.Errorf("bbor: field %q outside of a struct: %w", name, ErrInvalidState)
	}
	top := &e.stack[len(e.stack)-1]
	if top.field {
		return fmt.Errorf("bbor: field %q follows a field without a value: %w", name, ErrInvalidState)
	}
	top.got++
	if top.got > top.want {
		return fmt.Errorf("bbor: more than the %d declared struct fields: %w", top.want, ErrInvalidState)
	}
	top.field = true
	if !e.cfg.KeyMapping {
		return e.writeString(name)
	}
	if idx, ok := e.fields.Get(name); ok {
		return e.writeUint(uint64(idx))
	}
	if err := e.writeString(name); err != nil {
		return err
	}
	e.fields.Add(name, e.fields.Len())
	return nil
}

// TypeError is returned by Encoder.Write
// for values it cannot represent.
type TypeError struct {
	Value any
}

func (t *TypeError) Error() string {
	return fmt.Sprintf("bbor: cannot encode value of type %T", t.Value)
}

// Write writes v, which may be a Datum or one of
// nil, bool, any integer or float type, string,
// []byte, json.Number, []any, []string and
// map[string]any. Map entries are written in
// key order; use a *Struct to keep a given order.
func (e *Encoder) Write(v any) error {
	switch v := v.(type) {
	case nil:
		return e.WriteNull()
	case Datum:
		if isNilDatum(v) {
			return e.WriteNull()
		}
		return v.Encode(e)
	case bool:
		return e.WriteBool(v)
	case int:
		return e.WriteInt(int64(v))
	case int8:
		return e.WriteInt(int64(v))
	case int16:
		return e.WriteInt(int64(v))
	case int32:
		return e.WriteInt(int64(v))
	case int64:
		return e.WriteInt(v)
	case uint:
		return e.WriteUint(uint64(v))
	case uint8:
		return e.WriteUint(uint64(v))
	case uint16:
		return e.WriteUint(uint64(v))
	case uint32:
		return e.WriteUint(uint64(v))
	case uint64:
		return e.WriteUint(v)
	case float32:
		return e.WriteFloat(float64(v))
	case float64:
		return e.WriteFloat(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return e.WriteInt(i)
		}
		f, err := v.Float64()
		if err != nil {
			return fmt.Errorf("bbor: number %q: %w", v.String(), ErrInvalidArgument)
		}
		return e.WriteFloat(f)
	case string:
		return e.WriteString(v)
	case []byte:
		return e.WriteBlob(v)
	case []string:
		if err := e.BeginList(len(v)); err != nil {
			return err
		}
		for _, s := range v {
			if err := e.WriteString(s); err != nil {
				return err
			}
		}
		return e.EndList()
	case []any:
		if err := e.BeginList(len(v)); err != nil {
			return err
		}
		for _, x := range v {
			if err := e.Write(x); err != nil {
				return err
			}
		}
		return e.EndList()
	case map[string]any:
		keys := maps.Keys(v)
		slices.Sort(keys)
		if err := e.BeginStruct(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := e.BeginField(k); err != nil {
				return err
			}
			if err := e.Write(v[k]); err != nil {
				return err
			}
		}
		return e.EndStruct()
	default:
		return &TypeError{Value: v}
	}
}

// isNilDatum catches typed nil pointers
// such as a (*Struct)(nil) stored in a Datum
func isNilDatum(d Datum) bool {
	switch d := d.(type) {
	case *List:
		return d == nil
	case *Struct:
		return d == nil
	}
	return reflect.ValueOf(d).Kind() == reflect.Ptr && reflect.ValueOf(d).IsNil()
}
