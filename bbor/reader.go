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
	"fmt"
	"io"
	"math"

	"github.com/SnellerInc/bbor62/bitio"
	"github.com/SnellerInc/bbor62/dict"
)

// Token is the kind of an Event.
type Token byte

const (
	StartStruct Token = iota
	EndStruct
	StartList
	EndList
	FieldName
	ValueString
	ValueInt
	ValueFloat
	ValueTrue
	ValueFalse
	ValueNull
	ValueBytes
)

func (t Token) String() string {
	switch t {
	case StartStruct:
		return "StartStruct"
	case EndStruct:
		return "EndStruct"
	case StartList:
		return "StartList"
	case EndList:
		return "EndList"
	case FieldName:
		return "FieldName"
	case ValueString:
		return "ValueString"
	case ValueInt:
		return "ValueInt"
	case ValueFloat:
		return "ValueFloat"
	case ValueTrue:
		return "ValueTrue"
	case ValueFalse:
		return "ValueFalse"
	case ValueNull:
		return "ValueNull"
	case ValueBytes:
		return "ValueBytes"
	default:
		return fmt.Sprintf("Token(%d)", byte(t))
	}
}

// Primitive is the wire representation
// a scalar Event was decoded from.
type Primitive byte

const (
	NoPrimitive Primitive = iota
	PositiveInt
	NegativeInt
	ByteString
	TextString
	PositiveBignum
	NegativeBignum
	Boolean
	PrimitiveNull
	Undefined
	Simple
	Float32Bits
	Float64Bits
)

func (p Primitive) String() string {
	switch p {
	case NoPrimitive:
		return "none"
	case PositiveInt:
		return "positive int"
	case NegativeInt:
		return "negative int"
	case ByteString:
		return "byte string"
	case TextString:
		return "text string"
	case PositiveBignum:
		return "positive bignum"
	case NegativeBignum:
		return "negative bignum"
	case Boolean:
		return "boolean"
	case PrimitiveNull:
		return "null"
	case Undefined:
		return "undefined"
	case Simple:
		return "simple"
	case Float32Bits:
		return "float32"
	case Float64Bits:
		return "float64"
	default:
		return fmt.Sprintf("Primitive(%d)", byte(p))
	}
}

// Event is one step of a Decoder.
type Event struct {
	Token Token
	// Primitive is set for scalar values.
	Primitive Primitive
	// Value is set for scalar values.
	Value Datum
	// Label is the field name for FieldName
	// events and for values inside a struct.
	Label string
}

// Decoder reads values written by an Encoder
// as a stream of events.
type Decoder struct {
	cfg  Config
	src  bitio.Reader
	comp Compressor

	fields *dict.Dict[int, string]
	stack  []rframe
	err    error
}

type rframe struct {
	kind  Token // StartList or StartStruct
	size  int64 // items; twice the fields for structs
	pos   int64
	label string // current field name
}

// NewDecoder returns a Decoder reading from src.
// cfg and comp must match what the Encoder used.
// If cfg is nil, DefaultConfig is used.
func NewDecoder(cfg *Config, src bitio.Reader, comp Compressor) *Decoder {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	d := &Decoder{cfg: *cfg, src: src, comp: comp}
	d.fields = d.cfg.fieldSeed().Reverse(true, dict.Unbounded)
	return d
}

// Depth returns the number of open containers.
func (d *Decoder) Depth() int { return len(d.stack) }

// Next returns the next event.
// At the end of a top-level value, Next
// returns io.EOF if the source has no
// more whole bytes.
// Errors are sticky.
func (d *Decoder) Next() (Event, error) {
	if d.err != nil {
		return Event{}, d.err
	}
	ev, err := d.next()
	if err != nil {
		d.err = err
		return Event{}, err
	}
	return ev, nil
}

func (d *Decoder) next() (Event, error) {
	// index of the enclosing frame; item
	// may grow the stack
	parent := len(d.stack) - 1
	if parent >= 0 {
		top := &d.stack[parent]
		top.pos++
		if top.pos == top.size {
			kind := top.kind
			d.stack = d.stack[:parent]
			if kind == StartList {
				return Event{Token: EndList}, nil
			}
			return Event{Token: EndStruct}, nil
		}
	} else if !d.src.HasNext(8) {
		return Event{}, io.EOF
	}
	inStruct := parent >= 0 && d.stack[parent].kind == StartStruct
	label := inStruct && d.stack[parent].pos%2 == 0
	ev, err := d.item()
	if err != nil {
		return Event{}, err
	}
	if !label {
		if inStruct {
			ev.Label = d.stack[parent].label
		}
		return ev, nil
	}
	name, err := d.label(ev)
	if err != nil {
		return Event{}, err
	}
	d.stack[parent].label = name
	return Event{Token: FieldName, Label: name}, nil
}

// label resolves a field name event
func (d *Decoder) label(ev Event) (string, error) {
	switch v := ev.Value.(type) {
	case String:
		if d.cfg.KeyMapping {
			d.fields.Add(d.fields.Len(), string(v))
		}
		return string(v), nil
	case Uint:
		if !d.cfg.KeyMapping {
			break
		}
		if v <= math.MaxInt32 {
			if name, ok := d.fields.Get(int(v)); ok {
				return name, nil
			}
		}
		return "", fmt.Errorf("bbor: unknown field index %d with %d fields: %w", uint64(v), d.fields.Len(), ErrInvalidArgument)
	}
	return "", fmt.Errorf("bbor: field name of type %s: %w", ev.Token, ErrInvalidArgument)
}

func (d *Decoder) byte() (byte, error) {
	b, err := d.src.ReadBits(8)
	return byte(b), err
}

// length reads the value that follows
// an initial byte with the given
// additional information
func (d *Decoder) length(info byte) (uint64, error) {
	switch {
	case info < 24:
		return uint64(info), nil
	case info == 24:
		v, err := d.src.ReadBits(8)
		return uint64(v), err
	case info == 25:
		v, err := d.src.ReadBits(16)
		return uint64(v), err
	case info == 26:
		v, err := d.src.ReadBits(32)
		return uint64(v), err
	case info == 27:
		return bitio.ReadUint64(d.src)
	case info == 31:
		return 0, fmt.Errorf("bbor: indefinite length: %w", ErrUnsupported)
	default:
		return 0, fmt.Errorf("bbor: reserved additional information %d: %w", info, ErrInvalidArgument)
	}
}

// item reads one item and pushes
// a frame for containers
func (d *Decoder) item() (Event, error) {
	b, err := d.byte()
	if err != nil {
		return Event{}, err
	}
	major, info := b>>5, b&0x1f
	if major == majorSimple {
		return d.simple(info)
	}
	n, err := d.length(info)
	if err != nil {
		return Event{}, err
	}
	switch major {
	case majorUnsigned:
		return Event{Token: ValueInt, Primitive: PositiveInt, Value: Uint(n)}, nil
	case majorNegative:
		if n > math.MaxInt64 {
			return Event{}, fmt.Errorf("bbor: negative integer -1-%d: %w", n, ErrUnsupported)
		}
		return Event{Token: ValueInt, Primitive: NegativeInt, Value: Int(-1 - int64(n))}, nil
	case majorBytes:
		p, err := d.raw(n)
		if err != nil {
			return Event{}, err
		}
		return Event{Token: ValueBytes, Primitive: ByteString, Value: Blob(p)}, nil
	case majorText:
		s, err := d.text(n)
		if err != nil {
			return Event{}, err
		}
		return Event{Token: ValueString, Primitive: TextString, Value: String(s)}, nil
	case majorList:
		if n > math.MaxInt64 {
			return Event{}, fmt.Errorf("bbor: list of %d items: %w", n, ErrUnsupported)
		}
		d.stack = append(d.stack, rframe{kind: StartList, size: int64(n), pos: -1})
		return Event{Token: StartList}, nil
	case majorMap:
		if n > math.MaxInt64/2 {
			return Event{}, fmt.Errorf("bbor: struct of %d fields: %w", n, ErrUnsupported)
		}
		d.stack = append(d.stack, rframe{kind: StartStruct, size: 2 * int64(n), pos: -1})
		return Event{Token: StartStruct}, nil
	default: // majorTag
		return d.bignum(n)
	}
}

func (d *Decoder) simple(info byte) (Event, error) {
	switch info {
	case simpleFalse & 0x1f:
		return Event{Token: ValueFalse, Primitive: Boolean, Value: Bool(false)}, nil
	case simpleTrue & 0x1f:
		return Event{Token: ValueTrue, Primitive: Boolean, Value: Bool(true)}, nil
	case simpleNull & 0x1f:
		return Event{Token: ValueNull, Primitive: PrimitiveNull, Value: Null{}}, nil
	case simpleUndefined & 0x1f:
		return Event{Token: ValueNull, Primitive: Undefined, Value: Null{}}, nil
	case 24:
		b, err := d.byte()
		if err != nil {
			return Event{}, err
		}
		return Event{Token: ValueInt, Primitive: Simple, Value: Uint(b)}, nil
	case 25:
		return Event{}, fmt.Errorf("bbor: half-precision float: %w", ErrUnsupported)
	case simpleFloat32 & 0x1f:
		v, err := d.src.ReadBits(32)
		if err != nil {
			return Event{}, err
		}
		return Event{Token: ValueFloat, Primitive: Float32Bits, Value: Float32(math.Float32frombits(v))}, nil
	case simpleFloat64 & 0x1f:
		v, err := bitio.ReadUint64(d.src)
		if err != nil {
			return Event{}, err
		}
		return Event{Token: ValueFloat, Primitive: Float64Bits, Value: Float(math.Float64frombits(v))}, nil
	case 31:
		return Event{}, fmt.Errorf("bbor: break marker: %w", ErrUnsupported)
	default:
		return Event{}, fmt.Errorf("bbor: unassigned simple value %d: %w", info, ErrInvalidArgument)
	}
}

// bignum reads the byte string
// that follows a bignum tag
func (d *Decoder) bignum(tag uint64) (Event, error) {
	if tag != tagPositiveBignum && tag != tagNegativeBignum {
		return Event{}, fmt.Errorf("bbor: unknown tag %d: %w", tag, ErrInvalidArgument)
	}
	b, err := d.byte()
	if err != nil {
		return Event{}, err
	}
	if b>>5 != majorBytes {
		return Event{}, fmt.Errorf("bbor: bignum tag followed by major type %d: %w", b>>5, ErrInvalidArgument)
	}
	n, err := d.length(b & 0x1f)
	if err != nil {
		return Event{}, err
	}
	if n > 8 {
		return Event{}, fmt.Errorf("bbor: bignum of %d bytes: %w", n, ErrUnsupported)
	}
	var mag uint64
	for i := uint64(0); i < n; i++ {
		c, err := d.byte()
		if err != nil {
			return Event{}, err
		}
		mag = mag<<8 | uint64(c)
	}
	if tag == tagPositiveBignum {
		return Event{Token: ValueInt, Primitive: PositiveBignum, Value: Uint(mag)}, nil
	}
	if mag > math.MaxInt64 {
		return Event{}, fmt.Errorf("bbor: negative bignum -1-%d: %w", mag, ErrUnsupported)
	}
	return Event{Token: ValueInt, Primitive: NegativeBignum, Value: Int(-1 - int64(mag))}, nil
}

// raw reads n bytes without trusting
// n for an up-front allocation
func (d *Decoder) raw(n uint64) ([]byte, error) {
	var out []byte
	if n < 1<<16 {
		out = make([]byte, 0, n)
	}
	for i := uint64(0); i < n; i++ {
		b, err := d.byte()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (d *Decoder) text(n uint64) (string, error) {
	if n == 0 || d.comp == nil || !d.cfg.StringCompression {
		p, err := d.raw(n)
		return string(p), err
	}
	if n > math.MaxInt64/8 {
		return "", fmt.Errorf("bbor: compressed string of %d bytes: %w", n, ErrUnsupported)
	}
	lim := bitio.Limit(d.src, int64(n))
	s, err := d.comp.Decompress(lim)
	if err != nil {
		return "", err
	}
	if r := lim.Remaining(); r != 0 {
		return "", fmt.Errorf("bbor: %d bits left in a compressed string: %w", r, ErrInvalidState)
	}
	return s, nil
}

// ReadDatum reads one complete value.
// It returns io.EOF when there are no
// more values to read.
func (d *Decoder) ReadDatum() (Datum, error) {
	ev, err := d.Next()
	if err != nil {
		return nil, err
	}
	return d.datum(ev)
}

func (d *Decoder) datum(ev Event) (Datum, error) {
	switch ev.Token {
	case StartList:
		var items []Datum
		for {
			ev, err := d.Next()
			if err != nil {
				return nil, err
			}
			if ev.Token == EndList {
				return NewList(items), nil
			}
			item, err := d.datum(ev)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	case StartStruct:
		var fields []Field
		for {
			ev, err := d.Next()
			if err != nil {
				return nil, err
			}
			if ev.Token == EndStruct {
				return NewStruct(fields), nil
			}
			if ev.Token != FieldName {
				return nil, fmt.Errorf("bbor: unexpected %s in a struct: %w", ev.Token, ErrInvalidState)
			}
			val, err := d.ReadDatum()
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Label: ev.Label, Value: val})
		}
	case EndList, EndStruct, FieldName:
		return nil, fmt.Errorf("bbor: unexpected %s: %w", ev.Token, ErrInvalidState)
	default:
		return ev.Value, nil
	}
}
