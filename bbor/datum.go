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
	"bytes"
	"fmt"
)

// Type is the type of a Datum.
type Type byte

const (
	NullType Type = iota
	BoolType
	UintType // unsigned integer
	IntType  // signed integer; always negative when decoded
	FloatType
	StringType
	BlobType
	ListType
	StructType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case UintType:
		return "uint"
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case StringType:
		return "string"
	case BlobType:
		return "blob"
	case ListType:
		return "list"
	case StructType:
		return "struct"
	default:
		return fmt.Sprintf("Type(%d)", byte(t))
	}
}

// Datum is a decoded value.
//
// A Datum is one of
//   Null, Bool, Int, Uint, Float, Float32,
//   String, Blob, *List, *Struct
type Datum interface {
	Encode(dst *Encoder) error
	Type() Type

	equal(Datum) bool
}

var (
	_ Datum = Null{}
	_ Datum = Bool(false)
	_ Datum = Int(0)
	_ Datum = Uint(0)
	_ Datum = Float(0)
	_ Datum = Float32(0)
	_ Datum = String("")
	_ Datum = Blob(nil)
	_ Datum = &List{}
	_ Datum = &Struct{}
)

// Equal returns whether a and b are
// equivalent. Integers compare equal
// across Int and Uint, and a Float32
// equals a Float that rounds to it.
func Equal(a, b Datum) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.equal(b)
}

// Null is the null datum.
type Null struct{}

func (Null) Type() Type                { return NullType }
func (Null) Encode(dst *Encoder) error { return dst.WriteNull() }

func (Null) equal(x Datum) bool {
	_, ok := x.(Null)
	return ok
}

// Bool is a boolean datum.
type Bool bool

func (b Bool) Type() Type                { return BoolType }
func (b Bool) Encode(dst *Encoder) error { return dst.WriteBool(bool(b)) }

func (b Bool) equal(x Datum) bool {
	b2, ok := x.(Bool)
	return ok && b == b2
}

// Int is a signed integer datum.
type Int int64

func (i Int) Type() Type {
	if i >= 0 {
		return UintType
	}
	return IntType
}

func (i Int) Encode(dst *Encoder) error { return dst.WriteInt(int64(i)) }

func (i Int) equal(x Datum) bool {
	switch x := x.(type) {
	case Int:
		return x == i
	case Uint:
		return i >= 0 && Uint(i) == x
	default:
		return false
	}
}

// Uint is an unsigned integer datum.
type Uint uint64

func (u Uint) Type() Type                { return UintType }
func (u Uint) Encode(dst *Encoder) error { return dst.WriteUint(uint64(u)) }

func (u Uint) equal(x Datum) bool {
	switch x := x.(type) {
	case Uint:
		return u == x
	case Int:
		return x >= 0 && Uint(x) == u
	default:
		return false
	}
}

// Float is a floating-point datum.
// It is written with single precision
// whenever that loses almost nothing.
type Float float64

func (f Float) Type() Type                { return FloatType }
func (f Float) Encode(dst *Encoder) error { return dst.WriteFloat(float64(f)) }

func (f Float) equal(x Datum) bool {
	switch x := x.(type) {
	case Float:
		return f == x
	case Float32:
		return float32(f) == float32(x)
	default:
		return false
	}
}

// Float32 is a floating-point datum that
// was decoded from single precision.
type Float32 float32

func (f Float32) Type() Type                { return FloatType }
func (f Float32) Encode(dst *Encoder) error { return dst.WriteFloat32(float32(f)) }

func (f Float32) equal(x Datum) bool {
	switch x := x.(type) {
	case Float32:
		return f == x
	case Float:
		return float32(x) == float32(f)
	default:
		return false
	}
}

// String is a text datum.
type String string

func (s String) Type() Type                { return StringType }
func (s String) Encode(dst *Encoder) error { return dst.WriteString(string(s)) }

func (s String) equal(x Datum) bool {
	s2, ok := x.(String)
	return ok && s == s2
}

// Blob is a byte string datum.
type Blob []byte

func (b Blob) Type() Type                { return BlobType }
func (b Blob) Encode(dst *Encoder) error { return dst.WriteBlob(b) }

func (b Blob) equal(x Datum) bool {
	b2, ok := x.(Blob)
	return ok && bytes.Equal(b, b2)
}

// List is an ordered list of datums.
type List struct {
	items []Datum
}

// NewList returns a List holding items.
// The slice is retained.
func NewList(items []Datum) *List {
	return &List{items: items}
}

func (l *List) Type() Type { return ListType }

func (l *List) Len() int { return len(l.items) }

// Items appends the list items to dst
// and returns the result.
func (l *List) Items(dst []Datum) []Datum {
	return append(dst, l.items...)
}

// Each calls fn for every item in order
// until fn returns false.
func (l *List) Each(fn func(Datum) bool) {
	for _, d := range l.items {
		if !fn(d) {
			return
		}
	}
}

func (l *List) Encode(dst *Encoder) error {
	if err := dst.BeginList(len(l.items)); err != nil {
		return err
	}
	for _, d := range l.items {
		if err := dst.Write(d); err != nil {
			return err
		}
	}
	return dst.EndList()
}

func (l *List) equal(x Datum) bool {
	l2, ok := x.(*List)
	if !ok || len(l.items) != len(l2.items) {
		return false
	}
	for i := range l.items {
		if !Equal(l.items[i], l2.items[i]) {
			return false
		}
	}
	return true
}

// Field is a labeled value in a Struct.
type Field struct {
	Label string
	Value Datum
}

// Struct is an ordered list of fields.
// Field order is significant and kept
// through encoding.
type Struct struct {
	fields []Field
}

// NewStruct returns a Struct holding fields.
// The slice is retained.
func NewStruct(fields []Field) *Struct {
	return &Struct{fields: fields}
}

func (s *Struct) Type() Type { return StructType }

func (s *Struct) Len() int { return len(s.fields) }

// Fields appends the fields to dst
// and returns the result.
func (s *Struct) Fields(dst []Field) []Field {
	return append(dst, s.fields...)
}

// Each calls fn for every field in order
// until fn returns false.
func (s *Struct) Each(fn func(Field) bool) {
	for _, f := range s.fields {
		if !fn(f) {
			return
		}
	}
}

func (s *Struct) Encode(dst *Encoder) error {
	if err := dst.BeginStruct(len(s.fields)); err != nil {
		return err
	}
	for _, f := range s.fields {
		if err := dst.BeginField(f.Label); err != nil {
			return err
		}
		if err := dst.Write(f.Value); err != nil {
			return err
		}
	}
	return dst.EndStruct()
}

func (s *Struct) equal(x Datum) bool {
	s2, ok := x.(*Struct)
	if !ok || len(s.fields) != len(s2.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i].Label != s2.fields[i].Label ||
			!Equal(s.fields[i].Value, s2.fields[i].Value) {
			return false
		}
	}
	return true
}
