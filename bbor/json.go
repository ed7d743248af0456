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
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

func jsonStruct(d *json.Decoder) (Datum, error) {
	var out []Field
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim('}') {
			break
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string struct field; found %v", tok)
		}
		body, err := d.Token()
		if err != nil {
			return nil, err
		}
		dat, err := fromJSON(body, d)
		if err != nil {
			return nil, err
		}
		out = append(out, Field{
			Label: name,
			Value: dat,
		})
	}
	return NewStruct(out), nil
}

func jsonArray(d *json.Decoder) (Datum, error) {
	var out []Datum
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim(']') {
			break
		}
		dat, err := fromJSON(tok, d)
		if err != nil {
			return nil, err
		}
		out = append(out, dat)
	}
	return NewList(out), nil
}

func itod(i int64) Datum {
	if i >= 0 {
		return Uint(i)
	}
	return Int(i)
}

func fromJSON(tok json.Token, d *json.Decoder) (Datum, error) {
	switch t := tok.(type) {
	case json.Delim:
		if t == json.Delim('{') {
			return jsonStruct(d)
		}
		if t == json.Delim('[') {
			return jsonArray(d)
		}
		return nil, fmt.Errorf("fromJSON: unexpected delim %v", t)
	case float64:
		// normalize integers:
		if t > 0 {
			if u := uint64(t); float64(u) == t {
				return Uint(u), nil
			}
		} else if i := int64(t); float64(i) == t {
			return Int(i), nil
		}
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return itod(i), nil
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return Uint(u), nil
		}
		f, err := t.Float64()
		if err == nil {
			if i := int64(f); float64(i) == f {
				return itod(i), nil
			}
			return Float(f), nil
		}
		return nil, fmt.Errorf("number %q out of range", t.String())
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("fromJSON: unexpected token %v", t)
	}
}

// FromJSON decodes one JSON value from d.
// Object keys keep their order, and integral
// numbers become Int or Uint.
func FromJSON(d *json.Decoder) (Datum, error) {
	d.UseNumber()
	tok, err := d.Token()
	if err != nil {
		return nil, err
	}
	dat, err := fromJSON(tok, d)
	if err == io.EOF {
		// decoding a single datum should
		// succeed without hitting EOF
		err = io.ErrUnexpectedEOF
	}
	return dat, err
}

// ToJSON writes d as JSON. Blobs are written
// as base64 strings. NaN and infinite floats
// cannot be represented and produce an error.
func ToJSON(w io.Writer, d Datum) error {
	bw := bufio.NewWriter(w)
	if err := toJSON(bw, d); err != nil {
		return err
	}
	return bw.Flush()
}

func jsonString(w *bufio.Writer, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline
	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
	return err
}

func jsonFloat(w *bufio.Writer, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("bbor: float %v has no JSON form: %w", f, ErrInvalidArgument)
	}
	var tmp [32]byte
	_, err := w.Write(strconv.AppendFloat(tmp[:0], f, 'g', -1, bits))
	return err
}

func toJSON(w *bufio.Writer, d Datum) error {
	var tmp [24]byte
	var err error
	switch d := d.(type) {
	case nil, Null:
		_, err = w.WriteString("null")
	case Bool:
		_, err = w.WriteString(strconv.FormatBool(bool(d)))
	case Int:
		_, err = w.Write(strconv.AppendInt(tmp[:0], int64(d), 10))
	case Uint:
		_, err = w.Write(strconv.AppendUint(tmp[:0], uint64(d), 10))
	case Float:
		err = jsonFloat(w, float64(d), 64)
	case Float32:
		err = jsonFloat(w, float64(d), 32)
	case String:
		err = jsonString(w, string(d))
	case Blob:
		err = jsonString(w, base64.StdEncoding.EncodeToString(d))
	case *List:
		err = w.WriteByte('[')
		for i := 0; err == nil && i < len(d.items); i++ {
			if i > 0 {
				err = w.WriteByte(',')
			}
			if err == nil {
				err = toJSON(w, d.items[i])
			}
		}
		if err == nil {
			err = w.WriteByte(']')
		}
	case *Struct:
		err = w.WriteByte('{')
		for i := 0; err == nil && i < len(d.fields); i++ {
			if i > 0 {
				err = w.WriteByte(',')
			}
			if err == nil {
				err = jsonString(w, d.fields[i].Label)
			}
			if err == nil {
				err = w.WriteByte(':')
			}
			if err == nil {
				err = toJSON(w, d.fields[i].Value)
			}
		}
		if err == nil {
			err = w.WriteByte('}')
		}
	default:
		err = &TypeError{Value: d}
	}
	return err
}
