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

// TeeWriter forwards every write to W
// and records a copy in Side.
type TeeWriter struct {
	W    Writer
	Side Buffer
}

func (t *TeeWriter) WriteBits(v uint32, n int) error {
	if err := t.W.WriteBits(v, n); err != nil {
		return err
	}
	return t.Side.WriteBits(v, n)
}

// Flush flushes W only; Side is left
// untouched so that it can still be
// inspected.
func (t *TeeWriter) Flush() error {
	return t.W.Flush()
}

// TeeReader records every group of
// bits read from R in Side.
type TeeReader struct {
	R    Reader
	Side Buffer
}

func (t *TeeReader) HasNext(n int) bool { return t.R.HasNext(n) }

func (t *TeeReader) ReadBits(n int) (uint32, error) {
	v, err := t.R.ReadBits(n)
	if err != nil {
		return 0, err
	}
	return v, t.Side.WriteBits(v, n)
}
