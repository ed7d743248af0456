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

// Package ints provides int-related common functions.
package ints

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Min returns the smaller value of x and y
func Min[T constraints.Integer](x, y T) T {
	if x <= y {
		return x
	}
	return y
}

// Max returns the greater value of x and y
func Max[T constraints.Integer](x, y T) T {
	if x >= y {
		return x
	}
	return y
}

// BitLen returns the number of bits required
// to represent x; BitLen(0) is 0.
func BitLen[T constraints.Unsigned](x T) int {
	return bits.Len64(uint64(x))
}

// Log2Ceil returns ceil(log2(x)) for x >= 1
// and 0 for x == 0.
func Log2Ceil[T constraints.Unsigned](x T) int {
	if x == 0 {
		return 0
	}
	return bits.Len64(uint64(x) - 1)
}

// Pow returns base**exp and whether the
// result fit in T without overflowing.
func Pow[T constraints.Unsigned](base T, exp int) (T, bool) {
	out := T(1)
	for i := 0; i < exp; i++ {
		next := out * base
		if base != 0 && next/base != out {
			return 0, false
		}
		out = next
	}
	return out, true
}
