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

package bbor62

import (
	"encoding/binary"
	"fmt"

	"github.com/dchest/siphash"
	"golang.org/x/crypto/blake2b"
)

// Checksum names a checksum algorithm.
type Checksum string

const (
	// ChecksumNone appends nothing.
	ChecksumNone Checksum = ""
	// ChecksumSipHash appends the low 32 bits
	// of SipHash-2-4 with fixed keys.
	ChecksumSipHash Checksum = "siphash"
	// ChecksumBlake2b appends the first 32 bits
	// of BLAKE2b-256.
	ChecksumBlake2b Checksum = "blake2b"
)

const (
	k0 = 0x62626f7236320000
	k1 = 0x636865636b73756d
)

func (c Checksum) validate() error {
	switch c {
	case ChecksumNone, ChecksumSipHash, ChecksumBlake2b:
		return nil
	}
	return fmt.Errorf("bbor62: unknown checksum %q: %w", string(c), ErrInvalidArgument)
}

func (c Checksum) sum(p []byte) uint32 {
	switch c {
	case ChecksumSipHash:
		return uint32(siphash.Hash(k0, k1, p))
	case ChecksumBlake2b:
		h := blake2b.Sum256(p)
		return binary.BigEndian.Uint32(h[:4])
	default:
		return 0
	}
}
