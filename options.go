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
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/SnellerInc/bbor62/basex"
	"github.com/SnellerInc/bbor62/bbor"
	"github.com/SnellerInc/bbor62/dict"
	"github.com/SnellerInc/bbor62/lzw"
)

// Options is the serialized form of a Config.
// The zero value describes DefaultConfig.
type Options struct {
	// Alphabet is the output alphabet.
	// It defaults to basex.Base62.
	Alphabet string `json:"alphabet,omitempty"`
	// CharsPerBlock defaults to 4.
	CharsPerBlock int  `json:"charsPerBlock,omitempty"`
	NoSqueeze     bool `json:"noSqueeze,omitempty"`

	// DictSize bounds the string dictionary.
	// It defaults to lzw.DefaultConfig.MaxDictSize.
	DictSize    int  `json:"dictSize,omitempty"`
	StaticDict  bool `json:"staticDict,omitempty"`
	NoDictReset bool `json:"noDictReset,omitempty"`
	NoByteAlign bool `json:"noByteAlign,omitempty"`

	NoKeyMapping        bool `json:"noKeyMapping,omitempty"`
	NoStringCompression bool `json:"noStringCompression,omitempty"`
	// Fields replaces the seeded field names.
	Fields []string `json:"fields,omitempty"`

	Checksum Checksum `json:"checksum,omitempty"`
}

// ParseOptions parses YAML or JSON text into
// Options. Unknown keys are rejected.
func ParseOptions(text []byte) (*Options, error) {
	o := new(Options)
	if err := yaml.UnmarshalStrict(text, o); err != nil {
		return nil, fmt.Errorf("bbor62: parsing options: %s: %w", err, ErrInvalidArgument)
	}
	return o, nil
}

// Marshal returns o as YAML.
func (o *Options) Marshal() ([]byte, error) {
	return yaml.Marshal(o)
}

// Config validates o and builds the
// corresponding Config.
func (o *Options) Config() (*Config, error) {
	c := &Config{Checksum: o.Checksum}
	if err := c.Checksum.validate(); err != nil {
		return nil, err
	}

	alphabet, chars := o.Alphabet, o.CharsPerBlock
	if alphabet == "" {
		alphabet = basex.Base62
	}
	if chars == 0 {
		chars = basex.DefaultConfig.CharsPerBlock()
	}
	bx, err := basex.NewConfig(alphabet, chars, !o.NoSqueeze)
	if err != nil {
		return nil, err
	}
	c.BaseX = bx

	lz := lzw.DefaultConfig
	if o.DictSize != 0 {
		lz.MaxDictSize = o.DictSize
	}
	if seeded := lzw.DefaultSeed.Len(); lz.MaxDictSize < seeded {
		return nil, fmt.Errorf("bbor62: dictionary size %d below the %d seeded entries: %w", lz.MaxDictSize, seeded, ErrInvalidArgument)
	}
	lz.DynamicDict = !o.StaticDict
	lz.DictReset = !o.NoDictReset
	lz.ByteAlign = !o.NoByteAlign
	c.LZW = &lz

	bb := bbor.DefaultConfig
	bb.KeyMapping = !o.NoKeyMapping
	bb.StringCompression = !o.NoStringCompression
	if bb.StringCompression && !lz.ByteAlign {
		return nil, fmt.Errorf("bbor62: string compression needs byte-aligned strings: %w", ErrInvalidArgument)
	}
	if len(o.Fields) > 0 {
		if bb.Fields, err = dict.NewSeed(o.Fields); err != nil {
			return nil, err
		}
	}
	c.Bbor = &bb
	return c, nil
}
