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

// Package compare measures how long bbor62
// output is next to common alternatives for
// the same JSON document.
package compare

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/SnellerInc/bbor62"
	"github.com/SnellerInc/bbor62/basex"
	"github.com/SnellerInc/bbor62/bbor"
	"github.com/SnellerInc/bbor62/compr"
)

// Result is the text length one
// encoding produced for a sample.
type Result struct {
	Name string
	Len  int
	// Ratio is Len divided by the
	// length of the sample.
	Ratio float64
}

// Run encodes the JSON document sample with
// every baseline and with cfg, or with
// bbor62.DefaultConfig if cfg is nil.
// Every encoding is decoded again and
// compared with its input.
func Run(sample string, cfg *bbor62.Config) ([]Result, error) {
	if cfg == nil {
		cfg = &bbor62.DefaultConfig
	}
	if !json.Valid([]byte(sample)) {
		return nil, fmt.Errorf("compare: sample is not valid JSON: %w", bbor62.ErrInvalidArgument)
	}
	raw := []byte(sample)
	var out []Result
	add := func(name, text string) {
		out = append(out, Result{
			Name:  name,
			Len:   len(text),
			Ratio: float64(len(text)) / float64(len(sample)),
		})
	}
	add("original", sample)

	b64 := base64.StdEncoding.EncodeToString(raw)
	if err := check("base64", raw, b64, base64.StdEncoding.DecodeString); err != nil {
		return nil, err
	}
	add("base64", b64)

	b62 := basex.EncodeToString(cfg.BaseX, raw)
	if err := check("base62", raw, b62, func(s string) ([]byte, error) {
		return basex.DecodeString(cfg.BaseX, s)
	}); err != nil {
		return nil, err
	}
	add("base62", b62)

	for _, name := range compr.Names {
		packed := compr.Compression(name).Compress(raw, nil)
		dst := make([]byte, len(raw))
		if err := compr.Decompression(name).Decompress(packed, dst); err != nil {
			return nil, fmt.Errorf("compare: %s: %w", name, err)
		}
		if !bytes.Equal(dst, raw) {
			return nil, fmt.Errorf("compare: %s round trip mismatch", name)
		}
		add(name+"+base64", base64.StdEncoding.EncodeToString(packed))
		add(name+"+base62", basex.EncodeToString(cfg.BaseX, packed))
	}

	plain := *cfg
	plain.Bbor = &bbor.Config{}
	if err := run(&plain, "bbor62-plain", sample, add); err != nil {
		return nil, err
	}
	if err := run(cfg, "bbor62", sample, add); err != nil {
		return nil, err
	}
	return out, nil
}

func check(name string, raw []byte, text string, decode func(string) ([]byte, error)) error {
	back, err := decode(text)
	if err != nil {
		return fmt.Errorf("compare: %s: %w", name, err)
	}
	if !bytes.Equal(back, raw) {
		return fmt.Errorf("compare: %s round trip mismatch", name)
	}
	return nil
}

// run encodes sample with cfg and checks
// that it decodes to the same JSON
func run(cfg *bbor62.Config, name, sample string, add func(name, text string)) error {
	text, err := cfg.EncodeJSON(strings.NewReader(sample))
	if err != nil {
		return fmt.Errorf("compare: %s: %w", name, err)
	}
	want, err := bbor.FromJSON(json.NewDecoder(strings.NewReader(sample)))
	if err != nil {
		return err
	}
	got, err := cfg.Decode(text)
	if err != nil {
		return fmt.Errorf("compare: %s: %w", name, err)
	}
	if !bbor.Equal(got, want) {
		return fmt.Errorf("compare: %s round trip mismatch", name)
	}
	add(name, text)
	return nil
}

// Write prints results as a table.
func Write(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "encoding\tlength\tratio\t\n")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t\n", r.Name, r.Len, 100*r.Ratio)
	}
	return tw.Flush()
}
