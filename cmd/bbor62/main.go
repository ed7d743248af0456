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

// Command bbor62 encodes JSON documents into
// bbor62 strings and back.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SnellerInc/bbor62"
	"github.com/SnellerInc/bbor62/compare"
	"github.com/SnellerInc/bbor62/lzw"
)

var (
	dashv bool
	dashh bool
	dashc string
	dashx bool
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashh, "h", false, "show usage help")
	flag.StringVar(&dashc, "c", "", "configuration file (YAML or JSON)")
	flag.BoolVar(&dashx, "x", false, "trace the string compressor (with -v)")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if dashv {
		fmt.Fprintf(os.Stderr, f+"\n", args...)
	}
}

func config() *bbor62.Config {
	def := bbor62.DefaultConfig
	cfg := &def
	if dashc != "" {
		buf, err := os.ReadFile(dashc)
		if err != nil {
			exitf("reading config: %s", err)
		}
		opts, err := bbor62.ParseOptions(buf)
		if err != nil {
			exitf("%s: %s", dashc, err)
		}
		cfg, err = opts.Config()
		if err != nil {
			exitf("%s: %s", dashc, err)
		}
	}
	if dashv {
		cfg.Logf = logf
		if dashx {
			lz := lzw.DefaultConfig
			if cfg.LZW != nil {
				lz = *cfg.LZW
			}
			lz.Logf = logf
			cfg.LZW = &lz
		}
	}
	return cfg
}

// readInput reads the named file,
// or stdin for "" and "-"
func readInput(args []string) []byte {
	var r io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			exitf("%s", err)
		}
		defer f.Close()
		r = f
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		exitf("%s", err)
	}
	return buf
}

func encode(cfg *bbor62.Config, args []string) {
	s, err := cfg.EncodeJSON(bytes.NewReader(readInput(args)))
	if err != nil {
		exitf("encode: %s", err)
	}
	fmt.Println(s)
}

func decode(cfg *bbor62.Config, args []string) {
	buf := readInput(args)
	w := bufio.NewWriter(os.Stdout)
	if err := cfg.DecodeJSON(w, strings.TrimSpace(string(buf))); err != nil {
		exitf("decode: %s", err)
	}
	w.WriteByte('\n')
	w.Flush()
}

func compareAll(cfg *bbor62.Config, args []string) {
	results, err := compare.Run(string(readInput(args)), cfg)
	if err != nil {
		exitf("compare: %s", err)
	}
	if err := compare.Write(os.Stdout, results); err != nil {
		exitf("compare: %s", err)
	}
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 || dashh {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "    %s [-c <config>] [-v] encode <file.json?>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        encode a JSON document (default: stdin)\n")
		fmt.Fprintf(os.Stderr, "    %s [-c <config>] [-v] decode <file?>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        decode an encoded string into JSON\n")
		fmt.Fprintf(os.Stderr, "    %s [-c <config>] compare <file.json?>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        compare the encoded length with other encodings\n")
		fmt.Fprintf(os.Stderr, "flag usage:\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg := config()
	switch args[0] {
	case "encode":
		encode(cfg, args[1:])
	case "decode":
		decode(cfg, args[1:])
	case "compare":
		compareAll(cfg, args[1:])
	default:
		exitf("unknown command %q", args[0])
	}
}
