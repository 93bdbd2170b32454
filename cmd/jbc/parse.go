/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jacobin-lang/jbc/parser"
)

// runParse implements `jbc parse <file>`: it reads file, parses it,
// and writes the resulting AST to w as indented JSON (spec.md §6 "the
// JSON pretty-printer is explicitly out of scope"; this is the
// minimal stdlib `encoding/json` rendition, not a polished tool).
func runParse(file string, w io.Writer) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("jbc: reading %s: %w", file, err)
	}
	cu, err := parser.Parse(file, string(src))
	if err != nil {
		return fmt.Errorf("jbc: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cu)
}
