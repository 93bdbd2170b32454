/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunParseWritesJSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Widget.java")
	if err := os.WriteFile(src, []byte("class Widget {}"), 0o644); err != nil {
		t.Fatalf("writing fixture source: %v", err)
	}

	var buf bytes.Buffer
	if err := runParse(src, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON, got error %v for %s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Widget") {
		t.Errorf("expected the class name Widget to appear in the dump, got %s", buf.String())
	}
}

func TestRunParseMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := runParse("/nonexistent/Nope.java", &buf); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestRunParseSyntaxError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Bad.java")
	if err := os.WriteFile(src, []byte("class {"), 0o644); err != nil {
		t.Fatalf("writing fixture source: %v", err)
	}
	var buf bytes.Buffer
	if err := runParse(src, &buf); err == nil {
		t.Fatal("expected a syntax error")
	}
}
