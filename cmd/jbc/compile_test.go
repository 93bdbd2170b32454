/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jacobin-lang/jbc/globals"
)

const addTwoSource = `
package com.example;

public class Adder {
	public int add(int a, int b) {
		return a + b;
	}
}
`

func TestRunCompileWritesClassFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Adder.java")
	if err := os.WriteFile(src, []byte(addTwoSource), 0o644); err != nil {
		t.Fatalf("writing fixture source: %v", err)
	}
	out := filepath.Join(dir, "out")

	g := globals.InitGlobals("jbc-test")
	g.OutDir = out
	g.NoRuntime = true

	ok, err := runCompile([]string{src}, g)
	if err != nil {
		t.Fatalf("unexpected driver error: %v", err)
	}
	if !ok {
		t.Fatal("expected compilation to succeed")
	}

	classPath := filepath.Join(out, "com", "example", "Adder.class")
	data, err := os.ReadFile(classPath)
	if err != nil {
		t.Fatalf("expected a class file at %s: %v", classPath, err)
	}
	if len(data) < 4 || data[0] != 0xCA || data[1] != 0xFE || data[2] != 0xBA || data[3] != 0xBE {
		t.Fatalf("expected a class file starting with the CAFEBABE magic, got % x", data[:minInt(len(data), 4)])
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestRunCompileReportsSyntaxErrorWithoutDriverError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Bad.java")
	if err := os.WriteFile(src, []byte("class {"), 0o644); err != nil {
		t.Fatalf("writing fixture source: %v", err)
	}

	g := globals.InitGlobals("jbc-test")
	g.OutDir = filepath.Join(dir, "out")
	g.NoRuntime = true

	ok, err := runCompile([]string{src}, g)
	if err != nil {
		t.Fatalf("expected a reported failure, not a driver error: %v", err)
	}
	if ok {
		t.Fatal("expected compilation to fail on a syntax error")
	}
}

func TestRunCompileMissingFileIsDriverError(t *testing.T) {
	g := globals.InitGlobals("jbc-test")
	g.OutDir = t.TempDir()
	g.NoRuntime = true

	_, err := runCompile([]string{"/nonexistent/Missing.java"}, g)
	if err == nil {
		t.Fatal("expected a driver error for a missing input file")
	}
}
