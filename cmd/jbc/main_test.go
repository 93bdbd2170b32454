/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import "testing"

func TestRootCmdHasParseAndCompileSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	if !names["parse"] || !names["compile"] {
		t.Fatalf("expected parse and compile subcommands, got %v", names)
	}
}

func TestCompileCmdFlagDefaults(t *testing.T) {
	cmd := newCompileCmd()
	out, err := cmd.Flags().GetString("out")
	if err != nil || out != "." {
		t.Errorf("expected --out to default to \".\", got %q (err=%v)", out, err)
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil || verbose {
		t.Errorf("expected --verbose to default to false, got %v (err=%v)", verbose, err)
	}
	noRT, err := cmd.Flags().GetBool("no-rt")
	if err != nil || noRT {
		t.Errorf("expected --no-rt to default to false, got %v (err=%v)", noRT, err)
	}
}

func TestParseCmdRequiresExactlyOneArg(t *testing.T) {
	cmd := newParseCmd()
	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("expected an error with zero args")
	}
	if err := cmd.Args(cmd, []string{"a.java", "b.java"}); err == nil {
		t.Error("expected an error with two args")
	}
	if err := cmd.Args(cmd, []string{"a.java"}); err != nil {
		t.Errorf("expected exactly one arg to be accepted, got %v", err)
	}
}
