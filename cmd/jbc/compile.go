/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/classpath"
	"github.com/jacobin-lang/jbc/classpath/rtstub"
	"github.com/jacobin-lang/jbc/codegen"
	"github.com/jacobin-lang/jbc/globals"
	"github.com/jacobin-lang/jbc/parser"
	"github.com/jacobin-lang/jbc/trace"
	"github.com/jacobin-lang/jbc/util"
)

// runCompile implements `jbc compile`: parses every file, compiles
// them as one invocation through codegen.CompileUnits, and writes
// every produced class file under g.OutDir. It returns ok=false
// (without error) when compilation fails for ordinary, reported
// reasons, so the caller can map that to shutdown.COMPILE_ERROR while
// leaving a genuine driver error (bad flags, I/O failure) to
// propagate as err (shutdown.USAGE_ERROR).
func runCompile(files []string, g *globals.Globals) (ok bool, err error) {
	cp := classpath.New(classpath.NewPath())
	if !g.NoRuntime {
		rtstub.Load(cp)
	} else {
		trace.Trace("jbc: --no-rt given, resolving against in-process classes only")
	}

	var units []*ast.CompilationUnit
	for _, f := range files {
		src, readErr := os.ReadFile(f)
		if readErr != nil {
			return false, fmt.Errorf("jbc: reading %s: %w", f, readErr)
		}
		cu, parseErr := parser.Parse(f, string(src))
		if parseErr != nil {
			fmt.Fprintln(os.Stderr, parseErr)
			return false, nil
		}
		units = append(units, cu)
	}

	compiler := codegen.NewCompiler(cp, g.NoRuntime)
	result, errs := compiler.CompileUnits(units)

	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e.Error())
	}

	for name, data := range result.Classes {
		path := util.BinaryNameToClassFilePath(g.OutDir, name)
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return false, fmt.Errorf("jbc: creating output directory for %s: %w", name, mkErr)
		}
		if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil {
			return false, fmt.Errorf("jbc: writing %s: %w", path, writeErr)
		}
		trace.Trace(fmt.Sprintf("jbc: wrote %s", path))
	}

	return len(errs) == 0, nil
}
