/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package codegen

import (
	"fmt"

	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/diag"
)

func pos(p ast.Pos, file string) diag.Span {
	return diag.Span{File: file, Line: p.Line, Column: p.Column}
}

// abort is a sentinel panic value codegen uses to unwind out of a
// method body the moment a diag.Error is raised (spec.md §7:
// "expression compilation errors abort the current method"). The
// panic is recovered once, at the method (or field-initializer)
// boundary, converting it back into an accumulated *diag.Error.
type abort struct{ err *diag.Error }

func fail(span diag.Span, kind diag.Kind, format string, args ...interface{}) {
	panic(abort{err: diag.New(span, kind, format, args...)})
}

// failErr re-raises an already-built diagnostic (e.g. one returned by
// the resolver) as the current method's aborting error.
func failErr(err *diag.Error) {
	panic(abort{err: err})
}

// ice reports an InvariantViolation — a bug in the compiler itself,
// not a user error — naming the method being compiled, per spec.md
// §4.7/§7 (grounded on classloader.go's "class format error with
// caller location" idiom, generalized to any internal invariant).
func ice(span diag.Span, methodName string, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	panic(abort{err: diag.New(span, diag.InvariantViolation, "internal error compiling %s: %s", methodName, msg)})
}

// recoverInto runs fn, appending any *diag.Error raised via abort to
// errs, and re-panicking anything else (a genuine Go bug, not a
// modeled compiler error).
func recoverInto(errs *diag.List, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if a, ok := r.(abort); ok {
				errs.Add(a.err)
				return
			}
			panic(r)
		}
	}()
	fn()
}
