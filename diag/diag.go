/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package diag defines the compiler's closed set of error kinds
// (spec.md §7) and the span-carrying Error type every layer above the
// class-file serializer reports through.
package diag

import "fmt"

// Kind is the closed set of diagnostic kinds.
type Kind int

const (
	ParseError Kind = iota
	NameResolutionError
	TypeError
	UnsupportedFeatureError
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case NameResolutionError:
		return "NameResolutionError"
	case TypeError:
		return "TypeError"
	case UnsupportedFeatureError:
		return "UnsupportedFeatureError"
	case InvariantViolation:
		return "InvariantViolation"
	default:
		return "UnknownError"
	}
}

// Span is a source location: file, 1-based line, 1-based column.
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Error is the uniform diagnostic shape used across the compiler.
type Error struct {
	Span    Span
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Kind, e.Message)
}

// New builds an Error for the given span, kind and formatted message.
func New(span Span, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Span: span, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// List accumulates diagnostics for a compilation unit. Errors of
// every kind, InvariantViolation included (see codegen.ice), are
// appended and compilation continues with the remaining code; an
// invariant violation does not stop the compilation.
type List struct {
	Errors []*Error
}

// Add appends an error to the list.
func (l *List) Add(e *Error) {
	l.Errors = append(l.Errors, e)
}

// HasErrors reports whether any diagnostic has been recorded.
func (l *List) HasErrors() bool {
	return len(l.Errors) > 0
}
