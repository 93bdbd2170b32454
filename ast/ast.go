/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package ast is the input contract the core consumes: a closed
// tagged union of Java 8 node types the lexer/parser (out of scope,
// spec.md §1) is assumed to produce. Shaped per Design Notes' "dynamic
// dispatch of compilation cases over AST variants is best modeled as
// a closed tagged variant with a per-variant handler, not open
// inheritance" — Expr and Stmt are interfaces with an unexported
// marker method, switched on exhaustively in codegen, never extended
// by embedding.
package ast

// Pos is a source location, carried on every node so codegen can
// attach it to a diag.Span when it reports an error.
type Pos struct {
	Line, Column int
}

// CompilationUnit is one source file.
type CompilationUnit struct {
	FileName string
	Pos      Pos
	Package  string // dotted, "" for the default package
	Imports  []Import
	Types    []*ClassDecl
}

// Import is a single-type or on-demand (wildcard) import declaration.
type Import struct {
	Path     string // dotted
	OnDemand bool
	Static   bool
}

// ClassKind distinguishes the three declaration forms this compiler
// accepts (spec.md Non-goals excludes anonymous/inner non-static
// classes, so this set stays closed at three).
type ClassKind int

const (
	ClassKindClass ClassKind = iota
	ClassKindInterface
	ClassKindEnum
)

// Modifiers is the subset of Java modifiers this compiler acts on.
type Modifiers struct {
	Public, Private, Protected bool
	Static, Final, Abstract    bool
	Synchronized               bool // rejected explicitly, see diag.UnsupportedFeatureError
}

// TypeRef is a source-level type reference: a primitive keyword or a
// (possibly qualified) class/interface name, plus an array-dimension
// count. The resolver turns this into a types.Type — by erasure, so
// TypeArgs plays no part in that conversion. It is kept only for
// codegen's Signature-attribute emission, which wants the original
// parameterized type a field/method/parameter was declared with
// alongside its erasure; nil whenever the source used no `<...>`.
type TypeRef struct {
	Pos       Pos
	Name      string // "int", "boolean", ..., or a source class name
	ArrayDims int
	TypeArgs  []*TypeRef
}

// ClassDecl is a top-level or static-nested class, interface, or enum
// declaration.
type ClassDecl struct {
	Pos           Pos
	Name          string // simple name
	Kind          ClassKind
	Access        Modifiers
	SuperClass    *TypeRef // nil => java/lang/Object (java/lang/Enum for enums)
	Interfaces    []*TypeRef
	Fields        []*FieldDecl
	Methods       []*MethodDecl
	EnumConstants []*EnumConstantDecl // non-nil only for Kind == ClassKindEnum
	NestedClasses []*ClassDecl        // static nested classes only

	// TypeParams records the class's declared generic type parameter
	// names, if any, so codegen can emit a Signature attribute
	// alongside the erased descriptor (spec.md Glossary "Erasure").
	TypeParams []string
}

// FieldDecl is a field declaration.
type FieldDecl struct {
	Pos    Pos
	Name   string
	Type   *TypeRef
	Access Modifiers
	Init   Expr // nil if uninitialized
}

// Param is one formal parameter.
type Param struct {
	Pos     Pos
	Name    string
	Type    *TypeRef
	Varargs bool // true only for the last parameter
}

// MethodDecl is a method or constructor declaration. Name is "<init>"
// for constructors; ReturnType is nil for constructors and for a
// `void` return.
type MethodDecl struct {
	Pos          Pos
	Name         string
	Access       Modifiers
	ReturnType   *TypeRef
	Params       []*Param
	Body         []Stmt // nil for abstract and interface-without-default methods
	Throws       []*TypeRef
	TypeParams   []string
	IsDefault    bool // true for an interface method carrying a body (Java 8)
	IsBridge     bool // synthetic bridge method, generated by codegen, never parsed
	Annotations  []string
}

// EnumConstantDecl is one `NAME(args...)` entry of an enum body.
type EnumConstantDecl struct {
	Pos  Pos
	Name string
	Args []Expr
}
