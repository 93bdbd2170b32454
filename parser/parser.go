/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package parser

import (
	"fmt"
	"strconv"

	"github.com/jacobin-lang/jbc/ast"
)

// Error is a parse-time diagnostic. cmd/jbc reports it the same way
// codegen reports a diag.Error, but the parser package stays free of
// a dependency on diag so it can be lifted out as a standalone
// front-end without dragging the core along (spec.md §1: the parser
// is a collaborator, not core).
type Error struct {
	File    string
	Pos     ast.Pos
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Column, e.Message)
}

type parser struct {
	file string
	toks []token
	i    int
}

// Parse parses one source file's text into a CompilationUnit. On a
// syntax error it returns a *Error.
func Parse(file, src string) (cu *ast.CompilationUnit, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*Error); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	l := newLexer(file, src)
	p := &parser{file: file, toks: l.tokenize()}
	cu = p.parseCompilationUnit()
	return cu, nil
}

func (p *parser) cur() token  { return p.toks[p.i] }
func (p *parser) pos() ast.Pos { return p.toks[p.i].pos }

func (p *parser) fail(format string, args ...interface{}) {
	panic(&Error{File: p.file, Pos: p.pos(), Message: fmt.Sprintf(format, args...)})
}

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

func (p *parser) isPunct(s string) bool {
	return p.cur().kind == tokPunct && p.cur().text == s
}

func (p *parser) isKeyword(s string) bool {
	return p.cur().kind == tokKeyword && p.cur().text == s
}

func (p *parser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) acceptKeyword(s string) bool {
	if p.isKeyword(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) {
	if !p.acceptPunct(s) {
		p.fail("expected %q, got %q", s, p.cur().text)
	}
}

func (p *parser) expectKeyword(s string) {
	if !p.acceptKeyword(s) {
		p.fail("expected %q, got %q", s, p.cur().text)
	}
}

func (p *parser) expectIdent() string {
	if p.cur().kind != tokIdent {
		p.fail("expected identifier, got %q", p.cur().text)
	}
	return p.advance().text
}

// closeAngle consumes one level of a generic close-bracket, splitting
// a lexed ">>"/">>>" token in place when only one '>' is wanted here
// (e.g. the inner close of `Map<String, List<Integer>>`).
func (p *parser) closeAngle() {
	t := p.cur()
	if t.kind == tokPunct && (t.text == ">" || t.text == ">>" || t.text == ">>>" || t.text == ">=") {
		if len(t.text) == 1 {
			p.advance()
			return
		}
		p.toks[p.i].text = t.text[1:]
		return
	}
	p.fail("expected '>', got %q", t.text)
}

// ---- compilation unit ----

func (p *parser) parseCompilationUnit() *ast.CompilationUnit {
	cu := &ast.CompilationUnit{FileName: p.file, Pos: p.pos()}
	if p.acceptKeyword("package") {
		cu.Package = p.parseDottedName()
		p.expectPunct(";")
	}
	for p.isKeyword("import") {
		p.advance()
		static := p.acceptKeyword("static")
		name := p.parseDottedNameAllowStar()
		onDemand := false
		if len(name) >= 2 && name[len(name)-2:] == ".*" {
			onDemand = true
			name = name[:len(name)-2]
		}
		cu.Imports = append(cu.Imports, ast.Import{Path: name, OnDemand: onDemand, Static: static})
		p.expectPunct(";")
	}
	for !p.atEOF() {
		if p.acceptPunct(";") {
			continue
		}
		cu.Types = append(cu.Types, p.parseClassDecl())
	}
	return cu
}

func (p *parser) parseDottedName() string {
	name := p.expectIdent()
	for p.acceptPunct(".") {
		name += "." + p.expectIdent()
	}
	return name
}

func (p *parser) parseDottedNameAllowStar() string {
	name := p.expectIdent()
	for p.acceptPunct(".") {
		if p.acceptPunct("*") {
			name += ".*"
			return name
		}
		name += "." + p.expectIdent()
	}
	return name
}

// ---- modifiers ----

func (p *parser) parseModifiers() ast.Modifiers {
	var m ast.Modifiers
	for {
		switch {
		case p.acceptKeyword("public"):
			m.Public = true
		case p.acceptKeyword("private"):
			m.Private = true
		case p.acceptKeyword("protected"):
			m.Protected = true
		case p.acceptKeyword("static"):
			m.Static = true
		case p.acceptKeyword("final"):
			m.Final = true
		case p.acceptKeyword("abstract"):
			m.Abstract = true
		case p.acceptKeyword("synchronized"):
			m.Synchronized = true
		case p.isPunct("@"):
			p.skipAnnotation()
		default:
			return m
		}
	}
}

func (p *parser) skipAnnotation() {
	p.expectPunct("@")
	p.parseDottedName()
	if p.acceptPunct("(") {
		depth := 1
		for depth > 0 {
			if p.acceptPunct("(") {
				depth++
			} else if p.acceptPunct(")") {
				depth--
			} else {
				p.advance()
			}
		}
	}
}

func (p *parser) skipTypeParamsDecl() []string {
	if !p.acceptPunct("<") {
		return nil
	}
	var names []string
	for {
		names = append(names, p.expectIdent())
		if p.acceptKeyword("extends") {
			p.parseTypeRef()
			for p.acceptPunct("&") {
				p.parseTypeRef()
			}
		}
		if p.acceptPunct(",") {
			continue
		}
		break
	}
	p.closeAngle()
	return names
}

// ---- class / interface / enum declarations ----

func (p *parser) parseClassDecl() *ast.ClassDecl {
	cd := &ast.ClassDecl{Pos: p.pos()}
	cd.Access = p.parseModifiers()
	switch {
	case p.acceptKeyword("class"):
		cd.Kind = ast.ClassKindClass
	case p.acceptKeyword("interface"):
		cd.Kind = ast.ClassKindInterface
	case p.acceptKeyword("enum"):
		cd.Kind = ast.ClassKindEnum
	default:
		p.fail("expected class, interface, or enum, got %q", p.cur().text)
	}
	cd.Name = p.expectIdent()
	cd.TypeParams = p.skipTypeParamsDecl()

	if p.acceptKeyword("extends") {
		if cd.Kind == ast.ClassKindInterface {
			cd.Interfaces = append(cd.Interfaces, p.parseTypeRef())
			for p.acceptPunct(",") {
				cd.Interfaces = append(cd.Interfaces, p.parseTypeRef())
			}
		} else {
			cd.SuperClass = p.parseTypeRef()
		}
	}
	if p.acceptKeyword("implements") {
		cd.Interfaces = append(cd.Interfaces, p.parseTypeRef())
		for p.acceptPunct(",") {
			cd.Interfaces = append(cd.Interfaces, p.parseTypeRef())
		}
	}

	p.expectPunct("{")
	if cd.Kind == ast.ClassKindEnum {
		p.parseEnumConstants(cd)
	}
	for !p.isPunct("}") {
		if p.acceptPunct(";") {
			continue
		}
		p.parseClassMember(cd)
	}
	p.expectPunct("}")
	return cd
}

func (p *parser) parseEnumConstants(cd *ast.ClassDecl) {
	for !p.isPunct(";") && !p.isPunct("}") {
		ec := &ast.EnumConstantDecl{Pos: p.pos()}
		for p.isPunct("@") {
			p.skipAnnotation()
		}
		ec.Name = p.expectIdent()
		if p.acceptPunct("(") {
			if !p.isPunct(")") {
				ec.Args = append(ec.Args, p.parseExpr())
				for p.acceptPunct(",") {
					ec.Args = append(ec.Args, p.parseExpr())
				}
			}
			p.expectPunct(")")
		}
		if p.isPunct("{") {
			// enum constant body (constant-specific class body) — not
			// required by the end-to-end scenarios; skip it.
			p.skipBraceBlock()
		}
		cd.EnumConstants = append(cd.EnumConstants, ec)
		if !p.acceptPunct(",") {
			break
		}
	}
	p.acceptPunct(";")
}

func (p *parser) skipBraceBlock() {
	p.expectPunct("{")
	depth := 1
	for depth > 0 {
		if p.isPunct("{") {
			depth++
			p.advance()
		} else if p.isPunct("}") {
			depth--
			p.advance()
		} else if p.atEOF() {
			p.fail("unterminated block")
		} else {
			p.advance()
		}
	}
}

func (p *parser) parseClassMember(cd *ast.ClassDecl) {
	access := p.parseModifiers()

	if p.isKeyword("class") || p.isKeyword("interface") || p.isKeyword("enum") {
		// re-parse with modifiers already consumed: splice them back by
		// parsing the nested decl and overwriting its Access.
		nested := p.parseClassDeclWithAccess(access)
		cd.NestedClasses = append(cd.NestedClasses, nested)
		return
	}

	typeParams := p.skipTypeParamsDecl()

	// constructor: Name(...) with Name == cd.Name and no return type.
	if p.cur().kind == tokIdent && p.cur().text == cd.Name && p.peekIsPunct(1, "(") {
		md := &ast.MethodDecl{Pos: p.pos(), Name: "<init>", Access: access, TypeParams: typeParams}
		p.advance()
		md.Params = p.parseParamList()
		p.skipThrowsClause(md)
		md.Body = p.parseBlockStmts()
		cd.Methods = append(cd.Methods, md)
		return
	}

	typ := p.parseTypeRef()

	name := p.expectIdent()

	if p.isPunct("(") {
		md := &ast.MethodDecl{Pos: typ.Pos, Name: name, Access: access, TypeParams: typeParams}
		if typ.Name != "void" || typ.ArrayDims > 0 {
			md.ReturnType = typ
		}
		md.Params = p.parseParamList()
		for p.acceptPunct("[") {
			p.expectPunct("]")
		}
		p.skipThrowsClause(md)
		if p.acceptPunct(";") {
			md.Body = nil // abstract / interface method without a body
		} else {
			md.IsDefault = access.Public && cd.Kind == ast.ClassKindInterface
			md.Body = p.parseBlockStmts()
		}
		cd.Methods = append(cd.Methods, md)
		return
	}

	// field declaration, possibly a comma-separated list sharing `typ`.
	for {
		fd := &ast.FieldDecl{Pos: typ.Pos, Name: name, Type: typ, Access: access}
		dims := 0
		for p.acceptPunct("[") {
			p.expectPunct("]")
			dims++
		}
		if dims > 0 {
			fd.Type = &ast.TypeRef{Pos: typ.Pos, Name: typ.Name, ArrayDims: typ.ArrayDims + dims}
		}
		if p.acceptPunct("=") {
			fd.Init = p.parseVariableInitializer(fd.Type)
		}
		cd.Fields = append(cd.Fields, fd)
		if p.acceptPunct(",") {
			name = p.expectIdent()
			continue
		}
		break
	}
	p.expectPunct(";")
}

func (p *parser) parseClassDeclWithAccess(access ast.Modifiers) *ast.ClassDecl {
	cd := &ast.ClassDecl{Pos: p.pos(), Access: access}
	switch {
	case p.acceptKeyword("class"):
		cd.Kind = ast.ClassKindClass
	case p.acceptKeyword("interface"):
		cd.Kind = ast.ClassKindInterface
	case p.acceptKeyword("enum"):
		cd.Kind = ast.ClassKindEnum
	}
	cd.Name = p.expectIdent()
	cd.TypeParams = p.skipTypeParamsDecl()
	if p.acceptKeyword("extends") {
		if cd.Kind == ast.ClassKindInterface {
			cd.Interfaces = append(cd.Interfaces, p.parseTypeRef())
			for p.acceptPunct(",") {
				cd.Interfaces = append(cd.Interfaces, p.parseTypeRef())
			}
		} else {
			cd.SuperClass = p.parseTypeRef()
		}
	}
	if p.acceptKeyword("implements") {
		cd.Interfaces = append(cd.Interfaces, p.parseTypeRef())
		for p.acceptPunct(",") {
			cd.Interfaces = append(cd.Interfaces, p.parseTypeRef())
		}
	}
	p.expectPunct("{")
	if cd.Kind == ast.ClassKindEnum {
		p.parseEnumConstants(cd)
	}
	for !p.isPunct("}") {
		if p.acceptPunct(";") {
			continue
		}
		p.parseClassMember(cd)
	}
	p.expectPunct("}")
	return cd
}

func (p *parser) peekIsPunct(ahead int, s string) bool {
	idx := p.i + ahead
	if idx >= len(p.toks) {
		return false
	}
	t := p.toks[idx]
	return t.kind == tokPunct && t.text == s
}

func (p *parser) skipThrowsClause(md *ast.MethodDecl) {
	if p.acceptKeyword("throws") {
		md.Throws = append(md.Throws, p.parseTypeRef())
		for p.acceptPunct(",") {
			md.Throws = append(md.Throws, p.parseTypeRef())
		}
	}
}

func (p *parser) parseParamList() []*ast.Param {
	p.expectPunct("(")
	var params []*ast.Param
	for !p.isPunct(")") {
		for p.isPunct("@") {
			p.skipAnnotation()
		}
		p.acceptKeyword("final")
		pr := &ast.Param{Pos: p.pos()}
		pr.Type = p.parseTypeRef()
		if p.acceptPunct("...") {
			pr.Varargs = true
			pr.Type = &ast.TypeRef{Pos: pr.Type.Pos, Name: pr.Type.Name, ArrayDims: pr.Type.ArrayDims + 1}
		}
		pr.Name = p.expectIdent()
		for p.acceptPunct("[") {
			p.expectPunct("]")
			pr.Type = &ast.TypeRef{Pos: pr.Type.Pos, Name: pr.Type.Name, ArrayDims: pr.Type.ArrayDims + 1}
		}
		params = append(params, pr)
		if !p.acceptPunct(",") {
			break
		}
	}
	p.expectPunct(")")
	return params
}

// parseVariableInitializer parses either an `{ ... }` array initializer
// or a plain expression, used for field/local initializers.
func (p *parser) parseVariableInitializer(t *ast.TypeRef) ast.Expr {
	if p.isPunct("{") {
		return p.parseArrayInit()
	}
	return p.parseExpr()
}

func (p *parser) parseArrayInit() ast.Expr {
	pos := p.pos()
	p.expectPunct("{")
	ai := &ast.ArrayInit{}
	ai.Pos = pos
	for !p.isPunct("}") {
		if p.isPunct("{") {
			ai.Elements = append(ai.Elements, p.parseArrayInit())
		} else {
			ai.Elements = append(ai.Elements, p.parseExpr())
		}
		if !p.acceptPunct(",") {
			break
		}
	}
	p.expectPunct("}")
	return ai
}

// ---- type references ----

var primitiveNames = map[string]bool{
	"boolean": true, "byte": true, "short": true, "char": true, "int": true,
	"long": true, "float": true, "double": true, "void": true,
}

func (p *parser) parseTypeRef() *ast.TypeRef {
	pos := p.pos()
	var name string
	if p.cur().kind == tokKeyword && primitiveNames[p.cur().text] {
		name = p.advance().text
	} else {
		name = p.expectIdent()
		for p.acceptPunct(".") {
			name += "." + p.expectIdent()
		}
	}
	var typeArgs []*ast.TypeRef
	if p.isPunct("<") {
		typeArgs = p.parseTypeArgs()
	}
	dims := 0
	for p.isPunct("[") && p.peekIsPunct(1, "]") {
		p.advance()
		p.advance()
		dims++
	}
	return &ast.TypeRef{Pos: pos, Name: name, ArrayDims: dims, TypeArgs: typeArgs}
}

// parseTypeArgs parses a `<...>` type-argument list and keeps it,
// unlike skipTypeArgs below: a field/method/parameter's declared type
// arguments feed codegen's Signature attribute (generic descriptors
// alongside their erasure), so parseTypeRef's own callers need them
// kept, not discarded. A wildcard with no bound records as
// `java.lang.Object`, the erasure of an unbounded wildcard.
func (p *parser) parseTypeArgs() []*ast.TypeRef {
	p.expectPunct("<")
	if p.acceptPunct(">") {
		return nil
	}
	var args []*ast.TypeRef
	for {
		if p.acceptPunct("?") {
			if p.acceptKeyword("extends") || p.acceptKeyword("super") {
				args = append(args, p.parseTypeRef())
			} else {
				args = append(args, &ast.TypeRef{Name: "java.lang.Object"})
			}
		} else {
			args = append(args, p.parseTypeRef())
		}
		if p.acceptPunct(",") {
			continue
		}
		break
	}
	p.closeAngle()
	return args
}

// skipTypeArgs discards a `<...>` type-argument list where codegen
// never needs it: `new Foo<...>()`'s diamond/explicit witness plays
// no part in the constructed object's erased type or in any
// Signature attribute (local expressions never get one).
func (p *parser) skipTypeArgs() {
	p.expectPunct("<")
	if p.acceptPunct(">") {
		return
	}
	for {
		if p.acceptPunct("?") {
			if p.acceptKeyword("extends") || p.acceptKeyword("super") {
				p.parseTypeRef()
			}
		} else {
			p.parseTypeRef()
		}
		if p.acceptPunct(",") {
			continue
		}
		break
	}
	p.closeAngle()
}

// ---- statements ----

func (p *parser) parseBlockStmts() []ast.Stmt {
	p.expectPunct("{")
	var stmts []ast.Stmt
	for !p.isPunct("}") {
		stmts = append(stmts, p.parseStmt())
	}
	p.expectPunct("}")
	return stmts
}

func (p *parser) parseBlock() *ast.Block {
	pos := p.pos()
	return &ast.Block{Pos: pos, Stmts: p.parseBlockStmts()}
}

func (p *parser) parseStmt() ast.Stmt {
	pos := p.pos()
	switch {
	case p.isPunct("{"):
		return p.parseBlock()
	case p.isPunct(";"):
		p.advance()
		return &ast.EmptyStmt{}
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("while"):
		return p.parseWhile("")
	case p.isKeyword("do"):
		return p.parseDoWhile("")
	case p.isKeyword("for"):
		return p.parseFor("")
	case p.isKeyword("return"):
		p.advance()
		var v ast.Expr
		if !p.isPunct(";") {
			v = p.parseExpr()
		}
		p.expectPunct(";")
		return &ast.ReturnStmt{Value: v}
	case p.isKeyword("break"):
		p.advance()
		label := ""
		if p.cur().kind == tokIdent {
			label = p.advance().text
		}
		p.expectPunct(";")
		return &ast.BreakStmt{Label: label}
	case p.isKeyword("continue"):
		p.advance()
		label := ""
		if p.cur().kind == tokIdent {
			label = p.advance().text
		}
		p.expectPunct(";")
		return &ast.ContinueStmt{Label: label}
	case p.isKeyword("throw"):
		p.advance()
		x := p.parseExpr()
		p.expectPunct(";")
		return &ast.ThrowStmt{X: x}
	case p.isKeyword("try"):
		return p.parseTry()
	case p.isKeyword("switch"):
		return p.parseSwitch()
	case p.cur().kind == tokIdent && p.peekIsPunct(1, ":"):
		label := p.advance().text
		p.advance()
		inner := p.parseLabelableStmt(label)
		return &ast.LabeledStmt{Pos: pos, Label: label, Stmt: inner}
	}
	return p.parseExprOrDeclStmt()
}

func (p *parser) parseLabelableStmt(label string) ast.Stmt {
	switch {
	case p.isKeyword("while"):
		return p.parseWhile(label)
	case p.isKeyword("do"):
		return p.parseDoWhile(label)
	case p.isKeyword("for"):
		return p.parseFor(label)
	default:
		return p.parseStmt()
	}
}

func (p *parser) parseIf() ast.Stmt {
	p.expectKeyword("if")
	p.expectPunct("(")
	cond := p.parseExpr()
	p.expectPunct(")")
	then := p.parseStmt()
	var els ast.Stmt
	if p.acceptKeyword("else") {
		els = p.parseStmt()
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: els}
}

func (p *parser) parseWhile(label string) ast.Stmt {
	p.expectKeyword("while")
	p.expectPunct("(")
	cond := p.parseExpr()
	p.expectPunct(")")
	body := p.parseStmt()
	return &ast.WhileStmt{Cond: cond, Body: body, Label: label}
}

func (p *parser) parseDoWhile(label string) ast.Stmt {
	p.expectKeyword("do")
	body := p.parseStmt()
	p.expectKeyword("while")
	p.expectPunct("(")
	cond := p.parseExpr()
	p.expectPunct(")")
	p.expectPunct(";")
	return &ast.DoWhileStmt{Cond: cond, Body: body, Label: label}
}

// parseFor distinguishes the classic and enhanced forms by scanning
// for the `:` that only the enhanced form contains (a type+identifier
// followed by `:` rather than `;`).
func (p *parser) parseFor(label string) ast.Stmt {
	p.expectKeyword("for")
	p.expectPunct("(")
	if p.isEnhancedForHeader() {
		p.acceptKeyword("final")
		varType := p.parseTypeRef()
		varName := p.expectIdent()
		p.expectPunct(":")
		iterable := p.parseExpr()
		p.expectPunct(")")
		body := p.parseStmt()
		return &ast.ForEachStmt{VarName: varName, VarType: varType, Iterable: iterable, Body: body, Label: label}
	}

	var init []ast.Stmt
	if !p.isPunct(";") {
		init = p.parseForInitOrUpdate(true)
	} else {
		p.advance()
	}
	var cond ast.Expr
	if !p.isPunct(";") {
		cond = p.parseExpr()
	}
	p.expectPunct(";")
	var post []ast.Stmt
	if !p.isPunct(")") {
		for {
			post = append(post, &ast.ExprStmt{X: p.parseExpr()})
			if !p.acceptPunct(",") {
				break
			}
		}
	}
	p.expectPunct(")")
	body := p.parseStmt()
	return &ast.ForStmt{Init: init, Cond: cond, Post: post, Body: body, Label: label}
}

// parseForInitOrUpdate parses the for-loop init clause, ending with
// a terminating ';' consumed by the caller when consumeSemi is set.
func (p *parser) parseForInitOrUpdate(consumeSemi bool) []ast.Stmt {
	if p.looksLikeLocalVarDecl() {
		decls := p.parseLocalVarDeclList()
		if consumeSemi {
			p.expectPunct(";")
		}
		return decls
	}
	var stmts []ast.Stmt
	for {
		stmts = append(stmts, &ast.ExprStmt{X: p.parseExpr()})
		if !p.acceptPunct(",") {
			break
		}
	}
	if consumeSemi {
		p.expectPunct(";")
	}
	return stmts
}

// isEnhancedForHeader looks ahead, skipping a type reference and an
// identifier, to see whether a ':' follows (enhanced-for) rather than
// '=' or ';' (classic for-init).
func (p *parser) isEnhancedForHeader() bool {
	save := p.i
	defer func() { p.i = save }()
	defer func() { recover() }()
	p.acceptKeyword("final")
	p.parseTypeRef()
	if p.cur().kind != tokIdent {
		return false
	}
	p.advance()
	return p.isPunct(":")
}

func (p *parser) looksLikeLocalVarDecl() bool {
	save := p.i
	ok := func() bool {
		defer func() { recover() }()
		p.acceptKeyword("final")
		if p.cur().kind == tokKeyword && primitiveNames[p.cur().text] && p.cur().text != "void" {
			return true
		}
		if p.cur().kind != tokIdent {
			return false
		}
		p.parseTypeRef()
		return p.cur().kind == tokIdent
	}()
	p.i = save
	return ok
}

func (p *parser) parseLocalVarDeclList() []ast.Stmt {
	pos := p.pos()
	p.acceptKeyword("final")
	typ := p.parseTypeRef()
	var decls []ast.Stmt
	for {
		name := p.expectIdent()
		dims := 0
		for p.acceptPunct("[") {
			p.expectPunct("]")
			dims++
		}
		vt := typ
		if dims > 0 {
			vt = &ast.TypeRef{Pos: typ.Pos, Name: typ.Name, ArrayDims: typ.ArrayDims + dims}
		}
		var init ast.Expr
		if p.acceptPunct("=") {
			init = p.parseVariableInitializer(vt)
		}
		decls = append(decls, &ast.LocalVarDecl{Pos: pos, Name: name, Type: vt, Init: init})
		if !p.acceptPunct(",") {
			break
		}
	}
	return decls
}

func (p *parser) parseExprOrDeclStmt() ast.Stmt {
	pos := p.pos()
	if p.looksLikeLocalVarDecl() {
		decls := p.parseLocalVarDeclList()
		p.expectPunct(";")
		if len(decls) == 1 {
			return decls[0]
		}
		return &ast.Block{Pos: pos, Stmts: decls}
	}
	x := p.parseExpr()
	p.expectPunct(";")
	return &ast.ExprStmt{Pos: pos, X: x}
}

func (p *parser) parseTry() ast.Stmt {
	p.expectKeyword("try")
	body := p.parseBlock()
	var catches []ast.CatchClause
	for p.isKeyword("catch") {
		p.advance()
		p.expectPunct("(")
		cpos := p.pos()
		p.acceptKeyword("final")
		excType := p.parseTypeRef()
		for p.acceptPunct("|") {
			p.parseTypeRef() // multi-catch types beyond the first: out of scope, discarded
		}
		name := p.expectIdent()
		p.expectPunct(")")
		cbody := p.parseBlock()
		catches = append(catches, ast.CatchClause{Pos: cpos, ExcType: excType, VarName: name, Body: cbody})
	}
	var finallyBlock *ast.Block
	if p.acceptKeyword("finally") {
		finallyBlock = p.parseBlock()
	}
	return &ast.TryStmt{Body: body, Catches: catches, Finally: finallyBlock}
}

func (p *parser) parseSwitch() ast.Stmt {
	p.expectKeyword("switch")
	p.expectPunct("(")
	tag := p.parseExpr()
	p.expectPunct(")")
	p.expectPunct("{")
	var cases []ast.SwitchCase
	for !p.isPunct("}") {
		sc := ast.SwitchCase{Pos: p.pos()}
		if p.acceptKeyword("case") {
			sc.Values = append(sc.Values, p.parseExpr())
			p.expectPunct(":")
		} else {
			p.expectKeyword("default")
			sc.Default = true
			p.expectPunct(":")
		}
		for !p.isKeyword("case") && !p.isKeyword("default") && !p.isPunct("}") {
			sc.Stmts = append(sc.Stmts, p.parseStmt())
		}
		cases = append(cases, sc)
	}
	p.expectPunct("}")
	return &ast.SwitchStmt{Tag: tag, Cases: cases}
}

// ---- expressions: precedence-climbing ----

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

var compoundAssignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true,
}

func (p *parser) parseAssign() ast.Expr {
	left := p.parseLambdaOrTernary()
	if p.cur().kind == tokPunct && compoundAssignOps[p.cur().text] {
		op := p.advance().text
		right := p.parseAssign()
		if a, ok := left.(*ast.Assign); ok {
			a.Used = true
		}
		return &ast.Assign{left.ExprPos(), left, op, right, true}
	}
	return left
}

// parseLambdaOrTernary disambiguates `(x) -> ...` / `x -> ...` lambdas
// from a parenthesized or bare ternary expression by lookahead.
func (p *parser) parseLambdaOrTernary() ast.Expr {
	if lam, ok := p.tryParseLambda(); ok {
		return lam
	}
	return p.parseTernary()
}

func (p *parser) tryParseLambda() (ast.Expr, bool) {
	save := p.i
	pos := p.pos()
	var params []string
	ok := func() bool {
		defer func() { recover() }()
		if p.cur().kind == tokIdent && p.peekIsPunct(1, "->") {
			params = []string{p.advance().text}
			return true
		}
		if !p.isPunct("(") {
			return false
		}
		p.advance()
		for !p.isPunct(")") {
			p.acceptKeyword("final")
			if p.cur().kind == tokIdent && (p.peekIsPunct(1, ",") || p.peekIsPunct(1, ")")) {
				params = append(params, p.advance().text)
			} else {
				p.parseTypeRef()
				params = append(params, p.expectIdent())
			}
			if !p.acceptPunct(",") {
				break
			}
		}
		if !p.acceptPunct(")") {
			return false
		}
		return p.isPunct("->")
	}()
	if !ok {
		p.i = save
		return nil, false
	}
	p.expectPunct("->")
	var body ast.LambdaBody
	if p.isPunct("{") {
		body = ast.BlockLambdaBody{Stmts: p.parseBlockStmts()}
	} else {
		body = ast.ExprLambdaBody{X: p.parseExpr()}
	}
	return &ast.Lambda{pos, params, body, nil}, true
}

func (p *parser) parseTernary() ast.Expr {
	cond := p.parseLogicalOr()
	if p.acceptPunct("?") {
		then := p.parseExpr()
		p.expectPunct(":")
		els := p.parseLambdaOrTernary()
		return &ast.Ternary{cond.ExprPos(), cond, then, els}
	}
	return cond
}

func (p *parser) parseLogicalOr() ast.Expr {
	left := p.parseLogicalAnd()
	for p.acceptPunct("||") {
		right := p.parseLogicalAnd()
		left = &ast.LogicalOr{left.ExprPos(), left, right}
	}
	return left
}

func (p *parser) parseLogicalAnd() ast.Expr {
	left := p.parseBitOr()
	for p.acceptPunct("&&") {
		right := p.parseBitOr()
		left = &ast.LogicalAnd{left.ExprPos(), left, right}
	}
	return left
}

func (p *parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()
	for p.isPunct("|") {
		p.advance()
		right := p.parseBitXor()
		left = &ast.Binary{left.ExprPos(), "|", left, right}
	}
	return left
}

func (p *parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()
	for p.isPunct("^") {
		p.advance()
		right := p.parseBitAnd()
		left = &ast.Binary{left.ExprPos(), "^", left, right}
	}
	return left
}

func (p *parser) parseBitAnd() ast.Expr {
	left := p.parseEquality()
	for p.isPunct("&") {
		p.advance()
		right := p.parseEquality()
		left = &ast.Binary{left.ExprPos(), "&", left, right}
	}
	return left
}

func (p *parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for p.isPunct("==") || p.isPunct("!=") {
		op := p.advance().text
		right := p.parseRelational()
		left = &ast.Binary{left.ExprPos(), op, left, right}
	}
	return left
}

func (p *parser) parseRelational() ast.Expr {
	left := p.parseShift()
	for {
		switch {
		case p.isPunct("<") || p.isPunct(">") || p.isPunct("<=") || p.isPunct(">="):
			op := p.advance().text
			right := p.parseShift()
			left = &ast.Binary{left.ExprPos(), op, left, right}
		case p.isKeyword("instanceof"):
			p.advance()
			t := p.parseTypeRef()
			left = &ast.InstanceOf{left.ExprPos(), left, t}
		default:
			return left
		}
	}
}

func (p *parser) parseShift() ast.Expr {
	left := p.parseAdditive()
	for p.isPunct("<<") || p.isPunct(">>") || p.isPunct(">>>") {
		op := p.advance().text
		right := p.parseAdditive()
		left = &ast.Binary{left.ExprPos(), op, left, right}
	}
	return left
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.isPunct("+") || p.isPunct("-") {
		op := p.advance().text
		right := p.parseMultiplicative()
		left = &ast.Binary{left.ExprPos(), op, left, right}
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("%") {
		op := p.advance().text
		right := p.parseUnary()
		left = &ast.Binary{left.ExprPos(), op, left, right}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	pos := p.pos()
	switch {
	case p.isPunct("-") || p.isPunct("~") || p.isPunct("!"):
		op := p.advance().text
		x := p.parseUnary()
		return &ast.Unary{pos, op, x, false}
	case p.isPunct("++") || p.isPunct("--"):
		op := p.advance().text
		x := p.parseUnary()
		return &ast.Unary{pos, op, x, false}
	case p.isPunct("+"):
		p.advance()
		return p.parseUnary()
	case p.isPunct("(") && p.looksLikeCast():
		p.advance()
		t := p.parseTypeRef()
		p.expectPunct(")")
		x := p.parseUnary()
		return &ast.Cast{pos, t, x}
	}
	return p.parsePostfix()
}

// looksLikeCast disambiguates `(Type) expr` from a parenthesized
// expression by requiring a primitive/class type immediately followed
// by ')' and then a token that can start a unary expression.
func (p *parser) looksLikeCast() bool {
	save := p.i
	ok := func() bool {
		defer func() { recover() }()
		p.advance() // '('
		if p.cur().kind == tokKeyword && primitiveNames[p.cur().text] && p.cur().text != "void" {
			p.parseTypeRef()
			return p.isPunct(")")
		}
		if p.cur().kind != tokIdent {
			return false
		}
		p.parseTypeRef()
		if !p.isPunct(")") {
			return false
		}
		p.advance()
		switch p.cur().kind {
		case tokIdent, tokIntLit, tokLongLit, tokFloatLit, tokDoubleLit, tokCharLit, tokStringLit:
			return true
		case tokKeyword:
			return p.cur().text == "this" || p.cur().text == "new" || p.cur().text == "true" ||
				p.cur().text == "false" || p.cur().text == "null" || p.cur().text == "super"
		}
		return p.isPunct("(") || p.isPunct("!") || p.isPunct("~")
	}()
	p.i = save
	return ok
}

func (p *parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		pos := x.ExprPos()
		switch {
		case p.isPunct("."):
			p.advance()
			if p.isKeyword("class") {
				p.advance()
				if tr, ok := exprToTypeRef(x); ok {
					x = &ast.ClassLiteral{pos, tr}
					continue
				}
			}
			name := p.expectIdent()
			if p.isPunct("(") {
				args := p.parseArgs()
				x = &ast.MethodCall{pos, x, name, args}
			} else {
				x = &ast.FieldAccess{pos, x, name}
			}
		case p.isPunct("["):
			p.advance()
			idx := p.parseExpr()
			p.expectPunct("]")
			x = &ast.ArrayAccess{pos, x, idx}
		case p.isPunct("++") || p.isPunct("--"):
			op := p.advance().text
			x = &ast.Unary{pos, op, x, true}
		default:
			return x
		}
	}
}

// exprToTypeRef recovers a TypeRef from a Name/FieldAccess chain, used
// for `Foo.class` and `Foo.Bar.class` literals.
func exprToTypeRef(e ast.Expr) (*ast.TypeRef, bool) {
	switch v := e.(type) {
	case *ast.Name:
		return &ast.TypeRef{Pos: v.Pos, Name: v.Ident}, true
	case *ast.FieldAccess:
		if base, ok := exprToTypeRef(v.Receiver); ok {
			return &ast.TypeRef{Pos: base.Pos, Name: base.Name + "." + v.Name}, true
		}
	}
	return nil, false
}

func (p *parser) parseArgs() []ast.Expr {
	p.expectPunct("(")
	var args []ast.Expr
	for !p.isPunct(")") {
		args = append(args, p.parseExpr())
		if !p.acceptPunct(",") {
			break
		}
	}
	p.expectPunct(")")
	return args
}

func (p *parser) parsePrimary() ast.Expr {
	pos := p.pos()
	t := p.cur()
	switch t.kind {
	case tokIntLit:
		p.advance()
		return &ast.IntLit{pos, parseIntLiteral(t.text)}
	case tokLongLit:
		p.advance()
		return &ast.LongLit{pos, parseLongLiteral(t.text)}
	case tokFloatLit:
		p.advance()
		f, _ := parseFloatText(t.text)
		return &ast.FloatLit{pos, float32(f)}
	case tokDoubleLit:
		p.advance()
		f, _ := parseFloatText(t.text)
		return &ast.DoubleLit{pos, f}
	case tokCharLit:
		p.advance()
		return &ast.CharLit{pos, []rune(t.text)[0]}
	case tokStringLit:
		p.advance()
		return &ast.StringLit{pos, t.text}
	}

	switch {
	case p.isKeyword("true"):
		p.advance()
		return &ast.BoolLit{pos, true}
	case p.isKeyword("false"):
		p.advance()
		return &ast.BoolLit{pos, false}
	case p.isKeyword("null"):
		p.advance()
		return &ast.NullLit{pos}
	case p.isKeyword("this"):
		p.advance()
		if p.isPunct("(") {
			args := p.parseArgs()
			return &ast.SuperCall{pos, "<init>", args}
		}
		return &ast.This{pos}
	case p.isKeyword("super"):
		p.advance()
		if p.isPunct("(") {
			args := p.parseArgs()
			return &ast.SuperCall{pos, "<init>", args}
		}
		p.expectPunct(".")
		name := p.expectIdent()
		if p.isPunct("(") {
			args := p.parseArgs()
			return &ast.SuperCall{pos, name, args}
		}
		return &ast.FieldAccess{pos, &ast.This{pos}, name}
	case p.isKeyword("new"):
		return p.parseNew()
	case p.cur().kind == tokKeyword && primitiveNames[p.cur().text]:
		// primitive array creation handled by parseNew; a bare primitive
		// keyword can only appear here as `int.class`-style literal.
		tr := p.parseTypeRef()
		p.expectPunct(".")
		p.expectKeyword("class")
		return &ast.ClassLiteral{pos, tr}
	case p.isPunct("("):
		p.advance()
		x := p.parseExpr()
		p.expectPunct(")")
		return x
	case t.kind == tokIdent:
		p.advance()
		if p.isPunct("(") {
			args := p.parseArgs()
			return &ast.MethodCall{pos, nil, t.text, args}
		}
		return &ast.Name{pos, t.text}
	}
	p.fail("unexpected token %q", t.text)
	return nil
}

func (p *parser) parseNew() ast.Expr {
	pos := p.pos()
	p.expectKeyword("new")
	elemPos := p.pos()
	var name string
	if p.cur().kind == tokKeyword && primitiveNames[p.cur().text] {
		name = p.advance().text
	} else {
		name = p.expectIdent()
		for p.acceptPunct(".") {
			name += "." + p.expectIdent()
		}
	}
	if p.isPunct("<") {
		p.skipTypeArgs()
	}
	elem := &ast.TypeRef{Pos: elemPos, Name: name}

	if p.isPunct("[") {
		var dims []ast.Expr
		extra := 0
		for p.acceptPunct("[") {
			if p.isPunct("]") {
				p.advance()
				extra++
				continue
			}
			dims = append(dims, p.parseExpr())
			p.expectPunct("]")
		}
		var init *ast.ArrayInit
		if p.isPunct("{") {
			init = p.parseArrayInit().(*ast.ArrayInit)
		}
		return &ast.NewArray{pos, elem, dims, extra, init}
	}

	args := p.parseArgs()
	if p.isPunct("{") {
		// anonymous class body — out of scope (spec.md Non-goals); skip.
		p.skipBraceBlock()
	}
	return &ast.NewObject{pos, elem, args}
}

func parseFloatText(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
