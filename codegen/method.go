/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package codegen

import (
	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/bytecode"
	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/resolver"
	"github.com/jacobin-lang/jbc/trace"
	"github.com/jacobin-lang/jbc/types"
)

// localVar is one entry of a methodScope's name -> slot/type table.
type localVar struct {
	slot int
	typ  types.Type
}

// loopTarget is one entry of a methodScope's break/continue stack.
// label is "" for an unlabeled loop/switch; labeled break/continue
// walk the stack looking for a matching label, unlabeled ones use the
// innermost entry. isLoop distinguishes an actual loop (while/for/...)
// from a switch statement's break-only frame: an unlabeled `continue`
// must skip past switch frames to the nearest enclosing loop.
type loopTarget struct {
	label         string
	breakLabel    bytecode.Label
	continueLabel bytecode.Label
	isLoop        bool
	finallyDepth  int // len(methodScope.finallies) when this frame was pushed
}

// methodScope is the per-method compilation context: the instruction
// builder, the local-variable table, the enclosing class, and the
// break/continue target stack (spec.md §4.6 "a labeled break/continue
// searches the enclosing statement stack for a matching label").
type methodScope struct {
	c        *Compiler
	u        *Unit
	class    *classScope
	ctx      *resolver.Context
	b        *bytecode.Builder
	locals   map[string]localVar
	loops    []loopTarget
	thisType types.Type // zero value (Void) for a static method
	isStatic bool
	returnType types.Type
	file     string
	finallies []*ast.Block // active enclosing try-finally bodies, innermost last
}

func (s *methodScope) fail(span diag.Span, kind diag.Kind, format string, args ...interface{}) {
	fail(span, kind, format, args...)
}

func (s *methodScope) declareLocal(name string, t types.Type) int {
	slot := s.b.AllocLocal(t)
	s.locals[name] = localVar{slot: slot, typ: t}
	return slot
}

func (s *methodScope) lookupLocal(name string) (localVar, bool) {
	lv, ok := s.locals[name]
	return lv, ok
}

func (s *methodScope) pushLoop(label string) loopTarget {
	return s.pushLoopLabeled(label, true)
}

// pushLoopLabeled pushes a break/continue frame for a real loop
// (isLoop true) or a switch statement (isLoop false, continue-blind).
func (s *methodScope) pushLoopLabeled(label string, isLoop bool) loopTarget {
	lt := loopTarget{
		label:        label,
		breakLabel:   s.b.NewLabel(),
		continueLabel: s.b.NewLabel(),
		isLoop:       isLoop,
		finallyDepth: len(s.finallies),
	}
	s.loops = append(s.loops, lt)
	return s.loops[len(s.loops)-1]
}

func (s *methodScope) popLoop() {
	s.loops = s.loops[:len(s.loops)-1]
}

// pushSwitchBreak pushes a break-only frame for a switch statement:
// unlabeled continue must pass through it (findContinuable skips
// non-loop frames), but unlabeled break still targets it directly.
func (s *methodScope) pushSwitchBreak(breakLbl bytecode.Label) loopTarget {
	lt := loopTarget{breakLabel: breakLbl, isLoop: false, finallyDepth: len(s.finallies)}
	s.loops = append(s.loops, lt)
	return lt
}

// findLoop resolves a break target: an unlabeled break uses the
// innermost frame (loop or switch); a labeled one searches by label.
func (s *methodScope) findLoop(label string, span diag.Span) loopTarget {
	for i := len(s.loops) - 1; i >= 0; i-- {
		if label == "" || s.loops[i].label == label {
			return s.loops[i]
		}
	}
	ice(span, "<break/continue>", "no enclosing loop matches label %q", label)
	return loopTarget{}
}

// findContinuable resolves a continue target: an unlabeled continue
// skips switch frames and binds to the nearest enclosing loop; a
// labeled one must name a loop directly (a label on a switch is not a
// valid continue target, same as Java).
func (s *methodScope) findContinuable(label string, span diag.Span) loopTarget {
	for i := len(s.loops) - 1; i >= 0; i-- {
		lt := s.loops[i]
		if !lt.isLoop {
			continue
		}
		if label == "" || lt.label == label {
			return lt
		}
	}
	ice(span, "<continue>", "no enclosing loop matches label %q", label)
	return loopTarget{}
}

// pushFinally/popFinally track the try-finally bodies active at the
// current point, so a return/break/continue that exits one or more of
// them can inline each Finally block along its exit path (spec.md
// §4.6, no jsr/ret).
func (s *methodScope) pushFinally(body *ast.Block) {
	s.finallies = append(s.finallies, body)
}

func (s *methodScope) popFinally() {
	s.finallies = s.finallies[:len(s.finallies)-1]
}

// runFinallyChain replays every currently active finally body,
// innermost first, for a `return` that unwinds all of them.
func (s *methodScope) runFinallyChain() {
	s.runFinalliesFrom(0)
}

// runFinalliesFrom replays the finally bodies pushed at or after
// depth, innermost first, for a break/continue that only unwinds the
// frames entered after its target loop was pushed.
func (s *methodScope) runFinalliesFrom(depth int) {
	for i := len(s.finallies) - 1; i >= depth; i-- {
		s.compileStmt(s.finallies[i])
	}
}

// compileField emits fd as a field_info, attaching a ConstantValue
// attribute when it is `static final` and initialized with a
// compile-time constant literal (spec.md §4.3).
func (c *Compiler) compileField(u *Unit, scope *classScope, cd *ast.ClassDecl, fd *ast.FieldDecl) {
	ft := c.resolveType(u.Ctx, fd.Type, u.AST.FileName)
	f := &classfile.Field{
		AccessFlags:     fieldAccessFlags(fd.Access),
		NameIndex:       scope.file.CP.AddUTF8(fd.Name),
		DescriptorIndex: scope.file.CP.AddUTF8(ft.Descriptor()),
	}
	if fd.Access.Static && fd.Access.Final && fd.Init != nil {
		if idx, ok := constantValueIndex(scope.file, ft, fd.Init); ok {
			f.Attributes = append(f.Attributes, classfile.NewConstantValueAttribute(scope.file.CP, idx))
		}
	}
	if sig, ok := c.fieldSignatureAttr(u.Ctx, fd, u.AST.FileName); ok {
		f.Attributes = append(f.Attributes, classfile.NewSignatureAttribute(scope.file.CP, sig))
	}
	scope.file.Fields = append(scope.file.Fields, f)
}

// constantValueIndex returns the constant-pool index a ConstantValue
// attribute should point at, for the small set of literal forms the
// class-file format allows there.
func constantValueIndex(f *classfile.File, t types.Type, init ast.Expr) (int, bool) {
	switch t.Descriptor() {
	case "I", "S", "B", "C", "Z":
		if lit, ok := init.(*ast.IntLit); ok {
			return f.CP.AddInteger(lit.Value), true
		}
		if lit, ok := init.(*ast.BoolLit); ok {
			v := int32(0)
			if lit.Value {
				v = 1
			}
			return f.CP.AddInteger(v), true
		}
		if lit, ok := init.(*ast.CharLit); ok {
			return f.CP.AddInteger(int32(lit.Value)), true
		}
	case "J":
		if lit, ok := init.(*ast.LongLit); ok {
			return f.CP.AddLong(lit.Value), true
		}
	case "F":
		if lit, ok := init.(*ast.FloatLit); ok {
			return f.CP.AddFloat(lit.Value), true
		}
	case "D":
		if lit, ok := init.(*ast.DoubleLit); ok {
			return f.CP.AddDouble(lit.Value), true
		}
	case "Ljava/lang/String;":
		if lit, ok := init.(*ast.StringLit); ok {
			return f.CP.AddString(lit.Value), true
		}
	}
	return 0, false
}

// compileMethod compiles one method or constructor body (or, for an
// abstract/interface-without-default declaration, emits a body-less
// method_info).
func (c *Compiler) compileMethod(u *Unit, scope *classScope, cd *ast.ClassDecl, md *ast.MethodDecl) {
	if md.Access.Synchronized {
		u.Errors.Add(diag.New(pos(md.Pos, u.AST.FileName), diag.UnsupportedFeatureError, "synchronized method %s is not supported", md.Name))
		return
	}
	paramTypes, retType := c.methodSignatureTypes(u.Ctx, md)
	descriptor := resolver.Descriptor(paramTypes, retType)

	m := &classfile.Method{
		AccessFlags:     methodAccessFlags(md, cd),
		NameIndex:       scope.file.CP.AddUTF8(md.Name),
		DescriptorIndex: scope.file.CP.AddUTF8(descriptor),
	}
	if len(md.Throws) > 0 {
		indices := make([]int, len(md.Throws))
		for i, tr := range md.Throws {
			indices[i] = scope.file.CP.AddClass(c.resolveTypeInternal(u.Ctx, tr, u.AST.FileName))
		}
		m.Attributes = append(m.Attributes, classfile.NewExceptionsAttribute(scope.file.CP, indices))
	}
	if sig, ok := c.methodSignatureAttr(u.Ctx, md, u.AST.FileName); ok {
		m.Attributes = append(m.Attributes, classfile.NewSignatureAttribute(scope.file.CP, sig))
	}
	scope.file.Methods = append(scope.file.Methods, m)

	if md.Body == nil {
		return
	}

	recoverInto(&u.Errors, func() {
		c.emitMethodBody(u, scope, cd, md, m, paramTypes, retType)
	})
}

func (c *Compiler) methodSignatureTypes(ctx *resolver.Context, md *ast.MethodDecl) ([]types.Type, types.Type) {
	params := make([]types.Type, 0, len(md.Params))
	for _, p := range md.Params {
		pt := c.resolveType(ctx, p.Type, "")
		if p.Varargs {
			pt = types.NewArray(pt, 1)
		}
		params = append(params, pt)
	}
	ret := types.Void
	if md.ReturnType != nil {
		ret = c.resolveType(ctx, md.ReturnType, "")
	}
	return params, ret
}

// emitMethodBody builds the bytecode.Builder, binds `this`/parameters
// to local slots, compiles every statement, and attaches the
// finished Code attribute to m.
func (c *Compiler) emitMethodBody(u *Unit, scope *classScope, cd *ast.ClassDecl, md *ast.MethodDecl, m *classfile.Method, paramTypes []types.Type, retType types.Type) {
	isStatic := md.Access.Static
	b := bytecode.NewBuilder(scope.file.CP, isStatic)

	ms := &methodScope{
		c: c, u: u, class: scope, ctx: u.Ctx, b: b,
		locals: map[string]localVar{}, isStatic: isStatic, returnType: retType, file: u.AST.FileName,
	}
	if !isStatic {
		ms.thisType = types.NewReference(scope.internal)
	}
	for i, p := range md.Params {
		ms.declareLocal(p.Name, paramTypes[i])
	}

	if md.Name == "<init>" && !hasExplicitSuperCall(md.Body) && cd.Kind != ast.ClassKindEnum {
		emitImplicitSuperCall(ms, cd)
	}

	for _, st := range md.Body {
		ms.compileStmt(st)
	}

	if retType.IsVoid() {
		ms.b.Emit(opcodes.RETURN)
	}

	code, maxStack, maxLocals, table, err := b.Finish()
	if err != nil {
		ice(pos(md.Pos, u.AST.FileName), md.Name, "%v", err)
	}
	m.Attributes = append(m.Attributes, classfile.NewCodeAttribute(scope.file.CP, maxStack, maxLocals, code, table, nil))
	if lastParamIsVarargs(md) {
		trace.Trace("codegen: " + scope.internal + "." + md.Name + descriptorSuffix(paramTypes, retType) + " packs trailing arguments into a varargs array")
	}
}

// retOpFor selects the return-family opcode matching t's category and
// kind (spec.md §4.2 "return family selection").
func retOpFor(t types.Type) opcodes.Opcode {
	if t.IsVoid() {
		return opcodes.RETURN
	}
	if t.IsReference() {
		return opcodes.ARETURN
	}
	switch t.Primitive() {
	case types.Long:
		return opcodes.LRETURN
	case types.Float:
		return opcodes.FRETURN
	case types.Double:
		return opcodes.DRETURN
	default:
		return opcodes.IRETURN
	}
}

func descriptorSuffix(params []types.Type, ret types.Type) string {
	return resolver.Descriptor(params, ret)
}

func hasExplicitSuperCall(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	es, ok := body[0].(*ast.ExprStmt)
	if !ok {
		return false
	}
	_, ok = es.X.(*ast.SuperCall)
	return ok
}

func emitImplicitSuperCall(ms *methodScope, cd *ast.ClassDecl) {
	super := "java/lang/Object"
	if cd.SuperClass != nil {
		super = ms.c.resolveType(ms.ctx, cd.SuperClass, ms.file).InternalName()
	}
	ms.b.EmitLoad(ms.thisType, 0)
	idx := ms.class.file.CP.AddMethodRef(super, "<init>", "()V")
	ms.b.EmitInvoke(bytecode.InvokeSpecial, idx, nil, 0)
}

// compileDefaultConstructor synthesizes `Foo() { super(); }`, carrying
// the class's own public/protected/private access, when cd declares no constructor of its own (spec.md §4.6 default
// constructor generation, implied by the "fields/methods" model
// always assuming an <init> exists for instance creation).
func (c *Compiler) compileDefaultConstructor(u *Unit, scope *classScope, cd *ast.ClassDecl) {
	md := &ast.MethodDecl{
		Pos:    cd.Pos,
		Name:   "<init>",
		Access: ast.Modifiers{Public: cd.Access.Public, Protected: cd.Access.Protected, Private: cd.Access.Private},
		Body:   []ast.Stmt{},
	}
	c.compileMethod(u, scope, cd, md)
}

