/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Lambda desugaring (spec.md §4.6): a lambda expression compiles to
// an invokedynamic call site against the platform's standard lambda
// metafactory. The lambda body itself becomes a private synthetic
// method on the enclosing class; captured locals are passed as
// leading arguments both to the synthetic method and at the
// invokedynamic call site. The method is static unless the body uses
// the enclosing instance (`this`, an instance field, or an
// unqualified instance method call); only then is it a private
// instance method with the enclosing `this` also passed at the call
// site, as javac does.
package codegen

import (
	"sort"
	"strings"

	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/bytecode"
	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/cpool"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/resolver"
	"github.com/jacobin-lang/jbc/types"
)

// capturedLocal is one free variable a lambda body reaches out of its
// own parameter list into the enclosing method's locals, recorded
// with the slot it lives in there so the invokedynamic call site
// knows how to load it.
type capturedLocal struct {
	name string
	typ  types.Type
	slot int
}

// lambdaCapture is the result of analyzeLambdaCapture: every
// enclosing-method local the lambda body reads or writes, in
// ascending declaration-slot order, plus whether the body also
// reaches for the enclosing instance (`this`, an instance field, or
// an unqualified call that can only mean an instance method).
type lambdaCapture struct {
	locals    []capturedLocal
	needsThis bool
}

// bindLambdaTarget fills in a bare Lambda's FunctionalType the moment
// its target type is known from assignment/initializer/argument
// context (spec.md §4.6 "FunctionalType is filled in... once the
// target... type is known from context"), by round-tripping target's
// internal name through resolver.ResolveClassName's dot-qualified
// path (spec.md §4.5 rule 1), which backtracks over '/'-turned-'.'
// segments exactly the way a nested class's internal name needs.
func bindLambdaTarget(e ast.Expr, target types.Type) {
	lam, ok := e.(*ast.Lambda)
	if !ok || lam.FunctionalType != nil || !target.IsReference() || target.IsArray() {
		return
	}
	lam.FunctionalType = &ast.TypeRef{Name: dottedInternalName(target.InternalName())}
}

func dottedInternalName(internal string) string {
	s := strings.ReplaceAll(internal, "/", ".")
	return strings.ReplaceAll(s, "$", ".")
}

// compileLambda is the entry point from compileExpr: it resolves the
// target functional interface's single abstract method, analyzes
// capture, emits the synthetic body method, and leaves the
// invokedynamic-produced instance on top of the stack.
func (ms *methodScope) compileLambda(n *ast.Lambda) types.Type {
	span := pos(n.Pos, ms.file)
	ifaceType := ms.lambdaTargetType(n, span)
	samName, samDescriptor := ms.resolveSAM(ifaceType.InternalName(), span)
	samParams, samReturn := resolver.SplitMethodDescriptor(samDescriptor)
	if len(samParams) != len(n.Params) {
		fail(span, diag.TypeError, "lambda declares %d parameter(s) but %s.%s expects %d",
			len(n.Params), ifaceType.InternalName(), samName, len(samParams))
	}

	cap := ms.analyzeLambdaCapture(n)
	synthName := ms.class.nextLambdaName()

	capturedTypes := make([]types.Type, len(cap.locals))
	for i, cv := range cap.locals {
		capturedTypes[i] = cv.typ
	}
	synthParams := append(append([]types.Type{}, capturedTypes...), samParams...)
	synthDescriptor := resolver.Descriptor(synthParams, samReturn)

	ms.emitSyntheticLambdaMethod(synthName, synthDescriptor, cap, n, samParams, samReturn)

	if cap.needsThis {
		ms.b.EmitLoad(ms.thisType, 0)
	}
	for _, cv := range cap.locals {
		ms.b.EmitLoad(cv.typ, cv.slot)
	}

	mfRefIdx := ms.class.file.CP.AddMethodRef(
		"java/lang/invoke/LambdaMetafactory", "metafactory",
		"(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;"+
			"Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodType;"+
			"Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)"+
			"Ljava/lang/invoke/CallSite;")
	mfHandleIdx := ms.class.file.CP.AddMethodHandle(cpool.RefInvokeStatic, mfRefIdx)

	samTypeIdx := ms.class.file.CP.AddMethodType(samDescriptor)

	implKind := cpool.RefInvokeStatic
	if cap.needsThis {
		implKind = cpool.RefInvokeSpecial
	}
	implRefIdx := ms.class.file.CP.AddMethodRef(ms.class.internal, synthName, synthDescriptor)
	implHandleIdx := ms.class.file.CP.AddMethodHandle(implKind, implRefIdx)

	bootstrapIdx := ms.class.addBootstrap(classfile.BootstrapMethodEntry{
		MethodRefIndex: mfHandleIdx,
		// instantiated method type equals the erased SAM type here:
		// the type model carries no generic instantiation to specialize
		// against (spec.md Glossary "Erasure"), so the same MethodType
		// constant serves both bootstrap slots.
		Arguments: []int{samTypeIdx, implHandleIdx, samTypeIdx},
	})

	siteParamTypes := capturedTypes
	if cap.needsThis {
		siteParamTypes = append([]types.Type{ms.thisType}, capturedTypes...)
	}
	siteDescriptor := resolver.Descriptor(siteParamTypes, ifaceType)
	invokeDynIdx := ms.class.file.CP.AddInvokeDynamic(bootstrapIdx, samName, siteDescriptor)

	argCats := make([]int, len(siteParamTypes))
	for i, t := range siteParamTypes {
		argCats[i] = t.Category()
	}
	ms.b.EmitInvokeDynamic(invokeDynIdx, argCats, ifaceType.Category())
	return ifaceType
}

// lambdaTargetType resolves n's FunctionalType, falling back to
// java/util/function/Function when no caller ever bound a target
// (e.g. a lambda compiled purely for its static type in a context
// this package doesn't special-case yet) so compilation still
// produces a legal, if approximate, call site rather than crashing.
func (ms *methodScope) lambdaTargetType(n *ast.Lambda, span diag.Span) types.Type {
	if n.FunctionalType == nil {
		n.FunctionalType = &ast.TypeRef{Name: "java.util.function.Function"}
	}
	return ms.c.resolveType(ms.ctx, n.FunctionalType, ms.file)
}

// resolveSAM returns the name and erased descriptor of ifaceInternal's
// single abstract method: its one non-static, non-constructor member
// (spec.md Glossary "SAM").
func (ms *methodScope) resolveSAM(ifaceInternal string, span diag.Span) (name, descriptor string) {
	info, err := ms.c.Resolver.ClassInfo(ifaceInternal, span)
	if err != nil {
		failErr(err.(*diag.Error))
	}
	for _, m := range info.Methods {
		if m.AccessFlags&classfile.AccStatic != 0 || m.Name == "<init>" || m.Name == "<clinit>" {
			continue
		}
		return m.Name, m.Descriptor
	}
	ice(span, "<lambda>", "functional interface %s declares no abstract method", ifaceInternal)
	return "", ""
}

// emitSyntheticLambdaMethod adds the private method carrying a
// lambda's body to the enclosing class-file model, compiling its
// statements/expression in a fresh methodScope whose locals are the
// captured variables (and `this`, implicitly in slot 0 when needed)
// followed by the lambda's own declared parameters.
func (ms *methodScope) emitSyntheticLambdaMethod(name, descriptor string, cap lambdaCapture, n *ast.Lambda, samParams []types.Type, samReturn types.Type) {
	isStatic := !cap.needsThis
	flags := classfile.AccPrivate | classfile.AccSynthetic
	if isStatic {
		flags |= classfile.AccStatic
	}
	m := &classfile.Method{
		AccessFlags:     flags,
		NameIndex:       ms.class.file.CP.AddUTF8(name),
		DescriptorIndex: ms.class.file.CP.AddUTF8(descriptor),
	}
	params := make([]classfile.MethodParameterEntry, 0, len(cap.locals)+len(n.Params))
	for _, cv := range cap.locals {
		params = append(params, classfile.MethodParameterEntry{
			NameIndex:   ms.class.file.CP.AddUTF8(cv.name),
			AccessFlags: classfile.AccSynthetic,
		})
	}
	for _, pname := range n.Params {
		params = append(params, classfile.MethodParameterEntry{NameIndex: ms.class.file.CP.AddUTF8(pname)})
	}
	m.Attributes = append(m.Attributes, classfile.NewMethodParametersAttribute(ms.class.file.CP, params))

	ms.class.file.Methods = append(ms.class.file.Methods, m)

	b := bytecode.NewBuilder(ms.class.file.CP, isStatic)
	sub := &methodScope{
		c: ms.c, u: ms.u, class: ms.class, ctx: ms.ctx, b: b,
		locals: map[string]localVar{}, isStatic: isStatic, returnType: samReturn, file: ms.file,
	}
	if !isStatic {
		sub.thisType = ms.thisType
	}
	for _, cv := range cap.locals {
		sub.declareLocal(cv.name, cv.typ)
	}
	for i, pname := range n.Params {
		sub.declareLocal(pname, samParams[i])
	}

	switch body := n.Body.(type) {
	case ast.ExprLambdaBody:
		vt := sub.compileExpr(body.X)
		if samReturn.IsVoid() {
			if !vt.IsVoid() {
				sub.popValue(vt)
			}
			sub.b.Emit(opcodes.RETURN)
		} else {
			if kind, ok := sub.c.Resolver.IsAssignable(vt, samReturn); ok {
				sub.coerce(vt, samReturn, kind)
			}
			sub.narrowForStore(samReturn)
			sub.b.Emit(retOpFor(samReturn))
		}
	case ast.BlockLambdaBody:
		for _, st := range body.Stmts {
			sub.compileStmt(st)
		}
		if samReturn.IsVoid() {
			sub.b.Emit(opcodes.RETURN)
		}
	}

	code, maxStack, maxLocals, table, err := b.Finish()
	if err != nil {
		ice(pos(n.Pos, ms.file), name, "%v", err)
	}
	m.Attributes = append(m.Attributes, classfile.NewCodeAttribute(ms.class.file.CP, maxStack, maxLocals, code, table, nil))
}

// analyzeLambdaCapture walks n's body collecting every enclosing
// local it reaches (sorted by slot, for a deterministic synthetic
// signature) and whether it reaches for the enclosing instance.
func (ms *methodScope) analyzeLambdaCapture(n *ast.Lambda) lambdaCapture {
	bound := map[string]bool{}
	for _, p := range n.Params {
		bound[p] = true
	}
	free := map[string]bool{}
	needsThis := false

	walk := &lambdaWalker{ms: ms, free: free, needsThisPtr: &needsThis}
	switch body := n.Body.(type) {
	case ast.ExprLambdaBody:
		walk.expr(body.X, bound)
	case ast.BlockLambdaBody:
		for _, st := range body.Stmts {
			walk.stmt(st, cloneBound(bound))
		}
	}

	names := make([]string, 0, len(free))
	for name := range free {
		names = append(names, name)
	}
	locals := make([]capturedLocal, 0, len(names))
	for _, name := range names {
		if lv, ok := ms.locals[name]; ok {
			locals = append(locals, capturedLocal{name: name, typ: lv.typ, slot: lv.slot})
		}
	}
	sort.Slice(locals, func(i, j int) bool { return locals[i].slot < locals[j].slot })

	return lambdaCapture{locals: locals, needsThis: needsThis && !ms.isStatic}
}

func cloneBound(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound))
	for k, v := range bound {
		out[k] = v
	}
	return out
}

// lambdaWalker carries the enclosing methodScope (to tell a local
// from a field) and the accumulators analyzeLambdaCapture reads back
// once the walk finishes.
type lambdaWalker struct {
	ms           *methodScope
	free         map[string]bool
	needsThisPtr *bool
}

func (w *lambdaWalker) markName(name string, bound map[string]bool) {
	if bound[name] {
		return
	}
	if _, ok := w.ms.locals[name]; ok {
		w.free[name] = true
		return
	}
	// Not a local: either a field reached implicitly through `this`,
	// or a class/static name. Only an instance field forces capture.
	if w.ms.isStatic {
		return
	}
	if fr, err := w.ms.c.Resolver.ResolveField(w.ms.class.internal, name, diag.Span{}); err == nil {
		if fr.AccessFlags&classfile.AccStatic == 0 {
			*w.needsThisPtr = true
		}
	}
}

func (w *lambdaWalker) expr(e ast.Expr, bound map[string]bool) {
	if e == nil {
		return
	}
	switch x := e.(type) {
	case *ast.This:
		*w.needsThisPtr = true
	case *ast.Name:
		w.markName(x.Ident, bound)
	case *ast.FieldAccess:
		w.expr(x.Receiver, bound)
	case *ast.ArrayAccess:
		w.expr(x.Array, bound)
		w.expr(x.Index, bound)
	case *ast.Binary:
		w.expr(x.Left, bound)
		w.expr(x.Right, bound)
	case *ast.LogicalAnd:
		w.expr(x.Left, bound)
		w.expr(x.Right, bound)
	case *ast.LogicalOr:
		w.expr(x.Left, bound)
		w.expr(x.Right, bound)
	case *ast.Unary:
		w.expr(x.X, bound)
	case *ast.Assign:
		w.expr(x.Target, bound)
		w.expr(x.Value, bound)
	case *ast.Cast:
		w.expr(x.X, bound)
	case *ast.InstanceOf:
		w.expr(x.X, bound)
	case *ast.Ternary:
		w.expr(x.Cond, bound)
		w.expr(x.Then, bound)
		w.expr(x.Else, bound)
	case *ast.MethodCall:
		if x.Receiver == nil {
			if !w.ms.isStatic {
				*w.needsThisPtr = true
			}
		} else {
			w.expr(x.Receiver, bound)
		}
		for _, a := range x.Args {
			w.expr(a, bound)
		}
	case *ast.SuperCall:
		*w.needsThisPtr = true
		for _, a := range x.Args {
			w.expr(a, bound)
		}
	case *ast.NewObject:
		for _, a := range x.Args {
			w.expr(a, bound)
		}
	case *ast.ArrayInit:
		for _, el := range x.Elements {
			w.expr(el, bound)
		}
	case *ast.NewArray:
		for _, d := range x.Dims {
			w.expr(d, bound)
		}
		if x.Init != nil {
			w.expr(x.Init, bound)
		}
	case *ast.Lambda:
		nested := cloneBound(bound)
		for _, p := range x.Params {
			nested[p] = true
		}
		switch body := x.Body.(type) {
		case ast.ExprLambdaBody:
			w.expr(body.X, nested)
		case ast.BlockLambdaBody:
			for _, st := range body.Stmts {
				w.stmt(st, cloneBound(nested))
			}
		}
	}
}

func (w *lambdaWalker) stmt(s ast.Stmt, bound map[string]bool) {
	if s == nil {
		return
	}
	switch x := s.(type) {
	case *ast.Block:
		inner := cloneBound(bound)
		for _, st := range x.Stmts {
			w.stmt(st, inner)
		}
	case *ast.ExprStmt:
		w.expr(x.X, bound)
	case *ast.LocalVarDecl:
		w.expr(x.Init, bound)
		bound[x.Name] = true
	case *ast.IfStmt:
		w.expr(x.Cond, bound)
		w.stmt(x.Then, cloneBound(bound))
		w.stmt(x.Else, cloneBound(bound))
	case *ast.WhileStmt:
		w.expr(x.Cond, bound)
		w.stmt(x.Body, cloneBound(bound))
	case *ast.DoWhileStmt:
		w.stmt(x.Body, cloneBound(bound))
		w.expr(x.Cond, bound)
	case *ast.ForStmt:
		inner := cloneBound(bound)
		for _, st := range x.Init {
			w.stmt(st, inner)
		}
		w.expr(x.Cond, inner)
		w.stmt(x.Body, cloneBound(inner))
		for _, st := range x.Post {
			w.stmt(st, inner)
		}
	case *ast.ForEachStmt:
		w.expr(x.Iterable, bound)
		inner := cloneBound(bound)
		inner[x.VarName] = true
		w.stmt(x.Body, inner)
	case *ast.ReturnStmt:
		w.expr(x.Value, bound)
	case *ast.ThrowStmt:
		w.expr(x.X, bound)
	case *ast.TryStmt:
		w.stmt(x.Body, cloneBound(bound))
		for _, c := range x.Catches {
			inner := cloneBound(bound)
			inner[c.VarName] = true
			w.stmt(c.Body, inner)
		}
		if x.Finally != nil {
			w.stmt(x.Finally, cloneBound(bound))
		}
	case *ast.SwitchStmt:
		w.expr(x.Tag, bound)
		for _, c := range x.Cases {
			for _, v := range c.Values {
				w.expr(v, bound)
			}
			inner := cloneBound(bound)
			for _, st := range c.Stmts {
				w.stmt(st, inner)
			}
		}
	case *ast.LabeledStmt:
		w.stmt(x.Stmt, bound)
	}
}
