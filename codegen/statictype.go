/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// staticTypeOf infers an expression's compile-time type without
// emitting any instructions, for the handful of call sites that need
// to know a type before deciding how to compile (the StringBuilder
// append overload, the `+` operator's string-vs-numeric dispatch, a
// lambda target type). It mirrors compileExpr's own type bookkeeping,
// with one exception: a Lambda whose FunctionalType is still unbound
// types as Object here, while compileLambda binds it to
// java.util.function.Function.
package codegen

import (
	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/resolver"
	"github.com/jacobin-lang/jbc/types"
)

func (ms *methodScope) staticTypeOf(e ast.Expr) types.Type {
	switch n := e.(type) {
	case *ast.IntLit:
		return types.NewPrimitive(types.Int)
	case *ast.LongLit:
		return types.NewPrimitive(types.Long)
	case *ast.FloatLit:
		return types.NewPrimitive(types.Float)
	case *ast.DoubleLit:
		return types.NewPrimitive(types.Double)
	case *ast.BoolLit:
		return types.NewPrimitive(types.Boolean)
	case *ast.CharLit:
		return types.NewPrimitive(types.Char)
	case *ast.StringLit:
		return types.StringType
	case *ast.NullLit:
		return types.Object
	case *ast.This:
		return ms.thisType
	case *ast.Name:
		return ms.nameType(n.Ident, n.Pos)
	case *ast.FieldAccess:
		return ms.fieldAccessType(n)
	case *ast.ArrayAccess:
		at := ms.staticTypeOf(n.Array)
		if at.IsArray() {
			return at.Elem()
		}
		return types.Object
	case *ast.Binary:
		return ms.binaryResultType(n)
	case *ast.LogicalAnd, *ast.LogicalOr:
		return types.NewPrimitive(types.Boolean)
	case *ast.Unary:
		if n.Op == "!" {
			return types.NewPrimitive(types.Boolean)
		}
		return ms.staticTypeOf(n.X)
	case *ast.Assign:
		return ms.staticTypeOf(n.Target)
	case *ast.Cast:
		return ms.c.resolveType(ms.ctx, n.Type, ms.file)
	case *ast.InstanceOf:
		return types.NewPrimitive(types.Boolean)
	case *ast.Ternary:
		t := ms.staticTypeOf(n.Then)
		if t.IsVoid() {
			return ms.staticTypeOf(n.Else)
		}
		if e := ms.staticTypeOf(n.Else); t.IsPrimitive() && e.IsPrimitive() {
			return types.NewPrimitive(resolver.WidenCommon(t.Primitive(), e.Primitive()))
		}
		return t
	case *ast.MethodCall:
		return ms.methodCallReturnType(n)
	case *ast.SuperCall:
		argTypes := make([]types.Type, len(n.Args))
		for i, a := range n.Args {
			argTypes[i] = ms.staticTypeOf(a)
		}
		res, err := ms.c.Resolver.ResolveMethod(ms.class.superInternal, n.Name, argTypes, pos(n.Pos, ms.file))
		if err != nil {
			return types.Void
		}
		return res.ReturnType
	case *ast.NewObject:
		return ms.c.resolveType(ms.ctx, n.Type, ms.file)
	case *ast.ArrayInit:
		if len(n.Elements) == 0 {
			return types.NewArray(types.Object, 1)
		}
		return types.NewArray(ms.staticTypeOf(n.Elements[0]), 1)
	case *ast.NewArray:
		elem := ms.c.resolveType(ms.ctx, n.ElemType, ms.file)
		dims := len(n.Dims) + n.ExtraDims
		if dims < 1 {
			dims = 1
		}
		return types.NewArray(elem, dims)
	case *ast.Lambda:
		if n.FunctionalType != nil {
			return ms.c.resolveType(ms.ctx, n.FunctionalType, ms.file)
		}
		return types.Object
	case *ast.ClassLiteral:
		return types.NewReference("java/lang/Class")
	default:
		return types.Object
	}
}

func (ms *methodScope) nameType(ident string, p ast.Pos) types.Type {
	if lv, ok := ms.lookupLocal(ident); ok {
		return lv.typ
	}
	if !ms.isStatic || true {
		if owner := ms.currentClassInternal(); owner != "" {
			if fr, err := ms.c.Resolver.ResolveField(owner, ident, pos(p, ms.file)); err == nil {
				return fr.Type
			}
		}
	}
	return types.Object
}

func (ms *methodScope) currentClassInternal() string {
	return ms.class.internal
}

func (ms *methodScope) fieldAccessType(fa *ast.FieldAccess) types.Type {
	recvType := ms.staticTypeOf(fa.Receiver)
	owner := recvType.InternalName()
	if owner == "" {
		if name, ok := fa.Receiver.(*ast.Name); ok {
			if internal, err := ms.c.Resolver.ResolveClassName(ms.ctx, name.Ident, pos(fa.Pos, ms.file)); err == nil {
				owner = internal
			}
		}
	}
	if owner == "" {
		return types.Object
	}
	if fr, err := ms.c.Resolver.ResolveField(owner, fa.Name, pos(fa.Pos, ms.file)); err == nil {
		return fr.Type
	}
	return types.Object
}

func (ms *methodScope) binaryResultType(b *ast.Binary) types.Type {
	switch b.Op {
	case "==", "!=", "<", "<=", ">", ">=":
		return types.NewPrimitive(types.Boolean)
	case "+":
		if ms.isStringConcat(b) {
			return types.StringType
		}
	}
	if isShiftOp(b.Op) {
		return types.NewPrimitive(unaryPromote(ms.arithPrimitiveOf(b.Left)))
	}
	return types.NewPrimitive(resolver.WidenCommon(ms.arithPrimitiveOf(b.Left), ms.arithPrimitiveOf(b.Right)))
}

func (ms *methodScope) methodCallReturnType(mc *ast.MethodCall) types.Type {
	owner, argTypes, ok := ms.methodCallOwnerAndArgs(mc)
	if !ok {
		return types.Object
	}
	res, err := ms.c.Resolver.ResolveMethod(owner, mc.Name, argTypes, pos(mc.Pos, ms.file))
	if err != nil {
		return types.Object
	}
	return res.ReturnType
}

// methodCallOwnerAndArgs computes the static owner class and argument
// types for a call site, without compiling it, for use by type
// inference only.
func (ms *methodScope) methodCallOwnerAndArgs(mc *ast.MethodCall) (string, []types.Type, bool) {
	argTypes := make([]types.Type, len(mc.Args))
	for i, a := range mc.Args {
		argTypes[i] = ms.staticTypeOf(a)
	}
	if mc.Receiver == nil {
		return ms.currentClassInternal(), argTypes, ms.currentClassInternal() != ""
	}
	if name, ok := mc.Receiver.(*ast.Name); ok {
		if _, isLocal := ms.lookupLocal(name.Ident); !isLocal {
			if internal, err := ms.c.Resolver.ResolveClassName(ms.ctx, name.Ident, pos(mc.Pos, ms.file)); err == nil {
				return internal, argTypes, true
			}
		}
	}
	rt := ms.staticTypeOf(mc.Receiver)
	if rt.IsReference() && !rt.IsArray() {
		return rt.InternalName(), argTypes, true
	}
	return "", argTypes, false
}
