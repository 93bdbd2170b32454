/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Expression compilation (spec.md §4). compileExpr walks one
// ast.Expr, emits the bytecode that leaves its value on top of the
// operand stack, and returns the value's static type so the caller
// (an enclosing expression, an assignment, a return) knows what
// conversion it's looking at. staticTypeOf (statictype.go) mirrors
// the type side of this file for the handful of call sites that must
// decide how to compile something before compiling it.
package codegen

import (
	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/bytecode"
	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/resolver"
	"github.com/jacobin-lang/jbc/types"
)

// fieldIsStatic reports whether a resolved field is static, from its
// raw classfile access flags (resolver.FieldResolution carries only
// the flags, not a convenience predicate).
func fieldIsStatic(fr *resolver.FieldResolution) bool {
	return fr.AccessFlags&classfile.AccStatic != 0
}

func (ms *methodScope) compileExpr(e ast.Expr) types.Type {
	switch n := e.(type) {
	case *ast.IntLit:
		ms.b.EmitIntConst(n.Value)
		return types.NewPrimitive(types.Int)
	case *ast.LongLit:
		ms.b.EmitLongConst(n.Value)
		return types.NewPrimitive(types.Long)
	case *ast.FloatLit:
		ms.b.EmitFloatConst(n.Value)
		return types.NewPrimitive(types.Float)
	case *ast.DoubleLit:
		ms.b.EmitDoubleConst(n.Value)
		return types.NewPrimitive(types.Double)
	case *ast.BoolLit:
		if n.Value {
			ms.b.Emit(opcodes.ICONST_1)
		} else {
			ms.b.Emit(opcodes.ICONST_0)
		}
		return types.NewPrimitive(types.Boolean)
	case *ast.CharLit:
		ms.b.EmitIntConst(int32(n.Value))
		return types.NewPrimitive(types.Char)
	case *ast.StringLit:
		ms.b.EmitStringConst(n.Value)
		return types.StringType
	case *ast.NullLit:
		ms.b.Emit(opcodes.ACONST_NULL)
		return types.Object
	case *ast.This:
		ms.b.EmitLoad(ms.thisType, 0)
		return ms.thisType

	case *ast.Name:
		return ms.compileName(n)
	case *ast.FieldAccess:
		return ms.compileFieldAccess(n)
	case *ast.ArrayAccess:
		return ms.compileArrayAccessExpr(n)

	case *ast.Binary:
		return ms.compileBinary(n)
	case *ast.LogicalAnd, *ast.LogicalOr:
		return ms.materializeBoolean(n)
	case *ast.Unary:
		return ms.compileUnary(n)
	case *ast.Assign:
		return ms.compileAssign(n)
	case *ast.Cast:
		return ms.compileCast(n)
	case *ast.InstanceOf:
		return ms.compileInstanceOf(n)
	case *ast.Ternary:
		return ms.compileTernary(n)

	case *ast.MethodCall:
		return ms.compileMethodCall(n)
	case *ast.SuperCall:
		return ms.compileSuperCall(n)
	case *ast.NewObject:
		return ms.compileNewObject(n)

	case *ast.ArrayInit:
		return ms.compileArrayInitInferred(n)
	case *ast.NewArray:
		return ms.compileNewArray(n)

	case *ast.Lambda:
		return ms.compileLambda(n)
	case *ast.ClassLiteral:
		return ms.compileClassLiteral(n)
	}
	ice(pos(e.ExprPos(), ms.file), "<expr>", "unhandled expression node %T", e)
	return types.Object
}

// ---- names and field access ----

// classNameOwner reports whether e is a bare Name that denotes a
// class (for a static member access like Foo.bar) rather than a
// local variable or an instance field's value. A Name resolves to a
// class only when it isn't already a local and doesn't resolve as a
// field on the current class.
func (ms *methodScope) classNameOwner(e ast.Expr) (string, bool) {
	name, ok := e.(*ast.Name)
	if !ok {
		return "", false
	}
	if _, isLocal := ms.lookupLocal(name.Ident); isLocal {
		return "", false
	}
	if _, err := ms.c.Resolver.ResolveField(ms.class.internal, name.Ident, pos(name.Pos, ms.file)); err == nil {
		return "", false
	}
	if internal, err := ms.c.Resolver.ResolveClassName(ms.ctx, name.Ident, pos(name.Pos, ms.file)); err == nil {
		return internal, true
	}
	return "", false
}

func (ms *methodScope) compileName(n *ast.Name) types.Type {
	if lv, ok := ms.lookupLocal(n.Ident); ok {
		ms.b.EmitLoad(lv.typ, lv.slot)
		return lv.typ
	}
	fr, err := ms.c.Resolver.ResolveField(ms.class.internal, n.Ident, pos(n.Pos, ms.file))
	if err != nil {
		failErr(err.(*diag.Error))
	}
	return ms.emitFieldLoad(fr, !ms.isStatic)
}

func (ms *methodScope) compileFieldAccess(n *ast.FieldAccess) types.Type {
	if owner, ok := ms.classNameOwner(n.Receiver); ok {
		fr, err := ms.c.Resolver.ResolveField(owner, n.Name, pos(n.Pos, ms.file))
		if err != nil {
			failErr(err.(*diag.Error))
		}
		return ms.emitFieldLoad(fr, false)
	}
	recvType := ms.staticTypeOf(n.Receiver)
	fr, err := ms.c.Resolver.ResolveField(recvType.InternalName(), n.Name, pos(n.Pos, ms.file))
	if err != nil {
		failErr(err.(*diag.Error))
	}
	if fieldIsStatic(fr) {
		// superfluous instance receiver evaluated for side effects only
		ms.compileExpr(n.Receiver)
		ms.b.Emit(opcodes.POP)
		return ms.emitFieldLoad(fr, false)
	}
	ms.compileExpr(n.Receiver)
	return ms.emitFieldLoad(fr, true)
}

// emitFieldLoad assumes the receiver (if haveReceiver) is already on
// the stack and emits the GETFIELD/GETSTATIC for fr.
func (ms *methodScope) emitFieldLoad(fr *resolver.FieldResolution, haveReceiver bool) types.Type {
	idx := ms.class.file.CP.AddFieldRef(fr.Owner, fr.Name, fr.Type.Descriptor())
	if fieldIsStatic(fr) {
		if haveReceiver {
			ms.b.Emit(opcodes.POP)
		}
		ms.b.EmitGetStatic(idx, fr.Type)
		return fr.Type
	}
	ms.b.EmitGetField(idx, fr.Type)
	return fr.Type
}

func (ms *methodScope) compileArrayAccessExpr(n *ast.ArrayAccess) types.Type {
	at := ms.compileExpr(n.Array)
	ms.compileExpr(n.Index)
	elemType := at.Elem()
	ms.emitArrayLoad(elemType)
	return elemType
}

// ---- arithmetic, shifts, comparisons ----

func (ms *methodScope) compileBinary(b *ast.Binary) types.Type {
	if b.Op == "+" && ms.isStringConcat(b) {
		return ms.compileStringConcat(b)
	}
	if isComparisonOp(b.Op) {
		return ms.materializeBoolean(b)
	}
	return ms.compileArithmetic(b)
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func isShiftOp(op string) bool {
	return op == "<<" || op == ">>" || op == ">>>"
}

// unaryPromote is Java's promotion rule for the left operand of a
// shift: only the left operand's own width decides int vs long; the
// shift distance never participates.
func unaryPromote(p types.Primitive) types.Primitive {
	if p == types.Long {
		return types.Long
	}
	return types.Int
}

func (ms *methodScope) compileArithmetic(b *ast.Binary) types.Type {
	if isShiftOp(b.Op) {
		lt := ms.arithPrimitiveOf(b.Left)
		common := unaryPromote(lt)
		ms.compileArithOperand(b.Left)
		ms.widenPrimitive(lt, common)
		rt := ms.arithPrimitiveOf(b.Right)
		ms.compileArithOperand(b.Right)
		ms.widenPrimitive(rt, types.Int)
		ms.b.Emit(shiftOpcodeFor(b.Op, common))
		return types.NewPrimitive(common)
	}

	lt := ms.arithPrimitiveOf(b.Left)
	rt := ms.arithPrimitiveOf(b.Right)
	common := resolver.WidenCommon(lt, rt)

	ms.compileArithOperand(b.Left)
	ms.widenPrimitive(lt, common)
	ms.compileArithOperand(b.Right)
	ms.widenPrimitive(rt, common)
	ms.b.Emit(arithOpcodeFor(b.Op, common))
	return types.NewPrimitive(common)
}

// arithPrimitiveOf reports the primitive kind an arithmetic operand
// contributes, unboxing a wrapper's static type down to its primitive
// (spec.md §4.6 "for wrapper operands, emit the .xValue() invocation
// that unboxes").
func (ms *methodScope) arithPrimitiveOf(e ast.Expr) types.Primitive {
	t := ms.staticTypeOf(e)
	if t.IsReference() {
		if p, ok := unboxedPrimitiveFor(t); ok {
			return p
		}
	}
	return t.Primitive()
}

// compileArithOperand compiles e and, when its static type is a
// wrapper reference, unboxes it in place so the arithmetic opcode
// that follows always sees a primitive on the stack.
func (ms *methodScope) compileArithOperand(e ast.Expr) {
	t := ms.compileExpr(e)
	if t.IsReference() {
		if p, ok := unboxedPrimitiveFor(t); ok {
			ms.unbox(p)
		}
	}
}

func arithOpcodeFor(op string, p types.Primitive) opcodes.Opcode {
	switch op {
	case "+":
		return pick(p, opcodes.IADD, opcodes.LADD, opcodes.FADD, opcodes.DADD)
	case "-":
		return pick(p, opcodes.ISUB, opcodes.LSUB, opcodes.FSUB, opcodes.DSUB)
	case "*":
		return pick(p, opcodes.IMUL, opcodes.LMUL, opcodes.FMUL, opcodes.DMUL)
	case "/":
		return pick(p, opcodes.IDIV, opcodes.LDIV, opcodes.FDIV, opcodes.DDIV)
	case "%":
		return pick(p, opcodes.IREM, opcodes.LREM, opcodes.FREM, opcodes.DREM)
	case "&":
		return intOnlyPick(p, opcodes.IAND, opcodes.LAND)
	case "|":
		return intOnlyPick(p, opcodes.IOR, opcodes.LOR)
	case "^":
		return intOnlyPick(p, opcodes.IXOR, opcodes.LXOR)
	}
	return opcodes.NOP
}

func shiftOpcodeFor(op string, p types.Primitive) opcodes.Opcode {
	switch op {
	case "<<":
		return intOnlyPick(p, opcodes.ISHL, opcodes.LSHL)
	case ">>":
		return intOnlyPick(p, opcodes.ISHR, opcodes.LSHR)
	case ">>>":
		return intOnlyPick(p, opcodes.IUSHR, opcodes.LUSHR)
	}
	return opcodes.NOP
}

// pick selects the opcode family member for a widened numeric type.
func pick(p types.Primitive, i, l, f, d opcodes.Opcode) opcodes.Opcode {
	switch p {
	case types.Long:
		return l
	case types.Float:
		return f
	case types.Double:
		return d
	default:
		return i
	}
}

// intOnlyPick selects between the int and long forms of bitwise/shift
// operators, which Java never promotes to float or double.
func intOnlyPick(p types.Primitive, i, l opcodes.Opcode) opcodes.Opcode {
	if p == types.Long {
		return l
	}
	return i
}

func negOpcodeFor(p types.Primitive) opcodes.Opcode {
	return pick(p, opcodes.INEG, opcodes.LNEG, opcodes.FNEG, opcodes.DNEG)
}

func addOpcodeFor(p types.Primitive, delta int32) opcodes.Opcode {
	if delta >= 0 {
		return pick(p, opcodes.IADD, opcodes.LADD, opcodes.FADD, opcodes.DADD)
	}
	return pick(p, opcodes.ISUB, opcodes.LSUB, opcodes.FSUB, opcodes.DSUB)
}

// ---- comparisons and short-circuit boolean logic ----

// materializeBoolean compiles cond for use as a plain expression
// value, pushing an int 0/1 (spec.md §4.6's boolean representation).
func (ms *methodScope) materializeBoolean(cond ast.Expr) types.Type {
	falseLbl, endLbl := ms.b.NewLabel(), ms.b.NewLabel()
	ms.compileBranchIfFalse(cond, falseLbl)
	ms.b.EmitIntConst(1)
	ms.b.EmitBranch(opcodes.GOTO, endLbl)
	ms.b.Mark(falseLbl)
	ms.b.EmitIntConst(0)
	ms.b.Mark(endLbl)
	return types.NewPrimitive(types.Boolean)
}

// compileBranchIfFalse compiles cond for control-flow use, branching
// to falseLabel exactly when cond is false, short-circuiting && and
// || without ever materializing an intermediate boolean (spec.md
// §4.6). Used directly by if/while/for (stmt.go) and by
// materializeBoolean for expression contexts.
func (ms *methodScope) compileBranchIfFalse(cond ast.Expr, falseLabel bytecode.Label) {
	switch c := cond.(type) {
	case *ast.LogicalAnd:
		ms.compileBranchIfFalse(c.Left, falseLabel)
		ms.compileBranchIfFalse(c.Right, falseLabel)
		return
	case *ast.LogicalOr:
		trueLbl := ms.b.NewLabel()
		ms.compileBranchIfTrue(c.Left, trueLbl)
		ms.compileBranchIfFalse(c.Right, falseLabel)
		ms.b.Mark(trueLbl)
		return
	case *ast.Unary:
		if c.Op == "!" {
			ms.compileBranchIfTrue(c.X, falseLabel)
			return
		}
	case *ast.Binary:
		if isComparisonOp(c.Op) {
			ms.compileCompareBranch(c, falseLabel)
			return
		}
	}
	ms.compileExpr(cond)
	ms.b.EmitBranch(opcodes.IFEQ, falseLabel)
}

func (ms *methodScope) compileBranchIfTrue(cond ast.Expr, trueLabel bytecode.Label) {
	switch c := cond.(type) {
	case *ast.LogicalOr:
		ms.compileBranchIfTrue(c.Left, trueLabel)
		ms.compileBranchIfTrue(c.Right, trueLabel)
		return
	case *ast.LogicalAnd:
		falseLbl := ms.b.NewLabel()
		ms.compileBranchIfFalse(c.Left, falseLbl)
		ms.compileBranchIfTrue(c.Right, trueLabel)
		ms.b.Mark(falseLbl)
		return
	case *ast.Unary:
		if c.Op == "!" {
			ms.compileBranchIfFalse(c.X, trueLabel)
			return
		}
	case *ast.Binary:
		if isComparisonOp(c.Op) {
			falseLbl := ms.b.NewLabel()
			ms.compileCompareBranch(c, falseLbl)
			ms.b.EmitBranch(opcodes.GOTO, trueLabel)
			ms.b.Mark(falseLbl)
			return
		}
	}
	ms.compileExpr(cond)
	ms.b.EmitBranch(opcodes.IFNE, trueLabel)
}

// compileCompareBranch emits b's two operands and branches to
// falseLabel when the comparison does NOT hold, using the inverted
// relational opcode so callers never need a separate "is-true" path.
func (ms *methodScope) compileCompareBranch(b *ast.Binary, falseLabel bytecode.Label) {
	lt := ms.staticTypeOf(b.Left)
	rt := ms.staticTypeOf(b.Right)

	if lt.IsReference() || rt.IsReference() {
		ms.compileExpr(b.Left)
		ms.compileExpr(b.Right)
		op := opcodes.IF_ACMPNE
		if b.Op == "!=" {
			op = opcodes.IF_ACMPEQ
		}
		ms.b.EmitBranch(op, falseLabel)
		return
	}

	common := resolver.WidenCommon(lt.Primitive(), rt.Primitive())
	ms.compileExpr(b.Left)
	ms.widenPrimitive(lt.Primitive(), common)
	ms.compileExpr(b.Right)
	ms.widenPrimitive(rt.Primitive(), common)

	switch common {
	case types.Long:
		ms.b.Emit(opcodes.LCMP)
		ms.b.EmitBranch(invertedZeroOp(b.Op), falseLabel)
	case types.Float:
		ms.b.Emit(floatCmpOpcode(b.Op))
		ms.b.EmitBranch(invertedZeroOp(b.Op), falseLabel)
	case types.Double:
		ms.b.Emit(doubleCmpOpcode(b.Op))
		ms.b.EmitBranch(invertedZeroOp(b.Op), falseLabel)
	default:
		ms.b.EmitBranch(invertedIcmpOp(b.Op), falseLabel)
	}
}

func invertedIcmpOp(op string) opcodes.Opcode {
	switch op {
	case "==":
		return opcodes.IF_ICMPNE
	case "!=":
		return opcodes.IF_ICMPEQ
	case "<":
		return opcodes.IF_ICMPGE
	case "<=":
		return opcodes.IF_ICMPGT
	case ">":
		return opcodes.IF_ICMPLE
	case ">=":
		return opcodes.IF_ICMPLT
	}
	return opcodes.IF_ICMPNE
}

func invertedZeroOp(op string) opcodes.Opcode {
	switch op {
	case "==":
		return opcodes.IFNE
	case "!=":
		return opcodes.IFEQ
	case "<":
		return opcodes.IFGE
	case "<=":
		return opcodes.IFGT
	case ">":
		return opcodes.IFLE
	case ">=":
		return opcodes.IFLT
	}
	return opcodes.IFNE
}

// floatCmpOpcode/doubleCmpOpcode pick the NaN-safe comparison form:
// the *G (greater-biased) form for < and <= so a NaN operand makes
// the comparison resolve as "greater", correctly making < false; the
// *L form for > and >= resolves NaN the other way, for the same
// reason.
func floatCmpOpcode(op string) opcodes.Opcode {
	if op == "<" || op == "<=" {
		return opcodes.FCMPG
	}
	return opcodes.FCMPL
}

func doubleCmpOpcode(op string) opcodes.Opcode {
	if op == "<" || op == "<=" {
		return opcodes.DCMPG
	}
	return opcodes.DCMPL
}

// ---- unary, increment/decrement ----

func (ms *methodScope) compileUnary(n *ast.Unary) types.Type {
	switch n.Op {
	case "!":
		return ms.materializeBoolean(n)
	case "-":
		t := ms.compileExpr(n.X)
		ms.b.Emit(negOpcodeFor(t.Primitive()))
		return t
	case "~":
		t := ms.compileExpr(n.X)
		ms.emitBitNot(t.Primitive())
		return t
	case "++", "--":
		return ms.compileIncDec(n)
	}
	ice(pos(n.Pos, ms.file), "<unary>", "unsupported unary operator %q", n.Op)
	return types.Object
}

func (ms *methodScope) emitBitNot(p types.Primitive) {
	if p == types.Long {
		ms.b.EmitLongConst(-1)
		ms.b.Emit(opcodes.LXOR)
		return
	}
	ms.b.EmitIntConst(-1)
	ms.b.Emit(opcodes.IXOR)
}

func (ms *methodScope) emitConstOne(p types.Primitive) {
	switch p {
	case types.Long:
		ms.b.EmitLongConst(1)
	case types.Float:
		ms.b.EmitFloatConst(1)
	case types.Double:
		ms.b.EmitDoubleConst(1)
	default:
		ms.b.EmitIntConst(1)
	}
}

func (ms *methodScope) compileIncDec(n *ast.Unary) types.Type {
	delta := int32(1)
	if n.Op == "--" {
		delta = -1
	}
	switch target := n.X.(type) {
	case *ast.Name:
		if lv, ok := ms.lookupLocal(target.Ident); ok {
			return ms.compileIncDecLocal(n, lv, delta)
		}
		fr, err := ms.c.Resolver.ResolveField(ms.class.internal, target.Ident, pos(target.Pos, ms.file))
		if err != nil {
			failErr(err.(*diag.Error))
		}
		return ms.compileIncDecField(n, fr, nil, delta)
	case *ast.FieldAccess:
		if owner, ok := ms.classNameOwner(target.Receiver); ok {
			fr, err := ms.c.Resolver.ResolveField(owner, target.Name, pos(target.Pos, ms.file))
			if err != nil {
				failErr(err.(*diag.Error))
			}
			return ms.compileIncDecField(n, fr, nil, delta)
		}
		fr, err := ms.c.Resolver.ResolveField(ms.staticTypeOf(target.Receiver).InternalName(), target.Name, pos(target.Pos, ms.file))
		if err != nil {
			failErr(err.(*diag.Error))
		}
		return ms.compileIncDecField(n, fr, target.Receiver, delta)
	case *ast.ArrayAccess:
		return ms.compileIncDecArray(n, target, delta)
	}
	ice(pos(n.Pos, ms.file), "<inc/dec>", "unsupported increment/decrement target")
	return types.Object
}

// compileIncDecLocal uses IINC directly for non-wide int-family
// locals (spec.md §4.6's preferred fast path); long/float/double
// locals fall back to load/compute/store.
func (ms *methodScope) compileIncDecLocal(n *ast.Unary, lv localVar, delta int32) types.Type {
	if lv.typ.IsPrimitive() {
		switch lv.typ.Primitive() {
		case types.Byte, types.Short, types.Char, types.Int:
			if n.Postfix {
				ms.b.EmitLoad(lv.typ, lv.slot)
			}
			ms.b.EmitIinc(lv.slot, int(delta))
			if !n.Postfix {
				ms.b.EmitLoad(lv.typ, lv.slot)
			}
			return lv.typ
		}
	}
	ms.b.EmitLoad(lv.typ, lv.slot)
	if n.Postfix {
		ms.emitDup(lv.typ)
	}
	ms.emitConstOne(lv.typ.Primitive())
	ms.b.Emit(addOpcodeFor(lv.typ.Primitive(), delta))
	if !n.Postfix {
		ms.emitDup(lv.typ)
	}
	ms.b.EmitStore(lv.typ, lv.slot)
	return lv.typ
}

func (ms *methodScope) compileIncDecField(n *ast.Unary, fr *resolver.FieldResolution, recvExpr ast.Expr, delta int32) types.Type {
	idx := ms.class.file.CP.AddFieldRef(fr.Owner, fr.Name, fr.Type.Descriptor())
	hasRecv := !fieldIsStatic(fr)
	if hasRecv {
		if recvExpr != nil {
			ms.compileExpr(recvExpr)
		} else {
			ms.b.EmitLoad(ms.thisType, 0)
		}
		ms.b.Emit(opcodes.DUP)
		ms.b.EmitGetField(idx, fr.Type)
	} else {
		ms.b.EmitGetStatic(idx, fr.Type)
	}

	if n.Postfix {
		if hasRecv {
			ms.emitDupX1(fr.Type)
		} else {
			ms.emitDup(fr.Type)
		}
	}
	ms.emitConstOne(fr.Type.Primitive())
	ms.b.Emit(addOpcodeFor(fr.Type.Primitive(), delta))
	if !n.Postfix {
		if hasRecv {
			ms.emitDupX1(fr.Type)
		} else {
			ms.emitDup(fr.Type)
		}
	}

	if hasRecv {
		ms.b.EmitPutField(idx, fr.Type)
	} else {
		ms.b.EmitPutStatic(idx, fr.Type)
	}
	return fr.Type
}

func (ms *methodScope) compileIncDecArray(n *ast.Unary, target *ast.ArrayAccess, delta int32) types.Type {
	at := ms.compileExpr(target.Array)
	ms.compileExpr(target.Index)
	elemType := at.Elem()

	ms.b.Emit(opcodes.DUP2)
	ms.emitArrayLoad(elemType)

	if n.Postfix {
		ms.emitDupX2(elemType)
	}
	ms.emitConstOne(elemType.Primitive())
	ms.b.Emit(addOpcodeFor(elemType.Primitive(), delta))
	if !n.Postfix {
		ms.emitDupX2(elemType)
	}
	ms.emitArrayStore(elemType)
	return elemType
}

// ---- dup helpers (category-aware) ----

func (ms *methodScope) emitDup(t types.Type) {
	if t.Category() == 2 {
		ms.b.Emit(opcodes.DUP2)
	} else {
		ms.b.Emit(opcodes.DUP)
	}
}

func (ms *methodScope) emitDupX1(t types.Type) {
	if t.Category() == 2 {
		ms.b.Emit(opcodes.DUP2_X1)
	} else {
		ms.b.Emit(opcodes.DUP_X1)
	}
}

func (ms *methodScope) emitDupX2(t types.Type) {
	if t.Category() == 2 {
		ms.b.Emit(opcodes.DUP2_X2)
	} else {
		ms.b.Emit(opcodes.DUP_X2)
	}
}

// ---- assignment ----

func (ms *methodScope) compileAssign(n *ast.Assign) types.Type {
	switch target := n.Target.(type) {
	case *ast.Name:
		if lv, ok := ms.lookupLocal(target.Ident); ok {
			return ms.compileAssignLocal(n, lv)
		}
		fr, err := ms.c.Resolver.ResolveField(ms.class.internal, target.Ident, pos(target.Pos, ms.file))
		if err != nil {
			failErr(err.(*diag.Error))
		}
		return ms.compileAssignField(n, fr, nil)
	case *ast.FieldAccess:
		if owner, ok := ms.classNameOwner(target.Receiver); ok {
			fr, err := ms.c.Resolver.ResolveField(owner, target.Name, pos(target.Pos, ms.file))
			if err != nil {
				failErr(err.(*diag.Error))
			}
			return ms.compileAssignField(n, fr, nil)
		}
		fr, err := ms.c.Resolver.ResolveField(ms.staticTypeOf(target.Receiver).InternalName(), target.Name, pos(target.Pos, ms.file))
		if err != nil {
			failErr(err.(*diag.Error))
		}
		return ms.compileAssignField(n, fr, target.Receiver)
	case *ast.ArrayAccess:
		return ms.compileAssignArray(n, target)
	}
	ice(pos(n.Pos, ms.file), "<assign>", "unsupported assignment target %T", n.Target)
	return types.Object
}

func (ms *methodScope) compileAssignLocal(n *ast.Assign, lv localVar) types.Type {
	if n.Op == "=" {
		bindLambdaTarget(n.Value, lv.typ)
		vt := ms.compileExpr(n.Value)
		kind, _ := ms.c.Resolver.IsAssignable(vt, lv.typ)
		ms.coerce(vt, lv.typ, kind)
		ms.narrowForStore(lv.typ)
		if n.Used {
			ms.emitDup(lv.typ)
		}
		ms.b.EmitStore(lv.typ, lv.slot)
		return lv.typ
	}

	ms.b.EmitLoad(lv.typ, lv.slot)
	if isStringType(lv.typ) {
		ms.wrapForConcat()
		ms.finishConcatAppend(n.Value)
	} else {
		common := ms.applyCompoundArith(n.Op, lv.typ.Primitive(), n.Value)
		ms.narrowTo(common, lv.typ.Primitive())
	}
	if n.Used {
		ms.emitDup(lv.typ)
	}
	ms.b.EmitStore(lv.typ, lv.slot)
	return lv.typ
}

func (ms *methodScope) compileAssignField(n *ast.Assign, fr *resolver.FieldResolution, recvExpr ast.Expr) types.Type {
	idx := ms.class.file.CP.AddFieldRef(fr.Owner, fr.Name, fr.Type.Descriptor())
	hasRecv := !fieldIsStatic(fr)

	pushRecv := func() {
		if !hasRecv {
			return
		}
		if recvExpr != nil {
			ms.compileExpr(recvExpr)
		} else {
			ms.b.EmitLoad(ms.thisType, 0)
		}
	}

	if n.Op == "=" {
		pushRecv()
		bindLambdaTarget(n.Value, fr.Type)
		vt := ms.compileExpr(n.Value)
		kind, _ := ms.c.Resolver.IsAssignable(vt, fr.Type)
		ms.coerce(vt, fr.Type, kind)
		ms.narrowForStore(fr.Type)
		if n.Used {
			if hasRecv {
				ms.emitDupX1(fr.Type)
			} else {
				ms.emitDup(fr.Type)
			}
		}
		if hasRecv {
			ms.b.EmitPutField(idx, fr.Type)
		} else {
			ms.b.EmitPutStatic(idx, fr.Type)
		}
		return fr.Type
	}

	pushRecv()
	if hasRecv {
		ms.b.Emit(opcodes.DUP)
		ms.b.EmitGetField(idx, fr.Type)
	} else {
		ms.b.EmitGetStatic(idx, fr.Type)
	}

	if isStringType(fr.Type) {
		ms.wrapForConcat()
		ms.finishConcatAppend(n.Value)
	} else {
		common := ms.applyCompoundArith(n.Op, fr.Type.Primitive(), n.Value)
		ms.narrowTo(common, fr.Type.Primitive())
	}

	if n.Used {
		if hasRecv {
			ms.emitDupX1(fr.Type)
		} else {
			ms.emitDup(fr.Type)
		}
	}
	if hasRecv {
		ms.b.EmitPutField(idx, fr.Type)
	} else {
		ms.b.EmitPutStatic(idx, fr.Type)
	}
	return fr.Type
}

func (ms *methodScope) compileAssignArray(n *ast.Assign, target *ast.ArrayAccess) types.Type {
	at := ms.compileExpr(target.Array)
	ms.compileExpr(target.Index)
	elemType := at.Elem()

	if n.Op == "=" {
		vt := ms.compileExpr(n.Value)
		kind, _ := ms.c.Resolver.IsAssignable(vt, elemType)
		ms.coerce(vt, elemType, kind)
		ms.narrowForStore(elemType)
		if n.Used {
			ms.emitDupX2(elemType)
		}
		ms.emitArrayStore(elemType)
		return elemType
	}

	ms.b.Emit(opcodes.DUP2)
	ms.emitArrayLoad(elemType)

	if isStringType(elemType) {
		ms.wrapForConcat()
		ms.finishConcatAppend(n.Value)
	} else {
		common := ms.applyCompoundArith(n.Op, elemType.Primitive(), n.Value)
		ms.narrowTo(common, elemType.Primitive())
	}

	if n.Used {
		ms.emitDupX2(elemType)
	}
	ms.emitArrayStore(elemType)
	return elemType
}

func isStringType(t types.Type) bool {
	return t.IsReference() && !t.IsArray() && t.InternalName() == "java/lang/String"
}

// applyCompoundArith assumes the target's old value (widened to
// oldPrim already, i.e. as it sits in its slot) is on top of the
// stack, compiles the RHS, widens both to a common numeric type (or,
// for shifts, promotes only the left/old operand per Java's shift
// rule), and applies the operator. It returns the computed type so
// the caller can narrow back to the target's declared type.
func (ms *methodScope) applyCompoundArith(op string, oldPrim types.Primitive, valueExpr ast.Expr) types.Primitive {
	arithOp := compoundArithOp(op)
	if isShiftOp(arithOp) {
		common := unaryPromote(oldPrim)
		ms.widenPrimitive(oldPrim, common)
		rt := ms.compileExpr(valueExpr)
		ms.widenPrimitive(rt.Primitive(), types.Int)
		ms.b.Emit(shiftOpcodeFor(arithOp, common))
		return common
	}

	rt := ms.staticTypeOf(valueExpr)
	common := resolver.WidenCommon(oldPrim, rt.Primitive())
	ms.widenPrimitive(oldPrim, common)
	vt := ms.compileExpr(valueExpr)
	ms.widenPrimitive(vt.Primitive(), common)
	ms.b.Emit(arithOpcodeFor(arithOp, common))
	return common
}

// compoundArithOp strips the trailing `=` a compound-assignment
// operator token carries (e.g. "+=" -> "+").
func compoundArithOp(op string) string {
	if len(op) > 1 && op[len(op)-1] == '=' {
		return op[:len(op)-1]
	}
	return op
}

// wrapForConcat assumes a String value is already on top of the
// stack; it creates a fresh no-arg StringBuilder, swaps it below that
// String and appends the String to it, leaving the StringBuilder on
// top. The one-arg StringBuilder(String) constructor can't be used
// here: NEW + DUP would land above the already-pushed old value
// instead of below it, where that constructor's argument slot needs it.
func (ms *methodScope) wrapForConcat() {
	classIdx := ms.class.file.CP.AddClass("java/lang/StringBuilder")
	ms.b.EmitNew(classIdx)
	ms.b.Emit(opcodes.DUP)
	ctorIdx := ms.class.file.CP.AddMethodRef("java/lang/StringBuilder", "<init>", "()V")
	ms.b.EmitInvoke(bytecode.InvokeSpecial, ctorIdx, nil, 0)
	ms.b.Emit(opcodes.SWAP)
	appendIdx := ms.class.file.CP.AddMethodRef("java/lang/StringBuilder", "append", "(Ljava/lang/String;)Ljava/lang/StringBuilder;")
	ms.b.EmitInvoke(bytecode.InvokeVirtual, appendIdx, []int{1}, 1)
}

// finishConcatAppend compiles valueExpr, appends it to the
// StringBuilder already on the stack (see wrapForConcat), and calls
// toString(), leaving the resulting String on top.
func (ms *methodScope) finishConcatAppend(valueExpr ast.Expr) types.Type {
	t := ms.compileExpr(valueExpr)
	desc := appendDescriptorFor(t)
	idx := ms.class.file.CP.AddMethodRef("java/lang/StringBuilder", "append", "("+desc+")Ljava/lang/StringBuilder;")
	cat := 1
	if desc == "J" || desc == "D" {
		cat = 2
	}
	ms.b.EmitInvoke(bytecode.InvokeVirtual, idx, []int{cat}, 1)
	toStringIdx := ms.class.file.CP.AddMethodRef("java/lang/StringBuilder", "toString", "()Ljava/lang/String;")
	ms.b.EmitInvoke(bytecode.InvokeVirtual, toStringIdx, nil, 1)
	return types.StringType
}

// ---- cast, instanceof, ternary ----

func (ms *methodScope) compileCast(n *ast.Cast) types.Type {
	target := ms.c.resolveType(ms.ctx, n.Type, ms.file)
	vt := ms.compileExpr(n.X)

	if target.IsPrimitive() && vt.IsPrimitive() {
		ms.castPrimitive(vt.Primitive(), target.Primitive())
		return target
	}
	if target.IsPrimitive() && vt.IsReference() {
		if p, ok := unboxedPrimitiveFor(vt); ok {
			ms.unbox(p)
			ms.castPrimitive(p, target.Primitive())
		}
		return target
	}
	if target.IsReference() && vt.IsPrimitive() {
		ms.box(vt.Primitive())
		wrapper := types.WrapperFor(vt.Primitive())
		if !target.Equal(wrapper) {
			ms.b.EmitCheckCast(ms.classConstIdx(target))
		}
		return target
	}
	ms.b.EmitCheckCast(ms.classConstIdx(target))
	return target
}

func (ms *methodScope) castPrimitive(from, to types.Primitive) {
	if from == to {
		return
	}
	if ops := narrowChain(from, to); len(ops) > 0 {
		for _, op := range ops {
			ms.b.Emit(op)
		}
		return
	}
	for _, op := range widenChain(from, to) {
		ms.b.Emit(op)
	}
}

func unboxedPrimitiveFor(t types.Type) (types.Primitive, bool) {
	switch t.InternalName() {
	case "java/lang/Boolean":
		return types.Boolean, true
	case "java/lang/Byte":
		return types.Byte, true
	case "java/lang/Short":
		return types.Short, true
	case "java/lang/Character":
		return types.Char, true
	case "java/lang/Integer":
		return types.Int, true
	case "java/lang/Long":
		return types.Long, true
	case "java/lang/Float":
		return types.Float, true
	case "java/lang/Double":
		return types.Double, true
	}
	return 0, false
}

func (ms *methodScope) classConstIdx(t types.Type) int {
	if t.IsArray() {
		return ms.class.file.CP.AddClass(t.Descriptor())
	}
	return ms.class.file.CP.AddClass(t.InternalName())
}

func (ms *methodScope) compileInstanceOf(n *ast.InstanceOf) types.Type {
	ms.compileExpr(n.X)
	target := ms.c.resolveType(ms.ctx, n.Type, ms.file)
	ms.b.EmitInstanceOf(ms.classConstIdx(target))
	return types.NewPrimitive(types.Boolean)
}

func (ms *methodScope) compileTernary(n *ast.Ternary) types.Type {
	thenT := ms.staticTypeOf(n.Then)
	elseT := ms.staticTypeOf(n.Else)
	numeric := thenT.IsPrimitive() && elseT.IsPrimitive()
	var common types.Primitive
	if numeric {
		common = resolver.WidenCommon(thenT.Primitive(), elseT.Primitive())
	}

	elseLbl, endLbl := ms.b.NewLabel(), ms.b.NewLabel()
	ms.compileBranchIfFalse(n.Cond, elseLbl)
	tt := ms.compileExpr(n.Then)
	if numeric {
		ms.widenPrimitive(tt.Primitive(), common)
	}
	ms.b.EmitBranch(opcodes.GOTO, endLbl)
	ms.b.Mark(elseLbl)
	et := ms.compileExpr(n.Else)
	if numeric {
		ms.widenPrimitive(et.Primitive(), common)
	}
	ms.b.Mark(endLbl)

	if numeric {
		return types.NewPrimitive(common)
	}
	return tt
}

// ---- calls ----

// methodCallOwner resolves the class a call's method must be looked
// up on, and, when the call has an explicit non-class-name receiver
// expression, returns it so the caller can push it after resolution
// decides whether the resolved method turns out static.
func (ms *methodScope) methodCallOwner(n *ast.MethodCall) (string, ast.Expr) {
	if n.Receiver == nil {
		return ms.class.internal, nil
	}
	if owner, ok := ms.classNameOwner(n.Receiver); ok {
		return owner, nil
	}
	return ms.staticTypeOf(n.Receiver).InternalName(), n.Receiver
}

func (ms *methodScope) compileMethodCall(n *ast.MethodCall) types.Type {
	owner, explicitRecv := ms.methodCallOwner(n)
	argTypes := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = ms.staticTypeOf(a)
	}
	res, err := ms.c.Resolver.ResolveMethod(owner, n.Name, argTypes, pos(n.Pos, ms.file))
	if err != nil {
		failErr(err.(*diag.Error))
	}

	if !res.IsStatic {
		if explicitRecv != nil {
			ms.compileExpr(explicitRecv)
		} else {
			ms.b.EmitLoad(ms.thisType, 0)
		}
	} else if explicitRecv != nil {
		// a static method looked up through an instance expression:
		// legal in Java, the receiver is still evaluated for its side
		// effects and discarded.
		ms.compileExpr(explicitRecv)
		ms.b.Emit(opcodes.POP)
	}

	argCats := ms.compileCallArgs(res, n.Args)

	kind := bytecode.InvokeVirtual
	switch {
	case res.IsStatic:
		kind = bytecode.InvokeStatic
	case res.IsPrivate:
		kind = bytecode.InvokeSpecial
	case res.IsInterfaceOwner:
		kind = bytecode.InvokeInterface
	}

	var idx int
	if kind == bytecode.InvokeInterface {
		idx = ms.class.file.CP.AddInterfaceMethodRef(res.Owner, n.Name, res.Descriptor)
	} else {
		idx = ms.class.file.CP.AddMethodRef(res.Owner, n.Name, res.Descriptor)
	}
	retCat := 0
	if !res.ReturnType.IsVoid() {
		retCat = res.ReturnType.Category()
	}
	ms.b.EmitInvoke(kind, idx, argCats, retCat)
	return res.ReturnType
}

// compileCallArgs compiles a call's argument list, coercing each
// fixed argument to its formal type and packing any trailing varargs
// into a freshly-allocated array unless the call site already passes
// a single array-typed final argument (spec.md §4.2's varargs rule).
func (ms *methodScope) compileCallArgs(res *resolver.MethodResolution, args []ast.Expr) []int {
	params := res.ParamTypes
	if !res.IsVarargs {
		cats := make([]int, len(args))
		for i, a := range args {
			bindLambdaTarget(a, params[i])
			at := ms.compileExpr(a)
			kind, _ := ms.c.Resolver.IsAssignable(at, params[i])
			ms.coerce(at, params[i], kind)
			cats[i] = params[i].Category()
		}
		return cats
	}

	fixedCount := len(params) - 1
	varargsArrayType := params[fixedCount]
	elemType := varargsArrayType.Elem()

	cats := make([]int, 0, len(params))
	for i := 0; i < fixedCount; i++ {
		bindLambdaTarget(args[i], params[i])
		at := ms.compileExpr(args[i])
		kind, _ := ms.c.Resolver.IsAssignable(at, params[i])
		ms.coerce(at, params[i], kind)
		cats = append(cats, params[i].Category())
	}

	if len(args) == len(params) {
		lastStatic := ms.staticTypeOf(args[len(args)-1])
		if kind, ok := ms.c.Resolver.IsAssignable(lastStatic, varargsArrayType); ok {
			at := ms.compileExpr(args[len(args)-1])
			ms.coerce(at, varargsArrayType, kind)
			cats = append(cats, varargsArrayType.Category())
			return cats
		}
	}

	tailCount := len(args) - fixedCount
	ms.b.EmitIntConst(int32(tailCount))
	if elemType.IsPrimitive() {
		ms.b.EmitNewArray(atypeFor(elemType.Primitive()))
	} else {
		ms.b.EmitANewArray(ms.classConstIdx(elemType))
	}
	for i := 0; i < tailCount; i++ {
		ms.b.Emit(opcodes.DUP)
		ms.b.EmitIntConst(int32(i))
		at := ms.compileExpr(args[fixedCount+i])
		kind, _ := ms.c.Resolver.IsAssignable(at, elemType)
		ms.coerce(at, elemType, kind)
		ms.emitArrayStore(elemType)
	}
	cats = append(cats, varargsArrayType.Category())
	return cats
}

func (ms *methodScope) compileSuperCall(n *ast.SuperCall) types.Type {
	owner := ms.class.superInternal
	argTypes := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = ms.staticTypeOf(a)
	}
	res, err := ms.c.Resolver.ResolveMethod(owner, n.Name, argTypes, pos(n.Pos, ms.file))
	if err != nil {
		failErr(err.(*diag.Error))
	}

	ms.b.EmitLoad(ms.thisType, 0)
	argCats := ms.compileCallArgs(res, n.Args)
	idx := ms.class.file.CP.AddMethodRef(res.Owner, n.Name, res.Descriptor)
	retCat := 0
	if !res.ReturnType.IsVoid() {
		retCat = res.ReturnType.Category()
	}
	ms.b.EmitInvoke(bytecode.InvokeSpecial, idx, argCats, retCat)
	return res.ReturnType
}

func (ms *methodScope) compileNewObject(n *ast.NewObject) types.Type {
	t := ms.c.resolveType(ms.ctx, n.Type, ms.file)
	internal := t.InternalName()
	argTypes := make([]types.Type, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = ms.staticTypeOf(a)
	}
	res, err := ms.c.Resolver.ResolveMethod(internal, "<init>", argTypes, pos(n.Pos, ms.file))
	if err != nil {
		failErr(err.(*diag.Error))
	}

	classIdx := ms.class.file.CP.AddClass(internal)
	ms.b.EmitNew(classIdx)
	ms.b.Emit(opcodes.DUP)
	argCats := ms.compileCallArgs(res, n.Args)
	idx := ms.class.file.CP.AddMethodRef(res.Owner, "<init>", res.Descriptor)
	ms.b.EmitInvoke(bytecode.InvokeSpecial, idx, argCats, 0)
	return t
}

// ---- arrays ----

func atypeFor(p types.Primitive) int {
	switch p {
	case types.Boolean:
		return opcodes.ATypeBoolean
	case types.Char:
		return opcodes.ATypeChar
	case types.Float:
		return opcodes.ATypeFloat
	case types.Double:
		return opcodes.ATypeDouble
	case types.Byte:
		return opcodes.ATypeByte
	case types.Short:
		return opcodes.ATypeShort
	case types.Long:
		return opcodes.ATypeLong
	default:
		return opcodes.ATypeInt
	}
}

func (ms *methodScope) emitArrayLoad(elemType types.Type) {
	if elemType.IsReference() {
		ms.b.Emit(opcodes.AALOAD)
		return
	}
	switch elemType.Primitive() {
	case types.Boolean, types.Byte:
		ms.b.Emit(opcodes.BALOAD)
	case types.Char:
		ms.b.Emit(opcodes.CALOAD)
	case types.Short:
		ms.b.Emit(opcodes.SALOAD)
	case types.Long:
		ms.b.Emit(opcodes.LALOAD)
	case types.Float:
		ms.b.Emit(opcodes.FALOAD)
	case types.Double:
		ms.b.Emit(opcodes.DALOAD)
	default:
		ms.b.Emit(opcodes.IALOAD)
	}
}

func (ms *methodScope) emitArrayStore(elemType types.Type) {
	if elemType.IsReference() {
		ms.b.Emit(opcodes.AASTORE)
		return
	}
	switch elemType.Primitive() {
	case types.Boolean, types.Byte:
		ms.b.Emit(opcodes.BASTORE)
	case types.Char:
		ms.b.Emit(opcodes.CASTORE)
	case types.Short:
		ms.b.Emit(opcodes.SASTORE)
	case types.Long:
		ms.b.Emit(opcodes.LASTORE)
	case types.Float:
		ms.b.Emit(opcodes.FASTORE)
	case types.Double:
		ms.b.Emit(opcodes.DASTORE)
	default:
		ms.b.Emit(opcodes.IASTORE)
	}
}

func (ms *methodScope) compileArrayInitInferred(n *ast.ArrayInit) types.Type {
	var elemType types.Type
	if len(n.Elements) > 0 {
		elemType = ms.staticTypeOf(n.Elements[0])
	} else {
		elemType = types.Object
	}
	return ms.compileArrayInitTyped(n, types.NewArray(elemType, 1))
}

func (ms *methodScope) compileArrayInitTyped(init *ast.ArrayInit, arrType types.Type) types.Type {
	elemType := arrType.Elem()
	ms.b.EmitIntConst(int32(len(init.Elements)))
	if elemType.IsPrimitive() {
		ms.b.EmitNewArray(atypeFor(elemType.Primitive()))
	} else {
		ms.b.EmitANewArray(ms.classConstIdx(elemType))
	}
	for i, el := range init.Elements {
		ms.b.Emit(opcodes.DUP)
		ms.b.EmitIntConst(int32(i))
		if nested, ok := el.(*ast.ArrayInit); ok && elemType.IsArray() {
			ms.compileArrayInitTyped(nested, elemType)
		} else {
			at := ms.compileExpr(el)
			kind, _ := ms.c.Resolver.IsAssignable(at, elemType)
			ms.coerce(at, elemType, kind)
		}
		ms.emitArrayStore(elemType)
	}
	return arrType
}

// compileNewArray handles all three dimension shapes `new T[n]`
// allows: a single explicit dimension (NEWARRAY/ANEWARRAY), two or
// more explicit dimensions with or without empty trailing brackets
// (MULTIANEWARRAY over the explicit ones), and one explicit dimension
// followed by empty trailing brackets (`new int[3][]`, ANEWARRAY of
// the inner array type).
func (ms *methodScope) compileNewArray(n *ast.NewArray) types.Type {
	elemBase := ms.c.resolveType(ms.ctx, n.ElemType, ms.file)
	totalDims := len(n.Dims) + n.ExtraDims
	if totalDims < 1 {
		totalDims = 1
	}
	arrType := types.NewArray(elemBase, totalDims)

	if n.Init != nil {
		return ms.compileArrayInitTyped(n.Init, arrType)
	}

	if len(n.Dims) == totalDims && totalDims == 1 {
		ms.compileExpr(n.Dims[0])
		if elemBase.IsPrimitive() {
			ms.b.EmitNewArray(atypeFor(elemBase.Primitive()))
		} else {
			ms.b.EmitANewArray(ms.classConstIdx(elemBase))
		}
		return arrType
	}

	if len(n.Dims) > 1 {
		for _, d := range n.Dims {
			ms.compileExpr(d)
		}
		ms.b.EmitMultiANewArray(ms.classConstIdx(arrType), len(n.Dims))
		return arrType
	}

	for _, d := range n.Dims {
		ms.compileExpr(d)
	}
	innerType := types.NewArray(elemBase, totalDims-len(n.Dims))
	ms.b.EmitANewArray(ms.classConstIdx(innerType))
	return arrType
}

// ---- class literal ----

func (ms *methodScope) compileClassLiteral(n *ast.ClassLiteral) types.Type {
	t := ms.c.resolveType(ms.ctx, n.Type, ms.file)
	ms.b.EmitU2(opcodes.LDC_W, opcodes.StackEffect{Push: 1}, ms.classConstIdx(t))
	return types.NewReference("java/lang/Class")
}
