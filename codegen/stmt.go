/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Statement compilation (spec.md §4.6). compileStmt walks one
// ast.Stmt, updating the method context (labels, scopes) without ever
// leaving a value on the operand stack. Loop and switch constructs use
// the label/patch machinery bytecode.Builder already exposes; break
// and continue consult methodScope's loop-target stack (method.go).
package codegen

import (
	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/bytecode"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/types"
)

// compileStmt dispatches on st's concrete type, the closed tagged
// variant Design Notes calls for ("a per-variant handler, not open
// inheritance").
func (ms *methodScope) compileStmt(st ast.Stmt) {
	switch n := st.(type) {
	case *ast.Block:
		ms.compileBlock(n)
	case *ast.ExprStmt:
		ms.compileExprStmt(n)
	case *ast.LocalVarDecl:
		ms.compileLocalVarDecl(n)
	case *ast.IfStmt:
		ms.compileIf(n)
	case *ast.WhileStmt:
		ms.compileWhile(n)
	case *ast.DoWhileStmt:
		ms.compileDoWhile(n)
	case *ast.ForStmt:
		ms.compileFor(n)
	case *ast.ForEachStmt:
		ms.compileForEach(n)
	case *ast.ReturnStmt:
		ms.compileReturn(n)
	case *ast.BreakStmt:
		ms.compileBreak(n)
	case *ast.ContinueStmt:
		ms.compileContinue(n)
	case *ast.ThrowStmt:
		ms.compileThrow(n)
	case *ast.TryStmt:
		ms.compileTry(n)
	case *ast.SwitchStmt:
		ms.compileSwitch(n)
	case *ast.LabeledStmt:
		ms.compileLabeled(n)
	case *ast.EmptyStmt:
		// no bytes
	default:
		ice(pos(st.StmtPos(), ms.file), "<stmt>", "unhandled statement node %T", st)
	}
}

// compileBlock introduces a local-variable scope: locals declared
// inside are released (their slots reusable) once the block ends,
// per spec.md §3 "reusing slots after scope exit is permitted and
// recommended."
func (ms *methodScope) compileBlock(n *ast.Block) {
	mark := ms.b.ScopeMark()
	saved := ms.snapshotLocals()
	for _, st := range n.Stmts {
		ms.compileStmt(st)
	}
	ms.restoreLocals(saved)
	ms.b.ResetScope(mark)
}

// snapshotLocals/restoreLocals bracket a nested scope so that a local
// declared inside a block, loop body, or catch clause does not leak
// into the surrounding scope's name table once control leaves it.
func (ms *methodScope) snapshotLocals() map[string]localVar {
	saved := make(map[string]localVar, len(ms.locals))
	for k, v := range ms.locals {
		saved[k] = v
	}
	return saved
}

func (ms *methodScope) restoreLocals(saved map[string]localVar) {
	ms.locals = saved
}

func (ms *methodScope) compileExprStmt(n *ast.ExprStmt) {
	if a, ok := n.X.(*ast.Assign); ok {
		a.Used = false
		ms.compileExpr(a)
		return
	}
	t := ms.compileExpr(n.X)
	if !t.IsVoid() {
		ms.popValue(t)
	}
}

// popValue discards an expression-statement's unused result (e.g. a
// non-void method call used as a statement, or a pre/post increment
// whose value nobody consumes).
func (ms *methodScope) popValue(t types.Type) {
	if t.Category() == 2 {
		ms.b.Emit(opcodes.POP2)
	} else {
		ms.b.Emit(opcodes.POP)
	}
}

func (ms *methodScope) compileLocalVarDecl(n *ast.LocalVarDecl) {
	t := ms.c.resolveType(ms.ctx, n.Type, ms.file)
	slot := ms.declareLocal(n.Name, t)
	if n.Init == nil {
		return
	}
	bindLambdaTarget(n.Init, t)
	vt := ms.compileExpr(n.Init)
	kind, ok := ms.c.Resolver.IsAssignable(vt, t)
	if !ok {
		fail(pos(n.Pos, ms.file), diag.TypeError, "cannot initialize %s of type %s with value of type %s", n.Name, t, vt)
	}
	ms.coerce(vt, t, kind)
	ms.narrowForStore(t)
	ms.b.EmitStore(t, slot)
}

// ---- if / while / do-while / for ----

func (ms *methodScope) compileIf(n *ast.IfStmt) {
	if n.Else == nil {
		endLbl := ms.b.NewLabel()
		ms.compileBranchIfFalse(n.Cond, endLbl)
		ms.compileStmt(n.Then)
		ms.b.Mark(endLbl)
		return
	}
	elseLbl, endLbl := ms.b.NewLabel(), ms.b.NewLabel()
	ms.compileBranchIfFalse(n.Cond, elseLbl)
	ms.compileStmt(n.Then)
	ms.b.EmitBranch(opcodes.GOTO, endLbl)
	ms.b.Mark(elseLbl)
	ms.compileStmt(n.Else)
	ms.b.Mark(endLbl)
}

func (ms *methodScope) compileWhile(n *ast.WhileStmt) {
	top := ms.b.NewLabel()
	lt := ms.pushLoopLabeled(n.Label, true)
	ms.b.Mark(top)
	ms.b.Mark(lt.continueLabel)
	ms.compileBranchIfFalse(n.Cond, lt.breakLabel)
	ms.compileStmt(n.Body)
	ms.b.EmitBranch(opcodes.GOTO, top)
	ms.b.Mark(lt.breakLabel)
	ms.popLoop()
}

func (ms *methodScope) compileDoWhile(n *ast.DoWhileStmt) {
	top := ms.b.NewLabel()
	lt := ms.pushLoopLabeled(n.Label, true)
	ms.b.Mark(top)
	ms.compileStmt(n.Body)
	ms.b.Mark(lt.continueLabel)
	ms.compileBranchIfTrue(n.Cond, top)
	ms.b.Mark(lt.breakLabel)
	ms.popLoop()
}

func (ms *methodScope) compileFor(n *ast.ForStmt) {
	mark := ms.b.ScopeMark()
	saved := ms.snapshotLocals()
	for _, init := range n.Init {
		ms.compileStmt(init)
	}

	top := ms.b.NewLabel()
	postLbl := ms.b.NewLabel()
	lt := ms.pushLoopLabeled(n.Label, true)
	ms.b.Mark(top)
	if n.Cond != nil {
		ms.compileBranchIfFalse(n.Cond, lt.breakLabel)
	}
	ms.compileStmt(n.Body)
	ms.b.Mark(postLbl)
	ms.b.Mark(lt.continueLabel)
	for _, post := range n.Post {
		ms.compileStmt(post)
	}
	ms.b.EmitBranch(opcodes.GOTO, top)
	ms.b.Mark(lt.breakLabel)
	ms.popLoop()

	ms.restoreLocals(saved)
	ms.b.ResetScope(mark)
}

// compileForEach desugars the enhanced-for (spec.md §4.6): an array
// source lowers to an indexed loop; an Iterable source lowers to the
// standard iterator()/hasNext()/next() idiom with a checkcast on the
// Object next() returns.
func (ms *methodScope) compileForEach(n *ast.ForEachStmt) {
	mark := ms.b.ScopeMark()
	saved := ms.snapshotLocals()

	iterableType := ms.staticTypeOf(n.Iterable)
	varType := ms.c.resolveType(ms.ctx, n.VarType, ms.file)

	if iterableType.IsArray() {
		ms.compileForEachArray(n, iterableType, varType)
	} else {
		ms.compileForEachIterator(n, varType)
	}

	ms.restoreLocals(saved)
	ms.b.ResetScope(mark)
}

func (ms *methodScope) compileForEachArray(n *ast.ForEachStmt, arrType, varType types.Type) {
	arrSlot := ms.declareLocal("$foreach$arr", arrType)
	ms.compileExpr(n.Iterable)
	ms.b.EmitStore(arrType, arrSlot)

	idxType := types.NewPrimitive(types.Int)
	idxSlot := ms.declareLocal("$foreach$idx", idxType)
	ms.b.EmitIntConst(0)
	ms.b.EmitStore(idxType, idxSlot)

	lenSlot := ms.declareLocal("$foreach$len", idxType)
	ms.b.EmitLoad(arrType, arrSlot)
	ms.b.Emit(opcodes.ARRAYLENGTH)
	ms.b.EmitStore(idxType, lenSlot)

	top := ms.b.NewLabel()
	lt := ms.pushLoopLabeled(n.Label, true)
	ms.b.Mark(top)
	ms.b.Mark(lt.continueLabel)
	ms.b.EmitLoad(idxType, idxSlot)
	ms.b.EmitLoad(idxType, lenSlot)
	ms.b.EmitBranch(opcodes.IF_ICMPGE, lt.breakLabel)

	elemType := arrType.Elem()
	ms.b.EmitLoad(arrType, arrSlot)
	ms.b.EmitLoad(idxType, idxSlot)
	ms.emitArrayLoad(elemType)
	varSlot := ms.declareLocal(n.VarName, varType)
	kind, ok := ms.c.Resolver.IsAssignable(elemType, varType)
	if ok {
		ms.coerce(elemType, varType, kind)
	}
	ms.b.EmitStore(varType, varSlot)

	ms.compileStmt(n.Body)

	ms.b.EmitIinc(idxSlot, 1)
	ms.b.EmitBranch(opcodes.GOTO, top)
	ms.b.Mark(lt.breakLabel)
	ms.popLoop()
}

func (ms *methodScope) compileForEachIterator(n *ast.ForEachStmt, varType types.Type) {
	iterType := types.Iterator
	iterSlot := ms.declareLocal("$foreach$it", iterType)

	recvType := ms.staticTypeOf(n.Iterable)
	owner := recvType.InternalName()
	if owner == "" {
		owner = "java/lang/Iterable"
	}
	ms.compileExpr(n.Iterable)
	iterIdx := ms.class.file.CP.AddInterfaceMethodRef(owner, "iterator", "()Ljava/util/Iterator;")
	ms.b.EmitInvoke(bytecode.InvokeInterface, iterIdx, nil, 1)
	ms.b.EmitStore(iterType, iterSlot)

	top := ms.b.NewLabel()
	lt := ms.pushLoopLabeled(n.Label, true)
	ms.b.Mark(top)
	ms.b.Mark(lt.continueLabel)
	ms.b.EmitLoad(iterType, iterSlot)
	hasNextIdx := ms.class.file.CP.AddInterfaceMethodRef("java/util/Iterator", "hasNext", "()Z")
	ms.b.EmitInvoke(bytecode.InvokeInterface, hasNextIdx, nil, 1)
	ms.b.EmitBranch(opcodes.IFEQ, lt.breakLabel)

	ms.b.EmitLoad(iterType, iterSlot)
	nextIdx := ms.class.file.CP.AddInterfaceMethodRef("java/util/Iterator", "next", "()Ljava/lang/Object;")
	ms.b.EmitInvoke(bytecode.InvokeInterface, nextIdx, nil, 1)
	if varType.IsReference() && !varType.Equal(types.Object) {
		classIdx := ms.class.file.CP.AddClass(varType.InternalName())
		ms.b.EmitCheckCast(classIdx)
	} else if varType.IsPrimitive() {
		classIdx := ms.classConstIdx(types.WrapperFor(varType.Primitive()))
		ms.b.EmitCheckCast(classIdx)
		ms.unbox(varType.Primitive())
	}
	varSlot := ms.declareLocal(n.VarName, varType)
	ms.b.EmitStore(varType, varSlot)

	ms.compileStmt(n.Body)

	ms.b.EmitBranch(opcodes.GOTO, top)
	ms.b.Mark(lt.breakLabel)
	ms.popLoop()
}

// ---- return / break / continue / throw ----

func (ms *methodScope) compileReturn(n *ast.ReturnStmt) {
	if n.Value == nil {
		ms.runFinallyChain()
		ms.b.Emit(opcodes.RETURN)
		return
	}
	vt := ms.compileExpr(n.Value)
	kind, ok := ms.c.Resolver.IsAssignable(vt, ms.returnType)
	if ok {
		ms.coerce(vt, ms.returnType, kind)
	}
	ms.narrowForStore(ms.returnType)
	ms.runFinallyChain()
	ms.b.Emit(retOpFor(ms.returnType))
}

func (ms *methodScope) compileBreak(n *ast.BreakStmt) {
	lt := ms.findLoop(n.Label, pos(n.Pos, ms.file))
	ms.runFinalliesFrom(lt.finallyDepth)
	ms.b.EmitBranch(opcodes.GOTO, lt.breakLabel)
}

func (ms *methodScope) compileContinue(n *ast.ContinueStmt) {
	lt := ms.findContinuable(n.Label, pos(n.Pos, ms.file))
	ms.runFinalliesFrom(lt.finallyDepth)
	ms.b.EmitBranch(opcodes.GOTO, lt.continueLabel)
}

func (ms *methodScope) compileThrow(n *ast.ThrowStmt) {
	ms.compileExpr(n.X)
	ms.b.Emit(opcodes.ATHROW)
}

func (ms *methodScope) compileLabeled(n *ast.LabeledStmt) {
	switch inner := n.Stmt.(type) {
	case *ast.WhileStmt:
		inner.Label = n.Label
		ms.compileStmt(inner)
	case *ast.DoWhileStmt:
		inner.Label = n.Label
		ms.compileStmt(inner)
	case *ast.ForStmt:
		inner.Label = n.Label
		ms.compileStmt(inner)
	case *ast.ForEachStmt:
		inner.Label = n.Label
		ms.compileStmt(inner)
	default:
		// A label on a plain statement/block only matters for a
		// `break Label;` that targets it (spec.md §4.6).
		lt := ms.pushLoopLabeled(n.Label, false)
		ms.compileStmt(n.Stmt)
		ms.b.Mark(lt.breakLabel)
		ms.popLoop()
	}
}
