/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// try/catch/finally compilation (spec.md §4.6). `finally` is inlined
// along every exit path of the protected region rather than emitted
// once and reached via jsr/ret, the way javac itself has compiled
// finally since Java 6: once at normal fall-through, once per catch
// clause, and once more in a catch-all handler that reruns it before
// rethrowing whatever escaped every declared catch.
package codegen

import (
	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/types"
)

func (ms *methodScope) compileTry(n *ast.TryStmt) {
	if n.Finally != nil {
		ms.pushFinally(n.Finally)
	}

	startLbl := ms.b.NewLabel()
	endLbl := ms.b.NewLabel()

	ms.b.Mark(startLbl)
	ms.compileStmt(n.Body)
	bodyEndLbl := ms.b.NewLabel()
	ms.b.Mark(bodyEndLbl)
	ms.compileFinallyInline(n.Finally)
	ms.b.EmitBranch(opcodes.GOTO, endLbl)

	lastRangeEnd := bodyEndLbl
	for _, cc := range n.Catches {
		handlerLbl := ms.b.NewLabel()
		excType := ms.c.resolveType(ms.ctx, cc.ExcType, ms.file)
		catchType := ms.classConstIdx(excType)
		ms.b.AddExceptionRange(startLbl, bodyEndLbl, handlerLbl, catchType)

		ms.b.MarkHandler(handlerLbl)
		mark := ms.b.ScopeMark()
		saved := ms.snapshotLocals()
		slot := ms.declareLocal(cc.VarName, excType)
		ms.b.EmitStore(excType, slot)
		ms.compileStmt(cc.Body)
		clauseEndLbl := ms.b.NewLabel()
		ms.b.Mark(clauseEndLbl)
		ms.compileFinallyInline(n.Finally)
		ms.b.EmitBranch(opcodes.GOTO, endLbl)
		ms.restoreLocals(saved)
		ms.b.ResetScope(mark)
		lastRangeEnd = clauseEndLbl
	}

	if n.Finally != nil {
		catchAllLbl := ms.b.NewLabel()
		ms.b.AddExceptionRange(startLbl, lastRangeEnd, catchAllLbl, 0)
		ms.b.MarkHandler(catchAllLbl)
		mark := ms.b.ScopeMark()
		saved := ms.snapshotLocals()
		excSlot := ms.declareLocal("$finally$exc", types.Object)
		ms.b.EmitStore(types.Object, excSlot)
		ms.compileFinallyInline(n.Finally)
		ms.b.EmitLoad(types.Object, excSlot)
		ms.b.Emit(opcodes.ATHROW)
		ms.restoreLocals(saved)
		ms.b.ResetScope(mark)

		ms.popFinally()
	}

	ms.b.Mark(endLbl)
}

// compileFinallyInline compiles one copy of finally's statements
// along an exit path. finally is temporarily popped off the active
// finally stack first: a return/break/continue inside the finally
// block itself must only unwind finally blocks OUTSIDE this try, never
// this one a second time.
func (ms *methodScope) compileFinallyInline(finally *ast.Block) {
	if finally == nil {
		return
	}
	ms.popFinally()
	mark := ms.b.ScopeMark()
	saved := ms.snapshotLocals()
	ms.compileStmt(finally)
	ms.restoreLocals(saved)
	ms.b.ResetScope(mark)
	ms.pushFinally(finally)
}
