/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// switch compilation (spec.md §4.6): int/char/byte/short lowers to a
// single tableswitch or lookupswitch chosen by case density; an enum
// tag lowers to a switch on ordinal(); a String tag lowers to javac's
// own two-level dispatch, a lookupswitch on hashCode() whose arms
// disambiguate collisions with a chain of equals() checks, landing on
// a second switch (by case index) that reaches the real case bodies.
// All three share the same fallthrough body layout.
package codegen

import (
	"sort"
	"unicode/utf16"

	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/bytecode"
	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/classpath"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/types"
)

func (ms *methodScope) compileSwitch(n *ast.SwitchStmt) {
	tagType := ms.staticTypeOf(n.Tag)
	switch {
	case tagType.IsReference() && tagType.InternalName() == "java/lang/String":
		ms.compileStringSwitch(n)
	case tagType.IsReference() && ms.isEnumType(tagType):
		ms.compileEnumSwitch(n, tagType)
	default:
		ms.compileIntSwitch(n)
	}
}

func (ms *methodScope) isEnumType(t types.Type) bool {
	ci, err := ms.c.Resolver.ClassInfo(t.InternalName(), pos(ast.Pos{}, ms.file))
	if err != nil {
		return false
	}
	return ci.AccessFlags&classfile.AccEnum != 0
}

// evalConstInt extracts the int32 value of a case label; case labels
// for an int/char/byte/short switch are always a literal of the tag's
// own family.
func (ms *methodScope) evalConstInt(e ast.Expr) int32 {
	switch lit := e.(type) {
	case *ast.IntLit:
		return lit.Value
	case *ast.CharLit:
		return int32(lit.Value)
	}
	ice(pos(e.ExprPos(), ms.file), "<switch>", "unsupported case label %T", e)
	return 0
}

type switchArm struct {
	bodyLabel bytecode.Label
	stmts     []ast.Stmt
}

// layoutArms allocates one body label per SwitchCase (preserving
// source order so fallthrough keeps working) and reports the default
// arm's index, or -1 if the switch has none.
func (ms *methodScope) layoutArms(cases []ast.SwitchCase) ([]switchArm, int) {
	arms := make([]switchArm, len(cases))
	defaultIdx := -1
	for i, c := range cases {
		arms[i] = switchArm{bodyLabel: ms.b.NewLabel(), stmts: c.Stmts}
		if c.Default {
			defaultIdx = i
		}
	}
	return arms, defaultIdx
}

// compileArmBodies emits every arm's statements, in source order, so
// a case without a break falls straight into the next one.
func (ms *methodScope) compileArmBodies(arms []switchArm) {
	for _, a := range arms {
		ms.b.Mark(a.bodyLabel)
		for _, st := range a.stmts {
			ms.compileStmt(st)
		}
	}
}

func (ms *methodScope) compileIntSwitch(n *ast.SwitchStmt) {
	ms.compileExpr(n.Tag)

	arms, defaultIdx := ms.layoutArms(n.Cases)
	endLbl := ms.b.NewLabel()
	defaultLbl := endLbl
	if defaultIdx >= 0 {
		defaultLbl = arms[defaultIdx].bodyLabel
	}

	type pair struct {
		val int32
		lbl bytecode.Label
	}
	var pairs []pair
	for i, c := range n.Cases {
		if c.Default {
			continue
		}
		for _, v := range c.Values {
			pairs = append(pairs, pair{val: ms.evalConstInt(v), lbl: arms[i].bodyLabel})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].val < pairs[j].val })

	if len(pairs) == 0 {
		ms.b.Emit(opcodes.POP)
		ms.b.EmitBranch(opcodes.GOTO, defaultLbl)
	} else {
		low, high := pairs[0].val, pairs[len(pairs)-1].val
		rangeSize := int64(high) - int64(low) + 1
		// spec.md's density rule: tableswitch once at least half the
		// contiguous range is filled, lookupswitch otherwise.
		if float64(len(pairs))/float64(rangeSize) >= 0.5 && rangeSize <= 1<<20 {
			targets := make([]bytecode.Label, rangeSize)
			for i := range targets {
				targets[i] = defaultLbl
			}
			for _, p := range pairs {
				targets[int64(p.val)-int64(low)] = p.lbl
			}
			ms.b.EmitTableSwitch(low, high, defaultLbl, targets)
		} else {
			swPairs := make([]bytecode.SwitchPair, len(pairs))
			for i, p := range pairs {
				swPairs[i] = bytecode.SwitchPair{Match: p.val, Target: p.lbl}
			}
			ms.b.EmitLookupSwitch(defaultLbl, swPairs)
		}
	}

	ms.pushSwitchBreak(endLbl)
	ms.compileArmBodies(arms)
	ms.b.Mark(endLbl)
	ms.popLoop()
}

// compileEnumSwitch dispatches on the tag's ordinal() — the ordinal
// of a constant is its position among the AccEnum-flagged fields of
// its declaring class, in declaration order (the only place that
// ordering survives once a class is reduced to a classpath.ClassInfo).
func (ms *methodScope) compileEnumSwitch(n *ast.SwitchStmt, tagType types.Type) {
	owner := tagType.InternalName()
	ci, err := ms.c.Resolver.ClassInfo(owner, pos(n.Pos, ms.file))
	if err != nil {
		failErr(err.(*diag.Error))
	}
	ordinals := enumOrdinals(ci)

	ms.compileExpr(n.Tag)
	ordIdx := ms.class.file.CP.AddMethodRef(owner, "ordinal", "()I")
	ms.b.EmitInvoke(bytecode.InvokeVirtual, ordIdx, nil, 1)

	arms, defaultIdx := ms.layoutArms(n.Cases)
	endLbl := ms.b.NewLabel()
	defaultLbl := endLbl
	if defaultIdx >= 0 {
		defaultLbl = arms[defaultIdx].bodyLabel
	}

	type pair struct {
		val int32
		lbl bytecode.Label
	}
	var pairs []pair
	for i, c := range n.Cases {
		if c.Default {
			continue
		}
		for _, v := range c.Values {
			name, ok := v.(*ast.Name)
			if !ok {
				ice(pos(v.ExprPos(), ms.file), "<switch>", "enum case label must be a bare constant name")
				continue
			}
			ord, ok := ordinals[name.Ident]
			if !ok {
				fail(pos(v.ExprPos(), ms.file), diag.NameResolutionError, "%s is not a constant of %s", name.Ident, owner)
				continue
			}
			pairs = append(pairs, pair{val: int32(ord), lbl: arms[i].bodyLabel})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].val < pairs[j].val })

	swPairs := make([]bytecode.SwitchPair, len(pairs))
	for i, p := range pairs {
		swPairs[i] = bytecode.SwitchPair{Match: p.val, Target: p.lbl}
	}
	ms.b.EmitLookupSwitch(defaultLbl, swPairs)

	ms.pushSwitchBreak(endLbl)
	ms.compileArmBodies(arms)
	ms.b.Mark(endLbl)
	ms.popLoop()
}

// enumOrdinals maps each enum constant's name to its ordinal: its
// position among ci's AccEnum-flagged fields, in declaration order.
func enumOrdinals(ci *classpath.ClassInfo) map[string]int {
	out := map[string]int{}
	ord := 0
	for _, f := range ci.Fields {
		if f.AccessFlags&classfile.AccEnum == 0 {
			continue
		}
		out[f.Name] = ord
		ord++
	}
	return out
}

// compileStringSwitch reproduces javac's own desugaring: hashCode()
// picks a small candidate group via lookupswitch, each group
// disambiguates any hash collision with a chain of equals() checks
// that settle an index local, and a second lookupswitch on that index
// reaches the real case body. The index starts at -1 (no match), so a
// switch with no default simply falls through to its end.
func (ms *methodScope) compileStringSwitch(n *ast.SwitchStmt) {
	mark := ms.b.ScopeMark()
	saved := ms.snapshotLocals()

	ms.compileExpr(n.Tag)
	tagSlot := ms.declareLocal("$switch$tag", types.StringType)
	ms.b.EmitStore(types.StringType, tagSlot)

	intType := types.NewPrimitive(types.Int)
	idxSlot := ms.declareLocal("$switch$idx", intType)
	ms.b.EmitIntConst(-1)
	ms.b.EmitStore(intType, idxSlot)

	arms, defaultIdx := ms.layoutArms(n.Cases)
	endLbl := ms.b.NewLabel()
	dispatchLbl := ms.b.NewLabel()
	defaultLbl := endLbl
	if defaultIdx >= 0 {
		defaultLbl = arms[defaultIdx].bodyLabel
	}

	type label struct {
		val    string
		armIdx int
	}
	groupsByHash := map[int32][]label{}
	for i, c := range n.Cases {
		if c.Default {
			continue
		}
		for _, v := range c.Values {
			lit, ok := v.(*ast.StringLit)
			if !ok {
				ice(pos(v.ExprPos(), ms.file), "<switch>", "string case label must be a string literal")
				continue
			}
			h := javaStringHashCode(lit.Value)
			groupsByHash[h] = append(groupsByHash[h], label{val: lit.Value, armIdx: i})
		}
	}
	hashes := make([]int32, 0, len(groupsByHash))
	for h := range groupsByHash {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	groupLbls := make([]bytecode.Label, len(hashes))
	for i := range groupLbls {
		groupLbls[i] = ms.b.NewLabel()
	}

	ms.b.EmitLoad(types.StringType, tagSlot)
	hashIdx := ms.class.file.CP.AddMethodRef("java/lang/String", "hashCode", "()I")
	ms.b.EmitInvoke(bytecode.InvokeVirtual, hashIdx, nil, 1)
	if len(hashes) == 0 {
		ms.b.Emit(opcodes.POP)
		ms.b.EmitBranch(opcodes.GOTO, dispatchLbl)
	} else {
		swPairs := make([]bytecode.SwitchPair, len(hashes))
		for i, h := range hashes {
			swPairs[i] = bytecode.SwitchPair{Match: h, Target: groupLbls[i]}
		}
		ms.b.EmitLookupSwitch(dispatchLbl, swPairs)
	}

	equalsIdx := ms.class.file.CP.AddMethodRef("java/lang/String", "equals", "(Ljava/lang/Object;)Z")
	for i, h := range hashes {
		ms.b.Mark(groupLbls[i])
		for _, item := range groupsByHash[h] {
			nextLbl := ms.b.NewLabel()
			ms.b.EmitLoad(types.StringType, tagSlot)
			ms.b.EmitStringConst(item.val)
			ms.b.EmitInvoke(bytecode.InvokeVirtual, equalsIdx, []int{1}, 1)
			ms.b.EmitBranch(opcodes.IFEQ, nextLbl)
			ms.b.EmitIntConst(int32(item.armIdx))
			ms.b.EmitStore(intType, idxSlot)
			ms.b.EmitBranch(opcodes.GOTO, dispatchLbl)
			ms.b.Mark(nextLbl)
		}
		ms.b.EmitBranch(opcodes.GOTO, dispatchLbl)
	}

	ms.b.Mark(dispatchLbl)
	ms.b.EmitLoad(intType, idxSlot)
	var idxPairs []bytecode.SwitchPair
	for i, c := range n.Cases {
		if c.Default {
			continue
		}
		idxPairs = append(idxPairs, bytecode.SwitchPair{Match: int32(i), Target: arms[i].bodyLabel})
	}
	if len(idxPairs) == 0 {
		ms.b.Emit(opcodes.POP)
		ms.b.EmitBranch(opcodes.GOTO, defaultLbl)
	} else {
		ms.b.EmitLookupSwitch(defaultLbl, idxPairs)
	}

	ms.pushSwitchBreak(endLbl)
	ms.compileArmBodies(arms)
	ms.b.Mark(endLbl)
	ms.popLoop()

	ms.restoreLocals(saved)
	ms.b.ResetScope(mark)
}

// javaStringHashCode reproduces java.lang.String.hashCode()'s
// s[0]*31^(n-1) + ... + s[n-1] formula over the string's UTF-16 code
// units, matching what the compiled tag value computes at runtime.
func javaStringHashCode(s string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(unit)
	}
	return h
}
