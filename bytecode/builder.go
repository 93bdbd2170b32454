/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package bytecode is the instruction-selecting assembler codegen
// drives to produce one method body (spec.md §4.2). It tracks
// stack depth and local-slot usage the way a hand-written JVM
// interpreter's frame setup does (grounded on jvm/initializerBlock.go's
// runInitializationBlock, which walks a method body maintaining an
// analogous running stack), and resolves forward branches through a
// label/patch list instead of two-pass offset computation.
package bytecode

import (
	"fmt"

	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/cpool"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/types"
)

// Label is an opaque forward-branch target. NewLabel creates one;
// Mark binds it to the current code offset once that point is
// reached.
type Label int

const unmarked = -1

// ExceptionRange describes one protected region, recorded by label so
// the handler can lie either before or after the protected code.
// CatchType is a constant-pool Class index, or 0 for a catch-all
// (used to inline `finally`, spec.md §4.6).
type ExceptionRange struct {
	Start, End, Handler Label
	CatchType           int
}

// Builder assembles one method_info's Code attribute body.
type Builder struct {
	cp   *cpool.Pool
	code []byte

	curStack, maxStack int
	nextLocal          int
	maxLocals          int

	labels  []int // offset of each label, or unmarked
	patches []patch

	exceptions []ExceptionRange
}

type patch struct {
	pos        int // offset of the first byte of the operand to rewrite
	label      Label
	instrStart int // offset of the branch instruction's own opcode byte
	wide       bool // 4-byte operand (goto_w/jsr_w) instead of 2-byte
}

// NewBuilder creates a Builder for a method body. isStatic controls
// whether local slot 0 is reserved for `this`.
func NewBuilder(cp *cpool.Pool, isStatic bool) *Builder {
	b := &Builder{cp: cp}
	if !isStatic {
		b.nextLocal = 1
		b.maxLocals = 1
	}
	return b
}

// AllocLocal reserves the next available local slot(s) for a value of
// type t (two consecutive slots for long/double) and returns the
// first slot index.
func (b *Builder) AllocLocal(t types.Type) int {
	slot := b.nextLocal
	b.nextLocal += t.Category()
	if b.nextLocal > b.maxLocals {
		b.maxLocals = b.nextLocal
	}
	return slot
}

// ScopeMark returns a marker for the current local-slot high-water
// point; ResetScope(mark) releases slots allocated since then so
// sibling blocks (e.g. two non-overlapping `for` loops) can reuse
// them, without lowering the method's recorded max_locals.
func (b *Builder) ScopeMark() int { return b.nextLocal }

// ResetScope releases locals allocated after mark.
func (b *Builder) ResetScope(mark int) { b.nextLocal = mark }

// NewLabel allocates a fresh, unmarked branch target.
func (b *Builder) NewLabel() Label {
	b.labels = append(b.labels, unmarked)
	return Label(len(b.labels) - 1)
}

// Mark binds l to the current code offset (the position the next
// emitted instruction will occupy).
func (b *Builder) Mark(l Label) {
	b.labels[l] = len(b.code)
}

// Offset reports the current code offset (used for pc-sensitive
// diagnostics and for line-number table construction in codegen).
func (b *Builder) Offset() int { return len(b.code) }

// StackDepth reports the current simulated operand-stack depth.
func (b *Builder) StackDepth() int { return b.curStack }

func (b *Builder) apply(effect opcodes.StackEffect) {
	b.curStack -= effect.Pop
	if b.curStack < 0 {
		panic(fmt.Sprintf("bytecode: stack underflow, depth %d after popping %d", b.curStack, effect.Pop))
	}
	b.curStack += effect.Push
	if b.curStack > b.maxStack {
		b.maxStack = b.curStack
	}
}

// Emit appends a zero-operand instruction with op's fixed stack
// effect (panics if op has no fixed effect — use a dedicated Emit*
// helper instead).
func (b *Builder) Emit(op opcodes.Opcode) {
	eff, ok := opcodes.Effect(op)
	if !ok {
		panic(fmt.Sprintf("bytecode: %v has no fixed stack effect, use a dedicated Emit* method", op))
	}
	b.code = append(b.code, byte(op))
	b.apply(eff)
}

// EmitRaw appends op with a pre-computed stack effect, for the few
// fixed-effect opcodes that still need an explicit override (none in
// current use, kept for codegen desugaring that composes instructions
// the table doesn't model, e.g. AASTORE following an object cast).
func (b *Builder) EmitRaw(op opcodes.Opcode, effect opcodes.StackEffect) {
	b.code = append(b.code, byte(op))
	b.apply(effect)
}

func (b *Builder) u1(v int) {
	b.code = append(b.code, byte(v))
}

func (b *Builder) u2(v int) {
	b.code = append(b.code, byte(v>>8), byte(v))
}

// EmitU1 emits op followed by a one-byte unsigned operand (e.g.
// NEWARRAY's atype, or BIPUSH's immediate).
func (b *Builder) EmitU1(op opcodes.Opcode, effect opcodes.StackEffect, operand int) {
	b.code = append(b.code, byte(op))
	b.u1(operand)
	b.apply(effect)
}

// EmitU2 emits op followed by a two-byte unsigned operand (a
// constant-pool index, or SIPUSH's immediate).
func (b *Builder) EmitU2(op opcodes.Opcode, effect opcodes.StackEffect, operand int) {
	b.code = append(b.code, byte(op))
	b.u2(operand)
	b.apply(effect)
}

// EmitBranch emits a branch instruction (conditional or GOTO) whose
// 2-byte signed target offset is patched in at Finish once every
// label is resolved.
func (b *Builder) EmitBranch(op opcodes.Opcode, target Label) {
	eff, ok := opcodes.Effect(op)
	if !ok {
		panic(fmt.Sprintf("bytecode: %v is not a recognized branch opcode", op))
	}
	instrStart := len(b.code)
	b.code = append(b.code, byte(op))
	pos := len(b.code)
	b.code = append(b.code, 0, 0)
	b.patches = append(b.patches, patch{pos: pos, label: target, instrStart: instrStart})
	b.apply(eff)
}

// EmitGoto emits an unconditional GOTO to target.
func (b *Builder) EmitGoto(target Label) {
	b.EmitBranch(opcodes.GOTO, target)
}

// EmitLoad emits the shortest form of a load of local slot for
// a value of type t: the dedicated _0.._3 opcode when slot <= 3, the
// 1-byte indexed form when slot <= 255, or a WIDE-prefixed 2-byte
// indexed form otherwise (spec.md §4.2 "wide prefix").
func (b *Builder) EmitLoad(t types.Type, slot int) {
	family := loadFamily(t)
	b.emitSlotOp(family.short0, family.general, 1, slot)
}

// EmitStore is the store-side counterpart of EmitLoad.
func (b *Builder) EmitStore(t types.Type, slot int) {
	family := storeFamily(t)
	b.emitSlotOp(family.short0, family.general, 0, slot)
}

type slotOpFamily struct {
	short0  opcodes.Opcode // the _0 form; _1/_2/_3 follow consecutively
	general opcodes.Opcode // the indexed form, e.g. ILOAD
}

func loadFamily(t types.Type) slotOpFamily {
	if t.IsReference() {
		return slotOpFamily{opcodes.ALOAD_0, opcodes.ALOAD}
	}
	switch t.Primitive() {
	case types.Long:
		return slotOpFamily{opcodes.LLOAD_0, opcodes.LLOAD}
	case types.Float:
		return slotOpFamily{opcodes.FLOAD_0, opcodes.FLOAD}
	case types.Double:
		return slotOpFamily{opcodes.DLOAD_0, opcodes.DLOAD}
	default: // boolean, byte, short, char, int all use the int forms
		return slotOpFamily{opcodes.ILOAD_0, opcodes.ILOAD}
	}
}

func storeFamily(t types.Type) slotOpFamily {
	if t.IsReference() {
		return slotOpFamily{opcodes.ASTORE_0, opcodes.ASTORE}
	}
	switch t.Primitive() {
	case types.Long:
		return slotOpFamily{opcodes.LSTORE_0, opcodes.LSTORE}
	case types.Float:
		return slotOpFamily{opcodes.FSTORE_0, opcodes.FSTORE}
	case types.Double:
		return slotOpFamily{opcodes.DSTORE_0, opcodes.DSTORE}
	default:
		return slotOpFamily{opcodes.ISTORE_0, opcodes.ISTORE}
	}
}

// pushCount is 1 for a load (pushes the value) and 0 for a store (pops
// it); category is folded in by the caller already owning t.
func (b *Builder) emitSlotOp(short0, general opcodes.Opcode, pushCount int, slot int) {
	category := 1
	if short0 == opcodes.LLOAD_0 || short0 == opcodes.DLOAD_0 || short0 == opcodes.LSTORE_0 || short0 == opcodes.DSTORE_0 {
		category = 2
	}
	effect := opcodes.StackEffect{}
	if pushCount == 1 {
		effect.Push = category
	} else {
		effect.Pop = category
	}
	switch {
	case slot >= 0 && slot <= 3:
		b.code = append(b.code, byte(short0+opcodes.Opcode(slot)))
		b.apply(effect)
	case slot <= 255:
		b.code = append(b.code, byte(general))
		b.u1(slot)
		b.apply(effect)
	default:
		b.code = append(b.code, byte(opcodes.WIDE), byte(general))
		b.u2(slot)
		b.apply(effect)
	}
}

// EmitIinc increments local slot by delta, using the WIDE-prefixed
// form when the slot doesn't fit in an unsigned byte or the delta
// doesn't fit in a signed byte.
func (b *Builder) EmitIinc(slot, delta int) {
	if slot <= 255 && delta >= -128 && delta <= 127 {
		b.code = append(b.code, byte(opcodes.IINC))
		b.u1(slot)
		b.code = append(b.code, byte(int8(delta)))
		return
	}
	b.code = append(b.code, byte(opcodes.WIDE), byte(opcodes.IINC))
	b.u2(slot)
	b.code = append(b.code, byte(delta>>8), byte(delta))
}

// EmitIntConst pushes v using the shortest available form: iconst_*
// for -1..5, bipush for a signed byte, sipush for a signed short,
// otherwise an Integer constant-pool entry via ldc/ldc_w.
func (b *Builder) EmitIntConst(v int32) {
	switch {
	case v >= -1 && v <= 5:
		b.Emit(opcodes.ICONST_0 + opcodes.Opcode(v))
	case v >= -128 && v <= 127:
		b.EmitU1(opcodes.BIPUSH, opcodes.StackEffect{Push: 1}, int(int8(v)))
	case v >= -32768 && v <= 32767:
		b.EmitU2(opcodes.SIPUSH, opcodes.StackEffect{Push: 1}, int(int16(v)))
	default:
		b.emitLdc(b.cp.AddInteger(v), 1)
	}
}

// EmitLongConst pushes v using lconst_0/1 or an ldc2_w Long entry.
func (b *Builder) EmitLongConst(v int64) {
	if v == 0 {
		b.Emit(opcodes.LCONST_0)
		return
	}
	if v == 1 {
		b.Emit(opcodes.LCONST_1)
		return
	}
	b.emitLdc(b.cp.AddLong(v), 2)
}

// EmitFloatConst pushes v using fconst_0/1/2 or an ldc Float entry.
func (b *Builder) EmitFloatConst(v float32) {
	switch v {
	case 0:
		b.Emit(opcodes.FCONST_0)
	case 1:
		b.Emit(opcodes.FCONST_1)
	case 2:
		b.Emit(opcodes.FCONST_2)
	default:
		b.emitLdc(b.cp.AddFloat(v), 1)
	}
}

// EmitDoubleConst pushes v using dconst_0/1 or an ldc2_w Double entry.
func (b *Builder) EmitDoubleConst(v float64) {
	switch v {
	case 0:
		b.Emit(opcodes.DCONST_0)
	case 1:
		b.Emit(opcodes.DCONST_1)
	default:
		b.emitLdc(b.cp.AddDouble(v), 2)
	}
}

// EmitStringConst pushes the interned literal s via ldc/ldc_w.
func (b *Builder) EmitStringConst(s string) {
	b.emitLdc(b.cp.AddString(s), 1)
}

// emitLdc selects ldc (index <= 255, category 1), ldc_w (index >
// 255, category 1), or ldc2_w (category 2, long/double only — always
// wide-indexed per the class-file format).
func (b *Builder) emitLdc(index, category int) {
	if category == 2 {
		b.code = append(b.code, byte(opcodes.LDC2_W))
		b.u2(index)
		b.apply(opcodes.StackEffect{Push: 2})
		return
	}
	if index <= 255 {
		b.code = append(b.code, byte(opcodes.LDC))
		b.u1(index)
	} else {
		b.code = append(b.code, byte(opcodes.LDC_W))
		b.u2(index)
	}
	b.apply(opcodes.StackEffect{Push: 1})
}

// EmitGetStatic/EmitPutStatic/EmitGetField/EmitPutField carry their
// own stack effect because it depends on the resolved field's
// category, which opcodes.Effect cannot know.
func (b *Builder) EmitGetStatic(fieldRefIndex int, fieldType types.Type) {
	b.EmitU2(opcodes.GETSTATIC, opcodes.StackEffect{Push: fieldType.Category()}, fieldRefIndex)
}

func (b *Builder) EmitPutStatic(fieldRefIndex int, fieldType types.Type) {
	b.EmitU2(opcodes.PUTSTATIC, opcodes.StackEffect{Pop: fieldType.Category()}, fieldRefIndex)
}

func (b *Builder) EmitGetField(fieldRefIndex int, fieldType types.Type) {
	b.EmitU2(opcodes.GETFIELD, opcodes.StackEffect{Pop: 1, Push: fieldType.Category()}, fieldRefIndex)
}

func (b *Builder) EmitPutField(fieldRefIndex int, fieldType types.Type) {
	b.EmitU2(opcodes.PUTFIELD, opcodes.StackEffect{Pop: 1 + fieldType.Category()}, fieldRefIndex)
}

// InvokeKind selects which invoke* opcode a call site compiles to
// (spec.md §4.6 "invocation"): a private, constructor, or super call
// is invokespecial; a static call is invokestatic; a call against an
// interface-typed receiver is invokeinterface; everything else is
// invokevirtual.
type InvokeKind int

const (
	InvokeVirtual InvokeKind = iota
	InvokeSpecial
	InvokeStatic
	InvokeInterface
)

// EmitInvoke emits a method call. argCategories is the category of
// each formal argument already pushed, in order; returnCategory is
// the return type's category (0 for void). For instance calls the
// receiver is assumed already pushed beneath the arguments.
func (b *Builder) EmitInvoke(kind InvokeKind, methodRefIndex int, argCategories []int, returnCategory int) {
	pop := 0
	for _, c := range argCategories {
		pop += c
	}
	switch kind {
	case InvokeVirtual:
		b.EmitU2(opcodes.INVOKEVIRTUAL, opcodes.StackEffect{Pop: pop + 1, Push: returnCategory}, methodRefIndex)
	case InvokeSpecial:
		b.EmitU2(opcodes.INVOKESPECIAL, opcodes.StackEffect{Pop: pop + 1, Push: returnCategory}, methodRefIndex)
	case InvokeStatic:
		b.EmitU2(opcodes.INVOKESTATIC, opcodes.StackEffect{Pop: pop, Push: returnCategory}, methodRefIndex)
	case InvokeInterface:
		count := pop + 1
		b.code = append(b.code, byte(opcodes.INVOKEINTERFACE))
		b.u2(methodRefIndex)
		b.u1(count)
		b.u1(0)
		b.apply(opcodes.StackEffect{Pop: count, Push: returnCategory})
	}
}

// EmitInvokeDynamic emits an invokedynamic call site (spec.md §4.6
// "lambdas"): a trailing two zero bytes are mandated by the class
// file format.
func (b *Builder) EmitInvokeDynamic(invokeDynamicIndex int, argCategories []int, returnCategory int) {
	pop := 0
	for _, c := range argCategories {
		pop += c
	}
	b.code = append(b.code, byte(opcodes.INVOKEDYNAMIC))
	b.u2(invokeDynamicIndex)
	b.u1(0)
	b.u1(0)
	b.apply(opcodes.StackEffect{Pop: pop, Push: returnCategory})
}

// EmitNew pushes an uninitialized instance of classIndex.
func (b *Builder) EmitNew(classIndex int) {
	b.EmitU2(opcodes.NEW, opcodes.StackEffect{Push: 1}, classIndex)
}

// EmitNewArray creates a 1-dimensional array of a primitive type.
func (b *Builder) EmitNewArray(atype int) {
	b.EmitU1(opcodes.NEWARRAY, opcodes.StackEffect{Pop: 1, Push: 1}, atype)
}

// EmitANewArray creates a 1-dimensional array of a reference type.
func (b *Builder) EmitANewArray(classIndex int) {
	b.EmitU2(opcodes.ANEWARRAY, opcodes.StackEffect{Pop: 1, Push: 1}, classIndex)
}

// EmitMultiANewArray creates a multi-dimensional array; dims length
// operands are already on the stack, one per declared dimension.
func (b *Builder) EmitMultiANewArray(classIndex, dims int) {
	if dims < 1 || dims > 255 {
		panic(fmt.Sprintf("bytecode: multianewarray dims %d out of range", dims))
	}
	b.code = append(b.code, byte(opcodes.MULTIANEWARRAY))
	b.u2(classIndex)
	b.u1(dims)
	b.apply(opcodes.StackEffect{Pop: dims, Push: 1})
}

// EmitCheckCast/EmitInstanceOf take a resolved class-pool index.
func (b *Builder) EmitCheckCast(classIndex int) {
	b.EmitU2(opcodes.CHECKCAST, opcodes.StackEffect{Pop: 1, Push: 1}, classIndex)
}

func (b *Builder) EmitInstanceOf(classIndex int) {
	b.EmitU2(opcodes.INSTANCEOF, opcodes.StackEffect{Pop: 1, Push: 1}, classIndex)
}

// SwitchPair is one lookupswitch match/target row.
type SwitchPair struct {
	Match  int32
	Target Label
}

// EmitTableSwitch emits a tableswitch over the contiguous range
// [low, high], padding to the next 4-byte boundary measured from the
// start of the method, per spec.md §4.6's density rule (the choice
// between tableswitch and lookupswitch is codegen's, not the
// builder's — the builder only knows how to lay either one out).
func (b *Builder) EmitTableSwitch(low, high int32, defaultTarget Label, targets []Label) {
	instrStart := len(b.code)
	b.code = append(b.code, byte(opcodes.TABLESWITCH))
	b.padTo4(len(b.code))
	defPos := len(b.code)
	b.code = append(b.code, 0, 0, 0, 0)
	b.patches = append(b.patches, patch{pos: defPos, label: defaultTarget, instrStart: instrStart, wide: true})
	b.i4(low)
	b.i4(high)
	for _, t := range targets {
		pos := len(b.code)
		b.code = append(b.code, 0, 0, 0, 0)
		b.patches = append(b.patches, patch{pos: pos, label: t, instrStart: instrStart, wide: true})
	}
	b.apply(opcodes.StackEffect{Pop: 1})
}

// EmitLookupSwitch emits a lookupswitch over an arbitrary set of
// match values, which codegen is responsible for presenting in
// ascending order (class-file format requirement).
func (b *Builder) EmitLookupSwitch(defaultTarget Label, pairs []SwitchPair) {
	instrStart := len(b.code)
	b.code = append(b.code, byte(opcodes.LOOKUPSWITCH))
	b.padTo4(len(b.code))
	defPos := len(b.code)
	b.code = append(b.code, 0, 0, 0, 0)
	b.patches = append(b.patches, patch{pos: defPos, label: defaultTarget, instrStart: instrStart, wide: true})
	b.i4(int32(len(pairs)))
	for _, p := range pairs {
		b.i4(p.Match)
		pos := len(b.code)
		b.code = append(b.code, 0, 0, 0, 0)
		b.patches = append(b.patches, patch{pos: pos, label: p.Target, instrStart: instrStart, wide: true})
	}
	b.apply(opcodes.StackEffect{Pop: 1})
}

func (b *Builder) padTo4(offset int) {
	for offset%4 != 0 {
		b.code = append(b.code, 0)
		offset++
	}
}

func (b *Builder) i4(v int32) {
	b.code = append(b.code, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// AddExceptionRange records a protected region; start is inclusive,
// end is exclusive, per the class-file format.
func (b *Builder) AddExceptionRange(start, end, handler Label, catchType int) {
	b.exceptions = append(b.exceptions, ExceptionRange{Start: start, End: end, Handler: handler, CatchType: catchType})
}

// MarkHandler marks l, the way Mark does, and additionally resets the
// simulated operand stack to hold exactly the one value a handler
// always starts with (the caught throwable) — the JVM discards
// whatever was on the stack in the protected region and pushes just
// that reference when dispatching to a handler, which the builder's
// otherwise-linear stack simulation has no way to know on its own.
func (b *Builder) MarkHandler(l Label) {
	b.Mark(l)
	b.curStack = 1
	if b.maxStack < 1 {
		b.maxStack = 1
	}
}

// Finish resolves every label reference and returns the completed
// Code attribute payload components: the instruction bytes, the
// high-water max_stack/max_locals, and the resolved exception table.
// Exception ranges are emitted in the order they were added — codegen
// must add the most deeply nested handler first, so that a handler
// whose range is a subset of another's precedes it (spec.md §8
// property #3's exception-table-ordering invariant).
func (b *Builder) Finish() (code []byte, maxStack, maxLocals uint16, table []classfile.ExceptionTableEntry, err error) {
	for _, p := range b.patches {
		target := b.labels[p.label]
		if target == unmarked {
			return nil, 0, 0, nil, fmt.Errorf("bytecode: label %d was never marked", p.label)
		}
		if p.wide {
			offset := int32(target - p.instrStart)
			b.code[p.pos] = byte(offset >> 24)
			b.code[p.pos+1] = byte(offset >> 16)
			b.code[p.pos+2] = byte(offset >> 8)
			b.code[p.pos+3] = byte(offset)
			continue
		}
		offset := target - p.instrStart
		if offset < -32768 || offset > 32767 {
			return nil, 0, 0, nil, fmt.Errorf("bytecode: branch offset %d out of 16-bit range", offset)
		}
		b.code[p.pos] = byte(int16(offset) >> 8)
		b.code[p.pos+1] = byte(int16(offset))
	}

	table = make([]classfile.ExceptionTableEntry, 0, len(b.exceptions))
	for _, e := range b.exceptions {
		start, end, handler := b.labels[e.Start], b.labels[e.End], b.labels[e.Handler]
		if start == unmarked || end == unmarked || handler == unmarked {
			return nil, 0, 0, nil, fmt.Errorf("bytecode: exception range references an unmarked label")
		}
		table = append(table, classfile.ExceptionTableEntry{
			StartPC:   uint16(start),
			EndPC:     uint16(end),
			HandlerPC: uint16(handler),
			CatchType: e.CatchType,
		})
	}

	return b.code, uint16(b.maxStack), uint16(b.maxLocals), table, nil
}
