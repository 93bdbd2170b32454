package bytecode

import (
	"testing"

	"github.com/jacobin-lang/jbc/cpool"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/types"
)

func TestSimpleAddMethodMaxStackAndLocals(t *testing.T) {
	cp := cpool.New()
	b := NewBuilder(cp, true) // static int add(int a, int b)
	slotA := b.AllocLocal(types.NewPrimitive(types.Int))
	slotB := b.AllocLocal(types.NewPrimitive(types.Int))
	b.EmitLoad(types.NewPrimitive(types.Int), slotA)
	b.EmitLoad(types.NewPrimitive(types.Int), slotB)
	b.Emit(opcodes.IADD)
	b.Emit(opcodes.IRETURN)

	code, maxStack, maxLocals, _, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if maxStack != 2 {
		t.Errorf("maxStack = %d, want 2", maxStack)
	}
	if maxLocals != 2 {
		t.Errorf("maxLocals = %d, want 2", maxLocals)
	}
	want := []byte{byte(opcodes.ILOAD_0), byte(opcodes.ILOAD_1), byte(opcodes.IADD), byte(opcodes.IRETURN)}
	if len(code) != len(want) {
		t.Fatalf("code = %v, want %v", code, want)
	}
	for i := range want {
		if code[i] != want[i] {
			t.Errorf("code[%d] = %#x, want %#x", i, code[i], want[i])
		}
	}
}

func TestForwardBranchPatched(t *testing.T) {
	cp := cpool.New()
	b := NewBuilder(cp, true)
	end := b.NewLabel()
	b.EmitIntConst(0)
	b.EmitBranch(opcodes.IFEQ, end)
	b.EmitIntConst(1)
	b.Mark(end)
	b.Emit(opcodes.RETURN)

	code, _, _, _, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	// ifeq operand is a 2-byte signed offset from the ifeq opcode
	// itself to the RETURN at the end.
	ifeqPos := 1 // after iconst_0
	hi, lo := code[ifeqPos+1], code[ifeqPos+2]
	offset := int16(uint16(hi)<<8 | uint16(lo))
	target := ifeqPos + int(offset)
	if code[target] != byte(opcodes.RETURN) {
		t.Errorf("branch target resolved to wrong offset %d, code=%v", target, code)
	}
}

func TestUnmarkedLabelFails(t *testing.T) {
	cp := cpool.New()
	b := NewBuilder(cp, true)
	l := b.NewLabel()
	b.EmitGoto(l)
	if _, _, _, _, err := b.Finish(); err == nil {
		t.Error("expected Finish to fail for a never-marked label")
	}
}

func TestWideLoadForHighSlot(t *testing.T) {
	cp := cpool.New()
	b := NewBuilder(cp, true)
	b.EmitLoad(types.NewPrimitive(types.Int), 300)
	code, _, _, _, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if code[0] != byte(opcodes.WIDE) || code[1] != byte(opcodes.ILOAD) {
		t.Errorf("expected wide iload prefix, got %v", code)
	}
}

func TestLongLocalConsumesTwoSlots(t *testing.T) {
	cp := cpool.New()
	b := NewBuilder(cp, true)
	slot := b.AllocLocal(types.NewPrimitive(types.Long))
	next := b.AllocLocal(types.NewPrimitive(types.Int))
	if next != slot+2 {
		t.Errorf("expected long to consume 2 slots, next = %d, want %d", next, slot+2)
	}
}

func TestIntConstSelection(t *testing.T) {
	cp := cpool.New()
	b := NewBuilder(cp, true)
	b.EmitIntConst(3)
	b.EmitIntConst(100)
	b.EmitIntConst(30000)
	b.EmitIntConst(70000)
	code, _, _, _, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if code[0] != byte(opcodes.ICONST_3) {
		t.Errorf("expected iconst_3, got %#x", code[0])
	}
	if code[1] != byte(opcodes.BIPUSH) {
		t.Errorf("expected bipush, got %#x", code[1])
	}
	if code[3] != byte(opcodes.SIPUSH) {
		t.Errorf("expected sipush, got %#x", code[3])
	}
	if code[6] != byte(opcodes.LDC) {
		t.Errorf("expected ldc for out-of-range int, got %#x", code[6])
	}
}

func TestStackUnderflowPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on stack underflow")
		}
	}()
	cp := cpool.New()
	b := NewBuilder(cp, true)
	b.Emit(opcodes.IADD)
}

func TestExceptionTableResolvesOffsets(t *testing.T) {
	cp := cpool.New()
	b := NewBuilder(cp, true)
	start := b.NewLabel()
	end := b.NewLabel()
	handler := b.NewLabel()
	b.Mark(start)
	b.EmitIntConst(1)
	b.Mark(end)
	b.EmitGoto(handler) // unrelated, just to advance the offset
	b.Mark(handler)
	b.Emit(opcodes.POP)
	b.AddExceptionRange(start, end, handler, 0)

	_, _, _, table, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("expected 1 exception table entry, got %d", len(table))
	}
	if table[0].StartPC != 0 {
		t.Errorf("StartPC = %d, want 0", table[0].StartPC)
	}
	if table[0].HandlerPC <= table[0].EndPC {
		t.Errorf("HandlerPC %d should be after EndPC %d", table[0].HandlerPC, table[0].EndPC)
	}
}
