/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Autoboxing/unboxing and primitive widening conversion insertion
// (spec.md §4.6 "autoboxing/unboxing inserted implicitly"). These
// helpers assume the source value is already on top of the operand
// stack and leave the converted value there in its place.
package codegen

import (
	"github.com/jacobin-lang/jbc/bytecode"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/resolver"
	"github.com/jacobin-lang/jbc/types"
)

// coerce emits whatever conversion takes a value of type from to a
// value of type to, per the resolver.AssignKind already computed at
// the call site (method argument binding, assignment, return).
func (ms *methodScope) coerce(from, to types.Type, kind resolver.AssignKind) {
	switch kind {
	case resolver.AssignIdentity:
		return
	case resolver.AssignWidening:
		ms.widenPrimitive(from.Primitive(), to.Primitive())
	case resolver.AssignBoxing:
		ms.box(from.Primitive())
	case resolver.AssignUnboxing:
		ms.unbox(to.Primitive())
	case resolver.AssignWideningReference:
		return // upcast needs no instruction; the verifier accepts it directly
	}
}

// widenPrimitive emits the i2l/i2f/... conversion chain from one
// primitive to a wider one (spec.md §4.6 "widening primitive
// conversion"); from == to is a no-op.
func (ms *methodScope) widenPrimitive(from, to types.Primitive) {
	if from == to {
		return
	}
	chain := widenChain(from, to)
	for _, op := range chain {
		ms.b.Emit(op)
	}
}

// widenChain returns the ordered conversion opcodes needed to widen
// from to to, going through int as the common staging point for the
// sub-int types (byte/short/char, which the JVM always represents as
// int on the stack).
func widenChain(from, to types.Primitive) []opcodes.Opcode {
	// byte/short/char are already represented as int on the stack; no
	// instruction is needed to treat one as another's source for a
	// same-category widen.
	stagedFrom := types.Int
	if from == types.Long || from == types.Float || from == types.Double {
		stagedFrom = from
	}
	if stagedFrom == to {
		return nil
	}
	switch stagedFrom {
	case types.Int:
		switch to {
		case types.Long:
			return []opcodes.Opcode{opcodes.I2L}
		case types.Float:
			return []opcodes.Opcode{opcodes.I2F}
		case types.Double:
			return []opcodes.Opcode{opcodes.I2D}
		}
	case types.Long:
		switch to {
		case types.Float:
			return []opcodes.Opcode{opcodes.L2F}
		case types.Double:
			return []opcodes.Opcode{opcodes.L2D}
		}
	case types.Float:
		if to == types.Double {
			return []opcodes.Opcode{opcodes.F2D}
		}
	}
	return nil
}

// box emits the `TYPE.valueOf(x)` call that wraps a primitive into
// its reference wrapper.
func (ms *methodScope) box(p types.Primitive) {
	wrapper := types.WrapperFor(p)
	prim := types.NewPrimitive(p)
	idx := ms.class.file.CP.AddMethodRef(wrapper.InternalName(), "valueOf", "("+prim.Descriptor()+")"+wrapper.Descriptor())
	ms.b.EmitInvoke(bytecode.InvokeStatic, idx, []int{prim.Category()}, 1)
}

// unbox emits the `x.xxxValue()` call that extracts a primitive from
// its reference wrapper.
func (ms *methodScope) unbox(p types.Primitive) {
	wrapper := types.WrapperFor(p)
	prim := types.NewPrimitive(p)
	method := types.UnboxMethod(p)
	idx := ms.class.file.CP.AddMethodRef(wrapper.InternalName(), method, "()"+prim.Descriptor())
	ms.b.EmitInvoke(bytecode.InvokeVirtual, idx, nil, prim.Category())
}

// narrowForStore emits the i2b/i2c/i2s truncation a byte/short/char
// local or field store needs after an int-typed computation (spec.md
// §4.6's sub-int arithmetic rule: every sub-int value is computed as
// int and truncated only when it settles into a sub-int slot).
func (ms *methodScope) narrowForStore(t types.Type) {
	if !t.IsPrimitive() {
		return
	}
	switch t.Primitive() {
	case types.Byte:
		ms.b.Emit(opcodes.I2B)
	case types.Char:
		ms.b.Emit(opcodes.I2C)
	case types.Short:
		ms.b.Emit(opcodes.I2S)
	}
}

// narrowChain returns the ordered conversion opcodes needed for a
// narrowing primitive cast (e.g. double to int, long to byte), empty
// if from/to isn't a narrowing pair. Narrowing from a wide type goes
// through int as the JVM's only staging point for the sub-int types,
// then truncates with i2b/i2c/i2s as narrowForStore does.
func narrowChain(from, to types.Primitive) []opcodes.Opcode {
	var ops []opcodes.Opcode
	switch from {
	case types.Long:
		switch to {
		case types.Int, types.Byte, types.Char, types.Short:
			ops = append(ops, opcodes.L2I)
		case types.Float:
			return []opcodes.Opcode{opcodes.L2F}
		case types.Double:
			return []opcodes.Opcode{opcodes.L2D}
		default:
			return nil
		}
	case types.Float:
		switch to {
		case types.Int, types.Byte, types.Char, types.Short:
			ops = append(ops, opcodes.F2I)
		case types.Long:
			return []opcodes.Opcode{opcodes.F2L}
		default:
			return nil
		}
	case types.Double:
		switch to {
		case types.Int, types.Byte, types.Char, types.Short:
			ops = append(ops, opcodes.D2I)
		case types.Long:
			return []opcodes.Opcode{opcodes.D2L}
		case types.Float:
			return []opcodes.Opcode{opcodes.D2F}
		default:
			return nil
		}
	case types.Int:
		// already staged as int; nothing to do unless truncating further
	default:
		return nil
	}
	switch to {
	case types.Byte:
		ops = append(ops, opcodes.I2B)
	case types.Char:
		ops = append(ops, opcodes.I2C)
	case types.Short:
		ops = append(ops, opcodes.I2S)
	}
	if from == types.Int && len(ops) == 0 {
		return nil
	}
	return ops
}

// narrowTo emits narrowChain's conversion, used after a compound
// assignment's arithmetic has been computed in the widened common
// type and must settle back into the target's declared (possibly
// narrower) type.
func (ms *methodScope) narrowTo(from, to types.Primitive) {
	if from == to {
		return
	}
	for _, op := range narrowChain(from, to) {
		ms.b.Emit(op)
	}
}
