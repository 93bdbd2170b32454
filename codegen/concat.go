/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// String concatenation desugaring (spec.md §4.6): `a + b + c` where
// any operand is a String lowers to `new StringBuilder().append(a)
// .append(b).append(c).toString()`, choosing the most specific
// append overload StringBuilder declares for each operand's static
// type (spec.md §4.2's invoke* selection already covers the call
// itself; this file only walks the `+` chain and picks the overload).
package codegen

import (
	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/bytecode"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/types"
)

// isStringConcat reports whether b is a `+` whose result must be
// computed as a String — either operand's static type is String, or
// (recursively) the other side of a left-leaning `+` chain is itself
// a concatenation.
func (ms *methodScope) isStringConcat(b *ast.Binary) bool {
	if b.Op != "+" {
		return false
	}
	if lb, ok := b.Left.(*ast.Binary); ok && ms.isStringConcat(lb) {
		return true
	}
	return ms.staticTypeIsStringLike(b.Left) || ms.staticTypeIsStringLike(b.Right)
}

func (ms *methodScope) staticTypeIsStringLike(e ast.Expr) bool {
	if _, ok := e.(*ast.StringLit); ok {
		return true
	}
	t := ms.staticTypeOf(e)
	return t.IsReference() && !t.IsArray() && t.InternalName() == "java/lang/String"
}

// compileStringConcat flattens b's `+` chain left-to-right into a
// StringBuilder append chain and returns the resulting String.
func (ms *methodScope) compileStringConcat(b *ast.Binary) types.Type {
	operands := ms.flattenConcat(b)

	classIdx := ms.class.file.CP.AddClass("java/lang/StringBuilder")
	ms.b.EmitNew(classIdx)
	ms.b.Emit(opcodes.DUP)
	ctorIdx := ms.class.file.CP.AddMethodRef("java/lang/StringBuilder", "<init>", "()V")
	ms.b.EmitInvoke(bytecode.InvokeSpecial, ctorIdx, nil, 0)

	for _, operand := range operands {
		t := ms.compileExpr(operand)
		appendDesc := appendDescriptorFor(t)
		idx := ms.class.file.CP.AddMethodRef("java/lang/StringBuilder", "append", "("+appendDesc+")Ljava/lang/StringBuilder;")
		argCat := 1
		if appendDesc == "J" || appendDesc == "D" {
			argCat = 2
		}
		ms.b.EmitInvoke(bytecode.InvokeVirtual, idx, []int{argCat}, 1)
	}

	toStringIdx := ms.class.file.CP.AddMethodRef("java/lang/StringBuilder", "toString", "()Ljava/lang/String;")
	ms.b.EmitInvoke(bytecode.InvokeVirtual, toStringIdx, nil, 1)
	return types.StringType
}

// flattenConcat walks a left-leaning `+` chain into its operands, in
// left-to-right evaluation order. It only descends into a sub-`+`
// when that subexpression is itself a string concatenation
// (ms.isStringConcat); a purely numeric sub-chain like the `1 + 2` in
// `1 + 2 + "x"` is left as a single operand so compileExpr computes
// its arithmetic result instead of the chain being split into
// separately-appended operands.
func (ms *methodScope) flattenConcat(b *ast.Binary) []ast.Expr {
	var out []ast.Expr
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		if bin, ok := e.(*ast.Binary); ok && bin.Op == "+" && ms.isStringConcat(bin) {
			walk(bin.Left)
			walk(bin.Right)
			return
		}
		out = append(out, e)
	}
	walk(b)
	return out
}

// appendDescriptorFor picks the StringBuilder.append overload's
// parameter descriptor for a value of static type t: every primitive
// gets its own overload, every reference type (including null) goes
// through the Object overload except String itself.
func appendDescriptorFor(t types.Type) string {
	if t.IsPrimitive() {
		switch t.Primitive() {
		case types.Boolean:
			return "Z"
		case types.Char:
			return "C"
		case types.Long:
			return "J"
		case types.Float:
			return "F"
		case types.Double:
			return "D"
		default: // byte, short, int all widen to the int overload
			return "I"
		}
	}
	if t.IsReference() && !t.IsArray() && t.InternalName() == "java/lang/String" {
		return "Ljava/lang/String;"
	}
	return "Ljava/lang/Object;"
}
