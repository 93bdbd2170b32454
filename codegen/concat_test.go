/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package codegen

import (
	"testing"

	"github.com/jacobin-lang/jbc/ast"
)

// TestFlattenConcatLeavesNumericSubchainIntact guards against
// splitting a numeric `+` subchain into separately-appended operands:
// `1 + 2 + "x"` must flatten to two operands, [1+2, "x"], so the
// StringBuilder chain appends the int 3 rather than appending 1 and 2
// separately (which would print "12x" instead of "3x").
func TestFlattenConcatLeavesNumericSubchainIntact(t *testing.T) {
	ms := &methodScope{}

	sum := &ast.Binary{Op: "+", Left: &ast.IntLit{Value: 1}, Right: &ast.IntLit{Value: 2}}
	chain := &ast.Binary{Op: "+", Left: sum, Right: &ast.StringLit{Value: "x"}}

	operands := ms.flattenConcat(chain)
	if len(operands) != 2 {
		t.Fatalf("got %d operands, want 2: %#v", len(operands), operands)
	}
	if operands[0] != sum {
		t.Fatalf("operand 0 = %#v, want the numeric subchain left intact", operands[0])
	}
	if lit, ok := operands[1].(*ast.StringLit); !ok || lit.Value != "x" {
		t.Fatalf("operand 1 = %#v, want StringLit(\"x\")", operands[1])
	}
}

// TestFlattenConcatLeavesNumericSubchainIntactOnTheRight covers the
// mirror case, `"x" + (a + b)` with numeric a, b: the sum must stay
// one operand so it appends as a computed number, not "ab".
func TestFlattenConcatLeavesNumericSubchainIntactOnTheRight(t *testing.T) {
	ms := &methodScope{}

	sum := &ast.Binary{Op: "+", Left: &ast.IntLit{Value: 3}, Right: &ast.IntLit{Value: 4}}
	chain := &ast.Binary{Op: "+", Left: &ast.StringLit{Value: "x"}, Right: sum}

	operands := ms.flattenConcat(chain)
	if len(operands) != 2 {
		t.Fatalf("got %d operands, want 2: %#v", len(operands), operands)
	}
	if lit, ok := operands[0].(*ast.StringLit); !ok || lit.Value != "x" {
		t.Fatalf("operand 0 = %#v, want StringLit(\"x\")", operands[0])
	}
	if operands[1] != sum {
		t.Fatalf("operand 1 = %#v, want the numeric subchain left intact", operands[1])
	}
}

// TestFlattenConcatSplitsAllStringOperands keeps the happy path
// honest: a chain with no numeric subchain still flattens fully.
func TestFlattenConcatSplitsAllStringOperands(t *testing.T) {
	ms := &methodScope{}

	a := &ast.StringLit{Value: "a"}
	b := &ast.StringLit{Value: "b"}
	c := &ast.StringLit{Value: "c"}
	chain := &ast.Binary{Op: "+", Left: &ast.Binary{Op: "+", Left: a, Right: b}, Right: c}

	operands := ms.flattenConcat(chain)
	if len(operands) != 3 || operands[0] != a || operands[1] != b || operands[2] != c {
		t.Fatalf("got %#v, want [a, b, c]", operands)
	}
}
