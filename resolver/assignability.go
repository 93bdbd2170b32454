/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package resolver

import "github.com/jacobin-lang/jbc/types"

// wideningTargets lists, for each primitive, the primitives it widens
// to (spec.md §4.6 "binary arithmetic... brought to a common type by
// widening (i->l->f->d)"), not including itself.
var wideningTargets = map[types.Primitive][]types.Primitive{
	types.Byte:   {types.Short, types.Int, types.Long, types.Float, types.Double},
	types.Short:  {types.Int, types.Long, types.Float, types.Double},
	types.Char:   {types.Int, types.Long, types.Float, types.Double},
	types.Int:    {types.Long, types.Float, types.Double},
	types.Long:   {types.Float, types.Double},
	types.Float:  {types.Double},
	types.Double: {},
	types.Boolean: {},
}

// IsWideningPrimitive reports whether from widens to to without a
// cast.
func IsWideningPrimitive(from, to types.Primitive) bool {
	if from == to {
		return true
	}
	for _, t := range wideningTargets[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AssignKind classifies how an actual argument type reaches a formal
// parameter type, for use by codegen's implicit coercion insertion.
type AssignKind int

const (
	AssignNone AssignKind = iota
	AssignIdentity
	AssignWidening
	AssignBoxing
	AssignUnboxing
	AssignWideningReference // subtype / upcast, including to Object
)

// IsAssignable reports whether a value of type from can be used where
// a value of type to is expected, per spec.md §4.5's applicability
// rule ("assignment-compatible... including boxing/unboxing and
// widening primitive conversion"), and classifies how.
func (r *Resolver) IsAssignable(from, to types.Type) (AssignKind, bool) {
	if from.Equal(to) {
		return AssignIdentity, true
	}

	if from.IsPrimitive() && to.IsPrimitive() {
		if IsWideningPrimitive(from.Primitive(), to.Primitive()) {
			return AssignWidening, true
		}
		return AssignNone, false
	}

	if from.IsPrimitive() && to.IsReference() {
		wrapper := types.WrapperFor(from.Primitive())
		if to.Equal(wrapper) || to.Equal(types.Object) {
			return AssignBoxing, true
		}
		return AssignNone, false
	}

	if from.IsReference() && to.IsPrimitive() {
		if unboxed, ok := unboxedPrimitiveOf(from); ok && IsWideningPrimitive(unboxed, to.Primitive()) {
			return AssignUnboxing, true
		}
		return AssignNone, false
	}

	// reference -> reference: identity already handled; otherwise a
	// subtype relationship (including array covariance is not
	// modeled — arrays only need exact-type or Object target, which
	// suffices for the spec's scenarios).
	if from.IsReference() && to.IsReference() {
		if to.Equal(types.Object) {
			return AssignWideningReference, true
		}
		if from.IsArray() || to.IsArray() {
			return AssignNone, false
		}
		if r.IsSubtype(from.InternalName(), to.InternalName()) {
			return AssignWideningReference, true
		}
		return AssignNone, false
	}

	return AssignNone, false
}

func unboxedPrimitiveOf(t types.Type) (types.Primitive, bool) {
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
	default:
		return 0, false
	}
}

// WidenCommon returns the common type two numeric operand types widen
// to for a binary arithmetic/comparison operator (spec.md §4.6): the
// wider of the two once both are promoted at least to int.
func WidenCommon(a, b types.Primitive) types.Primitive {
	rank := func(p types.Primitive) int {
		switch p {
		case types.Boolean:
			return -1
		case types.Byte, types.Short, types.Char, types.Int:
			return 0
		case types.Long:
			return 1
		case types.Float:
			return 2
		case types.Double:
			return 3
		default:
			return 0
		}
	}
	ra, rb := rank(a), rank(b)
	if ra < 0 {
		ra = 0
	}
	if rb < 0 {
		rb = 0
	}
	switch {
	case ra == 0 && rb == 0:
		return types.Int
	case ra >= rb:
		return promote(ra)
	default:
		return promote(rb)
	}
}

func promote(rank int) types.Primitive {
	switch rank {
	case 1:
		return types.Long
	case 2:
		return types.Float
	case 3:
		return types.Double
	default:
		return types.Int
	}
}
