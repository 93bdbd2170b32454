/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package resolver

import (
	"fmt"
	"strings"

	"github.com/jacobin-lang/jbc/types"
)

// descriptorToType parses a single JVM field/return descriptor (e.g.
// "I", "Ljava/lang/String;", "[[I", "V") into a types.Type. Method
// descriptors are split into parameters/return first by
// splitMethodDescriptor.
func descriptorToType(d string) types.Type {
	t, _ := parseOneType(d)
	return t
}

func parseOneType(d string) (types.Type, string) {
	if d == "" {
		return types.Void, ""
	}
	switch d[0] {
	case 'V':
		return types.Void, d[1:]
	case 'Z':
		return types.NewPrimitive(types.Boolean), d[1:]
	case 'B':
		return types.NewPrimitive(types.Byte), d[1:]
	case 'S':
		return types.NewPrimitive(types.Short), d[1:]
	case 'C':
		return types.NewPrimitive(types.Char), d[1:]
	case 'I':
		return types.NewPrimitive(types.Int), d[1:]
	case 'J':
		return types.NewPrimitive(types.Long), d[1:]
	case 'F':
		return types.NewPrimitive(types.Float), d[1:]
	case 'D':
		return types.NewPrimitive(types.Double), d[1:]
	case 'L':
		end := strings.IndexByte(d, ';')
		if end < 0 {
			return types.Object, ""
		}
		return types.NewReference(d[1:end]), d[end+1:]
	case '[':
		dims := 0
		rest := d
		for len(rest) > 0 && rest[0] == '[' {
			dims++
			rest = rest[1:]
		}
		elem, tail := parseOneType(rest)
		return types.NewArray(elem, dims), tail
	default:
		panic(fmt.Sprintf("resolver: malformed descriptor %q", d))
	}
}

// splitMethodDescriptor parses "(I[Ljava/lang/String;)Z" into its
// parameter types and return type.
func splitMethodDescriptor(d string) (params []types.Type, ret types.Type) {
	if len(d) == 0 || d[0] != '(' {
		panic(fmt.Sprintf("resolver: malformed method descriptor %q", d))
	}
	rest := d[1:]
	for len(rest) > 0 && rest[0] != ')' {
		var t types.Type
		t, rest = parseOneType(rest)
		params = append(params, t)
	}
	rest = strings.TrimPrefix(rest, ")")
	ret, _ = parseOneType(rest)
	return params, ret
}

// SplitMethodDescriptor is splitMethodDescriptor's exported form, for
// callers outside this package that need to decompose a resolved
// method's descriptor (codegen's lambda desugaring, chiefly, which
// needs a SAM's erased parameter/return types to shape the synthetic
// method and the invokedynamic site's MethodType constants).
func SplitMethodDescriptor(d string) (params []types.Type, ret types.Type) {
	return splitMethodDescriptor(d)
}

// Descriptor builds a method descriptor string from parameter and
// return types.
func Descriptor(params []types.Type, ret types.Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(p.Descriptor())
	}
	b.WriteByte(')')
	b.WriteString(ret.Descriptor())
	return b.String()
}
