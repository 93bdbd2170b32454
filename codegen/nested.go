/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Static nested classes compile to a separate top-level class file
// named Outer$Inner, linked back to their enclosing class only
// through the InnerClasses attribute (spec.md §4.6 "static nested
// classes"). Inner (non-static) and anonymous classes are out of
// scope, so nested classes here never capture an outer instance or
// enclosing locals — class.go's compileClassDecl recursion is enough
// to produce the separate class files; this file only builds the
// InnerClasses attribute that records the relationship.
package codegen

import (
	"github.com/jacobin-lang/jbc/classfile"
)

func buildInnerClassesAttribute(f *classfile.File, innerClassOf map[string]string) classfile.Attribute {
	var entries []classfile.InnerClassEntry
	for _, inner := range sortedKeys(toSet(innerClassOf)) {
		outer := innerClassOf[inner]
		innerIdx := f.CP.AddClass(inner)
		outerIdx := f.CP.AddClass(outer)
		simple := inner
		if i := lastIndexByte(inner, '$'); i >= 0 {
			simple = inner[i+1:]
		}
		entries = append(entries, classfile.InnerClassEntry{
			InnerClassInfoIndex: innerIdx,
			OuterClassInfoIndex: outerIdx,
			InnerNameIndex:      f.CP.AddUTF8(simple),
			InnerClassAccess:    classfile.AccPublic | classfile.AccStatic,
		})
	}
	return classfile.NewInnerClassesAttribute(f.CP, entries)
}

func toSet(m map[string]string) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
