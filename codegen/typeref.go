/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package codegen

import (
	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/resolver"
	"github.com/jacobin-lang/jbc/types"
)

var primitiveKeywords = map[string]types.Primitive{
	"boolean": types.Boolean,
	"byte":    types.Byte,
	"short":   types.Short,
	"char":    types.Char,
	"int":     types.Int,
	"long":    types.Long,
	"float":   types.Float,
	"double":  types.Double,
}

// resolveType turns a source-level TypeRef into a types.Type,
// resolving class names through r/ctx (spec.md §4.5).
func (c *Compiler) resolveType(ctx *resolver.Context, tr *ast.TypeRef, file string) types.Type {
	if tr == nil {
		return types.Void
	}
	var base types.Type
	if p, ok := primitiveKeywords[tr.Name]; ok {
		base = types.NewPrimitive(p)
	} else if tr.Name == "void" {
		base = types.Void
	} else {
		internal, err := c.Resolver.ResolveClassName(ctx, tr.Name, pos(tr.Pos, file))
		if err != nil {
			failErr(err.(*diag.Error))
		}
		base = types.NewReference(internal)
	}
	if tr.ArrayDims > 0 {
		return types.NewArray(base, tr.ArrayDims)
	}
	return base
}
