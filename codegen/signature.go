/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package codegen

import (
	"strings"

	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/classpath"
	"github.com/jacobin-lang/jbc/resolver"
	"github.com/jacobin-lang/jbc/types"
)

// registerSignatures is Phase 1 (spec.md §9): walk cd and its nested
// classes, compute each one's erased field/method descriptors without
// compiling any method body, and register the result with the
// classpath so Phase 2 can resolve any class in this compilation
// regardless of declaration order — the same role
// classloader.MethAreaInsert plays for a class loaded from disk.
func (c *Compiler) registerSignatures(ctx *resolver.Context, cd *ast.ClassDecl, file string) {
	internal := c.internalNameOf(ctx, cd)

	info := &classpath.ClassInfo{
		Name:        internal,
		AccessFlags: c.classAccessFlags(cd),
	}

	if cd.Kind == ast.ClassKindEnum {
		info.SuperClass = "java/lang/Enum"
	} else if cd.SuperClass != nil {
		info.SuperClass = c.resolveTypeInternal(ctx, cd.SuperClass, file)
	} else if cd.Kind != ast.ClassKindInterface {
		info.SuperClass = "java/lang/Object"
	}

	for _, ifc := range cd.Interfaces {
		info.Interfaces = append(info.Interfaces, c.resolveTypeInternal(ctx, ifc, file))
	}

	for _, f := range cd.Fields {
		ft := c.resolveTypeNoClass(ctx, f.Type, file)
		info.Fields = append(info.Fields, classpath.MemberInfo{
			Name:        f.Name,
			Descriptor:  ft.Descriptor(),
			AccessFlags: fieldAccessFlags(f.Access),
		})
	}

	for _, m := range cd.Methods {
		desc := c.methodDescriptorNoClass(ctx, m, file)
		if cd.Kind == ast.ClassKindEnum && m.Name == "<init>" {
			desc = enumConstructorDescriptor(desc)
		}
		info.Methods = append(info.Methods, classpath.MemberInfo{
			Name:        m.Name,
			Descriptor:  desc,
			AccessFlags: methodAccessFlags(m, cd),
		})
	}

	if cd.Kind == ast.ClassKindEnum {
		registerEnumSynthesizedSignatures(info, cd)
	}

	c.CP.RegisterCompiled(info)

	ctx.PushEnclosing(internal)
	for _, nested := range cd.NestedClasses {
		c.registerSignatures(ctx, nested, file)
	}
	ctx.PopEnclosing()
}

// resolveTypeInternal resolves a class-valued TypeRef to its internal
// name without materializing a full types.Type (Phase 1 never needs
// array/primitive handling for superclass/interface positions).
func (c *Compiler) resolveTypeInternal(ctx *resolver.Context, tr *ast.TypeRef, file string) string {
	internal, err := c.Resolver.ResolveClassName(ctx, tr.Name, pos(tr.Pos, file))
	if err != nil {
		// Phase 1 cannot abort a method (none is being compiled yet);
		// defer the failure to Phase 2, where resolveType reports it
		// against the class's own declaration site.
		return strings.ReplaceAll(tr.Name, ".", "/")
	}
	return internal
}

// resolveTypeNoClass is Phase 1's best-effort TypeRef resolver: same
// shape as (*Compiler).resolveType but never panics, since no
// method-abort boundary exists yet.
func (c *Compiler) resolveTypeNoClass(ctx *resolver.Context, tr *ast.TypeRef, file string) types.Type {
	if tr == nil {
		return types.Void
	}
	var base types.Type
	if p, ok := primitiveKeywords[tr.Name]; ok {
		base = types.NewPrimitive(p)
	} else if tr.Name == "void" {
		base = types.Void
	} else {
		base = types.NewReference(c.resolveTypeInternal(ctx, tr, file))
	}
	if tr.ArrayDims > 0 {
		return types.NewArray(base, tr.ArrayDims)
	}
	return base
}

func (c *Compiler) methodDescriptorNoClass(ctx *resolver.Context, m *ast.MethodDecl, file string) string {
	params := make([]types.Type, 0, len(m.Params))
	for _, p := range m.Params {
		pt := c.resolveTypeNoClass(ctx, p.Type, file)
		if p.Varargs {
			pt = types.NewArray(pt, 1)
		}
		params = append(params, pt)
	}
	ret := types.Void
	if m.ReturnType != nil {
		ret = c.resolveTypeNoClass(ctx, m.ReturnType, file)
	}
	return resolver.Descriptor(params, ret)
}

func (c *Compiler) classAccessFlags(cd *ast.ClassDecl) int {
	flags := 0
	if cd.Access.Public {
		flags |= classfile.AccPublic
	}
	if cd.Access.Final {
		flags |= classfile.AccFinal
	}
	if cd.Access.Abstract {
		flags |= classfile.AccAbstract
	}
	switch cd.Kind {
	case ast.ClassKindInterface:
		flags |= classfile.AccInterface | classfile.AccAbstract
	case ast.ClassKindEnum:
		flags |= classfile.AccEnum | classfile.AccSuper
	default:
		flags |= classfile.AccSuper
	}
	return flags
}

func fieldAccessFlags(m ast.Modifiers) int {
	flags := 0
	if m.Public {
		flags |= classfile.AccPublic
	}
	if m.Private {
		flags |= classfile.AccPrivate
	}
	if m.Protected {
		flags |= classfile.AccProtected
	}
	if m.Static {
		flags |= classfile.AccStatic
	}
	if m.Final {
		flags |= classfile.AccFinal
	}
	return flags
}

func methodAccessFlags(m *ast.MethodDecl, cd *ast.ClassDecl) int {
	flags := 0
	if m.Access.Public {
		flags |= classfile.AccPublic
	}
	if m.Access.Private {
		flags |= classfile.AccPrivate
	}
	if m.Access.Protected {
		flags |= classfile.AccProtected
	}
	if m.Access.Static {
		flags |= classfile.AccStatic
	}
	if m.Access.Final {
		flags |= classfile.AccFinal
	}
	if cd.Kind == ast.ClassKindInterface && m.Body == nil {
		flags |= classfile.AccAbstract
	}
	if m.Body == nil && !m.Access.Abstract && cd.Kind != ast.ClassKindInterface {
		flags |= classfile.AccAbstract
	}
	if m.Access.Abstract {
		flags |= classfile.AccAbstract
	}
	if m.IsBridge {
		flags |= classfile.AccBridge | classfile.AccSynthetic
	}
	if lastParamIsVarargs(m) {
		flags |= classfile.AccVarargs
	}
	return flags
}

func lastParamIsVarargs(m *ast.MethodDecl) bool {
	if len(m.Params) == 0 {
		return false
	}
	return m.Params[len(m.Params)-1].Varargs
}

// buildTypeSignature returns tr's JVM generic-signature fragment
// (JVMS §4.7.9.1) when tr or one of its array elements carries
// declared type arguments (e.g. `List<String>`), and ok=false for a
// plain type — the erased descriptor already says everything a
// non-generic field/method needs, so callers skip the Signature
// attribute entirely in that case (spec.md's added Signature-emission
// supplement only fires "for generic field/method descriptors").
func (c *Compiler) buildTypeSignature(ctx *resolver.Context, tr *ast.TypeRef, file string) (string, bool) {
	if tr == nil {
		return "", false
	}
	if tr.ArrayDims > 0 {
		elem := &ast.TypeRef{Pos: tr.Pos, Name: tr.Name, TypeArgs: tr.TypeArgs}
		sig, ok := c.buildTypeSignature(ctx, elem, file)
		if !ok {
			return "", false
		}
		return strings.Repeat("[", tr.ArrayDims) + sig, true
	}
	if len(tr.TypeArgs) == 0 {
		return "", false
	}
	internal := c.resolveTypeInternal(ctx, tr, file)
	var b strings.Builder
	b.WriteByte('L')
	b.WriteString(internal)
	b.WriteByte('<')
	for _, arg := range tr.TypeArgs {
		b.WriteString(c.typeArgSignature(ctx, arg, file))
	}
	b.WriteByte('>')
	b.WriteByte(';')
	return b.String(), true
}

// typeArgSignature renders one type argument within a `<...>` list:
// its own generic signature if it is itself parameterized, otherwise
// its plain erased descriptor (every type argument is a reference
// type in valid Java 8 source, so Descriptor() always yields a legal
// field-type signature here).
func (c *Compiler) typeArgSignature(ctx *resolver.Context, arg *ast.TypeRef, file string) string {
	if sig, ok := c.buildTypeSignature(ctx, arg, file); ok {
		return sig
	}
	return c.resolveTypeNoClass(ctx, arg, file).Descriptor()
}

// fieldSignatureAttr returns fd's Signature attribute body, if its
// declared type is generic.
func (c *Compiler) fieldSignatureAttr(ctx *resolver.Context, fd *ast.FieldDecl, file string) (string, bool) {
	return c.buildTypeSignature(ctx, fd.Type, file)
}

// methodSignatureAttr returns md's Signature attribute body if any
// parameter or its return type is generic; non-generic members of an
// otherwise-generic signature still contribute their plain erased
// descriptor to the result, since Signature always describes every
// parameter once any one of them needs it.
func (c *Compiler) methodSignatureAttr(ctx *resolver.Context, md *ast.MethodDecl, file string) (string, bool) {
	anyGeneric := false
	paramSigs := make([]string, len(md.Params))
	for i, p := range md.Params {
		sig, ok := c.buildTypeSignature(ctx, p.Type, file)
		if !ok {
			sig = c.resolveTypeNoClass(ctx, p.Type, file).Descriptor()
		} else {
			anyGeneric = true
		}
		if p.Varargs {
			sig = "[" + sig
		}
		paramSigs[i] = sig
	}
	retSig := "V"
	if md.ReturnType != nil {
		if sig, ok := c.buildTypeSignature(ctx, md.ReturnType, file); ok {
			retSig = sig
			anyGeneric = true
		} else {
			retSig = c.resolveTypeNoClass(ctx, md.ReturnType, file).Descriptor()
		}
	}
	if !anyGeneric {
		return "", false
	}
	var b strings.Builder
	b.WriteByte('(')
	for _, s := range paramSigs {
		b.WriteString(s)
	}
	b.WriteByte(')')
	b.WriteString(retSig)
	return b.String(), true
}

// registerEnumSynthesizedSignatures adds the compiler-synthesized
// members every enum carries (spec.md §4.6 "enums"): the per-constant
// static fields, the $VALUES array field, and the static values() and
// valueOf(String) methods.
func registerEnumSynthesizedSignatures(info *classpath.ClassInfo, cd *ast.ClassDecl) {
	selfDesc := "L" + info.Name + ";"
	for _, ec := range cd.EnumConstants {
		info.Fields = append(info.Fields, classpath.MemberInfo{
			Name:        ec.Name,
			Descriptor:  selfDesc,
			AccessFlags: classfile.AccPublic | classfile.AccStatic | classfile.AccFinal | classfile.AccEnum,
		})
	}
	info.Fields = append(info.Fields, classpath.MemberInfo{
		Name:        "$VALUES",
		Descriptor:  "[" + selfDesc,
		AccessFlags: classfile.AccPrivate | classfile.AccStatic | classfile.AccFinal | classfile.AccSynthetic,
	})
	info.Methods = append(info.Methods, classpath.MemberInfo{
		Name:        "values",
		Descriptor:  "()[" + selfDesc,
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
	})
	info.Methods = append(info.Methods, classpath.MemberInfo{
		Name:        "valueOf",
		Descriptor:  "(Ljava/lang/String;)" + selfDesc,
		AccessFlags: classfile.AccPublic | classfile.AccStatic,
	})
}
