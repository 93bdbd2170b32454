/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Enum desugaring (spec.md §4.6 "enums"): every enum class extends
// java/lang/Enum, its constructor gains a synthetic leading
// (String,int) pair forwarded to Enum's own constructor, each
// constant becomes a public static final field initialized in
// <clinit>, and a private static final $VALUES array backs the
// synthesized values()/valueOf(String) methods. Per Design Notes'
// Open Question (a): <clinit> creates every constant instance first,
// then assembles $VALUES from them, in declaration order.
package codegen

import (
	"strings"

	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/bytecode"
	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/opcodes"
	"github.com/jacobin-lang/jbc/types"
)

// enumConstructorDescriptor prepends enum's synthetic
// (String,int) pair to a source-declared constructor descriptor.
func enumConstructorDescriptor(desc string) string {
	end := strings.IndexByte(desc, ')')
	return "(Ljava/lang/String;I" + desc[1:end] + desc[end:]
}

// compileEnumSupport compiles every enum-specific constructor,
// <clinit>, values() and valueOf(String) for cd.
func (c *Compiler) compileEnumSupport(u *Unit, scope *classScope, cd *ast.ClassDecl) {
	selfType := types.NewReference(scope.internal)
	var userCtor *ast.MethodDecl
	for _, m := range cd.Methods {
		if m.Name == "<init>" {
			userCtor = m
		}
	}
	c.compileEnumConstructor(u, scope, cd, userCtor)
	c.compileEnumClinit(u, scope, cd, selfType, userCtor)
	c.compileEnumValues(u, scope, cd, selfType)
	c.compileEnumValueOf(u, scope, cd, selfType)
}

// compileEnumConstructor emits the (String,int,...)V constructor: it
// always forwards the synthesized name/ordinal pair to
// java/lang/Enum's own constructor, then runs whatever field
// initialization the source constructor's body performs (skipping an
// explicit super(...) call, which enums never need — they can only
// ever extend Enum).
func (c *Compiler) compileEnumConstructor(u *Unit, scope *classScope, cd *ast.ClassDecl, userCtor *ast.MethodDecl) {
	var userParams []*ast.Param
	var body []ast.Stmt
	if userCtor != nil {
		userParams = userCtor.Params
		body = userCtor.Body
	}

	userParamTypes := make([]types.Type, len(userParams))
	for i, p := range userParams {
		userParamTypes[i] = c.resolveType(u.Ctx, p.Type, u.AST.FileName)
	}
	descriptor := enumConstructorDescriptor(resolverDescriptorVoid(userParamTypes))

	m := &classfile.Method{
		AccessFlags:     classfile.AccPrivate,
		NameIndex:       scope.file.CP.AddUTF8("<init>"),
		DescriptorIndex: scope.file.CP.AddUTF8(descriptor),
	}
	scope.file.Methods = append(scope.file.Methods, m)

	recoverInto(&u.Errors, func() {
		b := bytecode.NewBuilder(scope.file.CP, false)
		ms := &methodScope{c: c, u: u, class: scope, ctx: u.Ctx, b: b, locals: map[string]localVar{}, file: u.AST.FileName}
		ms.thisType = types.NewReference(scope.internal)

		ms.declareLocal("this$name", types.StringType)
		ms.declareLocal("this$ordinal", types.NewPrimitive(types.Int))
		for i, p := range userParams {
			ms.declareLocal(p.Name, userParamTypes[i])
		}

		ms.b.EmitLoad(ms.thisType, 0)
		nameSlot, _ := ms.lookupLocal("this$name")
		ordSlot, _ := ms.lookupLocal("this$ordinal")
		ms.b.EmitLoad(types.StringType, nameSlot.slot)
		ms.b.EmitLoad(types.NewPrimitive(types.Int), ordSlot.slot)
		idx := scope.file.CP.AddMethodRef("java/lang/Enum", "<init>", "(Ljava/lang/String;I)V")
		ms.b.EmitInvoke(bytecode.InvokeSpecial, idx, []int{1, 1}, 0)

		for _, st := range body {
			if es, ok := st.(*ast.ExprStmt); ok {
				if _, isSuper := es.X.(*ast.SuperCall); isSuper {
					continue
				}
			}
			ms.compileStmt(st)
		}
		ms.b.Emit(opcodes.RETURN)

		code, maxStack, maxLocals, table, err := b.Finish()
		if err != nil {
			ice(pos(cd.Pos, u.AST.FileName), "<init>", "%v", err)
		}
		m.Attributes = append(m.Attributes, classfile.NewCodeAttribute(scope.file.CP, maxStack, maxLocals, code, table, nil))
	})
}

func resolverDescriptorVoid(params []types.Type) string {
	d := "("
	for _, p := range params {
		d += p.Descriptor()
	}
	return d + ")V"
}

// compileEnumClinit emits the static initializer: NEW + DUP +
// invokespecial + PUTSTATIC for every constant (in source order), then
// builds and stores $VALUES from the just-created fields.
func (c *Compiler) compileEnumClinit(u *Unit, scope *classScope, cd *ast.ClassDecl, selfType types.Type, userCtor *ast.MethodDecl) {
	userParamTypes := []types.Type{}
	if userCtor != nil {
		for _, p := range userCtor.Params {
			userParamTypes = append(userParamTypes, c.resolveType(u.Ctx, p.Type, u.AST.FileName))
		}
	}
	ctorDesc := enumConstructorDescriptor(resolverDescriptorVoid(userParamTypes))

	m := &classfile.Method{
		AccessFlags:     classfile.AccStatic,
		NameIndex:       scope.file.CP.AddUTF8("<clinit>"),
		DescriptorIndex: scope.file.CP.AddUTF8("()V"),
	}
	scope.file.Methods = append(scope.file.Methods, m)

	recoverInto(&u.Errors, func() {
		b := bytecode.NewBuilder(scope.file.CP, true)
		ms := &methodScope{c: c, u: u, class: scope, ctx: u.Ctx, b: b, locals: map[string]localVar{}, isStatic: true, file: u.AST.FileName}

		classIdx := scope.file.CP.AddClass(scope.internal)
		ctorIdx := scope.file.CP.AddMethodRef(scope.internal, "<init>", ctorDesc)

		for ord, ec := range cd.EnumConstants {
			b.EmitNew(classIdx)
			b.Emit(opcodes.DUP)
			b.EmitStringConst(ec.Name)
			b.EmitIntConst(int32(ord))
			argCats := []int{1, 1}
			for _, a := range ec.Args {
				at := ms.compileExpr(a)
				argCats = append(argCats, at.Category())
			}
			b.EmitInvoke(bytecode.InvokeSpecial, ctorIdx, argCats, 0)
			fieldIdx := scope.file.CP.AddFieldRef(scope.internal, ec.Name, selfType.Descriptor())
			b.EmitPutStatic(fieldIdx, selfType)
		}

		b.EmitIntConst(int32(len(cd.EnumConstants)))
		b.EmitANewArray(classIdx)
		for ord, ec := range cd.EnumConstants {
			b.Emit(opcodes.DUP)
			b.EmitIntConst(int32(ord))
			fieldIdx := scope.file.CP.AddFieldRef(scope.internal, ec.Name, selfType.Descriptor())
			b.EmitGetStatic(fieldIdx, selfType)
			b.Emit(opcodes.AASTORE)
		}
		valuesIdx := scope.file.CP.AddFieldRef(scope.internal, "$VALUES", "["+selfType.Descriptor())
		b.EmitPutStatic(valuesIdx, types.NewArray(selfType, 1))
		b.Emit(opcodes.RETURN)

		code, maxStack, maxLocals, table, err := b.Finish()
		if err != nil {
			ice(pos(cd.Pos, u.AST.FileName), "<clinit>", "%v", err)
		}
		m.Attributes = append(m.Attributes, classfile.NewCodeAttribute(scope.file.CP, maxStack, maxLocals, code, table, nil))
	})
}

// compileEnumValues emits `public static T[] values()`, returning a
// clone of $VALUES so callers can't mutate the canonical array.
func (c *Compiler) compileEnumValues(u *Unit, scope *classScope, cd *ast.ClassDecl, selfType types.Type) {
	arrType := types.NewArray(selfType, 1)
	m := &classfile.Method{
		AccessFlags:     classfile.AccPublic | classfile.AccStatic,
		NameIndex:       scope.file.CP.AddUTF8("values"),
		DescriptorIndex: scope.file.CP.AddUTF8("()" + arrType.Descriptor()),
	}
	scope.file.Methods = append(scope.file.Methods, m)

	recoverInto(&u.Errors, func() {
		b := bytecode.NewBuilder(scope.file.CP, true)
		valuesIdx := scope.file.CP.AddFieldRef(scope.internal, "$VALUES", arrType.Descriptor())
		b.EmitGetStatic(valuesIdx, arrType)
		cloneIdx := scope.file.CP.AddMethodRef(arrType.Descriptor(), "clone", "()Ljava/lang/Object;")
		b.EmitInvoke(bytecode.InvokeVirtual, cloneIdx, nil, 1)
		checkIdx := scope.file.CP.AddClass(arrType.Descriptor())
		b.EmitCheckCast(checkIdx)
		b.Emit(opcodes.ARETURN)

		code, maxStack, maxLocals, table, err := b.Finish()
		if err != nil {
			ice(pos(cd.Pos, u.AST.FileName), "values", "%v", err)
		}
		m.Attributes = append(m.Attributes, classfile.NewCodeAttribute(scope.file.CP, maxStack, maxLocals, code, table, nil))
	})
}

// compileEnumValueOf emits `public static T valueOf(String name)` via
// java/lang/Enum's generic valueOf helper plus a checkcast.
func (c *Compiler) compileEnumValueOf(u *Unit, scope *classScope, cd *ast.ClassDecl, selfType types.Type) {
	m := &classfile.Method{
		AccessFlags:     classfile.AccPublic | classfile.AccStatic,
		NameIndex:       scope.file.CP.AddUTF8("valueOf"),
		DescriptorIndex: scope.file.CP.AddUTF8("(Ljava/lang/String;)" + selfType.Descriptor()),
	}
	scope.file.Methods = append(scope.file.Methods, m)

	recoverInto(&u.Errors, func() {
		b := bytecode.NewBuilder(scope.file.CP, true)
		classIdx := scope.file.CP.AddClass(scope.internal)
		b.EmitU2(opcodes.LDC_W, opcodes.StackEffect{Push: 1}, classIdx)
		b.EmitLoad(types.StringType, 0)
		idx := scope.file.CP.AddMethodRef("java/lang/Enum", "valueOf", "(Ljava/lang/Class;Ljava/lang/String;)Ljava/lang/Enum;")
		b.EmitInvoke(bytecode.InvokeStatic, idx, []int{1, 1}, 1)
		b.EmitCheckCast(classIdx)
		b.Emit(opcodes.ARETURN)

		code, maxStack, maxLocals, table, err := b.Finish()
		if err != nil {
			ice(pos(cd.Pos, u.AST.FileName), "valueOf", "%v", err)
		}
		m.Attributes = append(m.Attributes, classfile.NewCodeAttribute(scope.file.CP, maxStack, maxLocals, code, table, nil))
	})
}
