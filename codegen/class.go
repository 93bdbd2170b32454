/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package codegen

import (
	"bytes"
	"fmt"

	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/diag"
)

// classScope carries the per-class-file state codegen accumulates
// while compiling one ast.ClassDecl's members: the classfile.File
// under construction, the bootstrap-method table a lambda desugaring
// appends to, and whether any invokedynamic site was emitted (which
// forces the major version up to classfile.Major8).
type classScope struct {
	file       *classfile.File
	internal   string
	superInternal string
	sourceFile string
	bootstraps []classfile.BootstrapMethodEntry
	usesInvokeDynamic bool
	innerClassOf      map[string]string // inner internal name -> outer internal name, for InnerClasses
	lambdaCount       int
}

func (s *classScope) addBootstrap(entry classfile.BootstrapMethodEntry) int {
	s.bootstraps = append(s.bootstraps, entry)
	s.usesInvokeDynamic = true
	return len(s.bootstraps) - 1
}

// nextLambdaName returns the next synthetic method name for a lambda
// body carried by this class, e.g. "lambda$0", "lambda$1".
func (s *classScope) nextLambdaName() string {
	name := fmt.Sprintf("lambda$%d", s.lambdaCount)
	s.lambdaCount++
	return name
}

// compileClass is Phase 2 for a single class: it resolves the
// super/interfaces, emits fields (with ConstantValue for constant
// static finals), compiles every method body, synthesizes enum
// machinery, and serializes the finished classfile.File.
func (c *Compiler) compileClass(u *Unit, cd *ast.ClassDecl) []byte {
	ctx := u.Ctx
	internal := c.internalNameOf(ctx, cd)

	f := classfile.New(classfile.Major6)
	scope := &classScope{file: f, internal: internal, sourceFile: u.AST.FileName, innerClassOf: map[string]string{}}

	f.AccessFlags = c.classAccessFlags(cd)
	f.SetThisClass(internal)

	switch {
	case cd.Kind == ast.ClassKindEnum:
		scope.superInternal = "java/lang/Enum"
	case cd.SuperClass != nil:
		scope.superInternal = c.resolveType(ctx, cd.SuperClass, u.AST.FileName).InternalName()
	case cd.Kind != ast.ClassKindInterface:
		scope.superInternal = "java/lang/Object"
	}
	if scope.superInternal != "" {
		f.SetSuperClass(scope.superInternal)
	}

	for _, ifc := range cd.Interfaces {
		f.AddInterface(c.resolveType(ctx, ifc, u.AST.FileName).InternalName())
	}

	ctx.PushEnclosing(internal)
	defer ctx.PopEnclosing()

	for _, fd := range cd.Fields {
		c.compileField(u, scope, cd, fd)
	}

	if cd.Kind == ast.ClassKindEnum {
		c.compileEnumSupport(u, scope, cd)
	}

	for _, md := range cd.Methods {
		c.compileMethod(u, scope, cd, md)
	}
	if !hasConstructor(cd) && cd.Kind == ast.ClassKindClass {
		c.compileDefaultConstructor(u, scope, cd)
	}

	if len(cd.NestedClasses) > 0 {
		for _, nested := range cd.NestedClasses {
			scope.innerClassOf[c.internalNameOf(ctx, nested)] = internal
		}
	}
	if len(ctx.Enclosing) > 1 {
		scope.innerClassOf[internal] = ctx.Enclosing[len(ctx.Enclosing)-2]
	}

	f.Attributes = append(f.Attributes, classfile.NewSourceFileAttribute(f.CP, scope.sourceFile))
	if len(scope.innerClassOf) > 0 {
		f.Attributes = append(f.Attributes, buildInnerClassesAttribute(f, scope.innerClassOf))
	}
	if scope.usesInvokeDynamic {
		f.MajorVersion = classfile.Major8
		f.Attributes = append(f.Attributes, classfile.NewBootstrapMethodsAttribute(f.CP, scope.bootstraps))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		u.Errors.Add(diag.New(pos(cd.Pos, u.AST.FileName), diag.InvariantViolation, "serializing %s: %v", internal, err))
		return nil
	}
	return buf.Bytes()
}

func hasConstructor(cd *ast.ClassDecl) bool {
	for _, m := range cd.Methods {
		if m.Name == "<init>" {
			return true
		}
	}
	return false
}
