/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package parser

import (
	"testing"

	"github.com/jacobin-lang/jbc/ast"
)

func parseOrFatal(t *testing.T, src string) *ast.CompilationUnit {
	t.Helper()
	cu, err := Parse("Test.java", src)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return cu
}

func TestParsePackageAndImports(t *testing.T) {
	cu := parseOrFatal(t, `
		package com.example;
		import java.util.List;
		import java.util.*;
		class Widget {}
	`)
	if cu.Package != "com.example" {
		t.Errorf("expected package com.example, got %q", cu.Package)
	}
	if len(cu.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(cu.Imports))
	}
	if cu.Imports[0].Path != "java.util.List" || cu.Imports[0].OnDemand {
		t.Errorf("unexpected import[0]: %+v", cu.Imports[0])
	}
	if cu.Imports[1].Path != "java.util" || !cu.Imports[1].OnDemand {
		t.Errorf("unexpected import[1]: %+v", cu.Imports[1])
	}
	if len(cu.Types) != 1 || cu.Types[0].Name != "Widget" {
		t.Fatalf("expected one class Widget, got %+v", cu.Types)
	}
}

func TestParseClassFieldsAndMethod(t *testing.T) {
	cu := parseOrFatal(t, `
		public class Calc {
			private int total;
			public int add(int a, int b) {
				return a + b;
			}
		}
	`)
	cd := cu.Types[0]
	if !cd.Access.Public || cd.Kind != ast.ClassKindClass {
		t.Fatalf("unexpected class decl: %+v", cd)
	}
	if len(cd.Fields) != 1 || cd.Fields[0].Name != "total" || cd.Fields[0].Type.Name != "int" {
		t.Fatalf("unexpected fields: %+v", cd.Fields)
	}
	if len(cd.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(cd.Methods))
	}
	md := cd.Methods[0]
	if md.Name != "add" || md.ReturnType == nil || md.ReturnType.Name != "int" {
		t.Fatalf("unexpected method decl: %+v", md)
	}
	if len(md.Params) != 2 || md.Params[0].Name != "a" || md.Params[1].Name != "b" {
		t.Fatalf("unexpected params: %+v", md.Params)
	}
	if len(md.Body) != 1 {
		t.Fatalf("expected 1 statement in body, got %d", len(md.Body))
	}
	ret, ok := md.Body[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected ReturnStmt, got %T", md.Body[0])
	}
	bin, ok := ret.Value.(*ast.Binary)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected a + binary expression, got %#v", ret.Value)
	}
}

func TestParseConstructorAndSuperCall(t *testing.T) {
	cu := parseOrFatal(t, `
		class Dog extends Animal {
			Dog(String name) {
				super(name);
			}
		}
	`)
	cd := cu.Types[0]
	if cd.SuperClass == nil || cd.SuperClass.Name != "Animal" {
		t.Fatalf("expected superclass Animal, got %+v", cd.SuperClass)
	}
	md := cd.Methods[0]
	if md.Name != "<init>" {
		t.Fatalf("expected constructor named <init>, got %q", md.Name)
	}
	stmt, ok := md.Body[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt wrapping the super call, got %T", md.Body[0])
	}
	sc, ok := stmt.X.(*ast.SuperCall)
	if !ok || sc.Name != "<init>" || len(sc.Args) != 1 {
		t.Fatalf("expected a 1-arg super(...) call, got %#v", stmt.X)
	}
}

func TestParseEnhancedForVsClassicFor(t *testing.T) {
	cu := parseOrFatal(t, `
		class Loops {
			void run() {
				for (int i = 0; i < 10; i++) {}
				for (String s : names) {}
			}
		}
	`)
	body := cu.Types[0].Methods[0].Body
	if _, ok := body[0].(*ast.ForStmt); !ok {
		t.Fatalf("expected classic ForStmt, got %T", body[0])
	}
	fe, ok := body[1].(*ast.ForEachStmt)
	if !ok {
		t.Fatalf("expected ForEachStmt, got %T", body[1])
	}
	if fe.VarName != "s" || fe.VarType.Name != "String" {
		t.Fatalf("unexpected for-each header: %+v", fe)
	}
}

func TestParseLambdaVsParenthesizedExpr(t *testing.T) {
	cu := parseOrFatal(t, `
		class L {
			void run() {
				Runnable r = () -> total;
				int x = (total);
			}
		}
	`)
	body := cu.Types[0].Methods[0].Body
	lv, ok := body[0].(*ast.LocalVarDecl)
	if !ok {
		t.Fatalf("expected LocalVarDecl, got %T", body[0])
	}
	lam, ok := lv.Init.(*ast.Lambda)
	if !ok {
		t.Fatalf("expected Lambda init, got %#v", lv.Init)
	}
	if len(lam.Params) != 0 {
		t.Fatalf("expected a zero-arg lambda, got params %v", lam.Params)
	}
	if _, ok := lam.Body.(ast.ExprLambdaBody); !ok {
		t.Fatalf("expected an expression lambda body, got %#v", lam.Body)
	}

	lv2, ok := body[1].(*ast.LocalVarDecl)
	if !ok {
		t.Fatalf("expected second LocalVarDecl, got %T", body[1])
	}
	if _, ok := lv2.Init.(*ast.Name); !ok {
		t.Fatalf("expected the parenthesized expr to parse as a bare Name, got %#v", lv2.Init)
	}
}

func TestParseCastVsParenthesizedExpr(t *testing.T) {
	cu := parseOrFatal(t, `
		class C {
			void run() {
				Object o = null;
				int x = (int) o;
				int y = (total);
			}
		}
	`)
	body := cu.Types[0].Methods[0].Body
	lv, ok := body[1].(*ast.LocalVarDecl)
	if !ok {
		t.Fatalf("expected LocalVarDecl, got %T", body[1])
	}
	cast, ok := lv.Init.(*ast.Cast)
	if !ok || cast.Type.Name != "int" {
		t.Fatalf("expected a cast to int, got %#v", lv.Init)
	}

	lv2 := body[2].(*ast.LocalVarDecl)
	if _, ok := lv2.Init.(*ast.Name); !ok {
		t.Fatalf("expected a bare name, not a cast, got %#v", lv2.Init)
	}
}

func TestParseNestedGenericCloseAngle(t *testing.T) {
	cu := parseOrFatal(t, `
		class G {
			Map<String, List<Integer>> data;
		}
	`)
	fd := cu.Types[0].Fields[0]
	if fd.Name != "data" || fd.Type.Name != "Map" {
		t.Fatalf("unexpected field after nested-generic close-angle split: %+v", fd)
	}
}

func TestParseEnumWithConstructorArgs(t *testing.T) {
	cu := parseOrFatal(t, `
		enum Color {
			RED(1), GREEN(2), BLUE(3);
			private final int code;
			Color(int code) { this.code = code; }
		}
	`)
	cd := cu.Types[0]
	if cd.Kind != ast.ClassKindEnum {
		t.Fatalf("expected enum kind, got %v", cd.Kind)
	}
	if len(cd.EnumConstants) != 3 {
		t.Fatalf("expected 3 enum constants, got %d", len(cd.EnumConstants))
	}
	if cd.EnumConstants[0].Name != "RED" || len(cd.EnumConstants[0].Args) != 1 {
		t.Fatalf("unexpected first constant: %+v", cd.EnumConstants[0])
	}
}

func TestParseArrayCreationAndInitializer(t *testing.T) {
	cu := parseOrFatal(t, `
		class A {
			void run() {
				int[] xs = new int[]{1, 2, 3};
				int[] ys = new int[5];
			}
		}
	`)
	body := cu.Types[0].Methods[0].Body
	lv := body[0].(*ast.LocalVarDecl)
	na, ok := lv.Init.(*ast.NewArray)
	if !ok {
		t.Fatalf("expected NewArray, got %#v", lv.Init)
	}
	if na.Init == nil || len(na.Init.Elements) != 3 {
		t.Fatalf("expected a 3-element initializer, got %+v", na.Init)
	}

	lv2 := body[1].(*ast.LocalVarDecl)
	na2 := lv2.Init.(*ast.NewArray)
	if len(na2.Dims) != 1 {
		t.Fatalf("expected one explicit dimension, got %+v", na2.Dims)
	}
}

func TestParseSwitchStatement(t *testing.T) {
	cu := parseOrFatal(t, `
		class S {
			int pick(int x) {
				switch (x) {
				case 1:
					return 10;
				case 2:
					return 20;
				default:
					return -1;
				}
			}
		}
	`)
	body := cu.Types[0].Methods[0].Body
	sw, ok := body[0].(*ast.SwitchStmt)
	if !ok {
		t.Fatalf("expected SwitchStmt, got %T", body[0])
	}
	if len(sw.Cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(sw.Cases))
	}
	if !sw.Cases[2].Default {
		t.Errorf("expected the last case to be default")
	}
}

func TestParseTryCatchFinally(t *testing.T) {
	cu := parseOrFatal(t, `
		class T {
			void run() {
				try {
					risky();
				} catch (Exception e) {
					handle();
				} finally {
					cleanup();
				}
			}
		}
	`)
	body := cu.Types[0].Methods[0].Body
	try, ok := body[0].(*ast.TryStmt)
	if !ok {
		t.Fatalf("expected TryStmt, got %T", body[0])
	}
	if len(try.Catches) != 1 || try.Catches[0].ExcType.Name != "Exception" || try.Catches[0].VarName != "e" {
		t.Fatalf("unexpected catch clause: %+v", try.Catches)
	}
	if try.Finally == nil {
		t.Fatalf("expected a finally block")
	}
}

func TestParseSyntaxErrorReportsPosition(t *testing.T) {
	_, err := Parse("Bad.java", "class {")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	pe, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pe.File != "Bad.java" {
		t.Errorf("expected file Bad.java, got %q", pe.File)
	}
}

func TestParseMethodCallChainAndFieldAccess(t *testing.T) {
	cu := parseOrFatal(t, `
		class C {
			void run() {
				int z = obj.getList().size();
			}
		}
	`)
	lv := cu.Types[0].Methods[0].Body[0].(*ast.LocalVarDecl)
	outer, ok := lv.Init.(*ast.MethodCall)
	if !ok || outer.Name != "size" {
		t.Fatalf("expected an outer size() call, got %#v", lv.Init)
	}
	inner, ok := outer.Receiver.(*ast.MethodCall)
	if !ok || inner.Name != "getList" {
		t.Fatalf("expected a chained getList() call, got %#v", outer.Receiver)
	}
	recv, ok := inner.Receiver.(*ast.Name)
	if !ok || recv.Ident != "obj" {
		t.Fatalf("expected the receiver name obj, got %#v", inner.Receiver)
	}
}
