package resolver

import (
	"testing"

	"github.com/jacobin-lang/jbc/classpath"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/types"
)

func newTestClasspath() *classpath.Classpath {
	return classpath.New(classpath.NewPath())
}

func TestResolveClassNameSamePackage(t *testing.T) {
	cp := newTestClasspath()
	cp.RegisterCompiled(&classpath.ClassInfo{Name: "com/example/Widget"})

	r := New(cp, false)
	ctx := NewContext("com.example")
	internal, err := r.ResolveClassName(ctx, "Widget", diag.Span{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if internal != "com/example/Widget" {
		t.Errorf("expected com/example/Widget, got %s", internal)
	}
}

func TestResolveClassNameSingleImportWinsOverWildcard(t *testing.T) {
	cp := newTestClasspath()
	cp.RegisterCompiled(&classpath.ClassInfo{Name: "a/List"})
	cp.RegisterCompiled(&classpath.ClassInfo{Name: "b/List"})

	r := New(cp, false)
	ctx := NewContext("")
	ctx.AddSingleImport("a.List")
	ctx.AddWildcardImport("b")

	internal, err := r.ResolveClassName(ctx, "List", diag.Span{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if internal != "a/List" {
		t.Errorf("expected single-type import to win, got %s", internal)
	}
}

func TestResolveClassNameImplicitJavaLang(t *testing.T) {
	cp := newTestClasspath()
	cp.RegisterCompiled(&classpath.ClassInfo{Name: "java/lang/String"})

	r := New(cp, false)
	ctx := NewContext("com.example")
	internal, err := r.ResolveClassName(ctx, "String", diag.Span{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if internal != "java/lang/String" {
		t.Errorf("expected java/lang/String, got %s", internal)
	}
}

func TestResolveClassNameFailureListsCandidates(t *testing.T) {
	cp := newTestClasspath()
	r := New(cp, false)
	ctx := NewContext("com.example")
	_, err := r.ResolveClassName(ctx, "Nope", diag.Span{})
	if err == nil {
		t.Fatal("expected an error")
	}
	derr, ok := err.(*diag.Error)
	if !ok || derr.Kind != diag.NameResolutionError {
		t.Fatalf("expected NameResolutionError, got %v", err)
	}
}

func TestResolveMethodPicksUniqueApplicable(t *testing.T) {
	cp := newTestClasspath()
	cp.RegisterCompiled(&classpath.ClassInfo{
		Name: "com/example/Calc",
		Methods: []classpath.MemberInfo{
			{Name: "add", Descriptor: "(II)I"},
			{Name: "add", Descriptor: "(JJ)J"},
		},
	})
	r := New(cp, false)

	res, err := r.ResolveMethod("com/example/Calc", "add", []types.Type{
		types.NewPrimitive(types.Int), types.NewPrimitive(types.Int),
	}, diag.Span{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Descriptor != "(II)I" {
		t.Errorf("expected (II)I, got %s", res.Descriptor)
	}
}

func TestResolveMethodNoApplicableFails(t *testing.T) {
	cp := newTestClasspath()
	cp.RegisterCompiled(&classpath.ClassInfo{
		Name:    "com/example/Calc",
		Methods: []classpath.MemberInfo{{Name: "add", Descriptor: "(II)I"}},
	})
	r := New(cp, false)

	_, err := r.ResolveMethod("com/example/Calc", "add", []types.Type{types.StringType}, diag.Span{})
	if err == nil {
		t.Fatal("expected a TypeError for a non-applicable call")
	}
	derr, ok := err.(*diag.Error)
	if !ok || derr.Kind != diag.TypeError {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestResolveMethodAmbiguousFails(t *testing.T) {
	cp := newTestClasspath()
	cp.RegisterCompiled(&classpath.ClassInfo{
		Name: "com/example/Ambiguous",
		Methods: []classpath.MemberInfo{
			{Name: "pick", Descriptor: "(Ljava/lang/Object;Ljava/lang/String;)V"},
			{Name: "pick", Descriptor: "(Ljava/lang/String;Ljava/lang/Object;)V"},
		},
	})
	cp.RegisterCompiled(&classpath.ClassInfo{Name: "java/lang/Object"})
	cp.RegisterCompiled(&classpath.ClassInfo{Name: "java/lang/String", SuperClass: "java/lang/Object"})
	r := New(cp, false)

	_, err := r.ResolveMethod("com/example/Ambiguous", "pick", []types.Type{types.StringType, types.StringType}, diag.Span{})
	if err == nil {
		t.Fatal("expected an ambiguity TypeError")
	}
}

func TestResolveMethodVarargsPackingAndTieBreak(t *testing.T) {
	cp := newTestClasspath()
	cp.RegisterCompiled(&classpath.ClassInfo{
		Name: "com/example/Sum",
		Methods: []classpath.MemberInfo{
			{Name: "sum", Descriptor: "(I)I"},
			{Name: "sum", Descriptor: "([I)I", AccessFlags: 0x0080}, // ACC_VARARGS
		},
	})
	r := New(cp, false)

	// Exactly one int argument: the fixed-arity overload should win
	// over the varargs one (spec.md §4.5 "ties broken by preferring
	// non-varargs to varargs").
	res, err := r.ResolveMethod("com/example/Sum", "sum", []types.Type{types.NewPrimitive(types.Int)}, diag.Span{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsVarargs {
		t.Errorf("expected the fixed-arity overload to win over varargs on a single match, got %s", res.Descriptor)
	}

	// Three int arguments: only the varargs form applies.
	res, err = r.ResolveMethod("com/example/Sum", "sum", []types.Type{
		types.NewPrimitive(types.Int), types.NewPrimitive(types.Int), types.NewPrimitive(types.Int),
	}, diag.Span{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsVarargs {
		t.Errorf("expected the varargs overload to be selected for 3 arguments")
	}
}

func TestResolveFieldWalksHierarchy(t *testing.T) {
	cp := newTestClasspath()
	cp.RegisterCompiled(&classpath.ClassInfo{Name: "java/lang/Object"})
	cp.RegisterCompiled(&classpath.ClassInfo{
		Name:       "com/example/Animal",
		SuperClass: "java/lang/Object",
		Fields:     []classpath.MemberInfo{{Name: "n", Descriptor: "Ljava/lang/String;"}},
	})
	cp.RegisterCompiled(&classpath.ClassInfo{Name: "com/example/Dog", SuperClass: "com/example/Animal"})
	r := New(cp, false)

	fr, err := r.ResolveField("com/example/Dog", "n", diag.Span{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fr.Owner != "com/example/Animal" {
		t.Errorf("expected the declaring owner Animal, got %s", fr.Owner)
	}
}

func TestIsAssignableBoxingAndWidening(t *testing.T) {
	r := New(newTestClasspath(), false)

	if _, ok := r.IsAssignable(types.NewPrimitive(types.Int), types.NewPrimitive(types.Long)); !ok {
		t.Error("expected int -> long widening to be assignable")
	}
	if _, ok := r.IsAssignable(types.NewPrimitive(types.Long), types.NewPrimitive(types.Int)); ok {
		t.Error("expected long -> int to be rejected (narrowing)")
	}
	if kind, ok := r.IsAssignable(types.NewPrimitive(types.Int), types.BoxedInt); !ok || kind != AssignBoxing {
		t.Errorf("expected int -> Integer boxing, got kind=%v ok=%v", kind, ok)
	}
	if kind, ok := r.IsAssignable(types.BoxedInt, types.NewPrimitive(types.Int)); !ok || kind != AssignUnboxing {
		t.Errorf("expected Integer -> int unboxing, got kind=%v ok=%v", kind, ok)
	}
}
