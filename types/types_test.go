package types

import "testing"

func TestDescriptors(t *testing.T) {
	cases := []struct {
		t    Type
		want string
	}{
		{NewPrimitive(Int), "I"},
		{NewPrimitive(Long), "J"},
		{NewPrimitive(Boolean), "Z"},
		{NewReference("java/lang/String"), "Ljava/lang/String;"},
		{NewArray(NewPrimitive(Int), 1), "[I"},
		{NewArray(NewPrimitive(Int), 2), "[[I"},
		{NewArray(NewReference("java/lang/String"), 1), "[Ljava/lang/String;"},
		{Void, "V"},
	}
	for _, c := range cases {
		if got := c.t.Descriptor(); got != c.want {
			t.Errorf("Descriptor() = %q, want %q", got, c.want)
		}
	}
}

func TestCategory(t *testing.T) {
	if NewPrimitive(Long).Category() != 2 {
		t.Error("expected long to be category 2")
	}
	if NewPrimitive(Double).Category() != 2 {
		t.Error("expected double to be category 2")
	}
	if NewPrimitive(Int).Category() != 1 {
		t.Error("expected int to be category 1")
	}
	if NewReference("java/lang/Object").Category() != 1 {
		t.Error("expected reference to be category 1")
	}
}

func TestIsReference(t *testing.T) {
	if !NewReference("java/lang/Object").IsReference() {
		t.Error("expected reference type to be IsReference")
	}
	if !NewArray(NewPrimitive(Int), 1).IsReference() {
		t.Error("expected array type to be IsReference")
	}
	if NewPrimitive(Int).IsReference() {
		t.Error("expected primitive type not to be IsReference")
	}
}

func TestArrayElementNeverVoid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic constructing array of void")
		}
	}()
	NewArray(Void, 1)
}

func TestZeroValue(t *testing.T) {
	if NewPrimitive(Int).ZeroValue() != int32(0) {
		t.Error("expected int zero value int32(0)")
	}
	if NewPrimitive(Boolean).ZeroValue() != false {
		t.Error("expected boolean zero value false")
	}
	if NewReference("java/lang/Object").ZeroValue() != nil {
		t.Error("expected reference zero value nil")
	}
}

func TestEqual(t *testing.T) {
	a := NewArray(NewPrimitive(Int), 2)
	b := NewArray(NewPrimitive(Int), 2)
	if !a.Equal(b) {
		t.Error("expected structurally identical array types to be Equal")
	}
	c := NewArray(NewPrimitive(Int), 1)
	if a.Equal(c) {
		t.Error("expected different-dimension arrays not to be Equal")
	}
}

func TestWrapperAndUnbox(t *testing.T) {
	if !WrapperFor(Int).Equal(BoxedInt) {
		t.Error("expected WrapperFor(Int) to be BoxedInt")
	}
	if UnboxMethod(Int) != "intValue" {
		t.Errorf("UnboxMethod(Int) = %q, want intValue", UnboxMethod(Int))
	}
}
