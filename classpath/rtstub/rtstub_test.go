package rtstub

import (
	"testing"

	"github.com/jacobin-lang/jbc/classpath"
)

func TestLoadRegistersObjectAndString(t *testing.T) {
	cp := classpath.New(classpath.NewPath())
	Load(cp)

	obj, err := cp.Lookup("java/lang/Object")
	if err != nil {
		t.Fatalf("expected java/lang/Object to be registered: %v", err)
	}
	if obj.SuperClass != "" {
		t.Errorf("Object's SuperClass = %q, want empty", obj.SuperClass)
	}

	str, err := cp.Lookup("java/lang/String")
	if err != nil {
		t.Fatalf("expected java/lang/String to be registered: %v", err)
	}
	if str.SuperClass != "java/lang/Object" {
		t.Errorf("String's SuperClass = %q, want java/lang/Object", str.SuperClass)
	}
}

func TestWrapperStubsExposeUnboxMethod(t *testing.T) {
	cp := classpath.New(classpath.NewPath())
	Load(cp)

	integer, err := cp.Lookup("java/lang/Integer")
	if err != nil {
		t.Fatalf("expected java/lang/Integer to be registered: %v", err)
	}
	found := false
	for _, m := range integer.Methods {
		if m.Name == "intValue" && m.Descriptor == "()I" {
			found = true
		}
	}
	if !found {
		t.Error("expected Integer to expose intValue()I")
	}
}

func TestIterableIsInterface(t *testing.T) {
	cp := classpath.New(classpath.NewPath())
	Load(cp)

	iterable, err := cp.Lookup("java/lang/Iterable")
	if err != nil {
		t.Fatalf("expected java/lang/Iterable to be registered: %v", err)
	}
	if !iterable.IsInterface() {
		t.Error("expected Iterable.IsInterface() true")
	}
}
