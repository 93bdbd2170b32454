package classpath

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jacobin-lang/jbc/classfile"
)

func writeSampleClass(t *testing.T, dir, binaryName string) {
	t.Helper()
	f := classfile.New(classfile.Major8)
	f.AccessFlags = classfile.AccPublic | classfile.AccSuper
	f.SetThisClass(binaryName)
	f.SetSuperClass("java/lang/Object")

	nameIdx := f.CP.AddUTF8("count")
	descIdx := f.CP.AddUTF8("I")
	f.Fields = append(f.Fields, &classfile.Field{
		AccessFlags:     classfile.AccPrivate,
		NameIndex:       nameIdx,
		DescriptorIndex: descIdx,
	})

	mNameIdx := f.CP.AddUTF8("<init>")
	mDescIdx := f.CP.AddUTF8("()V")
	f.Methods = append(f.Methods, &classfile.Method{
		AccessFlags:     classfile.AccPublic,
		NameIndex:       mNameIdx,
		DescriptorIndex: mDescIdx,
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	fullPath := filepath.Join(dir, filepath.FromSlash(binaryName)+".class")
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(fullPath, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestLookupFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSampleClass(t, dir, "com/example/Counter")

	path := NewPath()
	path.AddDir(dir)
	cp := New(path)

	info, err := cp.Lookup("com/example/Counter")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.SuperClass != "java/lang/Object" {
		t.Errorf("SuperClass = %q, want java/lang/Object", info.SuperClass)
	}
	if len(info.Fields) != 1 || info.Fields[0].Name != "count" || info.Fields[0].Descriptor != "I" {
		t.Errorf("unexpected fields: %+v", info.Fields)
	}
	if len(info.Methods) != 1 || info.Methods[0].Name != "<init>" {
		t.Errorf("unexpected methods: %+v", info.Methods)
	}
}

func TestLookupCachesResult(t *testing.T) {
	dir := t.TempDir()
	writeSampleClass(t, dir, "com/example/Counter")

	path := NewPath()
	path.AddDir(dir)
	cp := New(path)

	first, err := cp.Lookup("com/example/Counter")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	second, err := cp.Lookup("com/example/Counter")
	if err != nil {
		t.Fatalf("expected cached Lookup to succeed after directory removal: %v", err)
	}
	if first != second {
		t.Error("expected the same cached ClassInfo pointer on second Lookup")
	}
}

func TestLookupMissingClass(t *testing.T) {
	cp := New(NewPath())
	if _, err := cp.Lookup("does/not/Exist"); err == nil {
		t.Error("expected Lookup to fail for a class present nowhere on the path")
	}
}

func TestRegisterCompiledShortCircuitsPath(t *testing.T) {
	cp := New(NewPath())
	cp.RegisterCompiled(&ClassInfo{Name: "com/example/Fresh", SuperClass: "java/lang/Object"})
	info, err := cp.Lookup("com/example/Fresh")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.SuperClass != "java/lang/Object" {
		t.Errorf("SuperClass = %q, want java/lang/Object", info.SuperClass)
	}
}

func TestIsInterface(t *testing.T) {
	info := &ClassInfo{AccessFlags: classfile.AccInterface | classfile.AccAbstract}
	if !info.IsInterface() {
		t.Error("expected IsInterface true")
	}
	plain := &ClassInfo{AccessFlags: classfile.AccPublic}
	if plain.IsInterface() {
		t.Error("expected IsInterface false")
	}
}
