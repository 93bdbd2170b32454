package classfile

import (
	"bytes"
	"testing"
)

func buildSampleFile() *File {
	f := New(Major8)
	f.AccessFlags = AccPublic | AccSuper
	f.SetThisClass("com/example/Greeter")
	f.SetSuperClass("java/lang/Object")
	f.AddInterface("java/lang/Runnable")

	nameIdx := f.CP.AddUTF8("greeting")
	descIdx := f.CP.AddUTF8("Ljava/lang/String;")
	constIdx := f.CP.AddString("hello")
	field := &Field{
		AccessFlags:     AccPrivate | AccStatic | AccFinal,
		NameIndex:       nameIdx,
		DescriptorIndex: descIdx,
		Attributes:      []Attribute{NewConstantValueAttribute(f.CP, constIdx)},
	}
	f.Fields = append(f.Fields, field)

	mNameIdx := f.CP.AddUTF8("run")
	mDescIdx := f.CP.AddUTF8("()V")
	code := []byte{0xb1} // return
	codeAttr := NewCodeAttribute(f.CP, 1, 1, code, nil, nil)
	method := &Method{
		AccessFlags:     AccPublic,
		NameIndex:       mNameIdx,
		DescriptorIndex: mDescIdx,
		Attributes:      []Attribute{codeAttr},
	}
	f.Methods = append(f.Methods, method)

	f.Attributes = append(f.Attributes, NewSourceFileAttribute(f.CP, "Greeter.java"))
	return f
}

func TestRoundtrip(t *testing.T) {
	f := buildSampleFile()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got.MajorVersion != Major8 {
		t.Errorf("MajorVersion = %d, want %d", got.MajorVersion, Major8)
	}
	if got.AccessFlags != f.AccessFlags {
		t.Errorf("AccessFlags = %#x, want %#x", got.AccessFlags, f.AccessFlags)
	}
	thisName, ok := got.CP.Entry(got.ThisClass)
	if !ok {
		t.Fatalf("this_class not bound after roundtrip")
	}
	utf8, ok := got.CP.UTF8At(thisName.NameIndex)
	if !ok || utf8 != "com/example/Greeter" {
		t.Errorf("this_class name = %q, want com/example/Greeter", utf8)
	}

	if len(got.Interfaces) != 1 {
		t.Fatalf("expected 1 interface, got %d", len(got.Interfaces))
	}
	ifaceEntry, _ := got.CP.Entry(got.Interfaces[0])
	ifaceName, _ := got.CP.UTF8At(ifaceEntry.NameIndex)
	if ifaceName != "java/lang/Runnable" {
		t.Errorf("interface name = %q, want java/lang/Runnable", ifaceName)
	}

	if len(got.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(got.Fields))
	}
	gotField := got.Fields[0]
	if gotField.AccessFlags != f.Fields[0].AccessFlags {
		t.Errorf("field access flags changed across roundtrip")
	}
	if len(gotField.Attributes) != 1 || gotField.Attributes[0].NameIndex == 0 {
		t.Errorf("expected field's ConstantValue attribute to survive roundtrip")
	}

	if len(got.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(got.Methods))
	}
	gotMethod := got.Methods[0]
	if len(gotMethod.Attributes) != 1 {
		t.Fatalf("expected method to carry its Code attribute")
	}
	if !bytes.Contains(gotMethod.Attributes[0].Data, []byte{0xb1}) {
		t.Errorf("Code attribute body lost the instruction bytes")
	}

	if len(got.Attributes) != 1 {
		t.Fatalf("expected 1 class attribute (SourceFile), got %d", len(got.Attributes))
	}
}

func TestWriteFailsWithUnboundThisClass(t *testing.T) {
	f := New(Major8)
	var buf bytes.Buffer
	if err := f.Write(&buf); err == nil {
		t.Error("expected Write to fail when this_class was never set")
	}
}

func TestAccessFlagsContext(t *testing.T) {
	// ACC_SUPER on a class and ACC_SYNCHRONIZED on a method share bit
	// 0x0020; verify the constants alias as expected.
	if AccSuper != AccSynchronized {
		t.Error("expected AccSuper and AccSynchronized to share the same bit")
	}
	if AccBridge != AccVolatile {
		t.Error("expected AccBridge and AccVolatile to share the same bit")
	}
}
