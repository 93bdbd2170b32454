/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"bytes"
	"encoding/binary"

	"github.com/jacobin-lang/jbc/cpool"
)

func attr(cp *cpool.Pool, name string, data []byte) Attribute {
	return Attribute{NameIndex: cp.AddUTF8(name), Data: data}
}

// ExceptionTableEntry is one row of a Code attribute's exception
// table (spec.md §4.2). CatchType is 0 for a catch-all (the
// all-exception-types handler used to inline `finally`).
type ExceptionTableEntry struct {
	StartPC, EndPC, HandlerPC uint16
	CatchType                 int
}

// NewCodeAttribute builds the Code attribute body: max_stack,
// max_locals, the instruction bytes, the exception table, and any
// nested attributes (e.g. LineNumberTable).
func NewCodeAttribute(cp *cpool.Pool, maxStack, maxLocals uint16, code []byte, table []ExceptionTableEntry, nested []Attribute) Attribute {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, maxStack)
	binary.Write(&buf, binary.BigEndian, maxLocals)
	binary.Write(&buf, binary.BigEndian, uint32(len(code)))
	buf.Write(code)
	binary.Write(&buf, binary.BigEndian, uint16(len(table)))
	for _, e := range table {
		binary.Write(&buf, binary.BigEndian, e.StartPC)
		binary.Write(&buf, binary.BigEndian, e.EndPC)
		binary.Write(&buf, binary.BigEndian, e.HandlerPC)
		binary.Write(&buf, binary.BigEndian, uint16(e.CatchType))
	}
	binary.Write(&buf, binary.BigEndian, uint16(len(nested)))
	for _, a := range nested {
		binary.Write(&buf, binary.BigEndian, uint16(a.NameIndex))
		binary.Write(&buf, binary.BigEndian, uint32(len(a.Data)))
		buf.Write(a.Data)
	}
	return attr(cp, "Code", buf.Bytes())
}

// NewConstantValueAttribute points a static final field's
// ConstantValue attribute at an already-interned literal index.
func NewConstantValueAttribute(cp *cpool.Pool, constantIndex int) Attribute {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(constantIndex))
	return attr(cp, "ConstantValue", buf.Bytes())
}

// NewExceptionsAttribute lists the checked exception class indices a
// method declares via `throws`.
func NewExceptionsAttribute(cp *cpool.Pool, exceptionClassIndices []int) Attribute {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(len(exceptionClassIndices)))
	for _, idx := range exceptionClassIndices {
		binary.Write(&buf, binary.BigEndian, uint16(idx))
	}
	return attr(cp, "Exceptions", buf.Bytes())
}

// InnerClassEntry is one row of an InnerClasses attribute.
type InnerClassEntry struct {
	InnerClassInfoIndex int
	OuterClassInfoIndex int // 0 if not a member of another class
	InnerNameIndex      int // 0 if anonymous (never emitted by this compiler, but representable)
	InnerClassAccess    int
}

// NewInnerClassesAttribute lists the nested-class relationships the
// outer class declares (spec.md §4.6 "static nested classes").
func NewInnerClassesAttribute(cp *cpool.Pool, entries []InnerClassEntry) Attribute {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, binary.BigEndian, uint16(e.InnerClassInfoIndex))
		binary.Write(&buf, binary.BigEndian, uint16(e.OuterClassInfoIndex))
		binary.Write(&buf, binary.BigEndian, uint16(e.InnerNameIndex))
		binary.Write(&buf, binary.BigEndian, uint16(e.InnerClassAccess))
	}
	return attr(cp, "InnerClasses", buf.Bytes())
}

// BootstrapMethodEntry is one row of the class's BootstrapMethods
// attribute, referenced by InvokeDynamic constant-pool entries.
type BootstrapMethodEntry struct {
	MethodRefIndex int // index of a MethodHandle entry
	Arguments      []int
}

// NewBootstrapMethodsAttribute serializes the class-wide bootstrap
// method table (spec.md §4.6 "lambdas... standard metafactory
// bootstrap method").
func NewBootstrapMethodsAttribute(cp *cpool.Pool, methods []BootstrapMethodEntry) Attribute {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(len(methods)))
	for _, m := range methods {
		binary.Write(&buf, binary.BigEndian, uint16(m.MethodRefIndex))
		binary.Write(&buf, binary.BigEndian, uint16(len(m.Arguments)))
		for _, a := range m.Arguments {
			binary.Write(&buf, binary.BigEndian, uint16(a))
		}
	}
	return attr(cp, "BootstrapMethods", buf.Bytes())
}

// NewSignatureAttribute records a field/method/class's generic
// signature string, alongside (never instead of) its erased
// descriptor (spec.md Glossary: "Erasure").
func NewSignatureAttribute(cp *cpool.Pool, signature string) Attribute {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(cp.AddUTF8(signature)))
	return attr(cp, "Signature", buf.Bytes())
}

// NewSourceFileAttribute records the name of the source file the
// class was compiled from.
func NewSourceFileAttribute(cp *cpool.Pool, sourceFileName string) Attribute {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(cp.AddUTF8(sourceFileName)))
	return attr(cp, "SourceFile", buf.Bytes())
}

// MethodParameterEntry is one row of a MethodParameters attribute.
type MethodParameterEntry struct {
	NameIndex   int // 0 if the parameter has no name available
	AccessFlags int
}

// NewMethodParametersAttribute records parameter names/flags (e.g.
// synthetic leading captured-local parameters of a lambda body).
func NewMethodParametersAttribute(cp *cpool.Pool, params []MethodParameterEntry) Attribute {
	var buf bytes.Buffer
	buf.WriteByte(byte(len(params)))
	for _, p := range params {
		binary.Write(&buf, binary.BigEndian, uint16(p.NameIndex))
		binary.Write(&buf, binary.BigEndian, uint16(p.AccessFlags))
	}
	return attr(cp, "MethodParameters", buf.Bytes())
}
