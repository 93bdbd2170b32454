/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package classfile is the in-memory model of one output class
// (spec.md §4.3) and its exact-byte-layout serializer. It is
// grounded on classloader.go's ParsedClass -> convertToPostableClass
// pipeline, used here in the opposite direction: build the model,
// then write it out, instead of reading bytes into it.
package classfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jacobin-lang/jbc/cpool"
)

// Attribute is a single attribute_info entry: a name index into the
// owning pool plus its already-serialized body. Each attribute kind
// in attributes.go knows how to produce this generic shape, so the
// serializer never needs to special-case attribute kinds itself —
// only the length prefix, which it computes from len(Data).
type Attribute struct {
	NameIndex int
	Data      []byte
}

// Field is one field_info entry.
type Field struct {
	AccessFlags     int
	NameIndex       int
	DescriptorIndex int
	Attributes      []Attribute
}

// Method is one method_info entry.
type Method struct {
	AccessFlags     int
	NameIndex       int
	DescriptorIndex int
	Attributes      []Attribute
}

// File is the in-memory representation of one class file. Its
// constant pool is exclusively owned by it and never outlives it
// (Design Notes: "ownership of the constant pool").
type File struct {
	MinorVersion uint16
	MajorVersion uint16
	CP           *cpool.Pool

	AccessFlags int
	ThisClass   int // cp index
	SuperClass  int // cp index, 0 only for java/lang/Object itself
	Interfaces  []int

	Fields     []*Field
	Methods    []*Method
	Attributes []Attribute

	// Mutable per-class-file-model counters (Design Notes: "mutable
	// counters... are per-class-file-model fields, not process
	// globals"), used by codegen's lambda and synthetic-method
	// desugaring.
	nextLambdaID    int
	nextSyntheticID int
}

// New creates an empty File with its own fresh constant pool, ready
// to have its this-class name added to the pool and referenced.
func New(major uint16) *File {
	return &File{
		MinorVersion: 0,
		MajorVersion: major,
		CP:           cpool.New(),
	}
}

// NextLambdaID returns a fresh, class-file-scoped lambda site id,
// starting at 0.
func (f *File) NextLambdaID() int {
	id := f.nextLambdaID
	f.nextLambdaID++
	return id
}

// NextSyntheticID returns a fresh, class-file-scoped id for naming
// synthetic methods (lambda bodies, bridge methods).
func (f *File) NextSyntheticID() int {
	id := f.nextSyntheticID
	f.nextSyntheticID++
	return id
}

// SetThisClass adds internalName to the pool and records it as the
// this_class reference (invariant: this_class must be bound before
// Write).
func (f *File) SetThisClass(internalName string) {
	f.ThisClass = f.CP.AddClass(internalName)
}

// SetSuperClass adds internalName to the pool and records it as the
// super_class reference.
func (f *File) SetSuperClass(internalName string) {
	f.SuperClass = f.CP.AddClass(internalName)
}

// AddInterface adds internalName to the pool and appends it to the
// interfaces list.
func (f *File) AddInterface(internalName string) {
	f.Interfaces = append(f.Interfaces, f.CP.AddClass(internalName))
}

// Write serializes the class file to the exact on-disk byte layout:
// magic, minor/major version, constant pool, access flags,
// this/super/interfaces, fields, methods, attributes.
func (f *File) Write(w io.Writer) error {
	if _, bound := f.CP.Entry(f.ThisClass); !bound {
		return fmt.Errorf("classfile: this_class index %d is unbound", f.ThisClass)
	}
	if err := binary.Write(w, binary.BigEndian, Magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, f.MinorVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, f.MajorVersion); err != nil {
		return err
	}
	if err := f.CP.Write(w); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint16(f.AccessFlags)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint16(f.ThisClass)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint16(f.SuperClass)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(f.Interfaces))); err != nil {
		return err
	}
	for _, i := range f.Interfaces {
		if err := binary.Write(w, binary.BigEndian, uint16(i)); err != nil {
			return err
		}
	}
	if err := writeFields(w, f.Fields); err != nil {
		return err
	}
	if err := writeMethods(w, f.Methods); err != nil {
		return err
	}
	return writeAttributes(w, f.Attributes)
}

func writeFields(w io.Writer, fields []*Field) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(fields))); err != nil {
		return err
	}
	for _, fl := range fields {
		if err := binary.Write(w, binary.BigEndian, uint16(fl.AccessFlags)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint16(fl.NameIndex)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint16(fl.DescriptorIndex)); err != nil {
			return err
		}
		if err := writeAttributes(w, fl.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func writeMethods(w io.Writer, methods []*Method) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(methods))); err != nil {
		return err
	}
	for _, m := range methods {
		if err := binary.Write(w, binary.BigEndian, uint16(m.AccessFlags)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint16(m.NameIndex)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint16(m.DescriptorIndex)); err != nil {
			return err
		}
		if err := writeAttributes(w, m.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func writeAttributes(w io.Writer, attrs []Attribute) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(attrs))); err != nil {
		return err
	}
	for _, a := range attrs {
		if err := binary.Write(w, binary.BigEndian, uint16(a.NameIndex)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(a.Data))); err != nil {
			return err
		}
		if _, err := w.Write(a.Data); err != nil {
			return err
		}
	}
	return nil
}
