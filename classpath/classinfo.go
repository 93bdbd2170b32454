/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classpath

import (
	"bytes"
	"fmt"

	"github.com/jacobin-lang/jbc/classfile"
)

// MemberInfo is a field or method's resolver-visible signature: its
// name, erased descriptor, and access flags. It deliberately omits
// everything a compiler never needs about another class's members —
// no bytecode, no attribute bodies.
type MemberInfo struct {
	Name        string
	Descriptor  string
	AccessFlags int
}

// ClassInfo is everything the resolver needs to know about a class it
// did not itself just compile: its superclass, the interfaces it
// implements, and its field/method signatures (spec.md §4.5's field
// and method resolution walk the class hierarchy through exactly this
// shape).
type ClassInfo struct {
	Name        string
	SuperClass  string // "" only for java/lang/Object
	Interfaces  []string
	Fields      []MemberInfo
	Methods     []MemberInfo
	AccessFlags int
}

// IsInterface reports whether the class is declared as an interface.
func (c *ClassInfo) IsInterface() bool {
	return c.AccessFlags&classfile.AccInterface != 0
}

// FromBytes parses a class file's bytes and extracts its ClassInfo,
// discarding Code attributes and anything else a compiler only needs
// to produce, never to read back (grounded on classloader.go's
// convertToPostableClass, which performs the equivalent "raw parse ->
// structured class record" step for the purpose of execution instead
// of signature lookup).
func FromBytes(data []byte) (*ClassInfo, error) {
	f, err := classfile.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("classpath: %w", err)
	}
	return fromFile(f)
}

func fromFile(f *classfile.File) (*ClassInfo, error) {
	name, err := classNameAt(f, f.ThisClass)
	if err != nil {
		return nil, err
	}
	info := &ClassInfo{Name: name, AccessFlags: f.AccessFlags}

	if f.SuperClass != 0 {
		superName, err := classNameAt(f, f.SuperClass)
		if err != nil {
			return nil, err
		}
		info.SuperClass = superName
	}

	for _, idx := range f.Interfaces {
		ifaceName, err := classNameAt(f, idx)
		if err != nil {
			return nil, err
		}
		info.Interfaces = append(info.Interfaces, ifaceName)
	}

	for _, field := range f.Fields {
		name, ok := f.CP.UTF8At(field.NameIndex)
		if !ok {
			return nil, fmt.Errorf("classpath: field name index %d unbound in %s", field.NameIndex, info.Name)
		}
		desc, ok := f.CP.UTF8At(field.DescriptorIndex)
		if !ok {
			return nil, fmt.Errorf("classpath: field descriptor index %d unbound in %s", field.DescriptorIndex, info.Name)
		}
		info.Fields = append(info.Fields, MemberInfo{Name: name, Descriptor: desc, AccessFlags: field.AccessFlags})
	}

	for _, method := range f.Methods {
		name, ok := f.CP.UTF8At(method.NameIndex)
		if !ok {
			return nil, fmt.Errorf("classpath: method name index %d unbound in %s", method.NameIndex, info.Name)
		}
		desc, ok := f.CP.UTF8At(method.DescriptorIndex)
		if !ok {
			return nil, fmt.Errorf("classpath: method descriptor index %d unbound in %s", method.DescriptorIndex, info.Name)
		}
		info.Methods = append(info.Methods, MemberInfo{Name: name, Descriptor: desc, AccessFlags: method.AccessFlags})
	}

	return info, nil
}

func classNameAt(f *classfile.File, classIndex int) (string, error) {
	entry, ok := f.CP.Entry(classIndex)
	if !ok {
		return "", fmt.Errorf("classpath: class index %d unbound", classIndex)
	}
	name, ok := f.CP.UTF8At(entry.NameIndex)
	if !ok {
		return "", fmt.Errorf("classpath: class name index %d unbound", entry.NameIndex)
	}
	return name, nil
}
