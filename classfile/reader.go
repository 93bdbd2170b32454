/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jacobin-lang/jbc/cpool"
)

// Read parses a class file's exact byte layout back into a File. It
// is the inverse of File.Write, used by the roundtrip test and shared
// with the classpath package's class reader (grounded on
// classloader.go's ParseAndPostClass, the format-check pass done here
// for signature lookup instead of execution).
func Read(r io.Reader) (*File, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("classfile: bad magic %#x", magic)
	}
	f := &File{}
	if err := binary.Read(r, binary.BigEndian, &f.MinorVersion); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &f.MajorVersion); err != nil {
		return nil, err
	}
	cp, err := cpool.Read(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading constant pool: %w", err)
	}
	f.CP = cp

	var accessFlags, thisClass, superClass, interfaceCount uint16
	if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
		return nil, err
	}
	f.AccessFlags = int(accessFlags)
	if err := binary.Read(r, binary.BigEndian, &thisClass); err != nil {
		return nil, err
	}
	f.ThisClass = int(thisClass)
	if err := binary.Read(r, binary.BigEndian, &superClass); err != nil {
		return nil, err
	}
	f.SuperClass = int(superClass)
	if err := binary.Read(r, binary.BigEndian, &interfaceCount); err != nil {
		return nil, err
	}
	for i := 0; i < int(interfaceCount); i++ {
		var idx uint16
		if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
			return nil, err
		}
		f.Interfaces = append(f.Interfaces, int(idx))
	}

	if f.Fields, err = readFields(r); err != nil {
		return nil, err
	}
	if f.Methods, err = readMethods(r); err != nil {
		return nil, err
	}
	if f.Attributes, err = readAttributes(r); err != nil {
		return nil, err
	}
	return f, nil
}

func readFields(r io.Reader) ([]*Field, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	fields := make([]*Field, 0, count)
	for i := 0; i < int(count); i++ {
		var accessFlags, nameIdx, descIdx uint16
		if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &nameIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &descIdx); err != nil {
			return nil, err
		}
		attrs, err := readAttributes(r)
		if err != nil {
			return nil, err
		}
		fields = append(fields, &Field{
			AccessFlags:     int(accessFlags),
			NameIndex:       int(nameIdx),
			DescriptorIndex: int(descIdx),
			Attributes:      attrs,
		})
	}
	return fields, nil
}

func readMethods(r io.Reader) ([]*Method, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	methods := make([]*Method, 0, count)
	for i := 0; i < int(count); i++ {
		var accessFlags, nameIdx, descIdx uint16
		if err := binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &nameIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &descIdx); err != nil {
			return nil, err
		}
		attrs, err := readAttributes(r)
		if err != nil {
			return nil, err
		}
		methods = append(methods, &Method{
			AccessFlags:     int(accessFlags),
			NameIndex:       int(nameIdx),
			DescriptorIndex: int(descIdx),
			Attributes:      attrs,
		})
	}
	return methods, nil
}

func readAttributes(r io.Reader) ([]Attribute, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	attrs := make([]Attribute, 0, count)
	for i := 0; i < int(count); i++ {
		var nameIdx uint16
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &nameIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		attrs = append(attrs, Attribute{NameIndex: int(nameIdx), Data: data})
	}
	return attrs, nil
}
