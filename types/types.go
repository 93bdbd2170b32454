/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package types is the JVM-visible type model (spec.md §3): a closed
// sum of primitive, reference, array and void types, each knowing its
// descriptor, computational category, and default zero value.
package types

import "strings"

// Kind discriminates the tagged union.
type Kind int

const (
	KindPrimitive Kind = iota
	KindReference
	KindArray
	KindVoid
)

// Primitive names the eight JVM primitive types.
type Primitive int

const (
	Boolean Primitive = iota
	Byte
	Short
	Char
	Int
	Long
	Float
	Double
)

func (p Primitive) descriptor() string {
	switch p {
	case Boolean:
		return "Z"
	case Byte:
		return "B"
	case Short:
		return "S"
	case Char:
		return "C"
	case Int:
		return "I"
	case Long:
		return "J"
	case Float:
		return "F"
	case Double:
		return "D"
	default:
		panic("unknown primitive")
	}
}

func (p Primitive) String() string {
	switch p {
	case Boolean:
		return "boolean"
	case Byte:
		return "byte"
	case Short:
		return "short"
	case Char:
		return "char"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return "?"
	}
}

// Type is the tagged variant {Primitive(kind), Reference(internal_name),
// Array(element, dims), Void}. Zero value is KindVoid.
type Type struct {
	kind      Kind
	primitive Primitive
	internal  string // reference: internal name, "/" separated
	elem      *Type  // array: element type
	dims      int    // array: dimension count, >= 1
}

// Void is the sentinel "no value" type.
var Void = Type{kind: KindVoid}

// NewPrimitive builds a primitive Type.
func NewPrimitive(p Primitive) Type {
	return Type{kind: KindPrimitive, primitive: p}
}

// NewReference builds a reference Type from an internal name, e.g.
// "java/lang/String".
func NewReference(internalName string) Type {
	return Type{kind: KindReference, internal: internalName}
}

// NewArray builds an array Type with the given element type and
// dimension count. The element type is never Void.
func NewArray(elem Type, dims int) Type {
	if elem.IsVoid() {
		panic("array element type must not be void")
	}
	if dims < 1 {
		panic("array dimension count must be >= 1")
	}
	e := elem
	return Type{kind: KindArray, elem: &e, dims: dims}
}

func (t Type) IsVoid() bool      { return t.kind == KindVoid }
func (t Type) IsPrimitive() bool { return t.kind == KindPrimitive }
func (t Type) IsArray() bool     { return t.kind == KindArray }

// IsReference is true for reference and array types (and, by JVM
// convention, the null type — represented here as a reference type
// with an empty internal name).
func (t Type) IsReference() bool {
	return t.kind == KindReference || t.kind == KindArray
}

// Primitive returns the primitive kind; only valid when IsPrimitive().
func (t Type) Primitive() Primitive { return t.primitive }

// InternalName returns the reference type's internal name; only valid
// when the type is a plain reference (not array, not primitive).
func (t Type) InternalName() string { return t.internal }

// Elem returns the array's element type; only valid when IsArray().
func (t Type) Elem() Type { return *t.elem }

// Dims returns the array's dimension count; only valid when IsArray().
func (t Type) Dims() int { return t.dims }

// Descriptor returns the JVM descriptor string/char for this type,
// e.g. "I", "Ljava/lang/String;", "[[I".
func (t Type) Descriptor() string {
	switch t.kind {
	case KindVoid:
		return "V"
	case KindPrimitive:
		return t.primitive.descriptor()
	case KindReference:
		return "L" + t.internal + ";"
	case KindArray:
		return strings.Repeat("[", t.dims) + t.elem.Descriptor()
	default:
		panic("unknown type kind")
	}
}

// Category returns 1 for every type except long and double, which
// occupy two stack/local slots.
func (t Type) Category() int {
	if t.kind == KindPrimitive && (t.primitive == Long || t.primitive == Double) {
		return 2
	}
	return 1
}

// IsWide is a readability alias for Category() == 2.
func (t Type) IsWide() bool { return t.Category() == 2 }

// ZeroValue returns the default value the JVM assigns to a field or
// local of this type when uninitialized: int32(0) for byte, short,
// char and int, int64(0) for long, float32(0) for float, float64(0)
// for double, false
// for boolean, and nil for any reference or array type. Void has no
// zero value and is never queried.
func (t Type) ZeroValue() interface{} {
	switch t.kind {
	case KindPrimitive:
		switch t.primitive {
		case Boolean:
			return false
		case Float:
			return float32(0)
		case Double:
			return float64(0)
		case Long:
			return int64(0)
		default: // Byte, Short, Char, Int
			return int32(0)
		}
	case KindReference, KindArray:
		return nil
	default:
		panic("void type has no zero value")
	}
}

func (t Type) String() string {
	switch t.kind {
	case KindVoid:
		return "void"
	case KindPrimitive:
		return t.primitive.String()
	case KindReference:
		return strings.ReplaceAll(t.internal, "/", ".")
	case KindArray:
		return t.elem.String() + strings.Repeat("[]", t.dims)
	default:
		return "?"
	}
}

// Equal reports structural equality.
func (t Type) Equal(other Type) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case KindPrimitive:
		return t.primitive == other.primitive
	case KindReference:
		return t.internal == other.internal
	case KindArray:
		return t.dims == other.dims && t.elem.Equal(*other.elem)
	default:
		return true // Void == Void
	}
}

// Common well-known reference types, used throughout codegen/resolver.
var (
	Object        = NewReference("java/lang/Object")
	StringType    = NewReference("java/lang/String")
	StringBuilder = NewReference("java/lang/StringBuilder")
	BoxedBoolean  = NewReference("java/lang/Boolean")
	BoxedByte     = NewReference("java/lang/Byte")
	BoxedShort    = NewReference("java/lang/Short")
	BoxedChar     = NewReference("java/lang/Character")
	BoxedInt      = NewReference("java/lang/Integer")
	BoxedLong     = NewReference("java/lang/Long")
	BoxedFloat    = NewReference("java/lang/Float")
	BoxedDouble   = NewReference("java/lang/Double")
	EnumType      = NewReference("java/lang/Enum")
	Iterable      = NewReference("java/lang/Iterable")
	Iterator      = NewReference("java/util/Iterator")
)

// WrapperFor returns the wrapper reference type for a primitive, e.g.
// Int -> java/lang/Integer. Used by autoboxing.
func WrapperFor(p Primitive) Type {
	switch p {
	case Boolean:
		return BoxedBoolean
	case Byte:
		return BoxedByte
	case Short:
		return BoxedShort
	case Char:
		return BoxedChar
	case Int:
		return BoxedInt
	case Long:
		return BoxedLong
	case Float:
		return BoxedFloat
	case Double:
		return BoxedDouble
	default:
		panic("unknown primitive")
	}
}

// UnboxMethod returns the unboxing method name for a primitive, e.g.
// Int -> "intValue".
func UnboxMethod(p Primitive) string {
	switch p {
	case Boolean:
		return "booleanValue"
	case Byte:
		return "byteValue"
	case Short:
		return "shortValue"
	case Char:
		return "charValue"
	case Int:
		return "intValue"
	case Long:
		return "longValue"
	case Float:
		return "floatValue"
	case Double:
		return "doubleValue"
	default:
		panic("unknown primitive")
	}
}
