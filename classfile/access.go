/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

// Access flag bits shared by classes, fields, methods (spec.md §4.3).
// A given bit means different things depending on context (e.g.
// 0x0020 is ACC_SUPER on a class but ACC_SYNCHRONIZED on a method);
// the constants below are grouped by the context they apply to.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020 // class
	AccSynchronized = 0x0020 // method
	AccVolatile     = 0x0040 // field
	AccBridge       = 0x0040 // method
	AccTransient    = 0x0080 // field
	AccVarargs      = 0x0080 // method
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// Major version constants (spec.md §1, §6).
const (
	Major6 = 50 // no invokedynamic
	Major8 = 52 // invokedynamic / lambda metafactory present
)

const Magic uint32 = 0xCAFEBABE
