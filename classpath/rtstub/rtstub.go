/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package rtstub is a small, hand-written stand-in for the
// java/lang and java/util surface the end-to-end scenarios need:
// Object, String, StringBuilder, the eight wrapper classes, Enum,
// Iterable/Iterator, and Function. A real JDK rt.jar/java.base.jmod is
// too large to bundle; this is a deliberate, documented scope
// reduction, the same kind jacobin itself makes by depending on an
// external JAVA_HOME (globals.JavaHome) rather than shipping one.
//
// Load registers every stub directly into a classpath.Classpath's
// cache, bypassing the directory/archive search entirely — `--no-rt`
// (cmd/jbc) simply skips calling Load.
package rtstub

import "github.com/jacobin-lang/jbc/classpath"

const (
	accPublic    = 0x0001
	accStatic    = 0x0008
	accAbstract  = 0x0400
	accInterface = 0x0200
)

func method(name, descriptor string, flags int) classpath.MemberInfo {
	return classpath.MemberInfo{Name: name, Descriptor: descriptor, AccessFlags: flags | accPublic}
}

// Load seeds cp's cache with every stub class. Call once, before
// compiling, unless --no-rt was given.
func Load(cp *classpath.Classpath) {
	for _, info := range stubs() {
		cp.RegisterCompiled(info)
	}
}

func stubs() []*classpath.ClassInfo {
	object := &classpath.ClassInfo{
		Name:        "java/lang/Object",
		AccessFlags: accPublic,
		Methods: []classpath.MemberInfo{
			method("<init>", "()V", 0),
			method("toString", "()Ljava/lang/String;", 0),
			method("equals", "(Ljava/lang/Object;)Z", 0),
			method("hashCode", "()I", 0),
			method("getClass", "()Ljava/lang/Class;", 0),
		},
	}

	charSequence := &classpath.ClassInfo{
		Name:        "java/lang/CharSequence",
		SuperClass:  "",
		AccessFlags: accPublic | accInterface | accAbstract,
		Methods: []classpath.MemberInfo{
			method("length", "()I", 0),
			method("charAt", "(I)C", 0),
			method("toString", "()Ljava/lang/String;", 0),
		},
	}

	str := &classpath.ClassInfo{
		Name:        "java/lang/String",
		SuperClass:  "java/lang/Object",
		Interfaces:  []string{"java/lang/CharSequence"},
		AccessFlags: accPublic,
		Methods: []classpath.MemberInfo{
			method("<init>", "()V", 0),
			method("length", "()I", 0),
			method("charAt", "(I)C", 0),
			method("concat", "(Ljava/lang/String;)Ljava/lang/String;", 0),
			method("equals", "(Ljava/lang/Object;)Z", 0),
			method("hashCode", "()I", 0),
			method("toString", "()Ljava/lang/String;", 0),
			method("valueOf", "(I)Ljava/lang/String;", accStatic),
			method("valueOf", "(J)Ljava/lang/String;", accStatic),
			method("valueOf", "(D)Ljava/lang/String;", accStatic),
			method("valueOf", "(F)Ljava/lang/String;", accStatic),
			method("valueOf", "(Z)Ljava/lang/String;", accStatic),
			method("valueOf", "(C)Ljava/lang/String;", accStatic),
			method("valueOf", "(Ljava/lang/Object;)Ljava/lang/String;", accStatic),
		},
	}

	sb := &classpath.ClassInfo{
		Name:        "java/lang/StringBuilder",
		SuperClass:  "java/lang/Object",
		AccessFlags: accPublic,
		Methods: []classpath.MemberInfo{
			method("<init>", "()V", 0),
			method("append", "(Ljava/lang/String;)Ljava/lang/StringBuilder;", 0),
			method("append", "(Ljava/lang/Object;)Ljava/lang/StringBuilder;", 0),
			method("append", "(I)Ljava/lang/StringBuilder;", 0),
			method("append", "(J)Ljava/lang/StringBuilder;", 0),
			method("append", "(D)Ljava/lang/StringBuilder;", 0),
			method("append", "(F)Ljava/lang/StringBuilder;", 0),
			method("append", "(Z)Ljava/lang/StringBuilder;", 0),
			method("append", "(C)Ljava/lang/StringBuilder;", 0),
			method("toString", "()Ljava/lang/String;", 0),
		},
	}

	enumType := &classpath.ClassInfo{
		Name:        "java/lang/Enum",
		SuperClass:  "java/lang/Object",
		AccessFlags: accPublic | accAbstract,
		Methods: []classpath.MemberInfo{
			method("<init>", "(Ljava/lang/String;I)V", 0),
			method("name", "()Ljava/lang/String;", 0),
			method("ordinal", "()I", 0),
			method("toString", "()Ljava/lang/String;", 0),
			method("valueOf", "(Ljava/lang/Class;Ljava/lang/String;)Ljava/lang/Enum;", accStatic),
		},
	}

	iterable := &classpath.ClassInfo{
		Name:        "java/lang/Iterable",
		AccessFlags: accPublic | accInterface | accAbstract,
		Methods: []classpath.MemberInfo{
			method("iterator", "()Ljava/util/Iterator;", 0),
		},
	}

	iterator := &classpath.ClassInfo{
		Name:        "java/util/Iterator",
		AccessFlags: accPublic | accInterface | accAbstract,
		Methods: []classpath.MemberInfo{
			method("hasNext", "()Z", 0),
			method("next", "()Ljava/lang/Object;", 0),
		},
	}

	function := &classpath.ClassInfo{
		Name:        "java/util/function/Function",
		AccessFlags: accPublic | accInterface | accAbstract,
		Methods: []classpath.MemberInfo{
			method("apply", "(Ljava/lang/Object;)Ljava/lang/Object;", 0),
		},
	}

	all := []*classpath.ClassInfo{object, charSequence, str, sb, enumType, iterable, iterator, function}
	all = append(all, wrapperStubs()...)
	return all
}

type wrapperSpec struct {
	name, primitiveDescriptor, unboxMethod string
}

func wrapperStubs() []*classpath.ClassInfo {
	specs := []wrapperSpec{
		{"Boolean", "Z", "booleanValue"},
		{"Byte", "B", "byteValue"},
		{"Short", "S", "shortValue"},
		{"Character", "C", "charValue"},
		{"Integer", "I", "intValue"},
		{"Long", "J", "longValue"},
		{"Float", "F", "floatValue"},
		{"Double", "D", "doubleValue"},
	}
	out := make([]*classpath.ClassInfo, 0, len(specs))
	for _, s := range specs {
		internal := "java/lang/" + s.name
		out = append(out, &classpath.ClassInfo{
			Name:        internal,
			SuperClass:  "java/lang/Object",
			AccessFlags: accPublic,
			Methods: []classpath.MemberInfo{
				method("<init>", "("+s.primitiveDescriptor+")V", 0),
				method("valueOf", "("+s.primitiveDescriptor+")L"+internal+";", accStatic),
				method(s.unboxMethod, "()"+s.primitiveDescriptor, 0),
				method("toString", "()Ljava/lang/String;", 0),
				method("equals", "(Ljava/lang/Object;)Z", 0),
				method("hashCode", "()I", 0),
			},
		})
	}
	return out
}
