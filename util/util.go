/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package util holds small path and name conversion helpers used by
// the driver.
package util

import (
	"path/filepath"
	"strings"
)

// ConvertToPlatformPathSeparators turns a binary class name such as
// "com/example/Foo" into a platform-correct relative path
// "com/example/Foo" on Unix or "com\example\Foo" on Windows.
func ConvertToPlatformPathSeparators(name string) string {
	if filepath.Separator == '/' {
		return name
	}
	return strings.ReplaceAll(name, "/", string(filepath.Separator))
}

// BinaryNameToClassFilePath appends ".class" and converts separators,
// for writing a compiled class under the driver's output directory.
func BinaryNameToClassFilePath(outDir, binaryName string) string {
	rel := ConvertToPlatformPathSeparators(binaryName) + ".class"
	return filepath.Join(outDir, rel)
}

// InternalToDotted converts "java/lang/String" to "java.lang.String".
func InternalToDotted(internalName string) string {
	return strings.ReplaceAll(internalName, "/", ".")
}

// DottedToInternal converts "java.lang.String" to "java/lang/String".
func DottedToInternal(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}
