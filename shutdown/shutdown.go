/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package shutdown names the process exit codes the driver uses and
// centralizes the call to os.Exit so callers never sprinkle raw exit
// codes through the codebase.
package shutdown

import "os"

const (
	OK = iota
	COMPILE_ERROR
	USAGE_ERROR
	INTERNAL
)

// Exit terminates the process with the given code.
func Exit(code int) {
	os.Exit(code)
}
