/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package globals holds the process-wide mutable state the driver
// sets up once per invocation: output directory, verbosity, whether
// the bundled runtime classpath is used, and JAVA_HOME. The rest of
// the compiler reads it through GetGlobalRef rather than threading a
// config struct through every call.
package globals

import "sync"

// Globals is the process-wide configuration singleton.
type Globals struct {
	CompilerName string
	OutDir       string
	Verbose      bool
	NoRuntime    bool
	JavaHome     string
}

var (
	mu  sync.Mutex
	ref *Globals
)

// InitGlobals (re)initializes the singleton for a fresh invocation.
// Tests call this with a fixed name to get a clean, known state.
func InitGlobals(name string) *Globals {
	mu.Lock()
	defer mu.Unlock()
	ref = &Globals{
		CompilerName: name,
		OutDir:       ".",
	}
	return ref
}

// GetGlobalRef returns the current singleton, initializing a default
// one if InitGlobals has not yet been called.
func GetGlobalRef() *Globals {
	mu.Lock()
	defer mu.Unlock()
	if ref == nil {
		ref = &Globals{CompilerName: "jbc", OutDir: "."}
	}
	return ref
}
