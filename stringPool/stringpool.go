/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package stringPool is a process-wide, deduplicating string table:
// two requests for the same string always get the same index. It is
// standalone: neither the constant pool nor the resolver uses it.
package stringPool

import "sync"

var (
	mu      sync.RWMutex
	strings []string
	index   = map[string]uint32{}
)

// Reset clears the pool. Intended for test isolation between
// compilation units that should not leak interned strings.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	strings = nil
	index = map[string]uint32{}
}

// Intern returns the stable index for s, adding it if not already
// present. Calling Intern("X") twice returns the same index both
// times.
func Intern(s string) uint32 {
	mu.RLock()
	if idx, ok := index[s]; ok {
		mu.RUnlock()
		return idx
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	// re-check: another goroutine may have interned it while we
	// upgraded from a read lock to a write lock.
	if idx, ok := index[s]; ok {
		return idx
	}
	idx := uint32(len(strings))
	strings = append(strings, s)
	index[s] = idx
	return idx
}

// Get returns the string at idx, or "" and false if idx is out of
// range.
func Get(idx uint32) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if int(idx) >= len(strings) {
		return "", false
	}
	return strings[idx], true
}

// Len returns the number of distinct interned strings.
func Len() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(strings)
}
