/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classpath

import (
	"fmt"
	"sync"

	"github.com/jacobin-lang/jbc/trace"
)

// Classpath caches ClassInfo by internal name behind a single
// single-writer lock, the same discipline classloader.go's
// ClassesLock/MethAreaFetch/MethAreaInsert apply to its method area —
// here the cache holds signature records instead of postable classes.
type Classpath struct {
	path *Path

	mu    sync.RWMutex
	cache map[string]*ClassInfo
}

// New wraps a search Path with a signature cache.
func New(path *Path) *Classpath {
	return &Classpath{path: path, cache: map[string]*ClassInfo{}}
}

// RegisterCompiled inserts the signature of a class this compilation
// unit is itself compiling, so that sibling classes in the same
// compile (including ones that reference each other cyclically) can
// resolve it without round-tripping through a written .class file —
// spec.md §6's two-phase compilation: Phase1 registers every unit's
// signature before Phase2 compiles any body.
func (c *Classpath) RegisterCompiled(info *ClassInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[info.Name] = info
}

// Lookup resolves binaryName to its ClassInfo, checking the cache
// before touching the search path.
func (c *Classpath) Lookup(binaryName string) (*ClassInfo, error) {
	c.mu.RLock()
	info, ok := c.cache[binaryName]
	c.mu.RUnlock()
	if ok {
		return info, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if info, ok := c.cache[binaryName]; ok {
		return info, nil
	}

	data, err := c.path.FindClassBytes(binaryName)
	if err != nil {
		return nil, err
	}
	info, err = FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("classpath: parsing %s: %w", binaryName, err)
	}
	trace.Trace(fmt.Sprintf("classpath: loaded signature for %s", binaryName))
	c.cache[binaryName] = info
	return info, nil
}

// Exists reports whether binaryName resolves, without surfacing the
// lookup error.
func (c *Classpath) Exists(binaryName string) bool {
	_, err := c.Lookup(binaryName)
	return err == nil
}
