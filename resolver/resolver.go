/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package resolver turns source names — simple or qualified
// identifiers, overloaded method calls — into concrete class/field/
// method references with erased descriptors (spec.md §4.5). It is
// grounded on classloader/CPutils.go's GetMethInfoFromCPmethref, which
// walks MethodRef -> NameAndType -> Utf8 to recover a method's
// {class, name, descriptor}; this package performs the same three-hop
// resolution in the forward direction, from a source call site to a
// chosen owner/name/descriptor.
package resolver

import (
	"fmt"
	"strings"

	"github.com/jacobin-lang/jbc/classpath"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/trace"
)

// Context is the name-resolution environment of one compilation unit:
// its package, its imports, and the stack of enclosing class internal
// names (outermost first) for whatever class is currently being
// compiled.
type Context struct {
	Package         string // dotted, "" for the default package
	SingleImports   map[string]string // simple name -> internal name
	WildcardImports []string          // dotted package prefixes
	Enclosing       []string          // internal names, outermost first
}

// NewContext builds a resolution Context for a compilation unit's
// package and import declarations. pkg is dotted ("" for the default
// package).
func NewContext(pkg string) *Context {
	return &Context{Package: pkg, SingleImports: map[string]string{}}
}

// AddSingleImport registers `import a.b.C;` — simple name "C" maps to
// internal name "a/b/C".
func (c *Context) AddSingleImport(dotted string) {
	internal := strings.ReplaceAll(dotted, ".", "/")
	simple := internal
	if i := strings.LastIndexByte(internal, '/'); i >= 0 {
		simple = internal[i+1:]
	}
	c.SingleImports[simple] = internal
}

// AddWildcardImport registers `import a.b.*;`.
func (c *Context) AddWildcardImport(dottedPackage string) {
	c.WildcardImports = append(c.WildcardImports, strings.ReplaceAll(dottedPackage, ".", "/"))
}

// PushEnclosing enters a (possibly nested) class body.
func (c *Context) PushEnclosing(internalName string) {
	c.Enclosing = append(c.Enclosing, internalName)
}

// PopEnclosing leaves the innermost class body.
func (c *Context) PopEnclosing() {
	c.Enclosing = c.Enclosing[:len(c.Enclosing)-1]
}

// CurrentClass returns the innermost enclosing class, or "" if none.
func (c *Context) CurrentClass() string {
	if len(c.Enclosing) == 0 {
		return ""
	}
	return c.Enclosing[len(c.Enclosing)-1]
}

func (c *Context) packageInternal() string {
	if c.Package == "" {
		return ""
	}
	return strings.ReplaceAll(c.Package, ".", "/")
}

// Resolver resolves class/field/method references against a
// classpath. NoRuntime mirrors Design Notes Open Question (b): when
// true, a class absent from the classpath falls back to a raw
// java/lang/Object-descriptor mode with boxing/widening inference
// disabled, logged once per Resolver (one per compiler invocation)
// rather than failing.
type Resolver struct {
	CP        *classpath.Classpath
	NoRuntime bool

	loggedNoRuntimeFallback bool
}

// New builds a Resolver over cp.
func New(cp *classpath.Classpath, noRuntime bool) *Resolver {
	return &Resolver{CP: cp, NoRuntime: noRuntime}
}

func (r *Resolver) noRuntimeFallback(requested string) {
	if r.loggedNoRuntimeFallback {
		return
	}
	r.loggedNoRuntimeFallback = true
	trace.Trace(fmt.Sprintf("resolver: --no-rt active, falling back to raw Object descriptors (first miss: %s)", requested))
}

// ResolveClassName resolves a source class name to an internal name,
// following spec.md §4.5's ordered lookup:
//  1. dot-qualified names, tried as a class with the remainder as
//     nested classes (joined with '$');
//  2. single-type imports;
//  3. same package;
//  4. nested classes of the enclosing class, innermost first;
//  5. on-demand wildcard imports;
//  6. implicit java.lang.*.
//
// The first hit wins; failure reports every attempted candidate.
func (r *Resolver) ResolveClassName(ctx *Context, name string, span diag.Span) (string, error) {
	var tried []string

	if strings.Contains(name, ".") {
		if internal, ok := r.resolveQualified(name, &tried); ok {
			return internal, nil
		}
	} else {
		if internal, ok := r.SingleImports(ctx, name, &tried); ok {
			return internal, nil
		}
		if internal, ok := r.samePackage(ctx, name, &tried); ok {
			return internal, nil
		}
		if internal, ok := r.nestedOfEnclosing(ctx, name, &tried); ok {
			return internal, nil
		}
		if internal, ok := r.wildcardImport(ctx, name, &tried); ok {
			return internal, nil
		}
		if internal, ok := r.implicitJavaLang(name, &tried); ok {
			return internal, nil
		}
	}

	return "", diag.New(span, diag.NameResolutionError,
		"cannot resolve class %q (tried: %s)", name, strings.Join(tried, ", "))
}

// SingleImports is step 2 of ResolveClassName: it looks a bare name up
// among the single-type imports only, recording the candidate in
// tried.
func (r *Resolver) SingleImports(ctx *Context, simpleName string, tried *[]string) (string, bool) {
	if internal, ok := ctx.SingleImports[simpleName]; ok {
		*tried = append(*tried, internal)
		if r.exists(internal) {
			return internal, true
		}
	}
	return "", false
}

func (r *Resolver) samePackage(ctx *Context, simpleName string, tried *[]string) (string, bool) {
	pkg := ctx.packageInternal()
	internal := simpleName
	if pkg != "" {
		internal = pkg + "/" + simpleName
	}
	*tried = append(*tried, internal)
	if r.exists(internal) {
		return internal, true
	}
	return "", false
}

func (r *Resolver) nestedOfEnclosing(ctx *Context, simpleName string, tried *[]string) (string, bool) {
	for i := len(ctx.Enclosing) - 1; i >= 0; i-- {
		internal := ctx.Enclosing[i] + "$" + simpleName
		*tried = append(*tried, internal)
		if r.exists(internal) {
			return internal, true
		}
	}
	return "", false
}

func (r *Resolver) wildcardImport(ctx *Context, simpleName string, tried *[]string) (string, bool) {
	for _, pkg := range ctx.WildcardImports {
		internal := pkg + "/" + simpleName
		*tried = append(*tried, internal)
		if r.exists(internal) {
			return internal, true
		}
	}
	return "", false
}

func (r *Resolver) implicitJavaLang(simpleName string, tried *[]string) (string, bool) {
	internal := "java/lang/" + simpleName
	*tried = append(*tried, internal)
	if r.exists(internal) {
		return internal, true
	}
	return "", false
}

// resolveQualified handles a dot-qualified source name: progressively
// longer leading components as the class's package/class path, the
// remainder joined with '$' as nested classes.
func (r *Resolver) resolveQualified(name string, tried *[]string) (string, bool) {
	parts := strings.Split(name, ".")
	for classEnd := len(parts); classEnd >= 1; classEnd-- {
		internal := strings.Join(parts[:classEnd], "/")
		if classEnd < len(parts) {
			internal += "$" + strings.Join(parts[classEnd:], "$")
		}
		*tried = append(*tried, internal)
		if r.exists(internal) {
			return internal, true
		}
	}
	return "", false
}

func (r *Resolver) exists(internalName string) bool {
	if r.CP.Exists(internalName) {
		return true
	}
	if r.NoRuntime && strings.HasPrefix(internalName, "java/") {
		r.noRuntimeFallback(internalName)
		return false
	}
	return false
}

// ClassInfo looks up a resolved internal name's full ClassInfo,
// erroring if it cannot be found even via the --no-rt fallback.
func (r *Resolver) ClassInfo(internalName string, span diag.Span) (*classpath.ClassInfo, error) {
	info, err := r.CP.Lookup(internalName)
	if err != nil {
		return nil, diag.New(span, diag.NameResolutionError, "unknown class %s", internalName)
	}
	return info, nil
}
