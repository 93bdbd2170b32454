/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package codegen is the statement/expression compiler: it turns a
// resolved ast.ClassDecl into a classfile.File, desugaring string
// concatenation, autoboxing, enhanced-for, enums, nested classes and
// lambdas along the way (spec.md §4.6). Compilation proceeds in two
// phases (Design Notes §9) so that classes compiled in the same
// invocation can refer to each other regardless of declaration order.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jacobin-lang/jbc/ast"
	"github.com/jacobin-lang/jbc/classpath"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/resolver"
	"github.com/jacobin-lang/jbc/trace"
)

// Compiler owns the classpath/resolver shared across every unit of
// one invocation, the same way classloader.go's single Classloader
// instance backs a whole jacobin run.
type Compiler struct {
	CP       *classpath.Classpath
	Resolver *resolver.Resolver
}

// NewCompiler builds a Compiler over cp. noRuntime mirrors the driver's
// --no-rt flag (Design Notes Open Question (b)).
func NewCompiler(cp *classpath.Classpath, noRuntime bool) *Compiler {
	return &Compiler{CP: cp, Resolver: resolver.New(cp, noRuntime)}
}

// Unit is one compilation unit in flight: its AST, its resolved name
// environment, and the diagnostics accumulated while compiling it.
type Unit struct {
	AST    *ast.CompilationUnit
	Ctx    *resolver.Context
	Errors diag.List

	classes map[string][]byte
}

// CompileResult is the output of a whole invocation: every produced
// class file, keyed by its internal (binary, "/"-separated) name.
type CompileResult struct {
	Classes map[string][]byte
}

// newUnit builds the resolution Context for cu from its package and
// import declarations.
func newUnit(cu *ast.CompilationUnit) *Unit {
	ctx := resolver.NewContext(cu.Package)
	for _, imp := range cu.Imports {
		if imp.OnDemand {
			ctx.AddWildcardImport(imp.Path)
		} else {
			ctx.AddSingleImport(imp.Path)
		}
	}
	return &Unit{AST: cu, Ctx: ctx}
}

// CompileUnits compiles every top-level and nested class across every
// unit, in two phases: Phase1 registers every class's erased
// signature into the classpath so that Phase2's body compilation can
// resolve a class regardless of declaration or file order (spec.md
// §9 "two-phase compilation" resolves cyclic cross-class references).
func (c *Compiler) CompileUnits(cus []*ast.CompilationUnit) (*CompileResult, []*diag.Error) {
	units := make([]*Unit, len(cus))
	for i, cu := range cus {
		units[i] = newUnit(cu)
	}
	units = c.orderUnits(units)

	for _, u := range units {
		for _, cd := range u.AST.Types {
			c.registerSignatures(u.Ctx, cd, u.AST.FileName)
		}
	}

	result := &CompileResult{Classes: map[string][]byte{}}
	var allErrs []*diag.Error
	for _, u := range units {
		for _, cd := range u.AST.Types {
			c.compileClassDecl(u, cd)
		}
		for name, data := range u.resultClasses() {
			result.Classes[name] = data
		}
		allErrs = append(allErrs, u.Errors.Errors...)
	}
	return result, allErrs
}

// compileClassDecl compiles cd and every static nested class it
// declares, recording each as a separate entry in u's owning
// CompileResult by way of recoverInto-guarded per-class compilation,
// so one bad class does not prevent its siblings from compiling.
func (c *Compiler) compileClassDecl(u *Unit, cd *ast.ClassDecl) {
	var data []byte
	recoverInto(&u.Errors, func() {
		data = c.compileClass(u, cd)
	})
	if data != nil {
		internal := c.internalNameOf(u.Ctx, cd)
		u.resultClasses()[internal] = data
	}
	for _, nested := range cd.NestedClasses {
		u.Ctx.PushEnclosing(c.internalNameOf(u.Ctx, cd))
		c.compileClassDecl(u, nested)
		u.Ctx.PopEnclosing()
	}
}

// resultClasses returns u's class map, creating it on first use;
// declared here so compileClassDecl can reach the shared map without every
// call site threading it through explicitly.
func (u *Unit) resultClasses() map[string][]byte {
	if u.classes == nil {
		u.classes = map[string][]byte{}
	}
	return u.classes
}

// internalNameOf computes cd's internal (binary) name from the
// current package and enclosing-class stack, without touching the
// classpath.
func (c *Compiler) internalNameOf(ctx *resolver.Context, cd *ast.ClassDecl) string {
	if len(ctx.Enclosing) > 0 {
		return ctx.Enclosing[len(ctx.Enclosing)-1] + "$" + cd.Name
	}
	pkg := strings.ReplaceAll(ctx.Package, ".", "/")
	if pkg == "" {
		return cd.Name
	}
	return pkg + "/" + cd.Name
}

// orderUnits topologically sorts units by source-level class
// references (one unit's types reference another unit's package),
// falling back to input order on a cycle (spec.md §5/§9).
func (c *Compiler) orderUnits(units []*Unit) []*Unit {
	n := len(units)
	indexOf := map[*Unit]int{}
	for i, u := range units {
		indexOf[u] = i
	}
	deps := make([][]int, n)
	for i, u := range units {
		pkgsSeen := map[string]bool{}
		for j, other := range units {
			if i == j {
				continue
			}
			if other.AST.Package != "" && u.AST.Package != "" && referencesPackage(u.AST, other.AST.Package) {
				if !pkgsSeen[other.AST.Package] {
					pkgsSeen[other.AST.Package] = true
					deps[i] = append(deps[i], j)
				}
			}
		}
	}

	visited := make([]int, n) // 0 unvisited, 1 in-progress, 2 done
	var order []int
	var cyclic bool
	var visit func(i int)
	visit = func(i int) {
		if visited[i] == 2 || cyclic {
			return
		}
		if visited[i] == 1 {
			cyclic = true
			return
		}
		visited[i] = 1
		for _, d := range deps[i] {
			visit(d)
		}
		visited[i] = 2
		order = append(order, i)
	}
	for i := range units {
		visit(i)
	}
	if cyclic || len(order) != n {
		trace.Trace("codegen: cyclic or incomplete unit dependency graph, falling back to input order")
		return units
	}
	out := make([]*Unit, n)
	for k, idx := range order {
		out[k] = units[idx]
	}
	return out
}

func referencesPackage(cu *ast.CompilationUnit, pkg string) bool {
	for _, imp := range cu.Imports {
		if imp.Path == pkg || strings.HasPrefix(imp.Path, pkg+".") {
			return true
		}
	}
	return false
}

// sortedKeys is a small helper used by nested.go when it needs a
// deterministic iteration order over a map (InnerClasses attribute
// entries, chiefly).
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func descriptorMismatch(owner, name, want, got string) error {
	return fmt.Errorf("codegen: %s.%s: expected descriptor %s, got %s", owner, name, want, got)
}
