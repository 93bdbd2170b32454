/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package resolver

import (
	"fmt"
	"strings"

	"github.com/jacobin-lang/jbc/classfile"
	"github.com/jacobin-lang/jbc/classpath"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/types"
)

// MethodResolution is a selected method: its declaring owner, its
// declared (not expanded) formal parameter types, and everything
// codegen needs to choose an invoke* opcode (spec.md §4.2 "invoke*
// selection rules").
type MethodResolution struct {
	Owner            string
	Name             string
	ParamTypes       []types.Type // declared formals; varargs' last is the array type
	ReturnType       types.Type
	AccessFlags      int
	IsStatic         bool
	IsVarargs        bool
	IsPrivate        bool
	IsInterfaceOwner bool
	Descriptor       string
}

type candidate struct {
	owner       string
	member      classpath.MemberInfo
	params      []types.Type
	ret         types.Type
	isInterface bool
}

// ResolveMethod performs spec.md §4.5's overload resolution: collects
// candidates with the given name and compatible arity from
// startInternal and its supertypes/interfaces, scores applicability
// (assignment compatibility including boxing/widening), and picks the
// most specific applicable candidate, preferring non-varargs on a tie.
func (r *Resolver) ResolveMethod(startInternal, name string, argTypes []types.Type, span diag.Span) (*MethodResolution, error) {
	candidates := r.collectMethodCandidates(startInternal, name, map[string]bool{})
	if len(candidates) == 0 {
		if r.NoRuntime {
			r.noRuntimeFallback(startInternal + "." + name)
			return rawObjectFallback(startInternal, name, len(argTypes)), nil
		}
		return nil, diag.New(span, diag.TypeError, "no method named %s on %s", name, startInternal)
	}

	var applicable []candidate
	var applicableEff [][]types.Type
	for _, c := range candidates {
		isVarargs := c.member.AccessFlags&classfile.AccVarargs != 0
		eff, ok := r.effectiveFormals(c.params, isVarargs, argTypes)
		if !ok {
			continue
		}
		applicable = append(applicable, c)
		applicableEff = append(applicableEff, eff)
	}

	if len(applicable) == 0 {
		return nil, diag.New(span, diag.TypeError, "no applicable overload of %s.%s for %d argument(s)", startInternal, name, len(argTypes))
	}

	winner, winnerEff := pickMostSpecific(r, applicable, applicableEff)
	if winner == nil {
		return nil, diag.New(span, diag.TypeError, "ambiguous call to %s.%s", startInternal, name)
	}
	_ = winnerEff

	return &MethodResolution{
		Owner:            winner.owner,
		Name:             name,
		ParamTypes:       winner.params,
		ReturnType:       winner.ret,
		AccessFlags:      winner.member.AccessFlags,
		IsStatic:         winner.member.AccessFlags&classfile.AccStatic != 0,
		IsVarargs:        winner.member.AccessFlags&classfile.AccVarargs != 0,
		IsPrivate:        winner.member.AccessFlags&classfile.AccPrivate != 0,
		IsInterfaceOwner: winner.isInterface,
		Descriptor:       winner.member.Descriptor,
	}, nil
}

func rawObjectFallback(owner, name string, argc int) *MethodResolution {
	params := make([]types.Type, argc)
	for i := range params {
		params[i] = types.Object
	}
	return &MethodResolution{
		Owner:      owner,
		Name:       name,
		ParamTypes: params,
		ReturnType: types.Object,
		Descriptor: Descriptor(params, types.Object),
	}
}

func (r *Resolver) collectMethodCandidates(internalName, name string, seenIface map[string]bool) []candidate {
	var out []candidate
	cur := internalName
	for cur != "" {
		info, err := r.CP.Lookup(cur)
		if err != nil {
			break
		}
		for _, m := range info.Methods {
			if m.Name != name {
				continue
			}
			params, ret := splitMethodDescriptor(m.Descriptor)
			out = append(out, candidate{owner: info.Name, member: m, params: params, ret: ret, isInterface: info.IsInterface()})
		}
		for _, iface := range info.Interfaces {
			if seenIface[iface] {
				continue
			}
			seenIface[iface] = true
			out = append(out, r.collectMethodCandidates(iface, name, seenIface)...)
		}
		cur = info.SuperClass
	}
	return out
}

// effectiveFormals reports whether argTypes applies to params (fixed
// arity, or varargs expanded per spec.md §4.5), returning the
// per-argument formal type used for the applicability/specificity
// check.
func (r *Resolver) effectiveFormals(params []types.Type, isVarargs bool, argTypes []types.Type) ([]types.Type, bool) {
	if !isVarargs {
		if len(params) != len(argTypes) {
			return nil, false
		}
		for i, p := range params {
			if _, ok := r.IsAssignable(argTypes[i], p); !ok {
				return nil, false
			}
		}
		return params, true
	}

	if len(params) == 0 {
		return nil, false
	}
	fixed := params[:len(params)-1]
	varargsArray := params[len(params)-1]
	elem := varargsArray.Elem()

	if len(argTypes) < len(fixed) {
		return nil, false
	}
	eff := make([]types.Type, 0, len(argTypes))
	for i, p := range fixed {
		if _, ok := r.IsAssignable(argTypes[i], p); !ok {
			return nil, false
		}
		eff = append(eff, p)
	}

	// Exact array match (caller passed the array itself) counts too.
	if len(argTypes) == len(params) {
		if _, ok := r.IsAssignable(argTypes[len(argTypes)-1], varargsArray); ok {
			return append(eff, varargsArray), true
		}
	}

	for i := len(fixed); i < len(argTypes); i++ {
		if _, ok := r.IsAssignable(argTypes[i], elem); !ok {
			return nil, false
		}
		eff = append(eff, elem)
	}
	return eff, true
}

// pickMostSpecific implements spec.md §4.5: "a candidate A is more
// specific than B if every A-formal is assignable to the
// corresponding B-formal"; ties go to the non-varargs candidate.
func pickMostSpecific(r *Resolver, cands []candidate, effFormals [][]types.Type) (*candidate, []types.Type) {
	more := func(a, b []types.Type) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !formalMoreSpecific(r, a[i], b[i]) {
				return false
			}
		}
		return true
	}

	var bestIdx = -1
	for i := range cands {
		dominated := false
		for j := range cands {
			if i == j {
				continue
			}
			if more(effFormals[j], effFormals[i]) && !more(effFormals[i], effFormals[j]) {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}
		if bestIdx == -1 {
			bestIdx = i
			continue
		}
		// Both i and bestIdx are undominated: break the tie by
		// preferring non-varargs, else it's a genuine ambiguity.
		iVarargs := cands[i].member.AccessFlags&classfile.AccVarargs != 0
		bestVarargs := cands[bestIdx].member.AccessFlags&classfile.AccVarargs != 0
		switch {
		case iVarargs && !bestVarargs:
			// keep bestIdx
		case bestVarargs && !iVarargs:
			bestIdx = i
		default:
			return nil, nil // ambiguous
		}
	}
	if bestIdx == -1 {
		return nil, nil
	}
	return &cands[bestIdx], effFormals[bestIdx]
}

// formalMoreSpecific reports whether formal type a is assignable to
// formal type b, used only to compare two already-matched formal
// types against each other (never crosses a subtype boundary that
// would need a classpath lookup beyond Object/primitive rules).
func formalMoreSpecific(r *Resolver, a, b types.Type) bool {
	if a.Equal(b) {
		return true
	}
	if a.IsPrimitive() && b.IsPrimitive() {
		return IsWideningPrimitive(a.Primitive(), b.Primitive())
	}
	if a.IsReference() && b.IsReference() {
		if b.Equal(types.Object) {
			return true
		}
		if a.IsArray() || b.IsArray() {
			return false
		}
		return r.IsSubtype(a.InternalName(), b.InternalName())
	}
	return false
}

// DescribeCandidates formats a human-readable candidate list for
// diagnostics.
func DescribeCandidates(owner, name string, argTypes []types.Type) string {
	parts := make([]string, len(argTypes))
	for i, t := range argTypes {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s.%s(%s)", owner, name, strings.Join(parts, ", "))
}
