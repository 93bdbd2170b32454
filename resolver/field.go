/*
 * jbc - a Java 8 bytecode compiler
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package resolver

import (
	"github.com/jacobin-lang/jbc/classpath"
	"github.com/jacobin-lang/jbc/diag"
	"github.com/jacobin-lang/jbc/types"
)

// FieldResolution is a resolved field reference: which class actually
// declares it (not necessarily the class it was accessed through),
// its erased type, and its access flags.
type FieldResolution struct {
	Owner       string // declaring class's internal name
	Name        string
	Type        types.Type
	AccessFlags int
}

// ResolveField walks startInternal's class hierarchy and then its
// interfaces, returning the first matching field declaration (spec.md
// §4.5 "field resolution"). Inherited fields are visible through the
// subclass name; the returned Owner is always the *declaring* class,
// so codegen can emit a correct FieldRef.
func (r *Resolver) ResolveField(startInternal, name string, span diag.Span) (*FieldResolution, error) {
	if fr := r.walkClassChain(startInternal, name); fr != nil {
		return fr, nil
	}
	if fr := r.walkInterfaces(startInternal, name, map[string]bool{}); fr != nil {
		return fr, nil
	}
	if r.NoRuntime {
		r.noRuntimeFallback(startInternal + "." + name)
		return &FieldResolution{Owner: startInternal, Name: name, Type: types.Object}, nil
	}
	return nil, diag.New(span, diag.NameResolutionError, "cannot resolve field %s.%s", startInternal, name)
}

func (r *Resolver) walkClassChain(internalName, name string) *FieldResolution {
	for internalName != "" {
		info, err := r.CP.Lookup(internalName)
		if err != nil {
			return nil
		}
		if m, ok := findMember(info.Fields, name); ok {
			return &FieldResolution{Owner: info.Name, Name: m.Name, Type: descriptorToType(m.Descriptor), AccessFlags: m.AccessFlags}
		}
		internalName = info.SuperClass
	}
	return nil
}

func (r *Resolver) walkInterfaces(internalName, name string, seen map[string]bool) *FieldResolution {
	for internalName != "" {
		info, err := r.CP.Lookup(internalName)
		if err != nil {
			return nil
		}
		for _, iface := range info.Interfaces {
			if seen[iface] {
				continue
			}
			seen[iface] = true
			ifaceInfo, err := r.CP.Lookup(iface)
			if err != nil {
				continue
			}
			if m, ok := findMember(ifaceInfo.Fields, name); ok {
				return &FieldResolution{Owner: ifaceInfo.Name, Name: m.Name, Type: descriptorToType(m.Descriptor), AccessFlags: m.AccessFlags}
			}
			if fr := r.walkInterfaces(iface, name, seen); fr != nil {
				return fr
			}
		}
		internalName = info.SuperClass
	}
	return nil
}

func findMember(members []classpath.MemberInfo, name string) (classpath.MemberInfo, bool) {
	for _, m := range members {
		if m.Name == name {
			return m, true
		}
	}
	return classpath.MemberInfo{}, false
}

// IsSubtype reports whether sub is super or a (transitive) subclass /
// implementor of super, per the classpath's recorded hierarchy.
func (r *Resolver) IsSubtype(sub, super string) bool {
	if sub == super || super == "java/lang/Object" {
		return true
	}
	return r.isSubtype(sub, super, map[string]bool{})
}

func (r *Resolver) isSubtype(sub, super string, seen map[string]bool) bool {
	if sub == "" || seen[sub] {
		return false
	}
	seen[sub] = true
	if sub == super {
		return true
	}
	info, err := r.CP.Lookup(sub)
	if err != nil {
		return false
	}
	for _, iface := range info.Interfaces {
		if r.isSubtype(iface, super, seen) {
			return true
		}
	}
	return r.isSubtype(info.SuperClass, super, seen)
}
