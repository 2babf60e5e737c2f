package types

import (
	"github.com/dolthub/swiss"
)

// Registry is the process-wide interning table for Types (spec.md §4.1
// "Type Registry"). All construction goes through a Registry so that
// ptr_equal and structural equality agree for Types built from the
// same registry (spec.md §3 invariant (d)).
//
// Interning uses a swiss-table map keyed by the Type's encoded form —
// grounded on mna-nenuphar's use of github.com/dolthub/swiss for its
// hot-path Value map, adapted here to the Type-interning hot path that
// every basic/pointer/array/function/struct construction goes through.
type Registry struct {
	byKey   *swiss.Map[string, *Type]
	byQName *swiss.Map[string, *Type] // qualified name -> named aggregate

	typemap map[string]string // textual aliases registered by the preamble module
}

// NewRegistry returns an empty Registry; each base type is interned the
// first time Basic is asked for it.
func NewRegistry() *Registry {
	r := &Registry{
		byKey:   swiss.NewMap[string, *Type](64),
		byQName: swiss.NewMap[string, *Type](64),
		typemap: map[string]string{},
	}
	return r
}

func (r *Registry) intern(t *Type) *Type {
	key := structuralKey(t)
	if existing, ok := r.byKey.Get(key); ok {
		return existing
	}
	r.byKey.Put(key, t)
	if t.kind == KindNamed && !t.isConst && t.bitfieldWidth == 0 {
		r.byQName.Put(t.qualifiedName, t)
	}
	return t
}

// Basic returns the interned Type for a base tag.
func (r *Registry) Basic(tag BaseTag) *Type {
	return r.intern(&Type{kind: KindBasic, base: tag})
}

// Pointer returns the interned pointer-to-T type.
func (r *Registry) Pointer(to *Type) *Type {
	return r.intern(&Type{kind: KindPointer, pointsTo: to})
}

// Array returns the interned array-of-T type with the given size (0
// meaning unsized, per spec.md §3).
func (r *Registry) Array(elem *Type, size int64) *Type {
	return r.intern(&Type{kind: KindArray, elem: elem, size: size})
}

// Function returns the interned function type. varargs must appear
// only as the final parameter (spec.md §3 invariant (b)); callers are
// expected to have validated this via internal/typeform before calling
// Function, so this constructor trusts its input.
func Function(r *Registry, ret *Type, params []*Type) *Type {
	isVariadic := len(params) > 0 && params[len(params)-1].kind == KindBasic && params[len(params)-1].base == Varargs
	cp := make([]*Type, len(params))
	copy(cp, params)
	return r.intern(&Type{kind: KindFunction, ret: ret, params: cp, isVariadic: isVariadic})
}

// Function is a convenience method form of the package-level Function.
func (r *Registry) Function(ret *Type, params []*Type) *Type {
	return Function(r, ret, params)
}

// Named returns the interned named-aggregate Type for a qualified
// name. isStruct distinguishes a struct from an enum's projected
// struct (spec.md §3 "Enum...is also projected into a Struct").
func (r *Registry) Named(qualifiedName string, namespacePath []string, isStruct bool) *Type {
	path := make([]string, len(namespacePath))
	copy(path, namespacePath)
	return r.intern(&Type{
		kind:          KindNamed,
		qualifiedName: qualifiedName,
		namespacePath: path,
		isStruct:      isStruct,
	})
}

// LookupNamed finds a previously-interned named aggregate by qualified
// name, satisfying invariant (c) ("named aggregates refer to a struct
// or enum known to a namespace reachable via the qualified name").
func (r *Registry) LookupNamed(qualifiedName string) (*Type, bool) {
	return r.byQName.Get(qualifiedName)
}

// RegisterTypemapAlias records a textual alias queried during symbol
// mangling and IR type materialization (spec.md §4.1 "typemap").
func (r *Registry) RegisterTypemapAlias(from, to string) {
	r.typemap[from] = to
}

// TypemapAlias returns the registered alias for a name, if any.
func (r *Registry) TypemapAlias(name string) (string, bool) {
	v, ok := r.typemap[name]
	return v, ok
}

// Typemap returns a snapshot of the current typemap, used when
// serializing a DTM (spec.md §4.8) or merging one imported module's
// typemap into the global typemap.
func (r *Registry) Typemap() map[string]string {
	cp := make(map[string]string, len(r.typemap))
	for k, v := range r.typemap {
		cp[k] = v
	}
	return cp
}

// MergeTypemap folds another module's typemap into this registry's
// typemap, the imported-module aliases winning ties only when not
// already present (first writer wins, matching spec.md §4.8 step 3
// "merge typemap into the global typemap").
func (r *Registry) MergeTypemap(other map[string]string) {
	for k, v := range other {
		if _, exists := r.typemap[k]; !exists {
			r.typemap[k] = v
		}
	}
}
