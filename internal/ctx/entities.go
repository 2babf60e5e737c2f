// Package ctx implements the Dale namespace and Context model
// (spec.md §3 "Namespace & Context (C3)", §4.2).
package ctx

import "github.com/dalec/dalec/internal/types"

// Linkage classifies how a Function/Variable/Struct is visible across
// translation units (spec.md §3).
type Linkage int

const (
	LinkageIntern Linkage = iota
	LinkageExtern
	LinkageExternC
	LinkageExternWeak
	LinkageAuto
)

// IRHandle is an opaque reference to an emitted IR entity, keyed by
// symbol name for the reget-pointers pass (spec.md §4.8 "Reget-
// pointers"). The driver's internal/emit package supplies the actual
// handle type; ctx only needs to carry and rebind it.
type IRHandle struct {
	Symbol string
	Value  any // nil until the entity has been emitted/JIT-resolved
}

// Variable is a declared name with a Type and storage.
type Variable struct {
	Name     string
	Type     *types.Type
	Linkage  Linkage
	Handle   IRHandle
	OnceTag  string
}

// Param is a function parameter; it reuses Variable's shape.
type Param = Variable

// Function is a single overload. Macros carry a leading implicit
// macro-context parameter that is not counted against the user-visible
// arity (spec.md §3 "Function").
type Function struct {
	Name       string
	Return     *types.Type
	Params     []*Param
	Linkage    Linkage
	IsMacro    bool
	IsSetfFn   bool
	CTO        bool // compile-time-only
	OnceTag    string
	Handle     IRHandle
}

// UserArity returns the number of parameters excluding the implicit
// macro-context parameter for macros.
func (f *Function) UserArity() int {
	if f.IsMacro && len(f.Params) > 0 {
		return len(f.Params) - 1
	}
	return len(f.Params)
}

// UserParams returns the parameters a call site supplies, excluding
// the implicit leading macro-context parameter.
func (f *Function) UserParams() []*Param {
	if f.IsMacro && len(f.Params) > 0 {
		return f.Params[1:]
	}
	return f.Params
}

// StructField is one member of a Struct.
type StructField struct {
	Name string
	Type *types.Type
}

// Struct is a named aggregate of ordered fields.
type Struct struct {
	Name         string
	QualifiedName string
	Fields       []StructField
	Linkage      Linkage
	InternalName string // mangled name
	Handle       IRHandle
	OnceTag      string
}

// FieldIndex returns the index of a field by name, or -1.
func (s *Struct) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// EnumMember is one (name, value) pair of an Enum.
type EnumMember struct {
	Name  string
	Value int64
}

// Enum is a named integer enumeration, also projected into a one-field
// Struct (spec.md §3 "An Enum is also projected into a Struct of one
// field") so it participates uniformly in value lowering.
type Enum struct {
	Name          string
	QualifiedName string
	Underlying    *types.Type
	Members       []EnumMember
	Linkage       Linkage
	OnceTag       string
	Projected     *Struct // the parallel single-field struct
}

// MemberIndex returns the index of a member by name, or -1.
func (e *Enum) MemberIndex(name string) int {
	for i, m := range e.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// MemberValue returns the value of a member by name.
func (e *Enum) MemberValue(name string) (int64, bool) {
	for _, m := range e.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}
