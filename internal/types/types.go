// Package types implements the Dale value-type model and its
// interning registry (spec.md §3 "Type (C1)", §4.1).
//
// A Type is immutable once constructed. Equality is structural, with
// an option to ignore argument-constness on function comparisons, and
// every Type has a canonical encoded-name form used in symbol
// mangling. Named aggregates refer to each other by qualified name
// rather than by direct owning reference, so cyclic struct graphs
// never recurse through Equal/Encode (spec.md §9 "Cyclic type graphs").
package types

import "fmt"

// BaseTag enumerates the base (non-compound) type tags of spec.md §3.
type BaseTag int

const (
	Void BaseTag = iota
	Varargs
	Bool
	Char
	Int8
	Int16
	Int32
	Int64
	Int128
	UInt8
	UInt16
	UInt32
	UInt64
	UInt128
	Int
	UInt
	Size
	IntPtr
	PtrDiff
	Float
	Double
	LongDouble
)

var baseTagNames = map[BaseTag]string{
	Void: "void", Varargs: "...", Bool: "bool", Char: "char",
	Int8: "int8", Int16: "int16", Int32: "int32", Int64: "int64", Int128: "int128",
	UInt8: "uint8", UInt16: "uint16", UInt32: "uint32", UInt64: "uint64", UInt128: "uint128",
	Int: "int", UInt: "uint", Size: "size", IntPtr: "intptr", PtrDiff: "ptrdiff",
	Float: "float", Double: "double", LongDouble: "long-double",
}

func (t BaseTag) String() string {
	if s, ok := baseTagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("base(%d)", int(t))
}

// Kind discriminates the structural shape of a Type.
type Kind int

const (
	KindBasic Kind = iota
	KindPointer
	KindArray
	KindFunction
	KindNamed
)

// Type is an interned value type. Use the Registry constructors to
// obtain one; do not construct Type values by hand, or structural
// interning (and therefore ptr_equal) breaks.
type Type struct {
	kind Kind

	// KindBasic
	base BaseTag

	// KindPointer
	pointsTo *Type

	// KindArray
	elem *Type
	size int64 // 0 means "unsized"

	// KindFunction
	ret        *Type
	params     []*Type
	isVariadic bool

	// KindNamed (struct or enum)
	qualifiedName string
	namespacePath []string
	isStruct      bool // false => enum
	bitfieldWidth int  // 0 means "not a bitfield"
	isConst       bool
}

// Kind reports the structural shape of t.
func (t *Type) Kind() Kind { return t.kind }

// Base returns the base tag; valid only when Kind() == KindBasic.
func (t *Type) Base() BaseTag { return t.base }

// PointsTo returns the pointee; valid only when Kind() == KindPointer.
func (t *Type) PointsTo() *Type { return t.pointsTo }

// Elem returns the array element type; valid only when Kind() == KindArray.
func (t *Type) Elem() *Type { return t.elem }

// ArraySize returns the array size (0 == unsized); valid only when
// Kind() == KindArray.
func (t *Type) ArraySize() int64 { return t.size }

// Return returns the function return type; valid only when
// Kind() == KindFunction.
func (t *Type) Return() *Type { return t.ret }

// Params returns the function parameter types in order; valid only
// when Kind() == KindFunction. The sentinel Varargs base type may
// appear only as the last element.
func (t *Type) Params() []*Type { return t.params }

// IsVariadic reports whether the function's last parameter is varargs.
func (t *Type) IsVariadic() bool { return t.isVariadic }

// QualifiedName returns the dotted namespace-qualified name of a named
// aggregate; valid only when Kind() == KindNamed.
func (t *Type) QualifiedName() string { return t.qualifiedName }

// NamespacePath returns the namespace path components the aggregate
// was declared in.
func (t *Type) NamespacePath() []string { return t.namespacePath }

// IsStruct reports whether a named aggregate is a struct (vs. an enum
// projection); valid only when Kind() == KindNamed.
func (t *Type) IsStruct() bool { return t.isStruct }

// BitfieldWidth returns the bitfield width, or 0 if t is not a bitfield.
func (t *Type) BitfieldWidth() int { return t.bitfieldWidth }

// IsConst reports whether t carries the const qualifier.
func (t *Type) IsConst() bool { return t.isConst }

// WithBitfield returns a copy of t (re-interned) carrying the given
// bitfield width — used only inside struct fields (spec.md §4.3
// "(bitfield N T)").
func (r *Registry) WithBitfield(t *Type, width int) *Type {
	cp := *t
	cp.bitfieldWidth = width
	return r.intern(&cp)
}

// WithConst returns a copy of t (re-interned) carrying the const flag.
func (r *Registry) WithConst(t *Type) *Type {
	cp := *t
	cp.isConst = true
	return r.intern(&cp)
}

// structuralKey is a comparable value used as the swiss-table key for
// interning — two Types with equal structuralKey are the identical
// pointer after Registry.intern, per spec.md §3 invariant (d).
func structuralKey(t *Type) string {
	return t.encode(true)
}
