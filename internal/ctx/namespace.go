package ctx

import (
	"strings"

	"golang.org/x/exp/maps"
)

// Namespace maps names to, independently, a vector of Function
// overloads, a single Variable, a single Struct, and a single Enum
// (spec.md §3 "Namespace"). Namespaces form a tree rooted at the
// anonymous global namespace.
type Namespace struct {
	name     string
	parent   *Namespace
	children map[string]*Namespace

	functions map[string][]*Function
	variables map[string]*Variable
	structs   map[string]*Struct
	enums     map[string]*Enum
}

// NewNamespace returns a namespace with the given local name (empty
// for the anonymous root) and parent.
func NewNamespace(name string, parent *Namespace) *Namespace {
	return &Namespace{
		name:      name,
		parent:    parent,
		children:  map[string]*Namespace{},
		functions: map[string][]*Function{},
		variables: map[string]*Variable{},
		structs:   map[string]*Struct{},
		enums:     map[string]*Enum{},
	}
}

// Name returns this namespace's local (unqualified) name.
func (n *Namespace) Name() string { return n.name }

// Parent returns the enclosing namespace, or nil for the root.
func (n *Namespace) Parent() *Namespace { return n.parent }

// QualifiedName returns the dot-separated path from the root to n.
func (n *Namespace) QualifiedName() string {
	var parts []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		parts = append([]string{cur.name}, parts...)
	}
	return strings.Join(parts, ".")
}

// Child returns (creating if necessary) the named child namespace.
func (n *Namespace) Child(name string) *Namespace {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := NewNamespace(name, n)
	n.children[name] = c
	return c
}

// ChildNames returns the direct child namespace names.
func (n *Namespace) ChildNames() []string {
	return maps.Keys(n.children)
}

// LookupChild finds a direct child namespace by name.
func (n *Namespace) LookupChild(name string) (*Namespace, bool) {
	c, ok := n.children[name]
	return c, ok
}

// Descend walks a dot-separated qualified path from n, returning the
// final namespace (spec.md §4.2 "For qualified names...descend the
// namespace tree from the root").
func Descend(root *Namespace, qualifiedPath []string) (*Namespace, bool) {
	cur := root
	for _, part := range qualifiedPath {
		next, ok := cur.LookupChild(part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// --- local (unqualified-within-this-namespace) declaration tables ---

// Functions returns the overload set for name in this namespace only.
func (n *Namespace) Functions(name string) []*Function {
	return n.functions[name]
}

// FunctionNames returns the names with at least one overload declared
// directly in this namespace, used by internal/dtm to walk the table
// for serialization.
func (n *Namespace) FunctionNames() []string {
	return maps.Keys(n.functions)
}

// VariableNames returns the names bound directly in this namespace.
func (n *Namespace) VariableNames() []string {
	return maps.Keys(n.variables)
}

// StructNames returns the names bound directly in this namespace.
func (n *Namespace) StructNames() []string {
	return maps.Keys(n.structs)
}

// EnumNames returns the names bound directly in this namespace.
func (n *Namespace) EnumNames() []string {
	return maps.Keys(n.enums)
}

// AddFunction appends fn to name's overload set without checking for a
// duplicate signature; Context.InsertFunction does that check first.
func (n *Namespace) AddFunction(name string, fn *Function) {
	n.functions[name] = append(n.functions[name], fn)
}

// RemoveFunctions drops name's entire overload set, used by
// internal/dtm's symbol-list import filter (spec.md §4.8 step 8).
func (n *Namespace) RemoveFunctions(name string) {
	delete(n.functions, name)
}

// RemoveVariable drops name's variable binding, if any.
func (n *Namespace) RemoveVariable(name string) {
	delete(n.variables, name)
}

// RemoveStruct drops name's struct binding, if any.
func (n *Namespace) RemoveStruct(name string) {
	delete(n.structs, name)
}

// RemoveEnum drops name's enum binding, if any.
func (n *Namespace) RemoveEnum(name string) {
	delete(n.enums, name)
}

// Variable returns the single variable binding for name, if any.
func (n *Namespace) Variable(name string) (*Variable, bool) {
	v, ok := n.variables[name]
	return v, ok
}

// SetVariable installs a variable binding, overwriting any existing one.
func (n *Namespace) SetVariable(name string, v *Variable) {
	n.variables[name] = v
}

// Struct returns the single struct binding for name, if any.
func (n *Namespace) Struct(name string) (*Struct, bool) {
	s, ok := n.structs[name]
	return s, ok
}

// SetStruct installs a struct binding.
func (n *Namespace) SetStruct(name string, s *Struct) {
	n.structs[name] = s
}

// Enum returns the single enum binding for name, if any.
func (n *Namespace) Enum(name string) (*Enum, bool) {
	e, ok := n.enums[name]
	return e, ok
}

// SetEnum installs an enum binding.
func (n *Namespace) SetEnum(name string, e *Enum) {
	n.enums[name] = e
}

// mark snapshots the four declaration tables well enough to undo any
// entries added after this point (spec.md §9 "Context save point":
// "new entries added between snapshot and restore are thereby
// dropped"). Existing entries are never mutated by the macro-argument
// probing path this supports, so we only need to remember which keys
// existed and how long each overload list was.
func (n *Namespace) mark() namespaceMark {
	funcLens := make(map[string]int, len(n.functions))
	for k, v := range n.functions {
		funcLens[k] = len(v)
	}
	return namespaceMark{
		funcLens:  funcLens,
		variables: maps.Keys(n.variables),
		structs:   maps.Keys(n.structs),
		enums:     maps.Keys(n.enums),
	}
}

// restore undoes any declarations added since mark was taken.
func (n *Namespace) restore(m namespaceMark) {
	for k, fns := range n.functions {
		oldLen, existed := m.funcLens[k]
		if !existed {
			delete(n.functions, k)
			continue
		}
		if oldLen < len(fns) {
			n.functions[k] = fns[:oldLen]
		}
	}
	restoreKeys(n.variables, m.variables)
	restoreKeys(n.structs, m.structs)
	restoreKeys(n.enums, m.enums)
}

func restoreKeys[V any](table map[string]V, keptKeys []string) {
	kept := make(map[string]bool, len(keptKeys))
	for _, k := range keptKeys {
		kept[k] = true
	}
	for k := range table {
		if !kept[k] {
			delete(table, k)
		}
	}
}

type namespaceMark struct {
	funcLens  map[string]int
	variables []string
	structs   []string
	enums     []string
}
