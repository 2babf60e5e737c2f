package ctx

import (
	"strings"

	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"
)

// Context owns the namespace tree, the used-namespaces stack, an
// ErrorReporter, a NativeTypes descriptor and the Type registry
// (spec.md §3 "Context").
type Context struct {
	Root    *Namespace
	used    []*Namespace // most-recent first
	Errors  *errors.Reporter
	Native  types.NativeTypes
	Types   *types.Registry
}

// New returns a Context rooted at a fresh anonymous global namespace,
// with the root namespace already pushed onto the used-namespaces
// stack.
func New() *Context {
	root := NewNamespace("", nil)
	c := &Context{
		Root:   root,
		Errors: errors.NewReporter(),
		Native: types.DefaultNativeTypes(),
		Types:  types.NewRegistry(),
	}
	c.used = []*Namespace{root}
	return c
}

// PushUsed makes ns "active" for unqualified lookups, most-recently
// pushed first (spec.md §3 "using-namespace...produce a stack of
// 'active' namespaces").
func (c *Context) PushUsed(ns *Namespace) {
	c.used = append([]*Namespace{ns}, c.used...)
}

// PopUsed removes the most-recently pushed used namespace.
func (c *Context) PopUsed() {
	if len(c.used) > 0 {
		c.used = c.used[1:]
	}
}

// UsedDepth returns the size of the used-namespaces stack.
func (c *Context) UsedDepth() int { return len(c.used) }

// UsedNamespaces returns the used-namespaces stack, most-recent first.
func (c *Context) UsedNamespaces() []*Namespace { return c.used }

// --- lookup ---

// LookupFunctions searches the used-namespaces stack top to bottom for
// an overload set named name, returning the first hit (spec.md §4.2
// step 1). Unlike Variable/Struct/Enum lookup, all namespaces holding a
// matching name must be checked and unioned only if the caller wants
// overloads visible from enclosing scopes too — per spec.md, a single
// namespace's overload set wins first.
func (c *Context) LookupFunctions(name string) []*Function {
	for _, ns := range c.used {
		if fns := ns.Functions(name); len(fns) > 0 {
			return fns
		}
	}
	return nil
}

// LookupVariable searches the used-namespaces stack, most-recent first.
func (c *Context) LookupVariable(name string) (*Variable, bool) {
	for _, ns := range c.used {
		if v, ok := ns.Variable(name); ok {
			return v, true
		}
	}
	return nil, false
}

// LookupStruct searches the used-namespaces stack, most-recent first.
func (c *Context) LookupStruct(name string) (*Struct, bool) {
	for _, ns := range c.used {
		if s, ok := ns.Struct(name); ok {
			return s, true
		}
	}
	return nil, false
}

// LookupEnum searches the used-namespaces stack, most-recent first.
func (c *Context) LookupEnum(name string) (*Enum, bool) {
	for _, ns := range c.used {
		if e, ok := ns.Enum(name); ok {
			return e, true
		}
	}
	return nil, false
}

// LookupQualified resolves a dot-separated qualified name by
// descending the namespace tree from the root (spec.md §4.2 step 2).
// The final component is looked up in the namespace identified by the
// preceding path components.
func (c *Context) LookupQualified(qualifiedName string) (ns *Namespace, local string, ok bool) {
	parts := strings.Split(qualifiedName, ".")
	if len(parts) == 1 {
		return c.Root, parts[0], true
	}
	nsPath, leaf := parts[:len(parts)-1], parts[len(parts)-1]
	found, ok := Descend(c.Root, nsPath)
	if !ok {
		return nil, "", false
	}
	return found, leaf, true
}

// --- insertion ---

// InsertFunction adds fn to ns's overload set for name, reporting a
// redeclaration error if an identical signature already exists
// (spec.md §4.2 "Adding a function that duplicates an existing
// overload...is an error; adding one that differs is appended").
func (c *Context) InsertFunction(ns *Namespace, name string, fn *Function) bool {
	for _, existing := range ns.Functions(name) {
		if sameSignature(existing, fn, c.Native) {
			code := errors.RedeclarationOfFunction
			if fn.IsMacro {
				code = errors.RedeclarationOfMacro
			}
			c.Errors.Add(errors.New(code, "ctx", nil,
				"redeclaration of %s with an identical parameter signature", name))
			return false
		}
	}
	ns.AddFunction(name, fn)
	return true
}

func sameSignature(a, b *Function, native types.NativeTypes) bool {
	ap, bp := a.UserParams(), b.UserParams()
	if len(ap) != len(bp) {
		return false
	}
	for i := range ap {
		if !types.Equal(ap[i].Type, bp[i].Type, true) {
			return false
		}
	}
	return true
}

// InsertStruct installs s, reporting a redeclaration error if one
// already exists with a different body.
func (c *Context) InsertStruct(ns *Namespace, name string, s *Struct) bool {
	if existing, ok := ns.Struct(name); ok {
		if !sameStructBody(existing, s) {
			c.Errors.Add(errors.New(errors.RedeclarationOfStruct, "ctx", nil,
				"redeclaration of struct %s with a different body", name))
			return false
		}
		return true
	}
	ns.SetStruct(name, s)
	return true
}

func sameStructBody(a, b *Struct) bool {
	if a.OnceTag != "" && a.OnceTag == b.OnceTag {
		return true
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name || !types.Equal(a.Fields[i].Type, b.Fields[i].Type, true) {
			return false
		}
	}
	return true
}

// InsertEnum installs e, reporting a redeclaration error if one already
// exists with a different body.
func (c *Context) InsertEnum(ns *Namespace, name string, e *Enum) bool {
	if existing, ok := ns.Enum(name); ok {
		if !sameEnumBody(existing, e) {
			c.Errors.Add(errors.New(errors.RedeclarationOfEnum, "ctx", nil,
				"redeclaration of enum %s with a different body", name))
			return false
		}
		return true
	}
	ns.SetEnum(name, e)
	return true
}

func sameEnumBody(a, b *Enum) bool {
	if a.OnceTag != "" && a.OnceTag == b.OnceTag {
		return true
	}
	if len(a.Members) != len(b.Members) {
		return false
	}
	for i := range a.Members {
		if a.Members[i] != b.Members[i] {
			return false
		}
	}
	return true
}
