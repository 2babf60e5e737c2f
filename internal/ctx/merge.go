package ctx

import (
	"golang.org/x/exp/slices"

	"github.com/dalec/dalec/internal/errors"
)

// Merge folds other's namespace tree into dst, recursively (spec.md
// §4.2 "Merging imported Contexts"). Function overload sets are
// appended after deduplication; colliding struct/enum bodies must be
// identical (same once-tag or same body) or it is an error.
func Merge(dst *Context, other *Context) {
	mergeNamespace(dst, dst.Root, other.Root)
}

func mergeNamespace(dst *Context, dstNS, srcNS *Namespace) {
	for name, overloads := range srcNS.functions {
		for _, fn := range overloads {
			dup := false
			for _, existing := range dstNS.Functions(name) {
				if sameSignature(existing, fn, dst.Native) {
					dup = true
					break
				}
			}
			if !dup {
				dstNS.AddFunction(name, fn)
			}
		}
	}
	for name, v := range srcNS.variables {
		if _, exists := dstNS.Variable(name); !exists {
			dstNS.SetVariable(name, v)
		}
	}
	for name, s := range srcNS.structs {
		if existing, exists := dstNS.Struct(name); exists {
			if !sameStructBody(existing, s) {
				dst.Errors.Add(errors.New(errors.RedeclarationOfStruct, "ctx", nil,
					"module merge: struct %s redeclared with a different body", name))
			}
			continue
		}
		dstNS.SetStruct(name, s)
	}
	for name, e := range srcNS.enums {
		if existing, exists := dstNS.Enum(name); exists {
			if !sameEnumBody(existing, e) {
				dst.Errors.Add(errors.New(errors.RedeclarationOfEnum, "ctx", nil,
					"module merge: enum %s redeclared with a different body", name))
			}
			continue
		}
		dstNS.SetEnum(name, e)
	}
	for _, childName := range srcNS.ChildNames() {
		srcChild, _ := srcNS.LookupChild(childName)
		dstChild := dstNS.Child(childName)
		mergeNamespace(dst, dstChild, srcChild)
	}
}

// EraseOnceTags walks the namespace tree removing any Struct/Enum
// whose once-tag is in tags, and removing Function/Variable entries
// carrying one of those tags as well: those entries are deleted from
// the namespace outright, not kept as declarations with an emptied
// definition (spec.md §4.2 "once-guard erasure", §3
// "erase-by-once-tag").
func EraseOnceTags(c *Context, tags []string) {
	eraseOnceTagsIn(c.Root, tags)
}

func eraseOnceTagsIn(ns *Namespace, tags []string) {
	for name, s := range ns.structs {
		if slices.Contains(tags, s.OnceTag) {
			delete(ns.structs, name)
		}
	}
	for name, e := range ns.enums {
		if slices.Contains(tags, e.OnceTag) {
			delete(ns.enums, name)
		}
	}
	for name, v := range ns.variables {
		if slices.Contains(tags, v.OnceTag) {
			delete(ns.variables, name)
		}
	}
	for name, fns := range ns.functions {
		kept := fns[:0:0]
		for _, fn := range fns {
			if !slices.Contains(tags, fn.OnceTag) {
				kept = append(kept, fn)
			}
		}
		if len(kept) == 0 {
			delete(ns.functions, name)
		} else {
			ns.functions[name] = kept
		}
	}
	for _, childName := range ns.ChildNames() {
		child, _ := ns.LookupChild(childName)
		eraseOnceTagsIn(child, tags)
	}
}

// EraseMacros removes every macro Function from the namespace tree
// (spec.md §3 "erase-macros"; §10 "optionally erase all macros").
func EraseMacros(c *Context) {
	eraseWhere(c.Root, func(f *Function) bool { return f.IsMacro })
}

// EraseCTOs removes every compile-time-only Function from the
// namespace tree (spec.md §3 "erase-ctos").
func EraseCTOs(c *Context) {
	eraseWhere(c.Root, func(f *Function) bool { return f.CTO })
}

func eraseWhere(ns *Namespace, pred func(*Function) bool) {
	for name, fns := range ns.functions {
		kept := fns[:0:0]
		for _, fn := range fns {
			if !pred(fn) {
				kept = append(kept, fn)
			}
		}
		if len(kept) == 0 {
			delete(ns.functions, name)
		} else {
			ns.functions[name] = kept
		}
	}
	for _, childName := range ns.ChildNames() {
		child, _ := ns.LookupChild(childName)
		eraseWhere(child, pred)
	}
}

// RegetPointers rebinds every stored IR handle in c, keyed by symbol
// name, to the corresponding entity resolved by lookup — mandatory
// after every cross-module merge or re-link (spec.md §4.8 "Reget-
// pointers", §9 "treat every stored handle as a rebindable reference
// keyed by symbol name").
func RegetPointers(c *Context, lookup func(symbol string) (any, bool)) {
	regetIn(c.Root, lookup)
}

func regetIn(ns *Namespace, lookup func(string) (any, bool)) {
	for _, fns := range ns.functions {
		for _, fn := range fns {
			if v, ok := lookup(fn.Handle.Symbol); ok {
				fn.Handle.Value = v
			}
		}
	}
	for _, v := range ns.variables {
		if val, ok := lookup(v.Handle.Symbol); ok {
			v.Handle.Value = val
		}
	}
	for _, s := range ns.structs {
		if val, ok := lookup(s.Handle.Symbol); ok {
			s.Handle.Value = val
		}
	}
	for _, childName := range ns.ChildNames() {
		child, _ := ns.LookupChild(childName)
		regetIn(child, lookup)
	}
}
