package decl

import (
	"strings"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
)

// mangle derives the emitted symbol name for a declared function. An
// extern-c linked function keeps its bare name (it must match the C
// symbol callers expect); anything else is namespace-qualified so
// overloads and same-named-in-different-namespaces entities don't
// collide at the IR level.
func mangle(ns *ctx.Namespace, name string, fn *ctx.Function) string {
	if fn.Linkage == ctx.LinkageExternC {
		return name
	}
	qualified := ns.QualifiedName()
	if qualified == "" {
		return name
	}
	return strings.ReplaceAll(qualified, ".", "_") + "_" + name
}

// mangleGlobal is mangle's counterpart for Variable/Struct/Enum
// declarations, which carry no parameter list to disambiguate on.
func mangleGlobal(ns *ctx.Namespace, name string, linkage ctx.Linkage) string {
	if linkage == ctx.LinkageExternC {
		return name
	}
	qualified := ns.QualifiedName()
	if qualified == "" {
		return name
	}
	return strings.ReplaceAll(qualified, ".", "_") + "_" + name
}

// irLinkage maps ctx.Linkage to its emit.Linkage counterpart.
func irLinkage(l ctx.Linkage) emit.Linkage {
	switch l {
	case ctx.LinkageExtern, ctx.LinkageAuto:
		return emit.External
	case ctx.LinkageExternC:
		return emit.ExternC
	case ctx.LinkageExternWeak:
		return emit.Weak
	default:
		return emit.Internal
	}
}
