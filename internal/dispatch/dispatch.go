// Package dispatch implements the top-level form dispatcher (spec.md
// §4.4 "Form Dispatcher (C5)"): it routes each top-level Node to its
// handler by head token, including `def`'s well-known second-level
// dispatch (delegated straight to internal/decl) and the top-level
// macro-call fallback the original generator calls
// "parseOptionalMacroCall" (Generator.cpp's parseTopLevel: try the
// eight known heads first, then attempt a macro expansion, then error
// not-in-scope).
package dispatch

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/decl"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/lower"
)

// Driver is the seam into internal/driver's Unit stack for the four
// forms C5 routes but does not itself own state for (spec.md §4.8-4.9):
// include pushes a new Unit, import merges a deserialized module's
// Context, module sets the current Unit's name/attrs, and once either
// records a guard tag or pops the Unit stack on a repeat guard.
type Driver interface {
	Include(path string) *errors.Report
	Import(name string, symbols []string) *errors.Report
	SetModuleName(name string, attrs []string) *errors.Report
	// Once implements spec.md §4.8 "once": popUnit reports whether TAG
	// was already seen, in which case the caller must stop driving the
	// current Unit's remaining top-forms.
	Once(tag string) (popUnit bool, rep *errors.Report)
	// RunGlobalInit invokes a top-level var's initializer wrapper
	// (decl.Result.InitSymbol) once, immediately after its declaration
	// is loaded, mirroring Generator.cpp's pattern of JIT-executing
	// each global's initializer as soon as it is parsed rather than
	// deferring it to program startup.
	RunGlobalInit(symbol string) *errors.Report
}

// Dispatch routes one top-level Node (spec.md §4.4). ns is the
// namespace new declarations are inserted into; it only changes across
// a recursive call for `namespace`'s nested forms.
func Dispatch(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, drv Driver, form *ast.Node) *errors.Report {
	if !form.IsList {
		return errors.New(errors.OnlyListsAtTopLevel, "dispatch", &form.Span, "only lists are permitted at the top level")
	}
	if len(form.Children) == 0 {
		return errors.New(errors.NoEmptyLists, "dispatch", &form.Span, "empty lists are not permitted")
	}
	head := form.Children[0]
	if head.IsList {
		return errors.New(errors.FirstListElementMustBeAtom, "dispatch", &head.Span, "the first element of a top-level list must be an atom")
	}
	if head.AtomKind != ast.Symbol {
		return errors.New(errors.FirstListElementMustBeSymbol, "dispatch", &head.Span, "the first element of a top-level list must be a symbol")
	}

	switch head.Token {
	case "do":
		for _, child := range form.Tail() {
			if rep := Dispatch(c, ns, b, macros, drv, child); rep != nil {
				return rep
			}
		}
		return nil
	case "def":
		return dispatchDef(c, ns, b, macros, drv, form)
	case "namespace":
		return dispatchNamespace(c, ns, b, macros, drv, form)
	case "using-namespace":
		return dispatchUsingNamespace(c, ns, b, macros, drv, form)
	case "include":
		return dispatchInclude(drv, form)
	case "module":
		return dispatchModule(drv, form)
	case "import":
		return dispatchImport(drv, form)
	case "once":
		return dispatchOnce(drv, form)
	default:
		return dispatchMaybeMacro(c, ns, b, macros, drv, form, head)
	}
}

// dispatchDef implements `(def NAME FORM)` (spec.md §4.4 "def further
// dispatches on its second list head"): internal/decl.Build already
// does the fn/var/struct/macro/enum dispatch, so this is a thin shape
// check plus delegation.
func dispatchDef(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, drv Driver, form *ast.Node) *errors.Report {
	if len(form.Children) != 3 {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(def NAME FORM) takes exactly two operands")
	}
	nameNode := form.Children[1]
	if nameNode.IsList || nameNode.AtomKind != ast.Symbol {
		return errors.New(errors.UnexpectedElement, "dispatch", &nameNode.Span, "def's first operand must be a bare name")
	}
	res, rep := decl.Build(c, ns, b, macros, nameNode.Token, form.Children[2])
	if rep != nil {
		return rep
	}
	if res.InitSymbol != "" && drv != nil {
		return drv.RunGlobalInit(res.InitSymbol)
	}
	return nil
}

// dispatchNamespace implements `(namespace NAME FORM…)` (spec.md §3
// "Namespaces form a tree rooted at the anonymous global namespace"):
// it descends into (creating if needed) the named child namespace,
// makes it both the insertion namespace and the top of the used stack
// for its nested forms, then restores both on exit.
func dispatchNamespace(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, drv Driver, form *ast.Node) *errors.Report {
	if len(form.Children) < 2 {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(namespace NAME FORM…) requires a name")
	}
	nameNode := form.Children[1]
	if nameNode.IsList || nameNode.AtomKind != ast.Symbol {
		return errors.New(errors.UnexpectedElement, "dispatch", &nameNode.Span, "namespace's name must be a bare symbol")
	}
	child := ns.Child(nameNode.Token)
	c.PushUsed(child)
	defer c.PopUsed()
	for _, f := range form.Children[2:] {
		if rep := Dispatch(c, child, b, macros, drv, f); rep != nil {
			return rep
		}
	}
	return nil
}

// dispatchUsingNamespace implements `(using-namespace NAME FORM…)`
// (spec.md §3 "using-namespace...produce a stack of 'active'
// namespaces"): unlike `namespace`, it never creates a namespace and
// never changes where declarations are inserted — it only makes an
// existing namespace's declarations visible to unqualified lookups
// while its nested forms are processed.
func dispatchUsingNamespace(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, drv Driver, form *ast.Node) *errors.Report {
	if len(form.Children) < 2 {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(using-namespace NAME FORM…) requires a name")
	}
	nameNode := form.Children[1]
	if nameNode.IsList || nameNode.AtomKind != ast.Symbol {
		return errors.New(errors.UnexpectedElement, "dispatch", &nameNode.Span, "using-namespace's name must be a bare symbol")
	}
	target, ok := resolveNamespace(c, ns, nameNode.Token)
	if !ok {
		return errors.New(errors.NotInScope, "dispatch", &nameNode.Span, "namespace %q is not in scope", nameNode.Token)
	}
	c.PushUsed(target)
	defer c.PopUsed()
	for _, f := range form.Children[2:] {
		if rep := Dispatch(c, ns, b, macros, drv, f); rep != nil {
			return rep
		}
	}
	return nil
}

// resolveNamespace looks up a (possibly dot-qualified) namespace name,
// first as a child of ns, then from the root — mirroring
// Context.LookupQualified's root descent for the qualified case.
func resolveNamespace(c *ctx.Context, ns *ctx.Namespace, name string) (*ctx.Namespace, bool) {
	if child, ok := ns.LookupChild(name); ok {
		return child, ok
	}
	if found, ok := ctx.Descend(c.Root, splitQualified(name)); ok {
		return found, true
	}
	return nil, false
}

func splitQualified(name string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			parts = append(parts, name[start:i])
			start = i + 1
		}
	}
	return append(parts, name[start:])
}

func dispatchInclude(drv Driver, form *ast.Node) *errors.Report {
	if len(form.Children) != 2 || form.Children[1].AtomKind != ast.Str {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(include \"PATH\") takes exactly one string operand")
	}
	return drv.Include(form.Children[1].Token)
}

func dispatchModule(drv Driver, form *ast.Node) *errors.Report {
	if len(form.Children) < 2 || form.Children[1].AtomKind != ast.Symbol {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(module NAME [(attr…)]) requires a name")
	}
	name := form.Children[1].Token
	var attrs []string
	if len(form.Children) == 3 {
		attrsNode := form.Children[2]
		if !attrsNode.IsList {
			return errors.New(errors.UnexpectedElement, "dispatch", &attrsNode.Span, "expected an attribute list")
		}
		for _, a := range attrsNode.Children {
			if a.IsList || a.AtomKind != ast.Symbol {
				return errors.New(errors.UnexpectedElement, "dispatch", &a.Span, "module attributes must be bare symbols")
			}
			attrs = append(attrs, a.Token)
		}
	} else if len(form.Children) > 3 {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(module NAME [(attr…)]) takes at most two operands")
	}
	return drv.SetModuleName(name, attrs)
}

func dispatchImport(drv Driver, form *ast.Node) *errors.Report {
	if len(form.Children) < 2 || form.Children[1].AtomKind != ast.Symbol {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(import NAME [(SYM…)]) requires a name")
	}
	name := form.Children[1].Token
	var symbols []string
	if len(form.Children) == 3 {
		symsNode := form.Children[2]
		if !symsNode.IsList {
			return errors.New(errors.UnexpectedElement, "dispatch", &symsNode.Span, "expected a symbol list")
		}
		for _, s := range symsNode.Children {
			if s.IsList || s.AtomKind != ast.Symbol {
				return errors.New(errors.UnexpectedElement, "dispatch", &s.Span, "imported symbol names must be bare symbols")
			}
			symbols = append(symbols, s.Token)
		}
	} else if len(form.Children) > 3 {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(import NAME [(SYM…)]) takes at most two operands")
	}
	return drv.Import(name, symbols)
}

func dispatchOnce(drv Driver, form *ast.Node) *errors.Report {
	if len(form.Children) != 2 || form.Children[1].AtomKind != ast.Symbol {
		return errors.New(errors.IncorrectNumberOfArgs, "dispatch", &form.Span, "(once TAG) takes exactly one symbol operand")
	}
	_, rep := drv.Once(form.Children[1].Token)
	return rep
}

// dispatchMaybeMacro implements the fallback branch of
// Generator.cpp's parseTopLevel: a head token that isn't one of the
// eight known forms is tried as a macro call before being reported
// not-in-scope, and a successful expansion is redispatched (spec.md
// §4.7 "the splice...may expand to further macro calls, which are
// expanded recursively" applies to top-level splices the same as
// expression-position ones).
func dispatchMaybeMacro(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, drv Driver, form *ast.Node, head *ast.Node) *errors.Report {
	if macros == nil {
		return errors.New(errors.NotInScope, "dispatch", &head.Span, "%q is not in scope", head.Token)
	}
	candidates := c.LookupFunctions(head.Token)
	isMacro := false
	for _, cand := range candidates {
		if cand.IsMacro {
			isMacro = true
			break
		}
	}
	if !isMacro {
		return errors.New(errors.NotInScope, "dispatch", &head.Span, "%q is not in scope", head.Token)
	}

	scope := lower.NewScope(c, ns, nil, nil, macros)
	replacement, rep := macros.ExpandCall(scope, form, head.Token)
	if rep != nil {
		return rep
	}
	return Dispatch(c, ns, b, macros, drv, replacement)
}
