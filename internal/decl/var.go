package decl

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/lower"
	"github.com/dalec/dalec/internal/typeform"
)

// BuildVar implements `(def NAME (var LINKAGE T [INIT]))` (spec.md §4.5
// "var"): a namespace-level global, distinct from the function-local
// `(var NAME T [INIT])` form internal/lower handles. A present
// initializer is lowered into its own small function (no enclosing
// ctx.Function, since a global initializer is not itself callable from
// Dale code); internal/driver runs each such `$init` function once,
// right after its declaration has been dispatched.
// The returned initSymbol names the $init function internal/driver
// calls, empty when the declaration carries no initializer.
func BuildVar(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, name string, n *ast.Node) (v *ctx.Variable, initSymbol string, rep *errors.Report) {
	if len(n.Children) != 3 && len(n.Children) != 4 {
		return nil, "", errors.New(errors.IncorrectNumberOfArgs, "decl", &n.Span,
			"(var LINKAGE T [INIT]) takes two or three operands")
	}
	linkage, rep := ParseLinkage(n.Children[1])
	if rep != nil {
		return nil, "", rep
	}
	t, rep := typeform.Parse(c, ns, n.Children[2], typeform.Options{})
	if rep != nil {
		return nil, "", rep
	}

	v = &ctx.Variable{Name: name, Type: t, Linkage: linkage}
	g := b.Global(mangleGlobal(ns, name, linkage), t, irLinkage(linkage))
	v.Handle = ctx.IRHandle{Symbol: g.Name(), Value: g.Pointer()}
	ns.SetVariable(name, v)

	if len(n.Children) == 4 {
		scope := lower.NewScope(c, ns, nil, nil, macros)
		initFn := b.Func(g.Name()+"$init", nil, emit.Internal)
		initBlk := initFn.Entry()
		res, rep := scope.Lower(initBlk, n.Children[3])
		if rep != nil {
			return nil, "", rep
		}
		res.Block.Store(g.Pointer(), res.Value)
		res.Block.Ret(nil)
		initSymbol = initFn.Name()
	}
	return v, initSymbol, nil
}
