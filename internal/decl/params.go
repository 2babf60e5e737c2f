// Package decl implements the declaration forms of spec.md §4.5
// ("Declaration Forms (C6)"): `fn`, `var`, `struct`, `enum`, `macro`,
// each reachable from `def` via internal/dispatch. Grounded on the
// shape of internal/ctx's Function/Variable/Struct/Enum entities, with
// bodies lowered through internal/lower.
package decl

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/typeform"
	"github.com/dalec/dalec/internal/types"
)

// ParseParams implements spec.md §4.5's parameter rules: a single
// `void` parameter means no parameters; `...` may appear only as the
// last parameter; named aggregates are resolved in ns.
func ParseParams(c *ctx.Context, ns *ctx.Namespace, paramsNode *ast.Node) ([]*ctx.Param, *errors.Report) {
	if !paramsNode.IsList {
		return nil, errors.New(errors.UnexpectedElement, "decl", &paramsNode.Span, "expected a parameter list")
	}
	children := paramsNode.Children
	if len(children) == 1 && children[0].IsAtomSymbol("void") {
		return nil, nil
	}
	params := make([]*ctx.Param, 0, len(children))
	for i, pn := range children {
		if pn.IsAtomSymbol("void") {
			return nil, errors.New(errors.VoidMustBeOnlyParameter, "decl", &pn.Span, "void must be the only parameter")
		}
		name, typeNode, rep := splitParam(pn)
		if rep != nil {
			return nil, rep
		}
		t, rep := typeform.Parse(c, ns, typeNode, typeform.Options{AllowAnonStructs: true})
		if rep != nil {
			return nil, rep
		}
		if t.Kind() == types.KindBasic && t.Base() == types.Varargs && i != len(children)-1 {
			return nil, errors.New(errors.VarargsMustBeLast, "decl", &pn.Span, "varargs may appear only as the last parameter")
		}
		params = append(params, &ctx.Param{Name: name, Type: t})
	}
	return params, nil
}

// splitParam accepts either `(name T)` or a bare `...` atom (the
// varargs sentinel has no name).
func splitParam(pn *ast.Node) (string, *ast.Node, *errors.Report) {
	if !pn.IsList {
		if pn.IsAtomSymbol("...") {
			return "", pn, nil
		}
		return "", nil, errors.New(errors.UnexpectedElement, "decl", &pn.Span, "expected (name T) or ...")
	}
	if len(pn.Children) != 2 || pn.Children[0].AtomKind != ast.Symbol {
		return "", nil, errors.New(errors.UnexpectedElement, "decl", &pn.Span, "expected (name T)")
	}
	return pn.Children[0].Token, pn.Children[1], nil
}

// ParseLinkage maps the surface linkage keyword to ctx.Linkage.
func ParseLinkage(n *ast.Node) (ctx.Linkage, *errors.Report) {
	if n.IsList || n.AtomKind != ast.Symbol {
		return 0, errors.New(errors.UnexpectedElement, "decl", &n.Span, "expected a linkage keyword")
	}
	switch n.Token {
	case "intern":
		return ctx.LinkageIntern, nil
	case "extern":
		return ctx.LinkageExtern, nil
	case "extern-c":
		return ctx.LinkageExternC, nil
	case "extern-weak":
		return ctx.LinkageExternWeak, nil
	case "auto":
		return ctx.LinkageAuto, nil
	default:
		return 0, errors.New(errors.UnexpectedElement, "decl", &n.Span, "unknown linkage keyword %q", n.Token)
	}
}
