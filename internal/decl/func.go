package decl

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/lower"
	"github.com/dalec/dalec/internal/typeform"
	"github.com/dalec/dalec/internal/types"
)

// BuildFn implements `(def NAME (fn LINKAGE RETURN-TYPE (PARAMS) BODY…))`
// (spec.md §4.5 "fn"): it parses the signature, inserts a Function into
// ns's overload set, emits the IR function, and lowers the body through
// internal/lower — unless the body is empty, which declares an
// extern-only prototype with no definition.
func BuildFn(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, name string, n *ast.Node) (*ctx.Function, *errors.Report) {
	if len(n.Children) < 4 {
		return nil, errors.New(errors.IncorrectNumberOfArgs, "decl", &n.Span,
			"(fn LINKAGE RETURN-TYPE (PARAMS) BODY…) requires at least a linkage, return type and parameter list")
	}
	linkage, rep := ParseLinkage(n.Children[1])
	if rep != nil {
		return nil, rep
	}
	retType, rep := typeform.Parse(c, ns, n.Children[2], typeform.Options{})
	if rep != nil {
		return nil, rep
	}
	params, rep := ParseParams(c, ns, n.Children[3])
	if rep != nil {
		return nil, rep
	}
	body := n.Children[4:]

	fn := &ctx.Function{
		Name:    name,
		Return:  retType,
		Params:  params,
		Linkage: linkage,
	}
	if !c.InsertFunction(ns, name, fn) {
		return nil, nil
	}

	sig := c.Types.Function(retType, paramTypes(params))
	irFn := b.Func(mangle(ns, name, fn), sig, irLinkage(linkage))
	fn.Handle = ctx.IRHandle{Symbol: irFn.Name(), Value: irFn.Pointer()}

	if len(body) == 0 {
		return fn, nil
	}

	fnNS := ns.Child("$fn$" + name)
	entry := irFn.Entry()
	for i, p := range params {
		slot := entry.Alloca(p.Type)
		entry.Store(slot, irFn.Param(i))
		fnNS.SetVariable(p.Name, &ctx.Variable{
			Name: p.Name, Type: p.Type, Linkage: ctx.LinkageIntern,
			Handle: ctx.IRHandle{Symbol: p.Name, Value: slot},
		})
	}
	c.PushUsed(fnNS)
	defer c.PopUsed()

	scope := lower.NewScope(c, fnNS, fn, irFn, macros)
	res, finalBlk, rep := scope.LowerBody(irFn.Entry(), body)
	if rep != nil {
		return nil, rep
	}
	if !res.Terminated {
		if isVoid(retType) {
			finalBlk.Ret(nil)
		} else {
			finalBlk.Ret(res.Value)
		}
	}
	return fn, nil
}

func isVoid(t *types.Type) bool {
	return t != nil && t.Kind() == types.KindBasic && t.Base() == types.Void
}

func paramTypes(params []*ctx.Param) []*types.Type {
	out := make([]*types.Type, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}
