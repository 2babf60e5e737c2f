package decl

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/lower"
	"github.com/dalec/dalec/internal/types"
)

// coreFormNames are the names C7's expression dispatcher (and the
// top-level form dispatcher, internal/dispatch) treat specially;
// spec.md §4.6 requires these never be shadowable by a user macro.
var coreFormNames = map[string]bool{
	"if": true, "setf": true, "var": true, "cast": true, "array-of": true,
	"do": true, "def": true, "namespace": true, "using-namespace": true,
	"include": true, "module": true, "import": true, "once": true,
	"return": true,
}

// IsCoreFormName reports whether name is reserved to a core form and so
// cannot be declared as a macro (spec.md §4.6, error NoCoreFormNameInMacro).
func IsCoreFormName(name string) bool { return coreFormNames[name] }

// NodeType returns the interned pointer-to-DNode type every macro
// parameter and return value carries. There is no real C DNode struct
// in this in-process implementation (internal/macro represents a macro
// argument directly as *ast.Node); NodeType exists only so macros have
// a *types.Type to put in ctx.Function.Params/Return like any other
// function, keeping overload resolution and call lowering oblivious to
// the fact that a candidate is a macro until it checks IsMacro.
func NodeType(reg *types.Registry) *types.Type {
	return reg.Pointer(reg.Named("DNode", nil, true))
}

// BuildMacro implements `(def NAME (macro LINKAGE (PARAM…) BODY…))`
// (spec.md §4.7 "Macro declaration"). Unlike fn parameters, macro
// parameters carry no declared type — every argument and the return
// value are DNode* — so PARAMS here is a bare list of names. A leading
// implicit macro-context parameter is prepended (ctx.Function.UserParams
// already excludes it from arity/overload matching); the body is
// lowered exactly like an ordinary function body via internal/lower,
// since by the time C7 sees it the body is ordinary Dale code computing
// and returning a DNode* (typically built by internal/macro's
// DNode-construction helpers, invoked as regular function calls).
func BuildMacro(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, name string, n *ast.Node) (*ctx.Function, *errors.Report) {
	if IsCoreFormName(name) {
		return nil, errors.New(errors.NoCoreFormNameInMacro, "decl", &n.Span, "%q is a core form name and cannot be redefined as a macro", name)
	}
	if len(n.Children) < 3 {
		return nil, errors.New(errors.IncorrectNumberOfArgs, "decl", &n.Span,
			"(macro LINKAGE (PARAMS) BODY…) requires at least a linkage and parameter list")
	}
	linkage, rep := ParseLinkage(n.Children[1])
	if rep != nil {
		return nil, rep
	}
	paramsNode := n.Children[2]
	if !paramsNode.IsList {
		return nil, errors.New(errors.UnexpectedElement, "decl", &paramsNode.Span, "expected a parameter list")
	}
	nodeT := NodeType(c.Types)

	params := make([]*ctx.Param, 0, len(paramsNode.Children)+1)
	params = append(params, &ctx.Param{Name: "$macro-context$", Type: nodeT})
	for _, pn := range paramsNode.Children {
		if pn.IsList || pn.AtomKind != ast.Symbol {
			return nil, errors.New(errors.UnexpectedElement, "decl", &pn.Span, "macro parameters must be bare names")
		}
		params = append(params, &ctx.Param{Name: pn.Token, Type: nodeT})
	}
	body := n.Children[3:]

	fn := &ctx.Function{
		Name:    name,
		Return:  nodeT,
		Params:  params,
		Linkage: linkage,
		IsMacro: true,
	}
	if !c.InsertFunction(ns, name, fn) {
		return nil, nil
	}

	sig := c.Types.Function(nodeT, paramTypes(params))
	irFn := b.Func(mangle(ns, name, fn), sig, irLinkage(linkage))
	fn.Handle = ctx.IRHandle{Symbol: irFn.Name(), Value: irFn.Pointer()}

	if len(body) == 0 {
		return fn, nil
	}

	fnNS := ns.Child("$macro$" + name)
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
	res, finalBlk, rep := scope.LowerBody(entry, body)
	if rep != nil {
		return nil, rep
	}
	if !res.Terminated {
		finalBlk.Ret(res.Value)
	}
	return fn, nil
}
