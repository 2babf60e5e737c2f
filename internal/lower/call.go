package lower

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"
)

// lowerCall implements `(CALLEE ARG…)` (spec.md §4.6 "Call"). If the
// candidate set for CALLEE contains any macro, the whole argument
// tentative-typing/rollback procedure belongs to the macro engine
// (spec.md §4.7 "Argument preparation"); lowerCall hands off to
// Scope.Macros and re-lowers whatever Node comes back. Otherwise every
// argument is lowered eagerly against the real block and resolved in
// the ordinary way.
func (s *Scope) lowerCall(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	head := n.Head()
	if head.AtomKind != ast.Symbol {
		return Result{}, errors.New(errors.FirstListElementMustBeSymbol, "lower", &n.Span, "call target must be a symbol")
	}
	name := head.Token

	candidates := s.C.LookupFunctions(name)
	if len(candidates) == 0 {
		if isBuiltinOp(name) {
			return s.lowerBuiltinOp(blk, n, name)
		}
		return Result{}, errors.New(errors.FunctionNotInScope, "lower", &head.Span, "%q is not in scope", name)
	}
	for _, c := range candidates {
		if c.IsMacro {
			if s.Macros == nil {
				return Result{}, errors.New(errors.MacroNotInScope, "lower", &head.Span,
					"%q resolves to a macro but no macro engine is configured", name)
			}
			replacement, rep := s.Macros.ExpandCall(s, n, name)
			if rep != nil {
				return Result{}, rep
			}
			return s.Lower(blk, replacement)
		}
	}

	args := n.Tail()
	argVals := make([]emit.Value, len(args))
	argTypes := make([]*types.Type, len(args))
	argAddrs := make([]emit.Value, len(args))
	cur := blk
	for i, a := range args {
		res, rep := s.Lower(cur, a)
		if rep != nil {
			return Result{}, rep
		}
		argVals[i] = res.Value
		argTypes[i] = res.Type
		argAddrs[i] = res.Addr
		cur = res.Block
	}

	res, rep := ctx.ResolveOverload(s.C, name, argTypes)
	if rep != nil {
		return Result{}, rep
	}

	fn := res.Function
	coerced := coerceCallArgs(cur, fn, argVals, argTypes, argAddrs)
	promoted := promoteVariadicTail(cur, fn, coerced, argTypes, s.C.Native, s.C.Types)
	handle, ok := fn.Handle.Value.(emit.Value)
	if !ok {
		return Result{}, errors.New(errors.InternalError, "lower", &head.Span, "function %q has no emitted handle", name)
	}
	result := cur.Call(handle, promoted)
	return Result{Block: cur, Type: fn.Return, Value: result}, nil
}

// coerceCallArgs applies the implicit conversion ResolveOverload/
// matchCandidate already accepted on every required (non-variadic-
// tail) argument: a numeric widening Cast, or — for the C-interop
// relaxation of spec.md §4.6 — decaying a char-array argument to a
// `p char` parameter by GEPing into its address to index 0. Variadic
// tail arguments are left untouched here; promoteVariadicTail handles
// those separately.
func coerceCallArgs(blk emit.Block, fn *ctx.Function, vals []emit.Value, argTypes []*types.Type, addrs []emit.Value) []emit.Value {
	params := fn.UserParams()
	required := len(params)
	if required > 0 && params[required-1].Type.Kind() == types.KindBasic && params[required-1].Type.Base() == types.Varargs {
		required--
	}
	out := make([]emit.Value, len(vals))
	copy(out, vals)
	for i := 0; i < required && i < len(out); i++ {
		pt := params[i].Type
		if pt.Kind() == types.KindBasic && pt.Base() == types.Varargs {
			continue
		}
		at := argTypes[i]
		if at == nil || types.Equal(at, pt, true) {
			continue
		}
		if isCharArrayType(at) && isCharPointerType(pt) && addrs[i] != nil {
			out[i] = blk.GEP(addrs[i], 0)
			continue
		}
		out[i] = blk.Cast(out[i], pt)
	}
	return out
}

func isCharArrayType(t *types.Type) bool {
	return t != nil && t.Kind() == types.KindArray && t.Elem() != nil &&
		t.Elem().Kind() == types.KindBasic && t.Elem().Base() == types.Char
}

func isCharPointerType(t *types.Type) bool {
	return t != nil && t.Kind() == types.KindPointer && t.PointsTo() != nil &&
		t.PointsTo().Kind() == types.KindBasic && t.PointsTo().Base() == types.Char
}

// promoteVariadicTail applies the C-style promotion of spec.md §4.6
// ("float->double, integer types narrower than the platform int width
// widen") to every supplied argument past the declared parameter
// count of a variadic function.
func promoteVariadicTail(blk emit.Block, fn *ctx.Function, args []emit.Value, argTypes []*types.Type, native types.NativeTypes, reg *types.Registry) []emit.Value {
	params := fn.UserParams()
	required := len(params)
	if required > 0 && params[required-1].Type.Kind() == types.KindBasic && params[required-1].Type.Base() == types.Varargs {
		required--
	} else {
		return args
	}
	out := make([]emit.Value, len(args))
	copy(out, args)
	for i := required; i < len(out); i++ {
		t := argTypes[i]
		if t == nil {
			continue
		}
		if types.IsFloating(t) && t.Base() != types.Double {
			out[i] = blk.Cast(out[i], reg.Basic(types.Double))
			continue
		}
		if types.IsInteger(t) && types.IntegerSize(t, native) < native.IntWidth {
			out[i] = blk.Cast(out[i], reg.Basic(types.Int))
		}
	}
	return out
}
