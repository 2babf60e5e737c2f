package lower

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"
)

// lowerIf implements `(if COND THEN ELSE)`. Both branches must agree
// on a result type exactly (no implicit cast at the join point; a
// deliberate simplification over inserting a coercion automatically —
// callers wanting otherwise insert an explicit `cast`), unless one or
// both branches already terminated their own block with a `return`: a
// terminated branch contributes no value at the join and is exempt
// from the type-agreement check, since the backend panics if a second
// terminator (the join's Jmp) is appended to a block a `return` already
// closed out.
func (s *Scope) lowerIf(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	if len(n.Children) != 4 {
		return Result{}, errors.New(errors.IncorrectNumberOfArgs, "lower", &n.Span, "(if COND THEN ELSE) takes exactly three operands")
	}
	cond, rep := s.Lower(blk, n.Children[1])
	if rep != nil {
		return Result{}, rep
	}
	if cond.Type == nil || cond.Type.Kind() != types.KindBasic || cond.Type.Base() != types.Bool {
		return Result{}, errors.New(errors.IncorrectArgType, "lower", &n.Children[1].Span, "if condition must be bool")
	}

	thenBlk := cond.Block.NewBlock("if.then")
	elseBlk := cond.Block.NewBlock("if.else")
	cond.Block.Br(cond.Value, thenBlk, elseBlk)

	thenRes, rep := s.Lower(thenBlk, n.Children[2])
	if rep != nil {
		return Result{}, rep
	}
	elseRes, rep := s.Lower(elseBlk, n.Children[3])
	if rep != nil {
		return Result{}, rep
	}

	if thenRes.Terminated && elseRes.Terminated {
		// Neither branch falls through; nothing reaches past the if.
		return Result{Block: thenRes.Block, Type: s.C.Types.Basic(types.Void), Terminated: true}, nil
	}
	if !thenRes.Terminated && !elseRes.Terminated && !types.Equal(thenRes.Type, elseRes.Type, true) {
		return Result{}, errors.New(errors.IncorrectArgType, "lower", &n.Span,
			"if branches must have the same type, got %s and %s", thenRes.Type.Pretty(), elseRes.Type.Pretty())
	}

	joinType := thenRes.Type
	if thenRes.Terminated {
		joinType = elseRes.Type
	}
	joinBlk := cond.Block.NewBlock("if.join")

	// The reference backend has no phi instruction; the join value is
	// threaded through a stack slot written by whichever predecessor(s)
	// actually fall through to it.
	slot := cond.Block.Alloca(joinType)
	if !thenRes.Terminated {
		thenRes.Block.Store(slot, thenRes.Value)
		thenRes.Block.Jmp(joinBlk)
	}
	if !elseRes.Terminated {
		elseRes.Block.Store(slot, elseRes.Value)
		elseRes.Block.Jmp(joinBlk)
	}
	return Result{Block: joinBlk, Type: joinType, Value: joinBlk.Load(slot)}, nil
}

// lowerReturn implements `(return [VALUE])` (spec.md §4.6 "Scope
// close" / end-to-end scenarios 1 and 3): VALUE, if present, is
// lowered first so locals it reads are still live; every local
// declared so far in the enclosing function is then destructed in
// reverse order (the returned value itself is exempt — "a return value
// is skipped"), and the block is terminated with Ret. The result is
// marked Terminated so LowerBody stops walking the rest of the body and
// BuildFn/BuildMacro know not to append their own trailing Ret.
func (s *Scope) lowerReturn(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	if len(n.Children) > 2 {
		return Result{}, errors.New(errors.IncorrectNumberOfArgs, "lower", &n.Span, "(return [VALUE]) takes at most one operand")
	}

	res := Result{Block: blk, Type: s.C.Types.Basic(types.Void)}
	if len(n.Children) == 2 {
		var rep *errors.Report
		res, rep = s.Lower(blk, n.Children[1])
		if rep != nil {
			return Result{}, rep
		}
	}

	s.destructLocals(res.Block)
	if isVoidType(res.Type) {
		res.Block.Ret(nil)
	} else {
		res.Block.Ret(res.Value)
	}
	res.DoNotDestruct = true
	res.Terminated = true
	return res, nil
}

func isVoidType(t *types.Type) bool {
	return t != nil && t.Kind() == types.KindBasic && t.Base() == types.Void
}

// lowerSetf implements `(setf LVALUE VALUE)`: VALUE is lowered,
// coerced to LVALUE's type if both are numeric, then stored.
func (s *Scope) lowerSetf(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	if len(n.Children) != 3 {
		return Result{}, errors.New(errors.IncorrectNumberOfArgs, "lower", &n.Span, "(setf LVALUE VALUE) takes exactly two operands")
	}
	target := n.Children[1]
	if target.IsList || target.AtomKind != ast.Symbol {
		return Result{}, errors.New(errors.CannotTakeAddressOfNonLvalue, "lower", &target.Span, "setf target must be a variable name")
	}
	v, ok := s.C.LookupVariable(target.Token)
	if !ok {
		return Result{}, errors.New(errors.NotInScope, "lower", &target.Span, "variable %q is not in scope", target.Token)
	}
	slot, ok := v.Handle.Value.(emit.Value)
	if !ok {
		return Result{}, errors.New(errors.InternalError, "lower", &target.Span, "variable %q has no storage", target.Token)
	}
	rhs, rep := s.Lower(blk, n.Children[2])
	if rep != nil {
		return Result{}, rep
	}
	val, rep := coerceNumeric(rhs, v.Type, rhs.Block)
	if rep != nil {
		return Result{}, rep
	}
	rhs.Block.Store(slot, val)
	unit := s.C.Types.Basic(types.Void)
	return Result{Block: rhs.Block, Type: unit, DoNotDestruct: true}, nil
}

// lowerLocalVar implements the function-local declaration form
// `(var NAME T [INIT])` — distinct from `(def NAME (var LINKAGE T
// [INIT]))`, which internal/decl handles for namespace-level globals;
// locals carry no linkage and live in the function's own namespace.
func (s *Scope) lowerLocalVar(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	if len(n.Children) != 3 && len(n.Children) != 4 {
		return Result{}, errors.New(errors.IncorrectNumberOfArgs, "lower", &n.Span, "(var NAME T [INIT]) takes two or three operands")
	}
	nameNode := n.Children[1]
	if nameNode.IsList || nameNode.AtomKind != ast.Symbol {
		return Result{}, errors.New(errors.UnexpectedElement, "lower", &nameNode.Span, "local variable name must be a symbol")
	}
	t, rep := s.ParseType(n.Children[2])
	if rep != nil {
		return Result{}, rep
	}

	slot := blk.Alloca(t)
	if len(n.Children) == 4 {
		init, rep := s.Lower(blk, n.Children[3])
		if rep != nil {
			return Result{}, rep
		}
		val, rep := coerceNumeric(init, t, init.Block)
		if rep != nil {
			return Result{}, rep
		}
		init.Block.Store(slot, val)
		blk = init.Block
	}

	v := &ctx.Variable{Name: nameNode.Token, Type: t, Linkage: ctx.LinkageIntern, Handle: ctx.IRHandle{Symbol: nameNode.Token, Value: slot}}
	s.NS.SetVariable(nameNode.Token, v)
	s.locals = append(s.locals, local{name: nameNode.Token, v: v})

	unit := s.C.Types.Basic(types.Void)
	return Result{Block: blk, Type: unit, DoNotDestruct: true}, nil
}

// lowerCast implements `(cast T EXPR)`: full integer/bool/pointer
// conversions are permitted for an explicit cast (spec.md §4.6 "Cast").
func (s *Scope) lowerCast(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	if len(n.Children) != 3 {
		return Result{}, errors.New(errors.IncorrectNumberOfArgs, "lower", &n.Span, "(cast T EXPR) takes exactly two operands")
	}
	to, rep := s.ParseType(n.Children[1])
	if rep != nil {
		return Result{}, rep
	}
	val, rep := s.Lower(blk, n.Children[2])
	if rep != nil {
		return Result{}, rep
	}
	return Result{Block: val.Block, Type: to, Value: val.Block.Cast(val.Value, to), DoNotDestruct: true}, nil
}

// coerceNumeric inserts an implicit cast whenever types.CanCoerce allows
// the conversion (spec.md §4.6 "Numeric coercion rules"): integer
// widening, floating widening, integer to floating, and the p char /
// char-array interconversion. Narrowing, floating to integer and any
// other conversion are rejected.
func coerceNumeric(from Result, to *types.Type, blk emit.Block) (emit.Value, *errors.Report) {
	if types.Equal(from.Type, to, true) {
		return from.Value, nil
	}
	if !types.CanCoerce(from.Type, to, types.DefaultNativeTypes()) {
		return nil, errors.New(errors.IncorrectArgType, "lower", nil,
			"cannot implicitly convert %s to %s", from.Type.Pretty(), to.Pretty())
	}
	return blk.Cast(from.Value, to), nil
}
