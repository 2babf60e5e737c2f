package lower

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"
)

// intOps and floatOps give the built-in two-operand forms their
// instruction mapping. These are tried only when no user-declared
// function of the same name is in scope (lowerCall checks candidates
// first), so a program is always free to shadow e.g. `+` for a
// struct type with an ordinary `def`.
var intOps = map[string]emit.Op{
	"+": emit.Add, "-": emit.Sub, "*": emit.Mul, "/": emit.SDiv, "%": emit.SRem,
	"&": emit.And, "|": emit.Or, "^": emit.Xor, "<<": emit.Shl, ">>": emit.AShr,
	"=": emit.ICmpEQ, "!=": emit.ICmpNE,
	"<": emit.ICmpSLT, "<=": emit.ICmpSLE, ">": emit.ICmpSGT, ">=": emit.ICmpSGE,
}

var floatOps = map[string]emit.Op{
	"+": emit.FAdd, "-": emit.FSub, "*": emit.FMul, "/": emit.FDiv,
	"=": emit.FCmpEQ, "!=": emit.FCmpNE,
	"<": emit.FCmpLT, "<=": emit.FCmpLE, ">": emit.FCmpGT, ">=": emit.FCmpGE,
}

var cmpOps = map[emit.Op]bool{
	emit.ICmpEQ: true, emit.ICmpNE: true, emit.ICmpSLT: true, emit.ICmpSLE: true, emit.ICmpSGT: true, emit.ICmpSGE: true,
	emit.FCmpEQ: true, emit.FCmpNE: true, emit.FCmpLT: true, emit.FCmpLE: true, emit.FCmpGT: true, emit.FCmpGE: true,
}

// isBuiltinOp reports whether name names a built-in arithmetic or
// comparison form, so lowerCall knows to try it before reporting
// "not in scope".
func isBuiltinOp(name string) bool {
	_, ok := intOps[name]
	if ok {
		return true
	}
	_, ok = floatOps[name]
	return ok
}

// lowerBuiltinOp implements the two-operand arithmetic and comparison
// forms directly against Block.BinOp, the way the reference backend's
// Op enum exists to be used (spec.md §4.6 treats `+`, `<`, etc. as the
// operations every numeric type gets for free, distinct from the
// user-overloadable function namespace `lowerCall` otherwise serves).
func (s *Scope) lowerBuiltinOp(blk emit.Block, n *ast.Node, name string) (Result, *errors.Report) {
	args := n.Tail()
	if len(args) != 2 {
		return Result{}, errors.New(errors.IncorrectNumberOfArgs, "lower", &n.Span, "(%s a b) takes exactly two operands", name)
	}

	lhs, rep := s.Lower(blk, args[0])
	if rep != nil {
		return Result{}, rep
	}
	rhs, rep := s.Lower(lhs.Block, args[1])
	if rep != nil {
		return Result{}, rep
	}

	if types.IsFloating(lhs.Type) || types.IsFloating(rhs.Type) {
		op, ok := floatOps[name]
		if !ok {
			return Result{}, errors.New(errors.IncorrectArgType, "lower", &n.Span, "%q has no floating-point form", name)
		}
		resultType := widerFloat(lhs.Type, rhs.Type)
		a, rep := coerceNumeric(lhs, resultType, rhs.Block)
		if rep != nil {
			return Result{}, rep
		}
		b, rep := coerceNumeric(rhs, resultType, rhs.Block)
		if rep != nil {
			return Result{}, rep
		}
		return s.finishBuiltinOp(rhs.Block, op, resultType, a, b), nil
	}

	if !types.IsInteger(lhs.Type) || !types.IsInteger(rhs.Type) {
		return Result{}, errors.New(errors.IncorrectArgType, "lower", &n.Span,
			"%q expects numeric operands, got %s and %s", name, lhs.Type.Pretty(), rhs.Type.Pretty())
	}
	op, ok := intOps[name]
	if !ok {
		return Result{}, errors.New(errors.IncorrectArgType, "lower", &n.Span, "%q has no integer form", name)
	}
	resultType := lhs.Type
	if types.IntegerSize(rhs.Type, types.DefaultNativeTypes()) > types.IntegerSize(lhs.Type, types.DefaultNativeTypes()) {
		resultType = rhs.Type
	}
	a, rep := coerceNumeric(lhs, resultType, rhs.Block)
	if rep != nil {
		return Result{}, rep
	}
	b, rep := coerceNumeric(rhs, resultType, rhs.Block)
	if rep != nil {
		return Result{}, rep
	}
	return s.finishBuiltinOp(rhs.Block, op, resultType, a, b), nil
}

// widerFloat picks the wider of two types for a mixed-float (or
// int-with-float) operation, treating any non-floating operand as
// needing promotion to the other side's floating type.
func widerFloat(a, b *types.Type) *types.Type {
	if !types.IsFloating(a) {
		return b
	}
	if !types.IsFloating(b) {
		return a
	}
	if a.Base() == types.LongDouble || b.Base() == types.LongDouble {
		if a.Base() == types.LongDouble {
			return a
		}
		return b
	}
	if a.Base() == types.Double || b.Base() == types.Double {
		if a.Base() == types.Double {
			return a
		}
		return b
	}
	return a
}

func (s *Scope) finishBuiltinOp(blk emit.Block, op emit.Op, operandType *types.Type, a, b emit.Value) Result {
	v := blk.BinOp(op, a, b)
	t := operandType
	if cmpOps[op] {
		t = s.C.Types.Basic(types.Bool)
	}
	return Result{Block: blk, Type: t, Value: v, DoNotDestruct: true}
}
