package interp

import (
	"fmt"

	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/types"
)

// evalBinOp applies op to two already-evaluated operands. Which arm
// runs is decided by the operands' Go runtime kind rather than a
// static Dale type, since this interpreter carries values as bare
// int64/float64/bool/string rather than a typed value wrapper — this
// is a deliberate simplification the reference backend is allowed
// (spec.md §1 treats the emitter as an external collaborator); a real
// backend would dispatch on the static operand type instead.
func evalBinOp(op emit.Op, a, b any) (any, error) {
	if af, ok := a.(float64); ok {
		bf, ok := toFloat(b)
		if !ok {
			return nil, fmt.Errorf("interp: mismatched operand kinds for float op")
		}
		return floatBinOp(op, af, bf)
	}
	if ai, ok := a.(int64); ok {
		bi, ok := toInt(b)
		if !ok {
			return nil, fmt.Errorf("interp: mismatched operand kinds for int op")
		}
		return intBinOp(op, ai, bi)
	}
	return nil, fmt.Errorf("interp: unsupported operand type %T for binary op", a)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt(v any) (int64, bool) {
	n, ok := v.(int64)
	return n, ok
}

func intBinOp(op emit.Op, a, b int64) (any, error) {
	switch op {
	case emit.Add:
		return a + b, nil
	case emit.Sub:
		return a - b, nil
	case emit.Mul:
		return a * b, nil
	case emit.SDiv, emit.UDiv:
		if b == 0 {
			return nil, fmt.Errorf("interp: integer division by zero")
		}
		return a / b, nil
	case emit.SRem, emit.URem:
		if b == 0 {
			return nil, fmt.Errorf("interp: integer division by zero")
		}
		return a % b, nil
	case emit.And:
		return a & b, nil
	case emit.Or:
		return a | b, nil
	case emit.Xor:
		return a ^ b, nil
	case emit.Shl:
		return a << uint(b), nil
	case emit.LShr, emit.AShr:
		return a >> uint(b), nil
	case emit.ICmpEQ:
		return a == b, nil
	case emit.ICmpNE:
		return a != b, nil
	case emit.ICmpSLT, emit.ICmpULT:
		return a < b, nil
	case emit.ICmpSLE, emit.ICmpULE:
		return a <= b, nil
	case emit.ICmpSGT, emit.ICmpUGT:
		return a > b, nil
	case emit.ICmpSGE, emit.ICmpUGE:
		return a >= b, nil
	default:
		return nil, fmt.Errorf("interp: op %d is not an integer operation", op)
	}
}

func floatBinOp(op emit.Op, a, b float64) (any, error) {
	switch op {
	case emit.FAdd:
		return a + b, nil
	case emit.FSub:
		return a - b, nil
	case emit.FMul:
		return a * b, nil
	case emit.FDiv:
		return a / b, nil
	case emit.FCmpEQ:
		return a == b, nil
	case emit.FCmpNE:
		return a != b, nil
	case emit.FCmpLT:
		return a < b, nil
	case emit.FCmpLE:
		return a <= b, nil
	case emit.FCmpGT:
		return a > b, nil
	case emit.FCmpGE:
		return a >= b, nil
	default:
		return nil, fmt.Errorf("interp: op %d is not a floating-point operation", op)
	}
}

func (in *Interp) evalCast(n *node, fr *frame) (any, error) {
	of, err := in.eval(n.castOf, fr)
	if err != nil {
		return nil, err
	}
	if n.castTo == nil || n.castTo.Kind() != types.KindBasic {
		return of, nil
	}
	if types.IsFloating(n.castTo) {
		f, ok := toFloat(of)
		if !ok {
			return nil, fmt.Errorf("interp: cannot cast %T to a floating type", of)
		}
		return f, nil
	}
	switch v := of.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return of, nil
	}
}
