// Package interp is the in-process reference implementation of
// internal/emit's Builder/Module/JIT seam, grounded on the teacher's
// tree-walking internal/eval package: where internal/eval walks a
// typed core AST against an Environment chain, interp walks the
// instruction tree a Builder records against a call-frame environment.
// It exists so C7 (lowering), C8 (macro execution) and the worked
// examples of §8 run end to end without a real LLVM binding.
package interp

import (
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/types"
)

type nodeOp int

const (
	opConstInt nodeOp = iota
	opConstFloat
	opConstBool
	opConstString
	opParam
	opFuncRef
	opGlobalRef
	opCall
	opAlloca
	opLoad
	opGEP
	opBinOp
	opCast
)

// node is both an emit.Value (it carries a static Type) and the
// recorded instruction that produces it; evaluating a function means
// walking its block graph and, for each node actually demanded,
// recursively evaluating its operands. A node is immutable once built.
type node struct {
	typ *types.Type
	op  nodeOp

	iv int64
	fv float64
	bv bool
	sv string

	paramIndex int
	fn         *irFunc
	global     *irGlobal

	callee emit.Value
	args   []emit.Value

	ptr   emit.Value
	index int

	binOp emit.Op
	a, b  emit.Value

	castTo *types.Type
	castOf emit.Value

	elemType *types.Type // set on opGEP; informational only, see builder.go GEP
}

func (n *node) Type() *types.Type { return n.typ }

// stmt is a non-value-producing instruction: Store, or a terminator.
type stmt struct {
	kind  stmtKind
	ptr   emit.Value
	val   emit.Value
	cond  emit.Value
	then  *irBlock
	els   *irBlock
	jmp   *irBlock
	ret   emit.Value
	hasRv bool
}

type stmtKind int

const (
	stmtStore stmtKind = iota
	stmtBr
	stmtJmp
	stmtRet
)
