package interp

import (
	"fmt"

	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/types"
)

// irBuilder accumulates the functions and globals of one compilation
// unit until Finish packages them into an irModule.
type irBuilder struct {
	name    string
	funcs   []*irFunc
	globals []*irGlobal
}

// NewBuilder returns an emit.Builder backed by the tree-walking
// interpreter.
func NewBuilder(moduleName string) emit.Builder {
	return &irBuilder{name: moduleName}
}

func (b *irBuilder) Func(name string, sig *types.Type, linkage emit.Linkage) emit.Func {
	fn := &irFunc{name: name, sig: sig, linkage: linkage}
	fn.entry = &irBlock{fn: fn, name: "entry"}
	b.funcs = append(b.funcs, fn)
	return fn
}

func (b *irBuilder) Global(name string, t *types.Type, linkage emit.Linkage) emit.Global {
	g := &irGlobal{name: name, typ: t, linkage: linkage}
	b.globals = append(b.globals, g)
	return g
}

func (b *irBuilder) RemoveFunc(name string) {
	for i, fn := range b.funcs {
		if fn.name == name {
			b.funcs = append(b.funcs[:i], b.funcs[i+1:]...)
			return
		}
	}
}

func (b *irBuilder) Finish() emit.Module {
	m := &irModule{name: b.name, funcs: map[string]*irFunc{}, globals: map[string]*irGlobal{}}
	for _, fn := range b.funcs {
		m.funcs[fn.name] = fn
		m.order = append(m.order, fn.name)
	}
	for _, g := range b.globals {
		m.globals[g.name] = g
	}
	return m
}

// irFunc is a function under (or after) construction.
type irFunc struct {
	name    string
	sig     *types.Type
	linkage emit.Linkage
	entry   *irBlock
	blocks  []*irBlock
}

func (f *irFunc) Name() string { return f.name }

func (f *irFunc) Param(i int) emit.Value {
	params := f.sig.Params()
	if i < 0 || i >= len(params) {
		panic(fmt.Sprintf("interp: param index %d out of range for %s", i, f.name))
	}
	return &node{typ: params[i], op: opParam, paramIndex: i}
}

func (f *irFunc) Entry() emit.Block { return f.entry }

func (f *irFunc) Pointer() emit.Value {
	return &node{typ: f.sig, op: opFuncRef, fn: f}
}

// irGlobal is a module-level variable.
type irGlobal struct {
	name    string
	typ     *types.Type
	linkage emit.Linkage
	storage any
}

func (g *irGlobal) Name() string { return g.name }

func (g *irGlobal) Pointer() emit.Value {
	return &node{typ: g.typ, op: opGlobalRef, global: g}
}

// irBlock is one straight-line instruction sequence within a function.
// Building instructions just appends nodes/stmts; nothing executes
// until a Callable produced by Interp.Resolve actually walks the
// graph for a concrete call.
type irBlock struct {
	fn   *irFunc
	name string

	stmts      []stmt
	terminated bool
}

func (blk *irBlock) require(notTerminated bool) {
	if notTerminated && blk.terminated {
		panic("interp: block " + blk.name + " already terminated")
	}
}

func (blk *irBlock) ConstInt(t *types.Type, v int64) emit.Value {
	return &node{typ: t, op: opConstInt, iv: v}
}

func (blk *irBlock) ConstFloat(t *types.Type, v float64) emit.Value {
	return &node{typ: t, op: opConstFloat, fv: v}
}

func (blk *irBlock) ConstBool(v bool) emit.Value {
	return &node{typ: nil, op: opConstBool, bv: v}
}

func (blk *irBlock) ConstString(v string) emit.Value {
	return &node{typ: nil, op: opConstString, sv: v}
}

func (blk *irBlock) Call(callee emit.Value, args []emit.Value) emit.Value {
	var ret *types.Type
	if fn, ok := callee.(*node); ok && fn.typ != nil && fn.typ.Kind() == types.KindFunction {
		ret = fn.typ.Return()
	}
	cp := make([]emit.Value, len(args))
	copy(cp, args)
	return &node{typ: ret, op: opCall, callee: callee, args: cp}
}

func (blk *irBlock) Alloca(t *types.Type) emit.Value {
	return &node{typ: t, op: opAlloca}
}

func (blk *irBlock) Load(ptr emit.Value) emit.Value {
	var t *types.Type
	if p, ok := ptr.(*node); ok && p.typ != nil && p.typ.Kind() == types.KindPointer {
		t = p.typ.PointsTo()
	}
	return &node{typ: t, op: opLoad, ptr: ptr}
}

func (blk *irBlock) Store(ptr, val emit.Value) {
	blk.require(true)
	blk.stmts = append(blk.stmts, stmt{kind: stmtStore, ptr: ptr, val: val})
}

func (blk *irBlock) GEP(base emit.Value, index int) emit.Value {
	var elemType *types.Type
	if b, ok := base.(*node); ok && b.typ != nil {
		switch b.typ.Kind() {
		case types.KindPointer:
			elemType = b.typ.PointsTo()
		case types.KindArray:
			elemType = b.typ.Elem()
		}
	}
	return &node{typ: nil, op: opGEP, ptr: base, index: index, elemType: elemType}
}

func (blk *irBlock) BinOp(op emit.Op, a, b emit.Value) emit.Value {
	var t *types.Type
	if av, ok := a.(*node); ok {
		t = av.typ
	}
	return &node{typ: resultType(op, t), op: opBinOp, binOp: op, a: a, b: b}
}

func resultType(op emit.Op, operandType *types.Type) *types.Type {
	switch {
	case op >= emit.ICmpEQ && op <= emit.FCmpGE:
		return nil // bool, left untyped the way ConstBool nodes are
	default:
		return operandType
	}
}

func (blk *irBlock) Cast(v emit.Value, to *types.Type) emit.Value {
	return &node{typ: to, op: opCast, castOf: v, castTo: to}
}

func (blk *irBlock) NewBlock(name string) emit.Block {
	nb := &irBlock{fn: blk.fn, name: name}
	blk.fn.blocks = append(blk.fn.blocks, nb)
	return nb
}

func (blk *irBlock) Br(cond emit.Value, then, els emit.Block) {
	blk.require(true)
	blk.terminated = true
	blk.stmts = append(blk.stmts, stmt{kind: stmtBr, cond: cond, then: then.(*irBlock), els: els.(*irBlock)})
}

func (blk *irBlock) Jmp(target emit.Block) {
	blk.require(true)
	blk.terminated = true
	blk.stmts = append(blk.stmts, stmt{kind: stmtJmp, jmp: target.(*irBlock)})
}

func (blk *irBlock) Ret(v emit.Value) {
	blk.require(true)
	blk.terminated = true
	blk.stmts = append(blk.stmts, stmt{kind: stmtRet, ret: v, hasRv: v != nil})
}
