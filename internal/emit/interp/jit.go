package interp

import (
	"fmt"

	"github.com/dalec/dalec/internal/emit"
)

// Interp is the reference emit.JIT: rather than compiling machine
// code, it keeps the loaded Modules around and, on Resolve, returns a
// Callable that walks the named function's instruction tree directly.
// This is exactly the shape the teacher's CoreEvaluator gives
// internal/runtime: an in-process "compile" step that is really just
// "remember enough to interpret later".
type Interp struct {
	funcs   map[string]*irFunc
	globals map[string]*irGlobal
	natives map[string]emit.Callable
}

// NewInterp returns an empty JIT. Use RegisterNative to make a host
// (Go-implemented) function resolvable alongside interpreted ones — the
// seam internal/macro's FFI bridge needs to call back into the driver
// process for compiler-introspection builtins.
func NewInterp() *Interp {
	return &Interp{
		funcs:   map[string]*irFunc{},
		globals: map[string]*irGlobal{},
		natives: map[string]emit.Callable{},
	}
}

// RegisterNative installs a host-implemented function under symbol,
// resolvable exactly like an interpreted one.
func (in *Interp) RegisterNative(symbol string, fn emit.Callable) {
	in.natives[symbol] = fn
}

func (in *Interp) Load(m emit.Module) error {
	im, ok := m.(*irModule)
	if !ok {
		return fmt.Errorf("interp: JIT can only load interp modules, got %T", m)
	}
	for name, fn := range im.funcs {
		in.funcs[name] = fn
	}
	for name, g := range im.globals {
		in.globals[name] = g
	}
	return nil
}

func (in *Interp) Resolve(symbol string) (emit.Callable, bool) {
	if fn, ok := in.funcs[symbol]; ok {
		return func(args []any) (any, error) { return in.call(fn, args) }, true
	}
	if native, ok := in.natives[symbol]; ok {
		return native, true
	}
	return nil, false
}

// ResolveValue returns a Value wrapping the loaded function or global,
// for splicing into a different Unit's IR after a cross-Unit merge
// (emit.JIT.ResolveValue). Natives have no Value form (they exist only
// as host callables), so they never match here.
func (in *Interp) ResolveValue(symbol string) (emit.Value, bool) {
	if fn, ok := in.funcs[symbol]; ok {
		return fn.Pointer(), true
	}
	if g, ok := in.globals[symbol]; ok {
		return g.Pointer(), true
	}
	return nil, false
}

func (in *Interp) Close() error {
	in.funcs = nil
	in.globals = nil
	in.natives = nil
	return nil
}

// frame is one activation of an interpreted function: its arguments,
// and a cache mapping each alloca node to the box backing its storage
// so repeated Load/Store against the same node see the same cell
// (spec.md §3 "Variable...Handle" is the IR analogue of this cache).
type frame struct {
	args    []any
	allocas map[*node]*box
}

type box struct{ val any }

// ptrVal is the runtime representation of every pointer-typed Value:
// Alloca, a Global's Pointer, and GEP all produce one.
type ptrVal struct {
	get func() any
	set func(any)
}

func (in *Interp) call(fn *irFunc, args []any) (any, error) {
	fr := &frame{args: args, allocas: map[*node]*box{}}
	blk := fn.entry
	for {
		if blk == nil {
			return nil, fmt.Errorf("interp: function %q fell off the end without a terminator", fn.name)
		}
		for _, st := range blk.stmts {
			switch st.kind {
			case stmtStore:
				ptr, err := in.eval(st.ptr, fr)
				if err != nil {
					return nil, err
				}
				val, err := in.eval(st.val, fr)
				if err != nil {
					return nil, err
				}
				p, ok := ptr.(*ptrVal)
				if !ok {
					return nil, fmt.Errorf("interp: store target is not a pointer in %q", fn.name)
				}
				p.set(val)
			case stmtBr:
				cond, err := in.eval(st.cond, fr)
				if err != nil {
					return nil, err
				}
				if truthy(cond) {
					blk = st.then
				} else {
					blk = st.els
				}
				goto next
			case stmtJmp:
				blk = st.jmp
				goto next
			case stmtRet:
				if !st.hasRv {
					return nil, nil
				}
				return in.eval(st.ret, fr)
			}
		}
		return nil, fmt.Errorf("interp: block %q in %q has no terminator", blk.name, fn.name)
	next:
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	default:
		return v != nil
	}
}

func (in *Interp) eval(v emit.Value, fr *frame) (any, error) {
	n, ok := v.(*node)
	if !ok {
		return nil, fmt.Errorf("interp: value %v is not an interp node", v)
	}
	switch n.op {
	case opConstInt:
		return n.iv, nil
	case opConstFloat:
		return n.fv, nil
	case opConstBool:
		return n.bv, nil
	case opConstString:
		return n.sv, nil
	case opParam:
		if n.paramIndex >= len(fr.args) {
			return nil, fmt.Errorf("interp: param %d out of range (have %d args)", n.paramIndex, len(fr.args))
		}
		return fr.args[n.paramIndex], nil
	case opFuncRef:
		return n.fn, nil
	case opGlobalRef:
		g := n.global
		return &ptrVal{
			get: func() any { return g.storage },
			set: func(v any) { g.storage = v },
		}, nil
	case opAlloca:
		b, ok := fr.allocas[n]
		if !ok {
			b = &box{}
			fr.allocas[n] = b
		}
		return &ptrVal{get: func() any { return b.val }, set: func(v any) { b.val = v }}, nil
	case opLoad:
		ptr, err := in.eval(n.ptr, fr)
		if err != nil {
			return nil, err
		}
		p, ok := ptr.(*ptrVal)
		if !ok {
			return nil, fmt.Errorf("interp: load from a non-pointer value")
		}
		return p.get(), nil
	case opGEP:
		base, err := in.eval(n.ptr, fr)
		if err != nil {
			return nil, err
		}
		p, ok := base.(*ptrVal)
		if !ok {
			return nil, fmt.Errorf("interp: GEP base is not a pointer")
		}
		idx := n.index
		return &ptrVal{
			get: func() any {
				agg, _ := p.get().([]any)
				if idx < len(agg) {
					return agg[idx]
				}
				return nil
			},
			set: func(v any) {
				agg, _ := p.get().([]any)
				for len(agg) <= idx {
					agg = append(agg, nil)
				}
				agg[idx] = v
				p.set(agg)
			},
		}, nil
	case opBinOp:
		a, err := in.eval(n.a, fr)
		if err != nil {
			return nil, err
		}
		b, err := in.eval(n.b, fr)
		if err != nil {
			return nil, err
		}
		return evalBinOp(n.binOp, a, b)
	case opCast:
		return in.evalCast(n, fr)
	case opCall:
		return in.evalCall(n, fr)
	default:
		return nil, fmt.Errorf("interp: unhandled node op %d", n.op)
	}
}

func (in *Interp) evalCall(n *node, fr *frame) (any, error) {
	calleeVal, err := in.eval(n.callee, fr)
	if err != nil {
		return nil, err
	}
	fn, ok := calleeVal.(*irFunc)
	if !ok {
		return nil, fmt.Errorf("interp: call target does not resolve to a function")
	}
	args := make([]any, len(n.args))
	for i, a := range n.args {
		av, err := in.eval(a, fr)
		if err != nil {
			return nil, err
		}
		args[i] = av
	}
	if native, ok := in.natives[fn.name]; ok {
		return native(args)
	}
	return in.call(fn, args)
}
