// Package macro implements the macro invocation machinery of spec.md
// §4.7 ("Macro Engine (C8)"): argument preparation with rollback,
// DNode-equivalent conversion, the JIT call, and splice unwrapping.
// Engine implements internal/lower's MacroExpander seam so C7 can stay
// oblivious to how a macro call is actually carried out.
//
// Grounded on internal/eval/builtins_call.go's "look the name up, try
// the call, fall back" dispatch shape, and on internal/emit/interp
// (itself grounded on internal/eval/eval_evaluator.go) for what it
// means to "JIT-materialize and call" a Dale function from Go.
package macro

import (
	"fmt"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/lower"
	"github.com/dalec/dalec/internal/types"
)

// Engine is the reference implementation of lower.MacroExpander. There
// is no separate DNode/MContext marshaling layer the way a real
// ffi_prep_cif/ffi_call bridge needs one: because the JIT here is
// in-process (internal/emit/interp), a macro argument crosses the call
// boundary as an ordinary *ast.Node Go value, standing in directly for
// what spec.md calls a DNode*. decl.NodeType's interned "DNode" named
// type exists purely so the IR type system has something to put in a
// macro's ctx.Function.Params/Return; Engine itself never constructs
// or reads through that type, it just passes *ast.Node values.
type Engine struct {
	C   *ctx.Context
	B   emit.Builder
	JIT emit.JIT

	tempCounter int
}

// New returns an Engine driving macro calls against c, emitting
// argument-probing temporaries via b and resolving macro bodies for
// invocation via jit. internal/driver constructs one Engine per Unit
// and is responsible for keeping jit's loaded modules current: a
// macro must already be JIT-resolvable by the time it is called, so
// the driver's top-form loop re-Finishes and re-Loads b's module after
// every declaration (Load is idempotent on already-loaded symbols).
func New(c *ctx.Context, b emit.Builder, jit emit.JIT) *Engine {
	return &Engine{C: c, B: b, JIT: jit}
}

var _ lower.MacroExpander = (*Engine)(nil)

// ExpandCall implements spec.md §4.7 end to end for one call site.
// Recursive re-expansion of the returned replacement happens outside
// Engine: internal/lower's lowerCall re-dispatches the splice through
// Scope.Lower, which re-enters lowerCall (and so ExpandCall) if the
// splice is itself another macro call — matching "the splice...may
// expand to further macro calls, which are expanded recursively"
// without ExpandCall needing a loop of its own.
func (e *Engine) ExpandCall(s *lower.Scope, callNode *ast.Node, name string) (*ast.Node, *errors.Report) {
	args := callNode.Tail()

	res, rep := e.probeAndResolve(s, name, args)
	if rep != nil {
		return nil, rep
	}
	if !res.IsMacro {
		return nil, errors.New(errors.InternalError, "macro", &callNode.Span,
			"%q resolved to a non-macro overload after argument probing", name)
	}

	return e.invoke(callNode, res.Function, args)
}

// probeAndResolve implements spec.md §4.7 "Argument preparation": a
// temporary global function hosts a tentative lowering of every
// argument so its Type can be learned for overload resolution; an
// argument whose lowering fails records a nil type (the "pointer to
// Node" relaxation ctx.ResolveOverload's matchCandidate already
// understands as "only a macro parameter can accept this") and its
// error is buffered rather than surfaced immediately. Whatever was
// added to the Context, to the Scope's locals, or to the temporary
// function is then rolled back unconditionally — a tentative lowering
// is exactly that, tentative, regardless of which overload resolution
// picks — and only then is the real overload resolved against the
// learned types, deciding (spec.md step 3) whether the buffered
// argument errors were masking a real problem or can be discarded.
func (e *Engine) probeAndResolve(s *lower.Scope, name string, args []*ast.Node) (*ctx.Resolution, *errors.Report) {
	e.tempCounter++
	tempName := fmt.Sprintf("_dale_TempMacroExecution%d", e.tempCounter)
	intT := s.C.Types.Basic(types.Int)
	tempFn := e.B.Func(tempName, s.C.Types.Function(intT, nil), emit.Internal)
	blk := tempFn.Entry()

	nsSP := s.C.Mark()
	localsSP := s.LocalsMark()
	errSP := s.C.Errors.Mark()

	argTypes := make([]*types.Type, len(args))
	for i, a := range args {
		res, probeRep := s.Lower(blk, a)
		if probeRep != nil {
			s.C.Errors.Add(probeRep)
			argTypes[i] = nil
			continue
		}
		argTypes[i] = res.Type
		blk = res.Block
	}
	buffered := s.C.Errors.Since(errSP)
	s.C.Errors.Discard(errSP)

	s.C.Restore(nsSP)
	s.LocalsRestore(localsSP)
	e.B.RemoveFunc(tempName)

	res, rep := ctx.ResolveOverload(s.C, name, argTypes)
	if rep != nil {
		return nil, rep
	}
	if !res.IsMacro && len(buffered) > 0 {
		return nil, buffered[0]
	}
	return res, nil
}

// invoke performs spec.md §4.7 "Call": JIT-resolve the macro's IR
// function, call it with the implicit context value followed by each
// argument Node, and splice the result in place of callNode.
func (e *Engine) invoke(callNode *ast.Node, fn *ctx.Function, args []*ast.Node) (*ast.Node, *errors.Report) {
	callable, ok := e.JIT.Resolve(fn.Handle.Symbol)
	if !ok {
		return nil, errors.New(errors.MacroNotInScope, "macro", &callNode.Span,
			"macro %q has no JIT-resolvable definition", fn.Name)
	}

	callArgs := make([]any, 0, len(args)+1)
	callArgs = append(callArgs, macroContext{})
	for _, a := range args {
		callArgs = append(callArgs, a)
	}

	result, err := callable(callArgs)
	if err != nil {
		return nil, errors.New(errors.InternalError, "macro", &callNode.Span, "macro %q failed: %v", fn.Name, err)
	}
	retNode, ok := result.(*ast.Node)
	if !ok {
		return nil, errors.New(errors.DnodeIsNeitherTokenNorList, "macro", &callNode.Span,
			"macro %q did not return a node", fn.Name)
	}

	spliced := retNode.FromMacro(callNode.OriginSpan())
	if spliced.HeadIs("do") && len(spliced.Children) == 2 {
		spliced = spliced.Children[1]
	}
	return spliced, nil
}

// macroContext stands in for the pool-allocated MContext spec.md
// §4.7 "Call" passes as a macro's first argument; this in-process
// engine has no separate native allocator whose pool needs freeing
// afterward (Go's GC reclaims the value), so it carries no fields.
type macroContext struct{}
