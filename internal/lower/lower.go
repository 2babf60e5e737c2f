// Package lower implements the procedure body lowerer (spec.md §4.6
// "Procedure Body Lowerer (C7)"): it walks a function body's Node
// tree and produces both a typed Result and emitted IR, consulting
// internal/ctx for scope/overload resolution and internal/typeform for
// type expressions. Grounded on the structure (if not the semantics)
// of the teacher's internal/eval/eval_core.go big-switch expression
// evaluator, adapted from interpreting a typed core AST to lowering an
// untyped S-expression tree against an emitter Builder.
package lower

import (
	"strconv"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/typeform"
	"github.com/dalec/dalec/internal/types"
)

// Result is the record every sub-expression lowering produces (spec.md
// §4.6 "ParseResult"): the block execution continues in (control flow
// forms such as `if` leave a different block than they entered), the
// result's Type and Value, and the three destructor/copy flags.
type Result struct {
	Block emit.Block
	Type  *types.Type
	Value emit.Value

	// Addr is the storage address behind Value when Value is an
	// addressable aggregate (array or struct literal) — set so callers
	// can GEP into it without re-allocating, e.g. the char-array-to-
	// pointer call-argument decay (spec.md §4.6). nil for values with
	// no backing slot (arithmetic results, loaded scalars, ...).
	Addr emit.Value

	// Terminated reports that Block already ends with a `return`'s Ret
	// (spec.md §4.6 "Scope close"): LowerBody stops walking the
	// remaining body forms, and the caller (internal/decl's BuildFn/
	// BuildMacro) must not append its own trailing Ret to Block.
	Terminated bool

	DoNotDestruct      bool
	DoNotCopyWithSetf   bool
	FreshlyCopied       bool
}

// MacroExpander is the seam lower.Scope calls into when a call's
// candidate set contains a macro (spec.md §4.7); kept as an interface
// here, implemented by internal/macro, so that package can depend on
// lower without lower depending back on macro.
type MacroExpander interface {
	// ExpandCall performs the full macro invocation machinery of §4.7
	// (temp-function argument probing, JIT materialization, FFI call,
	// splice) and returns the replacement Node to lower in the call's
	// place.
	ExpandCall(s *Scope, callNode *ast.Node, name string) (*ast.Node, *errors.Report)
}

// local is one function-local variable, tracked in declaration order
// so scope-close can destruct in reverse (spec.md §4.6 "Scope close").
type local struct {
	name string
	v    *ctx.Variable
}

// Scope is one function body's lowering state.
type Scope struct {
	C      *ctx.Context
	NS     *ctx.Namespace // the function-local namespace, already pushed onto C.used
	Fn     *ctx.Function
	IRFn   emit.Func
	Macros MacroExpander

	locals []local
}

// NewScope returns a Scope ready to lower fn's body. ns must already
// be pushed onto c's used-namespaces stack by the caller (internal/decl
// does this around the BuildFn/BuildMacro call).
func NewScope(c *ctx.Context, ns *ctx.Namespace, fn *ctx.Function, irFn emit.Func, macros MacroExpander) *Scope {
	return &Scope{C: c, NS: ns, Fn: fn, IRFn: irFn, Macros: macros}
}

// LocalsMark and LocalsRestore let internal/macro roll back any locals
// declared while tentatively lowering a macro candidate's arguments
// (spec.md §4.7 step 4 "Rollback"), mirroring the Context-level
// SavePoint/Mark/Restore the same rollback also uses.
func (s *Scope) LocalsMark() int { return len(s.locals) }

func (s *Scope) LocalsRestore(mark int) {
	if mark < len(s.locals) {
		s.locals = s.locals[:mark]
	}
}

// LowerBody lowers every top-level body expression in sequence,
// finishing with scope-close destruction of locals declared directly
// in this body (spec.md §4.6 "On exit from a lexical block, all
// locals are destructed in reverse declaration order"). A `return`
// form destructs locals and terminates its own block before LowerBody
// ever sees it again, so hitting one here just stops the walk early —
// there is nothing left to lower or destruct.
func (s *Scope) LowerBody(blk emit.Block, body []*ast.Node) (Result, emit.Block, *errors.Report) {
	var last Result
	last.Block = blk
	for _, n := range body {
		res, rep := s.Lower(last.Block, n)
		if rep != nil {
			return Result{}, last.Block, rep
		}
		last = res
		if last.Terminated {
			// A `return` already destructed the locals live at that
			// point and closed out its block; nothing after it in this
			// body is reachable.
			break
		}
	}
	if !last.Terminated {
		s.destructLocals(last.Block)
	}
	return last, last.Block, nil
}

func (s *Scope) destructLocals(blk emit.Block) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		lv := s.locals[i]
		if lv.v.Type == nil {
			continue
		}
		destroy := s.C.LookupFunctions("destroy")
		ptrT := s.C.Types.Pointer(lv.v.Type)
		for _, d := range destroy {
			if len(d.UserParams()) == 1 && types.Equal(d.UserParams()[0].Type, ptrT, true) {
				handle, ok := d.Handle.Value.(emit.Value)
				if !ok {
					continue
				}
				slot, ok := lv.v.Handle.Value.(emit.Value)
				if !ok {
					continue
				}
				blk.Call(handle, []emit.Value{slot})
				break
			}
		}
	}
}

// Lower dispatches a single Node to its expression form.
func (s *Scope) Lower(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	if n == nil {
		return Result{}, errors.New(errors.UnexpectedElement, "lower", nil, "missing expression")
	}
	if !n.IsList {
		return s.lowerAtom(blk, n)
	}
	head := n.Head()
	if head == nil {
		return Result{}, errors.New(errors.UnexpectedElement, "lower", &n.Span, "empty list in expression position")
	}
	if head.AtomKind == ast.Symbol {
		switch head.Token {
		case "if":
			return s.lowerIf(blk, n)
		case "setf":
			return s.lowerSetf(blk, n)
		case "var":
			return s.lowerLocalVar(blk, n)
		case "cast":
			return s.lowerCast(blk, n)
		case "array-of":
			return s.lowerArrayLiteral(blk, n)
		case "return":
			return s.lowerReturn(blk, n)
		}
		if st, ok := s.C.LookupStruct(head.Token); ok {
			return s.lowerStructLiteral(blk, n, st)
		}
		if en, ok := s.C.LookupEnum(head.Token); ok {
			return s.lowerEnumLiteral(blk, n, en)
		}
	}
	return s.lowerCall(blk, n)
}

func (s *Scope) lowerAtom(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	switch n.AtomKind {
	case ast.Int:
		v, err := strconv.ParseInt(n.Token, 0, 64)
		if err != nil {
			return Result{}, errors.New(errors.UnableToParseInteger, "lower", &n.Span, "invalid integer literal %q", n.Token)
		}
		t := s.C.Types.Basic(types.Int)
		return Result{Block: blk, Type: t, Value: blk.ConstInt(t, v), DoNotDestruct: true}, nil
	case ast.Float:
		v, err := strconv.ParseFloat(n.Token, 64)
		if err != nil {
			return Result{}, errors.New(errors.InvalidFloatingPointNumber, "lower", &n.Span, "invalid float literal %q", n.Token)
		}
		t := s.C.Types.Basic(types.Float)
		return Result{Block: blk, Type: t, Value: blk.ConstFloat(t, v), DoNotDestruct: true}, nil
	case ast.Str:
		return s.lowerStringLiteral(blk, n)
	case ast.Symbol:
		if n.Token == "true" || n.Token == "false" {
			t := s.C.Types.Basic(types.Bool)
			return Result{Block: blk, Type: t, Value: blk.ConstBool(n.Token == "true"), DoNotDestruct: true}, nil
		}
		return s.lowerVariableRef(blk, n)
	default:
		return Result{}, errors.New(errors.UnexpectedElement, "lower", &n.Span, "unsupported atom kind")
	}
}

func (s *Scope) lowerVariableRef(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	v, ok := s.C.LookupVariable(n.Token)
	if !ok {
		return Result{}, errors.New(errors.NotInScope, "lower", &n.Span, "variable %q is not in scope", n.Token)
	}
	slot, ok := v.Handle.Value.(emit.Value)
	if !ok {
		return Result{}, errors.New(errors.InternalError, "lower", &n.Span, "variable %q has no storage", n.Token)
	}
	return Result{Block: blk, Type: v.Type, Value: blk.Load(slot)}, nil
}

// typeformOptions is shared by every lowering path that needs to parse
// a type expression from within a function body (locals and casts),
// matching spec.md §4.3 "anonymous struct types are permitted only in
// contexts...that pass allow_anon_structs" — a local's declared type is
// one such context.
func typeformOptions() typeform.Options { return typeform.Options{AllowAnonStructs: true} }

// ParseType exposes typeform.Parse under the Scope's Context/Namespace,
// used by internal/decl when it needs a function-body-equivalent type
// parse (e.g. a local's declared type) without duplicating the option
// set decided above.
func (s *Scope) ParseType(n *ast.Node) (*types.Type, *errors.Report) {
	return typeform.Parse(s.C, s.NS, n, typeformOptions())
}
