// Package emit defines the narrow seam between the semantic core
// (C1-C9) and a code generation backend. Per spec.md §1 the real
// LLVM-like emitter and JIT are an external collaborator kept out of
// scope; this package exists only so internal/lower, internal/macro
// and internal/driver have something concrete to compile against.
// internal/emit/interp supplies the one in-process implementation,
// grounded on the teacher's tree-walking internal/eval evaluator.
package emit

import (
	"io"

	"github.com/dalec/dalec/internal/types"
)

// Linkage mirrors ctx.Linkage at the IR boundary; kept as a distinct
// type so a future real backend implementation of Builder does not
// have to import internal/ctx.
type Linkage int

const (
	Internal Linkage = iota
	External
	ExternC
	Weak
)

// Op enumerates the binary/unary operations C7 may need to lower an
// arithmetic or comparison expression to.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	SDiv
	UDiv
	SRem
	URem
	FAdd
	FSub
	FMul
	FDiv
	And
	Or
	Xor
	Shl
	LShr
	AShr
	ICmpEQ
	ICmpNE
	ICmpSLT
	ICmpSLE
	ICmpSGT
	ICmpSGE
	ICmpULT
	ICmpULE
	ICmpUGT
	ICmpUGE
	FCmpEQ
	FCmpNE
	FCmpLT
	FCmpLE
	FCmpGT
	FCmpGE
)

// Value is an opaque handle to an emitted IR value (a constant, a
// parameter, or the result of another instruction). Backends give it
// whatever concrete representation they need; C7/C8 only ever pass
// Values back into a Block, never inspect them.
type Value interface {
	// Type returns the value's static Dale type, set at construction.
	Type() *types.Type
}

// Builder is the entry point a driver.Unit obtains from a chosen
// backend to begin emitting one compilation unit's worth of IR.
type Builder interface {
	// Func declares (and begins defining) a function. The returned
	// Func's entry Block is ready to receive instructions.
	Func(name string, sig *types.Type, linkage Linkage) Func
	// Global declares a module-level variable.
	Global(name string, t *types.Type, linkage Linkage) Global
	// Finish returns a Module built from everything declared so far.
	// It may be called repeatedly: internal/driver calls it after each
	// top-form and keeps declaring functions and globals afterwards, and
	// each call snapshots the builder's state at that moment.
	Finish() Module
	// RemoveFunc drops a previously declared function from the
	// builder, so Modules returned by later Finish calls no longer
	// contain it. internal/macro uses this for the temporary
	// argument-probing functions spec.md §4.7 step 1/4 creates and then
	// rolls back; internal/driver's eraseMacroFuncs uses it to drop
	// macro functions when Options.RemoveMacros is set.
	RemoveFunc(name string)
}

// Func is a single function under construction.
type Func interface {
	// Name returns the function's emitted symbol name.
	Name() string
	// Param returns the Value representing the i'th parameter.
	Param(i int) Value
	// Entry returns the function's entry block.
	Entry() Block
	// Pointer returns a Value of function-pointer type referring to
	// this function, suitable as Block.Call's callee argument
	// (including for recursive and forward calls, since Func is
	// returned before its body is fully emitted).
	Pointer() Value
}

// Global is a single module-level variable under construction.
type Global interface {
	Name() string
	// Pointer returns a Value of pointer-to-T type referring to the
	// global's storage, suitable for Block.Load/Store.
	Pointer() Value
}

// Block is one straight-line instruction sequence. Control flow is
// expressed by constructing new Blocks and terminating a predecessor
// with Br or Jmp; a Block accepts no further instructions once
// terminated.
type Block interface {
	ConstInt(t *types.Type, v int64) Value
	ConstFloat(t *types.Type, v float64) Value
	ConstBool(v bool) Value
	ConstString(v string) Value

	// Call invokes callee (itself a Value of function-pointer type,
	// typically obtained by resolving a Func's symbol) with args.
	Call(callee Value, args []Value) Value

	Alloca(t *types.Type) Value
	Load(ptr Value) Value
	Store(ptr, val Value)
	// GEP indexes into an aggregate (struct field or array element).
	GEP(base Value, index int) Value

	BinOp(op Op, a, b Value) Value
	Cast(v Value, to *types.Type) Value

	// NewBlock creates a sibling block in the same function, not yet
	// wired into control flow.
	NewBlock(name string) Block
	// Br terminates the block with a conditional branch.
	Br(cond Value, then, els Block)
	// Jmp terminates the block with an unconditional branch.
	Jmp(target Block)
	// Ret terminates the block by returning v (nil for a void return).
	Ret(v Value)
}

// Module is a completed, linkable unit of emitted IR.
type Module interface {
	Name() string
	// FuncNames lists every function symbol defined in this module,
	// used by cmd/dalec's --debug output.
	FuncNames() []string
	// Link merges other's definitions into the receiver, reporting an
	// error on a defined-defined symbol collision (spec.md §4.8 import
	// resolution assumes collisions were already caught by Context
	// merge, so this is a last-resort consistency check).
	Link(other Module) error
	// WriteBitcode serializes the module's IR for later JIT loading or
	// ahead-of-time packaging; the wire format is backend-specific and
	// is never what internal/dtm persists (that is the Context/DTM
	// binary format of §4.8, a separate concern).
	WriteBitcode(w io.Writer) error
}

// JIT loads one or more Modules and resolves callable function
// pointers from them, the seam internal/macro's temp-function probing
// and internal/driver's final execution both compile against.
type JIT interface {
	// Load makes m's functions resolvable. Later Loads may reference
	// symbols from earlier ones (spec.md §4.8 "reget-pointers").
	Load(m Module) error
	// Resolve returns a callable for a defined function symbol, for
	// out-of-band JIT execution (a macro's probe call, a global
	// initializer, a REPL line).
	Resolve(symbol string) (Callable, bool)
	// ResolveValue returns a Value referencing a defined function's (or
	// global's) address, for wiring back into a different Unit's IR —
	// internal/driver's reget-pointers pass after a cross-Unit merge
	// (spec.md §4.8 "Reget-pointers") uses this, not Resolve, since the
	// result becomes a Block.Call callee rather than something invoked
	// directly from Go.
	ResolveValue(symbol string) (Value, bool)
	// Close releases any resources held by the JIT (e.g. an
	// interpreter's module set, or a real backend's execution engine).
	Close() error
}

// Callable is a resolved, invocable function. Arguments and the result
// are passed as Go values matching the in-process Value representation
// of the JIT that produced the Callable — interp passes plain Go values
// (for example int64, bool or *ast.Node), a future real backend would
// use whatever its ABI calling convention produces.
type Callable func(args []any) (any, error)
