// Package driver implements the Compilation Driver (spec.md §4.9
// "C10"): it sequences one or more source files through C5's top-form
// dispatcher, managing the push/pop Unit stack that `include` and a
// repeated `once` tag operate on, and finishes by linking and emitting
// the accumulated IR.
//
// Grounded on the teacher's internal/pipeline.Pipeline (the same
// "construct stage state → drive to completion → finalize" shape,
// generalized here from a fixed four-stage pipeline to a stack of
// units) and internal/link.Linker for the final link/emit tail.
package driver

import (
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/emit/interp"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/macro"
	"github.com/dalec/dalec/internal/sexp"
	"github.com/dalec/dalec/internal/types"
)

// unit is one open file's worth of compilation state (spec.md §3
// "Unit...owns: its Context, its IR module, its linker handle, its
// parser handle, its current once-tag, and its JIT engine"). The
// "linker handle" is represented here by the plain fact that Finish
// produces an emit.Module the caller later Links into its parent —
// internal/emit has no separate linker type of its own.
type unit struct {
	filename string
	ctx      *ctx.Context
	builder  emit.Builder
	jit      emit.JIT
	macros   *macro.Engine
	reader   *sexp.Reader
	onceTag  string

	// moduleName/cto are only ever set on the outermost unit, by a
	// top-level `module` form; included files never declare a module
	// name of their own (spec.md §4.9 step 3 runs per Unit, but
	// `module` is only meaningful for the file the driver was asked to
	// package).
	moduleName string
	cto        bool
}

// newUnit constructs a fresh Unit over src, sharing reg (the
// process-wide Type registry, spec.md §5) and rep (the single
// ErrorReporter errors accumulate into across every Unit of one
// driver run) with every other Unit in the stack.
func newUnit(filename string, src []byte, reg *types.Registry, rep *errors.Reporter) *unit {
	c := ctx.New()
	c.Types = reg
	c.Errors = rep

	b := interp.NewBuilder(filename)
	j := interp.NewInterp()
	macro.RegisterIntrospection(j)

	return &unit{
		filename: filename,
		ctx:      c,
		builder:  b,
		jit:      j,
		macros:   macro.New(c, b, j),
		reader:   sexp.NewReader(src, filename),
	}
}
