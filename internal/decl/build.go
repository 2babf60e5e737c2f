package decl

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/lower"
)

// Result carries whichever one of the five declaration kinds Build
// produced, plus the global-initializer symbol (only set for var).
type Result struct {
	Function *ctx.Function
	Variable *ctx.Variable
	Struct   *ctx.Struct
	Enum     *ctx.Enum

	InitSymbol string
}

// Build dispatches `(def NAME FORM)`'s second-level form (spec.md §4.5
// "def dispatches on its second argument's head to fn/var/struct/macro/enum")
// to the matching builder. internal/dispatch calls this once it has
// already verified the outer shape of a `def`.
func Build(c *ctx.Context, ns *ctx.Namespace, b emit.Builder, macros lower.MacroExpander, name string, form *ast.Node) (Result, *errors.Report) {
	if !form.IsList || form.Head() == nil || form.Head().AtomKind != ast.Symbol {
		return Result{}, errors.New(errors.UnexpectedElement, "decl", &form.Span, "def's second argument must be a (fn|var|struct|macro|enum ...) form")
	}
	switch form.Head().Token {
	case "fn":
		fn, rep := BuildFn(c, ns, b, macros, name, form)
		return Result{Function: fn}, rep
	case "var":
		v, initSym, rep := BuildVar(c, ns, b, macros, name, form)
		return Result{Variable: v, InitSymbol: initSym}, rep
	case "struct":
		st, rep := BuildStruct(c, ns, name, form)
		return Result{Struct: st}, rep
	case "enum":
		en, rep := BuildEnum(c, ns, name, form)
		return Result{Enum: en}, rep
	case "macro":
		fn, rep := BuildMacro(c, ns, b, macros, name, form)
		return Result{Function: fn}, rep
	default:
		return Result{}, errors.New(errors.UnexpectedElement, "decl", &form.Head().Span, "unknown declaration form %q", form.Head().Token)
	}
}
