package macro

import (
	"testing"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/decl"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/emit/interp"
	"github.com/dalec/dalec/internal/lower"
	"github.com/dalec/dalec/internal/sexp"
	"github.com/dalec/dalec/internal/types"
)

func parseNode(t *testing.T, src string) *ast.Node {
	t.Helper()
	r := sexp.NewReader([]byte(src), "t.dt")
	n, rep := r.ReadTopForm()
	if rep != nil {
		t.Fatalf("unexpected parse error: %v", rep)
	}
	return n
}

// TestEngineExpandsIdentityMacro builds a real `(macro extern-c (form) form)`
// through internal/decl + internal/lower, JIT-loads it, then checks a host
// function calling it lowers as though the call site had been replaced by
// the macro's single argument.
func TestEngineExpandsIdentityMacro(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")

	macroNode := parseNode(t, "(macro extern-c (form) form)")
	if _, rep := decl.BuildMacro(c, c.Root, b, nil, "identity-macro", macroNode); rep != nil {
		t.Fatalf("unexpected error building macro: %v", rep)
	}

	rt := interp.NewInterp()
	if err := rt.Load(b.Finish()); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	engine := New(c, b, rt)

	hostFn := &ctx.Function{Name: "host", Return: c.Types.Basic(types.Int)}
	if !c.InsertFunction(c.Root, "host", hostFn) {
		t.Fatal("unexpected redeclaration rejecting host")
	}
	irHost := b.Func("host_impl", c.Types.Function(hostFn.Return, nil), emit.Internal)
	hostFn.Handle = ctx.IRHandle{Symbol: irHost.Name(), Value: irHost.Pointer()}

	scope := lower.NewScope(c, c.Root, hostFn, irHost, engine)
	callNode := parseNode(t, "(identity-macro 42)")
	res, rep := scope.Lower(irHost.Entry(), callNode)
	if rep != nil {
		t.Fatalf("unexpected error expanding call: %v", rep)
	}
	if res.Type == nil || res.Type.Base() != types.Int {
		t.Fatalf("expected the spliced literal to lower as int, got %v", res.Type)
	}
}

// TestEngineUnwrapsDoSplice exercises invoke's splice-unwrap rule in
// isolation (spec.md §4.7 "Splicing": "If it is (do X) with exactly two
// elements, it unwraps to X") and confirms macro-origin positions are
// stamped onto the unwrapped replacement, using a native (Go-implemented)
// macro body so the test doesn't depend on a preamble of introspection
// function declarations not yet built by internal/driver.
func TestEngineUnwrapsDoSplice(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	rt := interp.NewInterp()

	inner := ast.NewAtom(ast.Int, "7", ast.Span{})
	wrapped := ast.NewList([]*ast.Node{ast.NewAtom(ast.Symbol, "do", ast.Span{}), inner}, ast.Span{})
	rt.RegisterNative("wrap_in_do", func(args []any) (any, error) { return wrapped, nil })

	fn := &ctx.Function{
		Name:    "wrap-in-do",
		IsMacro: true,
		Params:  []*ctx.Param{{Name: "$macro-context$"}, {Name: "x"}},
		Handle:  ctx.IRHandle{Symbol: "wrap_in_do"},
	}
	if !c.InsertFunction(c.Root, "wrap-in-do", fn) {
		t.Fatal("unexpected redeclaration")
	}

	engine := New(c, b, rt)
	callNode := parseNode(t, "(wrap-in-do 1)")

	hostFn := &ctx.Function{Name: "host", Return: c.Types.Basic(types.Int)}
	irHost := b.Func("host_impl", c.Types.Function(hostFn.Return, nil), emit.Internal)
	scope := lower.NewScope(c, c.Root, hostFn, irHost, engine)

	replacement, rep := engine.ExpandCall(scope, callNode, "wrap-in-do")
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if replacement.IsList || replacement.Token != "7" {
		t.Fatalf("expected the (do 7) wrapper to unwrap to the bare literal 7, got %v", replacement)
	}
	if replacement.MacroSpan != callNode.OriginSpan() {
		t.Fatalf("expected macro-origin span to propagate onto the splice")
	}
}

// TestProbeAndResolveRollsBackTempFunction confirms the temporary
// argument-probing function never survives into the builder's emitted
// module (spec.md §4.7 step 4 "Rollback").
func TestProbeAndResolveRollsBackTempFunction(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	rt := interp.NewInterp()

	fn := &ctx.Function{
		Name:    "noop-macro",
		IsMacro: true,
		Params:  []*ctx.Param{{Name: "$macro-context$"}, {Name: "x"}},
		Handle:  ctx.IRHandle{Symbol: "noop_macro"},
	}
	if !c.InsertFunction(c.Root, "noop-macro", fn) {
		t.Fatal("unexpected redeclaration")
	}
	rt.RegisterNative("noop_macro", func(args []any) (any, error) {
		return args[1], nil
	})

	engine := New(c, b, rt)
	hostFn := &ctx.Function{Name: "host", Return: c.Types.Basic(types.Int)}
	irHost := b.Func("host_impl", c.Types.Function(hostFn.Return, nil), emit.Internal)
	scope := lower.NewScope(c, c.Root, hostFn, irHost, engine)

	callNode := parseNode(t, "(noop-macro 1)")
	if _, rep := engine.ExpandCall(scope, callNode, "noop-macro"); rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	mod := b.Finish()
	for _, name := range mod.FuncNames() {
		if name == "_dale_TempMacroExecution1" {
			t.Fatalf("expected the temporary probing function to be rolled back, found %q in the module", name)
		}
	}
}
