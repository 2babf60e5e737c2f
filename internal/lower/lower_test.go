package lower_test

import (
	"testing"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/decl"
	"github.com/dalec/dalec/internal/emit/interp"
	"github.com/dalec/dalec/internal/sexp"
)

// compileOneFunc builds a single `(fn LINKAGE RETURN (PARAMS) BODY…)`
// form under name "f" and loads the result, returning an Interp ready
// to Resolve it.
func compileOneFunc(t *testing.T, fnForm string) *interp.Interp {
	t.Helper()
	r := sexp.NewReader([]byte(fnForm), "t.dt")
	n, rep := r.ReadTopForm()
	if rep != nil {
		t.Fatalf("unexpected parse error: %v", rep)
	}

	c := ctx.New()
	b := interp.NewBuilder("t")
	if _, rep := decl.BuildFn(c, c.Root, b, nil, "f", n); rep != nil {
		t.Fatalf("unexpected build error: %v", rep)
	}

	rt := interp.NewInterp()
	if err := rt.Load(b.Finish()); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	return rt
}

// TestBuiltinIntArithmetic exercises `+`/`*` directly against
// Block.BinOp with no user-declared overload of either name in scope.
func TestBuiltinIntArithmetic(t *testing.T) {
	rt := compileOneFunc(t, `(fn extern-c int (void) (+ 2 (* 3 4)))`)
	fn, ok := rt.Resolve("f")
	if !ok {
		t.Fatal("expected f to resolve")
	}
	out, err := fn(nil)
	if err != nil {
		t.Fatalf("calling f: %v", err)
	}
	if out != int64(14) {
		t.Fatalf("expected f() == 14, got %v", out)
	}
}

// TestBuiltinComparisonReturnsBool exercises a comparison form used
// directly as an `if` condition, confirming it type-checks as bool.
func TestBuiltinComparisonReturnsBool(t *testing.T) {
	rt := compileOneFunc(t, `(fn extern-c int (void) (if (< 1 2) 1 0))`)
	fn, ok := rt.Resolve("f")
	if !ok {
		t.Fatal("expected f to resolve")
	}
	out, err := fn(nil)
	if err != nil {
		t.Fatalf("calling f: %v", err)
	}
	if out != int64(1) {
		t.Fatalf("expected f() == 1, got %v", out)
	}
}
