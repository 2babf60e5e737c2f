package decl

import (
	"testing"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit/interp"
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

func TestParseParamsVoidMeansNone(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(void)")
	params, rep := ParseParams(c, c.Root, n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if params != nil {
		t.Fatalf("expected no parameters, got %v", params)
	}
}

func TestParseParamsVoidMustBeOnly(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "((a int) (void))")
	if _, rep := ParseParams(c, c.Root, n); rep == nil {
		t.Fatal("expected VoidMustBeOnlyParameter error")
	}
}

func TestParseParamsNamedAndTyped(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "((a int) (b bool))")
	params, rep := ParseParams(c, c.Root, n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if len(params) != 2 || params[0].Name != "a" || params[1].Name != "b" {
		t.Fatalf("unexpected params: %v", params)
	}
	if params[0].Type.Base() != types.Int || params[1].Type.Base() != types.Bool {
		t.Fatalf("unexpected param types: %v", params)
	}
}

func TestParseParamsVarargsMustBeLast(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(... (a int))")
	if _, rep := ParseParams(c, c.Root, n); rep == nil {
		t.Fatal("expected VarargsMustBeLast error")
	}
}

func TestBuildFnRegistersAndEmits(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	n := parseNode(t, "(fn extern-c int ((a int) (b int)) (setf a b) a)")
	fn, rep := BuildFn(c, c.Root, b, nil, "identity", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if fn.Return.Base() != types.Int || len(fn.Params) != 2 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if fn.Handle.Value == nil {
		t.Fatal("expected an emitted IR handle")
	}
	got := c.LookupFunctions("identity")
	if len(got) != 1 || got[0] != fn {
		t.Fatalf("expected identity to be registered in scope, got %v", got)
	}
}

func TestBuildFnExternCKeepsBareName(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	child := c.Root.Child("ns")
	n := parseNode(t, "(fn extern-c void (void))")
	fn, rep := BuildFn(c, child, b, nil, "do_thing", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if fn.Handle.Symbol != "do_thing" {
		t.Fatalf("expected extern-c linkage to keep the bare symbol, got %q", fn.Handle.Symbol)
	}
}

func TestBuildFnNamespaceQualifiesInternSymbol(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	child := c.Root.Child("ns")
	n := parseNode(t, "(fn intern void (void))")
	fn, rep := BuildFn(c, child, b, nil, "helper", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if fn.Handle.Symbol == "helper" {
		t.Fatalf("expected a namespace-qualified symbol, got bare %q", fn.Handle.Symbol)
	}
}

func TestBuildFnDuplicateSignatureIsError(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	n := parseNode(t, "(fn extern-c int ((a int)) a)")
	if _, rep := BuildFn(c, c.Root, b, nil, "f", n); rep != nil {
		t.Fatalf("unexpected error on first declaration: %v", rep)
	}
	cp := c.Errors.Mark()
	n2 := parseNode(t, "(fn extern-c int ((a int)) a)")
	fn2, rep := BuildFn(c, c.Root, b, nil, "f", n2)
	if rep != nil {
		t.Fatalf("redeclaration should surface through the reporter, not a returned error: %v", rep)
	}
	if fn2 != nil {
		t.Fatal("expected nil result for a rejected duplicate overload")
	}
	if since := c.Errors.Since(cp); len(since) != 1 || since[0].Code != "DEC001" {
		t.Fatalf("expected one RedeclarationOfFunction report, got %v", since)
	}
}

func TestBuildVarWithInitializerEmitsInitFunc(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	n := parseNode(t, "(var extern-c int 7)")
	v, initSym, rep := BuildVar(c, c.Root, b, nil, "counter", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if v.Type.Base() != types.Int {
		t.Fatalf("expected int global, got %v", v.Type)
	}
	if initSym == "" {
		t.Fatal("expected a non-empty init symbol when an initializer is present")
	}
}

func TestBuildVarWithoutInitializerHasNoInitSymbol(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	n := parseNode(t, "(var extern-c int)")
	_, initSym, rep := BuildVar(c, c.Root, b, nil, "counter", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if initSym != "" {
		t.Fatalf("expected no init symbol, got %q", initSym)
	}
}

func TestBuildStructOrdersFieldsByDeclaration(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(struct extern-c ((x int) (y int)))")
	st, rep := BuildStruct(c, c.Root, "point", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if len(st.Fields) != 2 || st.Fields[0].Name != "x" || st.Fields[1].Name != "y" {
		t.Fatalf("unexpected field order: %v", st.Fields)
	}
	if got, ok := c.LookupStruct("point"); !ok || got != st {
		t.Fatal("expected point to be registered in scope")
	}
}

func TestBuildEnumAutoNumbersMembers(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(enum extern-c int (red green blue))")
	en, rep := BuildEnum(c, c.Root, "color", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if len(en.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(en.Members))
	}
	for i, want := range []int64{0, 1, 2} {
		if en.Members[i].Value != want {
			t.Fatalf("member %d: expected value %d, got %d", i, want, en.Members[i].Value)
		}
	}
	if en.Projected == nil || len(en.Projected.Fields) != 1 {
		t.Fatal("expected a projected single-field struct")
	}
}

func TestBuildEnumExplicitValuesContinueNumbering(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(enum extern-c int ((a 5) b))")
	en, rep := BuildEnum(c, c.Root, "e", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if en.Members[0].Value != 5 || en.Members[1].Value != 6 {
		t.Fatalf("unexpected member values: %v", en.Members)
	}
}

func TestBuildEnumRejectsNonIntegerUnderlying(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(enum extern-c float (a b))")
	if _, rep := BuildEnum(c, c.Root, "e", n); rep == nil {
		t.Fatal("expected EnumTypeMustBeInteger error")
	}
}

func TestBuildMacroRejectsCoreFormName(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	n := parseNode(t, "(macro extern-c (form) form)")
	if _, rep := BuildMacro(c, c.Root, b, nil, "if", n); rep == nil {
		t.Fatal("expected NoCoreFormNameInMacro error")
	}
}

func TestBuildMacroPrependsImplicitContextParam(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	n := parseNode(t, "(macro extern-c (form))")
	fn, rep := BuildMacro(c, c.Root, b, nil, "my-macro", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if !fn.IsMacro {
		t.Fatal("expected IsMacro to be set")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 raw params (implicit context + form), got %d", len(fn.Params))
	}
	if fn.UserArity() != 1 {
		t.Fatalf("expected user-visible arity 1, got %d", fn.UserArity())
	}
}

func TestBuildFnExecutesThroughTheInterpreter(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	n := parseNode(t, "(fn extern-c int ((a int) (b int)) (setf a b) a)")
	fn, rep := BuildFn(c, c.Root, b, nil, "overwrite_and_return", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	mod := b.Finish()
	rt := interp.NewInterp()
	if err := rt.Load(mod); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	callable, ok := rt.Resolve(fn.Handle.Symbol)
	if !ok {
		t.Fatalf("expected %q to resolve", fn.Handle.Symbol)
	}
	got, err := callable([]any{int64(3), int64(4)})
	if err != nil {
		t.Fatalf("unexpected call error: %v", err)
	}
	if got != int64(4) {
		t.Fatalf("expected 4, got %v", got)
	}
}

func TestBuildDispatchesOnFormHead(t *testing.T) {
	c := ctx.New()
	b := interp.NewBuilder("test")
	n := parseNode(t, "(struct extern-c ((x int)))")
	res, rep := Build(c, c.Root, b, nil, "point", n)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if res.Struct == nil || res.Function != nil || res.Variable != nil || res.Enum != nil {
		t.Fatalf("expected only Struct populated, got %+v", res)
	}
}
