package typeform

import (
	"testing"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/sexp"
	"github.com/dalec/dalec/internal/types"
)

func parseNode(t *testing.T, src string) *ast.Node {
	t.Helper()
	r := sexp.NewReader([]byte(src), "t.dt")
	if !r.AtEOF() {
		n, rep := r.ReadTopForm()
		if rep != nil {
			t.Fatalf("unexpected parse error: %v", rep)
		}
		return n
	}
	t.Fatalf("empty source")
	return nil
}

// parseAtom builds a single atom Node directly, since bare atoms are
// rejected at sexp's top level but are valid inside a type expression.
func parseAtom(token string, kind ast.AtomKind) *ast.Node {
	return ast.NewAtom(kind, token, ast.Span{})
}

func TestParseBaseType(t *testing.T) {
	c := ctx.New()
	ty, rep := Parse(c, c.Root, parseAtom("int", ast.Symbol), Options{})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if ty.Kind() != types.KindBasic || ty.Base() != types.Int {
		t.Fatalf("expected basic int, got %v", ty)
	}
}

func TestParsePointer(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(p int)")
	ty, rep := Parse(c, c.Root, n, Options{})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if ty.Kind() != types.KindPointer || ty.PointsTo().Base() != types.Int {
		t.Fatalf("expected pointer to int, got %v", ty)
	}
}

func TestParseArrayOfLiteralSize(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(array-of 4 char)")
	ty, rep := Parse(c, c.Root, n, Options{})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if ty.Kind() != types.KindArray || ty.ArraySize() != 4 || ty.Elem().Base() != types.Char {
		t.Fatalf("expected array-of 4 char, got %v", ty)
	}
}

func TestParseArraySizeFromConstExpr(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(array-of SIZE char)")
	opt := Options{ConstExprSize: func(n *ast.Node) (int64, bool) {
		if !n.IsList && n.Token == "SIZE" {
			return 16, true
		}
		return 0, false
	}}
	ty, rep := Parse(c, c.Root, n, opt)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if ty.ArraySize() != 16 {
		t.Fatalf("expected size 16, got %d", ty.ArraySize())
	}
}

func TestParseArraySizeUnresolvableIsError(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(array-of SIZE char)")
	_, rep := Parse(c, c.Root, n, Options{})
	if rep == nil {
		t.Fatal("expected an error for an unresolvable array size")
	}
}

func TestParseFunctionType(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(fn int (int bool))")
	ty, rep := Parse(c, c.Root, n, Options{})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if ty.Kind() != types.KindFunction || ty.Return().Base() != types.Int || len(ty.Params()) != 2 {
		t.Fatalf("expected fn(int,bool)->int, got %v", ty)
	}
}

func TestParseFunctionVarargsMustBeLast(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(fn int (... int))")
	_, rep := Parse(c, c.Root, n, Options{})
	if rep == nil {
		t.Fatal("expected an error for varargs not in last position")
	}
}

func TestParseFunctionVarargsLastIsOK(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(fn int (int ...))")
	ty, rep := Parse(c, c.Root, n, Options{})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if !ty.IsVariadic() {
		t.Fatal("expected function type to be variadic")
	}
}

func TestParseConst(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(const int)")
	ty, rep := Parse(c, c.Root, n, Options{})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if !ty.IsConst() {
		t.Fatal("expected const-qualified type")
	}
}

func TestParseBitfieldRequiresOption(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(bitfield 3 uint8)")
	if _, rep := Parse(c, c.Root, n, Options{}); rep == nil {
		t.Fatal("expected an error without AllowBitfield")
	}
	ty, rep := Parse(c, c.Root, n, Options{AllowBitfield: true})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if ty.BitfieldWidth() != 3 {
		t.Fatalf("expected bitfield width 3, got %d", ty.BitfieldWidth())
	}
}

func TestParseAnonStructRequiresOption(t *testing.T) {
	c := ctx.New()
	n := parseNode(t, "(struct ((a int)))")
	if _, rep := Parse(c, c.Root, n, Options{}); rep == nil {
		t.Fatal("expected an error without AllowAnonStructs")
	}
	ty, rep := Parse(c, c.Root, n, Options{AllowAnonStructs: true})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if ty.Kind() != types.KindNamed || !ty.IsStruct() {
		t.Fatalf("expected a named anonymous struct, got %v", ty)
	}
}

func TestParseNamedStructInScope(t *testing.T) {
	c := ctx.New()
	c.Root.SetStruct("point", &ctx.Struct{Name: "point", QualifiedName: "point"})
	ty, rep := Parse(c, c.Root, parseAtom("point", ast.Symbol), Options{})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if ty.Kind() != types.KindNamed || ty.QualifiedName() != "point" {
		t.Fatalf("expected named type point, got %v", ty)
	}
}

func TestParseNamedNotInScopeIsError(t *testing.T) {
	c := ctx.New()
	_, rep := Parse(c, c.Root, parseAtom("nope", ast.Symbol), Options{})
	if rep == nil {
		t.Fatal("expected a not-in-scope error")
	}
}

func TestParseRejectsBareLiteral(t *testing.T) {
	c := ctx.New()
	_, rep := Parse(c, c.Root, parseAtom("1", ast.Int), Options{})
	if rep == nil {
		t.Fatal("expected an error for a literal used as a type")
	}
}
