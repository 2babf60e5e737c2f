package dtm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/types"
)

func TestRoundTripPreservesNamespaceTree(t *testing.T) {
	c := ctx.New()
	i32 := c.Types.Basic(types.Int32)
	ptrToI32 := c.Types.Pointer(i32)

	fn := &ctx.Function{
		Name:    "add",
		Return:  i32,
		Params:  []*ctx.Param{{Name: "a", Type: i32}, {Name: "b", Type: i32}},
		Linkage: ctx.LinkageExtern,
	}
	c.InsertFunction(c.Root, "add", fn)

	c.Root.SetVariable("counter", &ctx.Variable{Name: "counter", Type: ptrToI32, Linkage: ctx.LinkageIntern})

	st := &ctx.Struct{
		Name:          "Point",
		QualifiedName: "Point",
		Fields: []ctx.StructField{
			{Name: "x", Type: i32},
			{Name: "y", Type: i32},
		},
		Linkage: ctx.LinkageExtern,
	}
	c.Root.SetStruct("Point", st)

	proj := &ctx.Struct{Name: "Color", QualifiedName: "Color", Fields: []ctx.StructField{{Name: "value", Type: i32}}}
	en := &ctx.Enum{
		Name:          "Color",
		QualifiedName: "Color",
		Underlying:    i32,
		Members:       []ctx.EnumMember{{Name: "Red", Value: 0}, {Name: "Green", Value: 1}},
		Linkage:       ctx.LinkageExtern,
		Projected:     proj,
	}
	c.Root.SetEnum("Color", en)

	child := c.Root.Child("geometry")
	childFn := &ctx.Function{Name: "origin", Return: namedStructType(c, "Point"), Linkage: ctx.LinkageExtern}
	c.InsertFunction(child, "origin", childFn)

	d := &DTM{
		Context:         c,
		OnceTags:        []string{"geometry.dt"},
		RequiredModules: []string{"drt"},
		CTO:             true,
		Typemap:         map[string]string{"int": "int32"},
	}

	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	got, err := Read(&buf, types.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}

	if len(got.Context.Root.Functions("add")) != 1 {
		t.Fatalf("expected add's overload to round-trip")
	}
	if v, ok := got.Context.Root.Variable("counter"); !ok || v.Type.Kind() != types.KindPointer {
		t.Fatalf("expected counter to round-trip as a pointer variable, got %+v", v)
	}
	if s, ok := got.Context.Root.Struct("Point"); !ok || len(s.Fields) != 2 {
		t.Fatalf("expected Point to round-trip with two fields")
	}
	if e, ok := got.Context.Root.Enum("Color"); !ok || len(e.Members) != 2 || e.Projected == nil {
		t.Fatalf("expected Color to round-trip with its projected struct")
	}
	gotChild, ok := got.Context.Root.LookupChild("geometry")
	if !ok || len(gotChild.Functions("origin")) != 1 {
		t.Fatalf("expected the geometry child namespace and its function to round-trip")
	}

	if len(got.OnceTags) != 1 || got.OnceTags[0] != "geometry.dt" {
		t.Fatalf("expected once-tags to round-trip, got %v", got.OnceTags)
	}
	if len(got.RequiredModules) != 1 || got.RequiredModules[0] != "drt" {
		t.Fatalf("expected required-modules to round-trip, got %v", got.RequiredModules)
	}
	if !got.CTO {
		t.Fatal("expected the cto flag to round-trip true")
	}
	if got.Typemap["int"] != "int32" {
		t.Fatalf("expected typemap to round-trip, got %v", got.Typemap)
	}
}

func namedStructType(c *ctx.Context, qualifiedName string) *types.Type {
	return c.Types.Named(qualifiedName, nil, true)
}

func TestValidateModuleNameRejectsLibPrefixAndBadChars(t *testing.T) {
	if rep := ValidateModuleName("mymodule"); rep != nil {
		t.Fatalf("unexpected rejection of a valid name: %v", rep)
	}
	if rep := ValidateModuleName("libfoo"); rep == nil {
		t.Fatal("expected rejection of a name carrying the lib prefix")
	}
	if rep := ValidateModuleName("foo bar"); rep == nil {
		t.Fatal("expected rejection of a name containing a space")
	}
	if rep := ValidateModuleName(""); rep == nil {
		t.Fatal("expected rejection of an empty name")
	}
}

func TestResolveDTMPathSearchOrder(t *testing.T) {
	dir := t.TempDir()
	installed := t.TempDir()
	userPath := t.TempDir()

	installedFile := filepath.Join(installed, "libfoo.dtm")
	if err := os.WriteFile(installedFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	path, rep := ResolveDTMPath("foo", []string{userPath}, installed)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if path != installedFile {
		t.Fatalf("expected to fall through to the installed module path, got %q", path)
	}

	userFile := filepath.Join(userPath, "libfoo.dtm")
	if err := os.WriteFile(userFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, rep = ResolveDTMPath("foo", []string{userPath}, installed)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if path != userFile {
		t.Fatalf("expected the user module path to win over the installed path once present, got %q", path)
	}

	if _, rep := ResolveDTMPath("nonexistent", nil, ""); rep == nil {
		t.Fatal("expected an UnableToLoadModule error when no candidate exists")
	}
}

func TestFilterSymbolsDropsUnlistedAndReportsMissing(t *testing.T) {
	c := ctx.New()
	i32 := c.Types.Basic(types.Int32)
	c.InsertFunction(c.Root, "keep-me", &ctx.Function{Name: "keep-me", Return: i32})
	c.InsertFunction(c.Root, "drop-me", &ctx.Function{Name: "drop-me", Return: i32})

	if rep := FilterSymbols(c, []string{"keep-me", "does-not-exist"}); rep == nil {
		t.Fatal("expected an error naming the missing symbol")
	}
	if len(c.Root.Functions("drop-me")) != 0 {
		t.Fatal("expected drop-me to have been removed by the filter even though an error was also reported")
	}
	if len(c.Root.Functions("keep-me")) != 1 {
		t.Fatal("expected keep-me to survive the filter")
	}
}

func TestMergeImportErasesOnceTagUnion(t *testing.T) {
	dst := ctx.New()
	src := ctx.New()
	i32 := src.Types.Basic(types.Int32)
	src.InsertFunction(src.Root, "guarded", &ctx.Function{Name: "guarded", Return: i32, OnceTag: "a.dt"})
	src.InsertFunction(src.Root, "unguarded", &ctx.Function{Name: "unguarded", Return: i32})

	imported := &DTM{Context: src, OnceTags: []string{"a.dt"}}
	if rep := MergeImport(dst, imported, nil); rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if len(dst.Root.Functions("guarded")) != 0 {
		t.Fatal("expected the once-guarded function to be erased before merging")
	}
	if len(dst.Root.Functions("unguarded")) != 1 {
		t.Fatal("expected the unguarded function to survive the merge")
	}
}
