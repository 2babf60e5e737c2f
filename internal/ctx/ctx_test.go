package ctx

import (
	"testing"

	"github.com/dalec/dalec/internal/types"
)

func newTestFn(c *Context, name string, ret *types.Type, paramTypes ...*types.Type) *Function {
	params := make([]*Param, len(paramTypes))
	for i, pt := range paramTypes {
		params[i] = &Param{Name: "_", Type: pt}
	}
	return &Function{Name: name, Return: ret, Params: params, Linkage: LinkageExtern}
}

func TestOverloadResolutionMatchesArityWithCoercion(t *testing.T) {
	c := New()
	i32 := c.Types.Basic(types.Int32)
	i8 := c.Types.Basic(types.Int8)

	f1 := newTestFn(c, "f", i32, i32)
	f2 := newTestFn(c, "f", i32, i32, i32)
	c.InsertFunction(c.Root, "f", f1)
	c.InsertFunction(c.Root, "f", f2)

	res, rep := ResolveOverload(c, "f", []*types.Type{i8, i32})
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if res.Function != f2 {
		t.Fatalf("expected two-arg overload to be chosen")
	}
}

func TestOverloadResolutionDeterministicUnderPermutation(t *testing.T) {
	c := New()
	i32 := c.Types.Basic(types.Int32)
	f1 := newTestFn(c, "g", i32, i32)
	f2 := newTestFn(c, "g", i32, i32, i32)
	// Insert in reverse order; which overload resolves must not depend
	// on insertion order.
	c.InsertFunction(c.Root, "g", f2)
	c.InsertFunction(c.Root, "g", f1)

	res, _ := ResolveOverload(c, "g", []*types.Type{i32})
	if res.Function != f1 {
		t.Fatalf("expected single-arg overload to resolve for one argument")
	}
}

func TestDuplicateOverloadIsError(t *testing.T) {
	c := New()
	i32 := c.Types.Basic(types.Int32)
	f1 := newTestFn(c, "h", i32, i32)
	f2 := newTestFn(c, "h", i32, i32)

	if !c.InsertFunction(c.Root, "h", f1) {
		t.Fatal("first insertion should succeed")
	}
	if c.InsertFunction(c.Root, "h", f2) {
		t.Fatal("duplicate signature insertion should fail")
	}
	if !c.Errors.HasErrors() {
		t.Fatal("expected a redeclaration error to be recorded")
	}
}

func TestOnceTagErasure(t *testing.T) {
	c := New()
	i32 := c.Types.Basic(types.Int32)
	st := &Struct{Name: "Point", QualifiedName: "Point", OnceTag: "a.dt"}
	c.Root.SetStruct("Point", st)
	c.Root.SetVariable("x", &Variable{Name: "x", Type: i32, OnceTag: "a.dt"})

	EraseOnceTags(c, []string{"a.dt"})

	if _, ok := c.Root.Struct("Point"); ok {
		t.Fatal("expected struct with matching once-tag to be erased")
	}
	if _, ok := c.Root.Variable("x"); ok {
		t.Fatal("expected variable with matching once-tag to be erased")
	}
}

func TestSavePointRollback(t *testing.T) {
	c := New()
	i32 := c.Types.Basic(types.Int32)
	sp := c.Mark()

	c.Root.SetVariable("tmp", &Variable{Name: "tmp", Type: i32})
	c.InsertFunction(c.Root, "tmpfn", newTestFn(c, "tmpfn", i32))

	c.Restore(sp)

	if _, ok := c.Root.Variable("tmp"); ok {
		t.Fatal("expected variable added after mark to be rolled back")
	}
	if fns := c.Root.Functions("tmpfn"); len(fns) != 0 {
		t.Fatal("expected function added after mark to be rolled back")
	}
}

func TestExternCRelaxation(t *testing.T) {
	c := New()
	i32 := c.Types.Basic(types.Int32)
	boolT := c.Types.Basic(types.Bool)
	f := newTestFn(c, "puts", i32, i32)
	f.Linkage = LinkageExternC
	c.InsertFunction(c.Root, "puts", f)

	res, rep := ResolveOverload(c, "puts", []*types.Type{boolT})
	if rep != nil {
		t.Fatalf("expected extern-c relaxation to succeed, got %v", rep)
	}
	if res.Function != f {
		t.Fatal("expected the extern-c candidate to be chosen")
	}
}
