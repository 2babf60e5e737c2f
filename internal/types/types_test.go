package types

import "testing"

func TestInterningIsPtrEqual(t *testing.T) {
	r := NewRegistry()
	a := r.Pointer(r.Basic(Int32))
	b := r.Pointer(r.Basic(Int32))
	if !PtrEqual(a, b) {
		t.Fatal("expected structurally identical pointer types to intern to the same value")
	}
	if !Equal(a, b, false) {
		t.Fatal("expected structural equality to hold for interned types")
	}
}

func TestFunctionVarargsDetection(t *testing.T) {
	r := NewRegistry()
	fn := r.Function(r.Basic(Int32), []*Type{r.Basic(Int32), r.Basic(Varargs)})
	if !fn.IsVariadic() {
		t.Fatal("expected function with trailing varargs to report IsVariadic")
	}
}

func TestNamedAggregateEqualityByQualifiedName(t *testing.T) {
	r := NewRegistry()
	a := r.Named("app.Point", []string{"app"}, true)
	b := r.Named("app.Point", []string{"app"}, true)
	if !Equal(a, b, false) {
		t.Fatal("expected named aggregates with the same qualified name to be equal")
	}
	c := r.Named("app.Vector", []string{"app"}, true)
	if Equal(a, c, false) {
		t.Fatal("expected differently-named aggregates to be unequal")
	}
}

func TestEqualIgnoreArgConst(t *testing.T) {
	r := NewRegistry()
	constInt := r.WithConst(r.Basic(Int32))
	plainInt := r.Basic(Int32)

	fnConst := r.Function(r.Basic(Void), []*Type{constInt})
	fnPlain := r.Function(r.Basic(Void), []*Type{plainInt})

	if Equal(fnConst, fnPlain, false) {
		t.Fatal("expected const-qualified parameter to differ without ignoreArgConst")
	}
	if !Equal(fnConst, fnPlain, true) {
		t.Fatal("expected ignoreArgConst to treat const/non-const parameters as equal")
	}
}

func TestEncodeDeterministic(t *testing.T) {
	r := NewRegistry()
	a := r.Array(r.Basic(Char), 0)
	if a.Encode() != r.Array(r.Basic(Char), 0).Encode() {
		t.Fatal("expected Encode to be deterministic for structurally equal types")
	}
}

func TestCanCoerceWideningOnly(t *testing.T) {
	native := DefaultNativeTypes()
	r := NewRegistry()
	i8, i32 := r.Basic(Int8), r.Basic(Int32)
	if !CanCoerce(i8, i32, native) {
		t.Fatal("expected int8 -> int32 widening to be allowed")
	}
	if CanCoerce(i32, i8, native) {
		t.Fatal("expected int32 -> int8 narrowing to be rejected")
	}
}

func TestArrayDecayRule(t *testing.T) {
	native := DefaultNativeTypes()
	r := NewRegistry()
	pChar := r.Pointer(r.Basic(Char))
	arrChar := r.Array(r.Basic(Char), 4)
	if !CanCoerce(arrChar, pChar, native) {
		t.Fatal("expected array N char to decay to p char")
	}
}
