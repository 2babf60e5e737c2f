package lower

import (
	"testing"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/emit/interp"
	"github.com/dalec/dalec/internal/types"
)

// TestCoerceCallArgsDecaysCharArrayToPointer exercises the C-interop
// relaxation directly: a `char[N]` argument against a `p char`
// parameter must come out as a GEP into the argument's own address
// rather than the raw array value (spec.md §4.6 "C-interop").
func TestCoerceCallArgsDecaysCharArrayToPointer(t *testing.T) {
	reg := types.NewRegistry()
	charType := reg.Basic(types.Char)
	arrType := reg.Array(charType, 3)
	ptrType := reg.Pointer(charType)

	b := interp.NewBuilder("t")
	fnSig := reg.Function(reg.Basic(types.Void), []*types.Type{ptrType})
	irFn := b.Func("f", fnSig, emit.ExternC)
	blk := irFn.Entry()

	fn := &ctx.Function{
		Name:   "f",
		Return: reg.Basic(types.Void),
		Params: []*ctx.Param{{Name: "s", Type: ptrType}},
	}

	slot := blk.Alloca(arrType)
	arrVal := blk.Load(slot)

	vals := []emit.Value{arrVal}
	argTypes := []*types.Type{arrType}
	addrs := []emit.Value{slot}

	out := coerceCallArgs(blk, fn, vals, argTypes, addrs)
	if len(out) != 1 {
		t.Fatalf("expected exactly one coerced argument, got %d", len(out))
	}
	if out[0] == arrVal {
		t.Fatal("expected the char-array argument to be replaced by a decayed pointer, not passed through unchanged")
	}

	// An argument whose type already matches the parameter exactly must
	// be passed through untouched.
	intType := reg.Basic(types.Int)
	intFn := &ctx.Function{Name: "g", Return: reg.Basic(types.Void), Params: []*ctx.Param{{Name: "n", Type: intType}}}
	intVal := blk.ConstInt(intType, 1)
	out2 := coerceCallArgs(blk, intFn, []emit.Value{intVal}, []*types.Type{intType}, []emit.Value{nil})
	if out2[0] != intVal {
		t.Fatal("expected an exact-matching argument to pass through unchanged")
	}
}

// TestIsCharArrayAndPointerTypePredicates pins down the exact shapes
// the call-argument decay recognizes.
func TestIsCharArrayAndPointerTypePredicates(t *testing.T) {
	reg := types.NewRegistry()
	char := reg.Basic(types.Char)
	intType := reg.Basic(types.Int)

	if !isCharArrayType(reg.Array(char, 4)) {
		t.Error("expected array-of-char to be recognized")
	}
	if isCharArrayType(reg.Array(intType, 4)) {
		t.Error("did not expect array-of-int to be recognized as a char array")
	}
	if !isCharPointerType(reg.Pointer(char)) {
		t.Error("expected pointer-to-char to be recognized")
	}
	if isCharPointerType(reg.Pointer(intType)) {
		t.Error("did not expect pointer-to-int to be recognized as a char pointer")
	}
	if isCharArrayType(nil) || isCharPointerType(nil) {
		t.Error("nil types must not match either predicate")
	}
}
