package lower

import (
	"strconv"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"
)

// lowerArrayLiteral implements `(array-of N T V0 … Vk-1)` in
// expression position (spec.md §4.6 "Array-literal lowering"): N=0
// means the size is inferred from the element count; otherwise the
// element count must equal N exactly. Elements are lowered with T as
// the expected type with no implicit cast permitted.
func (s *Scope) lowerArrayLiteral(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	if len(n.Children) < 3 {
		return Result{}, errors.New(errors.IncorrectNumberOfArgs, "lower", &n.Span, "(array-of N T V...) requires at least a size and an element type")
	}
	sizeNode := n.Children[1]
	if sizeNode.IsList || sizeNode.AtomKind != ast.Int {
		return Result{}, errors.New(errors.UnableToParseInteger, "lower", &sizeNode.Span, "array size must be an integer literal")
	}
	declaredSize, err := strconv.ParseInt(sizeNode.Token, 0, 64)
	if err != nil {
		return Result{}, errors.New(errors.UnableToParseInteger, "lower", &sizeNode.Span, "invalid array size literal")
	}
	elemType, rep := s.ParseType(n.Children[2])
	if rep != nil {
		return Result{}, rep
	}
	elems := n.Children[3:]
	if declaredSize != 0 && int64(len(elems)) != declaredSize {
		return Result{}, errors.New(errors.IncorrectNumberOfArgs, "lower", &n.Span,
			"array literal declares size %d but supplies %d elements", declaredSize, len(elems))
	}
	size := declaredSize
	if size == 0 {
		size = int64(len(elems))
	}
	arrType := s.C.Types.Array(elemType, size)
	slot := blk.Alloca(arrType)
	for i, en := range elems {
		v, rep := s.Lower(blk, en)
		if rep != nil {
			return Result{}, rep
		}
		if !types.Equal(v.Type, elemType, true) {
			return Result{}, errors.New(errors.IncorrectArgType, "lower", &en.Span,
				"array element %d has type %s, expected %s", i, v.Type.Pretty(), elemType.Pretty())
		}
		v.Block.Store(v.Block.GEP(slot, i), v.Value)
		blk = v.Block
	}
	return Result{Block: blk, Type: arrType, Value: blk.Load(slot), Addr: slot, DoNotDestruct: true}, nil
}

// lowerStringLiteral builds a string literal the same way an
// (array-of char ...) literal is built — a stack array of byte-sized
// char constants, NUL-terminated — rather than through the backend's
// standalone ConstString op, so the result carries a real addressable
// slot: call-argument decay to `p char` (spec.md §4.6 "C-interop")
// GEPs into exactly this slot.
func (s *Scope) lowerStringLiteral(blk emit.Block, n *ast.Node) (Result, *errors.Report) {
	charType := s.C.Types.Basic(types.Char)
	raw := []byte(n.Token)
	arrType := s.C.Types.Array(charType, int64(len(raw)+1))
	slot := blk.Alloca(arrType)
	for i, b := range raw {
		blk.Store(blk.GEP(slot, i), blk.ConstInt(charType, int64(b)))
	}
	blk.Store(blk.GEP(slot, len(raw)), blk.ConstInt(charType, 0))
	return Result{Block: blk, Type: arrType, Value: blk.Load(slot), Addr: slot, DoNotDestruct: true}, nil
}

// lowerStructLiteral implements `(STRUCT-NAME (field v) …)` (spec.md
// §4.6 "Struct-literal lowering"): missing fields are zero-initialized;
// differing integer/float field values get an implicit numeric cast.
func (s *Scope) lowerStructLiteral(blk emit.Block, n *ast.Node, st *ctx.Struct) (Result, *errors.Report) {
	structType := s.C.Types.Named(st.QualifiedName, nil, true)
	slot := blk.Alloca(structType)
	given := map[string]*ast.Node{}
	for _, fieldNode := range n.Tail() {
		if !fieldNode.IsList || len(fieldNode.Children) != 2 || fieldNode.Children[0].AtomKind != ast.Symbol {
			return Result{}, errors.New(errors.UnexpectedElement, "lower", &fieldNode.Span, "expected (field value) in struct literal")
		}
		given[fieldNode.Children[0].Token] = fieldNode.Children[1]
	}
	for i, f := range st.Fields {
		valNode, ok := given[f.Name]
		if !ok {
			continue // zero-initialized
		}
		v, rep := s.Lower(blk, valNode)
		if rep != nil {
			return Result{}, rep
		}
		val := v.Value
		if !types.Equal(v.Type, f.Type, true) {
			if (types.IsInteger(v.Type) || types.IsFloating(v.Type)) && (types.IsInteger(f.Type) || types.IsFloating(f.Type)) {
				val = v.Block.Cast(v.Value, f.Type)
			} else {
				return Result{}, errors.New(errors.IncorrectArgType, "lower", &valNode.Span,
					"field %q has type %s, got %s", f.Name, f.Type.Pretty(), v.Type.Pretty())
			}
		}
		v.Block.Store(v.Block.GEP(slot, i), val)
		blk = v.Block
	}
	return Result{Block: blk, Type: structType, Value: blk.Load(slot), Addr: slot, DoNotDestruct: true}, nil
}

// lowerEnumLiteral implements `(ENUM-NAME MEMBER)` (spec.md §4.6
// "Enum-literal lowering"): the result is the Enum's projected
// single-field Struct value carrying the member's discriminant.
func (s *Scope) lowerEnumLiteral(blk emit.Block, n *ast.Node, en *ctx.Enum) (Result, *errors.Report) {
	if len(n.Children) != 2 || n.Children[1].AtomKind != ast.Symbol {
		return Result{}, errors.New(errors.UnexpectedElement, "lower", &n.Span, "expected (ENUM-NAME MEMBER)")
	}
	memberNode := n.Children[1]
	value, ok := en.MemberValue(memberNode.Token)
	if !ok {
		return Result{}, errors.New(errors.EnumValueDoesNotExist, "lower", &memberNode.Span,
			"enum %q has no member %q", en.Name, memberNode.Token)
	}
	structType := s.C.Types.Named(en.Projected.QualifiedName, nil, true)
	slot := blk.Alloca(structType)
	blk.Store(blk.GEP(slot, 0), blk.ConstInt(en.Underlying, value))
	return Result{Block: blk, Type: structType, Value: blk.Load(slot), Addr: slot, DoNotDestruct: true}, nil
}
