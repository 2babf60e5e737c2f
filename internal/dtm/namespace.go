package dtm

import (
	"fmt"
	"io"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/types"
)

// Type kind tags on the wire. These are a DTM-local encoding, distinct
// from types.Kind's own numbering, so the wire format is stable even if
// the in-memory Kind iota order ever shifts.
const (
	wireKindBasic uint8 = iota
	wireKindPointer
	wireKindArray
	wireKindFunction
	wireKindNamed
)

func writeType(w io.Writer, t *types.Type) error {
	if t == nil {
		return fmt.Errorf("dtm: cannot encode a nil type")
	}
	if err := writeBool(w, t.IsConst()); err != nil {
		return err
	}
	switch t.Kind() {
	case types.KindBasic:
		if err := writeUint8(w, wireKindBasic); err != nil {
			return err
		}
		return writeUint8(w, uint8(t.Base()))
	case types.KindPointer:
		if err := writeUint8(w, wireKindPointer); err != nil {
			return err
		}
		return writeType(w, t.PointsTo())
	case types.KindArray:
		if err := writeUint8(w, wireKindArray); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(t.ArraySize())); err != nil {
			return err
		}
		return writeType(w, t.Elem())
	case types.KindFunction:
		if err := writeUint8(w, wireKindFunction); err != nil {
			return err
		}
		if err := writeType(w, t.Return()); err != nil {
			return err
		}
		params := t.Params()
		if err := writeUint32(w, uint32(len(params))); err != nil {
			return err
		}
		for _, p := range params {
			if err := writeType(w, p); err != nil {
				return err
			}
		}
		return nil
	case types.KindNamed:
		if err := writeUint8(w, wireKindNamed); err != nil {
			return err
		}
		if err := writeBool(w, t.IsStruct()); err != nil {
			return err
		}
		if err := writeString(w, t.QualifiedName()); err != nil {
			return err
		}
		if err := writeStrings(w, t.NamespacePath()); err != nil {
			return err
		}
		return writeUint32(w, uint32(t.BitfieldWidth()))
	default:
		return fmt.Errorf("dtm: unknown type kind %v", t.Kind())
	}
}

func readType(r io.Reader, reg *types.Registry) (*types.Type, error) {
	isConst, err := readBool(r)
	if err != nil {
		return nil, err
	}
	kind, err := readUint8(r)
	if err != nil {
		return nil, err
	}

	var t *types.Type
	switch kind {
	case wireKindBasic:
		tag, err := readUint8(r)
		if err != nil {
			return nil, err
		}
		t = reg.Basic(types.BaseTag(tag))
	case wireKindPointer:
		pointsTo, err := readType(r, reg)
		if err != nil {
			return nil, err
		}
		t = reg.Pointer(pointsTo)
	case wireKindArray:
		size, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		elem, err := readType(r, reg)
		if err != nil {
			return nil, err
		}
		t = reg.Array(elem, int64(size))
	case wireKindFunction:
		ret, err := readType(r, reg)
		if err != nil {
			return nil, err
		}
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		params := make([]*types.Type, n)
		for i := range params {
			params[i], err = readType(r, reg)
			if err != nil {
				return nil, err
			}
		}
		t = reg.Function(ret, params)
	case wireKindNamed:
		isStruct, err := readBool(r)
		if err != nil {
			return nil, err
		}
		qname, err := readString(r)
		if err != nil {
			return nil, err
		}
		path, err := readStrings(r)
		if err != nil {
			return nil, err
		}
		width, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		if existing, ok := reg.LookupNamed(qname); ok {
			t = existing
		} else {
			t = reg.Named(qname, path, isStruct)
		}
		if width > 0 {
			t = reg.WithBitfield(t, int(width))
		}
	default:
		return nil, fmt.Errorf("dtm: unknown wire type kind %d", kind)
	}

	if isConst {
		t = reg.WithConst(t)
	}
	return t, nil
}

func writeVariable(w io.Writer, v *ctx.Variable) error {
	if err := writeString(w, v.Name); err != nil {
		return err
	}
	if err := writeType(w, v.Type); err != nil {
		return err
	}
	if err := writeLinkage(w, v.Linkage); err != nil {
		return err
	}
	return writeString(w, v.OnceTag)
}

func readVariable(r io.Reader, reg *types.Registry) (*ctx.Variable, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	typ, err := readType(r, reg)
	if err != nil {
		return nil, err
	}
	linkage, err := readLinkage(r)
	if err != nil {
		return nil, err
	}
	onceTag, err := readString(r)
	if err != nil {
		return nil, err
	}
	return &ctx.Variable{Name: name, Type: typ, Linkage: linkage, OnceTag: onceTag}, nil
}

func writeFunction(w io.Writer, fn *ctx.Function) error {
	if err := writeString(w, fn.Name); err != nil {
		return err
	}
	if err := writeType(w, fn.Return); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(fn.Params))); err != nil {
		return err
	}
	for _, p := range fn.Params {
		if err := writeVariable(w, p); err != nil {
			return err
		}
	}
	if err := writeLinkage(w, fn.Linkage); err != nil {
		return err
	}
	if err := writeBool(w, fn.IsMacro); err != nil {
		return err
	}
	if err := writeBool(w, fn.IsSetfFn); err != nil {
		return err
	}
	if err := writeBool(w, fn.CTO); err != nil {
		return err
	}
	return writeString(w, fn.OnceTag)
}

func readFunction(r io.Reader, reg *types.Registry) (*ctx.Function, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	ret, err := readType(r, reg)
	if err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	params := make([]*ctx.Param, n)
	for i := range params {
		params[i], err = readVariable(r, reg)
		if err != nil {
			return nil, err
		}
	}
	linkage, err := readLinkage(r)
	if err != nil {
		return nil, err
	}
	isMacro, err := readBool(r)
	if err != nil {
		return nil, err
	}
	isSetfFn, err := readBool(r)
	if err != nil {
		return nil, err
	}
	cto, err := readBool(r)
	if err != nil {
		return nil, err
	}
	onceTag, err := readString(r)
	if err != nil {
		return nil, err
	}
	return &ctx.Function{
		Name: name, Return: ret, Params: params, Linkage: linkage,
		IsMacro: isMacro, IsSetfFn: isSetfFn, CTO: cto, OnceTag: onceTag,
	}, nil
}

func writeStruct(w io.Writer, s *ctx.Struct) error {
	if err := writeString(w, s.Name); err != nil {
		return err
	}
	if err := writeString(w, s.QualifiedName); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(s.Fields))); err != nil {
		return err
	}
	for _, f := range s.Fields {
		if err := writeString(w, f.Name); err != nil {
			return err
		}
		if err := writeType(w, f.Type); err != nil {
			return err
		}
	}
	if err := writeLinkage(w, s.Linkage); err != nil {
		return err
	}
	if err := writeString(w, s.InternalName); err != nil {
		return err
	}
	return writeString(w, s.OnceTag)
}

func readStruct(r io.Reader, reg *types.Registry) (*ctx.Struct, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	qname, err := readString(r)
	if err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	fields := make([]ctx.StructField, n)
	for i := range fields {
		fname, err := readString(r)
		if err != nil {
			return nil, err
		}
		ftype, err := readType(r, reg)
		if err != nil {
			return nil, err
		}
		fields[i] = ctx.StructField{Name: fname, Type: ftype}
	}
	linkage, err := readLinkage(r)
	if err != nil {
		return nil, err
	}
	internalName, err := readString(r)
	if err != nil {
		return nil, err
	}
	onceTag, err := readString(r)
	if err != nil {
		return nil, err
	}
	return &ctx.Struct{
		Name: name, QualifiedName: qname, Fields: fields,
		Linkage: linkage, InternalName: internalName, OnceTag: onceTag,
	}, nil
}

func writeEnum(w io.Writer, e *ctx.Enum) error {
	if err := writeString(w, e.Name); err != nil {
		return err
	}
	if err := writeString(w, e.QualifiedName); err != nil {
		return err
	}
	if err := writeType(w, e.Underlying); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(e.Members))); err != nil {
		return err
	}
	for _, m := range e.Members {
		if err := writeString(w, m.Name); err != nil {
			return err
		}
		if err := binaryWriteInt64(w, m.Value); err != nil {
			return err
		}
	}
	if err := writeLinkage(w, e.Linkage); err != nil {
		return err
	}
	if err := writeString(w, e.OnceTag); err != nil {
		return err
	}
	if err := writeStruct(w, e.Projected); err != nil {
		return err
	}
	return nil
}

func readEnum(r io.Reader, reg *types.Registry) (*ctx.Enum, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	qname, err := readString(r)
	if err != nil {
		return nil, err
	}
	underlying, err := readType(r, reg)
	if err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	members := make([]ctx.EnumMember, n)
	for i := range members {
		mname, err := readString(r)
		if err != nil {
			return nil, err
		}
		mval, err := binaryReadInt64(r)
		if err != nil {
			return nil, err
		}
		members[i] = ctx.EnumMember{Name: mname, Value: mval}
	}
	linkage, err := readLinkage(r)
	if err != nil {
		return nil, err
	}
	onceTag, err := readString(r)
	if err != nil {
		return nil, err
	}
	projected, err := readStruct(r, reg)
	if err != nil {
		return nil, err
	}
	return &ctx.Enum{
		Name: name, QualifiedName: qname, Underlying: underlying,
		Members: members, Linkage: linkage, OnceTag: onceTag, Projected: projected,
	}, nil
}

// writeNamespace serializes ns's four local declaration tables (spec.md
// §4.2 "Namespace") and then recurses into its children by name, so
// readNamespace can rebuild the same tree shape without needing parent
// back-pointers on the wire (ctx.NewNamespace wires those up as each
// child is created).
func writeNamespace(w io.Writer, ns *ctx.Namespace) error {
	functionNames := ns.FunctionNames()

	if err := writeUint32(w, uint32(len(functionNames))); err != nil {
		return err
	}
	for _, name := range functionNames {
		overloads := ns.Functions(name)
		if err := writeString(w, name); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(overloads))); err != nil {
			return err
		}
		for _, fn := range overloads {
			if err := writeFunction(w, fn); err != nil {
				return err
			}
		}
	}

	return writeNamespaceRest(w, ns, ns.ChildNames())
}

func readNamespace(r io.Reader, ns *ctx.Namespace, reg *types.Registry) error {
	nFuncNames, err := readUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < nFuncNames; i++ {
		name, err := readString(r)
		if err != nil {
			return err
		}
		nOverloads, err := readUint32(r)
		if err != nil {
			return err
		}
		for j := uint32(0); j < nOverloads; j++ {
			fn, err := readFunction(r, reg)
			if err != nil {
				return err
			}
			ns.AddFunction(name, fn)
		}
	}
	return readNamespaceRest(r, ns, reg)
}

// writeNamespaceRest and readNamespaceRest handle the variables,
// structs, enums, and child-namespace tables — split out from
// writeNamespace/readNamespace only to keep each function's single
// table-plus-recursion shape readable.
func writeNamespaceRest(w io.Writer, ns *ctx.Namespace, childNames []string) error {
	varNames := ns.VariableNames()
	structNames := ns.StructNames()
	enumNames := ns.EnumNames()

	if err := writeUint32(w, uint32(len(varNames))); err != nil {
		return err
	}
	for _, name := range varNames {
		v, _ := ns.Variable(name)
		if err := writeVariable(w, v); err != nil {
			return err
		}
	}

	if err := writeUint32(w, uint32(len(structNames))); err != nil {
		return err
	}
	for _, name := range structNames {
		s, _ := ns.Struct(name)
		if err := writeStruct(w, s); err != nil {
			return err
		}
	}

	if err := writeUint32(w, uint32(len(enumNames))); err != nil {
		return err
	}
	for _, name := range enumNames {
		e, _ := ns.Enum(name)
		if err := writeEnum(w, e); err != nil {
			return err
		}
	}

	if err := writeUint32(w, uint32(len(childNames))); err != nil {
		return err
	}
	for _, name := range childNames {
		if err := writeString(w, name); err != nil {
			return err
		}
		child, _ := ns.LookupChild(name)
		if err := writeNamespace(w, child); err != nil {
			return err
		}
	}
	return nil
}

func readNamespaceRest(r io.Reader, ns *ctx.Namespace, reg *types.Registry) error {
	nVars, err := readUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < nVars; i++ {
		v, err := readVariable(r, reg)
		if err != nil {
			return err
		}
		ns.SetVariable(v.Name, v)
	}

	nStructs, err := readUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < nStructs; i++ {
		s, err := readStruct(r, reg)
		if err != nil {
			return err
		}
		ns.SetStruct(s.Name, s)
	}

	nEnums, err := readUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < nEnums; i++ {
		e, err := readEnum(r, reg)
		if err != nil {
			return err
		}
		ns.SetEnum(e.Name, e)
	}

	nChildren, err := readUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < nChildren; i++ {
		name, err := readString(r)
		if err != nil {
			return err
		}
		child := ns.Child(name)
		if err := readNamespace(r, child, reg); err != nil {
			return err
		}
	}
	return nil
}

