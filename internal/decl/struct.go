package decl

import (
	"strings"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/typeform"
)

// BuildStruct implements `(def NAME (struct LINKAGE ((field1 T1) (field2 T2) …)))`
// (spec.md §4.5 "struct"): fields keep declaration order, which is also
// field-index order for GEP addressing in internal/lower.
func BuildStruct(c *ctx.Context, ns *ctx.Namespace, name string, n *ast.Node) (*ctx.Struct, *errors.Report) {
	if len(n.Children) != 3 {
		return nil, errors.New(errors.IncorrectNumberOfArgs, "decl", &n.Span, "(struct LINKAGE (FIELDS)) takes exactly two operands")
	}
	linkage, rep := ParseLinkage(n.Children[1])
	if rep != nil {
		return nil, rep
	}
	fieldsNode := n.Children[2]
	if !fieldsNode.IsList {
		return nil, errors.New(errors.UnexpectedElement, "decl", &fieldsNode.Span, "expected a field list")
	}

	qualified := name
	if q := ns.QualifiedName(); q != "" {
		qualified = q + "." + name
	}
	st := &ctx.Struct{
		Name:          name,
		QualifiedName: qualified,
		Linkage:       linkage,
		InternalName:  mangleGlobal(ns, name, linkage),
	}
	for _, fn := range fieldsNode.Children {
		if !fn.IsList || len(fn.Children) != 2 || fn.Children[0].AtomKind != ast.Symbol {
			return nil, errors.New(errors.UnexpectedElement, "decl", &fn.Span, "expected (field T)")
		}
		ft, rep := typeform.Parse(c, ns, fn.Children[1], typeform.Options{AllowBitfield: true})
		if rep != nil {
			return nil, rep
		}
		st.Fields = append(st.Fields, ctx.StructField{Name: fn.Children[0].Token, Type: ft})
	}

	c.Types.Named(qualified, namespacePath(ns), true)
	if !c.InsertStruct(ns, name, st) {
		return nil, nil
	}
	return st, nil
}

func namespacePath(ns *ctx.Namespace) []string {
	if q := ns.QualifiedName(); q != "" {
		return strings.Split(q, ".")
	}
	return nil
}
