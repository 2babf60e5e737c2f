package decl

import (
	"strconv"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/typeform"
	"github.com/dalec/dalec/internal/types"
)

// BuildEnum implements `(def NAME (enum LINKAGE UNDERLYING-TYPE (MEMBER1 MEMBER2 …)))`
// (spec.md §3 "An Enum is also projected into a Struct of one field"):
// members are auto-numbered from 0 unless given an explicit `(member N)`
// value, and the projected struct is registered alongside the enum so
// internal/lower's enum-literal and struct-literal paths share one code
// path for addressing the discriminant.
func BuildEnum(c *ctx.Context, ns *ctx.Namespace, name string, n *ast.Node) (*ctx.Enum, *errors.Report) {
	if len(n.Children) != 4 {
		return nil, errors.New(errors.IncorrectNumberOfArgs, "decl", &n.Span, "(enum LINKAGE UNDERLYING (MEMBERS)) takes exactly three operands")
	}
	linkage, rep := ParseLinkage(n.Children[1])
	if rep != nil {
		return nil, rep
	}
	underlying, rep := typeform.Parse(c, ns, n.Children[2], typeform.Options{})
	if rep != nil {
		return nil, rep
	}
	if !types.IsInteger(underlying) {
		return nil, errors.New(errors.EnumTypeMustBeInteger, "decl", &n.Children[2].Span, "enum underlying type must be an integer type")
	}
	membersNode := n.Children[3]
	if !membersNode.IsList {
		return nil, errors.New(errors.UnexpectedElement, "decl", &membersNode.Span, "expected a member list")
	}

	qualified := name
	if q := ns.QualifiedName(); q != "" {
		qualified = q + "." + name
	}
	en := &ctx.Enum{Name: name, QualifiedName: qualified, Underlying: underlying, Linkage: linkage}

	next := int64(0)
	for _, mn := range membersNode.Children {
		memberName, value, rep := parseEnumMember(mn, next)
		if rep != nil {
			return nil, rep
		}
		for _, existing := range en.Members {
			if existing.Name == memberName {
				return nil, errors.New(errors.RedeclarationOfEnumElement, "decl", &mn.Span, "duplicate enum member %q", memberName)
			}
		}
		en.Members = append(en.Members, ctx.EnumMember{Name: memberName, Value: value})
		next = value + 1
	}

	projectedQualified := qualified + ".$projection$"
	c.Types.Named(projectedQualified, namespacePath(ns), true)
	en.Projected = &ctx.Struct{
		Name:          name + "$projection$",
		QualifiedName: projectedQualified,
		Fields:        []ctx.StructField{{Name: "value", Type: underlying}},
		Linkage:       linkage,
		InternalName:  mangleGlobal(ns, name, linkage) + "$projection$",
	}
	if !c.InsertStruct(ns, en.Projected.Name, en.Projected) {
		return nil, nil
	}

	c.Types.Named(qualified, namespacePath(ns), true)
	if !c.InsertEnum(ns, name, en) {
		return nil, nil
	}
	return en, nil
}

func parseEnumMember(mn *ast.Node, autoValue int64) (string, int64, *errors.Report) {
	if !mn.IsList {
		if mn.AtomKind != ast.Symbol {
			return "", 0, errors.New(errors.UnexpectedElement, "decl", &mn.Span, "expected a member name or (name value)")
		}
		return mn.Token, autoValue, nil
	}
	if len(mn.Children) != 2 || mn.Children[0].AtomKind != ast.Symbol || mn.Children[1].AtomKind != ast.Int {
		return "", 0, errors.New(errors.UnexpectedElement, "decl", &mn.Span, "expected (name integer-value)")
	}
	value, err := strconv.ParseInt(mn.Children[1].Token, 0, 64)
	if err != nil {
		return "", 0, errors.New(errors.UnableToParseInteger, "decl", &mn.Children[1].Span, "invalid enum member value %q", mn.Children[1].Token)
	}
	return mn.Children[0].Token, value, nil
}
