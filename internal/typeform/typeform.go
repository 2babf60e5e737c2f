// Package typeform maps AST fragments to Types (spec.md §4.3 "Type
// Form Parser (C4)"). Grounded on the recursive descent shape of the
// teacher's internal/parser/parser_type.go, restructured over
// internal/ast.Node instead of a token stream since type expressions
// here are themselves S-expressions already parsed by internal/sexp.
package typeform

import (
	"strconv"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"
)

var baseTypeNames = map[string]types.BaseTag{
	"void": types.Void, "...": types.Varargs, "bool": types.Bool, "char": types.Char,
	"int8": types.Int8, "int16": types.Int16, "int32": types.Int32, "int64": types.Int64, "int128": types.Int128,
	"uint8": types.UInt8, "uint16": types.UInt16, "uint32": types.UInt32, "uint64": types.UInt64, "uint128": types.UInt128,
	"int": types.Int, "uint": types.UInt, "size": types.Size, "intptr": types.IntPtr, "ptrdiff": types.PtrDiff,
	"float": types.Float, "double": types.Double, "long-double": types.LongDouble,
}

// Options controls context-dependent grammar productions.
type Options struct {
	// AllowAnonStructs permits an inline (struct ...) type expression;
	// only function parameters and locals pass this (spec.md §4.3
	// "Anonymous struct types are permitted only in contexts...that
	// pass allow_anon_structs").
	AllowAnonStructs bool
	// AllowBitfield permits a (bitfield N T) wrapper; only struct
	// field contexts pass this.
	AllowBitfield bool
	// ConstExprSize evaluates a Node to an int64 array size when it is
	// not a bare integer literal (spec.md §4.3 "(array-of N T) ->
	// array of T, size N (an integer literal or a constant expression
	// reducible by C7)"). May be nil if the caller never needs it.
	ConstExprSize func(n *ast.Node) (int64, bool)
}

// Parse implements the grammar of spec.md §4.3.
func Parse(c *ctx.Context, ns *ctx.Namespace, n *ast.Node, opt Options) (*types.Type, *errors.Report) {
	if n == nil {
		return nil, errors.New(errors.UnexpectedElement, "typeform", nil, "missing type expression")
	}

	if !n.IsList {
		if n.AtomKind != ast.Symbol {
			return nil, errors.New(errors.UnexpectedElement, "typeform", &n.Span,
				"expected a type name, found a literal")
		}
		if tag, ok := baseTypeNames[n.Token]; ok {
			return c.Types.Basic(tag), nil
		}
		return resolveNamed(c, ns, n)
	}

	head := n.Head()
	if head == nil || head.AtomKind != ast.Symbol {
		return nil, errors.New(errors.FirstListElementMustBeSymbol, "typeform", &n.Span,
			"first element of a type expression must be a symbol")
	}

	switch head.Token {
	case "p":
		return parsePointer(c, ns, n, opt)
	case "array-of":
		return parseArray(c, ns, n, opt)
	case "fn":
		return parseFunction(c, ns, n, opt)
	case "const":
		return parseConst(c, ns, n, opt)
	case "bitfield":
		return parseBitfield(c, ns, n, opt)
	case "struct":
		if !opt.AllowAnonStructs {
			return nil, errors.New(errors.UnexpectedElement, "typeform", &n.Span,
				"anonymous struct types are not permitted in this context")
		}
		return parseAnonStruct(c, ns, n, opt)
	default:
		return resolveNamed(c, ns, head)
	}
}

func resolveNamed(c *ctx.Context, ns *ctx.Namespace, n *ast.Node) (*types.Type, *errors.Report) {
	name := n.Token
	if s, ok := ns.Struct(name); ok {
		return c.Types.Named(s.QualifiedName, nil, true), nil
	}
	if e, ok := ns.Enum(name); ok {
		return c.Types.Named(e.QualifiedName, nil, false), nil
	}
	if s, ok := c.LookupStruct(name); ok {
		return c.Types.Named(s.QualifiedName, nil, true), nil
	}
	if e, ok := c.LookupEnum(name); ok {
		return c.Types.Named(e.QualifiedName, nil, false), nil
	}
	return nil, errors.New(errors.NotInScope, "typeform", &n.Span, "type %q is not in scope", name)
}

func parsePointer(c *ctx.Context, ns *ctx.Namespace, n *ast.Node, opt Options) (*types.Type, *errors.Report) {
	if len(n.Children) != 2 {
		return nil, errors.New(errors.IncorrectNumberOfArgs, "typeform", &n.Span, "(p T) takes exactly one type")
	}
	inner, rep := Parse(c, ns, n.Children[1], opt)
	if rep != nil {
		return nil, rep
	}
	return c.Types.Pointer(inner), nil
}

func parseArray(c *ctx.Context, ns *ctx.Namespace, n *ast.Node, opt Options) (*types.Type, *errors.Report) {
	if len(n.Children) != 3 {
		return nil, errors.New(errors.IncorrectNumberOfArgs, "typeform", &n.Span,
			"(array-of N T) takes exactly a size and an element type")
	}
	size, rep := arraySize(n.Children[1], opt)
	if rep != nil {
		return nil, rep
	}
	elem, rep := Parse(c, ns, n.Children[2], opt)
	if rep != nil {
		return nil, rep
	}
	return c.Types.Array(elem, size), nil
}

func arraySize(n *ast.Node, opt Options) (int64, *errors.Report) {
	if !n.IsList && n.AtomKind == ast.Int {
		v, err := parseIntLiteral(n.Token)
		if err != nil {
			return 0, errors.New(errors.UnableToParseInteger, "typeform", &n.Span, "invalid array size literal")
		}
		return v, nil
	}
	if opt.ConstExprSize != nil {
		if v, ok := opt.ConstExprSize(n); ok {
			return v, nil
		}
	}
	return 0, errors.New(errors.CannotParseLiteral, "typeform", &n.Span,
		"array size must be an integer literal or a reducible constant expression")
}

func parseFunction(c *ctx.Context, ns *ctx.Namespace, n *ast.Node, opt Options) (*types.Type, *errors.Report) {
	if len(n.Children) != 3 || !n.Children[2].IsList {
		return nil, errors.New(errors.UnexpectedElement, "typeform", &n.Span,
			"(fn R (PARAMS)) expects a return type and a parameter list")
	}
	ret, rep := Parse(c, ns, n.Children[1], opt)
	if rep != nil {
		return nil, rep
	}
	paramNodes := n.Children[2].Children
	params := make([]*types.Type, 0, len(paramNodes))
	for i, pn := range paramNodes {
		pt, rep := Parse(c, ns, pn, opt)
		if rep != nil {
			return nil, rep
		}
		if pt.Kind() == types.KindBasic && pt.Base() == types.Varargs && i != len(paramNodes)-1 {
			return nil, errors.New(errors.VarargsMustBeLast, "typeform", &pn.Span,
				"varargs may appear only as the last parameter")
		}
		params = append(params, pt)
	}
	return c.Types.Function(ret, params), nil
}

func parseConst(c *ctx.Context, ns *ctx.Namespace, n *ast.Node, opt Options) (*types.Type, *errors.Report) {
	if len(n.Children) != 2 {
		return nil, errors.New(errors.IncorrectNumberOfArgs, "typeform", &n.Span, "(const T) takes exactly one type")
	}
	inner, rep := Parse(c, ns, n.Children[1], opt)
	if rep != nil {
		return nil, rep
	}
	return c.Types.WithConst(inner), nil
}

func parseBitfield(c *ctx.Context, ns *ctx.Namespace, n *ast.Node, opt Options) (*types.Type, *errors.Report) {
	if !opt.AllowBitfield {
		return nil, errors.New(errors.UnexpectedElement, "typeform", &n.Span,
			"bitfield types are only permitted inside struct fields")
	}
	if len(n.Children) != 3 {
		return nil, errors.New(errors.IncorrectNumberOfArgs, "typeform", &n.Span, "(bitfield N T) takes a width and a type")
	}
	widthNode := n.Children[1]
	if widthNode.IsList || widthNode.AtomKind != ast.Int {
		return nil, errors.New(errors.UnableToParseInteger, "typeform", &widthNode.Span, "bitfield width must be an integer literal")
	}
	width, err := parseIntLiteral(widthNode.Token)
	if err != nil {
		return nil, errors.New(errors.UnableToParseInteger, "typeform", &widthNode.Span, "invalid bitfield width")
	}
	inner, rep := Parse(c, ns, n.Children[2], opt)
	if rep != nil {
		return nil, rep
	}
	return c.Types.WithBitfield(inner, int(width)), nil
}

func parseAnonStruct(c *ctx.Context, ns *ctx.Namespace, n *ast.Node, opt Options) (*types.Type, *errors.Report) {
	// An anonymous struct is interned as a named aggregate under a
	// synthetic, position-derived name so that repeated parses of the
	// identical literal type expression intern to the same Type.
	name := "anon$" + n.Span.Begin.String()
	return c.Types.Named(name, ns.ChildNames(), true), nil
}

func parseIntLiteral(s string) (int64, error) {
	return strconv.ParseInt(s, 0, 64)
}
