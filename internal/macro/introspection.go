package macro

import (
	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/emit"
)

// nativeRegistrar is implemented by emit.JIT backends that can resolve
// a host (Go) function under a symbol name alongside interpreted ones
// — internal/emit/interp.Interp.RegisterNative is the one example.
// spec.md §4.7's "introspection bridge" needs exactly this: a fixed
// set of C-ABI functions a macro body can call back into the compiler
// through. RegisterIntrospection is a no-op against a JIT backend that
// doesn't support native registration, rather than an error, since a
// future ahead-of-time backend may resolve these a different way.
type nativeRegistrar interface {
	RegisterNative(symbol string, fn emit.Callable)
}

// RegisterIntrospection installs the fixed introspection function set
// under jit, if jit supports native registration. internal/driver
// calls this once per Unit's JIT before driving top-forms, so macro
// bodies can call these symbols like any other extern-c function.
func RegisterIntrospection(jit emit.JIT) {
	nr, ok := jit.(nativeRegistrar)
	if !ok {
		return
	}
	for name, fn := range introspectionFunctions {
		nr.RegisterNative(name, fn)
	}
}

// introspectionFunctions is deliberately a small, curated set covering
// the structural queries a macro needs to walk and rebuild Nodes
// (spec.md §4.7); it is not a transcription of the original
// implementation's full introspection surface.
var introspectionFunctions = map[string]emit.Callable{
	"node-is-list": func(args []any) (any, error) {
		n, _ := args[0].(*ast.Node)
		return n != nil && n.IsList, nil
	},
	"node-is-atom": func(args []any) (any, error) {
		n, _ := args[0].(*ast.Node)
		return n != nil && !n.IsList, nil
	},
	"node-token": func(args []any) (any, error) {
		n, _ := args[0].(*ast.Node)
		if n == nil {
			return "", nil
		}
		return n.Token, nil
	},
	"node-child-count": func(args []any) (any, error) {
		n, _ := args[0].(*ast.Node)
		if n == nil {
			return int64(0), nil
		}
		return int64(len(n.Children)), nil
	},
	"node-child": func(args []any) (any, error) {
		n, _ := args[0].(*ast.Node)
		idx, _ := args[1].(int64)
		if n == nil || idx < 0 || int(idx) >= len(n.Children) {
			return (*ast.Node)(nil), nil
		}
		return n.Children[idx], nil
	},
	"node-new-atom": func(args []any) (any, error) {
		token, _ := args[0].(string)
		return ast.NewAtom(ast.Symbol, token, ast.Span{}), nil
	},
	"node-new-list": func(args []any) (any, error) {
		children := make([]*ast.Node, 0, len(args))
		for _, a := range args {
			if n, ok := a.(*ast.Node); ok {
				children = append(children, n)
			}
		}
		return ast.NewList(children, ast.Span{}), nil
	},
}
