// Package ast defines the homoiconic Node tree produced by internal/sexp
// and consumed by every later compilation stage.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Pos is a single point in source text.
type Pos struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a begin/end position pair.
type Span struct {
	Begin Pos
	End   Pos
}

// AtomKind classifies a leaf token.
type AtomKind int

const (
	Symbol AtomKind = iota
	Int
	Float
	Str
)

func (k AtomKind) String() string {
	switch k {
	case Symbol:
		return "symbol"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "string"
	default:
		return "unknown"
	}
}

// Node is either an Atom (a token) or a List (an ordered sequence of
// child Nodes). Every Node carries its textual span plus, if it was
// produced by macro expansion, the call-site span it should be blamed
// on for diagnostics (spec.md §3 C2, §4.7 "macro-origin positions").
type Node struct {
	IsList bool

	// Atom fields (IsList == false)
	AtomKind AtomKind
	Token    string

	// List fields (IsList == true)
	Children []*Node

	Span      Span
	MacroSpan Span // zero value means "not macro-produced"
}

// NewAtom constructs a leaf Node.
func NewAtom(kind AtomKind, token string, span Span) *Node {
	return &Node{AtomKind: kind, Token: token, Span: span}
}

// NewList constructs a list Node owning children.
func NewList(children []*Node, span Span) *Node {
	return &Node{IsList: true, Children: children, Span: span}
}

// FromMacro returns a copy of n (recursively) with MacroSpan set to
// callSite on every node reachable from n, per spec.md §4.7. The
// textual Span is left untouched so a diagnostic can still report
// where the macro body itself defined the form.
func (n *Node) FromMacro(callSite Span) *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.MacroSpan = callSite
	if n.IsList {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.FromMacro(callSite)
		}
	}
	return &cp
}

// OriginSpan returns MacroSpan if set, else Span — the position a
// diagnostic should point at.
func (n *Node) OriginSpan() Span {
	if n.MacroSpan != (Span{}) {
		return n.MacroSpan
	}
	return n.Span
}

// Head returns the first child of a list, or nil.
func (n *Node) Head() *Node {
	if !n.IsList || len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Tail returns all children but the first.
func (n *Node) Tail() []*Node {
	if !n.IsList || len(n.Children) < 2 {
		return nil
	}
	return n.Children[1:]
}

// IsAtomSymbol reports whether n is an atom of kind Symbol equal to s.
func (n *Node) IsAtomSymbol(s string) bool {
	return n != nil && !n.IsList && n.AtomKind == Symbol && n.Token == s
}

// HeadIs reports whether n is a list whose head is the symbol s.
func (n *Node) HeadIs(s string) bool {
	return n != nil && n.IsList && len(n.Children) > 0 && n.Children[0].IsAtomSymbol(s)
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if !n.IsList {
		switch n.AtomKind {
		case Str:
			return strconv.Quote(n.Token)
		default:
			return n.Token
		}
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Equal reports deep structural equality, ignoring spans — used by the
// macro splice round-trip test property (spec.md §8).
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.IsList != o.IsList {
		return false
	}
	if !n.IsList {
		return n.AtomKind == o.AtomKind && n.Token == o.Token
	}
	if len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of n, used when Nodes must outlive their
// originating top-form (spec.md §3 "Lifecycles").
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.IsList {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}
