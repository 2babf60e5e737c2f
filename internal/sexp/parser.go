// Package sexp implements the lazy top-form reader that drives
// internal/dispatch — the external collaborator spec.md §1 calls "the
// lexer and S-expression parser (supplies a lazy stream of top-level
// nodes with source positions)".
package sexp

import (
	"strconv"

	"github.com/dalec/dalec/internal/ast"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/lexer"
)

// Reader lazily reads top-level Nodes from a token stream, one at a
// time, so internal/driver can process each top-form fully (including
// macro expansion, which may need to define names for later top-forms)
// before reading the next one (spec.md §5 "ordering between top-forms
// within a unit is the parser's stream order").
type Reader struct {
	lex  *lexer.Lexer
	file string
	peek *lexer.Token
}

// NewReader returns a Reader over normalized source text.
func NewReader(src []byte, file string) *Reader {
	norm := lexer.Normalize(src)
	return &Reader{lex: lexer.New(string(norm), file), file: file}
}

func (r *Reader) next() lexer.Token {
	if r.peek != nil {
		t := *r.peek
		r.peek = nil
		return t
	}
	return r.lex.NextToken()
}

func (r *Reader) peekTok() lexer.Token {
	if r.peek == nil {
		t := r.lex.NextToken()
		r.peek = &t
	}
	return *r.peek
}

// AtEOF reports whether the stream is exhausted.
func (r *Reader) AtEOF() bool {
	return r.peekTok().Type == lexer.EOF
}

// ReadTopForm reads exactly one top-level Node. Per spec.md §4.4, only
// lists are permitted at top level; a bare atom or an empty list is an
// error (DSP001/DSP002).
func (r *Reader) ReadTopForm() (*ast.Node, *errors.Report) {
	tok := r.next()
	switch tok.Type {
	case lexer.EOF:
		return nil, nil
	case lexer.LPAREN:
		return r.readList(tok)
	default:
		return nil, errors.New(errors.OnlyListsAtTopLevel, "sexp", &ast.Span{Begin: pos(tok)},
			"only lists are permitted at the top level, found %s", tok.Type)
	}
}

func pos(t lexer.Token) ast.Pos {
	return ast.Pos{File: t.File, Line: t.Line, Column: t.Column}
}

func (r *Reader) readList(open lexer.Token) (*ast.Node, *errors.Report) {
	begin := pos(open)
	var children []*ast.Node
	for {
		tok := r.peekTok()
		switch tok.Type {
		case lexer.RPAREN:
			r.next()
			end := pos(tok)
			if len(children) == 0 {
				return nil, errors.New(errors.NoEmptyLists, "sexp", &ast.Span{Begin: begin, End: end},
					"empty lists are not permitted")
			}
			return ast.NewList(children, ast.Span{Begin: begin, End: end}), nil
		case lexer.EOF:
			return nil, errors.New(errors.FileError, "sexp", &ast.Span{Begin: begin},
				"unexpected end of file inside list starting at %s", begin)
		case lexer.LPAREN:
			r.next()
			child, rep := r.readList(tok)
			if rep != nil {
				return nil, rep
			}
			children = append(children, child)
		default:
			r.next()
			child, rep := atomFromToken(tok)
			if rep != nil {
				return nil, rep
			}
			children = append(children, child)
		}
	}
}

func atomFromToken(tok lexer.Token) (*ast.Node, *errors.Report) {
	span := ast.Span{Begin: pos(tok), End: pos(tok)}
	switch tok.Type {
	case lexer.IDENT:
		return ast.NewAtom(ast.Symbol, tok.Literal, span), nil
	case lexer.STRING:
		return ast.NewAtom(ast.Str, tok.Literal, span), nil
	case lexer.INT:
		if _, err := strconv.ParseInt(tok.Literal, 0, 64); err != nil {
			return nil, errors.New(errors.UnableToParseInteger, "sexp", &span,
				"unable to parse integer literal %q", tok.Literal)
		}
		return ast.NewAtom(ast.Int, tok.Literal, span), nil
	case lexer.FLOAT:
		if _, err := strconv.ParseFloat(tok.Literal, 64); err != nil {
			return nil, errors.New(errors.InvalidFloatingPointNumber, "sexp", &span,
				"invalid floating point literal %q", tok.Literal)
		}
		return ast.NewAtom(ast.Float, tok.Literal, span), nil
	default:
		return nil, errors.New(errors.UnexpectedElement, "sexp", &span,
			"unexpected token %s", tok.Type)
	}
}
