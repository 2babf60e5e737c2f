package lexer

import "testing"

func TestTokenizeSimpleForm(t *testing.T) {
	l := New(string(Normalize([]byte(`(def f (fn extern int (void) (return 0)))`))), "t.dt")
	var types []TokenType
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		types = append(types, tok.Type)
	}
	if len(types) == 0 || types[0] != LPAREN {
		t.Fatalf("expected stream to start with LPAREN, got %v", types)
	}
}

func TestNormalizeStripsBOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("(module m)")...)
	norm := Normalize(src)
	if string(norm) != "(module m)" {
		t.Fatalf("expected BOM stripped, got %q", norm)
	}
}

func TestNegativeIntegerLiteral(t *testing.T) {
	l := New("-7", "t.dt")
	tok := l.NextToken()
	if tok.Type != INT || tok.Literal != "-7" {
		t.Fatalf("expected INT(-7), got %v", tok)
	}
}
