package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Encode produces the canonical encoded-name form used in symbol
// mangling (spec.md §4.1 "encode(T) -> string"). It is deterministic
// and total: two structurally-equal Types (ignoring argument-constness
// is never applied here, since mangling must distinguish const from
// non-const parameters) always encode identically.
func (t *Type) Encode() string {
	return t.encode(true)
}

func (t *Type) encode(includeConst bool) string {
	var b strings.Builder
	t.writeEncoded(&b, includeConst)
	return b.String()
}

func (t *Type) writeEncoded(b *strings.Builder, includeConst bool) {
	if t == nil {
		b.WriteString("?")
		return
	}
	if includeConst && t.isConst {
		b.WriteString("c$")
	}
	switch t.kind {
	case KindBasic:
		b.WriteString(t.base.String())
	case KindPointer:
		b.WriteString("p$")
		t.pointsTo.writeEncoded(b, includeConst)
	case KindArray:
		b.WriteString("a$")
		b.WriteString(strconv.FormatInt(t.size, 10))
		b.WriteString("$")
		t.elem.writeEncoded(b, includeConst)
	case KindFunction:
		b.WriteString("fn$")
		t.ret.writeEncoded(b, includeConst)
		b.WriteString("$(")
		for i, p := range t.params {
			if i > 0 {
				b.WriteString(",")
			}
			p.writeEncoded(b, includeConst)
		}
		b.WriteString(")")
	case KindNamed:
		kindTag := "struct"
		if !t.isStruct {
			kindTag = "enum"
		}
		fmt.Fprintf(b, "%s$%s", kindTag, t.qualifiedName)
	}
	if t.bitfieldWidth > 0 {
		fmt.Fprintf(b, "$bf%d", t.bitfieldWidth)
	}
}

// Pretty produces a human-readable form suitable for diagnostics,
// e.g. "(p (const int32))" or "(array-of 4 char)".
func (t *Type) Pretty() string {
	if t == nil {
		return "<unknown>"
	}
	inner := t.prettyCore()
	if t.isConst {
		return fmt.Sprintf("(const %s)", inner)
	}
	return inner
}

func (t *Type) prettyCore() string {
	switch t.kind {
	case KindBasic:
		return t.base.String()
	case KindPointer:
		return fmt.Sprintf("(p %s)", t.pointsTo.Pretty())
	case KindArray:
		size := "?"
		if t.size != 0 {
			size = strconv.FormatInt(t.size, 10)
		}
		return fmt.Sprintf("(array-of %s %s)", size, t.elem.Pretty())
	case KindFunction:
		params := make([]string, len(t.params))
		for i, p := range t.params {
			params[i] = p.Pretty()
		}
		return fmt.Sprintf("(fn %s (%s))", t.ret.Pretty(), strings.Join(params, " "))
	case KindNamed:
		return t.qualifiedName
	default:
		return "?"
	}
}

func (t *Type) String() string { return t.Pretty() }
