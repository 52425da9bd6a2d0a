package ast

import (
	"testing"

	"github.com/droe-lang/droe/internal/token"
)

func tok(kind token.Kind, lit string) token.Token {
	return token.Token{Kind: kind, Literal: lit, Pos: token.Position{File: "t.droe", Line: 1, Column: 1}}
}

func TestProgramString(t *testing.T) {
	p := &Program{
		File: "t.droe",
		Metadata: []*Metadata{
			{Token: tok(token.AT, "@"), Key: "name", Value: "demo"},
		},
		Nodes: []TopLevel{
			&DisplayStatement{
				Token: tok(token.DISPLAY, "display"),
				Value: &TextLiteral{Token: tok(token.STRING, "hi"), Value: "hi"},
			},
		},
	}
	want := "@name demo\ndisplay \"hi\"\n"
	if got := p.String(); got != want {
		t.Fatalf("Program.String() = %q, want %q", got, want)
	}
}

func TestTypeRefResolve(t *testing.T) {
	tr := &TypeRef{Collection: ListKind, Elem: &TypeRef{Primitive: PrimInt}}
	got := tr.Resolve()
	if !got.IsCollection() || got.Elem.Primitive != PrimInt {
		t.Fatalf("Resolve() = %#v", got)
	}
	if got.String() != "list of int" {
		t.Fatalf("String() = %q", got.String())
	}
}

func TestTypeEquality(t *testing.T) {
	a := Int()
	b := &Type{Primitive: PrimInt}
	if !a.Equal(b) {
		t.Fatalf("expected int == int")
	}
	if a.Equal(Decimal()) {
		t.Fatalf("expected int != decimal")
	}
	list1 := ListOf(Int())
	list2 := ListOf(Int())
	if !list1.Equal(list2) {
		t.Fatalf("expected list of int == list of int")
	}
}

func TestResolvePrimitiveNameLegacyAlias(t *testing.T) {
	p, ok := ResolvePrimitiveName("number")
	if !ok || p != PrimInt {
		t.Fatalf("expected legacy alias number -> int, got %v %v", p, ok)
	}
}

func TestWhenStatementString(t *testing.T) {
	s := &WhenStatement{
		Token: tok(token.WHEN, "when"),
		Clauses: []WhenClause{
			{
				Condition: &FlagLiteral{Token: tok(token.TRUE, "true"), Value: true},
				Body:      &Block{Statements: []Statement{&DisplayStatement{Token: tok(token.DISPLAY, "display"), Value: &IntLiteral{Token: tok(token.INT, "1"), Value: 1}}}},
			},
			{
				Condition: nil,
				Body:      &Block{Statements: []Statement{&DisplayStatement{Token: tok(token.DISPLAY, "display"), Value: &IntLiteral{Token: tok(token.INT, "2"), Value: 2}}}},
			},
		},
	}
	got := s.String()
	if got == "" {
		t.Fatal("expected non-empty String()")
	}
}

func TestDecimalLiteralString(t *testing.T) {
	d := &DecimalLiteral{Token: tok(token.DECIMAL, "19.99"), Scaled: 1999}
	if got := d.String(); got != "19.99" {
		t.Fatalf("got %q", got)
	}
	zeroFrac := &DecimalLiteral{Token: tok(token.DECIMAL, "5.00"), Scaled: 500}
	if got := zeroFrac.String(); got != "5.00" {
		t.Fatalf("got %q", got)
	}
}

func TestInterpolatedStringRoundTrip(t *testing.T) {
	s := &InterpolatedString{
		Token:  tok(token.ISTRING_BEGIN, "\""),
		Chunks: []string{"Hello, ", "!"},
		Exprs:  []Expression{&Identifier{Token: tok(token.IDENT, "name"), Name: "name"}},
	}
	want := `"Hello, [name]!"`
	if got := s.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
