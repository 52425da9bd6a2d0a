package lexer

import (
	"testing"

	"github.com/droe-lang/droe/internal/token"
)

func collect(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New("test.droe", input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestBasicKeywordsAndIdent(t *testing.T) {
	toks := collect(t, "set counter to 1")

	want := []struct {
		kind token.Kind
		lit  string
	}{
		{token.SET, "set"},
		{token.IDENT, "counter"},
		{token.TO, "to"},
		{token.INT, "1"},
		{token.EOF, ""},
	}

	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Literal != w.lit {
			t.Errorf("token[%d] = %s, want kind=%s lit=%q", i, toks[i], w.kind, w.lit)
		}
	}
}

func TestLongestMatchMultiWordKeyword(t *testing.T) {
	toks := collect(t, "counter is greater than or equal to 10")

	if toks[1].Kind != token.IS_GREATER_THAN_OR_EQUAL_TO {
		t.Fatalf("expected longest multi-word match, got %s (%q)", toks[1].Kind, toks[1].Literal)
	}
}

func TestMultiWordDoesNotOvermatch(t *testing.T) {
	toks := collect(t, "counter is less than 10")
	if toks[1].Kind != token.IS_LESS_THAN {
		t.Fatalf("expected IS_LESS_THAN, got %s", toks[1].Kind)
	}
}

func TestForEachVsForAlone(t *testing.T) {
	toks := collect(t, "for each item in list")
	if toks[0].Kind != token.FOR_EACH {
		t.Fatalf("expected FOR_EACH, got %s", toks[0].Kind)
	}
}

func TestEndKeywordVariants(t *testing.T) {
	cases := map[string]token.Kind{
		"end when":     token.END_WHEN,
		"end while":    token.END_WHILE,
		"end for":      token.END_FOR,
		"end action":   token.END_ACTION,
		"end module":   token.END_MODULE,
		"end data":     token.END_DATA,
		"end fragment": token.END_FRAGMENT,
		"end screen":   token.END_SCREEN,
		"end slot":     token.END_SLOT,
	}
	for src, kind := range cases {
		toks := collect(t, src)
		if toks[0].Kind != kind {
			t.Errorf("%q: expected %s, got %s", src, kind, toks[0].Kind)
		}
	}
}

func TestIntegerLiteral(t *testing.T) {
	toks := collect(t, "1234")
	if toks[0].Kind != token.INT || toks[0].Literal != "1234" {
		t.Fatalf("got %v", toks[0])
	}
}

func TestDecimalLiteral(t *testing.T) {
	toks := collect(t, "1234.56")
	if toks[0].Kind != token.DECIMAL || toks[0].Literal != "1234.56" {
		t.Fatalf("got %v", toks[0])
	}
}

func TestIntOverflowReportsLexError(t *testing.T) {
	l := New("test.droe", "99999999999")
	l.NextToken()
	errs := l.Errors()
	if len(errs) != 1 || errs[0].Kind != "lex.overflow" {
		t.Fatalf("expected one lex.overflow error, got %v", errs)
	}
}

func TestSimpleStringLiteral(t *testing.T) {
	toks := collect(t, `"Hello, World!"`)
	want := []token.Kind{token.ISTRING_BEGIN, token.STRING, token.ISTRING_END, token.EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token[%d] = %s, want %s (full=%v)", i, toks[i].Kind, k, toks)
		}
	}
	if toks[1].Literal != "Hello, World!" {
		t.Fatalf("chunk literal = %q", toks[1].Literal)
	}
}

func TestStringEscapes(t *testing.T) {
	toks := collect(t, `"line1\nline2\ttab"`)
	if toks[1].Literal != "line1\nline2\ttab" {
		t.Fatalf("got %q", toks[1].Literal)
	}
}

func TestInterpolatedString(t *testing.T) {
	toks := collect(t, `"Hello, [name]!"`)
	wantKinds := []token.Kind{
		token.ISTRING_BEGIN,
		token.STRING,       // "Hello, "
		token.INTERP_START, // [
		token.IDENT,        // name
		token.INTERP_END,   // ]
		token.STRING,       // "!"
		token.ISTRING_END,
		token.EOF,
	}
	if len(toks) != len(wantKinds) {
		t.Fatalf("got %d tokens %v, want %d", len(toks), toks, len(wantKinds))
	}
	for i, k := range wantKinds {
		if toks[i].Kind != k {
			t.Errorf("token[%d] = %s, want %s", i, toks[i].Kind, k)
		}
	}
	if toks[1].Literal != "Hello, " || toks[5].Literal != "!" {
		t.Fatalf("chunk text wrong: %q / %q", toks[1].Literal, toks[5].Literal)
	}
}

func TestInterpolationLeadingChunk(t *testing.T) {
	toks := collect(t, `"[name] says hi"`)
	if toks[1].Kind != token.INTERP_START {
		t.Fatalf("expected INTERP_START immediately, got %s", toks[1].Kind)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := collect(t, "set x to 1 // a comment\nset y to 2")
	var kinds []token.Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	for _, k := range kinds {
		if k == token.COMMENT {
			t.Fatalf("comment token leaked into stream: %v", kinds)
		}
	}
}

func TestBlockComment(t *testing.T) {
	toks := collect(t, "set x /* skip\nthis */ to 1")
	if toks[0].Kind != token.SET || toks[1].Kind != token.IDENT || toks[2].Kind != token.TO {
		t.Fatalf("block comment not skipped: %v", toks)
	}
}

func TestNewlineCollapsing(t *testing.T) {
	toks := collect(t, "set x to 1\n\n\nset y to 2")
	count := 0
	for _, tk := range toks {
		if tk.Kind == token.NEWLINE {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one collapsed NEWLINE, got %d", count)
	}
}

func TestPositions(t *testing.T) {
	toks := collect(t, "set x to 1")
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Fatalf("unexpected position for first token: %v", toks[0].Pos)
	}
}
