package diagnostics

import (
	"strings"
	"testing"

	"github.com/droe-lang/droe/internal/token"
	"github.com/gkampitakis/go-snaps/snaps"
)

func TestFormatWithPositionShowsCaretUnderColumn(t *testing.T) {
	source := "set total to 2 plus\n"
	d := Diagnostic{
		Kind:    "parse.expected_expression",
		Message: "expected an expression after 'plus'",
		Pos:     token.Position{File: "t.droe", Line: 1, Column: 15},
		HasPos:  true,
	}
	out := Format(d, source, "t.droe", false)
	if !strings.Contains(out, "t.droe:1:15: parse.expected_expression") {
		t.Fatalf("missing header, got:\n%s", out)
	}
	if !strings.Contains(out, source[:len(source)-1]) {
		t.Fatalf("missing source line, got:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("missing caret, got:\n%s", out)
	}
}

func TestFormatWithoutPositionOmitsSourceContext(t *testing.T) {
	d := Diagnostic{Kind: "resolve.include_cycle", Message: "include cycle detected"}
	out := Format(d, "irrelevant source\n", "t.droe", false)
	if out != "resolve.include_cycle: include cycle detected\n" {
		t.Fatalf("got %q", out)
	}
}

func TestFormatAllSingleDiagnosticSkipsNumbering(t *testing.T) {
	ds := []Diagnostic{{Kind: "type.mismatch", Message: "expected int, got text"}}
	out := FormatAll(ds, "", "t.droe", false)
	if strings.Contains(out, "error(s):") {
		t.Fatalf("single diagnostic should not be numbered, got:\n%s", out)
	}
}

func TestFormatAllMultipleDiagnosticsNumbersEach(t *testing.T) {
	ds := []Diagnostic{
		{Kind: "type.mismatch", Message: "expected int, got text"},
		{Kind: "type.unknown_field", Message: "Order has no field \"qty\""},
	}
	out := FormatAll(ds, "", "t.droe", false)
	snaps.MatchSnapshot(t, "two_type_errors", out)
}

func TestFromRuntimeTreatsLineZeroAsNoPosition(t *testing.T) {
	d := FromRuntime("runtime.overflow", "int addition overflowed", 0)
	if d.HasPos {
		t.Fatalf("line 0 should not count as a position, got %#v", d)
	}
}
