package checker

import (
	"testing"

	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/lexer"
	"github.com/droe-lang/droe/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New("t.droe", src)
	p := parser.New("t.droe", l)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	return prog
}

func TestCheckSimpleProgramHasNoErrors(t *testing.T) {
	prog := mustParse(t, "set counter to 1\ndisplay counter\n")
	c := New()
	if !c.Check(prog) {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
}

func TestCheckUnknownIdentifier(t *testing.T) {
	prog := mustParse(t, "display missing\n")
	c := New()
	if c.Check(prog) {
		t.Fatalf("expected an error")
	}
	if c.Errors()[0].Kind != "type.unknown_identifier" {
		t.Fatalf("got %v", c.Errors())
	}
}

func TestCheckArithmeticPromotesToDecimal(t *testing.T) {
	prog := mustParse(t, "set total to 1 plus 2.50\n")
	c := New()
	if !c.Check(prog) {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
}

func TestCheckComparisonRequiresNumeric(t *testing.T) {
	prog := mustParse(t, `set a to "x"
set b to a is greater than 1
`)
	c := New()
	c.Check(prog)
	found := false
	for _, e := range c.Errors() {
		if e.Kind == "type.incompatible_assignment" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a type error, got %v", c.Errors())
	}
}

func TestCheckActionCallArityMismatch(t *testing.T) {
	src := `action add with a which is int, b which is int gives int
give a plus b
end action
set result to add with a which is 1
`
	prog := mustParse(t, src)
	c := New()
	c.Check(prog)
	found := false
	for _, e := range c.Errors() {
		if e.Kind == "type.arity_mismatch" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an arity mismatch error, got %v", c.Errors())
	}
}

func TestCheckActionCallSuccess(t *testing.T) {
	src := `action add with a which is int, b which is int gives int
give a plus b
end action
set result to add with a which is 1, b which is 2
`
	prog := mustParse(t, src)
	c := New()
	if !c.Check(prog) {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
}

func TestCheckFormatPatternMismatch(t *testing.T) {
	prog := mustParse(t, `set n to 5
display n format as "0.00"
`)
	c := New()
	c.Check(prog)
	found := false
	for _, e := range c.Errors() {
		if e.Kind == "type.bad_format_pattern" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a bad format pattern error, got %v", c.Errors())
	}
}

func TestCheckDataDeclRegistersRecordForForwardReference(t *testing.T) {
	src := `data Order
id is text key auto
total is decimal required
end data
`
	prog := mustParse(t, src)
	c := New()
	if !c.Check(prog) {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
}

func TestCheckDuplicateActionInModule(t *testing.T) {
	src := `module m
action a
end action
action a
end action
end module
`
	prog := mustParse(t, src)
	c := New()
	c.Check(prog)
	found := false
	for _, e := range c.Errors() {
		if e.Kind == "resolve.duplicate_definition" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a duplicate definition error, got %v", c.Errors())
	}
}

func TestCheckForEachOverList(t *testing.T) {
	src := "set items to list of 1, 2, 3\nfor each item in items\ndisplay item\nend for\n"
	prog := mustParse(t, src)
	c := New()
	if !c.Check(prog) {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
}

func TestCheckIsEmptyOnNonCollection(t *testing.T) {
	src := "set n to 5\nset ok to n is empty\n"
	prog := mustParse(t, src)
	c := New()
	c.Check(prog)
	found := false
	for _, e := range c.Errors() {
		if e.Kind == "type.incompatible_assignment" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a type error, got %v", c.Errors())
	}
}
