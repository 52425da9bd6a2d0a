package parser

import (
	"testing"

	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/lexer"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New("test.droe", src)
	p := New("test.droe", l)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	return prog
}

func TestParseSetAndDisplay(t *testing.T) {
	prog := parse(t, "set counter to 1\ndisplay counter\n")
	if len(prog.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d: %v", len(prog.Nodes), prog.Nodes)
	}
	set, ok := prog.Nodes[0].(*ast.SetStatement)
	if !ok || set.Name != "counter" {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
	if _, ok := prog.Nodes[1].(*ast.DisplayStatement); !ok {
		t.Fatalf("got %#v", prog.Nodes[1])
	}
}

func TestParseSetWithTypeHint(t *testing.T) {
	prog := parse(t, "set price which is decimal to 19.99\n")
	set := prog.Nodes[0].(*ast.SetStatement)
	if set.TypeHint == nil || set.TypeHint.Primitive != ast.PrimDecimal {
		t.Fatalf("got %#v", set.TypeHint)
	}
	lit, ok := set.Value.(*ast.DecimalLiteral)
	if !ok || lit.Scaled != 1999 {
		t.Fatalf("got %#v", set.Value)
	}
}

func TestParseWhenBlockChain(t *testing.T) {
	src := `when score is greater than or equal to 90 then
display "A"
otherwise when score is greater than or equal to 80 then
display "B"
otherwise
display "F"
end when
`
	prog := parse(t, src)
	ws, ok := prog.Nodes[0].(*ast.WhenStatement)
	if !ok {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
	if len(ws.Clauses) != 3 {
		t.Fatalf("expected 3 clauses, got %d", len(ws.Clauses))
	}
	if ws.Clauses[2].Condition != nil {
		t.Fatalf("expected trailing otherwise clause with nil condition")
	}
}

func TestParseWhenSingleLine(t *testing.T) {
	prog := parse(t, "when flagged then display \"yes\"\n")
	ws := prog.Nodes[0].(*ast.WhenStatement)
	if len(ws.Clauses) != 1 || len(ws.Clauses[0].Body.Statements) != 1 {
		t.Fatalf("got %#v", ws)
	}
}

func TestParseWhileLoop(t *testing.T) {
	src := "while counter is less than 10\nset counter to counter plus 1\nend while\n"
	prog := parse(t, src)
	ws, ok := prog.Nodes[0].(*ast.WhileStatement)
	if !ok || len(ws.Body.Statements) != 1 {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
}

func TestParseForEach(t *testing.T) {
	src := "for each item in items\ndisplay item\nend for\n"
	prog := parse(t, src)
	fe, ok := prog.Nodes[0].(*ast.ForEachStatement)
	if !ok || fe.Var != "item" {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
}

func TestParseActionWithParamsAndReturn(t *testing.T) {
	src := `action add with a which is int, b which is int gives int
give a plus b
end action
`
	prog := parse(t, src)
	decl, ok := prog.Nodes[0].(*ast.ActionDecl)
	if !ok {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
	if len(decl.Params) != 2 || decl.ReturnType == nil || decl.ReturnType.Primitive != ast.PrimInt {
		t.Fatalf("got %#v", decl)
	}
	ret, ok := decl.Body.Statements[0].(*ast.ReturnStatement)
	if !ok || ret.Value == nil {
		t.Fatalf("got %#v", decl.Body.Statements[0])
	}
}

func TestParseTaskHasNoReturnType(t *testing.T) {
	src := "task log with msg which is text\ndisplay msg\nend action\n"
	prog := parse(t, src)
	decl := prog.Nodes[0].(*ast.ActionDecl)
	if !decl.IsTask || decl.ReturnType != nil {
		t.Fatalf("got %#v", decl)
	}
}

func TestParseModuleWithNestedAction(t *testing.T) {
	src := `module math
action square with n which is int gives int
give n times n
end action
end module
`
	prog := parse(t, src)
	mod, ok := prog.Nodes[0].(*ast.ModuleDecl)
	if !ok || mod.Name != "math" || len(mod.Nodes) != 1 {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
}

func TestParseDataDeclarationWithAnnotations(t *testing.T) {
	src := `data Order
id is text key auto
total is decimal required
end data
`
	prog := parse(t, src)
	decl, ok := prog.Nodes[0].(*ast.DataDecl)
	if !ok || len(decl.Fields) != 2 {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
	if len(decl.Fields[0].Annotations) != 2 {
		t.Fatalf("got %#v", decl.Fields[0])
	}
}

func TestParseServeEndpoint(t *testing.T) {
	src := `serve GET /users/:id
respond 200 with request
end serve
`
	prog := parse(t, src)
	decl, ok := prog.Nodes[0].(*ast.ServeDecl)
	if !ok || decl.Method != "GET" || len(decl.PathParams) != 1 || decl.PathParams[0] != "id" {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
	if _, ok := decl.Body.Statements[0].(*ast.RespondStatement); !ok {
		t.Fatalf("got %#v", decl.Body.Statements[0])
	}
}

func TestParseDBFindInto(t *testing.T) {
	src := "set found to db find User where id equals 1\n"
	prog := parse(t, src)
	set := prog.Nodes[0].(*ast.SetStatement)
	db, ok := set.Value.(*ast.DBExpression)
	if !ok || db.Op != ast.DBFind || db.Record != "User" || len(db.Where) != 1 {
		t.Fatalf("got %#v", set.Value)
	}
}

func TestParseInterpolatedStringExpression(t *testing.T) {
	src := `display "Hello, [name]!"` + "\n"
	prog := parse(t, src)
	disp := prog.Nodes[0].(*ast.DisplayStatement)
	is, ok := disp.Value.(*ast.InterpolatedString)
	if !ok || len(is.Exprs) != 1 {
		t.Fatalf("got %#v", disp.Value)
	}
}

func TestParseScreenWithElements(t *testing.T) {
	src := `screen Home
title "Welcome"
text "hello"
end screen
`
	prog := parse(t, src)
	decl, ok := prog.Nodes[0].(*ast.ScreenDecl)
	if !ok || len(decl.Elements) != 2 {
		t.Fatalf("got %#v", prog.Nodes[0])
	}
}

func TestParseMetadataAndInclude(t *testing.T) {
	src := "@name demo\n@include Shared from \"shared.droe\"\ndisplay 1\n"
	prog := parse(t, src)
	if len(prog.Metadata) != 1 || prog.Metadata[0].Key != "name" {
		t.Fatalf("got %#v", prog.Metadata)
	}
	if len(prog.Includes) != 1 || prog.Includes[0].Name != "Shared" {
		t.Fatalf("got %#v", prog.Includes)
	}
}

func TestParseErrorRecoveryContinuesAfterBadToken(t *testing.T) {
	l := lexer.New("test.droe", "set to 1\ndisplay 2\n")
	p := New("test.droe", l)
	prog := p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected at least one parse error")
	}
	if len(prog.Nodes) == 0 {
		t.Fatalf("expected parser to recover and still produce nodes")
	}
}
