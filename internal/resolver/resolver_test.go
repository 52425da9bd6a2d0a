package resolver

import (
	"fmt"
	"testing"

	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/lexer"
	"github.com/droe-lang/droe/internal/parser"
)

func parseSrc(t *testing.T, path, src string) *ast.Program {
	t.Helper()
	l := lexer.New(path, src)
	p := parser.New(path, l)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("%s: unexpected parse errors: %v", path, p.Errors())
	}
	return prog
}

func TestResolveExpandsSimpleInclude(t *testing.T) {
	files := map[string]string{
		"/src/shared.droe": "module shared\naction hi\ndisplay \"hi\"\nend action\nend module\n",
	}
	root := parseSrc(t, "/src/main.droe", "@include Shared from \"shared.droe\"\ndisplay 1\n")

	r := New(func(path string) (string, error) {
		if src, ok := files[path]; ok {
			return src, nil
		}
		return "", fmt.Errorf("not found: %s", path)
	})
	merged := r.Resolve("/src/main.droe", root)
	if len(r.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors())
	}
	if len(merged.Nodes) != 2 {
		t.Fatalf("expected 2 merged nodes (display + included module), got %d: %v", len(merged.Nodes), merged.Nodes)
	}
	if _, ok := merged.Nodes[1].(*ast.ModuleDecl); !ok {
		t.Fatalf("expected second node to be the included module, got %#v", merged.Nodes[1])
	}
}

func TestResolveDetectsCycle(t *testing.T) {
	files := map[string]string{
		"/src/a.droe": "@include B from \"b.droe\"\ndisplay 1\n",
		"/src/b.droe": "@include A from \"a.droe\"\ndisplay 2\n",
	}
	root := parseSrc(t, "/src/a.droe", files["/src/a.droe"])

	r := New(func(path string) (string, error) {
		if src, ok := files[path]; ok {
			return src, nil
		}
		return "", fmt.Errorf("not found: %s", path)
	})
	r.Resolve("/src/a.droe", root)
	found := false
	for _, e := range r.Errors() {
		if e.Kind == "resolve.include_cycle" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an include-cycle error, got %v", r.Errors())
	}
}

func TestResolveDetectsDuplicateModule(t *testing.T) {
	files := map[string]string{
		"/src/a.droe": "module shared\nend module\n",
		"/src/b.droe": "module shared\nend module\n",
	}
	root := parseSrc(t, "/src/main.droe", "@include A from \"a.droe\"\n@include B from \"b.droe\"\n")

	r := New(func(path string) (string, error) {
		if src, ok := files[path]; ok {
			return src, nil
		}
		return "", fmt.Errorf("not found: %s", path)
	})
	r.Resolve("/src/main.droe", root)
	found := false
	for _, e := range r.Errors() {
		if e.Kind == "resolve.duplicate_definition" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a duplicate-definition error, got %v", r.Errors())
	}
}

func TestResolveUnknownModuleReportsError(t *testing.T) {
	root := parseSrc(t, "/src/main.droe", "@include Missing from \"missing.droe\"\n")
	r := New(func(path string) (string, error) {
		return "", fmt.Errorf("not found: %s", path)
	})
	r.Resolve("/src/main.droe", root)
	if len(r.Errors()) != 1 || r.Errors()[0].Kind != "resolve.unknown_module" {
		t.Fatalf("got %v", r.Errors())
	}
}
