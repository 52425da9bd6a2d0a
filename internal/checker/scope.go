package checker

import "github.com/droe-lang/droe/internal/ast"

// Scope is a lexical block scope: a flat name->type map plus a parent
// link, searched innermost-first (spec §4.4: "an identifier must be
// declared before use in the same block").
type Scope struct {
	parent *Scope
	vars   map[string]*ast.Type
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]*ast.Type)}
}

func (s *Scope) declare(name string, t *ast.Type) {
	s.vars[name] = t
}

// lookup searches this scope and its ancestors, returning the declared
// type and whether it was found.
func (s *Scope) lookup(name string) (*ast.Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (s *Scope) child() *Scope { return newScope(s) }
