// Package ast defines the typed node variants that make up the Droe
// abstract syntax tree, per spec §3. Every node carries a source span so
// diagnostics at every later phase can point back at source text.
package ast

import (
	"strings"

	"github.com/droe-lang/droe/internal/token"
)

// Node is implemented by every AST node.
type Node interface {
	Pos() token.Position
	String() string
}

// Expression is any node that produces a value.
type Expression interface {
	Node
	exprNode()
}

// Statement is any node that performs an action.
type Statement interface {
	Node
	stmtNode()
}

// TopLevel is a node that may appear directly in a Program (a Module, a
// Statement, or a metadata annotation).
type TopLevel interface {
	Node
	topLevelNode()
}

// Metadata is an "@key value" annotation at the top of a file.
type Metadata struct {
	Token token.Token
	Key   string
	Value string
}

func (m *Metadata) topLevelNode()     {}
func (m *Metadata) Pos() token.Position { return m.Token.Pos }
func (m *Metadata) String() string      { return "@" + m.Key + " " + m.Value }

// Program is the root of the AST: an ordered sequence of metadata
// annotations followed by module and/or statement nodes.
type Program struct {
	File     string
	Metadata []*Metadata
	Includes []*IncludeDecl
	Nodes    []TopLevel // Modules and top-level Statements, in source order
}

func (p *Program) Pos() token.Position {
	if len(p.Nodes) > 0 {
		return p.Nodes[0].Pos()
	}
	return token.Position{File: p.File, Line: 1, Column: 1}
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, m := range p.Metadata {
		sb.WriteString(m.String())
		sb.WriteByte('\n')
	}
	for _, n := range p.Nodes {
		sb.WriteString(n.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// IncludeDecl is an "@include Name from "path"" directive, expanded by the
// module resolver (C4) before type checking.
type IncludeDecl struct {
	Token token.Token
	Name  string
	Path  string
}

func (d *IncludeDecl) Pos() token.Position { return d.Token.Pos }
func (d *IncludeDecl) String() string {
	return "@include " + d.Name + " from \"" + d.Path + "\""
}

// Identifier is a bare name reference.
type Identifier struct {
	Token token.Token
	Name  string
}

func (i *Identifier) exprNode()          {}
func (i *Identifier) Pos() token.Position { return i.Token.Pos }
func (i *Identifier) String() string      { return i.Name }

// Block is a sequence of statements, used as the body of actions, loops,
// and conditional arms.
type Block struct {
	Statements []Statement
}

func (b *Block) Pos() token.Position {
	if len(b.Statements) > 0 {
		return b.Statements[0].Pos()
	}
	return token.Position{}
}

func (b *Block) String() string {
	var sb strings.Builder
	for _, s := range b.Statements {
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
