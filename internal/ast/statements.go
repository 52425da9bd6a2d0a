package ast

import (
	"strings"

	"github.com/droe-lang/droe/internal/token"
)

// DisplayStatement is "display <expr>".
type DisplayStatement struct {
	Token token.Token
	Value Expression
}

func (s *DisplayStatement) stmtNode()          {}
func (s *DisplayStatement) topLevelNode()      {}
func (s *DisplayStatement) Pos() token.Position { return s.Token.Pos }
func (s *DisplayStatement) String() string      { return "display " + s.Value.String() }

// SetStatement declares and binds a new local, "set <name> to <expr>" or
// "set <name> which is <type> to <expr>".
type SetStatement struct {
	Token    token.Token
	Name     string
	TypeHint *TypeRef // nil if the type is inferred from Value
	Value    Expression
}

func (s *SetStatement) stmtNode()          {}
func (s *SetStatement) topLevelNode()      {}
func (s *SetStatement) Pos() token.Position { return s.Token.Pos }
func (s *SetStatement) String() string {
	if s.TypeHint != nil {
		return "set " + s.Name + " which is " + s.TypeHint.String() + " to " + s.Value.String()
	}
	return "set " + s.Name + " to " + s.Value.String()
}

// ReassignStatement rebinds an existing binding. The parser always produces
// SetStatement; nothing currently constructs a ReassignStatement, but the
// checker and emitter still handle it defensively since a binding-rebind
// form is a natural extension of "set <name> to <expr>".
type ReassignStatement struct {
	Token token.Token
	Name  string
	Value Expression
}

func (s *ReassignStatement) stmtNode()          {}
func (s *ReassignStatement) topLevelNode()      {}
func (s *ReassignStatement) Pos() token.Position { return s.Token.Pos }
func (s *ReassignStatement) String() string      { return "set " + s.Name + " to " + s.Value.String() }

// WhenClause is one arm of a WhenStatement: "when <cond>" or
// "otherwise when <cond>", or the trailing "otherwise" (Condition nil).
type WhenClause struct {
	Token     token.Token
	Condition Expression // nil for the trailing "otherwise" arm
	Body      *Block
}

// WhenStatement is the full "when ... then ... [otherwise when ...] ...
// [otherwise ...] end when" conditional chain.
type WhenStatement struct {
	Token   token.Token
	Clauses []WhenClause
}

func (s *WhenStatement) stmtNode()          {}
func (s *WhenStatement) topLevelNode()      {}
func (s *WhenStatement) Pos() token.Position { return s.Token.Pos }
func (s *WhenStatement) String() string {
	var sb strings.Builder
	for i, c := range s.Clauses {
		switch {
		case c.Condition == nil:
			sb.WriteString("otherwise\n")
		case i == 0:
			sb.WriteString("when " + c.Condition.String() + " then\n")
		default:
			sb.WriteString("otherwise when " + c.Condition.String() + " then\n")
		}
		sb.WriteString(c.Body.String())
	}
	sb.WriteString("end when")
	return sb.String()
}

// WhileStatement is "while <cond> ... end while".
type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      *Block
}

func (s *WhileStatement) stmtNode()          {}
func (s *WhileStatement) topLevelNode()      {}
func (s *WhileStatement) Pos() token.Position { return s.Token.Pos }
func (s *WhileStatement) String() string {
	return "while " + s.Condition.String() + "\n" + s.Body.String() + "end while"
}

// ForEachStatement is "for each <var> in <collection> ... end for".
type ForEachStatement struct {
	Token      token.Token
	Var        string
	Collection Expression
	Body       *Block
}

func (s *ForEachStatement) stmtNode()          {}
func (s *ForEachStatement) topLevelNode()      {}
func (s *ForEachStatement) Pos() token.Position { return s.Token.Pos }
func (s *ForEachStatement) String() string {
	return "for each " + s.Var + " in " + s.Collection.String() + "\n" + s.Body.String() + "end for"
}

// ReturnStatement is "give <expr>", the value-producing return from an
// action/task body.
type ReturnStatement struct {
	Token token.Token
	Value Expression // nil for a task with no return value
}

func (s *ReturnStatement) stmtNode()          {}
func (s *ReturnStatement) topLevelNode()      {}
func (s *ReturnStatement) Pos() token.Position { return s.Token.Pos }
func (s *ReturnStatement) String() string {
	if s.Value == nil {
		return "give"
	}
	return "give " + s.Value.String()
}

// ExpressionStatement wraps a value-producing expression used standalone as
// a statement, e.g. a bare action call invoked for its side effects.
type ExpressionStatement struct {
	Token token.Token
	Expr  Expression
}

func (s *ExpressionStatement) stmtNode()          {}
func (s *ExpressionStatement) topLevelNode()      {}
func (s *ExpressionStatement) Pos() token.Position { return s.Token.Pos }
func (s *ExpressionStatement) String() string      { return s.Expr.String() }
