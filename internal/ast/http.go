package ast

import (
	"strings"

	"github.com/droe-lang/droe/internal/token"
)

// ServeDecl declares an inbound HTTP endpoint, "serve <method> <path> ...
// end serve" (spec §5.1). PathParams are the ":name" segments of Path.
type ServeDecl struct {
	Token      token.Token
	Method     string
	Path       string
	PathParams []string
	Body       *Block
}

func (d *ServeDecl) topLevelNode()      {}
func (d *ServeDecl) Pos() token.Position { return d.Token.Pos }
func (d *ServeDecl) String() string {
	var sb strings.Builder
	sb.WriteString("serve " + d.Method + " " + d.Path + "\n")
	sb.WriteString(d.Body.String())
	sb.WriteString("end serve")
	return sb.String()
}

// RespondStatement ends an endpoint handler with a status and payload,
// "respond <status> with <expr>" (spec §5.1).
type RespondStatement struct {
	Token  token.Token
	Status Expression
	Body   Expression
}

func (s *RespondStatement) stmtNode()          {}
func (s *RespondStatement) topLevelNode()      {}
func (s *RespondStatement) Pos() token.Position { return s.Token.Pos }
func (s *RespondStatement) String() string {
	return "respond " + s.Status.String() + " with " + s.Body.String()
}

// DBOperation is the verb of a DBStatement.
type DBOperation int

const (
	DBCreate DBOperation = iota
	DBFind
	DBFindAll
	DBUpdate
	DBDelete
)

var dbOpNames = map[DBOperation]string{
	DBCreate: "create", DBFind: "find", DBFindAll: "find all",
	DBUpdate: "update", DBDelete: "delete",
}

func (op DBOperation) String() string { return dbOpNames[op] }

// DBWhereClause is a single "where <field> equals <expr>" predicate.
type DBWhereClause struct {
	Field string
	Value Expression
}

// DBExpression is a "db create|find|find all|update|delete <Entity> [with
// <field-assignments>] [where <cond>] [set <field-assignments>]" data-access
// expression (spec §4.2). It is a value-producing node: its result is bound
// with an ordinary "set <name> to db ..." declaration, or discarded as an
// ExpressionStatement. The host interface (C9) executes it; the VM only
// marshals the request/response.
type DBExpression struct {
	Token    token.Token
	Op       DBOperation
	Record   string
	With     []Argument      // field assignments for create / predicate seed
	Where    []DBWhereClause // filter predicate for find/update/delete
	Set      []Argument      // field assignments for update
}

func (e *DBExpression) exprNode()           {}
func (e *DBExpression) Pos() token.Position { return e.Token.Pos }
func (e *DBExpression) String() string {
	var sb strings.Builder
	sb.WriteString("db " + e.Op.String() + " " + e.Record)
	if len(e.With) > 0 {
		sb.WriteString(" with ")
		for i, f := range e.With {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name + " which is " + f.Value.String())
		}
	}
	for _, w := range e.Where {
		sb.WriteString(" where " + w.Field + " equals " + w.Value.String())
	}
	if len(e.Set) > 0 {
		sb.WriteString(" set ")
		for i, f := range e.Set {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name + " which is " + f.Value.String())
		}
	}
	return sb.String()
}

// CallStatement is an outbound HTTP call, "call <url-expr> method <METHOD>
// [with <body-expr>] [using headers <kv-block> end headers] into <name>"
// (spec §4.2).
type CallStatement struct {
	Token     token.Token
	URL       Expression
	Method    string
	Body      Expression // nil if the call has no request body
	Headers   []Argument
	ResultVar string
}

func (s *CallStatement) stmtNode()          {}
func (s *CallStatement) topLevelNode()      {}
func (s *CallStatement) Pos() token.Position { return s.Token.Pos }
func (s *CallStatement) String() string {
	var sb strings.Builder
	sb.WriteString("call " + s.URL.String() + " method " + s.Method)
	if s.Body != nil {
		sb.WriteString(" with " + s.Body.String())
	}
	if len(s.Headers) > 0 {
		sb.WriteString(" using headers")
	}
	if s.ResultVar != "" {
		sb.WriteString(" into " + s.ResultVar)
	}
	return sb.String()
}
