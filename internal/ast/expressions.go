package ast

import (
	"strconv"
	"strings"

	"github.com/droe-lang/droe/internal/token"
)

// BinaryOp is the operator of a BinaryExpression.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAnd
	OpOr
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "plus", OpSub: "minus", OpMul: "times", OpDiv: "divided by",
	OpEq: "equals", OpNotEq: "does not equal",
	OpLt: "is less than", OpLtEq: "is less than or equal to",
	OpGt: "is greater than", OpGtEq: "is greater than or equal to",
	OpAnd: "and", OpOr: "or",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// BinaryExpression is a two-operand arithmetic, comparison, or logical
// expression (spec §4.2 precedence ladder).
type BinaryExpression struct {
	Token token.Token
	Left  Expression
	Op    BinaryOp
	Right Expression
}

func (e *BinaryExpression) exprNode()           {}
func (e *BinaryExpression) Pos() token.Position { return e.Token.Pos }
func (e *BinaryExpression) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

// UnaryExpression is a prefix "not" or unary "minus".
type UnaryExpression struct {
	Token    token.Token
	Op       string // "not" or "minus"
	Operand  Expression
}

func (e *UnaryExpression) exprNode()           {}
func (e *UnaryExpression) Pos() token.Position { return e.Token.Pos }
func (e *UnaryExpression) String() string      { return "(" + e.Op + " " + e.Operand.String() + ")" }

// PropertyAccess is a "." field-access chain, e.g. "order.customer.name".
type PropertyAccess struct {
	Token    token.Token
	Target   Expression
	Property string
}

func (e *PropertyAccess) exprNode()           {}
func (e *PropertyAccess) Pos() token.Position { return e.Token.Pos }
func (e *PropertyAccess) String() string      { return e.Target.String() + "." + e.Property }

// CollectionLiteral is a "list of ..." or "group of ..." literal with
// explicit elements, e.g. "list of 1, 2, 3".
type CollectionLiteral struct {
	Token    token.Token
	Kind     CollectionKind
	Elements []Expression
}

func (e *CollectionLiteral) exprNode()           {}
func (e *CollectionLiteral) Pos() token.Position { return e.Token.Pos }
func (e *CollectionLiteral) String() string {
	var sb strings.Builder
	if e.Kind == GroupKind {
		sb.WriteString("group of ")
	} else {
		sb.WriteString("list of ")
	}
	for i, el := range e.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(el.String())
	}
	return sb.String()
}

// InterpolatedString is a string literal containing one or more "[expr]"
// substitutions. Chunks and Exprs are interleaved: Chunks[0], Exprs[0],
// Chunks[1], Exprs[1], ..., Chunks[n] (len(Chunks) == len(Exprs)+1).
type InterpolatedString struct {
	Token  token.Token
	Chunks []string
	Exprs  []Expression
}

func (e *InterpolatedString) exprNode()           {}
func (e *InterpolatedString) Pos() token.Position { return e.Token.Pos }
func (e *InterpolatedString) String() string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i, c := range e.Chunks {
		sb.WriteString(c)
		if i < len(e.Exprs) {
			sb.WriteByte('[')
			sb.WriteString(e.Exprs[i].String())
			sb.WriteByte(']')
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// EmptyCheckExpression is "<expr> is empty" / "<expr> is not empty", a
// postfix test over a collection or text value (spec §4.4).
type EmptyCheckExpression struct {
	Token   token.Token
	Value   Expression
	Negated bool // true for "is not empty"
}

func (e *EmptyCheckExpression) exprNode()           {}
func (e *EmptyCheckExpression) Pos() token.Position { return e.Token.Pos }
func (e *EmptyCheckExpression) String() string {
	if e.Negated {
		return e.Value.String() + " is not empty"
	}
	return e.Value.String() + " is empty"
}

// FormatExpression is "<expr> format as <pattern>" (spec §4.2/§4.4).
type FormatExpression struct {
	Token   token.Token
	Value   Expression
	Pattern string
}

func (e *FormatExpression) exprNode()           {}
func (e *FormatExpression) Pos() token.Position { return e.Token.Pos }
func (e *FormatExpression) String() string {
	return e.Value.String() + " format as " + strconv.Quote(e.Pattern)
}

// ActionCallExpression invokes an in-module action/task for its result
// value, e.g. "add with a which is 1, b which is 2".
type ActionCallExpression struct {
	Token     token.Token
	Module    string // qualifying module, empty if unqualified
	Action    string
	Arguments []Argument
}

// Argument is a single "<name> which is <expr>" actual parameter.
type Argument struct {
	Name  string
	Value Expression
}

func (e *ActionCallExpression) exprNode()           {}
func (e *ActionCallExpression) Pos() token.Position { return e.Token.Pos }
func (e *ActionCallExpression) String() string {
	var sb strings.Builder
	if e.Module != "" {
		sb.WriteString(e.Module + ".")
	}
	sb.WriteString(e.Action)
	if len(e.Arguments) > 0 {
		sb.WriteString(" with ")
		for i, a := range e.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.Name + " which is " + a.Value.String())
		}
	}
	return sb.String()
}

// HTTPCallExpression is an outbound "call <method> <url> ... into <var>"
// expression's value-producing form (spec §5.2).
type HTTPCallExpression struct {
	Token   token.Token
	Method  string
	URL     Expression
	Headers []Argument
	Body    Expression
}

func (e *HTTPCallExpression) exprNode()           {}
func (e *HTTPCallExpression) Pos() token.Position { return e.Token.Pos }
func (e *HTTPCallExpression) String() string {
	return "call " + e.Method + " " + e.URL.String()
}
