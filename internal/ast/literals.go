package ast

import (
	"strconv"

	"github.com/droe-lang/droe/internal/token"
)

// IntLiteral is a bare integer literal, e.g. "42".
type IntLiteral struct {
	Token token.Token
	Value int64
}

func (l *IntLiteral) exprNode()           {}
func (l *IntLiteral) Pos() token.Position { return l.Token.Pos }
func (l *IntLiteral) String() string      { return strconv.FormatInt(l.Value, 10) }

// DecimalLiteral is a fixed-point decimal literal, e.g. "19.99". Scaled holds
// the value multiplied by 100, per spec §3's decimal representation.
type DecimalLiteral struct {
	Token  token.Token
	Scaled int64
}

func (l *DecimalLiteral) exprNode()           {}
func (l *DecimalLiteral) Pos() token.Position { return l.Token.Pos }
func (l *DecimalLiteral) String() string {
	whole := l.Scaled / 100
	frac := l.Scaled % 100
	if frac < 0 {
		frac = -frac
	}
	return strconv.FormatInt(whole, 10) + "." + pad2(frac)
}

func pad2(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// TextLiteral is a non-interpolated string literal chunk. InterpolatedString
// (in expressions.go) handles literals containing "[...]" substitutions.
type TextLiteral struct {
	Token token.Token
	Value string
}

func (l *TextLiteral) exprNode()           {}
func (l *TextLiteral) Pos() token.Position { return l.Token.Pos }
func (l *TextLiteral) String() string      { return strconv.Quote(l.Value) }

// FlagLiteral is a boolean literal, "true" or "false".
type FlagLiteral struct {
	Token token.Token
	Value bool
}

func (l *FlagLiteral) exprNode()           {}
func (l *FlagLiteral) Pos() token.Position { return l.Token.Pos }
func (l *FlagLiteral) String() string {
	if l.Value {
		return "true"
	}
	return "false"
}

// DateLiteral is a date value, carried as its canonical "YYYY-MM-DD" text.
// The checker does not validate it; the VM parses it only when formatting
// it with a date pattern.
type DateLiteral struct {
	Token token.Token
	Value string
}

func (l *DateLiteral) exprNode()           {}
func (l *DateLiteral) Pos() token.Position { return l.Token.Pos }
func (l *DateLiteral) String() string      { return l.Value }

// FileLiteral is a file-path/handle value, carried as source text.
type FileLiteral struct {
	Token token.Token
	Value string
}

func (l *FileLiteral) exprNode()           {}
func (l *FileLiteral) Pos() token.Position { return l.Token.Pos }
func (l *FileLiteral) String() string      { return l.Value }

// EmptyLiteral denotes the "empty" keyword used to test/construct an empty
// collection, per spec §4.2's "is empty" / "is not empty" productions.
type EmptyLiteral struct {
	Token token.Token
}

func (l *EmptyLiteral) exprNode()           {}
func (l *EmptyLiteral) Pos() token.Position { return l.Token.Pos }
func (l *EmptyLiteral) String() string      { return "empty" }
