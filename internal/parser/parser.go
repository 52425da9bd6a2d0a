// Package parser implements the recursive-descent, longest-match parser
// that turns a Droe token stream into an AST (spec §4.2).
package parser

import (
	"fmt"
	"strconv"

	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/lexer"
	"github.com/droe-lang/droe/internal/token"
)

// Error is a single parse diagnostic with the offending token's span.
type Error struct {
	Kind    string
	Message string
	Pos     token.Position
}

func (e Error) String() string { return e.Pos.String() + ": " + e.Kind + ": " + e.Message }

// precedence levels, lowest to highest, per spec §4.2.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precCompare
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binPrecedence = map[token.Kind]int{
	token.OR:                          precOr,
	token.AND:                         precAnd,
	token.EQUALS:                      precCompare,
	token.DOES_NOT_EQUAL:              precCompare,
	token.IS:                          precCompare,
	token.IS_NOT:                      precCompare,
	token.IS_GREATER_THAN:             precCompare,
	token.IS_GREATER_THAN_OR_EQUAL_TO: precCompare,
	token.IS_LESS_THAN:                precCompare,
	token.IS_LESS_THAN_OR_EQUAL_TO:    precCompare,
	token.PLUS:                        precAdditive,
	token.MINUS:                       precAdditive,
	token.TIMES:                       precMultiplicative,
	token.DIVIDED_BY:                  precMultiplicative,
}

var binOps = map[token.Kind]ast.BinaryOp{
	token.OR:                          ast.OpOr,
	token.AND:                         ast.OpAnd,
	token.EQUALS:                      ast.OpEq,
	token.DOES_NOT_EQUAL:              ast.OpNotEq,
	token.IS:                          ast.OpEq,
	token.IS_NOT:                      ast.OpNotEq,
	token.IS_GREATER_THAN:             ast.OpGt,
	token.IS_GREATER_THAN_OR_EQUAL_TO: ast.OpGtEq,
	token.IS_LESS_THAN:                ast.OpLt,
	token.IS_LESS_THAN_OR_EQUAL_TO:    ast.OpLtEq,
	token.PLUS:                        ast.OpAdd,
	token.MINUS:                       ast.OpSub,
	token.TIMES:                       ast.OpMul,
	token.DIVIDED_BY:                  ast.OpDiv,
}

// Parser consumes a token stream and produces a Program. It never stops at
// the first error: on a failed production it records a diagnostic and
// synchronizes to the next statement or block boundary (spec §4.2).
type Parser struct {
	l    *lexer.Lexer
	file string

	cur  token.Token
	peek token.Token

	errors []Error
}

// New constructs a Parser reading from l.
func New(file string, l *lexer.Lexer) *Parser {
	p := &Parser{l: l, file: file}
	p.next()
	p.next()
	return p
}

// Errors returns every diagnostic recorded during parsing.
func (p *Parser) Errors() []Error { return p.errors }

func (p *Parser) errorf(kind, format string, args ...interface{}) {
	p.errors = append(p.errors, Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: p.cur.Pos})
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
	// Skip comment tokens transparently; the lexer only emits them when
	// preserve-comments is requested, which the parser never does.
	for p.peek.Kind == token.COMMENT {
		p.peek = p.l.NextToken()
	}
}

func (p *Parser) curIs(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k token.Kind) bool { return p.peek.Kind == k }

func (p *Parser) expect(k token.Kind) token.Token {
	if !p.curIs(k) {
		p.errorf("parse.unexpected_token", "expected %s, got %s (%q)", k, p.cur.Kind, p.cur.Literal)
		return p.cur
	}
	tok := p.cur
	p.next()
	return tok
}

// skipNewlines consumes any number of NEWLINE tokens.
func (p *Parser) skipNewlines() {
	for p.curIs(token.NEWLINE) {
		p.next()
	}
}

// ParseProgram parses an entire file into a Program node.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{File: p.file}
	p.skipNewlines()
	for p.curIs(token.AT) {
		if p.peekIsIncludeKeyword() {
			prog.Includes = append(prog.Includes, p.parseInclude())
		} else {
			prog.Metadata = append(prog.Metadata, p.parseMetadata())
		}
		p.skipNewlines()
	}
	for !p.curIs(token.EOF) {
		node := p.parseTopLevel()
		if node != nil {
			prog.Nodes = append(prog.Nodes, node)
		}
		p.skipNewlines()
	}
	return prog
}

// peekIsIncludeKeyword reports whether the "@" currently under the cursor
// introduces an "@include" directive rather than a metadata annotation.
func (p *Parser) peekIsIncludeKeyword() bool {
	return p.peek.Kind == token.INCLUDE
}

func (p *Parser) parseMetadata() *ast.Metadata {
	tok := p.expect(token.AT)
	keyTok := p.cur
	p.next()
	value := p.readRestOfLine()
	return &ast.Metadata{Token: tok, Key: keyTok.Literal, Value: value}
}

func (p *Parser) parseInclude() *ast.IncludeDecl {
	tok := p.expect(token.AT)
	p.expect(token.INCLUDE)
	nameTok := p.cur
	p.next()
	p.expect(token.FROM)
	// the lexer frames plain strings as ISTRING_BEGIN/STRING/ISTRING_END, so
	// the literal path is read through parseSimpleStringValue.
	path := p.parseSimpleStringValue()
	return &ast.IncludeDecl{Token: tok, Name: nameTok.Literal, Path: path}
}

// readRestOfLine collects raw tokens' literal text until NEWLINE/EOF, used
// for metadata values which are free-form text, not sub-parsed expressions.
func (p *Parser) readRestOfLine() string {
	var out string
	first := true
	for !p.curIs(token.NEWLINE) && !p.curIs(token.EOF) {
		if !first {
			out += " "
		}
		out += p.cur.Literal
		first = false
		p.next()
	}
	return out
}

// parseTopLevel dispatches on the current token to parse one top-level
// construct: a module, action/task, data declaration, serve endpoint, UI
// declaration, or a bare statement.
func (p *Parser) parseTopLevel() ast.TopLevel {
	switch p.cur.Kind {
	case token.MODULE:
		return p.parseModule()
	case token.ACTION, token.TASK:
		return p.parseAction()
	case token.DATA:
		return p.parseData()
	case token.SERVE:
		return p.parseServe()
	case token.SCREEN:
		return p.parseScreen()
	case token.FRAGMENT:
		return p.parseFragment()
	default:
		// Every ast.Statement node type also implements ast.TopLevel.
		if stmt, ok := p.parseStatement().(ast.TopLevel); ok {
			return stmt
		}
		return nil
	}
}

// synchronize skips tokens until a statement/block boundary so one failed
// production doesn't abort parsing of the rest of the file (spec §4.2).
func (p *Parser) synchronize() {
	for !p.curIs(token.EOF) {
		if p.curIs(token.NEWLINE) {
			p.next()
			return
		}
		switch p.cur.Kind {
		case token.END_WHEN, token.END_WHILE, token.END_FOR, token.END_ACTION,
			token.END_MODULE, token.END_DATA, token.END_FRAGMENT, token.END_SCREEN,
			token.END_SLOT, token.END_SERVE, token.END_HEADERS,
			token.OTHERWISE, token.OTHERWISE_WHEN:
			return
		}
		p.next()
	}
}

// --- expression parsing -----------------------------------------------

// parseExpression parses an expression with operator precedence, per the
// ladder in spec §4.2: or < and < not < comparison < plus/minus <
// times/divided-by < unary minus < postfix.
func (p *Parser) parseExpression(minPrec int) ast.Expression {
	left := p.parseUnary()
	for {
		prec, ok := binPrecedence[p.cur.Kind]
		if !ok || prec < minPrec {
			break
		}
		opTok := p.cur
		op := binOps[p.cur.Kind]
		p.next()
		right := p.parseExpression(prec + 1)
		left = &ast.BinaryExpression{Token: opTok, Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur.Kind {
	case token.NOT:
		tok := p.cur
		p.next()
		operand := p.parseExpression(precNot)
		return &ast.UnaryExpression{Token: tok, Op: "not", Operand: operand}
	case token.MINUS:
		tok := p.cur
		p.next()
		operand := p.parseExpression(precUnary)
		return &ast.UnaryExpression{Token: tok, Op: "minus", Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch {
		case p.curIs(token.DOT):
			tok := p.cur
			p.next()
			field := p.cur
			p.next()
			expr = &ast.PropertyAccess{Token: tok, Target: expr, Property: field.Literal}
		case p.curIs(token.FORMAT):
			tok := p.cur
			p.next()
			p.expect(token.AS)
			patTok := p.parseSimpleStringValue()
			expr = &ast.FormatExpression{Token: tok, Value: expr, Pattern: patTok}
		case p.curIs(token.IS_EMPTY):
			tok := p.cur
			p.next()
			expr = &ast.EmptyCheckExpression{Token: tok, Value: expr}
		case p.curIs(token.IS_NOT_EMPTY):
			tok := p.cur
			p.next()
			expr = &ast.EmptyCheckExpression{Token: tok, Value: expr, Negated: true}
		default:
			return expr
		}
	}
}

// parseSimpleStringValue parses a quoted string literal that must not
// contain interpolation (used for format patterns, include paths).
func (p *Parser) parseSimpleStringValue() string {
	if !p.curIs(token.ISTRING_BEGIN) {
		p.errorf("parse.unexpected_token", "expected string literal, got %s", p.cur.Kind)
		return ""
	}
	p.next()
	var out string
	if p.curIs(token.STRING) {
		out = p.cur.Literal
		p.next()
	}
	p.expect(token.ISTRING_END)
	return out
}

func (p *Parser) parsePrimary() ast.Expression {
	switch p.cur.Kind {
	case token.INT:
		return p.parseIntLiteral()
	case token.DECIMAL:
		return p.parseDecimalLiteral()
	case token.TRUE, token.FALSE:
		return p.parseFlagLiteral()
	case token.EMPTY:
		tok := p.cur
		p.next()
		return &ast.EmptyLiteral{Token: tok}
	case token.ISTRING_BEGIN:
		return p.parseInterpolatedString()
	case token.LIST:
		return p.parseCollectionLiteral(ast.ListKind)
	case token.GROUP:
		return p.parseCollectionLiteral(ast.GroupKind)
	case token.DB:
		return p.parseDBExpression()
	case token.CALL:
		return p.parseCallExpression()
	case token.LPAREN:
		p.next()
		expr := p.parseExpression(precLowest)
		p.expect(token.RPAREN)
		return expr
	case token.IDENT:
		return p.parseIdentOrCall()
	default:
		tok := p.cur
		p.errorf("parse.unexpected_token", "unexpected token %s (%q) in expression", p.cur.Kind, p.cur.Literal)
		p.next()
		return &ast.Identifier{Token: tok, Name: tok.Literal}
	}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	tok := p.cur
	v, err := strconv.ParseInt(tok.Literal, 10, 32)
	if err != nil {
		p.errorf("parse.bad_literal", "invalid integer literal %q", tok.Literal)
	}
	p.next()
	return &ast.IntLiteral{Token: tok, Value: v}
}

func (p *Parser) parseDecimalLiteral() ast.Expression {
	tok := p.cur
	scaled, ok := parseScaledDecimal(tok.Literal)
	if !ok {
		p.errorf("parse.bad_literal", "invalid decimal literal %q", tok.Literal)
	}
	p.next()
	return &ast.DecimalLiteral{Token: tok, Scaled: scaled}
}

// parseScaledDecimal parses a "123.45"-shaped literal into its ×100 scaled
// integer form, matching the lexer's own validation in spec §4.1.
func parseScaledDecimal(lit string) (int64, bool) {
	neg := false
	s := lit
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	dot := -1
	for i, c := range s {
		if c == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return 0, false
	}
	whole := s[:dot]
	frac := s[dot+1:]
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err1 := strconv.ParseInt(whole, 10, 64)
	f, err2 := strconv.ParseInt(frac, 10, 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	scaled := w*100 + f
	if neg {
		scaled = -scaled
	}
	return scaled, true
}

func (p *Parser) parseFlagLiteral() ast.Expression {
	tok := p.cur
	p.next()
	return &ast.FlagLiteral{Token: tok, Value: tok.Kind == token.TRUE}
}

// parseInterpolatedString consumes ISTRING_BEGIN ... ISTRING_END, collecting
// STRING chunks and INTERP_START <expr> INTERP_END sub-expressions.
func (p *Parser) parseInterpolatedString() ast.Expression {
	begin := p.cur
	p.next()
	is := &ast.InterpolatedString{Token: begin}
	chunk := ""
	for !p.curIs(token.ISTRING_END) && !p.curIs(token.EOF) {
		switch p.cur.Kind {
		case token.STRING:
			chunk += p.cur.Literal
			p.next()
		case token.INTERP_START:
			is.Chunks = append(is.Chunks, chunk)
			chunk = ""
			p.next()
			expr := p.parseExpression(precLowest)
			is.Exprs = append(is.Exprs, expr)
			p.expect(token.INTERP_END)
		default:
			p.errorf("parse.unexpected_token", "unexpected token %s inside string", p.cur.Kind)
			p.next()
		}
	}
	is.Chunks = append(is.Chunks, chunk)
	p.expect(token.ISTRING_END)
	return is
}

func (p *Parser) parseCollectionLiteral(kind ast.CollectionKind) ast.Expression {
	tok := p.cur
	p.next()
	p.expect(token.OF)
	lit := &ast.CollectionLiteral{Token: tok, Kind: kind}
	if p.curIs(token.NEWLINE) || p.curIs(token.EOF) {
		return lit
	}
	lit.Elements = append(lit.Elements, p.parseExpression(precLowest))
	for p.curIs(token.COMMA) {
		p.next()
		lit.Elements = append(lit.Elements, p.parseExpression(precLowest))
	}
	return lit
}

// parseIdentOrCall parses a bare identifier, a field access "name.field",
// or an action-call expression "name with a which is 1, ..." (optionally
// module-qualified as "module.action with ..."). A dotted name not followed
// by "with" is a field access, not a call.
func (p *Parser) parseIdentOrCall() ast.Expression {
	tok := p.cur
	name := tok.Literal
	p.next()
	module := ""
	var dotTok token.Token
	if p.curIs(token.DOT) && p.peekIs(token.IDENT) {
		dotTok = p.cur
		p.next()
		module = name
		name = p.cur.Literal
		p.next()
	}
	if p.curIs(token.WITH) {
		p.next()
		args := p.parseArgumentList()
		return &ast.ActionCallExpression{Token: tok, Module: module, Action: name, Arguments: args}
	}
	if module != "" {
		target := &ast.Identifier{Token: tok, Name: module}
		return &ast.PropertyAccess{Token: dotTok, Target: target, Property: name}
	}
	return &ast.Identifier{Token: tok, Name: name}
}

// parseArgumentList parses a comma-separated "<name> which is <expr>" list.
func (p *Parser) parseArgumentList() []ast.Argument {
	var args []ast.Argument
	args = append(args, p.parseArgument())
	for p.curIs(token.COMMA) {
		p.next()
		args = append(args, p.parseArgument())
	}
	return args
}

func (p *Parser) parseArgument() ast.Argument {
	name := p.cur.Literal
	p.next()
	p.expect(token.WHICH)
	p.expect(token.IS)
	val := p.parseExpression(precLowest)
	return ast.Argument{Name: name, Value: val}
}

func (p *Parser) parseDBExpression() ast.Expression {
	tok := p.cur
	p.next()
	op, ok := p.parseDBOp()
	if !ok {
		p.errorf("parse.unexpected_token", "expected db operation, got %s", p.cur.Kind)
	}
	record := p.cur.Literal
	p.next()
	expr := &ast.DBExpression{Token: tok, Op: op, Record: record}
	if p.curIs(token.WITH) {
		p.next()
		expr.With = p.parseArgumentList()
	}
	if p.curIs(token.WHERE) {
		expr.Where = p.parseWhereClauses()
	}
	if p.curIs(token.SET) {
		p.next()
		expr.Set = p.parseArgumentList()
	}
	return expr
}

func (p *Parser) parseDBOp() (ast.DBOperation, bool) {
	switch p.cur.Kind {
	case token.CREATE:
		p.next()
		return ast.DBCreate, true
	case token.FIND_ALL:
		p.next()
		return ast.DBFindAll, true
	case token.FIND:
		p.next()
		return ast.DBFind, true
	case token.UPDATE:
		p.next()
		return ast.DBUpdate, true
	case token.DELETE:
		p.next()
		return ast.DBDelete, true
	}
	return 0, false
}

func (p *Parser) parseWhereClauses() []ast.DBWhereClause {
	var clauses []ast.DBWhereClause
	for p.curIs(token.WHERE) {
		p.next()
		field := p.cur.Literal
		p.next()
		p.expect(token.EQUALS)
		val := p.parseExpression(precLowest)
		clauses = append(clauses, ast.DBWhereClause{Field: field, Value: val})
	}
	return clauses
}

func (p *Parser) parseCallExpression() ast.Expression {
	tok := p.cur
	p.next()
	url := p.parseExpression(precAdditive)
	method := ""
	if p.curIs(token.METHOD) {
		p.next()
		method = p.cur.Literal
		p.next()
	}
	var body ast.Expression
	if p.curIs(token.WITH) {
		p.next()
		body = p.parseExpression(precLowest)
	}
	var headers []ast.Argument
	if p.curIs(token.USING) {
		p.next()
		p.expect(token.HEADERS)
		p.skipNewlines()
		for !p.curIs(token.END_HEADERS) && !p.curIs(token.EOF) {
			if p.curIs(token.NEWLINE) {
				p.next()
				continue
			}
			headers = append(headers, p.parseArgument())
			p.skipNewlines()
		}
		p.expect(token.END_HEADERS)
	}
	return &ast.HTTPCallExpression{Token: tok, Method: method, URL: url, Headers: headers, Body: body}
}
