package parser

import (
	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/token"
)

// blockEnd is the set of tokens that terminate a block, passed to
// parseBlock so it knows where to stop without consuming the terminator.
type blockEnd map[token.Kind]bool

func endSet(kinds ...token.Kind) blockEnd {
	s := make(blockEnd, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

// parseBlock reads statements until the current token is one of end, never
// consuming the terminator itself.
func (p *Parser) parseBlock(end blockEnd) *ast.Block {
	block := &ast.Block{}
	p.skipNewlines()
	for !p.curIs(token.EOF) && !end[p.cur.Kind] {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.skipNewlines()
	}
	return block
}

// parseStatement parses one statement, recovering via synchronize() on a
// failed production so the rest of the block still parses (spec §4.2).
func (p *Parser) parseStatement() ast.Statement {
	errCountBefore := len(p.errors)
	stmt := p.parseStatementInner()
	if len(p.errors) > errCountBefore && stmt == nil {
		p.synchronize()
	}
	return stmt
}

func (p *Parser) parseStatementInner() ast.Statement {
	switch p.cur.Kind {
	case token.DISPLAY:
		return p.parseDisplay()
	case token.SET:
		return p.parseSet()
	case token.WHEN:
		return p.parseWhen()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR_EACH:
		return p.parseForEach()
	case token.GIVE:
		return p.parseReturn()
	case token.RESPOND:
		return p.parseRespond()
	case token.CALL:
		return p.parseCallStatement()
	case token.DB:
		tok := p.cur
		expr := p.parseDBExpression()
		return &ast.ExpressionStatement{Token: tok, Expr: expr}
	case token.TITLE, token.TEXT, token.INPUT, token.BUTTON, token.LAYOUT, token.SLOT:
		// UI elements outside a screen/fragment body; parseUIStatement
		// reports them as a parse error.
		return p.parseUIStatement()
	case token.NEWLINE:
		p.next()
		return nil
	default:
		tok := p.cur
		expr := p.parseExpression(precLowest)
		return &ast.ExpressionStatement{Token: tok, Expr: expr}
	}
}

func (p *Parser) parseDisplay() ast.Statement {
	tok := p.cur
	p.next()
	val := p.parseExpression(precLowest)
	return &ast.DisplayStatement{Token: tok, Value: val}
}

func (p *Parser) parseSet() ast.Statement {
	tok := p.cur
	p.next()
	name := p.cur.Literal
	p.next()
	var typeHint *ast.TypeRef
	if p.curIs(token.WHICH) {
		p.next()
		p.expectOneOf(token.IS, token.ARE)
		typeHint = p.parseTypeRef()
	}
	p.expect(token.TO)
	val := p.parseExpression(precLowest)
	return &ast.SetStatement{Token: tok, Name: name, TypeHint: typeHint, Value: val}
}

func (p *Parser) expectOneOf(kinds ...token.Kind) {
	for _, k := range kinds {
		if p.curIs(k) {
			p.next()
			return
		}
	}
	p.errorf("parse.unexpected_token", "expected one of %v, got %s", kinds, p.cur.Kind)
}

// parseTypeRef parses a type annotation: a primitive keyword, "list of T",
// "group of T", or a bare record-name identifier.
func (p *Parser) parseTypeRef() *ast.TypeRef {
	tok := p.cur
	switch p.cur.Kind {
	case token.LIST:
		p.next()
		p.expect(token.OF)
		return &ast.TypeRef{Token: tok, Collection: ast.ListKind, Elem: p.parseTypeRef()}
	case token.GROUP:
		p.next()
		p.expect(token.OF)
		return &ast.TypeRef{Token: tok, Collection: ast.GroupKind, Elem: p.parseTypeRef()}
	}
	name := p.cur.Literal
	p.next()
	if prim, ok := ast.ResolvePrimitiveName(name); ok {
		return &ast.TypeRef{Token: tok, Primitive: prim}
	}
	return &ast.TypeRef{Token: tok, RecordName: name}
}

var whenEnd = endSet(token.OTHERWISE, token.OTHERWISE_WHEN, token.END_WHEN)

func (p *Parser) parseWhen() ast.Statement {
	tok := p.cur
	p.next()
	cond := p.parseExpression(precLowest)
	p.expect(token.THEN)

	// Single-line form: "when <cond> then <stmt>" with no block terminator.
	if !p.curIs(token.NEWLINE) {
		stmt := p.parseStatementInner()
		body := &ast.Block{Statements: []ast.Statement{stmt}}
		return &ast.WhenStatement{Token: tok, Clauses: []ast.WhenClause{{Condition: cond, Body: body}}}
	}

	ws := &ast.WhenStatement{Token: tok}
	body := p.parseBlock(whenEnd)
	ws.Clauses = append(ws.Clauses, ast.WhenClause{Condition: cond, Body: body})
	for p.curIs(token.OTHERWISE_WHEN) {
		p.next()
		c := p.parseExpression(precLowest)
		p.expect(token.THEN)
		b := p.parseBlock(whenEnd)
		ws.Clauses = append(ws.Clauses, ast.WhenClause{Condition: c, Body: b})
	}
	if p.curIs(token.OTHERWISE) {
		p.next()
		b := p.parseBlock(endSet(token.END_WHEN))
		ws.Clauses = append(ws.Clauses, ast.WhenClause{Condition: nil, Body: b})
	}
	p.expect(token.END_WHEN)
	return ws
}

func (p *Parser) parseWhile() ast.Statement {
	tok := p.cur
	p.next()
	cond := p.parseExpression(precLowest)
	body := p.parseBlock(endSet(token.END_WHILE))
	p.expect(token.END_WHILE)
	return &ast.WhileStatement{Token: tok, Condition: cond, Body: body}
}

func (p *Parser) parseForEach() ast.Statement {
	tok := p.cur
	p.next()
	name := p.cur.Literal
	p.next()
	p.expect(token.IN)
	coll := p.parseExpression(precLowest)
	body := p.parseBlock(endSet(token.END_FOR))
	p.expect(token.END_FOR)
	return &ast.ForEachStatement{Token: tok, Var: name, Collection: coll, Body: body}
}

func (p *Parser) parseReturn() ast.Statement {
	tok := p.cur
	p.next()
	if p.curIs(token.NEWLINE) || p.curIs(token.EOF) || p.curIs(token.END_ACTION) {
		return &ast.ReturnStatement{Token: tok}
	}
	val := p.parseExpression(precLowest)
	return &ast.ReturnStatement{Token: tok, Value: val}
}

func (p *Parser) parseRespond() ast.Statement {
	tok := p.cur
	p.next()
	status := p.parseExpression(precAdditive)
	var body ast.Expression
	if p.curIs(token.WITH) {
		p.next()
		body = p.parseExpression(precLowest)
	}
	return &ast.RespondStatement{Token: tok, Status: status, Body: body}
}

func (p *Parser) parseCallStatement() ast.Statement {
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
	resultVar := ""
	if p.curIs(token.INTO) {
		p.next()
		resultVar = p.cur.Literal
		p.next()
	}
	return &ast.CallStatement{Token: tok, URL: url, Method: method, Body: body, Headers: headers, ResultVar: resultVar}
}
