package parser

import (
	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/token"
)

func (p *Parser) parseModule() *ast.ModuleDecl {
	tok := p.cur
	p.next()
	name := p.cur.Literal
	p.next()
	p.skipNewlines()
	decl := &ast.ModuleDecl{Token: tok, Name: name}
	for !p.curIs(token.END_MODULE) && !p.curIs(token.EOF) {
		node := p.parseTopLevel()
		if node != nil {
			decl.Nodes = append(decl.Nodes, node)
		}
		p.skipNewlines()
	}
	p.expect(token.END_MODULE)
	return decl
}

func (p *Parser) parseAction() *ast.ActionDecl {
	tok := p.cur
	isTask := p.cur.Kind == token.TASK
	endKind := token.END_ACTION
	p.next()
	name := p.cur.Literal
	p.next()

	decl := &ast.ActionDecl{Token: tok, Name: name, IsTask: isTask}

	if p.curIs(token.WITH) {
		p.next()
		decl.Params = append(decl.Params, p.parseParam())
		for p.curIs(token.COMMA) {
			p.next()
			decl.Params = append(decl.Params, p.parseParam())
		}
	}
	if !isTask && p.curIs(token.GIVES) {
		p.next()
		decl.ReturnType = p.parseTypeRef()
	}
	decl.Body = p.parseBlock(endSet(endKind))
	p.expect(endKind)
	return decl
}

func (p *Parser) parseParam() ast.Param {
	name := p.cur.Literal
	p.next()
	p.expect(token.WHICH)
	p.expect(token.IS)
	typ := p.parseTypeRef()
	return ast.Param{Name: name, Type: typ}
}

func (p *Parser) parseData() *ast.DataDecl {
	tok := p.cur
	p.next()
	name := p.cur.Literal
	p.next()
	p.skipNewlines()
	decl := &ast.DataDecl{Token: tok, Name: name}
	for !p.curIs(token.END_DATA) && !p.curIs(token.EOF) {
		if p.curIs(token.NEWLINE) {
			p.next()
			continue
		}
		decl.Fields = append(decl.Fields, p.parseDataField())
		p.skipNewlines()
	}
	p.expect(token.END_DATA)
	return decl
}

func (p *Parser) parseDataField() ast.DataField {
	name := p.cur.Literal
	p.next()
	p.expect(token.IS)
	typ := p.parseTypeRef()
	field := ast.DataField{Name: name, Type: typ}
	for p.isAnnotationStart() {
		field.Annotations = append(field.Annotations, p.parseFieldAnnotation())
	}
	return field
}

func (p *Parser) isAnnotationStart() bool {
	if p.curIs(token.IDENT) {
		switch p.cur.Literal {
		case "key", "auto", "required", "optional", "unique", "default":
			return true
		}
	}
	return false
}

func (p *Parser) parseFieldAnnotation() ast.FieldAnnotation {
	kind := p.cur.Literal
	p.next()
	if kind == "default" {
		if p.curIs(token.COLON) {
			p.next()
		}
		val := p.cur.Literal
		p.next()
		return ast.FieldAnnotation{Kind: "default", Default: val}
	}
	return ast.FieldAnnotation{Kind: kind}
}

func (p *Parser) parseServe() *ast.ServeDecl {
	tok := p.cur
	p.next()
	method := p.cur.Literal
	p.next()
	path := p.cur.Literal
	p.expect(token.PATH)
	decl := &ast.ServeDecl{Token: tok, Method: method, Path: path, PathParams: extractPathParams(path)}
	decl.Body = p.parseBlock(endSet(token.END_SERVE))
	p.expect(token.END_SERVE)
	return decl
}

// extractPathParams collects the ":name" segments of an endpoint path.
func extractPathParams(path string) []string {
	var params []string
	seg := ""
	in := false
	flush := func() {
		if in && seg != "" {
			params = append(params, seg)
		}
		seg = ""
		in = false
	}
	for _, c := range path {
		switch {
		case c == ':':
			flush()
			in = true
		case c == '/':
			flush()
		case in:
			seg += string(c)
		}
	}
	flush()
	return params
}
