package parser

import (
	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/token"
)

func (p *Parser) parseScreen() *ast.ScreenDecl {
	tok := p.cur
	p.next()
	name := p.cur.Literal
	p.next()
	p.skipNewlines()
	decl := &ast.ScreenDecl{Token: tok, Name: name}
	for !p.curIs(token.END_SCREEN) && !p.curIs(token.EOF) {
		if p.curIs(token.NEWLINE) {
			p.next()
			continue
		}
		if el := p.parseUIElement(); el != nil {
			decl.Elements = append(decl.Elements, el)
		}
		p.skipNewlines()
	}
	p.expect(token.END_SCREEN)
	return decl
}

func (p *Parser) parseFragment() *ast.FragmentDecl {
	tok := p.cur
	p.next()
	name := p.cur.Literal
	p.next()
	p.skipNewlines()
	decl := &ast.FragmentDecl{Token: tok, Name: name}
	for !p.curIs(token.END_FRAGMENT) && !p.curIs(token.EOF) {
		if p.curIs(token.NEWLINE) {
			p.next()
			continue
		}
		if el := p.parseUIElement(); el != nil {
			decl.Elements = append(decl.Elements, el)
		}
		p.skipNewlines()
	}
	p.expect(token.END_FRAGMENT)
	return decl
}

func (p *Parser) parseUIElement() ast.UIElement {
	switch p.cur.Kind {
	case token.LAYOUT:
		tok := p.cur
		p.next()
		style := p.cur.Literal
		p.next()
		return &ast.LayoutDirective{Token: tok, Style: style}
	case token.TITLE:
		tok := p.cur
		p.next()
		val := p.parseExpression(precLowest)
		return &ast.TitleElement{Token: tok, Value: val}
	case token.TEXT:
		tok := p.cur
		p.next()
		val := p.parseExpression(precLowest)
		return &ast.TextElement{Token: tok, Value: val}
	case token.INPUT:
		tok := p.cur
		p.next()
		name := p.cur.Literal
		p.next()
		p.expect(token.WHICH)
		p.expect(token.IS)
		typ := p.parseTypeRef()
		return &ast.InputElement{Token: tok, Name: name, Type: typ}
	case token.BUTTON:
		tok := p.cur
		p.next()
		label := p.parseExpression(precAdditive)
		action := ""
		if p.curIs(token.IDENT) && p.cur.Literal == "calls" {
			p.next()
			action = p.cur.Literal
			p.next()
		}
		return &ast.ButtonElement{Token: tok, Label: label, Action: action}
	case token.SLOT:
		tok := p.cur
		p.next()
		name := p.cur.Literal
		p.next()
		return &ast.SlotDecl{Token: tok, FragmentName: name}
	default:
		p.errorf("parse.unexpected_token", "expected UI element, got %s", p.cur.Kind)
		p.synchronize()
		return nil
	}
}

// parseUIStatement handles a UI element met in statement position, i.e.
// outside a screen/fragment body. It records a parse error, consumes the
// element so parsing resumes after it, and produces no statement node.
func (p *Parser) parseUIStatement() ast.Statement {
	p.errorf("parse.unexpected_token", "UI element %q is only allowed inside a screen or fragment", p.cur.Literal)
	p.parseUIElement()
	return nil
}
