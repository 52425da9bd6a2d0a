package ast

import (
	"strings"

	"github.com/droe-lang/droe/internal/token"
)

// ScreenDecl is a top-level UI screen, "screen <name> ... end screen"
// (spec §5.4), the root of a renderable view tree for a host UI renderer.
type ScreenDecl struct {
	Token    token.Token
	Name     string
	Elements []UIElement
}

func (d *ScreenDecl) topLevelNode()      {}
func (d *ScreenDecl) Pos() token.Position { return d.Token.Pos }
func (d *ScreenDecl) String() string {
	var sb strings.Builder
	sb.WriteString("screen " + d.Name + "\n")
	for _, e := range d.Elements {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	sb.WriteString("end screen")
	return sb.String()
}

// FragmentDecl is a reusable piece of UI, "fragment <name> ... end
// fragment", embeddable into a screen or another fragment via a SlotDecl.
type FragmentDecl struct {
	Token    token.Token
	Name     string
	Elements []UIElement
}

func (d *FragmentDecl) topLevelNode()      {}
func (d *FragmentDecl) Pos() token.Position { return d.Token.Pos }
func (d *FragmentDecl) String() string {
	var sb strings.Builder
	sb.WriteString("fragment " + d.Name + "\n")
	for _, e := range d.Elements {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	sb.WriteString("end fragment")
	return sb.String()
}

// UIElement is any node that may appear in a screen/fragment/slot body.
type UIElement interface {
	Node
	uiElementNode()
}

// LayoutDirective sets the arrangement of the elements following it within
// the enclosing screen or fragment, e.g. "layout column".
type LayoutDirective struct {
	Token token.Token
	Style string
}

func (e *LayoutDirective) uiElementNode()       {}
func (e *LayoutDirective) Pos() token.Position  { return e.Token.Pos }
func (e *LayoutDirective) String() string       { return "layout " + e.Style }

// TitleElement is "title <text>".
type TitleElement struct {
	Token token.Token
	Value Expression
}

func (e *TitleElement) uiElementNode()      {}
func (e *TitleElement) Pos() token.Position { return e.Token.Pos }
func (e *TitleElement) String() string      { return "title " + e.Value.String() }

// TextElement is "text <value>".
type TextElement struct {
	Token token.Token
	Value Expression
}

func (e *TextElement) uiElementNode()      {}
func (e *TextElement) Pos() token.Position { return e.Token.Pos }
func (e *TextElement) String() string      { return "text " + e.Value.String() }

// InputElement is "input <name> which is <type>", a bound form field.
type InputElement struct {
	Token token.Token
	Name  string
	Type  *TypeRef
}

func (e *InputElement) uiElementNode()      {}
func (e *InputElement) Pos() token.Position { return e.Token.Pos }
func (e *InputElement) String() string {
	return "input " + e.Name + " which is " + e.Type.String()
}

// ButtonElement is "button <label> calls <action>", a tappable control
// bound to an in-module action.
type ButtonElement struct {
	Token  token.Token
	Label  Expression
	Action string
}

func (e *ButtonElement) uiElementNode()      {}
func (e *ButtonElement) Pos() token.Position { return e.Token.Pos }
func (e *ButtonElement) String() string {
	return "button " + e.Label.String() + " calls " + e.Action
}

// SlotDecl embeds a named fragment at this position in the tree, "slot
// <fragment-name>".
type SlotDecl struct {
	Token        token.Token
	FragmentName string
}

func (e *SlotDecl) uiElementNode()      {}
func (e *SlotDecl) Pos() token.Position { return e.Token.Pos }
func (e *SlotDecl) String() string      { return "slot " + e.FragmentName }
