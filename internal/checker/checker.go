// Package checker implements the two-pass symbol and type checker (spec
// §4.4): first collect every top-level name, then visit bodies with a
// scoped symbol table.
package checker

import (
	"fmt"

	"github.com/droe-lang/droe/internal/ast"
)

// Error is a single type-checking diagnostic.
type Error struct {
	Kind    string
	Message string
}

func (e Error) String() string { return e.Kind + ": " + e.Message }

// ActionSig is the resolved signature of an action or task.
type ActionSig struct {
	Params []ast.Param
	Return *ast.Type // nil for a task or an action with no "gives"
	IsTask bool
}

// Checker holds the whole-program symbol tables built in pass one and
// performs the pass-two body walk.
type Checker struct {
	errors []Error

	// actions maps a call name to its signature. Unqualified names (bare
	// top-level actions) and qualified "module.action" names share one
	// table; callers look up by whichever form they used.
	actions map[string]*ActionSig
	records map[string]*ast.DataDecl

	// moduleActionNames detects duplicate action names within one module
	// (spec §4.3: "action names are unique within their module").
	moduleActionNames map[string]map[string]bool
}

// New constructs an empty Checker.
func New() *Checker {
	return &Checker{
		actions:           make(map[string]*ActionSig),
		records:           make(map[string]*ast.DataDecl),
		moduleActionNames: make(map[string]map[string]bool),
	}
}

// Errors returns every diagnostic recorded by Check.
func (c *Checker) Errors() []Error { return c.errors }

func (c *Checker) errorf(kind, format string, args ...interface{}) {
	c.errors = append(c.errors, Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Check runs both passes over prog and returns whether it is free of
// errors (callers should still inspect Errors() for partial diagnostics).
func (c *Checker) Check(prog *ast.Program) bool {
	c.collectTopLevel("", prog.Nodes)
	scope := newScope(nil)
	for _, n := range prog.Nodes {
		c.checkTopLevelNode("", n, scope)
	}
	return len(c.errors) == 0
}

// collectTopLevel is pass one: register every data/action/module name
// before any body is visited, so forward references within a module
// resolve (spec §4.4: "Records may be referenced before definition within
// a module").
func (c *Checker) collectTopLevel(modulePrefix string, nodes []ast.TopLevel) {
	for _, n := range nodes {
		switch d := n.(type) {
		case *ast.DataDecl:
			if _, exists := c.records[d.Name]; exists {
				c.errorf("resolve.duplicate_definition", "data %q already defined", d.Name)
				continue
			}
			c.records[d.Name] = d
		case *ast.ActionDecl:
			c.registerAction(modulePrefix, d)
		case *ast.ModuleDecl:
			c.collectTopLevel(d.Name+".", d.Nodes)
		}
	}
}

func (c *Checker) registerAction(modulePrefix string, d *ast.ActionDecl) {
	moduleKey := modulePrefix
	if moduleKey == "" {
		moduleKey = "<top-level>"
	}
	if c.moduleActionNames[moduleKey] == nil {
		c.moduleActionNames[moduleKey] = make(map[string]bool)
	}
	if c.moduleActionNames[moduleKey][d.Name] {
		c.errorf("resolve.duplicate_definition", "action %q already defined in %s", d.Name, moduleKey)
		return
	}
	c.moduleActionNames[moduleKey][d.Name] = true

	var ret *ast.Type
	if d.ReturnType != nil {
		ret = d.ReturnType.Resolve()
	}
	sig := &ActionSig{Params: d.Params, Return: ret, IsTask: d.IsTask}
	c.actions[modulePrefix+d.Name] = sig
}

// checkTopLevelNode visits one top-level node in pass two.
func (c *Checker) checkTopLevelNode(modulePrefix string, n ast.TopLevel, scope *Scope) {
	switch d := n.(type) {
	case ast.Statement:
		c.checkStatement(d, scope)
	case *ast.ActionDecl:
		c.checkAction(modulePrefix, d)
	case *ast.ModuleDecl:
		modScope := newScope(nil)
		for _, mn := range d.Nodes {
			c.checkTopLevelNode(d.Name+".", mn, modScope)
		}
	case *ast.DataDecl:
		c.checkDataDecl(d)
	case *ast.ServeDecl:
		c.checkServe(d)
	case *ast.ScreenDecl:
		c.checkScreen(d)
	case *ast.FragmentDecl:
		c.checkFragment(d)
	}
}

func (c *Checker) checkAction(modulePrefix string, d *ast.ActionDecl) {
	scope := newScope(nil)
	for _, param := range d.Params {
		scope.declare(param.Name, param.Type.Resolve())
	}
	c.checkBlock(d.Body, scope)
}

func (c *Checker) checkDataDecl(d *ast.DataDecl) {
	seen := map[string]bool{}
	for _, f := range d.Fields {
		if seen[f.Name] {
			c.errorf("type.duplicate_field", "field %q declared twice in data %q", f.Name, d.Name)
		}
		seen[f.Name] = true
		if f.Type.RecordName != "" && f.Type.RecordName != d.Name {
			if _, ok := c.records[f.Type.RecordName]; !ok {
				c.errorf("type.unknown_identifier", "data %q field %q references unknown type %q", d.Name, f.Name, f.Type.RecordName)
			}
		}
	}
}

func (c *Checker) checkServe(d *ast.ServeDecl) {
	scope := newScope(nil)
	scope.declare("request", ast.Record("Request"))
	c.checkBlock(d.Body, scope)
}

func (c *Checker) checkScreen(d *ast.ScreenDecl) {
	scope := newScope(nil)
	for _, el := range d.Elements {
		c.checkUIElement(el, scope)
	}
}

func (c *Checker) checkFragment(d *ast.FragmentDecl) {
	scope := newScope(nil)
	for _, el := range d.Elements {
		c.checkUIElement(el, scope)
	}
}

func (c *Checker) checkUIElement(el ast.UIElement, scope *Scope) {
	switch e := el.(type) {
	case *ast.TitleElement:
		c.inferExpr(e.Value, scope)
	case *ast.TextElement:
		c.inferExpr(e.Value, scope)
	case *ast.InputElement:
		scope.declare(e.Name, e.Type.Resolve())
	case *ast.ButtonElement:
		c.inferExpr(e.Label, scope)
		if e.Action != "" {
			if _, ok := c.actions[e.Action]; !ok {
				c.errorf("type.unknown_identifier", "button calls unknown action %q", e.Action)
			}
		}
	case *ast.SlotDecl:
		// Fragment existence is validated by the resolver/loader, not here.
	}
}
