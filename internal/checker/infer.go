package checker

import "github.com/droe-lang/droe/internal/ast"

func (c *Checker) checkBlock(b *ast.Block, scope *Scope) {
	inner := scope.child()
	for _, stmt := range b.Statements {
		c.checkStatement(stmt, inner)
	}
}

func (c *Checker) checkStatement(stmt ast.Statement, scope *Scope) {
	switch s := stmt.(type) {
	case *ast.DisplayStatement:
		c.inferExpr(s.Value, scope)
	case *ast.SetStatement:
		c.checkSet(s, scope)
	case *ast.ReassignStatement:
		existing, ok := scope.lookup(s.Name)
		if !ok {
			c.errorf("type.unknown_identifier", "identifier %q is not declared", s.Name)
			return
		}
		valType := c.inferExpr(s.Value, scope)
		if !compatible(existing, valType) {
			c.errorf("type.incompatible_assignment", "cannot assign %s to %q of type %s", valType, s.Name, existing)
		}
	case *ast.WhenStatement:
		for _, clause := range s.Clauses {
			if clause.Condition != nil {
				t := c.inferExpr(clause.Condition, scope)
				if t != nil && t.Primitive != ast.PrimFlag {
					c.errorf("type.incompatible_assignment", "when condition must be flag, got %s", t)
				}
			}
			c.checkBlock(clause.Body, scope)
		}
	case *ast.WhileStatement:
		t := c.inferExpr(s.Condition, scope)
		if t != nil && t.Primitive != ast.PrimFlag {
			c.errorf("type.incompatible_assignment", "while condition must be flag, got %s", t)
		}
		c.checkBlock(s.Body, scope)
	case *ast.ForEachStatement:
		collType := c.inferExpr(s.Collection, scope)
		inner := scope.child()
		if collType != nil {
			if collType.IsCollection() {
				inner.declare(s.Var, collType.Elem)
			} else if collType.Primitive == ast.PrimText {
				inner.declare(s.Var, ast.Text())
			} else {
				c.errorf("type.incompatible_assignment", "for each requires a collection or text, got %s", collType)
			}
		}
		for _, st := range s.Body.Statements {
			c.checkStatement(st, inner)
		}
	case *ast.ReturnStatement:
		if s.Value != nil {
			c.inferExpr(s.Value, scope)
		}
	case *ast.RespondStatement:
		c.inferExpr(s.Status, scope)
		if s.Body != nil {
			c.inferExpr(s.Body, scope)
		}
	case *ast.CallStatement:
		c.inferExpr(s.URL, scope)
		if s.Body != nil {
			c.inferExpr(s.Body, scope)
		}
		for _, h := range s.Headers {
			c.inferExpr(h.Value, scope)
		}
		if s.ResultVar != "" {
			scope.declare(s.ResultVar, ast.Record("Response"))
		}
	case *ast.ExpressionStatement:
		c.inferExpr(s.Expr, scope)
	}
}

func (c *Checker) checkSet(s *ast.SetStatement, scope *Scope) {
	valType := c.inferExpr(s.Value, scope)
	declared := valType
	if s.TypeHint != nil {
		declared = s.TypeHint.Resolve()
		if valType != nil && !compatible(declared, valType) {
			c.errorf("type.incompatible_assignment", "cannot assign %s to %q of declared type %s", valType, s.Name, declared)
		}
	}
	if existing, ok := scope.lookup(s.Name); ok {
		if !compatible(existing, valType) {
			c.errorf("type.incompatible_assignment", "cannot reassign %q of type %s to %s", s.Name, existing, valType)
		}
		return
	}
	scope.declare(s.Name, declared)
}

// compatible implements spec §3's reassignment rule: "equal, or from a
// legacy alias like number→int; numeric widening is not implicit."
// ResolvePrimitiveName already folds the legacy alias at parse time, so
// this reduces to structural equality, with a nil type (inference failure)
// treated as compatible to avoid cascading errors.
func compatible(declared, actual *ast.Type) bool {
	if declared == nil || actual == nil {
		return true
	}
	return declared.Equal(actual)
}

// inferExpr computes (and records, via error reporting) the type of expr,
// returning nil when the type could not be determined (an error has
// already been recorded in that case).
func (c *Checker) inferExpr(expr ast.Expression, scope *Scope) *ast.Type {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return ast.Int()
	case *ast.DecimalLiteral:
		return ast.Decimal()
	case *ast.TextLiteral:
		return ast.Text()
	case *ast.FlagLiteral:
		return ast.Flag()
	case *ast.DateLiteral:
		return ast.Date()
	case *ast.FileLiteral:
		return ast.FileType()
	case *ast.EmptyLiteral:
		return nil
	case *ast.Identifier:
		if t, ok := scope.lookup(e.Name); ok {
			return t
		}
		c.errorf("type.unknown_identifier", "identifier %q is not declared", e.Name)
		return nil
	case *ast.PropertyAccess:
		c.inferExpr(e.Target, scope)
		return nil // field types depend on the record schema, resolved structurally at codegen
	case *ast.BinaryExpression:
		return c.inferBinary(e, scope)
	case *ast.UnaryExpression:
		t := c.inferExpr(e.Operand, scope)
		if e.Op == "not" {
			if t != nil && t.Primitive != ast.PrimFlag {
				c.errorf("type.incompatible_assignment", "not requires flag, got %s", t)
			}
			return ast.Flag()
		}
		if t != nil && !t.IsNumeric() {
			c.errorf("type.incompatible_assignment", "unary minus requires a numeric type, got %s", t)
		}
		return t
	case *ast.CollectionLiteral:
		var elem *ast.Type
		for _, el := range e.Elements {
			t := c.inferExpr(el, scope)
			if elem == nil {
				elem = t
			}
		}
		if e.Kind == ast.GroupKind {
			return ast.GroupOf(elem)
		}
		return ast.ListOf(elem)
	case *ast.InterpolatedString:
		for _, sub := range e.Exprs {
			c.inferExpr(sub, scope)
		}
		return ast.Text()
	case *ast.EmptyCheckExpression:
		t := c.inferExpr(e.Value, scope)
		if t != nil && !t.IsCollection() && t.Primitive != ast.PrimText {
			c.errorf("type.incompatible_assignment", "is empty requires a collection or text, got %s", t)
		}
		return ast.Flag()
	case *ast.FormatExpression:
		c.checkFormatPattern(e, scope)
		return ast.Text()
	case *ast.ActionCallExpression:
		return c.checkActionCall(e, scope)
	case *ast.HTTPCallExpression:
		c.inferExpr(e.URL, scope)
		if e.Body != nil {
			c.inferExpr(e.Body, scope)
		}
		return ast.Record("Response")
	case *ast.DBExpression:
		return c.checkDBExpression(e, scope)
	}
	return nil
}

func (c *Checker) inferBinary(e *ast.BinaryExpression, scope *Scope) *ast.Type {
	lt := c.inferExpr(e.Left, scope)
	rt := c.inferExpr(e.Right, scope)
	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		if lt == nil || rt == nil {
			return nil
		}
		if !lt.IsNumeric() || !rt.IsNumeric() {
			c.errorf("type.incompatible_assignment", "arithmetic requires numeric operands, got %s and %s", lt, rt)
			return nil
		}
		if lt.Primitive == ast.PrimDecimal || rt.Primitive == ast.PrimDecimal {
			return ast.Decimal()
		}
		return ast.Int()
	case ast.OpLt, ast.OpLtEq, ast.OpGt, ast.OpGtEq:
		if lt != nil && rt != nil && (!lt.IsNumeric() || !rt.IsNumeric()) {
			c.errorf("type.incompatible_assignment", "comparison requires numeric operands, got %s and %s", lt, rt)
		}
		return ast.Flag()
	case ast.OpEq, ast.OpNotEq:
		if lt != nil && rt != nil && !lt.Equal(rt) {
			c.errorf("type.incompatible_assignment", "equals/does not equal requires matching types, got %s and %s", lt, rt)
		}
		return ast.Flag()
	case ast.OpAnd, ast.OpOr:
		if lt != nil && lt.Primitive != ast.PrimFlag {
			c.errorf("type.incompatible_assignment", "%s requires flag operands, got %s", e.Op, lt)
		}
		if rt != nil && rt.Primitive != ast.PrimFlag {
			c.errorf("type.incompatible_assignment", "%s requires flag operands, got %s", e.Op, rt)
		}
		return ast.Flag()
	}
	return nil
}

// formatPatterns maps each supported format pattern to the primitive type
// it applies to (spec §4.4).
var formatPatterns = map[string]ast.Primitive{
	"MM/dd/yyyy":    ast.PrimDate,
	"dd/MM/yyyy":    ast.PrimDate,
	"MMM dd, yyyy":  ast.PrimDate,
	"long":          ast.PrimDate,
	"0.00":          ast.PrimDecimal,
	"#,##0.00":      ast.PrimDecimal,
	"$0.00":         ast.PrimDecimal,
	"#,##0":         ast.PrimInt,
	"0000":          ast.PrimInt,
	"hex":           ast.PrimInt,
}

func (c *Checker) checkFormatPattern(e *ast.FormatExpression, scope *Scope) {
	valType := c.inferExpr(e.Value, scope)
	want, ok := formatPatterns[e.Pattern]
	if !ok {
		c.errorf("type.bad_format_pattern", "unknown format pattern %q", e.Pattern)
		return
	}
	if valType != nil && valType.Primitive != want {
		c.errorf("type.bad_format_pattern", "pattern %q applies to %s, got %s", e.Pattern, want, valType)
	}
}

func (c *Checker) checkActionCall(e *ast.ActionCallExpression, scope *Scope) *ast.Type {
	key := e.Action
	if e.Module != "" {
		key = e.Module + "." + e.Action
	}
	sig, ok := c.actions[key]
	if !ok {
		c.errorf("type.unknown_identifier", "call to unknown action %q", key)
		for _, arg := range e.Arguments {
			c.inferExpr(arg.Value, scope)
		}
		return nil
	}
	if len(e.Arguments) != len(sig.Params) {
		c.errorf("type.arity_mismatch", "action %q expects %d arguments, got %d", key, len(sig.Params), len(e.Arguments))
	}
	for i, arg := range e.Arguments {
		argType := c.inferExpr(arg.Value, scope)
		if i < len(sig.Params) {
			want := sig.Params[i].Type.Resolve()
			if argType != nil && !compatible(want, argType) {
				c.errorf("type.incompatible_assignment", "action %q argument %d: expected %s, got %s", key, i+1, want, argType)
			}
		}
	}
	return sig.Return
}

func (c *Checker) checkDBExpression(e *ast.DBExpression, scope *Scope) *ast.Type {
	if _, ok := c.records[e.Record]; !ok {
		c.errorf("type.unknown_identifier", "db operation references unknown data type %q", e.Record)
	}
	for _, f := range e.With {
		c.inferExpr(f.Value, scope)
	}
	for _, w := range e.Where {
		c.inferExpr(w.Value, scope)
	}
	for _, f := range e.Set {
		c.inferExpr(f.Value, scope)
	}
	switch e.Op {
	case ast.DBFindAll:
		return ast.ListOf(ast.Record(e.Record))
	default:
		return ast.Record(e.Record)
	}
}
