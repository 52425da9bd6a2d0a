package bytecode

import "github.com/droe-lang/droe/internal/ast"

// emitExpr lowers expr, leaving exactly one value on the operand stack.
func (e *Emitter) emitExpr(expr ast.Expression) {
	line := expr.Pos().Line
	switch ex := expr.(type) {
	case *ast.IntLiteral:
		idx := e.intern(Const{Tag: TagInt, I: ex.Value})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)

	case *ast.DecimalLiteral:
		idx := e.intern(Const{Tag: TagDecimal, I: ex.Scaled})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)

	case *ast.TextLiteral:
		idx := e.intern(Const{Tag: TagText, S: ex.Value})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)

	case *ast.FlagLiteral:
		idx := e.intern(Const{Tag: TagFlag, Flag: ex.Value})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)

	case *ast.DateLiteral:
		idx := e.intern(Const{Tag: TagDate, S: ex.Value})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)

	case *ast.FileLiteral:
		idx := e.intern(Const{Tag: TagFile, S: ex.Value})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)

	case *ast.EmptyLiteral:
		e.chunk.Emit(MakeInstruction(OpMakeList, 0, 0), line)

	case *ast.Identifier:
		b, ok := e.scope.lookup(ex.Name)
		if !ok {
			e.errorf(ex.Pos(), "codegen.unknown_identifier", "identifier %q is not declared", ex.Name)
			idx := e.intern(Const{Tag: TagInt, I: 0})
			e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)
			return
		}
		e.loadBinding(b, line)

	case *ast.PropertyAccess:
		e.emitPropertyAccess(ex, line)

	case *ast.BinaryExpression:
		e.emitBinary(ex, line)

	case *ast.UnaryExpression:
		e.emitExpr(ex.Operand)
		if ex.Op == "not" {
			e.chunk.Emit(MakeSimpleInstruction(OpNot), line)
		} else {
			e.chunk.Emit(MakeSimpleInstruction(OpNeg), line)
		}

	case *ast.CollectionLiteral:
		for _, el := range ex.Elements {
			e.emitExpr(el)
		}
		op := OpMakeList
		if ex.Kind == ast.GroupKind {
			op = OpMakeGroup
		}
		e.chunk.Emit(MakeInstruction(op, uint8(len(ex.Elements)), 0), line)

	case *ast.InterpolatedString:
		for i, chunk := range ex.Chunks {
			idx := e.intern(Const{Tag: TagText, S: chunk})
			e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)
			if i < len(ex.Exprs) {
				e.emitExpr(ex.Exprs[i])
			}
		}
		e.chunk.Emit(MakeInstruction(OpInterp, uint8(len(ex.Exprs)), 0), line)

	case *ast.EmptyCheckExpression:
		e.emitEmptyCheck(ex, line)

	case *ast.FormatExpression:
		e.emitExpr(ex.Value)
		idx := e.intern(Const{Tag: TagPattern, S: ex.Pattern})
		e.chunk.Emit(MakeInstruction(OpFormat, 0, int32(idx)), line)

	case *ast.ActionCallExpression:
		e.emitActionCall(ex, line)

	case *ast.HTTPCallExpression:
		e.emitHTTPCall(ex.Method, ex.URL, ex.Headers, ex.Body, line)

	case *ast.DBExpression:
		e.emitDBExpression(ex, line)
	}
}

func (e *Emitter) emitPropertyAccess(ex *ast.PropertyAccess, line int) {
	e.emitExpr(ex.Target)
	targetType := e.inferType(ex.Target)
	if targetType == nil || !targetType.IsRecord() {
		e.errorf(ex.Pos(), "codegen.bad_field_access", "%q is not a record field access target", ex.Target.String())
		e.chunk.Emit(MakeSimpleInstruction(OpPop), line)
		idx := e.intern(Const{Tag: TagInt, I: 0})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(idx)), line)
		return
	}
	fieldIdx, _, ok := e.resolveField(targetType.RecordName, ex.Property)
	if !ok {
		e.errorf(ex.Pos(), "codegen.unknown_identifier", "data %q has no field %q", targetType.RecordName, ex.Property)
		fieldIdx = 0
	}
	e.chunk.Emit(MakeInstruction(OpGetField, 0, int32(fieldIdx)), line)
}

func (e *Emitter) emitBinary(ex *ast.BinaryExpression, line int) {
	if ex.Op == ast.OpAnd || ex.Op == ast.OpOr {
		e.emitShortCircuit(ex, line)
		return
	}

	e.emitExpr(ex.Left)
	e.emitExpr(ex.Right)

	switch ex.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		lt, rt := e.inferType(ex.Left), e.inferType(ex.Right)
		decimal := (lt != nil && lt.Primitive == ast.PrimDecimal) || (rt != nil && rt.Primitive == ast.PrimDecimal)
		e.chunk.Emit(MakeSimpleInstruction(arithOpCode(ex.Op, decimal)), line)
	case ast.OpLt:
		e.chunk.Emit(MakeSimpleInstruction(OpLt), line)
	case ast.OpLtEq:
		e.chunk.Emit(MakeSimpleInstruction(OpLe), line)
	case ast.OpGt:
		e.chunk.Emit(MakeSimpleInstruction(OpGt), line)
	case ast.OpGtEq:
		e.chunk.Emit(MakeSimpleInstruction(OpGe), line)
	case ast.OpEq:
		e.chunk.Emit(MakeSimpleInstruction(OpEq), line)
	case ast.OpNotEq:
		e.chunk.Emit(MakeSimpleInstruction(OpNe), line)
	}
}

// emitShortCircuit lowers "and"/"or" per spec's explicit short-circuit
// lowering decision: Dup the left flag, branch on it with JumpIfFalse (for
// "and") or JumpIfTrue (for "or"), discard the duplicate and evaluate the
// right side only when the left side didn't already decide the result,
// leaving exactly one flag value on the stack either way.
func (e *Emitter) emitShortCircuit(ex *ast.BinaryExpression, line int) {
	e.emitExpr(ex.Left)
	e.chunk.Emit(MakeSimpleInstruction(OpDup), line)

	var decideJump int
	if ex.Op == ast.OpAnd {
		decideJump = e.emitJump(OpJumpIfFalse, line)
	} else {
		decideJump = e.emitJump(OpJumpIfTrue, line)
	}

	e.chunk.Emit(MakeSimpleInstruction(OpPop), line)
	e.emitExpr(ex.Right)
	toEnd := e.emitJump(OpJump, line)

	e.patchJump(decideJump, len(e.chunk.Code))
	e.patchJump(toEnd, len(e.chunk.Code))
}

func arithOpCode(op ast.BinaryOp, decimal bool) OpCode {
	switch op {
	case ast.OpAdd:
		if decimal {
			return OpAddD
		}
		return OpAddI
	case ast.OpSub:
		if decimal {
			return OpSubD
		}
		return OpSubI
	case ast.OpMul:
		if decimal {
			return OpMulD
		}
		return OpMulI
	default: // ast.OpDiv
		if decimal {
			return OpDivD
		}
		return OpDivI
	}
}

// emitEmptyCheck lowers "<expr> is [not] empty" via IterBegin/IterNext,
// the same polymorphic collection-or-text iteration protocol "for each"
// uses, rather than a dedicated opcode (the instruction set has none).
func (e *Emitter) emitEmptyCheck(ex *ast.EmptyCheckExpression, line int) {
	e.emitExpr(ex.Value)
	e.chunk.Emit(MakeSimpleInstruction(OpIterBegin), line)
	emptyJump := e.emitJump(OpIterNext, line)

	// Non-empty: an element was pushed; discard it, push "not empty", skip
	// past the empty case.
	e.chunk.Emit(MakeSimpleInstruction(OpPop), line)
	notEmptyIdx := e.intern(Const{Tag: TagFlag, Flag: ex.Negated})
	e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(notEmptyIdx)), line)
	toEnd := e.emitJump(OpJump, line)

	e.patchJump(emptyJump, len(e.chunk.Code))
	emptyIdx := e.intern(Const{Tag: TagFlag, Flag: !ex.Negated})
	e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(emptyIdx)), line)

	e.patchJump(toEnd, len(e.chunk.Code))
}

func (e *Emitter) emitActionCall(ex *ast.ActionCallExpression, line int) {
	for _, arg := range ex.Arguments {
		e.emitExpr(arg.Value)
	}
	key := ex.Action
	if ex.Module != "" {
		key = ex.Module + "." + ex.Action
	}
	idx, ok := e.callTargetFor(key)
	if !ok {
		e.errorf(ex.Pos(), "codegen.unknown_identifier", "call to unknown action %q", key)
		return
	}
	e.chunk.Emit(MakeInstruction(OpCall, uint8(len(ex.Arguments)), int32(idx)), line)
}

// dbOpCode translates the parser's ast.DBOperation ordering to the
// bytecode package's DBOpCode ordering. The two enums are not numerically
// aligned (ast.DBOperation lists create first; DBOpCode lists find first),
// so this must be an explicit mapping, never a numeric cast.
func dbOpCode(op ast.DBOperation) DBOpCode {
	switch op {
	case ast.DBCreate:
		return DBOpCreate
	case ast.DBFind:
		return DBOpFind
	case ast.DBFindAll:
		return DBOpFindAll
	case ast.DBUpdate:
		return DBOpUpdate
	case ast.DBDelete:
		return DBOpDelete
	}
	return DBOpFind
}

// emitDBExpression lowers a "db <op> <Entity> [with ...] [where ...] [set
// ...]" expression. Operands are pushed bottom-to-top as three groups, Set
// then Where then With, each a run of (value, field-name) pairs followed
// by its own count; DatabaseOp's host adapter reads Set first (update
// assignments), then Where (the filter predicate), then With (the create/
// seed assignments).
func (e *Emitter) emitDBExpression(ex *ast.DBExpression, line int) {
	for _, f := range ex.Set {
		e.emitExpr(f.Value)
		nameIdx := e.intern(Const{Tag: TagText, S: f.Name})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(nameIdx)), line)
	}
	setCountIdx := e.intern(Const{Tag: TagInt, I: int64(len(ex.Set))})
	e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(setCountIdx)), line)

	for _, w := range ex.Where {
		e.emitExpr(w.Value)
		nameIdx := e.intern(Const{Tag: TagText, S: w.Field})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(nameIdx)), line)
	}
	whereCountIdx := e.intern(Const{Tag: TagInt, I: int64(len(ex.Where))})
	e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(whereCountIdx)), line)

	for _, f := range ex.With {
		e.emitExpr(f.Value)
		nameIdx := e.intern(Const{Tag: TagText, S: f.Name})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(nameIdx)), line)
	}
	withCountIdx := e.intern(Const{Tag: TagInt, I: int64(len(ex.With))})
	e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(withCountIdx)), line)

	entityIdx, ok := e.recordIndex[ex.Record]
	if !ok {
		e.errorf(ex.Pos(), "codegen.unknown_identifier", "db operation references unknown data type %q", ex.Record)
	}
	e.chunk.Emit(MakeInstruction(OpDatabaseOp, uint8(dbOpCode(ex.Op)), int32(entityIdx)), line)
}

// inferType computes expr's static type using the emitter's own symbol
// tables, mirroring the checker's inferExpr (the checker does not annotate
// the AST with resolved types, so the emitter re-derives what it needs to
// pick typed opcodes and resolve field indices).
func (e *Emitter) inferType(expr ast.Expression) *ast.Type {
	switch ex := expr.(type) {
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
		if b, ok := e.scope.lookup(ex.Name); ok {
			return b.Type
		}
		return nil
	case *ast.PropertyAccess:
		targetType := e.inferType(ex.Target)
		if targetType == nil || !targetType.IsRecord() {
			return nil
		}
		_, t, ok := e.resolveField(targetType.RecordName, ex.Property)
		if !ok {
			return nil
		}
		return t
	case *ast.BinaryExpression:
		switch ex.Op {
		case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
			lt, rt := e.inferType(ex.Left), e.inferType(ex.Right)
			if lt != nil && lt.Primitive == ast.PrimDecimal {
				return ast.Decimal()
			}
			if rt != nil && rt.Primitive == ast.PrimDecimal {
				return ast.Decimal()
			}
			return ast.Int()
		default:
			return ast.Flag()
		}
	case *ast.UnaryExpression:
		if ex.Op == "not" {
			return ast.Flag()
		}
		return e.inferType(ex.Operand)
	case *ast.CollectionLiteral:
		var elem *ast.Type
		for _, el := range ex.Elements {
			if elem == nil {
				elem = e.inferType(el)
			}
		}
		if ex.Kind == ast.GroupKind {
			return ast.GroupOf(elem)
		}
		return ast.ListOf(elem)
	case *ast.InterpolatedString:
		return ast.Text()
	case *ast.EmptyCheckExpression:
		return ast.Flag()
	case *ast.FormatExpression:
		return ast.Text()
	case *ast.ActionCallExpression:
		key := ex.Action
		if ex.Module != "" {
			key = ex.Module + "." + ex.Action
		}
		if sig, ok := e.actionSigs[key]; ok {
			return sig.Returns
		}
		return nil
	case *ast.HTTPCallExpression:
		return ast.Record("Response")
	case *ast.DBExpression:
		if ex.Op == ast.DBFindAll {
			return ast.ListOf(ast.Record(ex.Record))
		}
		return ast.Record(ex.Record)
	}
	return nil
}
