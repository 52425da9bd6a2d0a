package bytecode

import "github.com/droe-lang/droe/internal/ast"

// emitBlock emits every statement of b in a child scope, so names declared
// inside don't leak to the enclosing block.
func (e *Emitter) emitBlock(b *ast.Block) {
	if b == nil {
		return
	}
	prev := e.scope
	e.scope = prev.child()
	for _, stmt := range b.Statements {
		e.emitStatement(stmt)
	}
	e.scope = prev
}

func (e *Emitter) emitStatement(stmt ast.Statement) {
	line := stmt.Pos().Line
	switch s := stmt.(type) {
	case *ast.DisplayStatement:
		e.emitExpr(s.Value)
		e.chunk.Emit(MakeSimpleInstruction(OpDisplay), line)

	case *ast.SetStatement:
		e.emitExpr(s.Value)
		if b, ok := e.scope.lookup(s.Name); ok {
			e.storeBinding(b, line)
			return
		}
		t := s.TypeHint.Resolve()
		if t == nil {
			t = e.inferType(s.Value)
		}
		var b binding
		if e.inAction {
			b = e.declareLocal(s.Name, t)
		} else {
			b = e.declareGlobal(s.Name, t)
		}
		e.storeBinding(b, line)

	case *ast.ReassignStatement:
		e.emitExpr(s.Value)
		b, ok := e.scope.lookup(s.Name)
		if !ok {
			e.errorf(s.Pos(), "codegen.unknown_identifier", "reassignment of undeclared %q", s.Name)
			e.chunk.Emit(MakeSimpleInstruction(OpPop), line)
			return
		}
		e.storeBinding(b, line)

	case *ast.WhenStatement:
		e.emitWhen(s, line)

	case *ast.WhileStatement:
		e.emitWhile(s, line)

	case *ast.ForEachStatement:
		e.emitForEach(s, line)

	case *ast.ReturnStatement:
		if s.Value != nil {
			e.emitExpr(s.Value)
		}
		e.chunk.Emit(MakeSimpleInstruction(OpReturn), line)

	case *ast.RespondStatement:
		e.emitExpr(s.Status)
		argc := uint8(1)
		if s.Body != nil {
			e.emitExpr(s.Body)
			argc = 2
		}
		e.chunk.Emit(MakeInstruction(OpHostCall, argc, int32(HostRespond)), line)

	case *ast.CallStatement:
		e.emitHTTPCall(s.Method, s.URL, s.Headers, s.Body, line)
		var b binding
		if e.inAction {
			b = e.declareLocal(s.ResultVar, ast.Record("Response"))
		} else {
			b = e.declareGlobal(s.ResultVar, ast.Record("Response"))
		}
		e.storeBinding(b, line)

	case *ast.ExpressionStatement:
		e.emitExpr(s.Expr)
		e.chunk.Emit(MakeSimpleInstruction(OpPop), line)
	}
}

func (e *Emitter) emitWhen(s *ast.WhenStatement, line int) {
	var endJumps []int
	for i, clause := range s.Clauses {
		if clause.Condition == nil {
			e.emitBlock(clause.Body)
			continue
		}
		e.emitExpr(clause.Condition)
		falseJump := e.emitJump(OpJumpIfFalse, clause.Token.Pos.Line)
		e.emitBlock(clause.Body)
		if i != len(s.Clauses)-1 {
			endJumps = append(endJumps, e.emitJump(OpJump, clause.Token.Pos.Line))
		}
		e.patchJump(falseJump, len(e.chunk.Code))
	}
	end := len(e.chunk.Code)
	for _, j := range endJumps {
		e.patchJump(j, end)
	}
}

func (e *Emitter) emitWhile(s *ast.WhileStatement, line int) {
	condStart := len(e.chunk.Code)
	e.emitExpr(s.Condition)
	exitJump := e.emitJump(OpJumpIfFalse, line)
	e.emitBlock(s.Body)
	back := e.emitJump(OpJump, line)
	e.patchJump(back, condStart)
	e.patchJump(exitJump, len(e.chunk.Code))
}

// emitForEach lowers "for each <var> in <collection>" using IterBegin at
// the top and IterNext at the tail, per the teacher-independent convention
// recorded in DESIGN.md: IterNext pushes the next element and falls
// through when one is available, or jumps past the loop (popping the
// exhausted iterator) when not.
func (e *Emitter) emitForEach(s *ast.ForEachStatement, line int) {
	collType := e.inferType(s.Collection)
	elemType := ast.Text()
	if collType != nil && collType.IsCollection() {
		elemType = collType.Elem
	}

	e.emitExpr(s.Collection)
	e.chunk.Emit(MakeSimpleInstruction(OpIterBegin), line)

	loopStart := len(e.chunk.Code)
	iterNext := e.emitJump(OpIterNext, line)

	prev := e.scope
	e.scope = prev.child()
	var b binding
	if e.inAction {
		b = e.declareLocal(s.Var, elemType)
	} else {
		b = e.declareGlobal(s.Var, elemType)
	}
	e.storeBinding(b, line)
	for _, st := range s.Body.Statements {
		e.emitStatement(st)
	}
	e.scope = prev

	back := e.emitJump(OpJump, line)
	e.patchJump(back, loopStart)
	e.patchJump(iterNext, len(e.chunk.Code))
}

// emitHTTPCall lowers an outbound HTTP request to a HostCall HostHTTPRequest
// instruction. Operands are pushed bottom-to-top as: method, url, then each
// header's (value, name) pair, then the header count, then (if a body is
// present) a true flag followed by the body value, or else a bare false
// flag. The header count and the body-presence flag let the host pop
// exactly the right number of values without a separate descriptor table.
func (e *Emitter) emitHTTPCall(method string, url ast.Expression, headers []ast.Argument, body ast.Expression, line int) {
	methodIdx := e.intern(Const{Tag: TagText, S: method})
	e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(methodIdx)), line)
	e.emitExpr(url)

	for _, h := range headers {
		e.emitExpr(h.Value)
		nameIdx := e.intern(Const{Tag: TagText, S: h.Name})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(nameIdx)), line)
	}
	countIdx := e.intern(Const{Tag: TagInt, I: int64(len(headers))})
	e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(countIdx)), line)

	argc := 2 + 2*len(headers) + 1
	if body != nil {
		trueIdx := e.intern(Const{Tag: TagFlag, Flag: true})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(trueIdx)), line)
		e.emitExpr(body)
		argc += 2
	} else {
		falseIdx := e.intern(Const{Tag: TagFlag, Flag: false})
		e.chunk.Emit(MakeInstruction(OpPushConst, 0, int32(falseIdx)), line)
		argc++
	}

	e.chunk.Emit(MakeInstruction(OpHostCall, uint8(argc), int32(HostHTTPRequest)), line)
}
