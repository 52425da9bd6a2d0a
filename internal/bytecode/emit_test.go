package bytecode

import (
	"strings"
	"testing"

	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/lexer"
	"github.com/droe-lang/droe/internal/parser"
)

func mustParseForEmit(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New("t.droe", src)
	p := parser.New("t.droe", l)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	return prog
}

func mustEmit(t *testing.T, src string) *Chunk {
	t.Helper()
	prog := mustParseForEmit(t, src)
	chunk, errs := NewEmitter().Emit(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected emit errors: %v", errs)
	}
	return chunk
}

func TestEmitSetAndDisplayUseGlobals(t *testing.T) {
	chunk := mustEmit(t, "set counter to 1\ndisplay counter\n")
	if chunk.GlobalCount != 1 {
		t.Fatalf("GlobalCount = %d, want 1", chunk.GlobalCount)
	}
	dis := Disassemble(chunk)
	if !strings.Contains(dis, "StoreGlobal") || !strings.Contains(dis, "LoadGlobal") {
		t.Fatalf("expected global load/store, got:\n%s", dis)
	}
	if strings.Contains(dis, "Local") {
		t.Fatalf("top-level binding must not use locals, got:\n%s", dis)
	}
	if !strings.HasSuffix(strings.TrimRight(dis, "\n"), "Halt") {
		t.Fatalf("expected trailing Halt, got:\n%s", dis)
	}
}

func TestEmitActionParamsAndLocalsUseLocalSlots(t *testing.T) {
	src := `action add with a which is int, b which is int gives int
set total to a plus b
give total
end action
`
	chunk := mustEmit(t, src)
	if len(chunk.Modules) != 1 || len(chunk.Modules[0].Actions) != 1 {
		t.Fatalf("got modules %#v", chunk.Modules)
	}
	act := chunk.Modules[0].Actions[0]
	if act.Locals != 3 {
		t.Fatalf("Locals = %d, want 3 (a, b, total)", act.Locals)
	}
	dis := Disassemble(chunk)
	if !strings.Contains(dis, "EnterFrame") || !strings.Contains(dis, "AddI") || !strings.Contains(dis, "Return") {
		t.Fatalf("expected action body with EnterFrame/AddI/Return, got:\n%s", dis)
	}
}

func TestEmitActionCallResolvesCallTarget(t *testing.T) {
	src := `action double with n which is int gives int
give n times 2
end action
set result to double with n which is 5
`
	chunk := mustEmit(t, src)
	if len(chunk.CallTargets) != 1 {
		t.Fatalf("CallTargets = %#v, want exactly 1", chunk.CallTargets)
	}
	target := chunk.CallTargets[0]
	if target.ModuleIndex != 0 || target.ActionIndex != 0 {
		t.Fatalf("got %#v, want module 0 action 0", target)
	}
	dis := Disassemble(chunk)
	if !strings.Contains(dis, "Call") {
		t.Fatalf("expected a Call instruction, got:\n%s", dis)
	}
}

func TestEmitModuleQualifiedActionCall(t *testing.T) {
	src := `module math
action square with n which is int gives int
give n times n
end action
end module
set result to math.square with n which is 4
`
	chunk := mustEmit(t, src)
	if len(chunk.Modules) != 1 || chunk.Modules[0].Name != "math" {
		t.Fatalf("got modules %#v", chunk.Modules)
	}
	if len(chunk.CallTargets) != 1 || chunk.CallTargets[0].ModuleIndex != 0 {
		t.Fatalf("got CallTargets %#v", chunk.CallTargets)
	}
}

func TestEmitWhenChainPatchesJumpsToSharedEnd(t *testing.T) {
	src := `when score is greater than or equal to 90 then
display "A"
otherwise when score is greater than or equal to 80 then
display "B"
otherwise
display "F"
end when
`
	prog := mustParseForEmit(t, "set score to 85\n"+src)
	chunk, errs := NewEmitter().Emit(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected emit errors: %v", errs)
	}

	var falseJumps, plainJumps []Instruction
	var plainJumpIdx []int
	for i, instr := range chunk.Code {
		switch instr.OpCode() {
		case OpJumpIfFalse:
			falseJumps = append(falseJumps, instr)
		case OpJump:
			plainJumps = append(plainJumps, instr)
			plainJumpIdx = append(plainJumpIdx, i)
		}
	}
	if len(falseJumps) != 2 {
		t.Fatalf("expected 2 JumpIfFalse (one per conditioned clause), got %d", len(falseJumps))
	}
	if len(plainJumps) != 2 {
		t.Fatalf("expected 2 trailing Jumps (one after each conditioned clause's body), got %d", len(plainJumps))
	}
	// Both branches must land past every clause, i.e. on the final Halt.
	haltIdx := -1
	for i, instr := range chunk.Code {
		if instr.OpCode() == OpHalt {
			haltIdx = i
		}
	}
	if haltIdx < 0 {
		t.Fatalf("expected a Halt instruction")
	}
	for k, idx := range plainJumpIdx {
		if target := idx + 1 + int(plainJumps[k].SignedB()); target != haltIdx {
			t.Fatalf("Jump at %d lands on %d, want the final Halt at %d", idx, target, haltIdx)
		}
	}
}

func TestEmitWhileLoopJumpsBackward(t *testing.T) {
	chunk := mustEmit(t, "set n to 0\nwhile n is less than 3\nset n to n plus 1\nend while\n")
	var back Instruction
	found := false
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpJump && instr.SignedB() < 0 {
			back = instr
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a backward Jump closing the while loop")
	}
	_ = back
}

func TestEmitForEachOverCollectionUsesIterProtocol(t *testing.T) {
	chunk := mustEmit(t, "set items to list of 1, 2, 3\nfor each item in items\ndisplay item\nend for\n")
	dis := Disassemble(chunk)
	if !strings.Contains(dis, "IterBegin") || !strings.Contains(dis, "IterNext") {
		t.Fatalf("expected IterBegin/IterNext, got:\n%s", dis)
	}
	var iterNext Instruction
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpIterNext {
			iterNext = instr
		}
	}
	if iterNext.SignedB() <= 0 {
		t.Fatalf("IterNext exhaustion offset should jump forward, got %d", iterNext.SignedB())
	}
}

func TestEmitIsEmptyReusesIterProtocolNotADedicatedOpcode(t *testing.T) {
	chunk := mustEmit(t, "set items to list of 1\nset flag to items is empty\n")
	dis := Disassemble(chunk)
	if !strings.Contains(dis, "IterBegin") || !strings.Contains(dis, "IterNext") {
		t.Fatalf("expected is-empty to lower through IterBegin/IterNext, got:\n%s", dis)
	}
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpMakeRecord {
			t.Fatalf("is empty must not introduce a dedicated opcode")
		}
	}
}

func TestEmitIsNotEmptyNegatesFlagConstants(t *testing.T) {
	chunk := mustEmit(t, "set items to list of 1\nset flag to items is not empty\n")
	var flags []bool
	for _, k := range chunk.Constants {
		if k.Tag == TagFlag {
			flags = append(flags, k.Flag)
		}
	}
	if len(flags) != 2 {
		t.Fatalf("expected both a true and a false flag constant interned, got %v", flags)
	}
}

func TestEmitDataDeclRegistersRecordSchemaInFieldOrder(t *testing.T) {
	src := `data Order
id is text key auto
total is decimal required
end data
`
	chunk := mustEmit(t, src)
	if len(chunk.RecordSchemas) != 1 {
		t.Fatalf("got %#v", chunk.RecordSchemas)
	}
	schema := chunk.RecordSchemas[0]
	if schema.Name != "Order" || len(schema.Fields) != 2 {
		t.Fatalf("got %#v", schema)
	}
	if schema.Fields[0].Name != "id" || schema.Fields[1].Name != "total" {
		t.Fatalf("expected field order id, total, got %#v", schema.Fields)
	}
	dis := Disassemble(chunk)
	if !strings.HasPrefix(dis, "0000") || !strings.Contains(strings.SplitN(dis, "\n", 2)[0], "DefineData") {
		t.Fatalf("expected the first instruction to be DefineData, got:\n%s", dis)
	}
}

func TestEmitPropertyAccessResolvesFieldIndex(t *testing.T) {
	src := `data Order
id is text key auto
total is decimal required
end data
set found to db find Order where id equals "o1"
set amount to found.total
`
	chunk := mustEmit(t, src)
	var getField Instruction
	found := false
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpGetField {
			getField = instr
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a GetField instruction")
	}
	// total is field index 1 (id is 0).
	if getField.B() != 1 {
		t.Fatalf("GetField index = %d, want 1 (total)", getField.B())
	}
}

func TestEmitDBCreateUsesWithOperandsAndMappedOpcode(t *testing.T) {
	src := `data Order
id is text key auto
total is decimal required
end data
set created to db create Order with total which is 9.99
`
	chunk := mustEmit(t, src)
	var dbOp Instruction
	found := false
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpDatabaseOp {
			dbOp = instr
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DatabaseOp instruction")
	}
	if DBOpCode(dbOp.A()) != DBOpCreate {
		t.Fatalf("DatabaseOp opcode = %v, want DBOpCreate (ast.DBCreate must map to DBOpCreate, not cast numerically)", DBOpCode(dbOp.A()))
	}
	if int(dbOp.B()) != 0 {
		t.Fatalf("DatabaseOp entity index = %d, want 0 (Order)", dbOp.B())
	}
}

func TestEmitDBFindWhereUsesMappedOpcode(t *testing.T) {
	src := `data Order
id is text key auto
total is decimal required
end data
set found to db find Order where id equals "o1"
`
	chunk := mustEmit(t, src)
	var dbOp Instruction
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpDatabaseOp {
			dbOp = instr
		}
	}
	if DBOpCode(dbOp.A()) != DBOpFind {
		t.Fatalf("DatabaseOp opcode = %v, want DBOpFind", DBOpCode(dbOp.A()))
	}
}

func TestEmitServeRespondWiresEndpointAndHandler(t *testing.T) {
	src := `serve GET /users/:id
respond 200 with request
end serve
`
	chunk := mustEmit(t, src)
	if len(chunk.Endpoints) != 1 {
		t.Fatalf("got %#v", chunk.Endpoints)
	}
	ep := chunk.Endpoints[0]
	if ep.Method != MethodGet || ep.PathTemplate != "/users/:id" {
		t.Fatalf("got %#v", ep)
	}
	if chunk.Code[0].OpCode() != OpDefineEndpoint {
		t.Fatalf("expected first instruction to be DefineEndpoint, got %s", chunk.Code[0].OpCode())
	}

	handlerCode := chunk.Code[ep.HandlerEntry:]
	var sawHostCall, sawEndHandler bool
	for _, instr := range handlerCode {
		switch instr.OpCode() {
		case OpHostCall:
			if HostFn(instr.B()) == HostRespond {
				sawHostCall = true
			}
		case OpEndHandler:
			sawEndHandler = true
		}
	}
	if !sawHostCall {
		t.Fatalf("expected the handler body to HostCall HostRespond")
	}
	if !sawEndHandler {
		t.Fatalf("expected the handler body to end with EndHandler")
	}
}

func TestEmitCallStatementEncodesHTTPRequestOperands(t *testing.T) {
	src := `call "https://api.example.com/orders" method POST using headers
Authorization which is "secret"
end headers into result
`
	chunk := mustEmit(t, src)
	var hostCall Instruction
	found := false
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpHostCall && HostFn(instr.B()) == HostHTTPRequest {
			hostCall = instr
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a HostCall HostHTTPRequest instruction")
	}
	// method(1) + url(1) + header pair(2) + header count(1) + no-body flag(1) = 6
	if hostCall.A() != 6 {
		t.Fatalf("HostCall argc = %d, want 6", hostCall.A())
	}
	if chunk.GlobalCount != 1 {
		t.Fatalf("expected CallStatement's ResultVar to declare one global, got GlobalCount=%d", chunk.GlobalCount)
	}
}

func TestEmitArithmeticPromotesToDecimalOpcodeWhenEitherOperandIsDecimal(t *testing.T) {
	chunk := mustEmit(t, "set total to 1 plus 2.50\n")
	var sawAddD bool
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpAddD {
			sawAddD = true
		}
	}
	if !sawAddD {
		t.Fatalf("expected AddD since one operand is decimal")
	}
}

func TestEmitInterpolatedStringEmitsChunksAndInterp(t *testing.T) {
	chunk := mustEmit(t, `set name to "Ada"
display "Hello, [name]!"
`)
	var interp Instruction
	found := false
	for _, instr := range chunk.Code {
		if instr.OpCode() == OpInterp {
			interp = instr
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an Interp instruction")
	}
	if interp.A() != 1 {
		t.Fatalf("Interp expr count = %d, want 1", interp.A())
	}
}

func TestEmitUnknownIdentifierRecordsCodegenError(t *testing.T) {
	prog := mustParseForEmit(t, "display missing\n")
	_, errs := NewEmitter().Emit(prog)
	if len(errs) == 0 {
		t.Fatalf("expected a codegen error for an undeclared identifier")
	}
	if errs[0].Kind != "codegen.unknown_identifier" {
		t.Fatalf("got %v", errs)
	}
}

func TestEmitScreenDeclSkipsBytecodeEntirely(t *testing.T) {
	src := `screen Home
title "Welcome"
end screen
`
	chunk := mustEmit(t, src)
	if len(chunk.Code) != 1 || chunk.Code[0].OpCode() != OpHalt {
		t.Fatalf("a screen-only program should lower to nothing but Halt, got:\n%s", Disassemble(chunk))
	}
}
