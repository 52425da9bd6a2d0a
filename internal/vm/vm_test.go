package vm

import (
	"strings"
	"testing"

	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/bytecode"
	"github.com/droe-lang/droe/internal/lexer"
	"github.com/droe-lang/droe/internal/parser"
)

// fakeHost is an in-memory Host recording everything it's asked to do, for
// assertions, mirroring how checker_test.go/emit_test.go drive the real
// lexer/parser instead of hand-building trees.
type fakeHost struct {
	lines   []string
	now     string
	uuid    string
	records map[string][]map[string]Value
	failed  []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{now: "2026-07-31", uuid: "fixed-uuid", records: map[string][]map[string]Value{}}
}

func (h *fakeHost) Print(text string)     { h.lines = append(h.lines, text) }
func (h *fakeHost) PrintLine(text string) { h.lines = append(h.lines, text) }
func (h *fakeHost) Now() string           { return h.now }
func (h *fakeHost) UUID() string          { return h.uuid }

func (h *fakeHost) HTTPRequest(req HTTPRequest) (HTTPResponse, error) {
	return HTTPResponse{Status: 200, Body: "ok:" + req.Method + " " + req.URL}, nil
}

func (h *fakeHost) DatabaseOp(op DBOp) (DBResult, error) {
	switch op.Code {
	case DBOpCreate:
		row := map[string]Value{}
		for _, f := range op.With {
			row[f.Name] = f.Value
		}
		h.records[op.Entity] = append(h.records[op.Entity], row)
		return DBResult{Fields: rowToFields(row)}, nil
	case DBOpFind:
		for _, row := range h.records[op.Entity] {
			if matches(row, op.Where) {
				return DBResult{Found: true, Fields: rowToFields(row)}, nil
			}
		}
		return DBResult{Found: false}, nil
	case DBOpFindAll:
		var out [][]Field
		for _, row := range h.records[op.Entity] {
			out = append(out, rowToFields(row))
		}
		return DBResult{Records: out}, nil
	}
	return DBResult{}, nil
}

func (h *fakeHost) Fail(kind, message string, line int) {
	h.failed = append(h.failed, kind+": "+message)
}

func matches(row map[string]Value, where []Field) bool {
	for _, f := range where {
		if !row[f.Name].Equal(f.Value) {
			return false
		}
	}
	return true
}

func rowToFields(row map[string]Value) []Field {
	fields := make([]Field, 0, len(row))
	for name, v := range row {
		fields = append(fields, Field{Name: name, Value: v})
	}
	return fields
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New("t.droe", src)
	p := parser.New("t.droe", l)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	return prog
}

func mustEmit(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	chunk, errs := bytecode.NewEmitter().Emit(mustParse(t, src))
	if len(errs) != 0 {
		t.Fatalf("unexpected emit errors: %v", errs)
	}
	return chunk
}

func TestRunDisplayLiteral(t *testing.T) {
	chunk := mustEmit(t, `display "hello"`+"\n")
	host := newFakeHost()
	code, err := NewVM(host).Run(chunk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if len(host.lines) != 1 || host.lines[0] != "hello" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestRunArithmeticOnGlobals(t *testing.T) {
	chunk := mustEmit(t, "set total to 2 plus 3\ndisplay total\n")
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.lines) != 1 || host.lines[0] != "5" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestRunActionCallReturnsValue(t *testing.T) {
	src := `action add with a which is int, b which is int gives int
give a plus b
end action
set result to add with a which is 4, b which is 5
display result
`
	chunk := mustEmit(t, src)
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.lines) != 1 || host.lines[0] != "9" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestRunWhenBranchesOnCondition(t *testing.T) {
	src := `set score to 85
when score is greater than or equal to 90 then
display "A"
otherwise when score is greater than or equal to 80 then
display "B"
otherwise
display "F"
end when
`
	chunk := mustEmit(t, src)
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.lines) != 1 || host.lines[0] != "B" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestRunForEachOverCollectionLiteral(t *testing.T) {
	chunk := mustEmit(t, "for each n in list of 1, 2, 3\ndisplay n\nend for\n")
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(host.lines, ",") != "1,2,3" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestRunShortCircuitAndSkipsRightSide(t *testing.T) {
	// "1 is greater than 2" is false; the right side ("1 divided by 0 is
	// greater than 0", which would divide by zero) must never execute.
	src := `set ok to (1 is greater than 2) and (1 divided by 0 is greater than 0)
display ok
`
	chunk := mustEmit(t, src)
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error (right side of and must short-circuit away): %v", err)
	}
	if len(host.lines) != 1 || host.lines[0] != "false" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestRunDBCreateSynthesizesAutoKeyField(t *testing.T) {
	src := `data Order
id is text key auto
total is decimal required
end data
set created to db create Order with total which is 9.99
`
	chunk := mustEmit(t, src)
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := host.records["Order"]
	if len(rows) != 1 {
		t.Fatalf("got rows %#v", rows)
	}
	if rows[0]["id"].Text != "fixed-uuid" {
		t.Fatalf("expected synthesized id from host.UUID(), got %#v", rows[0]["id"])
	}
	if rows[0]["total"].AsDecimalScaled() != 999 {
		t.Fatalf("got total %#v", rows[0]["total"])
	}
}

func TestRunDBFindWhereMatches(t *testing.T) {
	src := `data Order
id is text key auto
total is decimal required
end data
set created to db create Order with id which is "o1", total which is 9.99
set found to db find Order where id equals "o1"
display found.total
`
	chunk := mustEmit(t, src)
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.lines) != 1 || host.lines[0] != "9.99" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestRunOutboundCallForwardsToHost(t *testing.T) {
	src := `call "https://api.example.com/orders" method POST using headers
Authorization which is "secret"
end headers into result
display result
`
	chunk := mustEmit(t, src)
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.lines) != 1 || host.lines[0] != "Response" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestInvokeRespondReturnsResponseRecordOffTopOfStack(t *testing.T) {
	src := `serve GET /users/:id
respond 200
end serve
`
	chunk := mustEmit(t, src)
	host := newFakeHost()
	v := NewVM(host)
	result, err := v.Invoke(chunk, chunk.Endpoints[0], Nil())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsRecord() || result.Record.TypeName != "Response" {
		t.Fatalf("got %#v", result)
	}
	if result.Record.Fields[0].Int != 200 {
		t.Fatalf("got status %#v", result.Record.Fields[0])
	}
}

func TestRunIntOverflowIsRuntimeError(t *testing.T) {
	chunk := mustEmit(t, "set big to 2147483647 plus 1\n")
	host := newFakeHost()
	code, err := NewVM(host).Run(chunk)
	if err == nil {
		t.Fatalf("expected a runtime.overflow error")
	}
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != "runtime.overflow" {
		t.Fatalf("got %#v", err)
	}
	if len(host.failed) != 1 {
		t.Fatalf("expected host.Fail to be called once, got %#v", host.failed)
	}
}

func TestRunIntDivisionByZeroIsRuntimeError(t *testing.T) {
	chunk := mustEmit(t, "set oops to 10 divided by 0\n")
	host := newFakeHost()
	_, err := NewVM(host).Run(chunk)
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != "runtime.divzero" {
		t.Fatalf("got %#v", err)
	}
}

func TestRunInterpolatedString(t *testing.T) {
	chunk := mustEmit(t, "set name to \"world\"\ndisplay \"hello [name]!\"\n")
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.lines) != 1 || host.lines[0] != "hello world!" {
		t.Fatalf("got lines %#v", host.lines)
	}
}

func TestRunFormatDecimal(t *testing.T) {
	chunk := mustEmit(t, `display 1234.5 format as "#,##0.00"`+"\n")
	host := newFakeHost()
	if _, err := NewVM(host).Run(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.lines) != 1 || host.lines[0] != "1,234.50" {
		t.Fatalf("got lines %#v", host.lines)
	}
}
