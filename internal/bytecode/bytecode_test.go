package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/droe-lang/droe/internal/ast"
)

func TestInstructionPacksAndUnpacks(t *testing.T) {
	i := MakeInstruction(OpCall, 3, 17)
	if i.OpCode() != OpCall {
		t.Fatalf("OpCode = %v, want OpCall", i.OpCode())
	}
	if i.A() != 3 {
		t.Fatalf("A = %d, want 3", i.A())
	}
	if i.B() != 17 {
		t.Fatalf("B = %d, want 17", i.B())
	}
}

func TestInstructionSignedBHandlesNegativeOffsets(t *testing.T) {
	i := MakeInstruction(OpJump, 0, -5)
	if got := i.SignedB(); got != -5 {
		t.Fatalf("SignedB = %d, want -5", got)
	}
}

func TestChunkEmitAndPatch(t *testing.T) {
	c := NewChunk()
	idx := c.Emit(MakeSimpleInstruction(OpJumpIfFalse), 1)
	c.Emit(MakeSimpleInstruction(OpDisplay), 2)
	c.Patch(idx, MakeInstruction(OpJumpIfFalse, 0, 1))

	if len(c.Code) != 2 {
		t.Fatalf("len(Code) = %d, want 2", len(c.Code))
	}
	if c.Code[idx].SignedB() != 1 {
		t.Fatalf("patched jump offset = %d, want 1", c.Code[idx].SignedB())
	}
	if c.Lines[0] != 1 || c.Lines[1] != 2 {
		t.Fatalf("Lines = %v, want [1 2]", c.Lines)
	}
}

func TestChunkAddConstReturnsIndex(t *testing.T) {
	c := NewChunk()
	i1 := c.AddConst(Const{Tag: TagInt, I: 42})
	i2 := c.AddConst(Const{Tag: TagText, S: "hi"})
	if i1 != 0 || i2 != 1 {
		t.Fatalf("AddConst indices = %d, %d, want 0, 1", i1, i2)
	}
}

func TestChunkStats(t *testing.T) {
	c := NewChunk()
	c.Emit(MakeSimpleInstruction(OpHalt), 1)
	c.AddConst(Const{Tag: TagInt, I: 1})
	c.Modules = append(c.Modules, ModuleEntry{
		Name:    "billing",
		Actions: []ActionEntry{{Name: "charge"}, {Name: "refund"}},
	})
	c.Endpoints = append(c.Endpoints, EndpointEntry{Method: MethodPost, PathTemplate: "/charge"})
	c.RecordSchemas = append(c.RecordSchemas, RecordSchema{Name: "Invoice"})

	stats := c.Stats()
	if stats.Instructions != 1 || stats.Constants != 1 || stats.Modules != 1 ||
		stats.Actions != 2 || stats.Endpoints != 1 || stats.RecordTypes != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func buildSampleChunk() *Chunk {
	c := NewChunk()
	c.Metadata = Metadata{SourceFile: "billing.droe", CompilerVersion: "0.1.0", CreatedAt: 1700000000}

	amount := c.AddConst(Const{Tag: TagDecimal, I: 1999})
	name := c.AddConst(Const{Tag: TagText, S: "total"})

	c.RecordSchemas = append(c.RecordSchemas, RecordSchema{
		Name: "Invoice",
		Fields: []FieldSchema{
			{Name: "id", Type: ast.Int(), Annotations: []ast.FieldAnnotation{{Kind: "key"}, {Kind: "auto"}}},
			{Name: "total", Type: ast.Decimal()},
			{Name: "items", Type: ast.ListOf(ast.Text())},
		},
	})

	c.Modules = append(c.Modules, ModuleEntry{
		Name: "billing",
		Actions: []ActionEntry{
			{
				Name:    "charge",
				Params:  []ast.Param{{Name: "amount", Type: &ast.TypeRef{Primitive: ast.PrimDecimal}}},
				Returns: ast.Flag(),
				Entry:   0,
				Locals:  1,
			},
		},
	})
	c.CallTargets = append(c.CallTargets, CallTarget{ModuleIndex: 0, ActionIndex: 0})

	c.Endpoints = append(c.Endpoints, EndpointEntry{
		Method:       MethodPost,
		PathTemplate: "/invoices/:id",
		PathParams:   []string{"id"},
		HandlerEntry: 0,
	})

	c.Emit(MakeInstruction(OpPushConst, 0, int32(amount)), 10)
	c.Emit(MakeInstruction(OpPushConst, 0, int32(name)), 10)
	c.Emit(MakeInstruction(OpCall, 1, 0), 11)
	c.Emit(MakeSimpleInstruction(OpReturn), 12)
	c.GlobalCount = 2
	return c
}

func TestSerializerRoundTrip(t *testing.T) {
	c := buildSampleChunk()

	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Metadata.SourceFile != c.Metadata.SourceFile {
		t.Errorf("SourceFile = %q, want %q", got.Metadata.SourceFile, c.Metadata.SourceFile)
	}
	if got.Metadata.CreatedAt != c.Metadata.CreatedAt {
		t.Errorf("CreatedAt = %d, want %d", got.Metadata.CreatedAt, c.Metadata.CreatedAt)
	}
	if len(got.Code) != len(c.Code) {
		t.Fatalf("len(Code) = %d, want %d", len(got.Code), len(c.Code))
	}
	for i := range c.Code {
		if got.Code[i] != c.Code[i] {
			t.Errorf("Code[%d] = %v, want %v", i, got.Code[i], c.Code[i])
		}
	}
	if len(got.Constants) != len(c.Constants) {
		t.Fatalf("len(Constants) = %d, want %d", len(got.Constants), len(c.Constants))
	}
	if got.Constants[0].I != c.Constants[0].I {
		t.Errorf("Constants[0].I = %d, want %d", got.Constants[0].I, c.Constants[0].I)
	}
	if len(got.RecordSchemas) != 1 || got.RecordSchemas[0].Name != "Invoice" {
		t.Fatalf("RecordSchemas mismatch: %+v", got.RecordSchemas)
	}
	if !got.RecordSchemas[0].Fields[2].Type.Equal(ast.ListOf(ast.Text())) {
		t.Errorf("field type round-trip failed: %v", got.RecordSchemas[0].Fields[2].Type)
	}
	if len(got.Modules) != 1 || got.Modules[0].Actions[0].Name != "charge" {
		t.Fatalf("Modules mismatch: %+v", got.Modules)
	}
	if got.Modules[0].Actions[0].Params[0].Type.Primitive != ast.PrimDecimal {
		t.Errorf("param type round-trip failed: %+v", got.Modules[0].Actions[0].Params[0])
	}
	if len(got.Endpoints) != 1 || got.Endpoints[0].PathTemplate != "/invoices/:id" {
		t.Fatalf("Endpoints mismatch: %+v", got.Endpoints)
	}
	if got.GlobalCount != c.GlobalCount {
		t.Errorf("GlobalCount = %d, want %d", got.GlobalCount, c.GlobalCount)
	}
}

func TestSerializerRejectsBadMagic(t *testing.T) {
	data := []byte("XXXX\x01\x00")
	if _, err := Read(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for bad magic, got nil")
	}
}

func TestSerializerRejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.Write([]byte{0xFF, 0xFF}) // bogus version, little-endian 65535

	if _, err := Read(&buf); err == nil {
		t.Fatal("expected error for unrecognized format_version, got nil")
	}
}

func TestSerializerRejectsTruncatedHeader(t *testing.T) {
	data := []byte{0x01, 0x02}
	if _, err := Read(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for truncated header, got nil")
	}
}

func TestSerializerRejectsExcessiveConstantCount(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	writeU16(&buf, FormatVersion)
	writeU32(&buf, 0) // source file len
	writeU32(&buf, 0) // compiler version len
	writeU64(&buf, 0) // created at
	writeU32(&buf, 5_000_000)

	if _, err := Read(&buf); err == nil {
		t.Fatal("expected error for excessive constant count, got nil")
	} else if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("error = %v, want mention of 'exceeds maximum'", err)
	}
}

func TestEmbedAndExtractArtifact(t *testing.T) {
	host := []byte("fake-host-binary-bytes")
	artifact := []byte{1, 2, 3, 4, 5}

	combined := EmbedArtifact(host, artifact)
	got, ok := ExtractArtifact(combined)
	if !ok {
		t.Fatal("ExtractArtifact: ok = false, want true")
	}
	if !bytes.Equal(got, artifact) {
		t.Errorf("ExtractArtifact = %v, want %v", got, artifact)
	}
}

func TestExtractArtifactReportsAbsence(t *testing.T) {
	if _, ok := ExtractArtifact([]byte("just a plain host binary, no artifact embedded")); ok {
		t.Fatal("ExtractArtifact: ok = true for a binary with no embedded artifact")
	}
}

func TestDisassembleAnnotatesOperands(t *testing.T) {
	c := buildSampleChunk()
	out := Disassemble(c)

	if !strings.Contains(out, "PushConst") {
		t.Errorf("disassembly missing PushConst:\n%s", out)
	}
	if !strings.Contains(out, "19.99") {
		t.Errorf("disassembly should annotate the decimal constant's value:\n%s", out)
	}
	if !strings.Contains(out, "billing.charge") {
		t.Errorf("disassembly should annotate the call target:\n%s", out)
	}
}

// --- small helpers for hand-assembling malformed headers -----------------

func writeU16(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
}

func writeU32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func writeU64(buf *bytes.Buffer, v uint64) {
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (8 * i)))
	}
}
