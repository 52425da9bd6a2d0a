package bytecode

import "github.com/droe-lang/droe/internal/ast"

// ValueTag identifies the kind of a constant-pool entry, per spec §6.1's
// "tagged values of every literal type and every format pattern".
type ValueTag byte

const (
	TagInt ValueTag = iota
	TagDecimal
	TagText
	TagFlag
	TagDate
	TagFile
	TagPattern
)

func (t ValueTag) String() string {
	switch t {
	case TagInt:
		return "Int"
	case TagDecimal:
		return "Decimal"
	case TagText:
		return "Text"
	case TagFlag:
		return "Flag"
	case TagDate:
		return "Date"
	case TagFile:
		return "File"
	case TagPattern:
		return "Pattern"
	}
	return "Unknown"
}

// Const is a single constant-pool entry.
type Const struct {
	Tag  ValueTag
	I    int64  // TagInt, TagDecimal (scaled ×100)
	S    string // TagText, TagDate, TagFile, TagPattern
	Flag bool   // TagFlag
}

// FieldSchema is one field of a RecordSchema.
type FieldSchema struct {
	Name        string
	Type        *ast.Type
	Annotations []ast.FieldAnnotation
}

// RecordSchema is the on-disk description of a data declaration.
type RecordSchema struct {
	Name   string
	Fields []FieldSchema
}

// ActionEntry is one action/task's callable signature and code location.
type ActionEntry struct {
	Name    string
	Params  []ast.Param
	Returns *ast.Type // nil for void (a task, or an action without "gives")
	Entry   uint32    // instruction index where the body begins
	Locals  uint16    // total local slot count, including parameters
}

// ModuleEntry groups actions under a module name; top-level actions live
// in a ModuleEntry with an empty Name.
type ModuleEntry struct {
	Name    string
	Actions []ActionEntry
}

// CallTarget resolves a Call instruction's B operand to a concrete
// module/action pair, since a module-index/action-index pair does not fit
// alongside an argument count in one 8-bit/16-bit operand pair.
type CallTarget struct {
	ModuleIndex int
	ActionIndex int
}

// EndpointMethod is the HTTP verb of a registered endpoint.
type EndpointMethod byte

const (
	MethodGet EndpointMethod = iota
	MethodPost
	MethodPut
	MethodDelete
)

func ParseEndpointMethod(s string) EndpointMethod {
	switch s {
	case "POST":
		return MethodPost
	case "PUT":
		return MethodPut
	case "DELETE":
		return MethodDelete
	default:
		return MethodGet
	}
}

func (m EndpointMethod) String() string {
	switch m {
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	default:
		return "GET"
	}
}

// EndpointEntry is a registered inbound HTTP endpoint.
type EndpointEntry struct {
	Method       EndpointMethod
	PathTemplate string
	PathParams   []string
	HandlerEntry uint32
	Locals       uint16 // total local slot count, including the implicit "request" param
}

// Metadata carries the artifact's provenance (spec §6.1).
type Metadata struct {
	SourceFile      string
	CompilerVersion string
	CreatedAt       int64 // epoch seconds
}

// Chunk is the in-memory form of a compiled program: the instruction
// stream plus every table the VM needs to execute it (spec §4.6/§6.1).
type Chunk struct {
	Metadata Metadata

	Constants     []Const
	RecordSchemas []RecordSchema
	Modules       []ModuleEntry
	CallTargets   []CallTarget
	Endpoints     []EndpointEntry

	Code  []Instruction
	Lines []int // Lines[i] is the source line of Code[i], parallel array

	GlobalCount int
}

// NewChunk returns an empty Chunk ready for the emitter to append to.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Emit appends one instruction, recording its source line, and returns its
// index (used by the emitter to patch jump targets after the fact).
func (c *Chunk) Emit(instr Instruction, line int) int {
	c.Code = append(c.Code, instr)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// Patch overwrites an already-emitted instruction, used to back-patch
// forward jump offsets once the jump target is known.
func (c *Chunk) Patch(index int, instr Instruction) {
	c.Code[index] = instr
}

// AddConst appends a constant and returns its pool index. Callers that
// want de-duplication should check existing entries first; the emitter
// does this via the intern helper in emit_core.go.
func (c *Chunk) AddConst(k Const) int {
	c.Constants = append(c.Constants, k)
	return len(c.Constants) - 1
}

// Stats summarizes a compiled chunk, useful for the `droe inspect`
// subcommand and for tests asserting on program shape without depending
// on exact instruction counts.
type Stats struct {
	Instructions int
	Constants    int
	Modules      int
	Actions      int
	Endpoints    int
	RecordTypes  int
}

func (c *Chunk) Stats() Stats {
	actions := 0
	for _, m := range c.Modules {
		actions += len(m.Actions)
	}
	return Stats{
		Instructions: len(c.Code),
		Constants:    len(c.Constants),
		Modules:      len(c.Modules),
		Actions:      actions,
		Endpoints:    len(c.Endpoints),
		RecordTypes:  len(c.RecordSchemas),
	}
}
