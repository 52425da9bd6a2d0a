package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/droe-lang/droe/internal/ast"
)

// Magic identifies a Droe bytecode artifact (spec §6.1).
var Magic = [4]byte{'D', 'R', 'O', 'E'}

// FormatVersion is the current on-disk format version. A reader rejects
// any file whose format_version it does not recognize (spec §6.1).
const FormatVersion uint16 = 1

// Write serializes c to w in the wire layout of spec §6.1: magic,
// format_version, metadata, constants, record_schemas, modules, endpoints,
// instructions, each length-framed so the whole artifact is self-describing
// and readable without auxiliary files.
func Write(w io.Writer, c *Chunk) error {
	bw := &byteWriter{w: w}
	bw.write(Magic[:])
	bw.writeU16(FormatVersion)

	bw.writeString(c.Metadata.SourceFile)
	bw.writeString(c.Metadata.CompilerVersion)
	bw.writeI64(c.Metadata.CreatedAt)

	bw.writeU32(uint32(len(c.Constants)))
	for _, k := range c.Constants {
		bw.writeByte(byte(k.Tag))
		bw.writeI64(k.I)
		bw.writeString(k.S)
		bw.writeBool(k.Flag)
	}

	bw.writeU32(uint32(len(c.RecordSchemas)))
	for _, rs := range c.RecordSchemas {
		bw.writeString(rs.Name)
		bw.writeU32(uint32(len(rs.Fields)))
		for _, f := range rs.Fields {
			bw.writeString(f.Name)
			bw.writeString(typeToWire(f.Type))
			bw.writeU32(uint32(len(f.Annotations)))
			for _, a := range f.Annotations {
				bw.writeString(a.Kind)
				bw.writeString(a.Default)
			}
		}
	}

	bw.writeU32(uint32(len(c.Modules)))
	for _, m := range c.Modules {
		bw.writeString(m.Name)
		bw.writeU32(uint32(len(m.Actions)))
		for _, a := range m.Actions {
			bw.writeString(a.Name)
			bw.writeU32(uint32(len(a.Params)))
			for _, param := range a.Params {
				bw.writeString(param.Name)
				bw.writeString(typeToWire(param.Type.Resolve()))
			}
			bw.writeString(typeToWire(a.Returns))
			bw.writeU32(a.Entry)
			bw.writeU16(a.Locals)
		}
	}

	bw.writeU32(uint32(len(c.CallTargets)))
	for _, t := range c.CallTargets {
		bw.writeU32(uint32(t.ModuleIndex))
		bw.writeU32(uint32(t.ActionIndex))
	}

	bw.writeU32(uint32(len(c.Endpoints)))
	for _, e := range c.Endpoints {
		bw.writeByte(byte(e.Method))
		bw.writeString(e.PathTemplate)
		bw.writeU32(uint32(len(e.PathParams)))
		for _, p := range e.PathParams {
			bw.writeString(p)
		}
		bw.writeU32(e.HandlerEntry)
		bw.writeU16(e.Locals)
	}

	bw.writeU32(uint32(len(c.Code)))
	for _, instr := range c.Code {
		bw.writeU32(uint32(instr))
	}
	bw.writeU32(uint32(len(c.Lines)))
	for _, line := range c.Lines {
		bw.writeU32(uint32(line))
	}
	bw.writeU32(uint32(c.GlobalCount))

	return bw.err
}

func typeToWire(t *ast.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// Bounds on table/string sizes a reader will accept, so a corrupted or
// hostile artifact cannot force an out-of-memory allocation before any
// other validation runs.
const (
	maxTableEntries = 1_000_000
	maxStringLen    = 16 * 1024 * 1024
	maxCodeLen      = 10_000_000
)

// Read deserializes a Chunk from r, rejecting an unrecognized
// format_version (spec §6.1: "A conformant reader must reject a file
// whose format_version it does not recognize").
func Read(r io.Reader) (*Chunk, error) {
	br := &byteReader{r: r}
	var magic [4]byte
	br.read(magic[:])
	if br.err != nil {
		return nil, fmt.Errorf("bytecode: truncated header: %w", br.err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("bytecode: bad magic %q, want %q", magic, Magic)
	}
	version := br.readU16()
	if version != FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format_version %d (this reader supports %d)", version, FormatVersion)
	}

	c := NewChunk()
	c.Metadata.SourceFile = br.readString()
	c.Metadata.CompilerVersion = br.readString()
	c.Metadata.CreatedAt = br.readI64()

	n := br.readBoundedU32(maxTableEntries, "constants")
	for i := uint32(0); i < n && br.err == nil; i++ {
		var k Const
		k.Tag = ValueTag(br.readByte())
		k.I = br.readI64()
		k.S = br.readString()
		k.Flag = br.readBool()
		c.Constants = append(c.Constants, k)
	}

	n = br.readBoundedU32(maxTableEntries, "record schemas")
	for i := uint32(0); i < n && br.err == nil; i++ {
		rs := RecordSchema{Name: br.readString()}
		fn := br.readBoundedU32(maxTableEntries, "record fields")
		for j := uint32(0); j < fn && br.err == nil; j++ {
			f := FieldSchema{Name: br.readString(), Type: typeFromWire(br.readString())}
			an := br.readBoundedU32(maxTableEntries, "field annotations")
			for k := uint32(0); k < an && br.err == nil; k++ {
				f.Annotations = append(f.Annotations, ast.FieldAnnotation{Kind: br.readString(), Default: br.readString()})
			}
			rs.Fields = append(rs.Fields, f)
		}
		c.RecordSchemas = append(c.RecordSchemas, rs)
	}

	n = br.readBoundedU32(maxTableEntries, "modules")
	for i := uint32(0); i < n && br.err == nil; i++ {
		m := ModuleEntry{Name: br.readString()}
		an := br.readBoundedU32(maxTableEntries, "actions")
		for j := uint32(0); j < an && br.err == nil; j++ {
			a := ActionEntry{Name: br.readString()}
			pn := br.readBoundedU32(maxTableEntries, "params")
			for k := uint32(0); k < pn && br.err == nil; k++ {
				name := br.readString()
				a.Params = append(a.Params, ast.Param{Name: name, Type: typeRefFromWire(br.readString())})
			}
			a.Returns = typeFromWire(br.readString())
			a.Entry = br.readU32()
			a.Locals = br.readU16()
			m.Actions = append(m.Actions, a)
		}
		c.Modules = append(c.Modules, m)
	}

	n = br.readBoundedU32(maxTableEntries, "call targets")
	for i := uint32(0); i < n && br.err == nil; i++ {
		c.CallTargets = append(c.CallTargets, CallTarget{ModuleIndex: int(br.readU32()), ActionIndex: int(br.readU32())})
	}

	n = br.readBoundedU32(maxTableEntries, "endpoints")
	for i := uint32(0); i < n && br.err == nil; i++ {
		e := EndpointEntry{Method: EndpointMethod(br.readByte()), PathTemplate: br.readString()}
		pn := br.readBoundedU32(maxTableEntries, "endpoint path params")
		for j := uint32(0); j < pn && br.err == nil; j++ {
			e.PathParams = append(e.PathParams, br.readString())
		}
		e.HandlerEntry = br.readU32()
		e.Locals = br.readU16()
		c.Endpoints = append(c.Endpoints, e)
	}

	n = br.readBoundedU32(maxCodeLen, "instructions")
	for i := uint32(0); i < n && br.err == nil; i++ {
		c.Code = append(c.Code, Instruction(br.readU32()))
	}
	n = br.readBoundedU32(maxCodeLen, "line table")
	for i := uint32(0); i < n && br.err == nil; i++ {
		c.Lines = append(c.Lines, int(br.readU32()))
	}
	c.GlobalCount = int(br.readU32())

	if br.err != nil && br.err != io.EOF {
		return nil, br.err
	}
	return c, nil
}

func typeFromWire(s string) *ast.Type {
	if s == "" {
		return nil
	}
	if rest, ok := cutPrefix(s, "list of "); ok {
		return ast.ListOf(typeFromWire(rest))
	}
	if rest, ok := cutPrefix(s, "group of "); ok {
		return ast.GroupOf(typeFromWire(rest))
	}
	if prim, ok := ast.ResolvePrimitiveName(s); ok {
		return &ast.Type{Primitive: prim}
	}
	return ast.Record(s)
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}

func typeRefFromWire(s string) *ast.TypeRef {
	if s == "" {
		return nil
	}
	if rest, ok := cutPrefix(s, "list of "); ok {
		return &ast.TypeRef{Collection: ast.ListKind, Elem: typeRefFromWire(rest)}
	}
	if rest, ok := cutPrefix(s, "group of "); ok {
		return &ast.TypeRef{Collection: ast.GroupKind, Elem: typeRefFromWire(rest)}
	}
	if prim, ok := ast.ResolvePrimitiveName(s); ok {
		return &ast.TypeRef{Primitive: prim}
	}
	return &ast.TypeRef{RecordName: s}
}

// --- framed standalone-executable embedding (spec §6.2) ----------------

var startMarker = []byte("__DROEBC_DATA_START__")
var endMarker = []byte("__DROEBC_DATA_END__")

// EmbedArtifact appends artifact to hostBinary using the framing markers
// from spec §6.2, producing a standalone executable.
func EmbedArtifact(hostBinary, artifact []byte) []byte {
	var buf bytes.Buffer
	buf.Write(hostBinary)
	buf.Write(startMarker)
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(artifact)))
	buf.Write(lenBuf[:])
	buf.Write(artifact)
	buf.Write(endMarker)
	return buf.Bytes()
}

// ExtractArtifact scans data backwards for the end marker and, if found,
// returns the embedded artifact bytes. ok is false if data carries no
// embedded artifact, meaning the executable expects an artifact path on
// its command line (spec §6.2).
func ExtractArtifact(data []byte) (artifact []byte, ok bool) {
	endIdx := bytes.LastIndex(data, endMarker)
	if endIdx < 0 {
		return nil, false
	}
	startIdx := bytes.LastIndex(data[:endIdx], startMarker)
	if startIdx < 0 {
		return nil, false
	}
	lenOffset := startIdx + len(startMarker)
	if lenOffset+8 > endIdx {
		return nil, false
	}
	length := binary.LittleEndian.Uint64(data[lenOffset : lenOffset+8])
	dataStart := lenOffset + 8
	dataEnd := dataStart + int(length)
	if dataEnd > endIdx || uint64(dataEnd-dataStart) != length {
		return nil, false
	}
	return data[dataStart:dataEnd], true
}

// --- little binary helpers ----------------------------------------------

type byteWriter struct {
	w   io.Writer
	err error
}

func (bw *byteWriter) write(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

func (bw *byteWriter) writeByte(b byte)     { bw.write([]byte{b}) }
func (bw *byteWriter) writeBool(v bool) {
	if v {
		bw.writeByte(1)
	} else {
		bw.writeByte(0)
	}
}

func (bw *byteWriter) writeU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	bw.write(b[:])
}

func (bw *byteWriter) writeU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	bw.write(b[:])
}

func (bw *byteWriter) writeI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	bw.write(b[:])
}

func (bw *byteWriter) writeString(s string) {
	bw.writeU32(uint32(len(s)))
	bw.write([]byte(s))
}

type byteReader struct {
	r   io.Reader
	err error
}

func (br *byteReader) read(b []byte) {
	if br.err != nil {
		return
	}
	_, br.err = io.ReadFull(br.r, b)
}

func (br *byteReader) readByte() byte {
	var b [1]byte
	br.read(b[:])
	return b[0]
}

func (br *byteReader) readBool() bool { return br.readByte() != 0 }

func (br *byteReader) readU16() uint16 {
	var b [2]byte
	br.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (br *byteReader) readU32() uint32 {
	var b [4]byte
	br.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (br *byteReader) readI64() int64 {
	var b [8]byte
	br.read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (br *byteReader) readString() string {
	n := br.readU32()
	if n == 0 || br.err != nil {
		return ""
	}
	if n > maxStringLen {
		br.err = fmt.Errorf("bytecode: string length %d exceeds maximum %d", n, maxStringLen)
		return ""
	}
	buf := make([]byte, n)
	br.read(buf)
	return string(buf)
}

// readBoundedU32 reads a uint32 and rejects it as corrupt if it exceeds
// max, preventing a hostile count from forcing a huge allocation.
func (br *byteReader) readBoundedU32(max uint32, what string) uint32 {
	n := br.readU32()
	if br.err != nil {
		return 0
	}
	if n > max {
		br.err = fmt.Errorf("bytecode: %s count %d exceeds maximum %d", what, n, max)
		return 0
	}
	return n
}
