package bytecode

import (
	"fmt"
	"strings"

	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/token"
)

// Error is a single codegen diagnostic (spec §7's "codegen.*" error kinds).
type Error struct {
	Kind    string
	Message string
	Pos     token.Position
}

func (e Error) String() string { return e.Pos.String() + ": " + e.Kind + ": " + e.Message }

// actionSig is the emitter's own copy of an action/task's signature, built
// in pass one so call sites (which may appear before the declaration in
// source order) can be lowered without a second pass over the whole tree.
type actionSig struct {
	Params  []ast.Param
	Returns *ast.Type
	IsTask  bool
}

// binding is one name's storage location: a global slot or a frame-local
// slot, plus its type (needed to pick the right arithmetic/comparison
// opcode and to resolve field access).
type binding struct {
	Global bool
	Index  int
	Type   *ast.Type
}

// emitScope is a lexical block scope over bindings, mirroring the
// checker's Scope but carrying storage location alongside type.
type emitScope struct {
	parent *emitScope
	vars   map[string]binding
}

func newEmitScope(parent *emitScope) *emitScope {
	return &emitScope{parent: parent, vars: make(map[string]binding)}
}

func (s *emitScope) declare(name string, b binding) { s.vars[name] = b }

func (s *emitScope) lookup(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

func (s *emitScope) child() *emitScope { return newEmitScope(s) }

type pendingAction struct {
	Loc    CallTarget
	Module string
	Decl   *ast.ActionDecl
}

type pendingEndpoint struct {
	Index int
	Decl  *ast.ServeDecl
}

// Emitter lowers a checked *ast.Program into a *Chunk (spec §4.6's C6).
// It assumes the program already passed the checker; it does not
// re-validate arity or type compatibility, but it still guards against
// unresolved names defensively since nothing prevents Emit from being
// called directly.
type Emitter struct {
	chunk *Chunk

	records     map[string]*ast.DataDecl
	recordIndex map[string]int

	moduleIndex map[string]int
	actionLoc   map[string]CallTarget
	actionSigs  map[string]actionSig

	callTargetIndex map[CallTarget]int
	constIndex      map[Const]int

	pendingActions   []pendingAction
	pendingEndpoints []pendingEndpoint

	scope     *emitScope
	nextLocal int
	maxLocal  int
	inAction  bool

	nextGlobal int

	errors []Error
}

// NewEmitter returns an Emitter with empty tables, ready for Emit.
func NewEmitter() *Emitter {
	return &Emitter{
		chunk:           NewChunk(),
		records:         make(map[string]*ast.DataDecl),
		recordIndex:     make(map[string]int),
		moduleIndex:     make(map[string]int),
		actionLoc:       make(map[string]CallTarget),
		actionSigs:      make(map[string]actionSig),
		callTargetIndex: make(map[CallTarget]int),
		constIndex:      make(map[Const]int),
	}
}

// Errors returns every diagnostic recorded while emitting.
func (e *Emitter) Errors() []Error { return e.errors }

func (e *Emitter) errorf(pos token.Position, kind, format string, args ...interface{}) {
	e.errors = append(e.errors, Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos})
}

// Emit lowers prog to a Chunk. The returned Chunk is usable even when
// errors are non-empty, since the emitter recovers at each bad node rather
// than aborting the whole pass (callers should refuse to serialize/run a
// chunk if Errors() is non-empty).
func (e *Emitter) Emit(prog *ast.Program) (*Chunk, []Error) {
	e.chunk.Metadata.SourceFile = prog.File

	e.collectTopLevel(prog.Nodes, "")

	for i := range e.chunk.RecordSchemas {
		e.chunk.Emit(MakeInstruction(OpDefineData, 0, int32(i)), 0)
	}
	for i := range e.chunk.Endpoints {
		e.chunk.Emit(MakeInstruction(OpDefineEndpoint, 0, int32(i)), 0)
	}

	e.scope = newEmitScope(nil)
	lastLine := 0
	for _, n := range prog.Nodes {
		if stmt, ok := n.(ast.Statement); ok {
			e.emitStatement(stmt)
			lastLine = stmt.Pos().Line
		}
	}
	e.chunk.Emit(MakeSimpleInstruction(OpHalt), lastLine)

	for _, pa := range e.pendingActions {
		e.emitActionBody(pa)
	}
	for _, pe := range e.pendingEndpoints {
		e.emitHandlerBody(pe)
	}

	e.chunk.GlobalCount = e.nextGlobal
	return e.chunk, e.errors
}

// collectTopLevel is pass one: register every data/action/endpoint before
// any body is emitted, so a call to an action declared later in source
// order (or a forward reference to a data type) still resolves to a
// concrete CallTarget/RecordSchema index.
func (e *Emitter) collectTopLevel(nodes []ast.TopLevel, modulePrefix string) {
	for _, n := range nodes {
		switch d := n.(type) {
		case *ast.DataDecl:
			e.registerRecord(d)
		case *ast.ActionDecl:
			e.registerAction(modulePrefix, d)
		case *ast.ModuleDecl:
			e.collectTopLevel(d.Nodes, d.Name+".")
		case *ast.ServeDecl:
			e.registerEndpoint(d)
		}
		// ast.ScreenDecl/ast.FragmentDecl carry no bytecode opcodes: the
		// instruction set is host/UI-agnostic, so UI declarations are
		// checker-validated only and never reach the emitter.
	}
}

func (e *Emitter) registerRecord(d *ast.DataDecl) {
	if _, exists := e.records[d.Name]; exists {
		return
	}
	e.records[d.Name] = d
	fields := make([]FieldSchema, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = FieldSchema{Name: f.Name, Type: f.Type.Resolve(), Annotations: f.Annotations}
	}
	idx := len(e.chunk.RecordSchemas)
	e.chunk.RecordSchemas = append(e.chunk.RecordSchemas, RecordSchema{Name: d.Name, Fields: fields})
	e.recordIndex[d.Name] = idx
}

func (e *Emitter) registerAction(modulePrefix string, d *ast.ActionDecl) {
	moduleName := strings.TrimSuffix(modulePrefix, ".")
	modIdx, ok := e.moduleIndex[moduleName]
	if !ok {
		modIdx = len(e.chunk.Modules)
		e.chunk.Modules = append(e.chunk.Modules, ModuleEntry{Name: moduleName})
		e.moduleIndex[moduleName] = modIdx
	}

	var ret *ast.Type
	if d.ReturnType != nil {
		ret = d.ReturnType.Resolve()
	}
	actionIdx := len(e.chunk.Modules[modIdx].Actions)
	e.chunk.Modules[modIdx].Actions = append(e.chunk.Modules[modIdx].Actions, ActionEntry{
		Name:    d.Name,
		Params:  d.Params,
		Returns: ret,
	})

	key := modulePrefix + d.Name
	loc := CallTarget{ModuleIndex: modIdx, ActionIndex: actionIdx}
	e.actionLoc[key] = loc
	e.actionSigs[key] = actionSig{Params: d.Params, Returns: ret, IsTask: d.IsTask}
	e.pendingActions = append(e.pendingActions, pendingAction{Loc: loc, Module: moduleName, Decl: d})
}

func (e *Emitter) registerEndpoint(d *ast.ServeDecl) {
	idx := len(e.chunk.Endpoints)
	e.chunk.Endpoints = append(e.chunk.Endpoints, EndpointEntry{
		Method:       ParseEndpointMethod(d.Method),
		PathTemplate: d.Path,
		PathParams:   d.PathParams,
	})
	e.pendingEndpoints = append(e.pendingEndpoints, pendingEndpoint{Index: idx, Decl: d})
}

// callTargetFor resolves a (possibly module-qualified) action name to a
// CallTarget index, reusing an existing table row for repeated calls to
// the same action.
func (e *Emitter) callTargetFor(key string) (int, bool) {
	loc, ok := e.actionLoc[key]
	if !ok {
		return 0, false
	}
	if idx, ok := e.callTargetIndex[loc]; ok {
		return idx, true
	}
	idx := len(e.chunk.CallTargets)
	e.chunk.CallTargets = append(e.chunk.CallTargets, loc)
	e.callTargetIndex[loc] = idx
	return idx, true
}

// intern returns k's constant-pool index, reusing an existing entry when
// an identical constant was already added.
func (e *Emitter) intern(k Const) int {
	if idx, ok := e.constIndex[k]; ok {
		return idx
	}
	idx := e.chunk.AddConst(k)
	e.constIndex[k] = idx
	return idx
}

// declareGlobal binds name in the (always-global) root scope to a fresh
// global slot.
func (e *Emitter) declareGlobal(name string, t *ast.Type) binding {
	b := binding{Global: true, Index: e.nextGlobal, Type: t}
	e.nextGlobal++
	e.scope.declare(name, b)
	return b
}

// declareLocal binds name in the current frame to a fresh local slot.
func (e *Emitter) declareLocal(name string, t *ast.Type) binding {
	b := binding{Global: false, Index: e.nextLocal, Type: t}
	e.nextLocal++
	if e.nextLocal > e.maxLocal {
		e.maxLocal = e.nextLocal
	}
	e.scope.declare(name, b)
	return b
}

// emitJump emits a placeholder jump/iterate instruction and returns its
// index for a later patch call once the target offset is known.
func (e *Emitter) emitJump(op OpCode, line int) int {
	return e.chunk.Emit(MakeInstruction(op, 0, 0), line)
}

// patchJump back-patches the instruction at idx so it jumps to target,
// following the teacher's convention that the offset is relative to the
// instruction immediately after the jump (pc has already advanced past it
// by the time the VM applies the offset).
func (e *Emitter) patchJump(idx int, target int) {
	instr := e.chunk.Code[idx]
	offset := int32(target - idx - 1)
	e.chunk.Patch(idx, MakeInstruction(instr.OpCode(), instr.A(), offset))
}

func (e *Emitter) loadBinding(b binding, line int) {
	if b.Global {
		e.chunk.Emit(MakeInstruction(OpLoadGlobal, 0, int32(b.Index)), line)
	} else {
		e.chunk.Emit(MakeInstruction(OpLoadLocal, 0, int32(b.Index)), line)
	}
}

func (e *Emitter) storeBinding(b binding, line int) {
	if b.Global {
		e.chunk.Emit(MakeInstruction(OpStoreGlobal, 0, int32(b.Index)), line)
	} else {
		e.chunk.Emit(MakeInstruction(OpStoreLocal, 0, int32(b.Index)), line)
	}
}

// resolveField looks up fieldName on recordName, returning its index
// within the schema (the order DataDecl.Fields was declared in, which
// registerRecord preserves) and its type.
func (e *Emitter) resolveField(recordName, fieldName string) (int, *ast.Type, bool) {
	idx, ok := e.recordIndex[recordName]
	if !ok {
		return 0, nil, false
	}
	schema := e.chunk.RecordSchemas[idx]
	for i, f := range schema.Fields {
		if f.Name == fieldName {
			return i, f.Type, true
		}
	}
	return 0, nil, false
}

func (e *Emitter) emitActionBody(pa pendingAction) {
	prevScope := e.scope
	prevLocal, prevMax := e.nextLocal, e.maxLocal
	prevInAction := e.inAction
	e.scope = newEmitScope(nil)
	e.nextLocal = 0
	e.maxLocal = 0
	e.inAction = true

	for _, p := range pa.Decl.Params {
		e.declareLocal(p.Name, p.Type.Resolve())
	}

	entry := len(e.chunk.Code)
	frameIdx := e.chunk.Emit(MakeInstruction(OpEnterFrame, 0, 0), pa.Decl.Pos().Line)
	e.emitBlock(pa.Decl.Body)
	if !endsInReturn(pa.Decl.Body) {
		e.chunk.Emit(MakeSimpleInstruction(OpReturn), pa.Decl.Pos().Line)
	}
	e.chunk.Patch(frameIdx, MakeInstruction(OpEnterFrame, 0, int32(e.maxLocal)))

	act := &e.chunk.Modules[pa.Loc.ModuleIndex].Actions[pa.Loc.ActionIndex]
	act.Entry = uint32(entry)
	act.Locals = uint16(e.maxLocal)

	e.scope = prevScope
	e.nextLocal, e.maxLocal = prevLocal, prevMax
	e.inAction = prevInAction
}

func (e *Emitter) emitHandlerBody(pe pendingEndpoint) {
	prevScope := e.scope
	prevLocal, prevMax := e.nextLocal, e.maxLocal
	prevInAction := e.inAction
	e.scope = newEmitScope(nil)
	e.nextLocal = 0
	e.maxLocal = 0
	e.inAction = true

	e.declareLocal("request", ast.Record("Request"))

	entry := len(e.chunk.Code)
	frameIdx := e.chunk.Emit(MakeInstruction(OpEnterFrame, 0, 0), pe.Decl.Pos().Line)
	e.emitBlock(pe.Decl.Body)
	last := OpCode(0)
	if len(e.chunk.Code) > 0 {
		last = e.chunk.Code[len(e.chunk.Code)-1].OpCode()
	}
	if last != OpEndHandler {
		e.chunk.Emit(MakeSimpleInstruction(OpEndHandler), pe.Decl.Pos().Line)
	}
	e.chunk.Patch(frameIdx, MakeInstruction(OpEnterFrame, 0, int32(e.maxLocal)))

	e.chunk.Endpoints[pe.Index].HandlerEntry = uint32(entry)
	e.chunk.Endpoints[pe.Index].Locals = uint16(e.maxLocal)

	e.scope = prevScope
	e.nextLocal, e.maxLocal = prevLocal, prevMax
	e.inAction = prevInAction
}

// endsInReturn reports whether b's last statement is a ReturnStatement, so
// emitActionBody can skip appending a redundant implicit Return.
func endsInReturn(b *ast.Block) bool {
	if b == nil || len(b.Statements) == 0 {
		return false
	}
	_, ok := b.Statements[len(b.Statements)-1].(*ast.ReturnStatement)
	return ok
}
