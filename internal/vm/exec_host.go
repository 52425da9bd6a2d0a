package vm

import (
	"github.com/droe-lang/droe/internal/ast"
	"github.com/droe-lang/droe/internal/bytecode"
)

// execHostCall dispatches a HostCall instruction. Only HostHTTPRequest and
// HostRespond are ever emitted (spec §4.8: host.print/print_line/now/uuid/
// fail are VM-internal forwarding targets reached directly from Display,
// DatabaseOp's @auto synthesis, and runtimeError, never through an emitted
// HostCall).
func (vm *VM) execHostCall(instr bytecode.Instruction) error {
	switch bytecode.HostFn(instr.B()) {
	case bytecode.HostHTTPRequest:
		return vm.execHTTPRequest(instr)
	case bytecode.HostRespond:
		return vm.execRespond(instr)
	}
	return vm.runtimeError("runtime.bad_cast", "unexpected host call %s", bytecode.HostFn(instr.B()))
}

// execHTTPRequest undoes emitHTTPCall's push order: method, url, then each
// header's (value, name) pair, the header count, then either a true flag
// and the body, or a bare false flag. argc's parity tells us which.
func (vm *VM) execHTTPRequest(instr bytecode.Instruction) error {
	argc := instr.A()
	hasBody := argc%2 == 1

	var body Value
	if hasBody {
		body = vm.pop()
		vm.pop() // true flag
	} else {
		vm.pop() // false flag
	}

	countVal := vm.pop()
	hc := int(countVal.Int)
	headers := make(map[string]string, hc)
	for i := 0; i < hc; i++ {
		name := vm.pop()
		val := vm.pop()
		headers[name.Text] = val.String()
	}

	url := vm.pop()
	method := vm.pop()

	resp, err := vm.host.HTTPRequest(HTTPRequest{
		Method:  method.Text,
		URL:     url.String(),
		Headers: headers,
		HasBody: hasBody,
		Body:    body,
	})
	if err != nil {
		return vm.runtimeError("runtime.host_error", "http request failed: %v", err)
	}

	vm.push(RecordValue("Response", []Value{
		IntValue(resp.Status),
		Text(resp.Body),
	}))
	return nil
}

// execRespond builds a Response record directly on the stack without a
// host round-trip: spec §4.7 leaves the choice between "top of stack
// after handler returns" and "a dedicated response register per frame"
// open, and the top-of-stack form needs no extra VM state.
func (vm *VM) execRespond(instr bytecode.Instruction) error {
	argc := instr.A()
	var body Value
	if argc == 2 {
		body = vm.pop()
	}
	status := vm.pop()
	if !status.IsInt() {
		return vm.typeError("respond", "int status", status.Type.String())
	}
	vm.push(RecordValue("Response", []Value{status, body}))
	return nil
}

// popFieldGroup pops n (value, field-name) pairs pushed in that order
// (value first, name second, so name is on top of each pair) and returns
// them in original push order.
func (vm *VM) popFieldGroup(n int) []Field {
	fields := make([]Field, n)
	for i := n - 1; i >= 0; i-- {
		name := vm.pop()
		val := vm.pop()
		fields[i] = Field{Name: name.Text, Value: val}
	}
	return fields
}

// execDatabaseOp undoes emitDBExpression's push order (Set group, Where
// group, With group, each a run of pairs followed by its count) and
// forwards the resolved operation to the host, synthesizing any @auto
// fields a `db create` left out of its `with` clause.
func (vm *VM) execDatabaseOp(instr bytecode.Instruction) error {
	setCount := int(vm.pop().Int)
	setFields := vm.popFieldGroup(setCount)
	whereCount := int(vm.pop().Int)
	whereFields := vm.popFieldGroup(whereCount)
	withCount := int(vm.pop().Int)
	withFields := vm.popFieldGroup(withCount)

	code := bytecode.DBOpCode(instr.A())
	entityIdx := int(instr.B())
	if entityIdx < 0 || entityIdx >= len(vm.chunk.RecordSchemas) {
		return vm.runtimeError("runtime.bad_cast", "data type index %d out of range", entityIdx)
	}
	schema := vm.chunk.RecordSchemas[entityIdx]

	if code == bytecode.DBOpCreate {
		withFields = vm.withAutoFields(schema, withFields)
	}

	result, err := vm.host.DatabaseOp(DBOp{
		Code:   DBOpCode(code),
		Entity: schema.Name,
		Set:    setFields,
		Where:  whereFields,
		With:   withFields,
	})
	if err != nil {
		return vm.runtimeError("runtime.host_error", "database operation failed: %v", err)
	}

	switch code {
	case bytecode.DBOpFindAll:
		recs := make([]Value, len(result.Records))
		for i, fields := range result.Records {
			recs[i] = buildRecord(schema, fields)
		}
		vm.push(List(recs))
	case bytecode.DBOpDelete:
		vm.push(Flag(result.Affected > 0))
	case bytecode.DBOpFind:
		if !result.Found {
			vm.push(Nil())
		} else {
			vm.push(buildRecord(schema, result.Fields))
		}
	default: // create, update
		vm.push(buildRecord(schema, result.Fields))
	}
	return nil
}

// buildRecord assembles a positional Record from the host's name/value
// pairs, ordered by schema's declared field order — the order OpGetField's
// compile-time-resolved index assumes — rather than whatever order the
// host happened to return fields in. A schema field the host didn't supply
// (a find_all projection, say, or a not-yet-set optional field) comes back
// as Nil.
func buildRecord(schema bytecode.RecordSchema, fields []Field) Value {
	byName := make(map[string]Value, len(fields))
	for _, f := range fields {
		byName[f.Name] = f.Value
	}
	vals := make([]Value, len(schema.Fields))
	for i, fs := range schema.Fields {
		if v, ok := byName[fs.Name]; ok {
			vals[i] = v
		} else {
			vals[i] = Nil()
		}
	}
	return RecordValue(schema.Name, vals)
}

// withAutoFields fills in any schema field annotated "auto" that the
// `with` clause didn't already set: a date-typed field gets host.Now(), any
// other type gets host.UUID() (the common case being a `key` id field).
func (vm *VM) withAutoFields(schema bytecode.RecordSchema, with []Field) []Field {
	set := make(map[string]bool, len(with))
	for _, f := range with {
		set[f.Name] = true
	}
	for _, fs := range schema.Fields {
		if set[fs.Name] {
			continue
		}
		auto := false
		for _, ann := range fs.Annotations {
			if ann.Kind == "auto" {
				auto = true
				break
			}
		}
		if !auto {
			continue
		}
		var v Value
		if fs.Type != nil && fs.Type.Primitive == ast.PrimDate {
			v = Date(vm.host.Now())
		} else {
			v = Text(vm.host.UUID())
		}
		with = append(with, Field{Name: fs.Name, Value: v})
	}
	return with
}
