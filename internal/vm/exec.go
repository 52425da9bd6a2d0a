package vm

import "github.com/droe-lang/droe/internal/bytecode"

// exec executes one already-fetched instruction. It reports (true, nil)
// on Halt/EndHandler so run's loop can stop without relying solely on the
// frame-depth check (a top-level Halt has no frame to pop).
func (vm *VM) exec(instr bytecode.Instruction) (bool, error) {
	switch instr.OpCode() {
	case bytecode.OpPushConst:
		vm.push(vm.constValue(int(instr.B())))

	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpDup:
		vm.push(vm.peek())

	case bytecode.OpLoadLocal:
		vm.push(vm.locals()[instr.B()])

	case bytecode.OpStoreLocal:
		vm.locals()[instr.B()] = vm.pop()

	case bytecode.OpLoadGlobal:
		vm.push(vm.globals[instr.B()])

	case bytecode.OpStoreGlobal:
		vm.globals[instr.B()] = vm.pop()

	case bytecode.OpAddI:
		return false, vm.execAddI()
	case bytecode.OpSubI:
		return false, vm.execSubI()
	case bytecode.OpMulI:
		return false, vm.execMulI()
	case bytecode.OpDivI:
		return false, vm.execDivI()
	case bytecode.OpAddD:
		return false, vm.execAddD()
	case bytecode.OpSubD:
		return false, vm.execSubD()
	case bytecode.OpMulD:
		return false, vm.execMulD()
	case bytecode.OpDivD:
		return false, vm.execDivD()
	case bytecode.OpNeg:
		if vm.peek().IsDecimal() {
			return false, vm.execNegD()
		}
		return false, vm.execNegI()

	case bytecode.OpEq:
		return false, vm.execCompare(func(l, r Value) bool { return l.Equal(r) })
	case bytecode.OpNe:
		return false, vm.execCompare(func(l, r Value) bool { return !l.Equal(r) })
	case bytecode.OpLt:
		return false, vm.execCompare(func(l, r Value) bool { return l.Less(r) })
	case bytecode.OpLe:
		return false, vm.execCompare(func(l, r Value) bool { return l.Less(r) || l.Equal(r) })
	case bytecode.OpGt:
		return false, vm.execCompare(func(l, r Value) bool { return r.Less(l) })
	case bytecode.OpGe:
		return false, vm.execCompare(func(l, r Value) bool { return r.Less(l) || l.Equal(r) })

	case bytecode.OpAnd:
		r, l := vm.pop(), vm.pop()
		vm.push(Flag(l.Flag && r.Flag))
	case bytecode.OpOr:
		r, l := vm.pop(), vm.pop()
		vm.push(Flag(l.Flag || r.Flag))
	case bytecode.OpNot:
		v := vm.pop()
		if !v.IsFlag() {
			return false, vm.typeError("not", "flag", v.Type.String())
		}
		vm.push(Flag(!v.Flag))

	case bytecode.OpJump:
		vm.ip += int(instr.SignedB())

	case bytecode.OpJumpIfFalse:
		v := vm.pop()
		if !v.IsFlag() {
			return false, vm.typeError("condition", "flag", v.Type.String())
		}
		if !v.Flag {
			vm.ip += int(instr.SignedB())
		}

	case bytecode.OpJumpIfTrue:
		v := vm.pop()
		if !v.IsFlag() {
			return false, vm.typeError("condition", "flag", v.Type.String())
		}
		if v.Flag {
			vm.ip += int(instr.SignedB())
		}

	case bytecode.OpConcat:
		r, l := vm.pop(), vm.pop()
		vm.push(Text(l.String() + r.String()))

	case bytecode.OpInterp:
		vm.execInterp(int(instr.A()))

	case bytecode.OpFormat:
		v := vm.pop()
		pattern := vm.constValue(int(instr.B()))
		s, err := vm.formatValue(v, pattern.Text)
		if err != nil {
			return false, err
		}
		vm.push(Text(s))

	case bytecode.OpMakeList:
		vm.execMakeCollection(int(instr.A()), false)
	case bytecode.OpMakeGroup:
		vm.execMakeCollection(int(instr.A()), true)

	case bytecode.OpIterBegin:
		return false, vm.execIterBegin()

	case bytecode.OpIterNext:
		return false, vm.execIterNext(instr)

	case bytecode.OpIndex:
		return false, vm.execIndex()

	case bytecode.OpMakeRecord:
		return false, vm.execMakeRecord(instr)

	case bytecode.OpGetField:
		rec := vm.pop()
		if !rec.IsRecord() {
			return false, vm.typeError("field access", "record", rec.Type.String())
		}
		idx := int(instr.B())
		if idx < 0 || idx >= len(rec.Record.Fields) {
			return false, vm.runtimeError("runtime.bad_cast", "field index %d out of range for %s", idx, rec.Record.TypeName)
		}
		vm.push(rec.Record.Fields[idx])

	case bytecode.OpSetField:
		val := vm.pop()
		rec := vm.pop()
		if !rec.IsRecord() {
			return false, vm.typeError("field assignment", "record", rec.Type.String())
		}
		idx := int(instr.B())
		if idx < 0 || idx >= len(rec.Record.Fields) {
			return false, vm.runtimeError("runtime.bad_cast", "field index %d out of range for %s", idx, rec.Record.TypeName)
		}
		fields := append([]Value(nil), rec.Record.Fields...)
		fields[idx] = val
		vm.push(RecordValue(rec.Record.TypeName, fields))

	case bytecode.OpCall:
		return false, vm.execCall(instr)

	case bytecode.OpReturn:
		vm.execReturn(true)

	case bytecode.OpEnterFrame:
		// no-op: Call/Invoke already sized the frame's locals.

	case bytecode.OpLeaveFrame:
		vm.execReturn(false)

	case bytecode.OpDisplay:
		vm.host.PrintLine(vm.pop().String())

	case bytecode.OpHostCall:
		return false, vm.execHostCall(instr)

	case bytecode.OpDefineData, bytecode.OpDefineEndpoint:
		// declarative prologue only; tables already live on the chunk.

	case bytecode.OpEndHandler:
		return true, nil

	case bytecode.OpDatabaseOp:
		return false, vm.execDatabaseOp(instr)

	case bytecode.OpHalt:
		return true, nil

	default:
		return false, vm.runtimeError("runtime.bad_cast", "unimplemented opcode %s", instr.OpCode())
	}
	return false, nil
}

func (vm *VM) constValue(idx int) Value {
	k := vm.chunk.Constants[idx]
	switch k.Tag {
	case bytecode.TagInt:
		return IntValue(k.I)
	case bytecode.TagDecimal:
		return Decimal(k.I)
	case bytecode.TagText:
		return Text(k.S)
	case bytecode.TagFlag:
		return Flag(k.Flag)
	case bytecode.TagDate:
		return Date(k.S)
	case bytecode.TagFile:
		return File(k.S)
	case bytecode.TagPattern:
		return Text(k.S)
	}
	return Nil()
}

// execInterp reconstructs an interpolated string from its n embedded
// expressions and n+1 literal chunks, pushed interleaved chunk0, expr0,
// chunk1, ..., exprN-1, chunkN.
func (vm *VM) execInterp(n int) {
	total := 2*n + 1
	parts := make([]string, total)
	for i := total - 1; i >= 0; i-- {
		parts[i] = vm.pop().String()
	}
	var out string
	for _, p := range parts {
		out += p
	}
	vm.push(Text(out))
}

func (vm *VM) execMakeCollection(n int, group bool) {
	elems := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		elems[i] = vm.pop()
	}
	if group {
		vm.push(Group(elems))
	} else {
		vm.push(List(elems))
	}
}

// execIterBegin converts the value under iteration into a ValueList
// holding the remaining elements, the representation IterNext consumes.
// Text iterates as zero elements when empty, one (the whole text)
// otherwise, matching the "is empty"/"is not empty" use of this protocol.
func (vm *VM) execIterBegin() error {
	v := vm.pop()
	switch {
	case v.IsCollection():
		vm.push(List(append([]Value(nil), v.List...)))
	case v.IsText():
		if v.Text == "" {
			vm.push(List(nil))
		} else {
			vm.push(List([]Value{v}))
		}
	default:
		return vm.typeError("iteration", "collection or text", v.Type.String())
	}
	return nil
}

// execIterNext pops the iterator; if exhausted, it jumps per instr's
// offset with the iterator popped and nothing pushed. Otherwise it pushes
// the remaining iterator back
// followed by the next element, and falls through.
func (vm *VM) execIterNext(instr bytecode.Instruction) error {
	it := vm.pop()
	if !it.IsCollection() {
		return vm.typeError("iteration", "iterator", it.Type.String())
	}
	if len(it.List) == 0 {
		vm.ip += int(instr.SignedB())
		return nil
	}
	head := it.List[0]
	vm.push(List(it.List[1:]))
	vm.push(head)
	return nil
}

func (vm *VM) execIndex() error {
	idx := vm.pop()
	coll := vm.pop()
	if !idx.IsInt() {
		return vm.typeError("index", "int", idx.Type.String())
	}
	if !coll.IsCollection() {
		return vm.typeError("index", "collection", coll.Type.String())
	}
	i := int(idx.Int)
	if i < 0 || i >= len(coll.List) {
		return vm.runtimeError("runtime.bad_cast", "index %d out of range (length %d)", i, len(coll.List))
	}
	vm.push(coll.List[i])
	return nil
}

func (vm *VM) execMakeRecord(instr bytecode.Instruction) error {
	typeIdx := int(instr.B())
	if typeIdx < 0 || typeIdx >= len(vm.chunk.RecordSchemas) {
		return vm.runtimeError("runtime.bad_cast", "record type index %d out of range", typeIdx)
	}
	n := int(instr.A())
	fields := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		fields[i] = vm.pop()
	}
	vm.push(RecordValue(vm.chunk.RecordSchemas[typeIdx].Name, fields))
	return nil
}

// execCall resolves instr's CallTarget, allocates a locals array sized by
// the target ActionEntry, copies the argc popped arguments into its low
// slots, and transfers control to the action's entry point.
func (vm *VM) execCall(instr bytecode.Instruction) error {
	argc := int(instr.A())
	targetIdx := int(instr.B())
	if targetIdx < 0 || targetIdx >= len(vm.chunk.CallTargets) {
		return vm.runtimeError("runtime.bad_cast", "call target index %d out of range", targetIdx)
	}
	target := vm.chunk.CallTargets[targetIdx]
	mod := vm.chunk.Modules[target.ModuleIndex]
	act := mod.Actions[target.ActionIndex]

	args := make([]Value, argc)
	copy(args, vm.stack[len(vm.stack)-argc:])
	vm.stack = vm.stack[:len(vm.stack)-argc]

	locals := make([]Value, act.Locals)
	copy(locals, args)

	name := act.Name
	if mod.Name != "" {
		name = mod.Name + "." + act.Name
	}
	vm.frames = append(vm.frames, frame{
		returnIP:     vm.ip,
		locals:       locals,
		name:         name,
		returnsValue: act.Returns != nil,
	})
	vm.ip = int(act.Entry)
	return nil
}

// execReturn pops the current frame. When wantsValue is true and the
// frame itself declares a return type, the expression value already on
// top of the shared stack is the `give` result and is left in place
// across the pop (it was pushed onto the same stack the caller resumes
// with); a task/void frame, or LeaveFrame's unconditional no-value path,
// leaves nothing behind.
func (vm *VM) execReturn(wantsValue bool) {
	top := len(vm.frames) - 1
	f := vm.frames[top]

	var result Value
	hasResult := wantsValue && f.returnsValue
	if hasResult {
		result = vm.pop()
	}

	vm.frames = vm.frames[:top]
	if f.returnIP >= 0 {
		vm.ip = f.returnIP
	}
	if hasResult {
		vm.push(result)
	}
}
