package vm

import "github.com/droe-lang/droe/internal/bytecode"

// VM is the stack-oriented interpreter spec §4.7 describes: one flat
// program counter over the chunk's code array, an operand stack, a call
// stack of frames, and a slice of global slots. One VM instance runs one
// chunk; the host is free to keep several VMs around (spec §4.7's
// suspension-point note) as long as each owns its own VM value.
type VM struct {
	chunk   *bytecode.Chunk
	host    Host
	stack   []Value
	globals []Value
	frames  []frame
	ip      int
}

// NewVM returns a VM bound to host. Run or Invoke supplies the chunk.
func NewVM(host Host) *VM {
	return &VM{host: host}
}

// reset prepares the VM to execute chunk from scratch: a fresh global
// slice sized by the chunk's GlobalCount, and empty stacks.
func (vm *VM) reset(chunk *bytecode.Chunk) {
	vm.chunk = chunk
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.globals = make([]Value, chunk.GlobalCount)
	vm.ip = 0
}

// Run executes chunk's top-level program to Halt and returns its halt
// code (spec §6.3: "exit code is the program's halt code, 0 unless a
// runtime error occurred"). DefineData/DefineEndpoint instructions at the
// front of the code stream are skipped rather than interpreted — the
// tables they describe are already populated in chunk.RecordSchemas and
// chunk.Endpoints by the emitter, so there is nothing left for the VM to
// do with them at runtime beyond advancing past them.
func (vm *VM) Run(chunk *bytecode.Chunk) (int, error) {
	vm.reset(chunk)
	vm.skipPrologue()
	if err := vm.run(); err != nil {
		return 1, err
	}
	return 0, nil
}

func (vm *VM) skipPrologue() {
	for vm.ip < len(vm.chunk.Code) {
		op := vm.chunk.Code[vm.ip].OpCode()
		if op != bytecode.OpDefineData && op != bytecode.OpDefineEndpoint {
			return
		}
		vm.ip++
	}
}

// Invoke dispatches one HTTP request to the handler recorded at entry
// (bytecode.EndpointEntry.HandlerEntry/Locals), binding request into local
// slot 0 the same way emitHandlerBody declared it. It runs to EndHandler
// and returns whatever value sits on top of the stack at that point (the
// Response record a `respond` HostCall built), or Nil if the handler fell
// through without responding.
func (vm *VM) Invoke(chunk *bytecode.Chunk, ep bytecode.EndpointEntry, request Value) (Value, error) {
	vm.chunk = chunk
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	if vm.globals == nil {
		vm.globals = make([]Value, chunk.GlobalCount)
	}

	locals := make([]Value, ep.Locals)
	if len(locals) > 0 {
		locals[0] = request
	}
	vm.frames = append(vm.frames, frame{
		returnIP:     -1,
		locals:       locals,
		name:         ep.Method.String() + " " + ep.PathTemplate,
		returnsValue: false,
	})
	vm.ip = int(ep.HandlerEntry)

	if err := vm.run(); err != nil {
		return Nil(), err
	}
	if len(vm.stack) == 0 {
		return Nil(), nil
	}
	return vm.stack[len(vm.stack)-1], nil
}

// run is the fetch-execute-advance loop shared by Run and Invoke. It stops
// when the frame depth it started at is unwound by Return/EndHandler, or
// on Halt, or on error.
func (vm *VM) run() error {
	baseDepth := len(vm.frames)
	for {
		if vm.ip < 0 || vm.ip >= len(vm.chunk.Code) {
			return vm.runtimeError("runtime.bad_cast", "instruction pointer %d out of range", vm.ip)
		}
		instr := vm.chunk.Code[vm.ip]
		vm.ip++

		halted, err := vm.exec(instr)
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
		if len(vm.frames) < baseDepth {
			return nil
		}
	}
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek() Value {
	return vm.stack[len(vm.stack)-1]
}

func (vm *VM) locals() []Value {
	return vm.frames[len(vm.frames)-1].locals
}
