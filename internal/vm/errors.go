package vm

import "fmt"

// RuntimeError is a single runtime.* diagnostic (spec §7), carrying enough
// to build a human-readable "<kind>: <message>" line plus the instruction
// index and source line the teacher's RuntimeError/StackTrace captures,
// narrowed here to a flat frame list since Droe has no user-catchable
// exceptions for a trace to unwind through.
type RuntimeError struct {
	Kind    string // "runtime.overflow", "runtime.divzero", ...
	Message string
	IP      int
	Line    int
	Frames  []string // innermost first: action/endpoint names on the call stack
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s (instruction %d, line %d)", e.Kind, e.Message, e.IP, e.Line)
	for _, f := range e.Frames {
		msg += "\n\tat " + f
	}
	return msg
}

// Cancelled reports whether err is the cooperative-stop sentinel
// (runtime.cancelled), which the host treats as success, not failure.
func Cancelled(err error) bool {
	re, ok := err.(*RuntimeError)
	return ok && re.Kind == "runtime.cancelled"
}

func (vm *VM) runtimeError(kind, format string, args ...interface{}) *RuntimeError {
	// vm.ip has already advanced past the instruction under execution by
	// the time exec() can detect an error, so the offending instruction is
	// at ip-1.
	at := vm.ip - 1
	line := 0
	if at >= 0 && at < len(vm.chunk.Lines) {
		line = vm.chunk.Lines[at]
	}
	message := fmt.Sprintf(format, args...)
	if vm.host != nil {
		vm.host.Fail(kind, message, line)
	}
	return &RuntimeError{
		Kind:    kind,
		Message: message,
		IP:      at,
		Line:    line,
		Frames:  vm.frameTrace(),
	}
}

func (vm *VM) typeError(context, expected, actual string) *RuntimeError {
	return vm.runtimeError("runtime.bad_cast", "%s expects %s but got %s", context, expected, actual)
}

// frameTrace lists the active call frames, innermost (currently
// executing) first.
func (vm *VM) frameTrace() []string {
	names := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		names = append(names, vm.frames[i].name)
	}
	return names
}
