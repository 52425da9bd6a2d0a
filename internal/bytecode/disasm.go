package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders every instruction in c as human-readable text, one
// line per instruction, annotated with the source line and (for constant-
// referencing opcodes) the constant's value.
func Disassemble(c *Chunk) string {
	var sb strings.Builder
	for i, instr := range c.Code {
		line := 0
		if i < len(c.Lines) {
			line = c.Lines[i]
		}
		fmt.Fprintf(&sb, "%04d  line %-4d  %s", i, line, instr.String())
		if note := c.annotate(instr); note != "" {
			sb.WriteString("   ; " + note)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// annotate resolves an instruction's operand against the chunk's tables so
// the disassembly reads e.g. "PushConst 3   ; 19.99" instead of a bare index.
func (c *Chunk) annotate(instr Instruction) string {
	switch instr.OpCode() {
	case OpPushConst, OpFormat:
		idx := int(instr.B())
		if idx >= 0 && idx < len(c.Constants) {
			return constString(c.Constants[idx])
		}
	case OpCall:
		idx := int(instr.B())
		if idx >= 0 && idx < len(c.CallTargets) {
			t := c.CallTargets[idx]
			if t.ModuleIndex >= 0 && t.ModuleIndex < len(c.Modules) {
				mod := c.Modules[t.ModuleIndex]
				if t.ActionIndex >= 0 && t.ActionIndex < len(mod.Actions) {
					return mod.Name + "." + mod.Actions[t.ActionIndex].Name
				}
			}
		}
	case OpDefineData:
		idx := int(instr.B())
		if idx >= 0 && idx < len(c.RecordSchemas) {
			return c.RecordSchemas[idx].Name
		}
	case OpDefineEndpoint:
		idx := int(instr.B())
		if idx >= 0 && idx < len(c.Endpoints) {
			e := c.Endpoints[idx]
			return e.Method.String() + " " + e.PathTemplate
		}
	case OpDatabaseOp:
		return DBOpCode(instr.A()).String()
	}
	return ""
}

func constString(k Const) string {
	switch k.Tag {
	case TagInt:
		return fmt.Sprintf("%d", k.I)
	case TagDecimal:
		return fmt.Sprintf("%d.%02d", k.I/100, abs64(k.I%100))
	case TagFlag:
		return fmt.Sprintf("%t", k.Flag)
	default:
		return k.S
	}
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
