// Package diagnostics gives every compiler phase (lexer, parser, resolver,
// checker, emitter) and the VM a common shape for reporting a problem to a
// person: a kind, a message, and — when the phase tracked one — a source
// position. Formatting (caret-pointing source context, ANSI color) is
// adapted from the teacher's internal/errors.CompilerError into one shared
// implementation so every phase's errors print the same way.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/droe-lang/droe/internal/bytecode"
	"github.com/droe-lang/droe/internal/checker"
	"github.com/droe-lang/droe/internal/lexer"
	"github.com/droe-lang/droe/internal/parser"
	"github.com/droe-lang/droe/internal/resolver"
	"github.com/droe-lang/droe/internal/token"
)

// Diagnostic is one phase's diagnostic, normalized to a common shape.
type Diagnostic struct {
	Kind    string // "lex.*", "parse.*", "resolve.*", "type.*", "codegen.*", "runtime.*"
	Message string
	Pos     token.Position
	HasPos  bool // false for resolver/checker errors, which carry no position yet
}

func (d Diagnostic) String() string {
	if d.HasPos {
		return d.Pos.String() + ": " + d.Kind + ": " + d.Message
	}
	return d.Kind + ": " + d.Message
}

// FromLexer, FromParser, and FromEmitter convert a phase's error slice,
// preserving the source position each already tracks.
func FromLexer(errs []lexer.Error) []Diagnostic {
	out := make([]Diagnostic, len(errs))
	for i, e := range errs {
		out[i] = Diagnostic{Kind: e.Kind, Message: e.Message, Pos: e.Pos, HasPos: true}
	}
	return out
}

func FromParser(errs []parser.Error) []Diagnostic {
	out := make([]Diagnostic, len(errs))
	for i, e := range errs {
		out[i] = Diagnostic{Kind: e.Kind, Message: e.Message, Pos: e.Pos, HasPos: true}
	}
	return out
}

func FromEmitter(errs []bytecode.Error) []Diagnostic {
	out := make([]Diagnostic, len(errs))
	for i, e := range errs {
		out[i] = Diagnostic{Kind: e.Kind, Message: e.Message, Pos: e.Pos, HasPos: true}
	}
	return out
}

// FromResolver and FromChecker convert phases that don't yet carry a source
// position (see DESIGN.md's internal/diagnostics entry).
func FromResolver(errs []resolver.Error) []Diagnostic {
	out := make([]Diagnostic, len(errs))
	for i, e := range errs {
		out[i] = Diagnostic{Kind: e.Kind, Message: e.Message}
	}
	return out
}

func FromChecker(errs []checker.Error) []Diagnostic {
	out := make([]Diagnostic, len(errs))
	for i, e := range errs {
		out[i] = Diagnostic{Kind: e.Kind, Message: e.Message}
	}
	return out
}

// FromRuntime reports a VM failure, which only ever carries a line number,
// not a full column-accurate position.
func FromRuntime(kind, message string, line int) Diagnostic {
	return Diagnostic{Kind: kind, Message: message, Pos: token.Position{Line: line}, HasPos: line > 0}
}

// Format renders one diagnostic with a header, the offending source line
// (when available and Pos is set), and a caret under the column.
func Format(d Diagnostic, source, file string, color bool) string {
	var sb strings.Builder

	if !d.HasPos || d.Pos.Line == 0 {
		sb.WriteString(fmt.Sprintf("%s: %s\n", d.Kind, d.Message))
		return sb.String()
	}

	f := file
	if f == "" {
		f = d.Pos.File
	}
	if f != "" {
		sb.WriteString(fmt.Sprintf("%s:%d:%d: ", f, d.Pos.Line, d.Pos.Column))
	} else {
		sb.WriteString(fmt.Sprintf("%d:%d: ", d.Pos.Line, d.Pos.Column))
	}
	sb.WriteString(d.Kind)
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	sb.WriteString("\n")

	if line := sourceLine(source, d.Pos.Line); line != "" && d.Pos.Column > 0 {
		lineNumStr := fmt.Sprintf("%4d | ", d.Pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+d.Pos.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func sourceLine(source string, n int) string {
	if source == "" || n < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if n > len(lines) {
		return ""
	}
	return lines[n-1]
}

// FormatAll renders a batch of diagnostics the way the teacher's
// FormatErrors numbers a multi-error compile failure.
func FormatAll(ds []Diagnostic, source, file string, color bool) string {
	if len(ds) == 0 {
		return ""
	}
	if len(ds) == 1 {
		return Format(ds[0], source, file, color)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s):\n\n", len(ds)))
	for i, d := range ds {
		sb.WriteString(fmt.Sprintf("[%d/%d] ", i+1, len(ds)))
		sb.WriteString(Format(d, source, file, color))
	}
	return sb.String()
}
