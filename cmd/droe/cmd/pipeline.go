package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/droe-lang/droe/internal/bytecode"
	"github.com/droe-lang/droe/internal/checker"
	"github.com/droe-lang/droe/internal/diagnostics"
	"github.com/droe-lang/droe/internal/lexer"
	"github.com/droe-lang/droe/internal/parser"
	"github.com/droe-lang/droe/internal/resolver"
)

// compileResult is the pipeline's successful output: an emitted Chunk
// plus the root file's source text, kept around for diagnostic printing
// further down a subcommand (e.g. a runtime error during `droe run`).
type compileResult struct {
	chunk  *bytecode.Chunk
	source string
}

// compileSource runs the full lex -> resolve -> check -> emit pipeline
// (spec §4) over the file at path, printing whichever phase's
// diagnostics to stderr the way the teacher's compileScript prints
// errors.FormatErrors, and stopping at the first phase that reports one.
func compileSource(path string, log *diagnostics.Logger) (*compileResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError("read %s: %w", path, err)
	}
	source := string(content)

	l := lexer.New(path, source)
	p := parser.New(path, l)
	prog := p.ParseProgram()

	if errs := l.Errors(); len(errs) > 0 {
		printDiagnostics(diagnostics.FromLexer(errs), source, path)
		return nil, fmt.Errorf("lexing failed with %d error(s)", len(errs))
	}
	if errs := p.Errors(); len(errs) > 0 {
		printDiagnostics(diagnostics.FromParser(errs), source, path)
		return nil, fmt.Errorf("parsing failed with %d error(s)", len(errs))
	}
	log.Verbose("parsed %s (%d top-level node(s))", path, len(prog.Nodes))

	res := resolver.New(loadInclude, includeSearchRoots()...)
	merged := res.Resolve(path, prog)
	if errs := res.Errors(); len(errs) > 0 {
		printDiagnostics(diagnostics.FromResolver(errs), source, path)
		return nil, fmt.Errorf("module resolution failed with %d error(s)", len(errs))
	}
	if len(prog.Includes) > 0 {
		log.Verbose("expanded %d include(s)", len(prog.Includes))
	}

	chk := checker.New()
	if !chk.Check(merged) {
		printDiagnostics(diagnostics.FromChecker(chk.Errors()), source, path)
		return nil, fmt.Errorf("type checking failed with %d error(s)", len(chk.Errors()))
	}
	log.Verbose("checked %s", path)

	chunk, errs := bytecode.NewEmitter().Emit(merged)
	if len(errs) > 0 {
		printDiagnostics(diagnostics.FromEmitter(errs), source, path)
		return nil, fmt.Errorf("bytecode emission failed with %d error(s)", len(errs))
	}
	chunk.Metadata.CompilerVersion = Version
	chunk.Metadata.CreatedAt = time.Now().Unix()

	log.Verbose("emitted %d instruction(s), %d constant(s), %d record schema(s), %d endpoint(s)",
		len(chunk.Code), len(chunk.Constants), len(chunk.RecordSchemas), len(chunk.Endpoints))

	return &compileResult{chunk: chunk, source: source}, nil
}

func printDiagnostics(ds []diagnostics.Diagnostic, source, path string) {
	fmt.Fprint(os.Stderr, diagnostics.FormatAll(ds, source, path, isTerminal(os.Stderr)))
}

// loadInclude is the resolver.Loader backing @include expansion: plain
// file reads, since Droe has no virtual filesystem.
func loadInclude(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// includeSearchRoots implements DROE_HOME (spec §6.4): when set, includes
// resolve against it before falling back to the including file's own
// directory, which resolver.Resolve does on its own when no search root
// matches.
func includeSearchRoots() []string {
	if home := os.Getenv("DROE_HOME"); home != "" {
		return []string{home}
	}
	return nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
