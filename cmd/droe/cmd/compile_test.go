package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/droe-lang/droe/internal/bytecode"
	"github.com/droe-lang/droe/internal/diagnostics"
)

func writeTempSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "program.droe")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write temp source: %v", err)
	}
	return path
}

func TestCompileSourceProducesRoundTrippableArtifact(t *testing.T) {
	path := writeTempSource(t, "display \"hello\"\n")
	log := diagnostics.NewLogger(bytes.NewBuffer(nil), diagnostics.LevelQuiet)

	result, err := compileSource(path, log)
	if err != nil {
		t.Fatalf("compileSource: %v", err)
	}
	if result.chunk.Metadata.SourceFile != path {
		t.Fatalf("got source file %q", result.chunk.Metadata.SourceFile)
	}

	var buf bytes.Buffer
	if err := bytecode.Write(&buf, result.chunk); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	readBack, err := bytecode.Read(&buf)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(readBack.Code) != len(result.chunk.Code) {
		t.Fatalf("instruction count changed across round trip: %d vs %d", len(readBack.Code), len(result.chunk.Code))
	}
}

func TestCompileSourceReportsParseErrorsAndFails(t *testing.T) {
	path := writeTempSource(t, "set total to 2 plus\n")
	log := diagnostics.NewLogger(bytes.NewBuffer(nil), diagnostics.LevelQuiet)

	if _, err := compileSource(path, log); err == nil {
		t.Fatalf("expected a parse error for an incomplete expression")
	}
}

func TestCompileSourceMissingFileIsIOError(t *testing.T) {
	log := diagnostics.NewLogger(bytes.NewBuffer(nil), diagnostics.LevelQuiet)
	_, err := compileSource(filepath.Join(t.TempDir(), "missing.droe"), log)
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
	if ExitCodeFor(err) != 2 {
		t.Fatalf("missing source file should exit 2, got %d", ExitCodeFor(err))
	}
}

func TestIncludeSearchRootsReadsDroeHome(t *testing.T) {
	t.Setenv("DROE_HOME", "/does/not/matter")
	roots := includeSearchRoots()
	if len(roots) != 1 || roots[0] != "/does/not/matter" {
		t.Fatalf("got %#v", roots)
	}

	t.Setenv("DROE_HOME", "")
	if roots := includeSearchRoots(); roots != nil {
		t.Fatalf("expected no search roots when DROE_HOME is unset, got %#v", roots)
	}
}
