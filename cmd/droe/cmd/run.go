package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/droe-lang/droe/internal/bytecode"
	"github.com/droe-lang/droe/internal/diagnostics"
	"github.com/droe-lang/droe/internal/host"
	"github.com/droe-lang/droe/internal/vm"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <artifact-or-source>",
	Short: "Compile (if needed) and execute a Droe program",
	Long: `run accepts either a .droe source file or a previously compiled .droec
artifact. A source file is compiled in memory first; an artifact is
loaded directly. The process exit code is the program's halt code: 0
unless a runtime error occurred (spec §6.3).`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, args []string) error {
	path := args[0]
	log := newLogger()

	chunk, err := loadChunk(path, log)
	if err != nil {
		return err
	}

	h := host.NewMemoryHost(os.Stdout, log)
	code, runErr := vm.NewVM(h).Run(chunk)
	if runErr != nil {
		log.Error("%s", runErr)
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// loadChunk reads path as a compiled artifact when its extension says so,
// otherwise runs it through the full compile pipeline.
func loadChunk(path string, log *diagnostics.Logger) (*bytecode.Chunk, error) {
	if strings.HasSuffix(path, ".droec") {
		f, err := os.Open(path)
		if err != nil {
			return nil, ioError("read %s: %w", path, err)
		}
		defer f.Close()
		chunk, err := bytecode.Read(f)
		if err != nil {
			return nil, fmt.Errorf("load artifact %s: %w", path, err)
		}
		log.Verbose("loaded artifact %s", path)
		return chunk, nil
	}

	result, err := compileSource(path, log)
	if err != nil {
		return nil, err
	}
	return result.chunk, nil
}
