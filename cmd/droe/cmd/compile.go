package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/droe-lang/droe/internal/bytecode"
	"github.com/spf13/cobra"
)

var (
	compileOut    string
	compileTarget string
	disassemble   bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <source>",
	Short: "Compile a Droe source file to a bytecode artifact",
	Long: `Compile lexes, parses, expands @include directives, type-checks, and
emits a bytecode artifact (spec §6.1).

Examples:
  droe compile order.droe
  droe compile order.droe -o order.droec
  droe compile order.droe --disassemble
  droe compile order.droe --target disasm -o order.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "output path (default: <input> with .droec extension)")
	compileCmd.Flags().StringVar(&compileTarget, "target", "bytecode", "output target: bytecode or disasm")
	compileCmd.Flags().BoolVar(&disassemble, "disassemble", false, "print disassembled bytecode to stderr after compiling")
}

func runCompile(_ *cobra.Command, args []string) error {
	path := args[0]
	log := newLogger()

	result, err := compileSource(path, log)
	if err != nil {
		if _, ok := err.(*exitError); ok {
			return err
		}
		return fmt.Errorf("compile failed: %w", err)
	}

	if disassemble {
		fmt.Fprintf(os.Stderr, "\n== %s ==\n", path)
		fmt.Fprintln(os.Stderr, bytecode.Disassemble(result.chunk))
	}

	switch compileTarget {
	case "disasm":
		out := outputPath(path, compileOut, ".txt")
		if err := os.WriteFile(out, []byte(bytecode.Disassemble(result.chunk)), 0o644); err != nil {
			return ioError("write %s: %w", out, err)
		}
		log.Info("Disassembled %s -> %s", path, out)
		return nil
	case "bytecode":
		out := outputPath(path, compileOut, ".droec")
		f, err := os.Create(out)
		if err != nil {
			return ioError("create %s: %w", out, err)
		}
		defer f.Close()
		if err := bytecode.Write(f, result.chunk); err != nil {
			return ioError("write %s: %w", out, err)
		}
		log.Info("Compiled %s -> %s", path, out)
		return nil
	default:
		return fmt.Errorf("unknown --target %q (want bytecode or disasm)", compileTarget)
	}
}

// outputPath picks explicit's value if set, otherwise source with its
// extension replaced by ext.
func outputPath(source, explicit, ext string) string {
	if explicit != "" {
		return explicit
	}
	if e := filepath.Ext(source); e != "" {
		return strings.TrimSuffix(source, e) + ext
	}
	return source + ext
}
