package cmd

import (
	"fmt"
	"os"

	"github.com/droe-lang/droe/internal/diagnostics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "droe",
	Short: "Droe compiler and runtime",
	Long: `droe is the compiler, bytecode VM, and CLI for the Droe language.

Droe programs are lexed, parsed, have their @include directives expanded,
are symbol/type checked, and are lowered to a bytecode artifact that the
VM either runs directly or embeds into a standalone executable.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// exitError is an error that carries the process exit code a subcommand
// wants main to use instead of the default 1, per spec §6.3's
// "exit 0 on success, 1 on compile error, 2 on I/O error".
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func ioError(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

// ExitCodeFor returns the process exit code main should use for err
// (1 unless err is a CLI-level exitError naming another code).
func ExitCodeFor(err error) int {
	var ee *exitError
	if e, ok := err.(*exitError); ok {
		ee = e
	}
	if ee != nil {
		return ee.code
	}
	return 1
}

func newLogger() *diagnostics.Logger {
	level := diagnostics.LevelInfo
	if verbose {
		level = diagnostics.LevelVerbose
	}
	return diagnostics.NewLogger(os.Stderr, level)
}
