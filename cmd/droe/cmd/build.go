package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/droe-lang/droe/internal/bytecode"
	"github.com/spf13/cobra"
)

var (
	buildOut     string
	buildRelease bool
)

var buildCmd = &cobra.Command{
	Use:   "build <source> --release",
	Short: "Produce a standalone executable",
	Long: `build compiles source and appends the resulting artifact to a copy of
the droe binary itself, using the framing markers of spec §6.2
(__DROEBC_DATA_START__/__DROEBC_DATA_END__). The resulting file is a
normal executable: running it directly extracts and runs the embedded
artifact without needing "droe run" or the source file present.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "output executable path (default: <input> without extension)")
	buildCmd.Flags().BoolVar(&buildRelease, "release", false, "required: confirms a standalone build is wanted")
}

func runBuild(_ *cobra.Command, args []string) error {
	if !buildRelease {
		return &exitError{code: 1, err: errors.New("build requires --release")}
	}
	path := args[0]
	log := newLogger()

	result, err := compileSource(path, log)
	if err != nil {
		return err
	}

	var artifact bytes.Buffer
	if err := bytecode.Write(&artifact, result.chunk); err != nil {
		return ioError("serialize artifact: %w", err)
	}

	selfPath, err := os.Executable()
	if err != nil {
		return ioError("locate droe binary: %w", err)
	}
	hostBinary, err := os.ReadFile(selfPath)
	if err != nil {
		return ioError("read %s: %w", selfPath, err)
	}

	combined := bytecode.EmbedArtifact(hostBinary, artifact.Bytes())

	out := buildOut
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path))
		if runtime.GOOS == "windows" {
			out += ".exe"
		}
	}
	if err := os.WriteFile(out, combined, 0o755); err != nil {
		return ioError("write %s: %w", out, err)
	}

	log.Info("Built %s -> %s (%d bytes)", path, out, len(combined))
	return nil
}
