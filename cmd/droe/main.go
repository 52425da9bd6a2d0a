// Command droe is the Droe compiler and runtime CLI. A binary built by
// "droe build --release" is this same binary with an artifact appended
// per spec §6.2; main checks for that embedded artifact before falling
// through to the normal compile/run/build subcommands.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/droe-lang/droe/cmd/droe/cmd"
	"github.com/droe-lang/droe/internal/bytecode"
	"github.com/droe-lang/droe/internal/diagnostics"
	"github.com/droe-lang/droe/internal/host"
	"github.com/droe-lang/droe/internal/vm"
)

func main() {
	if chunk, ok := embeddedChunk(); ok {
		log := diagnostics.NewLogger(os.Stderr, diagnostics.LevelInfo)
		h := host.NewMemoryHost(os.Stdout, log)
		code, err := vm.NewVM(h).Run(chunk)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cmd.ExitCodeFor(err))
	}
}

// embeddedChunk scans this process's own executable for an artifact
// appended by "droe build --release" (spec §6.2's framing markers).
func embeddedChunk() (*bytecode.Chunk, bool) {
	self, err := os.Executable()
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(self)
	if err != nil {
		return nil, false
	}
	artifact, ok := bytecode.ExtractArtifact(data)
	if !ok {
		return nil, false
	}
	chunk, err := bytecode.Read(bytes.NewReader(artifact))
	if err != nil {
		return nil, false
	}
	return chunk, true
}
