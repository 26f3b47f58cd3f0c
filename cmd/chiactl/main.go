package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/colav/Chia/cmd/chiactl/config"
	"github.com/colav/Chia/pkg/ux"
)

func main() {
	if err := config.Load(); err != nil {
		ux.Error(fmt.Sprintf("cannot load services manifest: %v", err))
		os.Exit(1)
	}
	buildServiceCommands(config.Global)

	if err := rootCmd.Execute(); err != nil {
		ux.Error(err.Error())
		if stderr := ExtractStderr(err); stderr != "" {
			fmt.Fprintf(os.Stderr, "engine output:\n%s\n", ux.Indent(stderr, 2))
		}
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command error to the process exit code: a declined
// destructive-operation guard exits 2, failed gpu prerequisites exit 3,
// everything else exits 1.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrGuardDeclined):
		return 2
	case errors.Is(err, ErrHardwareUnsatisfied):
		return 3
	default:
		return 1
	}
}
