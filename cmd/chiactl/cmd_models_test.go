package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colav/Chia/cmd/chiactl/config"
	"github.com/colav/Chia/cmd/chiactl/internal/compose"
	"github.com/colav/Chia/cmd/chiactl/internal/gpu"
	"github.com/colav/Chia/cmd/chiactl/internal/health"
	"github.com/colav/Chia/pkg/ux"
)

// withController swaps the command-to-controller wiring for the duration of
// one test so the cobra handlers run against fixture mocks.
func withController(t *testing.T, ctrl *ServiceController) {
	t.Helper()
	orig := newController
	newController = func(cfg config.ChiaConfig, spec config.ServiceSpec) (*ServiceController, error) {
		return ctrl, nil
	}
	t.Cleanup(func() { newController = orig })
}

// captureStd runs fn with stdout and stderr redirected to pipes and returns
// what it printed to each.
func captureStd(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()
	origOut, origErr := os.Stdout, os.Stderr
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	errR, errW, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout, os.Stderr = outW, errW
	defer func() { os.Stdout, os.Stderr = origOut, origErr }()

	fn()
	outW.Close()
	errW.Close()
	outBytes, _ := io.ReadAll(outR)
	errBytes, _ := io.ReadAll(errR)
	return string(outBytes), string(errBytes)
}

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

// A model verb against a service that has not answered its readiness check
// yet must warn but still run the command in the container.
func TestModelVerbWarnsWhenNotReady(t *testing.T) {
	ux.SetPlain(true)
	defer ux.SetPlain(false)

	f := newFixture(t)
	f.prober.checkRes = &health.Result{State: health.NotReady, LastErr: "connection refused"}
	f.launcher.ExecFunc = func(ctx context.Context, files []string, service string, command []string) (*compose.Result, error) {
		return &compose.Result{Stdout: "NAME\tID\tSIZE\n"}, nil
	}
	withController(t, f.controller())

	var runErr error
	stdout, stderr := captureStd(t, func() {
		runErr = runModelVerb(config.ChiaConfig{}, f.spec, "list")(testCommand(), nil)
	})

	require.NoError(t, runErr)
	assert.Contains(t, stderr, "ollama is not ready; attempting anyway")
	assert.Contains(t, stdout, "NAME")

	require.Len(t, f.launcher.Calls, 1)
	assert.Equal(t, "Exec", f.launcher.Calls[0].Method)
	assert.Equal(t, []string{"ollama", "list"}, f.launcher.Calls[0].Command)
	assert.Equal(t, "ollama", f.launcher.Calls[0].Service)
}

// When the service is ready the verb runs silently, without the warning.
func TestModelVerbNoWarningWhenReady(t *testing.T) {
	ux.SetPlain(true)
	defer ux.SetPlain(false)

	f := newFixture(t)
	f.launcher.ExecFunc = func(ctx context.Context, files []string, service string, command []string) (*compose.Result, error) {
		return &compose.Result{Stdout: "pulled\n"}, nil
	}
	withController(t, f.controller())

	var runErr error
	_, stderr := captureStd(t, func() {
		runErr = runModelVerb(config.ChiaConfig{}, f.spec, "pull")(testCommand(), []string{"llama3"})
	})

	require.NoError(t, runErr)
	assert.NotContains(t, stderr, "not ready")
	require.Len(t, f.launcher.Calls, 1)
	assert.Equal(t, []string{"ollama", "pull", "llama3"}, f.launcher.Calls[0].Command)
}

// An engine failure surfaces as a CommandError carrying the container's
// exit code and stderr.
func TestModelVerbWrapsEngineFailure(t *testing.T) {
	ux.SetPlain(true)
	defer ux.SetPlain(false)

	f := newFixture(t)
	f.launcher.ExecFunc = func(ctx context.Context, files []string, service string, command []string) (*compose.Result, error) {
		return nil, &compose.RunError{Op: "exec", ExitCode: 1, Stderr: "model not found"}
	}
	withController(t, f.controller())

	var runErr error
	captureStd(t, func() {
		runErr = runModelVerb(config.ChiaConfig{}, f.spec, "rm")(testCommand(), []string{"nope"})
	})

	var cmdErr *CommandError
	require.ErrorAs(t, runErr, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Equal(t, "model not found", cmdErr.Stderr)
}

// Exit codes distinguish operator decisions from hardware problems so
// scripts can branch on them.
func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"declined guard", fmt.Errorf("clean ollama: %w", ErrGuardDeclined), 2},
		{"hardware unsatisfied", fmt.Errorf("ollama: %w", ErrHardwareUnsatisfied), 3},
		{"readiness failure", fmt.Errorf("ollama: %w", ErrNotReady), 1},
		{"generic failure", errors.New("compose exploded"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// The declined-guard and unsatisfied-hardware sentinels must survive the
// wrapping the controller applies, or the exit codes above would collapse
// to 1.
func TestExitCodesReachableFromController(t *testing.T) {
	t.Run("clean declined exits 2", func(t *testing.T) {
		f := newFixture(t)
		withController(t, f.controller())

		var runErr error
		captureStd(t, func() {
			runErr = runClean(config.ChiaConfig{}, f.spec)(testCommand(), nil)
		})
		require.Error(t, runErr)
		assert.Equal(t, 2, exitCodeFor(runErr))
	})

	t.Run("gpu start without hardware exits 3", func(t *testing.T) {
		f := newFixture(t)
		f.hw.report = &gpu.Report{Verdict: gpu.Unsatisfied}
		withController(t, f.controller())

		var runErr error
		captureStd(t, func() {
			runErr = runStart(config.ChiaConfig{}, f.spec, true, false)(testCommand(), nil)
		})
		require.Error(t, runErr)
		assert.Equal(t, 3, exitCodeFor(runErr))
	})
}
