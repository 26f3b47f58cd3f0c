// Package process abstracts external command execution for the chiactl
// controller. Every interaction with the container runtime goes through the
// Manager interface so that the controller can be tested without a runtime
// installed.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Result captures the observable outcome of one external command.
type Result struct {
	// Stdout is the captured standard output.
	Stdout string

	// Stderr is the captured standard error. Preserved verbatim so that
	// the runtime's own diagnostics reach the operator unmodified.
	Stderr string

	// ExitCode is the command's exit code. -1 when the command could not
	// be started at all.
	ExitCode int

	// Duration is how long the command ran.
	Duration time.Duration
}

// Manager handles external process operations.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
//
// # Context Handling
//
// All methods accept a context.Context. Cancellation kills the child
// process; callers that must not interrupt a launch should pass a context
// without a deadline.
type Manager interface {
	// Run executes a command synchronously in dir (empty = inherit cwd)
	// with extraEnv appended to the inherited environment.
	//
	// A non-zero exit is reported through both the Result and a non-nil
	// error; the Result is always populated when the command started.
	Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (*Result, error)

	// RunStreaming executes a command with stdout and stderr wired to w.
	// Used for log following where output must not be buffered.
	RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error
}

// DefaultManager implements Manager using os/exec. This is the production
// implementation; tests use MockManager instead.
type DefaultManager struct{}

// NewDefaultManager creates a Manager that executes real processes.
func NewDefaultManager() *DefaultManager {
	return &DefaultManager{}
}

// Run executes a command synchronously and captures its output.
func (m *DefaultManager) Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(extraEnv) > 0 {
		cmd.Env = append(cmd.Environ(), extraEnv...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if trimmed := strings.TrimSpace(res.Stderr); trimmed != "" {
			return res, fmt.Errorf("%s: %w: %s", name, err, trimmed)
		}
		return res, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}

// RunStreaming executes a command with output streamed to w.
func (m *DefaultManager) RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// Operator interrupt during log following is a normal exit.
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// exitCode extracts the exit code from a Run error. Returns 0 for nil and
// -1 when the process never started.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// Call records one invocation on the MockManager.
type Call struct {
	Method string
	Dir    string
	Name   string
	Args   []string
	Env    []string
}

// MockManager is a test double for Manager. Configure it by setting the
// function fields; calling an unconfigured method panics so that tests fail
// loudly instead of silently succeeding.
type MockManager struct {
	RunFunc          func(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (*Result, error)
	RunStreamingFunc func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error

	// Calls records every invocation in order.
	Calls []Call
}

// Run delegates to RunFunc.
func (m *MockManager) Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (*Result, error) {
	m.Calls = append(m.Calls, Call{Method: "Run", Dir: dir, Name: name, Args: args, Env: extraEnv})
	if m.RunFunc == nil {
		panic("MockManager.Run called but RunFunc not set")
	}
	return m.RunFunc(ctx, dir, extraEnv, name, args...)
}

// RunStreaming delegates to RunStreamingFunc.
func (m *MockManager) RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
	m.Calls = append(m.Calls, Call{Method: "RunStreaming", Dir: dir, Name: name, Args: args})
	if m.RunStreamingFunc == nil {
		panic("MockManager.RunStreaming called but RunStreamingFunc not set")
	}
	return m.RunStreamingFunc(ctx, dir, w, name, args...)
}

// Reset clears recorded calls.
func (m *MockManager) Reset() {
	m.Calls = nil
}

// Compile-time interface compliance checks.
var (
	_ Manager = (*DefaultManager)(nil)
	_ Manager = (*MockManager)(nil)
)
