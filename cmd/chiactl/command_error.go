package main

import (
	"fmt"
	"strings"

	"github.com/colav/Chia/cmd/chiactl/internal/compose"
)

// CommandError wraps a command execution failure with stderr context.
//
// # Description
//
// Provides rich error context for engine failures surfaced to the
// operator: the command that failed, its exit code, and stderr output.
// Implements the error interface and supports unwrapping.
//
// # Example
//
//	err := NewCommandError("docker compose up", 125, "port is already allocated", originalErr)
//	fmt.Println(err.Error()) // "docker compose up (exit 125): port is already allocated"
type CommandError struct {
	// Command is the command that was executed.
	Command string

	// ExitCode is the process exit code (-1 if unknown).
	ExitCode int

	// Stderr contains the standard error output.
	Stderr string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message including stderr if available.
func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, e.Stderr)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

// Unwrap enables errors.Is() and errors.As() through the chain.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// HasStderr returns true if stderr output is available.
func (e *CommandError) HasStderr() bool {
	return e.Stderr != ""
}

// NewCommandError creates a CommandError with full context. Stderr is
// trimmed of surrounding whitespace.
func NewCommandError(cmd string, exitCode int, stderr string, wrapped error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr),
		Wrapped:  wrapped,
	}
}

// ExtractStderr walks the error chain looking for stderr context worth
// showing the operator. Returns the first stderr found, or "".
func ExtractStderr(err error) string {
	for err != nil {
		if cmdErr, ok := err.(*CommandError); ok && cmdErr.HasStderr() {
			return cmdErr.Stderr
		}
		if runErr, ok := err.(*compose.RunError); ok && runErr.Stderr != "" {
			return runErr.Stderr
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return ""
}
