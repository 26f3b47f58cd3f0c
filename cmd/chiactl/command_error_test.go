package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/colav/Chia/cmd/chiactl/internal/compose"
)

func TestCommandErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *CommandError
		want string
	}{
		{
			"with stderr",
			NewCommandError("docker compose up", 125, "port is already allocated", nil),
			"docker compose up (exit 125): port is already allocated",
		},
		{
			"wrapped only",
			NewCommandError("docker compose ps", 1, "", errors.New("exit status 1")),
			"docker compose ps (exit 1): exit status 1",
		},
		{
			"bare",
			NewCommandError("docker compose down", 130, "", nil),
			"docker compose down (exit 130)",
		},
		{
			"stderr trimmed",
			NewCommandError("docker info", 1, "  daemon not running\n", nil),
			"docker info (exit 1): daemon not running",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	inner := errors.New("exit status 125")
	err := NewCommandError("docker compose up", 125, "boom", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is() should reach the wrapped error")
	}
	var cmdErr *CommandError
	if !errors.As(error(err), &cmdErr) {
		t.Fatal("errors.As() should find the CommandError")
	}
	if cmdErr.Stderr != "boom" {
		t.Errorf("Stderr = %q, want boom", cmdErr.Stderr)
	}
}

func TestExtractStderr(t *testing.T) {
	t.Run("from CommandError", func(t *testing.T) {
		err := fmt.Errorf("starting ollama: %w",
			NewCommandError("docker compose up", 1, "no space left on device", nil))
		if got := ExtractStderr(err); got != "no space left on device" {
			t.Errorf("ExtractStderr() = %q", got)
		}
	})

	t.Run("from RunError", func(t *testing.T) {
		err := fmt.Errorf("stopping ollama: %w",
			&compose.RunError{Op: "down", ExitCode: 1, Stderr: "engine unreachable"})
		if got := ExtractStderr(err); got != "engine unreachable" {
			t.Errorf("ExtractStderr() = %q", got)
		}
	})

	t.Run("none available", func(t *testing.T) {
		if got := ExtractStderr(errors.New("plain")); got != "" {
			t.Errorf("ExtractStderr() = %q, want empty", got)
		}
	})

	t.Run("nil", func(t *testing.T) {
		if got := ExtractStderr(nil); got != "" {
			t.Errorf("ExtractStderr(nil) = %q, want empty", got)
		}
	})
}
