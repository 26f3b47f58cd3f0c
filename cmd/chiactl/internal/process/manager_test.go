package process

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	m := NewDefaultManager()

	res, err := m.Run(context.Background(), "", nil, "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "out")
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "err")
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	m := NewDefaultManager()

	res, err := m.Run(context.Background(), "", nil, "sh", "-c", "echo broken >&2; exit 3")
	if err == nil {
		t.Fatal("Run() expected error for non-zero exit")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q should carry stderr", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	m := NewDefaultManager()

	res, err := m.Run(context.Background(), "", nil, "definitely-not-a-command-xyz")
	if err == nil {
		t.Fatal("Run() expected error for missing binary")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 when the process never started", res.ExitCode)
	}
}

func TestRunExtraEnv(t *testing.T) {
	m := NewDefaultManager()

	res, err := m.Run(context.Background(), "", []string{"PROBE_VALUE=42"}, "sh", "-c", "echo $PROBE_VALUE")
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "42" {
		t.Errorf("Stdout = %q, want injected env value", res.Stdout)
	}
}

func TestRunWorkingDir(t *testing.T) {
	m := NewDefaultManager()
	dir := t.TempDir()

	res, err := m.Run(context.Background(), dir, nil, "pwd")
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != dir {
		t.Errorf("pwd = %q, want %q", strings.TrimSpace(res.Stdout), dir)
	}
}

func TestRunContextCancellation(t *testing.T) {
	m := NewDefaultManager()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Run(ctx, "", nil, "sleep", "10")
	if err != context.DeadlineExceeded {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRunStreaming(t *testing.T) {
	m := NewDefaultManager()
	var sb strings.Builder

	if err := m.RunStreaming(context.Background(), "", &sb, "sh", "-c", "echo line1; echo line2"); err != nil {
		t.Fatalf("RunStreaming() unexpected error: %v", err)
	}
	if !strings.Contains(sb.String(), "line1") || !strings.Contains(sb.String(), "line2") {
		t.Errorf("streamed output missing lines: %q", sb.String())
	}
}

func TestMockManagerRecordsCalls(t *testing.T) {
	mock := &MockManager{
		RunFunc: func(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (*Result, error) {
			return &Result{Stdout: "ok"}, nil
		},
	}

	_, _ = mock.Run(context.Background(), "/srv", nil, "docker", "compose", "ps")

	if len(mock.Calls) != 1 {
		t.Fatalf("Calls = %d, want 1", len(mock.Calls))
	}
	if mock.Calls[0].Name != "docker" {
		t.Errorf("recorded name = %q, want docker", mock.Calls[0].Name)
	}
}
