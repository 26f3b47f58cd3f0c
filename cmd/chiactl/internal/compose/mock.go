package compose

import (
	"context"
	"io"
)

// MockCall records one invocation on the MockLauncher.
type MockCall struct {
	Method  string
	Files   []string
	Service string
	Command []string
	Up      UpOptions
	Down    DownOptions
}

// MockLauncher is a test double for Launcher. Configure behavior via the
// function fields; unconfigured methods panic.
type MockLauncher struct {
	UpFunc   func(ctx context.Context, files []string, opts UpOptions) (*Result, error)
	DownFunc func(ctx context.Context, files []string, opts DownOptions) (*Result, error)
	PsFunc   func(ctx context.Context, files []string) ([]ContainerState, error)
	LogsFunc func(ctx context.Context, files []string, opts LogsOptions, w io.Writer) error
	ExecFunc func(ctx context.Context, files []string, service string, command []string) (*Result, error)

	// Calls records every invocation in order.
	Calls []MockCall
}

// Up delegates to UpFunc.
func (m *MockLauncher) Up(ctx context.Context, files []string, opts UpOptions) (*Result, error) {
	m.Calls = append(m.Calls, MockCall{Method: "Up", Files: files, Up: opts})
	if m.UpFunc == nil {
		panic("MockLauncher.Up called but UpFunc not set")
	}
	return m.UpFunc(ctx, files, opts)
}

// Down delegates to DownFunc.
func (m *MockLauncher) Down(ctx context.Context, files []string, opts DownOptions) (*Result, error) {
	m.Calls = append(m.Calls, MockCall{Method: "Down", Files: files, Down: opts})
	if m.DownFunc == nil {
		panic("MockLauncher.Down called but DownFunc not set")
	}
	return m.DownFunc(ctx, files, opts)
}

// Ps delegates to PsFunc.
func (m *MockLauncher) Ps(ctx context.Context, files []string) ([]ContainerState, error) {
	m.Calls = append(m.Calls, MockCall{Method: "Ps", Files: files})
	if m.PsFunc == nil {
		panic("MockLauncher.Ps called but PsFunc not set")
	}
	return m.PsFunc(ctx, files)
}

// Logs delegates to LogsFunc.
func (m *MockLauncher) Logs(ctx context.Context, files []string, opts LogsOptions, w io.Writer) error {
	m.Calls = append(m.Calls, MockCall{Method: "Logs", Files: files})
	if m.LogsFunc == nil {
		panic("MockLauncher.Logs called but LogsFunc not set")
	}
	return m.LogsFunc(ctx, files, opts, w)
}

// Exec delegates to ExecFunc.
func (m *MockLauncher) Exec(ctx context.Context, files []string, service string, command []string) (*Result, error) {
	m.Calls = append(m.Calls, MockCall{Method: "Exec", Files: files, Service: service, Command: command})
	if m.ExecFunc == nil {
		panic("MockLauncher.Exec called but ExecFunc not set")
	}
	return m.ExecFunc(ctx, files, service, command)
}

// Reset clears recorded calls.
func (m *MockLauncher) Reset() {
	m.Calls = nil
}

var _ Launcher = (*MockLauncher)(nil)
