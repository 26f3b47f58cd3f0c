// Package compose drives the container orchestration engine for one managed
// service. The launcher treats compose files as opaque: it only controls
// which files are passed and in what order, and it surfaces the engine's
// own diagnostics unmodified.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/colav/Chia/cmd/chiactl/internal/process"
)

var (
	// ErrInvalidConfig is returned when the launcher configuration is
	// unusable.
	ErrInvalidConfig = errors.New("invalid launcher configuration")

	// ErrInvalidEnvVar is returned when an environment variable key would
	// not survive injection into the engine. This prevents config
	// injection through malformed names.
	ErrInvalidEnvVar = errors.New("invalid environment variable")

	// ErrNoComposeFiles is returned when an operation is attempted with an
	// empty descriptor list.
	ErrNoComposeFiles = errors.New("no compose files resolved")
)

// envVarKeyRegex validates environment variable key names: a letter or
// underscore first, then alphanumerics and underscores.
var envVarKeyRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RunError wraps an engine invocation failure with its raw stderr. The
// stderr is never swallowed; the operator sees exactly what the engine
// reported.
type RunError struct {
	// Op is the operation that failed, e.g. "up", "down", "exec".
	Op string

	// ExitCode is the engine's exit code (-1 if it never started).
	ExitCode int

	// Stderr is the engine's standard error output, trimmed.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error returns the formatted failure including stderr when present.
func (e *RunError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("compose %s (exit %d): %s", e.Op, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("compose %s (exit %d): %v", e.Op, e.ExitCode, e.Err)
}

// Unwrap supports errors.Is and errors.As through the chain.
func (e *RunError) Unwrap() error {
	return e.Err
}

// Config configures a launcher for one managed service.
type Config struct {
	// Command is the orchestration engine invocation prefix,
	// e.g. ["docker", "compose"]. Default: docker compose.
	Command []string

	// WorkDir is the directory containing the service's compose files.
	// Required.
	WorkDir string

	// ProjectName scopes containers under one compose project.
	ProjectName string

	// DefaultTimeout bounds synchronous operations when the caller's
	// context has no deadline of its own. Default: 10 minutes (first-run
	// image pulls are slow).
	DefaultTimeout time.Duration
}

// UpOptions configures Up.
type UpOptions struct {
	// Env contains environment variables injected into the engine
	// invocation (compose interpolation). Keys are validated.
	Env map[string]string

	// Build forces an image rebuild. Maps to --build.
	Build bool
}

// DownOptions configures Down.
type DownOptions struct {
	// RemoveVolumes also deletes named volumes. This is the only path
	// that can destroy persisted service data and therefore defaults to
	// false. Maps to -v.
	RemoveVolumes bool
}

// LogsOptions configures Logs.
type LogsOptions struct {
	// Follow streams continuously until the context is cancelled.
	Follow bool

	// Services limits output to the named services.
	Services []string

	// Tail limits output to the last N lines per container (0 = all).
	Tail int
}

// Result is the outcome of a synchronous engine invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// ContainerState is one row from the engine's ps output.
type ContainerState struct {
	// Name is the container name.
	Name string

	// Service is the compose service the container belongs to.
	Service string

	// State is the engine's container state (running, exited, ...).
	State string

	// Health is the engine-level health value when a healthcheck is
	// defined; empty otherwise.
	Health string
}

// Launcher issues lifecycle commands against an ordered compose-file list.
//
// Descriptor ordering is a correctness requirement: later files override
// matching keys in earlier ones, so the launcher passes them to the engine
// in exactly the order it is given.
type Launcher interface {
	// Up starts the service from the ordered file list (detached).
	Up(ctx context.Context, files []string, opts UpOptions) (*Result, error)

	// Down stops the service. With opts.RemoveVolumes it also deletes
	// persisted data; callers gate that behind operator confirmation.
	Down(ctx context.Context, files []string, opts DownOptions) (*Result, error)

	// Ps reports current container state for the project.
	Ps(ctx context.Context, files []string) ([]ContainerState, error)

	// Logs streams container logs to w until completion or cancellation.
	Logs(ctx context.Context, files []string, opts LogsOptions, w io.Writer) error

	// Exec runs a command inside a running service container. Callers
	// must not exec before the service reported ready, or must accept
	// best-effort failure.
	Exec(ctx context.Context, files []string, service string, command []string) (*Result, error)
}

// DefaultLauncher implements Launcher on top of process.Manager.
type DefaultLauncher struct {
	cfg  Config
	proc process.Manager
}

// NewDefaultLauncher creates a launcher for one service directory.
func NewDefaultLauncher(cfg Config, proc process.Manager) (*DefaultLauncher, error) {
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("%w: WorkDir is required", ErrInvalidConfig)
	}
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"docker", "compose"}
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 10 * time.Minute
	}
	return &DefaultLauncher{cfg: cfg, proc: proc}, nil
}

// Up starts the service with the resolved compose files, in order.
func (l *DefaultLauncher) Up(ctx context.Context, files []string, opts UpOptions) (*Result, error) {
	env, err := flattenEnv(opts.Env)
	if err != nil {
		return nil, err
	}
	args := l.baseArgs(files)
	if args == nil {
		return nil, ErrNoComposeFiles
	}
	args = append(args, "up", "-d")
	if opts.Build {
		args = append(args, "--build")
	}
	return l.run(ctx, "up", env, args)
}

// Down stops the service. opts.RemoveVolumes is the destructive path.
func (l *DefaultLauncher) Down(ctx context.Context, files []string, opts DownOptions) (*Result, error) {
	args := l.baseArgs(files)
	if args == nil {
		return nil, ErrNoComposeFiles
	}
	args = append(args, "down")
	if opts.RemoveVolumes {
		args = append(args, "-v")
	}
	return l.run(ctx, "down", nil, args)
}

// Ps reports container state parsed from the engine's JSON output.
func (l *DefaultLauncher) Ps(ctx context.Context, files []string) ([]ContainerState, error) {
	args := l.baseArgs(files)
	if args == nil {
		return nil, ErrNoComposeFiles
	}
	args = append(args, "ps", "-a", "--format", "json")
	res, err := l.run(ctx, "ps", nil, args)
	if err != nil {
		return nil, err
	}
	return parsePsOutput(res.Stdout)
}

// Logs streams logs to w. Cancellation stops the stream, not the service.
func (l *DefaultLauncher) Logs(ctx context.Context, files []string, opts LogsOptions, w io.Writer) error {
	args := l.baseArgs(files)
	if args == nil {
		return ErrNoComposeFiles
	}
	args = append(args, "logs")
	if opts.Follow {
		args = append(args, "-f")
	}
	if opts.Tail > 0 {
		args = append(args, "--tail", fmt.Sprintf("%d", opts.Tail))
	}
	args = append(args, opts.Services...)

	name, prefix := l.cfg.Command[0], l.cfg.Command[1:]
	return l.proc.RunStreaming(ctx, l.cfg.WorkDir, w, name, append(prefix, args...)...)
}

// Exec runs command inside the named service container.
func (l *DefaultLauncher) Exec(ctx context.Context, files []string, service string, command []string) (*Result, error) {
	if service == "" || len(command) == 0 {
		return nil, fmt.Errorf("%w: exec needs a service and a command", ErrInvalidConfig)
	}
	args := l.baseArgs(files)
	if args == nil {
		return nil, ErrNoComposeFiles
	}
	args = append(args, "exec", "-T", service)
	args = append(args, command...)
	return l.run(ctx, "exec", nil, args)
}

// baseArgs builds the -f file list plus project scoping. Returns nil for an
// empty file list so callers can reject it.
func (l *DefaultLauncher) baseArgs(files []string) []string {
	if len(files) == 0 {
		return nil
	}
	var args []string
	for _, f := range files {
		args = append(args, "-f", f)
	}
	if l.cfg.ProjectName != "" {
		args = append(args, "-p", l.cfg.ProjectName)
	}
	return args
}

// run executes one engine invocation and wraps failures in RunError.
func (l *DefaultLauncher) run(ctx context.Context, op string, env []string, args []string) (*Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.DefaultTimeout)
		defer cancel()
	}

	name, prefix := l.cfg.Command[0], l.cfg.Command[1:]
	res, err := l.proc.Run(ctx, l.cfg.WorkDir, env, name, append(prefix, args...)...)
	out := &Result{}
	if res != nil {
		out = &Result{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode, Duration: res.Duration}
	}
	if err != nil {
		return out, &RunError{Op: op, ExitCode: out.ExitCode, Stderr: strings.TrimSpace(out.Stderr), Err: err}
	}
	return out, nil
}

// flattenEnv validates and flattens an env map into KEY=VALUE strings with
// deterministic ordering.
func flattenEnv(env map[string]string) ([]string, error) {
	if len(env) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		if !envVarKeyRegex.MatchString(k) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEnvVar, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out, nil
}

// parsePsOutput parses the engine's ps --format json output. Both the
// one-object-per-line form and the single-array form are accepted since
// engines differ between versions.
func parsePsOutput(out string) ([]ContainerState, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return []ContainerState{}, nil
	}

	type psRow struct {
		Name    string `json:"Name"`
		Service string `json:"Service"`
		State   string `json:"State"`
		Health  string `json:"Health"`
	}

	var rows []psRow
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &rows); err != nil {
			return nil, fmt.Errorf("parsing ps output: %w", err)
		}
	} else {
		for _, line := range strings.Split(trimmed, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var row psRow
			if err := json.Unmarshal([]byte(line), &row); err != nil {
				return nil, fmt.Errorf("parsing ps output line: %w", err)
			}
			rows = append(rows, row)
		}
	}

	states := make([]ContainerState, 0, len(rows))
	for _, r := range rows {
		states = append(states, ContainerState{
			Name:    r.Name,
			Service: r.Service,
			State:   r.State,
			Health:  r.Health,
		})
	}
	return states, nil
}

var _ Launcher = (*DefaultLauncher)(nil)
