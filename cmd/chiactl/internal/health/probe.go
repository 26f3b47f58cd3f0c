// Package health polls service-defined readiness checks with bounded
// retries. It is the only component in the controller that performs
// repeated polling and therefore the place where operator cancellation is
// honored: cancelling aborts the waiting, never the deployment underneath.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/colav/Chia/cmd/chiactl/internal/compose"
)

// State is the tri-state outcome of a readiness check.
type State int

const (
	// Unknown means the check itself could not be executed (e.g. the
	// exec target is unreachable or the check spec is unusable).
	Unknown State = iota

	// Ready means the service answered its readiness check.
	Ready

	// NotReady means the check executed and the service is not ready.
	NotReady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case NotReady:
		return "not-ready"
	default:
		return "unknown"
	}
}

// CheckType selects the readiness mechanism.
type CheckType string

const (
	// CheckHTTP polls an HTTP endpoint and expects a 2xx answer.
	CheckHTTP CheckType = "http"

	// CheckExec runs a command inside the service container and expects
	// exit 0.
	CheckExec CheckType = "exec"
)

// CheckSpec is a service's readiness check definition. The shape is
// configurable per managed service rather than hardcoded.
type CheckSpec struct {
	// Type selects the mechanism.
	Type CheckType

	// URL is the endpoint for http checks.
	URL string

	// Service is the compose service name for exec checks.
	Service string

	// Command is the in-container command for exec checks.
	Command []string
}

// Result is one readiness observation. Transient; recomputed on every
// probe, never persisted.
type Result struct {
	// State is the observed readiness.
	State State

	// CheckedAt is when the observation completed.
	CheckedAt time.Time

	// Attempts is how many polls were made (1 for single-shot checks).
	Attempts int

	// Detail is an optional diagnostic payload from the service, e.g.
	// the model or node names its endpoint reported.
	Detail string

	// LastErr is the last observed error text, preserved for reporting.
	LastErr string
}

// Prober checks and waits on a service's readiness.
type Prober interface {
	// Check performs a single-shot readiness observation.
	Check(ctx context.Context, spec CheckSpec) *Result

	// WaitUntilReady polls spec every interval until it reports ready or
	// timeout elapses. Cancellation aborts the wait only.
	WaitUntilReady(ctx context.Context, spec CheckSpec, timeout, interval time.Duration) *Result
}

// DefaultProber implements Prober over HTTP and container exec.
type DefaultProber struct {
	launcher compose.Launcher
	files    []string
	http     *http.Client
	log      *slog.Logger
}

// NewDefaultProber creates a prober bound to one managed service: exec
// checks run through launcher against the given compose files.
//
// The HTTP client retries transient transport errors within a single poll
// attempt; the bounded outer polling loop stays in WaitUntilReady.
func NewDefaultProber(launcher compose.Launcher, files []string, log *slog.Logger) *DefaultProber {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 1
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 1 * time.Second
	retryClient.Logger = nil // suppress default logging
	retryClient.HTTPClient.Timeout = 5 * time.Second

	if log == nil {
		log = slog.Default()
	}
	return &DefaultProber{
		launcher: launcher,
		files:    files,
		http:     retryClient.StandardClient(),
		log:      log,
	}
}

// Check performs one readiness observation.
func (p *DefaultProber) Check(ctx context.Context, spec CheckSpec) *Result {
	res := &Result{Attempts: 1}
	switch spec.Type {
	case CheckHTTP:
		p.checkHTTP(ctx, spec, res)
	case CheckExec:
		p.checkExec(ctx, spec, res)
	default:
		res.State = Unknown
		res.LastErr = fmt.Sprintf("unknown check type %q", spec.Type)
	}
	res.CheckedAt = time.Now()
	return res
}

// WaitUntilReady polls until ready or timeout. The number of attempts is
// bounded by timeout/interval; the last observed error is preserved in the
// returned result. A cancelled context stops the waiting immediately and
// reports the service as not ready without touching the deployment.
func (p *DefaultProber) WaitUntilReady(ctx context.Context, spec CheckSpec, timeout, interval time.Duration) *Result {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := time.Now().Add(timeout)
	attempts := 0
	var last *Result

	for {
		observed := p.Check(ctx, spec)
		attempts++
		last = observed
		if observed.State == Ready {
			observed.Attempts = attempts
			return observed
		}
		p.log.Debug("service not ready yet",
			"attempt", attempts, "state", observed.State.String(), "err", observed.LastErr)

		if time.Now().After(deadline) || ctx.Err() != nil {
			break
		}
		if !sleepWithContext(ctx, interval) {
			break
		}
	}

	out := &Result{
		State:     NotReady,
		CheckedAt: time.Now(),
		Attempts:  attempts,
		Detail:    last.Detail,
		LastErr:   last.LastErr,
	}
	if ctx.Err() != nil && out.LastErr == "" {
		out.LastErr = ctx.Err().Error()
	}
	// A check that never executed at all stays unknown rather than
	// claiming the service failed.
	if last.State == Unknown {
		out.State = Unknown
	}
	return out
}

// checkHTTP polls the endpoint and expects a 2xx status. The response body
// (truncated) is kept as the diagnostic payload.
func (p *DefaultProber) checkHTTP(ctx context.Context, spec CheckSpec, res *Result) {
	if spec.URL == "" {
		res.State = Unknown
		res.LastErr = "http check has no URL"
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		res.State = Unknown
		res.LastErr = err.Error()
		return
	}

	resp, err := p.http.Do(req)
	if err != nil {
		// Connection refused while containers boot is the normal
		// not-ready signal, not an infrastructure failure.
		res.State = NotReady
		res.LastErr = err.Error()
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	res.Detail = strings.TrimSpace(string(body))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.State = Ready
		return
	}
	res.State = NotReady
	res.LastErr = fmt.Sprintf("readiness endpoint returned %s", resp.Status)
}

// checkExec runs the in-container command and expects exit 0. An engine
// that cannot reach the container at all yields Unknown; a command that ran
// and failed yields NotReady.
func (p *DefaultProber) checkExec(ctx context.Context, spec CheckSpec, res *Result) {
	if spec.Service == "" || len(spec.Command) == 0 {
		res.State = Unknown
		res.LastErr = "exec check needs a service and a command"
		return
	}

	out, err := p.launcher.Exec(ctx, p.files, spec.Service, spec.Command)
	if err != nil {
		var runErr *compose.RunError
		if errors.As(err, &runErr) && runErr.ExitCode > 0 {
			res.State = NotReady
			res.LastErr = runErr.Error()
			return
		}
		res.State = Unknown
		res.LastErr = err.Error()
		return
	}
	res.State = Ready
	res.Detail = strings.TrimSpace(out.Stdout)
}

// sleepWithContext sleeps for d unless the context is cancelled first.
// Returns false on cancellation so pollers can stop immediately.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

var _ Prober = (*DefaultProber)(nil)
