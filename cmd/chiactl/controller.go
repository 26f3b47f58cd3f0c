package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/colav/Chia/cmd/chiactl/config"
	"github.com/colav/Chia/cmd/chiactl/internal/compose"
	"github.com/colav/Chia/cmd/chiactl/internal/envfile"
	"github.com/colav/Chia/cmd/chiactl/internal/gpu"
	"github.com/colav/Chia/cmd/chiactl/internal/health"
	"github.com/colav/Chia/cmd/chiactl/internal/profile"
	"github.com/colav/Chia/cmd/chiactl/internal/prompt"
	"github.com/colav/Chia/pkg/logging"
)

var (
	// ErrHardwareUnsatisfied means the operator declined to proceed after
	// a failed hardware check, or a scripted run hit one.
	ErrHardwareUnsatisfied = errors.New("hardware prerequisites not satisfied")

	// ErrGuardDeclined means the operator did not approve a destructive
	// operation. Nothing was changed.
	ErrGuardDeclined = errors.New("operation not confirmed")

	// ErrProfileUnsupported means the service has no compose overlay for
	// the requested profile.
	ErrProfileUnsupported = errors.New("profile not supported by this service")

	// ErrNotReady means a readiness check executed and the service did
	// not answer it.
	ErrNotReady = errors.New("service not ready")
)

// ObservedState is a point-in-time deployment state derived from the
// engine. It is observed, never stored.
type ObservedState string

const (
	StateAbsent           ObservedState = "absent"
	StateStarting         ObservedState = "starting"
	StateRunningHealthy   ObservedState = "running-healthy"
	StateRunningUnhealthy ObservedState = "running-unhealthy"
	StateStopped          ObservedState = "stopped"
)

// StartReport summarizes a start operation for the command layer.
type StartReport struct {
	Profile profile.Profile

	// Hardware is the probe outcome, nil for services without a gpu
	// profile or when the probe was skipped.
	Hardware *gpu.Report

	// Health is the readiness outcome, nil when the service defines no
	// check.
	Health *health.Result

	// HealthTimedOut is set when containers launched but readiness never
	// arrived within the window. The deployment is left running; this is
	// a notice, not a failure.
	HealthTimedOut bool
}

// StatusReport summarizes the observed deployment state.
type StatusReport struct {
	State      ObservedState
	Profile    profile.Profile
	Containers []compose.ContainerState

	// Health is a single-shot check result, nil when no check is defined
	// or no containers are running.
	Health *health.Result
}

// ServiceController drives one managed service through its lifecycle.
//
// # Description
//
// The controller owns the ordering rules the individual components cannot
// see: configuration is checked before anything runs, the accelerator
// count is persisted before containers launch so they cannot observe a
// stale value, and a failed stop aborts a restart. It assumes a single
// operator; concurrent controllers racing on one service are the
// engine's problem, not ours.
type ServiceController struct {
	spec    config.ServiceSpec
	compose compose.Launcher
	env     *envfile.Store
	hw      hardwareProbe
	health  health.Prober
	confirm prompt.Confirmer
	log     *logging.Logger
}

// hardwareProbe is the controller's view of the gpu probe.
type hardwareProbe interface {
	Check(ctx context.Context, prof profile.Profile) *gpu.Report
}

// NewServiceController wires a controller for one service spec.
func NewServiceController(
	spec config.ServiceSpec,
	launcher compose.Launcher,
	hw hardwareProbe,
	prober health.Prober,
	confirm prompt.Confirmer,
	log *logging.Logger,
) *ServiceController {
	return &ServiceController{
		spec:    spec,
		compose: launcher,
		env:     envfile.NewStore(filepath.Join(spec.Dir, spec.EnvFile)),
		hw:      hw,
		health:  prober,
		confirm: confirm,
		log:     log.With("service", spec.Name),
	}
}

// selector returns the compose file layering for this service. Paths are
// relative to the launcher's working directory.
func (c *ServiceController) selector() profile.Selector {
	return profile.Selector{
		BaseFile:       c.spec.ComposeFile,
		GPUOverlayFile: c.spec.GPUOverlayFile,
	}
}

// acceleratorValue is what gets persisted for a profile: the count the
// service reads at startup.
func acceleratorValue(p profile.Profile) string {
	if p == profile.GPU {
		return "1"
	}
	return "0"
}

// Start brings the service up under the given profile.
//
// The order is deliberate: the env file must exist before anything else
// runs, the hardware check happens before any state changes, and the
// accelerator count is written before launch. A launch failure leaves
// whatever was running before untouched.
func (c *ServiceController) Start(ctx context.Context, p profile.Profile) (*StartReport, error) {
	if p == profile.GPU && !c.spec.SupportsGPU() {
		return nil, fmt.Errorf("%w: %s has no gpu overlay", ErrProfileUnsupported, c.spec.Name)
	}
	if !c.env.Exists() {
		return nil, fmt.Errorf("%s: %w (expected at %s; create it before starting)",
			c.spec.Name, envfile.ErrConfigMissing, c.env.Path())
	}

	report := &StartReport{Profile: p}

	if p == profile.GPU {
		hw := c.hw.Check(ctx, p)
		report.Hardware = hw
		if hw.Verdict != gpu.Satisfied {
			ok, err := c.confirm.Confirm(ctx, hardwareFailureMessage(hw))
			if err != nil {
				return report, err
			}
			if !ok {
				return report, fmt.Errorf("%s: %w", c.spec.Name, ErrHardwareUnsatisfied)
			}
			c.log.Warn("starting despite failed hardware check", "verdict", hw.Verdict.String())
		}
	}

	if c.spec.AcceleratorKey != "" {
		if err := c.env.Set(c.spec.AcceleratorKey, acceleratorValue(p)); err != nil {
			return report, fmt.Errorf("persisting %s: %w", c.spec.AcceleratorKey, err)
		}
	}

	files, err := c.selector().Resolve(p)
	if err != nil {
		return report, err
	}

	c.log.Info("starting service", "profile", p.String(), "files", strings.Join(files, ","))
	env := map[string]string{}
	if c.spec.AcceleratorKey != "" {
		env[c.spec.AcceleratorKey] = acceleratorValue(p)
	}
	if _, err := c.compose.Up(ctx, files, compose.UpOptions{Env: env}); err != nil {
		return report, fmt.Errorf("starting %s: %w", c.spec.Name, err)
	}

	if spec, ok := c.healthSpec(); ok {
		timeout, interval := c.healthWindow()
		res := c.health.WaitUntilReady(ctx, spec, timeout, interval)
		report.Health = res
		if res.State != health.Ready {
			report.HealthTimedOut = true
			c.log.Warn("service launched but readiness not confirmed",
				"attempts", res.Attempts, "last_error", res.LastErr)
		}
	}
	return report, nil
}

// Stop brings the service down, preserving volumes.
func (c *ServiceController) Stop(ctx context.Context) error {
	files := c.currentFiles()
	c.log.Info("stopping service")
	if _, err := c.compose.Down(ctx, files, compose.DownOptions{}); err != nil {
		return fmt.Errorf("stopping %s: %w", c.spec.Name, err)
	}
	return nil
}

// Restart is stop-then-start. If the stop fails the start never runs; a
// half-stopped deployment must not be layered over.
func (c *ServiceController) Restart(ctx context.Context, p profile.Profile) (*StartReport, error) {
	if err := c.Stop(ctx); err != nil {
		return nil, fmt.Errorf("restart aborted: %w", err)
	}
	return c.Start(ctx, p)
}

// Clean tears the service down including volumes. Destructive; gated on
// the confirmer.
func (c *ServiceController) Clean(ctx context.Context) error {
	msg := fmt.Sprintf("This removes all containers AND data volumes for %q. Data will be lost.", c.spec.Name)
	ok, err := c.confirm.Confirm(ctx, msg)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("clean %s: %w", c.spec.Name, ErrGuardDeclined)
	}
	c.log.Info("removing service and volumes")
	if _, err := c.compose.Down(ctx, c.currentFiles(), compose.DownOptions{RemoveVolumes: true}); err != nil {
		return fmt.Errorf("cleaning %s: %w", c.spec.Name, err)
	}
	return nil
}

// Status reports the observed deployment state. Read-only.
func (c *ServiceController) Status(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{Profile: c.currentProfile()}

	containers, err := c.compose.Ps(ctx, c.currentFiles())
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", c.spec.Name, err)
	}
	report.Containers = containers

	running := 0
	for _, ct := range containers {
		if strings.EqualFold(ct.State, "running") {
			running++
		}
	}
	switch {
	case len(containers) == 0:
		report.State = StateAbsent
		return report, nil
	case running == 0:
		report.State = StateStopped
		return report, nil
	}

	// Containers are up; readiness decides between starting, healthy and
	// unhealthy.
	spec, ok := c.healthSpec()
	if !ok {
		report.State = StateRunningHealthy
		return report, nil
	}
	res := c.health.Check(ctx, spec)
	report.Health = res
	switch res.State {
	case health.Ready:
		report.State = StateRunningHealthy
	case health.NotReady:
		report.State = StateRunningUnhealthy
	default:
		report.State = StateStarting
	}
	return report, nil
}

// Test runs the service's readiness check once and reports the result.
func (c *ServiceController) Test(ctx context.Context) (*health.Result, error) {
	spec, ok := c.healthSpec()
	if !ok {
		return nil, fmt.Errorf("%s defines no readiness check", c.spec.Name)
	}
	return c.health.Check(ctx, spec), nil
}

// CheckHardware runs the gpu prerequisite probe without touching any
// state.
func (c *ServiceController) CheckHardware(ctx context.Context) (*gpu.Report, error) {
	if !c.spec.SupportsGPU() {
		return nil, fmt.Errorf("%w: %s is cpu-only", ErrProfileUnsupported, c.spec.Name)
	}
	return c.hw.Check(ctx, profile.GPU), nil
}

// Logs streams service logs to w, optionally filtered to named compose
// services.
func (c *ServiceController) Logs(ctx context.Context, w io.Writer, follow bool, tail int, services ...string) error {
	opts := compose.LogsOptions{Follow: follow, Tail: tail, Services: services}
	return c.compose.Logs(ctx, c.currentFiles(), opts, w)
}

// ExecModel runs a model management command inside the service container.
// Only inference services advertise this.
func (c *ServiceController) ExecModel(ctx context.Context, args ...string) (*compose.Result, error) {
	if !c.spec.Models {
		return nil, fmt.Errorf("%s does not manage models", c.spec.Name)
	}
	command := append([]string{"ollama"}, args...)
	return c.compose.Exec(ctx, c.currentFiles(), c.spec.Primary(), command)
}

// currentProfile derives the active profile from the persisted
// accelerator count, defaulting to cpu when the env file or key is
// absent or malformed.
func (c *ServiceController) currentProfile() profile.Profile {
	if c.spec.AcceleratorKey == "" {
		return profile.CPU
	}
	raw, err := c.env.Get(c.spec.AcceleratorKey)
	if err != nil {
		return profile.CPU
	}
	p, err := profile.FromAcceleratorCount(raw)
	if err != nil {
		c.log.Warn("malformed accelerator count, assuming cpu", "value", raw)
		return profile.CPU
	}
	return p
}

// currentFiles resolves compose files for the persisted profile, so down
// and ps address the same layering the deployment was started with.
func (c *ServiceController) currentFiles() []string {
	files, err := c.selector().Resolve(c.currentProfile())
	if err != nil {
		return []string{c.spec.ComposeFile}
	}
	return files
}

func (c *ServiceController) healthSpec() (health.CheckSpec, bool) {
	h := c.spec.Health
	switch h.Type {
	case "http":
		return health.CheckSpec{Type: health.CheckHTTP, URL: h.URL}, true
	case "exec":
		return health.CheckSpec{
			Type:    health.CheckExec,
			Service: c.spec.Primary(),
			Command: h.Command,
		}, true
	default:
		return health.CheckSpec{}, false
	}
}

func (c *ServiceController) healthWindow() (timeout, interval time.Duration) {
	timeout = 120 * time.Second
	interval = 3 * time.Second
	if c.spec.Health.TimeoutSeconds > 0 {
		timeout = time.Duration(c.spec.Health.TimeoutSeconds) * time.Second
	}
	if c.spec.Health.IntervalSeconds > 0 {
		interval = time.Duration(c.spec.Health.IntervalSeconds) * time.Second
	}
	return timeout, interval
}

func hardwareFailureMessage(hw *gpu.Report) string {
	var b strings.Builder
	b.WriteString("GPU prerequisite check failed:\n")
	for _, layer := range hw.Layers {
		fmt.Fprintf(&b, "  %s: %s", layer.Name, layer.Verdict.String())
		if layer.Detail != "" {
			fmt.Fprintf(&b, " (%s)", layer.Detail)
		}
		b.WriteString("\n")
	}
	b.WriteString("Start anyway?")
	return b.String()
}
