package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colav/Chia/cmd/chiactl/config"
	"github.com/colav/Chia/cmd/chiactl/internal/compose"
	"github.com/colav/Chia/cmd/chiactl/internal/gpu"
	"github.com/colav/Chia/cmd/chiactl/internal/health"
	"github.com/colav/Chia/cmd/chiactl/internal/process"
	"github.com/colav/Chia/cmd/chiactl/internal/profile"
	"github.com/colav/Chia/cmd/chiactl/internal/prompt"
	"github.com/colav/Chia/pkg/logging"
	"github.com/colav/Chia/pkg/ux"
)

// newController assembles the controller behind every service command. It
// is a variable so command tests can substitute a controller built on mocks.
var newController = buildController

// buildController assembles the production wiring for one service.
func buildController(cfg config.ChiaConfig, spec config.ServiceSpec) (*ServiceController, error) {
	proc := process.NewDefaultManager()
	project := spec.Name
	if cfg.Compose.ProjectPrefix != "" {
		project = cfg.Compose.ProjectPrefix + "-" + spec.Name
	}
	launcher, err := compose.NewDefaultLauncher(compose.Config{
		Command:     cfg.Compose.Command,
		WorkDir:     spec.Dir,
		ProjectName: project,
	}, proc)
	if err != nil {
		return nil, err
	}

	log := logging.Default()
	probe := gpu.NewProbe(gpu.Config{Runtime: containerRuntime(cfg.Compose.Command)}, proc)
	prober := health.NewDefaultProber(launcher, []string{spec.ComposeFile}, log.Slog())

	return NewServiceController(spec, launcher, probe, prober, newConfirmer(), log), nil
}

// newConfirmer picks the guard policy from the persistent flags: --yes
// pre-approves, --non-interactive always declines, and the default asks
// on the terminal.
func newConfirmer() prompt.Confirmer {
	switch {
	case flagYes:
		return &prompt.StaticConfirmer{Approve: true, Out: os.Stdout}
	case flagNonInteractive:
		return &prompt.StaticConfirmer{Approve: false, Out: os.Stdout}
	default:
		return prompt.NewInteractiveConfirmer()
	}
}

// containerRuntime derives the runtime binary used for hardware probes
// from the compose invocation.
func containerRuntime(command []string) string {
	if len(command) == 0 {
		return "docker"
	}
	if command[0] == "podman-compose" {
		return "podman"
	}
	return command[0]
}

func runStart(cfg config.ChiaConfig, spec config.ServiceSpec, gpuProfile, restart bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController(cfg, spec)
		if err != nil {
			return err
		}
		p := profile.CPU
		if gpuProfile {
			p = profile.GPU
		}

		var report *StartReport
		if restart {
			ux.Title(fmt.Sprintf("Restarting %s (%s profile)", spec.Name, p))
			report, err = ctrl.Restart(cmd.Context(), p)
		} else {
			ux.Title(fmt.Sprintf("Starting %s (%s profile)", spec.Name, p))
			report, err = ctrl.Start(cmd.Context(), p)
		}
		if report != nil && report.Hardware != nil && report.Hardware.Warning != "" {
			ux.Warning(report.Hardware.Warning)
		}
		if err != nil {
			return err
		}

		if report.HealthTimedOut {
			ux.Warning(fmt.Sprintf("%s launched but is not ready yet (checked %d times: %s)",
				spec.Name, report.Health.Attempts, report.Health.LastErr))
			ux.Info(fmt.Sprintf("It may still be warming up; run 'chiactl %s status' to watch it.", spec.Name))
			return nil
		}
		ux.Success(fmt.Sprintf("%s is up on the %s profile", spec.Name, p))
		return nil
	}
}

func runStop(cfg config.ChiaConfig, spec config.ServiceSpec) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController(cfg, spec)
		if err != nil {
			return err
		}
		if err := ctrl.Stop(cmd.Context()); err != nil {
			return err
		}
		ux.Success(fmt.Sprintf("%s stopped (data volumes preserved)", spec.Name))
		return nil
	}
}

func runStatus(cfg config.ChiaConfig, spec config.ServiceSpec) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController(cfg, spec)
		if err != nil {
			return err
		}
		report, err := ctrl.Status(cmd.Context())
		if err != nil {
			return err
		}

		ux.Title(fmt.Sprintf("%s status", spec.Name))
		ux.KeyValue("state", string(report.State))
		ux.KeyValue("profile", report.Profile.String())
		for _, ct := range report.Containers {
			icon := ux.IconError
			if strings.EqualFold(ct.State, "running") {
				icon = ux.IconSuccess
			}
			ux.StatusRow(ct.Name, icon, ct.State)
		}
		if report.Health != nil {
			ux.KeyValue("readiness", report.Health.State.String())
			if report.Health.Detail != "" {
				ux.Muted(ux.Indent(report.Health.Detail, 2))
			}
		}
		return nil
	}
}

func runLogs(cfg config.ChiaConfig, spec config.ServiceSpec) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController(cfg, spec)
		if err != nil {
			return err
		}
		return ctrl.Logs(cmd.Context(), os.Stdout, flagFollow, flagTail, args...)
	}
}

func runTest(cfg config.ChiaConfig, spec config.ServiceSpec) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController(cfg, spec)
		if err != nil {
			return err
		}
		res, err := ctrl.Test(cmd.Context())
		if err != nil {
			return err
		}
		if res.State != health.Ready {
			return fmt.Errorf("%s: %w: %s", spec.Name, ErrNotReady, res.LastErr)
		}
		ux.Success(fmt.Sprintf("%s answered its readiness check", spec.Name))
		if res.Detail != "" {
			ux.Muted(ux.Indent(res.Detail, 2))
		}
		if spec.Models {
			out, err := ctrl.ExecModel(cmd.Context(), "list")
			if err != nil {
				return fmt.Errorf("%s is up but model listing failed: %w", spec.Name, err)
			}
			ux.Info("models available:")
			ux.Muted(ux.Indent(strings.TrimSpace(out.Stdout), 2))
		}
		return nil
	}
}

func runClean(cfg config.ChiaConfig, spec config.ServiceSpec) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController(cfg, spec)
		if err != nil {
			return err
		}
		ux.WarningBox("Destructive operation",
			fmt.Sprintf("%s will be removed together with its data volumes.\nThis cannot be undone.", spec.Name))
		if err := ctrl.Clean(cmd.Context()); err != nil {
			return err
		}
		ux.Success(fmt.Sprintf("%s removed, including data volumes", spec.Name))
		return nil
	}
}

func runCheckHardware(cfg config.ChiaConfig, spec config.ServiceSpec) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController(cfg, spec)
		if err != nil {
			return err
		}
		report, err := ctrl.CheckHardware(cmd.Context())
		if err != nil {
			return err
		}

		ux.Title("GPU prerequisite checks")
		for _, layer := range report.Layers {
			icon := ux.IconError
			switch layer.Verdict {
			case gpu.Satisfied:
				icon = ux.IconSuccess
			case gpu.Unknown:
				icon = ux.IconPending
			}
			ux.StatusRow(layer.Name, icon, layer.Detail)
		}
		if report.Warning != "" {
			ux.Warning(report.Warning)
		}
		if report.Verdict != gpu.Satisfied {
			return fmt.Errorf("%s: %w", spec.Name, ErrHardwareUnsatisfied)
		}
		ux.Box(spec.Name, fmt.Sprintf("all gpu prerequisite checks passed (%d layers)", len(report.Layers)))
		return nil
	}
}
