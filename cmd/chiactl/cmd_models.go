package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colav/Chia/cmd/chiactl/config"
	"github.com/colav/Chia/cmd/chiactl/internal/compose"
	"github.com/colav/Chia/cmd/chiactl/internal/health"
	"github.com/colav/Chia/pkg/ux"
)

// newModelsCommand builds the model management subtree for inference
// services. Every verb runs inside the service container, so the service
// should be ready first; when it is not, the command warns and tries
// anyway rather than refusing outright.
func newModelsCommand(cfg config.ChiaConfig, spec config.ServiceSpec) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage models in the running inference service",
	}

	modelsCmd.AddCommand(&cobra.Command{
		Use:   "pull [name]",
		Short: "Download a model into the service",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelVerb(cfg, spec, "pull"),
	})
	modelsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List downloaded models",
		Args:  cobra.NoArgs,
		RunE:  runModelVerb(cfg, spec, "list"),
	})
	modelsCmd.AddCommand(&cobra.Command{
		Use:   "run [name]",
		Short: "Load a model and keep it warm",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelVerb(cfg, spec, "run"),
	})
	modelsCmd.AddCommand(&cobra.Command{
		Use:   "remove [name]",
		Short: "Delete a downloaded model",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelVerb(cfg, spec, "rm"),
	})

	return modelsCmd
}

func runModelVerb(cfg config.ChiaConfig, spec config.ServiceSpec, verb string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController(cfg, spec)
		if err != nil {
			return err
		}

		if res, err := ctrl.Test(cmd.Context()); err == nil && res.State != health.Ready {
			ux.Warning(fmt.Sprintf("%s is not ready; attempting anyway", spec.Name))
		}

		out, err := ctrl.ExecModel(cmd.Context(), append([]string{verb}, args...)...)
		if err != nil {
			var runErr *compose.RunError
			if errors.As(err, &runErr) {
				return NewCommandError("ollama "+verb, runErr.ExitCode, runErr.Stderr, err)
			}
			return err
		}
		if s := strings.TrimSpace(out.Stdout); s != "" {
			fmt.Println(s)
		}
		return nil
	}
}
