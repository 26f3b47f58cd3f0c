package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/colav/Chia/cmd/chiactl/config"
	"github.com/colav/Chia/pkg/logging"
	"github.com/colav/Chia/pkg/ux"
)

var (
	flagYes            bool
	flagNonInteractive bool
	flagPlain          bool
	flagLogLevel       string
	flagLogDir         string
	flagFollow         bool
	flagTail           int

	rootCmd = &cobra.Command{
		Use:   "chiactl",
		Short: "A cli to manage the Chia platform services on your machine",
		Long: `chiactl deploys and manages the Chia platform services
(model inference, search indexing, workflow scheduling) as container
stacks, switching each between cpu and gpu hardware profiles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ux.SetPlain(flagPlain)
			logging.SetDefault(logging.New(logging.Config{
				Level:  logging.ParseLevel(flagLogLevel),
				LogDir: flagLogDir,
			}))
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagYes, "yes", false,
		"Assume yes for destructive confirmations (scripting)")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false,
		"Never prompt; abort instead of asking (scripting)")
	rootCmd.PersistentFlags().BoolVar(&flagPlain, "plain", false,
		"Plain machine-friendly output: no colors or boxes")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "",
		"Also write JSON logs to a daily file in this directory")
}

// buildServiceCommands registers one command per configured service, each
// with the full lifecycle verb set. Called from main after the services
// manifest is loaded.
func buildServiceCommands(cfg config.ChiaConfig) {
	for _, svc := range cfg.Services {
		spec := svc // per-iteration copy captured by the closures below
		serviceCmd := &cobra.Command{
			Use:   spec.Name,
			Short: fmt.Sprintf("Manage the %s service", spec.Name),
		}

		serviceCmd.AddCommand(&cobra.Command{
			Use:   "start-cpu",
			Short: "Start on the cpu profile",
			Args:  cobra.NoArgs,
			RunE:  runStart(cfg, spec, false, false),
		})
		serviceCmd.AddCommand(&cobra.Command{
			Use:   "stop",
			Short: "Stop the service, preserving data volumes",
			Args:  cobra.NoArgs,
			RunE:  runStop(cfg, spec),
		})
		serviceCmd.AddCommand(&cobra.Command{
			Use:   "restart-cpu",
			Short: "Stop and start on the cpu profile",
			Args:  cobra.NoArgs,
			RunE:  runStart(cfg, spec, false, true),
		})
		serviceCmd.AddCommand(&cobra.Command{
			Use:   "status",
			Short: "Show the observed deployment state",
			Args:  cobra.NoArgs,
			RunE:  runStatus(cfg, spec),
		})
		logsCmd := &cobra.Command{
			Use:   "logs [container]",
			Short: "Stream logs, optionally from one container",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runLogs(cfg, spec),
		}
		logsCmd.Flags().BoolVarP(&flagFollow, "follow", "f", false, "Follow log output")
		logsCmd.Flags().IntVar(&flagTail, "tail", 0, "Lines of recent output per container (0 = all)")
		serviceCmd.AddCommand(logsCmd)
		serviceCmd.AddCommand(&cobra.Command{
			Use:   "test",
			Short: "Run the readiness check once",
			Args:  cobra.NoArgs,
			RunE:  runTest(cfg, spec),
		})
		serviceCmd.AddCommand(&cobra.Command{
			Use:   "clean",
			Short: "DANGER: remove containers AND data volumes",
			Args:  cobra.NoArgs,
			RunE:  runClean(cfg, spec),
		})

		if spec.SupportsGPU() {
			serviceCmd.AddCommand(&cobra.Command{
				Use:   "start-gpu",
				Short: "Start on the gpu profile (runs hardware checks first)",
				Args:  cobra.NoArgs,
				RunE:  runStart(cfg, spec, true, false),
			})
			serviceCmd.AddCommand(&cobra.Command{
				Use:   "restart-gpu",
				Short: "Stop and start on the gpu profile",
				Args:  cobra.NoArgs,
				RunE:  runStart(cfg, spec, true, true),
			})
			serviceCmd.AddCommand(&cobra.Command{
				Use:   "check-hardware",
				Short: "Run the gpu prerequisite checks without changing anything",
				Args:  cobra.NoArgs,
				RunE:  runCheckHardware(cfg, spec),
			})
		}

		if spec.Models {
			serviceCmd.AddCommand(newModelsCommand(cfg, spec))
		}

		rootCmd.AddCommand(serviceCmd)
	}
}
