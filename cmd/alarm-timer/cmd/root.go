package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-timer/internal/config"
	"github.com/oshokin/alarm-timer/internal/logger"
	"github.com/oshokin/alarm-timer/internal/service/runner"
	"github.com/oshokin/alarm-timer/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// runFor overrides the configured run duration.
	runFor time.Duration

	// rootCmd runs a stopwatch with the configured alarms.
	rootCmd = &cobra.Command{
		Use:   "alarm-timer",
		Short: "Run a pausable stopwatch that fires configured alarms.",
		Long: `Runs a stopwatch counting forward or in reverse from a start value and logs
every configured alarm when it fires.

Threshold alarms fire once when the value passes their threshold in the
stopwatch direction. Interval alarms ("every") fire whenever the value crosses
a multiple of their interval. Set metrics_address in the configuration to
expose Prometheus metrics at /metrics.

The run ends on SIGINT/SIGTERM or after --run-for.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return runner.Run(ctx, &runner.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
				RunFor:     runFor,
			})
		},
	}
)

// Execute runs the alarm-timer CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	//nolint:errcheck // Sync fails on terminals and there is nowhere left to report it.
	logger.Logger().Sync()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "override log level (debug, info, warn, error)")
	rootCmd.Flags().DurationVarP(&runFor, "run-for", "r", 0, "stop after this much wall-clock time")
}
