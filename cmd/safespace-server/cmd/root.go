package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/safespace/safespace-server/internal/config"
	"github.com/safespace/safespace-server/internal/service/server"
	"github.com/safespace/safespace-server/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// dataDir overrides the data directory for persisted state.
	dataDir string

	// rootCmd represents the base command for running the safespace server.
	rootCmd = &cobra.Command{
		Use:   "safespace-server [listen-address]",
		Short: "Run the campus-safety coordination server.",
		Long: `Starts the HTTP server that coordinates campus-safety alerts.

The server keeps the school catalog, checks join and admin codes, tracks which
students are currently signaling distress, records every alert transition in an
append-only ledger and streams live status to administrator dashboards.
Listen address can be provided as argument to override config (e.g., :9090).
State is persisted under the data directory and alerts survive restarts via
ledger replay.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				DataDir:       dataDir,
			}

			return server.Run(ctx, options)
		},
	}

	// initConfigCmd writes a configuration file populated with defaults, so
	// operators can start from a complete template instead of a blank file.
	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write a configuration file with default settings.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return config.Save(configPath, &config.Config{})
		},
	}
)

// Execute runs the safespace-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory for persisted state (overrides config)")

	rootCmd.AddCommand(initConfigCmd)
}
