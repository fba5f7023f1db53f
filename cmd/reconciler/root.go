package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"revrecon/internal/config"
	"revrecon/internal/logging"
)

// rootOptions holds global flags shared by all commands.
type rootOptions struct {
	ConfigPath string
	DBPath     string
	JSON       bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "reconciler",
		Short: "Monthly revenue reconciliation engine",
		Long: "Reconciles client-reported job records against the internal ledger:\n" +
			"matches records deterministically and fuzzily, quantifies variances,\n" +
			"classifies root causes, and routes exceptions to auto-resolution or review.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (defaults apply when omitted)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the run database (overrides config)")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "emit JSON instead of tables")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newQueueCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	cmd.AddCommand(newConfigCommand())

	return cmd
}

// loadConfig resolves the effective configuration for a command invocation.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.DBPath != "" {
		cfg.DatabasePath = opts.DBPath
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Writer: os.Stderr,
	})
}
