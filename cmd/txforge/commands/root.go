package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel      string
	jsonOutput    bool
	traceExporter string
	otlpEndpoint  string
	metricsListen string
)

// cliVersion feeds the telemetry service version.
var cliVersion = "dev"

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	if version != "" {
		cliVersion = version
	}
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "txforge",
		Short: "TxForge - Declarative Transaction Orchestration Engine",
		Long: `TxForge executes declarative runbooks of interdependent transactional
constructs: values flow through a dependency graph, every construct's
inputs are resolved before it runs, and sensitive steps can be gated on
operator approval.

Features:
  - Deterministic dependency-ordered scheduling
  - Incremental re-evaluation with fingerprint caching
  - Supervised runs with operator action panels
  - Addon namespaces for domain commands, signers, and functions
  - Run history and construct snapshots in SQLite`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&traceExporter, "trace", "none", "trace exporter (none, stdout, otlp)")
	rootCmd.PersistentFlags().StringVar(&otlpEndpoint, "otlp-endpoint", "localhost:4317", "OTLP collector endpoint for --trace otlp")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "", "listen address for the Prometheus endpoint (disabled when empty)")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
