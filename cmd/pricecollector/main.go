// Price Collector - daily energy price fetch-and-persist daemon.
//
// Once a day, at a configured UTC hour, the collector fetches the next
// day's hourly electricity prices from the pricing API and writes one
// point per hour into InfluxDB. Failed fetches are retried with
// exponential backoff; after the retry budget is spent the day is skipped.
//
// Optional companions: a SQLite run ledger, a retained MQTT broadcast of
// each day's prices, and a read-only status HTTP API with Prometheus
// metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default locations, overridable by flags.
const (
	configEnvVar   = "PRICECOLLECTOR_CONFIG"
	defaultEnvFile = ".env"
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called explicitly above
	}
}

// options are the global flags shared by every subcommand.
type options struct {
	configPath string
	envFile    string
}

// newRootCmd builds the command tree. Running the root command without a
// subcommand starts the daemon.
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "pricecollector",
		Short:         "Collect tomorrow's hourly energy prices into InfluxDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(configEnvVar),
		"path to the YAML config file (env "+configEnvVar+"); empty uses environment only")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile,
		"dotenv file loaded before reading the environment; missing files are ignored")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the daily collection daemon until signalled",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runDaemon(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "once",
			Short: "Run one retry-bounded collection cycle now and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "next-wake",
			Short: "Print when the daemon would next run a cycle",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printNextWake(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "pricecollector %s (commit %s, built %s)\n", version, commit, date)
			},
		},
	)

	return root
}
