// Command tsfn evaluates transform functions from the command line, either
// locally against series files or remotely over gRPC, and publishes series
// files onto the ingest queue.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/logging"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tsfn",
		Short: "Evaluate soltix transform functions",
		Long: `tsfn runs the soltix transform functions over series files.

Examples:
  tsfn functions
  tsfn eval MOVING 5m avg -f cpu.yaml
  tsfn eval SUM -f hosts.yaml --start 1700000000000 --end end-1h
  tsfn eval DOWNSAMPLE 1m-avg -f cpu.yaml --server localhost:5581
  tsfn publish -f cpu.yaml --config transformd.yaml`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("server", "", "Evaluate on a transformd gRPC address instead of locally")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log to stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tsfn %s (%s)\n", Version, GitCommit)
		},
	})
	rootCmd.AddCommand(newFunctionsCmd(), newEvalCmd(), newPublishCmd())
	return rootCmd
}

// loadConfig reads the --config file, or the defaults when none is given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *logging.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return logging.NewDevelopment()
	}
	return logging.Nop()
}
