package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"switchboard-hq/relay/pkg/cli"
	"switchboard-hq/relay/pkg/config"
	"switchboard-hq/relay/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "relay - multi-provider LLM routing with failure recovery",
	Long: `relay routes LLM generation requests across an ordered chain of providers.

It tracks per-provider quotas, probes provider health, classifies provider
failures and applies recovery strategies (retry, credential refresh, API key
fallback) before moving on to the next provider in the chain.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "relay.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration file named by --config, applying
// environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}

// formatter returns the formatter for a --format flag value.
func formatter(format string) (cli.Formatter, error) {
	return cli.NewFormatter(cli.OutputFormat(format))
}

// commandLogger is the logger for one-shot commands: warnings only, or
// everything with --verbose, as text on stderr.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:  level,
		Format: string(logging.FormatText),
		Redact: true,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return slog.Default()
	}
	return logger
}
