package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"switchboard-hq/relay/pkg/cli"
	"switchboard-hq/relay/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, apply environment overrides and validate it.

On success the provider roster, quotas and fallback chain are printed along
with warnings for settings that are valid but probably unintended.

Examples:
  # Validate the default config file
  relay validate

  # Validate another file and print JSON
  relay validate --config /etc/relay/relay.yaml --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// validateReport summarises a valid configuration.
type validateReport struct {
	Path            string        `json:"path"`
	Providers       []providerRow `json:"providers"`
	DefaultProvider string        `json:"default_provider,omitempty"`
	FallbackChain   []string      `json:"fallback_chain"`
	Warnings        []string      `json:"warnings,omitempty"`
}

type providerRow struct {
	ID                 string `json:"id"`
	Model              string `json:"model,omitempty"`
	Enabled            bool   `json:"enabled"`
	Priority           int    `json:"priority"`
	RequestsPerMinute  int64  `json:"requests_per_minute"`
	TokensPerMinute    int64  `json:"tokens_per_minute"`
	ConcurrentRequests int64  `json:"concurrent_requests"`
	Connector          bool   `json:"connector"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	out, err := formatter(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return out.FormatTo(cmd.OutOrStdout(), buildValidateReport(cfgFile, cfg))
}

func buildValidateReport(path string, cfg *config.Config) *validateReport {
	report := &validateReport{
		Path:            path,
		DefaultProvider: cfg.Routing.DefaultProvider,
		FallbackChain:   cfg.Routing.FallbackChain,
	}

	for _, p := range cfg.Providers {
		row := providerRow{
			ID:                 p.ID,
			Model:              p.Model,
			Enabled:            p.IsEnabled(),
			Priority:           p.Priority,
			RequestsPerMinute:  p.RateLimit.RequestsPerMinute,
			TokensPerMinute:    p.RateLimit.TokensPerMinute,
			ConcurrentRequests: p.RateLimit.ConcurrentRequests,
		}

		b, err := newBackend(p)
		if err == nil {
			err = b.ValidateConfig()
		}
		row.Connector = err == nil
		if err != nil && row.Enabled {
			report.Warnings = append(report.Warnings, fmt.Sprintf("provider %s: %v", p.ID, err))
		}
		report.Providers = append(report.Providers, row)
	}

	for _, id := range cfg.Routing.FallbackChain {
		if p, ok := cfg.Provider(id); ok && !p.IsEnabled() {
			report.Warnings = append(report.Warnings, fmt.Sprintf("fallback chain entry %s is disabled and will be skipped", id))
		}
	}
	for _, id := range unlistedProviders(cfg) {
		report.Warnings = append(report.Warnings, fmt.Sprintf("provider %s is not in the fallback chain and is only used as an explicit target", id))
	}

	return report
}

// RenderText implements cli.TextRenderer.
func (r *validateReport) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "✓ Configuration valid: %s\n\n", r.Path)

	table := &cli.Table{Headers: []string{"PROVIDER", "MODEL", "ENABLED", "PRIORITY", "RPM", "TPM", "CONCURRENT"}}
	for _, p := range r.Providers {
		table.AddRow(p.ID, p.Model, strconv.FormatBool(p.Enabled), strconv.Itoa(p.Priority),
			limitString(p.RequestsPerMinute), limitString(p.TokensPerMinute), limitString(p.ConcurrentRequests))
	}
	if err := table.RenderText(w); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if r.DefaultProvider != "" {
		fmt.Fprintf(w, "Default provider: %s\n", r.DefaultProvider)
	}
	fmt.Fprintf(w, "Fallback chain: %s\n", chainString(r.FallbackChain))

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}
	return nil
}

func limitString(v int64) string {
	if v <= 0 {
		return "-"
	}
	return strconv.FormatInt(v, 10)
}

func chainString(ids []string) string {
	if len(ids) == 0 {
		return "(empty)"
	}
	return strings.Join(ids, " -> ")
}
