package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"switchboard-hq/relay/pkg/cli"
	"switchboard-hq/relay/pkg/health"
)

var probeFlags struct {
	timeout time.Duration
	format  string
}

// errAllUnavailable is returned by probe when no provider answered.
var errAllUnavailable = errors.New("every probed provider is unavailable")

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Health check every configured provider once",
	Long: `Send one health probe to every configured provider with a base_url and
print the result. Providers without a base_url are reported healthy.

The command fails when every provider is unavailable.

Examples:
  relay probe
  relay probe --timeout 2s --format json`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().DurationVar(&probeFlags.timeout, "timeout", 0, "per-provider probe timeout (default: health.timeout)")
	probeCmd.Flags().StringVar(&probeFlags.format, "format", "text", "output format: text, json")
}

type probeReport struct {
	Providers []health.ProviderHealth `json:"providers"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	out, err := formatter(probeFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if probeFlags.timeout > 0 {
		cfg.Health.Timeout = probeFlags.timeout
	}
	cfg.Health.Enabled = true
	cfg.Health.DegradedAfter = 1
	cfg.Health.UnavailableAfter = 1

	s, err := newStack(cfg, stackOptions{logger: commandLogger(cmd)})
	if err != nil {
		return err
	}
	defer s.close()

	report := probeReport{Providers: s.monitor.CheckNow(cmd.Context())}
	if err := out.FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	if len(report.Providers) > 0 && s.monitor.Readiness().Status == "unavailable" {
		return cli.NewCommandError("probe", errAllUnavailable)
	}
	return nil
}

// RenderText implements cli.TextRenderer.
func (r probeReport) RenderText(w io.Writer) error {
	if len(r.Providers) == 0 {
		_, err := fmt.Fprintln(w, "No providers configured.")
		return err
	}

	table := &cli.Table{Headers: []string{"PROVIDER", "STATUS", "LATENCY", "ERROR"}}
	for _, h := range r.Providers {
		table.AddRow(h.Provider, string(h.Status), h.Latency.Round(time.Millisecond).String(), h.LastError)
	}
	if err := table.RenderText(w); err != nil {
		return err
	}

	healthy := 0
	for _, h := range r.Providers {
		if h.Status == health.StatusHealthy {
			healthy++
		}
	}
	_, err := fmt.Fprintf(w, "\n%d/%d providers healthy\n", healthy, len(r.Providers))
	return err
}
