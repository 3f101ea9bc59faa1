package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"switchboard-hq/relay/pkg/routing"
)

var chainFlags struct {
	target string
	probe  bool
	format string
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show the provider chain for a target",
	Long: `Resolve the ordered provider chain a request for the target would try.

The chain is the target (when registered and enabled) followed by the
fallback chain, skipping disabled, unknown and duplicate providers. With
--probe every provider is health checked first, so unavailable providers are
dropped and degraded ones reported.

Examples:
  # Chain for the default provider
  relay chain

  # Chain for an explicit target after a health sweep
  relay chain --target anthropic --probe`,
	RunE: runChain,
}

func init() {
	rootCmd.AddCommand(chainCmd)

	chainCmd.Flags().StringVarP(&chainFlags.target, "target", "t", "", "target provider (default: routing.default_provider)")
	chainCmd.Flags().BoolVar(&chainFlags.probe, "probe", false, "health check providers before resolving the chain")
	chainCmd.Flags().StringVar(&chainFlags.format, "format", "text", "output format: text, json")
}

type chainOutput struct {
	Target string `json:"target"`
	routing.ChainReport
}

func runChain(cmd *cobra.Command, args []string) error {
	out, err := formatter(chainFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	target := chainFlags.target
	if target == "" {
		target = cfg.Routing.DefaultProvider
	}

	if chainFlags.probe {
		// a single sweep must be able to mark providers unavailable
		cfg.Health.Enabled = true
		cfg.Health.DegradedAfter = 1
		cfg.Health.UnavailableAfter = 1
	}

	s, err := newStack(cfg, stackOptions{logger: commandLogger(cmd)})
	if err != nil {
		return err
	}
	defer s.close()

	if chainFlags.probe {
		s.monitor.CheckNow(cmd.Context())
	}

	report := chainOutput{Target: target, ChainReport: s.router.ChainReport(target)}
	return out.FormatTo(cmd.OutOrStdout(), report)
}

// RenderText implements cli.TextRenderer.
func (c chainOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Target: %s\n", c.Target)
	fmt.Fprintf(w, "Chain:  %s\n", chainString(c.Chain))
	if len(c.Degraded) > 0 {
		fmt.Fprintf(w, "Degraded: %s\n", chainString(c.Degraded))
	}
	if len(c.Chain) == 0 {
		fmt.Fprintln(w, "\nNo eligible provider: requests for this target fail immediately")
	}
	return nil
}
