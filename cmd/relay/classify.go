package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"switchboard-hq/relay/pkg/backend"
	"switchboard-hq/relay/pkg/failure"
	"switchboard-hq/relay/pkg/recovery"
)

var classifyFlags struct {
	status     int
	statusText string
	errType    string
	code       string
	provider   string
	attempt    int
	maxRetries int
	altAuth    bool
	format     string
}

var classifyCmd = &cobra.Command{
	Use:   "classify <error message>",
	Short: "Classify a provider error and show the recovery strategy",
	Long: `Classify a provider error the way the router does and print the error kind,
the surfaced error code, the user-facing message and the recovery strategy
selected for the given attempt.

Examples:
  # Google quota error
  relay classify "Quota exceeded" --status 429 --status-text RESOURCE_EXHAUSTED

  # OAuth refresh failure on the first attempt
  relay classify "invalid_grant: token has been revoked" --provider google

  # Expired access token when an API key is available, after max retries
  relay classify "401 token expired" --attempt 3 --alt-auth`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().IntVar(&classifyFlags.status, "status", 0, "HTTP status code")
	classifyCmd.Flags().StringVar(&classifyFlags.statusText, "status-text", "", "vendor status string (e.g. RESOURCE_EXHAUSTED)")
	classifyCmd.Flags().StringVar(&classifyFlags.errType, "type", "", "vendor error type (e.g. overloaded_error)")
	classifyCmd.Flags().StringVar(&classifyFlags.code, "code", "", "vendor or transport error code (e.g. invalid_grant, ECONNREFUSED)")
	classifyCmd.Flags().StringVar(&classifyFlags.provider, "provider", "provider", "provider named in user actions")
	classifyCmd.Flags().IntVar(&classifyFlags.attempt, "attempt", 1, "attempt number the failure belongs to")
	classifyCmd.Flags().IntVar(&classifyFlags.maxRetries, "max-retries", recovery.DefaultMaxRetries, "maximum recovery attempts")
	classifyCmd.Flags().BoolVar(&classifyFlags.altAuth, "alt-auth", false, "an API key is available as alternate credential")
	classifyCmd.Flags().StringVar(&classifyFlags.format, "format", "text", "output format: text, json")
}

// classification is the output of the classify command.
type classification struct {
	Kind        backend.ErrorKind `json:"kind"`
	Code        backend.Code      `json:"code"`
	Message     string            `json:"message"`
	Attempt     int               `json:"attempt"`
	Strategy    recovery.Strategy `json:"strategy"`
	UserActions []string          `json:"user_actions,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	out, err := formatter(classifyFlags.format)
	if err != nil {
		return err
	}
	if classifyFlags.attempt < 1 {
		return fmt.Errorf("--attempt must be at least 1, got %d", classifyFlags.attempt)
	}

	details := failure.Details{
		Message:    strings.Join(args, " "),
		StatusCode: classifyFlags.status,
		Status:     classifyFlags.statusText,
		Type:       classifyFlags.errType,
		Code:       classifyFlags.code,
	}

	c := classify(details, classifyFlags.attempt, classifyFlags.maxRetries, classifyFlags.altAuth, classifyFlags.provider)
	return out.FormatTo(cmd.OutOrStdout(), c)
}

func classify(details failure.Details, attempt, maxRetries int, altAuth bool, provider string) classification {
	kind := failure.ClassifyDetails(details)
	strategy := recovery.SelectStrategy(kind, attempt, maxRetries, altAuth)

	c := classification{
		Kind:     kind,
		Code:     kind.Code(),
		Message:  failure.UserMessage(kind),
		Attempt:  attempt,
		Strategy: strategy,
	}
	if strategy == recovery.StrategyUserIntervention || strategy == recovery.StrategyClearAndRestart {
		c.UserActions = recovery.UserActions(kind, provider)
	}
	return c
}

// RenderText implements cli.TextRenderer.
func (c classification) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Kind:     %s\n", c.Kind)
	fmt.Fprintf(w, "Code:     %s\n", c.Code)
	fmt.Fprintf(w, "Message:  %s\n", c.Message)
	fmt.Fprintf(w, "Strategy: %s (attempt %d)\n", c.Strategy, c.Attempt)
	if len(c.UserActions) > 0 {
		fmt.Fprintln(w, "User actions:")
		for _, action := range c.UserActions {
			fmt.Fprintf(w, "  - %s\n", action)
		}
	}
	return nil
}
