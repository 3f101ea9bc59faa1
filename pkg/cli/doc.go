/*
Package cli provides command-line helpers shared by the relay command.

Output Formatting:

Commands print their results as text or JSON:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, report)

Values that implement TextRenderer control their own text layout; Table
renders aligned columns.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
