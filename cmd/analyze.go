package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/siteprobe/internal/report"
)

// Output formats for the analyze command.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// newAnalyzeCmd creates the 'analyze' subcommand.
func newAnalyzeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze one URL and store the result",
		Long: `Runs the robots.txt, content and access probes against the URL at the
same time, stores one record, and prints the report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatMarkdown && format != formatJSON {
				return fmt.Errorf("unsupported format %q (want %s or %s)", format, formatMarkdown, formatJSON)
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			rec, err := appInstance.Analyze(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return report.WriteJSON(out, rec)
			}
			return report.WriteMarkdown(out, rec)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatMarkdown, "report format: markdown or json")
	return cmd
}
