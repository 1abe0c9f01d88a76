package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteprobe/internal/export"
)

// newExportCmd creates the 'export' subcommand.
func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <url>",
		Short: "Export every stored record for a URL as CSV",
		Long: `Writes the stored records for the URL as CSV. The file is named after the
URL unless --output is given; use --output - to write to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			rawURL := args[0]

			records, err := appInstance.Store().ListByURL(cmd.Context(), rawURL)
			if err != nil {
				return fmt.Errorf("list records: %w", err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no stored records for %s", rawURL)
			}

			if output == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), records)
			}
			if output == "" {
				output = export.FileName(rawURL)
			}
			if err := writeFile(output, func(w io.Writer) error {
				return export.WriteCSV(w, records)
			}); err != nil {
				return err
			}
			appInstance.Logger().Info("export written",
				zap.String("path", output),
				zap.Int("records", len(records)))
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default derived from the URL)")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}
