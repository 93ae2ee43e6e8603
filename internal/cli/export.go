package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/lastresults"
	"github.com/qshape/qshape/internal/session"
	"github.com/qshape/qshape/internal/source"
	"github.com/qshape/qshape/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export every record of a query to a workbook or CSV file",
	Long: `Fetch every batch of a query and write it to disk.

The xlsx format writes a workbook with the flattened results, one sheet per
child relationship, hyperlinks between parents and children, a navigation
guide and an export info sheet. The csv format writes the flattened results
only.

Without a query argument the query from the last 'qshape run' is exported.

Examples:
  qshape export "SELECT Id, Name, (SELECT Id FROM Contacts) FROM Account"
  qshape export --format csv --dir ./out
  qshape export --summary`,
	Args: cobra.RangeArgs(0, 1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	c := getConfig()
	format, _ := cmd.Flags().GetString("format")
	dir, _ := cmd.Flags().GetString("dir")
	maxRows, _ := cmd.Flags().GetInt("max-rows")
	summary, _ := cmd.Flags().GetBool("summary")

	if format == "" {
		format = c.Export.Format
	}
	if dir == "" {
		dir = c.Export.OutputDir
	}
	if maxRows <= 0 {
		maxRows = c.Export.MaxRowsPerSheet
	}

	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		lr, err := lastresults.Read(getStateDir())
		switch {
		case isNoResults(err):
			return handleError(ErrQueryEmpty, errors.New(session.EmptyQueryMessage),
				"Pass a query or run one first with 'qshape run'")
		case err != nil:
			return handleError(ErrFileReadError, err, "")
		}
		q = lr.Query
	}

	sess, svc, err := openSession(cmd)
	if err != nil {
		return handleError(ErrSourceUnavailable, err, "Check the [source] section of your config")
	}
	defer svc.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	progress := ui.NewProgress(cmd.ErrOrStderr(), "Exporting")
	opts := session.ExportOptions{
		Query:           q,
		Format:          format,
		Dir:             dir,
		MaxRowsPerSheet: maxRows,
	}
	if !isJSONOutput() {
		opts.Progress = progress.Update
	}

	res, err := sess.Export(ctx, opts)
	progress.Done()
	if err != nil {
		if !isJSONOutput() {
			// The session already printed the failure notification.
			cmd.SilenceErrors = true
			return err
		}
		return handleError(queryErrorCode(err), errors.New(source.Message(err)), "")
	}

	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"id":      res.ID,
			"path":    res.Path,
			"format":  res.Format,
			"rows":    res.Rows,
			"sheets":  res.Sheets,
			"batches": res.Batches,
		}, &Meta{Count: res.Rows})
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", ui.Hint("file:"), formatFileLink(res.Path, ui.FilePath))
	if summary && res.Model != nil {
		rendered, err := ui.RenderMarkdown(res.Model.Markdown(), ui.NewDisplayContext().TermWidth)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}
		fmt.Fprint(out, rendered)
	}
	return nil
}

func init() {
	exportCmd.Flags().String("format", "", "Output format: xlsx or csv (defaults to export.format)")
	exportCmd.Flags().String("dir", "", "Output directory (defaults to export.output_dir)")
	exportCmd.Flags().Int("max-rows", 0, "Maximum data rows per main sheet (defaults to export.max_rows_per_sheet)")
	exportCmd.Flags().Bool("summary", false, "Print the workbook's navigation guide after exporting")
	rootCmd.AddCommand(exportCmd)
}
