package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/session"
	"github.com/qshape/qshape/internal/source"
	"github.com/qshape/qshape/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Run a query and show the flattened results",
	Long: `Run a SOQL-style query and show the results as a flat table.

Nested parent fields become dotted columns (Owner.Name is shown as "Owner Name")
and child relationships become "{n} rows" markers that 'qshape drill' opens.

By default only the first page is fetched. Use --all for every record, or
--offset/--limit for a specific page.

Examples:
  qshape run "SELECT Id, Name FROM Account"
  qshape run "SELECT Id, (SELECT Id FROM Contacts) FROM Account" --all
  qshape run "SELECT Id FROM Case" --offset 200 --limit 50`,
	Args: cobra.RangeArgs(0, 1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	q := strings.TrimSpace(strings.Join(args, " "))
	all, _ := cmd.Flags().GetBool("all")
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")
	paged := cmd.Flags().Changed("offset") || cmd.Flags().Changed("limit")

	if all && paged {
		return handleErrorMsg(ErrInvalidInput, "--all cannot be combined with --offset/--limit", "")
	}
	if offset < 0 || limit < 0 {
		return handleErrorMsg(ErrInvalidInput, "--offset and --limit must not be negative", "")
	}
	if q == "" {
		return handleError(ErrQueryEmpty, errors.New(session.EmptyQueryMessage), "")
	}

	sess, svc, err := openSession(cmd)
	if err != nil {
		return handleError(ErrSourceUnavailable, err, "Check the [source] section of your config")
	}
	defer svc.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	spinner := ui.NewSpinner(cmd.ErrOrStderr(), "Running query")
	if !isJSONOutput() {
		spinner.Start()
	}
	start := time.Now()
	var st *session.State
	switch {
	case all:
		st, err = sess.RunAll(ctx, q)
	case paged:
		if limit == 0 {
			limit = getConfig().Source.PageSize
		}
		st, err = sess.RunPage(ctx, q, offset, limit)
	default:
		st, err = sess.Run(ctx, q)
	}
	spinner.Stop()
	elapsed := time.Since(start)

	if err != nil {
		return handleError(queryErrorCode(err), errors.New(source.Message(err)), "")
	}

	saveResults(st)

	var warnings []Warning
	if st.Fallback {
		warnings = append(warnings, Warning{Code: WarnFallbackFlatten,
			Message: "Records are nested too deeply for column discovery; showing a simplified flattening"})
	}
	if st.Page != nil && st.Page.HasMore {
		warnings = append(warnings, Warning{Code: WarnMoreResults,
			Message: fmt.Sprintf("%d of %d records shown", len(st.Rows), st.Page.TotalCount)})
	}

	if isJSONOutput() {
		data := map[string]interface{}{
			"query":   st.Query,
			"columns": columnsJSON(st.Columns),
			"rows":    rowsJSON(st.Rows),
		}
		if st.Page != nil {
			data["page"] = st.Page
		}
		meta := &Meta{Count: len(st.Rows), QueryTimeMs: elapsed.Milliseconds()}
		if st.Page != nil {
			meta.Total = st.Page.TotalCount
		}
		outputSuccessWithWarnings(data, warnings, meta)
		return nil
	}

	out := cmd.OutOrStdout()
	renderRows(out, st.Columns, st.Rows)
	for _, w := range warnings {
		fmt.Fprintln(out, ui.Warning(w.Message))
	}
	fmt.Fprintln(out, ui.Hint(fmt.Sprintf("%s in %dms", strings.Trim(ui.Count(len(st.Rows), "record", "records"), "()"), elapsed.Milliseconds())))
	if hint := drillHint(st.Columns, st.Rows); hint != "" {
		fmt.Fprintln(out, ui.Hint(hint))
	}
	return nil
}

func init() {
	runCmd.Flags().Bool("all", false, "Fetch every record instead of the first page")
	runCmd.Flags().Int("offset", 0, "Start of the page to fetch")
	runCmd.Flags().Int("limit", 0, "Page size (defaults to source.page_size)")
	rootCmd.AddCommand(runCmd)
}
