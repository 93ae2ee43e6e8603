package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/lastresults"
	"github.com/qshape/qshape/internal/ui"
)

var lastCmd = &cobra.Command{
	Use:   "last [numbers...]",
	Short: "Show or select results from the last query",
	Long: `Show or select results from the most recent 'qshape run'.

Without arguments, shows the flattened table again. With numbers, prints the
selected raw records as JSON, one per line, for piping to other tools.

Number formats:
  1         Single result
  1,3,5     Multiple results (comma-separated)
  1-5       Range of results
  1,3-5,7   Mixed format

Examples:
  qshape last
  qshape last 1,3
  qshape last 2-4 | jq .Name`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, lr, err := restoreSession(cmd)
		if err != nil {
			if isNoResults(err) {
				return noResultsError()
			}
			return handleError(ErrFileReadError, err, "")
		}

		if len(args) == 0 {
			st := sess.State()
			if isJSONOutput() {
				outputSuccess(map[string]interface{}{
					"query":     lr.Query,
					"source":    lr.Source,
					"timestamp": lr.Timestamp,
					"columns":   columnsJSON(st.Columns),
					"rows":      rowsJSON(st.Rows),
				}, &Meta{Count: len(st.Rows)})
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Header(lr.Query))
			fmt.Fprintln(out, ui.Hint(fmt.Sprintf("%s, %s", lr.Timestamp.Format("2006-01-02 15:04:05"), lr.Source)))
			renderRows(out, st.Columns, st.Rows)
			return nil
		}

		nums, err := lastresults.ParseNumberArgs(args)
		if err != nil {
			return handleErrorMsg(ErrInvalidInput, err.Error(),
				fmt.Sprintf("Valid range: 1-%d", len(lr.Records)))
		}
		selected, err := lr.GetByNumbers(nums)
		if err != nil {
			return handleErrorMsg(ErrInvalidInput, err.Error(),
				fmt.Sprintf("Last query returned %d results", len(lr.Records)))
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"numbers": nums,
				"records": selected,
			}, &Meta{Count: len(selected)})
			return nil
		}

		out := cmd.OutOrStdout()
		for _, rec := range selected {
			data, err := json.Marshal(rec)
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			fmt.Fprintln(out, string(data))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lastCmd)
}
