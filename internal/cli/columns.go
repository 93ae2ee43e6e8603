package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/drilldown"
	"github.com/qshape/qshape/internal/session"
	"github.com/qshape/qshape/internal/shape"
	"github.com/qshape/qshape/internal/soql"
	"github.com/qshape/qshape/internal/source"
	"github.com/qshape/qshape/internal/ui"
)

var columnsCmd = &cobra.Command{
	Use:   "columns [query]",
	Short: "List the flattened columns of a query",
	Long: `List the columns a query flattens into, in display order.

Each column shows its dotted path, its display label, and whether it holds
"{n} rows" relationship markers. The fields named in the query's SELECT
clause are listed too, so you can compare the two.

Without a query argument the last 'qshape run' result set is used.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: runColumns,
}

type columnInfo struct {
	Path         string `json:"path"`
	Label        string `json:"label"`
	Relationship bool   `json:"relationship"`
}

func runColumns(cmd *cobra.Command, args []string) error {
	q := strings.TrimSpace(strings.Join(args, " "))

	var st session.State
	if q == "" {
		sess, _, err := restoreSession(cmd)
		if err != nil {
			if isNoResults(err) {
				return noResultsError()
			}
			return handleError(ErrFileReadError, err, "")
		}
		st = sess.State()
	} else {
		sess, svc, err := openSession(cmd)
		if err != nil {
			return handleError(ErrSourceUnavailable, err, "")
		}
		defer svc.Close()
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		next, err := sess.Run(ctx, q)
		if err != nil {
			return handleError(queryErrorCode(err), fmt.Errorf("%s", source.Message(err)), "")
		}
		st = *next
	}

	infos := make([]columnInfo, len(st.Columns))
	for i, c := range st.Columns {
		infos[i] = columnInfo{Path: c, Label: shape.Label(c), Relationship: drilldown.IsCollectionColumn(st.Rows, c)}
	}
	requested := soql.ExtractFields(st.Query)

	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"query":     st.Query,
			"columns":   infos,
			"requested": requested,
			"fallback":  st.Fallback,
		}, &Meta{Count: len(infos)})
		return nil
	}

	out := cmd.OutOrStdout()
	tbl := ui.NewRowsTable(ui.NewDisplayContext(), []string{"Path", "Label", "Kind"})
	for _, info := range infos {
		kind := "field"
		if info.Relationship {
			kind = "relationship"
		}
		tbl.AddRow(ui.TableCell{Text: info.Path}, ui.TableCell{Text: info.Label}, ui.TableCell{Text: kind, Drillable: info.Relationship})
	}
	fmt.Fprintln(out, tbl.Render())
	if len(requested) > 0 {
		fmt.Fprintln(out, ui.Hint("requested: "+strings.Join(requested, ", ")))
	}
	if st.Fallback {
		fmt.Fprintln(out, ui.Warning("columns come from the simplified flattener"))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}
