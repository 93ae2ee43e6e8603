package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/shape"
	"github.com/qshape/qshape/internal/ui"
)

var drillCmd = &cobra.Command{
	Use:   "drill [row] <field>",
	Short: "Show the child records behind a \"{n} rows\" marker",
	Long: `Open the child collection of one row from the last query.

The row is the number shown by 'qshape run' (1-indexed). Use --id to pick the
row by record Id instead.

Examples:
  qshape drill 3 Contacts
  qshape drill --id 001xx000003DGb2 Opportunities`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDrill,
}

func runDrill(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	id = strings.TrimSpace(id)

	var rowArg, field string
	switch {
	case id != "" && len(args) == 1:
		field = args[0]
	case id == "" && len(args) == 2:
		rowArg, field = args[0], args[1]
	default:
		return handleErrorMsg(ErrMissingArgument, "expected <row> <field> or --id <id> <field>", "")
	}
	field = strings.TrimSpace(field)

	sess, _, err := restoreSession(cmd)
	if err != nil {
		if isNoResults(err) {
			return noResultsError()
		}
		return handleError(ErrFileReadError, err, "")
	}

	st := sess.State()
	var target shape.Row
	if id != "" {
		target = shape.Row{Index: shape.NoIndex, Cells: map[string]record.Value{record.IDField: record.String(id)}}
	} else {
		n, err := strconv.Atoi(rowArg)
		if err != nil || n < 1 || n > len(st.Rows) {
			return handleErrorMsg(ErrRowNotFound,
				fmt.Sprintf("row %q is out of range", rowArg),
				fmt.Sprintf("Last query returned %d rows", len(st.Rows)))
		}
		target = st.Rows[n-1]
	}

	child, ok := sess.ExpandRow(target, field)
	if !ok {
		return handleErrorMsg(ErrNotDrillable,
			fmt.Sprintf("no child records under %q for that row", field),
			"Only relationship columns showing \"{n} rows\" with embedded records can be drilled into")
	}

	rows := child.Rows()
	columns := childColumns(child)
	if isJSONOutput() {
		cols := make([]map[string]string, len(child.Columns))
		for i, c := range child.Columns {
			cols[i] = map[string]string{"label": c.Label, "field_name": c.FieldName}
		}
		outputSuccess(map[string]interface{}{
			"field":   child.Field,
			"title":   child.Title(),
			"row":     sess.State().ChildRow + 1,
			"columns": cols,
			"rows":    rowsJSON(rows),
		}, &Meta{Count: len(rows)})
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Header(child.Title()))
	renderRows(out, columns, rows)
	return nil
}

func init() {
	drillCmd.Flags().String("id", "", "Select the parent row by record Id")
	rootCmd.AddCommand(drillCmd)
}
