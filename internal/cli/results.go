package cli

import (
	"fmt"
	"io"

	"github.com/qshape/qshape/internal/drilldown"
	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/shape"
	"github.com/qshape/qshape/internal/ui"
)

// rowJSON is one flattened row in JSON output.
type rowJSON struct {
	Num   int                     `json:"num"`
	Index int                     `json:"index"`
	Cells map[string]record.Value `json:"cells"`
}

// columnJSON pairs a column path with its display label.
type columnJSON struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

func columnsJSON(columns []string) []columnJSON {
	out := make([]columnJSON, len(columns))
	for i, c := range columns {
		out[i] = columnJSON{Path: c, Label: shape.Label(c)}
	}
	return out
}

func rowsJSON(rows []shape.Row) []rowJSON {
	out := make([]rowJSON, len(rows))
	for i, r := range rows {
		cells := r.Cells
		if cells == nil {
			cells = map[string]record.Value{}
		}
		out[i] = rowJSON{Num: i + 1, Index: r.Index, Cells: cells}
	}
	return out
}

// renderRows prints rows as a terminal table. Marker cells are highlighted
// because they can be drilled into.
func renderRows(w io.Writer, columns []string, rows []shape.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, ui.Hint("No records."))
		return
	}

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = shape.Label(c)
	}

	tbl := ui.NewRowsTable(ui.NewDisplayContext(), headers)
	for _, r := range rows {
		cells := make([]ui.TableCell, len(columns))
		for i, c := range columns {
			v := r.Get(c)
			cells[i] = ui.TableCell{Text: v.Text(), Drillable: shape.IsMarkerValue(v)}
		}
		tbl.AddRow(cells...)
	}
	fmt.Fprintln(w, tbl.Render())
}

// childColumns returns the field names of a child view.
func childColumns(child *drilldown.Child) []string {
	out := make([]string, len(child.Columns))
	for i, c := range child.Columns {
		out[i] = c.FieldName
	}
	return out
}

// drillHint lists the relationship columns of rows, for the footer.
func drillHint(columns []string, rows []shape.Row) string {
	var rels []string
	for _, c := range columns {
		if drilldown.IsCollectionColumn(rows, c) {
			rels = append(rels, c)
		}
	}
	if len(rels) == 0 {
		return ""
	}
	return fmt.Sprintf("Drill into %v with 'qshape drill <row> <field>'", rels)
}
