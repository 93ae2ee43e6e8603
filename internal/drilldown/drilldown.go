// Package drilldown resolves a row-count marker cell back to the child
// records it summarizes, so they can be shown as their own table.
package drilldown

import (
	"fmt"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/shape"
)

// markerProbeRows is how many leading rows are checked when deciding whether
// a column holds row-count markers.
const markerProbeRows = 3

// Column describes one column of a child table.
type Column struct {
	Label     string `json:"label"`
	FieldName string `json:"field_name"`
}

// Child is a resolved child collection ready for tabular display.
type Child struct {
	Field   string
	Records []*record.Record
	Columns []Column
}

// Title is the heading shown above the child table.
func (c *Child) Title() string {
	return fmt.Sprintf("%s (%d records)", c.Field, len(c.Records))
}

// Rows projects the child records onto their columns, one level deep.
// Nested values are kept as they are; grandchild collections are not expanded.
func (c *Child) Rows() []shape.Row {
	rows := make([]shape.Row, len(c.Records))
	for i, rec := range c.Records {
		cells := make(map[string]record.Value, len(c.Columns))
		for _, col := range c.Columns {
			v, _ := rec.Get(col.FieldName)
			cells[col.FieldName] = v
		}
		rows[i] = shape.Row{Index: i, Cells: cells}
	}
	return rows
}

// ResolveChild locates the child collection stored under field in the raw
// record at rowIndex. It reports false, without error, for an index out of
// range, a missing or empty field, a wrapper that carries only a count, or a
// value that is not a collection.
func ResolveChild(raw []*record.Record, rowIndex int, field string) (*Child, bool) {
	if rowIndex < 0 || rowIndex >= len(raw) {
		return nil, false
	}
	v, ok := raw[rowIndex].Resolve(field)
	if !ok || !v.Truthy() {
		return nil, false
	}
	coll, ok := v.Collection()
	if !ok || !coll.HasRecords() {
		return nil, false
	}
	records := coll.Records()
	if len(records) == 0 {
		return nil, false
	}
	return &Child{
		Field:   field,
		Records: records,
		Columns: Columns(records),
	}, true
}

// Columns returns the union of field names across records in first-seen
// order, metadata excluded.
func Columns(records []*record.Record) []Column {
	var cols []Column
	seen := make(map[string]bool)
	for _, rec := range records {
		rec.Each(func(name string, _ record.Value) {
			if seen[name] {
				return
			}
			seen[name] = true
			cols = append(cols, Column{Label: name, FieldName: name})
		})
	}
	return cols
}

// RecoverIndex finds the raw-result position of a clicked row. It tries the
// carried index, then an Id lookup in the raw results, then an exact match of
// every cell against the flattened rows.
func RecoverIndex(raw []*record.Record, rows []shape.Row, clicked shape.Row) (int, bool) {
	if clicked.Index != shape.NoIndex {
		return clicked.Index, clicked.Index >= 0 && clicked.Index < len(raw)
	}

	if id, ok := clicked.Cells[record.IDField]; ok && id.Truthy() {
		want := id.Text()
		for i, rec := range raw {
			if rec.ID() == want {
				return i, true
			}
		}
	}

	for i, row := range rows {
		if sameCells(row, clicked) {
			return i, i < len(raw)
		}
	}
	return shape.NoIndex, false
}

func sameCells(row, clicked shape.Row) bool {
	for key, want := range clicked.Cells {
		got, ok := row.Cells[key]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// IsCollectionColumn reports whether any of the first few rows holds a
// row-count marker under column.
func IsCollectionColumn(rows []shape.Row, column string) bool {
	n := len(rows)
	if n > markerProbeRows {
		n = markerProbeRows
	}
	for _, row := range rows[:n] {
		if shape.IsMarkerValue(row.Get(column)) {
			return true
		}
	}
	return false
}
