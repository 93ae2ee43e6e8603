package shape

import (
	"fmt"
	"log/slog"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/soql"
)

// NoIndex marks a row that does not carry its position in the raw results.
const NoIndex = -1

// Row is a flat projection of one record. Index is the record's position in
// the raw result set it came from; Cells are keyed by column path.
type Row struct {
	Index int
	Cells map[string]record.Value
}

// Get returns the cell for a column; missing cells are null.
func (r Row) Get(column string) record.Value {
	return r.Cells[column]
}

// Text returns the export-safe text of a cell.
func (r Row) Text(column string) string {
	return r.Cells[column].Text()
}

// Result is a converted result set.
type Result struct {
	Columns  []string
	Rows     []Row
	Fallback bool // produced by the fallback flattener
}

// Flatten projects each record onto columns. Collections become row-count
// markers; every other value is kept as-is.
func Flatten(records []*record.Record, columns []string) []Row {
	rows := make([]Row, len(records))
	for i, rec := range records {
		cells := make(map[string]record.Value, len(columns))
		for _, col := range columns {
			cells[col] = Cell(rec, col)
		}
		rows[i] = Row{Index: i, Cells: cells}
	}
	return rows
}

// Cell resolves one column of a record for display.
func Cell(rec *record.Record, column string) record.Value {
	v, ok := rec.Resolve(column)
	if !ok {
		return record.Null()
	}
	if c, ok := v.Collection(); ok {
		return record.String(Marker(c.Count()))
	}
	return v
}

// Fallback flattens every field of every record without knowledge of the
// requested columns. Columns accumulate in first-seen order across records.
func Fallback(records []*record.Record) ([]Row, []string) {
	var columns []string
	seen := make(map[string]bool)
	rows := make([]Row, len(records))
	for i, rec := range records {
		var keys []string
		cells := make(map[string]record.Value)
		flattenSimple(rec, "", 0, cells, &keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		rows[i] = Row{Index: i, Cells: cells}
	}
	return rows, columns
}

func flattenSimple(rec *record.Record, prefix string, depth int, cells map[string]record.Value, keys *[]string) {
	rec.Each(func(name string, v record.Value) {
		key := name
		if prefix != "" {
			key = prefix + record.PathSeparator + name
		}

		if c, ok := v.Collection(); ok {
			put(cells, keys, key, record.String(Marker(c.Count())))
			return
		}
		if obj := nestedObject(v); obj != nil && depth < MaxDepth {
			flattenSimple(obj, key, depth+1, cells, keys)
			return
		}
		put(cells, keys, key, v)
	})
}

func put(cells map[string]record.Value, keys *[]string, key string, v record.Value) {
	if _, ok := cells[key]; !ok {
		*keys = append(*keys, key)
	}
	cells[key] = v
}

// nestedObject returns the record behind a nested or opaque value.
func nestedObject(v record.Value) *record.Record {
	if r, ok := v.Record(); ok {
		return r
	}
	if r, ok := v.Scalar().(*record.Record); ok {
		return r
	}
	return nil
}

// Convert shapes records for display using the fields projected by query.
// If discovery fails for any reason it falls back to Fallback; the caller
// never sees the failure.
func Convert(records []*record.Record, query string) Result {
	return ConvertColumns(records, soql.ExtractFields(query))
}

// ConvertColumns is Convert with an explicit requested-column list.
func ConvertColumns(records []*record.Record, requested []string) Result {
	if len(records) == 0 {
		return Result{Columns: []string{}, Rows: []Row{}}
	}
	res, err := convert(records, requested)
	if err == nil {
		return res
	}
	slog.Debug("column discovery failed, using fallback flattening",
		"error", err, "records", len(records))
	rows, columns := Fallback(records)
	return Result{Columns: columns, Rows: rows, Fallback: true}
}

func convert(records []*record.Record, requested []string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversion panic: %v", r)
		}
	}()
	columns, err := DiscoverColumns(records, requested)
	if err != nil {
		return Result{}, err
	}
	return Result{Columns: columns, Rows: Flatten(records, columns)}, nil
}
