// Package export fetches large result sets batch by batch and turns them into
// flat rows split across sheets.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/shape"
	"github.com/qshape/qshape/internal/source"
)

// Fetcher returns export batches. Batch n+1 is only requested after batch n
// has been converted.
type Fetcher interface {
	ExportBatch(ctx context.Context, q string, batch int) (*source.Page, error)
}

// ProgressFunc receives (accumulated rows, total reported by the service).
type ProgressFunc func(accumulated, total int)

// ErrEmptyBatch is returned when a batch holds no records but claims more follow.
var ErrEmptyBatch = errors.New("batch returned no records but reported more")

// BatchError reports the batch whose fetch aborted an export.
type BatchError struct {
	Batch int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("export batch %d: %v", e.Batch, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Result is a completed export.
type Result struct {
	Query      string
	Columns    []string
	Rows       []shape.Row
	Raw        []*record.Record
	Sheets     [][]shape.Row
	TotalCount int
	Batches    int
}

// Pipeline runs one export at a time.
type Pipeline struct {
	Fetcher         Fetcher
	MaxRowsPerSheet int
	Progress        ProgressFunc
}

// accumulator holds converted rows across batches. Row indexes point into raw.
type accumulator struct {
	columns []string
	rows    []shape.Row
	raw     []*record.Record
	total   int
}

func (a *accumulator) add(records []*record.Record, conv shape.Result) {
	offset := len(a.raw)
	for _, row := range conv.Rows {
		row.Index += offset
		a.rows = append(a.rows, row)
	}
	a.raw = append(a.raw, records...)
	a.columns = shape.MergeColumns(a.columns, conv.Columns)
}

// Run fetches batch 0, 1, 2... until the service reports no more, converting
// each batch as it arrives. Any failure discards everything accumulated,
// resets progress to zero and returns a *BatchError.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	if p.Fetcher == nil {
		return nil, fmt.Errorf("export: no fetcher configured")
	}

	acc := &accumulator{}
	batch := 0
	for ; ; batch++ {
		page, err := p.fetch(ctx, query, batch)
		if err != nil {
			p.report(0, 0)
			slog.Debug("export aborted", "batch", batch, "discarded_rows", len(acc.rows), "error", err)
			return nil, &BatchError{Batch: batch, Err: err}
		}

		acc.add(page.Records, shape.Convert(page.Records, query))
		acc.total = page.TotalCount
		p.report(len(acc.rows), acc.total)
		slog.Debug("export batch converted", "batch", batch, "rows", len(page.Records), "accumulated", len(acc.rows))

		if !page.HasMore {
			break
		}
	}

	rows := acc.rows
	if rows == nil {
		rows = []shape.Row{}
	}
	columns := acc.columns
	if columns == nil {
		columns = []string{}
	}
	return &Result{
		Query:      query,
		Columns:    columns,
		Rows:       rows,
		Raw:        acc.raw,
		Sheets:     Split(rows, p.MaxRowsPerSheet),
		TotalCount: acc.total,
		Batches:    batch + 1,
	}, nil
}

func (p *Pipeline) fetch(ctx context.Context, query string, batch int) (*source.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := p.Fetcher.ExportBatch(ctx, query, batch)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("no page returned")
	}
	if page.HasMore && len(page.Records) == 0 {
		return nil, ErrEmptyBatch
	}
	return page, nil
}

func (p *Pipeline) report(accumulated, total int) {
	if p.Progress != nil {
		p.Progress(accumulated, total)
	}
}

// Split cuts rows into sheets of at most max rows, keeping order: row n lands
// on sheet n/max. A max of zero or less means a single sheet.
func Split(rows []shape.Row, max int) [][]shape.Row {
	if max <= 0 || len(rows) <= max {
		return [][]shape.Row{rows}
	}
	sheets := make([][]shape.Row, 0, (len(rows)+max-1)/max)
	for start := 0; start < len(rows); start += max {
		end := start + max
		if end > len(rows) {
			end = len(rows)
		}
		sheets = append(sheets, rows[start:end])
	}
	return sheets
}
