package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qshape/qshape/internal/atomicfile"
	"github.com/qshape/qshape/internal/export"
	"github.com/qshape/qshape/internal/notify"
	"github.com/qshape/qshape/internal/soql"
	"github.com/qshape/qshape/internal/source"
	"github.com/qshape/qshape/internal/workbook"
)

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// ExportOptions configures one export.
type ExportOptions struct {
	// Query defaults to the session's current query.
	Query           string
	Format          string
	Dir             string
	MaxRowsPerSheet int
	// Progress, when set, also receives (accumulated, total) updates.
	Progress export.ProgressFunc
	// Now stamps the file name and the info sheet; defaults to time.Now.
	Now func() time.Time
}

// ExportResult describes a written export.
type ExportResult struct {
	ID      string
	Path    string
	Format  string
	Rows    int
	Sheets  int
	Batches int
	Model   *workbook.Model // xlsx only
}

// Export fetches every batch of the query, assembles the output and writes
// it. Exactly one notification reports the outcome. A newer export started
// before this one finishes makes it return ErrStale without writing.
func (s *Session) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	q := strings.TrimSpace(opts.Query)
	if q == "" {
		q = s.State().Query
	}
	if q == "" {
		s.notifier.Notify(notify.Notification{Title: "Export failed", Message: EmptyQueryMessage, Severity: notify.Error})
		return nil, ErrEmptyQuery
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		err := fmt.Errorf("unknown export format %q", opts.Format)
		s.notifier.Notify(notify.Notification{Title: "Export failed", Message: err.Error(), Severity: notify.Error})
		return nil, err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	gen := s.beginExport()
	p := &export.Pipeline{
		Fetcher:         s.svc,
		MaxRowsPerSheet: opts.MaxRowsPerSheet,
		Progress: func(acc, total int) {
			s.setExport(gen, ExportState{Running: true, Accumulated: acc, Total: total})
			if opts.Progress != nil {
				opts.Progress(acc, total)
			}
		},
	}

	res, err := p.Run(ctx, q)
	if err == nil && !s.exportCurrent(gen) {
		err = ErrStale
	}
	if err != nil {
		return nil, s.failExport(gen, err)
	}

	at := now()
	out := &ExportResult{
		ID:      uuid.NewString(),
		Format:  format,
		Rows:    len(res.Rows),
		Sheets:  len(res.Sheets),
		Batches: res.Batches,
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, s.failExport(gen, fmt.Errorf("create export directory: %w", err))
	}
	out.Path = filepath.Join(dir, export.Filename(soql.SourceObject(q), at, format))

	err = workbook.Safe(func() error {
		if format == FormatCSV {
			if !s.exportCurrent(gen) {
				return ErrStale
			}
			return atomicfile.Write(out.Path, 0o644, func(w io.Writer) error {
				return export.WriteCSV(w, res.Columns, res.Rows)
			})
		}
		model, err := workbook.Assemble(res.Columns, res.Rows, res.Raw, workbook.Meta{
			ID:              out.ID,
			Query:           q,
			ExportedAt:      at,
			TotalCount:      res.TotalCount,
			MaxRowsPerSheet: opts.MaxRowsPerSheet,
		})
		if err != nil {
			return err
		}
		out.Model = model
		out.Sheets = len(model.Sheets)
		if !s.exportCurrent(gen) {
			return ErrStale
		}
		return workbook.Write(model, out.Path)
	})
	if err == nil && !s.exportCurrent(gen) {
		_ = os.Remove(out.Path)
		err = ErrStale
	}
	if err != nil {
		return nil, s.failExport(gen, err)
	}

	s.setExport(gen, ExportState{Accumulated: out.Rows, Total: res.TotalCount, Path: out.Path})
	s.notifier.Notify(notify.Notification{
		Title:    "Export complete",
		Message:  fmt.Sprintf("Exported %d records to %s", out.Rows, out.Path),
		Severity: notify.Success,
	})
	return out, nil
}

func (s *Session) beginExport() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportGen++
	next := *s.state
	next.Export = ExportState{Running: true}
	s.state = &next
	return s.exportGen
}

func (s *Session) exportCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.exportGen
}

// setExport records export progress if gen is still the newest export.
func (s *Session) setExport(gen uint64, es ExportState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.exportGen {
		return
	}
	next := *s.state
	next.Export = es
	s.state = &next
}

// failExport resets progress and reports err once, unless a newer export
// has taken over.
func (s *Session) failExport(gen uint64, err error) error {
	if errors.Is(err, ErrStale) || !s.exportCurrent(gen) {
		return ErrStale
	}
	msg := source.Message(err)
	s.setExport(gen, ExportState{Error: msg})
	s.notifier.Notify(notify.Notification{Title: "Export failed", Message: msg, Severity: notify.Error})
	return err
}
