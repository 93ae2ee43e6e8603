// Package session owns the state of one interactive query session. Every
// operation replaces the state wholesale, and a result that arrives after a
// newer operation started is dropped.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/qshape/qshape/internal/drilldown"
	"github.com/qshape/qshape/internal/notify"
	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/shape"
	"github.com/qshape/qshape/internal/source"
)

// EmptyQueryMessage is the error shown for a blank query.
const EmptyQueryMessage = "Please enter a SOQL query."

var (
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrStale is returned when a newer operation superseded this one.
	ErrStale = errors.New("superseded by a newer operation")
)

// PageInfo describes a paginated run.
type PageInfo struct {
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"total_count"`
	HasMore    bool `json:"has_more"`
}

// ExportState tracks the export in progress or the last one finished.
type ExportState struct {
	Running     bool   `json:"running"`
	Accumulated int    `json:"accumulated"`
	Total       int    `json:"total"`
	Path        string `json:"path,omitempty"`
	Error       string `json:"error,omitempty"`
}

// State is an immutable snapshot. Operations build a new State rather than
// editing the current one.
type State struct {
	Generation uint64
	Query      string
	Raw        []*record.Record
	Columns    []string
	Rows       []shape.Row
	Fallback   bool
	Page       *PageInfo
	Child      *drilldown.Child
	ChildRow   int
	Error      string
	Export     ExportState
}

// Session is safe for concurrent use.
type Session struct {
	svc      source.Service
	notifier notify.Notifier

	mu        sync.Mutex
	gen       uint64
	exportGen uint64
	state     *State
}

// New returns a session that queries svc and reports through n.
func New(svc source.Service, n notify.Notifier) *Session {
	if n == nil {
		n = notify.Discard
	}
	return &Session{svc: svc, notifier: n, state: &State{ChildRow: shape.NoIndex}}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// commit installs next if gen is still the newest operation.
func (s *Session) commit(gen uint64, next *State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	next.Generation = gen
	next.Export = s.state.Export
	if next.Child == nil {
		next.ChildRow = shape.NoIndex
	}
	s.state = next
	return true
}

// Run executes q for a single page of results.
func (s *Session) Run(ctx context.Context, q string) (*State, error) {
	return s.run(ctx, q, func(ctx context.Context) ([]*record.Record, *PageInfo, error) {
		recs, err := s.svc.Query(ctx, q)
		return recs, nil, err
	})
}

// RunAll executes q with no page limit.
func (s *Session) RunAll(ctx context.Context, q string) (*State, error) {
	return s.run(ctx, q, func(ctx context.Context) ([]*record.Record, *PageInfo, error) {
		recs, err := s.svc.QueryAll(ctx, q)
		return recs, nil, err
	})
}

// RunPage executes q for limit results starting at offset.
func (s *Session) RunPage(ctx context.Context, q string, offset, limit int) (*State, error) {
	return s.run(ctx, q, func(ctx context.Context) ([]*record.Record, *PageInfo, error) {
		page, err := s.svc.QueryPage(ctx, q, offset, limit)
		if err != nil {
			return nil, nil, err
		}
		return page.Records, &PageInfo{
			Offset:     offset,
			Limit:      limit,
			TotalCount: page.TotalCount,
			HasMore:    page.HasMore,
		}, nil
	})
}

type fetchFunc func(ctx context.Context) ([]*record.Record, *PageInfo, error)

func (s *Session) run(ctx context.Context, q string, fetch fetchFunc) (*State, error) {
	q = strings.TrimSpace(q)
	gen := s.begin()

	if q == "" {
		next := &State{Error: EmptyQueryMessage}
		s.commit(gen, next)
		return next, ErrEmptyQuery
	}

	recs, page, err := fetch(ctx)
	if err != nil {
		next := &State{Query: q, Error: source.Message(err)}
		if !s.commit(gen, next) {
			return nil, ErrStale
		}
		return next, err
	}

	return s.install(gen, q, recs, page)
}

// Restore installs previously fetched results, as if q had just run.
func (s *Session) Restore(q string, raw []*record.Record) (*State, error) {
	return s.install(s.begin(), strings.TrimSpace(q), raw, nil)
}

func (s *Session) install(gen uint64, q string, recs []*record.Record, page *PageInfo) (*State, error) {
	raw := record.CloneAll(recs)
	if raw == nil {
		raw = []*record.Record{}
	}
	res := shape.Convert(raw, q)

	next := &State{
		Query:    q,
		Raw:      raw,
		Columns:  res.Columns,
		Rows:     res.Rows,
		Fallback: res.Fallback,
		Page:     page,
	}
	if !s.commit(gen, next) {
		return nil, ErrStale
	}
	return next, nil
}

// Clear drops results, errors and the child view.
func (s *Session) Clear() {
	s.commit(s.begin(), &State{})
}

// Expand opens the child view for field of the raw record at rowIndex. It
// reports false, changing nothing, when there is nothing to show.
func (s *Session) Expand(rowIndex int, field string) (*drilldown.Child, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expandLocked(rowIndex, field)
}

// ExpandRow is Expand for a clicked row whose raw index must be recovered.
func (s *Session) ExpandRow(row shape.Row, field string) (*drilldown.Child, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := drilldown.RecoverIndex(s.state.Raw, s.state.Rows, row)
	if !ok {
		return nil, false
	}
	return s.expandLocked(idx, field)
}

func (s *Session) expandLocked(rowIndex int, field string) (*drilldown.Child, bool) {
	child, ok := drilldown.ResolveChild(s.state.Raw, rowIndex, field)
	if !ok {
		return nil, false
	}
	next := *s.state
	next.Child = child
	next.ChildRow = rowIndex
	s.state = &next
	return child, true
}

// CloseChild closes the child view.
func (s *Session) CloseChild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Child == nil {
		return
	}
	next := *s.state
	next.Child = nil
	next.ChildRow = shape.NoIndex
	s.state = &next
}
