package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qshape/qshape/internal/notify"
	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/shape"
	"github.com/qshape/qshape/internal/source"
	"github.com/qshape/qshape/internal/testutil"
)

const accountQuery = "SELECT Id, Name, (SELECT Id FROM Contacts) FROM Account"

// fakeService serves n generated accounts in batches. Queries listed in
// gates block until their channel is closed.
type fakeService struct {
	n         int
	batchSize int
	err       error
	failBatch int

	mu    sync.Mutex
	gates map[string]chan struct{}
	last  []*record.Record
}

func newFake(n int) *fakeService {
	return &fakeService{n: n, batchSize: 2, failBatch: -1, gates: map[string]chan struct{}{}}
}

func (f *fakeService) gate(q string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[q] = ch
	return ch
}

func (f *fakeService) wait(q string) {
	f.mu.Lock()
	ch := f.gates[q]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (f *fakeService) records(from, to int) []*record.Record {
	var recs []*record.Record
	for i := from; i < to && i < f.n; i++ {
		recs = append(recs, testutil.Record(
			"Id", fmt.Sprintf("a%d", i),
			"Name", fmt.Sprintf("Account %d", i),
			"Contacts", []*record.Record{testutil.Record("Id", fmt.Sprintf("c%d", i))},
		))
	}
	return recs
}

func (f *fakeService) Query(ctx context.Context, q string) ([]*record.Record, error) {
	return f.QueryAll(ctx, q)
}

func (f *fakeService) QueryAll(_ context.Context, q string) ([]*record.Record, error) {
	f.wait(q)
	if f.err != nil {
		return nil, f.err
	}
	recs := f.records(0, f.n)
	f.mu.Lock()
	f.last = recs
	f.mu.Unlock()
	return recs, nil
}

func (f *fakeService) QueryPage(_ context.Context, _ string, offset, limit int) (*source.Page, error) {
	recs := f.records(offset, offset+limit)
	return &source.Page{Records: recs, TotalCount: f.n, HasMore: offset+len(recs) < f.n}, nil
}

func (f *fakeService) ExportBatch(_ context.Context, q string, batch int) (*source.Page, error) {
	if batch == 0 {
		f.wait(q)
	}
	if batch == f.failBatch {
		return nil, &source.Error{Message: "QUERY_TIMEOUT: Your query request was running for too long."}
	}
	from := batch * f.batchSize
	recs := f.records(from, from+f.batchSize)
	return &source.Page{Records: recs, TotalCount: f.n, HasMore: from+len(recs) < f.n}, nil
}

func (f *fakeService) Close() error { return nil }

func TestRun(t *testing.T) {
	svc := newFake(3)
	s := New(svc, nil)

	st, err := s.Run(context.Background(), "  "+accountQuery+" ")
	require.NoError(t, err)
	assert.Equal(t, accountQuery, st.Query)
	assert.Equal(t, []string{"Id", "Name", "Contacts"}, st.Columns)
	require.Len(t, st.Rows, 3)
	require.Len(t, st.Raw, 3)
	assert.Equal(t, "1 rows", st.Rows[0].Text("Contacts"))
	assert.Empty(t, st.Error)

	svc.last[0].Set("Name", record.String("mutated upstream"))
	name, _ := s.State().Raw[0].Get("Name")
	assert.Equal(t, "Account 0", name.Text(), "raw results are deep copies")
}

func TestRunPage(t *testing.T) {
	s := New(newFake(5), nil)
	st, err := s.RunPage(context.Background(), accountQuery, 2, 2)
	require.NoError(t, err)
	require.NotNil(t, st.Page)
	assert.Equal(t, PageInfo{Offset: 2, Limit: 2, TotalCount: 5, HasMore: true}, *st.Page)
	assert.Equal(t, "a2", st.Raw[0].ID())
	assert.Equal(t, 0, st.Rows[0].Index)
}

func TestRunEmptyQuery(t *testing.T) {
	s := New(newFake(2), nil)
	_, err := s.RunAll(context.Background(), accountQuery)
	require.NoError(t, err)

	st, err := s.Run(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, EmptyQueryMessage, st.Error)
	assert.Empty(t, s.State().Rows, "previous results are cleared")
}

func TestRunFailure(t *testing.T) {
	svc := newFake(2)
	s := New(svc, nil)
	_, err := s.Run(context.Background(), accountQuery)
	require.NoError(t, err)

	svc.err = &source.Error{Message: "MALFORMED_QUERY: unexpected token: FORM"}
	st, err := s.Run(context.Background(), "SELECT Id FORM Account")
	require.Error(t, err)
	assert.Equal(t, "MALFORMED_QUERY: unexpected token: FORM", st.Error)
	assert.Empty(t, st.Rows)
	assert.Empty(t, st.Raw)

	svc.err = &source.Error{}
	st, _ = s.Run(context.Background(), accountQuery)
	assert.Equal(t, source.GenericFailure, st.Error)
}

func TestRunDropsStaleResults(t *testing.T) {
	svc := newFake(2)
	s := New(svc, nil)
	slow := "SELECT Id FROM Account LIMIT 1"
	release := svc.gate(slow)

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), slow)
		done <- err
	}()

	// Wait for the slow query to take its generation.
	require.Eventually(t, func() bool { return s.generation() == 1 }, time.Second, time.Millisecond)

	_, err := s.Run(context.Background(), accountQuery)
	require.NoError(t, err)

	close(release)
	require.ErrorIs(t, <-done, ErrStale)
	assert.Equal(t, accountQuery, s.State().Query)
}

func TestExpand(t *testing.T) {
	s := New(newFake(2), nil)
	_, err := s.Run(context.Background(), accountQuery)
	require.NoError(t, err)

	child, ok := s.Expand(1, "Contacts")
	require.True(t, ok)
	assert.Equal(t, "Contacts (1 records)", child.Title())
	assert.Equal(t, 1, s.State().ChildRow)

	_, ok = s.Expand(9, "Contacts")
	assert.False(t, ok)
	assert.NotNil(t, s.State().Child, "a failed expand leaves the view alone")

	s.CloseChild()
	assert.Nil(t, s.State().Child)
	assert.Equal(t, shape.NoIndex, s.State().ChildRow)

	clicked := shape.Row{Index: shape.NoIndex, Cells: map[string]record.Value{"Id": record.String("a0")}}
	_, ok = s.ExpandRow(clicked, "Contacts")
	require.True(t, ok)
	assert.Equal(t, 0, s.State().ChildRow)

	_, err = s.Run(context.Background(), accountQuery)
	require.NoError(t, err)
	assert.Nil(t, s.State().Child, "a new run closes the child view")
}

func TestExportXLSX(t *testing.T) {
	svc := newFake(5)
	rec := &notify.Recorder{}
	s := New(svc, rec)
	dir := t.TempDir()

	var progress [][2]int
	res, err := s.Export(context.Background(), ExportOptions{
		Query:           accountQuery,
		Dir:             dir,
		MaxRowsPerSheet: 2,
		Progress:        func(a, total int) { progress = append(progress, [2]int{a, total}) },
		Now:             func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "account-export-20240102-030405.xlsx"), res.Path)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 3, res.Batches)
	require.NotNil(t, res.Model)
	assert.Len(t, res.Model.SheetsOf("main"), 3)
	assert.FileExists(t, res.Path)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, progress)

	all := rec.All()
	require.Len(t, all, 1)
	assert.Equal(t, notify.Success, all[0].Severity)

	st := s.State().Export
	assert.False(t, st.Running)
	assert.Equal(t, res.Path, st.Path)
}

func TestExportCSVUsesCurrentQuery(t *testing.T) {
	s := New(newFake(3), nil)
	_, err := s.Run(context.Background(), accountQuery)
	require.NoError(t, err)

	res, err := s.Export(context.Background(), ExportOptions{Format: "CSV", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Nil(t, res.Model)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "Id,Name,Contacts\na0,Account 0,1 rows\na1,Account 1,1 rows\na2,Account 2,1 rows\n", string(data))
}

func TestExportFailure(t *testing.T) {
	svc := newFake(5)
	svc.failBatch = 1
	rec := &notify.Recorder{}
	s := New(svc, rec)
	dir := t.TempDir()

	_, err := s.Export(context.Background(), ExportOptions{Query: accountQuery, Dir: dir})
	require.Error(t, err)

	all := rec.All()
	require.Len(t, all, 1)
	assert.Equal(t, notify.Error, all[0].Severity)
	assert.Equal(t, "QUERY_TIMEOUT: Your query request was running for too long.", all[0].Message)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial file is written")

	st := s.State().Export
	assert.Equal(t, 0, st.Accumulated)
	assert.Equal(t, 0, st.Total)
	assert.NotEmpty(t, st.Error)
}

func TestExportSupersededByNewerExport(t *testing.T) {
	svc := newFake(2)
	rec := &notify.Recorder{}
	s := New(svc, rec)
	slow := "SELECT Id FROM Contact"
	release := svc.gate(slow)
	dirA, dirB := t.TempDir(), t.TempDir()

	done := make(chan error, 1)
	go func() {
		_, err := s.Export(context.Background(), ExportOptions{Query: slow, Dir: dirA})
		done <- err
	}()
	require.Eventually(t, func() bool { return s.exportGeneration() == 1 }, time.Second, time.Millisecond)

	_, err := s.Export(context.Background(), ExportOptions{Query: accountQuery, Dir: dirB})
	require.NoError(t, err)

	close(release)
	require.ErrorIs(t, <-done, ErrStale)

	entries, err := os.ReadDir(dirA)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Len(t, rec.All(), 1, "only the newer export reports")
}

func TestExportSupersededWhileAssembling(t *testing.T) {
	for _, format := range []string{FormatXLSX, FormatCSV} {
		t.Run(format, func(t *testing.T) {
			rec := &notify.Recorder{}
			s := New(newFake(3), rec)
			dir := t.TempDir()

			_, err := s.Export(context.Background(), ExportOptions{
				Query:  accountQuery,
				Format: format,
				Dir:    dir,
				// Runs after every batch is fetched, before anything is written.
				Now: func() time.Time {
					s.beginExport()
					return time.Now()
				},
			})
			require.ErrorIs(t, err, ErrStale)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Empty(t, rec.All())
		})
	}
}

func TestExportEmptyQuery(t *testing.T) {
	rec := &notify.Recorder{}
	s := New(newFake(1), rec)
	_, err := s.Export(context.Background(), ExportOptions{})
	require.True(t, errors.Is(err, ErrEmptyQuery))
	require.Len(t, rec.All(), 1)
}

func (s *Session) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Session) exportGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportGen
}
