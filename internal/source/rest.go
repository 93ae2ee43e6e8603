package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/qshape/qshape/internal/record"
)

// RESTOptions configures a RESTService.
type RESTOptions struct {
	InstanceURL string
	APIVersion  string
	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string
	// Token overrides TokenEnv when set.
	Token  string
	Client *http.Client
}

// RESTService runs queries against a Salesforce-style REST query endpoint.
// Result sets arrive in server-sized chunks linked by nextRecordsUrl.
type RESTService struct {
	base    string
	version string
	token   string
	client  *http.Client

	mu      sync.Mutex
	cursors map[string]*cursor
}

// cursor tracks the next export batch of one query.
type cursor struct {
	batch int
	next  string
}

type queryResponse struct {
	records []*record.Record
	total   int
	done    bool
	next    string
}

// NewRESTService validates opts and returns a service.
func NewRESTService(opts RESTOptions) (*RESTService, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.InstanceURL), "/")
	if base == "" {
		return nil, fmt.Errorf("rest source: instance URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("rest source: invalid instance URL: %w", err)
	}

	token := opts.Token
	if token == "" && opts.TokenEnv != "" {
		token = os.Getenv(opts.TokenEnv)
	}
	if token == "" {
		return nil, fmt.Errorf("rest source: access token not set (export %s)", opts.TokenEnv)
	}

	version := strings.TrimPrefix(opts.APIVersion, "v")
	if version == "" {
		version = "59.0"
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	return &RESTService{
		base:    base,
		version: version,
		token:   token,
		client:  client,
		cursors: make(map[string]*cursor),
	}, nil
}

func (s *RESTService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *RESTService) queryPath(q string) string {
	return fmt.Sprintf("/services/data/v%s/query?q=%s", s.version, url.QueryEscape(q))
}

func (s *RESTService) Query(ctx context.Context, q string) ([]*record.Record, error) {
	resp, err := s.fetch(ctx, s.queryPath(q))
	if err != nil {
		return nil, err
	}
	return resp.records, nil
}

func (s *RESTService) QueryAll(ctx context.Context, q string) ([]*record.Record, error) {
	var all []*record.Record
	path := s.queryPath(q)
	for {
		resp, err := s.fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.records...)
		if resp.done || resp.next == "" {
			break
		}
		path = resp.next
	}
	if all == nil {
		all = []*record.Record{}
	}
	return all, nil
}

// QueryPage walks the server's chunks until offset+limit records are
// available, then slices.
func (s *RESTService) QueryPage(ctx context.Context, q string, offset, limit int) (*Page, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}

	var seen []*record.Record
	total := 0
	path := s.queryPath(q)
	for {
		resp, err := s.fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		total = resp.total
		seen = append(seen, resp.records...)
		if resp.done || resp.next == "" || (limit > 0 && len(seen) >= offset+limit) {
			break
		}
		path = resp.next
	}

	page := &Page{Records: []*record.Record{}, TotalCount: total}
	if offset < len(seen) {
		end := len(seen)
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}
		page.Records = seen[offset:end]
	}
	page.HasMore = offset+len(page.Records) < total
	return page, nil
}

// ExportBatch returns chunk n of q. Chunks are served from a server-side
// cursor, so n must follow the previous batch of the same query.
func (s *RESTService) ExportBatch(ctx context.Context, q string, batch int) (*Page, error) {
	path := s.queryPath(q)

	s.mu.Lock()
	if batch == 0 {
		delete(s.cursors, q)
	} else {
		cur, ok := s.cursors[q]
		if !ok || cur.batch != batch {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: batch %d", ErrOutOfSequence, batch)
		}
		path = cur.next
	}
	s.mu.Unlock()

	resp, err := s.fetch(ctx, path)
	if err != nil {
		s.mu.Lock()
		delete(s.cursors, q)
		s.mu.Unlock()
		return nil, err
	}

	hasMore := !resp.done && resp.next != ""
	s.mu.Lock()
	if hasMore {
		s.cursors[q] = &cursor{batch: batch + 1, next: resp.next}
	} else {
		delete(s.cursors, q)
	}
	s.mu.Unlock()

	return &Page{Records: resp.records, TotalCount: resp.total, HasMore: hasMore}, nil
}

func (s *RESTService) fetch(ctx context.Context, path string) (*queryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp)
	}

	doc, err := record.DecodeValue(resp.Body)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("decode query response: %w", err)}
	}
	return parseQueryResponse(doc)
}

func parseQueryResponse(doc record.Value) (*queryResponse, error) {
	coll, ok := doc.Collection()
	if !ok {
		return nil, &Error{Err: fmt.Errorf("decode query response: %w", record.ErrNotRecords)}
	}
	recs, err := record.Records(doc)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("decode query response: %w", err)}
	}

	out := &queryResponse{records: recs, total: coll.Count(), done: true}
	if v, ok := doc.Field("done"); ok {
		if b, isBool := v.Scalar().(bool); isBool {
			out.done = b
		}
	}
	if v, ok := doc.Field("nextRecordsUrl"); ok {
		out.next = v.Text()
	}
	return out, nil
}

// apiError is one element of the error array the REST API returns.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var errs []apiError
	if err := json.Unmarshal(body, &errs); err == nil && len(errs) > 0 {
		return &Error{Message: errs[0].Message, Code: errs[0].ErrorCode, Status: resp.StatusCode}
	}
	var single apiError
	if err := json.Unmarshal(body, &single); err == nil && single.Message != "" {
		return &Error{Message: single.Message, Code: single.ErrorCode, Status: resp.StatusCode}
	}
	return &Error{Status: resp.StatusCode, Err: fmt.Errorf("query failed: %s", resp.Status)}
}
