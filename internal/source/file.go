package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/qshape/qshape/internal/record"
)

var fixtureExts = []string{".json", ".yaml", ".yml"}

// FileOptions configures a FileService.
type FileOptions struct {
	// RecordsPath locates records inside an envelope document.
	RecordsPath string
	PageSize    int
	BatchSize   int
}

// FileService answers queries from a directory holding one fixture per
// object: Account.json, Contact.yaml and so on.
type FileService struct {
	*paged
	dir string
	sel *Selector

	mu    sync.Mutex
	cache map[string][]*record.Record
}

// NewFileService returns a FileService rooted at dir.
func NewFileService(dir string, opts FileOptions) (*FileService, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open fixture directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("open fixture directory: %s is not a directory", dir)
	}
	if opts.RecordsPath == "" {
		opts.RecordsPath = "$.records"
	}
	sel, err := ParseSelector(opts.RecordsPath)
	if err != nil {
		return nil, err
	}

	s := &FileService{dir: dir, sel: sel, cache: make(map[string][]*record.Record)}
	s.paged = &paged{table: s, pageSize: positive(opts.PageSize, 200), batchSize: positive(opts.BatchSize, 2000)}
	return s, nil
}

func (s *FileService) Close() error { return nil }

// Objects lists the objects that have a fixture file.
func (s *FileService) Objects() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture directory: %w", err)
	}
	var objects []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range fixtureExts {
			if ext == want {
				objects = append(objects, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
				break
			}
		}
	}
	return objects, nil
}

// Load reads every record of object from its fixture.
func (s *FileService) Load(object string) ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(object)
	if recs, ok := s.cache[key]; ok {
		return recs, nil
	}

	path, err := s.find(object)
	if err != nil {
		return nil, err
	}
	recs, err := ReadFixture(path, s.sel)
	if err != nil {
		return nil, err
	}
	s.cache[key] = recs
	return recs, nil
}

// find matches object against fixture names case-insensitively.
func (s *FileService) find(object string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read fixture directory: %w", err)
	}
	for _, ext := range fixtureExts {
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(e.Name(), object+ext) {
				return filepath.Join(s.dir, e.Name()), nil
			}
		}
	}
	return "", &Error{
		Err:     fmt.Errorf("%w: %s", ErrUnknownObject, object),
		Message: fmt.Sprintf("sObject type '%s' is not supported.", object),
		Code:    "INVALID_TYPE",
	}
}

func (s *FileService) count(_ context.Context, object string) (int, error) {
	recs, err := s.Load(object)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (s *FileService) slice(ctx context.Context, object string, offset, limit int) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, err := s.Load(object)
	if err != nil {
		return nil, err
	}
	if offset >= len(recs) {
		return []*record.Record{}, nil
	}
	end := len(recs)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return record.CloneAll(recs[offset:end]), nil
}

// ReadFixture decodes a JSON or YAML fixture and extracts its records with sel.
func ReadFixture(path string, sel *Selector) ([]*record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var doc record.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = record.DecodeYAML(data)
	default:
		doc, err = record.DecodeValue(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", filepath.Base(path), err)
	}

	recs, err := sel.Records(doc)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", filepath.Base(path), err)
	}
	return recs, nil
}

func positive(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}
