// Package lastresults persists the most recent query results for follow-up
// commands (drill, export, columns).
package lastresults

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qshape/qshape/internal/atomicfile"
	"github.com/qshape/qshape/internal/record"
)

// FileName is the name of the results file inside the state directory.
const FileName = "last-results.json"

// LastResults stores the results of the most recent run.
type LastResults struct {
	Query     string           `json:"query"`
	Source    string           `json:"source,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Columns   []string         `json:"columns"`
	Records   []*record.Record `json:"records"`
}

// Errors
var (
	ErrNoLastResults    = errors.New("no last results available")
	ErrNumberOutOfRange = errors.New("result number out of range")
)

// Path returns the path to the last-results.json file.
func Path(stateDir string) string {
	return filepath.Join(stateDir, FileName)
}

// New builds a LastResults stamped with the current time.
func New(query, source string, columns []string, records []*record.Record) *LastResults {
	if columns == nil {
		columns = []string{}
	}
	if records == nil {
		records = []*record.Record{}
	}
	return &LastResults{
		Query:     query,
		Source:    source,
		Timestamp: time.Now(),
		Columns:   columns,
		Records:   records,
	}
}

// Write saves the last results to disk.
func Write(stateDir string, lr *LastResults) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.Marshal(lr)
	if err != nil {
		return fmt.Errorf("failed to marshal last results: %w", err)
	}

	if err := atomicfile.WriteFile(Path(stateDir), data, 0644); err != nil {
		return fmt.Errorf("failed to write last results: %w", err)
	}
	return nil
}

// Read loads the last results from disk.
func Read(stateDir string) (*LastResults, error) {
	data, err := os.ReadFile(Path(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoLastResults
		}
		return nil, fmt.Errorf("failed to read last results: %w", err)
	}

	var lr LastResults
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("failed to parse last results: %w", err)
	}
	return &lr, nil
}

// GetByNumbers returns the records matching the given numbers (1-indexed).
func (lr *LastResults) GetByNumbers(nums []int) ([]*record.Record, error) {
	out := make([]*record.Record, 0, len(nums))
	for _, num := range nums {
		if num < 1 || num > len(lr.Records) {
			return nil, fmt.Errorf("%w: %d (valid range: 1-%d)", ErrNumberOutOfRange, num, len(lr.Records))
		}
		out = append(out, lr.Records[num-1])
	}
	return out, nil
}
