// Package source executes queries against a backing store and returns
// hierarchical records. See FileService, SQLiteService and RESTService.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/qshape/qshape/internal/config"
	"github.com/qshape/qshape/internal/record"
)

// Page is one slice of a larger result set.
type Page struct {
	Records    []*record.Record
	TotalCount int
	HasMore    bool
}

// Service is the query-execution collaborator.
type Service interface {
	// Query returns the first page of results.
	Query(ctx context.Context, q string) ([]*record.Record, error)
	// QueryAll returns every result with no page limit.
	QueryAll(ctx context.Context, q string) ([]*record.Record, error)
	// QueryPage returns limit results starting at offset.
	QueryPage(ctx context.Context, q string, offset, limit int) (*Page, error)
	// ExportBatch returns batch n of an export. The batch size belongs to the
	// service, and batches must be requested in order starting at 0.
	ExportBatch(ctx context.Context, q string, batch int) (*Page, error)
	Close() error
}

// GenericFailure is shown when a service fails without a message of its own.
const GenericFailure = "An error occurred while executing the query."

var (
	// ErrUnknownObject indicates the query's FROM object has no backing data.
	ErrUnknownObject = errors.New("unknown object")
	// ErrNoObject indicates the FROM object could not be read from the query.
	ErrNoObject = errors.New("unable to determine the queried object")
	// ErrOutOfSequence indicates an export batch was requested out of order.
	ErrOutOfSequence = errors.New("export batch requested out of sequence")
)

// Error carries a message reported by the service itself.
type Error struct {
	Message string
	Code    string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return GenericFailure
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the user-facing text for err: the service's own message
// when it provided one, else a generic fallback.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericFailure
}

// Open builds the service selected by cfg.Source.Kind.
func Open(cfg *config.Config) (Service, error) {
	cfg = cfg.WithDefaults()
	src := cfg.Source

	switch src.Kind {
	case config.SourceFile:
		return NewFileService(src.Path, FileOptions{
			RecordsPath: src.RecordsPath,
			PageSize:    src.PageSize,
			BatchSize:   src.BatchSize,
		})
	case config.SourceSQLite:
		return OpenSQLite(src.Path, src.PageSize, src.BatchSize)
	case config.SourceREST:
		return NewRESTService(RESTOptions{
			InstanceURL: src.InstanceURL,
			APIVersion:  src.APIVersion,
			TokenEnv:    src.TokenEnv,
		})
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}
