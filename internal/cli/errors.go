package cli

import (
	"errors"

	"github.com/qshape/qshape/internal/export"
	"github.com/qshape/qshape/internal/session"
	"github.com/qshape/qshape/internal/source"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"

	// Source errors
	ErrSourceUnavailable = "SOURCE_UNAVAILABLE"
	ErrObjectUnknown     = "OBJECT_UNKNOWN"
	ErrQueryFailed       = "QUERY_FAILED"
	ErrQueryEmpty        = "QUERY_EMPTY"

	// Result errors
	ErrNoResults     = "NO_RESULTS"
	ErrRowNotFound   = "ROW_NOT_FOUND"
	ErrNotDrillable  = "NOT_DRILLABLE"
	ErrExportFailed  = "EXPORT_FAILED"
	ErrBatchFailed   = "BATCH_FAILED"
	ErrFileReadError = "FILE_READ_ERROR"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnFallbackFlatten = "FALLBACK_FLATTEN"
	WarnMoreResults     = "MORE_RESULTS"
)

// queryErrorCode maps a query or export failure onto a stable error code.
func queryErrorCode(err error) string {
	var batchErr *export.BatchError
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		return ErrQueryEmpty
	case errors.Is(err, source.ErrUnknownObject), errors.Is(err, source.ErrNoObject):
		return ErrObjectUnknown
	case errors.As(err, &batchErr):
		return ErrBatchFailed
	}
	return ErrQueryFailed
}
