package lending

import (
	"errors"
)

var (
	// ErrValidation marks a malformed checkout or renewal request.
	// It is surfaced to the caller and must never be retried automatically.
	ErrValidation = errors.New("invalid request")

	// ErrEmptyBatch is returned when a checkout request contains no items.
	ErrEmptyBatch = errors.New("checkout batch must not be empty")

	// ErrUnknownItem is returned by CatalogLookup implementations when an
	// item/edition name pair does not resolve to a catalog entry.
	ErrUnknownItem = errors.New("unknown item or edition name")

	// ErrHistoryUnavailable marks a failed loan history query.
	// The engine fails closed: it never defaults to allow under uncertainty.
	ErrHistoryUnavailable = errors.New("loan history query failed")

	// ErrCatalogUnavailable marks a failed catalog lookup.
	// The engine fails closed: it never defaults to allow under uncertainty.
	ErrCatalogUnavailable = errors.New("catalog lookup failed")

	// ErrInvalidConfig is returned when a non-positive threshold is supplied.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrNilCollaborator is returned when a required collaborator is nil.
	ErrNilCollaborator = errors.New("nil collaborator supplied")
)

// Sentinel errors shared by the storage engine implementations.
var (
	ErrEmptyTableNameSupplied    = errors.New("empty table name supplied")
	ErrNilDatabaseConnection     = errors.New("nil database connection supplied")
	ErrBuildingQueryFailed       = errors.New("building sql query failed")
	ErrQueryingRecordsFailed     = errors.New("querying circulation records failed")
	ErrScanningDBRowFailed       = errors.New("scanning database row failed")
	ErrDecodingRecordFailed      = errors.New("decoding circulation record payload failed")
	ErrEncodingRecordFailed      = errors.New("encoding circulation record payload failed")
	ErrRecordingFailed           = errors.New("recording circulation record failed")
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected count failed")
)

// IsCollaboratorUnavailable reports whether err stems from a failed
// history or catalog collaborator call. Such failures are transient from
// the engine's perspective; retry policy belongs to the caller layer.
func IsCollaboratorUnavailable(err error) bool {
	return errors.Is(err, ErrHistoryUnavailable) || errors.Is(err, ErrCatalogUnavailable)
}
