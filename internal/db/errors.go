package db

import "errors"

// Sentinel errors for backend operations.
var (
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrHybridNotSupported is returned by SearchHybrid on drivers without a
	// server-side fused query.
	ErrHybridNotSupported = errors.New("db: native hybrid search not supported")
)

// Op constants map to backend command names for error context.
const (
	OpSearch = "FT.SEARCH"
	OpHybrid = "FT.HYBRID"
	OpPing   = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
