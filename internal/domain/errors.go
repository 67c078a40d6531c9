package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit at the embedding provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrRetrievalUnavailable signals that no search backend could serve the
	// request (remote unreachable on both native and manual paths). Callers
	// distinguish this from a valid empty result set.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrIndexNotLoaded signals that the local index path was requested but
	// no index is loaded.
	ErrIndexNotLoaded = errors.New("local index not loaded")
	// ErrIndexCorrupted signals unreadable local index artifacts.
	ErrIndexCorrupted = errors.New("local index corrupted")
	// ErrHybridNotSupported signals that the backend lacks a native hybrid
	// query and the caller must fuse manually.
	ErrHybridNotSupported = errors.New("native hybrid search not supported by backend")
)

// Pipeline stages, used to attribute failures to the step that produced them.
const (
	StageEmbedding   = "embedding"
	StageLocalScan   = "local_scan"
	StageRemoteQuery = "remote_query"
)

// StageError wraps a failure with the pipeline stage that produced it, so a
// caller can tell an embedding outage from a backend outage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// NewStageError attributes err to a pipeline stage.
func NewStageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of err, or "" if err carries none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// APIStatusError wraps ErrEmbeddingProviderError with the upstream HTTP status.
type APIStatusError struct {
	StatusCode int
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("%s: upstream status %d", ErrEmbeddingProviderError.Error(), e.StatusCode)
}

func (e *APIStatusError) Unwrap() error { return ErrEmbeddingProviderError }
