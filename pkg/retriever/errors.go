package retriever

import (
	"errors"
	"fmt"
)

// Sentinel errors for well-known API failure modes.
// Use errors.Is() to check.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrRateLimited          = errors.New("rate limited")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
)

// APIError is a non-2xx response from the retriever API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Stage      string
}

func (e *APIError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("retriever: %s (%s, status %d, stage %s)", e.Message, e.Code, e.StatusCode, e.Stage)
	}
	return fmt.Sprintf("retriever: %s (%s, status %d)", e.Message, e.Code, e.StatusCode)
}

// Unwrap maps the error code onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request", "validation_failed":
		return ErrInvalidRequest
	case "unauthorized":
		return ErrUnauthorized
	case "rate_limited":
		return ErrRateLimited
	case "retrieval_unavailable":
		return ErrRetrievalUnavailable
	}
	return nil
}
