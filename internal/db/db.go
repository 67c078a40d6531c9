// Package db defines the storage contract for the remote search backend and
// the query/result types exchanged with it. Two driver families implement
// it: redis (native hybrid queries) and valkey (vector and text only, hybrid
// is fused by the caller). The driver is chosen once at startup.
package db

import (
	"context"
	"time"
)

// Store is the remote search backend facade.
type Store interface {
	Pinger
	Searcher
	// SupportsNativeHybrid reports whether the backend can fuse vector and
	// text queries server-side in a single call.
	SupportsNativeHybrid(ctx context.Context) bool
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
	// SearchHybrid issues a single server-side fused query. Drivers without
	// native hybrid support return ErrHybridNotSupported.
	SearchHybrid(ctx context.Context, q *HybridQuery) (*SearchResult, error)
}
