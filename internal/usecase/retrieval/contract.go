package retrieval

import (
	"context"

	"github.com/flockwise/retriever/internal/domain/search/filter"
	"github.com/flockwise/retriever/internal/domain/search/result"
)

// LocalSearcher searches the in-process vector index.
type LocalSearcher interface {
	Search(ctx context.Context, normalized string, k int, hint string) ([]result.Result, error)

	// Probe returns the raw candidate set and per-tier survivor counts for
	// diagnostics.
	Probe(ctx context.Context, normalized string, k int, hint string) ([]result.Result, map[string]int, error)
}

// RemoteSearcher runs hybrid retrieval against the remote store.
type RemoteSearcher interface {
	Search(ctx context.Context, normalized string, k int, hint string, filters filter.Expression) ([]result.Result, error)
}
