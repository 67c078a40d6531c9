package search

import (
	"context"
	"testing"

	"github.com/flockwise/retriever/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn            func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchBM25Fn           func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchHybridFn         func(ctx context.Context, q *db.HybridQuery) (*db.SearchResult, error)
	supportsNativeHybridFn func(ctx context.Context) bool
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchHybrid(ctx context.Context, q *db.HybridQuery) (*db.SearchResult, error) {
	if m.searchHybridFn != nil {
		return m.searchHybridFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SupportsNativeHybrid(ctx context.Context) bool {
	if m.supportsNativeHybridFn != nil {
		return m.supportsNativeHybridFn(ctx)
	}
	return false
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "retriever:kb:idx"), ms
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3}
}
