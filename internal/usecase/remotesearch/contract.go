package remotesearch

import (
	"context"

	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/filter"
	"github.com/flockwise/retriever/internal/domain/search/result"
)

// Repository defines the remote store contract for hybrid retrieval.
type Repository interface {
	SearchKNN(
		ctx context.Context, vector []float32, filters filter.Expression, topK int,
	) ([]result.Result, error)

	SearchBM25(
		ctx context.Context, query string, filters filter.Expression, topK int,
	) ([]result.Result, error)

	SearchHybrid(
		ctx context.Context, query string, vector []float32,
		alpha float64, filters filter.Expression, topK int, explain bool,
	) ([]result.Result, error)

	SupportsNativeHybrid(ctx context.Context) bool
}

// Embedder vectorizes query text; the key carries the category hint.
type Embedder interface {
	EmbedKeyed(ctx context.Context, key, text string) (domain.EmbeddingResult, error)
}
