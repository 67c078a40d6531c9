package localsearch

import (
	"context"

	"github.com/flockwise/retriever/internal/domain"
)

// Embedder vectorizes query text. The cache key carries the category hint so
// hint-qualified lookups never collide.
type Embedder interface {
	EmbedKeyed(ctx context.Context, key, text string) (domain.EmbeddingResult, error)
}
