// Package search adapts the remote store's flat search entries into domain
// results. Documents live in the store as hashes with tag fields holding
// comma-joined entity lists; this package is the only place that knows that
// layout.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/flockwise/retriever/internal/db"
	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/filter"
	"github.com/flockwise/retriever/internal/domain/search/result"
)

// returnFields lists the hash fields fetched per hit.
var returnFields = []string{
	"text", "source", "species", "quality_score",
	"breeds", "diseases", "medications",
}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchHybrid(ctx context.Context, q *db.HybridQuery) (*db.SearchResult, error)
	SupportsNativeHybrid(ctx context.Context) bool
}

// Repo implements the remote search repository over a single KB index.
type Repo struct {
	store     store
	indexName string
}

// New creates a search repository bound to one index.
func New(s store, indexName string) *Repo {
	return &Repo{store: s, indexName: indexName}
}

// SupportsNativeHybrid proxies the capability check from the store.
func (r *Repo) SupportsNativeHybrid(ctx context.Context) bool {
	return r.store.SupportsNativeHybrid(ctx)
}

// SearchKNN performs a vector similarity search with optional pre-filtering.
// Scores come back as cosine similarity in [0,1].
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, filters filter.Expression, topK int,
) ([]result.Result, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.indexName, err)
	}

	return parseResults(sr), nil
}

// SearchBM25 performs a BM25 keyword search. Scores are raw BM25 values and
// are not comparable across queries.
func (r *Repo) SearchBM25(
	ctx context.Context, query string, filters filter.Expression, topK int,
) ([]result.Result, error) {
	q := &db.TextQuery{
		IndexName:    r.indexName,
		Query:        query,
		Filters:      filters,
		TopK:         topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search bm25 %s: %w", r.indexName, err)
	}

	return parseResults(sr), nil
}

// SearchHybrid runs a server-side fused search on stores that support it.
// Filters pass through to the store unmodified.
func (r *Repo) SearchHybrid(
	ctx context.Context, query string, vector []float32,
	alpha float64, filters filter.Expression, topK int, explain bool,
) ([]result.Result, error) {
	q := &db.HybridQuery{
		IndexName:    r.indexName,
		Query:        query,
		Vector:       vector,
		Alpha:        alpha,
		TopK:         topK,
		Filters:      filters,
		ReturnFields: returnFields,
		Explain:      explain,
	}

	sr, err := r.store.SearchHybrid(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search hybrid %s: %w", r.indexName, err)
	}

	return parseResults(sr), nil
}

func parseResults(sr *db.SearchResult) []result.Result {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docID := strings.TrimPrefix(entry.Key, domain.KeyPrefix)
		results = append(results, result.New(parseDocument(docID, entry.Fields), entry.Score))
	}
	return results
}

// parseDocument rebuilds a domain.Document from flat hash fields. Unknown
// fields land in Metadata.Extra so ingestion can add fields without breaking
// retrieval.
func parseDocument(docID string, fields map[string]string) domain.Document {
	doc := domain.Document{ID: docID}

	for k, v := range fields {
		switch k {
		case "text":
			doc.Text = v
		case "source":
			doc.Metadata.Source = v
		case "species":
			doc.Metadata.Species = v
		case "quality_score":
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				doc.Metadata.QualityScore = &f
			}
		case "breeds":
			doc.Metadata.Breeds = splitTags(v)
		case "diseases":
			doc.Metadata.Diseases = splitTags(v)
		case "medications":
			doc.Metadata.Medications = splitTags(v)
		default:
			if doc.Metadata.Extra == nil {
				doc.Metadata.Extra = make(map[string]string)
			}
			doc.Metadata.Extra[k] = v
		}
	}

	return doc
}

func splitTags(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
