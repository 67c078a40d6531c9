package db

import "github.com/flockwise/retriever/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
	// RawScores returns the backend distance as-is instead of converting to
	// a similarity.
	RawScores bool
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// HybridQuery is the input for a server-side fused vector+text search.
// Alpha is the vector weight in [0,1]; its complement weighs the text part.
type HybridQuery struct {
	IndexName    string
	Query        string
	Vector       []float32
	Alpha        float64
	TopK         int
	Filters      filter.Expression
	ReturnFields []string
	// Explain requests per-hit score breakdowns when the server offers them.
	Explain bool
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
