package retrieval

import (
	"strings"

	"github.com/flockwise/retriever/internal/domain/search/result"
)

// BoostConfig holds the multiplicative score adjustments applied after
// diversity filtering.
type BoostConfig struct {
	// QualityMax is the maximum fractional boost from a document quality
	// score: a quality of 1.0 multiplies the score by 1+QualityMax.
	QualityMax float64
	// Breed, Disease, and Medication multiply the score when the query text
	// mentions one of the document's listed entities in that category.
	Breed      float64
	Disease    float64
	Medication float64
}

// DefaultBoostConfig returns the tuned defaults.
func DefaultBoostConfig() BoostConfig {
	return BoostConfig{QualityMax: 0.2, Breed: 1.3, Disease: 1.25, Medication: 1.2}
}

// boostScores rewrites scores based on entity and quality metadata. Pure:
// category rules compound multiplicatively in any order, no result is ever
// discarded, and a document with no metadata signals keeps its score
// unchanged. The caller re-sorts afterward.
func boostScores(results []result.Result, queryText string, cfg BoostConfig) []result.Result {
	queryText = strings.ToLower(queryText)

	out := make([]result.Result, len(results))
	for i, r := range results {
		meta := r.Document().Metadata

		multiplier := 1.0
		if q := meta.QualityScore; q != nil {
			multiplier *= 1 + cfg.QualityMax*clamp01(*q)
		}
		if mentionsAny(queryText, meta.Breeds) {
			multiplier *= cfg.Breed
		}
		if mentionsAny(queryText, meta.Diseases) {
			multiplier *= cfg.Disease
		}
		if mentionsAny(queryText, meta.Medications) {
			multiplier *= cfg.Medication
		}

		out[i] = r.WithScore(r.Score() * multiplier)
	}
	return out
}

// mentionsAny reports whether the lowercased query text contains any of the
// entity names. Entity lists are lowercased at ingestion.
func mentionsAny(queryText string, entities []string) bool {
	for _, e := range entities {
		if e != "" && strings.Contains(queryText, e) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
