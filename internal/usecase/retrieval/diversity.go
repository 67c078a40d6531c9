package retrieval

import (
	"strings"

	"github.com/flockwise/retriever/internal/domain/search/result"
)

// diversityFilter drops near-duplicate passages. The highest-scoring result
// is kept unconditionally; each later candidate is compared against every
// kept result and dropped when its word overlap with any of them exceeds
// threshold. Input must be sorted by score descending. Quadratic in the
// kept count, which stays in the tens.
func diversityFilter(results []result.Result, threshold float64, limit int) []result.Result {
	if len(results) == 0 || limit <= 0 {
		return nil
	}

	kept := make([]result.Result, 0, min(limit, len(results)))
	keptWords := make([]map[string]struct{}, 0, min(limit, len(results)))

	for _, r := range results {
		words := wordSet(r.Document().Text)

		duplicate := false
		for _, kw := range keptWords {
			if overlap(words, kw) > threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		kept = append(kept, r)
		keptWords = append(keptWords, words)
		if len(kept) == limit {
			break
		}
	}
	return kept
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlap is |common| / min(|a|, |b|).
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	common := 0
	for w := range small {
		if _, ok := large[w]; ok {
			common++
		}
	}
	return float64(common) / float64(len(small))
}
