package remotesearch

import (
	"sort"

	"github.com/flockwise/retriever/internal/domain/search/fusion"
	"github.com/flockwise/retriever/internal/domain/search/result"
)

// fused accumulates one document's evidence from both rankings.
type fused struct {
	res          result.Result
	rankVector   int // 1-based, 0 when absent
	rankLexical  int
	vectorScore  float64
	lexicalScore float64
}

// fuse merges the vector and lexical rankings into one list. Two estimators
// compete per document:
//
//	rrf      = alpha/(rrfK+rankV) + (1-alpha)/(rrfK+rankL), absent rank -> 0
//	weighted = alpha*normV + (1-alpha)*normL, absent score -> 0
//
// and the final score is max(rrf*calibration, weighted). RRF rewards
// agreement between retrievers whose raw scales differ; the weighted term
// preserves magnitude when one retriever is far more confident. Raw scores
// are normalized by each list's maximum so BM25 magnitudes cannot drown the
// cosine similarities.
func fuse(vecList, lexList []result.Result, cfg fusion.Config, topK int) []result.Result {
	if len(vecList) == 0 && len(lexList) == 0 {
		return nil
	}

	merged := make(map[string]*fused, len(vecList)+len(lexList))

	vecMax := maxScore(vecList)
	for i, r := range vecList {
		merged[r.ID()] = &fused{
			res:         r,
			rankVector:  i + 1,
			vectorScore: normalize(r.Score(), vecMax),
		}
	}

	lexMax := maxScore(lexList)
	for i, r := range lexList {
		norm := normalize(r.Score(), lexMax)
		if existing, ok := merged[r.ID()]; ok {
			existing.rankLexical = i + 1
			existing.lexicalScore = norm
			continue
		}
		merged[r.ID()] = &fused{
			res:          r,
			rankLexical:  i + 1,
			lexicalScore: norm,
		}
	}

	results := make([]result.Result, 0, len(merged))
	for _, f := range merged {
		rrf := 0.0
		if f.rankVector > 0 {
			rrf += cfg.Alpha / float64(cfg.RRFK+f.rankVector)
		}
		if f.rankLexical > 0 {
			rrf += (1 - cfg.Alpha) / float64(cfg.RRFK+f.rankLexical)
		}

		weighted := cfg.Alpha*f.vectorScore + (1-cfg.Alpha)*f.lexicalScore

		final := rrf * cfg.Calibration
		if weighted > final {
			final = weighted
		}
		if final < cfg.MinScore {
			continue
		}

		results = append(results,
			f.res.WithScore(final).WithRanks(f.rankVector, f.rankLexical))
	}

	// ID tiebreak keeps the ordering stable across map iteration order.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].ID() < results[j].ID()
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func maxScore(list []result.Result) float64 {
	m := 0.0
	for _, r := range list {
		if r.Score() > m {
			m = r.Score()
		}
	}
	return m
}

func normalize(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return score / max
}
