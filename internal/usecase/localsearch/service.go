// Package localsearch runs adaptive-threshold retrieval against the
// in-process vector index. The relevance bar relaxes tier by tier over a
// single over-fetched candidate set, so one embedding call and one index
// scan serve every escalation step.
package localsearch

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/panjf2000/ants/v2"

	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/result"
	"github.com/flockwise/retriever/internal/domain/search/tier"
	"github.com/flockwise/retriever/internal/index"
	"github.com/flockwise/retriever/internal/query"
)

// overFetchFactor over-fetches nearest neighbors so hint filtering and
// thresholding still leave enough candidates.
const overFetchFactor = 3

// Config tunes the distance-to-score mapping.
type Config struct {
	// Decay converts raw L2 distance d to similarity exp(-d*Decay).
	Decay float64
	// BoostFactor scales the exact-term-overlap boost (1 + r*BoostFactor).
	BoostFactor float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{Decay: 1.0, BoostFactor: 0.5}
}

// Service searches the local index.
type Service struct {
	embed Embedder
	idx   *index.Index
	pool  *ants.Pool
	tiers tier.List
	cfg   Config
}

// New creates a local search service. pool may be nil, in which case scans
// run on the caller's goroutine.
func New(embed Embedder, idx *index.Index, pool *ants.Pool, tiers tier.List, cfg Config) *Service {
	return &Service{embed: embed, idx: idx, pool: pool, tiers: tiers, cfg: cfg}
}

// candidate is a scored hit before tier filtering.
type candidate struct {
	doc      domain.Document
	score    float64
	distance float64
}

// Search returns up to k results for a normalized query, relaxing the
// threshold tier until enough survive. An empty index yields an empty result
// without error; an embedding failure fails the whole search.
func (s *Service) Search(ctx context.Context, normalized string, k int, hint string) ([]result.Result, error) {
	if k <= 0 || s.idx.Size() == 0 {
		return nil, nil
	}

	cacheKey := normalized + "|" + query.HintOrAny(hint)
	emb, err := s.embed.EmbedKeyed(ctx, cacheKey, normalized)
	if err != nil {
		return nil, domain.NewStageError(domain.StageEmbedding, err)
	}

	limit := min(overFetchFactor*k, s.idx.Size())
	hits, err := s.scan(ctx, emb.Embedding, limit)
	if err != nil {
		return nil, domain.NewStageError(domain.StageLocalScan, err)
	}

	candidates := s.score(normalized, hint, hits)
	survivors, tierName := admit(candidates, s.tiers.From(tier.Normal), k)

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].score > survivors[j].score
	})
	if len(survivors) > k {
		survivors = survivors[:k]
	}

	results := make([]result.Result, 0, len(survivors))
	for _, c := range survivors {
		r := result.New(c.doc, c.score).WithDistance(c.distance).WithTier(tierName)
		results = append(results, r)
	}
	return results, nil
}

// Probe returns the full over-fetched candidate set, sorted by score, plus
// survivor counts per threshold tier. Diagnostics only; production retrieval
// goes through Search.
func (s *Service) Probe(ctx context.Context, normalized string, k int, hint string) ([]result.Result, map[string]int, error) {
	counts := make(map[string]int, s.tiers.Len())
	for _, t := range s.tiers.Tiers() {
		counts[t.Name] = 0
	}

	if k <= 0 || s.idx.Size() == 0 {
		return nil, counts, nil
	}

	cacheKey := normalized + "|" + query.HintOrAny(hint)
	emb, err := s.embed.EmbedKeyed(ctx, cacheKey, normalized)
	if err != nil {
		return nil, nil, domain.NewStageError(domain.StageEmbedding, err)
	}

	limit := min(overFetchFactor*k, s.idx.Size())
	hits, err := s.scan(ctx, emb.Embedding, limit)
	if err != nil {
		return nil, nil, domain.NewStageError(domain.StageLocalScan, err)
	}

	candidates := s.score(normalized, hint, hits)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	results := make([]result.Result, 0, len(candidates))
	for _, c := range candidates {
		for _, t := range s.tiers.Tiers() {
			if c.score >= t.MinScore {
				counts[t.Name]++
			}
		}
		results = append(results, result.New(c.doc, c.score).WithDistance(c.distance))
	}
	return results, counts, nil
}

// scan runs the index scan on the worker pool so CPU-bound work does not
// monopolize request goroutines.
func (s *Service) scan(ctx context.Context, vec []float32, limit int) ([]index.Hit, error) {
	if s.pool == nil {
		return s.idx.Scan(vec, limit), nil
	}

	done := make(chan []index.Hit, 1)
	if err := s.pool.Submit(func() { done <- s.idx.Scan(vec, limit) }); err != nil {
		// Pool saturated or closed; scanning inline is still correct.
		return s.idx.Scan(vec, limit), nil
	}

	select {
	case hits := <-done:
		return hits, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// score converts raw distances to similarities, applies the exact-term
// boost, and drops candidates whose species tag contradicts the hint.
// Untagged documents always survive hint filtering.
func (s *Service) score(normalized, hint string, hits []index.Hit) []candidate {
	terms := termSet(normalized)

	candidates := make([]candidate, 0, len(hits))
	for _, h := range hits {
		doc := s.idx.Document(h.Position)
		if hint != "" && doc.Metadata.HasSpecies() && doc.Metadata.Species != hint {
			continue
		}

		sim := math.Exp(-h.Distance * s.cfg.Decay)
		if sim > 1 {
			sim = 1
		}

		r := overlapFraction(terms, doc.Text)
		score := sim * (1 + r*s.cfg.BoostFactor)
		if score > 1 {
			score = 1
		}

		candidates = append(candidates, candidate{doc: doc, score: score, distance: h.Distance})
	}
	return candidates
}

// admit walks the escalation ladder over one candidate set and returns the
// first tier's survivors that reach k, or the terminal tier's survivors.
func admit(candidates []candidate, ladder []tier.Tier, k int) ([]candidate, string) {
	var survivors []candidate
	tierName := ""

	for _, t := range ladder {
		survivors = survivors[:0]
		for _, c := range candidates {
			if c.score >= t.MinScore {
				survivors = append(survivors, c)
			}
		}
		tierName = t.Name
		if len(survivors) >= k {
			break
		}
	}

	out := make([]candidate, len(survivors))
	copy(out, survivors)
	return out, tierName
}

func termSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlapFraction is the fraction of query terms present verbatim in text.
func overlapFraction(terms map[string]struct{}, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	words := termSet(strings.ToLower(text))
	common := 0
	for t := range terms {
		if _, ok := words[t]; ok {
			common++
		}
	}
	return float64(common) / float64(len(terms))
}
