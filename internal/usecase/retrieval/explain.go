package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/flockwise/retriever/internal/domain/search/filter"
	"github.com/flockwise/retriever/internal/domain/search/result"
	"github.com/flockwise/retriever/internal/query"
)

// maxExplainCandidates bounds the raw candidate dump.
const maxExplainCandidates = 10

// Explanation is an offline debugging record of how a query would be
// retrieved: the rewritten query, the inferred hint, survivor counts per
// threshold tier, and the top raw candidates before boosting. Production
// answer generation never reads it.
type Explanation struct {
	ID         string         `json:"id"`
	Query      string         `json:"query"`
	Normalized string         `json:"normalized"`
	Hint       string         `json:"hint,omitempty"`
	Mode       Mode           `json:"mode"`
	TierCounts map[string]int `json:"tier_counts,omitempty"`
	Candidates []Candidate    `json:"candidates"`
}

// Candidate is one pre-boost hit in an Explanation.
type Candidate struct {
	DocID       string  `json:"doc_id"`
	Score       float64 `json:"score"`
	Distance    float64 `json:"distance,omitempty"`
	RankVector  int     `json:"rank_vector,omitempty"`
	RankLexical int     `json:"rank_lexical,omitempty"`
}

// Explain traces a query through normalization and the search path without
// boosting, and reports what the pipeline saw.
func (s *Service) Explain(
	ctx context.Context, q string, k int, hint string, filters filter.Expression,
) (*Explanation, error) {
	if k <= 0 {
		k = 1
	}

	normalized := query.Normalize(q)
	if hint == "" {
		hint = query.DetectHint(normalized)
	}

	exp := &Explanation{
		ID:         uuid.NewString(),
		Query:      q,
		Normalized: normalized,
		Hint:       hint,
		Mode:       s.mode,
	}

	var (
		candidates []result.Result
		err        error
	)
	if s.mode == ModeLocal {
		candidates, exp.TierCounts, err = s.local.Probe(ctx, normalized, k, hint)
	} else {
		candidates, err = s.remote.Search(ctx, normalized, fetchFactor*k, hint, filters)
	}
	if err != nil {
		return nil, err
	}

	if len(candidates) > maxExplainCandidates {
		candidates = candidates[:maxExplainCandidates]
	}
	exp.Candidates = make([]Candidate, 0, len(candidates))
	for _, r := range candidates {
		exp.Candidates = append(exp.Candidates, Candidate{
			DocID:       r.ID(),
			Score:       r.Score(),
			Distance:    r.Distance(),
			RankVector:  r.RankVector(),
			RankLexical: r.RankLexical(),
		})
	}
	return exp, nil
}
