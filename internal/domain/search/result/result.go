package result

import "github.com/flockwise/retriever/internal/domain"

// Result is a single ranked hit for one query. Score is comparable only
// within the result set of the query that produced it.
type Result struct {
	doc         domain.Document
	score       float64
	distance    float64
	tier        string
	rankVector  int // 1-based position in the vector sub-search, 0 if absent
	rankLexical int // 1-based position in the lexical sub-search, 0 if absent
}

// New creates a result from a document and its engine score.
func New(doc domain.Document, score float64) Result {
	return Result{doc: doc, score: score}
}

// Document returns the matched passage. The engine never mutates it.
func (r *Result) Document() domain.Document { return r.doc }

// ID returns the stable document identifier used as the fusion key.
func (r *Result) ID() string { return r.doc.ID }

// Score returns the relevance score, larger is more relevant.
func (r *Result) Score() float64 { return r.score }

// Distance returns the raw pre-normalization distance, if recorded.
func (r *Result) Distance() float64 { return r.distance }

// Tier returns the threshold tier that admitted this result on the local
// index path ("" on remote paths).
func (r *Result) Tier() string { return r.tier }

// RankVector returns the 1-based position in the vector sub-search, 0 when
// the document was absent from that list.
func (r *Result) RankVector() int { return r.rankVector }

// RankLexical returns the 1-based position in the lexical sub-search, 0 when
// the document was absent from that list.
func (r *Result) RankLexical() int { return r.rankLexical }

// WithScore returns a copy with the score replaced. Used by the boosting
// stage, which rewrites scores without re-ranking.
func (r Result) WithScore(score float64) Result {
	r.score = score
	return r
}

// WithDistance returns a copy carrying the raw distance.
func (r Result) WithDistance(d float64) Result {
	r.distance = d
	return r
}

// WithTier returns a copy stamped with the admitting threshold tier.
func (r Result) WithTier(tier string) Result {
	r.tier = tier
	return r
}

// WithRanks returns a copy carrying the sub-search positions used by fusion.
func (r Result) WithRanks(vector, lexical int) Result {
	r.rankVector = vector
	r.rankLexical = lexical
	return r
}
