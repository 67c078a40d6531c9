package retriever

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	Query   string  `json:"query"`
	K       int     `json:"k,omitempty"`
	Hint    string  `json:"hint,omitempty"`
	Filters *Filter `json:"filters,omitempty"`
}

// Filter carries exact-match metadata constraints. Only the remote search
// path applies them.
type Filter struct {
	Must    map[string]string `json:"must,omitempty"`
	MustNot map[string]string `json:"must_not,omitempty"`
}

// RetrieveResponse is the ranked result set for one query.
type RetrieveResponse struct {
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Result is one ranked passage.
type Result struct {
	ID           string            `json:"id"`
	Text         string            `json:"text"`
	Score        float64           `json:"score"`
	Tier         string            `json:"tier,omitempty"`
	Source       string            `json:"source,omitempty"`
	Species      string            `json:"species,omitempty"`
	QualityScore *float64          `json:"quality_score,omitempty"`
	Breeds       []string          `json:"breeds,omitempty"`
	Diseases     []string          `json:"diseases,omitempty"`
	Medications  []string          `json:"medications,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Explanation is the debugging trace returned by GET /v1/explain.
type Explanation struct {
	ID         string         `json:"id"`
	Query      string         `json:"query"`
	Normalized string         `json:"normalized"`
	Hint       string         `json:"hint,omitempty"`
	Mode       string         `json:"mode"`
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

// HealthReport is the component status returned by GET /health.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
