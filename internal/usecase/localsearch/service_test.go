package localsearch

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/tier"
	"github.com/flockwise/retriever/internal/index"
)

type stubEmbedder struct {
	vec     []float32
	err     error
	lastKey string
}

func (e *stubEmbedder) EmbedKeyed(_ context.Context, key, _ string) (domain.EmbeddingResult, error) {
	e.lastKey = key
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vec}, nil
}

// buildIndex writes artifacts to a temp dir and loads them.
func buildIndex(t *testing.T, docs []domain.Document, vectors [][]float32) *index.Index {
	t.Helper()
	dir := t.TempDir()
	if err := index.WriteArtifacts(dir, docs, vectors); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	idx, err := index.Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	return idx
}

// distanceFor returns an L2 distance whose exp(-d) similarity equals sim.
func distanceFor(sim float64) float32 {
	return float32(-math.Log(sim))
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := buildIndex(t, nil, nil)
	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	results, err := s.Search(context.Background(), "broiler weight", 5, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
	if embed.lastKey != "" {
		t.Error("empty index must not trigger an embedding call")
	}
}

func TestSearch_EmbeddingFailureIsExplicit(t *testing.T) {
	idx := buildIndex(t,
		[]domain.Document{{ID: "1", Text: "x"}},
		[][]float32{{1, 0}},
	)
	embed := &stubEmbedder{err: errors.New("provider down")}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	_, err := s.Search(context.Background(), "q", 5, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.StageOf(err) != domain.StageEmbedding {
		t.Errorf("expected embedding stage, got %q", domain.StageOf(err))
	}
}

func TestSearch_CacheKeyCarriesHint(t *testing.T) {
	idx := buildIndex(t,
		[]domain.Document{{ID: "1", Text: "x"}},
		[][]float32{{1, 0}},
	)
	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	if _, err := s.Search(context.Background(), "day 21 weight", 1, "broiler"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.lastKey != "day 21 weight|broiler" {
		t.Errorf("unexpected cache key: %q", embed.lastKey)
	}

	if _, err := s.Search(context.Background(), "day 21 weight", 1, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.lastKey != "day 21 weight|any" {
		t.Errorf("missing hint must key as any, got %q", embed.lastKey)
	}
}

func TestSearch_TierEscalation(t *testing.T) {
	// One document whose similarity lands at 0.18: below the normal cutoff
	// (0.20), above the permissive cutoff (0.15).
	idx := buildIndex(t,
		[]domain.Document{{ID: "1", Text: "isa brown moulting pattern"}},
		[][]float32{{1 + distanceFor(0.18), 0}},
	)
	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	results, err := s.Search(context.Background(), "ventilation rates", 1, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Tier() != tier.Permissive {
		t.Errorf("expected tier %q, got %q", tier.Permissive, results[0].Tier())
	}
	if math.Abs(results[0].Score()-0.18) > 0.001 {
		t.Errorf("expected score ~0.18, got %f", results[0].Score())
	}
}

func TestSearch_ExactTermBoost(t *testing.T) {
	// Both documents sit at the same distance; only one contains the query
	// terms verbatim, so it must rank first.
	d := distanceFor(0.5)
	idx := buildIndex(t,
		[]domain.Document{
			{ID: "plain", Text: "general flock management notes"},
			{ID: "exact", Text: "ross 308 growth chart"},
		},
		[][]float32{{1 + d, 0}, {1 + d, 0}},
	)
	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	results, err := s.Search(context.Background(), "ross 308 growth", 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID() != "exact" {
		t.Fatalf("expected boosted doc first, got %s", results[0].ID())
	}
	if results[0].Score() <= results[1].Score() {
		t.Error("boosted score must exceed unboosted score")
	}
}

func TestSearch_ScoreClampedAtOne(t *testing.T) {
	// Distance zero gives similarity 1.0; full term overlap would push the
	// boosted score past 1.0 without the clamp.
	idx := buildIndex(t,
		[]domain.Document{{ID: "1", Text: "ross 308 growth"}},
		[][]float32{{1, 0}},
	)
	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	results, err := s.Search(context.Background(), "ross 308 growth", 1, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Score() != 1.0 {
		t.Errorf("expected clamped score 1.0, got %f", results[0].Score())
	}
}

func TestSearch_HintFiltersOnlyTaggedDocs(t *testing.T) {
	d := distanceFor(0.5)
	idx := buildIndex(t,
		[]domain.Document{
			{ID: "broiler-doc", Text: "a", Metadata: domain.Metadata{Species: "broiler"}},
			{ID: "layer-doc", Text: "b", Metadata: domain.Metadata{Species: "layer"}},
			{ID: "untagged-doc", Text: "c"},
		},
		[][]float32{{1 + d, 0}, {1 + d, 0}, {1 + d, 0}},
	)
	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	results, err := s.Search(context.Background(), "q", 3, "broiler")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := make(map[string]bool)
	for _, r := range results {
		ids[r.ID()] = true
	}
	if ids["layer-doc"] {
		t.Error("contradicting species tag must be dropped")
	}
	if !ids["broiler-doc"] || !ids["untagged-doc"] {
		t.Errorf("matching and untagged docs must survive, got %v", ids)
	}
}

func TestSearch_MalformedRecordNeverSurfaces(t *testing.T) {
	// A corrupted document line keeps its vector slot for alignment. Even
	// when that vector is the best match for the query, the placeholder must
	// not reach callers.
	dir := t.TempDir()
	docs := []domain.Document{
		{ID: "valid", Text: "nipple drinker height"},
		{ID: "corrupted", Text: "x"},
	}
	vectors := [][]float32{{1 + distanceFor(0.5), 0}, {1, 0}}
	if err := index.WriteArtifacts(dir, docs, vectors); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	content := "{\"id\":\"valid\",\"text\":\"nipple drinker height\"}\n{broken json\n"
	if err := os.WriteFile(filepath.Join(dir, index.DocumentsFile), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	idx, err := index.Load(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("load index: %v", err)
	}

	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	results, err := s.Search(context.Background(), "drinker height", 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID() != "valid" {
		t.Errorf("expected valid doc, got %q", results[0].ID())
	}

	candidates, _, err := s.Probe(context.Background(), "drinker height", 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range candidates {
		if c.ID() == "" {
			t.Error("placeholder document surfaced in probe candidates")
		}
	}
}

func TestAdmit_ThresholdMonotonicity(t *testing.T) {
	candidates := []candidate{
		{doc: domain.Document{ID: "a"}, score: 0.5},
		{doc: domain.Document{ID: "b"}, score: 0.3},
		{doc: domain.Document{ID: "c"}, score: 0.1},
	}
	ladder := tier.Defaults()

	strict, _ := admit(candidates, ladder.From(tier.Strict), 10)
	permissive, _ := admit(candidates, ladder.From(tier.Permissive), 10)

	strictIDs := make(map[string]bool)
	for _, c := range strict {
		strictIDs[c.doc.ID] = true
	}
	permissiveIDs := make(map[string]bool)
	for _, c := range permissive {
		permissiveIDs[c.doc.ID] = true
	}
	for id := range strictIDs {
		if !permissiveIDs[id] {
			t.Errorf("doc %s admitted at strict but not permissive", id)
		}
	}
}

func TestSearch_Deterministic(t *testing.T) {
	d := distanceFor(0.5)
	idx := buildIndex(t,
		[]domain.Document{
			{ID: "1", Text: "first doc"},
			{ID: "2", Text: "second doc"},
			{ID: "3", Text: "third doc"},
		},
		[][]float32{{1 + d, 0}, {1.2 + d, 0}, {1.4 + d, 0}},
	)
	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	var firstIDs []string
	for run := 0; run < 20; run++ {
		results, err := s.Search(context.Background(), "doc", 3, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID()
		}
		if run == 0 {
			firstIDs = ids
			continue
		}
		for i := range ids {
			if ids[i] != firstIDs[i] {
				t.Fatalf("run %d ordering differs: %v vs %v", run, ids, firstIDs)
			}
		}
	}
}

func TestProbe_TierCounts(t *testing.T) {
	idx := buildIndex(t,
		[]domain.Document{
			{ID: "high", Text: "a"},
			{ID: "mid", Text: "b"},
			{ID: "low", Text: "c"},
		},
		[][]float32{
			{1 + distanceFor(0.5), 0},
			{1 + distanceFor(0.18), 0},
			{1 + distanceFor(0.06), 0},
		},
	)
	embed := &stubEmbedder{vec: []float32{1, 0}}
	s := New(embed, idx, nil, tier.Defaults(), DefaultConfig())

	candidates, counts, err := s.Probe(context.Background(), "q", 3, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected all candidates, got %d", len(candidates))
	}
	if candidates[0].ID() != "high" {
		t.Errorf("candidates must come sorted by score, got %s first", candidates[0].ID())
	}
	// strict 0.45 admits 1; normal 0.20 admits 1; permissive 0.15 admits 2;
	// fallback 0.05 and the terminal tier admit all 3.
	want := map[string]int{
		tier.Strict: 1, tier.Normal: 1, tier.Permissive: 2,
		tier.Fallback: 3, tier.NoThreshold: 3,
	}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("tier %s count = %d, want %d", name, counts[name], n)
		}
	}
}
