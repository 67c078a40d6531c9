package retrieval

import (
	"testing"

	"github.com/flockwise/retriever/internal/domain"
	"github.com/flockwise/retriever/internal/domain/search/result"
)

func namedRes(id, text string, score float64) result.Result {
	return result.New(domain.Document{ID: id, Text: text}, score)
}

func TestDiversityFilter_DropsNearDuplicate(t *testing.T) {
	results := []result.Result{
		namedRes("1", "ross 308 broiler growth chart", 0.9),
		namedRes("3", "ross 308 broiler growth chart duplicate", 0.88),
		namedRes("2", "cobb 500 egg production", 0.5),
	}

	kept := diversityFilter(results, 0.7, 3)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if kept[0].ID() != "1" {
		t.Errorf("highest-scoring result must be kept first, got %s", kept[0].ID())
	}
	if kept[1].ID() != "2" {
		t.Errorf("distinct lower-ranked result must survive, got %s", kept[1].ID())
	}
}

func TestDiversityFilter_KeepsDistinctContent(t *testing.T) {
	results := []result.Result{
		namedRes("1", "coccidiosis treatment with amprolium", 0.9),
		namedRes("2", "newcastle disease vaccination schedule", 0.8),
		namedRes("3", "brooding temperature for day old chicks", 0.7),
	}

	kept := diversityFilter(results, 0.7, 3)
	if len(kept) != 3 {
		t.Fatalf("distinct passages must all survive, got %d", len(kept))
	}
}

func TestDiversityFilter_Idempotent(t *testing.T) {
	results := []result.Result{
		namedRes("1", "ross 308 broiler growth chart", 0.9),
		namedRes("2", "ross 308 broiler growth chart copy", 0.8),
		namedRes("3", "layer lighting program", 0.7),
	}

	once := diversityFilter(results, 0.7, 10)
	twice := diversityFilter(once, 0.7, 10)
	if len(once) != len(twice) {
		t.Fatalf("filter must be idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID() != twice[i].ID() {
			t.Errorf("position %d differs: %s vs %s", i, once[i].ID(), twice[i].ID())
		}
	}
}

func TestDiversityFilter_Limit(t *testing.T) {
	results := []result.Result{
		namedRes("1", "completely distinct first passage", 0.9),
		namedRes("2", "another unrelated second entry", 0.8),
		namedRes("3", "yet more different third text", 0.7),
	}

	kept := diversityFilter(results, 0.7, 2)
	if len(kept) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(kept))
	}
}

func TestDiversityFilter_Empty(t *testing.T) {
	if out := diversityFilter(nil, 0.7, 5); out != nil {
		t.Fatalf("expected nil, got %v", out)
	}
}

func TestOverlap_UsesSmallerSet(t *testing.T) {
	a := wordSet("ross 308 growth")
	b := wordSet("ross 308 growth chart and extended notes")
	// all 3 words of the smaller set appear in the larger one
	if got := overlap(a, b); got != 1.0 {
		t.Errorf("overlap = %f, want 1.0", got)
	}
}
