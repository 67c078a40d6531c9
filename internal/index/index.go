// Package index implements the in-process vector index used on the local
// retrieval path. An index is loaded once at startup from two artifacts (a
// vector blob and a parallel document file) and is immutable afterwards;
// concurrent scans need no locking.
package index

import (
	"math"
	"sort"

	"github.com/flockwise/retriever/internal/domain"
)

// Index holds document vectors and the parallel document slice. Positions
// correspond one-to-one.
type Index struct {
	vectors [][]float32
	docs    []domain.Document
	dim     int
}

// Hit is a raw scan result: a document position and its L2 distance to the
// query vector.
type Hit struct {
	Position int
	Distance float64
}

// Size returns the number of searchable documents.
func (ix *Index) Size() int { return len(ix.docs) }

// Dimensions returns the vector width.
func (ix *Index) Dimensions() int { return ix.dim }

// Document returns the document at a scan position.
func (ix *Index) Document(pos int) domain.Document { return ix.docs[pos] }

// Scan computes the L2 distance from query to every indexed vector and
// returns the limit nearest hits, ascending by distance. Placeholder slots
// left by malformed document records keep vector positions aligned but are
// never returned. An empty index yields an empty slice. Ties break by
// position so output is deterministic.
func (ix *Index) Scan(query []float32, limit int) []Hit {
	if ix.Size() == 0 || limit <= 0 {
		return nil
	}

	hits := make([]Hit, 0, len(ix.vectors))
	for i, v := range ix.vectors {
		if ix.docs[i].ID == "" {
			continue
		}
		hits = append(hits, Hit{Position: i, Distance: l2Distance(query, v)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})

	if limit > len(hits) {
		limit = len(hits)
	}
	return hits[:limit]
}

func l2Distance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
