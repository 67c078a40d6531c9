package domain

// KeyPrefix namespaces every document key in the remote store.
const KeyPrefix = "retriever:"

// Document is an indexed knowledge-base passage. Documents are produced by
// the ingestion pipeline and are immutable from the retrieval engine's point
// of view: search code holds references and never mutates them.
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Metadata carries the structured fields attached to a passage at ingestion
// time. Entity lists hold names recognized by the extraction pipeline,
// lowercased. QualityScore is nil when the source had no editorial rating.
type Metadata struct {
	Source       string
	Species      string
	QualityScore *float64
	Breeds       []string
	Diseases     []string
	Medications  []string
	Extra        map[string]string
}

// HasSpecies reports whether the document is tagged with a species/category
// hint. Untagged documents are never dropped by hint filtering.
func (m Metadata) HasSpecies() bool { return m.Species != "" }
