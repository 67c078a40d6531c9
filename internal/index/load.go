package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/flockwise/retriever/internal/domain"
)

// Artifact file names inside the index directory.
const (
	VectorsFile   = "vectors.bin"
	DocumentsFile = "documents.jsonl"
)

// vectorsMagic guards against loading a foreign binary blob.
const vectorsMagic = uint32(0x56454331) // "VEC1"

// documentRecord is the on-disk JSONL shape of one passage.
type documentRecord struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Source   string   `json:"source,omitempty"`
	Species  string   `json:"species,omitempty"`
	Quality  *float64 `json:"quality_score,omitempty"`
	Breeds   []string `json:"breeds,omitempty"`
	Diseases []string `json:"diseases,omitempty"`
	Meds     []string `json:"medications,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Load reads the two index artifacts from dir. A vector/document count
// mismatch is logged as a warning and the index is truncated to the shorter
// side; missing or unreadable files are fatal.
func Load(dir string, logger *zap.Logger) (*Index, error) {
	vectors, dim, err := loadVectors(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}

	docs, err := loadDocuments(filepath.Join(dir, DocumentsFile), logger)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	if len(vectors) != len(docs) {
		logger.Warn("Index artifact count mismatch, truncating",
			zap.Int("vectors", len(vectors)),
			zap.Int("documents", len(docs)),
		)
		n := min(len(vectors), len(docs))
		vectors = vectors[:n]
		docs = docs[:n]
	}

	logger.Info("Local index loaded",
		zap.String("dir", dir),
		zap.Int("documents", len(docs)),
		zap.Int("dimensions", dim),
	)

	return &Index{vectors: vectors, docs: docs, dim: dim}, nil
}

// loadVectors reads the vector blob: magic, count, dim (all uint32 LE),
// then count*dim float32 values.
func loadVectors(path string) ([][]float32, int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("%w: read header: %w", domain.ErrIndexCorrupted, err)
	}
	if header[0] != vectorsMagic {
		return nil, 0, fmt.Errorf("%w: bad magic 0x%08x", domain.ErrIndexCorrupted, header[0])
	}
	count, dim := int(header[1]), int(header[2])
	if dim <= 0 || count < 0 {
		return nil, 0, fmt.Errorf("%w: count=%d dim=%d", domain.ErrIndexCorrupted, count, dim)
	}

	buf := make([]byte, 4*dim)
	vectors := make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, 0, fmt.Errorf("%w: vector %d: %w", domain.ErrIndexCorrupted, i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		vectors = append(vectors, vec)
	}
	return vectors, dim, nil
}

// loadDocuments reads the JSONL document file. Malformed lines are logged
// and skipped rather than aborting the load; a skipped line keeps its slot
// so vector positions stay aligned, and Scan never returns those slots.
func loadDocuments(path string, logger *zap.Logger) ([]domain.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []domain.Document
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec documentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("Skipping malformed document record",
				zap.Int("line", line), zap.Error(err))
			docs = append(docs, domain.Document{})
			continue
		}
		if rec.ID == "" {
			logger.Warn("Skipping document without id", zap.Int("line", line))
			docs = append(docs, domain.Document{})
			continue
		}

		docs = append(docs, domain.Document{
			ID:   rec.ID,
			Text: rec.Text,
			Metadata: domain.Metadata{
				Source:       rec.Source,
				Species:      rec.Species,
				QualityScore: rec.Quality,
				Breeds:       rec.Breeds,
				Diseases:     rec.Diseases,
				Medications:  rec.Meds,
				Extra:        rec.Extra,
			},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan documents: %w", domain.ErrIndexCorrupted, err)
	}
	return docs, nil
}
