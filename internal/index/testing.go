package index

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/flockwise/retriever/internal/domain"
)

// WriteArtifacts serializes an index into dir in the on-disk layout Load
// expects. Used by the seeder tooling and by package tests.
func WriteArtifacts(dir string, docs []domain.Document, vectors [][]float32) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	buf := make([]byte, 12, 12+4*dim*len(vectors))
	binary.LittleEndian.PutUint32(buf[0:], vectorsMagic)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(dim))
	for _, v := range vectors {
		for _, f := range v {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
			buf = append(buf, b[:]...)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, VectorsFile), buf, 0o600); err != nil {
		return err
	}

	var out []byte
	for _, d := range docs {
		rec := documentRecord{
			ID:       d.ID,
			Text:     d.Text,
			Source:   d.Metadata.Source,
			Species:  d.Metadata.Species,
			Quality:  d.Metadata.QualityScore,
			Breeds:   d.Metadata.Breeds,
			Diseases: d.Metadata.Diseases,
			Meds:     d.Metadata.Medications,
			Extra:    d.Metadata.Extra,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return os.WriteFile(filepath.Join(dir, DocumentsFile), out, 0o600)
}
