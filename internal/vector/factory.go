package vector

import "fmt"

// IndexType selects the vector index backend.
type IndexType string

const (
	// IndexTypeFlat is exhaustive in-memory search; fine below ~10k vectors.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS uses FAISS for ANN search at scale. Requires the FAISS
	// library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewIndex creates a vector index of the given type with the embedder's
// output dimensionality. Empty type defaults to flat.
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown vector index type: %s (supported: flat, faiss)", indexType)
	}
}
