// Package vector provides vector index implementations over chunk embeddings.
package vector

import "context"

// Index stores embeddings keyed by chunk ID and answers nearest-neighbor
// queries. Implementations may rank by an approximate or non-cosine metric;
// callers that need exact cosine ordering re-rank the hits themselves.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Hit, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Hit is a single nearest-neighbor result. Score is the index's own
// similarity measure (inner product for the flat index).
type Hit struct {
	ChunkID string
	Score   float64
}
