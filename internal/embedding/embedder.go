// Package embedding provides text embedding behind a narrow interface:
// ONNX runtime (cgo builds), an OpenAI-compatible HTTP backend, and a
// deterministic mock for tests.
package embedding

import (
	"context"
	"errors"
)

// ErrDimensionMismatch reports an embedder returning a vector of unexpected
// dimensionality. Callers must propagate it, never substitute a zero vector.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder produces vector embeddings for text. Implementations are
// deterministic for identical input and model configuration, with fixed
// output dimensionality. EmbedBatch preserves input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
