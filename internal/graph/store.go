// Package graph persists chunk nodes and similarity edges and builds the
// similarity graph over embedded chunks.
package graph

import (
	"context"
	"errors"

	"github.com/papergraph/papergraph/internal/models"
)

// ErrBackendUnavailable reports that the graph store cannot be reached. At
// setup time it is fatal for indexing; at query time callers may fall back
// to another retriever.
var ErrBackendUnavailable = errors.New("graph store unavailable")

// Store is the persisted graph of Chunk nodes and SIMILAR_TO edges.
// The similarity indexer is the only writer; retrievers read only.
type Store interface {
	// UpsertChunks inserts or updates nodes keyed by chunk ID. Re-indexing
	// the same chunk updates its properties, never duplicates the node.
	UpsertChunks(ctx context.Context, chunks []*models.Chunk) error

	// UpsertEdges merges undirected edges keyed by unordered chunk-ID pair:
	// an existing edge gets its weight updated, never a duplicate row.
	UpsertEdges(ctx context.Context, edges []models.SimilarityEdge) error

	// GetChunks returns the stored chunks for the given IDs, embeddings
	// included. Unknown IDs are omitted.
	GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error)

	// AllEmbeddings returns every node's ID and embedding, for rebuilding
	// the vector index after a restart.
	AllEmbeddings(ctx context.Context) (ids []string, vectors [][]float32, err error)

	// DeleteDocument removes all chunks of a document and their incident
	// edges. Returns the IDs of the removed chunks so callers can evict
	// them from the vector index.
	DeleteDocument(ctx context.Context, docID string) ([]string, error)

	// DistinctMetadata returns up to limit distinct non-empty values of a
	// named metadata field across all nodes.
	DistinctMetadata(ctx context.Context, field string, limit int) ([]string, error)

	// Neighbors returns the edges incident to the given chunk, heaviest
	// first.
	Neighbors(ctx context.Context, chunkID string, limit int) ([]models.SimilarityEdge, error)

	ChunkCount(ctx context.Context) (int64, error)
	EdgeCount(ctx context.Context) (int64, error)

	// Clear removes all nodes and edges.
	Clear(ctx context.Context) error

	Close() error
}
