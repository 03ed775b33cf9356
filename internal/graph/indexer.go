package graph

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/papergraph/papergraph/internal/embedding"
	"github.com/papergraph/papergraph/internal/models"
	"github.com/papergraph/papergraph/internal/vector"
)

// IndexerConfig controls similarity-edge construction.
type IndexerConfig struct {
	// EdgeSimilarityThreshold admits an edge when the pair's cosine
	// similarity reaches it, regardless of rank.
	EdgeSimilarityThreshold float64
	// EdgeTopK admits each chunk's K most similar partners even below the
	// threshold, so sparse corners of the corpus stay connected.
	EdgeTopK int
}

// Indexer embeds chunks, persists them as graph nodes, connects them with
// weighted similarity edges, and mirrors their embeddings into the vector
// index. Index is idempotent: re-running it over the same chunks updates
// nodes and edges in place.
type Indexer struct {
	store    Store
	embedder embedding.Embedder
	index    vector.Index
	cfg      IndexerConfig
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the indexer's logger.
func WithLogger(logger *zap.Logger) IndexerOption {
	return func(ix *Indexer) { ix.logger = logger }
}

// NewIndexer builds an Indexer over the given store, embedder and vector
// index.
func NewIndexer(store Store, embedder embedding.Embedder, index vector.Index, cfg IndexerConfig, opts ...IndexerOption) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("indexer requires a store")
	}
	if embedder == nil {
		return nil, fmt.Errorf("indexer requires an embedder")
	}
	if index == nil {
		return nil, fmt.Errorf("indexer requires a vector index")
	}
	if cfg.EdgeSimilarityThreshold < -1 || cfg.EdgeSimilarityThreshold > 1 {
		return nil, fmt.Errorf("edge similarity threshold %v outside [-1, 1]", cfg.EdgeSimilarityThreshold)
	}
	if cfg.EdgeTopK < 0 {
		return nil, fmt.Errorf("edge top-k must be non-negative, got %d", cfg.EdgeTopK)
	}
	ix := &Indexer{
		store:    store,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Index embeds the chunks that lack embeddings, upserts all of them as
// nodes, builds similarity edges among the batch, and adds the batch to the
// vector index. A chunk arriving with an embedding already set keeps it.
func (ix *Indexer) Index(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	if err := ix.embedMissing(ctx, chunks); err != nil {
		return err
	}

	if err := ix.store.UpsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	edges := buildEdges(chunks, ix.cfg.EdgeSimilarityThreshold, ix.cfg.EdgeTopK)
	if err := ix.store.UpsertEdges(ctx, edges); err != nil {
		return fmt.Errorf("upsert edges: %w", err)
	}

	ids := make([]string, len(chunks))
	vecs := make([][]float32, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		vecs[i] = vector.Normalized(ch.Embedding)
	}
	// Drop any previous entries for these IDs so re-indexing replaces
	// vectors instead of duplicating them.
	if err := ix.index.Remove(ctx, ids); err != nil {
		return fmt.Errorf("remove stale vectors: %w", err)
	}
	if err := ix.index.Add(ctx, ids, vecs); err != nil {
		return fmt.Errorf("add to vector index: %w", err)
	}

	ix.logger.Info("indexed chunks",
		zap.Int("chunks", len(chunks)),
		zap.Int("edges", len(edges)))
	return nil
}

// RemoveDocument deletes a document's chunks, their edges, and their
// vector index entries.
func (ix *Indexer) RemoveDocument(ctx context.Context, docID string) error {
	ids, err := ix.store.DeleteDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := ix.index.Remove(ctx, ids); err != nil {
		return fmt.Errorf("remove from vector index: %w", err)
	}
	ix.logger.Info("removed document", zap.String("doc_id", docID), zap.Int("chunks", len(ids)))
	return nil
}

// RebuildVectorIndex repopulates the vector index from the store, for use
// after a restart when the index file is absent or stale.
func (ix *Indexer) RebuildVectorIndex(ctx context.Context) error {
	ids, vecs, err := ix.store.AllEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	for i := range vecs {
		vecs[i] = vector.Normalized(vecs[i])
	}
	if err := ix.index.Add(ctx, ids, vecs); err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}
	ix.logger.Info("rebuilt vector index", zap.Int("vectors", len(ids)))
	return nil
}

func (ix *Indexer) embedMissing(ctx context.Context, chunks []*models.Chunk) error {
	var texts []string
	var missing []int
	for i, ch := range chunks {
		if len(ch.Embedding) == 0 {
			texts = append(texts, ch.Text)
			missing = append(missing, i)
		} else if len(ch.Embedding) != ix.embedder.Dimensions() {
			return fmt.Errorf("chunk %s: %w: got %d, want %d",
				ch.ID, embedding.ErrDimensionMismatch, len(ch.Embedding), ix.embedder.Dimensions())
		}
	}
	if len(texts) == 0 {
		return nil
	}
	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for j, i := range missing {
		if len(vecs[j]) != ix.embedder.Dimensions() {
			return fmt.Errorf("chunk %s: %w: got %d, want %d",
				chunks[i].ID, embedding.ErrDimensionMismatch, len(vecs[j]), ix.embedder.Dimensions())
		}
		chunks[i].Embedding = vecs[j]
	}
	return nil
}

// buildEdges computes the similarity edges for a batch of embedded chunks.
// For each chunk, partners are sorted by similarity descending; a partner
// gets an edge when its similarity reaches the threshold or its rank is
// below topK. Once both conditions fail the scan stops, since every later
// partner scores lower and ranks worse. Each unordered pair appears at most
// once; self-pairs are skipped. Output order is deterministic.
func buildEdges(chunks []*models.Chunk, threshold float64, topK int) []models.SimilarityEdge {
	if len(chunks) < 2 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}

	seen := make(map[[2]string]bool)
	var edges []models.SimilarityEdge

	for i, ch := range chunks {
		partners := make([]scored, 0, len(chunks)-1)
		for j, other := range chunks {
			if i == j || ch.ID == other.ID {
				continue
			}
			partners = append(partners, scored{j, vector.Cosine(ch.Embedding, other.Embedding)})
		}
		sort.SliceStable(partners, func(a, b int) bool {
			if partners[a].score != partners[b].score {
				return partners[a].score > partners[b].score
			}
			return partners[a].idx < partners[b].idx
		})
		for rank, p := range partners {
			if p.score < threshold && rank >= topK {
				break
			}
			a, b := ch.ID, chunks[p.idx].ID
			if a > b {
				a, b = b, a
			}
			key := [2]string{a, b}
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, models.SimilarityEdge{ChunkID1: a, ChunkID2: b, Weight: p.score})
		}
	}
	return edges
}
