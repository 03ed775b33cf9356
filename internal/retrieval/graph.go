package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/papergraph/papergraph/internal/embedding"
	"github.com/papergraph/papergraph/internal/graph"
	"github.com/papergraph/papergraph/internal/models"
	"github.com/papergraph/papergraph/internal/vector"
)

const (
	// minCandidatePool floors the first-stage candidate set so small k still
	// gives the re-ranker something to work with.
	minCandidatePool = 20

	// metadataValueLimit caps distinct metadata values per lookup.
	metadataValueLimit = 5
)

// GraphRetrieverConfig controls the two retrieval stages.
type GraphRetrieverConfig struct {
	// TopK is the number of chunks returned per query.
	TopK int
	// CandidatePoolMultiplier widens the first stage: the vector index is
	// asked for max(TopK*multiplier, 20) candidates before exact re-ranking.
	// Must be at least 5.
	CandidatePoolMultiplier int
}

// GraphRetriever answers queries in two stages: the vector index supplies an
// oversampled candidate pool, then candidates are re-ranked by exact cosine
// against embeddings fetched from the graph store. It also answers metadata
// lookups directly from the store.
type GraphRetriever struct {
	store    graph.Store
	embedder embedding.Embedder
	index    vector.Index
	cfg      GraphRetrieverConfig
	logger   *zap.Logger
}

// NewGraphRetriever validates the configuration and builds the retriever.
func NewGraphRetriever(store graph.Store, embedder embedding.Embedder, index vector.Index, cfg GraphRetrieverConfig, logger *zap.Logger) (*GraphRetriever, error) {
	if store == nil {
		return nil, fmt.Errorf("graph retriever requires a store")
	}
	if embedder == nil {
		return nil, fmt.Errorf("graph retriever requires an embedder")
	}
	if index == nil {
		return nil, fmt.Errorf("graph retriever requires a vector index")
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", cfg.TopK)
	}
	if cfg.CandidatePoolMultiplier < 5 {
		return nil, fmt.Errorf("candidate pool multiplier must be at least 5, got %d", cfg.CandidatePoolMultiplier)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphRetriever{store: store, embedder: embedder, index: index, cfg: cfg, logger: logger}, nil
}

// Retrieve embeds the query, pulls an oversampled candidate pool from the
// vector index, fetches the candidates' stored embeddings, and returns the
// top TopK by exact cosine similarity with RerankScore set.
func (r *GraphRetriever) Retrieve(ctx context.Context, query string) ([]*models.Chunk, error) {
	qvec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	pool := r.cfg.TopK * r.cfg.CandidatePoolMultiplier
	if pool < minCandidatePool {
		pool = minCandidatePool
	}
	hits, err := r.index.Search(ctx, vector.Normalized(qvec), pool)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	byID, err := r.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	candidates := make([]*models.Chunk, 0, len(hits))
	for _, id := range ids {
		ch, ok := byID[id]
		if !ok {
			// Index and store can drift between a write and a rebuild.
			r.logger.Warn("candidate missing from store", zap.String("chunk_id", id))
			continue
		}
		ch.RerankScore = vector.Cosine(qvec, ch.Embedding)
		candidates = append(candidates, ch)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RerankScore > candidates[j].RerankScore
	})

	k := r.cfg.TopK
	if k > len(candidates) {
		k = len(candidates)
	}
	r.logger.Debug("graph retrieval",
		zap.Int("pool", len(hits)),
		zap.Int("returned", k))
	return candidates[:k], nil
}

// RetrieveMetadata returns up to 5 distinct values of the named metadata
// field across the indexed corpus.
func (r *GraphRetriever) RetrieveMetadata(ctx context.Context, field string) ([]string, error) {
	values, err := r.store.DistinctMetadata(ctx, field, metadataValueLimit)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup %q: %w", field, err)
	}
	return values, nil
}
