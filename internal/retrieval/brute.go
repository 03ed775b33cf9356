// Package retrieval ranks indexed chunks against a query embedding. It ships
// two retrievers with the same exact-cosine contract: BruteForceRetriever
// scans an in-memory corpus exhaustively, GraphRetriever narrows candidates
// through the vector index first and re-ranks them exactly.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/papergraph/papergraph/internal/embedding"
	"github.com/papergraph/papergraph/internal/models"
	"github.com/papergraph/papergraph/internal/vector"
)

// BruteForceRetriever holds the whole corpus in memory and ranks every chunk
// by exact cosine similarity on each query. It needs no graph backend, which
// makes it the fallback when the store is unreachable.
type BruteForceRetriever struct {
	embedder embedding.Embedder
	chunks   []*models.Chunk
	logger   *zap.Logger
}

// NewBruteForceRetriever embeds any chunk that arrives without an embedding
// and keeps the corpus in memory. Chunks that already carry embeddings are
// used as-is.
func NewBruteForceRetriever(ctx context.Context, embedder embedding.Embedder, chunks []*models.Chunk, logger *zap.Logger) (*BruteForceRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("brute-force retriever requires an embedder")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var texts []string
	var missing []int
	for i, ch := range chunks {
		if len(ch.Embedding) == 0 {
			texts = append(texts, ch.Text)
			missing = append(missing, i)
		}
	}
	if len(texts) > 0 {
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed corpus: %w", err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}
		for j, i := range missing {
			chunks[i].Embedding = vecs[j]
		}
	}

	logger.Info("brute-force retriever ready", zap.Int("chunks", len(chunks)))
	return &BruteForceRetriever{embedder: embedder, chunks: chunks, logger: logger}, nil
}

// Retrieve returns the top k chunks by exact cosine similarity to the query,
// highest first. Fewer than k chunks come back when the corpus is smaller.
func (r *BruteForceRetriever) Retrieve(ctx context.Context, query string, k int) ([]*models.Chunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(r.chunks) == 0 {
		return nil, nil
	}

	qvec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ranked := make([]*models.Chunk, len(r.chunks))
	copy(ranked, r.chunks)
	for _, ch := range ranked {
		ch.SimilarityScore = vector.Cosine(qvec, ch.Embedding)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SimilarityScore > ranked[j].SimilarityScore
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k], nil
}

// Size returns the number of chunks in the corpus.
func (r *BruteForceRetriever) Size() int {
	return len(r.chunks)
}

// BruteForceAnswerSource adapts a BruteForceRetriever to the generation
// layer's retriever contract, answering metadata lookups from the in-memory
// corpus. Used as the fallback when the graph store is unreachable.
type BruteForceAnswerSource struct {
	retriever *BruteForceRetriever
	topK      int
}

// NewBruteForceAnswerSource wraps r with a fixed result count per query.
func NewBruteForceAnswerSource(r *BruteForceRetriever, topK int) (*BruteForceAnswerSource, error) {
	if r == nil {
		return nil, fmt.Errorf("answer source requires a retriever")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", topK)
	}
	return &BruteForceAnswerSource{retriever: r, topK: topK}, nil
}

// Retrieve returns the top chunks for the query.
func (s *BruteForceAnswerSource) Retrieve(ctx context.Context, query string) ([]*models.Chunk, error) {
	return s.retriever.Retrieve(ctx, query, s.topK)
}

// RetrieveMetadata returns up to 5 distinct non-empty values of the named
// field across the in-memory corpus.
func (s *BruteForceAnswerSource) RetrieveMetadata(ctx context.Context, field string) ([]string, error) {
	if !knownMetadataField(field) {
		return nil, fmt.Errorf("unknown metadata field %q", field)
	}
	var values []string
	seen := make(map[string]bool)
	for _, ch := range s.retriever.chunks {
		for _, v := range metadataFieldValues(&ch.Metadata, field) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
			if len(values) >= metadataValueLimit {
				return values, nil
			}
		}
	}
	return values, nil
}

func knownMetadataField(field string) bool {
	switch field {
	case "source", "title", "author_real", "year", "doi", "issn", "abstract", "orcids", "emails", "tags":
		return true
	}
	return false
}

func metadataFieldValues(m *models.DocumentMetadata, field string) []string {
	switch field {
	case "source":
		return []string{m.Source}
	case "title":
		return []string{m.Title}
	case "author_real":
		return []string{m.AuthorReal}
	case "year":
		return []string{m.Year}
	case "doi":
		return []string{m.DOI}
	case "issn":
		return []string{m.ISSN}
	case "abstract":
		return []string{m.Abstract}
	case "orcids":
		return m.ORCIDs
	case "emails":
		return m.Emails
	case "tags":
		return m.Tags
	default:
		return nil
	}
}
