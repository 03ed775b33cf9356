package graph

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/papergraph/papergraph/internal/embedding"
	"github.com/papergraph/papergraph/internal/models"
	"github.com/papergraph/papergraph/internal/vector"
)

func newTestIndexer(t *testing.T, cfg IndexerConfig) (*Indexer, *SQLiteStore, vector.Index) {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	idx, err := vector.NewFlatIndex(4)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}
	ix, err := NewIndexer(store, embedding.NewMockEmbedder(4), idx, cfg)
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}
	return ix, store, idx
}

func embeddedChunk(id string, emb []float32) *models.Chunk {
	return &models.Chunk{ID: id, DocID: "doc", Text: "texto " + id, PageNumber: 1, Embedding: emb}
}

func TestIndexer_SingleChunkNoEdges(t *testing.T) {
	ix, store, idx := newTestIndexer(t, IndexerConfig{EdgeSimilarityThreshold: 0.5, EdgeTopK: 3})
	ctx := context.Background()

	err := ix.Index(ctx, []*models.Chunk{{ID: "a::p1::c0", DocID: "a", Text: "solo un fragmento", PageNumber: 1}})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if n, _ := store.ChunkCount(ctx); n != 1 {
		t.Errorf("ChunkCount = %d", n)
	}
	if n, _ := store.EdgeCount(ctx); n != 0 {
		t.Errorf("single chunk produced %d edges", n)
	}
	if idx.Size() != 1 {
		t.Errorf("vector index Size = %d", idx.Size())
	}
}

func TestIndexer_Idempotent(t *testing.T) {
	ix, store, idx := newTestIndexer(t, IndexerConfig{EdgeSimilarityThreshold: 0.0, EdgeTopK: 2})
	ctx := context.Background()

	chunks := []*models.Chunk{
		{ID: "d::p1::c0", DocID: "d", Text: "primer fragmento", PageNumber: 1},
		{ID: "d::p1::c1", DocID: "d", Text: "segundo fragmento", PageNumber: 1},
		{ID: "d::p2::c2", DocID: "d", Text: "tercer fragmento", PageNumber: 2},
	}
	if err := ix.Index(ctx, chunks); err != nil {
		t.Fatalf("first Index: %v", err)
	}
	nodes1, _ := store.ChunkCount(ctx)
	edges1, _ := store.EdgeCount(ctx)

	// Embeddings are deterministic, so a second run over the same chunks
	// must leave counts unchanged.
	for _, ch := range chunks {
		ch.Embedding = nil
	}
	if err := ix.Index(ctx, chunks); err != nil {
		t.Fatalf("second Index: %v", err)
	}
	nodes2, _ := store.ChunkCount(ctx)
	edges2, _ := store.EdgeCount(ctx)
	if nodes1 != nodes2 || edges1 != edges2 {
		t.Errorf("re-index changed counts: nodes %d->%d, edges %d->%d", nodes1, nodes2, edges1, edges2)
	}
	if idx.Size() != len(chunks) {
		t.Errorf("vector index Size = %d after re-index, want %d", idx.Size(), len(chunks))
	}
}

func TestIndexer_PresetEmbeddingKept(t *testing.T) {
	ix, _, _ := newTestIndexer(t, IndexerConfig{EdgeTopK: 1})
	preset := []float32{1, 0, 0, 0}
	ch := embeddedChunk("a", preset)
	if err := ix.Index(context.Background(), []*models.Chunk{ch}); err != nil {
		t.Fatal(err)
	}
	for i := range preset {
		if ch.Embedding[i] != preset[i] {
			t.Fatal("preset embedding was replaced")
		}
	}
}

func TestIndexer_PresetEmbeddingDimensionChecked(t *testing.T) {
	ix, _, _ := newTestIndexer(t, IndexerConfig{})
	ch := embeddedChunk("a", []float32{1, 0}) // embedder is 4-dimensional
	err := ix.Index(context.Background(), []*models.Chunk{ch})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Errorf("error %v does not wrap ErrDimensionMismatch", err)
	}
}

func TestIndexer_RebuildVectorIndex(t *testing.T) {
	ix, _, idx := newTestIndexer(t, IndexerConfig{EdgeTopK: 1})
	ctx := context.Background()
	if err := ix.Index(ctx, []*models.Chunk{
		embeddedChunk("a", []float32{1, 0, 0, 0}),
		embeddedChunk("b", []float32{0, 1, 0, 0}),
	}); err != nil {
		t.Fatal(err)
	}

	fresh, _ := vector.NewFlatIndex(4)
	ix.index = fresh
	if err := ix.RebuildVectorIndex(ctx); err != nil {
		t.Fatalf("RebuildVectorIndex: %v", err)
	}
	if fresh.Size() != 2 {
		t.Errorf("rebuilt index Size = %d, want 2", fresh.Size())
	}
	_ = idx.Close()
}

func TestBuildEdges_ThresholdAdmits(t *testing.T) {
	chunks := []*models.Chunk{
		embeddedChunk("a", []float32{1, 0, 0, 0}),
		embeddedChunk("b", []float32{0.99, 0.14, 0, 0}), // near duplicate of a
		embeddedChunk("c", []float32{0, 0, 1, 0}),       // orthogonal to both
	}
	edges := buildEdges(chunks, 0.9, 0)
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d: %+v", len(edges), edges)
	}
	e := edges[0]
	if e.ChunkID1 != "a" || e.ChunkID2 != "b" {
		t.Errorf("edge pair = (%s, %s)", e.ChunkID1, e.ChunkID2)
	}
	if e.Weight < 0.9 {
		t.Errorf("edge weight %v below threshold", e.Weight)
	}
}

func TestBuildEdges_TopKAdmitsBelowThreshold(t *testing.T) {
	chunks := []*models.Chunk{
		embeddedChunk("a", []float32{1, 0, 0, 0}),
		embeddedChunk("b", []float32{0, 1, 0, 0}),
		embeddedChunk("c", []float32{0, 0, 1, 0}),
	}
	// All pairs are orthogonal; only top-k keeps the graph connected.
	edges := buildEdges(chunks, 0.9, 1)
	if len(edges) == 0 {
		t.Fatal("top-k should admit edges below the threshold")
	}
	for _, e := range edges {
		if math.Abs(e.Weight) > 1e-6 {
			t.Errorf("unexpected weight %v for orthogonal pair", e.Weight)
		}
	}
}

func TestBuildEdges_NoDuplicatePairs(t *testing.T) {
	chunks := []*models.Chunk{
		embeddedChunk("a", []float32{1, 0, 0, 0}),
		embeddedChunk("b", []float32{1, 0.01, 0, 0}),
		embeddedChunk("c", []float32{1, 0.02, 0, 0}),
	}
	edges := buildEdges(chunks, 0.0, 3)
	seen := map[[2]string]bool{}
	for _, e := range edges {
		if e.ChunkID1 >= e.ChunkID2 {
			t.Errorf("pair not canonical: (%s, %s)", e.ChunkID1, e.ChunkID2)
		}
		key := [2]string{e.ChunkID1, e.ChunkID2}
		if seen[key] {
			t.Errorf("duplicate pair %v", key)
		}
		seen[key] = true
	}
	if len(edges) != 3 {
		t.Errorf("expected all 3 pairs, got %d", len(edges))
	}
}

func TestBuildEdges_EmptyAndSingle(t *testing.T) {
	if edges := buildEdges(nil, 0.5, 3); edges != nil {
		t.Errorf("nil chunks produced edges: %v", edges)
	}
	one := []*models.Chunk{embeddedChunk("a", []float32{1, 0, 0, 0})}
	if edges := buildEdges(one, 0.5, 3); edges != nil {
		t.Errorf("single chunk produced edges: %v", edges)
	}
}

func TestNewIndexer_Validation(t *testing.T) {
	store := newTestStore(t)
	idx, _ := vector.NewFlatIndex(4)
	emb := embedding.NewMockEmbedder(4)

	if _, err := NewIndexer(nil, emb, idx, IndexerConfig{}); err == nil {
		t.Error("nil store accepted")
	}
	if _, err := NewIndexer(store, nil, idx, IndexerConfig{}); err == nil {
		t.Error("nil embedder accepted")
	}
	if _, err := NewIndexer(store, emb, nil, IndexerConfig{}); err == nil {
		t.Error("nil vector index accepted")
	}
	if _, err := NewIndexer(store, emb, idx, IndexerConfig{EdgeSimilarityThreshold: 1.5}); err == nil {
		t.Error("threshold above 1 accepted")
	}
	if _, err := NewIndexer(store, emb, idx, IndexerConfig{EdgeTopK: -1}); err == nil {
		t.Error("negative top-k accepted")
	}
}
