package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/papergraph/papergraph/internal/chunker"
	"github.com/papergraph/papergraph/internal/embedding"
	"github.com/papergraph/papergraph/internal/graph"
	"github.com/papergraph/papergraph/internal/vector"
)

func newTestPipeline(t *testing.T) (*Pipeline, graph.Store) {
	t.Helper()
	store, err := graph.NewSQLiteStore(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	idx, err := vector.NewFlatIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := graph.NewIndexer(store, embedding.NewMockEmbedder(8), idx,
		graph.IndexerConfig{EdgeSimilarityThreshold: 0.9, EdgeTopK: 2})
	if err != nil {
		t.Fatal(err)
	}
	ch, err := chunker.NewChunker(200, 20)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPipeline(ch, ix, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p, store
}

func writeSample(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipeline_IngestFile(t *testing.T) {
	p, store := newTestPipeline(t)
	dir := t.TempDir()
	path := writeSample(t, dir, "articulo.txt",
		strings.Repeat("la fotosíntesis convierte la luz en energía química. ", 10))

	chunks, err := p.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	for _, ch := range chunks {
		if !strings.HasPrefix(ch.ID, "articulo.txt::p") {
			t.Errorf("chunk ID = %q", ch.ID)
		}
		if ch.Metadata.Source != "articulo.txt" {
			t.Errorf("source = %q", ch.Metadata.Source)
		}
		if len(ch.Embedding) != 8 {
			t.Errorf("embedding not populated: %d dims", len(ch.Embedding))
		}
	}
	n, _ := store.ChunkCount(context.Background())
	if int(n) != len(chunks) {
		t.Errorf("store has %d chunks, pipeline returned %d", n, len(chunks))
	}
}

func TestPipeline_IngestFileMissing(t *testing.T) {
	p, _ := newTestPipeline(t)
	if _, err := p.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPipeline_IngestDirFiltersExtensions(t *testing.T) {
	p, store := newTestPipeline(t)
	dir := t.TempDir()
	writeSample(t, dir, "uno.txt", strings.Repeat("texto relevante. ", 20))
	writeSample(t, dir, "dos.md", strings.Repeat("más texto relevante. ", 20))
	writeSample(t, dir, "ignorar.bin", "binario")

	n, err := p.IngestDir(context.Background(), dir, []string{".txt", ".md"})
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if n != 2 {
		t.Errorf("ingested %d documents, want 2", n)
	}
	count, _ := store.ChunkCount(context.Background())
	if count == 0 {
		t.Error("store empty after IngestDir")
	}
}

func TestPipeline_IngestDirSkipsBadFiles(t *testing.T) {
	p, _ := newTestPipeline(t)
	dir := t.TempDir()
	writeSample(t, dir, "bueno.txt", strings.Repeat("contenido útil. ", 20))
	// A corrupt PDF extracts with an error but must not abort the walk.
	writeSample(t, dir, "roto.pdf", "not a pdf at all")

	n, err := p.IngestDir(context.Background(), dir, []string{".txt", ".pdf"})
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if n != 1 {
		t.Errorf("ingested %d documents, want 1", n)
	}
}

func TestPipeline_LoadCorpus(t *testing.T) {
	p, store := newTestPipeline(t)
	dir := t.TempDir()
	writeSample(t, dir, "uno.txt", strings.Repeat("texto para el corpus en memoria. ", 20))

	corpus, err := p.LoadCorpus(context.Background(), dir, []string{".txt"})
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	if len(corpus) == 0 {
		t.Fatal("empty corpus")
	}
	// LoadCorpus must not write to the store.
	n, _ := store.ChunkCount(context.Background())
	if n != 0 {
		t.Errorf("LoadCorpus wrote %d chunks to the store", n)
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	ch, _ := chunker.NewChunker(100, 10)
	if _, err := NewPipeline(nil, nil, nil); err == nil {
		t.Error("nil chunker accepted")
	}
	if _, err := NewPipeline(ch, nil, nil); err == nil {
		t.Error("nil indexer accepted")
	}
}
