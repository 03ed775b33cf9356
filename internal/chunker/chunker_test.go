package chunker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/papergraph/papergraph/internal/models"
)

func testPages(texts ...string) []models.Page {
	pages := make([]models.Page, len(texts))
	for i, t := range texts {
		pages[i] = models.Page{DocID: "/corpus/Article_1.pdf", PageNumber: i + 1, Text: t}
	}
	return pages
}

func TestNewChunker_validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 500, 50, false},
		{"zero overlap valid", 500, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewChunker(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestSplit_overlapReconstruction(t *testing.T) {
	// Three pages; stripping the overlap from every chunk after the first
	// must reconstruct the original concatenated text.
	pages := testPages(
		strings.Repeat("abcdefghij", 60),
		strings.Repeat("klmnopqrst", 60),
		strings.Repeat("uvwxyz0123", 60),
	)
	c, err := NewChunker(500, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	chunks := c.Split(pages, models.DocumentMetadata{Source: "Article_1.pdf"})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var rebuilt strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			rebuilt.WriteString(ch.Text)
			continue
		}
		rebuilt.WriteString(ch.Text[50:])
	}
	original := pages[0].Text + pages[1].Text + pages[2].Text
	if rebuilt.String() != original {
		t.Errorf("reconstruction mismatch: got %d chars, want %d", rebuilt.Len(), len(original))
	}
}

func TestSplit_multibyteWindows(t *testing.T) {
	// Windows count characters, so boundaries must never cut a rune in half
	// even when every character is multi-byte.
	pages := testPages(strings.Repeat("ó", 600))
	c, err := NewChunker(501, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	chunks := c.Split(pages, models.DocumentMetadata{})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for _, ch := range chunks {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %s contains invalid UTF-8: %q", ch.ID, ch.Text)
		}
		if n := utf8.RuneCountInString(ch.Text); n > 501 {
			t.Errorf("chunk %s has %d characters, want at most 501", ch.ID, n)
		}
	}

	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for _, ch := range chunks[1:] {
		rebuilt.WriteString(string([]rune(ch.Text)[50:]))
	}
	if rebuilt.String() != pages[0].Text {
		t.Error("overlap-stripped chunks do not reconstruct the page text")
	}
}

func TestSplit_chunkIDsDistinct(t *testing.T) {
	pages := testPages(strings.Repeat("x", 2000))
	c, _ := NewChunker(300, 30)
	chunks := c.Split(pages, models.DocumentMetadata{})
	seen := make(map[string]bool)
	for _, ch := range chunks {
		if seen[ch.ID] {
			t.Errorf("duplicate chunk ID %q", ch.ID)
		}
		seen[ch.ID] = true
	}
}

func TestSplit_deterministicIDs(t *testing.T) {
	pages := testPages(strings.Repeat("y", 800))
	c, _ := NewChunker(300, 30)
	first := c.Split(pages, models.DocumentMetadata{})
	second := c.Split(pages, models.DocumentMetadata{})
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ID differs across runs: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	if !strings.HasPrefix(first[0].ID, "Article_1.pdf::p1::c0") {
		t.Errorf("unexpected ID shape: %q", first[0].ID)
	}
}

func TestSplit_firstPageWinsAcrossBoundary(t *testing.T) {
	// Second chunk starts inside page 1 but spans into page 2; it must carry
	// page 1's number.
	pages := testPages(strings.Repeat("a", 150), strings.Repeat("b", 150))
	c, _ := NewChunker(100, 10)
	chunks := c.Split(pages, models.DocumentMetadata{})
	for _, ch := range chunks {
		wantPage := 1
		if strings.HasPrefix(ch.Text, "b") {
			wantPage = 2
		}
		if ch.PageNumber != wantPage {
			t.Errorf("chunk %q starts with %q but has page %d", ch.ID, ch.Text[:1], ch.PageNumber)
		}
	}
}

func TestSplit_orderMatchesSource(t *testing.T) {
	pages := testPages(strings.Repeat("1", 200) + strings.Repeat("2", 200) + strings.Repeat("3", 200))
	c, _ := NewChunker(200, 0)
	chunks := c.Split(pages, models.DocumentMetadata{})
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d has index %d; output must keep source order", i, ch.ChunkIndex)
		}
	}
	if !strings.HasPrefix(chunks[0].Text, "1") || !strings.HasPrefix(chunks[len(chunks)-1].Text, "3") {
		t.Error("chunks not in document order")
	}
}

func TestSplit_metadataPropagated(t *testing.T) {
	meta := models.DocumentMetadata{
		Source:     "Article_1.pdf",
		AuthorReal: "Ana Ruiz",
		Year:       "2021",
		Tags:       []string{"RAG"},
	}
	pages := testPages("Resumen: texto de prueba suficientemente largo para un chunk")
	c, _ := NewChunker(500, 50)
	chunks := c.Split(pages, meta)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Metadata.AuthorReal != "Ana Ruiz" || chunks[0].Metadata.Year != "2021" {
		t.Errorf("metadata not propagated: %+v", chunks[0].Metadata)
	}
	if chunks[0].Section != "Resumen" {
		t.Errorf("section = %q, want Resumen", chunks[0].Section)
	}
}

func TestSplit_emptyPages(t *testing.T) {
	c, _ := NewChunker(100, 10)
	if got := c.Split(nil, models.DocumentMetadata{}); got != nil {
		t.Errorf("nil pages should yield nil, got %v", got)
	}
	if got := c.Split(testPages("   \n\t "), models.DocumentMetadata{}); got != nil {
		t.Errorf("blank pages should yield nil, got %v", got)
	}
}

func TestWriteDump(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.txt")
	pages := testPages(strings.Repeat("z", 300))
	c, _ := NewChunker(200, 20)
	chunks := c.Split(pages, models.DocumentMetadata{AuthorReal: "Ana Ruiz", Year: "2020"})
	if err := WriteDump(path, chunks); err != nil {
		t.Fatalf("WriteDump: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "=== chunk 0 ===") {
		t.Error("dump missing chunk index header")
	}
	if !strings.Contains(content, "author_real: Ana Ruiz") {
		t.Error("dump missing metadata")
	}
}

func TestWriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.xlsx")
	pages := testPages(strings.Repeat("w", 300))
	c, _ := NewChunker(200, 20)
	chunks := c.Split(pages, models.DocumentMetadata{Year: "2019"})
	if err := WriteWorkbook(path, chunks); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Errorf("workbook not written: %v", err)
	}
}
