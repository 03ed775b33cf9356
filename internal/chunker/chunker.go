// Package chunker splits extracted pages into overlapping text chunks that
// carry propagated document metadata.
package chunker

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/papergraph/papergraph/internal/metadata"
	"github.com/papergraph/papergraph/internal/models"
)

// Chunker splits page text into overlapping character windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap in characters.
// overlap must be smaller than size and both must be positive; anything else
// is a configuration error.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got overlap=%d size=%d", chunkOverlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split cuts the concatenated page text into overlapping windows, in document
// order. Size and overlap count characters, not bytes, so a window boundary
// never lands inside a multi-byte rune. Each chunk inherits the metadata of
// the page where its window starts (first-page-wins; applied consistently for
// windows spanning page boundaries). Chunk IDs are deterministic: doc
// basename, page number, and the chunk's index within the document.
func (c *Chunker) Split(pages []models.Page, meta models.DocumentMetadata) []*models.Chunk {
	if len(pages) == 0 {
		return nil
	}

	var full []rune
	// pageStarts[i] is the rune offset of pages[i] in the concatenated text.
	pageStarts := make([]int, len(pages))
	for i, p := range pages {
		pageStarts[i] = len(full)
		full = append(full, []rune(p.Text)...)
	}
	if strings.TrimSpace(string(full)) == "" {
		return nil
	}

	base := filepath.Base(pages[0].DocID)
	step := c.chunkSize - c.chunkOverlap

	var chunks []*models.Chunk
	for start := 0; start < len(full); start += step {
		end := start + c.chunkSize
		if end > len(full) {
			end = len(full)
		}
		window := string(full[start:end])
		page := pageAt(pages, pageStarts, start)
		idx := len(chunks)
		chunks = append(chunks, &models.Chunk{
			ID:         ChunkID(base, page, idx),
			Text:       window,
			PageNumber: page,
			DocID:      pages[0].DocID,
			Section:    metadata.SectionLabel(window),
			ChunkIndex: idx,
			Metadata:   meta,
		})
		if end >= len(full) {
			break
		}
	}
	return chunks
}

// ChunkID derives the deterministic chunk identifier used as the graph node
// key: source basename, 1-based page number, chunk index within the document.
func ChunkID(docBase string, pageNumber, chunkIndex int) string {
	return fmt.Sprintf("%s::p%d::c%d", docBase, pageNumber, chunkIndex)
}

// pageAt returns the 1-based page number owning the given offset.
func pageAt(pages []models.Page, pageStarts []int, offset int) int {
	for i := len(pages) - 1; i >= 0; i-- {
		if offset >= pageStarts[i] {
			return pages[i].PageNumber
		}
	}
	return pages[0].PageNumber
}
