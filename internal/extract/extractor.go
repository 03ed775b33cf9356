// Package extract provides per-page text extraction from source documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papergraph/papergraph/internal/models"
)

// ExtractionError reports an unreadable or corrupt source document. It aborts
// the load of that one document; callers must not treat it as fatal for the
// whole corpus.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor extracts plain text pages from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its pages in document order,
// plus any metadata carried by the container itself. PDF files yield one
// Page per physical page and the PDF Info dictionary; DOCX and plain text
// yield a single synthetic page with empty container metadata.
// docID is stamped on every page.
func (e *Extractor) Extract(path, docID string) ([]models.Page, models.RawDocumentInfo, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, models.RawDocumentInfo{}, &ExtractionError{Path: path, Err: fmt.Errorf("read file: %w", err)}
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		pages, info, err := extractPDF(content, docID)
		if err != nil {
			return nil, models.RawDocumentInfo{}, &ExtractionError{Path: path, Err: err}
		}
		return pages, info, nil
	case ".docx", ".odt", ".rtf":
		text, err := extractDOCX(content)
		if err != nil {
			return nil, models.RawDocumentInfo{}, &ExtractionError{Path: path, Err: err}
		}
		return singlePage(docID, text), models.RawDocumentInfo{}, nil
	default:
		// Unknown extension: treat as plain text.
		text, err := extractPlain(content)
		if err != nil {
			return nil, models.RawDocumentInfo{}, &ExtractionError{Path: path, Err: err}
		}
		return singlePage(docID, text), models.RawDocumentInfo{}, nil
	}
}

func singlePage(docID, text string) []models.Page {
	return []models.Page{{DocID: docID, PageNumber: 1, Text: text}}
}
