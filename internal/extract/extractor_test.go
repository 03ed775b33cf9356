package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// minimalDocx returns minimal .docx zip bytes with word/document.xml containing
// the given text in <w:t> tags.
func minimalDocx(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtract_plainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("Hello world\nLine 2"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	e := NewExtractor()
	pages, info, err := e.Extract(path, "doc-1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].DocID != "doc-1" || pages[0].PageNumber != 1 {
		t.Errorf("page identity wrong: %+v", pages[0])
	}
	if pages[0].Text != "Hello world\nLine 2" {
		t.Errorf("got %q", pages[0].Text)
	}
	if info.Author != "" || info.Title != "" {
		t.Errorf("plain text should have empty container info, got %+v", info)
	}
}

func TestExtract_docx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.docx")
	if err := os.WriteFile(path, minimalDocx(t, "Graph retrieval methods"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	e := NewExtractor()
	pages, _, err := e.Extract(path, "doc-2")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 synthetic page, got %d", len(pages))
	}
	if pages[0].Text != "Graph retrieval methods" {
		t.Errorf("got %q", pages[0].Text)
	}
}

func TestExtract_missingFile(t *testing.T) {
	e := NewExtractor()
	_, _, err := e.Extract("/nonexistent/file.pdf", "doc-3")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Errorf("expected *ExtractionError, got %T", err)
	}
	if extErr.Path != "/nonexistent/file.pdf" {
		t.Errorf("error path = %q", extErr.Path)
	}
}

func TestExtract_corruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf at all"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, _, err := NewExtractor().Extract(path, "doc-4")
	if err == nil {
		t.Fatal("expected error for corrupt PDF")
	}
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Errorf("expected *ExtractionError, got %T", err)
	}
}

func TestExtract_unknownExtensionFallsBackToPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bib")
	if err := os.WriteFile(path, []byte("@article{x}"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	pages, _, err := NewExtractor().Extract(path, "doc-5")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if pages[0].Text != "@article{x}" {
		t.Errorf("got %q", pages[0].Text)
	}
}
