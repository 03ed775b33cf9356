package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/papergraph/papergraph/internal/models"
)

// extractPDF returns one Page per physical page plus the PDF Info dictionary.
// Pages that fail text extraction are returned empty rather than aborting the
// document; a completely unreadable file is an error.
func extractPDF(content []byte, docID string) ([]models.Page, models.RawDocumentInfo, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, models.RawDocumentInfo{}, fmt.Errorf("open PDF: %w", err)
	}

	info := readInfoDict(r)

	numPages := r.NumPage()
	pages := make([]models.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Damaged page streams happen in scanned papers; keep the page
			// number so downstream references stay aligned.
			text = ""
		}
		pages = append(pages, models.Page{
			DocID:      docID,
			PageNumber: i,
			Text:       text,
		})
	}
	if len(pages) == 0 {
		return nil, info, fmt.Errorf("no readable pages")
	}
	return pages, info, nil
}

// readInfoDict reads Title, Author, and CreationDate from the trailer's Info
// dictionary. Missing or malformed entries yield empty strings.
func readInfoDict(r *pdf.Reader) models.RawDocumentInfo {
	defer func() {
		// The pdf package panics on some malformed xref tables.
		_ = recover()
	}()
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return models.RawDocumentInfo{}
	}
	return models.RawDocumentInfo{
		Title:        infoString(info, "Title"),
		Author:       infoString(info, "Author"),
		CreationDate: infoString(info, "CreationDate"),
	}
}

func infoString(info pdf.Value, key string) (s string) {
	defer func() { _ = recover() }()
	v := info.Key(key)
	if v.Kind() != pdf.String {
		return ""
	}
	return v.RawString()
}
