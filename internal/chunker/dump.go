package chunker

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/papergraph/papergraph/internal/models"
)

// WriteDump writes a plain-text dump of every chunk's text and metadata,
// keyed by chunk index. Diagnostic side channel for manual inspection; not
// part of the retrieval contract.
func WriteDump(path string, chunks []*models.Chunk) error {
	var b strings.Builder
	for i, ch := range chunks {
		fmt.Fprintf(&b, "=== chunk %d ===\n", i)
		fmt.Fprintf(&b, "chunk_id: %s\n", ch.ID)
		fmt.Fprintf(&b, "page_number: %d\n", ch.PageNumber)
		fmt.Fprintf(&b, "section: %s\n", ch.Section)
		fmt.Fprintf(&b, "author_real: %s\n", ch.Metadata.AuthorReal)
		fmt.Fprintf(&b, "year: %s\n", ch.Metadata.Year)
		fmt.Fprintf(&b, "doi: %s\n", ch.Metadata.DOI)
		fmt.Fprintf(&b, "tags: %s\n", strings.Join(ch.Metadata.Tags, ", "))
		fmt.Fprintf(&b, "text:\n%s\n\n", ch.Text)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// WriteWorkbook writes the same diagnostic dump as an xlsx sheet, one row per
// chunk, with the text truncated to a preview column.
func WriteWorkbook(path string, chunks []*models.Chunk) error {
	const sheet = "Chunks"
	const previewLen = 200

	f := excelize.NewFile()
	defer f.Close()
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	header := []interface{}{"chunk_id", "page", "section", "author_real", "year", "doi", "tags", "text_preview"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, ch := range chunks {
		preview := ch.Text
		if len(preview) > previewLen {
			preview = preview[:previewLen] + "..."
		}
		row := []interface{}{
			ch.ID, ch.PageNumber, ch.Section,
			ch.Metadata.AuthorReal, ch.Metadata.Year, ch.Metadata.DOI,
			strings.Join(ch.Metadata.Tags, ", "), preview,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	return f.SaveAs(path)
}
