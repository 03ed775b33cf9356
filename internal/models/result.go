package models

// ContextPassage is what the generation layer receives per retrieved chunk:
// the text, its page, and the exact cosine score it was ranked by.
type ContextPassage struct {
	Text       string  `json:"text"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// PassagesFromChunks converts ranked chunks into generation-layer passages,
// preserving order. score selects the populated score field per chunk.
func PassagesFromChunks(chunks []*Chunk, score func(*Chunk) float64) []ContextPassage {
	passages := make([]ContextPassage, len(chunks))
	for i, ch := range chunks {
		passages[i] = ContextPassage{
			Text:       ch.Text,
			PageNumber: ch.PageNumber,
			Score:      score(ch),
		}
	}
	return passages
}
