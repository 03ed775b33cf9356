// Package models defines core data structures for pages, chunks, and document metadata.
package models

// Page is one unit of raw extracted text from a source document.
// PageNumber is 1-based. DocID identifies the source document.
type Page struct {
	DocID      string `json:"doc_id"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// RawDocumentInfo carries metadata read directly from the document container
// (the PDF Info dictionary), before any heuristic extraction.
type RawDocumentInfo struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	CreationDate string `json:"creation_date,omitempty"`
}

// DocumentMetadata holds metadata inferred once per document from its first
// pages. All fields except Source are optional; an empty value means the
// extractor found nothing.
type DocumentMetadata struct {
	Source     string   `json:"source"`
	Title      string   `json:"title,omitempty"`
	AuthorReal string   `json:"author_real,omitempty"`
	Year       string   `json:"year,omitempty"`
	DOI        string   `json:"doi,omitempty"`
	ORCIDs     []string `json:"orcids,omitempty"`
	Emails     []string `json:"emails,omitempty"`
	ISSN       string   `json:"issn,omitempty"`
	Abstract   string   `json:"abstract,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Chunk is the retrieval unit: a bounded span of document text carrying
// propagated document metadata. ID is deterministic within an index
// (doc basename + page number + chunk index). Embedding is populated once at
// index time; the score fields are per-query results and are never persisted.
type Chunk struct {
	ID         string           `json:"chunk_id"`
	Text       string           `json:"text"`
	PageNumber int              `json:"page_number"`
	DocID      string           `json:"doc_id"`
	Section    string           `json:"section"`
	ChunkIndex int              `json:"chunk_index"`
	Metadata   DocumentMetadata `json:"metadata"`
	Embedding  []float32        `json:"-"`

	// SimilarityScore is set by the brute-force retriever, RerankScore by the
	// graph retriever. Both are exact cosine similarity against the query.
	SimilarityScore float64 `json:"similarity_score,omitempty"`
	RerankScore     float64 `json:"rerank_score,omitempty"`
}

// SimilarityEdge is an undirected weighted relation between two chunks,
// unique per unordered pair. Weight is cosine similarity in [-1, 1].
type SimilarityEdge struct {
	ChunkID1 string  `json:"chunk_id_1"`
	ChunkID2 string  `json:"chunk_id_2"`
	Weight   float64 `json:"weight"`
}
