package models

import "github.com/google/uuid"

// RetrievedPassage is one ranked chunk of source-document text returned by
// similarity search. Page and line fields are produced at ingestion time and
// each is independently optional: documents parsed before location tracking
// carry none, and some parsers emit a line span without a page number.
type RetrievedPassage struct {
	DocumentID      uuid.UUID `json:"document_id"`
	ChunkText       string    `json:"chunk_text"`
	SimilarityScore float64   `json:"similarity_score"`
	PageNumber      *int      `json:"page_number,omitempty"`
	LineStart       *int      `json:"line_start,omitempty"`
	LineEnd         *int      `json:"line_end,omitempty"`
	Institution     string    `json:"institution"`
	DocumentTitle   string    `json:"document_title"`
}

// Citation is the user-facing attribution for one passage. Location fields
// are relayed from the passage when present and omitted when absent.
type Citation struct {
	DocumentID    uuid.UUID `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	Institution   string    `json:"institution"`
	PageNumber    *int      `json:"page_number,omitempty"`
	LineStart     *int      `json:"line_start,omitempty"`
	LineEnd       *int      `json:"line_end,omitempty"`
	Reference     string    `json:"reference"`
}
