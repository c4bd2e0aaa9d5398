package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchLogEntry is the audit record of one completed query. Written
// best-effort after the response is assembled; a failed insert never fails
// the query itself.
type SearchLogEntry struct {
	ID           uuid.UUID `json:"id"`
	QueryID      uuid.UUID `json:"query_id"`
	AccountID    uuid.UUID `json:"account_id"`
	Question     string    `json:"question"`
	PassageCount int       `json:"passage_count"`
	Confidence   float64   `json:"confidence"`
	Cached       bool      `json:"cached"`
	ModelUsed    string    `json:"model_used"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
