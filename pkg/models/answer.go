package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryTimings records per-stage durations for one answered query.
type QueryTimings struct {
	Embedding  time.Duration `json:"embedding"`
	Search     time.Duration `json:"search"`
	Generation time.Duration `json:"generation"`
	Total      time.Duration `json:"total"`
}

// AnswerResult is the final product of one query: the generated answer, its
// confidence, and the ranked passages it cites. Owned by the in-flight query
// and discarded after the response, except where copied into a cache entry
// or search log row.
type AnswerResult struct {
	QueryID         uuid.UUID          `json:"query_id"`
	AnswerText      string             `json:"answer_text"`
	ConfidenceScore float64            `json:"confidence_score"`
	Sources         []RetrievedPassage `json:"sources"`
	Citations       []Citation         `json:"citations"`
	ModelUsed       string             `json:"model_used"`
	Timings         QueryTimings       `json:"timings"`
	Cached          bool               `json:"cached"`
	CreditsCharged  int                `json:"credits_charged"`
}
