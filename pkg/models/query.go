package models

import (
	"fmt"
	"strings"

	"github.com/lexhaven/lexhaven-engine/pkg/apperrors"
)

const (
	// MinQuestionLength is the shortest accepted question, in characters.
	MinQuestionLength = 3

	// MaxResultLimit caps how many passages one query may request.
	MaxResultLimit = 10
)

// QueryRequest is the ephemeral input to one ask operation. It is not
// persisted beyond the search log row written after completion.
// SimilarityThreshold is a pointer because 0.0 is a valid explicit choice;
// only an absent field falls back to the configured default.
type QueryRequest struct {
	Text                string   `json:"text"`
	InstitutionFilter   string   `json:"institution_filter,omitempty"`
	ResultLimit         int      `json:"result_limit,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	UseCache            bool     `json:"use_cache"`
}

// Normalize applies defaults for unset tuning fields. A zero ResultLimit
// means "not specified" (the valid range starts at 1); the threshold keeps
// pointer presence, so an explicit 0.0 is never mistaken for unset.
func (r *QueryRequest) Normalize(defaultLimit int, defaultThreshold float64) {
	r.Text = strings.TrimSpace(r.Text)
	if r.ResultLimit == 0 {
		r.ResultLimit = defaultLimit
	}
	if r.SimilarityThreshold == nil {
		t := defaultThreshold
		r.SimilarityThreshold = &t
	}
}

// Validate checks the normalized request against the accepted ranges.
func (r *QueryRequest) Validate() error {
	if len(r.Text) < MinQuestionLength {
		return &apperrors.ValidationError{
			Field:   "text",
			Message: fmt.Sprintf("question must be at least %d characters", MinQuestionLength),
		}
	}
	if r.ResultLimit < 1 || r.ResultLimit > MaxResultLimit {
		return &apperrors.ValidationError{
			Field:   "result_limit",
			Message: fmt.Sprintf("must be between 1 and %d", MaxResultLimit),
		}
	}
	if r.SimilarityThreshold != nil && (*r.SimilarityThreshold < 0 || *r.SimilarityThreshold > 1) {
		return &apperrors.ValidationError{
			Field:   "similarity_threshold",
			Message: "must be between 0.0 and 1.0",
		}
	}
	return nil
}
