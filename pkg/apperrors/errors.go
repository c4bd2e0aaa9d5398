// Package apperrors defines the typed error taxonomy for the query pipeline.
// Errors occurring before a successful debit carry no side effects; errors
// after a debit are surfaced only once the compensating refund has been
// attempted.
package apperrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrAccountNotFound = errors.New("credit account not found")

// ValidationError reports a rejected query request. No credits are charged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// InsufficientCreditsError reports a debit attempt against a balance that
// cannot cover it. Carries both sides so clients can display the shortfall.
type InsufficientCreditsError struct {
	Required int
	Current  int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, current %d", e.Required, e.Current)
}

// RateLimitError reports that the per-account query rate was exceeded.
// RetryAfter tells the client when the current window resets.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d queries per minute exceeded, retry after %s", e.Limit, e.RetryAfter.Round(time.Second))
}

// PipelineStage identifies where in the pipeline a provider failure occurred.
type PipelineStage string

const (
	StageEmbedding  PipelineStage = "embedding"
	StageSearch     PipelineStage = "search"
	StageGeneration PipelineStage = "generation"
)

// ProviderError wraps a failure from an external collaborator (embedding
// provider, vector store, generation provider). Always raised after a debit,
// so the orchestrator pairs it with a refund.
type ProviderError struct {
	Stage PipelineStage
	Cause error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Stage, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// RefundFailedError is the charged-but-refund-lost condition: a debit
// happened, the pipeline failed, and the compensating refund also failed.
// This is a genuine accounting inconsistency requiring operator attention.
type RefundFailedError struct {
	AccountID uuid.UUID
	QueryID   uuid.UUID
	Amount    int
	Cause     error
}

func (e *RefundFailedError) Error() string {
	return fmt.Sprintf("refund of %d credits failed for account %s (query %s): %v",
		e.Amount, e.AccountID, e.QueryID, e.Cause)
}

func (e *RefundFailedError) Unwrap() error {
	return e.Cause
}

// IsNoCharge reports whether err belongs to the no-side-effect class:
// the caller was never charged and nothing needs compensation.
func IsNoCharge(err error) bool {
	var ve *ValidationError
	var ice *InsufficientCreditsError
	var rle *RateLimitError
	return errors.As(err, &ve) || errors.As(err, &ice) || errors.As(err, &rle)
}
