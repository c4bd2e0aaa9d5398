package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lexhaven/lexhaven-engine/pkg/apperrors"
)

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteError maps the pipeline error taxonomy to HTTP responses with enough
// structured detail that a client can react without parsing prose.
func WriteError(w http.ResponseWriter, err error) error {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		return writeStructuredError(w, http.StatusBadRequest, "validation_error", ve.Error(), map[string]any{
			"field": ve.Field,
		})
	}

	var ice *apperrors.InsufficientCreditsError
	if errors.As(err, &ice) {
		return writeStructuredError(w, http.StatusPaymentRequired, "insufficient_credits", ice.Error(), map[string]any{
			"required": ice.Required,
			"current":  ice.Current,
		})
	}

	var rle *apperrors.RateLimitError
	if errors.As(err, &rle) {
		retryAfter := int(rle.RetryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		return writeStructuredError(w, http.StatusTooManyRequests, "rate_limit_exceeded", rle.Error(), map[string]any{
			"limit":               rle.Limit,
			"retry_after_seconds": retryAfter,
		})
	}

	var pe *apperrors.ProviderError
	if errors.As(err, &pe) {
		return writeStructuredError(w, http.StatusBadGateway, string(pe.Stage)+"_unavailable", pe.Error(), map[string]any{
			"stage":    string(pe.Stage),
			"refunded": true,
		})
	}

	var rfe *apperrors.RefundFailedError
	if errors.As(err, &rfe) {
		return writeStructuredError(w, http.StatusInternalServerError, "refund_failed", rfe.Error(), map[string]any{
			"query_id": rfe.QueryID.String(),
			"amount":   rfe.Amount,
		})
	}

	if errors.Is(err, apperrors.ErrAccountNotFound) {
		return ErrorResponse(w, http.StatusNotFound, "account_not_found", err.Error())
	}

	return ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeStructuredError(w http.ResponseWriter, statusCode int, errorCode, message string, details map[string]any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]any{
		"error":   errorCode,
		"message": message,
		"details": details,
	})
}
