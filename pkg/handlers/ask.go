package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/apperrors"
	"github.com/lexhaven/lexhaven-engine/pkg/models"
	"github.com/lexhaven/lexhaven-engine/pkg/services"
)

// AskHandler exposes the single core operation: ask a question, get a
// grounded answer. Authentication lives upstream; the account id arrives in
// the X-Account-ID header injected by that layer.
type AskHandler struct {
	queries services.QueryService
	logger  *zap.Logger
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(queries services.QueryService, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		queries: queries,
		logger:  logger.Named("ask-handler"),
	}
}

// RegisterRoutes registers the ask endpoint on the mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.Ask)
}

type askRequest struct {
	Text                string   `json:"text"`
	InstitutionFilter   string   `json:"institution_filter,omitempty"`
	ResultLimit         int      `json:"result_limit,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	UseCache            *bool    `json:"use_cache,omitempty"`
}

// Ask handles POST /api/ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromRequest(w, r)
	if !ok {
		return
	}

	var body askRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	// The threshold pointer passes through untouched: presence decides
	// whether the pipeline applies its default, so an explicit 0.0 sticks.
	req := models.QueryRequest{
		Text:                body.Text,
		InstitutionFilter:   body.InstitutionFilter,
		ResultLimit:         body.ResultLimit,
		SimilarityThreshold: body.SimilarityThreshold,
		UseCache:            true,
	}
	if body.UseCache != nil {
		req.UseCache = *body.UseCache
	}

	result, err := h.queries.Ask(r.Context(), accountID, req)
	if err != nil {
		// Rejections that never charged the caller are routine; failures
		// after a debit deserve attention.
		if apperrors.IsNoCharge(err) {
			h.logger.Debug("Ask rejected",
				zap.String("account_id", accountID.String()),
				zap.Error(err))
		} else {
			h.logger.Warn("Ask failed",
				zap.String("account_id", accountID.String()),
				zap.Error(err))
		}
		_ = WriteError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

// accountFromRequest extracts the account id the upstream auth layer
// injected. Writes the error response itself on failure.
func accountFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-Account-ID")
	if raw == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_account", "X-Account-ID header is required")
		return uuid.Nil, false
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_account", "X-Account-ID must be a UUID")
		return uuid.Nil, false
	}
	return accountID, true
}
