package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/services"
)

// CreditsHandler exposes the read-only ledger operations.
type CreditsHandler struct {
	ledger services.LedgerService
	logger *zap.Logger
}

// NewCreditsHandler creates a new CreditsHandler.
func NewCreditsHandler(ledger services.LedgerService, logger *zap.Logger) *CreditsHandler {
	return &CreditsHandler{
		ledger: ledger,
		logger: logger.Named("credits-handler"),
	}
}

// RegisterRoutes registers the credit endpoints on the mux.
func (h *CreditsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/credits/balance", h.Balance)
	mux.HandleFunc("GET /api/credits/history", h.History)
}

// Balance handles GET /api/credits/balance.
func (h *CreditsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromRequest(w, r)
	if !ok {
		return
	}

	account, err := h.ledger.Balance(r.Context(), accountID)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"balance":      account.Balance,
		"is_unlimited": account.IsUnlimited,
	})
}

// History handles GET /api/credits/history.
func (h *CreditsHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromRequest(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.ledger.History(r.Context(), accountID, limit)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": entries,
	})
}
