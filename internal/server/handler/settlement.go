package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predmarket/marketd/internal/domain"
)

// SettlementService is the slice of the settlement service this handler
// needs.
type SettlementService interface {
	ClaimWinnings(ctx context.Context, userID, marketID string) (domain.Payout, error)
}

// SettlementHandler serves the claim endpoint.
type SettlementHandler struct {
	settlement SettlementService
	logger     *slog.Logger
}

func NewSettlementHandler(settlement SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{settlement: settlement, logger: logger}
}

type claimRequest struct {
	UserID string `json:"user_id"`
}

// ClaimWinnings pays out a winning position on a resolved market.
// POST /api/markets/{id}/claim
func (h *SettlementHandler) ClaimWinnings(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payout, err := h.settlement.ClaimWinnings(r.Context(), req.UserID, marketID)
	if err != nil {
		respondServiceError(w, r, h.logger, "claim winnings", err)
		return
	}
	writeJSON(w, http.StatusOK, payout)
}
