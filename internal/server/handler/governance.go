package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predmarket/marketd/internal/domain"
)

// GovernanceService is the slice of the governance service this handler
// needs.
type GovernanceService interface {
	SignEmergencyAction(ctx context.Context, signer, marketID string, actionType domain.EmergencyActionType, reason string) (domain.EmergencyAction, error)
	ListActions(ctx context.Context, opts domain.ListOpts) ([]domain.EmergencyAction, error)
}

// GovernanceHandler serves the multisig emergency-action endpoints.
type GovernanceHandler struct {
	governance GovernanceService
	logger     *slog.Logger
}

func NewGovernanceHandler(governance GovernanceService, logger *slog.Logger) *GovernanceHandler {
	return &GovernanceHandler{governance: governance, logger: logger}
}

type signActionRequest struct {
	Signer   string `json:"signer"`
	MarketID string `json:"market_id"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

// SignAction records a signer approval on a pending emergency action,
// executing it when the threshold is reached.
// POST /api/governance/actions
func (h *GovernanceHandler) SignAction(w http.ResponseWriter, r *http.Request) {
	var req signActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, err := h.governance.SignEmergencyAction(r.Context(), req.Signer,
		req.MarketID, domain.EmergencyActionType(req.Type), req.Reason)
	if err != nil {
		respondServiceError(w, r, h.logger, "sign emergency action", err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

// ListActions returns emergency actions with pagination.
// GET /api/governance/actions
func (h *GovernanceHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.governance.ListActions(r.Context(), parseListOpts(r))
	if err != nil {
		respondServiceError(w, r, h.logger, "list emergency actions", err)
		return
	}
	if actions == nil {
		actions = []domain.EmergencyAction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}
