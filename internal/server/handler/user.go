package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/predmarket/marketd/internal/domain"
)

// ReputationService is the slice of the reputation service this handler
// needs.
type ReputationService interface {
	GetProfile(ctx context.Context, userID string) (domain.UserProfile, error)
	UpdateReputation(ctx context.Context, userID string, accuracyScore uint8) (domain.UserProfile, error)
	VerifyHuman(ctx context.Context, userID string, proof domain.HumanProof) (domain.UserProfile, error)
}

// UserHandler serves profile, reputation, and verification endpoints.
type UserHandler struct {
	reputation ReputationService
	logger     *slog.Logger
}

func NewUserHandler(reputation ReputationService, logger *slog.Logger) *UserHandler {
	return &UserHandler{reputation: reputation, logger: logger}
}

// GetProfile returns a user profile.
// GET /api/users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	profile, err := h.reputation.GetProfile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateReputationRequest struct {
	AccuracyScore uint8 `json:"accuracy_score"`
}

// UpdateReputation applies the banded reputation delta for an accuracy score.
// POST /api/users/{id}/reputation
func (h *UserHandler) UpdateReputation(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	var req updateReputationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.reputation.UpdateReputation(r.Context(), userID, req.AccuracyScore)
	if err != nil {
		respondServiceError(w, r, h.logger, "update reputation", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type verifyHumanRequest struct {
	Type      string `json:"type"`
	ProofID   string `json:"proof_id"`
	ExpiresAt string `json:"expires_at"`
}

// VerifyHuman records a human-verification proof and its reputation bonus.
// POST /api/users/{id}/verify
func (h *UserHandler) VerifyHuman(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	var req verifyHumanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proof := domain.HumanProof{
		Type:    domain.HumanProofType(req.Type),
		ProofID: req.ProofID,
	}
	if req.ExpiresAt != "" {
		exp, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expires_at must be RFC 3339")
			return
		}
		proof.ExpiresAt = &exp
	}

	profile, err := h.reputation.VerifyHuman(r.Context(), userID, proof)
	if err != nil {
		respondServiceError(w, r, h.logger, "verify human", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
