package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/predmarket/marketd/internal/domain"
)

// ResolutionService is the slice of the resolution service this handler
// needs.
type ResolutionService interface {
	ResolveByAuthority(ctx context.Context, caller, marketID string, outcome domain.Outcome) error
	ResolveWithOracle(ctx context.Context, marketID string, reading domain.OracleReading) error
	ResolveFromFeed(ctx context.Context, marketID string) error
	ResolveByCommunity(ctx context.Context, marketID string) error
	ResolveTimeBased(ctx context.Context, marketID string) error
	VoteOnResolution(ctx context.Context, voter, marketID string, outcome domain.Outcome) error
	VoteOnEligibility(ctx context.Context, voter, marketID string, approve bool, reason string) error
	SubmitEvidence(ctx context.Context, marketID, submitter string, evType domain.EvidenceType, sourceURL, description string) (domain.Evidence, error)
	ListEvidence(ctx context.Context, marketID string) ([]domain.Evidence, error)
}

// ResolutionHandler serves the resolution, voting, and evidence endpoints.
type ResolutionHandler struct {
	resolution ResolutionService
	logger     *slog.Logger
}

func NewResolutionHandler(resolution ResolutionService, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{resolution: resolution, logger: logger}
}

type resolveRequest struct {
	Caller  string `json:"caller"`
	Outcome string `json:"outcome"`
}

// ResolveByAuthority resolves an expired market by its authority.
// POST /api/markets/{id}/resolve
func (h *ResolutionHandler) ResolveByAuthority(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	if err := h.resolution.ResolveByAuthority(r.Context(), req.Caller, marketID, outcome); err != nil {
		respondServiceError(w, r, h.logger, "resolve market", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

type oracleResolveRequest struct {
	Provider   string `json:"provider"`
	FeedID     string `json:"feed_id"`
	Value      string `json:"value"`
	Confidence uint8  `json:"confidence"`
	Timestamp  string `json:"timestamp"`
}

// ResolveWithOracle resolves a market from an oracle reading. An empty body
// reads the market's registered feed instead.
// POST /api/markets/{id}/resolve/oracle
func (h *ResolutionHandler) ResolveWithOracle(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")

	if r.ContentLength == 0 {
		if err := h.resolution.ResolveFromFeed(r.Context(), marketID); err != nil {
			respondServiceError(w, r, h.logger, "resolve from feed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
		return
	}

	var req oracleResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reading := domain.OracleReading{
		Provider:   req.Provider,
		FeedID:     req.FeedID,
		Value:      req.Value,
		Confidence: req.Confidence,
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "timestamp must be RFC 3339")
			return
		}
		reading.Timestamp = ts
	}

	if err := h.resolution.ResolveWithOracle(r.Context(), marketID, reading); err != nil {
		respondServiceError(w, r, h.logger, "resolve with oracle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// ResolveByCommunity closes out community voting on an expired market.
// POST /api/markets/{id}/resolve/community
func (h *ResolutionHandler) ResolveByCommunity(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	if err := h.resolution.ResolveByCommunity(r.Context(), marketID); err != nil {
		respondServiceError(w, r, h.logger, "resolve by community", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// ResolveTimeBased resolves an expired market toward its larger pool.
// POST /api/markets/{id}/resolve/time
func (h *ResolutionHandler) ResolveTimeBased(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	if err := h.resolution.ResolveTimeBased(r.Context(), marketID); err != nil {
		respondServiceError(w, r, h.logger, "resolve time based", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

type resolutionVoteRequest struct {
	Voter   string `json:"voter"`
	Outcome string `json:"outcome"`
}

// VoteOnResolution records a reputation-weighted outcome vote.
// POST /api/markets/{id}/resolve/votes
func (h *ResolutionHandler) VoteOnResolution(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req resolutionVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	if err := h.resolution.VoteOnResolution(r.Context(), req.Voter, marketID, outcome); err != nil {
		respondServiceError(w, r, h.logger, "vote on resolution", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

type eligibilityVoteRequest struct {
	Voter   string `json:"voter"`
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// VoteOnEligibility records a weighted vote on whether a market stays listed.
// POST /api/markets/{id}/votes
func (h *ResolutionHandler) VoteOnEligibility(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req eligibilityVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.resolution.VoteOnEligibility(r.Context(), req.Voter, marketID, req.Approve, req.Reason); err != nil {
		respondServiceError(w, r, h.logger, "vote on eligibility", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

type evidenceRequest struct {
	Submitter   string `json:"submitter"`
	Type        string `json:"type"`
	SourceURL   string `json:"source_url"`
	Description string `json:"description"`
}

// SubmitEvidence attaches a sourced document to a market's resolution record.
// POST /api/markets/{id}/evidence
func (h *ResolutionHandler) SubmitEvidence(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req evidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.resolution.SubmitEvidence(r.Context(), marketID, req.Submitter,
		domain.EvidenceType(req.Type), req.SourceURL, req.Description)
	if err != nil {
		respondServiceError(w, r, h.logger, "submit evidence", err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// ListEvidence returns the evidence submitted for a market.
// GET /api/markets/{id}/evidence
func (h *ResolutionHandler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	items, err := h.resolution.ListEvidence(r.Context(), marketID)
	if err != nil {
		respondServiceError(w, r, h.logger, "list evidence", err)
		return
	}
	if items == nil {
		items = []domain.Evidence{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"evidence": items})
}
