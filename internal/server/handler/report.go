package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predmarket/marketd/internal/domain"
)

// ModerationService is the slice of the moderation service this handler
// needs.
type ModerationService interface {
	ReportContent(ctx context.Context, reporter, marketID string, modType domain.ModerationType, reason string) (domain.ContentReport, error)
	ListReports(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ContentReport, error)
}

// ReportHandler serves the content-moderation endpoints.
type ReportHandler struct {
	moderation ModerationService
	logger     *slog.Logger
}

func NewReportHandler(moderation ModerationService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{moderation: moderation, logger: logger}
}

type reportRequest struct {
	Reporter string `json:"reporter"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

// ReportContent flags a market's content for review.
// POST /api/markets/{id}/report
func (h *ReportHandler) ReportContent(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.moderation.ReportContent(r.Context(), req.Reporter, marketID,
		domain.ModerationType(req.Type), req.Reason)
	if err != nil {
		respondServiceError(w, r, h.logger, "report content", err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ListReports returns the reports filed against a market.
// GET /api/markets/{id}/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	reports, err := h.moderation.ListReports(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		respondServiceError(w, r, h.logger, "list reports", err)
		return
	}
	if reports == nil {
		reports = []domain.ContentReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
