package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predmarket/marketd/internal/domain"
)

// OracleRegistry is the slice of the feed registry this handler needs.
type OracleRegistry interface {
	RegisterFeed(spec domain.OracleFeedSpec) error
	PostReading(ctx context.Context, reading domain.OracleReading) error
}

// OracleHandler serves the feed registration and ingestion endpoints.
type OracleHandler struct {
	registry OracleRegistry
	logger   *slog.Logger
}

func NewOracleHandler(registry OracleRegistry, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{registry: registry, logger: logger}
}

type registerFeedRequest struct {
	FeedID     string  `json:"feed_id"`
	Provider   string  `json:"provider"`
	Comparison string  `json:"comparison"`
	Threshold  float64 `json:"threshold"`
}

// RegisterFeed stores the outcome configuration for a feed.
// POST /api/oracle/feeds
func (h *OracleHandler) RegisterFeed(w http.ResponseWriter, r *http.Request) {
	var req registerFeedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	spec := domain.OracleFeedSpec{
		FeedID:     req.FeedID,
		Provider:   req.Provider,
		Comparison: domain.OracleComparison(req.Comparison),
		Threshold:  req.Threshold,
	}
	if err := h.registry.RegisterFeed(spec); err != nil {
		respondServiceError(w, r, h.logger, "register feed", err)
		return
	}
	writeJSON(w, http.StatusCreated, spec)
}

type postReadingRequest struct {
	Provider   string `json:"provider"`
	Value      string `json:"value"`
	Confidence uint8  `json:"confidence"`
}

// PostReading ingests one observation for a feed.
// POST /api/oracle/feeds/{id}/readings
func (h *OracleHandler) PostReading(w http.ResponseWriter, r *http.Request) {
	feedID := r.PathValue("id")
	var req postReadingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reading := domain.OracleReading{
		Provider:   req.Provider,
		FeedID:     feedID,
		Value:      req.Value,
		Confidence: req.Confidence,
	}
	if err := h.registry.PostReading(r.Context(), reading); err != nil {
		respondServiceError(w, r, h.logger, "post reading", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
