package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/predmarket/marketd/internal/domain"
	"github.com/predmarket/marketd/internal/service"
)

// MarketService is the slice of the market service this handler needs.
type MarketService interface {
	CreateMarket(ctx context.Context, p service.CreateMarketParams) (domain.Market, error)
	CreateMetaMarket(ctx context.Context, parentID string, p service.CreateMarketParams) (domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error)
	Stats(ctx context.Context) (domain.RegistryStats, error)
	Restore(ctx context.Context, caller, marketID string) error
}

// MarketHandler serves market lifecycle endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

type createMarketRequest struct {
	Creator               string `json:"creator"`
	Question              string `json:"question"`
	Description           string `json:"description"`
	Category              string `json:"category"`
	ResolutionDate        string `json:"resolution_date"`
	InitialLiquidity      uint64 `json:"initial_liquidity"`
	HumanVerifiedRequired bool   `json:"human_verified_required"`
	OracleFeedID          string `json:"oracle_feed_id"`
}

func (req createMarketRequest) params() (service.CreateMarketParams, error) {
	date, err := time.Parse(time.RFC3339, req.ResolutionDate)
	if err != nil {
		return service.CreateMarketParams{}, err
	}
	return service.CreateMarketParams{
		Creator:               req.Creator,
		Question:              req.Question,
		Description:           req.Description,
		Category:              req.Category,
		ResolutionDate:        date,
		InitialLiquidity:      req.InitialLiquidity,
		HumanVerifiedRequired: req.HumanVerifiedRequired,
		OracleFeedID:          req.OracleFeedID,
	}, nil
}

// CreateMarket creates a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params, err := req.params()
	if err != nil {
		writeError(w, http.StatusBadRequest, "resolution_date must be RFC 3339")
		return
	}

	m, err := h.markets.CreateMarket(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, h.logger, "create market", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// CreateMetaMarket creates a market predicting the outcome of its parent.
// POST /api/markets/{id}/meta
func (h *MarketHandler) CreateMetaMarket(w http.ResponseWriter, r *http.Request) {
	parentID := r.PathValue("id")
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params, err := req.params()
	if err != nil {
		writeError(w, http.StatusBadRequest, "resolution_date must be RFC 3339")
		return
	}

	m, err := h.markets.CreateMetaMarket(r.Context(), parentID, params)
	if err != nil {
		respondServiceError(w, r, h.logger, "create meta market", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets filtered by status (default active).
// GET /api/markets?status=active&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	status := domain.MarketStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.MarketStatusActive
	}

	markets, err := h.markets.ListByStatus(r.Context(), status, opts)
	if err != nil {
		respondServiceError(w, r, h.logger, "list markets", err)
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns one market.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, "get market", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Stats returns the registry aggregate.
// GET /api/stats
func (h *MarketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.markets.Stats(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, "registry stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type restoreRequest struct {
	Caller string `json:"caller"`
}

// Restore reactivates a paused or blacklisted market.
// POST /api/markets/{id}/restore
func (h *MarketHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req restoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.markets.Restore(r.Context(), req.Caller, id); err != nil {
		respondServiceError(w, r, h.logger, "restore market", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}
