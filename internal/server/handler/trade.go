package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predmarket/marketd/internal/amm"
	"github.com/predmarket/marketd/internal/domain"
)

// TradeService is the slice of the trade service this handler needs.
type TradeService interface {
	PlacePrediction(ctx context.Context, userID, marketID string, outcome domain.Outcome, amount uint64) (domain.Position, error)
	SellPosition(ctx context.Context, userID, marketID string, amount uint64) (amm.SellResult, error)
}

// TradeHandler serves prediction and sell endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

type predictRequest struct {
	UserID  string `json:"user_id"`
	Outcome string `json:"outcome"`
	Amount  uint64 `json:"amount"`
}

// PlacePrediction stakes an amount on one outcome of a market.
// POST /api/markets/{id}/predict
func (h *TradeHandler) PlacePrediction(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	pos, err := h.trades.PlacePrediction(r.Context(), req.UserID, marketID, outcome, req.Amount)
	if err != nil {
		respondServiceError(w, r, h.logger, "place prediction", err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

type sellRequest struct {
	UserID string `json:"user_id"`
	Amount uint64 `json:"amount"`
}

type sellResponse struct {
	TokensOut uint64 `json:"tokens_out"`
	Fee       uint64 `json:"fee"`
	Net       uint64 `json:"net"`
}

// SellPosition sells part of a position back to the pools.
// POST /api/markets/{id}/sell
func (h *TradeHandler) SellPosition(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req sellRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.trades.SellPosition(r.Context(), req.UserID, marketID, req.Amount)
	if err != nil {
		respondServiceError(w, r, h.logger, "sell position", err)
		return
	}
	writeJSON(w, http.StatusOK, sellResponse{
		TokensOut: result.TokensOut,
		Fee:       result.Fee,
		Net:       result.Net,
	})
}
