package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predmarket/marketd/internal/domain"
)

// LiquidityService is the slice of the liquidity service this handler needs.
type LiquidityService interface {
	AddLiquidity(ctx context.Context, provider, marketID string, amountYes, amountNo uint64) (domain.LiquidityPosition, error)
	RemoveLiquidity(ctx context.Context, provider, marketID string, lpTokens uint64) (shareYes, shareNo uint64, err error)
}

// LiquidityHandler serves liquidity provision endpoints.
type LiquidityHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

func NewLiquidityHandler(liquidity LiquidityService, logger *slog.Logger) *LiquidityHandler {
	return &LiquidityHandler{liquidity: liquidity, logger: logger}
}

type addLiquidityRequest struct {
	Provider  string `json:"provider"`
	AmountYes uint64 `json:"amount_yes"`
	AmountNo  uint64 `json:"amount_no"`
}

// AddLiquidity deposits balanced amounts into both pools for LP tokens.
// POST /api/markets/{id}/liquidity
func (h *LiquidityHandler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req addLiquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pos, err := h.liquidity.AddLiquidity(r.Context(), req.Provider, marketID, req.AmountYes, req.AmountNo)
	if err != nil {
		respondServiceError(w, r, h.logger, "add liquidity", err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

type removeLiquidityRequest struct {
	Provider string `json:"provider"`
	LPTokens uint64 `json:"lp_tokens"`
}

type removeLiquidityResponse struct {
	ShareYes uint64 `json:"share_yes"`
	ShareNo  uint64 `json:"share_no"`
}

// RemoveLiquidity burns LP tokens for a proportional share of both pools.
// DELETE /api/markets/{id}/liquidity
func (h *LiquidityHandler) RemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req removeLiquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	shareYes, shareNo, err := h.liquidity.RemoveLiquidity(r.Context(), req.Provider, marketID, req.LPTokens)
	if err != nil {
		respondServiceError(w, r, h.logger, "remove liquidity", err)
		return
	}
	writeJSON(w, http.StatusOK, removeLiquidityResponse{
		ShareYes: shareYes,
		ShareNo:  shareNo,
	})
}
