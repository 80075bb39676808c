package domain

import "time"

// Position is one user's cumulative stake on a single outcome of a market.
// EntryPrice is the volume-weighted average purchase price in basis points,
// recomputed on every additional stake. A position can be claimed at most
// once.
type Position struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MarketID   string    `json:"market_id"`
	Outcome    Outcome   `json:"outcome"`
	Amount     uint64    `json:"amount"`
	EntryPrice uint64    `json:"entry_price"` // basis points
	Claimed    bool      `json:"claimed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LiquidityPosition is one provider's claim on a market's pooled funds.
// LPTokens is a proportional share of the market's LPSupply.
type LiquidityPosition struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	MarketID   string    `json:"market_id"`
	LPTokens   uint64    `json:"lp_tokens"`
	AmountYes  uint64    `json:"amount_yes"`
	AmountNo   uint64    `json:"amount_no"`
	FeesEarned uint64    `json:"fees_earned"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
