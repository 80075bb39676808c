package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/predmarket/marketd/internal/domain"
)

// Bus channel and stream names shared by the services and the websocket hub.
const (
	ChannelMarketEvents = "market.events"
	StreamMarketEvents  = "stream.market.events"
)

// lockTTL bounds how long a mutating operation may hold a per-market lock.
const lockTTL = 5 * time.Second

// Event is the envelope published on the signal bus after a completed
// mutation.
type Event struct {
	Type     string    `json:"type"`
	MarketID string    `json:"market_id"`
	UserID   string    `json:"user_id,omitempty"`
	Amount   uint64    `json:"amount,omitempty"`
	At       time.Time `json:"at"`
}

// publishEvent fans an event out on the ephemeral channel and appends it to
// the durable stream. Bus failures are logged and do not fail the operation
// that already committed.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.WarnContext(ctx, "event marshal failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, ChannelMarketEvents, payload); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
	if err := bus.StreamAppend(ctx, StreamMarketEvents, payload); err != nil {
		logger.WarnContext(ctx, "event stream append failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
