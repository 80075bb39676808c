// Package oracle provides the in-process feed registry: the seam where
// external data providers post readings that the resolution engine consumes.
package oracle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/predmarket/marketd/internal/domain"
)

// Registry holds feed configurations and their latest readings. It implements
// domain.OracleFeed.
type Registry struct {
	mu       sync.RWMutex
	specs    map[string]domain.OracleFeedSpec
	readings map[string]domain.OracleReading
	clock    domain.Clock
	logger   *slog.Logger
}

// NewRegistry creates an empty feed registry.
func NewRegistry(clock domain.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		specs:    make(map[string]domain.OracleFeedSpec),
		readings: make(map[string]domain.OracleReading),
		clock:    clock,
		logger:   logger,
	}
}

// RegisterFeed stores the outcome configuration for a feed. Re-registering
// replaces the previous spec.
func (r *Registry) RegisterFeed(spec domain.OracleFeedSpec) error {
	if spec.FeedID == "" {
		return domain.ErrInvalidOracleData
	}
	switch spec.Comparison {
	case domain.OracleCompareGreater, domain.OracleCompareLess, domain.OracleCompareEqual:
	default:
		return domain.ErrInvalidOracleData
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.FeedID] = spec
	return nil
}

// PostReading ingests one observation for a feed. The timestamp is stamped
// from the registry clock when the provider omits it.
func (r *Registry) PostReading(ctx context.Context, reading domain.OracleReading) error {
	if reading.FeedID == "" || reading.Value == "" {
		return domain.ErrInvalidOracleData
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = r.clock.Now()
	}

	r.mu.Lock()
	r.readings[reading.FeedID] = reading
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "oracle: reading posted",
		slog.String("feed_id", reading.FeedID),
		slog.String("provider", reading.Provider),
		slog.Int("confidence", int(reading.Confidence)),
	)
	return nil
}

// Read returns the latest reading for a feed.
func (r *Registry) Read(_ context.Context, feedID string) (domain.OracleReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reading, ok := r.readings[feedID]
	if !ok {
		return domain.OracleReading{}, domain.ErrNotFound
	}
	return reading, nil
}

// Spec returns the registered outcome configuration for a feed.
func (r *Registry) Spec(_ context.Context, feedID string) (domain.OracleFeedSpec, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[feedID]
	return spec, ok, nil
}

var _ domain.OracleFeed = (*Registry)(nil)
