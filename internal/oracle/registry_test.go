package oracle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

func newTestRegistry() *Registry {
	clock := stubClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewRegistry(clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegistryRegisterAndRead(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	require.NoError(t, r.RegisterFeed(domain.OracleFeedSpec{
		FeedID: "rate-q1", Provider: "chainlink",
		Comparison: domain.OracleCompareGreater, Threshold: 5,
	}))

	_, err := r.Read(ctx, "rate-q1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, r.PostReading(ctx, domain.OracleReading{
		FeedID: "rate-q1", Provider: "chainlink", Value: "5.4", Confidence: 92,
	}))

	reading, err := r.Read(ctx, "rate-q1")
	require.NoError(t, err)
	require.Equal(t, "5.4", reading.Value)
	// Missing timestamps are stamped from the clock.
	require.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), reading.Timestamp)

	spec, ok, err := r.Spec(ctx, "rate-q1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.OracleCompareGreater, spec.Comparison)

	_, ok, err = r.Spec(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegistryRejectsInvalidInput(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	require.ErrorIs(t, r.RegisterFeed(domain.OracleFeedSpec{
		Comparison: domain.OracleCompareGreater,
	}), domain.ErrInvalidOracleData)

	require.ErrorIs(t, r.RegisterFeed(domain.OracleFeedSpec{
		FeedID: "x", Comparison: "!=",
	}), domain.ErrInvalidOracleData)

	require.ErrorIs(t, r.PostReading(ctx, domain.OracleReading{FeedID: "x"}), domain.ErrInvalidOracleData)
}
