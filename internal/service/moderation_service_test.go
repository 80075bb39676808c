package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

func TestReportContentAppendsFlag(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	report, err := e.moderation.ReportContent(ctx, "alice", m.ID, domain.ModerationTypeCommunity,
		"question wording is ambiguous")
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusPending, report.Status)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, got.ModerationFlags, 1)
	require.Equal(t, domain.ModerationTypeCommunity, got.ModerationFlags[0].Type)
	// Community reports alone do not pause.
	require.Equal(t, domain.MarketStatusActive, got.Status)

	reports, err := e.moderation.ListReports(ctx, m.ID, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
}

func TestReportContentLegalPausesImmediately(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	_, err := e.moderation.ReportContent(ctx, "counsel", m.ID, domain.ModerationTypeLegal,
		"takedown request received")
	require.NoError(t, err)

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MarketStatusPaused, got.Status)
}

func TestReportContentAutomaticUsesPolicy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	clean := e.createMarket(t, "creator", 10000)
	_, err := e.moderation.ReportContent(ctx, "auto", clean.ID, domain.ModerationTypeAutomatic,
		"automated sweep match")
	require.NoError(t, err)
	got, err := e.markets.GetByID(ctx, clean.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MarketStatusActive, got.Status)

	e.seedProfile(t, "creator-b", 250, true)
	e.fund(t, "creator-b", 2000)
	flagged, err := e.market.CreateMarket(ctx, CreateMarketParams{
		Creator:          "creator-b",
		Question:         "Will the forbidden index be published again?",
		ResolutionDate:   e.clock.Now().Add(time.Hour),
		InitialLiquidity: 2000,
	})
	require.NoError(t, err)

	_, err = e.moderation.ReportContent(ctx, "auto", flagged.ID, domain.ModerationTypeAutomatic,
		"automated sweep match")
	require.NoError(t, err)
	got, err = e.markets.GetByID(ctx, flagged.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MarketStatusPaused, got.Status)
}

func TestReportContentReasonLength(t *testing.T) {
	e := newEnv(t)
	m := e.createMarket(t, "creator", 10000)

	_, err := e.moderation.ReportContent(context.Background(), "alice", m.ID,
		domain.ModerationTypeCommunity, "short")
	require.ErrorIs(t, err, domain.ErrInvalidReasonLength)
}
