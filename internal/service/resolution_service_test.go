package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

func TestResolveByAuthority(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	err := e.resolution.ResolveByAuthority(ctx, "creator", m.ID, domain.OutcomeYes())
	require.ErrorIs(t, err, domain.ErrMarketNotExpired)

	e.clock.Advance(31 * 24 * time.Hour)

	err = e.resolution.ResolveByAuthority(ctx, "stranger", m.ID, domain.OutcomeYes())
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, e.resolution.ResolveByAuthority(ctx, "creator", m.ID, domain.OutcomeYes()))

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MarketStatusResolved, got.Status)
	resolution, ok := got.ResolutionInfo()
	require.True(t, ok)
	require.Equal(t, domain.OutcomeYes(), resolution.Outcome)
	require.Equal(t, domain.ResolutionMethodExpertPanel, resolution.Method)

	// Resolution is written exactly once.
	err = e.resolution.ResolveByAuthority(ctx, "creator", m.ID, domain.OutcomeNo())
	require.ErrorIs(t, err, domain.ErrAlreadyResolved)

	// The settlement report was archived.
	require.Len(t, e.archiver.reports, 1)
	require.Equal(t, m.ID, e.archiver.reports[0].MarketID)
}

func TestResolveWithOracleConfidenceFloor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	err := e.resolution.ResolveWithOracle(ctx, m.ID, domain.OracleReading{Value: "0.9", Confidence: 79})
	require.ErrorIs(t, err, domain.ErrInsufficientOracleConfidence)

	err = e.resolution.ResolveWithOracle(ctx, m.ID, domain.OracleReading{Value: "  ", Confidence: 95})
	require.ErrorIs(t, err, domain.ErrInvalidOracleData)

	// Oracle resolution may happen before the resolution date.
	require.NoError(t, e.resolution.ResolveWithOracle(ctx, m.ID, domain.OracleReading{
		Provider: "chainlink", FeedID: "rate-q1", Value: "0.8", Confidence: 95,
	}))

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	resolution, ok := got.ResolutionInfo()
	require.True(t, ok)
	require.Equal(t, domain.OutcomeYes(), resolution.Outcome)
	require.Equal(t, domain.ResolutionMethodOracle, resolution.Method)
	require.NotNil(t, resolution.Oracle)
	require.Equal(t, "chainlink", resolution.Oracle.Provider)
}

func TestOutcomeFromOracleValue(t *testing.T) {
	tests := []struct {
		value   string
		want    domain.Outcome
		wantErr error
	}{
		{"0.8", domain.OutcomeYes(), nil},
		{"0.5", domain.OutcomeNo(), nil},
		{"0.2", domain.OutcomeNo(), nil},
		{"YES, confirmed", domain.OutcomeYes(), nil},
		{"true", domain.OutcomeYes(), nil},
		{"event did not occur", domain.OutcomeNo(), nil},
		{"", domain.Outcome{}, domain.ErrInvalidOracleData},
	}
	for _, tt := range tests {
		got, err := outcomeFromOracleValue(tt.value)
		if tt.wantErr != nil {
			require.ErrorIs(t, err, tt.wantErr, tt.value)
			continue
		}
		require.NoError(t, err, tt.value)
		require.Equal(t, tt.want, got, tt.value)
	}
}

func TestResolveFromFeed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedProfile(t, "creator", 250, true)
	e.fund(t, "creator", 2000)
	m, err := e.market.CreateMarket(ctx, CreateMarketParams{
		Creator:          "creator",
		Question:         "Will the rate print exceed the threshold?",
		ResolutionDate:   e.clock.Now().Add(time.Hour),
		InitialLiquidity: 2000,
		OracleFeedID:     "rate-q1",
	})
	require.NoError(t, err)

	// The feed spec turns the raw print into an outcome: 5.4 > 5.0 means Yes.
	e.feed.specs["rate-q1"] = domain.OracleFeedSpec{
		FeedID: "rate-q1", Provider: "chainlink",
		Comparison: domain.OracleCompareGreater, Threshold: 5.0,
	}
	e.feed.readings["rate-q1"] = domain.OracleReading{
		Provider: "chainlink", FeedID: "rate-q1", Value: "5.4", Confidence: 90,
	}
	require.NoError(t, e.resolution.ResolveFromFeed(ctx, m.ID))

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MarketStatusResolved, got.Status)
	resolution, ok := got.ResolutionInfo()
	require.True(t, ok)
	require.Equal(t, domain.OutcomeYes(), resolution.Outcome)
}

func TestOutcomeFromSpec(t *testing.T) {
	tests := []struct {
		name string
		spec domain.OracleFeedSpec
		val  string
		want domain.Outcome
	}{
		{"greater hit", domain.OracleFeedSpec{Comparison: domain.OracleCompareGreater, Threshold: 5}, "5.1", domain.OutcomeYes()},
		{"greater miss", domain.OracleFeedSpec{Comparison: domain.OracleCompareGreater, Threshold: 5}, "5", domain.OutcomeNo()},
		{"less hit", domain.OracleFeedSpec{Comparison: domain.OracleCompareLess, Threshold: 5}, "4.9", domain.OutcomeYes()},
		{"equal hit", domain.OracleFeedSpec{Comparison: domain.OracleCompareEqual, Threshold: 5}, "5.0", domain.OutcomeYes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outcomeFromSpec(tt.spec, tt.val)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := outcomeFromSpec(domain.OracleFeedSpec{Comparison: domain.OracleCompareGreater}, "not a number")
	require.ErrorIs(t, err, domain.ErrInvalidOracleData)
}

func TestResolveByCommunityWeighsVotesByReputation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	e.seedProfile(t, "heavy", 300, true)
	e.seedProfile(t, "light", 50, true)

	err := e.resolution.VoteOnResolution(ctx, "heavy", m.ID, domain.OutcomeNo())
	require.ErrorIs(t, err, domain.ErrMarketNotExpired)

	e.clock.Advance(31 * 24 * time.Hour)

	require.NoError(t, e.resolution.VoteOnResolution(ctx, "heavy", m.ID, domain.OutcomeNo()))
	require.NoError(t, e.resolution.VoteOnResolution(ctx, "light", m.ID, domain.OutcomeYes()))

	err = e.resolution.VoteOnResolution(ctx, "heavy", m.ID, domain.OutcomeNo())
	require.ErrorIs(t, err, domain.ErrAlreadyVoted)

	require.NoError(t, e.resolution.ResolveByCommunity(ctx, m.ID))

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	resolution, ok := got.ResolutionInfo()
	require.True(t, ok)
	// 300 weight on No beats 50 on Yes.
	require.Equal(t, domain.OutcomeNo(), resolution.Outcome)
	require.Equal(t, domain.ResolutionMethodCommunityVote, resolution.Method)
}

func TestResolveByCommunityNeedsVotes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)
	e.clock.Advance(31 * 24 * time.Hour)

	require.ErrorIs(t, e.resolution.ResolveByCommunity(ctx, m.ID), domain.ErrNoVotes)
}

func TestResolveTimeBasedPicksLargerPool(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	e.seedProfile(t, "alice", 100, true)
	e.fund(t, "alice", 2000)
	_, err := e.trade.PlacePrediction(ctx, "alice", m.ID, domain.OutcomeYes(), 2000)
	require.NoError(t, err)

	err = e.resolution.ResolveTimeBased(ctx, m.ID)
	require.ErrorIs(t, err, domain.ErrMarketNotExpired)

	e.clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, e.resolution.ResolveTimeBased(ctx, m.ID))

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	resolution, ok := got.ResolutionInfo()
	require.True(t, ok)
	require.Equal(t, domain.OutcomeYes(), resolution.Outcome)
	require.Equal(t, domain.ResolutionMethodTimeBased, resolution.Method)
}

func TestResolveTimeBasedTieGoesToNo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)
	e.clock.Advance(31 * 24 * time.Hour)

	require.NoError(t, e.resolution.ResolveTimeBased(ctx, m.ID))

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	resolution, ok := got.ResolutionInfo()
	require.True(t, ok)
	require.Equal(t, domain.OutcomeNo(), resolution.Outcome)
}

func TestEligibilityVotingBlacklistsAndRestores(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	err := e.resolution.VoteOnEligibility(ctx, "dave", m.ID, false, "short")
	require.ErrorIs(t, err, domain.ErrInvalidReasonLength)

	e.seedProfile(t, "dave", 300, true)
	require.NoError(t, e.resolution.VoteOnEligibility(ctx, "dave", m.ID, false, "misleading settlement terms"))

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	// 100% weighted No > 60% threshold.
	require.Equal(t, domain.MarketStatusBlacklisted, got.Status)

	err = e.resolution.VoteOnEligibility(ctx, "dave", m.ID, false, "misleading settlement terms")
	require.ErrorIs(t, err, domain.ErrAlreadyVoted)

	// A heavier approval flips the balance and restores the market.
	e.seedProfile(t, "erin", 900, true)
	require.NoError(t, e.resolution.VoteOnEligibility(ctx, "erin", m.ID, true, "terms were clarified by creator"))

	got, err = e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MarketStatusActive, got.Status)
}

func TestSubmitEvidence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	ev, err := e.resolution.SubmitEvidence(ctx, m.ID, "alice", domain.EvidenceTypeGovernmental,
		"https://stats.example.gov/q1", "official quarterly figure")
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)

	list, err := e.resolution.ListEvidence(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, domain.EvidenceTypeGovernmental, list[0].Type)

	e.clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, e.resolution.ResolveByAuthority(ctx, "creator", m.ID, domain.OutcomeYes()))

	_, err = e.resolution.SubmitEvidence(ctx, m.ID, "bob", domain.EvidenceTypeMedia,
		"https://news.example.com/story", "late report")
	require.ErrorIs(t, err, domain.ErrAlreadyResolved)
}
