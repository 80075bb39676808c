package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

func TestCreateMarketSplitsInitialLiquidity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	m := e.createMarket(t, "creator", 10001)

	require.Equal(t, domain.MarketStatusActive, m.Status)
	require.Equal(t, uint64(5000), m.YesPool)
	require.Equal(t, uint64(5000), m.NoPool)
	// The odd unit is dropped, not pooled.
	require.Equal(t, uint64(10000), m.TotalPool)
	require.Equal(t, uint32(0), m.ReputationThreshold)
	// The seed liquidity's LP supply belongs to the creator.
	require.Equal(t, uint64(10000), m.LPSupply)
	seed, err := e.liquidity.Get(ctx, "creator", m.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), seed.LPTokens)
	require.Equal(t, uint64(5000), seed.AmountYes)
	require.Equal(t, uint64(5000), seed.AmountNo)

	balance, err := e.ledger.BalanceOf(ctx, domain.MarketPoolAccount(m.ID))
	require.NoError(t, err)
	require.Equal(t, uint64(10000), balance)

	stats, err := e.market.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.TotalMarkets)
	require.Equal(t, uint64(10000), stats.TotalVolume)
}

func TestCreateMarketGatesLowReputationCreators(t *testing.T) {
	e := newEnv(t)
	e.seedProfile(t, "novice", 50, false)
	e.fund(t, "novice", 2000)

	m, err := e.market.CreateMarket(context.Background(), CreateMarketParams{
		Creator:          "novice",
		Question:         "Will the index close above the strike?",
		ResolutionDate:   e.clock.Now().Add(time.Hour),
		InitialLiquidity: 2000,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(25), m.ReputationThreshold)
}

func TestCreateMarketValidation(t *testing.T) {
	e := newEnv(t)
	e.seedProfile(t, "creator", 250, true)
	e.fund(t, "creator", 10000)
	base := CreateMarketParams{
		Creator:          "creator",
		Question:         "Will the index close above the strike?",
		ResolutionDate:   e.clock.Now().Add(time.Hour),
		InitialLiquidity: 2000,
	}

	tests := []struct {
		name    string
		mutate  func(*CreateMarketParams)
		wantErr error
	}{
		{"short question", func(p *CreateMarketParams) { p.Question = "too short" }, domain.ErrInvalidQuestionLength},
		{"ten-byte question", func(p *CreateMarketParams) { p.Question = "0123456789" }, domain.ErrInvalidQuestionLength},
		{"long question", func(p *CreateMarketParams) { p.Question = strings201() }, domain.ErrInvalidQuestionLength},
		{"long description", func(p *CreateMarketParams) { p.Description = strings501() }, domain.ErrInvalidDescriptionLength},
		{"long category", func(p *CreateMarketParams) { p.Category = strings51() }, domain.ErrInvalidCategoryLength},
		{"past date", func(p *CreateMarketParams) { p.ResolutionDate = e.clock.Now().Add(-time.Minute) }, domain.ErrInvalidResolutionDate},
		{"zero liquidity", func(p *CreateMarketParams) { p.InitialLiquidity = 0 }, domain.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			_, err := e.market.CreateMarket(context.Background(), p)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateMetaMarketForcesResolutionLead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	parent := e.createMarket(t, "creator", 10000)
	e.fund(t, "creator", 2000)

	meta, err := e.market.CreateMetaMarket(ctx, parent.ID, CreateMarketParams{
		Creator:          "creator",
		Question:         "Will the parent market resolve to yes?",
		ResolutionDate:   parent.ResolutionDate, // overridden
		InitialLiquidity: 2000,
	})
	require.NoError(t, err)
	require.Equal(t, parent.ResolutionDate.Add(-24*time.Hour), meta.ResolutionDate)
	require.Equal(t, parent.ID, meta.ParentMarket)

	got, err := e.market.GetMarket(ctx, parent.ID)
	require.NoError(t, err)
	require.Contains(t, got.MetaMarkets, meta.ID)
}

func TestCreateMetaMarketRequiresActiveParent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	parent := e.createMarket(t, "creator", 10000)

	paused := parent
	require.NoError(t, paused.Transition(domain.MarketStatusPaused))
	require.NoError(t, e.markets.Update(ctx, paused))

	_, err := e.market.CreateMetaMarket(ctx, parent.ID, CreateMarketParams{
		Creator:          "creator",
		Question:         "Will the parent market resolve to yes?",
		InitialLiquidity: 2000,
	})
	require.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestRestoreIsAuthorityOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.createMarket(t, "creator", 10000)

	paused := m
	require.NoError(t, paused.Transition(domain.MarketStatusPaused))
	require.NoError(t, e.markets.Update(ctx, paused))

	require.ErrorIs(t, e.market.Restore(ctx, "stranger", m.ID), domain.ErrUnauthorized)
	require.NoError(t, e.market.Restore(ctx, "creator", m.ID))

	got, err := e.markets.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MarketStatusActive, got.Status)

	// A resolved market can never be restored.
	resolved := got
	require.NoError(t, resolved.Transition(domain.MarketStatusResolved))
	require.NoError(t, e.markets.Update(ctx, resolved))
	require.ErrorIs(t, e.market.Restore(ctx, "creator", m.ID), domain.ErrAlreadyResolved)
}

func strings201() string { return strings.Repeat("q", 201) }
func strings501() string { return strings.Repeat("d", 501) }
func strings51() string  { return strings.Repeat("c", 51) }
