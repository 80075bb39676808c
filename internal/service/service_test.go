package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/config"
	"github.com/predmarket/marketd/internal/domain"
	"github.com/predmarket/marketd/internal/ledger"
	"github.com/predmarket/marketd/internal/store/memory"
)

// fakeClock is a settable domain.Clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeFeed is a domain.OracleFeed backed by maps.
type fakeFeed struct {
	readings map[string]domain.OracleReading
	specs    map[string]domain.OracleFeedSpec
}

func (f *fakeFeed) Read(_ context.Context, feedID string) (domain.OracleReading, error) {
	r, ok := f.readings[feedID]
	if !ok {
		return domain.OracleReading{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeFeed) Spec(_ context.Context, feedID string) (domain.OracleFeedSpec, bool, error) {
	s, ok := f.specs[feedID]
	return s, ok, nil
}

// fakeArchiver records settlement reports.
type fakeArchiver struct {
	mu      sync.Mutex
	reports []domain.SettlementReport
}

func (a *fakeArchiver) ArchiveResolution(_ context.Context, r domain.SettlementReport) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reports = append(a.reports, r)
	return nil
}

// blockPolicy flags text containing "forbidden".
type blockPolicy struct{}

func (blockPolicy) Dangerous(text string) bool { return strings.Contains(text, "forbidden") }

// env wires every service against in-memory infrastructure.
type env struct {
	markets    *memory.MarketStore
	positions  *memory.PositionStore
	liquidity  *memory.LiquidityStore
	profiles   *memory.ProfileStore
	governance *memory.GovernanceStore
	reports    *memory.ReportStore
	evidence   *memory.EvidenceStore
	ledger     *ledger.Memory
	clock      *fakeClock
	feed       *fakeFeed
	archiver   *fakeArchiver
	engine     config.EngineConfig

	market     *MarketService
	trade      *TradeService
	liqService *LiquidityService
	resolution *ResolutionService
	settlement *SettlementService
	gov        *GovernanceService
	reputation *ReputationService
	moderation *ModerationService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		markets:   memory.NewMarketStore(),
		positions: memory.NewPositionStore(),
		liquidity: memory.NewLiquidityStore(),
		profiles:  memory.NewProfileStore(),
		reports:   memory.NewReportStore(),
		evidence:  memory.NewEvidenceStore(),
		ledger:    ledger.NewMemory(),
		clock:     newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		feed: &fakeFeed{
			readings: make(map[string]domain.OracleReading),
			specs:    make(map[string]domain.OracleFeedSpec),
		},
		archiver:  &fakeArchiver{},
		engine:    config.Defaults().Engine,
	}
	e.governance = memory.NewGovernanceStore(domain.GovernanceState{
		Signers:   []string{"signer-a", "signer-b", "signer-c", "signer-d"},
		Threshold: 3,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := memory.NewMarketCache()
	locks := memory.NewLockManager(e.clock)
	bus := memory.NewSignalBus()

	e.reputation = NewReputationService(e.profiles, e.clock, logger)
	e.market = NewMarketService(e.markets, e.liquidity, cache, locks, e.ledger, e.reputation, bus, e.clock, e.engine, logger)
	e.trade = NewTradeService(e.markets, e.positions, e.profiles, e.liquidity, cache, locks, e.ledger, e.reputation, bus, e.clock, e.engine, logger)
	e.liqService = NewLiquidityService(e.markets, e.liquidity, cache, locks, e.ledger, bus, e.clock, e.engine, logger)
	e.resolution = NewResolutionService(e.markets, e.governance, e.evidence, cache, locks, e.reputation, e.feed, e.archiver, bus, e.clock, e.engine, 60, logger)
	e.settlement = NewSettlementService(e.markets, e.positions, e.profiles, locks, e.ledger, bus, e.clock, e.engine, logger)
	e.gov = NewGovernanceService(e.markets, e.governance, cache, locks, bus, e.clock, logger)
	e.moderation = NewModerationService(e.markets, e.reports, cache, locks, blockPolicy{}, bus, e.clock, logger)
	return e
}

// fund credits an account on the ledger.
func (e *env) fund(t *testing.T, account string, amount uint64) {
	t.Helper()
	require.NoError(t, e.ledger.Credit(context.Background(), account, amount))
}

// seedProfile creates a profile with the given reputation.
func (e *env) seedProfile(t *testing.T, userID string, reputation uint32, verified bool) {
	t.Helper()
	require.NoError(t, e.profiles.Upsert(context.Background(), domain.UserProfile{
		UserID:        userID,
		Reputation:    reputation,
		HumanVerified: verified,
		CreatedAt:     e.clock.Now(),
	}))
}

// createMarket funds the creator and creates a standard test market expiring
// in 30 days.
func (e *env) createMarket(t *testing.T, creator string, initialLiquidity uint64) domain.Market {
	t.Helper()
	e.seedProfile(t, creator, 250, true)
	e.fund(t, creator, initialLiquidity)
	m, err := e.market.CreateMarket(context.Background(), CreateMarketParams{
		Creator:          creator,
		Question:         "Will the reference rate exceed 5% this quarter?",
		Description:      "Settles against the published quarterly figure.",
		Category:         "rates",
		ResolutionDate:   e.clock.Now().Add(30 * 24 * time.Hour),
		InitialLiquidity: initialLiquidity,
	})
	require.NoError(t, err)
	return m
}
