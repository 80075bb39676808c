package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/predmarket/marketd/internal/config"
	"github.com/predmarket/marketd/internal/domain"
)

// metaMarketLead is how far before the parent's resolution date a dependent
// meta market must resolve.
const metaMarketLead = 24 * time.Hour

// MarketService owns market creation, lookup, and lifecycle transitions.
type MarketService struct {
	markets   domain.MarketStore
	liquidity domain.LiquidityStore
	cache     domain.MarketCache
	locks     domain.LockManager
	ledger    domain.Ledger
	identity  domain.IdentityGate
	bus       domain.SignalBus
	clock     domain.Clock
	engine    config.EngineConfig
	logger    *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	liquidity domain.LiquidityStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	ledger domain.Ledger,
	identity domain.IdentityGate,
	bus domain.SignalBus,
	clock domain.Clock,
	engine config.EngineConfig,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:   markets,
		liquidity: liquidity,
		cache:     cache,
		locks:     locks,
		ledger:    ledger,
		identity:  identity,
		bus:       bus,
		clock:     clock,
		engine:    engine,
		logger:    logger,
	}
}

// CreateMarketParams carries the caller-supplied fields of a new market.
type CreateMarketParams struct {
	Creator               string
	Question              string
	Description           string
	Category              string
	ResolutionDate        time.Time
	InitialLiquidity      uint64
	HumanVerifiedRequired bool
	OracleFeedID          string
}

func (p CreateMarketParams) validate(now time.Time) error {
	// The lower bound is exclusive: a question must be longer than 10 bytes.
	if n := len(p.Question); n <= 10 || n > 200 {
		return domain.ErrInvalidQuestionLength
	}
	if len(p.Description) > 500 {
		return domain.ErrInvalidDescriptionLength
	}
	if len(p.Category) > 50 {
		return domain.ErrInvalidCategoryLength
	}
	if !p.ResolutionDate.After(now) {
		return domain.ErrInvalidResolutionDate
	}
	if p.InitialLiquidity == 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

// CreateMarket validates the parameters, funds the market's pool account from
// the creator, and persists the new market. Initial liquidity is split in
// half per pool; an odd unit is dropped. The matching LP supply is minted to
// the creator, so later providers always mint proportionally and can never
// claim the seed liquidity. The creator's reputation selects the
// participation threshold.
func (s *MarketService) CreateMarket(ctx context.Context, p CreateMarketParams) (domain.Market, error) {
	now := s.clock.Now()
	if err := p.validate(now); err != nil {
		return domain.Market{}, err
	}

	rep, err := s.identity.ReputationOf(ctx, p.Creator)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: reputation of %q: %w", p.Creator, err)
	}
	threshold := s.engine.GatedThreshold
	if rep >= s.engine.CreatorReputation {
		threshold = 0
	}

	half := p.InitialLiquidity / 2
	m := domain.Market{
		ID:                    uuid.NewString(),
		Authority:             p.Creator,
		Creator:               p.Creator,
		Status:                domain.MarketStatusActive,
		Question:              p.Question,
		Description:           p.Description,
		Category:              p.Category,
		CreatedAt:             now,
		ResolutionDate:        p.ResolutionDate,
		YesPool:               half,
		NoPool:                half,
		TotalPool:             half + half,
		LPSupply:              half + half,
		ReputationThreshold:   threshold,
		HumanVerifiedRequired: p.HumanVerifiedRequired,
		OracleFeedID:          p.OracleFeedID,
		UpdatedAt:             now,
	}

	if err := s.ledger.Transfer(ctx, p.Creator, domain.MarketPoolAccount(m.ID), m.TotalPool); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: fund pool: %w", err)
	}

	seed := domain.LiquidityPosition{
		ID:        uuid.NewString(),
		Provider:  p.Creator,
		MarketID:  m.ID,
		LPTokens:  m.LPSupply,
		AmountYes: half,
		AmountNo:  half,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.liquidity.Upsert(ctx, seed); err != nil {
		if refundErr := s.ledger.Transfer(ctx, domain.MarketPoolAccount(m.ID), p.Creator, m.TotalPool); refundErr != nil {
			s.logger.ErrorContext(ctx, "market_service: refund after seed failure",
				slog.String("market_id", m.ID),
				slog.String("error", refundErr.Error()),
			)
		}
		return domain.Market{}, fmt.Errorf("market_service: seed liquidity position: %w", err)
	}

	if err := s.markets.Create(ctx, m); err != nil {
		// Return the funds before surfacing the failure.
		if refundErr := s.ledger.Transfer(ctx, domain.MarketPoolAccount(m.ID), p.Creator, m.TotalPool); refundErr != nil {
			s.logger.ErrorContext(ctx, "market_service: refund after create failure",
				slog.String("market_id", m.ID),
				slog.String("error", refundErr.Error()),
			)
		}
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	if err := s.markets.ApplyStats(ctx, 1, m.TotalPool); err != nil {
		s.logger.WarnContext(ctx, "market_service: stats update failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", m.ID),
		slog.String("creator", p.Creator),
		slog.Uint64("initial_liquidity", m.TotalPool),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "market.created", MarketID: m.ID, UserID: p.Creator, Amount: m.TotalPool, At: now,
	})
	return m, nil
}

// CreateMetaMarket creates a market that predicts the resolution of an
// existing Active parent. Its resolution date is forced to 24 hours before
// the parent's, and the parent's meta_markets back-reference is updated
// without re-validating the parent state.
func (s *MarketService) CreateMetaMarket(ctx context.Context, parentID string, p CreateMarketParams) (domain.Market, error) {
	parent, err := s.GetMarket(ctx, parentID)
	if err != nil {
		return domain.Market{}, err
	}
	if parent.Status != domain.MarketStatusActive {
		return domain.Market{}, domain.ErrMarketNotActive
	}

	p.ResolutionDate = parent.ResolutionDate.Add(-metaMarketLead)
	m, err := s.CreateMarket(ctx, p)
	if err != nil {
		return domain.Market{}, err
	}

	m.ParentMarket = parent.ID
	if err := s.markets.Update(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: link parent: %w", err)
	}

	parent.MetaMarkets = append(parent.MetaMarkets, m.ID)
	parent.UpdatedAt = s.clock.Now()
	if err := s.markets.Update(ctx, parent); err != nil {
		s.logger.WarnContext(ctx, "market_service: parent back-reference update failed",
			slog.String("parent_id", parent.ID),
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
	s.invalidate(ctx, parent.ID)
	return m, nil
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the persistent store on a miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}

	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return m, nil
}

// ListByStatus returns markets in the given lifecycle state.
func (s *MarketService) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListByStatus(ctx, status, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list by status %q: %w", status, err)
	}
	return markets, nil
}

// Stats returns the process-wide registry aggregate.
func (s *MarketService) Stats(ctx context.Context) (domain.RegistryStats, error) {
	stats, err := s.markets.Stats(ctx)
	if err != nil {
		return domain.RegistryStats{}, fmt.Errorf("market_service: stats: %w", err)
	}
	return stats, nil
}

// Restore moves a Paused or Blacklisted market back to Active. Only the
// market authority may restore.
func (s *MarketService) Restore(ctx context.Context, caller, marketID string) error {
	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return fmt.Errorf("market_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("market_service: get by id %q: %w", marketID, err)
	}
	if caller != m.Authority {
		return domain.ErrUnauthorized
	}
	if err := m.Transition(domain.MarketStatusActive); err != nil {
		return err
	}
	m.UpdatedAt = s.clock.Now()
	if err := s.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("market_service: update: %w", err)
	}
	s.invalidate(ctx, m.ID)

	s.logger.InfoContext(ctx, "market_service: market restored",
		slog.String("market_id", m.ID),
		slog.String("caller", caller),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "market.restored", MarketID: m.ID, UserID: caller, At: m.UpdatedAt,
	})
	return nil
}

func (s *MarketService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}
