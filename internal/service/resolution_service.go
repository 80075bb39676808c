package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/predmarket/marketd/internal/config"
	"github.com/predmarket/marketd/internal/domain"
)

// ResolutionService closes markets through the supported resolution methods
// and runs the eligibility-vote sub-process.
type ResolutionService struct {
	markets    domain.MarketStore
	governance domain.GovernanceStore
	evidence   domain.EvidenceStore
	cache      domain.MarketCache
	locks      domain.LockManager
	identity   domain.IdentityGate
	feed       domain.OracleFeed
	archiver   domain.SettlementArchiver
	bus        domain.SignalBus
	clock      domain.Clock
	engine     config.EngineConfig
	eligPct    uint8
	logger     *slog.Logger
}

// NewResolutionService creates a ResolutionService with all required
// dependencies. archiver may be nil when report archiving is disabled.
func NewResolutionService(
	markets domain.MarketStore,
	governance domain.GovernanceStore,
	evidence domain.EvidenceStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	identity domain.IdentityGate,
	feed domain.OracleFeed,
	archiver domain.SettlementArchiver,
	bus domain.SignalBus,
	clock domain.Clock,
	engine config.EngineConfig,
	eligibilityPct uint8,
	logger *slog.Logger,
) *ResolutionService {
	return &ResolutionService{
		markets:    markets,
		governance: governance,
		evidence:   evidence,
		cache:      cache,
		locks:      locks,
		identity:   identity,
		feed:       feed,
		archiver:   archiver,
		bus:        bus,
		clock:      clock,
		engine:     engine,
		eligPct:    eligibilityPct,
		logger:     logger,
	}
}

// ResolveByAuthority resolves an expired market to the given outcome. Only
// the market authority may call it, and only once the resolution date has
// passed.
func (s *ResolutionService) ResolveByAuthority(ctx context.Context, caller, marketID string, outcome domain.Outcome) error {
	if !outcome.IsBinary() {
		return domain.ErrInvalidOutcome
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return fmt.Errorf("resolution_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}
	if caller != m.Authority {
		return domain.ErrUnauthorized
	}
	now := s.clock.Now()
	if now.Before(m.ResolutionDate) {
		return domain.ErrMarketNotExpired
	}

	return s.resolve(ctx, m, domain.ResolutionData{
		Outcome:    outcome,
		ResolvedAt: now,
		Method:     domain.ResolutionMethodExpertPanel,
	})
}

// ResolveWithOracle resolves a market from an oracle reading. The reading
// must meet the confidence floor; the outcome is derived from the value.
// Oracle resolution is allowed before the resolution date: a trusted feed
// settling the underlying question settles the market.
func (s *ResolutionService) ResolveWithOracle(ctx context.Context, marketID string, reading domain.OracleReading) error {
	if reading.Confidence < s.engine.MinOracleConfidence {
		return domain.ErrInsufficientOracleConfidence
	}
	outcome, err := outcomeFromOracleValue(reading.Value)
	if err != nil {
		return err
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return fmt.Errorf("resolution_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}

	r := reading
	return s.resolve(ctx, m, domain.ResolutionData{
		Outcome:    outcome,
		ResolvedAt: s.clock.Now(),
		Method:     domain.ResolutionMethodOracle,
		Oracle:     &r,
	})
}

// ResolveFromFeed reads the market's registered oracle feed and resolves from
// the latest reading. When the feed carries an outcome spec, the numeric
// value is compared against its threshold; otherwise the generic value
// heuristics apply.
func (s *ResolutionService) ResolveFromFeed(ctx context.Context, marketID string) error {
	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}
	if m.OracleFeedID == "" {
		return domain.ErrInvalidOracleData
	}
	reading, err := s.feed.Read(ctx, m.OracleFeedID)
	if err != nil {
		return fmt.Errorf("resolution_service: read feed %q: %w", m.OracleFeedID, err)
	}
	if reading.Confidence < s.engine.MinOracleConfidence {
		return domain.ErrInsufficientOracleConfidence
	}

	spec, hasSpec, err := s.feed.Spec(ctx, m.OracleFeedID)
	if err != nil {
		return fmt.Errorf("resolution_service: feed spec %q: %w", m.OracleFeedID, err)
	}
	var outcome domain.Outcome
	if hasSpec {
		outcome, err = outcomeFromSpec(spec, reading.Value)
	} else {
		outcome, err = outcomeFromOracleValue(reading.Value)
	}
	if err != nil {
		return err
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return fmt.Errorf("resolution_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err = s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}

	r := reading
	return s.resolve(ctx, m, domain.ResolutionData{
		Outcome:    outcome,
		ResolvedAt: s.clock.Now(),
		Method:     domain.ResolutionMethodOracle,
		Oracle:     &r,
	})
}

// VoteOnResolution records one reputation-weighted vote on an expired
// market's final outcome.
func (s *ResolutionService) VoteOnResolution(ctx context.Context, voter, marketID string, outcome domain.Outcome) error {
	if !outcome.IsBinary() {
		return domain.ErrInvalidOutcome
	}

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}
	if m.Resolved() {
		return domain.ErrAlreadyResolved
	}
	if s.clock.Now().Before(m.ResolutionDate) {
		return domain.ErrMarketNotExpired
	}

	weight, err := s.identity.ReputationOf(ctx, voter)
	if err != nil {
		return fmt.Errorf("resolution_service: reputation of %q: %w", voter, err)
	}

	v := domain.ResolutionVote{
		MarketID: marketID,
		Voter:    voter,
		Outcome:  outcome,
		Weight:   uint64(weight),
		VotedAt:  s.clock.Now(),
	}
	if err := s.governance.RecordResolutionVote(ctx, v); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("resolution_service: record vote: %w", err)
	}
	return nil
}

// ResolveByCommunity tallies the recorded resolution votes by weight and
// resolves the market to the heavier side. A weight tie resolves to No.
func (s *ResolutionService) ResolveByCommunity(ctx context.Context, marketID string) error {
	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return fmt.Errorf("resolution_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}
	now := s.clock.Now()
	if now.Before(m.ResolutionDate) {
		return domain.ErrMarketNotExpired
	}

	votes, err := s.governance.ListResolutionVotes(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: list votes: %w", err)
	}
	if len(votes) == 0 {
		return domain.ErrNoVotes
	}

	var yesWeight, noWeight uint64
	for _, v := range votes {
		if v.Outcome.Kind == domain.OutcomeKindYes {
			yesWeight += v.Weight
		} else {
			noWeight += v.Weight
		}
	}
	outcome := domain.OutcomeNo()
	if yesWeight > noWeight {
		outcome = domain.OutcomeYes()
	}

	return s.resolve(ctx, m, domain.ResolutionData{
		Outcome:    outcome,
		ResolvedAt: now,
		Method:     domain.ResolutionMethodCommunityVote,
	})
}

// ResolveTimeBased resolves an expired market to the market-implied result:
// the side with the larger pool. A pool tie resolves to No.
func (s *ResolutionService) ResolveTimeBased(ctx context.Context, marketID string) error {
	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return fmt.Errorf("resolution_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}
	now := s.clock.Now()
	if now.Before(m.ResolutionDate) {
		return domain.ErrMarketNotExpired
	}

	outcome := domain.OutcomeNo()
	if m.YesPool > m.NoPool {
		outcome = domain.OutcomeYes()
	}

	return s.resolve(ctx, m, domain.ResolutionData{
		Outcome:    outcome,
		ResolvedAt: now,
		Method:     domain.ResolutionMethodTimeBased,
	})
}

// VoteOnEligibility records one reputation-weighted vote on whether a market
// should remain listed, then re-evaluates the tally: a weighted No fraction
// above the threshold blacklists the market, and a later flip back restores
// it. Eligibility voting runs regardless of the resolution date.
func (s *ResolutionService) VoteOnEligibility(ctx context.Context, voter, marketID string, approve bool, reason string) error {
	if n := len(reason); n < 10 || n > 200 {
		return domain.ErrInvalidReasonLength
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return fmt.Errorf("resolution_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}
	if m.Resolved() {
		return domain.ErrAlreadyResolved
	}

	weight, err := s.identity.ReputationOf(ctx, voter)
	if err != nil {
		return fmt.Errorf("resolution_service: reputation of %q: %w", voter, err)
	}
	now := s.clock.Now()

	v := domain.EligibilityVote{
		MarketID: marketID,
		Voter:    voter,
		Approve:  approve,
		Reason:   reason,
		Weight:   uint64(weight),
		VotedAt:  now,
	}
	if err := s.governance.RecordEligibilityVote(ctx, v); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("resolution_service: record vote: %w", err)
	}

	tally, err := s.governance.EligibilityTally(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service: load tally: %w", err)
	}
	tally.MarketID = marketID
	tally.TotalVotes++
	if approve {
		tally.YesVotes++
		tally.WeightedYes += v.Weight
	} else {
		tally.NoVotes++
		tally.WeightedNo += v.Weight
	}
	tally.ThresholdPct = s.eligPct
	tally.UpdatedAt = now
	if err := s.governance.SaveEligibilityTally(ctx, tally); err != nil {
		return fmt.Errorf("resolution_service: save tally: %w", err)
	}

	return s.applyEligibility(ctx, m, tally)
}

// applyEligibility flips the market between Active and Blacklisted according
// to the weighted tally.
func (s *ResolutionService) applyEligibility(ctx context.Context, m domain.Market, tally domain.EligibilityTally) error {
	totalWeight := tally.WeightedYes + tally.WeightedNo
	if totalWeight == 0 {
		return nil
	}
	noPct := tally.WeightedNo * 100 / totalWeight

	var target domain.MarketStatus
	switch {
	case noPct > uint64(tally.ThresholdPct) && m.Status == domain.MarketStatusActive:
		target = domain.MarketStatusBlacklisted
	case noPct <= uint64(tally.ThresholdPct) && m.Status == domain.MarketStatusBlacklisted:
		target = domain.MarketStatusActive
	default:
		return nil
	}

	if err := m.Transition(target); err != nil {
		return err
	}
	m.UpdatedAt = s.clock.Now()
	if err := s.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("resolution_service: update market: %w", err)
	}
	s.invalidate(ctx, m.ID)

	s.logger.InfoContext(ctx, "resolution_service: eligibility status change",
		slog.String("market_id", m.ID),
		slog.String("status", string(target)),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "market.eligibility", MarketID: m.ID, At: m.UpdatedAt,
	})
	return nil
}

// SubmitEvidence attaches a sourced document to an unresolved market.
func (s *ResolutionService) SubmitEvidence(ctx context.Context, marketID, submitter string, evType domain.EvidenceType, sourceURL, description string) (domain.Evidence, error) {
	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Evidence{}, fmt.Errorf("resolution_service: get market %q: %w", marketID, err)
	}
	if m.Resolved() {
		return domain.Evidence{}, domain.ErrAlreadyResolved
	}

	e := domain.Evidence{
		ID:          uuid.NewString(),
		MarketID:    marketID,
		Submitter:   submitter,
		Type:        evType,
		SourceURL:   sourceURL,
		Description: description,
		SubmittedAt: s.clock.Now(),
	}
	if err := s.evidence.Create(ctx, e); err != nil {
		return domain.Evidence{}, fmt.Errorf("resolution_service: create evidence: %w", err)
	}
	return e, nil
}

// ListEvidence returns the evidence submitted for a market.
func (s *ResolutionService) ListEvidence(ctx context.Context, marketID string) ([]domain.Evidence, error) {
	out, err := s.evidence.ListByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("resolution_service: list evidence: %w", err)
	}
	return out, nil
}

// resolve writes the resolution data exactly once, archives the settlement
// report, and publishes the resolution event. Callers hold the market lock.
func (s *ResolutionService) resolve(ctx context.Context, m domain.Market, data domain.ResolutionData) error {
	if m.Resolved() {
		return domain.ErrAlreadyResolved
	}
	if err := m.Transition(domain.MarketStatusResolved); err != nil {
		return err
	}
	m.Resolution = &data
	m.UpdatedAt = data.ResolvedAt

	if err := s.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("resolution_service: update market: %w", err)
	}
	s.invalidate(ctx, m.ID)

	if s.archiver != nil {
		report := domain.SettlementReport{
			MarketID:     m.ID,
			Question:     m.Question,
			Resolution:   data,
			YesPool:      m.YesPool,
			NoPool:       m.NoPool,
			TotalPool:    m.TotalPool,
			Participants: m.TotalParticipants,
		}
		if err := s.archiver.ArchiveResolution(ctx, report); err != nil {
			s.logger.WarnContext(ctx, "resolution_service: archive failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "resolution_service: market resolved",
		slog.String("market_id", m.ID),
		slog.String("outcome", string(data.Outcome.Kind)),
		slog.String("method", string(data.Method)),
	)
	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "market.resolved", MarketID: m.ID, At: data.ResolvedAt,
	})
	return nil
}

// outcomeFromSpec compares a numeric feed value against the feed spec's threshold.
// Non-numeric values are invalid for spec-configured feeds.
func outcomeFromSpec(spec domain.OracleFeedSpec, value string) (domain.Outcome, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return domain.Outcome{}, domain.ErrInvalidOracleData
	}
	var yes bool
	switch spec.Comparison {
	case domain.OracleCompareGreater:
		yes = n > spec.Threshold
	case domain.OracleCompareLess:
		yes = n < spec.Threshold
	case domain.OracleCompareEqual:
		yes = n == spec.Threshold
	default:
		return domain.Outcome{}, domain.ErrInvalidOracleData
	}
	if yes {
		return domain.OutcomeYes(), nil
	}
	return domain.OutcomeNo(), nil
}

// outcomeFromOracleValue derives a binary outcome from an oracle value:
// numeric values above 0.5 mean Yes, and non-numeric values match on
// "yes"/"true" keywords. An empty value is invalid.
func outcomeFromOracleValue(value string) (domain.Outcome, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return domain.Outcome{}, domain.ErrInvalidOracleData
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		if n > 0.5 {
			return domain.OutcomeYes(), nil
		}
		return domain.OutcomeNo(), nil
	}
	if strings.Contains(v, "yes") || strings.Contains(v, "true") {
		return domain.OutcomeYes(), nil
	}
	return domain.OutcomeNo(), nil
}

func (s *ResolutionService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "resolution_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}
