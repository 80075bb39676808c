package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/predmarket/marketd/internal/domain"
)

// ModerationService handles content reports against markets. The content
// policy is injected; the service never hard-codes what counts as dangerous.
type ModerationService struct {
	markets domain.MarketStore
	reports domain.ReportStore
	cache   domain.MarketCache
	locks   domain.LockManager
	policy  domain.ModerationPolicy
	bus     domain.SignalBus
	clock   domain.Clock
	logger  *slog.Logger
}

// NewModerationService creates a ModerationService.
func NewModerationService(
	markets domain.MarketStore,
	reports domain.ReportStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	policy domain.ModerationPolicy,
	bus domain.SignalBus,
	clock domain.Clock,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		markets: markets,
		reports: reports,
		cache:   cache,
		locks:   locks,
		policy:  policy,
		bus:     bus,
		clock:   clock,
		logger:  logger,
	}
}

// ReportContent records a complaint and attaches a moderation flag to the
// market. Legal reports pause the market immediately; automatic reports
// pause it only when the injected policy flags the market text.
func (s *ModerationService) ReportContent(ctx context.Context, reporter, marketID string, modType domain.ModerationType, reason string) (domain.ContentReport, error) {
	if n := len(reason); n < 10 || n > 200 {
		return domain.ContentReport{}, domain.ErrInvalidReasonLength
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return domain.ContentReport{}, fmt.Errorf("moderation_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.ContentReport{}, fmt.Errorf("moderation_service: get market %q: %w", marketID, err)
	}

	now := s.clock.Now()
	report := domain.ContentReport{
		ID:        uuid.NewString(),
		MarketID:  marketID,
		Reporter:  reporter,
		Type:      modType,
		Reason:    reason,
		Status:    domain.ReportStatusPending,
		CreatedAt: now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return domain.ContentReport{}, fmt.Errorf("moderation_service: create report: %w", err)
	}

	m.ModerationFlags = append(m.ModerationFlags, domain.ModerationFlag{
		Type:      modType,
		Reason:    reason,
		FlaggedBy: reporter,
		FlaggedAt: now,
	})

	pause := modType == domain.ModerationTypeLegal
	if modType == domain.ModerationTypeAutomatic && s.policy.Dangerous(m.Question+" "+m.Description) {
		pause = true
	}
	if pause && m.Status == domain.MarketStatusActive {
		if err := m.Transition(domain.MarketStatusPaused); err != nil {
			return domain.ContentReport{}, err
		}
		s.logger.InfoContext(ctx, "moderation_service: market paused",
			slog.String("market_id", marketID),
			slog.String("type", string(modType)),
		)
	}

	m.UpdatedAt = now
	if err := s.markets.Update(ctx, m); err != nil {
		return domain.ContentReport{}, fmt.Errorf("moderation_service: update market: %w", err)
	}
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "moderation_service: cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	publishEvent(ctx, s.bus, s.logger, Event{
		Type: "content.reported", MarketID: marketID, UserID: reporter, At: now,
	})
	return report, nil
}

// ListReports returns the reports filed against a market.
func (s *ModerationService) ListReports(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ContentReport, error) {
	reports, err := s.reports.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("moderation_service: list reports: %w", err)
	}
	return reports, nil
}
