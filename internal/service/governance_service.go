package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/predmarket/marketd/internal/domain"
)

// GovernanceService runs the threshold multisig over emergency actions.
type GovernanceService struct {
	markets    domain.MarketStore
	governance domain.GovernanceStore
	cache      domain.MarketCache
	locks      domain.LockManager
	bus        domain.SignalBus
	clock      domain.Clock
	logger     *slog.Logger
}

// NewGovernanceService creates a GovernanceService with all required
// dependencies.
func NewGovernanceService(
	markets domain.MarketStore,
	governance domain.GovernanceStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	clock domain.Clock,
	logger *slog.Logger,
) *GovernanceService {
	return &GovernanceService{
		markets:    markets,
		governance: governance,
		cache:      cache,
		locks:      locks,
		bus:        bus,
		clock:      clock,
		logger:     logger,
	}
}

// SignEmergencyAction records one signer's approval of an emergency action
// against a market, creating the pending action on first signature.
// Signatures are a set: a repeat signature is a no-op. The moment the
// distinct-signature count reaches the threshold, the action's effect applies
// exactly once; further signatures on an executed action are rejected.
func (s *GovernanceService) SignEmergencyAction(ctx context.Context, signer, marketID string, actionType domain.EmergencyActionType, reason string) (domain.EmergencyAction, error) {
	if n := len(reason); n < 10 || n > 200 {
		return domain.EmergencyAction{}, domain.ErrInvalidReasonLength
	}
	switch actionType {
	case domain.EmergencyActionPause, domain.EmergencyActionBlacklist:
	default:
		return domain.EmergencyAction{}, fmt.Errorf("governance_service: unsupported action type %q", actionType)
	}

	state, err := s.governance.State(ctx)
	if err != nil {
		return domain.EmergencyAction{}, fmt.Errorf("governance_service: load state: %w", err)
	}
	if !state.IsSigner(signer) {
		return domain.EmergencyAction{}, domain.ErrUnauthorizedSigner
	}

	unlock, err := s.locks.Acquire(ctx, marketID, lockTTL)
	if err != nil {
		return domain.EmergencyAction{}, fmt.Errorf("governance_service: acquire lock: %w", err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.EmergencyAction{}, fmt.Errorf("governance_service: get market %q: %w", marketID, err)
	}

	now := s.clock.Now()
	action, err := s.governance.GetPendingAction(ctx, marketID, actionType)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		created = true
		action = domain.EmergencyAction{
			ID:        uuid.NewString(),
			MarketID:  marketID,
			Type:      actionType,
			Reason:    reason,
			Initiator: signer,
			CreatedAt: now,
		}
	default:
		return domain.EmergencyAction{}, fmt.Errorf("governance_service: get pending action: %w", err)
	}
	if action.Executed {
		return domain.EmergencyAction{}, domain.ErrActionExecuted
	}

	added := action.AddSignature(signer)

	if len(action.Signatures) >= state.Threshold && !action.Executed {
		target := domain.MarketStatusPaused
		if action.Type == domain.EmergencyActionBlacklist {
			target = domain.MarketStatusBlacklisted
		}
		if err := m.Transition(target); err != nil {
			return domain.EmergencyAction{}, err
		}
		m.UpdatedAt = now
		if err := s.markets.Update(ctx, m); err != nil {
			return domain.EmergencyAction{}, fmt.Errorf("governance_service: update market: %w", err)
		}
		s.invalidate(ctx, marketID)

		action.Executed = true
		executedAt := now
		action.ExecutedAt = &executedAt

		s.logger.InfoContext(ctx, "governance_service: emergency action executed",
			slog.String("market_id", marketID),
			slog.String("type", string(action.Type)),
			slog.Int("signatures", len(action.Signatures)),
		)
		publishEvent(ctx, s.bus, s.logger, Event{
			Type: "governance.executed", MarketID: marketID, UserID: signer, At: now,
		})
	}

	if created {
		if err := s.governance.CreateAction(ctx, action); err != nil {
			return domain.EmergencyAction{}, fmt.Errorf("governance_service: create action: %w", err)
		}
	} else if added || action.Executed {
		if err := s.governance.UpdateAction(ctx, action); err != nil {
			return domain.EmergencyAction{}, fmt.Errorf("governance_service: update action: %w", err)
		}
	}

	if added && !action.Executed {
		s.logger.InfoContext(ctx, "governance_service: signature recorded",
			slog.String("market_id", marketID),
			slog.String("signer", signer),
			slog.Int("signatures", len(action.Signatures)),
			slog.Int("threshold", state.Threshold),
		)
	}
	return action, nil
}

// ListActions returns all emergency actions, pending and executed.
func (s *GovernanceService) ListActions(ctx context.Context, opts domain.ListOpts) ([]domain.EmergencyAction, error) {
	actions, err := s.governance.ListActions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("governance_service: list actions: %w", err)
	}
	return actions, nil
}

func (s *GovernanceService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "governance_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}
