package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists markets and the process-wide registry aggregate.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	Update(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	ListByStatus(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (RegistryStats, error)
	// ApplyStats adjusts the registry aggregate alongside a market mutation.
	ApplyStats(ctx context.Context, marketsDelta int64, volumeDelta uint64) error
}

// PositionStore persists per-user, per-market outcome positions.
type PositionStore interface {
	Upsert(ctx context.Context, pos Position) error
	Get(ctx context.Context, userID, marketID string) (Position, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Position, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Position, error)
}

// LiquidityStore persists liquidity-provider positions.
type LiquidityStore interface {
	Upsert(ctx context.Context, pos LiquidityPosition) error
	Get(ctx context.Context, provider, marketID string) (LiquidityPosition, error)
	ListByMarket(ctx context.Context, marketID string) ([]LiquidityPosition, error)
}

// ProfileStore persists user reputation and verification state.
type ProfileStore interface {
	Upsert(ctx context.Context, p UserProfile) error
	Get(ctx context.Context, userID string) (UserProfile, error)
}

// GovernanceStore persists the multisig configuration, emergency actions, and
// the two vote ledgers (eligibility and resolution).
type GovernanceStore interface {
	State(ctx context.Context) (GovernanceState, error)
	SaveState(ctx context.Context, s GovernanceState) error

	CreateAction(ctx context.Context, a EmergencyAction) error
	UpdateAction(ctx context.Context, a EmergencyAction) error
	GetPendingAction(ctx context.Context, marketID string, t EmergencyActionType) (EmergencyAction, error)
	ListActions(ctx context.Context, opts ListOpts) ([]EmergencyAction, error)

	RecordEligibilityVote(ctx context.Context, v EligibilityVote) error
	HasEligibilityVote(ctx context.Context, marketID, voter string) (bool, error)
	EligibilityTally(ctx context.Context, marketID string) (EligibilityTally, error)
	SaveEligibilityTally(ctx context.Context, t EligibilityTally) error

	RecordResolutionVote(ctx context.Context, v ResolutionVote) error
	HasResolutionVote(ctx context.Context, marketID, voter string) (bool, error)
	ListResolutionVotes(ctx context.Context, marketID string) ([]ResolutionVote, error)
}

// ReportStore persists content reports.
type ReportStore interface {
	Create(ctx context.Context, r ContentReport) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]ContentReport, error)
}

// EvidenceStore persists resolution evidence.
type EvidenceStore interface {
	Create(ctx context.Context, e Evidence) error
	ListByMarket(ctx context.Context, marketID string) ([]Evidence, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
