package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive      MarketStatus = "active"
	MarketStatusPaused      MarketStatus = "paused"
	MarketStatusResolved    MarketStatus = "resolved"
	MarketStatusDisputed    MarketStatus = "disputed"
	MarketStatusBlacklisted MarketStatus = "blacklisted"
)

// OutcomeKind discriminates the outcome variants of a market.
type OutcomeKind string

const (
	OutcomeKindYes   OutcomeKind = "yes"
	OutcomeKindNo    OutcomeKind = "no"
	OutcomeKindOther OutcomeKind = "other"
)

// Outcome is a tagged outcome value. Binary markets use Yes/No; the Other
// variant carries an index for multi-outcome markets, which most operations
// currently reject.
type Outcome struct {
	Kind  OutcomeKind `json:"kind"`
	Index uint8       `json:"index,omitempty"`
}

// OutcomeYes returns the Yes outcome.
func OutcomeYes() Outcome { return Outcome{Kind: OutcomeKindYes} }

// OutcomeNo returns the No outcome.
func OutcomeNo() Outcome { return Outcome{Kind: OutcomeKindNo} }

// OutcomeOther returns the n-th outcome of a multi-outcome market.
func OutcomeOther(n uint8) Outcome { return Outcome{Kind: OutcomeKindOther, Index: n} }

// IsBinary reports whether the outcome is Yes or No.
func (o Outcome) IsBinary() bool {
	return o.Kind == OutcomeKindYes || o.Kind == OutcomeKindNo
}

// Equal reports whether two outcomes are the same variant and index.
func (o Outcome) Equal(other Outcome) bool {
	return o.Kind == other.Kind && o.Index == other.Index
}

// ResolutionMethod records how a market reached its terminal outcome.
type ResolutionMethod string

const (
	ResolutionMethodOracle        ResolutionMethod = "oracle"
	ResolutionMethodCommunityVote ResolutionMethod = "community_vote"
	ResolutionMethodExpertPanel   ResolutionMethod = "expert_panel"
	ResolutionMethodTimeBased     ResolutionMethod = "time_based"
)

// OracleReading is one observation from an external data feed.
type OracleReading struct {
	Provider   string    `json:"provider"`
	FeedID     string    `json:"feed_id"`
	Value      string    `json:"value"`
	Confidence uint8     `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// ResolutionData is written exactly once when a market resolves and is
// immutable afterwards.
type ResolutionData struct {
	Outcome      Outcome          `json:"outcome"`
	ResolvedAt   time.Time        `json:"resolved_at"`
	Method       ResolutionMethod `json:"method"`
	Oracle       *OracleReading   `json:"oracle,omitempty"`
	EvidenceUsed []string         `json:"evidence_used,omitempty"`
}

// ModerationType classifies who or what raised a moderation flag.
type ModerationType string

const (
	ModerationTypeAutomatic ModerationType = "automatic"
	ModerationTypeCommunity ModerationType = "community"
	ModerationTypeLegal     ModerationType = "legal"
)

// ModerationFlag is an unresolved or resolved complaint attached to a market.
type ModerationFlag struct {
	Type      ModerationType `json:"type"`
	Reason    string         `json:"reason"`
	FlaggedBy string         `json:"flagged_by"`
	FlaggedAt time.Time      `json:"flagged_at"`
	Resolved  bool           `json:"resolved"`
}

// Market is a binary prediction market priced by two correlated pools.
// TotalPool equals YesPool+NoPool before and after every completed operation.
type Market struct {
	ID                    string           `json:"id"`
	Authority             string           `json:"authority"`
	Creator               string           `json:"creator"`
	Status                MarketStatus     `json:"status"`
	Question              string           `json:"question"`
	Description           string           `json:"description"`
	Category              string           `json:"category"`
	CreatedAt             time.Time        `json:"created_at"`
	ResolutionDate        time.Time        `json:"resolution_date"`
	YesPool               uint64           `json:"yes_pool"`
	NoPool                uint64           `json:"no_pool"`
	TotalPool             uint64           `json:"total_pool"`
	LPSupply              uint64           `json:"lp_supply"`
	TotalParticipants     uint32           `json:"total_participants"`
	ReputationThreshold   uint32           `json:"reputation_threshold"`
	HumanVerifiedRequired bool             `json:"human_verified_required"`
	OracleFeedID          string           `json:"oracle_feed_id,omitempty"`
	Resolution            *ResolutionData  `json:"resolution,omitempty"`
	ModerationFlags       []ModerationFlag `json:"moderation_flags,omitempty"`
	MetaMarkets           []string         `json:"meta_markets,omitempty"`
	ParentMarket          string           `json:"parent_market,omitempty"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// Resolved reports whether resolution data has been written.
func (m *Market) Resolved() bool { return m.Resolution != nil }

// ResolutionInfo returns the resolution data and whether it exists. Callers
// must use this accessor rather than assuming the pointer is set; resolution
// data exists iff the market status is Resolved.
func (m *Market) ResolutionInfo() (ResolutionData, bool) {
	if m.Resolution == nil {
		return ResolutionData{}, false
	}
	return *m.Resolution, true
}

// Pool returns the pool backing the given outcome. Multi-outcome markets are
// not pooled and return false.
func (m *Market) Pool(o Outcome) (uint64, bool) {
	switch o.Kind {
	case OutcomeKindYes:
		return m.YesPool, true
	case OutcomeKindNo:
		return m.NoPool, true
	default:
		return 0, false
	}
}

// Transition applies a lifecycle change, enforcing the central state machine:
//
//	Active -> Paused | Resolved | Blacklisted
//	Paused | Blacklisted -> Active
//
// Resolved is terminal. Any other move is rejected.
func (m *Market) Transition(to MarketStatus) error {
	if m.Status == MarketStatusResolved {
		return ErrAlreadyResolved
	}
	switch {
	case m.Status == MarketStatusActive &&
		(to == MarketStatusPaused || to == MarketStatusResolved || to == MarketStatusBlacklisted):
	case (m.Status == MarketStatusPaused || m.Status == MarketStatusBlacklisted) &&
		to == MarketStatusActive:
	default:
		return ErrMarketNotActive
	}
	m.Status = to
	return nil
}

// RegistryStats is the process-wide aggregate updated transactionally
// alongside market mutations.
type RegistryStats struct {
	TotalMarkets uint64    `json:"total_markets"`
	TotalVolume  uint64    `json:"total_volume"`
	UpdatedAt    time.Time `json:"updated_at"`
}
