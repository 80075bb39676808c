package domain

import (
	"context"
	"time"
)

// Ledger is the external custodian of funds. The core only computes amounts
// and issues transfer intents; a failed ledger call must abort the calling
// operation without partial state mutation.
type Ledger interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
	Credit(ctx context.Context, account string, amount uint64) error
	Debit(ctx context.Context, account string, amount uint64) error
	BalanceOf(ctx context.Context, account string) (uint64, error)
}

// TreasuryAccount is the ledger account that collects platform fees.
const TreasuryAccount = "treasury"

// MarketPoolAccount returns the ledger account holding a market's pooled
// funds.
func MarketPoolAccount(marketID string) string {
	return "pool:" + marketID
}

// IdentityGate supplies the reputation score and human-verification flag the
// core consults before allowing participation. The core does not own this
// state.
type IdentityGate interface {
	ReputationOf(ctx context.Context, userID string) (uint32, error)
	IsHumanVerified(ctx context.Context, userID string) (bool, error)
	RecordActivity(ctx context.Context, userID string) error
}

// OracleFeed reads an external data feed by ID. Spec returns the feed's
// registered outcome configuration; ok is false for feeds without one.
type OracleFeed interface {
	Read(ctx context.Context, feedID string) (OracleReading, error)
	Spec(ctx context.Context, feedID string) (spec OracleFeedSpec, ok bool, err error)
}

// OracleComparison selects how a numeric oracle value maps to an outcome.
type OracleComparison string

const (
	OracleCompareGreater OracleComparison = ">"
	OracleCompareLess    OracleComparison = "<"
	OracleCompareEqual   OracleComparison = "="
)

// OracleFeedSpec is the pre-registered configuration that turns a feed value
// into a Yes/No outcome.
type OracleFeedSpec struct {
	FeedID     string           `json:"feed_id"`
	Provider   string           `json:"provider"`
	Comparison OracleComparison `json:"comparison"`
	Threshold  float64          `json:"threshold"`
}

// ModerationPolicy is the injected content policy consulted by automatic
// moderation. Implementations are supplied by the moderation collaborator,
// never hard-coded in the settlement core.
type ModerationPolicy interface {
	Dangerous(text string) bool
}

// Clock is the single authoritative time source shared by all components so
// that deadline checks cannot skew between the resolution engine and the
// pricing engine.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside of tests.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// MarketCache is a read-through cache for markets.
type MarketCache interface {
	Set(ctx context.Context, m Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// LockManager serializes mutating operations per market key. Acquire returns
// an unlock function that must be called to release the lock, and ErrLockHeld
// when another holder owns it.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// StreamMessage is one durable message read from the signal bus.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus is the engine's event fan-out: ephemeral pub/sub plus a durable
// ordered stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter bounds request rates per key. Allow counts the request when it
// is permitted.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PayoutPolicy selects the settlement formula.
type PayoutPolicy string

const (
	// PayoutPotSplit pays amount*total_pool/winning_pool with no fee step.
	PayoutPotSplit PayoutPolicy = "pot_split"
	// PayoutFeeAdjusted pays stake plus a share of the losing pool, minus the
	// platform fee.
	PayoutFeeAdjusted PayoutPolicy = "fee_adjusted"
)

// Payout is the result of a successful claim.
type Payout struct {
	Gross uint64 `json:"gross"`
	Fee   uint64 `json:"fee"`
	Net   uint64 `json:"net"`
}

// SettlementReport is the archival record written when a market resolves.
type SettlementReport struct {
	MarketID     string         `json:"market_id"`
	Question     string         `json:"question"`
	Resolution   ResolutionData `json:"resolution"`
	YesPool      uint64         `json:"yes_pool"`
	NoPool       uint64         `json:"no_pool"`
	TotalPool    uint64         `json:"total_pool"`
	Participants uint32         `json:"participants"`
}

// SettlementArchiver uploads settlement reports to long-term storage.
type SettlementArchiver interface {
	ArchiveResolution(ctx context.Context, report SettlementReport) error
}
