package domain

import "time"

// EmergencyActionType enumerates the governance actions the multisig can
// apply to a market.
type EmergencyActionType string

const (
	EmergencyActionPause     EmergencyActionType = "pause_market"
	EmergencyActionBlacklist EmergencyActionType = "blacklist_market"
)

// GovernanceState is the multisig configuration: an ordered signer set and
// the signature threshold required to execute an emergency action.
type GovernanceState struct {
	Signers   []string  `json:"signers"`
	Threshold int       `json:"threshold"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSigner reports whether id is an authorized signer.
func (g GovernanceState) IsSigner(id string) bool {
	for _, s := range g.Signers {
		if s == id {
			return true
		}
	}
	return false
}

// EmergencyAction accumulates distinct signer approvals until the threshold
// is reached, at which point its effect applies exactly once.
type EmergencyAction struct {
	ID         string              `json:"id"`
	MarketID   string              `json:"market_id"`
	Type       EmergencyActionType `json:"type"`
	Reason     string              `json:"reason"`
	Initiator  string              `json:"initiator"`
	Signatures []string            `json:"signatures"`
	Executed   bool                `json:"executed"`
	CreatedAt  time.Time           `json:"created_at"`
	ExecutedAt *time.Time          `json:"executed_at,omitempty"`
}

// HasSigned reports whether the signer's approval is already recorded.
func (a *EmergencyAction) HasSigned(signer string) bool {
	for _, s := range a.Signatures {
		if s == signer {
			return true
		}
	}
	return false
}

// AddSignature records a signer approval, treating Signatures as a set:
// re-submission by an already-recorded signer never double-counts. It returns
// true when the signature was newly added.
func (a *EmergencyAction) AddSignature(signer string) bool {
	if a.HasSigned(signer) {
		return false
	}
	a.Signatures = append(a.Signatures, signer)
	return true
}

// EligibilityVote is one reputation-weighted vote on whether a market should
// remain listed.
type EligibilityVote struct {
	MarketID string    `json:"market_id"`
	Voter    string    `json:"voter"`
	Approve  bool      `json:"approve"`
	Reason   string    `json:"reason"`
	Weight   uint64    `json:"weight"`
	VotedAt  time.Time `json:"voted_at"`
}

// EligibilityTally aggregates eligibility votes for a market. When the
// weighted No fraction exceeds ThresholdPct the market is blacklisted; if the
// balance later flips back it is restored.
type EligibilityTally struct {
	MarketID     string    `json:"market_id"`
	TotalVotes   uint32    `json:"total_votes"`
	YesVotes     uint32    `json:"yes_votes"`
	NoVotes      uint32    `json:"no_votes"`
	WeightedYes  uint64    `json:"weighted_yes"`
	WeightedNo   uint64    `json:"weighted_no"`
	ThresholdPct uint8     `json:"threshold_pct"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResolutionVote is one reputation-weighted vote on a market's final outcome,
// used by community-vote resolution.
type ResolutionVote struct {
	MarketID string    `json:"market_id"`
	Voter    string    `json:"voter"`
	Outcome  Outcome   `json:"outcome"`
	Weight   uint64    `json:"weight"`
	VotedAt  time.Time `json:"voted_at"`
}
