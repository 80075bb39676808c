package domain

import "time"

// HumanProofType enumerates the supported human-verification providers.
type HumanProofType string

const (
	HumanProofOfHumanity      HumanProofType = "proof_of_humanity"
	HumanProofBrightID        HumanProofType = "bright_id"
	HumanProofGitcoinPassport HumanProofType = "gitcoin_passport"
)

// HumanProof is an external attestation that a user is a unique human.
type HumanProof struct {
	Type       HumanProofType `json:"type"`
	ProofID    string         `json:"proof_id"`
	VerifiedAt time.Time      `json:"verified_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// UserProfile carries the reputation and verification state the core consults
// before allowing participation.
type UserProfile struct {
	UserID             string      `json:"user_id"`
	Reputation         uint32      `json:"reputation"`
	TotalPredictions   uint32      `json:"total_predictions"`
	CorrectPredictions uint32      `json:"correct_predictions"`
	AccuracyRate       uint8       `json:"accuracy_rate"` // percentage
	HumanVerified      bool        `json:"human_verified"`
	Proof              *HumanProof `json:"proof,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	LastActivity       time.Time   `json:"last_activity"`
}

// RecalcAccuracy recomputes the accuracy percentage from the prediction
// counters.
func (p *UserProfile) RecalcAccuracy() {
	if p.TotalPredictions == 0 {
		p.AccuracyRate = 0
		return
	}
	p.AccuracyRate = uint8(p.CorrectPredictions * 100 / p.TotalPredictions)
}
