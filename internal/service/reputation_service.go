package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/predmarket/marketd/internal/domain"
)

// Reputation bonuses granted per human-proof type.
var proofBonuses = map[domain.HumanProofType]uint32{
	domain.HumanProofOfHumanity:      100,
	domain.HumanProofBrightID:        75,
	domain.HumanProofGitcoinPassport: 50,
}

// ReputationService owns user profiles: reputation scoring, human
// verification, and the identity gate consumed by the trading path.
type ReputationService struct {
	profiles domain.ProfileStore
	clock    domain.Clock
	logger   *slog.Logger
}

// NewReputationService creates a ReputationService.
func NewReputationService(profiles domain.ProfileStore, clock domain.Clock, logger *slog.Logger) *ReputationService {
	return &ReputationService{profiles: profiles, clock: clock, logger: logger}
}

// UpdateReputation applies the banded reputation delta for an accuracy score
// in [0,100]: +25 at 90 and above, +15 at 80, +5 at 70, no change at 60, and
// -10 below 60. Reputation saturates at zero and never goes negative.
func (s *ReputationService) UpdateReputation(ctx context.Context, userID string, accuracyScore uint8) (domain.UserProfile, error) {
	if accuracyScore > 100 {
		return domain.UserProfile{}, domain.ErrInvalidAccuracyScore
	}

	profile, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}

	switch {
	case accuracyScore >= 90:
		profile.Reputation = satAdd(profile.Reputation, 25)
	case accuracyScore >= 80:
		profile.Reputation = satAdd(profile.Reputation, 15)
	case accuracyScore >= 70:
		profile.Reputation = satAdd(profile.Reputation, 5)
	case accuracyScore >= 60:
		// No change in the neutral band.
	default:
		if profile.Reputation < 10 {
			profile.Reputation = 0
		} else {
			profile.Reputation -= 10
		}
	}

	profile.LastActivity = s.clock.Now()
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return domain.UserProfile{}, fmt.Errorf("reputation_service: upsert profile: %w", err)
	}

	s.logger.InfoContext(ctx, "reputation_service: reputation updated",
		slog.String("user_id", userID),
		slog.Int("accuracy", int(accuracyScore)),
		slog.Int64("reputation", int64(profile.Reputation)),
	)
	return profile, nil
}

// VerifyHuman validates a human-verification proof, marks the profile
// verified, and grants the per-provider reputation bonus.
func (s *ReputationService) VerifyHuman(ctx context.Context, userID string, proof domain.HumanProof) (domain.UserProfile, error) {
	bonus, ok := proofBonuses[proof.Type]
	if !ok || proof.ProofID == "" {
		return domain.UserProfile{}, domain.ErrInvalidProof
	}
	now := s.clock.Now()
	if proof.ExpiresAt != nil && !proof.ExpiresAt.After(now) {
		return domain.UserProfile{}, domain.ErrProofExpired
	}

	profile, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}

	proof.VerifiedAt = now
	profile.HumanVerified = true
	profile.Proof = &proof
	profile.Reputation = satAdd(profile.Reputation, bonus)
	profile.LastActivity = now

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return domain.UserProfile{}, fmt.Errorf("reputation_service: upsert profile: %w", err)
	}

	s.logger.InfoContext(ctx, "reputation_service: human verified",
		slog.String("user_id", userID),
		slog.String("proof_type", string(proof.Type)),
	)
	return profile, nil
}

// GetProfile returns a user's profile.
func (s *ReputationService) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("reputation_service: get profile: %w", err)
	}
	return profile, nil
}

// ReputationOf implements domain.IdentityGate. Unknown users have zero
// reputation.
func (s *ReputationService) ReputationOf(ctx context.Context, userID string) (uint32, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reputation_service: get profile: %w", err)
	}
	return profile.Reputation, nil
}

// IsHumanVerified implements domain.IdentityGate.
func (s *ReputationService) IsHumanVerified(ctx context.Context, userID string) (bool, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reputation_service: get profile: %w", err)
	}
	return profile.HumanVerified, nil
}

// RecordActivity implements domain.IdentityGate.
func (s *ReputationService) RecordActivity(ctx context.Context, userID string) error {
	profile, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	profile.LastActivity = s.clock.Now()
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("reputation_service: upsert profile: %w", err)
	}
	return nil
}

func (s *ReputationService) getOrCreate(ctx context.Context, userID string) (domain.UserProfile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UserProfile{UserID: userID, CreatedAt: s.clock.Now()}, nil
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("reputation_service: get profile: %w", err)
	}
	return profile, nil
}

func satAdd(rep, delta uint32) uint32 {
	if rep > math.MaxUint32-delta {
		return math.MaxUint32
	}
	return rep + delta
}

var _ domain.IdentityGate = (*ReputationService)(nil)
