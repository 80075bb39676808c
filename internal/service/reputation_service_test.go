package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predmarket/marketd/internal/domain"
)

func TestUpdateReputationBands(t *testing.T) {
	tests := []struct {
		name     string
		start    uint32
		accuracy uint8
		want     uint32
	}{
		{"excellent", 100, 95, 125},
		{"excellent lower bound", 100, 90, 125},
		{"good", 100, 80, 115},
		{"average", 100, 72, 105},
		{"average lower bound", 100, 70, 105},
		{"below average", 100, 65, 100},
		{"below average lower bound", 100, 60, 100},
		{"poor", 100, 50, 90},
		{"poor saturates at zero", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.seedProfile(t, "user", tt.start, false)

			profile, err := e.reputation.UpdateReputation(context.Background(), "user", tt.accuracy)
			require.NoError(t, err)
			require.Equal(t, tt.want, profile.Reputation)
		})
	}
}

func TestUpdateReputationRejectsInvalidScore(t *testing.T) {
	e := newEnv(t)
	_, err := e.reputation.UpdateReputation(context.Background(), "user", 101)
	require.ErrorIs(t, err, domain.ErrInvalidAccuracyScore)
}

func TestVerifyHumanGrantsProofBonus(t *testing.T) {
	tests := []struct {
		proofType domain.HumanProofType
		bonus     uint32
	}{
		{domain.HumanProofOfHumanity, 100},
		{domain.HumanProofBrightID, 75},
		{domain.HumanProofGitcoinPassport, 50},
	}
	for _, tt := range tests {
		t.Run(string(tt.proofType), func(t *testing.T) {
			e := newEnv(t)
			profile, err := e.reputation.VerifyHuman(context.Background(), "user", domain.HumanProof{
				Type:    tt.proofType,
				ProofID: "attestation-1",
			})
			require.NoError(t, err)
			require.True(t, profile.HumanVerified)
			require.Equal(t, tt.bonus, profile.Reputation)
			require.NotNil(t, profile.Proof)
		})
	}
}

func TestVerifyHumanRejectsBadProofs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.reputation.VerifyHuman(ctx, "user", domain.HumanProof{
		Type: "unknown_provider", ProofID: "x",
	})
	require.ErrorIs(t, err, domain.ErrInvalidProof)

	_, err = e.reputation.VerifyHuman(ctx, "user", domain.HumanProof{
		Type: domain.HumanProofBrightID,
	})
	require.ErrorIs(t, err, domain.ErrInvalidProof)

	expired := e.clock.Now().Add(-time.Hour)
	_, err = e.reputation.VerifyHuman(ctx, "user", domain.HumanProof{
		Type: domain.HumanProofBrightID, ProofID: "x", ExpiresAt: &expired,
	})
	require.ErrorIs(t, err, domain.ErrProofExpired)
}

func TestIdentityGateDefaults(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rep, err := e.reputation.ReputationOf(ctx, "nobody")
	require.NoError(t, err)
	require.Zero(t, rep)

	verified, err := e.reputation.IsHumanVerified(ctx, "nobody")
	require.NoError(t, err)
	require.False(t, verified)

	require.NoError(t, e.reputation.RecordActivity(ctx, "nobody"))
	profile, err := e.profiles.Get(ctx, "nobody")
	require.NoError(t, err)
	require.Equal(t, e.clock.Now(), profile.LastActivity)
}
