package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predmarket/marketd/internal/domain"
)

// ProfileStore implements domain.ProfileStore on PostgreSQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) Upsert(ctx context.Context, p domain.UserProfile) error {
	var proof []byte
	if p.Proof != nil {
		b, err := json.Marshal(p.Proof)
		if err != nil {
			return fmt.Errorf("postgres: marshal proof for %s: %w", p.UserID, err)
		}
		proof = b
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (
			user_id, reputation, total_predictions, correct_predictions,
			accuracy_rate, human_verified, proof, created_at, last_activity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			reputation = EXCLUDED.reputation,
			total_predictions = EXCLUDED.total_predictions,
			correct_predictions = EXCLUDED.correct_predictions,
			accuracy_rate = EXCLUDED.accuracy_rate,
			human_verified = EXCLUDED.human_verified,
			proof = EXCLUDED.proof,
			last_activity = EXCLUDED.last_activity`,
		p.UserID, p.Reputation, p.TotalPredictions, p.CorrectPredictions,
		int16(p.AccuracyRate), p.HumanVerified, proof, p.CreatedAt,
		p.LastActivity)
	if err != nil {
		return fmt.Errorf("postgres: upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	var (
		p        domain.UserProfile
		accuracy int16
		proof    []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, reputation, total_predictions, correct_predictions,
		       accuracy_rate, human_verified, proof, created_at, last_activity
		FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(
		&p.UserID, &p.Reputation, &p.TotalPredictions, &p.CorrectPredictions,
		&accuracy, &p.HumanVerified, &proof, &p.CreatedAt, &p.LastActivity,
	)
	if err != nil {
		return domain.UserProfile{}, mapScanErr(err)
	}
	p.AccuracyRate = uint8(accuracy)
	if len(proof) > 0 {
		var hp domain.HumanProof
		if err := json.Unmarshal(proof, &hp); err != nil {
			return domain.UserProfile{}, fmt.Errorf("postgres: unmarshal proof for %s: %w", userID, err)
		}
		p.Proof = &hp
	}
	return p, nil
}
