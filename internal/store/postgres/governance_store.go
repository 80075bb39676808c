package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predmarket/marketd/internal/domain"
)

// GovernanceStore implements domain.GovernanceStore on PostgreSQL. The
// multisig state lives in a single-row table seeded by the migrations.
type GovernanceStore struct {
	pool *pgxpool.Pool
}

func NewGovernanceStore(pool *pgxpool.Pool) *GovernanceStore {
	return &GovernanceStore{pool: pool}
}

func (s *GovernanceStore) State(ctx context.Context) (domain.GovernanceState, error) {
	var st domain.GovernanceState
	err := s.pool.QueryRow(ctx,
		"SELECT signers, threshold, updated_at FROM governance_state WHERE id = 1",
	).Scan(&st.Signers, &st.Threshold, &st.UpdatedAt)
	if err != nil {
		return domain.GovernanceState{}, fmt.Errorf("postgres: read governance state: %w", err)
	}
	return st, nil
}

func (s *GovernanceStore) SaveState(ctx context.Context, st domain.GovernanceState) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE governance_state
		SET signers = $1, threshold = $2, updated_at = $3
		WHERE id = 1`,
		orEmpty(st.Signers), st.Threshold, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save governance state: %w", err)
	}
	return nil
}

const actionColumns = `
	id, market_id, action_type, reason, initiator, signatures, executed,
	created_at, executed_at`

func (s *GovernanceStore) CreateAction(ctx context.Context, a domain.EmergencyAction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO emergency_actions (
			id, market_id, action_type, reason, initiator, signatures,
			executed, created_at, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.MarketID, string(a.Type), a.Reason, a.Initiator,
		orEmpty(a.Signatures), a.Executed, a.CreatedAt, a.ExecutedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert emergency action %s: %w", a.ID, err)
	}
	return nil
}

func (s *GovernanceStore) UpdateAction(ctx context.Context, a domain.EmergencyAction) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE emergency_actions SET
			signatures = $2, executed = $3, executed_at = $4
		WHERE id = $1`,
		a.ID, orEmpty(a.Signatures), a.Executed, a.ExecutedAt)
	if err != nil {
		return fmt.Errorf("postgres: update emergency action %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GovernanceStore) GetPendingAction(ctx context.Context, marketID string, t domain.EmergencyActionType) (domain.EmergencyAction, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT"+actionColumns+` FROM emergency_actions
		WHERE market_id = $1 AND action_type = $2 AND NOT executed
		ORDER BY created_at LIMIT 1`,
		marketID, string(t))
	a, err := scanAction(row)
	if err != nil {
		return domain.EmergencyAction{}, mapScanErr(err)
	}
	return a, nil
}

func (s *GovernanceStore) ListActions(ctx context.Context, opts domain.ListOpts) ([]domain.EmergencyAction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		"SELECT"+actionColumns+` FROM emergency_actions
		ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list emergency actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.EmergencyAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan emergency action row: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate emergency action rows: %w", err)
	}
	return actions, nil
}

func scanAction(row pgx.Row) (domain.EmergencyAction, error) {
	var (
		a          domain.EmergencyAction
		actionType string
	)
	err := row.Scan(
		&a.ID, &a.MarketID, &actionType, &a.Reason, &a.Initiator,
		&a.Signatures, &a.Executed, &a.CreatedAt, &a.ExecutedAt,
	)
	if err != nil {
		return domain.EmergencyAction{}, err
	}
	a.Type = domain.EmergencyActionType(actionType)
	return a, nil
}

func (s *GovernanceStore) RecordEligibilityVote(ctx context.Context, v domain.EligibilityVote) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO eligibility_votes (market_id, voter, approve, reason, weight, voted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.MarketID, v.Voter, v.Approve, v.Reason, int64(v.Weight), v.VotedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("postgres: record eligibility vote by %s: %w", v.Voter, err)
	}
	return nil
}

func (s *GovernanceStore) HasEligibilityVote(ctx context.Context, marketID, voter string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM eligibility_votes WHERE market_id = $1 AND voter = $2)",
		marketID, voter,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check eligibility vote by %s: %w", voter, err)
	}
	return exists, nil
}

func (s *GovernanceStore) EligibilityTally(ctx context.Context, marketID string) (domain.EligibilityTally, error) {
	var (
		t           domain.EligibilityTally
		weightedYes int64
		weightedNo  int64
		threshold   int16
	)
	err := s.pool.QueryRow(ctx, `
		SELECT market_id, total_votes, yes_votes, no_votes, weighted_yes,
		       weighted_no, threshold_pct, updated_at
		FROM eligibility_tallies WHERE market_id = $1`,
		marketID,
	).Scan(
		&t.MarketID, &t.TotalVotes, &t.YesVotes, &t.NoVotes, &weightedYes,
		&weightedNo, &threshold, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EligibilityTally{MarketID: marketID}, nil
	}
	if err != nil {
		return domain.EligibilityTally{}, fmt.Errorf("postgres: read eligibility tally for %s: %w", marketID, err)
	}
	t.WeightedYes = uint64(weightedYes)
	t.WeightedNo = uint64(weightedNo)
	t.ThresholdPct = uint8(threshold)
	return t, nil
}

func (s *GovernanceStore) SaveEligibilityTally(ctx context.Context, t domain.EligibilityTally) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO eligibility_tallies (
			market_id, total_votes, yes_votes, no_votes, weighted_yes,
			weighted_no, threshold_pct, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (market_id) DO UPDATE SET
			total_votes = EXCLUDED.total_votes,
			yes_votes = EXCLUDED.yes_votes,
			no_votes = EXCLUDED.no_votes,
			weighted_yes = EXCLUDED.weighted_yes,
			weighted_no = EXCLUDED.weighted_no,
			threshold_pct = EXCLUDED.threshold_pct,
			updated_at = EXCLUDED.updated_at`,
		t.MarketID, t.TotalVotes, t.YesVotes, t.NoVotes,
		int64(t.WeightedYes), int64(t.WeightedNo), int16(t.ThresholdPct),
		t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save eligibility tally for %s: %w", t.MarketID, err)
	}
	return nil
}

func (s *GovernanceStore) RecordResolutionVote(ctx context.Context, v domain.ResolutionVote) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO resolution_votes (market_id, voter, outcome_kind, outcome_index, weight, voted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.MarketID, v.Voter, string(v.Outcome.Kind), int16(v.Outcome.Index),
		int64(v.Weight), v.VotedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("postgres: record resolution vote by %s: %w", v.Voter, err)
	}
	return nil
}

func (s *GovernanceStore) HasResolutionVote(ctx context.Context, marketID, voter string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM resolution_votes WHERE market_id = $1 AND voter = $2)",
		marketID, voter,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check resolution vote by %s: %w", voter, err)
	}
	return exists, nil
}

func (s *GovernanceStore) ListResolutionVotes(ctx context.Context, marketID string) ([]domain.ResolutionVote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT market_id, voter, outcome_kind, outcome_index, weight, voted_at
		FROM resolution_votes WHERE market_id = $1 ORDER BY voted_at, voter`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolution votes for %s: %w", marketID, err)
	}
	defer rows.Close()

	var votes []domain.ResolutionVote
	for rows.Next() {
		var (
			v      domain.ResolutionVote
			kind   string
			index  int16
			weight int64
		)
		if err := rows.Scan(&v.MarketID, &v.Voter, &kind, &index, &weight, &v.VotedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan resolution vote row: %w", err)
		}
		v.Outcome = domain.Outcome{Kind: domain.OutcomeKind(kind), Index: uint8(index)}
		v.Weight = uint64(weight)
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate resolution vote rows: %w", err)
	}
	return votes, nil
}
