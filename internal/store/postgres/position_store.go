package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predmarket/marketd/internal/domain"
)

// PositionStore implements domain.PositionStore on PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionColumns = `
	id, user_id, market_id, outcome_kind, outcome_index, amount,
	entry_price, claimed, created_at, updated_at`

func (s *PositionStore) Upsert(ctx context.Context, pos domain.Position) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (
			id, user_id, market_id, outcome_kind, outcome_index, amount,
			entry_price, claimed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, market_id) DO UPDATE SET
			outcome_kind = EXCLUDED.outcome_kind,
			outcome_index = EXCLUDED.outcome_index,
			amount = EXCLUDED.amount,
			entry_price = EXCLUDED.entry_price,
			claimed = EXCLUDED.claimed,
			updated_at = EXCLUDED.updated_at`,
		pos.ID, pos.UserID, pos.MarketID, string(pos.Outcome.Kind),
		int16(pos.Outcome.Index), int64(pos.Amount), int64(pos.EntryPrice),
		pos.Claimed, pos.CreatedAt, pos.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", pos.ID, err)
	}
	return nil
}

func (s *PositionStore) Get(ctx context.Context, userID, marketID string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT"+positionColumns+" FROM positions WHERE user_id = $1 AND market_id = $2",
		userID, marketID)
	pos, err := scanPosition(row)
	if err != nil {
		return domain.Position{}, mapScanErr(err)
	}
	return pos, nil
}

func (s *PositionStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Position, error) {
	return s.list(ctx,
		"SELECT"+positionColumns+` FROM positions
		WHERE market_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		marketID, opts)
}

func (s *PositionStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Position, error) {
	return s.list(ctx,
		"SELECT"+positionColumns+` FROM positions
		WHERE user_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		userID, opts)
}

func (s *PositionStore) list(ctx context.Context, query, key string, opts domain.ListOpts) ([]domain.Position, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, query, key, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for %s: %w", key, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position row: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate position rows: %w", err)
	}
	return positions, nil
}

func scanPosition(row pgx.Row) (domain.Position, error) {
	var (
		pos        domain.Position
		kind       string
		index      int16
		amount     int64
		entryPrice int64
	)
	err := row.Scan(
		&pos.ID, &pos.UserID, &pos.MarketID, &kind, &index, &amount,
		&entryPrice, &pos.Claimed, &pos.CreatedAt, &pos.UpdatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	pos.Outcome = domain.Outcome{Kind: domain.OutcomeKind(kind), Index: uint8(index)}
	pos.Amount = uint64(amount)
	pos.EntryPrice = uint64(entryPrice)
	return pos, nil
}
