package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predmarket/marketd/internal/domain"
)

// LiquidityStore implements domain.LiquidityStore on PostgreSQL.
type LiquidityStore struct {
	pool *pgxpool.Pool
}

func NewLiquidityStore(pool *pgxpool.Pool) *LiquidityStore {
	return &LiquidityStore{pool: pool}
}

const liquidityColumns = `
	id, provider, market_id, lp_tokens, amount_yes, amount_no, fees_earned,
	created_at, updated_at`

func (s *LiquidityStore) Upsert(ctx context.Context, pos domain.LiquidityPosition) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO liquidity_positions (
			id, provider, market_id, lp_tokens, amount_yes, amount_no,
			fees_earned, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider, market_id) DO UPDATE SET
			lp_tokens = EXCLUDED.lp_tokens,
			amount_yes = EXCLUDED.amount_yes,
			amount_no = EXCLUDED.amount_no,
			fees_earned = EXCLUDED.fees_earned,
			updated_at = EXCLUDED.updated_at`,
		pos.ID, pos.Provider, pos.MarketID, int64(pos.LPTokens),
		int64(pos.AmountYes), int64(pos.AmountNo), int64(pos.FeesEarned),
		pos.CreatedAt, pos.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert liquidity position %s: %w", pos.ID, err)
	}
	return nil
}

func (s *LiquidityStore) Get(ctx context.Context, provider, marketID string) (domain.LiquidityPosition, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT"+liquidityColumns+" FROM liquidity_positions WHERE provider = $1 AND market_id = $2",
		provider, marketID)
	pos, err := scanLiquidity(row)
	if err != nil {
		return domain.LiquidityPosition{}, mapScanErr(err)
	}
	return pos, nil
}

func (s *LiquidityStore) ListByMarket(ctx context.Context, marketID string) ([]domain.LiquidityPosition, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT"+liquidityColumns+` FROM liquidity_positions
		WHERE market_id = $1 ORDER BY created_at, id`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list liquidity for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var positions []domain.LiquidityPosition
	for rows.Next() {
		pos, err := scanLiquidity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan liquidity row: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate liquidity rows: %w", err)
	}
	return positions, nil
}

func scanLiquidity(row pgx.Row) (domain.LiquidityPosition, error) {
	var (
		pos        domain.LiquidityPosition
		lpTokens   int64
		amountYes  int64
		amountNo   int64
		feesEarned int64
	)
	err := row.Scan(
		&pos.ID, &pos.Provider, &pos.MarketID, &lpTokens, &amountYes,
		&amountNo, &feesEarned, &pos.CreatedAt, &pos.UpdatedAt,
	)
	if err != nil {
		return domain.LiquidityPosition{}, err
	}
	pos.LPTokens = uint64(lpTokens)
	pos.AmountYes = uint64(amountYes)
	pos.AmountNo = uint64(amountNo)
	pos.FeesEarned = uint64(feesEarned)
	return pos, nil
}
