package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predmarket/marketd/internal/domain"
)

// MarketStore implements domain.MarketStore on PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketColumns = `
	id, authority, creator, status, question, description, category,
	created_at, resolution_date, yes_pool, no_pool, total_pool, lp_supply,
	total_participants, reputation_threshold, human_verified_required,
	oracle_feed_id, resolution, moderation_flags, meta_markets,
	parent_market, updated_at`

const insertMarketQuery = `
	INSERT INTO markets (
		id, authority, creator, status, question, description, category,
		created_at, resolution_date, yes_pool, no_pool, total_pool, lp_supply,
		total_participants, reputation_threshold, human_verified_required,
		oracle_feed_id, resolution, moderation_flags, meta_markets,
		parent_market, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22
	)`

const updateMarketQuery = `
	UPDATE markets SET
		authority = $2, creator = $3, status = $4, question = $5,
		description = $6, category = $7, created_at = $8,
		resolution_date = $9, yes_pool = $10, no_pool = $11, total_pool = $12,
		lp_supply = $13, total_participants = $14, reputation_threshold = $15,
		human_verified_required = $16, oracle_feed_id = $17, resolution = $18,
		moderation_flags = $19, meta_markets = $20, parent_market = $21,
		updated_at = $22
	WHERE id = $1`

func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	args, err := marketArgs(m)
	if err != nil {
		return fmt.Errorf("postgres: encode market %s: %w", m.ID, err)
	}
	if _, err := s.pool.Exec(ctx, insertMarketQuery, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert market %s: %w", m.ID, err)
	}
	return nil
}

func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	args, err := marketArgs(m)
	if err != nil {
		return fmt.Errorf("postgres: encode market %s: %w", m.ID, err)
	}
	tag, err := s.pool.Exec(ctx, updateMarketQuery, args...)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT"+marketColumns+" FROM markets WHERE id = $1", id)
	m, err := scanMarket(row)
	if err != nil {
		return domain.Market{}, mapScanErr(err)
	}
	return m, nil
}

func (s *MarketStore) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		"SELECT"+marketColumns+` FROM markets
		WHERE status = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		string(status), limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets by status %s: %w", status, err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market row: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate market rows: %w", err)
	}
	return markets, nil
}

func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}

func (s *MarketStore) Stats(ctx context.Context) (domain.RegistryStats, error) {
	var st domain.RegistryStats
	err := s.pool.QueryRow(ctx,
		"SELECT total_markets, total_volume, updated_at FROM registry_stats WHERE id = 1",
	).Scan(&st.TotalMarkets, &st.TotalVolume, &st.UpdatedAt)
	if err != nil {
		return domain.RegistryStats{}, fmt.Errorf("postgres: read registry stats: %w", err)
	}
	return st, nil
}

func (s *MarketStore) ApplyStats(ctx context.Context, marketsDelta int64, volumeDelta uint64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE registry_stats
		SET total_markets = total_markets + $1,
		    total_volume = total_volume + $2,
		    updated_at = NOW()
		WHERE id = 1`,
		marketsDelta, int64(volumeDelta))
	if err != nil {
		return fmt.Errorf("postgres: apply registry stats: %w", err)
	}
	return nil
}

func marketArgs(m domain.Market) ([]any, error) {
	var resolution []byte
	if m.Resolution != nil {
		b, err := json.Marshal(m.Resolution)
		if err != nil {
			return nil, fmt.Errorf("marshal resolution: %w", err)
		}
		resolution = b
	}
	flags, err := json.Marshal(orEmpty(m.ModerationFlags))
	if err != nil {
		return nil, fmt.Errorf("marshal moderation flags: %w", err)
	}
	meta, err := json.Marshal(orEmpty(m.MetaMarkets))
	if err != nil {
		return nil, fmt.Errorf("marshal meta markets: %w", err)
	}
	return []any{
		m.ID, m.Authority, m.Creator, string(m.Status), m.Question,
		m.Description, m.Category, m.CreatedAt, m.ResolutionDate,
		int64(m.YesPool), int64(m.NoPool), int64(m.TotalPool),
		int64(m.LPSupply), m.TotalParticipants, m.ReputationThreshold,
		m.HumanVerifiedRequired, m.OracleFeedID, resolution, flags, meta,
		m.ParentMarket, m.UpdatedAt,
	}, nil
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m          domain.Market
		status     string
		yesPool    int64
		noPool     int64
		totalPool  int64
		lpSupply   int64
		resolution []byte
		flags      []byte
		meta       []byte
	)
	err := row.Scan(
		&m.ID, &m.Authority, &m.Creator, &status, &m.Question,
		&m.Description, &m.Category, &m.CreatedAt, &m.ResolutionDate,
		&yesPool, &noPool, &totalPool, &lpSupply, &m.TotalParticipants,
		&m.ReputationThreshold, &m.HumanVerifiedRequired, &m.OracleFeedID,
		&resolution, &flags, &meta, &m.ParentMarket, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	m.YesPool = uint64(yesPool)
	m.NoPool = uint64(noPool)
	m.TotalPool = uint64(totalPool)
	m.LPSupply = uint64(lpSupply)
	if len(resolution) > 0 {
		var r domain.ResolutionData
		if err := json.Unmarshal(resolution, &r); err != nil {
			return domain.Market{}, fmt.Errorf("unmarshal resolution: %w", err)
		}
		m.Resolution = &r
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &m.ModerationFlags); err != nil {
			return domain.Market{}, fmt.Errorf("unmarshal moderation flags: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &m.MetaMarkets); err != nil {
			return domain.Market{}, fmt.Errorf("unmarshal meta markets: %w", err)
		}
	}
	return m, nil
}

// orEmpty keeps NOT NULL jsonb columns valid when the slice is nil.
func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
