package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predmarket/marketd/internal/domain"
)

// ReportStore implements domain.ReportStore on PostgreSQL.
type ReportStore struct {
	pool *pgxpool.Pool
}

func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

func (s *ReportStore) Create(ctx context.Context, r domain.ContentReport) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO content_reports (id, market_id, reporter, report_type, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.MarketID, r.Reporter, string(r.Type), r.Reason,
		string(r.Status), r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert content report %s: %w", r.ID, err)
	}
	return nil
}

func (s *ReportStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ContentReport, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, market_id, reporter, report_type, reason, status, created_at
		FROM content_reports
		WHERE market_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		marketID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list reports for %s: %w", marketID, err)
	}
	defer rows.Close()

	var reports []domain.ContentReport
	for rows.Next() {
		var (
			r          domain.ContentReport
			reportType string
			status     string
		)
		if err := rows.Scan(&r.ID, &r.MarketID, &r.Reporter, &reportType, &r.Reason, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan report row: %w", err)
		}
		r.Type = domain.ModerationType(reportType)
		r.Status = domain.ReportStatus(status)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate report rows: %w", err)
	}
	return reports, nil
}

// EvidenceStore implements domain.EvidenceStore on PostgreSQL.
type EvidenceStore struct {
	pool *pgxpool.Pool
}

func NewEvidenceStore(pool *pgxpool.Pool) *EvidenceStore {
	return &EvidenceStore{pool: pool}
}

func (s *EvidenceStore) Create(ctx context.Context, e domain.Evidence) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO evidence (
			id, market_id, submitter, evidence_type, source_url, description,
			credibility, verified, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.MarketID, e.Submitter, string(e.Type), e.SourceURL,
		e.Description, int16(e.Credibility), e.Verified, e.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert evidence %s: %w", e.ID, err)
	}
	return nil
}

func (s *EvidenceStore) ListByMarket(ctx context.Context, marketID string) ([]domain.Evidence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, market_id, submitter, evidence_type, source_url,
		       description, credibility, verified, submitted_at
		FROM evidence WHERE market_id = $1 ORDER BY submitted_at, id`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list evidence for %s: %w", marketID, err)
	}
	defer rows.Close()

	var items []domain.Evidence
	for rows.Next() {
		var (
			e            domain.Evidence
			evidenceType string
			credibility  int16
		)
		if err := rows.Scan(
			&e.ID, &e.MarketID, &e.Submitter, &evidenceType, &e.SourceURL,
			&e.Description, &credibility, &e.Verified, &e.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan evidence row: %w", err)
		}
		e.Type = domain.EvidenceType(evidenceType)
		e.Credibility = uint8(credibility)
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate evidence rows: %w", err)
	}
	return items, nil
}
