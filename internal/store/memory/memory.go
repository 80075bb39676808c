// Package memory implements the domain store interfaces with mutex-guarded
// maps. It backs the standalone "memory" storage mode and the service test
// suites; semantics mirror the postgres implementations.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/predmarket/marketd/internal/domain"
)

// MarketStore is an in-memory domain.MarketStore.
type MarketStore struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
	stats   domain.RegistryStats
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[string]domain.Market)}
}

func (s *MarketStore) Create(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.ID] = cloneMarket(m)
	return nil
}

func (s *MarketStore) Update(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = cloneMarket(m)
	return nil
}

func (s *MarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return cloneMarket(m), nil
}

func (s *MarketStore) ListByStatus(_ context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Market
	for _, m := range s.markets {
		if m.Status == status {
			out = append(out, cloneMarket(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, opts), nil
}

func (s *MarketStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.markets)), nil
}

func (s *MarketStore) Stats(_ context.Context) (domain.RegistryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *MarketStore) ApplyStats(_ context.Context, marketsDelta int64, volumeDelta uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if marketsDelta < 0 && uint64(-marketsDelta) > s.stats.TotalMarkets {
		return domain.ErrMathOverflow
	}
	s.stats.TotalMarkets = uint64(int64(s.stats.TotalMarkets) + marketsDelta)
	s.stats.TotalVolume += volumeDelta
	s.stats.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneMarket(m domain.Market) domain.Market {
	out := m
	if m.Resolution != nil {
		r := *m.Resolution
		if m.Resolution.Oracle != nil {
			o := *m.Resolution.Oracle
			r.Oracle = &o
		}
		out.Resolution = &r
	}
	out.ModerationFlags = append([]domain.ModerationFlag(nil), m.ModerationFlags...)
	out.MetaMarkets = append([]string(nil), m.MetaMarkets...)
	return out
}

func paginate[T any](in []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(in) {
			return nil
		}
		in = in[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(in) {
		in = in[:opts.Limit]
	}
	return in
}

// PositionStore is an in-memory domain.PositionStore keyed by (user, market).
type PositionStore struct {
	mu        sync.RWMutex
	positions map[string]domain.Position
}

// NewPositionStore creates an empty PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[string]domain.Position)}
}

func posKey(userID, marketID string) string { return userID + "|" + marketID }

func (s *PositionStore) Upsert(_ context.Context, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[posKey(pos.UserID, pos.MarketID)] = pos
	return nil
}

func (s *PositionStore) Get(_ context.Context, userID, marketID string) (domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[posKey(userID, marketID)]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *PositionStore) ListByMarket(_ context.Context, marketID string, opts domain.ListOpts) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Position
	for _, p := range s.positions {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, opts), nil
}

func (s *PositionStore) ListByUser(_ context.Context, userID string, opts domain.ListOpts) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Position
	for _, p := range s.positions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, opts), nil
}

// LiquidityStore is an in-memory domain.LiquidityStore.
type LiquidityStore struct {
	mu        sync.RWMutex
	positions map[string]domain.LiquidityPosition
}

// NewLiquidityStore creates an empty LiquidityStore.
func NewLiquidityStore() *LiquidityStore {
	return &LiquidityStore{positions: make(map[string]domain.LiquidityPosition)}
}

func (s *LiquidityStore) Upsert(_ context.Context, pos domain.LiquidityPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[posKey(pos.Provider, pos.MarketID)] = pos
	return nil
}

func (s *LiquidityStore) Get(_ context.Context, provider, marketID string) (domain.LiquidityPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[posKey(provider, marketID)]
	if !ok {
		return domain.LiquidityPosition{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *LiquidityStore) ListByMarket(_ context.Context, marketID string) ([]domain.LiquidityPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LiquidityPosition
	for _, p := range s.positions {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ProfileStore is an in-memory domain.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.UserProfile
}

// NewProfileStore creates an empty ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]domain.UserProfile)}
}

func (s *ProfileStore) Upsert(_ context.Context, p domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *ProfileStore) Get(_ context.Context, userID string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return p, nil
}

// ReportStore is an in-memory domain.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports []domain.ContentReport
}

// NewReportStore creates an empty ReportStore.
func NewReportStore() *ReportStore { return &ReportStore{} }

func (s *ReportStore) Create(_ context.Context, r domain.ContentReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func (s *ReportStore) ListByMarket(_ context.Context, marketID string, opts domain.ListOpts) ([]domain.ContentReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ContentReport
	for _, r := range s.reports {
		if r.MarketID == marketID {
			out = append(out, r)
		}
	}
	return paginate(out, opts), nil
}

// EvidenceStore is an in-memory domain.EvidenceStore.
type EvidenceStore struct {
	mu       sync.RWMutex
	evidence []domain.Evidence
}

// NewEvidenceStore creates an empty EvidenceStore.
func NewEvidenceStore() *EvidenceStore { return &EvidenceStore{} }

func (s *EvidenceStore) Create(_ context.Context, e domain.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence = append(s.evidence, e)
	return nil
}

func (s *EvidenceStore) ListByMarket(_ context.Context, marketID string) ([]domain.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Evidence
	for _, e := range s.evidence {
		if e.MarketID == marketID {
			out = append(out, e)
		}
	}
	return out, nil
}

// AuditStore is an in-memory domain.AuditStore.
type AuditStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
	nextID  int64
}

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore { return &AuditStore{nextID: 1} }

func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{
		ID:        s.nextID,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	s.nextID++
	return nil
}

func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.AuditEntry(nil), s.entries...)
	return paginate(out, opts), nil
}

// Compile-time interface checks.
var (
	_ domain.MarketStore    = (*MarketStore)(nil)
	_ domain.PositionStore  = (*PositionStore)(nil)
	_ domain.LiquidityStore = (*LiquidityStore)(nil)
	_ domain.ProfileStore   = (*ProfileStore)(nil)
	_ domain.ReportStore    = (*ReportStore)(nil)
	_ domain.EvidenceStore  = (*EvidenceStore)(nil)
	_ domain.AuditStore     = (*AuditStore)(nil)
)
