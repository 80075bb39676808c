package memory

import (
	"context"
	"sync"

	"github.com/predmarket/marketd/internal/domain"
)

// GovernanceStore is an in-memory domain.GovernanceStore.
type GovernanceStore struct {
	mu       sync.RWMutex
	state    domain.GovernanceState
	actions  []domain.EmergencyAction
	eligVote map[string]domain.EligibilityVote
	tallies  map[string]domain.EligibilityTally
	resVote  map[string]domain.ResolutionVote
}

// NewGovernanceStore creates a GovernanceStore seeded with the given multisig
// state.
func NewGovernanceStore(state domain.GovernanceState) *GovernanceStore {
	return &GovernanceStore{
		state:    state,
		eligVote: make(map[string]domain.EligibilityVote),
		tallies:  make(map[string]domain.EligibilityTally),
		resVote:  make(map[string]domain.ResolutionVote),
	}
}

func (s *GovernanceStore) State(_ context.Context) (domain.GovernanceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *GovernanceStore) SaveState(_ context.Context, state domain.GovernanceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

func (s *GovernanceStore) CreateAction(_ context.Context, a domain.EmergencyAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.actions {
		if have.ID == a.ID {
			return domain.ErrAlreadyExists
		}
	}
	s.actions = append(s.actions, cloneAction(a))
	return nil
}

func (s *GovernanceStore) UpdateAction(_ context.Context, a domain.EmergencyAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, have := range s.actions {
		if have.ID == a.ID {
			s.actions[i] = cloneAction(a)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *GovernanceStore) GetPendingAction(_ context.Context, marketID string, t domain.EmergencyActionType) (domain.EmergencyAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.actions {
		if a.MarketID == marketID && a.Type == t && !a.Executed {
			return cloneAction(a), nil
		}
	}
	return domain.EmergencyAction{}, domain.ErrNotFound
}

func (s *GovernanceStore) ListActions(_ context.Context, opts domain.ListOpts) ([]domain.EmergencyAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EmergencyAction, 0, len(s.actions))
	for _, a := range s.actions {
		out = append(out, cloneAction(a))
	}
	return paginate(out, opts), nil
}

func (s *GovernanceStore) RecordEligibilityVote(_ context.Context, v domain.EligibilityVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := v.MarketID + "|" + v.Voter
	if _, ok := s.eligVote[key]; ok {
		return domain.ErrAlreadyVoted
	}
	s.eligVote[key] = v
	return nil
}

func (s *GovernanceStore) HasEligibilityVote(_ context.Context, marketID, voter string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.eligVote[marketID+"|"+voter]
	return ok, nil
}

func (s *GovernanceStore) EligibilityTally(_ context.Context, marketID string) (domain.EligibilityTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tallies[marketID]
	if !ok {
		return domain.EligibilityTally{MarketID: marketID}, nil
	}
	return t, nil
}

func (s *GovernanceStore) SaveEligibilityTally(_ context.Context, t domain.EligibilityTally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tallies[t.MarketID] = t
	return nil
}

func (s *GovernanceStore) RecordResolutionVote(_ context.Context, v domain.ResolutionVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := v.MarketID + "|" + v.Voter
	if _, ok := s.resVote[key]; ok {
		return domain.ErrAlreadyVoted
	}
	s.resVote[key] = v
	return nil
}

func (s *GovernanceStore) HasResolutionVote(_ context.Context, marketID, voter string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.resVote[marketID+"|"+voter]
	return ok, nil
}

func (s *GovernanceStore) ListResolutionVotes(_ context.Context, marketID string) ([]domain.ResolutionVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ResolutionVote
	for _, v := range s.resVote {
		if v.MarketID == marketID {
			out = append(out, v)
		}
	}
	return out, nil
}

func cloneAction(a domain.EmergencyAction) domain.EmergencyAction {
	out := a
	out.Signatures = append([]string(nil), a.Signatures...)
	if a.ExecutedAt != nil {
		t := *a.ExecutedAt
		out.ExecutedAt = &t
	}
	return out
}

var _ domain.GovernanceStore = (*GovernanceStore)(nil)
