package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"firledger/internal/cases/models"
	id "firledger/pkg/domain"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
)

// InMemoryStore keeps cases in a map. Row locks are implicit: the memory
// transaction runner serializes every unit of work.
type InMemoryStore struct {
	mu    sync.RWMutex
	cases map[id.CaseID]*models.Case
	byFIR map[string]id.CaseID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		cases: make(map[id.CaseID]*models.Case),
		byFIR: make(map[string]id.CaseID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byFIR[c.FIRNo]; dup {
		return sentinel.ErrAlreadyUsed
	}
	cp := *c
	s.cases[c.ID] = &cp
	s.byFIR[c.FIRNo] = c.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.cases, c.ID)
		delete(s.byFIR, c.FIRNo)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) FindByFIRNo(ctx context.Context, firNo string) (*models.Case, error) {
	s.mu.RLock()
	caseID, ok := s.byFIR[firNo]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, caseID)
}

func (s *InMemoryStore) LockForUpdate(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	return s.FindByID(ctx, caseID)
}

func (s *InMemoryStore) StationOf(_ context.Context, caseID id.CaseID) (id.StationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok {
		return id.StationID{}, sentinel.ErrNotFound
	}
	return c.StationID, nil
}

func (s *InMemoryStore) LockStation(ctx context.Context, caseID id.CaseID) (id.StationID, error) {
	return s.StationOf(ctx, caseID)
}

// Update writes the mutable fields of c.
func (s *InMemoryStore) Update(ctx context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	prev := *current
	current.Status = c.Status
	current.Priority = c.Priority
	current.Summary = c.Summary
	current.UpdatedAt = c.UpdatedAt
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cases[prev.ID] = &prev
	})
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Case, error) {
	s.mu.RLock()
	out := make([]*models.Case, 0)
	for _, c := range s.cases {
		if filter.Station != nil && c.StationID != *filter.Station {
			continue
		}
		if filter.Status != "" && string(c.Status) != filter.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *models.Case) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) Stats(_ context.Context, station *id.StationID) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := models.NewStats()
	for _, c := range s.cases {
		if station != nil && c.StationID != *station {
			continue
		}
		stats.Total++
		stats.ByStatus[string(c.Status)]++
		stats.ByPriority[string(c.Priority)]++
		stats.ByCrimeType[c.CrimeType]++
	}
	return stats, nil
}
