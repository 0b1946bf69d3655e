package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"firledger/internal/person/models"
	id "firledger/pkg/domain"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
)

// InMemoryStore is the development and test person directory.
type InMemoryStore struct {
	mu      sync.RWMutex
	persons map[id.PersonID]*models.Person
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{persons: make(map[id.PersonID]*models.Person)}
}

func (s *InMemoryStore) Create(ctx context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.NationalID != nil {
		for _, existing := range s.persons {
			if existing.NationalID != nil && *existing.NationalID == *p.NationalID {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	cp := *p
	s.persons[p.ID] = &cp
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.persons, p.ID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, personID id.PersonID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) FindByNationalID(_ context.Context, nationalID string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if p.NationalID != nil && *p.NationalID == nationalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Search matches q case-insensitively against name parts, full name and
// national id. An empty q lists the newest persons.
func (s *InMemoryStore) Search(_ context.Context, q string, limit int) ([]*models.Person, error) {
	q = strings.ToLower(q)
	s.mu.RLock()
	out := make([]*models.Person, 0)
	for _, p := range s.persons {
		if q == "" || matches(p, q) {
			cp := *p
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	if q == "" {
		slices.SortFunc(out, func(a, b *models.Person) int { return b.CreatedAt.Compare(a.CreatedAt) })
	} else {
		slices.SortFunc(out, func(a, b *models.Person) int {
			if c := strings.Compare(a.FirstName, b.FirstName); c != 0 {
				return c
			}
			return strings.Compare(a.LastName, b.LastName)
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(p *models.Person, q string) bool {
	fields := []string{p.FirstName, p.MiddleName, p.LastName, p.FullName(), p.FirstName + " " + p.LastName}
	if p.NationalID != nil {
		fields = append(fields, *p.NationalID)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
