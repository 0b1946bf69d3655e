package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"firledger/internal/caselink/models"
	personmodels "firledger/internal/person/models"
	id "firledger/pkg/domain"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
)

// PersonReader resolves person rows for the joined reads.
type PersonReader interface {
	FindByID(ctx context.Context, personID id.PersonID) (*personmodels.Person, error)
}

// InMemoryStore keeps links in a map. Row locks are implicit: the memory
// transaction runner serializes every unit of work.
type InMemoryStore struct {
	mu      sync.RWMutex
	links   map[id.LinkID]*models.Link
	persons PersonReader
	last    time.Time
}

func NewInMemoryStore(persons PersonReader) *InMemoryStore {
	return &InMemoryStore{
		links:   make(map[id.LinkID]*models.Link),
		persons: persons,
	}
}

// Insert assigns AddedAt and stores the link.
func (s *InMemoryStore) Insert(ctx context.Context, link *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.CaseID == link.CaseID && l.PersonID == link.PersonID {
			return sentinel.ErrAlreadyUsed
		}
	}
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	link.AddedAt = now
	cp := *link
	s.links[link.ID] = &cp
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.links, link.ID)
	})
	return nil
}

func (s *InMemoryStore) FindByCaseAndPerson(_ context.Context, caseID id.CaseID, personID id.PersonID) (*models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.links {
		if l.CaseID == caseID && l.PersonID == personID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetSubject(ctx context.Context, caseID id.CaseID, linkID id.LinkID) (*models.Subject, error) {
	s.mu.RLock()
	l, ok := s.links[linkID]
	var link models.Link
	if ok {
		link = *l
	}
	s.mu.RUnlock()
	if !ok || link.CaseID != caseID {
		return nil, sentinel.ErrNotFound
	}
	p, err := s.persons.FindByID(ctx, link.PersonID)
	if err != nil {
		return nil, err
	}
	return &models.Subject{Link: link, FirstName: p.FirstName, LastName: p.LastName}, nil
}

func (s *InMemoryStore) LockSubject(ctx context.Context, caseID id.CaseID, linkID id.LinkID) (*models.Subject, error) {
	return s.GetSubject(ctx, caseID, linkID)
}

func (s *InMemoryStore) ListSubjects(ctx context.Context, caseID id.CaseID) ([]models.Subject, error) {
	linked, err := s.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Subject, 0, len(linked))
	for _, lp := range linked {
		out = append(out, models.Subject{Link: lp.Link, FirstName: lp.FirstName, LastName: lp.LastName})
	}
	return out, nil
}

// ListByCase returns the case's links joined with their persons, primary
// first, then by role, then newest first.
func (s *InMemoryStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]models.LinkedPerson, error) {
	s.mu.RLock()
	links := make([]models.Link, 0)
	for _, l := range s.links {
		if l.CaseID == caseID {
			links = append(links, *l)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(links, func(a, b models.Link) int {
		switch {
		case models.Less(a, b):
			return -1
		case models.Less(b, a):
			return 1
		}
		return 0
	})

	out := make([]models.LinkedPerson, 0, len(links))
	for _, l := range links {
		p, err := s.persons.FindByID(ctx, l.PersonID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.LinkedPerson{
			Link:          l,
			FirstName:     p.FirstName,
			MiddleName:    p.MiddleName,
			LastName:      p.LastName,
			Gender:        p.Gender,
			ContactNumber: p.ContactNumber,
			NationalID:    p.NationalID,
		})
	}
	return out, nil
}
