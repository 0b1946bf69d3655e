package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"firledger/internal/statement/models"
	id "firledger/pkg/domain"
	txcontext "firledger/pkg/platform/tx"
)

// InMemoryStore keeps statement fragments and supplementary statements in
// insertion order. Both are insert-only.
type InMemoryStore struct {
	mu            sync.RWMutex
	fragments     []models.Fragment
	supplementary []models.Supplementary
	nextID        int64
	last          time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// tick returns a strictly increasing UTC timestamp. Callers hold mu.
func (s *InMemoryStore) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

// InsertFragment assigns ID and RecordedAt.
func (s *InMemoryStore) InsertFragment(ctx context.Context, f *models.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	f.ID = s.nextID
	f.RecordedAt = s.tick()
	s.fragments = append(s.fragments, *f)
	fragmentID := f.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fragments = slices.DeleteFunc(s.fragments, func(x models.Fragment) bool { return x.ID == fragmentID })
	})
	return nil
}

func (s *InMemoryStore) ListFragments(_ context.Context, linkID id.LinkID) ([]models.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Fragment, 0)
	for _, f := range s.fragments {
		if f.LinkID == linkID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListFragmentsByLinks(_ context.Context, linkIDs []id.LinkID) (map[id.LinkID][]models.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.LinkID][]models.Fragment)
	for _, f := range s.fragments {
		if slices.Contains(linkIDs, f.LinkID) {
			out[f.LinkID] = append(out[f.LinkID], f)
		}
	}
	return out, nil
}

// InsertSupplementary assigns StatementDate and CreatedAt.
func (s *InMemoryStore) InsertSupplementary(ctx context.Context, st *models.Supplementary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	st.StatementDate = now
	st.CreatedAt = now
	s.supplementary = append(s.supplementary, *st)
	stID := st.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.supplementary = slices.DeleteFunc(s.supplementary, func(x models.Supplementary) bool { return x.ID == stID })
	})
	return nil
}

// ListSupplementaryByLinks returns statements of the given links ordered by
// (StatementDate, ID).
func (s *InMemoryStore) ListSupplementaryByLinks(_ context.Context, linkIDs []id.LinkID) ([]models.Supplementary, error) {
	s.mu.RLock()
	out := make([]models.Supplementary, 0)
	for _, st := range s.supplementary {
		if slices.Contains(linkIDs, st.LinkID) {
			out = append(out, st)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b models.Supplementary) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return out, nil
}
