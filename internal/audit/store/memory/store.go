package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"firledger/internal/audit/models"
	id "firledger/pkg/domain"
	txcontext "firledger/pkg/platform/tx"
)

// InMemoryStore keeps tracking records per case. Appends made inside a memory
// transaction are withdrawn if that transaction fails.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.CaseID][]models.Event
	nextID models.EventID
	last   time.Time
	now    func() time.Time
}

type Option func(*InMemoryStore)

// WithClock overrides the server clock, for tests that need equal timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) { s.now = now }
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		events: make(map[id.CaseID][]models.Event),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(ctx context.Context, entry models.Entry) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ts := s.now().UTC()
	// Never let the clock run backwards within one store.
	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts

	ev := models.Event{
		ID:          s.nextID,
		CaseID:      entry.CaseID,
		Action:      entry.Action,
		Note:        entry.Note,
		Description: entry.Description,
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		PerformedBy: entry.PerformedBy,
		ClientIP:    entry.ClientIP,
		ClientAgent: entry.ClientAgent,
		Timestamp:   ts,
	}
	s.events[entry.CaseID] = append(s.events[entry.CaseID], ev)

	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.events[ev.CaseID]
		s.events[ev.CaseID] = slices.DeleteFunc(list, func(e models.Event) bool { return e.ID == ev.ID })
	})
	return ev, nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID id.CaseID, order models.Order) ([]models.Event, error) {
	s.mu.RLock()
	out := slices.Clone(s.events[caseID])
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Event) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})
	if order == models.ReverseChronological {
		slices.Reverse(out)
	}
	return out, nil
}
