package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// fakeStore mimics the claim-publish-mark cycle: rows stay pending when fn fails.
type fakeStore struct {
	mu        sync.Mutex
	pending   []Message
	published []Message
}

func (f *fakeStore) ProcessBatch(ctx context.Context, limit int, fn func(context.Context, []Message) error) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := min(limit, len(f.pending))
	batch := append([]Message(nil), f.pending[:n]...)
	if n == 0 {
		return 0, nil
	}
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}
	f.pending = f.pending[n:]
	f.published = append(f.published, batch...)
	return n, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	fail error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.keys = append(p.keys, key)
	return nil
}

type RelaySuite struct {
	suite.Suite
	store     *fakeStore
	publisher *recordingPublisher
	relay     *Relay
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.store = &fakeStore{}
	for i := int64(1); i <= 3; i++ {
		s.store.pending = append(s.store.pending, Message{ID: i, EventID: i, CaseID: "case-a", Payload: []byte(`{}`)})
	}
	s.publisher = &recordingPublisher{}
	s.relay = New(s.store, s.publisher,
		WithBatchSize(2),
		WithInterval(10*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *RelaySuite) TestRelayOncePublishesBatch() {
	n, err := s.relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal([]string{"case-a", "case-a"}, s.publisher.keys)
	s.Len(s.store.pending, 1)
}

func (s *RelaySuite) TestPublishFailureLeavesRowsPending() {
	s.publisher.fail = errors.New("broker unavailable")
	_, err := s.relay.RelayOnce(context.Background())
	s.Require().Error(err)
	s.Len(s.store.pending, 3)
	s.Empty(s.store.published)
}

func (s *RelaySuite) TestRunDrainsUntilCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.relay.Run(ctx) }()

	s.Eventually(func() bool {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
		return len(s.store.pending) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
	s.Len(s.store.published, 3)
}
