// Package outbox relays committed tracking records to Kafka.
//
// The relay runs outside every case transaction: a publish failure leaves
// the row unpublished for the next batch and never affects the mutation that
// wrote it. Delivery is at-least-once; consumers dedupe on event_id.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"firledger/internal/audit/metrics"
)

// Message is one unpublished outbox row.
type Message struct {
	ID      int64
	EventID int64
	CaseID  string
	Payload []byte
}

// Publisher delivers a message to the broker.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Store claims unpublished rows. ProcessBatch locks up to limit rows, hands
// them to fn and marks them published only if fn succeeds.
type Store interface {
	ProcessBatch(ctx context.Context, limit int, fn func(ctx context.Context, msgs []Message) error) (int, error)
}

// Waiter blocks until new rows may exist or timeout elapses.
type Waiter interface {
	Wait(ctx context.Context, timeout time.Duration) error
}

type Relay struct {
	store     Store
	publisher Publisher
	waiter    Waiter
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Relay)

func WithWaiter(w Waiter) Option {
	return func(r *Relay) { r.waiter = w }
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func New(store Store, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  2 * time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.waiter == nil {
		r.waiter = sleepWaiter{}
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	for {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.ErrorContext(ctx, "audit outbox relay failed", "error", err)
		}
		if err == nil && n == r.batchSize {
			continue
		}
		if err := r.waiter.Wait(ctx, r.interval); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.WarnContext(ctx, "audit outbox wait failed, falling back to polling", "error", err)
			if err := (sleepWaiter{}).Wait(ctx, r.interval); err != nil {
				return err
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many rows it covered.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := r.store.ProcessBatch(ctx, r.batchSize, func(ctx context.Context, msgs []Message) error {
		for _, m := range msgs {
			if err := r.publisher.Publish(ctx, m.CaseID, m.Payload); err != nil {
				return err
			}
		}
		return nil
	})
	if r.metrics != nil {
		r.metrics.ObserveBatch(start)
		if err != nil {
			r.metrics.IncrementOutboxFailure()
		} else {
			r.metrics.AddPublished(n)
		}
	}
	if err == nil && n > 0 {
		r.logger.DebugContext(ctx, "audit outbox batch published", "count", n)
	}
	return n, err
}

type sleepWaiter struct{}

func (sleepWaiter) Wait(ctx context.Context, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
