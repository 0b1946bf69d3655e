package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"firledger/internal/access"
	"firledger/internal/audit/metrics"
	"firledger/internal/audit/models"
	"firledger/internal/platform/tracing"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/sentinel"
	"firledger/pkg/requestcontext"
)

const tracerScope = "firledger/audit"

// Store persists tracking records. Append must join the transaction in ctx.
type Store interface {
	Append(ctx context.Context, entry models.Entry) (models.Event, error)
	ListByCase(ctx context.Context, caseID id.CaseID, order models.Order) ([]models.Event, error)
}

// CaseLookup resolves the owning station of a case; sentinel.ErrNotFound when absent.
type CaseLookup interface {
	StationOf(ctx context.Context, caseID id.CaseID) (id.StationID, error)
}

// Service is the append-only case history.
type Service struct {
	store   Store
	cases   CaseLookup
	guard   *access.Guard
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithGuard(g *access.Guard) Option {
	return func(s *Service) { s.guard = g }
}

func New(store Store, cases CaseLookup, opts ...Option) *Service {
	s := &Service{store: store, cases: cases, guard: access.NewGuard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records one event inside the caller's transaction. Client metadata
// missing from entry is taken from the request context. A failure here must
// abort the caller's mutation.
func (s *Service) Append(ctx context.Context, entry models.Entry) (models.EventID, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "audit.Append",
		attribute.String("case_id", entry.CaseID.String()),
		attribute.String("action_type", string(entry.Action)),
	)
	ev, err := s.append(ctx, entry)
	tracing.End(span, err)
	if err != nil {
		return 0, err
	}
	return ev.ID, nil
}

func (s *Service) append(ctx context.Context, entry models.Entry) (models.Event, error) {
	if entry.ClientIP == "" {
		entry.ClientIP = requestcontext.ClientIP(ctx)
	}
	if entry.ClientAgent == "" {
		entry.ClientAgent = requestcontext.ClientAgent(ctx)
	}
	if err := entry.Validate(); err != nil {
		return models.Event{}, err
	}

	ev, err := s.store.Append(ctx, entry)
	if err != nil {
		return models.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append case tracking record")
	}
	if s.metrics != nil {
		s.metrics.IncrementAppended(string(ev.Action))
	}
	return ev, nil
}

// Query returns the history of a case without authorization. For use by
// components that already authorized the read.
func (s *Service) Query(ctx context.Context, caseID id.CaseID, order models.Order) ([]models.Event, error) {
	events, err := s.store.ListByCase(ctx, caseID, order)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case tracking records")
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// Trail authorizes cases.read against the case's station and returns its history.
func (s *Service) Trail(ctx context.Context, caseID id.CaseID, order models.Order, actor access.Actor) ([]models.Event, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "audit.Trail", attribute.String("case_id", caseID.String()))
	events, err := s.trail(ctx, caseID, order, actor)
	tracing.End(span, err)
	return events, err
}

func (s *Service) trail(ctx context.Context, caseID id.CaseID, order models.Order, actor access.Actor) ([]models.Event, error) {
	station, err := s.cases.StationOf(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	if err := s.guard.Require(ctx, actor, station, access.CasesRead); err != nil {
		return nil, err
	}
	return s.Query(ctx, caseID, order)
}
