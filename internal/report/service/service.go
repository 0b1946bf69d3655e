// Package service assembles case reports from the other bounded contexts.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"firledger/internal/access"
	auditmodels "firledger/internal/audit/models"
	linkmodels "firledger/internal/caselink/models"
	casemodels "firledger/internal/cases/models"
	"firledger/internal/platform/tracing"
	"firledger/internal/report/models"
	statementmodels "firledger/internal/statement/models"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/sentinel"
	"firledger/pkg/requestcontext"
)

const tracerScope = "firledger/report"

type CaseStore interface {
	FindByID(ctx context.Context, caseID id.CaseID) (*casemodels.Case, error)
}

type Links interface {
	List(ctx context.Context, caseID id.CaseID, actor access.Actor) ([]linkmodels.LinkedPerson, error)
}

type Statements interface {
	ListSupplementary(ctx context.Context, caseID id.CaseID, order auditmodels.Order, actor access.Actor) ([]statementmodels.SupplementaryView, error)
}

type Trail interface {
	Query(ctx context.Context, caseID id.CaseID, order auditmodels.Order) ([]auditmodels.Event, error)
}

type Service struct {
	cases      CaseStore
	links      Links
	statements Statements
	trail      Trail
	guard      *access.Guard
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithGuard(g *access.Guard) Option {
	return func(s *Service) { s.guard = g }
}

func New(cases CaseStore, links Links, statements Statements, trail Trail, opts ...Option) *Service {
	s := &Service{
		cases:      cases,
		links:      links,
		statements: statements,
		trail:      trail,
		guard:      access.NewGuard(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assemble authorizes reports.generate against the case's station and loads
// persons, supplementary statements and the trail concurrently.
func (s *Service) Assemble(ctx context.Context, caseID id.CaseID, actor access.Actor) (*models.CaseReport, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "report.Assemble", attribute.String("case_id", caseID.String()))
	r, err := s.assemble(ctx, caseID, actor)
	tracing.End(span, err)
	return r, err
}

func (s *Service) assemble(ctx context.Context, caseID id.CaseID, actor access.Actor) (*models.CaseReport, error) {
	c, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	if err := s.guard.Require(ctx, actor, c.StationID, access.ReportsGenerate); err != nil {
		return nil, err
	}

	report := &models.CaseReport{GeneratedAt: requestcontext.Now(ctx).UTC(), Case: c}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		persons, err := s.links.List(gctx, caseID, actor)
		if err != nil {
			return err
		}
		slices.SortStableFunc(persons, func(a, b linkmodels.LinkedPerson) int {
			if a.IsPrimary != b.IsPrimary {
				if a.IsPrimary {
					return -1
				}
				return 1
			}
			if a.Role != b.Role {
				if a.Role < b.Role {
					return -1
				}
				return 1
			}
			return a.AddedAt.Compare(b.AddedAt)
		})
		report.Persons = persons
		return nil
	})
	g.Go(func() error {
		st, err := s.statements.ListSupplementary(gctx, caseID, auditmodels.Chronological, actor)
		report.Supplementary = st
		return err
	})
	g.Go(func() error {
		events, err := s.trail.Query(gctx, caseID, auditmodels.Chronological)
		report.Trail = events
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "case report assembled",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", caseID,
		"persons", len(report.Persons),
		"events", len(report.Trail),
		"user_id", actor.UserID,
	)
	return report, nil
}
