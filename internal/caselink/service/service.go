// Package service links persons to cases. A link, its tracking records and
// an optional first statement are written in one transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"firledger/internal/access"
	auditmodels "firledger/internal/audit/models"
	"firledger/internal/caselink/models"
	personmodels "firledger/internal/person/models"
	"firledger/internal/platform/tracing"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
	"firledger/pkg/requestcontext"
)

const tracerScope = "firledger/caselink"

// Store is the case_persons persistence port.
type Store interface {
	Insert(ctx context.Context, link *models.Link) error
	FindByCaseAndPerson(ctx context.Context, caseID id.CaseID, personID id.PersonID) (*models.Link, error)
	GetSubject(ctx context.Context, caseID id.CaseID, linkID id.LinkID) (*models.Subject, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]models.LinkedPerson, error)
}

// CaseStore resolves the owning station of a case. LockStation holds the
// case row lock for the enclosing transaction.
type CaseStore interface {
	StationOf(ctx context.Context, caseID id.CaseID) (id.StationID, error)
	LockStation(ctx context.Context, caseID id.CaseID) (id.StationID, error)
}

type PersonStore interface {
	FindByID(ctx context.Context, personID id.PersonID) (*personmodels.Person, error)
}

// Statements records and materializes initial statements.
type Statements interface {
	RecordAtLink(ctx context.Context, caseID id.CaseID, linkID id.LinkID, text string, actor access.Actor) error
	Materialized(ctx context.Context, linkIDs []id.LinkID) (map[id.LinkID]string, error)
}

type Auditor interface {
	Append(ctx context.Context, entry auditmodels.Entry) (auditmodels.EventID, error)
}

// LinkRequest attaches PersonID to CaseID. InitialStatement, when non-blank,
// becomes the first fragment of the link's statement.
type LinkRequest struct {
	CaseID           id.CaseID
	PersonID         id.PersonID
	Role             string
	IsPrimary        bool
	InitialStatement string
}

type Service struct {
	store      Store
	cases      CaseStore
	persons    PersonStore
	statements Statements
	auditor    Auditor
	tx         txcontext.Runner
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

func New(store Store, cases CaseStore, persons PersonStore, statements Statements, auditor Auditor, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		store:      store,
		cases:      cases,
		persons:    persons,
		statements: statements,
		auditor:    auditor,
		tx:         runner,
		guard:      access.NewGuard(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Link attaches a person to a case with a role. It emits Add New Case Member
// and, when a statement is supplied, Additional Statement Record.
func (s *Service) Link(ctx context.Context, req LinkRequest, actor access.Actor) (*models.Link, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "caselink.Link",
		attribute.String("case_id", req.CaseID.String()),
		attribute.String("person_id", req.PersonID.String()),
	)
	link, err := s.link(ctx, req, actor)
	tracing.End(span, err)
	return link, err
}

func (s *Service) link(ctx context.Context, req LinkRequest, actor access.Actor) (*models.Link, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if req.PersonID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "person id is required")
	}
	statement := strings.TrimSpace(req.InitialStatement)

	link := &models.Link{
		ID:        id.NewLinkID(),
		CaseID:    req.CaseID,
		PersonID:  req.PersonID,
		Role:      role,
		IsPrimary: req.IsPrimary,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		station, err := s.cases.LockStation(ctx, req.CaseID)
		if err != nil {
			return wrapCaseErr(err)
		}
		if err := s.guard.Require(ctx, actor, station, access.CasesUpdate); err != nil {
			return err
		}

		person, err := s.persons.FindByID(ctx, req.PersonID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "person not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person")
		}

		if _, err := s.store.FindByCaseAndPerson(ctx, req.CaseID, req.PersonID); err == nil {
			return dErrors.New(dErrors.CodeConflict, "person is already linked to this case")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing link")
		}
		if err := s.store.Insert(ctx, link); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "person is already linked to this case")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link person")
		}

		if _, err := s.auditor.Append(ctx, auditmodels.Entry{
			CaseID:      req.CaseID,
			Action:      auditmodels.ActionAddCaseMember,
			Description: fmt.Sprintf("Added %s: %s (Person ID: %s)", role, person.FullName(), person.ID),
			PerformedBy: actor.UserID,
		}); err != nil {
			return err
		}

		if statement == "" {
			return nil
		}
		return s.statements.RecordAtLink(ctx, req.CaseID, link.ID, statement, actor)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "person linked to case",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", link.CaseID,
		"link_id", link.ID,
		"role", link.Role,
		"with_statement", statement != "",
		"user_id", actor.UserID,
	)
	return link, nil
}

// List returns the persons linked to a case with their materialized statements.
func (s *Service) List(ctx context.Context, caseID id.CaseID, actor access.Actor) ([]models.LinkedPerson, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "caselink.List", attribute.String("case_id", caseID.String()))
	out, err := s.list(ctx, caseID, actor)
	tracing.End(span, err)
	return out, err
}

func (s *Service) list(ctx context.Context, caseID id.CaseID, actor access.Actor) ([]models.LinkedPerson, error) {
	if err := s.authorizeRead(ctx, caseID, actor); err != nil {
		return nil, err
	}
	linked, err := s.store.ListByCase(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list linked persons")
	}
	if len(linked) == 0 {
		return []models.LinkedPerson{}, nil
	}

	ids := make([]id.LinkID, len(linked))
	for i := range linked {
		ids[i] = linked[i].ID
	}
	statements, err := s.statements.Materialized(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range linked {
		if text, ok := statements[linked[i].ID]; ok {
			linked[i].Statement = &text
		}
	}
	return linked, nil
}

// Get returns one link of a case with the person's name.
func (s *Service) Get(ctx context.Context, caseID id.CaseID, linkID id.LinkID, actor access.Actor) (*models.Subject, error) {
	if err := s.authorizeRead(ctx, caseID, actor); err != nil {
		return nil, err
	}
	subj, err := s.store.GetSubject(ctx, caseID, linkID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person link not found for this case")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person link")
	}
	return subj, nil
}

func (s *Service) authorizeRead(ctx context.Context, caseID id.CaseID, actor access.Actor) error {
	station, err := s.cases.StationOf(ctx, caseID)
	if err != nil {
		return wrapCaseErr(err)
	}
	return s.guard.Require(ctx, actor, station, access.CasesRead)
}

func wrapCaseErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
}
