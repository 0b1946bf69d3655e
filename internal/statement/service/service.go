// Package service records initial and supplementary statements. Nothing it
// writes is ever rewritten: an initial statement grows by inserting
// fragments, so concurrent appends cannot lose each other's text.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"firledger/internal/access"
	auditmodels "firledger/internal/audit/models"
	linkmodels "firledger/internal/caselink/models"
	"firledger/internal/platform/tracing"
	"firledger/internal/statement/metrics"
	"firledger/internal/statement/models"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
	"firledger/pkg/requestcontext"
)

const (
	tracerScope        = "firledger/statement"
	maxStatementLength = 20000
	maxRemarksLength   = 2000
)

type Store interface {
	InsertFragment(ctx context.Context, f *models.Fragment) error
	ListFragments(ctx context.Context, linkID id.LinkID) ([]models.Fragment, error)
	ListFragmentsByLinks(ctx context.Context, linkIDs []id.LinkID) (map[id.LinkID][]models.Fragment, error)
	InsertSupplementary(ctx context.Context, st *models.Supplementary) error
	ListSupplementaryByLinks(ctx context.Context, linkIDs []id.LinkID) ([]models.Supplementary, error)
}

// LinkStore reads case_persons rows with the person's name. LockSubject
// holds the link row lock for the enclosing transaction.
type LinkStore interface {
	GetSubject(ctx context.Context, caseID id.CaseID, linkID id.LinkID) (*linkmodels.Subject, error)
	LockSubject(ctx context.Context, caseID id.CaseID, linkID id.LinkID) (*linkmodels.Subject, error)
	ListSubjects(ctx context.Context, caseID id.CaseID) ([]linkmodels.Subject, error)
}

type CaseStore interface {
	StationOf(ctx context.Context, caseID id.CaseID) (id.StationID, error)
	LockStation(ctx context.Context, caseID id.CaseID) (id.StationID, error)
}

type Auditor interface {
	Append(ctx context.Context, entry auditmodels.Entry) (auditmodels.EventID, error)
}

type Service struct {
	store   Store
	links   LinkStore
	cases   CaseStore
	auditor Auditor
	tx      txcontext.Runner
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

func New(store Store, links LinkStore, cases CaseStore, auditor Auditor, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		store:   store,
		links:   links,
		cases:   cases,
		auditor: auditor,
		tx:      runner,
		guard:   access.NewGuard(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", dErrors.New(dErrors.CodeValidation, "statement is required")
	}
	if len(text) > maxStatementLength {
		return "", dErrors.New(dErrors.CodeValidation, "statement is too long")
	}
	return text, nil
}

// AppendInitial adds a fragment to the initial statement of a link and
// returns the statement as it reads afterwards.
func (s *Service) AppendInitial(ctx context.Context, caseID id.CaseID, linkID id.LinkID, text string, actor access.Actor) (*models.InitialStatement, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "statement.AppendInitial",
		attribute.String("case_id", caseID.String()),
		attribute.String("link_id", linkID.String()),
	)
	st, err := s.appendInitial(ctx, caseID, linkID, text, actor)
	tracing.End(span, err)
	return st, err
}

func (s *Service) appendInitial(ctx context.Context, caseID id.CaseID, linkID id.LinkID, text string, actor access.Actor) (*models.InitialStatement, error) {
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}

	var out *models.InitialStatement
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		station, err := s.cases.LockStation(ctx, caseID)
		if err != nil {
			return wrapCaseErr(err)
		}
		if err := s.guard.Require(ctx, actor, station, access.CasesUpdate); err != nil {
			return err
		}
		subject, err := s.links.LockSubject(ctx, caseID, linkID)
		if err != nil {
			return wrapLinkErr(err)
		}

		f := &models.Fragment{LinkID: linkID, Body: text, Source: models.SourceAppend, RecordedBy: actor.UserID}
		if err := s.store.InsertFragment(ctx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record statement")
		}
		if _, err := s.auditor.Append(ctx, auditmodels.Entry{
			CaseID:      caseID,
			Action:      auditmodels.ActionAdditionalStatement,
			Description: fmt.Sprintf("Additional statement recorded for %s: %s (Person ID: %s)", subject.Role, subject.PersonName(), subject.PersonID),
			PerformedBy: actor.UserID,
		}); err != nil {
			return err
		}

		fragments, err := s.store.ListFragments(ctx, linkID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load statement")
		}
		out = models.NewInitialStatement(*subject, fragments)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorded(ctx, "append", caseID, linkID, actor)
	return out, nil
}

// RecordAtLink writes the link-time fragment of a freshly created link. It
// joins the caller's transaction; the caller has already authorized the
// mutation against the locked case.
func (s *Service) RecordAtLink(ctx context.Context, caseID id.CaseID, linkID id.LinkID, text string, actor access.Actor) error {
	text, err := cleanText(text)
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		subject, err := s.links.GetSubject(ctx, caseID, linkID)
		if err != nil {
			return wrapLinkErr(err)
		}
		f := &models.Fragment{LinkID: linkID, Body: text, Source: models.SourceLink, RecordedBy: actor.UserID}
		if err := s.store.InsertFragment(ctx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record statement")
		}
		_, err = s.auditor.Append(ctx, auditmodels.Entry{
			CaseID:      caseID,
			Action:      auditmodels.ActionAdditionalStatement,
			Description: fmt.Sprintf("Statement recorded for %s: %s (Person ID: %s)", subject.Role, subject.PersonName(), subject.PersonID),
			PerformedBy: actor.UserID,
		})
		if err == nil && s.metrics != nil {
			s.metrics.IncrementRecorded("link")
		}
		return err
	})
}

// AppendSupplementary records an immutable supplementary statement for a link.
func (s *Service) AppendSupplementary(ctx context.Context, caseID id.CaseID, linkID id.LinkID, text string, remarks *string, actor access.Actor) (*models.Supplementary, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "statement.AppendSupplementary",
		attribute.String("case_id", caseID.String()),
		attribute.String("link_id", linkID.String()),
	)
	st, err := s.appendSupplementary(ctx, caseID, linkID, text, remarks, actor)
	tracing.End(span, err)
	return st, err
}

func (s *Service) appendSupplementary(ctx context.Context, caseID id.CaseID, linkID id.LinkID, text string, remarks *string, actor access.Actor) (*models.Supplementary, error) {
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	if remarks != nil {
		r := strings.TrimSpace(*remarks)
		switch {
		case r == "":
			remarks = nil
		case len(r) > maxRemarksLength:
			return nil, dErrors.New(dErrors.CodeValidation, "remarks are too long")
		default:
			remarks = &r
		}
	}

	st := &models.Supplementary{
		ID:         id.NewStatementID(),
		LinkID:     linkID,
		Statement:  text,
		Remarks:    remarks,
		RecordedBy: actor.UserID,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		station, err := s.cases.LockStation(ctx, caseID)
		if err != nil {
			return wrapCaseErr(err)
		}
		if err := s.guard.Require(ctx, actor, station, access.CasesUpdate); err != nil {
			return err
		}
		subject, err := s.links.GetSubject(ctx, caseID, linkID)
		if err != nil {
			return wrapLinkErr(err)
		}
		if err := s.store.InsertSupplementary(ctx, st); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record supplementary statement")
		}
		_, err = s.auditor.Append(ctx, auditmodels.Entry{
			CaseID:      caseID,
			Action:      auditmodels.ActionSupplementary,
			Description: fmt.Sprintf("Supplementary statement recorded for %s: %s", subject.Role, subject.PersonName()),
			PerformedBy: actor.UserID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recorded(ctx, "supplementary", caseID, linkID, actor)
	return st, nil
}

func (s *Service) recorded(ctx context.Context, kind string, caseID id.CaseID, linkID id.LinkID, actor access.Actor) {
	if s.metrics != nil {
		s.metrics.IncrementRecorded(kind)
	}
	s.logger.InfoContext(ctx, "statement recorded",
		"request_id", requestcontext.RequestID(ctx),
		"kind", kind,
		"case_id", caseID,
		"link_id", linkID,
		"user_id", actor.UserID,
	)
}

// GetInitial returns the materialized initial statement of a link.
func (s *Service) GetInitial(ctx context.Context, caseID id.CaseID, linkID id.LinkID, actor access.Actor) (*models.InitialStatement, error) {
	if err := s.authorizeRead(ctx, caseID, actor); err != nil {
		return nil, err
	}
	subject, err := s.links.GetSubject(ctx, caseID, linkID)
	if err != nil {
		return nil, wrapLinkErr(err)
	}
	fragments, err := s.store.ListFragments(ctx, linkID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load statement")
	}
	return models.NewInitialStatement(*subject, fragments), nil
}

// Materialized returns the initial statement text of each link that has one.
// Callers authorize the read.
func (s *Service) Materialized(ctx context.Context, linkIDs []id.LinkID) (map[id.LinkID]string, error) {
	byLink, err := s.store.ListFragmentsByLinks(ctx, linkIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load statements")
	}
	out := make(map[id.LinkID]string, len(byLink))
	for linkID, fragments := range byLink {
		if len(fragments) > 0 {
			out[linkID] = models.Materialize(fragments)
		}
	}
	return out, nil
}

// ListSupplementary returns every supplementary statement of a case.
func (s *Service) ListSupplementary(ctx context.Context, caseID id.CaseID, order auditmodels.Order, actor access.Actor) ([]models.SupplementaryView, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "statement.ListSupplementary", attribute.String("case_id", caseID.String()))
	out, err := s.listSupplementary(ctx, caseID, nil, order, actor)
	tracing.End(span, err)
	return out, err
}

// ListSupplementaryForLink returns the supplementary statements of one link,
// oldest first.
func (s *Service) ListSupplementaryForLink(ctx context.Context, caseID id.CaseID, linkID id.LinkID, actor access.Actor) ([]models.SupplementaryView, error) {
	return s.listSupplementary(ctx, caseID, &linkID, auditmodels.Chronological, actor)
}

func (s *Service) listSupplementary(ctx context.Context, caseID id.CaseID, only *id.LinkID, order auditmodels.Order, actor access.Actor) ([]models.SupplementaryView, error) {
	if err := s.authorizeRead(ctx, caseID, actor); err != nil {
		return nil, err
	}

	var subjects []linkmodels.Subject
	if only != nil {
		subject, err := s.links.GetSubject(ctx, caseID, *only)
		if err != nil {
			return nil, wrapLinkErr(err)
		}
		subjects = []linkmodels.Subject{*subject}
	} else {
		var err error
		if subjects, err = s.links.ListSubjects(ctx, caseID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list linked persons")
		}
	}
	if len(subjects) == 0 {
		return []models.SupplementaryView{}, nil
	}

	bySubject := make(map[id.LinkID]linkmodels.Subject, len(subjects))
	linkIDs := make([]id.LinkID, 0, len(subjects))
	for _, subj := range subjects {
		bySubject[subj.ID] = subj
		linkIDs = append(linkIDs, subj.ID)
	}
	statements, err := s.store.ListSupplementaryByLinks(ctx, linkIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list supplementary statements")
	}

	out := make([]models.SupplementaryView, 0, len(statements))
	for _, st := range statements {
		subj := bySubject[st.LinkID]
		out = append(out, models.SupplementaryView{
			Supplementary: st,
			PersonID:      subj.PersonID,
			Role:          subj.Role,
			FirstName:     subj.FirstName,
			LastName:      subj.LastName,
		})
	}
	slices.SortStableFunc(out, func(a, b models.SupplementaryView) int {
		c := 0
		switch {
		case a.Before(b.Supplementary):
			c = -1
		case b.Before(a.Supplementary):
			c = 1
		}
		if order == auditmodels.ReverseChronological {
			return -c
		}
		return c
	})
	return out, nil
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

func wrapLinkErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "person link not found for this case")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person link")
}
