package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"firledger/internal/access"
	"firledger/internal/person/models"
	"firledger/internal/platform/tracing"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/sentinel"
	"firledger/pkg/requestcontext"
)

const (
	tracerScope       = "firledger/person"
	defaultSearchSize = 20
	maxSearchSize     = 100
	minQueryLength    = 2
)

// Store is the person directory persistence port.
type Store interface {
	Create(ctx context.Context, p *models.Person) error
	FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.Person, error)
	Search(ctx context.Context, q string, limit int) ([]*models.Person, error)
}

// CreateRequest carries the identity attributes of a new person.
type CreateRequest struct {
	FirstName     string
	MiddleName    string
	LastName      string
	NationalID    string
	Gender        string
	ContactNumber string
}

// Service manages the person directory that case links reference.
type Service struct {
	store  Store
	guard  *access.Guard
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithGuard(g *access.Guard) Option {
	return func(s *Service) { s.guard = g }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, guard: access.NewGuard(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a person. A national id, when present, must be unique.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor access.Actor) (*models.Person, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "person.Create")
	p, err := s.create(ctx, req, actor)
	tracing.End(span, err)
	return p, err
}

func (s *Service) create(ctx context.Context, req CreateRequest, actor access.Actor) (*models.Person, error) {
	if err := s.guard.RequireCapability(ctx, actor, access.PersonsCreate); err != nil {
		return nil, err
	}
	p, err := models.NewPerson(id.NewPersonID(), req.FirstName, req.MiddleName, req.LastName,
		req.NationalID, req.Gender, req.ContactNumber, requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, err
	}

	if p.NationalID != nil {
		_, err := s.store.FindByNationalID(ctx, *p.NationalID)
		if err == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "person with this national id already exists")
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check national id")
		}
	}

	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "person with this national id already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create person")
	}

	s.logger.InfoContext(ctx, "person created",
		"request_id", requestcontext.RequestID(ctx),
		"person_id", p.ID,
		"user_id", actor.UserID,
	)
	return p, nil
}

// FindByID is the unauthenticated lookup used by components that already
// authorized their own operation.
func (s *Service) FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	p, err := s.store.FindByID(ctx, personID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load person")
	}
	return p, nil
}

// Get returns a person to an actor allowed to read the directory.
func (s *Service) Get(ctx context.Context, personID id.PersonID, actor access.Actor) (*models.Person, error) {
	if err := s.guard.RequireCapability(ctx, actor, access.PersonsRead); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, personID)
}

// Search matches names and national ids. Queries shorter than two characters
// after trimming return the newest persons instead.
func (s *Service) Search(ctx context.Context, q string, limit int, actor access.Actor) ([]*models.Person, error) {
	if err := s.guard.RequireCapability(ctx, actor, access.PersonsRead); err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minQueryLength {
		q = ""
	}
	switch {
	case limit <= 0:
		limit = defaultSearchSize
	case limit > maxSearchSize:
		limit = maxSearchSize
	}
	persons, err := s.store.Search(ctx, q, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search persons")
	}
	return persons, nil
}
