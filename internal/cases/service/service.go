// Package service owns case registration and field mutation. Every mutation
// appends its tracking records in the same transaction as the row change.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"firledger/internal/access"
	auditmodels "firledger/internal/audit/models"
	"firledger/internal/cases/metrics"
	"firledger/internal/cases/models"
	"firledger/internal/platform/tracing"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
	"firledger/pkg/requestcontext"
)

const (
	tracerScope      = "firledger/cases"
	defaultListLimit = 50
	maxListLimit     = 200
	maxFIRNoLength   = 50
	firNoAttempts    = 3
)

// Store is the case persistence port.
type Store interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	FindByFIRNo(ctx context.Context, firNo string) (*models.Case, error)
	LockForUpdate(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Update(ctx context.Context, c *models.Case) error
	List(ctx context.Context, filter models.ListFilter) ([]*models.Case, error)
	Stats(ctx context.Context, station *id.StationID) (*models.Stats, error)
}

// Auditor appends tracking records inside the caller's transaction.
type Auditor interface {
	Append(ctx context.Context, entry auditmodels.Entry) (auditmodels.EventID, error)
}

// CreateRequest carries the registration data of a new case. StationID is
// required for Admins and must match the actor's station otherwise.
type CreateRequest struct {
	FIRNo            string
	StationID        *id.StationID
	OfficerID        *id.OfficerID
	CrimeType        string
	CrimeSection     string
	Status           string
	Priority         string
	Summary          string
	IncidentDateTime *time.Time
	IncidentLocation string
	IncidentDistrict string
	FIRDateTime      *time.Time
}

// Service is the case registry.
type Service struct {
	store       Store
	auditor     Auditor
	tx          txcontext.Runner
	guard       *access.Guard
	transitions *models.TransitionTable
	logger      *slog.Logger
	metrics     *metrics.Metrics
	newFIRNo    func(time.Time) string
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

// WithTransitions enables the strict transition table.
func WithTransitions(t *models.TransitionTable) Option {
	return func(s *Service) { s.transitions = t }
}

// WithFIRGenerator overrides FIR number generation.
func WithFIRGenerator(fn func(time.Time) string) Option {
	return func(s *Service) { s.newFIRNo = fn }
}

func New(store Store, auditor Auditor, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		store:    store,
		auditor:  auditor,
		tx:       runner,
		guard:    access.NewGuard(),
		logger:   slog.Default(),
		newFIRNo: GenerateFIRNo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateFIRNo returns FIR-<year>-<8 hex>.
func GenerateFIRNo(now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("FIR-%04d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(u[:4])))
}

// Create registers a case and records a Case Registered event.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor access.Actor) (*models.Case, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "cases.Create")
	c, err := s.create(ctx, req, actor)
	tracing.End(span, err)
	return c, err
}

func (s *Service) create(ctx context.Context, req CreateRequest, actor access.Actor) (*models.Case, error) {
	station, err := targetStation(req.StationID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, actor, station, access.CasesCreate); err != nil {
		return nil, err
	}

	status, priority := models.StatusRegistered, models.PriorityMedium
	if strings.TrimSpace(req.Status) != "" {
		if status, err = models.ParseStatus(req.Status); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.Priority) != "" {
		if priority, err = models.ParsePriority(req.Priority); err != nil {
			return nil, err
		}
	}
	crimeType := strings.TrimSpace(req.CrimeType)
	if crimeType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "crime type is required")
	}
	firNo := strings.TrimSpace(req.FIRNo)
	if len(firNo) > maxFIRNoLength {
		return nil, dErrors.New(dErrors.CodeValidation, "FIR number must be 50 characters or less")
	}

	now := requestcontext.Now(ctx).UTC()
	c := &models.Case{
		ID:               id.NewCaseID(),
		StationID:        station,
		OfficerID:        req.OfficerID,
		CrimeType:        crimeType,
		CrimeSection:     strings.TrimSpace(req.CrimeSection),
		Status:           status,
		Priority:         priority,
		Summary:          strings.TrimSpace(req.Summary),
		IncidentDateTime: req.IncidentDateTime,
		IncidentLocation: strings.TrimSpace(req.IncidentLocation),
		IncidentDistrict: strings.TrimSpace(req.IncidentDistrict),
		FIRDateTime:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if c.OfficerID == nil {
		c.OfficerID = actor.OfficerID
	}
	if req.FIRDateTime != nil {
		c.FIRDateTime = req.FIRDateTime.UTC()
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if firNo != "" {
			c.FIRNo = firNo
			return s.insert(ctx, c, actor)
		}
		// Generated numbers retry on the unlikely collision.
		for attempt := 1; ; attempt++ {
			c.FIRNo = s.newFIRNo(now)
			err := s.insert(ctx, c, actor)
			if err == nil || !dErrors.HasCode(err, dErrors.CodeConflict) || attempt == firNoAttempts {
				return err
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "case registered",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", c.ID,
		"fir_no", c.FIRNo,
		"station_id", c.StationID,
		"user_id", actor.UserID,
	)
	return c, nil
}

func (s *Service) insert(ctx context.Context, c *models.Case, actor access.Actor) error {
	if _, err := s.store.FindByFIRNo(ctx, c.FIRNo); err == nil {
		return dErrors.New(dErrors.CodeConflict, "FIR number already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check FIR number")
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeConflict, "FIR number already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
	}
	_, err := s.auditor.Append(ctx, auditmodels.Entry{
		CaseID:      c.ID,
		Action:      auditmodels.ActionCaseRegistered,
		Description: fmt.Sprintf("Case registered with FIR number %s", c.FIRNo),
		PerformedBy: actor.UserID,
	})
	return err
}

func targetStation(requested *id.StationID, actor access.Actor) (id.StationID, error) {
	if requested != nil && !requested.IsNil() {
		return *requested, nil
	}
	if actor.IsAdmin() {
		return id.StationID{}, dErrors.New(dErrors.CodeValidation, "station id is required")
	}
	if actor.StationID == nil {
		return id.StationID{}, dErrors.New(dErrors.CodeForbidden, access.ReasonStationMismatch)
	}
	return *actor.StationID, nil
}

// Get returns a case the actor's station owns, or any case to an Admin.
func (s *Service) Get(ctx context.Context, caseID id.CaseID, actor access.Actor) (*models.Case, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "cases.Get", attribute.String("case_id", caseID.String()))
	c, err := s.get(ctx, caseID, actor)
	tracing.End(span, err)
	return c, err
}

func (s *Service) get(ctx context.Context, caseID id.CaseID, actor access.Actor) (*models.Case, error) {
	c, err := s.store.FindByID(ctx, caseID)
	if err != nil {
		return nil, wrapCaseErr(err)
	}
	if err := s.guard.Require(ctx, actor, c.StationID, access.CasesRead); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the newest cases visible to the actor.
func (s *Service) List(ctx context.Context, status string, limit int, actor access.Actor) ([]*models.Case, error) {
	if err := s.guard.RequireCapability(ctx, actor, access.CasesRead); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	cases, err := s.store.List(ctx, models.ListFilter{
		Station: access.StationFilter(actor),
		Status:  strings.TrimSpace(status),
		Limit:   limit,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return cases, nil
}

// Stats counts the cases visible to the actor.
func (s *Service) Stats(ctx context.Context, actor access.Actor) (*models.Stats, error) {
	if err := s.guard.RequireCapability(ctx, actor, access.CasesRead); err != nil {
		return nil, err
	}
	stats, err := s.store.Stats(ctx, access.StationFilter(actor))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case statistics")
	}
	return stats, nil
}

func wrapCaseErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
}
