package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"firledger/internal/access"
	"firledger/internal/person/models"
	"firledger/internal/person/service"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/requestcontext"
)

// Service is the person directory as seen by the HTTP layer.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest, actor access.Actor) (*models.Person, error)
	Get(ctx context.Context, personID id.PersonID, actor access.Actor) (*models.Person, error)
	Search(ctx context.Context, q string, limit int, actor access.Actor) ([]*models.Person, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/persons", h.HandleCreate)
	r.Get("/persons", h.HandleSearch)
	r.Get("/persons/{id}", h.HandleGet)
}

// CreatePersonRequest accepts the legacy form aliases citizenship_no and phone.
type CreatePersonRequest struct {
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	NationalID    string `json:"national_id"`
	CitizenshipNo string `json:"citizenship_no"`
	Gender        string `json:"gender"`
	ContactNumber string `json:"contact_number"`
	Phone         string `json:"phone"`
}

func (r *CreatePersonRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.MiddleName = strings.TrimSpace(r.MiddleName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.NationalID == "" {
		r.NationalID = r.CitizenshipNo
	}
	r.NationalID = strings.TrimSpace(r.NationalID)
	if r.ContactNumber == "" {
		r.ContactNumber = r.Phone
	}
	r.ContactNumber = strings.TrimSpace(r.ContactNumber)
	r.Gender = strings.TrimSpace(r.Gender)
}

func (r *CreatePersonRequest) Validate() error {
	if r.FirstName == "" || r.LastName == "" {
		return dErrors.New(dErrors.CodeValidation, "first name and last name are required")
	}
	return nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreatePersonRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.Create(ctx, service.CreateRequest{
		FirstName:     req.FirstName,
		MiddleName:    req.MiddleName,
		LastName:      req.LastName,
		NationalID:    req.NationalID,
		Gender:        req.Gender,
		ContactNumber: req.ContactNumber,
	}, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create person",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusCreated, "Person created successfully", p)
}

// HandleSearch handles GET /persons?q=&limit=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		q = r.URL.Query().Get("search")
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
	}

	persons, err := h.service.Search(ctx, q, limit, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to search persons",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, persons)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	personID, err := id.ParsePersonID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Get(ctx, personID, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}
