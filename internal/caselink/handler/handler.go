package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"firledger/internal/access"
	"firledger/internal/caselink/models"
	"firledger/internal/caselink/service"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/requestcontext"
)

type Service interface {
	Link(ctx context.Context, req service.LinkRequest, actor access.Actor) (*models.Link, error)
	List(ctx context.Context, caseID id.CaseID, actor access.Actor) ([]models.LinkedPerson, error)
	Get(ctx context.Context, caseID id.CaseID, linkID id.LinkID, actor access.Actor) (*models.Subject, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/cases/{id}/persons", h.HandleList)
	r.Post("/cases/{id}/persons", h.HandleLink)
	r.Get("/cases/{id}/persons/{linkId}", h.HandleGet)
}

// LinkPersonRequest links an existing person to the case in the path.
type LinkPersonRequest struct {
	PersonID  string `json:"person_id"`
	Role      string `json:"role"`
	IsPrimary bool   `json:"is_primary"`
	Statement string `json:"statement"`

	personID id.PersonID
}

func (r *LinkPersonRequest) Normalize() {
	r.PersonID = strings.TrimSpace(r.PersonID)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *LinkPersonRequest) Validate() error {
	if r.PersonID == "" || r.Role == "" {
		return dErrors.New(dErrors.CodeValidation, "person id and role are required")
	}
	p, err := id.ParsePersonID(r.PersonID)
	if err != nil {
		return err
	}
	r.personID = p
	return nil
}

func (h *Handler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[LinkPersonRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	link, err := h.service.Link(ctx, service.LinkRequest{
		CaseID:           caseID,
		PersonID:         req.personID,
		Role:             req.Role,
		IsPrimary:        req.IsPrimary,
		InitialStatement: req.Statement,
	}, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to link person",
			"request_id", requestID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusCreated, "Person linked successfully", link)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	linked, err := h.service.List(ctx, caseID, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list case persons",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, linked)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subject, err := h.service.Get(ctx, caseID, linkID, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load case person",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID,
			"link_id", linkID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subject)
}
