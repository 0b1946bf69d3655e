package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"firledger/internal/access"
	"firledger/internal/cases/models"
	"firledger/internal/cases/service"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/requestcontext"
)

// Service is the case registry as seen by the HTTP layer.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest, actor access.Actor) (*models.Case, error)
	Get(ctx context.Context, caseID id.CaseID, actor access.Actor) (*models.Case, error)
	List(ctx context.Context, status string, limit int, actor access.Actor) ([]*models.Case, error)
	Stats(ctx context.Context, actor access.Actor) (*models.Stats, error)
	Update(ctx context.Context, caseID id.CaseID, patch models.Patch, actor access.Actor) (*models.Case, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.HandleCreate)
	r.Get("/cases", h.HandleList)
	r.Get("/cases/stats", h.HandleStats)
	r.Get("/cases/{id}", h.HandleGet)
	r.Put("/cases/{id}", h.HandleUpdate)
	r.Patch("/cases/{id}", h.HandleUpdate)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Create(ctx, req.toService(), actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to register case",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusCreated, "Case registered successfully", c)
}

// HandleList handles GET /cases?status=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
	}

	cases, err := h.service.List(ctx, r.URL.Query().Get("status"), limit, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list cases",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cases)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.service.Stats(ctx, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load case statistics",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
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
	c, err := h.service.Get(ctx, caseID, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleUpdate handles PUT and PATCH /cases/{id}; both are merge-patches.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[UpdateCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Update(ctx, caseID, req.toPatch(), actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update case",
			"request_id", requestID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Case updated successfully", c)
}
