package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"firledger/internal/access"
	"firledger/internal/report/models"
	"firledger/internal/report/render"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/requestcontext"
)

type Service interface {
	Assemble(ctx context.Context, caseID id.CaseID, actor access.Actor) (*models.CaseReport, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/cases/{id}/report", h.HandleJSON)
	r.Get("/cases/{id}/report.pdf", h.HandlePDF)
}

func (h *Handler) assemble(w http.ResponseWriter, r *http.Request) (*models.CaseReport, bool) {
	ctx := r.Context()
	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	report, err := h.service.Assemble(ctx, caseID, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to assemble case report",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return nil, false
	}
	return report, true
}

func (h *Handler) HandleJSON(w http.ResponseWriter, r *http.Request) {
	report, ok := h.assemble(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandlePDF renders into a buffer first so a rendering failure still yields
// a JSON error envelope.
func (h *Handler) HandlePDF(w http.ResponseWriter, r *http.Request) {
	report, ok := h.assemble(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.PDF(report, &buf); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render case report",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render report"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="case-report-%s.pdf"`, report.Case.FIRNo))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
