package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"firledger/internal/access"
	auditmodels "firledger/internal/audit/models"
	"firledger/internal/statement/models"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/requestcontext"
)

type Service interface {
	AppendInitial(ctx context.Context, caseID id.CaseID, linkID id.LinkID, text string, actor access.Actor) (*models.InitialStatement, error)
	GetInitial(ctx context.Context, caseID id.CaseID, linkID id.LinkID, actor access.Actor) (*models.InitialStatement, error)
	AppendSupplementary(ctx context.Context, caseID id.CaseID, linkID id.LinkID, text string, remarks *string, actor access.Actor) (*models.Supplementary, error)
	ListSupplementary(ctx context.Context, caseID id.CaseID, order auditmodels.Order, actor access.Actor) ([]models.SupplementaryView, error)
	ListSupplementaryForLink(ctx context.Context, caseID id.CaseID, linkID id.LinkID, actor access.Actor) ([]models.SupplementaryView, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/cases/{id}/persons/{linkId}/statement", h.HandleGetInitial)
	r.Post("/cases/{id}/persons/{linkId}/statement", h.HandleAppendInitial)
	r.Get("/cases/{id}/supplementary-statements", h.HandleListSupplementary)
	r.Post("/cases/{id}/supplementary-statements", h.HandleAppendSupplementary)
}

type AppendStatementRequest struct {
	Statement string `json:"statement"`
}

func (r *AppendStatementRequest) Normalize() {
	r.Statement = strings.TrimSpace(r.Statement)
}

func (r *AppendStatementRequest) Validate() error {
	if r.Statement == "" {
		return dErrors.New(dErrors.CodeValidation, "statement is required")
	}
	return nil
}

type SupplementaryRequest struct {
	CasePersonID string  `json:"case_person_id"`
	Statement    string  `json:"statement"`
	Remarks      *string `json:"remarks"`

	linkID id.LinkID
}

func (r *SupplementaryRequest) Normalize() {
	r.CasePersonID = strings.TrimSpace(r.CasePersonID)
	r.Statement = strings.TrimSpace(r.Statement)
}

func (r *SupplementaryRequest) Validate() error {
	if r.CasePersonID == "" || r.Statement == "" {
		return dErrors.New(dErrors.CodeValidation, "case person and statement are required")
	}
	l, err := id.ParseLinkID(r.CasePersonID)
	if err != nil {
		return err
	}
	r.linkID = l
	return nil
}

func pathIDs(r *http.Request) (id.CaseID, id.LinkID, error) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		return id.CaseID{}, id.LinkID{}, err
	}
	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkId"))
	if err != nil {
		return id.CaseID{}, id.LinkID{}, err
	}
	return caseID, linkID, nil
}

func (h *Handler) HandleGetInitial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, linkID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	st, err := h.service.GetInitial(ctx, caseID, linkID, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) HandleAppendInitial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := access.MustActor(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caseID, linkID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AppendStatementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	st, err := h.service.AppendInitial(ctx, caseID, linkID, req.Statement, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to append statement",
			"request_id", requestID,
			"case_id", caseID,
			"link_id", linkID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Statement added successfully", st)
}

// HandleListSupplementary handles GET /cases/{id}/supplementary-statements
// with optional order=asc|desc (default desc) or case_person_id.
func (h *Handler) HandleListSupplementary(w http.ResponseWriter, r *http.Request) {
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

	var statements []models.SupplementaryView
	if raw := r.URL.Query().Get("case_person_id"); raw != "" {
		linkID, perr := id.ParseLinkID(raw)
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		statements, err = h.service.ListSupplementaryForLink(ctx, caseID, linkID, actor)
	} else {
		order, perr := auditmodels.ParseOrder(r.URL.Query().Get("order"))
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		statements, err = h.service.ListSupplementary(ctx, caseID, order, actor)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list supplementary statements",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statements)
}

func (h *Handler) HandleAppendSupplementary(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[SupplementaryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	st, err := h.service.AppendSupplementary(ctx, caseID, req.linkID, req.Statement, req.Remarks, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to add supplementary statement",
			"request_id", requestID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusCreated, "Supplementary statement added successfully", st)
}
