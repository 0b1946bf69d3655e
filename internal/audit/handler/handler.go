package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"firledger/internal/access"
	"firledger/internal/audit/models"
	id "firledger/pkg/domain"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/requestcontext"
)

// Service is the read side of the case history used by the timeline endpoint.
type Service interface {
	Trail(ctx context.Context, caseID id.CaseID, order models.Order, actor access.Actor) ([]models.Event, error)
}

// Handler serves the case tracking timeline.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/cases/{id}/tracking", h.HandleTrail)
}

// HandleTrail handles GET /cases/{id}/tracking?order=asc|desc (default desc).
func (h *Handler) HandleTrail(w http.ResponseWriter, r *http.Request) {
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
	order, err := models.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.service.Trail(ctx, caseID, order, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load case tracking",
			"request_id", requestID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toResponse(ev))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// EventResponse is the timeline entry shape; action_type carries the label
// the caller originally supplied for custom actions.
type EventResponse struct {
	ID          int64   `json:"id"`
	ActionType  string  `json:"action_type"`
	Description string  `json:"action_description"`
	OldStatus   *string `json:"old_status,omitempty"`
	NewStatus   *string `json:"new_status,omitempty"`
	PerformedBy string  `json:"performed_by"`
	ClientIP    string  `json:"client_ip,omitempty"`
	ClientAgent string  `json:"client_agent,omitempty"`
	Timestamp   string  `json:"track_date_time"`
}

func toResponse(ev models.Event) EventResponse {
	return EventResponse{
		ID:          int64(ev.ID),
		ActionType:  ev.Label(),
		Description: ev.Description,
		OldStatus:   ev.OldValue,
		NewStatus:   ev.NewValue,
		PerformedBy: ev.PerformedBy.String(),
		ClientIP:    ev.ClientIP,
		ClientAgent: ev.ClientAgent,
		Timestamp:   ev.Timestamp.Format(time.RFC3339Nano),
	}
}
