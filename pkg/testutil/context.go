package testutil

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"firledger/internal/access"
	id "firledger/pkg/domain"
	"firledger/pkg/requestcontext"
)

// WithActor adds an authenticated actor to the request context.
// This simulates what the auth middleware does for verified bearer tokens.
func WithActor(req *http.Request, actor access.Actor) *http.Request {
	ctx := access.WithActor(req.Context(), actor)
	ctx = requestcontext.WithUserID(ctx, actor.UserID)
	return req.WithContext(ctx)
}

// OfficerAt builds an officer actor assigned to station.
func OfficerAt(station id.StationID) access.Actor {
	officer := id.OfficerID(uuid.New())
	return access.Actor{
		UserID:    id.UserID(uuid.New()),
		Role:      access.RoleOfficer,
		StationID: &station,
		OfficerID: &officer,
	}
}

// StationAdminAt builds a station admin actor assigned to station.
func StationAdminAt(station id.StationID) access.Actor {
	return access.Actor{
		UserID:    id.UserID(uuid.New()),
		Role:      access.RoleStationAdmin,
		StationID: &station,
	}
}

// Admin builds an organization-wide admin actor.
func Admin() access.Actor {
	return access.Actor{UserID: id.UserID(uuid.New()), Role: access.RoleAdmin}
}

// ActorContext returns a background context carrying actor, for service tests.
func ActorContext(actor access.Actor) context.Context {
	return access.WithActor(context.Background(), actor)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
