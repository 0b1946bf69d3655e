// Package access decides whether an actor may perform a capability on a
// resource owned by a station.
//
// Authorization is two-staged: the role must grant the capability, then the
// actor must belong to the resource's station unless they are an Admin.
// Callers pass the station read from the row they locked inside the mutating
// transaction, never a station supplied by the client.
package access

import (
	"strings"

	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

// Role is the actor's organizational role.
type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleStationAdmin Role = "StationAdmin"
	RoleOfficer      Role = "Officer"
)

// ParseRole accepts the canonical names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "stationadmin", "station_admin":
		return RoleStationAdmin, nil
	case "officer":
		return RoleOfficer, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
}

func (r Role) String() string { return string(r) }

// Actor is the authenticated principal supplied by the identity layer.
type Actor struct {
	UserID    id.UserID
	Role      Role
	StationID *id.StationID
	OfficerID *id.OfficerID
}

// IsAdmin reports whether the actor bypasses station scoping.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

const (
	ReasonLacksCapability = "role lacks capability"
	ReasonStationMismatch = "station mismatch"
)

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Authorize checks the capability first, then the station.
func Authorize(actor Actor, resourceStation id.StationID, capability Capability) Decision {
	if !HasCapability(actor.Role, capability) {
		return deny(ReasonLacksCapability)
	}
	if actor.IsAdmin() {
		return allow()
	}
	if actor.StationID == nil || *actor.StationID != resourceStation {
		return deny(ReasonStationMismatch)
	}
	return allow()
}

// Can checks only the role table. Used for operations without a station yet,
// such as listing or creating persons.
func Can(actor Actor, capability Capability) Decision {
	if !HasCapability(actor.Role, capability) {
		return deny(ReasonLacksCapability)
	}
	return allow()
}

// StationFilter returns the station a query must be restricted to, or nil for
// Admins who see every station. A non-admin without a station gets a
// restriction that matches nothing.
func StationFilter(actor Actor) *id.StationID {
	if actor.IsAdmin() {
		return nil
	}
	if actor.StationID == nil {
		none := id.StationID{}
		return &none
	}
	s := *actor.StationID
	return &s
}

// Err converts a denial into a forbidden error; an allow yields nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, d.Reason)
}
