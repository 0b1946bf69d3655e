// Package domain holds identifier primitives shared across bounded contexts.
//
// Each identifier is a distinct named type over a UUID so a CaseID can never be
// passed where a PersonID is expected. Construct them with the Parse functions
// at trust boundaries; those reject empty, malformed and nil UUIDs.
package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "firledger/pkg/domain-errors"
)

type (
	UserID      uuid.UUID
	StationID   uuid.UUID
	OfficerID   uuid.UUID
	CaseID      uuid.UUID
	PersonID    uuid.UUID
	LinkID      uuid.UUID
	StatementID uuid.UUID
)

// maxIDInput bounds the raw input before uuid.Parse sees it.
const maxIDInput = 64

func parseID[T ~[16]byte](s, label string) (T, error) {
	var zero T
	if s == "" {
		return zero, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > maxIDInput || !utf8.ValidString(s) {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return T(u), nil
}

func ParseUserID(s string) (UserID, error)           { return parseID[UserID](s, "user id") }
func ParseStationID(s string) (StationID, error)     { return parseID[StationID](s, "station id") }
func ParseOfficerID(s string) (OfficerID, error)     { return parseID[OfficerID](s, "officer id") }
func ParseCaseID(s string) (CaseID, error)           { return parseID[CaseID](s, "case id") }
func ParsePersonID(s string) (PersonID, error)       { return parseID[PersonID](s, "person id") }
func ParseLinkID(s string) (LinkID, error)           { return parseID[LinkID](s, "link id") }
func ParseStatementID(s string) (StatementID, error) { return parseID[StatementID](s, "statement id") }

func NewCaseID() CaseID           { return CaseID(uuid.New()) }
func NewPersonID() PersonID       { return PersonID(uuid.New()) }
func NewLinkID() LinkID           { return LinkID(uuid.New()) }
func NewStatementID() StatementID { return StatementID(uuid.New()) }

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id StationID) String() string   { return uuid.UUID(id).String() }
func (id OfficerID) String() string   { return uuid.UUID(id).String() }
func (id CaseID) String() string      { return uuid.UUID(id).String() }
func (id PersonID) String() string    { return uuid.UUID(id).String() }
func (id LinkID) String() string      { return uuid.UUID(id).String() }
func (id StatementID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id StationID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id OfficerID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CaseID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PersonID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id LinkID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id StatementID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets IDs render as plain UUID strings in JSON responses.
func (id UserID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id StationID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id OfficerID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id CaseID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id PersonID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id LinkID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id StatementID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
