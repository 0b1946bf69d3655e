// Package models defines the association of a person to a case.
package models

import (
	"strings"
	"time"

	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

// Role tags the part a person plays in a case.
type Role string

const (
	RoleComplainant Role = "Complainant"
	RoleAccused     Role = "Accused"
	RoleSuspect     Role = "Suspect"
	RoleWitness     Role = "Witness"
	RoleVictim      Role = "Victim"
	RoleOther       Role = "Other"
)

var roles = []Role{RoleComplainant, RoleAccused, RoleSuspect, RoleWitness, RoleVictim, RoleOther}

// ParseRole matches the vocabulary case-insensitively.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role is required")
	}
	for _, r := range roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "role must be one of Complainant, Accused, Suspect, Witness, Victim, Other")
}

func (r Role) String() string { return string(r) }

// Link is one person attached to one case. At most one exists per (case, person).
type Link struct {
	ID        id.LinkID   `json:"link_id"`
	CaseID    id.CaseID   `json:"case_id"`
	PersonID  id.PersonID `json:"person_id"`
	Role      Role        `json:"role"`
	IsPrimary bool        `json:"is_primary"`
	AddedAt   time.Time   `json:"added_at"`
}

// Subject is a link joined with the person's name, used to describe the
// person in tracking records.
type Subject struct {
	Link
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PersonName is "first last".
func (s Subject) PersonName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// LinkedPerson is a link presented with the person and the materialized
// initial statement.
type LinkedPerson struct {
	Link
	FirstName     string  `json:"first_name"`
	MiddleName    string  `json:"middle_name,omitempty"`
	LastName      string  `json:"last_name"`
	Gender        string  `json:"gender,omitempty"`
	ContactNumber string  `json:"contact_number,omitempty"`
	NationalID    *string `json:"national_id,omitempty"`
	Statement     *string `json:"statement"`
}

// Less orders primary links first, then by role, then newest first.
func Less(a, b Link) bool {
	if a.IsPrimary != b.IsPrimary {
		return a.IsPrimary
	}
	if a.Role != b.Role {
		return a.Role < b.Role
	}
	if !a.AddedAt.Equal(b.AddedAt) {
		return a.AddedAt.After(b.AddedAt)
	}
	return strings.Compare(a.ID.String(), b.ID.String()) < 0
}
