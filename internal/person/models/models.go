// Package models defines the minimal person directory entry that case links reference.
package models

import (
	"strings"
	"time"

	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

const maxNameLength = 100

// Person is a reference entity with a lifecycle independent of cases.
type Person struct {
	ID            id.PersonID `json:"id"`
	FirstName     string      `json:"first_name"`
	MiddleName    string      `json:"middle_name,omitempty"`
	LastName      string      `json:"last_name"`
	NationalID    *string     `json:"national_id,omitempty"`
	Gender        string      `json:"gender,omitempty"`
	ContactNumber string      `json:"contact_number,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// FullName joins the non-empty name parts.
func (p Person) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// NewPerson validates the identity attributes. An empty national id is stored as absent.
func NewPerson(personID id.PersonID, first, middle, last, nationalID, gender, contact string, now time.Time) (*Person, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" || last == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "first name and last name are required")
	}
	if len(first) > maxNameLength || len(last) > maxNameLength || len(middle) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "name parts must be 100 characters or less")
	}
	p := &Person{
		ID:            personID,
		FirstName:     first,
		MiddleName:    strings.TrimSpace(middle),
		LastName:      last,
		Gender:        strings.TrimSpace(gender),
		ContactNumber: strings.TrimSpace(contact),
		CreatedAt:     now,
	}
	if nid := strings.TrimSpace(nationalID); nid != "" {
		p.NationalID = &nid
	}
	return p, nil
}
