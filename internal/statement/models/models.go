// Package models defines initial statements, kept as append-only fragments,
// and immutable supplementary statements.
package models

import (
	"slices"
	"strings"
	"time"

	linkmodels "firledger/internal/caselink/models"
	id "firledger/pkg/domain"
)

// Separator joins fragments of a materialized statement.
const Separator = "\n\n---\n\n"

// Source tells how a fragment was recorded.
type Source string

const (
	SourceLink   Source = "link"
	SourceAppend Source = "append"
)

// Fragment is one piece of an initial statement. Fragments are never
// updated; the statement is their ordered join.
type Fragment struct {
	ID         int64
	LinkID     id.LinkID
	Body       string
	Source     Source
	RecordedBy id.UserID
	RecordedAt time.Time
}

// Render returns the fragment as it appears in the materialized statement:
// link-time text verbatim, appended text prefixed with its UTC timestamp.
func (f Fragment) Render() string {
	if f.Source == SourceLink {
		return f.Body
	}
	return "[" + f.RecordedAt.UTC().Format(time.RFC3339Nano) + "] " + f.Body
}

// Materialize joins fragments in (RecordedAt, ID) order. It does not modify
// the input slice. An empty input yields "".
func Materialize(fragments []Fragment) string {
	if len(fragments) == 0 {
		return ""
	}
	ordered := slices.Clone(fragments)
	slices.SortStableFunc(ordered, func(a, b Fragment) int {
		if c := a.RecordedAt.Compare(b.RecordedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	parts := make([]string, len(ordered))
	for i, f := range ordered {
		parts[i] = f.Render()
	}
	return strings.Join(parts, Separator)
}

// InitialStatement is the materialized statement of one link.
type InitialStatement struct {
	LinkID    id.LinkID       `json:"link_id"`
	CaseID    id.CaseID       `json:"case_id"`
	PersonID  id.PersonID     `json:"person_id"`
	Role      linkmodels.Role `json:"role"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	AddedAt   time.Time       `json:"added_at"`
	Statement *string         `json:"statement"`
	Entries   int             `json:"entries"`
}

// NewInitialStatement materializes fragments for subject.
func NewInitialStatement(subject linkmodels.Subject, fragments []Fragment) *InitialStatement {
	st := &InitialStatement{
		LinkID:    subject.ID,
		CaseID:    subject.CaseID,
		PersonID:  subject.PersonID,
		Role:      subject.Role,
		FirstName: subject.FirstName,
		LastName:  subject.LastName,
		AddedAt:   subject.AddedAt,
		Entries:   len(fragments),
	}
	if len(fragments) > 0 {
		text := Materialize(fragments)
		st.Statement = &text
	}
	return st
}

// Supplementary is a statement recorded after the initial one. It is never
// updated or deleted.
type Supplementary struct {
	ID            id.StatementID `json:"id"`
	LinkID        id.LinkID      `json:"case_person_id"`
	Statement     string         `json:"statement"`
	StatementDate time.Time      `json:"statement_date"`
	Remarks       *string        `json:"remarks,omitempty"`
	RecordedBy    id.UserID      `json:"recorded_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Before orders by (StatementDate, ID).
func (s Supplementary) Before(o Supplementary) bool {
	if !s.StatementDate.Equal(o.StatementDate) {
		return s.StatementDate.Before(o.StatementDate)
	}
	return s.ID.String() < o.ID.String()
}

// SupplementaryView is a supplementary statement with its subject.
type SupplementaryView struct {
	Supplementary
	PersonID  id.PersonID     `json:"person_id"`
	Role      linkmodels.Role `json:"role"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
}
