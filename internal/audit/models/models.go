// Package models defines the case tracking record: an append-only, ordered
// history of every mutation to a case and its attachments.
package models

import (
	"strings"
	"time"
	"unicode"

	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

// EventID is assigned by the store and strictly increases in insertion order.
type EventID int64

// ActionType is the closed vocabulary of tracked actions. ActionOther carries
// the caller's label in Entry.Note.
type ActionType string

const (
	ActionCaseRegistered      ActionType = "Case Registered"
	ActionStatusChange        ActionType = "Status Change"
	ActionPriorityChange      ActionType = "Priority Change"
	ActionDescriptionUpdate   ActionType = "Description Update"
	ActionAddCaseMember       ActionType = "Add New Case Member"
	ActionAdditionalStatement ActionType = "Additional Statement Record"
	ActionSupplementary       ActionType = "Supplementary Statement"
	ActionOther               ActionType = "Other"
)

var actionTypes = []ActionType{
	ActionCaseRegistered,
	ActionStatusChange,
	ActionPriorityChange,
	ActionDescriptionUpdate,
	ActionAddCaseMember,
	ActionAdditionalStatement,
	ActionSupplementary,
	ActionOther,
}

// knownActions is keyed by lower-cased label.
var knownActions = func() map[string]ActionType {
	m := make(map[string]ActionType, len(actionTypes))
	for _, a := range actionTypes {
		m[strings.ToLower(string(a))] = a
	}
	return m
}()

const maxActionLabel = 64

// ParseActionType canonicalizes a label. Known labels match case-insensitively;
// any other label becomes ActionOther and is returned as the note. A bare
// "Other" keeps its own name as the note.
func ParseActionType(label string) (ActionType, string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", "", dErrors.New(dErrors.CodeValidation, "action type is required")
	}
	if len(label) > maxActionLabel {
		return "", "", dErrors.New(dErrors.CodeValidation, "action type must be 64 characters or less")
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return "", "", dErrors.New(dErrors.CodeValidation, "action type contains control characters")
		}
	}
	if a, ok := knownActions[strings.ToLower(label)]; ok {
		if a == ActionOther {
			return ActionOther, string(ActionOther), nil
		}
		return a, "", nil
	}
	return ActionOther, label, nil
}

// IsTransition reports whether a records an old/new value pair.
func (a ActionType) IsTransition() bool {
	return a == ActionStatusChange || a == ActionPriorityChange
}

// Derived reports whether a is written only by the service that performs the
// mutation it names. Callers may not supply these as custom actions.
func (a ActionType) Derived() bool {
	return a.IsValid() && a != ActionOther
}

// IsValid reports whether a is part of the vocabulary.
func (a ActionType) IsValid() bool {
	return a != "" && knownActions[strings.ToLower(string(a))] == a
}

func (a ActionType) String() string { return string(a) }

// Order selects the direction of a history read.
type Order int

const (
	ReverseChronological Order = iota
	Chronological
)

// ParseOrder maps "asc"/"desc" query values; empty defaults to newest first.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return ReverseChronological, nil
	case "asc":
		return Chronological, nil
	default:
		return 0, dErrors.New(dErrors.CodeValidation, "order must be 'asc' or 'desc'")
	}
}

// Entry is what callers hand to Append. Identity and time are assigned by the store.
type Entry struct {
	CaseID      id.CaseID
	Action      ActionType
	Note        string
	Description string
	OldValue    *string
	NewValue    *string
	PerformedBy id.UserID
	ClientIP    string
	ClientAgent string
}

// Validate enforces the fields every event must carry.
func (e Entry) Validate() error {
	if e.CaseID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "case id is required")
	}
	if !e.Action.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown action type")
	}
	if e.Action == ActionOther && strings.TrimSpace(e.Note) == "" {
		return dErrors.New(dErrors.CodeValidation, "other action requires a note")
	}
	if (e.OldValue != nil || e.NewValue != nil) && !e.Action.IsTransition() {
		return dErrors.New(dErrors.CodeValidation, "old and new values are only recorded for status and priority changes")
	}
	if strings.TrimSpace(e.Description) == "" {
		return dErrors.New(dErrors.CodeValidation, "action description is required")
	}
	if e.PerformedBy.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "performer is required")
	}
	return nil
}

// Event is a stored tracking record. Events are never updated or deleted.
type Event struct {
	ID          EventID    `json:"id"`
	CaseID      id.CaseID  `json:"case_id"`
	Action      ActionType `json:"action_type"`
	Note        string     `json:"action_note,omitempty"`
	Description string     `json:"action_description"`
	OldValue    *string    `json:"old_value,omitempty"`
	NewValue    *string    `json:"new_value,omitempty"`
	PerformedBy id.UserID  `json:"performed_by"`
	ClientIP    string     `json:"client_ip,omitempty"`
	ClientAgent string     `json:"client_agent,omitempty"`
	Timestamp   time.Time  `json:"track_date_time"`
}

// Label is the human-facing action name: the note for ActionOther.
func (e Event) Label() string {
	if e.Action == ActionOther && e.Note != "" {
		return e.Note
	}
	return string(e.Action)
}

// Before orders events by (timestamp, id).
func (e Event) Before(o Event) bool {
	if !e.Timestamp.Equal(o.Timestamp) {
		return e.Timestamp.Before(o.Timestamp)
	}
	return e.ID < o.ID
}

// StringPtr is a convenience for OldValue/NewValue.
func StringPtr(s string) *string { return &s }
