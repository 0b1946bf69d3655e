package models

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes "not supplied" from "supplied with the zero value".
// A JSON null decodes as not supplied.
type Optional[T any] struct {
	Set   bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Optional[T]{Set: true, Value: v}
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// CustomAction is a caller-described action logged alongside an update.
type CustomAction struct {
	Type        string
	Description string
}

// Patch is a merge-patch over the mutable case fields. An unset field is left
// untouched; a set Summary of "" clears the summary.
type Patch struct {
	Status   Optional[string]
	Priority Optional[string]
	Summary  Optional[string]
	Action   *CustomAction
}

// IsEmpty reports whether the patch names no field and no custom action.
func (p Patch) IsEmpty() bool {
	return !p.Status.Set && !p.Priority.Set && !p.Summary.Set && p.Action == nil
}

// Field names a tracked case field.
type Field string

const (
	FieldStatus   Field = "status"
	FieldPriority Field = "priority"
	FieldSummary  Field = "summary"
)

// Change is one tracked field transition produced by Diff.
type Change struct {
	Field Field
	Old   string
	New   string
}

// Diff returns the fields whose patched value differs from c, in the fixed
// order status, priority, summary. Values must already be validated.
func Diff(c *Case, status *Status, priority *Priority, summary *string) []Change {
	var changes []Change
	if status != nil && *status != c.Status {
		changes = append(changes, Change{Field: FieldStatus, Old: string(c.Status), New: string(*status)})
	}
	if priority != nil && *priority != c.Priority {
		changes = append(changes, Change{Field: FieldPriority, Old: string(c.Priority), New: string(*priority)})
	}
	if summary != nil && *summary != c.Summary {
		changes = append(changes, Change{Field: FieldSummary, Old: c.Summary, New: *summary})
	}
	return changes
}

// Apply writes the changes onto c.
func (c *Case) Apply(changes []Change) {
	for _, ch := range changes {
		switch ch.Field {
		case FieldStatus:
			c.Status = Status(ch.New)
		case FieldPriority:
			c.Priority = Priority(ch.New)
		case FieldSummary:
			c.Summary = ch.New
		}
	}
}
