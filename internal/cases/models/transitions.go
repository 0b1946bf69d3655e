package models

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	dErrors "firledger/pkg/domain-errors"
)

// TransitionTable is the optional strict state machine for status and
// priority. A nil table, or a nil map for a field, allows every transition.
//
//	status:
//	  Registered: [Under Investigation, Closed]
//	  Under Investigation: [Charge Sheet Filed, Closed]
type TransitionTable struct {
	Status   map[string][]string `yaml:"status"`
	Priority map[string][]string `yaml:"priority"`
}

// ParseTransitionTable decodes a YAML table, rejecting unknown keys.
func ParseTransitionTable(r io.Reader) (*TransitionTable, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var t TransitionTable
	if err := dec.Decode(&t); err != nil {
		if err == io.EOF {
			return &TransitionTable{}, nil
		}
		return nil, fmt.Errorf("decode transition table: %w", err)
	}
	return &t, nil
}

// LoadTransitionTable reads the table from path.
func LoadTransitionTable(path string) (*TransitionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transition table: %w", err)
	}
	defer f.Close()
	return ParseTransitionTable(f)
}

// Check rejects any change the table does not list.
func (t *TransitionTable) Check(changes []Change) error {
	if t == nil {
		return nil
	}
	for _, ch := range changes {
		var table map[string][]string
		switch ch.Field {
		case FieldStatus:
			table = t.Status
		case FieldPriority:
			table = t.Priority
		default:
			continue
		}
		if table == nil {
			continue
		}
		if !slices.Contains(table[ch.Old], ch.New) {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("%s transition from %q to %q is not allowed", ch.Field, ch.Old, ch.New))
		}
	}
	return nil
}
