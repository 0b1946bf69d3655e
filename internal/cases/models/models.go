// Package models defines the FIR case file and the merge-patch applied to it.
package models

import (
	"strings"
	"time"
	"unicode"

	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

// Status is an open vocabulary. The constants are the values the registry
// uses by default; any other non-empty label is accepted unless a transition
// table says otherwise.
type Status string

const (
	StatusRegistered         Status = "Registered"
	StatusUnderInvestigation Status = "Under Investigation"
	StatusChargeSheetFiled   Status = "Charge Sheet Filed"
	StatusClosed             Status = "Closed"
)

// Priority is an open vocabulary, like Status.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

const maxLabelLength = 64

func parseLabel(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, field+" must not be empty")
	}
	if len(s) > maxLabelLength {
		return "", dErrors.New(dErrors.CodeValidation, field+" must be 64 characters or less")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeValidation, field+" contains control characters")
		}
	}
	return s, nil
}

func ParseStatus(s string) (Status, error) {
	v, err := parseLabel("status", s)
	return Status(v), err
}

func ParsePriority(s string) (Priority, error) {
	v, err := parseLabel("priority", s)
	return Priority(v), err
}

// Case is an FIR case file. FIRNo and StationID never change after creation.
type Case struct {
	ID               id.CaseID     `json:"id"`
	FIRNo            string        `json:"fir_no"`
	StationID        id.StationID  `json:"station_id"`
	OfficerID        *id.OfficerID `json:"officer_id,omitempty"`
	CrimeType        string        `json:"crime_type"`
	CrimeSection     string        `json:"crime_section,omitempty"`
	Status           Status        `json:"case_status"`
	Priority         Priority      `json:"case_priority"`
	Summary          string        `json:"summary"`
	IncidentDateTime *time.Time    `json:"incident_date_time,omitempty"`
	IncidentLocation string        `json:"incident_location,omitempty"`
	IncidentDistrict string        `json:"incident_district,omitempty"`
	FIRDateTime      time.Time     `json:"fir_date_time"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ListFilter narrows a station-scoped listing. A nil Station lists every station.
type ListFilter struct {
	Station *id.StationID
	Status  string
	Limit   int
}

// Stats are case counts for one station, or for all stations.
type Stats struct {
	Total       int            `json:"total_cases"`
	ByStatus    map[string]int `json:"cases_by_status"`
	ByPriority  map[string]int `json:"cases_by_priority"`
	ByCrimeType map[string]int `json:"cases_by_crime_type"`
}

func NewStats() *Stats {
	return &Stats{
		ByStatus:    map[string]int{},
		ByPriority:  map[string]int{},
		ByCrimeType: map[string]int{},
	}
}
