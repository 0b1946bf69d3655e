package handler

import (
	"strings"
	"time"

	"firledger/internal/cases/models"
	"firledger/internal/cases/service"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

// CreateCaseRequest is the registration payload. station_id is only
// meaningful for Admins; other actors register for their own station.
type CreateCaseRequest struct {
	FIRNo            string     `json:"fir_no"`
	StationID        string     `json:"station_id"`
	OfficerID        string     `json:"officer_id"`
	CrimeType        string     `json:"crime_type"`
	CrimeSection     string     `json:"crime_section"`
	CaseStatus       string     `json:"case_status"`
	CasePriority     string     `json:"case_priority"`
	Summary          string     `json:"summary"`
	IncidentDateTime *time.Time `json:"incident_date_time"`
	IncidentLocation string     `json:"incident_location"`
	IncidentDistrict string     `json:"incident_district"`
	FIRDateTime      *time.Time `json:"fir_date_time"`

	stationID *id.StationID
	officerID *id.OfficerID
}

func (r *CreateCaseRequest) Normalize() {
	r.FIRNo = strings.TrimSpace(r.FIRNo)
	r.StationID = strings.TrimSpace(r.StationID)
	r.OfficerID = strings.TrimSpace(r.OfficerID)
	r.CrimeType = strings.TrimSpace(r.CrimeType)
}

func (r *CreateCaseRequest) Validate() error {
	if r.CrimeType == "" {
		return dErrors.New(dErrors.CodeValidation, "crime type is required")
	}
	if r.StationID != "" {
		s, err := id.ParseStationID(r.StationID)
		if err != nil {
			return err
		}
		r.stationID = &s
	}
	if r.OfficerID != "" {
		o, err := id.ParseOfficerID(r.OfficerID)
		if err != nil {
			return err
		}
		r.officerID = &o
	}
	return nil
}

func (r *CreateCaseRequest) toService() service.CreateRequest {
	return service.CreateRequest{
		FIRNo:            r.FIRNo,
		StationID:        r.stationID,
		OfficerID:        r.officerID,
		CrimeType:        r.CrimeType,
		CrimeSection:     r.CrimeSection,
		Status:           r.CaseStatus,
		Priority:         r.CasePriority,
		Summary:          r.Summary,
		IncidentDateTime: r.IncidentDateTime,
		IncidentLocation: r.IncidentLocation,
		IncidentDistrict: r.IncidentDistrict,
		FIRDateTime:      r.FIRDateTime,
	}
}

// UpdateCaseRequest is a merge-patch. Omitted or null fields are untouched;
// "summary": "" clears the summary.
type UpdateCaseRequest struct {
	CaseStatus        models.Optional[string] `json:"case_status"`
	CasePriority      models.Optional[string] `json:"case_priority"`
	Summary           models.Optional[string] `json:"summary"`
	ActionType        string                  `json:"action_type"`
	ActionDescription string                  `json:"action_description"`
}

func (r *UpdateCaseRequest) Normalize() {
	r.ActionType = strings.TrimSpace(r.ActionType)
	r.ActionDescription = strings.TrimSpace(r.ActionDescription)
}

func (r *UpdateCaseRequest) Validate() error {
	if r.ActionType == "" && r.ActionDescription != "" {
		return dErrors.New(dErrors.CodeValidation, "action type is required with an action description")
	}
	return nil
}

func (r *UpdateCaseRequest) toPatch() models.Patch {
	p := models.Patch{
		Status:   r.CaseStatus,
		Priority: r.CasePriority,
		Summary:  r.Summary,
	}
	if r.ActionType != "" {
		p.Action = &models.CustomAction{Type: r.ActionType, Description: r.ActionDescription}
	}
	return p
}
