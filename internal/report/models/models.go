// Package models defines the assembled case report.
package models

import (
	"time"

	auditmodels "firledger/internal/audit/models"
	linkmodels "firledger/internal/caselink/models"
	casemodels "firledger/internal/cases/models"
	statementmodels "firledger/internal/statement/models"
)

// CaseReport is a read-only snapshot of a case and everything attached to it.
// Persons are grouped primary first then by role, oldest link first within a
// role; supplementary statements and the trail are chronological.
type CaseReport struct {
	GeneratedAt   time.Time                           `json:"generated_at"`
	Case          *casemodels.Case                    `json:"case"`
	Persons       []linkmodels.LinkedPerson           `json:"persons"`
	Supplementary []statementmodels.SupplementaryView `json:"supplementary_statements"`
	Trail         []auditmodels.Event                 `json:"tracking"`
}
