package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"firledger/internal/access"
	auditmodels "firledger/internal/audit/models"
	"firledger/internal/cases/models"
	"firledger/internal/platform/tracing"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/requestcontext"
)

const maxActionDescription = 1000

// Update applies a merge-patch to the case and appends one tracking record per
// changed field, all in one transaction holding the case row lock.
//
// A custom action never replaces the field-diff records: when a field changed
// its description is appended to every field record, and when nothing
// changed it is recorded as a standalone event with its own action type.
func (s *Service) Update(ctx context.Context, caseID id.CaseID, patch models.Patch, actor access.Actor) (*models.Case, error) {
	ctx, span := tracing.Start(ctx, tracerScope, "cases.Update", attribute.String("case_id", caseID.String()))
	c, err := s.update(ctx, caseID, patch, actor)
	tracing.End(span, err)
	return c, err
}

type parsedPatch struct {
	status   *models.Status
	priority *models.Priority
	summary  *string
	action   *parsedAction
}

type parsedAction struct {
	action      auditmodels.ActionType
	note        string
	description string
}

func parsePatch(patch models.Patch) (parsedPatch, error) {
	var p parsedPatch
	if patch.IsEmpty() {
		return p, dErrors.New(dErrors.CodeValidation, "no changes supplied")
	}
	if patch.Status.Set {
		st, err := models.ParseStatus(patch.Status.Value)
		if err != nil {
			return p, err
		}
		p.status = &st
	}
	if patch.Priority.Set {
		pr, err := models.ParsePriority(patch.Priority.Value)
		if err != nil {
			return p, err
		}
		p.priority = &pr
	}
	if patch.Summary.Set {
		sum := strings.TrimSpace(patch.Summary.Value)
		p.summary = &sum
	}
	if patch.Action != nil {
		action, note, err := auditmodels.ParseActionType(patch.Action.Type)
		if err != nil {
			return p, err
		}
		if action.Derived() {
			return p, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("action type %q is recorded automatically and cannot be supplied", action))
		}
		desc := strings.TrimSpace(patch.Action.Description)
		if len(desc) > maxActionDescription {
			return p, dErrors.New(dErrors.CodeValidation, "action description must be 1000 characters or less")
		}
		p.action = &parsedAction{action: action, note: note, description: desc}
	}
	return p, nil
}

func (s *Service) update(ctx context.Context, caseID id.CaseID, patch models.Patch, actor access.Actor) (*models.Case, error) {
	start := time.Now()
	p, err := parsePatch(patch)
	if err != nil {
		return nil, err
	}

	var (
		updated *models.Case
		changes []models.Change
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.store.LockForUpdate(ctx, caseID)
		if err != nil {
			return wrapCaseErr(err)
		}
		if err := s.guard.Require(ctx, actor, c.StationID, access.CasesUpdate); err != nil {
			return err
		}

		changes = models.Diff(c, p.status, p.priority, p.summary)
		if err := s.transitions.Check(changes); err != nil {
			return err
		}

		if len(changes) > 0 {
			c.Apply(changes)
			c.UpdatedAt = requestcontext.Now(ctx).UTC()
			if err := s.store.Update(ctx, c); err != nil {
				return wrapCaseErr(err)
			}
		}

		for _, entry := range trackingEntries(c.ID, changes, p.action, actor) {
			if _, err := s.auditor.Append(ctx, entry); err != nil {
				return err
			}
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		for _, ch := range changes {
			s.metrics.IncrementFieldChange(string(ch.Field))
		}
		s.metrics.ObserveUpdate(start)
	}
	s.logger.InfoContext(ctx, "case updated",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", caseID,
		"changed_fields", len(changes),
		"custom_action", p.action != nil,
		"user_id", actor.UserID,
	)
	return updated, nil
}

// trackingEntries builds the records for one update, in field order.
func trackingEntries(caseID id.CaseID, changes []models.Change, custom *parsedAction, actor access.Actor) []auditmodels.Entry {
	if len(changes) == 0 {
		if custom == nil {
			return nil
		}
		desc := custom.description
		if desc == "" {
			desc = custom.note
		}
		if desc == "" {
			desc = string(custom.action)
		}
		return []auditmodels.Entry{{
			CaseID:      caseID,
			Action:      custom.action,
			Note:        custom.note,
			Description: desc,
			PerformedBy: actor.UserID,
		}}
	}

	entries := make([]auditmodels.Entry, 0, len(changes))
	for _, ch := range changes {
		e := auditmodels.Entry{CaseID: caseID, PerformedBy: actor.UserID}
		switch ch.Field {
		case models.FieldStatus:
			e.Action = auditmodels.ActionStatusChange
			e.Description = fmt.Sprintf("Case status updated from %s to %s", ch.Old, ch.New)
			e.OldValue, e.NewValue = auditmodels.StringPtr(ch.Old), auditmodels.StringPtr(ch.New)
		case models.FieldPriority:
			e.Action = auditmodels.ActionPriorityChange
			e.Description = fmt.Sprintf("Case priority updated from %s to %s", ch.Old, ch.New)
			e.OldValue, e.NewValue = auditmodels.StringPtr(ch.Old), auditmodels.StringPtr(ch.New)
		case models.FieldSummary:
			e.Action = auditmodels.ActionDescriptionUpdate
			e.Description = "Case description/summary was updated"
			if ch.New == "" {
				e.Description = "Case description/summary was cleared"
			}
		}
		if custom != nil && custom.description != "" {
			e.Description += "; " + custom.description
		}
		entries = append(entries, e)
	}
	return entries
}
