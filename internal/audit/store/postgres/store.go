package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"firledger/internal/audit/models"
	id "firledger/pkg/domain"
	txcontext "firledger/pkg/platform/tx"
)

// NotifyChannel is the LISTEN channel woken after each outbox insert.
const NotifyChannel = "audit_outbox"

// Store persists tracking records in fir_track_records. When the outbox is
// enabled every append also writes an audit_outbox row in the same
// transaction, which the relay later publishes to Kafka.
type Store struct {
	db     *sql.DB
	outbox bool
}

type Option func(*Store)

// WithOutbox enables the transactional outbox write.
func WithOutbox(enabled bool) Option {
	return func(s *Store) { s.outbox = enabled }
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OutboxPayload is the JSON body published for each event.
type OutboxPayload struct {
	EventID     int64   `json:"event_id"`
	CaseID      string  `json:"case_id"`
	ActionType  string  `json:"action_type"`
	ActionNote  string  `json:"action_note,omitempty"`
	Description string  `json:"action_description"`
	OldValue    *string `json:"old_value,omitempty"`
	NewValue    *string `json:"new_value,omitempty"`
	PerformedBy string  `json:"performed_by"`
	Timestamp   string  `json:"track_date_time"`
}

// Append inserts the event. Identity and timestamp come from the database
// (bigserial and clock_timestamp()).
func (s *Store) Append(ctx context.Context, entry models.Entry) (models.Event, error) {
	if s.outbox {
		if _, inTx := txcontext.From(ctx); !inTx {
			var ev models.Event
			err := txcontext.NewPostgres(s.db, 0).RunInTx(ctx, func(ctx context.Context) error {
				var err error
				ev, err = s.append(ctx, entry)
				return err
			})
			return ev, err
		}
	}
	return s.append(ctx, entry)
}

func (s *Store) append(ctx context.Context, entry models.Entry) (models.Event, error) {
	exec := txcontext.Executor(ctx, s.db)

	query := `
		INSERT INTO fir_track_records (
			case_id, action_type, action_note, action_description,
			old_status, new_status, performed_by, client_ip, client_agent
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		RETURNING id, track_date_time
	`
	ev := models.Event{
		CaseID:      entry.CaseID,
		Action:      entry.Action,
		Note:        entry.Note,
		Description: entry.Description,
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		PerformedBy: entry.PerformedBy,
		ClientIP:    entry.ClientIP,
		ClientAgent: entry.ClientAgent,
	}
	err := exec.QueryRowContext(ctx, query,
		uuid.UUID(entry.CaseID),
		string(entry.Action),
		entry.Note,
		entry.Description,
		entry.OldValue,
		entry.NewValue,
		uuid.UUID(entry.PerformedBy),
		entry.ClientIP,
		entry.ClientAgent,
	).Scan(&ev.ID, &ev.Timestamp)
	if err != nil {
		return models.Event{}, fmt.Errorf("insert track record: %w", err)
	}
	ev.Timestamp = ev.Timestamp.UTC()

	if !s.outbox {
		return ev, nil
	}

	payload, err := json.Marshal(toPayload(ev))
	if err != nil {
		return models.Event{}, fmt.Errorf("marshal outbox payload: %w", err)
	}
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO audit_outbox (event_id, case_id, payload) VALUES ($1, $2, $3)`,
		int64(ev.ID), uuid.UUID(ev.CaseID), payload,
	); err != nil {
		return models.Event{}, fmt.Errorf("insert outbox entry: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, ev.CaseID.String()); err != nil {
		return models.Event{}, fmt.Errorf("notify outbox: %w", err)
	}
	return ev, nil
}

func toPayload(ev models.Event) OutboxPayload {
	return OutboxPayload{
		EventID:     int64(ev.ID),
		CaseID:      ev.CaseID.String(),
		ActionType:  string(ev.Action),
		ActionNote:  ev.Note,
		Description: ev.Description,
		OldValue:    ev.OldValue,
		NewValue:    ev.NewValue,
		PerformedBy: ev.PerformedBy.String(),
		Timestamp:   ev.Timestamp.Format(time.RFC3339Nano),
	}
}

// ListByCase returns the case history ordered by (track_date_time, id).
func (s *Store) ListByCase(ctx context.Context, caseID id.CaseID, order models.Order) ([]models.Event, error) {
	query := `
		SELECT id, case_id, action_type, COALESCE(action_note, ''), action_description,
			   old_status, new_status, performed_by, client_ip, client_agent, track_date_time
		FROM fir_track_records
		WHERE case_id = $1
		ORDER BY track_date_time DESC, id DESC
	`
	if order == models.Chronological {
		query = `
		SELECT id, case_id, action_type, COALESCE(action_note, ''), action_description,
			   old_status, new_status, performed_by, client_ip, client_agent, track_date_time
		FROM fir_track_records
		WHERE case_id = $1
		ORDER BY track_date_time ASC, id ASC
	`
	}

	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("query track records: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			ev          models.Event
			caseUUID    uuid.UUID
			performedBy uuid.UUID
			action      string
		)
		if err := rows.Scan(
			&ev.ID,
			&caseUUID,
			&action,
			&ev.Note,
			&ev.Description,
			&ev.OldValue,
			&ev.NewValue,
			&performedBy,
			&ev.ClientIP,
			&ev.ClientAgent,
			&ev.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan track record: %w", err)
		}
		ev.CaseID = id.CaseID(caseUUID)
		ev.PerformedBy = id.UserID(performedBy)
		ev.Action = models.ActionType(action)
		ev.Timestamp = ev.Timestamp.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track records: %w", err)
	}
	return events, nil
}
