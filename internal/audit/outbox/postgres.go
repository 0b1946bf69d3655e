package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	txcontext "firledger/pkg/platform/tx"
)

// PostgresStore claims audit_outbox rows with FOR UPDATE SKIP LOCKED so
// several relays can run side by side.
type PostgresStore struct {
	db     *sql.DB
	runner *txcontext.PostgresRunner
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, runner: txcontext.NewPostgres(db, 0)}
}

func (s *PostgresStore) ProcessBatch(ctx context.Context, limit int, fn func(ctx context.Context, msgs []Message) error) (int, error) {
	var n int
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		rows, err := exec.QueryContext(ctx, `
			SELECT id, event_id, case_id, payload
			FROM audit_outbox
			WHERE published_at IS NULL
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		var msgs []Message
		for rows.Next() {
			var m Message
			if err := rows.Scan(&m.ID, &m.EventID, &m.CaseID, &m.Payload); err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox row: %w", err)
			}
			msgs = append(msgs, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox rows: %w", err)
		}
		if len(msgs) == 0 {
			return nil
		}

		if err := fn(ctx, msgs); err != nil {
			return err
		}

		ids := make([]int64, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		if _, err := exec.ExecContext(ctx,
			`UPDATE audit_outbox SET published_at = now() WHERE id = ANY($1)`,
			pq.Array(ids),
		); err != nil {
			return fmt.Errorf("mark outbox rows published: %w", err)
		}
		n = len(msgs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
