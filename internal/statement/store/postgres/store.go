package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"firledger/internal/statement/models"
	id "firledger/pkg/domain"
	txcontext "firledger/pkg/platform/tx"
)

// Store persists statement_entries and supplementary_statements. Both tables
// are insert-only; nothing here issues UPDATE or DELETE.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertFragment assigns ID and RecordedAt from the database.
func (s *Store) InsertFragment(ctx context.Context, f *models.Fragment) error {
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO statement_entries (case_person_id, body, source, recorded_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, recorded_at
	`, uuid.UUID(f.LinkID), f.Body, string(f.Source), uuid.UUID(f.RecordedBy)).Scan(&f.ID, &f.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert statement entry: %w", err)
	}
	f.RecordedAt = f.RecordedAt.UTC()
	return nil
}

func (s *Store) ListFragments(ctx context.Context, linkID id.LinkID) ([]models.Fragment, error) {
	byLink, err := s.ListFragmentsByLinks(ctx, []id.LinkID{linkID})
	if err != nil {
		return nil, err
	}
	if f := byLink[linkID]; f != nil {
		return f, nil
	}
	return []models.Fragment{}, nil
}

func (s *Store) ListFragmentsByLinks(ctx context.Context, linkIDs []id.LinkID) (map[id.LinkID][]models.Fragment, error) {
	out := make(map[id.LinkID][]models.Fragment)
	if len(linkIDs) == 0 {
		return out, nil
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT id, case_person_id, body, source, recorded_by, recorded_at
		FROM statement_entries
		WHERE case_person_id = ANY($1::uuid[])
		ORDER BY recorded_at, id
	`, pq.Array(linkStrings(linkIDs)))
	if err != nil {
		return nil, fmt.Errorf("list statement entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f              models.Fragment
			linkID, userID uuid.UUID
			source         string
		)
		if err := rows.Scan(&f.ID, &linkID, &f.Body, &source, &userID, &f.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan statement entry: %w", err)
		}
		f.LinkID = id.LinkID(linkID)
		f.RecordedBy = id.UserID(userID)
		f.Source = models.Source(source)
		f.RecordedAt = f.RecordedAt.UTC()
		out[f.LinkID] = append(out[f.LinkID], f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statement entries: %w", err)
	}
	return out, nil
}

// InsertSupplementary assigns StatementDate and CreatedAt from the database.
func (s *Store) InsertSupplementary(ctx context.Context, st *models.Supplementary) error {
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO supplementary_statements (id, case_person_id, statement, remarks, recorded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING statement_date, created_at
	`, uuid.UUID(st.ID), uuid.UUID(st.LinkID), st.Statement, st.Remarks, uuid.UUID(st.RecordedBy),
	).Scan(&st.StatementDate, &st.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert supplementary statement: %w", err)
	}
	st.StatementDate = st.StatementDate.UTC()
	st.CreatedAt = st.CreatedAt.UTC()
	return nil
}

func (s *Store) ListSupplementaryByLinks(ctx context.Context, linkIDs []id.LinkID) ([]models.Supplementary, error) {
	out := make([]models.Supplementary, 0)
	if len(linkIDs) == 0 {
		return out, nil
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT id, case_person_id, statement, statement_date, remarks, recorded_by, created_at
		FROM supplementary_statements
		WHERE case_person_id = ANY($1::uuid[])
		ORDER BY statement_date, id::text
	`, pq.Array(linkStrings(linkIDs)))
	if err != nil {
		return nil, fmt.Errorf("list supplementary statements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st                   models.Supplementary
			stID, linkID, userID uuid.UUID
			remarks              sql.NullString
		)
		if err := rows.Scan(&stID, &linkID, &st.Statement, &st.StatementDate, &remarks, &userID, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplementary statement: %w", err)
		}
		st.ID = id.StatementID(stID)
		st.LinkID = id.LinkID(linkID)
		st.RecordedBy = id.UserID(userID)
		st.StatementDate = st.StatementDate.UTC()
		st.CreatedAt = st.CreatedAt.UTC()
		if remarks.Valid {
			st.Remarks = &remarks.String
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supplementary statements: %w", err)
	}
	return out, nil
}

func linkStrings(ids []id.LinkID) []string {
	out := make([]string, len(ids))
	for i, l := range ids {
		out[i] = l.String()
	}
	return out
}
