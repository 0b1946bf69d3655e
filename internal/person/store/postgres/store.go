package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"firledger/internal/person/models"
	pg "firledger/internal/platform/postgres"
	id "firledger/pkg/domain"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
)

// Store persists the person directory in Postgres.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const personColumns = `id, first_name, middle_name, last_name, national_id, gender, contact_number, created_at`

func (s *Store) Create(ctx context.Context, p *models.Person) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO persons (`+personColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(p.ID), p.FirstName, p.MiddleName, p.LastName, p.NationalID, p.Gender, p.ContactNumber, p.CreatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`, uuid.UUID(personID))
	return scanPerson(row)
}

func (s *Store) FindByNationalID(ctx context.Context, nationalID string) (*models.Person, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE national_id = $1`, nationalID)
	return scanPerson(row)
}

func (s *Store) Search(ctx context.Context, q string, limit int) ([]*models.Person, error) {
	var (
		rows *sql.Rows
		err  error
	)
	exec := txcontext.Executor(ctx, s.db)
	if q == "" {
		rows, err = exec.QueryContext(ctx,
			`SELECT `+personColumns+` FROM persons ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		term := "%" + escapeLike(q) + "%"
		rows, err = exec.QueryContext(ctx, `
			SELECT `+personColumns+`
			FROM persons
			WHERE first_name ILIKE $1
			   OR last_name ILIKE $1
			   OR middle_name ILIKE $1
			   OR national_id ILIKE $1
			   OR TRIM(CONCAT(first_name, ' ', last_name)) ILIKE $1
			   OR TRIM(CONCAT(first_name, ' ', NULLIF(middle_name, '') || ' ', last_name)) ILIKE $1
			ORDER BY first_name ASC, last_name ASC
			LIMIT $2
		`, term, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search persons: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (*models.Person, error) {
	var (
		p        models.Person
		personID uuid.UUID
	)
	err := row.Scan(&personID, &p.FirstName, &p.MiddleName, &p.LastName, &p.NationalID, &p.Gender, &p.ContactNumber, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	p.ID = id.PersonID(personID)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
