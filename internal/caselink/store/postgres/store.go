package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"firledger/internal/caselink/models"
	pg "firledger/internal/platform/postgres"
	id "firledger/pkg/domain"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
)

const uniqueCasePerson = "case_persons_case_id_person_id_key"

// Store persists case_persons rows. LockSubject must run inside a transaction.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const linkOrder = `cp.is_primary DESC, cp.role ASC, cp.added_at DESC, cp.id ASC`

const subjectQuery = `
	SELECT cp.id, cp.case_id, cp.person_id, cp.role, cp.is_primary, cp.added_at,
	       p.first_name, p.last_name
	FROM case_persons cp
	JOIN persons p ON p.id = cp.person_id`

// Insert writes the link; added_at is assigned by the database.
func (s *Store) Insert(ctx context.Context, link *models.Link) error {
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO case_persons (id, case_id, person_id, role, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING added_at
	`, uuid.UUID(link.ID), uuid.UUID(link.CaseID), uuid.UUID(link.PersonID), string(link.Role), link.IsPrimary,
	).Scan(&link.AddedAt)
	if err != nil {
		if pg.IsUniqueViolation(err, uniqueCasePerson) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert case person: %w", err)
	}
	link.AddedAt = link.AddedAt.UTC()
	return nil
}

func (s *Store) FindByCaseAndPerson(ctx context.Context, caseID id.CaseID, personID id.PersonID) (*models.Link, error) {
	var (
		link             models.Link
		linkID, cID, pID uuid.UUID
		role             string
	)
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, case_id, person_id, role, is_primary, added_at
		FROM case_persons
		WHERE case_id = $1 AND person_id = $2
	`, uuid.UUID(caseID), uuid.UUID(personID)).Scan(&linkID, &cID, &pID, &role, &link.IsPrimary, &link.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find case person: %w", err)
	}
	link.ID, link.CaseID, link.PersonID = id.LinkID(linkID), id.CaseID(cID), id.PersonID(pID)
	link.Role = models.Role(role)
	link.AddedAt = link.AddedAt.UTC()
	return &link, nil
}

func (s *Store) GetSubject(ctx context.Context, caseID id.CaseID, linkID id.LinkID) (*models.Subject, error) {
	return s.subject(ctx, subjectQuery+` WHERE cp.id = $1 AND cp.case_id = $2`, caseID, linkID)
}

// LockSubject reads the link and holds its row lock for the enclosing transaction.
func (s *Store) LockSubject(ctx context.Context, caseID id.CaseID, linkID id.LinkID) (*models.Subject, error) {
	if _, ok := txcontext.From(ctx); !ok {
		return nil, fmt.Errorf("lock case person %s: no transaction in context", linkID)
	}
	return s.subject(ctx, subjectQuery+` WHERE cp.id = $1 AND cp.case_id = $2 FOR UPDATE OF cp`, caseID, linkID)
}

func (s *Store) subject(ctx context.Context, query string, caseID id.CaseID, linkID id.LinkID) (*models.Subject, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(linkID), uuid.UUID(caseID))
	subj, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load case person: %w", err)
	}
	return subj, nil
}

func (s *Store) ListSubjects(ctx context.Context, caseID id.CaseID) ([]models.Subject, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		subjectQuery+` WHERE cp.case_id = $1 ORDER BY `+linkOrder, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list case persons: %w", err)
	}
	defer rows.Close()

	out := make([]models.Subject, 0)
	for rows.Next() {
		subj, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case person: %w", err)
		}
		out = append(out, *subj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case persons: %w", err)
	}
	return out, nil
}

func (s *Store) ListByCase(ctx context.Context, caseID id.CaseID) ([]models.LinkedPerson, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT cp.id, cp.case_id, cp.person_id, cp.role, cp.is_primary, cp.added_at,
		       p.first_name, p.middle_name, p.last_name, p.gender, p.contact_number, p.national_id
		FROM case_persons cp
		JOIN persons p ON p.id = cp.person_id
		WHERE cp.case_id = $1
		ORDER BY `+linkOrder, uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list linked persons: %w", err)
	}
	defer rows.Close()

	out := make([]models.LinkedPerson, 0)
	for rows.Next() {
		var (
			lp               models.LinkedPerson
			linkID, cID, pID uuid.UUID
			role             string
			nationalID       sql.NullString
		)
		if err := rows.Scan(&linkID, &cID, &pID, &role, &lp.IsPrimary, &lp.AddedAt,
			&lp.FirstName, &lp.MiddleName, &lp.LastName, &lp.Gender, &lp.ContactNumber, &nationalID); err != nil {
			return nil, fmt.Errorf("scan linked person: %w", err)
		}
		lp.ID, lp.CaseID, lp.PersonID = id.LinkID(linkID), id.CaseID(cID), id.PersonID(pID)
		lp.Role = models.Role(role)
		lp.AddedAt = lp.AddedAt.UTC()
		if nationalID.Valid {
			lp.NationalID = &nationalID.String
		}
		out = append(out, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate linked persons: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubject(row scanner) (*models.Subject, error) {
	var (
		subj             models.Subject
		linkID, cID, pID uuid.UUID
		role             string
	)
	if err := row.Scan(&linkID, &cID, &pID, &role, &subj.IsPrimary, &subj.AddedAt,
		&subj.FirstName, &subj.LastName); err != nil {
		return nil, err
	}
	subj.ID, subj.CaseID, subj.PersonID = id.LinkID(linkID), id.CaseID(cID), id.PersonID(pID)
	subj.Role = models.Role(role)
	subj.AddedAt = subj.AddedAt.UTC()
	return &subj, nil
}
