package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"firledger/internal/cases/models"
	pg "firledger/internal/platform/postgres"
	id "firledger/pkg/domain"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
)

// Store persists cases. LockForUpdate and LockStation must run inside a
// transaction so the row lock is held until commit.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const caseColumns = `case_id, fir_no, station_id, officer_id, crime_type, crime_section,
	case_status, case_priority, summary, incident_date_time, incident_location,
	incident_district, fir_date_time, created_at, updated_at`

// Create inserts c. A taken FIR number yields sentinel.ErrAlreadyUsed
// without aborting the surrounding transaction, so a caller may retry with
// another number in the same unit of work.
func (s *Store) Create(ctx context.Context, c *models.Case) error {
	var officer *uuid.UUID
	if c.OfficerID != nil {
		u := uuid.UUID(*c.OfficerID)
		officer = &u
	}
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (fir_no) DO NOTHING
	`,
		uuid.UUID(c.ID), c.FIRNo, uuid.UUID(c.StationID), officer, c.CrimeType, c.CrimeSection,
		string(c.Status), string(c.Priority), c.Summary, c.IncidentDateTime, c.IncidentLocation,
		c.IncidentDistrict, c.FIRDateTime, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if pg.IsUniqueViolation(err, "cases_fir_no_key") {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	return s.findOne(ctx, `SELECT `+caseColumns+` FROM cases WHERE case_id = $1`, uuid.UUID(caseID))
}

func (s *Store) FindByFIRNo(ctx context.Context, firNo string) (*models.Case, error) {
	return s.findOne(ctx, `SELECT `+caseColumns+` FROM cases WHERE fir_no = $1`, firNo)
}

// LockForUpdate reads the case and holds its row lock for the enclosing transaction.
func (s *Store) LockForUpdate(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	if _, ok := txcontext.From(ctx); !ok {
		return nil, fmt.Errorf("lock case %s: no transaction in context", caseID)
	}
	return s.findOne(ctx, `SELECT `+caseColumns+` FROM cases WHERE case_id = $1 FOR UPDATE`, uuid.UUID(caseID))
}

func (s *Store) StationOf(ctx context.Context, caseID id.CaseID) (id.StationID, error) {
	return s.station(ctx, `SELECT station_id FROM cases WHERE case_id = $1`, caseID)
}

// LockStation locks the case row and returns its owning station, for
// composites that mutate rows attached to the case.
func (s *Store) LockStation(ctx context.Context, caseID id.CaseID) (id.StationID, error) {
	if _, ok := txcontext.From(ctx); !ok {
		return id.StationID{}, fmt.Errorf("lock case %s: no transaction in context", caseID)
	}
	return s.station(ctx, `SELECT station_id FROM cases WHERE case_id = $1 FOR UPDATE`, caseID)
}

func (s *Store) station(ctx context.Context, query string, caseID id.CaseID) (id.StationID, error) {
	var station uuid.UUID
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(caseID)).Scan(&station)
	if errors.Is(err, sql.ErrNoRows) {
		return id.StationID{}, sentinel.ErrNotFound
	}
	if err != nil {
		return id.StationID{}, fmt.Errorf("load case station: %w", err)
	}
	return id.StationID(station), nil
}

func (s *Store) Update(ctx context.Context, c *models.Case) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE cases
		SET case_status = $1, case_priority = $2, summary = $3, updated_at = $4
		WHERE case_id = $5
	`, string(c.Status), string(c.Priority), c.Summary, c.UpdatedAt, uuid.UUID(c.ID))
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter models.ListFilter) ([]*models.Case, error) {
	var station *uuid.UUID
	if filter.Station != nil {
		u := uuid.UUID(*filter.Station)
		station = &u
	}
	limit := sql.NullInt64{Int64: int64(filter.Limit), Valid: filter.Limit > 0}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT `+caseColumns+`
		FROM cases
		WHERE ($1::uuid IS NULL OR station_id = $1)
		  AND ($2 = '' OR case_status = $2)
		ORDER BY created_at DESC, case_id DESC
		LIMIT $3
	`, station, filter.Status, limit)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

// Stats groups by status, priority and crime type in one pass using GROUPING SETS.
func (s *Store) Stats(ctx context.Context, station *id.StationID) (*models.Stats, error) {
	var stationArg *uuid.UUID
	if station != nil {
		u := uuid.UUID(*station)
		stationArg = &u
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT GROUPING(case_status), GROUPING(case_priority), GROUPING(crime_type),
		       COALESCE(case_status, ''), COALESCE(case_priority, ''), COALESCE(crime_type, ''),
		       COUNT(*)
		FROM cases
		WHERE ($1::uuid IS NULL OR station_id = $1)
		GROUP BY GROUPING SETS ((case_status), (case_priority), (crime_type), ())
	`, stationArg)
	if err != nil {
		return nil, fmt.Errorf("case stats: %w", err)
	}
	defer rows.Close()

	stats := models.NewStats()
	for rows.Next() {
		var (
			gStatus, gPriority, gCrime int
			status, priority, crime    string
			count                      int
		)
		if err := rows.Scan(&gStatus, &gPriority, &gCrime, &status, &priority, &crime, &count); err != nil {
			return nil, fmt.Errorf("scan case stats: %w", err)
		}
		switch {
		case gStatus == 0:
			stats.ByStatus[status] = count
		case gPriority == 0:
			stats.ByPriority[priority] = count
		case gCrime == 0:
			stats.ByCrimeType[crime] = count
		default:
			stats.Total = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case stats: %w", err)
	}
	return stats, nil
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*models.Case, error) {
	return scanCase(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, arg))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (*models.Case, error) {
	var (
		c                 models.Case
		caseID, stationID uuid.UUID
		officerID         uuid.NullUUID
		status, priority  string
		incident          sql.NullTime
	)
	err := row.Scan(
		&caseID, &c.FIRNo, &stationID, &officerID, &c.CrimeType, &c.CrimeSection,
		&status, &priority, &c.Summary, &incident, &c.IncidentLocation,
		&c.IncidentDistrict, &c.FIRDateTime, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	c.ID = id.CaseID(caseID)
	c.StationID = id.StationID(stationID)
	if officerID.Valid {
		o := id.OfficerID(officerID.UUID)
		c.OfficerID = &o
	}
	c.Status = models.Status(status)
	c.Priority = models.Priority(priority)
	if incident.Valid {
		t := incident.Time.UTC()
		c.IncidentDateTime = &t
	}
	c.FIRDateTime = c.FIRDateTime.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
