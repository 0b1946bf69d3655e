//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"firledger/internal/cases/models"
	"firledger/internal/cases/store/postgres"
	id "firledger/pkg/domain"
	"firledger/pkg/platform/sentinel"
	txcontext "firledger/pkg/platform/tx"
	"firledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	runner   *txcontext.PostgresRunner
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.runner = txcontext.NewPostgres(s.postgres.DB, 5*time.Second)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func newCase(station id.StationID, firNo, crimeType string, status models.Status) *models.Case {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Case{
		ID:          id.NewCaseID(),
		FIRNo:       firNo,
		StationID:   station,
		CrimeType:   crimeType,
		Status:      status,
		Priority:    models.PriorityMedium,
		FIRDateTime: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	station := id.StationID(uuid.New())
	c := newCase(station, "FIR-1", "Theft", models.StatusRegistered)
	s.Require().NoError(s.store.Create(ctx, c))

	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.FIRNo, got.FIRNo)
	s.Equal(station, got.StationID)

	byFIR, err := s.store.FindByFIRNo(ctx, "FIR-1")
	s.Require().NoError(err)
	s.Equal(c.ID, byFIR.ID)

	_, err = s.store.FindByID(ctx, id.NewCaseID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestDuplicateFIRNoIsAlreadyUsed() {
	ctx := context.Background()
	station := id.StationID(uuid.New())
	s.Require().NoError(s.store.Create(ctx, newCase(station, "FIR-DUP", "Theft", models.StatusRegistered)))

	err := s.store.Create(ctx, newCase(station, "FIR-DUP", "Fraud", models.StatusRegistered))
	s.True(errors.Is(err, sentinel.ErrAlreadyUsed))
}

func (s *PostgresStoreSuite) TestDuplicateFIRNoKeepsTransactionUsable() {
	ctx := context.Background()
	station := id.StationID(uuid.New())
	s.Require().NoError(s.store.Create(ctx, newCase(station, "FIR-TAKEN", "Theft", models.StatusRegistered)))

	retry := newCase(station, "FIR-TAKEN", "Fraud", models.StatusRegistered)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, retry); !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return fmt.Errorf("expected ErrAlreadyUsed, got %v", err)
		}
		retry.FIRNo = "FIR-FRESH"
		return s.store.Create(ctx, retry)
	})
	s.Require().NoError(err)

	got, err := s.store.FindByFIRNo(ctx, "FIR-FRESH")
	s.Require().NoError(err)
	s.Equal(retry.ID, got.ID)
}

func (s *PostgresStoreSuite) TestLocksRequireTransaction() {
	ctx := context.Background()
	c := newCase(id.StationID(uuid.New()), "FIR-LOCK", "Theft", models.StatusRegistered)
	s.Require().NoError(s.store.Create(ctx, c))

	_, err := s.store.LockStation(ctx, c.ID)
	s.Error(err)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		station, err := s.store.LockStation(ctx, c.ID)
		if err != nil {
			return err
		}
		s.Equal(c.StationID, station)
		locked, err := s.store.LockForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		locked.Summary = "updated under lock"
		return s.store.Update(ctx, locked)
	})
	s.Require().NoError(err)

	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("updated under lock", got.Summary)
}

func (s *PostgresStoreSuite) TestListAndStatsScopeByStation() {
	ctx := context.Background()
	mine, other := id.StationID(uuid.New()), id.StationID(uuid.New())
	s.Require().NoError(s.store.Create(ctx, newCase(mine, "FIR-A", "Theft", models.StatusRegistered)))
	s.Require().NoError(s.store.Create(ctx, newCase(mine, "FIR-B", "Fraud", models.StatusUnderInvestigation)))
	s.Require().NoError(s.store.Create(ctx, newCase(other, "FIR-C", "Theft", models.StatusRegistered)))

	scoped, err := s.store.List(ctx, models.ListFilter{Station: &mine})
	s.Require().NoError(err)
	s.Len(scoped, 2)

	filtered, err := s.store.List(ctx, models.ListFilter{Status: string(models.StatusRegistered), Limit: 10})
	s.Require().NoError(err)
	s.Len(filtered, 2)

	stats, err := s.store.Stats(ctx, &mine)
	s.Require().NoError(err)
	s.Equal(2, stats.Total)
	s.Equal(1, stats.ByCrimeType["Theft"])
	s.Equal(1, stats.ByStatus[string(models.StatusUnderInvestigation)])

	all, err := s.store.Stats(ctx, nil)
	s.Require().NoError(err)
	s.Equal(3, all.Total)
}
