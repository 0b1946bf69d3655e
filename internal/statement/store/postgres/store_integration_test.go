//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"firledger/internal/statement/models"
	"firledger/internal/statement/store/postgres"
	id "firledger/pkg/domain"
	txcontext "firledger/pkg/platform/tx"
	"firledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	runner   *txcontext.PostgresRunner
	user     id.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.runner = txcontext.NewPostgres(s.postgres.DB, 5*time.Second)
	s.user = id.UserID(uuid.New())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

// seedLink writes the case, person and case_persons rows a statement hangs off.
func (s *PostgresStoreSuite) seedLink() id.LinkID {
	ctx := context.Background()
	caseID, personID, linkID := uuid.New(), uuid.New(), uuid.New()
	_, err := s.postgres.Exec(ctx, `
		INSERT INTO cases (case_id, fir_no, station_id, case_status, case_priority, fir_date_time)
		VALUES ($1, $2, $3, 'Registered', 'Medium', now())
	`, caseID, "FIR-"+caseID.String()[:8], uuid.New())
	s.Require().NoError(err)
	_, err = s.postgres.Exec(ctx, `INSERT INTO persons (id, first_name, last_name) VALUES ($1, 'Nima', 'Sherpa')`, personID)
	s.Require().NoError(err)
	_, err = s.postgres.Exec(ctx, `INSERT INTO case_persons (id, case_id, person_id, role) VALUES ($1, $2, $3, 'Witness')`, linkID, caseID, personID)
	s.Require().NoError(err)
	return id.LinkID(linkID)
}

func (s *PostgresStoreSuite) TestFragmentsKeepInsertionOrderWithinTransaction() {
	ctx := context.Background()
	linkID := s.seedLink()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for i, body := range []string{"first", "second", "third"} {
			source := models.SourceAppend
			if i == 0 {
				source = models.SourceLink
			}
			f := &models.Fragment{LinkID: linkID, Body: body, Source: source, RecordedBy: s.user}
			if err := s.store.InsertFragment(ctx, f); err != nil {
				return err
			}
			s.NotZero(f.ID)
			s.False(f.RecordedAt.IsZero())
		}
		return nil
	})
	s.Require().NoError(err)

	fragments, err := s.store.ListFragments(ctx, linkID)
	s.Require().NoError(err)
	s.Require().Len(fragments, 3)
	s.Equal("first", fragments[0].Body)
	s.Equal("third", fragments[2].Body)
	s.True(fragments[0].RecordedAt.Before(fragments[2].RecordedAt) || fragments[0].ID < fragments[2].ID)
}

func (s *PostgresStoreSuite) TestListFragmentsByLinksGroupsPerLink() {
	ctx := context.Background()
	a, b, empty := s.seedLink(), s.seedLink(), s.seedLink()
	for _, l := range []id.LinkID{a, a, b} {
		s.Require().NoError(s.store.InsertFragment(ctx, &models.Fragment{LinkID: l, Body: "x", Source: models.SourceAppend, RecordedBy: s.user}))
	}

	byLink, err := s.store.ListFragmentsByLinks(ctx, []id.LinkID{a, b, empty})
	s.Require().NoError(err)
	s.Len(byLink[a], 2)
	s.Len(byLink[b], 1)
	s.Empty(byLink[empty])

	none, err := s.store.ListFragments(ctx, empty)
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *PostgresStoreSuite) TestSupplementaryRoundTrip() {
	ctx := context.Background()
	linkID := s.seedLink()
	remarks := "follow-up interview"

	first := &models.Supplementary{ID: id.NewStatementID(), LinkID: linkID, Statement: "one", Remarks: &remarks, RecordedBy: s.user}
	s.Require().NoError(s.store.InsertSupplementary(ctx, first))
	second := &models.Supplementary{ID: id.NewStatementID(), LinkID: linkID, Statement: "two", RecordedBy: s.user}
	s.Require().NoError(s.store.InsertSupplementary(ctx, second))
	s.False(first.StatementDate.IsZero())

	got, err := s.store.ListSupplementaryByLinks(ctx, []id.LinkID{linkID})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("one", got[0].Statement)
	s.Require().NotNil(got[0].Remarks)
	s.Equal(remarks, *got[0].Remarks)
	s.Nil(got[1].Remarks)

	empty, err := s.store.ListSupplementaryByLinks(ctx, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}
