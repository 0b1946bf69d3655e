package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"firledger/internal/access"
	auditmodels "firledger/internal/audit/models"
	auditservice "firledger/internal/audit/service"
	auditmemory "firledger/internal/audit/store/memory"
	linkmodels "firledger/internal/caselink/models"
	linkmemory "firledger/internal/caselink/store/memory"
	casemodels "firledger/internal/cases/models"
	casememory "firledger/internal/cases/store/memory"
	personmodels "firledger/internal/person/models"
	personmemory "firledger/internal/person/store/memory"
	"firledger/internal/statement/models"
	"firledger/internal/statement/store/memory"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	txcontext "firledger/pkg/platform/tx"
	"firledger/pkg/testutil"
)

type StatementServiceSuite struct {
	suite.Suite
	cases    *casememory.InMemoryStore
	persons  *personmemory.InMemoryStore
	links    *linkmemory.InMemoryStore
	store    *memory.InMemoryStore
	audit    *auditservice.Service
	runner   *txcontext.MemoryRunner
	svc      *Service
	caseA    id.CaseID
	caseB    id.CaseID
	officerA access.Actor
	officerB access.Actor
}

func TestStatementServiceSuite(t *testing.T) {
	suite.Run(t, new(StatementServiceSuite))
}

func (s *StatementServiceSuite) SetupTest() {
	s.cases = casememory.NewInMemoryStore()
	s.persons = personmemory.NewInMemoryStore()
	s.links = linkmemory.NewInMemoryStore(s.persons)
	s.store = memory.NewInMemoryStore()
	s.audit = auditservice.New(auditmemory.NewInMemoryStore(), s.cases)
	s.runner = txcontext.NewMemory()
	s.svc = New(s.store, s.links, s.cases, s.audit, s.runner,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	stationA := id.StationID(uuid.New())
	stationB := id.StationID(uuid.New())
	s.officerA = testutil.OfficerAt(stationA)
	s.officerB = testutil.OfficerAt(stationB)
	s.caseA = s.newCase(stationA)
	s.caseB = s.newCase(stationB)
}

func (s *StatementServiceSuite) newCase(station id.StationID) id.CaseID {
	now := time.Now().UTC()
	c := &casemodels.Case{
		ID: id.NewCaseID(), FIRNo: "FIR-" + uuid.NewString()[:8], StationID: station,
		Status: casemodels.StatusRegistered, Priority: casemodels.PriorityMedium,
		FIRDateTime: now, CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.cases.Create(context.Background(), c))
	return c.ID
}

// link attaches a new person to caseID, recording statement at link time when non-empty.
func (s *StatementServiceSuite) link(caseID id.CaseID, role linkmodels.Role, statement string) id.LinkID {
	ctx := context.Background()
	p, err := personmodels.NewPerson(id.NewPersonID(), "Asha", "", "Rao", "", "", "", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.persons.Create(ctx, p))
	l := &linkmodels.Link{ID: id.NewLinkID(), CaseID: caseID, PersonID: p.ID, Role: role}
	s.Require().NoError(s.links.Insert(ctx, l))
	if statement != "" {
		s.Require().NoError(s.svc.RecordAtLink(ctx, caseID, l.ID, statement, s.officerA))
	}
	return l.ID
}

func (s *StatementServiceSuite) events(caseID id.CaseID) []auditmodels.Event {
	events, err := s.audit.Query(context.Background(), caseID, auditmodels.Chronological)
	s.Require().NoError(err)
	return events
}

func (s *StatementServiceSuite) TestAppendInitialKeepsPriorContent() {
	linkID := s.link(s.caseA, linkmodels.RoleWitness, "I saw the incident.")

	st, err := s.svc.AppendInitial(context.Background(), s.caseA, linkID, "  It was raining. ", s.officerA)
	s.Require().NoError(err)
	s.Require().NotNil(st.Statement)

	parts := strings.Split(*st.Statement, models.Separator)
	s.Require().Len(parts, 2)
	s.Equal("I saw the incident.", parts[0])
	s.Regexp(`^\[\d{4}-\d{2}-\d{2}T[0-9:.]+Z\] It was raining\.$`, parts[1])
	s.Equal(2, st.Entries)

	events := s.events(s.caseA)
	s.Require().Len(events, 2)
	last := events[1]
	s.Equal(auditmodels.ActionAdditionalStatement, last.Action)
	s.True(strings.HasPrefix(last.Description, "Additional statement recorded for Witness: Asha Rao (Person ID: "))
}

func (s *StatementServiceSuite) TestAppendInitialWithoutPriorStatement() {
	linkID := s.link(s.caseA, linkmodels.RoleVictim, "")

	st, err := s.svc.AppendInitial(context.Background(), s.caseA, linkID, "first words", s.officerA)
	s.Require().NoError(err)
	s.Regexp(`^\[[^\]]+\] first words$`, *st.Statement)
}

func (s *StatementServiceSuite) TestConcurrentAppendsAllSurvive() {
	linkID := s.link(s.caseA, linkmodels.RoleWitness, "origin")
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.svc.AppendInitial(context.Background(), s.caseA, linkID, fmt.Sprintf("note-%02d", i), s.officerA)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	st, err := s.svc.GetInitial(context.Background(), s.caseA, linkID, s.officerA)
	s.Require().NoError(err)
	s.Equal(writers+1, st.Entries)
	s.True(strings.HasPrefix(*st.Statement, "origin"+models.Separator))
	for i := 0; i < writers; i++ {
		s.Contains(*st.Statement, fmt.Sprintf("] note-%02d", i))
	}
	s.Len(s.events(s.caseA), writers+1)
}

func (s *StatementServiceSuite) TestAppendInitialRejections() {
	linkA := s.link(s.caseA, linkmodels.RoleWitness, "")
	linkB := s.link(s.caseB, linkmodels.RoleWitness, "")
	ctx := context.Background()

	_, err := s.svc.AppendInitial(ctx, s.caseA, linkA, "   ", s.officerA)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.AppendInitial(ctx, s.caseA, linkB, "wrong case", s.officerA)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.AppendInitial(ctx, s.caseA, linkA, "foreign", s.officerB)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	st, err := s.svc.GetInitial(ctx, s.caseA, linkA, s.officerA)
	s.Require().NoError(err)
	s.Nil(st.Statement)
	s.Empty(s.events(s.caseA))
}

func (s *StatementServiceSuite) TestSupplementaryAppendAndOrder() {
	ctx := context.Background()
	linkID := s.link(s.caseA, linkmodels.RoleAccused, "")
	blank := "   "
	remarks := " recorded at hospital "

	first, err := s.svc.AppendSupplementary(ctx, s.caseA, linkID, "first", &blank, s.officerA)
	s.Require().NoError(err)
	s.Nil(first.Remarks)
	second, err := s.svc.AppendSupplementary(ctx, s.caseA, linkID, "second", &remarks, s.officerA)
	s.Require().NoError(err)
	s.Equal("recorded at hospital", *second.Remarks)

	desc, err := s.svc.ListSupplementary(ctx, s.caseA, auditmodels.ReverseChronological, s.officerA)
	s.Require().NoError(err)
	s.Require().Len(desc, 2)
	s.Equal(second.ID, desc[0].ID)
	s.Equal(linkmodels.RoleAccused, desc[0].Role)

	asc, err := s.svc.ListSupplementaryForLink(ctx, s.caseA, linkID, s.officerA)
	s.Require().NoError(err)
	s.Equal([]id.StatementID{first.ID, second.ID}, []id.StatementID{asc[0].ID, asc[1].ID})

	events := s.events(s.caseA)
	s.Require().Len(events, 2)
	s.Equal(auditmodels.ActionSupplementary, events[0].Action)
	s.Equal("Supplementary statement recorded for Accused: Asha Rao", events[0].Description)
}

func (s *StatementServiceSuite) TestSupplementaryForeignStationWritesNothing() {
	linkID := s.link(s.caseA, linkmodels.RoleWitness, "")

	_, err := s.svc.AppendSupplementary(context.Background(), s.caseA, linkID, "text", nil, s.officerB)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.ListSupplementary(context.Background(), s.caseA, auditmodels.Chronological, s.officerB)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	list, err := s.svc.ListSupplementary(context.Background(), s.caseA, auditmodels.Chronological, testutil.Admin())
	s.Require().NoError(err)
	s.Empty(list)
	s.Empty(s.events(s.caseA))
}

func (s *StatementServiceSuite) TestMaterializedSkipsLinksWithoutFragments() {
	with := s.link(s.caseA, linkmodels.RoleWitness, "said something")
	without := s.link(s.caseA, linkmodels.RoleVictim, "")

	got, err := s.svc.Materialized(context.Background(), []id.LinkID{with, without})
	s.Require().NoError(err)
	s.Equal(map[id.LinkID]string{with: "said something"}, got)
}
