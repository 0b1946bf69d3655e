package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"firledger/internal/access"
	auditmodels "firledger/internal/audit/models"
	auditservice "firledger/internal/audit/service"
	auditmemory "firledger/internal/audit/store/memory"
	"firledger/internal/cases/models"
	"firledger/internal/cases/store/memory"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	txcontext "firledger/pkg/platform/tx"
	"firledger/pkg/testutil"
)

type CaseServiceSuite struct {
	suite.Suite
	store    *memory.InMemoryStore
	audit    *auditservice.Service
	svc      *Service
	stationA id.StationID
	stationB id.StationID
	officerA access.Actor
	officerB access.Actor
	admin    access.Actor
}

func TestCaseServiceSuite(t *testing.T) {
	suite.Run(t, new(CaseServiceSuite))
}

func (s *CaseServiceSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.audit = auditservice.New(auditmemory.NewInMemoryStore(), s.store)
	s.svc = New(s.store, s.audit, txcontext.NewMemory(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	s.stationA = id.StationID(uuid.New())
	s.stationB = id.StationID(uuid.New())
	s.officerA = testutil.OfficerAt(s.stationA)
	s.officerB = testutil.OfficerAt(s.stationB)
	s.admin = testutil.Admin()
}

func (s *CaseServiceSuite) register(actor access.Actor) *models.Case {
	c, err := s.svc.Create(context.Background(), CreateRequest{CrimeType: "Theft", Summary: "bicycle stolen"}, actor)
	s.Require().NoError(err)
	return c
}

func (s *CaseServiceSuite) events(caseID id.CaseID) []auditmodels.Event {
	events, err := s.audit.Query(context.Background(), caseID, auditmodels.Chronological)
	s.Require().NoError(err)
	return events
}

func (s *CaseServiceSuite) TestCreateDefaultsAndRegistrationEvent() {
	c := s.register(s.officerA)

	s.Equal(s.stationA, c.StationID)
	s.Equal(models.StatusRegistered, c.Status)
	s.Equal(models.PriorityMedium, c.Priority)
	s.Equal(s.officerA.OfficerID, c.OfficerID)
	s.Regexp(regexp.MustCompile(`^FIR-\d{4}-[0-9A-F]{8}$`), c.FIRNo)

	events := s.events(c.ID)
	s.Require().Len(events, 1)
	s.Equal(auditmodels.ActionCaseRegistered, events[0].Action)
	s.Equal(s.officerA.UserID, events[0].PerformedBy)
	s.Nil(events[0].OldValue)
	s.Nil(events[0].NewValue)
}

func (s *CaseServiceSuite) TestGeneratedFIRNoRetriesOnCollision() {
	_, err := s.svc.Create(context.Background(), CreateRequest{FIRNo: "FIR-2025-0000AAAA", CrimeType: "Theft"}, s.officerA)
	s.Require().NoError(err)

	numbers := []string{"FIR-2025-0000AAAA", "FIR-2025-0000BBBB"}
	calls := 0
	svc := New(s.store, s.audit, txcontext.NewMemory(), WithFIRGenerator(func(time.Time) string {
		n := numbers[calls]
		calls++
		return n
	}))

	c, err := svc.Create(context.Background(), CreateRequest{CrimeType: "Fraud"}, s.officerA)
	s.Require().NoError(err)
	s.Equal("FIR-2025-0000BBBB", c.FIRNo)
	s.Equal(2, calls)
	s.Len(s.events(c.ID), 1)
}

func (s *CaseServiceSuite) TestCreateDuplicateFIRNoConflicts() {
	ctx := context.Background()
	_, err := s.svc.Create(ctx, CreateRequest{FIRNo: "FIR-2025-0001", CrimeType: "Theft"}, s.officerA)
	s.Require().NoError(err)

	_, err = s.svc.Create(ctx, CreateRequest{FIRNo: "FIR-2025-0001", CrimeType: "Assault"}, s.officerB)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	cases, err := s.svc.List(ctx, "", 0, s.admin)
	s.Require().NoError(err)
	s.Len(cases, 1)
}

func (s *CaseServiceSuite) TestCreateRetriesGeneratedCollision() {
	numbers := []string{"FIR-2025-AAAAAAAA", "FIR-2025-AAAAAAAA", "FIR-2025-BBBBBBBB"}
	s.svc.newFIRNo = func(_ time.Time) string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}
	first := s.register(s.officerA)
	second := s.register(s.officerA)
	s.Equal("FIR-2025-AAAAAAAA", first.FIRNo)
	s.Equal("FIR-2025-BBBBBBBB", second.FIRNo)
}

func (s *CaseServiceSuite) TestCreateStationRules() {
	ctx := context.Background()

	_, err := s.svc.Create(ctx, CreateRequest{CrimeType: "Theft", StationID: &s.stationB}, s.officerA)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "officers register only for their own station")

	_, err = s.svc.Create(ctx, CreateRequest{CrimeType: "Theft"}, s.admin)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "admins must name a station")

	c, err := s.svc.Create(ctx, CreateRequest{CrimeType: "Theft", StationID: &s.stationB}, s.admin)
	s.Require().NoError(err)
	s.Equal(s.stationB, c.StationID)

	_, err = s.svc.Create(ctx, CreateRequest{}, s.officerA)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CaseServiceSuite) TestGet() {
	c := s.register(s.officerA)
	ctx := context.Background()

	got, err := s.svc.Get(ctx, c.ID, s.officerA)
	s.Require().NoError(err)
	s.Equal(c.FIRNo, got.FIRNo)

	_, err = s.svc.Get(ctx, c.ID, s.officerB)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.Get(ctx, c.ID, s.admin)
	s.NoError(err)

	_, err = s.svc.Get(ctx, id.NewCaseID(), s.officerB)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "absence is reported before authorization")
}

func (s *CaseServiceSuite) TestStatusChangeRecordsExactlyOneEvent() {
	c := s.register(s.officerA)

	updated, err := s.svc.Update(context.Background(), c.ID, models.Patch{
		Status: models.Some("Under Investigation"),
	}, s.officerA)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderInvestigation, updated.Status)

	events := s.events(c.ID)
	s.Require().Len(events, 2)
	ev := events[1]
	s.Equal(auditmodels.ActionStatusChange, ev.Action)
	s.Equal("Registered", *ev.OldValue)
	s.Equal("Under Investigation", *ev.NewValue)
	s.Equal("Case status updated from Registered to Under Investigation", ev.Description)
}

func (s *CaseServiceSuite) TestMultiFieldUpdateRecordsOneEventPerField() {
	c := s.register(s.officerA)

	_, err := s.svc.Update(context.Background(), c.ID, models.Patch{
		Status:   models.Some("Closed"),
		Priority: models.Some("High"),
		Summary:  models.Some("recovered"),
	}, s.officerA)
	s.Require().NoError(err)

	events := s.events(c.ID)[1:]
	s.Require().Len(events, 3)
	s.Equal(auditmodels.ActionStatusChange, events[0].Action)
	s.Equal(auditmodels.ActionPriorityChange, events[1].Action)
	s.Equal("Medium", *events[1].OldValue)
	s.Equal("High", *events[1].NewValue)
	s.Equal(auditmodels.ActionDescriptionUpdate, events[2].Action)
	s.Nil(events[2].OldValue)
	s.Nil(events[2].NewValue)
}

func (s *CaseServiceSuite) TestUnchangedValuesAreANoOp() {
	c := s.register(s.officerA)

	got, err := s.svc.Update(context.Background(), c.ID, models.Patch{
		Status:   models.Some("Registered"),
		Priority: models.Some("Medium"),
	}, s.officerA)
	s.Require().NoError(err)
	s.Equal(c.UpdatedAt, got.UpdatedAt)
	s.Len(s.events(c.ID), 1)
}

func (s *CaseServiceSuite) TestAbsentFieldsAreUntouchedAndEmptySummaryClears() {
	c := s.register(s.officerA)
	ctx := context.Background()

	_, err := s.svc.Update(ctx, c.ID, models.Patch{Priority: models.Some("Low")}, s.officerA)
	s.Require().NoError(err)
	got, _ := s.svc.Get(ctx, c.ID, s.officerA)
	s.Equal("bicycle stolen", got.Summary)

	_, err = s.svc.Update(ctx, c.ID, models.Patch{Summary: models.Some("")}, s.officerA)
	s.Require().NoError(err)
	got, _ = s.svc.Get(ctx, c.ID, s.officerA)
	s.Equal("", got.Summary)

	events := s.events(c.ID)
	s.Equal("Case description/summary was cleared", events[len(events)-1].Description)
}

func (s *CaseServiceSuite) TestEmptyPatchIsValidationError() {
	c := s.register(s.officerA)
	_, err := s.svc.Update(context.Background(), c.ID, models.Patch{}, s.officerA)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Update(context.Background(), c.ID, models.Patch{Status: models.Some("  ")}, s.officerA)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CaseServiceSuite) TestForeignStationUpdateIsDeniedWithoutSideEffects() {
	c := s.register(s.officerA)

	_, err := s.svc.Update(context.Background(), c.ID, models.Patch{
		Status: models.Some("Closed"),
	}, s.officerB)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	got, _ := s.svc.Get(context.Background(), c.ID, s.admin)
	s.Equal(models.StatusRegistered, got.Status)
	s.Len(s.events(c.ID), 1)
}

func (s *CaseServiceSuite) TestAdminUpdatesAnyStation() {
	c := s.register(s.officerA)
	_, err := s.svc.Update(context.Background(), c.ID, models.Patch{Status: models.Some("Closed")}, s.admin)
	s.NoError(err)
}

func (s *CaseServiceSuite) TestCustomActionWithFieldChangeAppendsDescription() {
	c := s.register(s.officerA)

	_, err := s.svc.Update(context.Background(), c.ID, models.Patch{
		Status: models.Some("Under Investigation"),
		Action: &models.CustomAction{Type: "Evidence Review", Description: "Evidence reviewed during status update"},
	}, s.officerA)
	s.Require().NoError(err)

	events := s.events(c.ID)[1:]
	s.Require().Len(events, 1, "the custom action does not add an event when a field changed")
	s.Equal(auditmodels.ActionStatusChange, events[0].Action)
	s.Equal("Case status updated from Registered to Under Investigation; Evidence reviewed during status update", events[0].Description)
}

func (s *CaseServiceSuite) TestCustomActionAloneIsRecordedStandalone() {
	c := s.register(s.officerA)

	_, err := s.svc.Update(context.Background(), c.ID, models.Patch{
		Action: &models.CustomAction{Type: "Site Visit", Description: "visited the scene"},
	}, s.officerA)
	s.Require().NoError(err)

	events := s.events(c.ID)[1:]
	s.Require().Len(events, 1)
	s.Equal(auditmodels.ActionOther, events[0].Action)
	s.Equal("Site Visit", events[0].Label())
	s.Equal("visited the scene", events[0].Description)
}

func (s *CaseServiceSuite) TestCustomActionCannotUseDerivedLabels() {
	c := s.register(s.officerA)
	before := s.events(c.ID)

	for _, label := range []string{
		"Status Change", "priority change", "Description Update", "Add New Case Member",
		"Additional Statement Record", "Supplementary Statement", "CASE REGISTERED",
	} {
		s.Run(label, func() {
			_, err := s.svc.Update(context.Background(), c.ID, models.Patch{
				Action: &models.CustomAction{Type: label, Description: "Case status updated from Registered to Closed"},
			}, s.officerA)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}

	got, err := s.svc.Get(context.Background(), c.ID, s.officerA)
	s.Require().NoError(err)
	s.Equal(models.StatusRegistered, got.Status)
	s.Equal(before, s.events(c.ID), "no event is written for a rejected override")
}

func (s *CaseServiceSuite) TestCustomActionOtherUsesItsName() {
	c := s.register(s.officerA)

	_, err := s.svc.Update(context.Background(), c.ID, models.Patch{
		Action: &models.CustomAction{Type: "other", Description: "evidence reviewed"},
	}, s.officerA)
	s.Require().NoError(err)

	events := s.events(c.ID)
	last := events[len(events)-1]
	s.Equal(auditmodels.ActionOther, last.Action)
	s.Equal("Other", last.Label())
	s.Equal("evidence reviewed", last.Description)
	s.Nil(last.OldValue)
	s.Nil(last.NewValue)
}

type failingAuditor struct{}

func (failingAuditor) Append(context.Context, auditmodels.Entry) (auditmodels.EventID, error) {
	return 0, dErrors.New(dErrors.CodeInternal, "audit store down")
}

func (s *CaseServiceSuite) TestAuditFailureRollsBackUpdate() {
	c := s.register(s.officerA)
	broken := New(s.store, failingAuditor{}, txcontext.NewMemory())

	_, err := broken.Update(context.Background(), c.ID, models.Patch{Status: models.Some("Closed")}, s.officerA)
	s.Require().Error(err)

	got, _ := s.svc.Get(context.Background(), c.ID, s.officerA)
	s.Equal(models.StatusRegistered, got.Status)
}

func (s *CaseServiceSuite) TestAuditFailureRollsBackCreate() {
	broken := New(s.store, failingAuditor{}, txcontext.NewMemory())
	_, err := broken.Create(context.Background(), CreateRequest{FIRNo: "FIR-X", CrimeType: "Theft"}, s.officerA)
	s.Require().Error(err)

	_, err = s.store.FindByFIRNo(context.Background(), "FIR-X")
	s.Error(err)
}

func (s *CaseServiceSuite) TestStrictTransitionTable() {
	table := &models.TransitionTable{Status: map[string][]string{
		"Registered": {"Under Investigation"},
	}}
	strict := New(s.store, s.audit, txcontext.NewMemory(), WithTransitions(table))
	c := s.register(s.officerA)

	_, err := strict.Update(context.Background(), c.ID, models.Patch{Status: models.Some("Closed")}, s.officerA)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Len(s.events(c.ID), 1)

	_, err = strict.Update(context.Background(), c.ID, models.Patch{Status: models.Some("Under Investigation")}, s.officerA)
	s.NoError(err)
}

func (s *CaseServiceSuite) TestListAndStatsAreStationScoped() {
	ctx := context.Background()
	s.register(s.officerA)
	s.register(s.officerA)
	b := s.register(s.officerB)
	_, err := s.svc.Update(ctx, b.ID, models.Patch{Status: models.Some("Closed")}, s.officerB)
	s.Require().NoError(err)

	mine, err := s.svc.List(ctx, "", 0, s.officerA)
	s.Require().NoError(err)
	s.Len(mine, 2)

	closed, err := s.svc.List(ctx, "Closed", 0, s.admin)
	s.Require().NoError(err)
	s.Len(closed, 1)

	stats, err := s.svc.Stats(ctx, s.officerB)
	s.Require().NoError(err)
	s.Equal(1, stats.Total)
	s.Equal(1, stats.ByStatus["Closed"])

	all, err := s.svc.Stats(ctx, s.admin)
	s.Require().NoError(err)
	s.Equal(3, all.Total)
	s.Equal(3, all.ByCrimeType["Theft"])
}

func (s *CaseServiceSuite) TestStationlessOfficerSeesNothing() {
	s.register(s.officerA)
	lost := access.Actor{UserID: id.UserID(uuid.New()), Role: access.RoleOfficer}
	cases, err := s.svc.List(context.Background(), "", 0, lost)
	s.Require().NoError(err)
	s.Empty(cases)

	_, err = s.svc.Create(context.Background(), CreateRequest{CrimeType: "Theft"}, lost)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
