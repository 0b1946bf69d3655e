package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"firledger/internal/access"
	"firledger/internal/cases/handler/mocks"
	"firledger/internal/cases/models"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type CaseHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	actor   access.Actor
	caseID  id.CaseID
}

func TestCaseHandlerSuite(t *testing.T) {
	suite.Run(t, new(CaseHandlerSuite))
}

func (s *CaseHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.actor = testutil.OfficerAt(id.StationID(uuid.New()))
	s.caseID = id.NewCaseID()
}

func (s *CaseHandlerSuite) send(method, path string, body any) *http.Response {
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(s.T(), method, path, body)
	} else {
		req = testutil.NewRequest(s.T(), method, path)
	}
	return testutil.DoRequest(s.router, testutil.WithActor(req, s.actor)).Result()
}

func (s *CaseHandlerSuite) TestUpdateBuildsMergePatch() {
	s.service.EXPECT().
		Update(gomock.Any(), s.caseID, gomock.Any(), s.actor).
		DoAndReturn(func(_ any, _ id.CaseID, p models.Patch, _ access.Actor) (*models.Case, error) {
			s.True(p.Status.Set)
			s.Equal("Closed", p.Status.Value)
			s.False(p.Priority.Set, "null is no change")
			s.True(p.Summary.Set, "empty string clears")
			s.Equal("", p.Summary.Value)
			s.Require().NotNil(p.Action)
			s.Equal("Evidence Review", p.Action.Type)
			return &models.Case{ID: s.caseID, Status: models.StatusClosed}, nil
		})

	resp := s.send(http.MethodPatch, "/cases/"+s.caseID.String(), map[string]any{
		"case_status":        "Closed",
		"case_priority":      nil,
		"summary":            "",
		"action_type":        "Evidence Review",
		"action_description": "checked exhibits",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *CaseHandlerSuite) TestUpdateWithoutActionLeavesActionNil() {
	s.service.EXPECT().
		Update(gomock.Any(), s.caseID, models.Patch{Priority: models.Some("High")}, s.actor).
		Return(&models.Case{ID: s.caseID}, nil)

	resp := s.send(http.MethodPut, "/cases/"+s.caseID.String(), map[string]any{"case_priority": "High"})
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *CaseHandlerSuite) TestUpdateRejectsDescriptionWithoutType() {
	resp := s.send(http.MethodPatch, "/cases/"+s.caseID.String(), map[string]any{"action_description": "x"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *CaseHandlerSuite) TestUpdateMapsForbidden() {
	s.service.EXPECT().Update(gomock.Any(), s.caseID, gomock.Any(), s.actor).
		Return(nil, dErrors.New(dErrors.CodeForbidden, access.ReasonStationMismatch))

	resp := s.send(http.MethodPatch, "/cases/"+s.caseID.String(), map[string]any{"case_status": "Closed"})
	s.Equal(http.StatusForbidden, resp.StatusCode)

	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(false, body["success"])
	s.Equal("station mismatch", body["message"])
}

func (s *CaseHandlerSuite) TestCreateParsesStation() {
	station := id.StationID(uuid.New())
	s.service.EXPECT().Create(gomock.Any(), gomock.Any(), s.actor).
		DoAndReturn(func(_ any, req any, _ access.Actor) (*models.Case, error) {
			return &models.Case{ID: s.caseID, StationID: station, FIRNo: "FIR-2025-00000001"}, nil
		})

	resp := s.send(http.MethodPost, "/cases", map[string]any{"crime_type": "Theft", "station_id": station.String()})
	s.Equal(http.StatusCreated, resp.StatusCode)

	resp = s.send(http.MethodPost, "/cases", map[string]any{"crime_type": "Theft", "station_id": "nope"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *CaseHandlerSuite) TestInternalErrorsHideDetail() {
	s.service.EXPECT().Get(gomock.Any(), s.caseID, s.actor).
		Return(nil, dErrors.New(dErrors.CodeInternal, "pq: connection refused"))

	resp := s.send(http.MethodGet, "/cases/"+s.caseID.String(), nil)
	s.Equal(http.StatusInternalServerError, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	s.NotContains(string(raw), "pq:")
}

func (s *CaseHandlerSuite) TestStatsRouteIsNotACaseID() {
	s.service.EXPECT().Stats(gomock.Any(), s.actor).Return(models.NewStats(), nil)
	resp := s.send(http.MethodGet, "/cases/stats", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *CaseHandlerSuite) TestListPassesFilter() {
	s.service.EXPECT().List(gomock.Any(), "Closed", 10, s.actor).Return([]*models.Case{}, nil)
	resp := s.send(http.MethodGet, "/cases?status=Closed&limit=10", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}
