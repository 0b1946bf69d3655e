package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"firledger/internal/access"
	"firledger/internal/audit/handler/mocks"
	"firledger/internal/audit/models"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type TrailHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	actor   access.Actor
	caseID  id.CaseID
}

func TestTrailHandlerSuite(t *testing.T) {
	suite.Run(t, new(TrailHandlerSuite))
}

func (s *TrailHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)

	station := id.StationID(uuid.New())
	s.actor = access.Actor{UserID: id.UserID(uuid.New()), Role: access.RoleOfficer, StationID: &station}
	s.caseID = id.NewCaseID()
}

func (s *TrailHandlerSuite) do(path string, withActor bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if withActor {
		req = req.WithContext(access.WithActor(req.Context(), s.actor))
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *TrailHandlerSuite) TestDefaultsToNewestFirst() {
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	s.service.EXPECT().
		Trail(gomock.Any(), s.caseID, models.ReverseChronological, s.actor).
		Return([]models.Event{
			{ID: 2, CaseID: s.caseID, Action: models.ActionOther, Note: "Site Visit", Description: "visited scene", Timestamp: ts},
			{ID: 1, CaseID: s.caseID, Action: models.ActionStatusChange, Description: "Status changed", OldValue: models.StringPtr("Registered"), NewValue: models.StringPtr("Under Investigation"), Timestamp: ts},
		}, nil)

	rr := s.do("/cases/"+s.caseID.String()+"/tracking", true)
	s.Require().Equal(http.StatusOK, rr.Code)

	var body struct {
		Success bool            `json:"success"`
		Data    []EventResponse `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.True(body.Success)
	s.Require().Len(body.Data, 2)
	s.Equal("Site Visit", body.Data[0].ActionType)
	s.Equal("Under Investigation", *body.Data[1].NewStatus)
}

func (s *TrailHandlerSuite) TestAscendingOrder() {
	s.service.EXPECT().
		Trail(gomock.Any(), s.caseID, models.Chronological, s.actor).
		Return([]models.Event{}, nil)

	rr := s.do("/cases/"+s.caseID.String()+"/tracking?order=asc", true)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *TrailHandlerSuite) TestRejectsBadOrder() {
	rr := s.do("/cases/"+s.caseID.String()+"/tracking?order=sideways", true)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *TrailHandlerSuite) TestRequiresActor() {
	rr := s.do("/cases/"+s.caseID.String()+"/tracking", false)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *TrailHandlerSuite) TestForbiddenPropagates() {
	s.service.EXPECT().
		Trail(gomock.Any(), s.caseID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, id.CaseID, models.Order, access.Actor) ([]models.Event, error) {
			return nil, dErrors.New(dErrors.CodeForbidden, access.ReasonStationMismatch)
		})

	rr := s.do("/cases/"+s.caseID.String()+"/tracking", true)
	s.Equal(http.StatusForbidden, rr.Code)
}
