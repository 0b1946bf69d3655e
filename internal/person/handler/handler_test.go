package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"firledger/internal/access"
	"firledger/internal/person/handler/mocks"
	"firledger/internal/person/models"
	"firledger/internal/person/service"
	id "firledger/pkg/domain"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type PersonHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	actor   access.Actor
}

func TestPersonHandlerSuite(t *testing.T) {
	suite.Run(t, new(PersonHandlerSuite))
}

func (s *PersonHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.actor = testutil.OfficerAt(id.StationID(uuid.New()))
}

func (s *PersonHandlerSuite) TestCreateMapsLegacyAliases() {
	s.service.EXPECT().
		Create(gomock.Any(), service.CreateRequest{
			FirstName:     "Sita",
			LastName:      "Sharma",
			NationalID:    "C-100",
			ContactNumber: "9800000000",
		}, s.actor).
		Return(&models.Person{ID: id.NewPersonID(), FirstName: "Sita", LastName: "Sharma"}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", map[string]any{
		"first_name":     " Sita ",
		"last_name":      "Sharma",
		"citizenship_no": "C-100",
		"phone":          "9800000000",
	})
	rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.actor))
	s.Equal(http.StatusCreated, rr.Code)
}

func (s *PersonHandlerSuite) TestCreateRequiresNames() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", map[string]any{"first_name": "Sita"})
	rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.actor))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *PersonHandlerSuite) TestCreateConflict() {
	s.service.EXPECT().Create(gomock.Any(), gomock.Any(), s.actor).
		Return(nil, dErrors.New(dErrors.CodeConflict, "person with this national id already exists"))

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/persons", map[string]any{
		"first_name": "A", "last_name": "B", "national_id": "dup",
	})
	rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.actor))
	s.Equal(http.StatusConflict, rr.Code)
}

func (s *PersonHandlerSuite) TestSearchPassesQueryAndLimit() {
	s.service.EXPECT().Search(gomock.Any(), "tha", 5, s.actor).Return([]*models.Person{}, nil)
	req := testutil.NewRequest(s.T(), http.MethodGet, "/persons?q=tha&limit=5")
	rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.actor))
	s.Equal(http.StatusOK, rr.Code)
}

func (s *PersonHandlerSuite) TestGetRejectsMalformedID() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/persons/not-a-uuid")
	rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.actor))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *PersonHandlerSuite) TestUnauthenticated() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/persons"))
	s.Equal(http.StatusUnauthorized, rr.Code)
}
