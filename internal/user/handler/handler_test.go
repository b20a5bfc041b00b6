package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"consentd/internal/audit"
	consentmodels "consentd/internal/consent/models"
	consentservice "consentd/internal/consent/service"
	consentstore "consentd/internal/consent/store"
	"consentd/internal/user/handler"
	"consentd/internal/user/service"
	"consentd/internal/user/store"
	"consentd/pkg/domain"
)

type userPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Consents []struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
	} `json:"consents"`
}

type UserHandlerSuite struct {
	suite.Suite
	users    *store.InMemoryStore
	consents *consentstore.InMemoryStore
	auditor  *audit.Publisher
	router   chi.Router
}

func TestUserHandlerSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerSuite))
}

func (s *UserHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.users = store.NewInMemory()
	s.consents = consentstore.NewInMemory()
	s.users.OnDelete(func(ctx context.Context, userID domain.UserID) {
		_ = s.consents.DeleteByUser(ctx, userID)
	})
	s.auditor = audit.NewPublisher(audit.NewInMemoryStore())

	userSvc := service.NewService(s.users, s.auditor, logger)
	consentSvc := consentservice.NewService(s.consents, s.auditor, logger)

	s.router = chi.NewRouter()
	handler.New(userSvc, consentSvc, logger).Register(s.router)
}

func (s *UserHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *UserHandlerSuite) createUser(email string) userPayload {
	rec := s.do(http.MethodPost, "/users", `{"email":"`+email+`"}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var payload userPayload
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func (s *UserHandlerSuite) TestCreateUser() {
	payload := s.createUser("jane.doe@example.com")

	s.Equal("jane.doe@example.com", payload.Email)
	_, err := domain.ParseUserID(payload.ID)
	s.NoError(err)
	s.NotNil(payload.Consents)
	s.Empty(payload.Consents)
}

func (s *UserHandlerSuite) TestCreateUserTrimsEmail() {
	payload := s.createUser("  padded@example.com  ")
	s.Equal("padded@example.com", payload.Email)
}

func (s *UserHandlerSuite) TestCreateUserBadBody() {
	rec := s.do(http.MethodPost, "/users", `{"email":`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *UserHandlerSuite) TestCreateUserInvalidEmail() {
	rec := s.do(http.MethodPost, "/users", `{"email":"not-an-email"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "email")
}

func (s *UserHandlerSuite) TestCreateUserDuplicateEmail() {
	s.createUser("taken@example.com")

	rec := s.do(http.MethodPost, "/users", `{"email":"taken@example.com"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "taken@example.com")
}

func (s *UserHandlerSuite) TestGetUserWithConsents() {
	created := s.createUser("jane.doe@example.com")
	userID, err := domain.ParseUserID(created.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.consents.Set(context.Background(), userID, consentmodels.TypeSMSNotification, true))
	s.Require().NoError(s.consents.Set(context.Background(), userID, consentmodels.TypeEmailNotification, false))

	rec := s.do(http.MethodGet, "/users/"+created.ID, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var payload userPayload
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	s.Equal(created.ID, payload.ID)
	s.Require().Len(payload.Consents, 2)
	s.Equal("email_notification", payload.Consents[0].ID)
	s.False(payload.Consents[0].Enabled)
	s.Equal("sms_notification", payload.Consents[1].ID)
	s.True(payload.Consents[1].Enabled)
}

func (s *UserHandlerSuite) TestGetUserNotFound() {
	rec := s.do(http.MethodGet, "/users/"+domain.NewUserID().String(), "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *UserHandlerSuite) TestGetUserMalformedID() {
	rec := s.do(http.MethodGet, "/users/not-a-uuid", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *UserHandlerSuite) TestUpdateUser() {
	created := s.createUser("old@example.com")

	rec := s.do(http.MethodPut, "/users/"+created.ID, `{"email":"new@example.com"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var payload userPayload
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	s.Equal("new@example.com", payload.Email)
}

func (s *UserHandlerSuite) TestUpdateUserSameEmail() {
	created := s.createUser("same@example.com")

	rec := s.do(http.MethodPut, "/users/"+created.ID, `{"email":"same@example.com"}`)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *UserHandlerSuite) TestUpdateUserEmailConflict() {
	s.createUser("first@example.com")
	second := s.createUser("second@example.com")

	rec := s.do(http.MethodPut, "/users/"+second.ID, `{"email":"first@example.com"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *UserHandlerSuite) TestUpdateUserNotFound() {
	rec := s.do(http.MethodPut, "/users/"+domain.NewUserID().String(), `{"email":"a@example.com"}`)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *UserHandlerSuite) TestDeleteUserCascades() {
	created := s.createUser("delete.me@example.com")
	userID, err := domain.ParseUserID(created.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.consents.Set(context.Background(), userID, consentmodels.TypeEmailNotification, true))

	rec := s.do(http.MethodDelete, "/users/"+created.ID, "")
	s.Equal(http.StatusNoContent, rec.Code)

	records, err := s.consents.ListCurrent(context.Background(), userID)
	s.Require().NoError(err)
	s.Empty(records)

	// The user is gone, so a second delete reports not found.
	rec = s.do(http.MethodDelete, "/users/"+created.ID, "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *UserHandlerSuite) TestAuditTrail() {
	created := s.createUser("audited@example.com")
	s.do(http.MethodPut, "/users/"+created.ID, `{"email":"renamed@example.com"}`)
	s.do(http.MethodDelete, "/users/"+created.ID, "")

	events, err := s.auditor.List(context.Background(), created.ID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, event := range events {
		actions = append(actions, event.Action)
	}
	s.Equal([]string{"user_created", "user_updated", "user_deleted"}, actions)
}

func (s *UserHandlerSuite) TestErrorPayloadShape() {
	rec := s.do(http.MethodGet, "/users/"+domain.NewUserID().String(), "")
	s.Require().Equal(http.StatusNotFound, rec.Code)
	s.True(strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	s.Contains(payload, "error")
}
