package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"consentd/internal/audit"
	"consentd/internal/consent/handler"
	"consentd/internal/consent/models"
	"consentd/internal/consent/service"
	"consentd/internal/consent/store"
	"consentd/pkg/domain"
)

type consentPayload struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

type ConsentHandlerSuite struct {
	suite.Suite
	ledger  *store.InMemoryStore
	auditor *audit.Publisher
	router  chi.Router
	userID  domain.UserID
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func (s *ConsentHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ledger = store.NewInMemory()
	s.auditor = audit.NewPublisher(audit.NewInMemoryStore())
	svc := service.NewService(s.ledger, s.auditor, logger)

	s.router = chi.NewRouter()
	handler.New(svc, logger).Register(s.router)
	s.userID = domain.NewUserID()
}

func (s *ConsentHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *ConsentHandlerSuite) postEvent(body string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/events", body)
}

func (s *ConsentHandlerSuite) TestConsentEvent() {
	rec := s.postEvent(`{
		"user": {"id": "` + s.userID.String() + `"},
		"consents": [
			{"id": "email_notification", "enabled": true},
			{"id": "sms_notification", "enabled": false}
		]
	}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	records, err := s.ledger.ListCurrent(context.Background(), s.userID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.True(records[0].Enabled)
	s.False(records[1].Enabled)
}

func (s *ConsentHandlerSuite) TestConsentEventUnknownType() {
	rec := s.postEvent(`{
		"user": {"id": "` + s.userID.String() + `"},
		"consents": [
			{"id": "email_notification", "enabled": true},
			{"id": "push_notification", "enabled": true}
		]
	}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	// Validation is all-or-nothing, the valid entry was not written either.
	records, err := s.ledger.ListCurrent(context.Background(), s.userID)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *ConsentHandlerSuite) TestConsentEventMissingEnabled() {
	rec := s.postEvent(`{
		"user": {"id": "` + s.userID.String() + `"},
		"consents": [{"id": "email_notification"}]
	}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "enabled")
}

func (s *ConsentHandlerSuite) TestConsentEventMalformedUserID() {
	rec := s.postEvent(`{
		"user": {"id": "not-a-uuid"},
		"consents": [{"id": "email_notification", "enabled": true}]
	}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ConsentHandlerSuite) TestConsentEventMissingUser() {
	rec := s.postEvent(`{"consents": [{"id": "email_notification", "enabled": true}]}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ConsentHandlerSuite) TestConsentEventBadBody() {
	rec := s.postEvent(`{"user":`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ConsentHandlerSuite) TestGetConsents() {
	ctx := context.Background()
	s.Require().NoError(s.ledger.Set(ctx, s.userID, models.TypeSMSNotification, true))
	s.Require().NoError(s.ledger.Set(ctx, s.userID, models.TypeEmailNotification, false))

	rec := s.do(http.MethodGet, "/users/"+s.userID.String()+"/consents", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var payload []consentPayload
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	s.Require().Len(payload, 2)
	s.Equal("email_notification", payload[0].ID)
	s.Equal("sms_notification", payload[1].ID)
}

func (s *ConsentHandlerSuite) TestGetConsentsEmpty() {
	rec := s.do(http.MethodGet, "/users/"+s.userID.String()+"/consents", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[]`, rec.Body.String())
}

func (s *ConsentHandlerSuite) TestGetHistory() {
	ctx := context.Background()
	s.Require().NoError(s.ledger.Set(ctx, s.userID, models.TypeEmailNotification, true))
	s.Require().NoError(s.ledger.Set(ctx, s.userID, models.TypeEmailNotification, false))

	rec := s.do(http.MethodGet, "/users/"+s.userID.String()+"/consents/history", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var payload []consentPayload
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	s.Require().Len(payload, 2)
}

func (s *ConsentHandlerSuite) TestGetHistoryPaged() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.ledger.Set(ctx, s.userID, models.TypeEmailNotification, i%2 == 0))
	}

	rec := s.do(http.MethodGet, "/users/"+s.userID.String()+"/consents/history?offset=2&limit=2", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var payload []consentPayload
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	s.Len(payload, 2)
}

func (s *ConsentHandlerSuite) TestGetHistoryRejectsBadPaging() {
	rec := s.do(http.MethodGet, "/users/"+s.userID.String()+"/consents/history?offset=-1", "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/users/"+s.userID.String()+"/consents/history?limit=abc", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ConsentHandlerSuite) TestEventsAreAudited() {
	rec := s.postEvent(`{
		"user": {"id": "` + s.userID.String() + `"},
		"consents": [{"id": "email_notification", "enabled": true}]
	}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	events, err := s.auditor.List(context.Background(), s.userID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(models.AuditActionConsentSet, events[0].Action)
}
