package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"

	"consentd/internal/audit"
	consenthandler "consentd/internal/consent/handler"
	consentservice "consentd/internal/consent/service"
	consentstore "consentd/internal/consent/store"
	"consentd/internal/platform/health"
	httptransport "consentd/internal/transport/http"
	userhandler "consentd/internal/user/handler"
	userservice "consentd/internal/user/service"
	userstore "consentd/internal/user/store"
	"consentd/pkg/domain"
)

// newTestServer assembles the full HTTP stack on in-memory storage so
// scenarios exercise the real routing, validation and error mapping.
func newTestServer() *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := userstore.NewInMemory()
	consents := consentstore.NewInMemory()
	users.OnDelete(func(ctx context.Context, userID domain.UserID) {
		_ = consents.DeleteByUser(ctx, userID)
	})
	auditor := audit.NewPublisher(audit.NewInMemoryStore())

	userSvc := userservice.NewService(users, auditor, logger)
	consentSvc := consentservice.NewService(consents, auditor, logger)

	router := httptransport.NewRouter(httptransport.Deps{
		Users:    userhandler.New(userSvc, consentSvc, logger),
		Consents: consenthandler.New(consentSvc, logger),
		Health:   health.New("e2e"),
	}, logger)

	return httptest.NewServer(router)
}
