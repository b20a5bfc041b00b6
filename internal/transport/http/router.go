// Package httptransport wires the HTTP surface: middleware, domain handlers,
// health checks and the metrics endpoint.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	consenthandler "consentd/internal/consent/handler"
	"consentd/internal/platform/health"
	"consentd/internal/platform/middleware"
	userhandler "consentd/internal/user/handler"
)

// Deps carries the wired handlers the router exposes.
type Deps struct {
	Users    *userhandler.Handler
	Consents *consenthandler.Handler
	Health   *health.Handler
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(deps Deps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	deps.Users.Register(r)
	deps.Consents.Register(r)
	deps.Health.Register(r)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
