package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"consentd/internal/audit"
	consenthandler "consentd/internal/consent/handler"
	consentmetrics "consentd/internal/consent/metrics"
	consentservice "consentd/internal/consent/service"
	consentstore "consentd/internal/consent/store"
	"consentd/internal/platform/config"
	"consentd/internal/platform/database"
	"consentd/internal/platform/health"
	"consentd/internal/platform/logger"
	httptransport "consentd/internal/transport/http"
	userhandler "consentd/internal/user/handler"
	usermetrics "consentd/internal/user/metrics"
	userservice "consentd/internal/user/service"
	userstore "consentd/internal/user/store"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Server, log *slog.Logger) error {
	log.Info("initializing consentd",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	dbCfg.MaxOpenConns = cfg.PoolSize
	dbCfg.AcquireTimeout = cfg.PoolTimeout
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()

	auditor := audit.NewPublisher(audit.NewInMemoryStore(),
		audit.WithAsyncBuffer(cfg.AuditBuffer),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	userSvc := userservice.NewService(userstore.NewPostgres(pool.DB()), auditor, log,
		userservice.WithMetrics(usermetrics.New()),
	)
	consentSvc := consentservice.NewService(consentstore.NewPostgres(pool.DB()), auditor, log,
		consentservice.WithMetrics(consentmetrics.New()),
		consentservice.WithHistoryLimit(cfg.HistoryLimit),
	)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("postgres", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Health(ctx)
	})

	router := httptransport.NewRouter(httptransport.Deps{
		Users:    userhandler.New(userSvc, consentSvc, log),
		Consents: consenthandler.New(consentSvc, log),
		Health:   healthHandler,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
