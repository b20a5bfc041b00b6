package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"consentd/internal/audit"
	"consentd/internal/consent/metrics"
	"consentd/internal/consent/models"
	"consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// Ledger defines the persistence interface for consent state.
// Error Contract:
//   - Set commits the history append and the current-state upsert atomically
//   - ListCurrent returns records sorted by type ascending
//   - ListHistory returns events newest first
type Ledger interface {
	Set(ctx context.Context, userID domain.UserID, typ models.Type, enabled bool) error
	ListCurrent(ctx context.Context, userID domain.UserID) ([]*models.Record, error)
	ListHistory(ctx context.Context, userID domain.UserID, offset, limit int) ([]*models.HistoryEvent, error)
}

// AuditPublisher records consent change events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const defaultHistoryLimit = 20

type Option func(*Service)

// Service records consent decisions and serves current state and history.
type Service struct {
	ledger       Ledger
	auditor      AuditPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
	historyLimit int
}

func NewService(ledger Ledger, auditor AuditPublisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		ledger:       ledger,
		auditor:      auditor,
		logger:       logger,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer("consentd/consent")
	}
	if svc.historyLimit <= 0 {
		svc.historyLimit = defaultHistoryLimit
	}
	return svc
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the tracer, mainly for tests.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithHistoryLimit sets the page size used when callers omit a limit.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// SetConsents applies a batch of consent changes for one user. The whole
// batch is validated before any entry is written; the first invalid entry
// rejects the batch. Writes are applied one ledger transaction per entry, so
// a storage failure can leave earlier entries committed.
func (s *Service) SetConsents(ctx context.Context, userID domain.UserID, changes []models.Change) error {
	ctx, span := s.tracer.Start(ctx, "consent.set",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.Int("batch_size", len(changes)),
		))
	defer span.End()

	if err := validateChanges(changes); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementBatchesRejected()
		}
		return err
	}

	start := time.Now()
	for _, change := range changes {
		typ := models.Type(change.ID)
		enabled := *change.Enabled
		if err := s.ledger.Set(ctx, userID, typ, enabled); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.IncrementConsentsSet(string(typ), enabled)
		}
		s.emitAudit(ctx, userID, fmt.Sprintf("%s=%t", typ, enabled))
	}
	if s.metrics != nil {
		s.metrics.ObserveSetLatency(time.Since(start).Seconds())
	}

	s.logger.Info("consents set", "user_id", userID.String(), "count", len(changes))
	return nil
}

// GetConsents returns the user's current consent state, one record per type
// ever set, ordered by type. A user with no consents yields an empty list.
func (s *Service) GetConsents(ctx context.Context, userID domain.UserID) ([]*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "consent.list",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	return s.ledger.ListCurrent(ctx, userID)
}

// GetHistory returns a page of the user's consent history, newest first.
// A negative offset reads from the start; a non-positive limit falls back to
// the configured page size.
func (s *Service) GetHistory(ctx context.Context, userID domain.UserID, offset, limit int) ([]*models.HistoryEvent, error) {
	ctx, span := s.tracer.Start(ctx, "consent.history",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	if s.metrics != nil {
		s.metrics.IncrementHistoryReads()
	}
	return s.ledger.ListHistory(ctx, userID, offset, limit)
}

// validateChanges checks the whole batch up front, first failure wins.
func validateChanges(changes []models.Change) error {
	if len(changes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "consents must not be empty")
	}
	for _, change := range changes {
		if !models.Type(change.ID).IsValid() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown consent id: %q", change.ID))
		}
		if change.Enabled == nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("consent %s is missing enabled", change.ID))
		}
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, userID domain.UserID, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		UserID: userID.String(),
		Action: models.AuditActionConsentSet,
		Detail: detail,
	}); err != nil {
		s.logger.Warn("audit emit failed", "action", models.AuditActionConsentSet, "error", err)
	}
}
