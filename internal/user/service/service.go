package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"consentd/internal/audit"
	"consentd/internal/sentinel"
	"consentd/internal/user/metrics"
	"consentd/internal/user/models"
	"consentd/internal/user/store"
	"consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

// Store defines the persistence interface for user identities.
// Error Contract:
//   - Create and UpdateEmail surface *store.EmailUsedError on a taken email
//   - Create surfaces store.ErrCreationExhausted when identifiers run out
//   - FindByID wraps sentinel.ErrNotFound when the user does not exist
type Store interface {
	Create(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID domain.UserID) (*models.User, error)
	UpdateEmail(ctx context.Context, userID domain.UserID, email string) error
	Delete(ctx context.Context, userID domain.UserID) error
}

// AuditPublisher records user lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@.\s]+$`)

type Option func(*Service)

// Service owns the user lifecycle: creation with identifier allocation,
// lookups, email updates and deletion.
type Service struct {
	store   Store
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewService(store Store, auditor AuditPublisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		auditor: auditor,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer("consentd/user")
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

// Create allocates a fresh identifier and stores the user. The email must
// look like an address; uniqueness is decided by storage, not pre-checked.
func (s *Service) Create(ctx context.Context, email string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "user.create")
	defer span.End()

	if err := validateEmail(email); err != nil {
		return nil, err
	}

	start := time.Now()
	user, err := s.store.Create(ctx, email)
	if err != nil {
		return nil, s.translate(err)
	}
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
		s.metrics.ObserveCreateLatency(time.Since(start).Seconds())
	}
	span.SetAttributes(attribute.String("user_id", user.ID.String()))

	s.emitAudit(ctx, user.ID, models.AuditActionUserCreated, "")
	s.logger.Info("user created", "user_id", user.ID.String())
	return user, nil
}

// Get returns the user by identifier.
func (s *Service) Get(ctx context.Context, userID domain.UserID) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "user.get",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, s.translate(err)
	}
	return user, nil
}

// UpdateEmail replaces the user's email. Setting the current value again
// succeeds; only a different user holding the address is a conflict.
func (s *Service) UpdateEmail(ctx context.Context, userID domain.UserID, email string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "user.update_email",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, s.translate(err)
	}

	if err := s.store.UpdateEmail(ctx, userID, email); err != nil {
		return nil, s.translate(err)
	}
	user.Email = email
	if s.metrics != nil {
		s.metrics.IncrementUsersUpdated()
	}

	s.emitAudit(ctx, userID, models.AuditActionUserUpdated, "")
	s.logger.Info("user email updated", "user_id", userID.String())
	return user, nil
}

// Delete removes the user and, through storage, all dependent consent state.
// Deleting an unknown user is reported as not found.
func (s *Service) Delete(ctx context.Context, userID domain.UserID) error {
	ctx, span := s.tracer.Start(ctx, "user.delete",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	if _, err := s.store.FindByID(ctx, userID); err != nil {
		return s.translate(err)
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return s.translate(err)
	}
	if s.metrics != nil {
		s.metrics.IncrementUsersDeleted()
	}

	s.emitAudit(ctx, userID, models.AuditActionUserDeleted, "")
	s.logger.Info("user deleted", "user_id", userID.String())
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return dErrors.New(dErrors.CodeValidation, "email must be a valid address")
	}
	return nil
}

// translate maps known storage failures to domain error codes. Anything not
// recognized passes through unchanged so callers see the original failure.
func (s *Service) translate(err error) error {
	var emailErr *store.EmailUsedError
	switch {
	case errors.As(err, &emailErr):
		if s.metrics != nil {
			s.metrics.IncrementEmailConflicts()
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, emailErr.Error())
	case errors.Is(err, store.ErrCreationExhausted):
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not allocate a user identifier")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
	}
	return err
}

func (s *Service) emitAudit(ctx context.Context, userID domain.UserID, action, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		UserID: userID.String(),
		Action: action,
		Detail: detail,
	}); err != nil {
		s.logger.Warn("audit emit failed", "action", action, "error", err)
	}
}
