package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	consentmodels "consentd/internal/consent/models"
	"consentd/internal/platform/middleware"
	"consentd/internal/user/models"
	"consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/httputil"
	s "consentd/pkg/string"
	"consentd/pkg/validation"
)

// Service defines the interface for user lifecycle operations.
type Service interface {
	Create(ctx context.Context, email string) (*models.User, error)
	Get(ctx context.Context, userID domain.UserID) (*models.User, error)
	UpdateEmail(ctx context.Context, userID domain.UserID, email string) (*models.User, error)
	Delete(ctx context.Context, userID domain.UserID) error
}

// ConsentReader exposes the current consent state for the user view.
type ConsentReader interface {
	GetConsents(ctx context.Context, userID domain.UserID) ([]*consentmodels.Record, error)
}

// Handler handles user endpoints.
type Handler struct {
	logger   *slog.Logger
	users    Service
	consents ConsentReader
}

// New creates a new user Handler.
func New(users Service, consents ConsentReader, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		users:    users,
		consents: consents,
	}
}

// Register registers the user routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/users", h.handleCreateUser)
	r.Get("/users/{userID}", h.handleGetUser)
	r.Put("/users/{userID}", h.handleUpdateUser)
	r.Delete("/users/{userID}", h.handleDeleteUser)
}

type upsertUserRequest struct {
	Email string `json:"email" validate:"required,notblank"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req upsertUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode create user request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	s.TrimStrings(&req.Email)
	if err := validation.Validate(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.users.Create(ctx, req.Email)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create user",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, userView(user, nil))
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.users.Get(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.consents.GetConsents(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load consents for user view",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userView(user, records))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req upsertUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode update user request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	s.TrimStrings(&req.Email)
	if err := validation.Validate(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.users.UpdateEmail(ctx, userID, req.Email)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to update user",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	records, err := h.consents.GetConsents(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userView(user, records))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.users.Delete(ctx, userID); err != nil {
		h.logger.WarnContext(ctx, "failed to delete user",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
