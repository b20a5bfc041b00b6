package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"consentd/internal/consent/models"
	"consentd/internal/platform/middleware"
	"consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/httputil"
	s "consentd/pkg/string"
	"consentd/pkg/validation"
)

// Service defines the interface for consent operations.
type Service interface {
	SetConsents(ctx context.Context, userID domain.UserID, changes []models.Change) error
	GetConsents(ctx context.Context, userID domain.UserID) ([]*models.Record, error)
	GetHistory(ctx context.Context, userID domain.UserID, offset, limit int) ([]*models.HistoryEvent, error)
}

// Handler handles consent endpoints.
type Handler struct {
	logger  *slog.Logger
	consent Service
}

// New creates a new consent Handler.
func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/events", h.handleConsentEvent)
	r.Get("/users/{userID}/consents", h.handleGetConsents)
	r.Get("/users/{userID}/consents/history", h.handleGetHistory)
}

type consentChange struct {
	ID      string `json:"id" validate:"required,notblank"`
	Enabled *bool  `json:"enabled"`
}

type consentEventRequest struct {
	User struct {
		ID string `json:"id" validate:"required,notblank"`
	} `json:"user"`
	Consents []consentChange `json:"consents" validate:"required"`
}

type consentEntry struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

type historyEntry struct {
	ID        string    `json:"id"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// handleConsentEvent ingests a consent change batch for one user. The whole
// batch is validated before anything is written.
func (h *Handler) handleConsentEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req consentEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode consent event",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	s.TrimStrings(&req.User.ID)
	if err := validation.Validate(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	userID, err := domain.ParseUserID(req.User.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	changes := make([]models.Change, 0, len(req.Consents))
	for _, c := range req.Consents {
		changes = append(changes, models.Change{ID: c.ID, Enabled: c.Enabled})
	}

	if err := h.consent.SetConsents(ctx, userID, changes); err != nil {
		h.logger.WarnContext(ctx, "failed to apply consent event",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleGetConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.consent.GetConsents(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries := make([]consentEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, consentEntry{ID: string(record.Type), Enabled: record.Enabled})
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.consent.GetHistory(ctx, userID, offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries := make([]historyEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, historyEntry{
			ID:        string(event.Type),
			Enabled:   event.Enabled,
			UpdatedAt: event.UpdatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return value, nil
}
