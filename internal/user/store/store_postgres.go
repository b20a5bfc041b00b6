package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"consentd/internal/sentinel"
	"consentd/internal/user/models"
	"consentd/pkg/domain"
)

// Constraint identities from migrations/0001_initial.up.sql. Uniqueness
// failures are classified by the violated constraint, never by a pre-check
// query, so there is no window between check and insert.
const (
	uniqueViolationCode   = "23505"
	emailUniqueConstraint = "users_email_unique"
	userPKConstraint      = "users_pkey"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a user under a freshly generated identifier. On an
// identifier collision it retries with a new identifier up to
// maxCreateAttempts total; an email collision fails immediately.
func (s *PostgresStore) Create(ctx context.Context, email string) (*models.User, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		user := &models.User{ID: domain.NewUserID(), Email: email}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (user_id, email) VALUES ($1, $2)`,
			uuid.UUID(user.ID), user.Email,
		)
		if err == nil {
			return user, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			switch pgErr.ConstraintName {
			case emailUniqueConstraint:
				return nil, &EmailUsedError{Email: email}
			case userPKConstraint:
				continue
			}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return nil, ErrCreationExhausted
}

// UpdateEmail changes a user's email. Setting the current value again is a
// no-op success: the unique constraint only fires for a different row.
// Zero rows affected is not an error at this layer.
func (s *PostgresStore) UpdateEmail(ctx context.Context, userID domain.UserID, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = $2 WHERE user_id = $1`,
		uuid.UUID(userID), email,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == emailUniqueConstraint {
			return &EmailUsedError{Email: email}
		}
		return fmt.Errorf("update user email: %w", err)
	}
	return nil
}

// Delete removes the user row. The schema cascades removal of consent and
// history rows. Deleting an absent user is not an error.
func (s *PostgresStore) Delete(ctx context.Context, userID domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// FindByID looks up a user by identifier.
func (s *PostgresStore) FindByID(ctx context.Context, userID domain.UserID) (*models.User, error) {
	var id uuid.UUID
	var email string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email FROM users WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&id, &email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &models.User{ID: domain.UserID(id), Email: email}, nil
}
