package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"consentd/internal/consent/models"
	"consentd/pkg/domain"
)

// PostgresStore persists consent state and history in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent ledger.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Set appends a history event and upserts the current record for
// (userID, typ) in one transaction. Both writes commit together or neither
// is visible; no application-level locking is used, concurrent writers to the
// same pair are serialized by the upsert's conflict resolution on the key.
func (s *PostgresStore) Set(ctx context.Context, userID domain.UserID, typ models.Type, enabled bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin consent tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_consents_history (user_id, type, enabled)
		VALUES ($1, $2, $3)
	`, uuid.UUID(userID), string(typ), enabled); err != nil {
		return fmt.Errorf("append consent history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_consents (user_id, type, enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, type) DO UPDATE SET enabled = EXCLUDED.enabled
	`, uuid.UUID(userID), string(typ), enabled); err != nil {
		return fmt.Errorf("upsert consent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consent tx: %w", err)
	}
	return nil
}

// ListCurrent returns all current consent records for the user sorted by
// type ascending. Sorting on type::text keeps the order byte-wise rather
// than enum-declaration order.
func (s *PostgresStore) ListCurrent(ctx context.Context, userID domain.UserID) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, type, enabled
		FROM user_consents
		WHERE user_id = $1
		ORDER BY type::text ASC
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var id uuid.UUID
		var typ string
		var enabled bool
		if err := rows.Scan(&id, &typ, &enabled); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		records = append(records, &models.Record{
			UserID:  domain.UserID(id),
			Type:    models.Type(typ),
			Enabled: enabled,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

// ListHistory returns the user's consent history ordered by updated_at
// descending, paginated by offset and limit. Limit sanity is the caller's
// responsibility.
func (s *PostgresStore) ListHistory(ctx context.Context, userID domain.UserID, offset, limit int) ([]*models.HistoryEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, type, enabled, updated_at
		FROM user_consents_history
		WHERE user_id = $1
		ORDER BY updated_at DESC
		OFFSET $2 LIMIT $3
	`, uuid.UUID(userID), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list consent history: %w", err)
	}
	defer rows.Close()

	var events []*models.HistoryEvent
	for rows.Next() {
		event := &models.HistoryEvent{}
		var id uuid.UUID
		var typ string
		if err := rows.Scan(&id, &typ, &event.Enabled, &event.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan consent history: %w", err)
		}
		event.UserID = domain.UserID(id)
		event.Type = models.Type(typ)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent history: %w", err)
	}
	return events, nil
}

// DeleteByUser removes all current and history rows for a user. The users
// table cascade normally does this; the method exists for tooling and tests.
func (s *PostgresStore) DeleteByUser(ctx context.Context, userID domain.UserID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin consent delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_consents_history WHERE user_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete consent history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_consents WHERE user_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete consents: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consent delete: %w", err)
	}
	return nil
}
