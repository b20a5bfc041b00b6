// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "consentd/pkg/domain-errors"
)

// UserID is the opaque 128-bit user identifier, rendered as the canonical
// 36-character UUID string everywhere it crosses a boundary.
type UserID uuid.UUID

// NewUserID generates a fresh random identifier.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID validates an identifier at trust boundaries (handlers, API inputs).
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "user ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "user ID is not a valid UUID")
	}
	return UserID(id), nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
