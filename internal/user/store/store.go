// Package store persists users. Identifier generation and email-uniqueness
// error translation live here; everything else is the service's job.
//
// Error Contract:
//   - FindByID returns sentinel.ErrNotFound (wrapped) when no user exists
//   - Create and UpdateEmail return *EmailUsedError (wrapping
//     sentinel.ErrEmailUsed) when the email belongs to another user
//   - Create returns ErrCreationExhausted when identifier generation keeps
//     colliding; this is fatal, not user-correctable
//   - Any other failure is returned wrapped with context, original identity
//     preserved
package store

import (
	"errors"
	"fmt"

	"consentd/internal/sentinel"
)

// maxCreateAttempts bounds the identifier-collision retry loop in Create.
// A collision on a random 128-bit identifier is astronomically unlikely, so
// hitting the bound means something is wrong with the store, not the caller.
const maxCreateAttempts = 3

// ErrCreationExhausted is returned when Create runs out of identifier attempts.
var ErrCreationExhausted = errors.New("cannot create user: identifier attempts exhausted")

// EmailUsedError reports an email already claimed by another user. It carries
// the email so upper layers can surface it to the caller.
type EmailUsedError struct {
	Email string
}

func (e *EmailUsedError) Error() string {
	return fmt.Sprintf("email %s already used by another user", e.Email)
}

func (e *EmailUsedError) Unwrap() error { return sentinel.ErrEmailUsed }
