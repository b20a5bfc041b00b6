package models

import (
	"consentd/pkg/domain"
)

// Audit event actions
const (
	AuditActionUserCreated = "user_created"
	AuditActionUserUpdated = "user_updated"
	AuditActionUserDeleted = "user_deleted"
)

// User is the identity record. The identifier is immutable once assigned and
// never reused; email is globally unique across all non-deleted users.
type User struct {
	ID    domain.UserID
	Email string
}
