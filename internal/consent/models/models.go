package models

import (
	"time"

	"consentd/pkg/domain"
)

// Audit event actions
const (
	AuditActionConsentSet = "consent_set"
)

// Type identifies a channel a user can opt in or out of.
type Type string

const (
	TypeEmailNotification Type = "email_notification"
	TypeSMSNotification   Type = "sms_notification"
)

// Types lists the known consent types in a stable order.
func Types() []Type {
	return []Type{TypeEmailNotification, TypeSMSNotification}
}

// IsValid reports whether the type is one of the known enum values.
func (t Type) IsValid() bool {
	switch t {
	case TypeEmailNotification, TypeSMSNotification:
		return true
	}
	return false
}

// Record is the current consent state for one (user, type) pair. At most one
// record exists per pair; its Enabled value always equals the most recently
// committed history event for the same pair.
type Record struct {
	UserID  domain.UserID
	Type    Type
	Enabled bool
}

// HistoryEvent is one immutable, timestamped consent-state change. History is
// append-only and monotonically growing per (user, type).
type HistoryEvent struct {
	UserID    domain.UserID
	Type      Type
	Enabled   bool
	UpdatedAt time.Time
}

// Change is one entry of a consent update batch as submitted by a caller,
// before validation. Enabled is a pointer so a missing boolean is
// distinguishable from false.
type Change struct {
	ID      string
	Enabled *bool
}
