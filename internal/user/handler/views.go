package handler

import (
	consentmodels "consentd/internal/consent/models"
	"consentd/internal/user/models"
)

type consentEntry struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

type userResponse struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Consents []consentEntry `json:"consents"`
}

// userView renders the user with its current consent state. Consents is
// always a list in the payload, never null.
func userView(user *models.User, records []*consentmodels.Record) *userResponse {
	consents := make([]consentEntry, 0, len(records))
	for _, record := range records {
		consents = append(consents, consentEntry{
			ID:      string(record.Type),
			Enabled: record.Enabled,
		})
	}
	return &userResponse{
		ID:       user.ID.String(),
		Email:    user.Email,
		Consents: consents,
	}
}
