package models

import "strings"

// Credentials holds the login details for a single browser profile.
// Loaded from a spreadsheet into memory only; never written to disk.
type Credentials struct {
	ProfileID   string `json:"profile_id" validate:"required"`
	ProfileName string `json:"profile_name"`
	Email       string `json:"email" validate:"required"`
	Password    string `json:"-" validate:"required"`
	TOTPSecret  string `json:"-"` // Optional shared secret for two-factor codes
}

// HasTOTP reports whether a two-factor secret is configured
func (c *Credentials) HasTOTP() bool {
	return strings.TrimSpace(c.TOTPSecret) != ""
}

// CredentialSummary is the non-secret view of a credential row
type CredentialSummary struct {
	ProfileID   string `json:"profile_id"`
	ProfileName string `json:"profile_name"`
	Email       string `json:"email"`
	HasTOTP     bool   `json:"has_totp"`
}

// Summary strips secrets for display
func (c *Credentials) Summary() CredentialSummary {
	return CredentialSummary{
		ProfileID:   c.ProfileID,
		ProfileName: c.ProfileName,
		Email:       c.Email,
		HasTOTP:     c.HasTOTP(),
	}
}
