package interfaces

import "github.com/ternarybob/sellersync/internal/models"

// CredentialStore is the volatile, in-memory credential mapping.
// Mutation happens only through ReplaceAll.
type CredentialStore interface {
	ReplaceAll(creds []models.Credentials) int
	GetByProfileID(profileID string) *models.Credentials
	GetByName(name string) *models.Credentials
	Count() int
	ProfileIDs() []string
	Summaries() []models.CredentialSummary
}
