package handlers

import (
	"context"
	"io"

	"github.com/ternarybob/sellersync/internal/models"
)

// LoginRunner performs interactive logins
type LoginRunner interface {
	Login(ctx context.Context, ref string) models.LoginResult
	LoginMany(ctx context.Context, refs []string) []models.LoginResult
}

// RunManager starts batch runs and reads their history
type RunManager interface {
	Start(ctx context.Context, trigger string, ids []string) (string, error)
	RunSync(ctx context.Context, trigger string, ids []string) (*models.BatchReport, error)
	Get(ctx context.Context, runID string) (*models.BatchReport, error)
	List(ctx context.Context, limit int) ([]*models.BatchReport, error)
	Active() []string
}

// CredentialLoader parses a credentials spreadsheet
type CredentialLoader interface {
	LoadFile(path string) ([]models.Credentials, error)
	Load(r io.Reader, name string) ([]models.Credentials, error)
}
