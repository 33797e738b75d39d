package interfaces

import (
	"context"

	"github.com/ternarybob/sellersync/internal/models"
)

// ReportStorage persists batch run reports. Credentials are never stored.
type ReportStorage interface {
	SaveReport(ctx context.Context, report *models.BatchReport) error
	GetReport(ctx context.Context, runID string) (*models.BatchReport, error)
	// ListReports returns up to limit reports, newest first
	ListReports(ctx context.Context, limit int) ([]*models.BatchReport, error)
	Close() error
}
