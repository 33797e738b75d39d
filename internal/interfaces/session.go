package interfaces

import (
	"context"

	"github.com/ternarybob/sellersync/internal/models"
)

// SessionExtractor harvests seller identifiers and cookies from a running profile
type SessionExtractor interface {
	Extract(ctx context.Context, handle models.ProfileHandle) (*models.HarvestedSession, error)
}

// FinanceFetcher replays a harvested session against the finance APIs
type FinanceFetcher interface {
	Fetch(ctx context.Context, session *models.HarvestedSession) (*models.FinanceReport, error)
}
