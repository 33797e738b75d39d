package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ReportStorage implements interfaces.ReportStorage
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.ReportStorage = (*ReportStorage)(nil)

func NewReportStorage(db *BadgerDB, logger arbor.ILogger) *ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

// SaveReport inserts or replaces the report for its run ID
func (s *ReportStorage) SaveReport(ctx context.Context, report *models.BatchReport) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("report must have a run ID")
	}
	if err := s.db.Store().Upsert(report.RunID, report); err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.RunID, err)
	}

	s.logger.Debug().
		Str("run_id", report.RunID).
		Int("results", len(report.Results)).
		Msg("Batch report saved")
	return nil
}

func (s *ReportStorage) GetReport(ctx context.Context, runID string) (*models.BatchReport, error) {
	var report models.BatchReport
	err := s.db.Store().Get(runID, &report)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrReportNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", runID, err)
	}
	report.RunID = runID
	return &report, nil
}

// ListReports returns up to limit reports, newest first. A non-positive limit returns all.
func (s *ReportStorage) ListReports(ctx context.Context, limit int) ([]*models.BatchReport, error) {
	var reports []models.BatchReport
	if err := s.db.Store().Find(&reports, nil); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}

	out := make([]*models.BatchReport, len(reports))
	for i := range reports {
		out[i] = &reports[i]
	}
	return out, nil
}

func (s *ReportStorage) Close() error {
	return s.db.Close()
}
