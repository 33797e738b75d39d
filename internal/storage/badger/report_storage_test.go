package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/models"
)

func newTestStorage(t *testing.T) *ReportStorage {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger().WithWriters([]writers.IWriter{}), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	storage := NewReportStorage(db, arbor.NewLogger().WithWriters([]writers.IWriter{}))
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func sampleReport(runID string, started time.Time) *models.BatchReport {
	report := &models.BatchReport{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Trigger:    "cli",
		Results: []models.ProfileResult{
			{ProfileID: "p1", Success: true, Attempts: 1, Report: &models.FinanceReport{ProfileID: "p1", OnHold: "$1.00"}},
			{ProfileID: "p2", Skipped: true, Attempts: 1, Message: "skipped"},
		},
	}
	report.Tally()
	return report
}

func TestReportStorage_SaveAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

	require.NoError(t, storage.SaveReport(ctx, sampleReport("run-1", started)))

	got, err := storage.GetReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 1, got.Skipped)
	require.Len(t, got.Results, 2)
	require.NotNil(t, got.Results[0].Report)
	assert.Equal(t, "$1.00", got.Results[0].Report.OnHold)
}

func TestReportStorage_SaveReplaces(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	report := sampleReport("run-1", time.Now())
	require.NoError(t, storage.SaveReport(ctx, report))

	report.Trigger = "schedule"
	require.NoError(t, storage.SaveReport(ctx, report))

	got, err := storage.GetReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "schedule", got.Trigger)

	all, err := storage.ListReports(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReportStorage_GetMissing(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.GetReport(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrReportNotFound)
}

func TestReportStorage_ListNewestFirst(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-b", "run-c", "run-a"} {
		require.NoError(t, storage.SaveReport(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour))))
	}

	reports, err := storage.ListReports(ctx, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "run-a", reports[0].RunID)
	assert.Equal(t, "run-c", reports[1].RunID)
}

func TestReportStorage_RejectsMissingRunID(t *testing.T) {
	storage := newTestStorage(t)
	assert.Error(t, storage.SaveReport(context.Background(), &models.BatchReport{}))
}

func TestNewBadgerDB_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "history")

	db, err := NewBadgerDB(arbor.NewLogger().WithWriters([]writers.IWriter{}), &common.BadgerConfig{Path: path, ResetOnStartup: true})
	require.NoError(t, err)
	storage := NewReportStorage(db, arbor.NewLogger().WithWriters([]writers.IWriter{}))
	require.NoError(t, storage.SaveReport(context.Background(), sampleReport("run-1", time.Now())))
	require.NoError(t, storage.Close())

	db, err = NewBadgerDB(arbor.NewLogger().WithWriters([]writers.IWriter{}), &common.BadgerConfig{Path: path})
	require.NoError(t, err)
	defer db.Close()

	got, err := NewReportStorage(db, arbor.NewLogger().WithWriters([]writers.IWriter{})).GetReport(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
}
