// Package runs starts batch runs, records their reports and publishes completion.
package runs

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

// Orchestrator is the batch engine a run drives
type Orchestrator interface {
	Run(ctx context.Context, runID string, profileIDs []string) *models.BatchReport
}

// Triggers recorded on reports
const (
	TriggerCLI      = "cli"
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// Service owns run identity and history. Storage is optional.
// At most one run executes at a time; overlapping requests fail with models.ErrRunActive.
type Service struct {
	orchestrator Orchestrator
	controller   interfaces.ProfileController
	storage      interfaces.ReportStorage
	events       interfaces.EventService
	logger       arbor.ILogger

	mu     sync.Mutex
	active map[string]string // runID -> trigger
	wg     sync.WaitGroup
}

func NewService(
	orchestrator Orchestrator,
	controller interfaces.ProfileController,
	storage interfaces.ReportStorage,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		orchestrator: orchestrator,
		controller:   controller,
		storage:      storage,
		events:       events,
		logger:       logger,
		active:       make(map[string]string),
	}
}

// resolve returns ids unchanged, or every profile known to the control plane when ids is empty
func (s *Service) resolve(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) > 0 {
		return ids, nil
	}

	descriptors, err := s.controller.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	all := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if d.ID != "" {
			all = append(all, d.ID)
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("control plane reports no profiles")
	}
	return all, nil
}

// RunSync runs a batch to completion and returns its report
func (s *Service) RunSync(ctx context.Context, trigger string, ids []string) (*models.BatchReport, error) {
	profileIDs, err := s.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := s.reserve(runID, trigger); err != nil {
		return nil, err
	}
	return s.execute(ctx, runID, trigger, profileIDs), nil
}

// Start launches a batch in the background and returns its run ID.
// Progress and completion are delivered through the event service.
func (s *Service) Start(ctx context.Context, trigger string, ids []string) (string, error) {
	profileIDs, err := s.resolve(ctx, ids)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	if err := s.reserve(runID, trigger); err != nil {
		return "", err
	}
	runCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	common.SafeGo(s.logger, "batch-run-"+runID, func() {
		defer s.wg.Done()
		s.execute(runCtx, runID, trigger, profileIDs)
	})
	return runID, nil
}

// Active returns the run IDs currently executing
func (s *Service) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

// Wait blocks until every background run has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// Get returns a stored report
func (s *Service) Get(ctx context.Context, runID string) (*models.BatchReport, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("run history is not enabled")
	}
	return s.storage.GetReport(ctx, runID)
}

// List returns up to limit stored reports, newest first
func (s *Service) List(ctx context.Context, limit int) ([]*models.BatchReport, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.ListReports(ctx, limit)
}

// reserve claims the single run slot for runID
func (s *Service) reserve(runID, trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.active) > 0 {
		s.logger.Warn().Str("trigger", trigger).Msg("Run rejected, another run is in progress")
		return models.ErrRunActive
	}
	s.active[runID] = trigger
	return nil
}

// execute runs a batch whose slot was claimed by reserve
func (s *Service) execute(ctx context.Context, runID, trigger string, profileIDs []string) *models.BatchReport {
	logger := s.logger.WithCorrelationId(runID)

	defer func() {
		s.mu.Lock()
		delete(s.active, runID)
		s.mu.Unlock()
	}()

	logger.Info().
		Str("trigger", trigger).
		Int("profiles", len(profileIDs)).
		Msg("Run started")

	report := s.orchestrator.Run(ctx, runID, profileIDs)
	report.Trigger = trigger

	if s.storage != nil {
		if err := s.storage.SaveReport(context.WithoutCancel(ctx), report); err != nil {
			logger.Error().Err(err).Msg("Failed to save run report")
		}
	}

	if s.events != nil {
		event := interfaces.Event{Type: interfaces.EventBatchCompleted, Payload: report}
		if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish run completion")
		}
	}

	return report
}
