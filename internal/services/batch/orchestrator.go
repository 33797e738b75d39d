// Package batch runs the harvest-then-fetch workflow across many profiles in
// sequential chunks of bounded parallelism.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
	"github.com/ternarybob/sellersync/internal/services/profiles"
	"golang.org/x/sync/errgroup"
)

// stopTimeout bounds the cleanup stop call, which runs even after ctx is cancelled
const stopTimeout = 15 * time.Second

// Options controls chunking, pacing and retries
type Options struct {
	ChunkSize     int
	MaxRetries    int
	Stagger       time.Duration
	RetryBackoff  time.Duration
	ChunkCooldown time.Duration
}

func NewOptions(c common.BatchConfig) Options {
	return Options{
		ChunkSize:     c.ChunkSize,
		MaxRetries:    c.MaxRetries,
		Stagger:       c.Stagger.D(),
		RetryBackoff:  c.RetryBackoff.D(),
		ChunkCooldown: c.ChunkCooldown.D(),
	}
}

// Orchestrator processes profile IDs chunk by chunk. Within a chunk every job
// runs concurrently; a later chunk starts only after the current one completes.
type Orchestrator struct {
	controller interfaces.ProfileController
	extractor  interfaces.SessionExtractor
	fetcher    interfaces.FinanceFetcher
	events     interfaces.EventService
	options    Options
	retry      RetryPolicy
	logger     arbor.ILogger
}

func NewOrchestrator(
	controller interfaces.ProfileController,
	extractor interfaces.SessionExtractor,
	fetcher interfaces.FinanceFetcher,
	events interfaces.EventService,
	options Options,
	logger arbor.ILogger,
) *Orchestrator {
	if options.ChunkSize <= 0 {
		options.ChunkSize = 3
	}
	if options.MaxRetries < 0 {
		options.MaxRetries = 0
	}
	return &Orchestrator{
		controller: controller,
		extractor:  extractor,
		fetcher:    fetcher,
		events:     events,
		options:    options,
		retry:      RetryPolicy{MaxRetries: options.MaxRetries, Backoff: options.RetryBackoff},
		logger:     logger,
	}
}

// Run processes profileIDs and returns a report whose results follow input order.
// Per-profile failures never abort the batch. If ctx is cancelled, profiles not yet
// started are recorded as failed.
func (o *Orchestrator) Run(ctx context.Context, runID string, profileIDs []string) *models.BatchReport {
	logger := o.logger.WithCorrelationId(runID)

	report := &models.BatchReport{
		RunID:     runID,
		StartedAt: time.Now(),
		Results:   make([]models.ProfileResult, len(profileIDs)),
	}
	total := len(profileIDs)
	chunks := (total + o.options.ChunkSize - 1) / o.options.ChunkSize

	logger.Info().
		Int("profiles", total).
		Int("chunk_size", o.options.ChunkSize).
		Int("chunks", chunks).
		Msg("Batch started")

	o.progress(ctx, interfaces.EventBatchStarted, models.Progress{RunID: runID, Total: total, Status: models.ProgressStarted})

	var completed atomic.Int32
	for chunk := 0; chunk < chunks; chunk++ {
		start := chunk * o.options.ChunkSize
		end := min(start+o.options.ChunkSize, total)

		if chunk > 0 {
			if err := common.SleepContext(ctx, o.options.ChunkCooldown); err != nil {
				o.abandon(report, profileIDs, start, err)
				break
			}
		}

		logger.Debug().
			Int("chunk", chunk+1).
			Int("of", chunks).
			Strs("profiles", profileIDs[start:end]).
			Msg("Chunk started")

		o.progress(ctx, interfaces.EventBatchProgress, models.Progress{
			RunID:   runID,
			Current: int(completed.Load()),
			Total:   total,
			Status:  models.ProgressChunk,
		})

		var g errgroup.Group
		for i := start; i < end; i++ {
			offset := i - start
			g.Go(func() error {
				result := o.runJob(ctx, runID, profileIDs[i], time.Duration(offset)*o.options.Stagger)
				report.Results[i] = result

				o.progress(ctx, interfaces.EventBatchProgress, models.Progress{
					RunID:     runID,
					Current:   int(completed.Add(1)),
					Total:     total,
					ProfileID: result.ProfileID,
					Status:    result.Status(),
				})
				return nil
			})
		}
		_ = g.Wait()
	}

	report.FinishedAt = time.Now()
	report.Tally()

	logger.Info().
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Batch completed")

	return report
}

// runJob waits for its stagger offset, then runs attempts under the retry policy.
// It never panics and always returns a populated result.
func (o *Orchestrator) runJob(ctx context.Context, runID, profileID string, delay time.Duration) (result models.ProfileResult) {
	logger := o.logger.WithCorrelationId(runID)
	result.ProfileID = profileID

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("profile_id", profileID).Str("panic", fmt.Sprintf("%v", r)).Msg("Job panicked")
			result.Success = false
			result.Report = nil
			result.Message = common.PanicError(r).Error()
		}
	}()

	if err := common.SleepContext(ctx, delay); err != nil {
		result.Message = fmt.Sprintf("batch cancelled: %v", err)
		return result
	}

	var report *models.FinanceReport
	attempts, err := o.retry.Execute(ctx, logger, func(attempt int) error {
		var attemptErr error
		report, attemptErr = o.attempt(ctx, logger, profileID)
		if attemptErr != nil {
			logger.Warn().
				Str("profile_id", profileID).
				Int("attempt", attempt).
				Err(attemptErr).
				Msg("Profile attempt failed")
		}
		return attemptErr
	})
	result.Attempts = attempts

	switch {
	case err == nil:
		result.Success = true
		result.Report = report
		result.Message = "ok"
	case models.IsTerminal(err):
		result.Skipped = true
		result.Message = "skipped: profile is in use by another user"
	default:
		result.Message = err.Error()
	}

	logger.Info().
		Str("profile_id", profileID).
		Bool("success", result.Success).
		Bool("skipped", result.Skipped).
		Int("attempts", attempts).
		Msg("Profile job finished")

	return result
}

// attempt is one start, extract, stop, fetch pass. The profile is stopped as soon
// as extraction ends and again, as a no-op, on every other exit path.
func (o *Orchestrator) attempt(ctx context.Context, logger arbor.ILogger, profileID string) (report *models.FinanceReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.PanicError(r)
		}
	}()

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
			defer cancel()
			o.controller.Stop(stopCtx, profileID)
		})
	}

	handle, err := profiles.Acquire(ctx, o.controller, logger, profileID)
	if err != nil {
		// A denied profile belongs to someone else and must be left alone
		if !models.IsTerminal(err) {
			stop()
		}
		return nil, err
	}
	defer stop()

	session, err := o.extractor.Extract(ctx, handle)
	stop()
	if err != nil {
		return nil, fmt.Errorf("extract session: %w", err)
	}

	report, err = o.fetcher.Fetch(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("fetch finance data: %w", err)
	}
	return report, nil
}

// abandon marks every profile from index start onwards as not run
func (o *Orchestrator) abandon(report *models.BatchReport, profileIDs []string, start int, cause error) {
	for i := start; i < len(profileIDs); i++ {
		report.Results[i] = models.ProfileResult{
			ProfileID: profileIDs[i],
			Message:   fmt.Sprintf("batch cancelled: %v", cause),
		}
	}
}

func (o *Orchestrator) progress(ctx context.Context, eventType interfaces.EventType, p models.Progress) {
	if o.events == nil {
		return
	}
	if err := o.events.PublishSync(context.WithoutCancel(ctx), interfaces.Event{Type: eventType, Payload: p}); err != nil {
		o.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Progress handler failed")
	}
}
