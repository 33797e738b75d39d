package batch

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/models"
)

// RetryPolicy is a bounded retry loop with a fixed backoff.
// MaxRetries counts extra attempts after the first.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// ShouldRetry reports whether another attempt is allowed after attempt (1-based) failed with err
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if err == nil || models.IsTerminal(err) {
		return false
	}
	return attempt <= p.MaxRetries
}

// Execute runs fn until it succeeds, fails terminally, or the budget is spent.
// It returns the number of attempts made and the last error.
func (p RetryPolicy) Execute(ctx context.Context, logger arbor.ILogger, fn func(attempt int) error) (int, error) {
	attempt := 0
	for {
		attempt++
		err := fn(attempt)
		if !p.ShouldRetry(attempt, err) {
			if err != nil && models.IsTerminal(err) {
				logger.Debug().
					Int("attempt", attempt).
					Err(err).
					Msg("Terminal error, not retrying")
			}
			return attempt, err
		}

		logger.Info().
			Int("attempt", attempt).
			Int("max_retries", p.MaxRetries).
			Dur("backoff", p.Backoff).
			Err(err).
			Msg("Attempt failed, retrying after backoff")

		if sleepErr := common.SleepContext(ctx, p.Backoff); sleepErr != nil {
			return attempt, err
		}
	}
}
