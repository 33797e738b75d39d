package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case models.Progress:
			logEvent = logEvent.
				Str("run_id", payload.RunID).
				Int("current", payload.Current).
				Int("total", payload.Total).
				Str("status", payload.Status)
			if payload.ProfileID != "" {
				logEvent = logEvent.Str("profile_id", payload.ProfileID)
			}
		case *models.BatchReport:
			logEvent = logEvent.
				Str("run_id", payload.RunID).
				Int("succeeded", payload.Succeeded).
				Int("failed", payload.Failed).
				Int("skipped", payload.Skipped)
		case models.LoginResult:
			logEvent = logEvent.
				Str("profile_id", payload.ProfileID).
				Str("kind", string(payload.Kind))
		}

		logEvent.Msg("Event published")
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	for _, eventType := range interfaces.AllEventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(interfaces.AllEventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
