package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventBatchStarted carries a models.Progress with Current=0
	EventBatchStarted EventType = "batch_started"
	// EventBatchProgress carries a models.Progress at chunk start and per job completion
	EventBatchProgress EventType = "batch_progress"
	// EventBatchCompleted carries the final *models.BatchReport
	EventBatchCompleted EventType = "batch_completed"
	// EventLoginCompleted carries a models.LoginResult
	EventLoginCompleted EventType = "login_completed"
)

// AllEventTypes lists every event type published by the services
var AllEventTypes = []EventType{
	EventBatchStarted,
	EventBatchProgress,
	EventBatchCompleted,
	EventLoginCompleted,
}

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Unsubscribe from an event type
	Unsubscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
