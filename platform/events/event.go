// Package events carries lead and hold lifecycle notifications (inbound pass
// finished, hold created or released, deposit link failed) from the booking
// engine to side consumers such as staff alerts. Publishers never depend on a
// consumer succeeding.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every lifecycle notification.
type Event interface {
	// EventName is the subscription key, e.g. "holds.confirmed".
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events. ID lets consumers drop repeats
// when the same pass publishes twice after a retry.
type BaseEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a fresh id and the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.NewString(), Timestamp: time.Now().UTC()}
}

// Handler reacts to one event. A returned error is logged by the bus and
// never reaches the publisher.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus fans events out to subscribers keyed by EventName.
type Bus interface {
	// Publish dispatches asynchronously; the inbound pass does not wait.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers inline and joins their errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
