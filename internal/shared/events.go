package shared

import (
	"context"
	"time"
)

// Domain event types published to the event bus.
const (
	EventBookingSubmitted     = "booking.submitted"
	EventRequestStatusChanged = "request.status_changed"
	EventCouponRedeemed       = "coupon.redeemed"
)

// Event is the envelope written to the bus. Key orders events of the same
// aggregate (the request id).
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// EventPublisher delivers domain events. Publishing happens after commit and
// is best effort: a failure is logged, never rolled back.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NewEvent stamps an event with the current time.
func NewEvent(eventType, key string, payload interface{}) Event {
	return Event{
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
