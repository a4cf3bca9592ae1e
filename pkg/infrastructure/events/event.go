package events

import (
	"context"
	"time"
)

// Event is an immutable fact recorded against one stream, either an order id or an
// ingredient id. Version, Position and TraceID are assigned by the store on append.
type Event struct {
	Type       string    `json:"type"`
	StreamID   string    `json:"stream_id"`
	Version    int       `json:"version"`
	Position   int       `json:"position"`
	OccurredAt time.Time `json:"occurred_at"`
	TraceID    string    `json:"trace_id,omitempty"`
	Data       any       `json:"data"`
}

// Handler receives events after they are committed. Handlers run off the caller's goroutine.
type Handler func(Event) error

type EventStore interface {
	Append(ctx context.Context, event Event) (Event, error)
	Stream(streamID string, fromVersion int) []Event
	Since(position int) []Event
	// Subscribe registers handler for the given types, or for every type when none are
	// given. The returned func removes the subscription.
	Subscribe(handler Handler, eventTypes ...string) (unsubscribe func())
}

func newEvent(eventType, streamID string, data any) Event {
	return Event{
		Type:       eventType,
		StreamID:   streamID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}
