package events

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type subscription struct {
	id      int
	types   map[string]bool
	handler Handler
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

// InMemoryEventStore keeps the fulfillment event log for the lifetime of the process.
// Handlers are dispatched asynchronously; Wait blocks until they have drained.
type InMemoryEventStore struct {
	mu            sync.RWMutex
	log           []Event
	versions      map[string]int
	subscriptions []subscription
	nextID        int
	inflight      sync.WaitGroup
	logger        *zap.Logger
}

var _ EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventStore{
		versions: make(map[string]int),
		logger:   logger.Named("event_store"),
	}
}

func (s *InMemoryEventStore) Append(ctx context.Context, event Event) (Event, error) {
	if event.Type == "" || event.StreamID == "" {
		return Event{}, fmt.Errorf("event type and stream id are required")
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() && event.TraceID == "" {
		event.TraceID = sc.TraceID().String()
	}

	s.mu.Lock()
	s.versions[event.StreamID]++
	event.Version = s.versions[event.StreamID]
	event.Position = len(s.log)
	s.log = append(s.log, event)

	var targets []Handler
	for _, sub := range s.subscriptions {
		if sub.wants(event.Type) {
			targets = append(targets, sub.handler)
		}
	}
	s.inflight.Add(len(targets))
	s.mu.Unlock()

	for _, handler := range targets {
		go s.dispatch(handler, event)
	}
	return event, nil
}

// Stream returns the events of one stream starting at fromVersion (1-based)
func (s *InMemoryEventStore) Stream(streamID string, fromVersion int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, event := range s.log {
		if event.StreamID == streamID && event.Version >= fromVersion {
			out = append(out, event)
		}
	}
	return out
}

// Since returns every event at or after position
func (s *InMemoryEventStore) Since(position int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if position < 0 {
		position = 0
	}
	if position >= len(s.log) {
		return nil
	}
	return append([]Event(nil), s.log[position:]...)
}

func (s *InMemoryEventStore) Subscribe(handler Handler, eventTypes ...string) func() {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscriptions = append(s.subscriptions, subscription{id: id, types: types, handler: handler})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscriptions {
			if sub.id == id {
				s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
				return
			}
		}
	}
}

// Wait blocks until every handler dispatched so far has returned
func (s *InMemoryEventStore) Wait() {
	s.inflight.Wait()
}

func (s *InMemoryEventStore) dispatch(handler Handler, event Event) {
	defer s.inflight.Done()
	if err := handler(event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", event.Type),
			zap.String("stream_id", event.StreamID),
			zap.Error(err))
	}
}
