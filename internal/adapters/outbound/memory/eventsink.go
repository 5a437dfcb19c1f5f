// eventsink.go provides an in-memory implementation of EventSink.
//
// This adapter stores all published events in memory. It backs tests and the
// local development mode of the server, where no SNS topic exists.
// All operations are thread-safe.
package memory

import (
	"context"
	"sync"

	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that EventSink implements outbound.EventSink
var _ outbound.EventSink = (*EventSink)(nil)

// EventSink is an in-memory implementation of the EventSink port.
// It stores all published events for later inspection.
type EventSink struct {
	mu     sync.RWMutex
	events []outbound.VerificationEvent
	closed bool

	// Callback for test assertions
	onPublish func(outbound.VerificationEvent)
}

// NewEventSink creates a new in-memory event sink.
func NewEventSink() *EventSink {
	return &EventSink{
		events: make([]outbound.VerificationEvent, 0),
	}
}

// Publish stores the event in memory.
func (s *EventSink) Publish(_ context.Context, event outbound.VerificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.events = append(s.events, event)

	if s.onPublish != nil {
		s.onPublish(event)
	}

	return nil
}

// Close marks the sink as closed.
func (s *EventSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// GetEvents returns all published events.
func (s *EventSink) GetEvents() []outbound.VerificationEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]outbound.VerificationEvent, len(s.events))
	copy(result, s.events)
	return result
}

// GetEventsByType returns events filtered by type.
func (s *EventSink) GetEventsByType(eventType outbound.VerificationEventType) []outbound.VerificationEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]outbound.VerificationEvent, 0)
	for _, e := range s.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// GetEventCount returns the number of published events.
func (s *EventSink) GetEventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Clear removes all stored events.
func (s *EventSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make([]outbound.VerificationEvent, 0)
}

// OnPublish sets a callback to be called when an event is published.
func (s *EventSink) OnPublish(fn func(outbound.VerificationEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPublish = fn
}
