// Package events defines the event types emitted during an assessment run.
// All events are designed for JSON serialization and embed BaseEvent.
package events

import (
	"time"
)

// EventType represents the type of output event.
type EventType string

const (
	// EventTypeStart indicates a run has started.
	EventTypeStart EventType = "start"
	// EventTypeRequest indicates a single probe request completed.
	EventTypeRequest EventType = "request"
	// EventTypePhase indicates a baseline or stress phase finished.
	EventTypePhase EventType = "phase"
	// EventTypeVerdict indicates a target has been scored.
	EventTypeVerdict EventType = "verdict"
	// EventTypeSummary indicates the run-level protected count.
	EventTypeSummary EventType = "summary"
	// EventTypeComplete indicates a run has completed.
	EventTypeComplete EventType = "complete"
)

// AllEventTypes returns every event type in emission order.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeStart,
		EventTypeRequest,
		EventTypePhase,
		EventTypeVerdict,
		EventTypeSummary,
		EventTypeComplete,
	}
}

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	RunID() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"timestamp"`
	Run  string    `json:"run_id"`
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// RunID returns the identifier of the run that produced this event.
func (e BaseEvent) RunID() string { return e.Run }

func newBase(t EventType, runID string) BaseEvent {
	return BaseEvent{Type: t, Time: time.Now(), Run: runID}
}
