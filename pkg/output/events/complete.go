package events

// CompleteEvent is emitted when a run finishes.
// It indicates the final status and exit code of the run,
// with an optional reference to the summary for detailed results.
type CompleteEvent struct {
	BaseEvent
	Success    bool          `json:"success"`
	ExitCode   int           `json:"exit_code"`
	ExitReason string        `json:"exit_reason"`
	Summary    *SummaryEvent `json:"summary,omitempty"`
}

// NewCompleteEvent creates a completion event.
func NewCompleteEvent(runID string, exitCode int, reason string, summary *SummaryEvent) *CompleteEvent {
	return &CompleteEvent{
		BaseEvent:  newBase(EventTypeComplete, runID),
		Success:    exitCode == 0,
		ExitCode:   exitCode,
		ExitReason: reason,
		Summary:    summary,
	}
}
