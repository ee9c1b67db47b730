package events

import (
	"time"

	"github.com/dvat-tool/dvat/pkg/probe"
)

// SummaryEvent is the run-level tally.
type SummaryEvent struct {
	BaseEvent
	Total     int             `json:"total"`
	Protected int             `json:"protected"`
	Targets   []TargetSummary `json:"targets"`
	Duration  time.Duration   `json:"duration,format:nano"`
}

// TargetSummary is one row of the summary table.
type TargetSummary struct {
	Target        string      `json:"target"`
	Score         int         `json:"score"`
	DominantEvent probe.Event `json:"dominant_event"`
	Protected     bool        `json:"protected"`
	WAF           []string    `json:"waf"`
}

// Vulnerable returns how many targets were not classified protected.
func (s *SummaryEvent) Vulnerable() int { return s.Total - s.Protected }

// NewSummaryEvent creates a summary event.
func NewSummaryEvent(runID string, targets []TargetSummary, elapsed time.Duration) *SummaryEvent {
	s := &SummaryEvent{
		BaseEvent: newBase(EventTypeSummary, runID),
		Total:     len(targets),
		Targets:   targets,
		Duration:  elapsed,
	}
	for _, t := range targets {
		if t.Protected {
			s.Protected++
		}
	}
	return s
}
