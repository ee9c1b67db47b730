package events

import "github.com/dvat-tool/dvat/pkg/probe"

// PhaseEvent is emitted when one phase of a target finishes.
type PhaseEvent struct {
	BaseEvent
	TargetIndex int               `json:"target_index"`
	TargetTotal int               `json:"target_total"`
	Result      probe.PhaseResult `json:"result"`
}

// NewPhaseEvent creates a phase event. targetIndex is 1-based.
func NewPhaseEvent(runID string, targetIndex, targetTotal int, res probe.PhaseResult) *PhaseEvent {
	return &PhaseEvent{
		BaseEvent:   newBase(EventTypePhase, runID),
		TargetIndex: targetIndex,
		TargetTotal: targetTotal,
		Result:      res,
	}
}
