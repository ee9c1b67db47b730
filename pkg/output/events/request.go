package events

import "github.com/dvat-tool/dvat/pkg/probe"

// RequestEvent describes one probe request. It is emitted at request rate,
// so writers that persist files normally skip it.
type RequestEvent struct {
	BaseEvent
	TargetIndex int           `json:"target_index"`
	Target      string        `json:"target"`
	Phase       string        `json:"phase"`
	Index       int           `json:"index"`
	Event       probe.Event   `json:"event"`
	Status      int           `json:"status,omitzero"`
	Latency     float64       `json:"latency_sec,omitzero"`
	Failure     probe.Failure `json:"failure,omitempty"`
}

// NewRequestEvent converts a probe record for target number targetIndex.
func NewRequestEvent(runID string, targetIndex int, rec probe.Record) *RequestEvent {
	return &RequestEvent{
		BaseEvent:   newBase(EventTypeRequest, runID),
		TargetIndex: targetIndex,
		Target:      rec.Target,
		Phase:       rec.Phase,
		Index:       rec.Index,
		Event:       rec.Event,
		Status:      rec.Status,
		Latency:     rec.Latency.Seconds(),
		Failure:     rec.Failure,
	}
}
