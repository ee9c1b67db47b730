package events

import (
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/scoring"
)

// VerdictEvent carries the scored outcome of one target along with both
// phases it was derived from.
type VerdictEvent struct {
	BaseEvent
	TargetIndex int               `json:"target_index"`
	TargetTotal int               `json:"target_total"`
	Target      string            `json:"target"`
	Verdict     scoring.Verdict   `json:"verdict"`
	WAF         []string          `json:"waf"`
	Baseline    probe.PhaseResult `json:"baseline"`
	Stress      probe.PhaseResult `json:"stress"`
}

// NewVerdictEvent creates a verdict event. WAF lists the vendors seen during
// the stress phase.
func NewVerdictEvent(runID string, targetIndex, targetTotal int, target string, v scoring.Verdict, baseline, stress probe.PhaseResult) *VerdictEvent {
	return &VerdictEvent{
		BaseEvent:   newBase(EventTypeVerdict, runID),
		TargetIndex: targetIndex,
		TargetTotal: targetTotal,
		Target:      target,
		Verdict:     v,
		WAF:         stress.Vendors(),
		Baseline:    baseline,
		Stress:      stress,
	}
}
