// Package scoring turns a baseline and a stress phase into a risk verdict.
//
// The score is an additive union of independent defence signals, capped at
// defaults.MaxRiskScore. It is coarse on purpose: every point can be traced
// to one Signal in the verdict.
package scoring

import (
	"fmt"

	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/probe"
)

// Signal is one triggered score contribution.
type Signal struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// Verdict is the assessment of one target.
type Verdict struct {
	Score         int         `json:"score"`
	DominantEvent probe.Event `json:"dominant_event"`
	Protected     bool        `json:"protected"`
	Signals       []Signal    `json:"signals"`
}

// rule is evaluated against a phase pair; ok reports whether it fired.
type rule struct {
	name   string
	points int
	check  func(base, stress probe.PhaseResult) (reason string, ok bool)
}

// rules run in this order, which is also the order of Verdict.Signals.
var rules = []rule{
	{
		name:   "rate_limit",
		points: 40,
		check: func(_, s probe.PhaseResult) (string, bool) {
			n := s.EventCounts.Get(probe.RateLimit)
			return fmt.Sprintf("%d rate-limited responses under stress", n), n > 0
		},
	},
	{
		name:   "waf_block",
		points: 40,
		check: func(_, s probe.PhaseResult) (string, bool) {
			n := s.EventCounts.Get(probe.WAFBlock)
			return fmt.Sprintf("%d blocked responses under stress", n), n > 0
		},
	},
	{
		name:   "timeout_growth",
		points: 30,
		check: func(b, s probe.PhaseResult) (string, bool) {
			bn, sn := b.EventCounts.Get(probe.Timeout), s.EventCounts.Get(probe.Timeout)
			return fmt.Sprintf("timeouts rose from %d to %d", bn, sn), sn > bn
		},
	},
	{
		name:   "latency_degradation",
		points: 20,
		check: func(b, s probe.PhaseResult) (string, bool) {
			if b.AverageLatency <= 0 {
				return "", false
			}
			ratio := s.AverageLatency / b.AverageLatency
			return fmt.Sprintf("average latency %.3fs -> %.3fs (x%.1f)", b.AverageLatency, s.AverageLatency, ratio),
				s.AverageLatency > defaults.LatencyDegradationFactor*b.AverageLatency
		},
	},
}

// MaxPoints returns the uncapped sum of all rule points.
func MaxPoints() int {
	total := 0
	for _, r := range rules {
		total += r.points
	}
	return total
}

// Score compares the two phases of one target. It is pure: equal inputs
// always produce equal verdicts.
func Score(baseline, stress probe.PhaseResult) Verdict {
	v := Verdict{
		DominantEvent: stress.EventCounts.Dominant(),
		Signals:       []Signal{},
	}

	for _, r := range rules {
		reason, ok := r.check(baseline, stress)
		if !ok {
			continue
		}
		v.Score += r.points
		v.Signals = append(v.Signals, Signal{Name: r.name, Points: r.points, Reason: reason})
	}
	if v.Score > defaults.MaxRiskScore {
		v.Score = defaults.MaxRiskScore
	}

	v.Protected = v.DominantEvent.Defensive()
	return v
}

// Label renders the protection outcome for humans.
func (v Verdict) Label() string {
	if v.Protected {
		return "NOT VULNERABLE"
	}
	return "POTENTIALLY VULNERABLE"
}
