package hooks

import (
	"time"

	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/scoring"
	"github.com/dvat-tool/dvat/pkg/waf"
)

const testRun = "run-test"

func testPhase(label string, counts probe.Counts, avg float64) probe.PhaseResult {
	return probe.PhaseResult{
		Phase:          label,
		Target:         "https://example.com/",
		Requests:       counts.Total(),
		Started:        time.Now().Add(-time.Second),
		Elapsed:        time.Second,
		AverageLatency: avg,
		Latencies:      []float64{avg},
		EventCounts:    counts,
		WAFVendors:     waf.NewVendors(waf.Cloudflare),
	}
}

func testVerdict() *events.VerdictEvent {
	base := testPhase(probe.Baseline, probe.Counts{probe.Allowed: 4}, 0.1)
	stress := testPhase(probe.Stress, probe.Counts{probe.RateLimit: 15, probe.Allowed: 5}, 0.3)
	return events.NewVerdictEvent(testRun, 1, 1, "https://example.com/", scoring.Score(base, stress), base, stress)
}

func testSummary(v *events.VerdictEvent) *events.SummaryEvent {
	return events.NewSummaryEvent(testRun, []events.TargetSummary{{
		Target:        v.Target,
		Score:         v.Verdict.Score,
		DominantEvent: v.Verdict.DominantEvent,
		Protected:     v.Verdict.Protected,
		WAF:           v.WAF,
	}}, 2*time.Second)
}
