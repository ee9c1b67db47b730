// Package assess runs the baseline and stress phases against each target,
// scores them, and reports the outcome through an event sink.
package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/pacing"
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/request"
	"github.com/dvat-tool/dvat/pkg/runner"
	"github.com/dvat-tool/dvat/pkg/scoring"
)

// ErrCancelled marks a target whose phases were cut short. It is not scored.
var ErrCancelled = errors.New("assess: target cancelled")

// Sink receives run events. *dispatcher.Dispatcher satisfies it.
type Sink interface {
	Dispatch(ctx context.Context, event events.Event) error
}

// PhaseConfig is the traffic shape of one phase.
type PhaseConfig struct {
	Duration time.Duration
	// Rate is requests per second.
	Rate float64
}

// Assessor probes a list of targets with one request template.
type Assessor struct {
	Client      probe.Doer
	Template    request.Template
	Credentials request.Credentials

	Baseline PhaseConfig
	Stress   PhaseConfig
	Policy   pacing.Policy

	// Concurrency bounds how many targets run at once. Phases of one
	// target always run baseline first, then stress.
	Concurrency int

	// Sink receives phase, verdict and summary events. Nil drops them.
	Sink  Sink
	RunID string

	// EmitRequests also sends one RequestEvent per probe request.
	EmitRequests bool

	Logger *slog.Logger
}

// TargetResult is the outcome for one target.
type TargetResult struct {
	// Index is the 1-based position in the input list.
	Index    int
	URL      string
	Baseline probe.PhaseResult
	Stress   probe.PhaseResult
	Verdict  scoring.Verdict
	// Err is non-nil when the target was not scored.
	Err error
}

// Assessed reports whether the target completed both phases.
func (t TargetResult) Assessed() bool { return t.Err == nil }

// Report is the outcome of a whole run.
type Report struct {
	Targets   []TargetResult
	Total     int
	Protected int
	Skipped   int
	Elapsed   time.Duration
	// Summary is the event emitted at the end of Run.
	Summary *events.SummaryEvent
}

// Vulnerable returns how many assessed targets were not protected.
func (r Report) Vulnerable() int { return r.Total - r.Protected }

func (a *Assessor) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Assessor) emit(ctx context.Context, e events.Event) {
	if a.Sink == nil {
		return
	}
	if err := a.Sink.Dispatch(ctx, e); err != nil {
		a.logger().Warn("event dropped", slog.String("type", string(e.EventType())), slog.String("error", err.Error()))
	}
}

// Run assesses targets and returns one TargetResult per target, in input
// order. No new target starts once ctx is done; targets that were cut
// short or never started carry an error and are left out of the totals.
func (a *Assessor) Run(ctx context.Context, targets []string) Report {
	start := time.Now()
	total := len(targets)

	r := runner.NewRunner[TargetResult]()
	if a.Concurrency > 0 {
		r.Concurrency = a.Concurrency
	}
	r.OnProgress = func(completed, total int64, res runner.Result[TargetResult]) {
		a.logger().Debug("target finished",
			slog.String("target", res.Target),
			slog.Int64("completed", completed),
			slog.Int64("total", total),
			slog.Duration("took", res.Duration),
		)
	}

	results := r.Run(ctx, targets, func(ctx context.Context, i int, url string) (TargetResult, error) {
		res := a.assessTarget(ctx, i+1, total, url)
		return res, res.Err
	})

	report := Report{Targets: make([]TargetResult, 0, total)}
	summary := make([]events.TargetSummary, 0, total)
	for _, res := range results {
		tr := res.Data
		if errors.Is(res.Error, runner.ErrNotStarted) {
			tr = TargetResult{Index: res.Index + 1, URL: res.Target, Err: fmt.Errorf("%w: %w", ErrCancelled, res.Error)}
		}
		report.Targets = append(report.Targets, tr)

		if !tr.Assessed() {
			report.Skipped++
			continue
		}
		report.Total++
		if tr.Verdict.Protected {
			report.Protected++
		}
		summary = append(summary, events.TargetSummary{
			Target:        tr.URL,
			Score:         tr.Verdict.Score,
			DominantEvent: tr.Verdict.DominantEvent,
			Protected:     tr.Verdict.Protected,
			WAF:           tr.Stress.Vendors(),
		})
	}
	report.Elapsed = time.Since(start)

	report.Summary = events.NewSummaryEvent(a.RunID, summary, report.Elapsed)
	a.emit(ctx, report.Summary)
	a.logger().Info("assessment complete",
		slog.Int("protected", report.Protected),
		slog.Int("total", report.Total),
		slog.Int("skipped", report.Skipped),
	)
	return report
}

// assessTarget runs both phases for target number index (1-based).
func (a *Assessor) assessTarget(ctx context.Context, index, total int, url string) TargetResult {
	log := a.logger().With(slog.String("target", url), slog.Int("index", index))
	res := TargetResult{Index: index, URL: url}

	pr := &probe.Runner{Client: a.Client, Logger: a.Logger}
	if a.EmitRequests && a.Sink != nil {
		pr.OnRequest = func(rec probe.Record) {
			a.emit(ctx, events.NewRequestEvent(a.RunID, index, rec))
		}
	}

	tmpl := a.Template.ForTarget(url)
	phase := func(label string, cfg PhaseConfig) probe.Phase {
		return probe.Phase{
			Label:       label,
			Template:    tmpl,
			Credentials: a.Credentials,
			Duration:    cfg.Duration,
			Rate:        cfg.Rate,
			Policy:      a.Policy,
		}
	}

	log.Info("baseline phase", slog.Duration("duration", a.Baseline.Duration), slog.Float64("rate", a.Baseline.Rate))
	res.Baseline = pr.Run(ctx, phase(probe.Baseline, a.Baseline))
	a.emit(ctx, events.NewPhaseEvent(a.RunID, index, total, res.Baseline))
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrCancelled, err)
		return res
	}

	log.Info("stress phase", slog.Duration("duration", a.Stress.Duration), slog.Float64("rate", a.Stress.Rate))
	res.Stress = pr.Run(ctx, phase(probe.Stress, a.Stress))
	a.emit(ctx, events.NewPhaseEvent(a.RunID, index, total, res.Stress))
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrCancelled, err)
		return res
	}

	res.Verdict = scoring.Score(res.Baseline, res.Stress)
	a.emit(ctx, events.NewVerdictEvent(a.RunID, index, total, url, res.Verdict, res.Baseline, res.Stress))
	return res
}
