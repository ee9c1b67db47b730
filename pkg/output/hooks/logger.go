package hooks

import (
	"context"
	"log/slog"

	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var _ dispatcher.Hook = (*LogHook)(nil)

// LogHook writes run events as structured log records. Requests are logged
// at debug level; everything else at info.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook returns a hook logging to l (or slog.Default()).
func NewLogHook(l *slog.Logger) *LogHook {
	return &LogHook{logger: orDefault(l)}
}

// EventTypes returns nil: the hook receives every event.
func (h *LogHook) EventTypes() []events.EventType { return nil }

// OnEvent logs the event.
func (h *LogHook) OnEvent(ctx context.Context, event events.Event) error {
	log := h.logger.With(slog.String("run_id", event.RunID()))

	switch e := event.(type) {
	case *events.StartEvent:
		log.InfoContext(ctx, "run started",
			slog.Int("targets", len(e.Targets)),
			slog.String("method", e.Config.Method),
			slog.String("schedule", e.Config.Schedule),
		)
	case *events.RequestEvent:
		log.DebugContext(ctx, "request",
			slog.String("target", e.Target),
			slog.String("phase", e.Phase),
			slog.Int("index", e.Index),
			slog.String("event", string(e.Event)),
			slog.Int("status", e.Status),
			slog.Float64("latency_sec", e.Latency),
		)
	case *events.PhaseEvent:
		r := e.Result
		log.InfoContext(ctx, "phase complete",
			slog.String("target", r.Target),
			slog.String("phase", r.Phase),
			slog.Int("requests", r.Requests),
			slog.Float64("avg_latency_sec", r.AverageLatency),
			slog.Any("events", r.EventCounts),
			slog.Any("waf", r.Vendors()),
		)
	case *events.VerdictEvent:
		log.InfoContext(ctx, "target scored",
			slog.String("target", e.Target),
			slog.Int("score", e.Verdict.Score),
			slog.String("dominant_event", string(e.Verdict.DominantEvent)),
			slog.Bool("protected", e.Verdict.Protected),
		)
	case *events.SummaryEvent:
		log.InfoContext(ctx, "run summary",
			slog.Int("protected", e.Protected),
			slog.Int("total", e.Total),
			slog.Duration("duration", e.Duration),
		)
	case *events.CompleteEvent:
		log.InfoContext(ctx, "run complete",
			slog.Int("exit_code", e.ExitCode),
			slog.String("reason", e.ExitReason),
		)
	}
	return nil
}
