package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/duration"
	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.ShutdownHook = (*OTelHook)(nil)

// OTelHook exports run telemetry as traces: one root span per run and one
// child span per target, with each finished phase recorded as a span event.
type OTelHook struct {
	opts           OTelOptions
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	mu       sync.Mutex
	rootSpan trace.Span
	rootCtx  context.Context
	targets  map[int]trace.Span
	closed   bool
}

// OTelOptions configures the OpenTelemetry hook behavior.
type OTelOptions struct {
	// Endpoint is the OTLP gRPC endpoint (default: "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "dvat").
	ServiceName string

	// Insecure uses a plaintext connection.
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout bounds the final flush (default: 5s).
	ShutdownTimeout time.Duration

	// ConnectionTimeout bounds exporter creation (default: 10s).
	ConnectionTimeout time.Duration

	// Exporter overrides the OTLP exporter, mainly for tests.
	Exporter sdktrace.SpanExporter
}

// NewOTelHook creates a hook exporting to the configured endpoint. The
// gRPC connection is established lazily, so an unreachable collector does
// not delay the run.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = defaults.OTelEndpoint
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = duration.ExporterShutdown
	}
	if opts.ConnectionTimeout == 0 {
		opts.ConnectionTimeout = duration.ExporterConnect
	}

	exporter := opts.Exporter
	if exporter == nil {
		exporterOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(opts.Endpoint),
		}
		if opts.Insecure {
			exporterOpts = append(exporterOpts,
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		if len(opts.Headers) > 0 {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
		}

		ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
		defer cancel()

		var err error
		exporter, err = otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("otel: create exporter: %w", err)
		}
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return &OTelHook{
		opts:           opts,
		tracerProvider: tp,
		tracer:         tp.Tracer(defaults.ToolName + "/assess"),
		targets:        make(map[int]trace.Span),
	}, nil
}

// OnEvent processes events and exports telemetry to the OpenTelemetry collector.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		h.handleStart(ctx, e)
	case *events.PhaseEvent:
		h.handlePhase(e)
	case *events.VerdictEvent:
		h.handleVerdict(e)
	case *events.SummaryEvent:
		h.handleSummary(e)
	case *events.CompleteEvent:
		h.handleComplete(e)
	}
	return nil
}

func (h *OTelHook) handleStart(ctx context.Context, start *events.StartEvent) {
	h.rootCtx, h.rootSpan = h.tracer.Start(ctx, defaults.ToolName+".run",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(start.Timestamp()),
		trace.WithAttributes(
			attribute.String("run_id", start.RunID()),
			attribute.StringSlice("targets", start.Targets),
			attribute.String("method", start.Config.Method),
			attribute.Float64("baseline.rate", start.Config.BaselineRate),
			attribute.Int("baseline.duration_sec", start.Config.BaselineDuration),
			attribute.Float64("stress.rate", start.Config.StressRate),
			attribute.Int("stress.duration_sec", start.Config.StressDuration),
			attribute.String("schedule", start.Config.Schedule),
			attribute.Int("concurrency", start.Config.Concurrency),
		),
	)
}

// targetSpan returns the span for target index, starting it at start.
func (h *OTelHook) targetSpan(index int, target string, start time.Time) trace.Span {
	if span, ok := h.targets[index]; ok {
		return span
	}
	parent := h.rootCtx
	if parent == nil {
		parent = context.Background()
	}
	_, span := h.tracer.Start(parent, defaults.ToolName+".target",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.Int("target.index", index),
			attribute.String("target.url", target),
		),
	)
	h.targets[index] = span
	return span
}

func (h *OTelHook) handlePhase(p *events.PhaseEvent) {
	r := p.Result
	span := h.targetSpan(p.TargetIndex, r.Target, r.Started)

	attrs := []attribute.KeyValue{
		attribute.String("phase", r.Phase),
		attribute.Int("requests", r.Requests),
		attribute.Float64("avg_latency_sec", r.AverageLatency),
		attribute.Int("signatures", r.Signatures),
		attribute.Bool("rate_limit_headers", r.RateLimitHeaders),
		attribute.StringSlice("waf", r.Vendors()),
	}
	for e, n := range r.EventCounts {
		attrs = append(attrs, attribute.Int("events."+string(e), n))
	}
	span.AddEvent("phase_complete", trace.WithTimestamp(r.Started.Add(r.Elapsed)), trace.WithAttributes(attrs...))
}

func (h *OTelHook) handleVerdict(v *events.VerdictEvent) {
	span := h.targetSpan(v.TargetIndex, v.Target, v.Baseline.Started)

	span.SetAttributes(
		attribute.Int("risk.score", v.Verdict.Score),
		attribute.String("risk.dominant_event", string(v.Verdict.DominantEvent)),
		attribute.Bool("risk.protected", v.Verdict.Protected),
		attribute.StringSlice("waf", v.WAF),
	)
	for _, s := range v.Verdict.Signals {
		span.AddEvent("signal", trace.WithAttributes(
			attribute.String("name", s.Name),
			attribute.Int("points", s.Points),
			attribute.String("reason", s.Reason),
		))
	}
	if v.Verdict.Protected {
		span.SetStatus(codes.Ok, v.Verdict.Label())
	} else {
		span.SetStatus(codes.Error, v.Verdict.Label())
	}
	span.End()
	delete(h.targets, v.TargetIndex)
}

func (h *OTelHook) handleSummary(s *events.SummaryEvent) {
	if h.rootSpan == nil {
		return
	}
	h.rootSpan.SetAttributes(
		attribute.Int("targets.total", s.Total),
		attribute.Int("targets.protected", s.Protected),
		attribute.Float64("duration_sec", s.Duration.Seconds()),
	)
}

func (h *OTelHook) handleComplete(c *events.CompleteEvent) {
	if h.rootSpan == nil {
		return
	}
	h.rootSpan.SetAttributes(
		attribute.Int("exit_code", c.ExitCode),
		attribute.String("exit_reason", c.ExitReason),
	)
	if c.Success {
		h.rootSpan.SetStatus(codes.Ok, c.ExitReason)
	} else {
		h.rootSpan.SetStatus(codes.Error, c.ExitReason)
	}
	h.rootSpan.End()
	h.rootSpan = nil
}

// EventTypes returns the event types this hook handles.
func (h *OTelHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypePhase,
		events.EventTypeVerdict,
		events.EventTypeSummary,
		events.EventTypeComplete,
	}
}

// Shutdown ends any open spans and flushes the tracer provider.
func (h *OTelHook) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for i, span := range h.targets {
		span.End()
		delete(h.targets, i)
	}
	if h.rootSpan != nil {
		h.rootSpan.End()
		h.rootSpan = nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.ShutdownTimeout)
	defer cancel()
	if err := h.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel: shutdown tracer provider: %w", err)
	}
	return nil
}

// ForceFlush exports all ended spans without shutting down.
func (h *OTelHook) ForceFlush(ctx context.Context) error {
	return h.tracerProvider.ForceFlush(ctx)
}

// Endpoint returns the OTLP endpoint being used.
func (h *OTelHook) Endpoint() string {
	return h.opts.Endpoint
}
