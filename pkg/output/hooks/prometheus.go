package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/duration"
	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.ShutdownHook = (*PrometheusHook)(nil)

// PrometheusHook exposes probe metrics for Prometheus scraping: request
// counters per event, a latency histogram, and per-target score gauges.
type PrometheusHook struct {
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry
	opts     PrometheusOptions
	logger   *slog.Logger

	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	riskScore      *prometheus.GaugeVec
	protected      *prometheus.GaugeVec
	targetsTotal   prometheus.Gauge
	targetsSafe    prometheus.Gauge
	runDuration    prometheus.Gauge

	mu     sync.Mutex
	closed bool
}

// PrometheusOptions configures the Prometheus hook behavior.
type PrometheusOptions struct {
	// Port for the metrics server. 0 registers metrics without serving
	// them; use Handler to expose them elsewhere.
	Port int

	// Path for the metrics endpoint (default: "/metrics").
	Path string

	// ReadTimeout for the HTTP server (default: 5s).
	ReadTimeout time.Duration

	// WriteTimeout for the HTTP server (default: 10s).
	WriteTimeout time.Duration

	// Logger receives server errors. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewPrometheusHook registers the metrics on a private registry and, when a
// port is set, starts serving them until Shutdown.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Path == "" {
		opts.Path = defaults.MetricsPath
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = duration.MetricsReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = duration.MetricsWriteTimeout
	}

	hook := &PrometheusHook{
		registry: prometheus.NewRegistry(),
		opts:     opts,
		logger:   orDefault(opts.Logger),
	}

	if err := hook.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if opts.Port > 0 {
		if err := hook.startServer(); err != nil {
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	return hook, nil
}

// initMetrics creates and registers all Prometheus metrics.
func (h *PrometheusHook) initMetrics() error {
	ns := defaults.ToolName

	h.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "requests_total",
			Help:      "Probe requests by target, phase and classified event",
		},
		[]string{"target", "phase", "event"},
	)

	h.requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "request_latency_seconds",
			Help:      "Round-trip time of probe requests that received a response",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"target", "phase"},
	)

	h.riskScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "risk_score",
			Help:      "Risk score (0-100) of each assessed target",
		},
		[]string{"target"},
	)

	h.protected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "target_protected",
			Help:      "1 if the dominant stress event was a defence signal",
		},
		[]string{"target", "dominant_event"},
	)

	h.targetsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "targets_total",
		Help:      "Targets assessed in this run",
	})
	h.targetsSafe = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "targets_protected",
		Help:      "Targets classified protected in this run",
	})
	h.runDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the run",
	})

	collectors := []prometheus.Collector{
		h.requestsTotal,
		h.requestLatency,
		h.riskScore,
		h.protected,
		h.targetsTotal,
		h.targetsSafe,
		h.runDuration,
	}
	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the hook's registry.
func (h *PrometheusHook) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// startServer binds synchronously so a busy port fails construction.
func (h *PrometheusHook) startServer() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", h.opts.Port))
	if err != nil {
		return err
	}
	h.listener = ln

	mux := http.NewServeMux()
	mux.Handle(h.opts.Path, h.Handler())

	h.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  h.opts.ReadTimeout,
		WriteTimeout: h.opts.WriteTimeout,
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// OnEvent processes events and updates Prometheus metrics.
func (h *PrometheusHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.RequestEvent:
		h.requestsTotal.WithLabelValues(e.Target, e.Phase, string(e.Event)).Inc()
		if e.Failure == "" {
			h.requestLatency.WithLabelValues(e.Target, e.Phase).Observe(e.Latency)
		}
	case *events.VerdictEvent:
		h.riskScore.WithLabelValues(e.Target).Set(float64(e.Verdict.Score))
		v := 0.0
		if e.Verdict.Protected {
			v = 1
		}
		h.protected.WithLabelValues(e.Target, string(e.Verdict.DominantEvent)).Set(v)
	case *events.SummaryEvent:
		h.targetsTotal.Set(float64(e.Total))
		h.targetsSafe.Set(float64(e.Protected))
		h.runDuration.Set(e.Duration.Seconds())
	}
	return nil
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeRequest,
		events.EventTypeVerdict,
		events.EventTypeSummary,
	}
}

// Shutdown stops the metrics server. Metrics stop updating afterwards.
func (h *PrometheusHook) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, duration.ExporterShutdown)
	defer cancel()
	return h.server.Shutdown(ctx)
}

// MetricsAddr returns the URL where metrics are served, or "" when the hook
// was created without a port.
func (h *PrometheusHook) MetricsAddr() string {
	if h.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s%s", h.listener.Addr().String(), h.opts.Path)
}
