// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	client := httpclient.New(httpclient.Config{Timeout: duration.RequestTimeout})
//	ctx, cancel := context.WithTimeout(ctx, duration.ShutdownGrace)
//
// DO NOT use hardcoded time.Duration values like `5 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// PROBE TIMEOUTS
// ============================================================================

const (
	// RequestTimeout bounds every probe request (5s). A request that does
	// not complete inside it is recorded as a TIMEOUT event.
	RequestTimeout = 5 * time.Second

	// DialTimeout is the timeout for establishing connections (5s)
	DialTimeout = 5 * time.Second

	// TLSHandshake is the timeout for the TLS handshake (5s)
	TLSHandshake = 5 * time.Second

	// KeepAlive is the TCP keep-alive period (30s)
	KeepAlive = 30 * time.Second

	// IdleConnTimeout is how long idle connections stay pooled (90s)
	IdleConnTimeout = 90 * time.Second

	// ExpectContinue waits for a 100-continue before sending POST bodies (1s)
	ExpectContinue = 1 * time.Second
)

// ============================================================================
// PHASE TIMING
// ============================================================================

const (
	// PhaseUnit converts the whole-second phase durations used on the
	// command line into time.Duration.
	PhaseUnit = time.Second
)

// ============================================================================
// TERMINAL UI
// ============================================================================

const (
	// SpinnerInterval is the frame period of the phase spinner (100ms)
	SpinnerInterval = 100 * time.Millisecond
)

// ============================================================================
// SHUTDOWN & EXPORTERS
// ============================================================================

const (
	// ShutdownGrace is how long a second Ctrl-C is awaited before the
	// process exits hard (5s)
	ShutdownGrace = 5 * time.Second

	// ExporterShutdown bounds metrics server and tracer shutdown (5s)
	ExporterShutdown = 5 * time.Second

	// ExporterConnect bounds the OTLP exporter connection attempt (10s)
	ExporterConnect = 10 * time.Second

	// MetricsReadTimeout is the metrics server read timeout (5s)
	MetricsReadTimeout = 5 * time.Second

	// MetricsWriteTimeout is the metrics server write timeout (10s)
	MetricsWriteTimeout = 10 * time.Second
)
