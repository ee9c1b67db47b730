// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all runtime configuration defaults.
//
// Usage:
//
//	cfg.StressRate = defaults.StressRate
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//
// DO NOT use hardcoded values like `Rate: 10` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

// Version is the current DVAT version
const Version = "1.0.0"

// ToolName is used for service names, metric prefixes and the User-Agent.
const ToolName = "dvat"

// ============================================================================
// PHASE SETTINGS
// ============================================================================
//
// Durations are whole seconds, rates are requests per second. These match
// the defaults operators already run with.
// ============================================================================

const (
	// BaselineDurationSec is the length of the low-rate reference phase (10)
	BaselineDurationSec = 10

	// BaselineRate is the request rate of the reference phase (2)
	BaselineRate = 2

	// StressDurationSec is the length of the elevated phase (20)
	StressDurationSec = 20

	// StressRate is the request rate of the elevated phase (10)
	StressRate = 10
)

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================

const (
	// ConcurrencyMinimal probes targets one at a time (1)
	ConcurrencyMinimal = 1

	// ConcurrencyMax bounds cross-target parallelism (50)
	ConcurrencyMax = 50
)

// ============================================================================
// SCORING
// ============================================================================

const (
	// MaxRiskScore caps the additive risk score (100)
	MaxRiskScore = 100

	// LatencyDegradationFactor is the stress/baseline latency ratio that
	// counts as degradation (2)
	LatencyDegradationFactor = 2.0
)

// ============================================================================
// HTTP
// ============================================================================

const (
	// MethodGET and MethodPOST are the only replayable methods
	MethodGET  = "GET"
	MethodPOST = "POST"

	// DefaultPath is used when no path is supplied
	DefaultPath = "/"

	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"

	// HTTPSPort selects the https scheme for domain+port targets
	HTTPSPort = 443

	// RequestTimeoutSec is the -timeout default; see duration.RequestTimeout (5)
	RequestTimeoutSec = 5
)

// ============================================================================
// OBSERVABILITY
// ============================================================================

const (
	// MetricsPath is where the Prometheus hook serves metrics
	MetricsPath = "/metrics"

	// OTelEndpoint is the default OTLP gRPC collector address
	OTelEndpoint = "localhost:4317"
)
