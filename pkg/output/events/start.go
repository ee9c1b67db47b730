package events

// StartEvent is emitted once before the first request is sent.
type StartEvent struct {
	BaseEvent
	Version string    `json:"version"`
	Targets []string  `json:"targets"`
	Config  RunConfig `json:"config"`
}

// RunConfig echoes the settings that shape the probe traffic.
type RunConfig struct {
	Method           string  `json:"method"`
	BaselineDuration int     `json:"baseline_duration_sec"`
	BaselineRate     float64 `json:"baseline_rate"`
	StressDuration   int     `json:"stress_duration_sec"`
	StressRate       float64 `json:"stress_rate"`
	Schedule         string  `json:"schedule"`
	Concurrency      int     `json:"concurrency"`
	TimeoutSec       float64 `json:"timeout_sec"`
	Tokens           int     `json:"tokens"`
	VerifyTLS        bool    `json:"verify_tls"`
	Proxied          bool    `json:"proxied"`
}

// NewStartEvent creates a start event.
func NewStartEvent(runID, version string, targets []string, cfg RunConfig) *StartEvent {
	return &StartEvent{
		BaseEvent: newBase(EventTypeStart, runID),
		Version:   version,
		Targets:   targets,
		Config:    cfg,
	}
}
