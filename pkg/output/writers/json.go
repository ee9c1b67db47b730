package writers

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dvat-tool/dvat/pkg/jsonutil"
	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/scoring"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONWriter)(nil)

// JSONWriter collects the run and writes it as one JSON document on Close.
// Unlike JSONLWriter the output is a single value, suitable for files that
// other tools load whole.
type JSONWriter struct {
	w      io.Writer
	mu     sync.Mutex
	opts   JSONOptions
	report Report
}

// JSONOptions configures the JSON writer behavior.
type JSONOptions struct {
	// Pretty enables indented JSON output.
	Pretty bool

	// IndentSize sets the number of spaces for indentation (default 2).
	IndentSize int

	// OmitLatencies drops the per-request latency arrays.
	OmitLatencies bool
}

// Report is the document written by JSONWriter.
type Report struct {
	RunID     string           `json:"run_id"`
	Version   string           `json:"version"`
	Started   time.Time        `json:"started"`
	Config    events.RunConfig `json:"config"`
	Targets   []TargetReport   `json:"targets"`
	Protected int              `json:"protected"`
	Total     int              `json:"total"`
	Duration  time.Duration    `json:"duration,format:nano"`
	ExitCode  int              `json:"exit_code"`
}

// TargetReport is one assessed target.
type TargetReport struct {
	Index    int               `json:"index"`
	Target   string            `json:"target"`
	WAF      []string          `json:"waf"`
	Verdict  scoring.Verdict   `json:"verdict"`
	Baseline probe.PhaseResult `json:"baseline"`
	Stress   probe.PhaseResult `json:"stress"`
}

// NewJSONWriter creates a JSON document writer on w.
// The writer is safe for concurrent use.
func NewJSONWriter(w io.Writer, opts JSONOptions) *JSONWriter {
	if opts.IndentSize == 0 {
		opts.IndentSize = 2
	}
	return &JSONWriter{
		w:      w,
		opts:   opts,
		report: Report{Targets: []TargetReport{}},
	}
}

// Write folds an event into the report.
func (jw *JSONWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	switch e := event.(type) {
	case *events.StartEvent:
		jw.report.RunID = e.RunID()
		jw.report.Version = e.Version
		jw.report.Started = e.Timestamp()
		jw.report.Config = e.Config
	case *events.VerdictEvent:
		t := TargetReport{
			Index:    e.TargetIndex,
			Target:   e.Target,
			WAF:      e.WAF,
			Verdict:  e.Verdict,
			Baseline: e.Baseline,
			Stress:   e.Stress,
		}
		if jw.opts.OmitLatencies {
			t.Baseline.Latencies = nil
			t.Stress.Latencies = nil
		}
		jw.report.Targets = append(jw.report.Targets, t)
	case *events.SummaryEvent:
		jw.report.Protected = e.Protected
		jw.report.Total = e.Total
		jw.report.Duration = e.Duration
	case *events.CompleteEvent:
		jw.report.ExitCode = e.ExitCode
	}
	return nil
}

// Flush is a no-op for JSON writer.
// The document is written as a whole on Close.
func (jw *JSONWriter) Flush() error {
	return nil
}

// Close writes the report, ordered by target index, and closes the writer.
// If the underlying writer implements io.Closer, it will be closed.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	sort.SliceStable(jw.report.Targets, func(i, j int) bool {
		return jw.report.Targets[i].Index < jw.report.Targets[j].Index
	})

	encoder := jsonutil.NewStreamEncoder(jw.w)
	if jw.opts.Pretty {
		encoder.SetIndent(strings.Repeat(" ", jw.opts.IndentSize))
	}
	if err := encoder.Encode(&jw.report); err != nil {
		return fmt.Errorf("json: encode: %w", err)
	}

	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for everything except request events.
func (jw *JSONWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType != events.EventTypeRequest
}
