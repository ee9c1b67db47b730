package writers

import (
	"io"
	"sync"

	"github.com/dvat-tool/dvat/pkg/jsonutil"
	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONLWriter)(nil)

// JSONLWriter writes events as newline-delimited JSON (JSONL), one
// complete object per line, as they happen. Tools like jq can follow the
// stream while the run is still going.
type JSONLWriter struct {
	w       io.Writer
	mu      sync.Mutex
	opts    JSONLOptions
	encoder *jsonutil.Encoder
}

// JSONLOptions configures the JSONL writer behavior.
type JSONLOptions struct {
	// IncludeRequests also writes one line per probe request. Off by
	// default because a stress phase emits hundreds of them.
	IncludeRequests bool

	// OmitLatencies drops the per-request latency arrays from phase and
	// verdict events.
	OmitLatencies bool
}

// NewJSONLWriter creates a new JSONL writer that writes to w.
// The writer is safe for concurrent use.
func NewJSONLWriter(w io.Writer, opts JSONLOptions) *JSONLWriter {
	return &JSONLWriter{
		w:       w,
		opts:    opts,
		encoder: jsonutil.NewStreamEncoder(w),
	}
}

// Write writes an event as a single JSON line.
func (jw *JSONLWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.opts.OmitLatencies {
		switch e := event.(type) {
		case *events.PhaseEvent:
			filtered := *e
			filtered.Result.Latencies = nil
			return jw.encoder.Encode(&filtered)
		case *events.VerdictEvent:
			filtered := *e
			filtered.Baseline.Latencies = nil
			filtered.Stress.Latencies = nil
			return jw.encoder.Encode(&filtered)
		}
	}
	return jw.encoder.Encode(event)
}

// Flush is a no-op: each line is written immediately.
func (jw *JSONLWriter) Flush() error {
	return nil
}

// Close closes the writer and releases any resources.
// If the underlying writer implements io.Closer, it will be closed.
func (jw *JSONLWriter) Close() error {
	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for every event except requests, which need
// IncludeRequests.
func (jw *JSONLWriter) SupportsEvent(eventType events.EventType) bool {
	if eventType == events.EventTypeRequest {
		return jw.opts.IncludeRequests
	}
	return true
}
