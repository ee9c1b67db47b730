package writers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/dvat-tool/dvat/pkg/jsonutil"
	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/ui"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*TemplateWriter)(nil)

// TemplateConfig configures the template writer.
type TemplateConfig struct {
	// TemplatePath is the path to a custom template file.
	TemplatePath string

	// TemplateString is an inline template string (alternative to TemplatePath).
	TemplateString string

	// BuiltIn is the name of a built-in template: "csv", "markdown", "text-summary".
	BuiltIn string
}

// builtInTemplates contains pre-defined report templates.
var builtInTemplates = map[string]string{
	"csv": `index,target,dominant_event,score,protected,waf,baseline_avg_latency,stress_avg_latency,stress_requests
{{- range .Targets }}
{{ .Index }},{{ escapeCSV .Target }},{{ .Verdict.DominantEvent }},{{ .Verdict.Score }},{{ .Verdict.Protected }},{{ escapeCSV (join ";" .WAF) }},{{ printf "%.4f" .Baseline.AverageLatency }},{{ printf "%.4f" .Stress.AverageLatency }},{{ .Stress.Requests }}
{{- end }}
`,

	"markdown": `# DVAT Report

Run ` + "`{{ .RunID }}`" + ` started {{ .Timestamp }}, took {{ printf "%.1f" .Duration }}s.

**Protected: {{ .Protected }}/{{ .Total }}**

| # | Target | Dominant Event | WAF | Score | Verdict |
|---|---|---|---|---|---|
{{- range .Targets }}
| {{ .Index }} | {{ .Target }} | {{ eventLabel (toString .Verdict.DominantEvent) }} | {{ waf .WAF }} | {{ .Verdict.Score }}/100 | {{ .Verdict.Label }} |
{{- end }}
{{ range .Targets }}
## {{ .Index }}. {{ .Target }}
{{ range .Verdict.Signals }}
- **+{{ .Points }} {{ .Name }}**: {{ .Reason }}
{{- else }}
- no defence signals
{{- end }}

| Phase | Requests | Avg latency | Events |
|---|---|---|---|
| {{ .Baseline.Phase }} | {{ .Baseline.Requests }} | {{ printf "%.3f" .Baseline.AverageLatency }}s | {{ counts .Baseline.EventCounts }} |
| {{ .Stress.Phase }} | {{ .Stress.Requests }} | {{ printf "%.3f" .Stress.AverageLatency }}s | {{ counts .Stress.EventCounts }} |
{{ end }}`,

	"text-summary": `DVAT Summary
============
Run: {{ .RunID }}
Generated: {{ .Timestamp }}
Duration: {{ printf "%.2f" .Duration }}s
{{ range .Targets }}
[{{ .Index }}/{{ $.Total }}] {{ .Target }}
  Dominant Event : {{ .Verdict.DominantEvent }}
  WAF Detected   : {{ waf .WAF }}
  Risk Score     : {{ .Verdict.Score }} /100
  {{ .Verdict.Label }}
{{- end }}

Protected : {{ .Protected }}/{{ .Total }}
`,
}

// BuiltInTemplates returns the names of the built-in templates, sorted.
func BuiltInTemplates() []string {
	names := make([]string, 0, len(builtInTemplates))
	for name := range builtInTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplateWriter renders the run through a Go template on Close. Sprig
// functions and a few report helpers are available to templates.
type TemplateWriter struct {
	w       io.Writer
	mu      sync.Mutex
	config  TemplateConfig
	tmpl    *template.Template
	runID   string
	started time.Time
	targets []TargetReport
	summary *events.SummaryEvent
}

// NewTemplateWriter creates a new template writer.
// It parses the template immediately and returns an error if the template is invalid.
func NewTemplateWriter(w io.Writer, config TemplateConfig) (*TemplateWriter, error) {
	tw := &TemplateWriter{
		w:       w,
		config:  config,
		started: time.Now(),
	}
	if err := tw.parseTemplate(); err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}
	return tw, nil
}

func (tw *TemplateWriter) parseTemplate() error {
	var content string

	switch {
	case tw.config.TemplatePath != "":
		raw, err := os.ReadFile(tw.config.TemplatePath)
		if err != nil {
			return fmt.Errorf("failed to read template file: %w", err)
		}
		content = string(raw)

	case tw.config.TemplateString != "":
		content = tw.config.TemplateString

	case tw.config.BuiltIn != "":
		builtIn, ok := builtInTemplates[tw.config.BuiltIn]
		if !ok {
			return fmt.Errorf("unknown built-in template: %s (available: %s)",
				tw.config.BuiltIn, strings.Join(BuiltInTemplates(), ", "))
		}
		content = builtIn

	default:
		return fmt.Errorf("no template specified: set TemplatePath, TemplateString, or BuiltIn")
	}

	funcMap := sprig.TxtFuncMap()
	funcMap["escapeCSV"] = tmplEscapeCSV
	funcMap["eventLabel"] = ui.EventLabel
	funcMap["waf"] = wafList
	funcMap["counts"] = tmplCounts
	funcMap["json"] = tmplToJSON

	tmpl, err := template.New("dvat").Funcs(funcMap).Parse(content)
	if err != nil {
		return fmt.Errorf("parse output template: %w", err)
	}
	tw.tmpl = tmpl
	return nil
}

// Write buffers an event for later template rendering.
func (tw *TemplateWriter) Write(event events.Event) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	switch e := event.(type) {
	case *events.StartEvent:
		tw.runID = e.RunID()
		tw.started = e.Timestamp()
	case *events.VerdictEvent:
		tw.targets = append(tw.targets, TargetReport{
			Index:    e.TargetIndex,
			Target:   e.Target,
			WAF:      e.WAF,
			Verdict:  e.Verdict,
			Baseline: e.Baseline,
			Stress:   e.Stress,
		})
	case *events.SummaryEvent:
		tw.summary = e
	}
	return nil
}

// Flush is a no-op for template writer.
// All events are rendered as a single document on Close.
func (tw *TemplateWriter) Flush() error {
	return nil
}

// Close renders the template with all buffered events and writes to the output.
func (tw *TemplateWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	var buf bytes.Buffer
	if err := tw.tmpl.Execute(&buf, tw.buildTemplateData()); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}
	if _, err := tw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write error: %w", err)
	}

	if closer, ok := tw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for start, verdict and summary events.
func (tw *TemplateWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeStart, events.EventTypeVerdict, events.EventTypeSummary:
		return true
	default:
		return false
	}
}

// tmplData holds all data available to templates.
type tmplData struct {
	RunID     string
	Timestamp string
	Duration  float64
	Targets   []TargetReport
	Protected int
	Total     int
}

func (tw *TemplateWriter) buildTemplateData() tmplData {
	targets := make([]TargetReport, len(tw.targets))
	copy(targets, tw.targets)
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Index < targets[j].Index })

	data := tmplData{
		RunID:     tw.runID,
		Timestamp: tw.started.UTC().Format(time.RFC3339),
		Targets:   targets,
		Total:     len(targets),
	}
	for _, t := range targets {
		if t.Verdict.Protected {
			data.Protected++
		}
	}
	if tw.summary != nil {
		data.Duration = tw.summary.Duration.Seconds()
	}
	return data
}

// tmplEscapeCSV quotes s when it contains a separator, quote or newline.
func tmplEscapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// tmplCounts renders event counts as "RATE_LIMIT=3 ALLOWED=2" in dominance
// order, skipping zeroes.
func tmplCounts(c probe.Counts) string {
	var parts []string
	for _, e := range probe.Events() {
		if n := c.Get(e); n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", e, n))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func tmplToJSON(v any) (string, error) {
	b, err := jsonutil.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
