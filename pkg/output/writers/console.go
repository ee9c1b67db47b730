// Package writers provides output writers for the assessment report.
//
// Each type implements dispatcher.Writer. Console output is written as
// verdicts arrive; document formats (JSON, templates) buffer the run and
// render on Close.
package writers

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/ui"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*ConsoleWriter)(nil)

// ConsoleWriter prints the human-readable report: one result block per
// target and an overall protected count.
type ConsoleWriter struct {
	w    io.Writer
	mu   sync.Mutex
	opts ConsoleOptions

	check, cross, rule string
}

// ConsoleOptions configures the console writer.
type ConsoleOptions struct {
	// ShowSignals lists each triggered score contribution.
	ShowSignals bool

	// ShowPhases prints the per-phase tallies above each result.
	ShowPhases bool
}

// NewConsoleWriter creates a console writer on w.
func NewConsoleWriter(w io.Writer, opts ConsoleOptions) *ConsoleWriter {
	cw := &ConsoleWriter{w: w, opts: opts, check: "[+]", cross: "[X]", rule: "-"}
	if unicodeSupported(w) {
		cw.check, cw.cross, cw.rule = "[✔]", "[❌]", "─"
	}
	return cw
}

// Write renders verdict and summary events; others are ignored.
func (cw *ConsoleWriter) Write(event events.Event) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	var b strings.Builder
	switch e := event.(type) {
	case *events.VerdictEvent:
		cw.renderVerdict(&b, e)
	case *events.SummaryEvent:
		cw.renderSummary(&b, e)
	default:
		return nil
	}
	_, err := io.WriteString(cw.w, b.String())
	return err
}

func (cw *ConsoleWriter) renderVerdict(b *strings.Builder, e *events.VerdictEvent) {
	fmt.Fprintf(b, "\n%s Testing %s\n",
		ui.BracketStyle.Render(fmt.Sprintf("[%d/%d]", e.TargetIndex, e.TargetTotal)),
		ui.URLStyle.Render(e.Target))

	if cw.opts.ShowPhases {
		cw.renderPhase(b, e.Baseline)
		cw.renderPhase(b, e.Stress)
	}

	v := e.Verdict
	fmt.Fprintf(b, "\n%s\n", ui.SectionStyle.UnsetMarginTop().Render("--- RESULT ---"))
	fmt.Fprintf(b, "%s %s\n", ui.ConfigLabelStyle.Render("Dominant Event :"), ui.EventStyle(string(v.DominantEvent)).Render(string(v.DominantEvent)))
	fmt.Fprintf(b, "%s %s\n", ui.ConfigLabelStyle.Render("WAF Detected   :"), ui.ConfigValueStyle.Render(wafList(e.WAF)))
	fmt.Fprintf(b, "%s %s\n", ui.ConfigLabelStyle.Render("Risk Score     :"), ui.ScoreStyle(v.Score).Render(fmt.Sprintf("%d /100", v.Score)))

	if cw.opts.ShowSignals {
		for _, s := range v.Signals {
			fmt.Fprintf(b, "  %s %s\n",
				ui.StatValueStyle.Render(fmt.Sprintf("+%d %s", s.Points, s.Name)),
				ui.StatLabelStyle.Render(s.Reason))
		}
	}

	if v.Protected {
		fmt.Fprintln(b, ui.ProtectedStyle.Render(cw.check+" "+v.Label()))
	} else {
		fmt.Fprintln(b, ui.VulnerableStyle.Render(cw.cross+" "+v.Label()))
	}
}

func (cw *ConsoleWriter) renderPhase(b *strings.Builder, r probe.PhaseResult) {
	fmt.Fprintf(b, "  %s %s %s",
		ui.StatValueStyle.Render(fmt.Sprintf("%-8s", r.Phase)),
		ui.StatLabelStyle.Render(fmt.Sprintf("%4d requests", r.Requests)),
		ui.StatLabelStyle.Render(fmt.Sprintf("avg %.3fs", r.AverageLatency)))
	for _, ev := range probe.Events() {
		if n := r.EventCounts.Get(ev); n > 0 {
			fmt.Fprintf(b, "  %s", ui.EventStyle(string(ev)).Render(fmt.Sprintf("%s=%d", ev, n)))
		}
	}
	b.WriteString("\n")
}

func (cw *ConsoleWriter) renderSummary(b *strings.Builder, e *events.SummaryEvent) {
	title := " OVERALL "
	bar := strings.Repeat("=", 10)
	fmt.Fprintf(b, "\n%s\n", ui.SectionStyle.UnsetMarginTop().Render(bar+title+bar))
	style := ui.ProtectedStyle
	if e.Vulnerable() > 0 {
		style = ui.VulnerableStyle
	}
	fmt.Fprintf(b, "Protected : %s\n", style.Render(fmt.Sprintf("%d/%d", e.Protected, e.Total)))
	fmt.Fprintln(b, ui.DividerStyle.Render(strings.Repeat(cw.rule, len(bar)*2+len(title))))
}

func wafList(vendors []string) string {
	if len(vendors) == 0 {
		return "None"
	}
	return strings.Join(vendors, ", ")
}

// Flush is a no-op; every Write goes straight to the underlying writer.
func (cw *ConsoleWriter) Flush() error { return nil }

// Close does not close the underlying writer, which is normally stdout.
func (cw *ConsoleWriter) Close() error { return nil }

// SupportsEvent returns true for verdict and summary events.
func (cw *ConsoleWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeVerdict || eventType == events.EventTypeSummary
}
