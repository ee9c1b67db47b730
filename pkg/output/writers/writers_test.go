package writers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/jsonutil"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/scoring"
	"github.com/dvat-tool/dvat/pkg/waf"
)

const runID = "run-1"

func phase(label string, counts probe.Counts, lat ...float64) probe.PhaseResult {
	r := probe.PhaseResult{
		Phase:       label,
		Target:      "https://example.com/login",
		Requests:    counts.Total(),
		Started:     time.Now(),
		Elapsed:     time.Second,
		Latencies:   lat,
		EventCounts: counts,
		WAFVendors:  waf.NewVendors(),
	}
	if len(lat) > 0 {
		sum := 0.0
		for _, l := range lat {
			sum += l
		}
		r.AverageLatency = sum / float64(len(lat))
	}
	return r
}

func protectedVerdict(index int) *events.VerdictEvent {
	base := phase(probe.Baseline, probe.Counts{probe.Allowed: 3}, 0.1, 0.1, 0.1)
	stress := phase(probe.Stress, probe.Counts{probe.RateLimit: 4, probe.Allowed: 1}, 0.2, 0.3, 0.4, 0.5, 0.6)
	stress.WAFVendors = waf.NewVendors(waf.Cloudflare)
	return events.NewVerdictEvent(runID, index, 2, stress.Target, scoring.Score(base, stress), base, stress)
}

func vulnerableVerdict(index int) *events.VerdictEvent {
	base := phase(probe.Baseline, probe.Counts{probe.Allowed: 2}, 0.1, 0.1)
	stress := phase(probe.Stress, probe.Counts{probe.Allowed: 10}, 0.1, 0.1)
	stress.Target = "https://example.com/api"
	return events.NewVerdictEvent(runID, index, 2, stress.Target, scoring.Score(base, stress), base, stress)
}

func summaryOf(vs ...*events.VerdictEvent) *events.SummaryEvent {
	rows := make([]events.TargetSummary, 0, len(vs))
	for _, v := range vs {
		rows = append(rows, events.TargetSummary{
			Target: v.Target, Score: v.Verdict.Score, DominantEvent: v.Verdict.DominantEvent,
			Protected: v.Verdict.Protected, WAF: v.WAF,
		})
	}
	return events.NewSummaryEvent(runID, rows, 3*time.Second)
}

func startEvent() *events.StartEvent {
	return events.NewStartEvent(runID, defaults.Version, []string{"https://example.com/login", "https://example.com/api"},
		events.RunConfig{Method: "GET", BaselineDuration: 10, BaselineRate: 2, StressDuration: 20, StressRate: 10})
}

func TestConsoleWriter_ResultBlocks(t *testing.T) {
	var buf bytes.Buffer
	cw := NewConsoleWriter(&buf, ConsoleOptions{ShowSignals: true, ShowPhases: true})

	p, v := protectedVerdict(1), vulnerableVerdict(2)
	require.NoError(t, cw.Write(p))
	require.NoError(t, cw.Write(v))
	require.NoError(t, cw.Write(summaryOf(p, v)))
	require.NoError(t, cw.Close())

	out := buf.String()
	assert.Contains(t, out, "[1/2]")
	assert.Contains(t, out, "Testing https://example.com/login")
	assert.Contains(t, out, "--- RESULT ---")
	assert.Contains(t, out, "RATE_LIMIT")
	assert.Contains(t, out, "Cloudflare")
	assert.Contains(t, out, "60 /100")
	assert.Contains(t, out, "+40 rate_limit")
	assert.Contains(t, out, "NOT VULNERABLE")
	assert.Contains(t, out, "POTENTIALLY VULNERABLE")
	assert.Contains(t, out, "WAF Detected   : None")
	assert.Contains(t, out, "OVERALL")
	assert.Contains(t, out, "Protected : 1/2")
	assert.Contains(t, out, "RATE_LIMIT=4")
}

func TestConsoleWriter_IgnoresOtherEvents(t *testing.T) {
	var buf bytes.Buffer
	cw := NewConsoleWriter(&buf, ConsoleOptions{})
	require.NoError(t, cw.Write(startEvent()))
	assert.Empty(t, buf.String())
	assert.False(t, cw.SupportsEvent(events.EventTypeRequest))
	assert.True(t, cw.SupportsEvent(events.EventTypeVerdict))
}

func TestJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	jw := NewJSONLWriter(&buf, JSONLOptions{OmitLatencies: true})

	v := protectedVerdict(1)
	require.NoError(t, jw.Write(startEvent()))
	require.NoError(t, jw.Write(v))
	require.NoError(t, jw.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"type":"start"`)
	assert.Contains(t, lines[1], `"type":"verdict"`)
	assert.Contains(t, lines[1], `"latencies":[]`)
	assert.NotEmpty(t, v.Stress.Latencies, "original event must not be modified")

	assert.False(t, jw.SupportsEvent(events.EventTypeRequest))
	assert.True(t, NewJSONLWriter(&buf, JSONLOptions{IncludeRequests: true}).SupportsEvent(events.EventTypeRequest))
}

func TestJSONWriter_Document(t *testing.T) {
	var buf bytes.Buffer
	jw := NewJSONWriter(&buf, JSONOptions{Pretty: true})

	p, v := protectedVerdict(1), vulnerableVerdict(2)
	require.NoError(t, jw.Write(startEvent()))
	// Out of order on purpose: the document is sorted by index.
	require.NoError(t, jw.Write(v))
	require.NoError(t, jw.Write(p))
	require.NoError(t, jw.Write(summaryOf(p, v)))
	require.NoError(t, jw.Write(events.NewCompleteEvent(runID, defaults.ExitSuccess, "done", nil)))
	require.NoError(t, jw.Close())

	var got Report
	require.NoError(t, jsonutil.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, runID, got.RunID)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Protected)
	require.Len(t, got.Targets, 2)
	assert.Equal(t, 1, got.Targets[0].Index)
	assert.Equal(t, probe.RateLimit, got.Targets[0].Verdict.DominantEvent)
	assert.Equal(t, []string{waf.Cloudflare}, got.Targets[0].WAF)
	assert.Equal(t, 4, got.Targets[0].Stress.EventCounts.Get(probe.RateLimit))
	assert.True(t, got.Targets[0].Stress.WAFVendors.Has(waf.Cloudflare))
	assert.Equal(t, 3*time.Second, got.Duration)
}

func TestJSONWriter_EmptyRun(t *testing.T) {
	var buf bytes.Buffer
	jw := NewJSONWriter(&buf, JSONOptions{})
	require.NoError(t, jw.Close())
	assert.Contains(t, buf.String(), `"targets":[]`)
}

func TestTemplateWriter_BuiltIns(t *testing.T) {
	for _, name := range BuiltInTemplates() {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			tw, err := NewTemplateWriter(&buf, TemplateConfig{BuiltIn: name})
			require.NoError(t, err)

			p, v := protectedVerdict(1), vulnerableVerdict(2)
			require.NoError(t, tw.Write(startEvent()))
			require.NoError(t, tw.Write(p))
			require.NoError(t, tw.Write(v))
			require.NoError(t, tw.Write(summaryOf(p, v)))
			require.NoError(t, tw.Close())

			out := buf.String()
			assert.Contains(t, out, "https://example.com/login")
			assert.Contains(t, out, "https://example.com/api")
		})
	}
}

func TestTemplateWriter_CSV(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTemplateWriter(&buf, TemplateConfig{BuiltIn: "csv"})
	require.NoError(t, err)
	require.NoError(t, tw.Write(protectedVerdict(1)))
	require.NoError(t, tw.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "index,target,dominant_event"))
	assert.True(t, strings.HasPrefix(lines[1], "1,https://example.com/login,RATE_LIMIT,60,true,Cloudflare,"))
}

func TestTemplateWriter_InlineAndErrors(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTemplateWriter(&buf, TemplateConfig{
		TemplateString: `{{ range .Targets }}{{ eventLabel (toString .Verdict.DominantEvent) }}|{{ counts .Stress.EventCounts }}{{ end }}`,
	})
	require.NoError(t, err)
	require.NoError(t, tw.Write(protectedVerdict(1)))
	require.NoError(t, tw.Close())
	assert.Equal(t, "Rate Limit|RATE_LIMIT=4 ALLOWED=1", buf.String())

	_, err = NewTemplateWriter(&buf, TemplateConfig{BuiltIn: "nope"})
	assert.ErrorContains(t, err, "unknown built-in template")

	_, err = NewTemplateWriter(&buf, TemplateConfig{})
	assert.Error(t, err)

	_, err = NewTemplateWriter(&buf, TemplateConfig{TemplateString: "{{ .Broken "})
	assert.Error(t, err)
}

func TestTmplEscapeCSV(t *testing.T) {
	assert.Equal(t, "plain", tmplEscapeCSV("plain"))
	assert.Equal(t, `"a,b"`, tmplEscapeCSV("a,b"))
	assert.Equal(t, `"say ""hi"""`, tmplEscapeCSV(`say "hi"`))
}

func TestChartWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	cw, err := NewChartWriter(dir)
	require.NoError(t, err)

	require.NoError(t, cw.Write(protectedVerdict(1)))

	empty := vulnerableVerdict(2)
	empty.Stress.Latencies = []float64{}
	require.NoError(t, cw.Write(empty))

	files := cw.Files()
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "latency_target_1.pdf"), files[0])

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = os.Stat(filepath.Join(dir, ChartName(2)))
	assert.True(t, os.IsNotExist(err))
}

func TestChartWriter_SingleSample(t *testing.T) {
	cw, err := NewChartWriter(t.TempDir())
	require.NoError(t, err)

	v := vulnerableVerdict(1)
	v.Baseline.Latencies = nil
	v.Stress.Latencies = []float64{0.25}
	require.NoError(t, cw.Write(v))
	assert.Len(t, cw.Files(), 1)
}

func TestNiceCeil(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0.3, 0.5},
		{0.07, 0.1},
		{1.0, 1.0},
		{1.2, 2.0},
		{6, 10},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, niceCeil(tt.in), 1e-9, "niceCeil(%v)", tt.in)
	}
}
