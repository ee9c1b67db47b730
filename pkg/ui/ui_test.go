package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUnicode(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}
	yes := func() bool { return true }
	no := func() bool { return false }

	tests := []struct {
		name string
		env  map[string]string
		tty  func() bool
		goos string
		want bool
	}{
		{"linux tty", nil, yes, "linux", true},
		{"piped", nil, no, "linux", false},
		{"dumb", map[string]string{"TERM": "dumb"}, yes, "linux", false},
		{"conhost", nil, yes, "windows", false},
		{"windows terminal", map[string]string{"WT_SESSION": "1"}, yes, "windows", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectUnicode(env(tt.env), tt.tty, tt.goos))
		})
	}
}

func TestStripGlyphs(t *testing.T) {
	assert.Equal(t, "café ok ", stripGlyphs("café ok ✔"))
	assert.Equal(t, "plain", stripGlyphs("plain"))
}

func TestEventLabel(t *testing.T) {
	assert.Equal(t, "Rate Limit", EventLabel("RATE_LIMIT"))
	assert.Equal(t, "Waf Block", EventLabel("WAF_BLOCK"))
	assert.Equal(t, "Allowed", EventLabel("ALLOWED"))
}

func TestSpinnerFrame(t *testing.T) {
	s := Spinners[SpinnerLine]
	assert.Equal(t, "-", s.Frame(0))
	assert.Equal(t, "-", s.Frame(len(s.Frames)))
	assert.Equal(t, "", Spinner{}.Frame(3))
}

func TestDefaultSpinner(t *testing.T) {
	s := DefaultSpinner()
	require.NotEmpty(t, s.Frames)
	assert.Positive(t, s.Interval)
}

func TestPrintExamples(t *testing.T) {
	var buf bytes.Buffer
	PrintExamples(&buf)
	out := buf.String()
	assert.Contains(t, out, "DVAT EXAMPLES")
	assert.Contains(t, out, "-paths-file paths.txt")
	assert.Contains(t, out, "Authorized testing only")
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintVersion(&buf)
	assert.True(t, strings.HasPrefix(buf.String(), "DVAT version "+Version))
}

func TestPrintBanner_Silent(t *testing.T) {
	SetSilent(true)
	defer SetSilent(false)

	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Empty(t, buf.String())
}

func TestPhaseProgress_Render(t *testing.T) {
	p := NewPhaseProgress(&bytes.Buffer{})
	p.Begin(2, 3, "STRESS", "https://example.com/", 20*time.Second)
	p.Observe("RATE_LIMIT")
	p.Observe("RATE_LIMIT")
	p.Observe("ALLOWED")

	p.mu.Lock()
	line := p.render(5 * time.Second)
	over := p.render(time.Minute)
	p.mu.Unlock()
	p.End()

	assert.Contains(t, line, "[2/3]")
	assert.Contains(t, line, "STRESS")
	assert.Contains(t, line, "5s/20s")
	assert.Contains(t, line, "requests=3")
	assert.Contains(t, line, "RATE_LIMIT=2")
	assert.NotContains(t, line, "ALLOWED=")
	assert.Contains(t, over, "20s/20s")
}

func TestPhaseProgress_EndIdempotent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPhaseProgress(&buf)
	p.End()
	assert.Empty(t, buf.String())

	p.Begin(1, 1, "BASELINE", "http://x/", time.Second)
	p.End()
	p.End()
	p.Observe("ALLOWED")
	assert.Equal(t, 0, p.requests)
}
