package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvat-tool/dvat/pkg/assess"
	"github.com/dvat-tool/dvat/pkg/config"
	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/output/writers"
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/request"
	"github.com/dvat-tool/dvat/pkg/ui"
)

func parse(t *testing.T, args ...string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(args, io.Discard)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPlan_Flags(t *testing.T) {
	headers := writeFile(t, "headers.txt", "X-Env: qa\nContent-Type: text/plain\n")
	tokens := writeFile(t, "tokens.txt", "a\n\nb\n")
	cfg := parse(t, "-domain", "example.com", "-port", "443", "-path", "login",
		"-method", "post", "-data", `{"u":1}`, "-headers-file", headers, "-tokens-file", tokens)

	p, err := loadPlan(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com:443/login"}, p.Targets)
	assert.Equal(t, defaults.MethodPOST, p.Template.Method)
	assert.Equal(t, `{"u":1}`, p.Template.Body)
	ct, _ := p.Template.Headers.Get("content-type")
	assert.Equal(t, "text/plain", ct)
	ua, _ := p.Template.Headers.Get("User-Agent")
	assert.Equal(t, ui.UserAgent(), ua)
	assert.Equal(t, 2, p.Credentials.Len())
}

func TestLoadPlan_RawRequest(t *testing.T) {
	raw := writeFile(t, "req.txt", "PUT /api/items HTTP/1.1\r\nHost: shop\r\nUser-Agent: captured\r\nContent-Length: 2\r\n\r\nhi")
	cfg := parse(t, "-domain", "shop.test", "-port", "8080", "-request-file", raw, "-method", "GET")

	p, err := loadPlan(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"http://shop.test:8080/api/items"}, p.Targets)
	assert.Equal(t, "PUT", p.Template.Method)
	assert.Equal(t, "hi", p.Template.Body)
	ua, _ := p.Template.Headers.Get("User-Agent")
	assert.Equal(t, "captured", ua)
	assert.False(t, p.Template.Headers.Has("Content-Length"))
}

func TestLoadPlan_PathFlagBeatsRawPath(t *testing.T) {
	raw := writeFile(t, "req.txt", "GET /from-raw HTTP/1.1\nHost: x\n")
	cfg := parse(t, "-domain", "x.test", "-port", "80", "-request-file", raw, "-path", "/from-flag")

	p, err := loadPlan(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://x.test:80/from-flag"}, p.Targets)
}

func TestLoadPlan_MissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.txt")
	for _, flagName := range []string{"-headers-file", "-tokens-file", "-paths-file", "-request-file"} {
		t.Run(flagName, func(t *testing.T) {
			cfg := parse(t, "-url", "http://example.com/", flagName, missing)
			_, err := loadPlan(cfg)
			assert.ErrorIs(t, err, request.ErrFileLoad)
		})
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		args []string
		want slog.Level
	}{
		{nil, slog.LevelInfo},
		{[]string{"-verbose"}, slog.LevelDebug},
		{[]string{"-silent"}, slog.LevelWarn},
	}
	for _, tt := range tests {
		cfg := parse(t, append([]string{"-url", "http://example.com/"}, tt.args...)...)
		l := newLogger(io.Discard, cfg)
		assert.True(t, l.Enabled(context.Background(), tt.want), "%v", tt.args)
		assert.False(t, l.Enabled(context.Background(), tt.want-1), "%v", tt.args)
	}
}

func TestNewReportWriter(t *testing.T) {
	tmpl := writeFile(t, "r.tmpl", "{{ .Total }}")
	tests := []struct {
		format string
		extra  []string
		want   any
	}{
		{config.FormatConsole, nil, &writers.ConsoleWriter{}},
		{config.FormatJSON, nil, &writers.JSONWriter{}},
		{config.FormatJSONL, nil, &writers.JSONLWriter{}},
		{config.FormatCSV, nil, &writers.TemplateWriter{}},
		{config.FormatMarkdown, nil, &writers.TemplateWriter{}},
		{config.FormatTextSummary, nil, &writers.TemplateWriter{}},
		{config.FormatTemplate, []string{"-template", tmpl}, &writers.TemplateWriter{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			args := append([]string{"-url", "http://example.com/", "-format", tt.format}, tt.extra...)
			w, err := newReportWriter(parse(t, args...), io.Discard)
			require.NoError(t, err)
			assert.IsType(t, tt.want, w)
		})
	}
}

func TestNewDispatcher_Sinks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	cfg := parse(t, "-url", "http://example.com/", "-chart-dir", dir, "-format", "json")

	d, s, err := newDispatcher(cfg, io.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, err)
	assert.NotNil(t, s.charts)
	assert.Empty(t, s.metricsAddr)
	assert.False(t, s.wantRequests)
	assert.DirExists(t, dir)
	require.NoError(t, d.Close(context.Background()))

	cfg = parse(t, "-url", "http://example.com/", "-include-requests", "-format", "jsonl")
	_, s, err = newDispatcher(cfg, io.Discard, slog.Default(), false)
	require.NoError(t, err)
	assert.True(t, s.wantRequests)
	assert.Nil(t, s.chartFiles())
}

func TestExitStatus(t *testing.T) {
	vulnerable := assess.Report{Total: 3, Protected: 1}
	safe := assess.Report{Total: 2, Protected: 2}

	code, _ := exitStatus(false, vulnerable, false)
	assert.Equal(t, defaults.ExitSuccess, code)

	code, reason := exitStatus(true, vulnerable, false)
	assert.Equal(t, defaults.ExitVulnerable, code)
	assert.Equal(t, "2 of 3 targets potentially vulnerable", reason)

	code, _ = exitStatus(true, safe, false)
	assert.Equal(t, defaults.ExitSuccess, code)

	code, reason = exitStatus(true, vulnerable, true)
	assert.Equal(t, defaults.ExitInterrupted, code)
	assert.Equal(t, "interrupted", reason)
}

func TestRunConfig(t *testing.T) {
	cfg := parse(t, "-url", "http://example.com/", "-insecure", "-schedule", "cadence", "-rate", "25")
	rc := runConfig(cfg, plan{Template: request.Template{Method: "GET"}, Credentials: request.Credentials{"t"}})

	assert.Equal(t, "GET", rc.Method)
	assert.Equal(t, "cadence", rc.Schedule)
	assert.Equal(t, 25.0, rc.StressRate)
	assert.Equal(t, 1, rc.Tokens)
	assert.False(t, rc.VerifyTLS)
	assert.False(t, rc.Proxied)
}

type fakeLine struct {
	begins   []string
	observed int
	ends     int
	lengths  []time.Duration
}

func (f *fakeLine) Begin(i, n int, label, target string, length time.Duration) {
	f.begins = append(f.begins, label+" "+target)
	f.lengths = append(f.lengths, length)
}
func (f *fakeLine) Observe(string) { f.observed++ }
func (f *fakeLine) End()           { f.ends++ }

func TestProgressHook_FollowsPhases(t *testing.T) {
	line := &fakeLine{}
	h := newProgressHook(line)
	ctx := context.Background()

	start := events.NewStartEvent("run", "1.0.0", []string{"http://a/"}, events.RunConfig{BaselineDuration: 3, StressDuration: 7})
	require.NoError(t, h.OnEvent(ctx, start))

	req := func(phase string, i int) *events.RequestEvent {
		return events.NewRequestEvent("run", 1, probe.Record{Target: "http://a/", Phase: phase, Index: i, Event: probe.Allowed})
	}
	for i := range 3 {
		require.NoError(t, h.OnEvent(ctx, req(probe.Baseline, i)))
	}
	require.NoError(t, h.OnEvent(ctx, events.NewPhaseEvent("run", 1, 1, probe.PhaseResult{Phase: probe.Baseline})))
	for i := range 2 {
		require.NoError(t, h.OnEvent(ctx, req(probe.Stress, 3+i)))
	}
	require.NoError(t, h.Shutdown(ctx))

	assert.Equal(t, []string{"BASELINE http://a/", "STRESS http://a/"}, line.begins)
	assert.Equal(t, []time.Duration{3 * time.Second, 7 * time.Second}, line.lengths)
	assert.Equal(t, 5, line.observed)
	assert.Equal(t, 2, line.ends)
}

func TestProgressEnabled(t *testing.T) {
	assert.True(t, progressEnabled(false, 1, true))
	assert.False(t, progressEnabled(true, 1, true))
	assert.False(t, progressEnabled(false, 4, true))
	assert.False(t, progressEnabled(false, 1, false))
}

func TestPrintPlan_SilentWritesNothing(t *testing.T) {
	ui.SetSilent(true)
	defer ui.SetSilent(false)

	// The ui helpers write to os.Stderr; swap it for the duration.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stderr
	os.Stderr = w
	printPlan(parse(t, "-url", "http://example.com/"), plan{Template: request.Template{Method: "GET"}}, "run")
	os.Stderr = orig
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
