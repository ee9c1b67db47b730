package hooks

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/probe"
)

func scrape(t *testing.T, h *PrometheusHook) string {
	t.Helper()
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPrometheusHook_NoPortNoServer(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)
	assert.Empty(t, h.MetricsAddr())
	assert.NoError(t, h.Shutdown(context.Background()))
}

func TestPrometheusHook_RecordsEvents(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)
	ctx := context.Background()

	for i := range 3 {
		rec := probe.Record{Phase: probe.Stress, Target: "https://example.com/", Index: i, Event: probe.RateLimit, Status: 429}
		require.NoError(t, h.OnEvent(ctx, events.NewRequestEvent(testRun, 1, rec)))
	}
	timeout := probe.Record{Phase: probe.Stress, Target: "https://example.com/", Index: 3, Event: probe.Timeout, Failure: probe.FailureTimeout}
	require.NoError(t, h.OnEvent(ctx, events.NewRequestEvent(testRun, 1, timeout)))

	v := testVerdict()
	require.NoError(t, h.OnEvent(ctx, v))
	require.NoError(t, h.OnEvent(ctx, testSummary(v)))

	body := scrape(t, h)
	assert.Contains(t, body, `dvat_requests_total{event="RATE_LIMIT",phase="STRESS",target="https://example.com/"} 3`)
	assert.Contains(t, body, `dvat_requests_total{event="TIMEOUT",phase="STRESS",target="https://example.com/"} 1`)
	assert.Contains(t, body, `dvat_request_latency_seconds_count{phase="STRESS",target="https://example.com/"} 3`)
	assert.Contains(t, body, `dvat_risk_score{target="https://example.com/"} 60`)
	assert.Contains(t, body, `dvat_target_protected{dominant_event="RATE_LIMIT",target="https://example.com/"} 1`)
	assert.Contains(t, body, "dvat_targets_total 1")
	assert.Contains(t, body, "dvat_targets_protected 1")
}

func TestPrometheusHook_IgnoresEventsAfterShutdown(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)
	require.NoError(t, h.Shutdown(context.Background()))

	v := testVerdict()
	require.NoError(t, h.OnEvent(context.Background(), v))
	assert.NotContains(t, scrape(t, h), "dvat_risk_score{")
}

func TestPrometheusHook_ServesOnPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	h, err := NewPrometheusHook(PrometheusOptions{Port: port})
	require.NoError(t, err)
	defer h.Shutdown(context.Background())
	require.NotEmpty(t, h.MetricsAddr())

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPrometheusHook_BusyPortFails(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = NewPrometheusHook(PrometheusOptions{Port: ln.Addr().(*net.TCPAddr).Port})
	assert.Error(t, err)
}

func TestPrometheusHook_EventTypes(t *testing.T) {
	h, err := NewPrometheusHook(PrometheusOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []events.EventType{
		events.EventTypeRequest, events.EventTypeVerdict, events.EventTypeSummary,
	}, h.EventTypes())
}
