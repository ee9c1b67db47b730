package probe

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dvat-tool/dvat/pkg/iohelper"
	"github.com/dvat-tool/dvat/pkg/pacing"
	"github.com/dvat-tool/dvat/pkg/request"
	"github.com/dvat-tool/dvat/pkg/waf"
)

// Phase labels.
const (
	Baseline = "BASELINE"
	Stress   = "STRESS"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Phase configures one run of the request loop.
type Phase struct {
	// Label names the phase in results, typically Baseline or Stress.
	Label string
	// Template must be bound to a target URL.
	Template    request.Template
	Credentials request.Credentials
	Duration    time.Duration
	// Rate is requests per second; <= 0 sends back to back.
	Rate   float64
	Policy pacing.Policy
}

// Record describes one attempted request, as passed to Runner.OnRequest.
type Record struct {
	Phase   string
	Target  string
	Index   int
	Event   Event
	Status  int
	Latency time.Duration
	Failure Failure
	Vendors waf.Vendors
}

// PhaseResult aggregates one phase. It is not modified after Run returns.
type PhaseResult struct {
	Phase    string        `json:"phase"`
	Target   string        `json:"target"`
	Requests int           `json:"requests"`
	Started  time.Time     `json:"started"`
	Elapsed  time.Duration `json:"elapsed,format:nano"`

	// AverageLatency is in seconds, 0 when no response arrived.
	AverageLatency float64 `json:"average_latency"`
	// Latencies holds the round-trip seconds of each response, in request
	// order. Timeouts and transport failures have no sample.
	Latencies []float64 `json:"latencies"`

	EventCounts Counts      `json:"event_counts"`
	WAFVendors  waf.Vendors `json:"waf_vendors"`

	// Signatures counts distinct response shapes.
	Signatures       int  `json:"signatures"`
	RateLimitHeaders bool `json:"rate_limit_headers"`
}

// Vendors returns the sorted vendor list for reporting.
func (r PhaseResult) Vendors() []string { return r.WAFVendors.List() }

// Runner executes phases. The zero value is not usable; Client is required.
type Runner struct {
	Client Doer
	Logger *slog.Logger

	// OnRequest, when set, is called synchronously after each request.
	OnRequest func(Record)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run sends requests for p.Duration, strictly one at a time, and returns the
// aggregate. Cancellation is checked before each request; a request already
// in flight completes or times out on its own. Run never returns an error:
// every failure becomes an event.
func (r *Runner) Run(ctx context.Context, p Phase) PhaseResult {
	log := r.logger().With(slog.String("phase", p.Label), slog.String("target", p.Template.URL))

	res := PhaseResult{
		Phase:       p.Label,
		Target:      p.Template.URL,
		Latencies:   []float64{},
		EventCounts: make(Counts),
		WAFVendors:  make(waf.Vendors),
	}
	shapes := make(map[uint32]struct{})

	res.Started = time.Now()
	pacer := pacing.New(p.Policy, p.Rate)

	var total time.Duration
	for index := 0; time.Since(res.Started) < p.Duration; index++ {
		if ctx.Err() != nil {
			log.Debug("phase cancelled", slog.Int("requests", res.Requests))
			break
		}

		rec := r.send(ctx, p, index)
		res.Requests++
		res.EventCounts[rec.Event]++

		if rec.Failure == FailureNone {
			total += rec.Latency
			res.Latencies = append(res.Latencies, rec.Latency.Seconds())
			res.WAFVendors.Union(rec.Vendors)
			shapes[rec.shape] = struct{}{}
		}
		res.RateLimitHeaders = res.RateLimitHeaders || rec.rateLimited

		if r.OnRequest != nil {
			r.OnRequest(rec.Record)
		}

		if err := pacer.Wait(ctx); err != nil {
			break
		}
	}

	res.Elapsed = time.Since(res.Started)
	res.Signatures = len(shapes)
	if n := len(res.Latencies); n > 0 {
		res.AverageLatency = total.Seconds() / float64(n)
	}

	log.Debug("phase complete",
		slog.Int("requests", res.Requests),
		slog.Float64("avg_latency", res.AverageLatency),
		slog.Any("events", map[Event]int(res.EventCounts)),
	)
	return res
}

type sent struct {
	Record
	shape       uint32
	rateLimited bool
}

// send issues request index and classifies what came back. The request
// is detached from ctx cancellation so it is never cut short mid-flight;
// the client timeout bounds it instead.
func (r *Runner) send(ctx context.Context, p Phase, index int) sent {
	out := sent{Record: Record{Phase: p.Label, Target: p.Template.URL, Index: index}}

	req, err := p.Template.Build(context.WithoutCancel(ctx), p.Credentials, index)
	if err != nil {
		o := OutcomeFromError(err)
		out.Event, out.Failure = Classify(o), o.Failure
		return out
	}

	begin := time.Now()
	resp, err := r.Client.Do(req)
	if err != nil {
		o := OutcomeFromError(err)
		out.Event, out.Failure = Classify(o), o.Failure
		r.logger().Debug("request failed",
			slog.String("target", p.Template.URL),
			slog.Int("index", index),
			slog.String("failure", string(o.Failure)),
			slog.String("error", err.Error()),
		)
		return out
	}
	if _, err := iohelper.DrainAndClose(resp.Body); err != nil {
		// A body that stalls past the client timeout is a timeout, not a response.
		o := OutcomeFromError(err)
		out.Event, out.Failure = Classify(o), o.Failure
		r.logger().Debug("reading body failed",
			slog.String("target", p.Template.URL),
			slog.Int("index", index),
			slog.Int("status", resp.StatusCode),
			slog.String("failure", string(o.Failure)),
			slog.String("error", err.Error()),
		)
		return out
	}
	out.Latency = time.Since(begin)

	o := Response(resp.StatusCode, resp.Header)
	out.Event = Classify(o)
	out.Status = resp.StatusCode
	out.Vendors = waf.Fingerprint(resp.Header)
	out.shape = Signature(resp.StatusCode, resp.Header)
	out.rateLimited = HasRateLimitHeaders(resp.Header)
	return out
}
