package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/dvat-tool/dvat/pkg/assess"
	"github.com/dvat-tool/dvat/pkg/config"
	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/output/hooks"
	"github.com/dvat-tool/dvat/pkg/output/writers"
	"github.com/dvat-tool/dvat/pkg/request"
	"github.com/dvat-tool/dvat/pkg/ui"
)

// plan is what every target receives: one request template, the token
// rotation set, and the expanded target list.
type plan struct {
	Template    request.Template
	Credentials request.Credentials
	Targets     []string
}

// loadPlan reads the request inputs named in cfg. A raw request file
// replaces -method, -data and -headers-file entirely; when neither -path
// nor -paths-file is set its request-line path is used for domain targets.
func loadPlan(cfg *config.Config) (plan, error) {
	var (
		p   plan
		err error
	)

	if cfg.RequestFile != "" {
		p.Template, err = request.LoadRaw(cfg.RequestFile)
	} else {
		var headers request.Headers
		if headers, err = request.LoadHeaders(cfg.HeadersFile); err != nil {
			return plan{}, err
		}
		p.Template, err = request.NewTemplate(cfg.Method, headers, cfg.Data, cfg.Path)
	}
	if err != nil {
		return plan{}, err
	}
	if !p.Template.Headers.Has("User-Agent") {
		p.Template.Headers = p.Template.Headers.Set("User-Agent", ui.UserAgent())
	}

	single := cfg.Path
	if single == "" && cfg.RequestFile != "" {
		single = p.Template.Path
	}
	paths, err := request.LoadPaths(cfg.PathsFile, single)
	if err != nil {
		return plan{}, err
	}
	if p.Credentials, err = request.LoadTokens(cfg.TokensFile); err != nil {
		return plan{}, err
	}

	p.Targets = request.BuildTargets(cfg.URL, cfg.Domain, cfg.Port, paths)
	return p, nil
}

// newLogger returns a text logger on w: debug with -verbose, warn with
// -silent, info otherwise.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case cfg.Verbose:
		level = slog.LevelDebug
	case cfg.Silent:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func nopClose() {}

// openOutput returns the report destination: stdout, or the -o file.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, nopClose, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("output: %w", err)
	}
	// Document writers close f themselves; a second Close is harmless.
	return f, func() { _ = f.Close() }, nil
}

// noClose hides Close so document writers leave stdout open.
type noClose struct{ io.Writer }

// newReportWriter returns the writer for -format.
func newReportWriter(cfg *config.Config, out io.Writer) (dispatcher.Writer, error) {
	doc := out
	if f, ok := out.(*os.File); ok && f == os.Stdout {
		doc = noClose{out}
	}

	switch cfg.Format {
	case config.FormatJSON:
		return writers.NewJSONWriter(doc, writers.JSONOptions{Pretty: true}), nil
	case config.FormatJSONL:
		return writers.NewJSONLWriter(doc, writers.JSONLOptions{IncludeRequests: cfg.IncludeRequests}), nil
	case config.FormatCSV, config.FormatMarkdown, config.FormatTextSummary:
		return writers.NewTemplateWriter(doc, writers.TemplateConfig{BuiltIn: cfg.Format})
	case config.FormatTemplate:
		return writers.NewTemplateWriter(doc, writers.TemplateConfig{TemplatePath: cfg.Template})
	default:
		return writers.NewConsoleWriter(out, writers.ConsoleOptions{ShowSignals: true, ShowPhases: cfg.Verbose}), nil
	}
}

// sinkSet records what newDispatcher attached.
type sinkSet struct {
	charts       *writers.ChartWriter
	metricsAddr  string
	wantRequests bool
}

func (s sinkSet) chartFiles() []string {
	if s.charts == nil {
		return nil
	}
	return s.charts.Files()
}

// newDispatcher wires the report writer, optional charts, and the hooks
// enabled by cfg. Hooks run synchronously so the progress line and log
// lines keep event order.
func newDispatcher(cfg *config.Config, out io.Writer, logger *slog.Logger, progress bool) (*dispatcher.Dispatcher, sinkSet, error) {
	var s sinkSet

	report, err := newReportWriter(cfg, out)
	if err != nil {
		return nil, s, err
	}

	d := dispatcher.New(dispatcher.Config{Logger: logger})
	d.RegisterWriter(report)

	if cfg.ChartDir != "" {
		if s.charts, err = writers.NewChartWriter(cfg.ChartDir); err != nil {
			return nil, s, err
		}
		d.RegisterWriter(s.charts)
	}

	if progress {
		d.RegisterHook(newProgressHook(ui.NewPhaseProgress(os.Stderr)))
		s.wantRequests = true
	}
	d.RegisterHook(hooks.NewLogHook(logger))

	if cfg.MetricsPort > 0 {
		prom, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{Port: cfg.MetricsPort, Logger: logger})
		if err != nil {
			return nil, s, err
		}
		d.RegisterHook(prom)
		s.metricsAddr = prom.MetricsAddr()
		s.wantRequests = true
	}

	if cfg.OTelEndpoint != "" {
		otel, err := hooks.NewOTelHook(hooks.OTelOptions{Endpoint: cfg.OTelEndpoint, Insecure: cfg.OTelInsecure})
		if err != nil {
			return nil, s, err
		}
		d.RegisterHook(otel)
	}

	if cfg.IncludeRequests || cfg.Verbose {
		s.wantRequests = true
	}
	return d, s, nil
}

// runConfig is the settings echo carried by the start event.
func runConfig(cfg *config.Config, p plan) events.RunConfig {
	return events.RunConfig{
		Method:           p.Template.Method,
		BaselineDuration: cfg.BaselineDuration,
		BaselineRate:     cfg.BaselineRate,
		StressDuration:   cfg.StressDuration,
		StressRate:       cfg.StressRate,
		Schedule:         string(cfg.Policy()),
		Concurrency:      cfg.Concurrency,
		TimeoutSec:       cfg.TimeoutSec,
		Tokens:           p.Credentials.Len(),
		VerifyTLS:        !cfg.Insecure,
		Proxied:          cfg.Proxy != "",
	}
}

// printPlan shows the run settings on stderr.
func printPlan(cfg *config.Config, p plan, runID string) {
	ui.PrintSection("Configuration")
	ui.PrintConfigLine("Targets", strconv.Itoa(len(p.Targets)))
	ui.PrintConfigLine("Method", p.Template.Method)
	ui.PrintConfigLine("Baseline", fmt.Sprintf("%ds @ %g req/s", cfg.BaselineDuration, cfg.BaselineRate))
	ui.PrintConfigLine("Stress", fmt.Sprintf("%ds @ %g req/s", cfg.StressDuration, cfg.StressRate))
	ui.PrintConfigLine("Schedule", string(cfg.Policy()))
	if n := p.Credentials.Len(); n > 0 {
		ui.PrintConfigLine("Tokens", strconv.Itoa(n))
	}
	if cfg.Proxy != "" {
		ui.PrintConfigLine("Proxy", cfg.Proxy)
	}
	ui.PrintConfigLine("Run ID", runID)
	ui.PrintDivider()
}

// exitStatus maps the run outcome to a process exit code and reason.
func exitStatus(failOnVulnerable bool, r assess.Report, interrupted bool) (int, string) {
	switch {
	case interrupted:
		return defaults.ExitInterrupted, "interrupted"
	case failOnVulnerable && r.Vulnerable() > 0:
		return defaults.ExitVulnerable, fmt.Sprintf("%d of %d targets potentially vulnerable", r.Vulnerable(), r.Total)
	default:
		return defaults.ExitSuccess, "completed"
	}
}
