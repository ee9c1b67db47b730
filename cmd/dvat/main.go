// Command dvat checks whether HTTP endpoints are shielded against request
// floods. Each target gets a low-rate baseline phase and a high-rate stress
// phase with the same request; the change in responses between the two is
// scored and the target is reported as protected or potentially vulnerable.
//
// Only run dvat against systems you are authorized to test.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/dvat-tool/dvat/pkg/assess"
	"github.com/dvat-tool/dvat/pkg/cli"
	"github.com/dvat-tool/dvat/pkg/config"
	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/duration"
	"github.com/dvat-tool/dvat/pkg/httpclient"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/ui"
)

func main() {
	prepareConsole()

	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(defaults.ExitSuccess)
		}
		exitWithError("%v", err)
	}
	ui.SetNoColor(cfg.NoColor)

	if cfg.ShowVersion {
		ui.PrintVersion(os.Stdout)
		return
	}
	if cfg.ShowExamples {
		ui.PrintExamples(os.Stdout)
		return
	}
	if err := cfg.Validate(); err != nil {
		exitWithError("%v", err)
	}
	ui.SetSilent(cfg.Silent)

	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)

	ui.PrintBanner(os.Stderr)

	p, err := loadPlan(cfg)
	if err != nil {
		exitWithError("%v", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:            cfg.Timeout(),
		InsecureSkipVerify: cfg.Insecure,
		Proxy:              cfg.Proxy,
	})
	if err != nil {
		exitWithError("%v", err)
	}

	out, closeOut, err := openOutput(cfg.OutputFile)
	if err != nil {
		exitWithError("%v", err)
	}

	interactive := term.IsTerminal(int(os.Stderr.Fd()))
	disp, sinks, err := newDispatcher(cfg, out, logger, progressEnabled(cfg.Silent, cfg.Concurrency, interactive))
	if err != nil {
		closeOut()
		exitWithError("%v", err)
	}
	if addr := sinks.metricsAddr; addr != "" {
		ui.PrintInfo("Metrics: " + addr)
	}

	runID := uuid.NewString()
	printPlan(cfg, p, runID)

	ctx, cancel := cli.SignalContext(context.Background(), duration.ShutdownGrace)
	defer cancel()

	_ = disp.Dispatch(ctx, events.NewStartEvent(runID, ui.Version, p.Targets, runConfig(cfg, p)))

	assessor := &assess.Assessor{
		Client:      client,
		Template:    p.Template,
		Credentials: p.Credentials,
		Baseline: assess.PhaseConfig{
			Duration: time.Duration(cfg.BaselineDuration) * duration.PhaseUnit,
			Rate:     cfg.BaselineRate,
		},
		Stress: assess.PhaseConfig{
			Duration: time.Duration(cfg.StressDuration) * duration.PhaseUnit,
			Rate:     cfg.StressRate,
		},
		Policy:       cfg.Policy(),
		Concurrency:  cfg.Concurrency,
		Sink:         disp,
		RunID:        runID,
		EmitRequests: sinks.wantRequests,
		Logger:       logger,
	}
	report := assessor.Run(ctx, p.Targets)

	code, reason := exitStatus(cfg.FailOnVulnerable, report, ctx.Err() != nil)

	// The run context may already be cancelled; the final events and the
	// exporter flush get their own deadline.
	closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), duration.ShutdownGrace)
	_ = disp.Dispatch(closeCtx, events.NewCompleteEvent(runID, code, reason, report.Summary))
	if err := disp.Close(closeCtx); err != nil {
		logger.Warn("closing output", slog.String("error", err.Error()))
	}
	closeCancel()
	closeOut()

	for _, f := range sinks.chartFiles() {
		ui.PrintSuccess("Chart written: " + f)
	}
	if report.Skipped > 0 {
		ui.PrintWarning(fmt.Sprintf("%d target(s) not assessed", report.Skipped))
	}

	cancel()
	os.Exit(code)
}
