// Package cli holds process-level helpers shared by the dvat command.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvat-tool/dvat/pkg/defaults"
	"github.com/dvat-tool/dvat/pkg/ui"
)

// InterruptNotice is printed when the first interrupt arrives.
const InterruptNotice = "Interrupt received, finishing in-flight requests (press Ctrl-C again to abort)"

// SignalContext derives a context from parent that is cancelled on the first
// SIGINT or SIGTERM. Scheduling stops at that point and the run reports what
// it has. A second signal within grace exits with defaults.ExitInterrupted.
//
//	ctx, cancel := cli.SignalContext(context.Background(), duration.ShutdownGrace)
//	defer cancel()
func SignalContext(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	return watchSignals(parent, grace, nil, nil)
}

// watchSignals is SignalContext with an injectable signal source and exit
// function. A nil sigs subscribes to the real process signals.
func watchSignals(
	parent context.Context,
	grace time.Duration,
	sigs chan os.Signal,
	exit func(int),
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	subscribed := sigs == nil
	if subscribed {
		sigs = make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	}
	if exit == nil {
		exit = os.Exit
	}

	go func() {
		defer func() {
			if subscribed {
				signal.Stop(sigs)
			}
		}()

		select {
		case <-ctx.Done():
			return
		case <-sigs:
		}

		ui.PrintWarning(InterruptNotice)
		cancel()

		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-sigs:
			exit(defaults.ExitInterrupted)
		case <-timer.C:
		}
	}()

	return ctx, cancel
}
