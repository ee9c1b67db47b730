package main

import (
	"context"
	"sync"
	"time"

	"github.com/dvat-tool/dvat/pkg/duration"
	"github.com/dvat-tool/dvat/pkg/output/dispatcher"
	"github.com/dvat-tool/dvat/pkg/output/events"
	"github.com/dvat-tool/dvat/pkg/probe"
	"github.com/dvat-tool/dvat/pkg/ui"
)

var _ dispatcher.ShutdownHook = (*progressHook)(nil)

// progressLine is the part of ui.PhaseProgress the hook drives.
type progressLine interface {
	Begin(targetIndex, targetTotal int, label, target string, length time.Duration)
	Observe(event string)
	End()
}

// progressHook feeds request events into a live phase status line. A new
// line starts on the first request of each target phase and is cleared
// when the phase result arrives.
type progressHook struct {
	line progressLine

	mu      sync.Mutex
	total   int
	lengths map[string]time.Duration
	index   int
	phase   string
}

func newProgressHook(line progressLine) *progressHook {
	return &progressHook{line: line, lengths: make(map[string]time.Duration)}
}

func (h *progressHook) EventTypes() []events.EventType {
	return []events.EventType{events.EventTypeStart, events.EventTypeRequest, events.EventTypePhase}
}

func (h *progressHook) OnEvent(_ context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := event.(type) {
	case *events.StartEvent:
		h.total = len(e.Targets)
		h.lengths[probe.Baseline] = time.Duration(e.Config.BaselineDuration) * duration.PhaseUnit
		h.lengths[probe.Stress] = time.Duration(e.Config.StressDuration) * duration.PhaseUnit
	case *events.RequestEvent:
		if e.TargetIndex != h.index || e.Phase != h.phase {
			h.index, h.phase = e.TargetIndex, e.Phase
			h.line.Begin(e.TargetIndex, h.total, e.Phase, e.Target, h.lengths[e.Phase])
		}
		h.line.Observe(string(e.Event))
	case *events.PhaseEvent:
		h.line.End()
		h.phase = ""
	}
	return nil
}

// Shutdown clears a line left over from an interrupted phase.
func (h *progressHook) Shutdown(context.Context) error {
	h.line.End()
	return nil
}

// progressEnabled reports whether a live line fits the run: an interactive
// stderr, no silent mode, and one target at a time so lines never overlap.
func progressEnabled(silent bool, concurrency int, interactive bool) bool {
	return interactive && !silent && concurrency <= 1
}

var _ progressLine = (*ui.PhaseProgress)(nil)
