package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PhaseProgress draws a single live status line for the phase in progress:
// spinner, target position, phase label, elapsed time and the event tally.
// It is safe for concurrent use but only meaningful for one phase at a time.
type PhaseProgress struct {
	w       io.Writer
	spinner Spinner

	mu       sync.Mutex
	label    string
	target   string
	position string
	length   time.Duration
	started  time.Time
	requests int
	counts   map[string]int
	tick     int
	active   bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPhaseProgress creates a progress line writing to w, normally stderr.
func NewPhaseProgress(w io.Writer) *PhaseProgress {
	return &PhaseProgress{w: w, spinner: DefaultSpinner()}
}

// Begin starts drawing for a new phase, ending any phase still shown.
func (p *PhaseProgress) Begin(targetIndex, targetTotal int, label, target string, length time.Duration) {
	p.End()

	p.mu.Lock()
	p.label = label
	p.target = target
	p.position = fmt.Sprintf("%d/%d", targetIndex, targetTotal)
	p.length = length
	p.started = time.Now()
	p.requests = 0
	p.counts = make(map[string]int)
	p.active = true
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.wg.Add(1)
	go p.loop(done)
}

// Observe records one classified request of the current phase.
func (p *PhaseProgress) Observe(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.requests++
	p.counts[event]++
}

// End clears the line and stops drawing. It is a no-op when idle.
func (p *PhaseProgress) End() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	fmt.Fprint(p.w, "\r\033[K")
}

func (p *PhaseProgress) loop(done <-chan struct{}) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.spinner.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.mu.Lock()
			line := p.render(time.Since(p.started))
			p.tick++
			p.mu.Unlock()
			fmt.Fprint(p.w, "\r\033[K"+line)
		}
	}
}

// render builds the status line. Callers hold p.mu.
func (p *PhaseProgress) render(elapsed time.Duration) string {
	if elapsed > p.length {
		elapsed = p.length
	}

	var b strings.Builder
	b.WriteString(SpinnerStyle.Render(p.spinner.Frame(p.tick)))
	b.WriteString(" ")
	b.WriteString(BracketStyle.Render("[" + p.position + "]"))
	b.WriteString(" ")
	b.WriteString(StatValueStyle.Render(p.label))
	fmt.Fprintf(&b, " %s/%s", elapsed.Truncate(time.Second), p.length)
	b.WriteString(StatLabelStyle.Render(fmt.Sprintf("  requests=%d", p.requests)))

	for _, e := range []string{"RATE_LIMIT", "WAF_BLOCK", "TIMEOUT", "SERVER_ERROR", "CLIENT_ERROR", "ERROR"} {
		if n := p.counts[e]; n > 0 {
			b.WriteString("  ")
			b.WriteString(EventStyle(e).Render(fmt.Sprintf("%s=%d", e, n)))
		}
	}
	return b.String()
}
