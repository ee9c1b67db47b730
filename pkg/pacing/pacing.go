// Package pacing spaces the requests of one probe phase.
//
// Three policies are available. Interval sleeps a fixed 1/rate after every
// reply, so the achieved rate sags as the target slows down; it is the
// default because historical results were collected that way. Cadence
// anchors request i to start+i/rate and skips the sleep when behind.
// TokenBucket delegates to golang.org/x/time/rate with a burst of one.
package pacing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Policy names a pacing strategy.
type Policy string

const (
	Interval    Policy = "interval"
	Cadence     Policy = "cadence"
	TokenBucket Policy = "token-bucket"
)

// ErrUnknownPolicy is returned by ParsePolicy for unrecognised names.
var ErrUnknownPolicy = errors.New("pacing: unknown policy")

// Policies lists every policy, default first.
func Policies() []Policy {
	return []Policy{Interval, Cadence, TokenBucket}
}

// ParsePolicy maps a flag value to a Policy. Empty selects Interval.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Interval, nil
	case Interval, Cadence, TokenBucket:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (use interval, cadence or token-bucket)", ErrUnknownPolicy, s)
	}
}

// Pacer blocks between consecutive requests. Wait is called once after
// each request; it returns ctx.Err() if the context ends first.
type Pacer interface {
	Wait(ctx context.Context) error
}

// New returns a pacer for policy at perSecond requests per second, anchored
// at the current time. perSecond <= 0 disables waiting.
func New(policy Policy, perSecond float64) Pacer {
	if perSecond <= 0 {
		return noWait{}
	}
	switch policy {
	case Cadence:
		return &cadence{
			start: time.Now(),
			step:  time.Duration(float64(time.Second) / perSecond),
		}
	case TokenBucket:
		lim := rate.NewLimiter(rate.Limit(perSecond), 1)
		// The request that precedes the first Wait spends the initial token.
		lim.Allow()
		return &bucket{lim: lim}
	default:
		return &interval{step: time.Duration(float64(time.Second) / perSecond)}
	}
}

type noWait struct{}

func (noWait) Wait(ctx context.Context) error { return ctx.Err() }

type interval struct {
	step time.Duration
}

func (p *interval) Wait(ctx context.Context) error {
	return sleep(ctx, p.step)
}

type cadence struct {
	start time.Time
	step  time.Duration
	sent  int64
}

func (p *cadence) Wait(ctx context.Context) error {
	p.sent++
	next := p.start.Add(time.Duration(p.sent) * p.step)
	return sleep(ctx, time.Until(next))
}

type bucket struct {
	lim *rate.Limiter
}

func (p *bucket) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}

// sleep waits for d or until ctx is done. d <= 0 only checks ctx.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
