// Package runner executes one task per target with bounded concurrency.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dvat-tool/dvat/pkg/defaults"
)

// Result represents the result of processing a single target
type Result[T any] struct {
	Index    int
	Target   string
	Data     T
	Error    error
	Duration time.Duration
}

// Stats tracks execution statistics
type Stats struct {
	Total     int64
	Completed int64
	Failed    int64
	StartTime time.Time
}

// Progress returns completion percentage (0-100)
func (s *Stats) Progress() float64 {
	total := atomic.LoadInt64(&s.Total)
	if total == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&s.Completed)) / float64(total) * 100
}

// Runner executes tasks across multiple targets
type Runner[T any] struct {
	// Concurrency is the number of parallel workers (default 1)
	Concurrency int

	// Stats tracks execution statistics
	Stats Stats

	// OnProgress is called after each target completes. With Concurrency
	// above 1 it may be called from several goroutines at once.
	OnProgress func(completed, total int64, result Result[T])
}

// NewRunner creates a runner that processes targets one at a time.
func NewRunner[T any]() *Runner[T] {
	return &Runner[T]{Concurrency: defaults.ConcurrencyMinimal}
}

// TaskFunc is the function type for processing a single target
type TaskFunc[T any] func(ctx context.Context, index int, target string) (T, error)

// Run executes task for every target and returns one result per target in
// input order. Once ctx is done no new target is launched; those targets
// carry ErrNotStarted. Tasks already running are left to observe ctx.
func (r *Runner[T]) Run(ctx context.Context, targets []string, task TaskFunc[T]) []Result[T] {
	if len(targets) == 0 {
		return nil
	}

	r.Stats = Stats{
		Total:     int64(len(targets)),
		StartTime: time.Now(),
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = defaults.ConcurrencyMinimal
	}
	if concurrency > defaults.ConcurrencyMax {
		concurrency = defaults.ConcurrencyMax
	}
	if concurrency > len(targets) {
		concurrency = len(targets)
	}

	results := make([]Result[T], len(targets))
	for i, t := range targets {
		results[i] = Result[T]{Index: i, Target: t, Error: ErrNotStarted}
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

launch:
	for i, target := range targets {
		select {
		case <-ctx.Done():
			break launch
		case sem <- struct{}{}:
		}
		// A slot and cancellation may be ready together.
		if ctx.Err() != nil {
			<-sem
			break
		}

		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			data, err := task(ctx, i, t)
			res := Result[T]{
				Index:    i,
				Target:   t,
				Data:     data,
				Error:    err,
				Duration: time.Since(start),
			}
			// Each goroutine owns its slot.
			results[i] = res

			completed := atomic.AddInt64(&r.Stats.Completed, 1)
			if err != nil {
				atomic.AddInt64(&r.Stats.Failed, 1)
			}
			if r.OnProgress != nil {
				r.OnProgress(completed, r.Stats.Total, res)
			}
		}(i, target)
	}

	wg.Wait()
	return results
}
