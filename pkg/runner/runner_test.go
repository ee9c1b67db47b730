package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Run_BasicConcurrency(t *testing.T) {
	runner := NewRunner[string]()
	runner.Concurrency = 5

	targets := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	var concurrent int32
	var maxConcurrent int32

	task := func(ctx context.Context, _ int, target string) (string, error) {
		cur := atomic.AddInt32(&concurrent, 1)
		for {
			max := atomic.LoadInt32(&maxConcurrent)
			if cur <= max || atomic.CompareAndSwapInt32(&maxConcurrent, max, cur) {
				break
			}
		}

		time.Sleep(20 * time.Millisecond)

		atomic.AddInt32(&concurrent, -1)
		return "result-" + target, nil
	}

	results := runner.Run(context.Background(), targets, task)

	require.Len(t, results, len(targets))
	assert.LessOrEqual(t, atomic.LoadInt32(&maxConcurrent), int32(5))
	assert.Greater(t, atomic.LoadInt32(&maxConcurrent), int32(1))
}

func TestRunner_Run_PreservesInputOrder(t *testing.T) {
	runner := NewRunner[int]()
	runner.Concurrency = 4

	targets := []string{"slow", "b", "c", "d", "e"}
	task := func(ctx context.Context, i int, target string) (int, error) {
		if target == "slow" {
			time.Sleep(30 * time.Millisecond)
		}
		return i * 10, nil
	}

	results := runner.Run(context.Background(), targets, task)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, targets[i], r.Target)
		assert.Equal(t, i*10, r.Data)
		assert.NoError(t, r.Error)
	}
}

func TestRunner_Run_SequentialByDefault(t *testing.T) {
	runner := NewRunner[struct{}]()

	var active, overlap int32
	task := func(ctx context.Context, _ int, _ string) (struct{}, error) {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return struct{}{}, nil
	}

	runner.Run(context.Background(), []string{"a", "b", "c"}, task)
	assert.Zero(t, atomic.LoadInt32(&overlap))
}

func TestRunner_Run_ErrorHandling(t *testing.T) {
	runner := NewRunner[string]()
	boom := errors.New("boom")

	results := runner.Run(context.Background(), []string{"ok", "fail"}, func(ctx context.Context, _ int, target string) (string, error) {
		if target == "fail" {
			return "", boom
		}
		return target, nil
	})

	assert.NoError(t, results[0].Error)
	assert.ErrorIs(t, results[1].Error, boom)
	assert.Equal(t, int64(1), runner.Stats.Failed)
	assert.Equal(t, int64(2), runner.Stats.Completed)
	assert.InDelta(t, 100.0, runner.Stats.Progress(), 0.001)
}

func TestRunner_Run_ContextCancellation(t *testing.T) {
	runner := NewRunner[string]()

	ctx, cancel := context.WithCancel(context.Background())
	results := runner.Run(ctx, []string{"a", "b", "c"}, func(ctx context.Context, _ int, target string) (string, error) {
		cancel()
		return target, nil
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Error)
	assert.ErrorIs(t, results[1].Error, ErrNotStarted)
	assert.ErrorIs(t, results[2].Error, ErrNotStarted)
}

func TestRunner_Run_CancelledBeforeStart(t *testing.T) {
	runner := NewRunner[string]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := runner.Run(ctx, []string{"a"}, func(ctx context.Context, _ int, target string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return target, nil
	})

	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.ErrorIs(t, results[0].Error, ErrNotStarted)
}

func TestRunner_OnProgress(t *testing.T) {
	runner := NewRunner[string]()
	var last int64
	runner.OnProgress = func(completed, total int64, _ Result[string]) {
		atomic.StoreInt64(&last, completed)
		assert.Equal(t, int64(3), total)
	}

	runner.Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, _ int, target string) (string, error) {
		return target, nil
	})
	assert.Equal(t, int64(3), atomic.LoadInt64(&last))
}

func TestRunner_EmptyTargets(t *testing.T) {
	runner := NewRunner[string]()
	results := runner.Run(context.Background(), nil, func(ctx context.Context, _ int, target string) (string, error) {
		t.Fatal("task must not run")
		return "", nil
	})
	assert.Nil(t, results)
}

func TestRunner_ConcurrencyClamped(t *testing.T) {
	runner := NewRunner[int]()
	runner.Concurrency = 10_000

	targets := make([]string, 60)
	for i := range targets {
		targets[i] = "t"
	}
	var active, peak int32
	runner.Run(context.Background(), targets, func(ctx context.Context, i int, _ string) (int, error) {
		cur := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return i, nil
	})
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(50))
}
