package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPreservesOrder(t *testing.T) {
	tasks := make([]Task[int], 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			return i * 2, nil
		}
	}

	results := Run(context.Background(), 3, tasks)

	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("task %d: unexpected error %v", i, r.Err)
		}
		if r.Value != i*2 {
			t.Errorf("task %d: got %d, want %d", i, r.Value, i*2)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	const limit = 2

	var running, peak atomic.Int64
	tasks := make([]Task[struct{}], 5)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}
	}

	Run(context.Background(), limit, tasks)

	if got := peak.Load(); got > limit {
		t.Errorf("peak concurrency %d exceeded limit %d", got, limit)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[string]{
		func(ctx context.Context) (string, error) { return "a", nil },
		func(ctx context.Context) (string, error) { return "", fmt.Errorf("task: %w", boom) },
		func(ctx context.Context) (string, error) { return "c", nil },
	}

	results := Run(context.Background(), 1, tasks)

	if results[0].Value != "a" || results[0].Err != nil {
		t.Errorf("slot 0 = %+v", results[0])
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("slot 1 err = %v, want boom", results[1].Err)
	}
	if results[1].Value != "" {
		t.Errorf("slot 1 value = %q, want zero", results[1].Value)
	}
	if results[2].Value != "c" || results[2].Err != nil {
		t.Errorf("slot 2 = %+v", results[2])
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
	}

	results := Run(ctx, 1, tasks)

	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", results[0].Err)
	}
}

func TestRunClampsLimit(t *testing.T) {
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 7, nil },
	}

	results := Run(context.Background(), 0, tasks)

	if results[0].Err != nil || results[0].Value != 7 {
		t.Errorf("got %+v", results[0])
	}
}
