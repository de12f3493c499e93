package executor

import (
	"context"
	"sync"
)

// Task produces a single value or an error.
type Task[T any] func(ctx context.Context) (T, error)

// Result holds the outcome of one task. Value is the zero value when Err
// is non-nil.
type Result[T any] struct {
	Value T
	Err   error
}

// Run executes all tasks with at most limit running concurrently. The
// returned slice has one entry per task, in the same order the tasks were
// given. A failed task fills its own slot only; the rest still run. A limit
// below 1 is treated as 1.
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) []Result[T] {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result[T], len(tasks))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, task Task[T]) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			results[i].Value, results[i].Err = task(ctx)
		}(i, task)
	}

	wg.Wait()
	return results
}
