package agent

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Runner runs a single task. *Agent implements it.
type Runner interface {
	RunTask(ctx context.Context, task string, opts ...RunOption) (Result, error)
}

// BatchResult pairs a task with its outcome.
type BatchResult struct {
	Task   string
	Result Result
	Err    error
}

// RunBatch runs tasks with at most concurrency runs in flight. Results keep
// the order of tasks. A failed run does not stop the others; the returned
// error is only set when ctx ends before every task started.
func RunBatch(ctx context.Context, r Runner, tasks []string, concurrency int, opts ...RunOption) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]BatchResult, len(tasks))
	sem := semaphore.NewWeighted(int64(concurrency))

	var g errgroup.Group
	for i, task := range tasks {
		results[i].Task = task
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(tasks); j++ {
				results[j] = BatchResult{Task: tasks[j], Err: err}
			}
			_ = g.Wait()
			return results, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			res, err := r.RunTask(ctx, task, opts...)
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}
	return results, g.Wait()
}
