package dispatch

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Executor runs a single task. Returning an error wrapping ErrUnavailable
// aborts the whole batch; any other error is absorbed as a failed item.
type Executor func(ctx context.Context, task Task) (*Result, error)

// Parallel fans a batch out over an Executor with bounded concurrency and
// joins all items before returning. One slow or failed item delays the
// batch but never corrupts it: each slot is written exactly once, by its
// own goroutine.
type Parallel struct {
	exec       Executor
	maxWorkers int
}

// NewParallel wraps a per-item executor. maxWorkers <= 0 defaults to 8.
func NewParallel(exec Executor, maxWorkers int) *Parallel {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &Parallel{exec: exec, maxWorkers: maxWorkers}
}

// ExecuteParallel implements Dispatcher.
func (p *Parallel) ExecuteParallel(ctx context.Context, tasks []Task) (*Batch, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxWorkers)

	results := make([]Result, len(tasks))

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			res, err := p.exec(ctx, task)
			if err != nil {
				if errors.Is(err, ErrUnavailable) {
					return err
				}
				results[i] = Result{Success: false, Error: err.Error()}
				return nil
			}
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Batch{Results: results}, nil
}
