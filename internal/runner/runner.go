// Package runner drives a fleet of producer executors, one goroutine per
// executor, until data exhaustion, cancellation, or failure.
package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kafbench/kafbench/internal/producer"
)

// Runner owns the caller side of the engine contract: each executor is
// driven by exactly one goroutine calling Execute in a loop.
type Runner struct {
	executors []*producer.Executor
	log       zerolog.Logger
}

// New builds a runner over the given executors.
func New(log zerolog.Logger, executors ...*producer.Executor) *Runner {
	return &Runner{executors: executors, log: log}
}

// Run drives every executor until it reports Done, the context is
// cancelled, or a cycle fails. All executors are closed before Run
// returns; the first error per executor is joined into the result.
// Context cancellation is a normal stop, not an error.
func (r *Runner) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, ex := range r.executors {
		wg.Add(1)
		go func(id int, ex *producer.Executor) {
			defer wg.Done()
			if err := r.drive(ctx, ex); err != nil {
				r.log.Error().Err(err).Int("executor", id).Str("topic", ex.Topic()).Msg("executor stopped")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i, ex)
	}
	wg.Wait()

	for _, ex := range r.executors {
		if err := ex.Close(); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) drive(ctx context.Context, ex *producer.Executor) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		state, err := ex.Execute(ctx)
		switch {
		case errors.Is(err, producer.ErrClosed):
			// Closed out from under us, e.g. by a concurrent shutdown.
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return err
		case state == producer.Done:
			return nil
		}
	}
}

// TotalRecords sums the acknowledged records across all executors.
func (r *Runner) TotalRecords() int64 {
	var total int64
	for _, ex := range r.executors {
		total += ex.TotalRecords()
	}
	return total
}
