package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the result of one execution cycle.
type State int

const (
	// Running means the cycle issued work and the executor can be driven again.
	Running State = iota
	// Done means the data supplier is exhausted. Done is terminal: every
	// subsequent cycle reports Done without sending.
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by Execute after Close has been called.
var ErrClosed = errors.New("producer executor is closed")

// Executor drives record production for one topic through one exclusively
// owned LogClient.
//
// A single goroutine calls Execute in a loop; completion continuations run
// on the client's completion context and may interleave with the next
// cycle, so the tally is guarded. Close may be called from any goroutine,
// any number of times.
type Executor struct {
	topic      string
	batchSize  int
	client     LogClient
	observer   Observer
	partitions PartitionSupplier
	data       DataSupplier

	done      atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	// mu guards the tally and the stored async failure. The observer is
	// invoked while holding mu so it sees cumulative counts in order.
	mu           sync.Mutex
	totalRecords int64
	totalElapsed time.Duration
	sendErr      error
}

// NewExecutor builds an executor. batchSize 1 sends records individually;
// batchSize > 1 groups that many records into one transaction per cycle,
// which requires a transactional client. A nil observer is allowed.
func NewExecutor(topic string, batchSize int, client LogClient, observer Observer, partitions PartitionSupplier, data DataSupplier) (*Executor, error) {
	if topic == "" {
		return nil, errors.New("topic must not be empty")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", batchSize)
	}
	if client == nil || partitions == nil || data == nil {
		return nil, errors.New("client, partition supplier, and data supplier are required")
	}
	return &Executor{
		topic:      topic,
		batchSize:  batchSize,
		client:     client,
		observer:   observer,
		partitions: partitions,
		data:       data,
	}, nil
}

// Topic returns the destination topic.
func (e *Executor) Topic() string { return e.topic }

// BatchSize returns the number of records grouped per cycle.
func (e *Executor) BatchSize() int { return e.batchSize }

// Transactional reports whether cycles send atomic groups.
func (e *Executor) Transactional() bool { return e.batchSize > 1 }

// Execute performs one production cycle.
//
// It returns Done once the data supplier is exhausted, and keeps returning
// Done on every later call. Otherwise it issues the cycle's sends and
// returns Running without waiting for acknowledgment. Calling Execute on a
// closed executor is a caller error and returns ErrClosed before anything
// is sent. A failure reported by an earlier completion is returned here on
// the next cycle rather than dropped.
func (e *Executor) Execute(ctx context.Context) (State, error) {
	if e.closed.Load() {
		return Done, ErrClosed
	}
	if err := e.Err(); err != nil {
		return Done, fmt.Errorf("previous send failed: %w", err)
	}
	if e.done.Load() {
		return Done, nil
	}

	partition := e.partitions.Next()
	if e.Transactional() {
		return e.executeGroup(ctx, partition)
	}

	rec, ok := e.data.Next()
	if !ok {
		e.done.Store(true)
		return Done, nil
	}
	start := time.Now()
	err := e.client.Send(ctx, e.topic, partition, rec, func(sendErr error) {
		if sendErr != nil {
			e.fail(sendErr)
			return
		}
		e.complete(1, time.Since(start))
	})
	if err != nil {
		return Done, fmt.Errorf("send: %w", err)
	}
	return Running, nil
}

// executeGroup sends one transaction group: batchSize records plus the
// control marker written by the commit. The group either commits whole or
// is aborted; the tally moves only after a successful commit.
func (e *Executor) executeGroup(ctx context.Context, partition int32) (State, error) {
	if err := e.client.BeginTransaction(); err != nil {
		return Done, fmt.Errorf("begin transaction: %w", err)
	}
	start := time.Now()
	for i := 0; i < e.batchSize; i++ {
		rec, ok := e.data.Next()
		if !ok {
			// No partial commits: drop the accumulated sends.
			e.done.Store(true)
			if err := e.client.AbortTransaction(ctx); err != nil {
				return Done, fmt.Errorf("abort transaction: %w", err)
			}
			return Done, nil
		}
		if err := e.client.Send(ctx, e.topic, partition, rec, nil); err != nil {
			if abortErr := e.client.AbortTransaction(ctx); abortErr != nil {
				return Done, fmt.Errorf("send: %w (abort failed: %v)", err, abortErr)
			}
			return Done, fmt.Errorf("send: %w", err)
		}
	}
	// Commit acknowledgment completes the whole group at once. The client
	// aborts internally if any send in the group failed.
	if err := e.client.CommitTransaction(ctx); err != nil {
		return Done, fmt.Errorf("commit transaction: %w", err)
	}
	e.complete(int64(e.batchSize), time.Since(start))
	return Running, nil
}

// Close marks the executor closed and releases its client. It is
// idempotent and safe to call concurrently with an in-flight Execute; it
// does not cancel sends already issued.
func (e *Executor) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.closeErr = e.client.Close()
	})
	return e.closeErr
}

// Closed reports whether Close has been called. It is independent of the
// Done state: a caller may close an executor long before its data runs out.
func (e *Executor) Closed() bool { return e.closed.Load() }

// Err returns the first failure reported by a completion continuation, if
// any.
func (e *Executor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sendErr
}

// TotalRecords returns the cumulative count of acknowledged records.
// Control markers are not counted.
func (e *Executor) TotalRecords() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalRecords
}

// TotalElapsed returns the summed per-unit durations of all completed
// units.
func (e *Executor) TotalElapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalElapsed
}

func (e *Executor) complete(records int64, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalRecords += records
	e.totalElapsed += elapsed
	if e.observer != nil {
		e.observer(e.totalRecords, elapsed)
	}
}

func (e *Executor) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sendErr == nil {
		e.sendErr = err
	}
}
