package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kafbench/kafbench/internal/producer"
)

// stubClient acknowledges every send immediately.
type stubClient struct {
	sent   atomic.Int64
	closes atomic.Int64
	fail   atomic.Bool
}

func (s *stubClient) Send(_ context.Context, _ string, _ int32, _ producer.Record, promise func(error)) error {
	if s.fail.Load() {
		return errors.New("transport down")
	}
	s.sent.Add(1)
	if promise != nil {
		promise(nil)
	}
	return nil
}

func (s *stubClient) BeginTransaction() error                 { return nil }
func (s *stubClient) CommitTransaction(context.Context) error { return nil }
func (s *stubClient) AbortTransaction(context.Context) error  { return nil }
func (s *stubClient) Close() error                            { s.closes.Add(1); return nil }

func newExecutor(t *testing.T, client producer.LogClient, records int64) *producer.Executor {
	t.Helper()
	ex, err := producer.NewExecutor("bench", 1, client, nil, producer.UnspecifiedPartition(), producer.RandomData(0, 8, records))
	require.NoError(t, err)
	return ex
}

func TestRunDrivesAllExecutorsToDone(t *testing.T) {
	clients := []*stubClient{{}, {}, {}}
	executors := make([]*producer.Executor, len(clients))
	for i, c := range clients {
		executors[i] = newExecutor(t, c, 50)
	}

	r := New(zerolog.Nop(), executors...)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, int64(150), r.TotalRecords())
	for i, c := range clients {
		assert.Equal(t, int64(50), c.sent.Load(), "client %d", i)
		assert.Equal(t, int64(1), c.closes.Load(), "client %d must be closed once", i)
	}
	for _, ex := range executors {
		assert.True(t, ex.Closed())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	client := &stubClient{}
	ex := newExecutor(t, client, 0) // unlimited

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(zerolog.Nop(), ex).Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err, "cancellation is a normal stop")
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
	assert.True(t, ex.Closed())
	assert.Positive(t, client.sent.Load())
}

func TestRunSurfacesExecutorFailure(t *testing.T) {
	client := &stubClient{}
	client.fail.Store(true)
	ex := newExecutor(t, client, 0)

	err := New(zerolog.Nop(), ex).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport down")
	assert.True(t, ex.Closed())
}

func TestRunConcurrentExecutorsTallyExactly(t *testing.T) {
	const (
		executorCount = 8
		perExecutor   = 200
	)
	executors := make([]*producer.Executor, executorCount)
	for i := range executors {
		executors[i] = newExecutor(t, &stubClient{}, perExecutor)
	}

	r := New(zerolog.Nop(), executors...)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, int64(executorCount*perExecutor), r.TotalRecords())
}
