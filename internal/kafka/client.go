// Package kafka implements the producer.LogClient contract on top of
// franz-go, plus the admin helpers driver code uses around the engine.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kzerolog"

	"github.com/kafbench/kafbench/internal/producer"
)

// ErrNotTransactional is returned when transaction operations are invoked
// on a client built without a transactional id.
var ErrNotTransactional = errors.New("kafka client is not transactional")

// ClientConfig configures a Client.
type ClientConfig struct {
	// Brokers are the seed broker addresses.
	Brokers []string

	// TransactionalID, when non-empty, enables transactional production.
	TransactionalID string

	// Linger delays produce batches to improve batching. Zero sends
	// immediately, which is what a latency benchmark usually wants.
	Linger time.Duration

	// MaxBufferedRecords caps in-flight unacknowledged records. Zero uses
	// the franz-go default.
	MaxBufferedRecords int

	// Logger receives client-internal logs. A zero value disables them.
	Logger zerolog.Logger
}

// Client produces records through a kgo.Client. One Client is owned by
// exactly one executor.
type Client struct {
	cl            *kgo.Client
	transactional bool
	log           zerolog.Logger

	// txnMu guards the first send failure observed inside the open
	// transaction; CommitTransaction consults it after flushing.
	txnMu  sync.Mutex
	txnErr error

	closeOnce sync.Once
}

// NewClient connects a produce-only client. Explicit record partitions are
// honoured; unspecified partitions fall back to the sticky key partitioner.
func NewClient(cfg ClientConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RecordPartitioner(newExplicitPartitioner()),
		kgo.ProducerLinger(cfg.Linger),
		kgo.WithLogger(kzerolog.New(&cfg.Logger)),
	}
	if cfg.MaxBufferedRecords > 0 {
		opts = append(opts, kgo.MaxBufferedRecords(cfg.MaxBufferedRecords))
	}
	if cfg.TransactionalID != "" {
		opts = append(opts, kgo.TransactionalID(cfg.TransactionalID))
	}
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("new kafka client: %w", err)
	}
	return &Client{
		cl:            cl,
		transactional: cfg.TransactionalID != "",
		log:           cfg.Logger,
	}, nil
}

// Transactional reports whether the client was built with a transactional
// id.
func (c *Client) Transactional() bool { return c.transactional }

// Send buffers one record and returns immediately; promise runs on the
// client's completion goroutine once the broker replies.
func (c *Client) Send(ctx context.Context, topic string, partition int32, rec producer.Record, promise func(error)) error {
	r := &kgo.Record{
		Topic:     topic,
		Partition: partition,
		Key:       rec.Key,
		Value:     rec.Value,
	}
	c.cl.Produce(ctx, r, func(_ *kgo.Record, err error) {
		if err != nil {
			c.noteTxnErr(err)
			c.log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("produce failed")
		}
		if promise != nil {
			promise(err)
		}
	})
	return nil
}

// BeginTransaction opens a new transaction group.
func (c *Client) BeginTransaction() error {
	if !c.transactional {
		return ErrNotTransactional
	}
	c.txnMu.Lock()
	c.txnErr = nil
	c.txnMu.Unlock()
	return c.cl.BeginTransaction()
}

// CommitTransaction flushes the group and commits it atomically, writing
// the transaction's control marker. If any send in the group failed, the
// group is aborted instead and the send failure is returned, so a
// half-committed group can never be observed.
func (c *Client) CommitTransaction(ctx context.Context) error {
	if !c.transactional {
		return ErrNotTransactional
	}
	if err := c.cl.Flush(ctx); err != nil {
		c.rollback(ctx)
		return fmt.Errorf("flush: %w", err)
	}
	c.txnMu.Lock()
	sendErr := c.txnErr
	c.txnMu.Unlock()
	if sendErr != nil {
		c.rollback(ctx)
		return fmt.Errorf("transaction send failed: %w", sendErr)
	}
	switch err := c.cl.EndTransaction(ctx, kgo.TryCommit); {
	case err == nil:
		return nil
	case errors.Is(err, kerr.OperationNotAttempted):
		c.rollback(ctx)
		return fmt.Errorf("commit not attempted: %w", err)
	default:
		return fmt.Errorf("end transaction: %w", err)
	}
}

// AbortTransaction drops the group's buffered records and aborts it.
func (c *Client) AbortTransaction(ctx context.Context) error {
	if !c.transactional {
		return ErrNotTransactional
	}
	if err := c.cl.AbortBufferedRecords(ctx); err != nil {
		return fmt.Errorf("abort buffered records: %w", err)
	}
	if err := c.cl.EndTransaction(ctx, kgo.TryAbort); err != nil {
		return fmt.Errorf("end transaction: %w", err)
	}
	return nil
}

func (c *Client) rollback(ctx context.Context) {
	if err := c.AbortTransaction(ctx); err != nil {
		c.log.Error().Err(err).Msg("transaction rollback failed")
	}
}

// Close flushes outstanding records and releases the client. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		// Best effort: let in-flight sends finish before tearing down.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.cl.Flush(ctx); err != nil {
			c.log.Warn().Err(err).Msg("flush on close interrupted")
		}
		c.cl.Close()
	})
	return nil
}

func (c *Client) noteTxnErr(err error) {
	if !c.transactional {
		return
	}
	c.txnMu.Lock()
	if c.txnErr == nil {
		c.txnErr = err
	}
	c.txnMu.Unlock()
}
