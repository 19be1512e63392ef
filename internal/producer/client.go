package producer

import (
	"context"
	"time"
)

// Observer is notified once per completed unit of work: a single record,
// or one committed transaction group. total is the engine's cumulative
// record count after the unit; elapsed is the duration of that unit alone.
type Observer func(total int64, elapsed time.Duration)

// LogClient is the asynchronous transport an Executor produces through.
// Exactly one executor owns a client for the client's lifetime.
//
// Send buffers one record for (topic, partition) and returns without
// waiting for acknowledgment; promise, if non-nil, runs exactly once on a
// client-owned completion context when the broker acknowledges or rejects
// the record. partition may be PartitionUnspecified.
//
// BeginTransaction, CommitTransaction, and AbortTransaction wrap a
// sequence of sends into one atomic group. CommitTransaction must not
// half-commit: if any send in the group failed, the implementation aborts
// the group and returns the failure. Committing writes a control marker
// that consumes a log offset but is not a user record.
type LogClient interface {
	Send(ctx context.Context, topic string, partition int32, rec Record, promise func(error)) error
	BeginTransaction() error
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	Close() error
}
