// Package rate provides the leaky-bucket limiter that paces record
// production.
package rate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// LeakyBucket schedules iterations at a fixed rate. Rather than counting
// available tokens, it answers "when should the next send happen", which
// stays smooth across rate changes and backpressure.
//
// Safe for concurrent use.
type LeakyBucket struct {
	rate        float64 // sends per second
	lastDrip    time.Time
	accumulated float64 // fractional sends earned by elapsed time
	maxBurst    float64
	mu          sync.Mutex

	totalScheduled atomic.Int64
	totalWait      atomic.Int64 // nanoseconds
}

// NewLeakyBucket returns a limiter targeting rate sends per second with no
// bursting. Rates <= 0 are clamped to 1.
func NewLeakyBucket(rate float64) *LeakyBucket {
	return NewLeakyBucketWithBurst(rate, 1.0)
}

// NewLeakyBucketWithBurst allows up to maxBurst sends to accumulate while
// the caller is slow, to be spent back-to-back later.
func NewLeakyBucketWithBurst(rate float64, maxBurst float64) *LeakyBucket {
	if rate <= 0 {
		rate = 1.0
	}
	if maxBurst < 1.0 {
		maxBurst = 1.0
	}
	return &LeakyBucket{
		rate:     rate,
		lastDrip: time.Now(),
		maxBurst: maxBurst,
	}
}

// Next returns when the next send should start. The returned time may be
// in the past, meaning the send is already due.
func (lb *LeakyBucket) Next() time.Time {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(lb.lastDrip).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	lb.accumulated += elapsed * lb.rate
	if lb.accumulated > lb.maxBurst {
		lb.accumulated = lb.maxBurst
	}

	if lb.accumulated >= 1.0 {
		lb.accumulated -= 1.0
		lb.lastDrip = now
		lb.totalScheduled.Add(1)
		return now
	}

	deficit := 1.0 - lb.accumulated
	lb.accumulated = 0
	next := now.Add(time.Duration(deficit / lb.rate * float64(time.Second)))

	// Anchor the next drip at the scheduled time, not at now; anchoring at
	// now would re-earn the slept interval and double-fire on wake.
	lb.lastDrip = next

	lb.totalScheduled.Add(1)
	lb.totalWait.Add(int64(next.Sub(now)))
	return next
}

// Wait blocks until the next send is due or the context is cancelled.
func (lb *LeakyBucket) Wait(ctx context.Context) error {
	wait := time.Until(lb.Next())
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetRate changes the target rate. Accumulated credit is discarded so a
// rate change never bursts.
func (lb *LeakyBucket) SetRate(rate float64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if rate <= 0 {
		rate = 1.0
	}
	lb.rate = rate
	lb.accumulated = 0
	lb.lastDrip = time.Now()
}

// Rate returns the current target rate in sends per second.
func (lb *LeakyBucket) Rate() float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.rate
}

// Stats returns the number of scheduled sends and the total time callers
// were asked to wait.
func (lb *LeakyBucket) Stats() (scheduled int64, waited time.Duration) {
	return lb.totalScheduled.Load(), time.Duration(lb.totalWait.Load())
}
