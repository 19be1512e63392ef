package rate

import (
	"context"
	"testing"
	"time"
)

func TestNewLeakyBucket(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		expected float64
	}{
		{"positive rate", 100.0, 100.0},
		{"zero rate defaults to 1", 0.0, 1.0},
		{"negative rate defaults to 1", -10.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb := NewLeakyBucket(tt.rate)
			if lb.Rate() != tt.expected {
				t.Errorf("Rate() = %v, want %v", lb.Rate(), tt.expected)
			}
		})
	}
}

func TestLeakyBucket_Next_ImmediateFirst(t *testing.T) {
	lb := NewLeakyBucket(100.0)

	now := time.Now()
	next := lb.Next()

	if diff := next.Sub(now); diff > 10*time.Millisecond {
		t.Errorf("First Next() should be immediate, got delay of %v", diff)
	}
}

func TestLeakyBucket_Next_CorrectRate(t *testing.T) {
	rate := 100.0 // 100 per second = 10ms apart
	lb := NewLeakyBucket(rate)

	_ = lb.Next()
	next := lb.Next()

	expectedDelay := time.Duration(float64(time.Second) / rate)
	actualDelay := next.Sub(time.Now())

	if actualDelay < expectedDelay-5*time.Millisecond || actualDelay > expectedDelay+5*time.Millisecond {
		t.Errorf("Delay between calls = %v, want ~%v", actualDelay, expectedDelay)
	}
}

func TestLeakyBucket_Wait_RespectsContext(t *testing.T) {
	lb := NewLeakyBucket(1.0)

	_ = lb.Next()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := lb.Wait(ctx)
	elapsed := time.Since(start)

	if err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("Wait() took %v, should have cancelled quickly", elapsed)
	}
}

func TestLeakyBucket_SetRate_NoBurst(t *testing.T) {
	lb := NewLeakyBucket(1000.0)

	// Let credit accumulate, then drop the rate; the accumulated credit
	// must be discarded rather than spent as a burst.
	time.Sleep(20 * time.Millisecond)
	lb.SetRate(10.0)

	_ = lb.Next()
	next := lb.Next()

	if delay := next.Sub(time.Now()); delay < 50*time.Millisecond {
		t.Errorf("Delay after SetRate = %v, want >= ~100ms pacing", delay)
	}
}

func TestLeakyBucket_Stats(t *testing.T) {
	lb := NewLeakyBucket(1000.0)

	for i := 0; i < 5; i++ {
		_ = lb.Next()
	}

	scheduled, _ := lb.Stats()
	if scheduled != 5 {
		t.Errorf("scheduled = %d, want 5", scheduled)
	}
}
