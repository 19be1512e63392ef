// Package metrics aggregates completion reports from producer executors.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/kafbench/kafbench/internal/producer"
)

// Engine collects per-unit completion metrics from any number of
// executors.
//
// Counters use atomics; the latency histogram is mutex protected. The
// histogram records per-unit durations in microseconds, 1us to 1 hour at
// three significant figures.
type Engine struct {
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	totalRecords atomic.Int64
	totalUnits   atomic.Int64
	failures     atomic.Int64
	bytesOut     atomic.Int64

	startTime time.Time
}

// NewEngine returns an engine with its clock started.
func NewEngine() *Engine {
	return &Engine{
		latencyHist: hdrhistogram.New(1, 3600_000_000, 3),
		startTime:   time.Now(),
	}
}

// RecordUnit records one completed unit: records acknowledged together and
// the elapsed duration of that unit.
func (e *Engine) RecordUnit(records int64, elapsed time.Duration) {
	e.totalRecords.Add(records)
	e.totalUnits.Add(1)

	e.latencyHistMu.Lock()
	_ = e.latencyHist.RecordValue(elapsed.Microseconds())
	e.latencyHistMu.Unlock()
}

// RecordBytes accounts payload bytes handed to the transport.
func (e *Engine) RecordBytes(n int64) {
	e.bytesOut.Add(n)
}

// RecordFailure counts a failed unit.
func (e *Engine) RecordFailure() {
	e.failures.Add(1)
}

// Observer returns a producer.Observer bound to this engine. Each executor
// gets its own observer because the engine receives cumulative counts and
// must convert them to deltas.
func (e *Engine) Observer() producer.Observer {
	var (
		mu   sync.Mutex
		prev int64
	)
	return func(total int64, elapsed time.Duration) {
		mu.Lock()
		delta := total - prev
		prev = total
		mu.Unlock()
		e.RecordUnit(delta, elapsed)
	}
}

// TotalRecords returns the records acknowledged so far.
func (e *Engine) TotalRecords() int64 { return e.totalRecords.Load() }

// TotalUnits returns the completed units so far.
func (e *Engine) TotalUnits() int64 { return e.totalUnits.Load() }

// Snapshot is a point-in-time aggregation.
type Snapshot struct {
	TotalRecords int64         `json:"totalRecords"`
	TotalUnits   int64         `json:"totalUnits"`
	Failures     int64         `json:"failures"`
	BytesOut     int64         `json:"bytesOut"`
	Latency      LatencyStats  `json:"latency"`
	RecordsPerS  float64       `json:"recordsPerSecond"`
	Elapsed      time.Duration `json:"elapsed"`
	StartTime    time.Time     `json:"startTime"`
	Timestamp    time.Time     `json:"timestamp"`
}

// LatencyStats contains per-unit latency statistics.
type LatencyStats struct {
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P90   time.Duration `json:"p90"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Count int64         `json:"count"`
}

// GetSnapshot returns the current aggregation.
func (e *Engine) GetSnapshot() *Snapshot {
	now := time.Now()
	elapsed := now.Sub(e.startTime)

	snap := &Snapshot{
		TotalRecords: e.totalRecords.Load(),
		TotalUnits:   e.totalUnits.Load(),
		Failures:     e.failures.Load(),
		BytesOut:     e.bytesOut.Load(),
		Elapsed:      elapsed,
		StartTime:    e.startTime,
		Timestamp:    now,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		snap.RecordsPerS = float64(snap.TotalRecords) / secs
	}

	e.latencyHistMu.Lock()
	defer e.latencyHistMu.Unlock()
	if e.latencyHist.TotalCount() > 0 {
		snap.Latency = LatencyStats{
			Min:   time.Duration(e.latencyHist.Min()) * time.Microsecond,
			Max:   time.Duration(e.latencyHist.Max()) * time.Microsecond,
			Mean:  time.Duration(e.latencyHist.Mean()) * time.Microsecond,
			P50:   time.Duration(e.latencyHist.ValueAtQuantile(50)) * time.Microsecond,
			P90:   time.Duration(e.latencyHist.ValueAtQuantile(90)) * time.Microsecond,
			P95:   time.Duration(e.latencyHist.ValueAtQuantile(95)) * time.Microsecond,
			P99:   time.Duration(e.latencyHist.ValueAtQuantile(99)) * time.Microsecond,
			Count: e.latencyHist.TotalCount(),
		}
	}
	return snap
}
