package ringloop

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks per-worker runtime statistics: op lifecycle counts (spec.md
// §4.1 submit/poll/complete/cancel), task scheduling, and ready-queue depth.
// Ported from the teacher's metrics.go (block-I/O op counters/histogram),
// re-themed from ReadOps/WriteOps/DiscardOps/FlushOps to the driver/op and
// scheduler vocabulary this module actually has.
type Metrics struct {
	// Op lifecycle counters (spec.md §4.1).
	SubmitOps   atomic.Uint64 // Ops handed to Driver.Submit
	CompleteOps atomic.Uint64 // Ops that reached Completed
	CancelOps   atomic.Uint64 // Ops dropped before completion (Ignored)
	ErrorOps    atomic.Uint64 // Ops that completed with a non-nil error

	// Bytes moved through Read/Readv/Recv and Write/Writev/Send ops.
	BytesRead    atomic.Uint64
	BytesWritten atomic.Uint64

	// Scheduler statistics (spec.md §4.7).
	TasksSpawned  atomic.Uint64 // Total spawn() calls
	TasksRun      atomic.Uint64 // Total Task.Run invocations (may exceed TasksSpawned; a task runs once per notification)
	TimersFired   atomic.Uint64 // Wheel entries that fired (spec.md §4.5)
	ReadyQueueSum atomic.Uint64 // Cumulative ready-queue depth samples
	ReadyQueueN   atomic.Uint64 // Number of ready-queue depth measurements
	MaxReadyQueue atomic.Uint32 // Maximum observed ready-queue depth

	// Performance tracking.
	TotalLatencyNs atomic.Uint64 // Cumulative op latency in nanoseconds
	OpCount        atomic.Uint64 // Total ops (for average latency calculation)

	// Latency histogram buckets (cumulative counts): bucket[i] counts ops
	// with latency <= LatencyBuckets[i].
	Buckets [numLatencyBuckets]atomic.Uint64

	// Runtime lifecycle.
	StartTime atomic.Int64 // Runtime start timestamp (UnixNano)
	StopTime  atomic.Int64 // Runtime stop timestamp (UnixNano), 0 while running
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordSubmit records an op handed to the driver.
func (m *Metrics) RecordSubmit() { m.SubmitOps.Add(1) }

// RecordComplete records a completed op, its byte count (0 for ops that
// don't move bytes), its latency from submit to completion, and whether it
// is a read-direction op (for the separate read/write byte counters).
func (m *Metrics) RecordComplete(bytes uint64, latencyNs uint64, isRead bool, err error) {
	m.CompleteOps.Add(1)
	if err != nil {
		m.ErrorOps.Add(1)
	} else if isRead {
		m.BytesRead.Add(bytes)
	} else {
		m.BytesWritten.Add(bytes)
	}
	m.recordLatency(latencyNs)
}

// RecordCancel records an op whose future was dropped before completion
// (spec.md §4.1 Ignored transition).
func (m *Metrics) RecordCancel() { m.CancelOps.Add(1) }

// RecordTaskSpawn records a spawn() call.
func (m *Metrics) RecordTaskSpawn() { m.TasksSpawned.Add(1) }

// RecordTaskRun records one Task.Run invocation by the scheduler.
func (m *Metrics) RecordTaskRun() { m.TasksRun.Add(1) }

// RecordTimerFired records a timer wheel entry firing.
func (m *Metrics) RecordTimerFired() { m.TimersFired.Add(1) }

// RecordReadyQueueDepth records the ready queue's length at the start of a
// scheduler pass (spec.md §4.7).
func (m *Metrics) RecordReadyQueueDepth(depth uint32) {
	m.ReadyQueueSum.Add(uint64(depth))
	m.ReadyQueueN.Add(1)
	for {
		current := m.MaxReadyQueue.Load()
		if depth <= current {
			break
		}
		if m.MaxReadyQueue.CompareAndSwap(current, depth) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.Buckets[i].Add(1)
		}
	}
}

// Stop marks the runtime as stopped, freezing uptime calculations.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, non-atomic copy of Metrics.
type MetricsSnapshot struct {
	SubmitOps    uint64
	CompleteOps  uint64
	CancelOps    uint64
	ErrorOps     uint64
	BytesRead    uint64
	BytesWritten uint64

	TasksSpawned  uint64
	TasksRun      uint64
	TimersFired   uint64
	AvgReadyQueue float64
	MaxReadyQueue uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	OpsPerSecond   float64
	ReadBandwidth  float64
	WriteBandwidth float64
	TotalOps       uint64
	TotalBytes     uint64
	ErrorRate      float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		SubmitOps:     m.SubmitOps.Load(),
		CompleteOps:   m.CompleteOps.Load(),
		CancelOps:     m.CancelOps.Load(),
		ErrorOps:      m.ErrorOps.Load(),
		BytesRead:     m.BytesRead.Load(),
		BytesWritten:  m.BytesWritten.Load(),
		TasksSpawned:  m.TasksSpawned.Load(),
		TasksRun:      m.TasksRun.Load(),
		TimersFired:   m.TimersFired.Load(),
		MaxReadyQueue: m.MaxReadyQueue.Load(),
	}

	snap.TotalOps = snap.CompleteOps
	snap.TotalBytes = snap.BytesRead + snap.BytesWritten

	if n := m.ReadyQueueN.Load(); n > 0 {
		snap.AvgReadyQueue = float64(m.ReadyQueueSum.Load()) / float64(n)
	}

	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = m.TotalLatencyNs.Load() / opCount
	}

	startTime := m.StartTime.Load()
	if stopTime := m.StopTime.Load(); stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.OpsPerSecond = float64(snap.TotalOps) / uptimeSeconds
		snap.ReadBandwidth = float64(snap.BytesRead) / uptimeSeconds
		snap.WriteBandwidth = float64(snap.BytesWritten) / uptimeSeconds
	}

	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(snap.ErrorOps) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.Buckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// via linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.Buckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.Buckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters. Useful for testing.
func (m *Metrics) Reset() {
	m.SubmitOps.Store(0)
	m.CompleteOps.Store(0)
	m.CancelOps.Store(0)
	m.ErrorOps.Store(0)
	m.BytesRead.Store(0)
	m.BytesWritten.Store(0)
	m.TasksSpawned.Store(0)
	m.TasksRun.Store(0)
	m.TimersFired.Store(0)
	m.ReadyQueueSum.Store(0)
	m.ReadyQueueN.Store(0)
	m.MaxReadyQueue.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.Buckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection, e.g. forwarding into an
// embedder's own metrics system instead of (or alongside) Metrics.
type Observer interface {
	ObserveSubmit()
	ObserveComplete(bytes uint64, latencyNs uint64, isRead bool, err error)
	ObserveCancel()
	ObserveTaskSpawn()
	ObserveTaskRun()
	ObserveTimerFired()
	ObserveReadyQueueDepth(depth uint32)
}

// NoOpObserver is a no-op implementation of Observer, the runtime's default.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSubmit()                              {}
func (NoOpObserver) ObserveComplete(uint64, uint64, bool, error) {}
func (NoOpObserver) ObserveCancel()                              {}
func (NoOpObserver) ObserveTaskSpawn()                           {}
func (NoOpObserver) ObserveTaskRun()                             {}
func (NoOpObserver) ObserveTimerFired()                          {}
func (NoOpObserver) ObserveReadyQueueDepth(uint32)               {}

// MetricsObserver implements Observer by recording into a Metrics instance.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveSubmit() { o.metrics.RecordSubmit() }

func (o *MetricsObserver) ObserveComplete(bytes uint64, latencyNs uint64, isRead bool, err error) {
	o.metrics.RecordComplete(bytes, latencyNs, isRead, err)
}

func (o *MetricsObserver) ObserveCancel() { o.metrics.RecordCancel() }

func (o *MetricsObserver) ObserveTaskSpawn() { o.metrics.RecordTaskSpawn() }

func (o *MetricsObserver) ObserveTaskRun() { o.metrics.RecordTaskRun() }

func (o *MetricsObserver) ObserveTimerFired() { o.metrics.RecordTimerFired() }

func (o *MetricsObserver) ObserveReadyQueueDepth(depth uint32) {
	o.metrics.RecordReadyQueueDepth(depth)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
