package ringloop

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsRecordsCompleteCounters(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	require.Zero(t, snap.TotalOps)

	m.RecordSubmit()
	m.RecordComplete(1024, 1_000_000, true, nil)  // 1KB read, 1ms
	m.RecordSubmit()
	m.RecordComplete(2048, 2_000_000, false, nil) // 2KB write, 2ms
	m.RecordSubmit()
	m.RecordComplete(0, 500_000, true, errors.New("boom"))

	snap = m.Snapshot()
	require.EqualValues(t, 3, snap.SubmitOps)
	require.EqualValues(t, 3, snap.CompleteOps)
	require.EqualValues(t, 1024, snap.BytesRead)
	require.EqualValues(t, 2048, snap.BytesWritten)
	require.EqualValues(t, 1, snap.ErrorOps)
	require.InDelta(t, float64(1)/float64(3)*100.0, snap.ErrorRate, 0.1)
}

func TestMetricsReadyQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.RecordReadyQueueDepth(10)
	m.RecordReadyQueueDepth(20)
	m.RecordReadyQueueDepth(15)

	snap := m.Snapshot()
	require.EqualValues(t, 20, snap.MaxReadyQueue)
	require.InDelta(t, float64(10+20+15)/3.0, snap.AvgReadyQueue, 0.1)
}

func TestMetricsLatencyAverage(t *testing.T) {
	m := NewMetrics()

	m.RecordComplete(1024, 1_000_000, true, nil)
	m.RecordComplete(1024, 2_000_000, false, nil)

	snap := m.Snapshot()
	require.EqualValues(t, 1_500_000, snap.AvgLatencyNs)
}

func TestMetricsUptimeFreezesOnStop(t *testing.T) {
	m := NewMetrics()
	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	require.GreaterOrEqual(t, snap.UptimeNs, uint64(10*time.Millisecond))

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	require.LessOrEqual(t, snap2.UptimeNs, snap.UptimeNs+uint64(2*time.Millisecond))
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordComplete(1024, 1_000_000, true, nil)
	m.RecordComplete(2048, 2_000_000, false, nil)
	m.RecordReadyQueueDepth(10)

	require.NotZero(t, m.Snapshot().TotalOps)

	m.Reset()

	snap := m.Snapshot()
	require.Zero(t, snap.TotalOps)
	require.Zero(t, snap.TotalBytes)
	require.Zero(t, snap.MaxReadyQueue)
}

func TestObserverForwardsToMetrics(t *testing.T) {
	noop := NoOpObserver{}
	noop.ObserveSubmit()
	noop.ObserveComplete(1024, 1_000_000, true, nil)
	noop.ObserveCancel()
	noop.ObserveTaskSpawn()
	noop.ObserveTaskRun()
	noop.ObserveTimerFired()
	noop.ObserveReadyQueueDepth(10)

	m := NewMetrics()
	obs := NewMetricsObserver(m)

	obs.ObserveSubmit()
	obs.ObserveComplete(1024, 1_000_000, true, nil)
	obs.ObserveSubmit()
	obs.ObserveComplete(2048, 2_000_000, false, nil)
	obs.ObserveCancel()
	obs.ObserveTaskSpawn()
	obs.ObserveTaskRun()
	obs.ObserveTimerFired()

	snap := m.Snapshot()
	require.EqualValues(t, 2, snap.CompleteOps)
	require.EqualValues(t, 1024, snap.BytesRead)
	require.EqualValues(t, 2048, snap.BytesWritten)
	require.EqualValues(t, 1, snap.CancelOps)
	require.EqualValues(t, 1, snap.TasksSpawned)
	require.EqualValues(t, 1, snap.TasksRun)
	require.EqualValues(t, 1, snap.TimersFired)
}

func TestMetricsRatesOverOneSecond(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordComplete(1024, 1_000_000, true, nil)
	m.RecordComplete(2048, 2_000_000, false, nil)

	m.StopTime.Store(startTime.Add(1 * time.Second).UnixNano())

	snap := m.Snapshot()
	require.InDelta(t, 2.0, snap.OpsPerSecond, 0.1)
	require.InDelta(t, 1024, snap.ReadBandwidth, 50)
	require.InDelta(t, 2048, snap.WriteBandwidth, 50)
}

func TestMetricsHistogramPercentiles(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordComplete(1024, 500_000, true, nil) // 500us
	}
	for i := 0; i < 49; i++ {
		m.RecordComplete(1024, 5_000_000, false, nil) // 5ms
	}
	m.RecordComplete(1024, 50_000_000, false, nil) // 50ms, P99

	snap := m.Snapshot()
	require.EqualValues(t, 100, snap.TotalOps)
	require.InDelta(t, 500_000, snap.LatencyP50Ns, 500_000)
	require.GreaterOrEqual(t, snap.LatencyP99Ns, uint64(5_000_000))

	var totalInBuckets uint64
	for _, c := range snap.LatencyHistogram {
		totalInBuckets += c
	}
	require.NotZero(t, totalInBuckets)
}
