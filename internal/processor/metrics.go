package processor

import (
	"sync/atomic"
	"time"
)

// ServiceMetrics are the in-process counters logged by the metrics reporter. Prometheus
// gets the labelled versions through pkg/prom.
type ServiceMetrics struct {
	totalPasses     int64
	totalFailed     int64
	totalSkipped    int64
	totalDurationNs int64
	lastResetNs     int64
}

func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{
		lastResetNs: time.Now().UnixNano(),
	}
}

func (m *ServiceMetrics) RecordSuccess(duration time.Duration) {
	atomic.AddInt64(&m.totalPasses, 1)
	atomic.AddInt64(&m.totalDurationNs, int64(duration))
}

func (m *ServiceMetrics) RecordFailure() {
	atomic.AddInt64(&m.totalFailed, 1)
}

// RecordSkipped counts triggers that did not start a pass: coalesced or lease held.
func (m *ServiceMetrics) RecordSkipped() {
	atomic.AddInt64(&m.totalSkipped, 1)
}

func (m *ServiceMetrics) GetStats() map[string]interface{} {
	passes := atomic.LoadInt64(&m.totalPasses)
	failed := atomic.LoadInt64(&m.totalFailed)
	skipped := atomic.LoadInt64(&m.totalSkipped)
	durationNs := atomic.LoadInt64(&m.totalDurationNs)
	lastResetNs := atomic.LoadInt64(&m.lastResetNs)

	elapsed := time.Since(time.Unix(0, lastResetNs)).Seconds()

	rate := 0.0
	if elapsed > 0 {
		rate = float64(passes) / elapsed
	}

	avgDuration := time.Duration(0)
	if passes > 0 {
		avgDuration = time.Duration(durationNs / passes)
	}

	return map[string]interface{}{
		"total_passes":    passes,
		"total_failed":    failed,
		"total_skipped":   skipped,
		"rate_per_second": rate,
		"avg_duration_ms": avgDuration.Milliseconds(),
		"uptime_seconds":  elapsed,
	}
}

func (m *ServiceMetrics) Reset() {
	atomic.StoreInt64(&m.totalPasses, 0)
	atomic.StoreInt64(&m.totalFailed, 0)
	atomic.StoreInt64(&m.totalSkipped, 0)
	atomic.StoreInt64(&m.totalDurationNs, 0)
	atomic.StoreInt64(&m.lastResetNs, time.Now().UnixNano())
}
