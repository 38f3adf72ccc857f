package cache

import (
	"sync/atomic"
	"time"
)

// Metrics tracks read-path performance statistics
type Metrics struct {
	// Outcome counters
	calls      atomic.Uint64
	localHits  atomic.Uint64
	remoteHits atomic.Uint64
	misses     atomic.Uint64 // compute executions
	errors     atomic.Uint64

	// Timing metrics (in nanoseconds)
	totalLatency atomic.Uint64
	maxLatency   atomic.Uint64

	// Invalidation metrics
	invalidations atomic.Uint64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordCall records one completed read with its end-to-end latency.
func (m *Metrics) RecordCall(duration time.Duration) {
	m.calls.Add(1)
	ns := uint64(duration.Nanoseconds())
	m.totalLatency.Add(ns)
	for {
		cur := m.maxLatency.Load()
		if ns <= cur || m.maxLatency.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// RecordLocalHit increments the near-tier hit counter
func (m *Metrics) RecordLocalHit() {
	m.localHits.Add(1)
}

// RecordRemoteHit increments the shared-tier hit counter
func (m *Metrics) RecordRemoteHit() {
	m.remoteHits.Add(1)
}

// RecordMiss increments the miss counter; a miss is one execution of
// the caller's compute function.
func (m *Metrics) RecordMiss() {
	m.misses.Add(1)
}

// RecordError increments the error counter
func (m *Metrics) RecordError() {
	m.errors.Add(1)
}

// RecordInvalidation increments the invalidation counter
func (m *Metrics) RecordInvalidation() {
	m.invalidations.Add(1)
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	calls := m.calls.Load()
	misses := m.misses.Load()

	var hitRate float64
	if calls > 0 {
		hitRate = float64(calls-misses) / float64(calls) * 100
	}

	var avgLatency time.Duration
	if calls > 0 {
		avgLatency = time.Duration(m.totalLatency.Load() / calls)
	}

	return MetricsSnapshot{
		Calls:         calls,
		LocalHits:     m.localHits.Load(),
		RemoteHits:    m.remoteHits.Load(),
		Misses:        misses,
		Errors:        m.errors.Load(),
		HitRate:       hitRate,
		AvgLatency:    avgLatency,
		MaxLatency:    time.Duration(m.maxLatency.Load()),
		Invalidations: m.invalidations.Load(),
	}
}

// Reset resets all metrics counters
func (m *Metrics) Reset() {
	m.calls.Store(0)
	m.localHits.Store(0)
	m.remoteHits.Store(0)
	m.misses.Store(0)
	m.errors.Store(0)
	m.totalLatency.Store(0)
	m.maxLatency.Store(0)
	m.invalidations.Store(0)
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Calls      uint64
	LocalHits  uint64
	RemoteHits uint64
	Misses     uint64
	Errors     uint64
	HitRate    float64 // Percentage

	AvgLatency time.Duration
	MaxLatency time.Duration

	Invalidations uint64
}
