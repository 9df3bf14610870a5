package goRelay

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one relay counter or histogram.
type MetricID uint16

const (
	// MetricTagEventReceived counts tag-added events accepted by HandleTagAdded.
	MetricTagEventReceived MetricID = iota
	// MetricRuleMatched counts rule executions triggered by an added tag.
	MetricRuleMatched
	// MetricDispatchSuccess counts repository dispatches GitHub accepted.
	MetricDispatchSuccess
	// MetricDispatchFailure counts repository dispatches that failed or were rejected.
	MetricDispatchFailure
	// MetricDispatchThrottled counts dispatches skipped by the rate limiter.
	MetricDispatchThrottled
	// MetricTokenMinted counts app JWTs produced.
	MetricTokenMinted
	// MetricTokenUnavailable counts mint calls where no signer succeeded.
	MetricTokenUnavailable
	// MetricSignerAttemptFailed counts individual failed signer candidates.
	MetricSignerAttemptFailed
	// MetricProbeSuccess counts installation lookups that accepted the app JWT.
	MetricProbeSuccess
	// MetricProbeFailure counts installation lookups that did not.
	MetricProbeFailure
	// MetricInstallationTokenIssued counts installation access tokens obtained.
	MetricInstallationTokenIssued
	// MetricGitHubLatency is the GitHub call latency histogram.
	MetricGitHubLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free relay counters.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics never fails; a disabled config yields a Metrics that records nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricGitHubLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricGitHubLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricGitHubLatency].buckets[i])
		}
		s.Histograms[MetricGitHubLatency] = buckets
	}

	return s
}

// GitHub calls are network round trips, so buckets start at 50ms.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
