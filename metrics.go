package goInvite

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID uint16

const (
	// MetricConsumeSuccess counts successful token consumptions.
	MetricConsumeSuccess MetricID = iota
	// MetricConsumeNotFound counts consume attempts against unknown tokens.
	MetricConsumeNotFound
	// MetricConsumeInactive counts consume attempts against deactivated tokens.
	MetricConsumeInactive
	// MetricConsumeExhausted counts consume attempts against spent tokens.
	MetricConsumeExhausted
	// MetricTokenCreated counts operator token creations.
	MetricTokenCreated
	// MetricTokenUpdated counts operator token updates.
	MetricTokenUpdated
	// MetricTokenActivated counts operator reactivations.
	MetricTokenActivated
	// MetricTokenDeactivated counts operator deactivations.
	MetricTokenDeactivated
	// MetricTokenDeleted counts operator hard deletions.
	MetricTokenDeleted
	// MetricIdentityCreated counts identities materialized on first consumption.
	MetricIdentityCreated
	// MetricSessionCreated counts sessions opened by consumptions.
	MetricSessionCreated
	// MetricSessionRevoked counts single-session revocations.
	MetricSessionRevoked
	// MetricSessionRevokedAll counts bulk revocations.
	MetricSessionRevokedAll
	// MetricAuthorizeSuccess counts accepted credentials.
	MetricAuthorizeSuccess
	// MetricAuthorizeRejected counts rejected credentials, any reason.
	MetricAuthorizeRejected
	// MetricCredentialExpired counts rejections due to expiry specifically.
	MetricCredentialExpired
	// MetricCredentialInvalid counts rejections due to bad signatures or framing.
	MetricCredentialInvalid
	// MetricOperatorGranted counts successful operator secret checks.
	MetricOperatorGranted
	// MetricOperatorDenied counts failed operator secret checks.
	MetricOperatorDenied
	// MetricAuthorizeLatency is the Authorize latency histogram.
	MetricAuthorizeLatency
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

// Metrics holds atomic counters and an optional Authorize latency histogram.
// When disabled, all operations are no-ops.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample. Only MetricAuthorizeLatency is histogrammed.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricAuthorizeLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies all counters and histogram buckets.
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
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthorizeLatency].buckets[i])
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
