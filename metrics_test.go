package goInvite

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoOps(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricConsumeSuccess)
	m.Observe(MetricAuthorizeLatency, time.Millisecond)

	if m.Enabled() {
		t.Fatal("expected metrics disabled")
	}
	if m.Value(MetricConsumeSuccess) != 0 {
		t.Fatal("expected disabled counter to stay zero")
	}

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatal("expected empty snapshot when disabled")
	}
}

func TestMetricsCountersConcurrent(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricConsumeSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricConsumeSuccess); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

func TestMetricsLatencyHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricAuthorizeLatency, 2*time.Millisecond)
	m.Observe(MetricAuthorizeLatency, 30*time.Millisecond)
	m.Observe(MetricAuthorizeLatency, time.Second)

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricAuthorizeLatency]
	if !ok {
		t.Fatal("expected latency histogram in snapshot")
	}
	if buckets[0] != 1 {
		t.Fatalf("expected one sample in the 5ms bucket, got %d", buckets[0])
	}
	if buckets[3] != 1 {
		t.Fatalf("expected one sample in the 50ms bucket, got %d", buckets[3])
	}
	if buckets[7] != 1 {
		t.Fatalf("expected one sample in the overflow bucket, got %d", buckets[7])
	}

	// Non-latency IDs are never histogrammed.
	m.Observe(MetricConsumeSuccess, time.Millisecond)
	snap = m.Snapshot()
	if _, ok := snap.Histograms[MetricConsumeSuccess]; ok {
		t.Fatal("unexpected histogram for a counter metric")
	}
}

func TestEngineMetricsTrackLifecycle(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	mustCreateToken(t, engine, "count", 1)
	res := consumeOne(t, engine, "count")
	if _, err := engine.Consume(ctx, "count"); err == nil {
		t.Fatal("expected exhaustion")
	}
	if _, err := engine.Authorize(ctx, res.Credential); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if _, err := engine.Authorize(ctx, ""); err == nil {
		t.Fatal("expected rejection")
	}

	snap := engine.MetricsSnapshot()
	checks := map[MetricID]uint64{
		MetricTokenCreated:      1,
		MetricConsumeSuccess:    1,
		MetricConsumeExhausted:  1,
		MetricIdentityCreated:   1,
		MetricSessionCreated:    1,
		MetricAuthorizeSuccess:  1,
		MetricAuthorizeRejected: 1,
	}
	for id, want := range checks {
		if snap.Counters[id] != want {
			t.Fatalf("metric %d: expected %d, got %d", id, want, snap.Counters[id])
		}
	}
}
